package ingest_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/devhaven/memoryd/internal/ingest"
	"github.com/devhaven/memoryd/internal/storage/sqlite"
)

func newStore(t *testing.T) *sqlite.SQLiteStorage {
	t.Helper()
	store, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "memory.db"))
	if err != nil {
		t.Fatalf("sqlite.New: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func writeTranscript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.jsonl")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}
	return path
}

func TestIngestReadsNewContent(t *testing.T) {
	store := newStore(t)
	path := writeTranscript(t, `{"type":"tool_use","tool_name":"Bash"}`+"\n")

	result, err := ingest.Ingest(context.Background(), store, ingest.Request{
		Source: "claude-code", SessionID: "sess-1", TranscriptPath: path, ProjectPath: "/repo",
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if result.Skipped {
		t.Fatal("expected first ingest to not be skipped")
	}
	if result.ToolCalls != 1 {
		t.Fatalf("tool calls = %d, want 1", result.ToolCalls)
	}
}

func TestIngestSkipsUnchangedFile(t *testing.T) {
	store := newStore(t)
	path := writeTranscript(t, `{"type":"tool_use","tool_name":"Bash"}`+"\n")
	req := ingest.Request{Source: "claude-code", SessionID: "sess-1", TranscriptPath: path, ProjectPath: "/repo"}

	if _, err := ingest.Ingest(context.Background(), store, req); err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	result, err := ingest.Ingest(context.Background(), store, req)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if !result.Skipped {
		t.Fatal("expected second ingest of an unchanged file to be skipped")
	}
}
