package transcript

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadDeltaFromScratch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jsonl")
	if err := os.WriteFile(path, []byte("line one\nline two\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	delta, err := ReadDelta(path, 0)
	if err != nil {
		t.Fatalf("ReadDelta: %v", err)
	}
	if string(delta.Bytes) != "line one\nline two\n" {
		t.Fatalf("bytes = %q", delta.Bytes)
	}
	if delta.NewOffset != int64(len(delta.Bytes)) {
		t.Fatalf("new offset = %d, want %d", delta.NewOffset, len(delta.Bytes))
	}
}

func TestReadDeltaResumesFromOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jsonl")
	if err := os.WriteFile(path, []byte("line one\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	first, err := ReadDelta(path, 0)
	if err != nil {
		t.Fatalf("ReadDelta (first): %v", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open for append: %v", err)
	}
	if _, err := f.WriteString("line two\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	f.Close()

	second, err := ReadDelta(path, first.NewOffset)
	if err != nil {
		t.Fatalf("ReadDelta (second): %v", err)
	}
	if string(second.Bytes) != "line two\n" {
		t.Fatalf("delta bytes = %q, want %q", second.Bytes, "line two\n")
	}
}

func TestReadDeltaHandlesTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jsonl")
	if err := os.WriteFile(path, []byte("a very long original line\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	first, err := ReadDelta(path, 0)
	if err != nil {
		t.Fatalf("ReadDelta (first): %v", err)
	}

	if err := os.WriteFile(path, []byte("short\n"), 0o644); err != nil {
		t.Fatalf("truncate+rewrite: %v", err)
	}

	second, err := ReadDelta(path, first.NewOffset)
	if err != nil {
		t.Fatalf("ReadDelta (after truncation): %v", err)
	}
	if string(second.Bytes) != "short\n" {
		t.Fatalf("after truncation, bytes = %q, want %q", second.Bytes, "short\n")
	}
}
