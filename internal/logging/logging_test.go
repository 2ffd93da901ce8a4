package logging_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/devhaven/memoryd/internal/logging"
)

func TestNewWritesRotatingFileAtConfiguredLevel(t *testing.T) {
	dir := t.TempDir()
	logger := logging.New(logging.Options{Dir: dir, Level: "warn"})

	logger.Info("should be filtered out")
	logger.Warn("should appear", "component", "sweeper")

	data, err := readLogFile(t, dir)
	if err != nil {
		t.Fatalf("readLogFile: %v", err)
	}
	if bytes.Contains(data, []byte("should be filtered out")) {
		t.Fatalf("info message leaked through a warn-level logger")
	}
	if !bytes.Contains(data, []byte("should appear")) {
		t.Fatalf("warn message missing from log file: %s", data)
	}
}

func TestNewProducesValidJSONLines(t *testing.T) {
	dir := t.TempDir()
	logger := logging.New(logging.Options{Dir: dir, Level: "info"})
	logger.Info("structured entry", "fact_id", 42)

	data, err := readLogFile(t, dir)
	if err != nil {
		t.Fatalf("readLogFile: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("log line is not valid JSON: %v\n%s", err, data)
	}
	if entry["msg"] != "structured entry" {
		t.Fatalf("msg = %v, want %q", entry["msg"], "structured entry")
	}
}

func TestNewWithoutDirStillReturnsUsableLogger(t *testing.T) {
	logger := logging.New(logging.Options{})
	if logger == nil {
		t.Fatal("New returned nil logger")
	}
	logger.Info("no panic expected")
}

func readLogFile(t *testing.T, dir string) ([]byte, error) {
	t.Helper()
	return os.ReadFile(filepath.Join(dir, "memoryd.log"))
}
