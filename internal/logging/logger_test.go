package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoggerAppendsTimestampedLines(t *testing.T) {
	projectDir := t.TempDir()
	logger, err := New(projectDir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Printf("bridge listening on %s\n", "127.0.0.1:8765")
	logger.Printf("timeline %q finished", "match")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(projectDir, ".autons", "logs", "autons.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", lines)
	}
	if !strings.HasPrefix(lines[0], "[") || !strings.HasSuffix(lines[0], "] bridge listening on 127.0.0.1:8765") {
		t.Fatalf("unexpected line %q", lines[0])
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var logger *Logger
	logger.Printf("ignored")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close on nil: %v", err)
	}
}

func TestWithTagsComponentAndSharesFile(t *testing.T) {
	projectDir := t.TempDir()
	logger, err := New(projectDir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	fixed := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	logger.sink.clock = func() time.Time { return fixed }

	logger.With("sim").Printf("4 routes")
	logger.With(" bridge ").Printf("listening")
	logger.Printf("untagged")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	logger.With("sim").Printf("after close")

	data, err := os.ReadFile(filepath.Join(projectDir, ".autons", "logs", FileName))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	want := "[2026-03-14T09:30:00Z] sim: 4 routes\n" +
		"[2026-03-14T09:30:00Z] bridge: listening\n" +
		"[2026-03-14T09:30:00Z] untagged\n"
	if string(data) != want {
		t.Fatalf("unexpected log contents:\n%s", data)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
