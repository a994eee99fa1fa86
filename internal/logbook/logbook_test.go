package logbook

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestTailReturnsRecentLinesAndTotal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "match.log")
	book, err := New(path)
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	for i := 0; i < 5; i++ {
		book.Info("entry-%d", i)
	}
	lines, total := book.Tail(3)
	if total != 5 {
		t.Fatalf("total lines = %d, want 5", total)
	}
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3", len(lines))
	}
	for idx, want := range []string{"entry-2", "entry-3", "entry-4"} {
		if !strings.Contains(lines[idx], want) {
			t.Fatalf("line %d = %q, missing %s", idx, lines[idx], want)
		}
	}
}

func TestScopeTagsEntriesAndSharesFile(t *testing.T) {
	book, err := New(filepath.Join(t.TempDir(), "logs", "match.log"))
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	book.Scope("selector").Warn("input fault %d", 2)
	book.Error("plain")
	lines, total := book.Tail(10)
	if total != 2 {
		t.Fatalf("total = %d, want 2", total)
	}
	if !strings.Contains(lines[0], "WARN  [selector] input fault 2") {
		t.Fatalf("scoped line = %q", lines[0])
	}
	if strings.Contains(lines[1], "[") || !strings.Contains(lines[1], "ERROR plain") {
		t.Fatalf("unscoped line = %q", lines[1])
	}
}

func TestNilLogbookIsSafe(t *testing.T) {
	var book *Logbook
	book.Info("ignored")
	if lines, total := book.Tail(3); lines != nil || total != 0 {
		t.Fatalf("nil tail = %v, %d", lines, total)
	}
	if book.Scope("x") != nil {
		t.Fatalf("expected nil scope from nil logbook")
	}
}
