package logbook

import (
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestTailReturnsRecentLinesAndTotal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "journey.log")
	book, err := New(path)
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	defer book.Close()
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

func TestLevelsAndVerbose(t *testing.T) {
	dir := t.TempDir()
	quiet, err := New(filepath.Join(dir, "quiet.log"))
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	defer quiet.Close()
	quiet.Debug("hidden")
	quiet.Warn("careful %s", "now")
	quiet.Error("broken")
	lines, total := quiet.Tail(10)
	if total != 2 {
		t.Fatalf("debug entry leaked into quiet journal: %v", lines)
	}
	if !strings.Contains(lines[0], "WARN") || !strings.Contains(lines[0], "careful now") {
		t.Fatalf("unexpected warn line %q", lines[0])
	}
	if !strings.Contains(lines[1], "ERROR") {
		t.Fatalf("unexpected error line %q", lines[1])
	}
	if quiet.Verbose() {
		t.Fatalf("default logbook should not be verbose")
	}

	loud, err := New(filepath.Join(dir, "loud.log"), WithVerbose(true))
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	defer loud.Close()
	loud.Debug("shown")
	if lines, _ := loud.Tail(1); len(lines) != 1 || !strings.Contains(lines[0], "shown") {
		t.Fatalf("verbose logbook dropped debug entry: %v", lines)
	}
}

func TestWithAddsFields(t *testing.T) {
	book, err := New(filepath.Join(t.TempDir(), "journey.log"))
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	defer book.Close()
	book.With(zap.String("record", "C100")).Info("contacted")
	lines, _ := book.Tail(1)
	if len(lines) != 1 || !strings.Contains(lines[0], "record") || !strings.Contains(lines[0], "C100") {
		t.Fatalf("field missing from entry: %v", lines)
	}
}

func TestNilLogbookIsSafe(t *testing.T) {
	var book *Logbook
	book.Info("nothing")
	if lines, total := book.Tail(5); lines != nil || total != 0 {
		t.Fatalf("nil tail = %v, %d", lines, total)
	}
	if book.Path() != "" {
		t.Fatalf("nil path should be empty")
	}
	if err := book.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}
}
