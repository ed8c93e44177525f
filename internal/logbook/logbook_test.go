package logbook

import (
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
)

func TestTailReturnsRecentLinesAndTotal(t *testing.T) {
	fs := memfs.New()
	book, err := New(fs, "data/1/bpixm.log")
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := book.Logf(CategoryLog, "entry-%d", i); err != nil {
			t.Fatalf("append: %v", err)
		}
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

func TestAppendFormatsCategoryAndFoldsLines(t *testing.T) {
	fs := memfs.New()
	stamp := time.Date(2017, 3, 9, 14, 5, 0, 0, time.Local)
	book, err := New(fs, "bpixm.log", WithClock(func() time.Time { return stamp }))
	if err != nil {
		t.Fatal(err)
	}
	if err := book.Append(CategoryMountModule, "DONE: mount\nmodule  -> M1"); err != nil {
		t.Fatal(err)
	}
	data, err := util.ReadFile(fs, "bpixm.log")
	if err != nil {
		t.Fatal(err)
	}
	want := "2017-03-09 14:05 [MOUNT-MODULE] DONE: mount module -> M1\n"
	if string(data) != want {
		t.Fatalf("log = %q, want %q", data, want)
	}
	got, ok := LastEntryTime(fs, "bpixm.log")
	if !ok || !got.Equal(stamp) {
		t.Fatalf("LastEntryTime = %v %v, want %v", got, ok, stamp)
	}
}

func TestLastEntryTimeMissingFile(t *testing.T) {
	if _, ok := LastEntryTime(memfs.New(), "nope.log"); ok {
		t.Fatalf("expected no timestamp for a missing log")
	}
}

func TestNilLogbookIsSafe(t *testing.T) {
	var book *Logbook
	if err := book.Warn("ignored %d", 1); err != nil {
		t.Fatalf("nil logbook returned %v", err)
	}
	if lines, total := book.Tail(3); lines != nil || total != 0 {
		t.Fatalf("nil Tail = %v %d", lines, total)
	}
}

func TestReadOnlyDoesNotWrite(t *testing.T) {
	fs := memfs.New()
	if err := util.WriteFile(fs, "data/1/bpixm.log", []byte("2017-03-09 14:05 [LOG] kept\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	book, err := New(fs, "data/1/bpixm.log", ReadOnly())
	if err != nil {
		t.Fatal(err)
	}
	if err := book.Warn("not written"); err != nil {
		t.Fatalf("warn: %v", err)
	}
	lines, total := book.Tail(5)
	if total != 1 || !strings.Contains(lines[0], "kept") {
		t.Fatalf("tail = %q (total %d), want the single existing entry", lines, total)
	}
	if _, err := New(fs, "data/2/bpixm.log", ReadOnly()); err != nil {
		t.Fatal(err)
	}
	if _, err := fs.Stat("data/2"); err == nil {
		t.Fatal("read-only logbook created its directory")
	}
}
