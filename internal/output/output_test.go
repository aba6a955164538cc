package output

import (
	"bytes"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1900000", "1.8 MiB (1,900,000 bytes)"},
		{"512", "512 B (512 bytes)"},
		{"unknown", "unknown"},
		{"1.2M", "1.2M"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.in); got != tt.want {
			t.Errorf("FormatSize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	if got := FormatPercent(-1); got != "unknown" {
		t.Errorf("FormatPercent(-1) = %q", got)
	}
	if got := FormatPercent(42); got != "42%" {
		t.Errorf("FormatPercent(42) = %q", got)
	}
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		pct    int
		filled int
		label  string
	}{
		{0, 0, "0%"},
		{50, 5, "50%"},
		{100, 10, "100%"},
		{150, 10, "100%"},
	}
	for _, tt := range tests {
		got := ProgressBar(tt.pct, 10)
		if n := strings.Count(got, StyleSymbols["hline"]); n != tt.filled {
			t.Errorf("ProgressBar(%d) filled %d cells, want %d", tt.pct, n, tt.filled)
		}
		if !strings.Contains(got, tt.label) {
			t.Errorf("ProgressBar(%d) = %q, missing %q", tt.pct, got, tt.label)
		}
	}
	if got := ProgressBar(-1, 10); !strings.Contains(got, "?") {
		t.Errorf("unknown percent bar = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdefghij", 6); got != "abc..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("abc", 6); got != "abc" {
		t.Errorf("truncate short = %q", got)
	}
}

func TestTable(t *testing.T) {
	tbl := NewTable("ID", "State")
	tbl.AddRow("a1", "running")
	tbl.AddRow("b2", "done")
	out := tbl.FormatTable(true)
	for _, want := range []string{"ID", "State", "a1", "running", "b2", "done", "|"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func newTestBoard(w *bytes.Buffer, refresh func() ([]BoardRow, error)) *Board {
	b := NewBoard(w, 10*time.Millisecond, refresh)
	b.height = func() int { return 40 }
	b.width = func() int { return 100 }
	return b
}

func TestBoardLines(t *testing.T) {
	b := newTestBoard(&bytes.Buffer{}, nil)
	if lines := b.Lines(); len(lines) != 1 || !strings.Contains(lines[0], "no jobs") {
		t.Errorf("empty board = %q", lines)
	}

	b.Update([]BoardRow{
		{ID: "2", Title: "http://b.test/file", State: "done", Percent: 100},
		{ID: "1", Title: "http://a.test/file", State: "running", Percent: 40, Detail: "1.2M/s eta 10s"},
		{ID: "3", Title: "http://c.test/file", State: "paused", Percent: 10},
	})
	lines := b.Lines()
	if len(lines) != 4 {
		t.Fatalf("lines = %d: %q", len(lines), lines)
	}
	if !strings.Contains(lines[0], "a.test") || !strings.Contains(lines[1], "40%") || !strings.Contains(lines[1], "eta 10s") {
		t.Errorf("running job not first with progress: %q", lines[:2])
	}
	if !strings.Contains(lines[2], "b.test") || !strings.Contains(lines[3], "paused") {
		t.Errorf("remaining jobs = %q", lines[2:])
	}
}

func TestBoardHeightLimit(t *testing.T) {
	b := newTestBoard(&bytes.Buffer{}, nil)
	b.height = func() int { return 6 }
	var rows []BoardRow
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		rows = append(rows, BoardRow{ID: id, Title: id, State: "paused"})
	}
	b.Update(rows)
	lines := b.Lines()
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3", len(lines))
	}
	if !strings.Contains(lines[2], "4 more lines hidden") {
		t.Errorf("last line = %q", lines[2])
	}
}

func TestBoardDisplay(t *testing.T) {
	var buf bytes.Buffer
	var calls atomic.Int32
	b := newTestBoard(&buf, func() ([]BoardRow, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("work dir gone")
		}
		return []BoardRow{{ID: "1", Title: "http://a.test", State: "done", Percent: 100}}, nil
	})
	b.StartDisplay()
	time.Sleep(50 * time.Millisecond)
	b.StopDisplay()

	out := buf.String()
	if !strings.Contains(out, "refresh failed: work dir gone") {
		t.Errorf("refresh error not shown:\n%s", out)
	}
	if !strings.Contains(out, "1 jobs: 0 running, 0 paused, 1 done") {
		t.Errorf("summary missing:\n%s", out)
	}
	if calls.Load() < 2 {
		t.Errorf("refresh called %d times", calls.Load())
	}
}
