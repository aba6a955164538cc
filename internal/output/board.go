package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// BoardRow is one job on the live board.
type BoardRow struct {
	ID      string
	Title   string
	State   string
	Percent int
	Detail  string
}

// Board redraws a set of job rows in place on a terminal until stopped.
type Board struct {
	w           io.Writer
	rows        map[string]BoardRow
	mutex       sync.RWMutex
	numLines    int
	refresh     func() ([]BoardRow, error)
	lastErr     error
	displayTick time.Duration
	doneCh      chan struct{}
	displayWg   sync.WaitGroup
	height      func() int
	width       func() int
}

// NewBoard returns a board that calls refresh on every tick to get the
// current rows.
func NewBoard(w io.Writer, tick time.Duration, refresh func() ([]BoardRow, error)) *Board {
	if tick <= 0 {
		tick = time.Second
	}
	return &Board{
		w:           w,
		rows:        make(map[string]BoardRow),
		refresh:     refresh,
		displayTick: tick,
		doneCh:      make(chan struct{}),
		height:      getTerminalHeight,
		width:       getTerminalWidth,
	}
}

// Update replaces the board contents.
func (b *Board) Update(rows []BoardRow) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.rows = make(map[string]BoardRow, len(rows))
	for _, r := range rows {
		b.rows[r.ID] = r
	}
}

func (b *Board) sortedRows() (active, rest []BoardRow) {
	all := make([]BoardRow, 0, len(b.rows))
	for _, r := range b.rows {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Title < all[j].Title
	})
	for _, r := range all {
		if r.State == "running" {
			active = append(active, r)
		} else {
			rest = append(rest, r)
		}
	}
	return active, rest
}

// Lines renders the board, limited to the terminal height. Running jobs come
// first and get a progress line.
func (b *Board) Lines() []string {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	available := max(b.height()-3, 1)
	width := b.width()
	indent := strings.Repeat(" ", 2)
	active, rest := b.sortedRows()

	var lines []string
	if len(b.rows) == 0 {
		lines = append(lines, indent+debugStyle.Render("no jobs"))
	}
	for _, r := range active {
		lines = append(lines, fmt.Sprintf("%s%s %s", indent, StateIndicator(r.State), pendingStyle.Render(truncate(r.Title, width-6))))
		lines = append(lines, fmt.Sprintf("%s%s %s", strings.Repeat(" ", 2+4), ProgressBar(r.Percent, 30), streamStyle.Render(r.Detail)))
	}
	for _, r := range rest {
		lines = append(lines, fmt.Sprintf("%s%s %s %s", indent, StateIndicator(r.State), FState(r.State), truncate(r.Title, width-16)))
	}
	if b.lastErr != nil {
		lines = append(lines, indent+errorStyle.Render("refresh failed: "+b.lastErr.Error()))
	}
	if len(lines) > available {
		hidden := len(lines) - available + 1
		lines = append(lines[:available-1], indent+infoStyle.Render(fmt.Sprintf("%d more lines hidden ...", hidden)))
	}
	return lines
}

func (b *Board) tick() {
	if b.refresh != nil {
		rows, err := b.refresh()
		b.mutex.Lock()
		b.lastErr = err
		b.mutex.Unlock()
		if err == nil {
			b.Update(rows)
		}
	}
	b.updateDisplay()
}

func (b *Board) updateDisplay() {
	lines := b.Lines()
	if b.numLines > 0 {
		fmt.Fprintf(b.w, "\033[%dA\033[J", b.numLines)
	}
	for _, l := range lines {
		fmt.Fprintln(b.w, l)
	}
	b.numLines = len(lines)
}

func (b *Board) StartDisplay() {
	b.displayWg.Add(1)
	go func() {
		defer b.displayWg.Done()
		b.tick()
		ticker := time.NewTicker(b.displayTick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				b.tick()
			case <-b.doneCh:
				b.tick()
				b.showSummary()
				return
			}
		}
	}()
}

func (b *Board) StopDisplay() {
	close(b.doneCh)
	b.displayWg.Wait()
}

func (b *Board) showSummary() {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	counts := map[string]int{}
	for _, r := range b.rows {
		counts[r.State]++
	}
	fmt.Fprintln(b.w)
	summary := fmt.Sprintf("%d jobs: %d running, %d paused, %d done", len(b.rows), counts["running"], counts["paused"], counts["done"])
	fmt.Fprintln(b.w, strings.Repeat(" ", 2)+success2Style.Render(summary))
}
