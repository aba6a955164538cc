package parser

import (
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemoSize bounds the number of status logs a Memo remembers.
const DefaultMemoSize = 256

// Memo caches snapshots by status-log path and reparses whenever the file's
// size or modification time changes. It belongs to its caller; nothing in
// the job controller keeps one.
type Memo struct {
	parser  *Parser
	entries *lru.Cache[string, memoEntry]
}

type memoEntry struct {
	size    int64
	modTime time.Time
	snap    Snapshot
}

// NewMemo returns a memo over p (the wget parser when nil) holding at most
// size logs.
func NewMemo(p *Parser, size int) *Memo {
	if p == nil {
		p = defaultParser
	}
	if size <= 0 {
		size = DefaultMemoSize
	}
	// Only a non-positive size makes lru.New fail.
	entries, _ := lru.New[string, memoEntry](size)
	return &Memo{parser: p, entries: entries}
}

// Snapshot returns the snapshot for the log at path, parsing only when the
// file changed since the last call.
func (m *Memo) Snapshot(path string) (Snapshot, error) {
	info, err := os.Stat(path)
	if err != nil {
		m.Forget(path)
		return Empty(), err
	}
	if entry, ok := m.entries.Get(path); ok && entry.size == info.Size() && entry.modTime.Equal(info.ModTime()) {
		return entry.snap, nil
	}

	snap, err := m.parser.ParseFile(path)
	if err != nil {
		m.Forget(path)
		return snap, err
	}
	m.entries.Add(path, memoEntry{size: info.Size(), modTime: info.ModTime(), snap: snap})
	return snap, nil
}

func (m *Memo) Forget(path string) {
	m.entries.Remove(path)
}

func (m *Memo) Len() int {
	return m.entries.Len()
}
