package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

type Parser struct {
	recognizers []Recognizer
}

// New returns a parser over the given recognizers, or the wget table when
// none are given.
func New(recognizers ...Recognizer) *Parser {
	if len(recognizers) == 0 {
		recognizers = DefaultRecognizers
	}
	return &Parser{recognizers: recognizers}
}

var defaultParser = New()

// Parse folds r with the wget recognizers.
func Parse(r io.Reader) Snapshot {
	return defaultParser.Parse(r)
}

// ParseFile parses the log at path. A missing file yields the empty snapshot
// and os.ErrNotExist.
func ParseFile(path string) (Snapshot, error) {
	return defaultParser.ParseFile(path)
}

// Parse reads r to EOF and never fails: a read error ends the scan with what
// was folded so far, and a trailing line without newline is parsed as is.
func (p *Parser) Parse(r io.Reader) Snapshot {
	snap := Empty()
	br := bufio.NewReader(r)
	first := true
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			line = strings.TrimRight(line, "\r\n")
			if strings.TrimSpace(line) != "" {
				p.apply(&snap, line, first)
				first = false
			}
		}
		if err != nil {
			break
		}
	}
	return snap
}

func (p *Parser) ParseFile(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Empty(), err
		}
		return Empty(), fmt.Errorf("open status log: %w", err)
	}
	defer f.Close()
	return p.Parse(f), nil
}

func (p *Parser) apply(snap *Snapshot, line string, first bool) {
	// Progress lines written with \r updates keep only the latest segment.
	if i := strings.LastIndexByte(line, '\r'); i >= 0 {
		line = line[i+1:]
	}
	for _, rec := range p.recognizers {
		if rec.FirstLineOnly && !first {
			continue
		}
		if m := rec.Pattern.FindStringSubmatch(line); m != nil {
			done := snap.Done
			rec.Apply(snap, m)
			snap.Done = snap.Done || done
			return
		}
	}
}
