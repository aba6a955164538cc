package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// Recognizer maps one line shape onto snapshot fields. Apply receives the
// submatches of Pattern.
type Recognizer struct {
	Name          string
	Pattern       *regexp.Regexp
	FirstLineOnly bool
	Apply         func(s *Snapshot, m []string)
}

// wget leaves the unit blank below 1K/s ("950  52s").
const (
	rateToken = `\d+(?:[.,]\d+)?(?:\s?(?:[KMGT]i?B?|B)(?:/s)?)?`
	etaToken  = `\d+[dhms](?:\d+[dhms])*`
)

var (
	reHeader = regexp.MustCompile(`^(?:--.*?--\s+)?([a-zA-Z][\w+.-]*://\S+)`)
	reSize   = regexp.MustCompile(`^\S+: ([0-9,\s]+)\(`)
	reSaving = regexp.MustCompile(`^\s*Saving to:\s*[‘` + "`" + `'"](.+?)[’'"]\s*$`)
	reArrow  = regexp.MustCompile(`^\s*=>\s*[‘` + "`" + `'"](.+?)[’'"]\s*$`)
	// 1500K .......... .......... 45%  1.2M 3m2s
	reDots = regexp.MustCompile(`^\s*(\d+[KMGT]?)\s+[.\s]*?(?:(\d{1,3})%\s+)?(` + rateToken + `)\s+(` + etaToken + `)\s*$`)
	// [1500K] 45% ... 1.2M/s ... 10s
	reProgress = regexp.MustCompile(`(?:(\d+[KMGT]?)\s+)?(\d{1,3})%[\s.]+(` + rateToken + `)[\s.]+(` + etaToken + `)\s*$`)
	// 1850K .......... ...  100% 3.45M=0.9s
	reDotsLast = regexp.MustCompile(`^\s*(\d+[KMGT]?)\s+[.\s]*?(\d{1,3})%\s+(` + rateToken + `)\s?=(\S+)\s*$`)
	reSaved    = regexp.MustCompile(`\(([^()]*\d[^()]*)\)\s*-\s*.*\bsaved\s*\[(\d+)(?:/(\d+))?\]`)
	reBanner   = regexp.MustCompile(`^\s*(?:FINISHED\s+)?--\s*(?:\d{4}-\d{2}-\d{2}\s+)?\d{2}:\d{2}:\d{2}\s*--\s*$`)
	reStatus   = regexp.MustCompile(`response\.\.\.\s*(\d{3})\b`)
)

// DefaultRecognizers is the wget table in priority order. New agent formats
// are added here.
var DefaultRecognizers = []Recognizer{
	{Name: "header", Pattern: reHeader, FirstLineOnly: true, Apply: func(s *Snapshot, m []string) {
		s.URL = m[1]
	}},
	{Name: "size", Pattern: reSize, Apply: func(s *Snapshot, m []string) {
		if size := stripNumber(m[1]); size != "" {
			s.SizeBytes = size
		}
	}},
	{Name: "destination", Pattern: reSaving, Apply: applyDestination},
	{Name: "destination", Pattern: reArrow, Apply: applyDestination},
	{Name: "progress", Pattern: reDots, Apply: applyProgress},
	{Name: "progress", Pattern: reProgress, Apply: applyProgress},
	{Name: "progress", Pattern: reDotsLast, Apply: func(s *Snapshot, m []string) {
		applyProgress(s, []string{m[0], m[1], m[2], m[3], NoETA})
	}},
	{Name: "saved", Pattern: reSaved, Apply: func(s *Snapshot, m []string) {
		s.Percent = 100
		s.Speed = strings.TrimSpace(m[1])
		s.FetchedBytes = m[2]
		if m[3] != "" && s.SizeBytes == Unknown {
			s.SizeBytes = m[3]
		}
		s.ETA = NoETA
	}},
	{Name: "finished", Pattern: reBanner, Apply: func(s *Snapshot, _ []string) {
		s.Done = true
	}},
	{Name: "status", Pattern: reStatus, Apply: func(s *Snapshot, m []string) {
		if code, err := strconv.Atoi(m[1]); err == nil {
			s.StatusCode = code
		}
	}},
}

func applyDestination(s *Snapshot, m []string) {
	s.SaveFile = m[1]
}

// applyProgress expects fetched, percent, speed and eta submatches in that
// order. Either of the first two may be empty.
func applyProgress(s *Snapshot, m []string) {
	if m[1] != "" {
		s.FetchedBytes = m[1]
	}
	if m[2] != "" {
		if pct, err := strconv.Atoi(m[2]); err == nil && pct <= 100 && pct > s.Percent {
			s.Percent = pct
		}
	}
	s.Speed = m[3]
	s.ETA = m[4]
}

func stripNumber(v string) string {
	return strings.Map(func(r rune) rune {
		if r == ',' || r == ' ' || r == '\t' || r == '\u00a0' {
			return -1
		}
		return r
	}, v)
}
