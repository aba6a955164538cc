// Package parser folds a wget status log into a Snapshot. The log is read to
// EOF in one pass and every line is tested against an ordered recognizer
// table; the first recognizer that matches a line owns it.
package parser

const (
	Unknown        = "unknown"
	NoETA          = "n/a"
	PercentUnknown = -1
)

// Snapshot is the progress state derived from one status log. It is never
// persisted.
type Snapshot struct {
	Done         bool   `json:"done"`
	URL          string `json:"url"`
	SaveFile     string `json:"save_file"`
	SizeBytes    string `json:"size_bytes"`
	Percent      int    `json:"percent"`
	FetchedBytes string `json:"fetched_bytes"`
	Speed        string `json:"speed"`
	ETA          string `json:"eta"`
	StatusCode   int    `json:"status_code,omitempty"`
}

// Empty returns the snapshot of an empty or absent log.
func Empty() Snapshot {
	return Snapshot{
		SizeBytes:    Unknown,
		Percent:      PercentUnknown,
		FetchedBytes: Unknown,
		Speed:        Unknown,
		ETA:          NoETA,
	}
}

func (s Snapshot) HasPercent() bool {
	return s.Percent >= 0
}
