package jobs

import "encoding"

// State is the lifecycle position of a job, derived on every query from its
// artifacts and the process table.
type State int

const (
	// StateUnknown is used for ids with no status log.
	StateUnknown State = iota
	StateRunning
	StatePaused
	StateDone
)

var stateNames = []string{
	"unknown",
	"running",
	"paused",
	"done",
}

func (s State) String() string {
	if int(s) < 0 || int(s) >= len(stateNames) {
		return stateNames[0]
	}
	return stateNames[s]
}

var _ encoding.TextMarshaler = State(0)

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
