package search

import (
	"time"

	"github.com/google/uuid"

	"plate-resolver/internal/domain/plate"
	"plate-resolver/internal/oracle"
	"plate-resolver/internal/variation"
)

type State int

const (
	StateInit State = iota
	StateSeedSearch
	StateFallback
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateSeedSearch:
		return "seed_search"
	case StateFallback:
		return "fallback"
	default:
		return "done"
	}
}

// Lookup is one verification call made by a session.
type Lookup struct {
	Plate    string
	Phase    plate.Phase
	Outcome  oracle.Outcome
	Attempts int
}

// Session is the state of one file's search. It is local to the worker running it.
type Session struct {
	ID    uuid.UUID
	State State
	Seed  string
	// Variations is generated once and never modified.
	Variations []variation.Variation
	Fallback   []string
	// Attempt counts lookups made so far across both phases.
	Attempt int
	Phase   plate.Phase
	Lookups []Lookup

	Success bool
	// Plate is the matched plate on success, the raw seed on failure.
	Plate   string
	Record  *plate.VehicleRecord
	Payload []byte
	Err     error
	Elapsed time.Duration

	started time.Time
}
