package batch

import "time"

// State represents the lifecycle of a batch item.
type State string

const (
	StatePending State = "pending"
	StateActive  State = "active"
	StateDone    State = "done"
	StateError   State = "error"
)

// Terminal reports whether no further transitions are permitted.
func (s State) Terminal() bool {
	return s == StateDone || s == StateError
}

// Outcome captures the result of a successful transformation. Skipped means
// the optimizer ran but could not improve on the original; such items count
// as done but are excluded from final delivery.
type Outcome struct {
	OriginalSize int64
	NewSize      int64
	SavedBytes   int64
	OutputPath   string
	Skipped      bool
	Duration     time.Duration
}

// Item is one input file submitted in a single drop event. The tracker is the
// sole mutator of State, Outcome, and Failure.
type Item struct {
	ID         string
	SourcePath string
	State      State
	Outcome    *Outcome
	Failure    string
}
