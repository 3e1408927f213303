package runner

import (
	"log/slog"
	"time"
)

// State is a step lifecycle state.
type State int

const (
	StatePending State = iota
	StateSetup
	StateSending
	StateReceived
	StateTeardown
	StateValidate
	StatePassed
	StateFailed
	StateErrored
	StateSkipped
)

var stateNames = [...]string{
	StatePending:  "PENDING",
	StateSetup:    "SETUP",
	StateSending:  "SENDING",
	StateReceived: "RECEIVED",
	StateTeardown: "TEARDOWN",
	StateValidate: "VALIDATE",
	StatePassed:   "PASSED",
	StateFailed:   "FAILED",
	StateErrored:  "ERRORED",
	StateSkipped:  "SKIPPED",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "UNKNOWN"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether s ends a step.
func (s State) Terminal() bool {
	return s >= StatePassed
}

// Status maps a terminal state to its result status.
func (s State) Status() Status {
	switch s {
	case StatePassed:
		return StatusPassed
	case StateFailed:
		return StatusFailed
	case StateSkipped:
		return StatusSkipped
	default:
		return StatusErrored
	}
}

// Transition is one entry of a step trace.
type Transition struct {
	State State     `json:"state"`
	At    time.Time `json:"at"`
}

func (r *StepResult) transition(logger *slog.Logger, s State) {
	r.State = s
	r.Trace = append(r.Trace, Transition{State: s, At: time.Now()})
	logger.Debug("step transition", "state", s.String())
}
