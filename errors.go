package locate

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidField is returned for a blank field name.
	ErrInvalidField = errors.New("locate: field name is blank")
	// ErrNotFound is wrapped by every *NotFoundError.
	ErrNotFound = errors.New("locate: no candidate resolved")
	// ErrStale is wrapped by backends when an element handle no longer
	// refers to a node in the live document.
	ErrStale = errors.New("locate: stale element reference")
	// ErrTimeout is wrapped by backends when a presence wait expires.
	ErrTimeout = errors.New("locate: timed out waiting for presence")
)

// Phase is a state of a single resolution.
type Phase string

// Resolution phases.
const (
	PhaseIdle     Phase = "idle"
	PhaseWait     Phase = "phase1-wait"
	PhaseScan     Phase = "phase2-scan"
	PhaseResolved Phase = "resolved"
	PhaseFailed   Phase = "failed"
)

// Attempt records one probe made during resolution. Index is the element's
// position in a Phase 2 result set, or -1 for Phase 1.
type Attempt struct {
	Candidate Candidate
	Phase     Phase
	Index     int
	Reason    string
	Err       error
}

func (a Attempt) String() string {
	s := fmt.Sprintf("%s %s", a.Phase, a.Candidate)
	if a.Index >= 0 {
		s += fmt.Sprintf(" [%d]", a.Index)
	}
	s += ": " + a.Reason
	if a.Err != nil {
		s += ": " + a.Err.Error()
	}
	return s
}

// NotFoundError is returned when every candidate was exhausted.
type NotFoundError struct {
	Field      string
	Candidates []Candidate
	Attempts   []Attempt
}

func (e *NotFoundError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "locate: no element for field %q; tried %d candidates:", e.Field, len(e.Candidates))
	for _, c := range e.Candidates {
		b.WriteString("\n  ")
		b.WriteString(c.String())
	}
	return b.String()
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Attempted returns the string form of every candidate, in order.
func (e *NotFoundError) Attempted() []string {
	out := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		out[i] = c.String()
	}
	return out
}
