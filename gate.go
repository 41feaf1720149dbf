package locate

import (
	"errors"
	"fmt"
)

// Outcome is the tri-state result of a gate probe.
type Outcome int

// Gate outcomes. Indeterminate means the probe itself failed; resolution
// treats it as a failure and records the cause.
const (
	Fail Outcome = iota
	Pass
	Indeterminate
)

func (o Outcome) String() string {
	switch o {
	case Fail:
		return "fail"
	case Pass:
		return "pass"
	case Indeterminate:
		return "indeterminate"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Verdict is what a gate decided about one element.
type Verdict struct {
	Gate    string
	Outcome Outcome
	Err     error
}

// Passed reports whether the element cleared the gate.
func (v Verdict) Passed() bool { return v.Outcome == Pass }

// Stale reports whether the probe failed because the element left the
// document.
func (v Verdict) Stale() bool {
	return v.Outcome == Indeterminate && errors.Is(v.Err, ErrStale)
}

func (v Verdict) String() string {
	if v.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", v.Gate, v.Outcome, v.Err)
	}
	return v.Gate + ": " + v.Outcome.String()
}

var errNilElement = errors.New("nil element")

func probe(gate string, el Element, fn func(Element) (bool, error)) Verdict {
	if el == nil {
		return Verdict{Gate: gate, Outcome: Indeterminate, Err: errNilElement}
	}
	ok, err := fn(el)
	switch {
	case err != nil:
		return Verdict{Gate: gate, Outcome: Indeterminate, Err: err}
	case ok:
		return Verdict{Gate: gate, Outcome: Pass}
	}
	return Verdict{Gate: gate, Outcome: Fail}
}

// Visible asks the backend whether el is rendered.
func Visible(el Element) Verdict {
	return probe("visible", el, Element.IsDisplayed)
}

// Interactable asks the backend whether el accepts input.
func Interactable(el Element) Verdict {
	return probe("interactable", el, Element.IsEnabled)
}

// Accept runs Visible then Interactable and returns the first verdict that
// does not pass, or the passing Interactable verdict.
func Accept(el Element) Verdict {
	if v := Visible(el); !v.Passed() {
		return v
	}
	return Interactable(el)
}
