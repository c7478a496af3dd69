package tween

import (
	"fmt"
	"math"
)

// State is the lifecycle state of a transition, sequence or timer.
type State int

const (
	Idle State = iota
	Running
	Completed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// A Transition interpolates From to To over Duration seconds, shaped by Curve.
//
// Concurrent transitions ignore the scheduler's busy guard and do not set it.
// Priority orders OnTick calls within a tick: higher priorities are applied
// later, so they win when several transitions write the same target.
type Transition struct {
	ID         string
	From       []float64
	To         []float64
	Duration   float64
	Curve      Curve
	Concurrent bool
	Priority   int

	OnBegin    func()
	OnTick     func(values []float64)
	OnComplete func()
	OnCancel   func()
}

// Scalar is a convenience for single-channel transitions.
func Scalar(id string, from, to, duration float64, curve Curve) Transition {
	return Transition{
		ID:       id,
		From:     []float64{from},
		To:       []float64{to},
		Duration: duration,
		Curve:    curve,
	}
}

func (t *Transition) validate() error {
	if !(t.Duration > 0) || math.IsInf(t.Duration, 1) {
		return fmt.Errorf("%w: transition %q duration %v", ErrInvalidParameter, t.ID, t.Duration)
	}
	if t.Curve == nil {
		return fmt.Errorf("%w: transition %q has no curve", ErrInvalidParameter, t.ID)
	}
	if len(t.From) == 0 || len(t.From) != len(t.To) {
		return fmt.Errorf("%w: transition %q from/to lengths %d/%d",
			ErrInvalidParameter, t.ID, len(t.From), len(t.To))
	}
	return nil
}

// ValueAt returns the interpolated value at normalised time p.
func (t *Transition) ValueAt(p float64) []float64 {
	return t.valueInto(make([]float64, len(t.From)), p)
}

func (t *Transition) valueInto(out []float64, p float64) []float64 {
	if p <= 0 {
		return append(out[:0], t.From...)
	}
	if p >= 1 {
		return append(out[:0], t.To...)
	}
	c := t.Curve(p)
	out = out[:len(t.From)]
	for i := range t.From {
		out[i] = t.From[i] + (t.To[i]-t.From[i])*c
	}
	return out
}

// A Step is one element of a Sequence. Exactly one of Transition, Action or
// Wait is used; Transition takes precedence over Action, Action over Wait.
type Step struct {
	Transition *Transition
	Action     func()
	Wait       float64
}

// TransitionStep wraps a transition as a sequence step.
func TransitionStep(t Transition) Step {
	return Step{Transition: &t}
}

// ActionStep wraps a side-effecting function as a sequence step.
func ActionStep(fn func()) Step {
	return Step{Action: fn}
}

// WaitStep pauses a sequence for the given number of seconds.
func WaitStep(seconds float64) Step {
	return Step{Wait: seconds}
}

func (s *Step) validate(seq string, i int) error {
	switch {
	case s.Transition != nil:
		if err := s.Transition.validate(); err != nil {
			return fmt.Errorf("sequence %q step %d: %w", seq, i, err)
		}
	case s.Action != nil:
	default:
		if !(s.Wait > 0) || math.IsInf(s.Wait, 1) {
			return fmt.Errorf("%w: sequence %q step %d wait %v", ErrInvalidParameter, seq, i, s.Wait)
		}
	}
	return nil
}

// A Sequence runs its steps strictly in order, each step's completion
// gating the next.
type Sequence struct {
	ID         string
	Steps      []Step
	Concurrent bool

	OnComplete func()
	OnCancel   func()
}

func (s *Sequence) validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("%w: sequence %q has no steps", ErrInvalidParameter, s.ID)
	}
	for i := range s.Steps {
		if err := s.Steps[i].validate(s.ID, i); err != nil {
			return err
		}
	}
	return nil
}

// EventKind identifies a lifecycle notification.
type EventKind int

const (
	EventBegin EventKind = iota
	EventComplete
	EventCancel
)

func (k EventKind) String() string {
	switch k {
	case EventBegin:
		return "begin"
	case EventComplete:
		return "complete"
	case EventCancel:
		return "cancel"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is delivered synchronously to an EventSink.
type Event struct {
	Kind EventKind
	ID   string
}

// An EventSink receives lifecycle notifications as they happen.
type EventSink interface {
	OnEvent(Event)
}

// EventFunc adapts a function to an EventSink.
type EventFunc func(Event)

// OnEvent calls f(e).
func (f EventFunc) OnEvent(e Event) {
	f(e)
}
