package tween

import (
	"errors"
	"testing"
)

func TestSequenceOrdering(t *testing.T) {
	s := New()

	var log []string
	a := Scalar("a", 0, 1, 0.5, Linear)
	a.OnTick = func(v []float64) { log = append(log, "a-tick") }
	a.OnComplete = func() { log = append(log, "a-done") }

	b := Scalar("b", 1, 0, 0.5, Linear)
	b.OnBegin = func() { log = append(log, "b-begin") }
	b.OnTick = func(v []float64) { log = append(log, "b-tick") }

	actions := 0
	done := 0
	h, err := s.RunSequence(Sequence{
		ID: "swap",
		Steps: []Step{
			TransitionStep(a),
			ActionStep(func() { actions++; log = append(log, "f") }),
			TransitionStep(b),
		},
		OnComplete: func() { done++ },
	})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 6; i++ {
		s.Tick(0.25)
	}

	want := []string{"a-tick", "a-tick", "a-done", "f", "b-begin", "b-tick", "b-tick"}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("log = %v, want %v", log, want)
		}
	}
	if actions != 1 || done != 1 {
		t.Errorf("actions=%d done=%d", actions, done)
	}
	if h.State() != Completed || s.Busy() {
		t.Errorf("state=%v busy=%v", h.State(), s.Busy())
	}
}

func TestSequenceHoldsGuard(t *testing.T) {
	s := New()
	_, err := s.RunSequence(Sequence{
		ID: "seq",
		Steps: []Step{
			TransitionStep(Scalar("in", 0, 1, 0.5, Linear)),
			WaitStep(0.5),
			TransitionStep(Scalar("out", 1, 0, 0.5, Linear)),
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if _, err := s.Start(Scalar("x", 0, 1, 1, Linear)); !errors.Is(err, ErrAlreadyRunning) {
			t.Fatalf("tick %d: start err = %v", i, err)
		}
		if _, err := s.RunSequence(Sequence{ID: "y", Steps: []Step{WaitStep(1)}}); !errors.Is(err, ErrAlreadyRunning) {
			t.Fatalf("tick %d: sequence err = %v", i, err)
		}
		s.Tick(0.5)
	}
	if s.Busy() {
		t.Error("still busy after the last step")
	}
}

func TestSequenceElapsedAcrossSteps(t *testing.T) {
	s := New()
	s.RunSequence(Sequence{
		ID:    "seq",
		Steps: []Step{WaitStep(0.5), TransitionStep(Scalar("b", 0, 1, 1, Linear))},
	})
	s.Tick(0.5)
	s.Tick(0.25)
	if got := s.Elapsed(); !approx(got, 0.75) {
		t.Errorf("elapsed = %v, want 0.75", got)
	}
}

func TestSequenceCancelHaltsRemainingSteps(t *testing.T) {
	s := New()

	bStarted, actionRan, aCancelled, seqCancelled := false, false, false, 0
	a := Scalar("a", 0, 1, 1, Linear)
	a.OnCancel = func() { aCancelled = true }
	b := Scalar("b", 0, 1, 1, Linear)
	b.OnBegin = func() { bStarted = true }

	h, _ := s.RunSequence(Sequence{
		ID:       "seq",
		Steps:    []Step{TransitionStep(a), ActionStep(func() { actionRan = true }), TransitionStep(b)},
		OnCancel: func() { seqCancelled++ },
	})
	s.Tick(0.5)

	if err := s.Cancel(h); err != nil {
		t.Fatal(err)
	}
	if err := s.Cancel(h); !errors.Is(err, ErrNotFound) {
		t.Errorf("second cancel: %v", err)
	}
	for i := 0; i < 8; i++ {
		s.Tick(0.5)
	}

	if !aCancelled || seqCancelled != 1 {
		t.Errorf("aCancelled=%v seqCancelled=%d", aCancelled, seqCancelled)
	}
	if actionRan || bStarted {
		t.Error("steps after the cancelled one still ran")
	}
	if s.Busy() || s.Len() != 0 {
		t.Errorf("busy=%v len=%d", s.Busy(), s.Len())
	}
}

func TestSequenceActionCanCancel(t *testing.T) {
	s := New()
	var h *Handle
	later := false
	h, _ = s.RunSequence(Sequence{
		ID: "seq",
		Steps: []Step{
			WaitStep(0.1),
			ActionStep(func() { s.Cancel(h) }),
			ActionStep(func() { later = true }),
		},
	})
	s.Tick(0.1)
	if later || h.State() != Cancelled {
		t.Errorf("later=%v state=%v", later, h.State())
	}
}

func TestActionOnlySequenceCompletesImmediately(t *testing.T) {
	s := New()
	n := 0
	h, err := s.RunSequence(Sequence{
		ID:    "now",
		Steps: []Step{ActionStep(func() { n++ }), ActionStep(func() { n++ })},
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 || h.State() != Completed || s.Busy() {
		t.Errorf("n=%d state=%v busy=%v", n, h.State(), s.Busy())
	}
}

func TestSequenceValidation(t *testing.T) {
	s := New()
	bad := []Sequence{
		{ID: "empty"},
		{ID: "wait", Steps: []Step{WaitStep(0)}},
		{ID: "transition", Steps: []Step{TransitionStep(Scalar("t", 0, 1, 0, Linear))}},
	}
	for _, seq := range bad {
		if _, err := s.RunSequence(seq); !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("%s: err = %v", seq.ID, err)
		}
	}
}

func TestConcurrentSequences(t *testing.T) {
	s := New()
	var left, right float64
	for _, eye := range []struct {
		id  string
		out *float64
	}{{"left", &left}, {"right", &right}} {
		out := eye.out
		tr := Scalar(eye.id, 0, 1, 0.5, Linear)
		tr.OnTick = func(v []float64) { *out = v[0] }
		if _, err := s.RunSequence(Sequence{ID: eye.id, Concurrent: true, Steps: []Step{TransitionStep(tr)}}); err != nil {
			t.Fatal(err)
		}
	}
	if s.Busy() {
		t.Error("concurrent sequences set busy")
	}
	s.Tick(0.5)
	if left != 1 || right != 1 {
		t.Errorf("left=%v right=%v", left, right)
	}
}
