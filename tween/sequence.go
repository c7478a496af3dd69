package tween

import "fmt"

// RunSequence starts an ordered composition of transitions, actions and
// waits. Leading actions run before RunSequence returns; each timed step
// begins on the tick after its predecessor finishes.
//
// Unless seq.Concurrent is set, the sequence holds the busy guard from
// start until its last step finishes.
func (s *Scheduler) RunSequence(seq Sequence) (*Handle, error) {
	if err := seq.validate(); err != nil {
		return nil, err
	}
	if err := s.checkStart(seq.ID, seq.Concurrent); err != nil {
		return nil, err
	}

	h := s.newHandle(seq.ID, kindSequence)
	h.steps = append([]Step(nil), seq.Steps...)
	h.onDone = seq.OnComplete
	h.onCancel = seq.OnCancel
	if !seq.Concurrent {
		s.guard = h
	}
	s.sequences = append(s.sequences, h)
	s.emit(EventBegin, h.id)

	s.advanceSequence(h)
	return h, nil
}

func (s *Scheduler) advanceSequence(h *Handle) {
	for h.state == Running && h.next < len(h.steps) {
		i := h.next
		st := h.steps[i]
		h.next++

		switch {
		case st.Transition != nil:
			tr := *st.Transition
			tr.Concurrent = true
			h.child = s.startTransition(tr, h)
			return
		case st.Action != nil:
			st.Action()
		default:
			h.child = s.startWait(fmt.Sprintf("%s/wait-%d", h.id, i), st.Wait, nil, h)
			return
		}
	}

	if h.state == Running {
		s.finish(h)
	}
}
