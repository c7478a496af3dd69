package tween

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"
)

// completeEpsilon absorbs float drift when elapsed time is accumulated from
// many small deltas.
const completeEpsilon = 1e-9

// A Ticker is advanced once per scheduling cycle with the elapsed seconds
// since the previous cycle.
type Ticker interface {
	Tick(dt float64)
}

// A TickSource drives registered tickers, typically from a frame loop.
type TickSource interface {
	AddTicker(t Ticker)
	RemoveTicker(t Ticker)
}

type kind int

const (
	kindTransition kind = iota
	kindWait
	kindSequence
)

// Handle identifies a transition, sequence or timer started on a Scheduler.
type Handle struct {
	sched *Scheduler
	id    string
	seq   uint64
	kind  kind
	state State

	tr       Transition
	wait     float64
	onDone   func()
	onCancel func()

	begun    bool
	elapsed  float64
	progress float64
	value    []float64

	parent *Handle
	child  *Handle
	steps  []Step
	next   int
}

// ID returns the caller-supplied identifier.
func (h *Handle) ID() string { return h.id }

// State returns the current lifecycle state.
func (h *Handle) State() State {
	if h == nil {
		return Idle
	}
	return h.state
}

// Elapsed returns the seconds accumulated while running.
func (h *Handle) Elapsed() float64 { return h.elapsed }

// Progress returns the normalised time of a transition or timer, in [0,1].
func (h *Handle) Progress() float64 { return h.progress }

// Value returns a copy of the most recently computed transition value.
func (h *Handle) Value() []float64 {
	return append([]float64(nil), h.value...)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the diagnostics logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// WithEventSink sets the receiver of begin, complete and cancel events.
func WithEventSink(e EventSink) Option {
	return func(s *Scheduler) { s.events = e }
}

// Scheduler advances transitions, sequences and timers on every tick.
//
// A Scheduler is not safe for concurrent use: all calls, including Tick,
// must come from the goroutine driving the tick source. Callbacks run
// synchronously on that goroutine and may start or cancel work.
type Scheduler struct {
	log    zerolog.Logger
	events EventSink
	source TickSource

	entries   []*Handle
	pending   []*Handle
	sequences []*Handle
	guard     *Handle
	nextSeq   uint64
	closed    bool
}

// New creates an idle Scheduler.
func New(opts ...Option) *Scheduler {
	s := new(Scheduler)
	s.log = zerolog.Nop()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register subscribes the scheduler to a tick source, replacing any
// previous registration.
func (s *Scheduler) Register(src TickSource) {
	if s.source != nil {
		s.source.RemoveTicker(s)
	}
	s.source = src
	if src != nil {
		src.AddTicker(s)
	}
}

// Unregister detaches the scheduler from its tick source.
func (s *Scheduler) Unregister() {
	if s.source != nil {
		s.source.RemoveTicker(s)
		s.source = nil
	}
}

// Busy reports whether a guarded transition or sequence is running.
func (s *Scheduler) Busy() bool { return s.guard != nil }

// Elapsed returns the elapsed seconds of the guarded activity, or 0 when idle.
func (s *Scheduler) Elapsed() float64 {
	if s.guard == nil {
		return 0
	}
	return s.guard.elapsed
}

// Active returns the ID of the guarded activity and whether there is one.
func (s *Scheduler) Active() (string, bool) {
	if s.guard == nil {
		return "", false
	}
	return s.guard.id, true
}

// Len returns the number of running entries, sequences included.
func (s *Scheduler) Len() int {
	n := 0
	for _, h := range s.entries {
		if h.state == Running && h.parent == nil {
			n++
		}
	}
	for _, h := range s.pending {
		if h.state == Running && h.parent == nil {
			n++
		}
	}
	for _, h := range s.sequences {
		if h.state == Running {
			n++
		}
	}
	return n
}

func (s *Scheduler) newHandle(id string, k kind) *Handle {
	s.nextSeq++
	return &Handle{sched: s, id: id, seq: s.nextSeq, kind: k, state: Running}
}

func (s *Scheduler) checkStart(id string, concurrent bool) error {
	if s.closed {
		return ErrShutdown
	}
	if !concurrent && s.guard != nil {
		s.log.Debug().Str("id", id).Str("active", s.guard.id).Msg("start rejected while busy")
		return fmt.Errorf("start %q: %w (active %q)", id, ErrAlreadyRunning, s.guard.id)
	}
	return nil
}

// Start registers a transition to begin on the next tick.
func (s *Scheduler) Start(tr Transition) (*Handle, error) {
	if err := tr.validate(); err != nil {
		return nil, err
	}
	if err := s.checkStart(tr.ID, tr.Concurrent); err != nil {
		return nil, err
	}

	h := s.startTransition(tr, nil)
	if !tr.Concurrent {
		s.guard = h
	}
	return h, nil
}

func (s *Scheduler) startTransition(tr Transition, parent *Handle) *Handle {
	h := s.newHandle(tr.ID, kindTransition)
	tr.From = append([]float64(nil), tr.From...)
	tr.To = append([]float64(nil), tr.To...)
	h.tr = tr
	h.onDone = tr.OnComplete
	h.onCancel = tr.OnCancel
	h.value = append(make([]float64, 0, len(tr.From)), tr.From...)
	h.parent = parent
	s.pending = append(s.pending, h)
	return h
}

func (s *Scheduler) startWait(id string, seconds float64, fn func(), parent *Handle) *Handle {
	h := s.newHandle(id, kindWait)
	h.wait = seconds
	h.onDone = fn
	h.parent = parent
	s.pending = append(s.pending, h)
	return h
}

// After runs fn once the given number of seconds has accumulated across
// ticks. Timers are never blocked by, and never set, the busy guard.
func (s *Scheduler) After(id string, seconds float64, fn func()) (*Handle, error) {
	if !(seconds > 0) || math.IsInf(seconds, 1) {
		return nil, fmt.Errorf("%w: timer %q delay %v", ErrInvalidParameter, id, seconds)
	}
	if err := s.checkStart(id, true); err != nil {
		return nil, err
	}
	return s.startWait(id, seconds, fn, nil), nil
}

// Cancel stops a running handle without firing its completion callback.
// Cancelling a handle that is not running reports ErrNotFound and has no
// other effect.
func (s *Scheduler) Cancel(h *Handle) error {
	if h == nil || h.sched != s || h.state != Running {
		id := ""
		if h != nil {
			id = h.id
		}
		s.log.Debug().Str("id", id).Msg("cancel of inactive handle")
		return fmt.Errorf("cancel %q: %w", id, ErrNotFound)
	}
	s.cancel(h)
	return nil
}

func (s *Scheduler) cancel(h *Handle) {
	h.state = Cancelled
	if s.guard == h {
		s.guard = nil
	}
	if c := h.child; c != nil {
		h.child = nil
		if c.state == Running {
			s.cancel(c)
		}
	}
	s.emit(EventCancel, h.id)
	if h.onCancel != nil {
		h.onCancel()
	}
}

// Tick advances everything by dt seconds. Invalid deltas are logged and
// ignored; use Advance to observe the error.
func (s *Scheduler) Tick(dt float64) {
	if err := s.Advance(dt); err != nil {
		s.log.Warn().Err(err).Float64("dt", dt).Msg("tick skipped")
	}
}

// Advance moves every running entry forward by dt seconds. Values are
// computed for all entries first, then applied in ascending priority order,
// then completions fire. Entries started during Advance wait for the next
// call.
func (s *Scheduler) Advance(dt float64) error {
	if s.closed {
		return ErrShutdown
	}
	if dt < 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return fmt.Errorf("%w: tick delta %v", ErrInvalidParameter, dt)
	}

	s.entries = append(s.entries, s.pending...)
	s.pending = s.pending[:0]
	if dt == 0 {
		return nil
	}

	live := s.entries
	for _, h := range live {
		if h.state != Running {
			continue
		}
		if !h.begun {
			h.begun = true
			if h.kind == kindTransition {
				s.emit(EventBegin, h.id)
				if h.tr.OnBegin != nil {
					h.tr.OnBegin()
				}
				if h.state != Running {
					continue
				}
			}
		}
		s.step(h, dt)
	}

	apply := make([]*Handle, 0, len(live))
	for _, h := range live {
		if h.state == Running && h.kind == kindTransition && h.tr.OnTick != nil {
			apply = append(apply, h)
		}
	}
	sort.SliceStable(apply, func(i, j int) bool {
		if apply[i].tr.Priority != apply[j].tr.Priority {
			return apply[i].tr.Priority < apply[j].tr.Priority
		}
		return apply[i].seq < apply[j].seq
	})
	for _, h := range apply {
		if h.state == Running {
			h.tr.OnTick(h.value)
		}
	}

	for _, h := range live {
		if h.state == Running && h.progress >= 1 {
			s.finish(h)
		}
	}

	s.compact()
	return nil
}

func (s *Scheduler) step(h *Handle, dt float64) {
	h.elapsed += dt
	for p := h.parent; p != nil; p = p.parent {
		p.elapsed += dt
	}

	total := h.wait
	if h.kind == kindTransition {
		total = h.tr.Duration
	}
	p := h.elapsed / total
	if p >= 1-completeEpsilon {
		p = 1
	}
	h.progress = p
	if h.kind == kindTransition {
		h.value = h.tr.valueInto(h.value, p)
	}
}

func (s *Scheduler) finish(h *Handle) {
	h.state = Completed
	if s.guard == h {
		s.guard = nil
	}
	if h.kind == kindTransition || h.kind == kindSequence {
		s.emit(EventComplete, h.id)
	}
	if h.onDone != nil {
		h.onDone()
	}
	if p := h.parent; p != nil && p.child == h {
		p.child = nil
		s.advanceSequence(p)
	}
}

func (s *Scheduler) compact() {
	n := 0
	for _, h := range s.entries {
		if h.state == Running {
			s.entries[n] = h
			n++
		}
	}
	for i := n; i < len(s.entries); i++ {
		s.entries[i] = nil
	}
	s.entries = s.entries[:n]

	n = 0
	for _, h := range s.sequences {
		if h.state == Running {
			s.sequences[n] = h
			n++
		}
	}
	for i := n; i < len(s.sequences); i++ {
		s.sequences[i] = nil
	}
	s.sequences = s.sequences[:n]
}

func (s *Scheduler) emit(k EventKind, id string) {
	if s.events != nil {
		s.events.OnEvent(Event{Kind: k, ID: id})
	}
}

// Shutdown cancels every running entry, detaches from the tick source and
// rejects further work. Calling it again is a no-op.
func (s *Scheduler) Shutdown() {
	if s.closed {
		return
	}

	for _, h := range append([]*Handle(nil), s.sequences...) {
		if h.state == Running {
			s.cancel(h)
		}
	}
	for _, list := range [][]*Handle{s.entries, s.pending} {
		for _, h := range append([]*Handle(nil), list...) {
			if h.state == Running {
				s.cancel(h)
			}
		}
	}

	s.closed = true
	s.entries = nil
	s.pending = nil
	s.sequences = nil
	s.guard = nil
	s.Unregister()
	s.log.Debug().Msg("scheduler shut down")
}
