// Package fade drives an opacity overlay between transparent (alpha 0) and
// opaque (alpha 1). Fading in covers the output, fading out reveals it.
package fade

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/matt-g-everett/ledfade/tween"
	"github.com/rs/zerolog"
)

// An AlphaSink applies the overlay opacity to its real target.
type AlphaSink interface {
	SetAlpha(alpha float64)
}

// An Interlock is disabled while the overlay fades in and re-enabled once it
// has faded out again.
type Interlock interface {
	SetEnabled(enabled bool)
}

// Events are fired synchronously on the tick goroutine.
type Events struct {
	OnFadeInBegin     func()
	OnFadeInComplete  func()
	OnFadeOutBegin    func()
	OnFadeOutComplete func()
}

// Controller runs at most one fade at a time. It is not safe for concurrent
// use; call it from the goroutine driving its tick source.
type Controller struct {
	cfg    Config
	curve  tween.Curve
	colour colorful.Color
	sched  *tween.Scheduler
	sink   AlphaSink
	locks  []Interlock
	events Events
	log    zerolog.Logger

	alpha     float64
	locked    bool
	switching bool
}

// NewController creates a Controller writing to sink.
func NewController(cfg Config, sink AlphaSink, log zerolog.Logger) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	curve, _ := tween.CurveByName(cfg.Curve)
	colour, _ := colorful.Hex(cfg.Color)

	c := new(Controller)
	c.cfg = cfg
	c.curve = curve
	c.colour = colour
	c.sink = sink
	c.log = log.With().Str("component", "fade").Logger()
	c.sched = tween.New(tween.WithLogger(c.log))
	return c, nil
}

// Register attaches the controller to a tick source.
func (c *Controller) Register(src tween.TickSource) {
	c.sched.Register(src)
}

// AddInterlock adds a component that is disabled during fades.
func (c *Controller) AddInterlock(l Interlock) {
	c.locks = append(c.locks, l)
}

// SetEvents replaces the fade event callbacks.
func (c *Controller) SetEvents(e Events) {
	c.events = e
}

// Color returns the overlay colour.
func (c *Controller) Color() colorful.Color {
	return c.colour
}

// Alpha returns the current overlay opacity.
func (c *Controller) Alpha() float64 {
	return c.alpha
}

// IsFading reports whether a fade or fade sequence is in progress.
func (c *Controller) IsFading() bool {
	return c.sched.Busy()
}

// Switching reports whether a FadeInAndSwitch is waiting for its fade out.
func (c *Controller) Switching() bool {
	return c.switching
}

// SetAlpha writes the opacity straight through to the sink.
func (c *Controller) SetAlpha(alpha float64) {
	c.alpha = alpha
	if c.sink != nil {
		c.sink.SetAlpha(alpha)
	}
}

// Start applies the initial overlay state.
func (c *Controller) Start() error {
	if c.cfg.FadeOutOnStart {
		c.SetAlpha(1)
		return c.FadeOut(-1)
	}
	c.SetAlpha(0)
	return nil
}

// FadeIn fades the overlay to opaque. A negative duration uses the
// configured default.
func (c *Controller) FadeIn(duration float64) error {
	return c.FadeTo(0, 1, duration)
}

// FadeOut fades the overlay to transparent. A negative duration uses the
// configured default.
func (c *Controller) FadeOut(duration float64) error {
	return c.FadeTo(1, 0, duration)
}

// FadeTo fades between two arbitrary opacities.
func (c *Controller) FadeTo(from, to, duration float64) error {
	_, err := c.sched.Start(c.transition(from, to, c.duration(duration)))
	if err != nil {
		c.log.Debug().Err(err).Float64("from", from).Float64("to", to).Msg("fade ignored")
	}
	return err
}

// FadeInOut covers the output, runs action, waits for the settle time and
// reveals the output again.
func (c *Controller) FadeInOut(action func(), in, out float64) error {
	steps := []tween.Step{tween.TransitionStep(c.transition(0, 1, c.duration(in)))}
	if action != nil {
		steps = append(steps, tween.ActionStep(action))
	}
	steps = append(steps,
		tween.WaitStep(c.cfg.Settle),
		tween.TransitionStep(c.transition(1, 0, c.duration(out))),
	)

	_, err := c.sched.RunSequence(tween.Sequence{ID: "fade-in-out", Steps: steps})
	if err != nil {
		c.log.Debug().Err(err).Msg("fade in-out ignored")
	}
	return err
}

// FadeInAndSwitch covers the output and then calls load. Further switches
// are rejected until the overlay has been faded out again.
func (c *Controller) FadeInAndSwitch(load func(), duration float64) error {
	if c.switching {
		return fmt.Errorf("fade: switch: %w", tween.ErrAlreadyRunning)
	}

	steps := []tween.Step{tween.TransitionStep(c.transition(0, 1, c.duration(duration)))}
	if load != nil {
		steps = append(steps, tween.ActionStep(load))
	}
	_, err := c.sched.RunSequence(tween.Sequence{
		ID:       "fade-in-switch",
		Steps:    steps,
		OnCancel: func() { c.switching = false },
	})
	if err != nil {
		return err
	}
	c.switching = true
	return nil
}

// Shutdown cancels any fade in progress and detaches from the tick source.
func (c *Controller) Shutdown() {
	c.sched.Shutdown()
}

func (c *Controller) duration(d float64) float64 {
	if d < 0 {
		return c.cfg.Duration
	}
	return d
}

func (c *Controller) transition(from, to, duration float64) tween.Transition {
	fadingIn := to > from
	id := "fade-out"
	if fadingIn {
		id = "fade-in"
	}

	tr := tween.Scalar(id, from, to, duration, c.curve)
	tr.OnBegin = func() {
		if fadingIn {
			if c.cfg.LockDuringFade {
				c.setLocked(true)
			}
			call(c.events.OnFadeInBegin)
		} else {
			call(c.events.OnFadeOutBegin)
		}
	}
	tr.OnTick = func(v []float64) {
		c.SetAlpha(v[0])
	}
	tr.OnComplete = func() {
		c.SetAlpha(to)
		if fadingIn {
			call(c.events.OnFadeInComplete)
			return
		}
		c.setLocked(false)
		c.switching = false
		call(c.events.OnFadeOutComplete)
	}
	tr.OnCancel = func() {
		c.setLocked(false)
	}
	return tr
}

func (c *Controller) setLocked(locked bool) {
	if c.locked == locked {
		return
	}
	c.locked = locked
	for _, l := range c.locks {
		l.SetEnabled(!locked)
	}
}

func call(fn func()) {
	if fn != nil {
		fn()
	}
}
