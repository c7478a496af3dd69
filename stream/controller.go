package stream

import (
	"fmt"

	"github.com/matt-g-everett/ledfade/tween"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// A Fader covers the strip, runs an action while it is hidden and reveals it
// again.
type Fader interface {
	FadeInOut(action func(), in, out float64) error
}

// Controller that manages animations.
//
// With a Fader, Cycle swaps animations while the overlay is opaque. Without
// one it cross-fades the outgoing and incoming animations.
type Controller struct {
	animations    []Animation
	index         int
	animation     Animation
	nextAnimation Animation
	fader         Fader
	log           zerolog.Logger

	runtimeMs      int64
	transitionMs   int64
	transitionTime float64
	transition     float64
}

// NewController creates a Controller that plays animations in order,
// starting with the first.
func NewController(animations []Animation, log zerolog.Logger) (*Controller, error) {
	if len(animations) == 0 {
		return nil, fmt.Errorf("stream: controller needs at least one animation: %w", tween.ErrInvalidParameter)
	}

	c := new(Controller)
	c.animations = animations
	c.animation = animations[0]
	c.log = log.With().Str("component", "controller").Logger()
	c.transitionTime = 5.0

	return c, nil
}

// SetFader makes Cycle swap animations behind the fader.
func (c *Controller) SetFader(f Fader) {
	c.fader = f
}

// Current returns the animation being shown.
func (c *Controller) Current() Animation {
	return c.animation
}

// Index returns the playlist position of the current animation.
func (c *Controller) Index() int {
	return c.index
}

// CalculateFrame renders the current animation, blended with the next one
// while a cross-fade is running.
func (c *Controller) CalculateFrame(runtimeMs int64) *Frame {
	c.runtimeMs = runtimeMs
	if c.nextAnimation == nil {
		return c.animation.CalculateFrame(runtimeMs)
	}

	c.transition = float64(runtimeMs-c.transitionMs) / (c.transitionTime * 1000)
	if c.transition < 0 {
		c.transition = 0
	}
	f1 := c.animation.CalculateFrame(runtimeMs)
	f2 := c.nextAnimation.CalculateFrame(runtimeMs)
	f := f1.InterpolateFrame(f2, c.transition)

	if c.transition >= 1.0 {
		c.animation = c.nextAnimation
		c.nextAnimation = nil
		c.transition = 0.0
	}
	return f
}

func (c *Controller) advance() Animation {
	c.index = (c.index + 1) % len(c.animations)
	return c.animations[c.index]
}

// Next switches straight to the next animation, dropping any cross-fade in
// progress. It is meant to run while the output is hidden.
func (c *Controller) Next() {
	c.nextAnimation = nil
	c.transition = 0
	c.animation = c.advance()
	c.log.Info().Str("animation", AnimationName(c.animation)).Msg("animation switched")
}

// Cycle moves to the next animation. It fails with tween.ErrAlreadyRunning
// while a previous change is still in progress.
func (c *Controller) Cycle() error {
	if len(c.animations) < 2 {
		return nil
	}
	if c.fader != nil {
		return c.fader.FadeInOut(c.Next, -1, -1)
	}

	if c.nextAnimation != nil {
		return fmt.Errorf("stream: cycle: %w", tween.ErrAlreadyRunning)
	}
	c.nextAnimation = c.advance()
	c.transitionMs = c.runtimeMs
	c.log.Info().Str("animation", AnimationName(c.nextAnimation)).Msg("cross-fading")
	return nil
}

// ScheduleCycle adds a cron job that cycles animations. Jobs run on the cron
// goroutine, so the cycle is handed to post to run on the loop goroutine.
func (c *Controller) ScheduleCycle(cr *cron.Cron, spec string, post func(func()) error) (cron.EntryID, error) {
	id, err := cr.AddFunc(spec, func() {
		err := post(func() {
			if err := c.Cycle(); err != nil {
				c.log.Debug().Err(err).Msg("scheduled cycle skipped")
			}
		})
		if err != nil {
			c.log.Debug().Err(err).Msg("scheduled cycle not posted")
		}
	})
	if err != nil {
		return 0, fmt.Errorf("stream: cycle schedule %q: %w", spec, err)
	}
	return id, nil
}
