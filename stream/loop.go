package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/matt-g-everett/ledfade/tween"
	"github.com/rs/zerolog"
)

// A Publisher delivers encoded frames to the strip.
type Publisher interface {
	Publish(frame []byte) error
}

// A FrameRecorder stores encoded frames.
type FrameRecorder interface {
	Record(frame []byte) error
}

// Loop is the frame loop and the tick source for everything animated. Every
// registered ticker, and every function passed to Post, runs on the
// goroutine calling Run, so tickers need no locking of their own.
type Loop struct {
	frameRate float64
	render    Animation
	pub       Publisher
	rec       FrameRecorder
	log       zerolog.Logger
	now       func() time.Time

	tickers []tween.Ticker
	posts   chan func()
	done    chan struct{}

	overlay    colorful.Color
	alpha      float64
	elapsed    float64
	frames     int
	pubFailing bool
}

// NewLoop creates a Loop rendering render at frameRate frames per second.
func NewLoop(frameRate float64, render Animation, pub Publisher, log zerolog.Logger) (*Loop, error) {
	if !(frameRate > 0) {
		return nil, fmt.Errorf("stream: frame rate %v: %w", frameRate, tween.ErrInvalidParameter)
	}
	l := new(Loop)
	l.frameRate = frameRate
	l.render = render
	l.pub = pub
	l.log = log.With().Str("component", "loop").Logger()
	l.now = time.Now
	l.posts = make(chan func(), 64)
	l.done = make(chan struct{})
	return l, nil
}

// SetRecorder feeds every published frame to rec.
func (l *Loop) SetRecorder(rec FrameRecorder) {
	l.rec = rec
}

// AddTicker implements tween.TickSource.
func (l *Loop) AddTicker(t tween.Ticker) {
	l.tickers = append(l.tickers, t)
}

// RemoveTicker implements tween.TickSource.
func (l *Loop) RemoveTicker(t tween.Ticker) {
	for i, x := range l.tickers {
		if x == t {
			l.tickers = append(l.tickers[:i], l.tickers[i+1:]...)
			return
		}
	}
}

// SetOverlayColour sets the colour the fade overlay blends towards.
func (l *Loop) SetOverlayColour(c colorful.Color) {
	l.overlay = c
}

// SetAlpha sets the fade overlay opacity.
func (l *Loop) SetAlpha(alpha float64) {
	l.alpha = alpha
}

// Alpha returns the fade overlay opacity.
func (l *Loop) Alpha() float64 {
	return l.alpha
}

// RuntimeMs returns the animation clock.
func (l *Loop) RuntimeMs() int64 {
	return int64(l.elapsed * 1000)
}

// Frames returns the number of frames rendered.
func (l *Loop) Frames() int {
	return l.frames
}

// Post queues fn to run on the loop goroutine. It fails with
// tween.ErrShutdown once Run has returned.
func (l *Loop) Post(fn func()) error {
	select {
	case <-l.done:
		return tween.ErrShutdown
	default:
	}
	select {
	case l.posts <- fn:
		return nil
	case <-l.done:
		return tween.ErrShutdown
	}
}

// Do runs fn on the loop goroutine and waits for its result.
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	if err := l.Post(func() { result <- fn() }); err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-l.done:
		return tween.ErrShutdown
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Step advances tickers by dt seconds, renders a frame with the overlay
// applied, publishes it and records it.
func (l *Loop) Step(dt float64) {
	for _, t := range append([]tween.Ticker(nil), l.tickers...) {
		t.Tick(dt)
	}
	if dt > 0 {
		l.elapsed += dt
	}
	if l.render == nil {
		return
	}

	f := l.render.CalculateFrame(l.RuntimeMs())
	f.Overlay(l.overlay, l.alpha)
	b, _ := f.MarshalBinary()
	l.frames++

	if l.pub != nil {
		if err := l.pub.Publish(b); err != nil {
			if !l.pubFailing {
				l.log.Warn().Err(err).Msg("frame publish failed")
			}
			l.pubFailing = true
		} else if l.pubFailing {
			l.log.Info().Msg("frame publish recovered")
			l.pubFailing = false
		}
	}
	if l.rec != nil {
		if err := l.rec.Record(b); err != nil {
			l.log.Error().Err(err).Msg("frame not recorded")
		}
	}
}

// Run drives the loop until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)

	period := time.Duration(float64(time.Second) / l.frameRate)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	l.log.Info().Float64("frame_rate", l.frameRate).Msg("frame loop started")
	last := l.now()
	for {
		select {
		case <-ctx.Done():
			l.log.Info().Int("frames", l.frames).Msg("frame loop stopped")
			return nil
		case fn := <-l.posts:
			fn()
		case <-ticker.C:
			now := l.now()
			dt := now.Sub(last).Seconds()
			last = now
			l.Step(dt)
		}
	}
}
