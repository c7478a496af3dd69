// Package blink animates named "eye" channels closing and opening at random
// intervals, on top of an adjustable resting (sleepy) level.
package blink

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/matt-g-everett/ledfade/tween"
	"github.com/matt-g-everett/ledfade/util"
	"github.com/rs/zerolog"
)

// Eye is one output channel. MaxClose is the weight when fully closed.
type Eye struct {
	Name     string  `yaml:"name"`
	MaxClose float64 `yaml:"max_close"`
}

// Config describes blink timing. Times are in seconds.
type Config struct {
	Enabled           bool    `yaml:"enabled"`
	Synchronized      bool    `yaml:"synchronized"`
	Eyes              []Eye   `yaml:"eyes"`
	IntervalMin       float64 `yaml:"interval_min"`
	IntervalMax       float64 `yaml:"interval_max"`
	Duration          float64 `yaml:"duration"`
	CloseHold         float64 `yaml:"close_hold"`
	AsyncOffset       float64 `yaml:"async_offset"`
	DoubleBlink       bool    `yaml:"double_blink"`
	DoubleBlinkChance float64 `yaml:"double_blink_chance"`
	Sleepy            float64 `yaml:"sleepy"`
}

// DefaultConfig returns natural-looking blink timing for two eyes.
func DefaultConfig() Config {
	return Config{
		Enabled:           true,
		Synchronized:      true,
		Eyes:              []Eye{{Name: "left", MaxClose: 100}, {Name: "right", MaxClose: 100}},
		IntervalMin:       2,
		IntervalMax:       5,
		Duration:          0.15,
		CloseHold:         0.05,
		AsyncOffset:       0.05,
		DoubleBlink:       true,
		DoubleBlinkChance: 0.1,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if len(c.Eyes) == 0 {
		return fmt.Errorf("blink: no eyes configured")
	}
	seen := make(map[string]bool, len(c.Eyes))
	for i := range c.Eyes {
		e := &c.Eyes[i]
		if e.Name == "" {
			return fmt.Errorf("blink: eye %d has no name", i)
		}
		if seen[e.Name] {
			return fmt.Errorf("blink: duplicate eye %q", e.Name)
		}
		seen[e.Name] = true
		if e.MaxClose == 0 {
			e.MaxClose = 100
		}
		if e.MaxClose < 0 || e.MaxClose > 100 {
			return fmt.Errorf("blink: eye %q max_close %v outside 0..100", e.Name, e.MaxClose)
		}
	}
	if c.IntervalMin <= 0 || c.IntervalMax < c.IntervalMin {
		return fmt.Errorf("blink: bad interval %v..%v", c.IntervalMin, c.IntervalMax)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("blink: duration must be positive, got %v", c.Duration)
	}
	if c.CloseHold < 0 || c.AsyncOffset < 0 {
		return fmt.Errorf("blink: negative close_hold or async_offset")
	}
	if c.DoubleBlinkChance < 0 || c.DoubleBlinkChance > 1 {
		return fmt.Errorf("blink: double_blink_chance %v outside 0..1", c.DoubleBlinkChance)
	}
	c.Sleepy = clamp01(c.Sleepy)
	return nil
}

// A WeightSink applies eye weights (0..100) to the real output.
type WeightSink interface {
	SetWeight(name string, weight float64)
}

// Blinker is a tween.Ticker. The resting level is written first, running
// blink transitions override it, and the resolved weight of every eye is
// pushed to the sink once per tick in declaration order.
//
// Blinker is not safe for concurrent use.
type Blinker struct {
	cfg   Config
	sink  WeightSink
	sched *tween.Scheduler
	rng   *rand.Rand
	log   zerolog.Logger
	src   tween.TickSource

	timer    float64
	next     float64
	blinking bool
	running  int
	held     []bool
	current  []float64

	// OnBlink is called whenever a blink starts.
	OnBlink func()
}

// Option configures a Blinker.
type Option func(*Blinker)

// WithRand sets the random source used for intervals and offsets.
func WithRand(r *rand.Rand) Option {
	return func(b *Blinker) { b.rng = r }
}

// New creates a Blinker and applies the resting level to the sink.
func New(cfg Config, sink WeightSink, log zerolog.Logger, opts ...Option) (*Blinker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := new(Blinker)
	b.cfg = cfg
	b.sink = sink
	b.log = log.With().Str("component", "blink").Logger()
	b.sched = tween.New(tween.WithLogger(b.log))
	b.held = make([]bool, len(cfg.Eyes))
	b.current = make([]float64, len(cfg.Eyes))
	for _, opt := range opts {
		opt(b)
	}
	if b.rng == nil {
		b.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	b.next = b.interval()
	b.writeResting()
	b.apply()
	return b, nil
}

// Register attaches the blinker to a tick source.
func (b *Blinker) Register(src tween.TickSource) {
	b.Unregister()
	b.src = src
	src.AddTicker(b)
}

// Unregister detaches the blinker from its tick source.
func (b *Blinker) Unregister() {
	if b.src != nil {
		b.src.RemoveTicker(b)
		b.src = nil
	}
}

// Blinking reports whether a blink is in progress.
func (b *Blinker) Blinking() bool {
	return b.blinking
}

// Weight returns the last resolved weight of the named eye.
func (b *Blinker) Weight(name string) (float64, bool) {
	for i, e := range b.cfg.Eyes {
		if e.Name == name {
			return b.current[i], true
		}
	}
	return 0, false
}

// SetEnabled turns automatic blinking on or off. Manual triggers still work.
func (b *Blinker) SetEnabled(enabled bool) {
	b.cfg.Enabled = enabled
}

// Tick advances the blink timer and any running blink.
func (b *Blinker) Tick(dt float64) {
	if b.cfg.Enabled && !b.blinking {
		b.timer += dt
		if b.timer >= b.next {
			b.start()
			b.timer = 0
			b.next = b.interval()
		}
	}

	b.writeResting()
	b.sched.Tick(dt)
	b.apply()
}

// Trigger starts a blink immediately.
func (b *Blinker) Trigger() error {
	if b.blinking {
		return fmt.Errorf("blink: %w", tween.ErrAlreadyRunning)
	}
	b.start()
	return nil
}

// SetSleepy sets the resting closure, clamped to 0..1, and applies it at
// once unless a blink is running.
func (b *Blinker) SetSleepy(amount float64) {
	b.cfg.Sleepy = clamp01(amount)
	if !b.blinking {
		b.writeResting()
		b.apply()
	}
}

// Sleepy returns the resting closure.
func (b *Blinker) Sleepy() float64 {
	return b.cfg.Sleepy
}

// ForceApply pushes the current eye state to the sink.
func (b *Blinker) ForceApply() {
	if !b.blinking {
		b.writeResting()
	}
	b.apply()
}

// Shutdown cancels any running blink and detaches from the tick source.
func (b *Blinker) Shutdown() {
	b.sched.Shutdown()
	b.Unregister()
}

func (b *Blinker) interval() float64 {
	return util.RandomRange(b.rng, b.cfg.IntervalMin, b.cfg.IntervalMax)
}

func (b *Blinker) resting(i int) float64 {
	return b.cfg.Sleepy * b.cfg.Eyes[i].MaxClose
}

func (b *Blinker) writeResting() {
	for i := range b.cfg.Eyes {
		if !b.held[i] {
			b.current[i] = b.resting(i)
		}
	}
}

func (b *Blinker) apply() {
	if b.sink == nil {
		return
	}
	for i, e := range b.cfg.Eyes {
		b.sink.SetWeight(e.Name, b.current[i])
	}
}

func (b *Blinker) start() {
	b.blinking = true
	if b.cfg.Synchronized || len(b.cfg.Eyes) == 1 {
		b.blinkAll(0)
	} else {
		b.blinkEach()
	}
}

// blinkSteps closes the given eyes, holds, then reopens them.
func (b *Blinker) blinkSteps(id string, eyes []int, delay float64) []tween.Step {
	open := make([]float64, len(eyes))
	closed := make([]float64, len(eyes))
	for k, i := range eyes {
		open[k] = b.resting(i)
		closed[k] = b.cfg.Eyes[i].MaxClose
	}
	write := func(v []float64) {
		for k, i := range eyes {
			b.current[i] = v[k]
		}
	}

	var steps []tween.Step
	if delay > 0 {
		steps = append(steps, tween.WaitStep(delay))
	}
	steps = append(steps, tween.ActionStep(func() {
		for _, i := range eyes {
			b.held[i] = true
		}
	}))

	closing := tween.Transition{
		ID: id + "/close", From: open, To: closed,
		Duration: b.cfg.Duration, Curve: tween.Linear, Priority: 1, OnTick: write,
	}
	opening := tween.Transition{
		ID: id + "/open", From: closed, To: open,
		Duration: b.cfg.Duration, Curve: tween.Linear, Priority: 1, OnTick: write,
	}
	steps = append(steps, tween.TransitionStep(closing))
	if b.cfg.CloseHold > 0 {
		steps = append(steps, tween.WaitStep(b.cfg.CloseHold))
	}
	steps = append(steps, tween.TransitionStep(opening))
	return steps
}

func (b *Blinker) release(eyes []int) {
	for _, i := range eyes {
		b.held[i] = false
	}
}

func (b *Blinker) blinkAll(delay float64) {
	eyes := make([]int, len(b.cfg.Eyes))
	for i := range eyes {
		eyes[i] = i
	}
	if b.OnBlink != nil {
		b.OnBlink()
	}

	_, err := b.sched.RunSequence(tween.Sequence{
		ID:    "blink",
		Steps: b.blinkSteps("blink", eyes, delay),
		OnComplete: func() {
			b.release(eyes)
			if b.cfg.DoubleBlink && b.rng.Float64() < b.cfg.DoubleBlinkChance {
				b.log.Debug().Msg("double blink")
				b.blinkAll(util.RandomRange(b.rng, 0.1, 0.3))
				return
			}
			b.blinking = false
		},
		OnCancel: func() {
			b.release(eyes)
			b.blinking = false
		},
	})
	if err != nil {
		b.log.Warn().Err(err).Msg("blink not started")
		b.blinking = false
	}
}

func (b *Blinker) blinkEach() {
	if b.OnBlink != nil {
		b.OnBlink()
	}

	for i, e := range b.cfg.Eyes {
		eyes := []int{i}
		delay := util.RandomRange(b.rng, 0, b.cfg.AsyncOffset)
		done := func() {
			b.release(eyes)
			b.running--
			if b.running == 0 {
				b.blinking = false
			}
		}
		_, err := b.sched.RunSequence(tween.Sequence{
			ID:         "blink/" + e.Name,
			Concurrent: true,
			Steps:      b.blinkSteps("blink/"+e.Name, eyes, delay),
			OnComplete: done,
			OnCancel:   done,
		})
		if err != nil {
			b.log.Warn().Err(err).Str("eye", e.Name).Msg("eye blink not started")
			continue
		}
		b.running++
	}
	if b.running == 0 {
		b.blinking = false
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
