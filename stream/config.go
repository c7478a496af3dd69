package stream

import (
	"fmt"
	"math/rand"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/matt-g-everett/ledfade/stream/stripe"
	"github.com/robfig/cron/v3"
)

// Config describes the frame loop and the animation playlist.
type Config struct {
	FrameRate  float64      `yaml:"frame_rate"`
	Cycle      string       `yaml:"cycle"`
	Foreground string       `yaml:"foreground"`
	Background string       `yaml:"background"`
	Eyes       []EyeSegment `yaml:"eyes"`
}

// DefaultConfig returns 30 frames per second, cycling every five minutes.
func DefaultConfig() Config {
	return Config{
		FrameRate:  30,
		Cycle:      "@every 5m",
		Foreground: "#808080",
		Background: "#000005",
	}
}

// Validate fills unset fields and checks the values.
func (c *Config) Validate() error {
	def := DefaultConfig()
	if c.FrameRate == 0 {
		c.FrameRate = def.FrameRate
	}
	if c.Cycle == "" {
		c.Cycle = def.Cycle
	}
	if c.Foreground == "" {
		c.Foreground = def.Foreground
	}
	if c.Background == "" {
		c.Background = def.Background
	}

	if c.FrameRate < 0 || c.FrameRate > 200 {
		return fmt.Errorf("stream: frame_rate %v outside 0..200", c.FrameRate)
	}
	if _, err := cron.ParseStandard(c.Cycle); err != nil {
		return fmt.Errorf("stream: cycle %q: %w", c.Cycle, err)
	}
	for _, hex := range []string{c.Foreground, c.Background} {
		if _, err := colorful.Hex(hex); err != nil {
			return fmt.Errorf("stream: colour %q: %w", hex, err)
		}
	}
	return nil
}

// Playlist builds the animations cycled by the Controller.
func (c Config) Playlist(rng *rand.Rand) []Animation {
	fore, _ := colorful.Hex(c.Foreground)
	back, _ := colorful.Hex(c.Background)
	palette := []colorful.Color{
		{R: 0.45, G: 0.02, B: 0.10},              // Pink
		{R: 0.60, G: 0.20, B: 0.00},              // Orange
		colorful.Hcl(280.0, 1.0, 0.06).Clamped(), // Blue
	}

	return []Animation{
		NewTwinkle(400, fore, back, rng),
		NewGradientTrail(RainbowGradient, 180, 0.06, 30),
		NewMultiTwinkle(200, palette, nil, rng),
		NewStreak(20, 40, fore, back, rng),
		NewInfinityStripe(stripe.NewRandomStripeGenerator(nil, 150, 400, rng), 0.02, true),
	}
}
