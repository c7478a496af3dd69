package fade

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/matt-g-everett/ledfade/tween"
)

// Config describes the overlay fade.
type Config struct {
	Duration       float64 `yaml:"duration"`
	Curve          string  `yaml:"curve"`
	FadeOutOnStart bool    `yaml:"fade_out_on_start"`
	Color          string  `yaml:"color"`
	LockDuringFade bool    `yaml:"lock_during_fade"`
	Settle         float64 `yaml:"settle"`
}

// DefaultConfig returns a one second smooth fade to black.
func DefaultConfig() Config {
	return Config{
		Duration:       1.0,
		Curve:          "smooth",
		FadeOutOnStart: true,
		Color:          "#000000",
		LockDuringFade: true,
		Settle:         0.1,
	}
}

// Validate checks the config and fills unset fields with defaults.
func (c *Config) Validate() error {
	def := DefaultConfig()
	if c.Duration == 0 {
		c.Duration = def.Duration
	}
	if c.Curve == "" {
		c.Curve = def.Curve
	}
	if c.Color == "" {
		c.Color = def.Color
	}
	if c.Settle == 0 {
		c.Settle = def.Settle
	}

	if c.Duration < 0 {
		return fmt.Errorf("fade: duration must be positive, got %v", c.Duration)
	}
	if c.Settle < 0 {
		return fmt.Errorf("fade: settle must be positive, got %v", c.Settle)
	}
	if _, err := tween.CurveByName(c.Curve); err != nil {
		return fmt.Errorf("fade: %w", err)
	}
	if _, err := colorful.Hex(c.Color); err != nil {
		return fmt.Errorf("fade: color %q: %w", c.Color, err)
	}
	return nil
}
