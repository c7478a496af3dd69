// Package config loads the YAML configuration file.
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/matt-g-everett/ledfade/api"
	"github.com/matt-g-everett/ledfade/blink"
	"github.com/matt-g-everett/ledfade/fade"
	"github.com/matt-g-everett/ledfade/logging"
	"github.com/matt-g-everett/ledfade/recorder"
	"github.com/matt-g-everett/ledfade/sound"
	"github.com/matt-g-everett/ledfade/stream"
	"gopkg.in/yaml.v2"
)

// Config is the whole configuration file.
type Config struct {
	Mqtt     stream.MQTTConfig `yaml:"mqtt"`
	Stream   stream.Config     `yaml:"stream"`
	Fade     fade.Config       `yaml:"fade"`
	Blink    blink.Config      `yaml:"blink"`
	Sound    sound.Config      `yaml:"sound"`
	Recorder recorder.Config   `yaml:"recorder"`
	API      api.Config        `yaml:"api"`
	Log      logging.Config    `yaml:"log"`
}

// Default returns the configuration used for anything the file leaves out.
//
// The default blink eyes, left and right, have no stream.eyes segments, so
// blinks change no pixels until the file maps each eye onto the strip.
func Default() Config {
	return Config{
		Stream:   stream.DefaultConfig(),
		Fade:     fade.DefaultConfig(),
		Blink:    blink.DefaultConfig(),
		Sound:    sound.DefaultConfig(),
		Recorder: recorder.DefaultConfig(),
		API:      api.DefaultConfig(),
		Log:      logging.Config{Level: "info", Console: true},
	}
}

// Load reads and validates the file at path.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads a configuration on top of the defaults and validates it.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section and the references between them.
func (c *Config) Validate() error {
	validators := []interface{ Validate() error }{
		&c.Mqtt, &c.Stream, &c.Fade, &c.Blink, &c.Sound, &c.Recorder, &c.API,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}

	eyes := make(map[string]bool, len(c.Blink.Eyes))
	for _, e := range c.Blink.Eyes {
		eyes[e.Name] = true
	}
	for _, s := range c.Stream.Eyes {
		if !eyes[s.Name] {
			return fmt.Errorf("stream: eye segment %q has no blink eye", s.Name)
		}
	}
	return nil
}

// UnmappedEyes returns the blink eyes that no stream eye segment shows.
func (c *Config) UnmappedEyes() []string {
	mapped := make(map[string]bool, len(c.Stream.Eyes))
	for _, s := range c.Stream.Eyes {
		mapped[s.Name] = true
	}
	var names []string
	for _, e := range c.Blink.Eyes {
		if !mapped[e.Name] {
			names = append(names, e.Name)
		}
	}
	return names
}
