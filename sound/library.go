// Package sound keeps a named library of sounds and plays them through a
// beep mixer, recycling pitched voices once their playback has finished.
package sound

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// Clip is either a synthesised tone (ToneHz and Length) or a WAV file.
type Clip struct {
	Name   string  `yaml:"name"`
	ToneHz float64 `yaml:"tone_hz,omitempty"`
	Path   string  `yaml:"path,omitempty"`
	Length float64 `yaml:"length,omitempty"`
}

// Sound is a named entry in the library. One of its clips is picked at
// random on every play.
type Sound struct {
	Name           string  `yaml:"name"`
	Volume         float64 `yaml:"volume"`
	Bus            string  `yaml:"bus,omitempty"`
	Clips          []Clip  `yaml:"clips"`
	PitchVariation bool    `yaml:"pitch_variation"`
	MinPitch       float64 `yaml:"min_pitch"`
	MaxPitch       float64 `yaml:"max_pitch"`
}

// Library is an ordered, editable list of sounds. Names are matched
// case-insensitively.
type Library struct {
	Sounds []Sound `yaml:"sounds"`
}

// NewSound returns a sound with default settings and no clips.
func NewSound(name string) Sound {
	return Sound{
		Name:     name,
		Volume:   1,
		Clips:    []Clip{},
		MinPitch: 1,
		MaxPitch: 1,
	}
}

// Len returns the number of sounds.
func (l *Library) Len() int {
	return len(l.Sounds)
}

// Add appends a default sound. An empty name becomes "New Sound".
func (l *Library) Add(name string) {
	if name == "" {
		name = "New Sound"
	}
	l.Sounds = append(l.Sounds, NewSound(name))
}

// Insert places s at index, clamped to the valid range.
func (l *Library) Insert(index int, s Sound) {
	if index < 0 {
		index = 0
	}
	if index > len(l.Sounds) {
		index = len(l.Sounds)
	}
	l.Sounds = append(l.Sounds, Sound{})
	copy(l.Sounds[index+1:], l.Sounds[index:])
	l.Sounds[index] = s
}

// RemoveAt deletes the sound at index.
func (l *Library) RemoveAt(index int) bool {
	if index < 0 || index >= len(l.Sounds) {
		return false
	}
	l.Sounds = append(l.Sounds[:index], l.Sounds[index+1:]...)
	return true
}

// RemoveByName deletes the first sound with the given name.
func (l *Library) RemoveByName(name string) bool {
	return l.RemoveAt(l.Index(name))
}

// Clear removes every sound.
func (l *Library) Clear() {
	l.Sounds = l.Sounds[:0]
}

// At returns the sound at index.
func (l *Library) At(index int) (Sound, bool) {
	if index < 0 || index >= len(l.Sounds) {
		return Sound{}, false
	}
	return l.Sounds[index], true
}

// ByName returns the first sound with the given name.
func (l *Library) ByName(name string) (Sound, bool) {
	return l.At(l.Index(name))
}

// Index returns the position of the first sound with the given name, or -1.
func (l *Library) Index(name string) int {
	for i := range l.Sounds {
		if strings.EqualFold(l.Sounds[i].Name, name) {
			return i
		}
	}
	return -1
}

// Move relocates the sound at oldIndex. Moving forward lands one slot
// before newIndex, matching a drag that removes the item before inserting.
func (l *Library) Move(oldIndex, newIndex int) bool {
	n := len(l.Sounds)
	if oldIndex < 0 || oldIndex >= n || newIndex < 0 || newIndex >= n || oldIndex == newIndex {
		return false
	}
	s := l.Sounds[oldIndex]
	l.RemoveAt(oldIndex)
	if newIndex > oldIndex {
		newIndex--
	}
	l.Insert(newIndex, s)
	return true
}

// Validate checks every sound and clip.
func (l *Library) Validate() error {
	for i, s := range l.Sounds {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("sound %d: empty name", i)
		}
		if s.Volume < 0 {
			return fmt.Errorf("sound %q: negative volume", s.Name)
		}
		if s.PitchVariation && (s.MinPitch <= 0 || s.MaxPitch < s.MinPitch) {
			return fmt.Errorf("sound %q: bad pitch range %v..%v", s.Name, s.MinPitch, s.MaxPitch)
		}
		for j, c := range s.Clips {
			if c.Path == "" && (c.ToneHz <= 0 || c.Length <= 0) {
				return fmt.Errorf("sound %q clip %d: needs a path or a positive tone and length", s.Name, j)
			}
		}
	}
	return nil
}

// LoadLibrary reads and validates a YAML library file.
func LoadLibrary(path string) (*Library, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	lib := new(Library)
	if err := yaml.Unmarshal(b, lib); err != nil {
		return nil, fmt.Errorf("sound library %s: %w", path, err)
	}
	if err := lib.Validate(); err != nil {
		return nil, fmt.Errorf("sound library %s: %w", path, err)
	}
	return lib, nil
}

// Save writes the library as YAML.
func (l *Library) Save(path string) error {
	b, err := yaml.Marshal(l)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
