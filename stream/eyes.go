package stream

import (
	"fmt"
)

// EyeSegment maps a blink channel onto a run of pixels.
type EyeSegment struct {
	Name   string `yaml:"name"`
	Start  int    `yaml:"start"`
	Length int    `yaml:"length"`
}

// Eyes is an Animation that dims segments of another animation by their
// blink weight, where 0 is open and 100 is fully closed. It is the weight
// sink of a blink.Blinker.
type Eyes struct {
	base     Animation
	segments []EyeSegment
	weights  map[string]float64
}

// NewEyes wraps base. Segments must lie within the strip.
func NewEyes(base Animation, segments []EyeSegment) (*Eyes, error) {
	for _, s := range segments {
		if s.Name == "" {
			return nil, fmt.Errorf("stream: eye segment without a name")
		}
		if s.Start < 0 || s.Length <= 0 || s.Start+s.Length > NumPixels {
			return nil, fmt.Errorf("stream: eye segment %q [%d,+%d) outside the strip", s.Name, s.Start, s.Length)
		}
	}
	e := new(Eyes)
	e.base = base
	e.segments = segments
	e.weights = make(map[string]float64, len(segments))
	return e, nil
}

// Name implements Named.
func (e *Eyes) Name() string { return AnimationName(e.base) }

// SetWeight records the closure of the named eye. Unknown names are ignored.
func (e *Eyes) SetWeight(name string, weight float64) {
	for _, s := range e.segments {
		if s.Name == name {
			e.weights[name] = weight
			return
		}
	}
}

// Weight returns the last weight written for name, or 0 for unknown names.
func (e *Eyes) Weight(name string) float64 {
	return e.weights[name]
}

// CalculateFrame renders the base animation and dims each eye segment.
func (e *Eyes) CalculateFrame(runtimeMs int64) *Frame {
	f := e.base.CalculateFrame(runtimeMs)
	for _, s := range e.segments {
		w := e.weights[s.Name]
		if w <= 0 {
			continue
		}
		gain := 1 - w/100
		if gain < 0 {
			gain = 0
		}
		for i := s.Start; i < s.Start+s.Length; i++ {
			c := f.pixels[i]
			c.R *= gain
			c.G *= gain
			c.B *= gain
			f.pixels[i] = c
		}
	}
	return f
}
