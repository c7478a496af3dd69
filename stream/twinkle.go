package stream

import (
	"math"
	"math/rand"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/matt-g-everett/ledfade/tween"
	"github.com/matt-g-everett/ledfade/util"
)

// Seconds for a particle to brighten and dim once.
const twinklePeriod = 3.0

type twinkleParticle struct {
	index int
	phase float64
}

// A Twinkle is an Animation that twinkles random particles.
type Twinkle struct {
	numParticles int
	foreColour   colorful.Color
	backColour   colorful.Color
	rng          *rand.Rand
	pulse        tween.Curve

	particles []twinkleParticle
}

// NewTwinkle creates an instance of a Twinkle object.
func NewTwinkle(numParticles int, foreColour, backColour colorful.Color, rng *rand.Rand) *Twinkle {
	t := new(Twinkle)
	t.numParticles = numParticles
	t.foreColour = foreColour
	t.backColour = backColour
	t.rng = rng
	t.pulse, _ = tween.LutCurve(util.GenerateLut(64))

	return t
}

// Name implements Named.
func (t *Twinkle) Name() string { return "twinkle" }

func (t *Twinkle) init(numPixels int) {
	n := t.numParticles
	if n > numPixels {
		n = numPixels
	}
	t.particles = make([]twinkleParticle, 0, n)
	for _, i := range t.rng.Perm(numPixels)[:n] {
		t.particles = append(t.particles, twinkleParticle{index: i, phase: t.rng.Float64()})
	}
}

// CalculateFrame creates a new Frame instance.
func (t *Twinkle) CalculateFrame(runtimeMs int64) *Frame {
	f := NewFrame()
	if t.particles == nil {
		t.init(f.Len())
	}

	f.Fill(t.backColour)
	secs := float64(runtimeMs) / 1000
	for _, p := range t.particles {
		_, frac := math.Modf(secs/twinklePeriod + p.phase)
		gain := t.pulse(frac)
		f.pixels[p.index] = t.backColour.BlendRgb(t.foreColour, gain).Clamped()
	}

	return f
}
