package stream

import (
	"math/rand"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/matt-g-everett/ledfade/util"
)

// Luminance a scintillating particle peaks at.
const peakLuminance = 0.6

type multiParticle struct {
	staticLut  []float64
	lut        []float64
	memoizer   *util.Memoizer
	rng        *rand.Rand
	current    int
	running    bool
	colour     colorful.Color
	nextColour colorful.Color
}

func newMultiParticle(colour colorful.Color, lut []float64, memoizer *util.Memoizer, rng *rand.Rand) *multiParticle {
	p := new(multiParticle)

	p.colour = colour
	p.nextColour = colour
	p.staticLut = lut
	p.lut = lut
	p.memoizer = memoizer
	p.rng = rng

	p.updateLut()

	return p
}

// updateLut picks a fresh scintillation length unless a fixed table was given.
func (p *multiParticle) updateLut() {
	if p.staticLut == nil {
		p.lut = util.GenerateLutMemoized((p.rng.Intn(18)+6)*2, p.memoizer)
	}
}

func (p *multiParticle) increment() {
	if !p.running {
		return
	}
	p.current++
	if p.current > len(p.lut)/2 {
		p.colour = p.nextColour
	}
	if p.current >= len(p.lut)-1 {
		p.current = 0
		p.running = false
		p.updateLut()
	}
}

// scintillate starts the particle and reports whether it was idle.
func (p *multiParticle) scintillate() bool {
	result := !p.running
	p.running = true
	return result
}

func (p *multiParticle) currentColour() colorful.Color {
	if !p.running || len(p.lut) == 0 {
		return p.colour
	}
	gain := p.lut[p.current]
	h, c, l := p.colour.Hcl()
	return colorful.Hcl(h, c, l+((peakLuminance-l)*gain)).Clamped()
}

// A MultiTwinkle is an Animation whose pixels scintillate between colours
// from a palette. Each frame, every pixel starts scintillating with a chance
// of 1 in scintillationChance.
type MultiTwinkle struct {
	lut                 []float64
	backColours         []colorful.Color
	scintillationChance int32
	pixels              []*multiParticle
	memoizer            *util.Memoizer
	rng                 *rand.Rand
}

// NewMultiTwinkle creates a MultiTwinkle. A nil lut gives every particle a
// randomly sized table.
func NewMultiTwinkle(scintillationChance int32, backColours []colorful.Color, lut []float64, rng *rand.Rand) *MultiTwinkle {
	t := new(MultiTwinkle)

	t.lut = lut
	t.backColours = backColours
	if len(t.backColours) == 0 {
		t.backColours = []colorful.Color{{}}
	}
	t.scintillationChance = scintillationChance
	if t.scintillationChance < 1 {
		t.scintillationChance = 1
	}
	t.memoizer = util.NewMemoizer()
	t.rng = rng

	return t
}

// Name implements Named.
func (t *MultiTwinkle) Name() string { return "multi-twinkle" }

func (t *MultiTwinkle) randomBackColour() colorful.Color {
	return t.backColours[t.rng.Intn(len(t.backColours))]
}

// CalculateFrame creates a new Frame instance.
func (t *MultiTwinkle) CalculateFrame(runtimeMs int64) *Frame {
	f := NewFrame()
	numPixels := f.Len()

	if t.pixels == nil {
		t.pixels = make([]*multiParticle, numPixels)
		for i := 0; i < numPixels; i++ {
			t.pixels[i] = newMultiParticle(t.randomBackColour(), t.lut, t.memoizer, t.rng)
		}
	}

	for i := 0; i < numPixels; i++ {
		if t.rng.Int31n(t.scintillationChance) == 0 {
			if t.pixels[i].scintillate() {
				t.pixels[i].nextColour = t.randomBackColour()
			}
		}

		// Only affects pixels that are scintillating.
		t.pixels[i].increment()

		f.pixels[i] = t.pixels[i].currentColour()
	}

	return f
}
