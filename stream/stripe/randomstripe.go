// Package stripe generates runs of solid colour for stripe animations.
package stripe

import (
	"math/rand"

	"github.com/lucasb-eyer/go-colorful"
)

// A Stripe is a run of Length pixels of one colour.
type Stripe struct {
	Colour colorful.Color
	Length int
}

// RandomStripeGenerator creates stripes of random length, taking colours
// from a palette or, with no palette, from random hues.
type RandomStripeGenerator struct {
	palette   []colorful.Color
	current   int
	stripeMin int
	stripeMax int
	rng       *rand.Rand
}

// NewRandomStripeGenerator creates a generator of stripes between min and
// max pixels long.
func NewRandomStripeGenerator(palette []colorful.Color, min, max int, rng *rand.Rand) *RandomStripeGenerator {
	g := new(RandomStripeGenerator)
	g.palette = palette
	g.current = -1
	if min < 1 {
		min = 1
	}
	if max < min {
		max = min
	}
	g.stripeMin = min
	g.stripeMax = max
	g.rng = rng
	return g
}

// CreateStripe returns the next stripe. Consecutive palette stripes never
// share a colour.
func (g *RandomStripeGenerator) CreateStripe() Stripe {
	var colour colorful.Color
	switch len(g.palette) {
	case 0:
		colour = colorful.Hsl(g.rng.Float64()*360.0, 1.0, 0.2)
	case 1:
		colour = g.palette[0]
	default:
		if g.current < 0 {
			g.current = g.rng.Intn(len(g.palette))
		} else {
			next := g.rng.Intn(len(g.palette) - 1)
			if next >= g.current {
				next++
			}
			g.current = next
		}
		colour = g.palette[g.current]
	}

	length := g.stripeMin
	if g.stripeMax > g.stripeMin {
		length += g.rng.Intn(g.stripeMax - g.stripeMin)
	}
	return Stripe{Colour: colour, Length: length}
}
