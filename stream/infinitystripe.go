package stream

import (
	"github.com/matt-g-everett/ledfade/stream/stripe"
)

// An InfinityStripe is an Animation that scrolls an endless run of stripes
// along the strip. With perspective enabled stripes stretch towards the far
// end, which suits a strip wound up a cone.
type InfinityStripe struct {
	gen         *stripe.RandomStripeGenerator
	stripes     []stripe.Stripe
	current     float64
	lastMs      int64
	pixelsPerMs float64
	perspective bool
}

// NewInfinityStripe creates an InfinityStripe moving pixelsPerMs.
func NewInfinityStripe(gen *stripe.RandomStripeGenerator, pixelsPerMs float64, perspective bool) *InfinityStripe {
	s := new(InfinityStripe)
	s.gen = gen
	s.stripes = make([]stripe.Stripe, 0, 20)
	s.pixelsPerMs = pixelsPerMs
	s.perspective = perspective
	s.lastMs = -1

	return s
}

// Name implements Named.
func (s *InfinityStripe) Name() string { return "infinity-stripe" }

func (s *InfinityStripe) addStripe() stripe.Stripe {
	st := s.gen.CreateStripe()
	s.stripes = append(s.stripes, st)
	return st
}

// stripeAt returns the stripe covering offset and the offset where it ends,
// generating stripes as needed.
func (s *InfinityStripe) stripeAt(offset float64) (stripe.Stripe, float64) {
	if len(s.stripes) == 0 {
		s.addStripe()
	}

	end := 0.0
	for _, st := range s.stripes {
		end += float64(st.Length)
		if offset < end {
			return st, end
		}
	}
	for {
		st := s.addStripe()
		end += float64(st.Length)
		if offset < end {
			return st, end
		}
	}
}

// CalculateFrame creates a new Frame instance.
func (s *InfinityStripe) CalculateFrame(runtimeMs int64) *Frame {
	if s.lastMs >= 0 && runtimeMs > s.lastMs {
		s.current += s.pixelsPerMs * float64(runtimeMs-s.lastMs)
	}
	s.lastMs = runtimeMs

	// Cull stripes that have scrolled past.
	for len(s.stripes) > 0 && s.current >= float64(s.stripes[0].Length) {
		s.current -= float64(s.stripes[0].Length)
		s.stripes = s.stripes[1:]
	}

	f := NewFrame()
	numPixels := f.Len()
	factor := 1.0
	st, end := s.stripeAt(s.current)
	for i := 0; i < numPixels; i++ {
		if s.perspective {
			factor = 1.0 + 1.4*(float64(i)/float64(numPixels))
		}
		offset := factor*float64(i) + s.current
		if offset >= end {
			st, end = s.stripeAt(offset)
		}
		f.pixels[i] = st.Colour
	}

	return f
}
