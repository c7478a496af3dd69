package stream

import (
	"math"
)

// A GradientTrail is an Animation that cycles a gradient along an led strip.
type GradientTrail struct {
	gradient    GradientTable
	trailLength int
	luminance   float64
	speed       float64
}

// NewGradientTrail creates a GradientTrail that repeats the gradient every
// trailLength pixels and moves it speed pixels per second. A negative speed
// runs the trail backwards.
func NewGradientTrail(gradient GradientTable, trailLength int, luminance, speed float64) *GradientTrail {
	g := new(GradientTrail)
	g.gradient = gradient
	g.trailLength = trailLength
	if g.trailLength <= 0 {
		g.trailLength = NumPixels
	}
	g.luminance = luminance
	g.speed = speed

	return g
}

// Name implements Named.
func (g *GradientTrail) Name() string { return "gradient-trail" }

// CalculateFrame creates a new Frame instance.
func (g *GradientTrail) CalculateFrame(runtimeMs int64) *Frame {
	f := NewFrame()
	saturation := 1.0
	trail := float64(g.trailLength)
	current := math.Mod(g.speed*float64(runtimeMs)/1000, trail)
	for i := 0; i < f.Len(); i++ {
		pos := math.Mod(float64(i)-current, trail)
		if pos < 0 {
			pos += trail
		}
		f.pixels[i] = g.gradient.GetColor(pos/trail, saturation, g.luminance).Clamped()
	}

	return f
}
