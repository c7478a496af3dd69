package stream

import (
	"encoding/binary"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
)

func TestMarshalBinary(t *testing.T) {
	f := NewFrame()
	f.SetPixel(0, colorful.Color{R: 1, G: 0, B: 0})
	f.SetPixel(NumPixels-1, colorful.Color{R: 2, G: -1, B: 1})

	b, err := f.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	if len(b) != 2+NumPixels*3 {
		t.Fatalf("len = %d", len(b))
	}
	if n := binary.LittleEndian.Uint16(b); n != NumPixels {
		t.Errorf("count = %d", n)
	}
	if b[2] != 255 || b[3] != 0 || b[4] != 0 {
		t.Errorf("first pixel = %v", b[2:5])
	}
	last := b[len(b)-3:]
	if last[0] != 255 || last[1] != 0 || last[2] != 255 {
		t.Errorf("out of gamut pixel not clamped: %v", last)
	}
}

func TestOverlay(t *testing.T) {
	white := colorful.Color{R: 1, G: 1, B: 1}
	black := colorful.Color{}

	tests := []struct {
		alpha float64
		want  float64
	}{
		{0, 1},
		{-1, 1},
		{0.25, 0.75},
		{1, 0},
		{3, 0},
	}
	for _, tt := range tests {
		f := NewFrame()
		f.Fill(white)
		f.Overlay(black, tt.alpha)
		for _, i := range []int{0, NumPixels / 2, NumPixels - 1} {
			if got := f.Pixel(i).R; got < tt.want-1e-9 || got > tt.want+1e-9 {
				t.Errorf("alpha %v: pixel %d = %v, want %v", tt.alpha, i, got, tt.want)
			}
		}
	}
}

func TestInterpolateFrameEndpoints(t *testing.T) {
	a, b := NewFrame(), NewFrame()
	a.Fill(colorful.Color{R: 0.5, G: 0.2, B: 0.1})
	b.Fill(colorful.Color{R: 0.1, G: 0.3, B: 0.6})

	start := a.InterpolateFrame(b, 0)
	if !start.Pixel(3).AlmostEqualRgb(a.Pixel(3)) {
		t.Errorf("start = %v", start.Pixel(3))
	}
	end := a.InterpolateFrame(b, 1)
	if !end.Pixel(3).AlmostEqualRgb(b.Pixel(3)) {
		t.Errorf("end = %v", end.Pixel(3))
	}
}

func TestGradientGetColor(t *testing.T) {
	g := GradientTable{{0, 0}, {120, 0.5}, {240, 1}}
	h, _, _ := g.GetColor(0.25, 0.5, 0.5).Hcl()
	if h < 59 || h > 61 {
		t.Errorf("hue = %v, want 60", h)
	}
	h, _, _ = g.GetColor(2, 0.5, 0.5).Hcl()
	if h < 239 || h > 241 {
		t.Errorf("past the end: hue = %v", h)
	}
}
