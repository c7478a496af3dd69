package stream

import (
	"encoding/binary"

	"github.com/lucasb-eyer/go-colorful"
)

// NumPixels is the length of the strip.
const NumPixels = 500

// Frame represents a frame of RGB pixels to display on an ledrx device.
type Frame struct {
	pixels [NumPixels]colorful.Color
}

// NewFrame creates a new Frame instance.
func NewFrame() *Frame {
	f := new(Frame)
	return f
}

// Len returns the number of pixels in the frame.
func (f *Frame) Len() int {
	return len(f.pixels)
}

// Pixel returns the colour at i.
func (f *Frame) Pixel(i int) colorful.Color {
	return f.pixels[i]
}

// SetPixel sets the colour at i.
func (f *Frame) SetPixel(i int, c colorful.Color) {
	f.pixels[i] = c
}

// Fill sets every pixel to c.
func (f *Frame) Fill(c colorful.Color) {
	for i := range f.pixels {
		f.pixels[i] = c
	}
}

// InterpolateFrame merges two frames.
func (f *Frame) InterpolateFrame(f2 *Frame, transitionPoint float64) *Frame {
	out := NewFrame()
	for i := 0; i < len(f.pixels); i++ {
		out.pixels[i] = f.pixels[i].BlendHcl(f2.pixels[i], transitionPoint).Clamped()
	}

	return out
}

// Overlay blends every pixel towards c in place. An alpha of 1 replaces the
// frame with c, 0 leaves it untouched.
func (f *Frame) Overlay(c colorful.Color, alpha float64) {
	if alpha <= 0 {
		return
	}
	if alpha >= 1 {
		f.Fill(c)
		return
	}
	for i := range f.pixels {
		f.pixels[i] = f.pixels[i].BlendRgb(c, alpha)
	}
}

// MarshalBinary converts a Frame into binary data.
func (f *Frame) MarshalBinary() (data []byte, err error) {
	data = make([]byte, 2, (NumPixels*3)+2)
	binary.LittleEndian.PutUint16(data, NumPixels)
	for _, p := range f.pixels {
		r, g, b := p.Clamped().RGB255()
		data = append(data, r, g, b)
	}

	return data, nil
}
