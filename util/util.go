package util

import (
	"math/rand"
	"sync"

	"github.com/fogleman/ease"
)

// RandomRange returns a uniformly distributed value in [min, max) drawn from
// r, or from the global source when r is nil.
func RandomRange(r *rand.Rand, min float64, max float64) float64 {
	if max <= min {
		return min
	}
	if r == nil {
		return rand.Float64()*(max-min) + min
	}
	return r.Float64()*(max-min) + min
}

// GenerateLut builds a symmetric rise-and-fall table eased with InOutQuad.
func GenerateLut(length int) []float64 {
	if length < 2 {
		return make([]float64, length)
	}
	increment := 1.0 / float64(length/2)
	lut := make([]float64, length)
	for i, j := 0, length-1; i < length/2; i, j = i+1, j-1 {
		value := float64(i) * increment
		lut[i] = ease.InOutQuad(value)
		lut[j] = ease.InOutQuad(value)
	}
	return lut
}

// Memoizer caches look-up tables by length.
type Memoizer struct {
	mu    sync.Mutex
	cache map[int][]float64
}

// NewMemoizer creates an empty Memoizer.
func NewMemoizer() *Memoizer {
	return &Memoizer{cache: make(map[int][]float64)}
}

// GenerateLutMemoized returns a shared table for length, generating it on
// first use. Callers must not modify the result.
func GenerateLutMemoized(length int, m *Memoizer) []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if lut, ok := m.cache[length]; ok {
		return lut
	}
	lut := GenerateLut(length)
	m.cache[length] = lut
	return lut
}
