package tween

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/fogleman/ease"
)

// A Curve maps normalised time in [0,1] to normalised progress, usually in [0,1].
type Curve func(t float64) float64

// Linear is the identity curve.
func Linear(t float64) float64 {
	return t
}

// Smooth is a cubic Hermite ease-in-out with flat tangents at both ends.
func Smooth(t float64) float64 {
	return t * t * (3 - 2*t)
}

var curves = map[string]Curve{
	"linear":       ease.Linear,
	"smooth":       Smooth,
	"in-quad":      ease.InQuad,
	"out-quad":     ease.OutQuad,
	"in-out-quad":  ease.InOutQuad,
	"in-cubic":     ease.InCubic,
	"out-cubic":    ease.OutCubic,
	"in-out-cubic": ease.InOutCubic,
	"in-sine":      ease.InSine,
	"out-sine":     ease.OutSine,
	"in-out-sine":  ease.InOutSine,
	"out-bounce":   ease.OutBounce,
}

// CurveByName looks up one of the named easing curves.
func CurveByName(name string) (Curve, error) {
	c, ok := curves[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: unknown curve %q", ErrInvalidParameter, name)
	}
	return c, nil
}

// CurveNames lists the names accepted by CurveByName.
func CurveNames() []string {
	names := make([]string, 0, len(curves))
	for n := range curves {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// LutCurve builds a curve that linearly samples a look-up table spread
// evenly over [0,1].
func LutCurve(lut []float64) (Curve, error) {
	if len(lut) == 0 {
		return nil, fmt.Errorf("%w: empty look-up table", ErrInvalidParameter)
	}

	table := append([]float64(nil), lut...)
	if len(table) == 1 {
		v := table[0]
		return func(float64) float64 { return v }, nil
	}

	last := float64(len(table) - 1)
	return func(t float64) float64 {
		if t <= 0 {
			return table[0]
		}
		if t >= 1 {
			return table[len(table)-1]
		}
		pos := t * last
		i := int(math.Floor(pos))
		frac := pos - float64(i)
		return table[i] + (table[i+1]-table[i])*frac
	}, nil
}
