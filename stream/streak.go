package stream

import (
	"container/list"
	"math"
	"math/rand"

	"github.com/fogleman/ease"
	"github.com/lucasb-eyer/go-colorful"
)

type streakParticle struct {
	colour   colorful.Color
	start    float64
	current  float64
	speed    float64
	length   float64
	gainRate float64
}

func newStreakParticle(colour colorful.Color, start, speed float64) *streakParticle {
	p := new(streakParticle)
	p.colour = colour
	p.start = start
	p.current = start
	p.speed = speed
	p.length = 10
	p.gainRate = 0.05
	return p
}

func (p *streakParticle) incrementPosition(dt, numPixels float64) bool {
	p.current += p.speed * dt
	return p.current <= numPixels && p.current >= -p.length
}

func (p *streakParticle) easeDistance() float64 {
	return math.Abs(p.current-p.start) * p.gainRate
}

// gain rises over the first eased unit of travel and falls over the second.
func (p *streakParticle) gain(d float64) float64 {
	if d > 2 {
		return 0
	} else if d > 1 {
		d = 2 - d
	}
	return ease.InOutQuad(d)
}

func (p *streakParticle) addStreak(f *Frame) bool {
	d := p.easeDistance()
	if d > 2 {
		return false
	}
	bias := p.gain(d)
	start := int(math.Max(0, math.Ceil(p.current)))
	end := int(math.Min(float64(f.Len()-1), math.Floor(p.current+p.length)))
	for i := start; i <= end; i++ {
		f.pixels[i] = f.pixels[i].BlendHcl(p.colour, bias).Clamped()
	}
	return true
}

// A Streak is an Animation that sends streaks along the strip which fade in
// then out.
type Streak struct {
	backColour   colorful.Color
	colour       colorful.Color
	lastMs       int64
	streakChance int32
	speed        float64
	rng          *rand.Rand
	particles    *list.List
}

// NewStreak creates a Streak. Each frame starts a new streak with a chance of
// 1 in streakChance; streaks travel speed pixels per second.
func NewStreak(streakChance int32, speed float64, colour, backColour colorful.Color, rng *rand.Rand) *Streak {
	s := new(Streak)
	s.streakChance = streakChance
	if s.streakChance < 1 {
		s.streakChance = 1
	}
	s.speed = speed
	s.colour = colour
	s.backColour = backColour
	s.rng = rng
	s.lastMs = -1
	s.particles = list.New()

	return s
}

// Name implements Named.
func (s *Streak) Name() string { return "streak" }

// CalculateFrame creates a new Frame instance.
func (s *Streak) CalculateFrame(runtimeMs int64) *Frame {
	dt := 0.0
	if s.lastMs >= 0 && runtimeMs > s.lastMs {
		dt = float64(runtimeMs-s.lastMs) / 1000
	}
	s.lastMs = runtimeMs

	f := NewFrame()
	f.Fill(s.backColour)
	numPixels := float64(f.Len())

	for e := s.particles.Front(); e != nil; {
		next := e.Next()
		p := e.Value.(*streakParticle)
		if !p.incrementPosition(dt, numPixels) || !p.addStreak(f) {
			s.particles.Remove(e)
		}
		e = next
	}

	if s.rng.Int31n(s.streakChance) == 0 {
		speed := s.speed
		if s.rng.Intn(2) == 0 {
			speed = -speed
		}
		s.particles.PushBack(newStreakParticle(s.colour, s.rng.Float64()*numPixels, speed))
	}

	return f
}
