package stream

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/matt-g-everett/ledfade/tween"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type fakeFader struct {
	busy    bool
	pending func()
}

func (f *fakeFader) FadeInOut(action func(), in, out float64) error {
	if f.busy {
		return tween.ErrAlreadyRunning
	}
	f.busy = true
	f.pending = action
	return nil
}

// covered runs the action as the real fader does once the overlay is opaque.
func (f *fakeFader) covered() {
	f.pending()
	f.pending = nil
	f.busy = false
}

func colours() []Animation {
	return []Animation{
		solid{R: 1},
		solid{G: 1},
		solid{B: 1},
	}
}

func TestControllerNeedsAnimations(t *testing.T) {
	if _, err := NewController(nil, zerolog.Nop()); !errors.Is(err, tween.ErrInvalidParameter) {
		t.Errorf("err = %v", err)
	}
}

func TestCycleBehindFader(t *testing.T) {
	c, _ := NewController(colours(), zerolog.Nop())
	fader := &fakeFader{}
	c.SetFader(fader)

	if err := c.Cycle(); err != nil {
		t.Fatal(err)
	}
	if err := c.Cycle(); !errors.Is(err, tween.ErrAlreadyRunning) {
		t.Errorf("cycle while fading: %v", err)
	}
	if c.Index() != 0 {
		t.Fatal("switched before the overlay covered the strip")
	}
	fader.covered()
	if c.Index() != 1 || c.CalculateFrame(0).Pixel(0).G != 1 {
		t.Errorf("index = %d", c.Index())
	}

	c.Cycle()
	fader.covered()
	c.Cycle()
	fader.covered()
	if c.Index() != 0 {
		t.Errorf("playlist did not wrap: %d", c.Index())
	}
}

func TestCycleCrossFade(t *testing.T) {
	c, _ := NewController(colours(), zerolog.Nop())
	c.CalculateFrame(1000)

	if err := c.Cycle(); err != nil {
		t.Fatal(err)
	}
	if err := c.Cycle(); !errors.Is(err, tween.ErrAlreadyRunning) {
		t.Errorf("cycle during cross-fade: %v", err)
	}

	mid := c.CalculateFrame(3500).Pixel(0)
	if mid.R <= 0 || mid.G <= 0 {
		t.Errorf("midpoint = %v, want a blend", mid)
	}
	end := c.CalculateFrame(6000).Pixel(0)
	if !end.AlmostEqualRgb(colorful.Color{G: 1}) {
		t.Errorf("end = %v", end)
	}
	if c.Current().CalculateFrame(0).Pixel(0).G != 1 {
		t.Error("current animation not replaced")
	}
	if err := c.Cycle(); err != nil {
		t.Errorf("cycle after cross-fade: %v", err)
	}
}

func TestNextDropsCrossFade(t *testing.T) {
	c, _ := NewController(colours(), zerolog.Nop())
	c.CalculateFrame(1000)
	if err := c.Cycle(); err != nil {
		t.Fatal(err)
	}

	c.Next()
	if c.Index() != 2 {
		t.Errorf("index = %d", c.Index())
	}
	if px := c.CalculateFrame(2000).Pixel(0); px.B != 1 || px.G != 0 {
		t.Errorf("pixel = %v, want blue without a blend", px)
	}
	if err := c.Cycle(); err != nil {
		t.Errorf("cycle after next: %v", err)
	}
}

func TestScheduleCycle(t *testing.T) {
	c, _ := NewController(colours(), zerolog.Nop())
	cr := cron.New()

	if _, err := c.ScheduleCycle(cr, "not a spec", nil); err == nil {
		t.Error("bad spec accepted")
	}

	var posted []func()
	id, err := c.ScheduleCycle(cr, "@every 1m", func(fn func()) error {
		posted = append(posted, fn)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	cr.Entry(id).Job.Run()
	if len(posted) != 1 {
		t.Fatalf("posted %d", len(posted))
	}
	if c.nextAnimation != nil {
		t.Fatal("cycled on the cron goroutine")
	}
	posted[0]()
	if c.nextAnimation == nil {
		t.Error("posted cycle did nothing")
	}
}

func TestPlaylistRenders(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	for _, a := range cfg.Playlist(rand.New(rand.NewSource(7))) {
		for ms := int64(0); ms < 3000; ms += 33 {
			f := a.CalculateFrame(ms)
			if f == nil {
				t.Fatalf("%s: nil frame", AnimationName(a))
			}
			for i := 0; i < f.Len(); i++ {
				p := f.Pixel(i)
				if p.R < 0 || p.R > 1 || p.G < 0 || p.G > 1 || p.B < 0 || p.B > 1 {
					t.Fatalf("%s at %dms: pixel %d out of gamut: %v", AnimationName(a), ms, i, p)
				}
			}
		}
	}
}

func TestConfigValidate(t *testing.T) {
	bad := []Config{
		{FrameRate: -1},
		{Cycle: "every now and then"},
		{Foreground: "red"},
	}
	for _, cfg := range bad {
		if err := cfg.Validate(); err == nil {
			t.Errorf("%+v accepted", cfg)
		}
	}
}
