package fade

import (
	"errors"
	"math"
	"testing"

	"github.com/matt-g-everett/ledfade/tween"
	"github.com/rs/zerolog"
)

type manualSource struct {
	tickers []tween.Ticker
}

func (m *manualSource) AddTicker(t tween.Ticker) { m.tickers = append(m.tickers, t) }

func (m *manualSource) RemoveTicker(t tween.Ticker) {
	for i, x := range m.tickers {
		if x == t {
			m.tickers = append(m.tickers[:i], m.tickers[i+1:]...)
			return
		}
	}
}

func (m *manualSource) tick(dt float64, n int) {
	for i := 0; i < n; i++ {
		for _, t := range m.tickers {
			t.Tick(dt)
		}
	}
}

type alphaRecorder struct {
	values []float64
}

func (a *alphaRecorder) SetAlpha(v float64) { a.values = append(a.values, v) }

func (a *alphaRecorder) last() float64 { return a.values[len(a.values)-1] }

type gate struct {
	enabled bool
	changes int
}

func (g *gate) SetEnabled(enabled bool) {
	g.enabled = enabled
	g.changes++
}

func newTestController(t *testing.T, cfg Config) (*Controller, *alphaRecorder, *manualSource) {
	t.Helper()
	sink := &alphaRecorder{}
	c, err := NewController(cfg, sink, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	src := &manualSource{}
	c.Register(src)
	return c, sink, src
}

func linearConfig() Config {
	cfg := DefaultConfig()
	cfg.Curve = "linear"
	cfg.FadeOutOnStart = false
	return cfg
}

func TestFadeInLinear(t *testing.T) {
	c, sink, src := newTestController(t, linearConfig())

	began, done := 0, 0
	c.SetEvents(Events{
		OnFadeInBegin:    func() { began++ },
		OnFadeInComplete: func() { done++ },
	})
	if err := c.FadeIn(1.0); err != nil {
		t.Fatal(err)
	}

	src.tick(0.25, 4)

	want := []float64{0.25, 0.5, 0.75, 1, 1}
	if len(sink.values) != len(want) {
		t.Fatalf("alpha = %v", sink.values)
	}
	for i, w := range want {
		if math.Abs(sink.values[i]-w) > 1e-9 {
			t.Errorf("alpha[%d] = %v, want %v", i, sink.values[i], w)
		}
	}
	if began != 1 || done != 1 {
		t.Errorf("began=%d done=%d", began, done)
	}
	if c.IsFading() {
		t.Error("still fading")
	}
}

func TestFadeRejectedWhileFading(t *testing.T) {
	c, _, src := newTestController(t, linearConfig())
	if err := c.FadeIn(-1); err != nil {
		t.Fatal(err)
	}
	src.tick(0.25, 1)
	if err := c.FadeOut(-1); !errors.Is(err, tween.ErrAlreadyRunning) {
		t.Errorf("err = %v, want ErrAlreadyRunning", err)
	}
	if err := c.FadeInOut(nil, -1, -1); !errors.Is(err, tween.ErrAlreadyRunning) {
		t.Errorf("err = %v, want ErrAlreadyRunning", err)
	}
	if math.Abs(c.Alpha()-0.25) > 1e-9 {
		t.Errorf("alpha = %v", c.Alpha())
	}
}

func TestFadeZeroDurationRejected(t *testing.T) {
	c, _, _ := newTestController(t, linearConfig())
	if err := c.FadeIn(0); !errors.Is(err, tween.ErrInvalidParameter) {
		t.Errorf("err = %v, want ErrInvalidParameter", err)
	}
	if c.IsFading() {
		t.Error("fading after rejected request")
	}
}

func TestFadeInOutRunsActionAtFullCover(t *testing.T) {
	c, _, src := newTestController(t, linearConfig())
	g := &gate{enabled: true}
	c.AddInterlock(g)

	var alphaAtAction float64 = -1
	calls := 0
	if err := c.FadeInOut(func() { calls++; alphaAtAction = c.Alpha() }, 0.5, 0.5); err != nil {
		t.Fatal(err)
	}

	src.tick(0.25, 2)
	if calls != 1 || alphaAtAction != 1 {
		t.Fatalf("calls=%d alpha=%v", calls, alphaAtAction)
	}
	if g.enabled {
		t.Error("interlock enabled while covered")
	}

	// settle (0.1s) then fade out
	src.tick(0.1, 1)
	src.tick(0.25, 2)
	if c.IsFading() || c.Alpha() != 0 {
		t.Errorf("fading=%v alpha=%v", c.IsFading(), c.Alpha())
	}
	if !g.enabled || g.changes != 2 {
		t.Errorf("interlock enabled=%v changes=%d", g.enabled, g.changes)
	}
	if calls != 1 {
		t.Errorf("action ran %d times", calls)
	}
}

func TestStartFadesOut(t *testing.T) {
	cfg := linearConfig()
	cfg.FadeOutOnStart = true
	c, sink, src := newTestController(t, cfg)

	outDone := 0
	c.SetEvents(Events{OnFadeOutComplete: func() { outDone++ }})
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	if sink.values[0] != 1 {
		t.Errorf("initial alpha = %v", sink.values[0])
	}
	src.tick(0.5, 2)
	if sink.last() != 0 || outDone != 1 {
		t.Errorf("alpha=%v outDone=%d", sink.last(), outDone)
	}
}

func TestFadeInAndSwitch(t *testing.T) {
	c, _, src := newTestController(t, linearConfig())

	loaded := 0
	if err := c.FadeInAndSwitch(func() { loaded++ }, 0.5); err != nil {
		t.Fatal(err)
	}
	if err := c.FadeInAndSwitch(func() { loaded++ }, 0.5); !errors.Is(err, tween.ErrAlreadyRunning) {
		t.Errorf("err = %v", err)
	}
	src.tick(0.5, 1)
	if loaded != 1 || !c.Switching() {
		t.Fatalf("loaded=%d switching=%v", loaded, c.Switching())
	}
	if err := c.FadeInAndSwitch(nil, 0.5); !errors.Is(err, tween.ErrAlreadyRunning) {
		t.Errorf("switch while switching: %v", err)
	}

	if err := c.FadeOut(0.5); err != nil {
		t.Fatal(err)
	}
	src.tick(0.5, 1)
	if c.Switching() {
		t.Error("still switching after fade out")
	}
}

func TestShutdownReleasesInterlock(t *testing.T) {
	c, _, src := newTestController(t, linearConfig())
	g := &gate{enabled: true}
	c.AddInterlock(g)
	c.FadeIn(1)
	src.tick(0.25, 1)
	if g.enabled {
		t.Fatal("interlock not engaged")
	}
	c.Shutdown()
	if !g.enabled {
		t.Error("interlock left disabled after shutdown")
	}
	if len(src.tickers) != 0 {
		t.Error("still registered")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"defaults", Config{}, true},
		{"bad curve", Config{Curve: "zigzag"}, false},
		{"bad colour", Config{Color: "black"}, false},
		{"negative duration", Config{Duration: -2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err == nil) != tt.ok {
				t.Errorf("err = %v", err)
			}
		})
	}
}
