package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/matt-g-everett/ledfade/fade"
	"github.com/matt-g-everett/ledfade/tween"
	"github.com/rs/zerolog"
)

type manualTicks struct {
	tickers []tween.Ticker
}

func (m *manualTicks) AddTicker(t tween.Ticker) { m.tickers = append(m.tickers, t) }

func (m *manualTicks) RemoveTicker(t tween.Ticker) {
	for i, x := range m.tickers {
		if x == t {
			m.tickers = append(m.tickers[:i], m.tickers[i+1:]...)
			return
		}
	}
}

func (m *manualTicks) run(seconds, dt float64) {
	for elapsed := 0.0; elapsed < seconds; elapsed += dt {
		for _, t := range append([]tween.Ticker(nil), m.tickers...) {
			t.Tick(dt)
		}
	}
}

// fadingControls routes the fade commands to a real fade controller.
type fadingControls struct {
	*fakeControls
	fader *fade.Controller
}

func (f fadingControls) FadeIn() error  { return f.fader.FadeIn(-1) }
func (f fadingControls) FadeOut() error { return f.fader.FadeOut(-1) }

func TestFadeInThenOutThroughApi(t *testing.T) {
	fader, err := fade.NewController(fade.DefaultConfig(), nil, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	ticks := &manualTicks{}
	fader.Register(ticks)

	cfg := DefaultConfig()
	cfg.StaticDir = ""
	cfg.Burst = 100
	controls := fadingControls{fakeControls: &fakeControls{}, fader: fader}
	a, err := NewApi(cfg, controls, directRunner{}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	fader.AddInterlock(a)
	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)

	if code, r := post(t, srv, "/api/fade/in", ""); code != http.StatusOK {
		t.Fatalf("fade in = %d (%s)", code, r.Error)
	}
	ticks.run(1.5, 0.25)
	if fader.Alpha() != 1 || fader.IsFading() || !a.Locked() {
		t.Fatalf("after fade in: alpha=%v fading=%v locked=%v", fader.Alpha(), fader.IsFading(), a.Locked())
	}

	if code, _ := post(t, srv, "/api/blink", ""); code != http.StatusLocked {
		t.Errorf("blink while covered = %d, want 423", code)
	}
	if code, _ := post(t, srv, "/api/record/stop", ""); code == http.StatusLocked {
		t.Error("record stop refused while covered")
	}
	if code, r := post(t, srv, "/api/fade/out", ""); code != http.StatusOK {
		t.Fatalf("fade out = %d (%s)", code, r.Error)
	}

	ticks.run(1.5, 0.25)
	if fader.Alpha() != 0 || a.Locked() {
		t.Fatalf("after fade out: alpha=%v locked=%v", fader.Alpha(), a.Locked())
	}
	if code, _ := post(t, srv, "/api/blink", ""); code != http.StatusOK {
		t.Errorf("blink after fade out = %d", code)
	}
}
