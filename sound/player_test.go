package sound

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
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

func (m *manualSource) tick(dt float64) {
	for _, t := range m.tickers {
		t.Tick(dt)
	}
}

func testLibrary() *Library {
	l := new(Library)

	beep := NewSound("beep")
	beep.Clips = []Clip{{Name: "a", ToneHz: 440, Length: 1.0}}
	l.Insert(l.Len(), beep)

	pitched := NewSound("pitched")
	pitched.Clips = []Clip{{Name: "a", ToneHz: 660, Length: 1.0}}
	pitched.PitchVariation = true
	pitched.MinPitch, pitched.MaxPitch = 2, 2
	l.Insert(l.Len(), pitched)

	l.Add("silent")
	return l
}

func newTestPlayer(t *testing.T) (*Player, *manualSource) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.SampleRate = 8000
	cfg.InitialPool = 2
	cfg.MaxPool = 4
	p, err := NewPlayer(cfg, testLibrary(), zerolog.Nop(), WithRand(rand.New(rand.NewSource(1))))
	if err != nil {
		t.Fatal(err)
	}
	src := &manualSource{}
	p.Register(src)
	return p, src
}

func loudness(p *Player, n int) float64 {
	buf := make([][2]float64, n)
	p.Streamer().Stream(buf)
	peak := 0.0
	for _, s := range buf {
		peak = math.Max(peak, math.Abs(s[0]))
	}
	return peak
}

func TestDecibelConversion(t *testing.T) {
	tests := []struct{ linear, db float64 }{
		{1, 0}, {0.1, -20}, {0.01, -40},
	}
	for _, tt := range tests {
		if got := LinearToDecibel(tt.linear); math.Abs(got-tt.db) > 1e-9 {
			t.Errorf("LinearToDecibel(%v) = %v", tt.linear, got)
		}
		if got := DecibelToLinear(tt.db); math.Abs(got-tt.linear) > 1e-9 {
			t.Errorf("DecibelToLinear(%v) = %v", tt.db, got)
		}
	}
	if LinearToDecibel(0) != MinDecibels || LinearToDecibel(-1) != MinDecibels {
		t.Error("silence not floored")
	}
}

func TestPlayUnknown(t *testing.T) {
	p, _ := newTestPlayer(t)
	for _, name := range []string{"nope", "silent"} {
		if err := p.Play(name); !errors.Is(err, ErrNotFound) {
			t.Errorf("Play(%q) = %v", name, err)
		}
	}
	if err := p.PlayIndex(10); !errors.Is(err, ErrNotFound) {
		t.Errorf("PlayIndex = %v", err)
	}
	p.SetLibrary(nil)
	if err := p.Play("beep"); !errors.Is(err, ErrNotFound) {
		t.Errorf("no library: %v", err)
	}
}

func TestPlayOneShot(t *testing.T) {
	p, _ := newTestPlayer(t)
	if err := p.PlayDisplayIndex(1); err != nil {
		t.Fatal(err)
	}
	if p.ActiveVoices() != 0 {
		t.Error("one-shot took a pooled voice")
	}
	if loudness(p, 400) < 0.1 {
		t.Error("no output")
	}
}

func TestPitchedVoiceReleasedAfterPlayback(t *testing.T) {
	p, src := newTestPlayer(t)
	if err := p.Play("PITCHED"); err != nil {
		t.Fatal(err)
	}
	if p.ActiveVoices() != 1 {
		t.Fatalf("active = %d", p.ActiveVoices())
	}
	for v, h := range p.active {
		if want := fmt.Sprintf("voice/%d", v.id); h.ID() != want {
			t.Errorf("release timer id = %q, want %q", h.ID(), want)
		}
	}
	if loudness(p, 400) < 0.1 {
		t.Error("no output from voice")
	}

	// a 1s clip at double pitch lasts 0.5s
	src.tick(0.25)
	if p.ActiveVoices() != 1 {
		t.Fatal("released early")
	}
	src.tick(0.25)
	if p.ActiveVoices() != 0 {
		t.Errorf("active = %d after playback", p.ActiveVoices())
	}
	if loudness(p, 400) != 0 {
		t.Error("released voice still audible")
	}
}

func TestGlobalVolume(t *testing.T) {
	p, _ := newTestPlayer(t)
	p.SetGlobalVolume(3)
	if p.GlobalVolume() != 1 {
		t.Errorf("volume = %v", p.GlobalVolume())
	}
	p.SetGlobalVolume(0)
	p.Play("beep")
	if loudness(p, 400) != 0 {
		t.Error("muted output audible")
	}
}

func TestShutdownReturnsVoices(t *testing.T) {
	p, src := newTestPlayer(t)
	p.Play("pitched")
	p.Play("pitched")
	if p.ActiveVoices() != 2 {
		t.Fatalf("active = %d", p.ActiveVoices())
	}
	p.Shutdown()
	if p.ActiveVoices() != 0 {
		t.Errorf("active = %d after shutdown", p.ActiveVoices())
	}
	if len(src.tickers) != 0 {
		t.Error("still registered")
	}
}

func TestPlayCue(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleRate = 8000
	cfg.Cues = map[string]string{CueBlink: "pitched", CueFadeIn: "gong"}
	p, err := NewPlayer(cfg, testLibrary(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	if err := p.PlayCue(CueFadeOut); err != nil {
		t.Errorf("unmapped cue: %v", err)
	}
	if err := p.PlayCue(CueBlink); err != nil {
		t.Fatal(err)
	}
	if p.ActiveVoices() != 1 {
		t.Errorf("active = %d after blink cue", p.ActiveVoices())
	}
	if err := p.PlayCue(CueFadeIn); !errors.Is(err, ErrNotFound) {
		t.Errorf("cue for a missing sound: %v", err)
	}
}

func TestCueConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cues = map[string]string{CueBlink: ""}
	if err := cfg.Validate(); err == nil {
		t.Error("empty cue sound accepted")
	}
	cfg.Cues = map[string]string{"sneeze": "beep"}
	if err := cfg.Validate(); err == nil {
		t.Error("unknown cue accepted")
	}
}
