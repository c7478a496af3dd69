package sound

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/matt-g-everett/ledfade/pool"
	"github.com/matt-g-everett/ledfade/tween"
	"github.com/matt-g-everett/ledfade/util"
	"github.com/rs/zerolog"
)

// MinDecibels is the attenuation used for a linear volume of zero.
const MinDecibels = -80.0

// ErrNotFound is returned when a sound cannot be played.
var ErrNotFound = tween.ErrNotFound

// Cue names that may be mapped to library sounds in Config.Cues.
const (
	CueBlink   = "blink"
	CueFadeIn  = "fade_in"
	CueFadeOut = "fade_out"
)

var cues = map[string]bool{CueBlink: true, CueFadeIn: true, CueFadeOut: true}

// Config controls the player and its voice pool.
type Config struct {
	Library     string  `yaml:"library"`
	InitialPool int     `yaml:"initial_pool"`
	MaxPool     int     `yaml:"max_pool"`
	Volume      float64 `yaml:"volume"`
	SampleRate  int     `yaml:"sample_rate"`
	Device      bool    `yaml:"device"`

	// Cues maps events such as "blink" to the sound played for them.
	Cues map[string]string `yaml:"cues"`
}

// DefaultConfig mirrors a small interactive mixer.
func DefaultConfig() Config {
	return Config{
		InitialPool: 5,
		MaxPool:     20,
		Volume:      1,
		SampleRate:  44100,
	}
}

// Validate checks the player settings.
func (c *Config) Validate() error {
	if c.InitialPool < 0 || c.MaxPool < 0 {
		return fmt.Errorf("sound: negative pool size")
	}
	if c.MaxPool > 0 && c.InitialPool > c.MaxPool {
		return fmt.Errorf("sound: initial_pool %d exceeds max_pool %d", c.InitialPool, c.MaxPool)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sound: sample_rate must be positive")
	}
	for cue, name := range c.Cues {
		if !cues[cue] {
			return fmt.Errorf("sound: unknown cue %q", cue)
		}
		if name == "" {
			return fmt.Errorf("sound: cue %q has no sound", cue)
		}
	}
	c.Volume = clamp01(c.Volume)
	return nil
}

// LinearToDecibel converts a linear gain to decibels, flooring silence at
// MinDecibels.
func LinearToDecibel(linear float64) float64 {
	if linear <= 0 {
		return MinDecibels
	}
	return 20 * math.Log10(linear)
}

// DecibelToLinear converts decibels to a linear gain.
func DecibelToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// Voice is a pooled, pitch-shifted playback slot.
type Voice struct {
	id    int
	ctrl  *beep.Ctrl
	sound string
	bus   string
	pitch float64
}

// Sound returns the name of the sound the voice is playing.
func (v *Voice) Sound() string { return v.sound }

// Pitch returns the playback rate of the current sound.
func (v *Voice) Pitch() float64 { return v.pitch }

type noLock struct{}

func (noLock) Lock()   {}
func (noLock) Unlock() {}

// Option configures a Player.
type Option func(*Player)

// WithLocker guards mixer mutations, e.g. with the audio device lock.
func WithLocker(l sync.Locker) Option {
	return func(p *Player) { p.locker = l }
}

// WithRand sets the random source used for clip and pitch selection.
func WithRand(r *rand.Rand) Option {
	return func(p *Player) { p.rng = r }
}

// Player mixes library sounds into a single beep stream. It is not safe for
// concurrent use apart from the stream itself, which is guarded by the
// configured locker.
type Player struct {
	cfg    Config
	lib    *Library
	sr     beep.SampleRate
	mixer  *beep.Mixer
	master *effects.Volume
	buses  map[string]*beep.Mixer
	voices *pool.Pool[*Voice]
	sched  *tween.Scheduler
	active map[*Voice]*tween.Handle
	clips  map[string]*beep.Buffer
	locker sync.Locker
	rng    *rand.Rand
	log    zerolog.Logger
	nextID int
}

// NewPlayer creates a Player for lib. lib may be nil until SetLibrary.
func NewPlayer(cfg Config, lib *Library, log zerolog.Logger, opts ...Option) (*Player, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := new(Player)
	p.cfg = cfg
	p.lib = lib
	p.sr = beep.SampleRate(cfg.SampleRate)
	p.mixer = &beep.Mixer{}
	p.master = &effects.Volume{Streamer: p.mixer, Base: 10}
	p.buses = make(map[string]*beep.Mixer)
	p.active = make(map[*Voice]*tween.Handle)
	p.clips = make(map[string]*beep.Buffer)
	p.locker = noLock{}
	p.log = log.With().Str("component", "sound").Logger()
	p.sched = tween.New(tween.WithLogger(p.log))
	for _, opt := range opts {
		opt(p)
	}
	if p.rng == nil {
		p.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	p.voices = pool.New(pool.Config[*Voice]{
		New: func() *Voice {
			p.nextID++
			return &Voice{id: p.nextID}
		},
		OnRelease:   p.stopVoice,
		OnDestroy:   p.stopVoice,
		InitialSize: cfg.InitialPool,
		MaxSize:     cfg.MaxPool,
	})
	p.SetGlobalVolume(cfg.Volume)
	return p, nil
}

// Register attaches the release timers to a tick source.
func (p *Player) Register(src tween.TickSource) {
	p.sched.Register(src)
}

// SampleRate returns the output sample rate.
func (p *Player) SampleRate() beep.SampleRate {
	return p.sr
}

// Streamer returns the master output.
func (p *Player) Streamer() beep.Streamer {
	return p.master
}

// SetLibrary swaps the sound library. Voices already playing continue.
func (p *Player) SetLibrary(lib *Library) {
	p.lib = lib
	p.clips = make(map[string]*beep.Buffer)
}

// Library returns the current sound library.
func (p *Player) Library() *Library {
	return p.lib
}

// ActiveVoices returns the number of pooled voices currently playing.
func (p *Player) ActiveVoices() int {
	return p.voices.InUse()
}

// GlobalVolume returns the master volume as a linear gain.
func (p *Player) GlobalVolume() float64 {
	return p.cfg.Volume
}

// SetGlobalVolume sets the master volume, clamped to 0..1.
func (p *Player) SetGlobalVolume(linear float64) {
	p.cfg.Volume = clamp01(linear)
	db := LinearToDecibel(p.cfg.Volume)

	p.locker.Lock()
	p.master.Volume = db / 20
	p.master.Silent = db <= MinDecibels
	p.locker.Unlock()
	p.log.Debug().Float64("volume", p.cfg.Volume).Float64("db", db).Msg("global volume")
}

// Play starts the named sound. Sounds with pitch variation play on a pooled
// voice that is recycled once the clip has finished.
func (p *Player) Play(name string) error {
	if p.lib == nil {
		return fmt.Errorf("sound: no library loaded: %w", ErrNotFound)
	}
	s, ok := p.lib.ByName(name)
	if !ok {
		return fmt.Errorf("sound %q: %w", name, ErrNotFound)
	}
	if len(s.Clips) == 0 {
		return fmt.Errorf("sound %q has no clips: %w", name, ErrNotFound)
	}

	clip := s.Clips[p.rng.Intn(len(s.Clips))]
	src, length, err := p.open(clip)
	if err != nil {
		return fmt.Errorf("sound %q clip %q: %w", name, clip.Name, err)
	}

	if s.PitchVariation && s.MinPitch > 0 && s.MaxPitch > 0 {
		return p.playVoice(s, src, length)
	}

	p.locker.Lock()
	p.bus(s.Bus).Add(volume(src, s.Volume))
	p.locker.Unlock()
	return nil
}

// PlayCue plays the sound mapped to cue. Unmapped cues are silent.
func (p *Player) PlayCue(cue string) error {
	name, ok := p.cfg.Cues[cue]
	if !ok {
		return nil
	}
	return p.Play(name)
}

// PlayIndex plays the sound at a zero-based library position.
func (p *Player) PlayIndex(index int) error {
	if p.lib == nil {
		return fmt.Errorf("sound: no library loaded: %w", ErrNotFound)
	}
	s, ok := p.lib.At(index)
	if !ok {
		return fmt.Errorf("sound index %d: %w", index, ErrNotFound)
	}
	return p.Play(s.Name)
}

// PlayDisplayIndex plays the sound at a one-based library position.
func (p *Player) PlayDisplayIndex(displayIndex int) error {
	return p.PlayIndex(displayIndex - 1)
}

func (p *Player) playVoice(s Sound, src beep.Streamer, length float64) error {
	pitch := util.RandomRange(p.rng, s.MinPitch, s.MaxPitch)
	if pitch <= 0 {
		pitch = 1
	}

	v := p.voices.Get()
	v.sound = s.Name
	v.bus = s.Bus
	v.pitch = pitch
	v.ctrl = &beep.Ctrl{Streamer: volume(beep.ResampleRatio(4, pitch, src), s.Volume)}

	p.locker.Lock()
	p.bus(s.Bus).Add(v.ctrl)
	p.locker.Unlock()

	h, err := tween.ScheduleRelease(p.sched, fmt.Sprintf("voice/%d", v.id), v, length/pitch, p.releaseVoice)
	if err != nil {
		p.voices.Release(v)
		return err
	}
	p.active[v] = h
	p.log.Debug().Str("sound", s.Name).Int("voice", v.id).Float64("pitch", pitch).Msg("voice started")
	return nil
}

func (p *Player) releaseVoice(v *Voice) {
	delete(p.active, v)
	p.voices.Release(v)
}

func (p *Player) stopVoice(v *Voice) {
	if v.ctrl != nil {
		p.locker.Lock()
		v.ctrl.Streamer = nil
		p.locker.Unlock()
		v.ctrl = nil
	}
	v.sound = ""
	v.bus = ""
	v.pitch = 0
}

func (p *Player) bus(name string) *beep.Mixer {
	if name == "" {
		return p.mixer
	}
	m, ok := p.buses[name]
	if !ok {
		m = &beep.Mixer{}
		p.buses[name] = m
		p.mixer.Add(m)
	}
	return m
}

func (p *Player) open(c Clip) (beep.Streamer, float64, error) {
	if c.Path == "" {
		if c.ToneHz <= 0 || c.Length <= 0 {
			return nil, 0, errors.New("clip has neither a path nor a tone")
		}
		return tone(p.sr, c.ToneHz, c.Length), c.Length, nil
	}

	buf, ok := p.clips[c.Path]
	if !ok {
		var err error
		buf, err = decodeClip(c.Path, p.sr)
		if err != nil {
			return nil, 0, err
		}
		p.clips[c.Path] = buf
	}
	return buf.Streamer(0, buf.Len()), float64(buf.Len()) / float64(p.sr), nil
}

// Shutdown stops every pending release, returns all voices and silences the
// output.
func (p *Player) Shutdown() {
	p.sched.Shutdown()
	for v := range p.active {
		p.voices.Release(v)
	}
	p.active = make(map[*Voice]*tween.Handle)
	p.voices.Close()

	p.locker.Lock()
	p.mixer.Clear()
	p.locker.Unlock()
	p.buses = make(map[string]*beep.Mixer)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
