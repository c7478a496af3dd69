// Package recorder writes the frames sent to the strip to a file so a show
// can be replayed or inspected later.
//
// A recording is a sequence of records, each a little-endian uint32 holding
// the offset in milliseconds from the start of the recording followed by the
// frame exactly as it was published (a uint16 pixel count and 3 bytes per
// pixel).
package recorder

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/matt-g-everett/ledfade/tween"
	"github.com/rs/zerolog"
)

// Ext is the extension of recording files.
const Ext = ".ledrec"

const timestampLayout = "2006-01-02_15-04-05"

// Config describes where and how long to record.
type Config struct {
	OutputDir    string  `yaml:"output_dir"`
	BaseName     string  `yaml:"base_name"`
	UseTimestamp bool    `yaml:"use_timestamp"`
	MaxSeconds   float64 `yaml:"max_seconds"`
	AutoStart    bool    `yaml:"auto_start"`
}

// DefaultConfig records to ./recordings with timestamped names and no limit.
func DefaultConfig() Config {
	return Config{
		OutputDir:    "recordings",
		BaseName:     "ledfade",
		UseTimestamp: true,
	}
}

// Validate fills unset fields and checks the limits.
func (c *Config) Validate() error {
	def := DefaultConfig()
	if c.OutputDir == "" {
		c.OutputDir = def.OutputDir
	}
	if c.BaseName == "" {
		c.BaseName = def.BaseName
	}
	if c.MaxSeconds < 0 || math.IsNaN(c.MaxSeconds) {
		return fmt.Errorf("recorder: max_seconds must not be negative, got %v", c.MaxSeconds)
	}
	return nil
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock replaces the clock used for file names.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// Recorder is a tween.Ticker. Its duration advances with the tick source, so
// recorded offsets follow the animation clock rather than the wall clock.
//
// Recorder is not safe for concurrent use.
type Recorder struct {
	cfg   Config
	sched *tween.Scheduler
	src   tween.TickSource
	now   func() time.Time
	log   zerolog.Logger

	file     *os.File
	w        *bufio.Writer
	path     string
	elapsed  float64
	frames   int
	watchdog *tween.Handle
}

// New creates an idle Recorder.
func New(cfg Config, log zerolog.Logger, opts ...Option) (*Recorder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := new(Recorder)
	r.cfg = cfg
	r.now = time.Now
	r.log = log.With().Str("component", "recorder").Logger()
	r.sched = tween.New(tween.WithLogger(r.log))
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Register attaches the recorder to a tick source.
func (r *Recorder) Register(src tween.TickSource) {
	if r.src != nil {
		r.src.RemoveTicker(r)
	}
	r.src = src
	r.sched.Register(src)
	src.AddTicker(r)
}

// Recording reports whether a recording is active.
func (r *Recorder) Recording() bool {
	return r.file != nil
}

// Path returns the file of the active or most recent recording.
func (r *Recorder) Path() string {
	return r.path
}

// Elapsed returns the length of the active recording in seconds.
func (r *Recorder) Elapsed() float64 {
	return r.elapsed
}

// Frames returns the number of frames in the active recording.
func (r *Recorder) Frames() int {
	return r.frames
}

// Status describes the recorder for display.
func (r *Recorder) Status() string {
	if !r.Recording() {
		return "Ready"
	}
	secs := int(r.elapsed)
	return fmt.Sprintf("Recording (%02d:%02d)", secs/60, secs%60)
}

func (r *Recorder) filename() string {
	name := r.cfg.BaseName
	if r.cfg.UseTimestamp {
		name += "_" + r.now().Format(timestampLayout)
	}
	return filepath.Join(r.cfg.OutputDir, name+Ext)
}

// Start opens a new recording file.
func (r *Recorder) Start() error {
	if r.Recording() {
		return fmt.Errorf("recorder: %w (%s)", tween.ErrAlreadyRunning, r.path)
	}
	if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("recorder: %w", err)
	}

	path := r.filename()
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("recorder: %w", err)
	}
	r.file = f
	r.w = bufio.NewWriter(f)
	r.path = path
	r.elapsed = 0
	r.frames = 0

	if r.cfg.MaxSeconds > 0 {
		r.watchdog, err = tween.ScheduleRelease(r.sched, "recording-limit", r, r.cfg.MaxSeconds, func(r *Recorder) {
			r.watchdog = nil
			r.log.Info().Float64("max_seconds", r.cfg.MaxSeconds).Msg("recording limit reached")
			if err := r.Stop(); err != nil {
				r.log.Error().Err(err).Msg("stop recording")
			}
		})
		if err != nil {
			r.log.Warn().Err(err).Msg("recording watchdog not started")
		}
	}
	r.log.Info().Str("path", path).Msg("recording started")
	return nil
}

// Record appends a frame. It does nothing while idle.
func (r *Recorder) Record(frame []byte) error {
	if !r.Recording() {
		return nil
	}
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(math.Round(r.elapsed*1000)))
	if _, err := r.w.Write(hdr[:]); err != nil {
		return fmt.Errorf("recorder: %w", err)
	}
	if _, err := r.w.Write(frame); err != nil {
		return fmt.Errorf("recorder: %w", err)
	}
	r.frames++
	return nil
}

// Tick advances the recording clock.
func (r *Recorder) Tick(dt float64) {
	if r.Recording() && dt > 0 {
		r.elapsed += dt
	}
}

// Stop finishes the active recording.
func (r *Recorder) Stop() error {
	if !r.Recording() {
		return fmt.Errorf("recorder: no recording: %w", tween.ErrNotFound)
	}
	if r.watchdog != nil {
		r.sched.Cancel(r.watchdog)
		r.watchdog = nil
	}

	err := r.w.Flush()
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	r.file = nil
	r.w = nil
	r.log.Info().Str("path", r.path).Int("frames", r.frames).Float64("seconds", r.elapsed).Msg("recording stopped")
	if err != nil {
		return fmt.Errorf("recorder: %w", err)
	}
	return nil
}

// Close stops any active recording and detaches from the tick source.
func (r *Recorder) Close() error {
	var err error
	if r.Recording() {
		err = r.Stop()
	}
	r.sched.Shutdown()
	if r.src != nil {
		r.src.RemoveTicker(r)
		r.src = nil
	}
	return err
}

// ReadFrames calls fn for every record in a recording.
func ReadFrames(src io.Reader, fn func(offsetMs uint32, frame []byte) error) error {
	br := bufio.NewReader(src)
	var hdr [6]byte
	for {
		if _, err := io.ReadFull(br, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("recorder: truncated record: %w", err)
		}
		offset := binary.LittleEndian.Uint32(hdr[:4])
		count := int(binary.LittleEndian.Uint16(hdr[4:]))

		frame := make([]byte, 2+count*3)
		copy(frame, hdr[4:])
		if _, err := io.ReadFull(br, frame[2:]); err != nil {
			return fmt.Errorf("recorder: truncated frame: %w", err)
		}
		if err := fn(offset, frame); err != nil {
			return err
		}
	}
}
