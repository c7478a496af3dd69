// Package api serves the web client and a small JSON control API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/matt-g-everett/ledfade/tween"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Config describes the HTTP listener.
type Config struct {
	Listen    string  `yaml:"listen"`
	StaticDir string  `yaml:"static_dir"`
	Rate      float64 `yaml:"rate"`
	Burst     int     `yaml:"burst"`
}

// DefaultConfig listens on :3000 and serves client/dist.
func DefaultConfig() Config {
	return Config{
		Listen:    ":3000",
		StaticDir: "client/dist",
		Rate:      5,
		Burst:     10,
	}
}

// Validate fills unset fields and checks the limits.
func (c *Config) Validate() error {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Rate == 0 {
		c.Rate = def.Rate
	}
	if c.Burst == 0 {
		c.Burst = def.Burst
	}
	if c.Rate < 0 || c.Burst < 0 {
		return fmt.Errorf("api: negative rate or burst")
	}
	return nil
}

// Status is the snapshot returned by GET /api/status.
type Status struct {
	Animation string  `json:"animation"`
	Alpha     float64 `json:"alpha"`
	Fading    bool    `json:"fading"`
	Blinking  bool    `json:"blinking"`
	Sleepy    float64 `json:"sleepy"`
	Recorder  string  `json:"recorder"`
	Voices    int     `json:"voices"`
	Volume    float64 `json:"volume"`
	RuntimeMs int64   `json:"runtime_ms"`
	Locked    bool    `json:"locked"`
}

// Controls are the operations behind the API. They are always called from
// the loop goroutine through a Runner.
type Controls interface {
	FadeIn() error
	FadeOut() error
	Blink() error
	SetSleepy(amount float64) error
	PlaySound(name string) error
	SetVolume(linear float64) error
	StartRecording() error
	StopRecording() error
	Cycle() error
	Switch() error
	SetAutoBlink(enabled bool) error
	PlaySoundAt(displayIndex int) error
	Sounds() []string
	AddSound(name string, index int) error
	RemoveSound(name string) error
	MoveSound(from, to int) error
	Status() Status
}

// A Runner executes fn on the goroutine that owns the controls.
type Runner interface {
	Do(ctx context.Context, fn func() error) error
}

// Api handles HTTP requests. It is a fade interlock: while disabled, requests
// that would start a competing effect (fade in, blink, sound, cycle, switch)
// are refused with 423 Locked. Fading out, recording, levels and library
// edits stay available.
type Api struct {
	cfg      Config
	controls Controls
	runner   Runner
	limiter  *rate.Limiter
	disabled atomic.Bool
	log      zerolog.Logger
}

// NewApi creates an Api.
func NewApi(cfg Config, controls Controls, runner Runner, log zerolog.Logger) (*Api, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := new(Api)
	a.cfg = cfg
	a.controls = controls
	a.runner = runner
	a.limiter = rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst)
	a.log = log.With().Str("component", "api").Logger()
	return a, nil
}

// SetEnabled implements fade.Interlock.
func (a *Api) SetEnabled(enabled bool) {
	a.disabled.Store(!enabled)
}

// Locked reports whether mutating requests are refused.
func (a *Api) Locked() bool {
	return a.disabled.Load()
}

type response struct {
	OK     bool     `json:"ok"`
	Error  string   `json:"error,omitempty"`
	Status *Status  `json:"status,omitempty"`
	Sounds []string `json:"sounds,omitempty"`
}

type valueRequest struct {
	Value *float64 `json:"value"`
}

type enabledRequest struct {
	Enabled *bool `json:"enabled"`
}

type addSoundRequest struct {
	Name  string `json:"name"`
	Index *int   `json:"index"`
}

type moveSoundRequest struct {
	From *int `json:"from"`
	To   *int `json:"to"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, tween.ErrAlreadyRunning):
		return http.StatusConflict
	case errors.Is(err, tween.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, tween.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, tween.ErrShutdown):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// effect is a command that is refused while a fade holds the interlock.
func (a *Api) effect(name string, fn func(r *http.Request) (func() error, error)) http.HandlerFunc {
	next := a.command(name, fn)
	return func(w http.ResponseWriter, r *http.Request) {
		if a.Locked() {
			writeJSON(w, http.StatusLocked, response{Error: "locked while fading"})
			return
		}
		next(w, r)
	}
}

// command wraps a control call with the rate limit and the hand-off to the
// loop goroutine.
func (a *Api) command(name string, fn func(r *http.Request) (func() error, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !a.limiter.Allow() {
			writeJSON(w, http.StatusTooManyRequests, response{Error: "rate limited"})
			return
		}

		call, err := fn(r)
		if err == nil {
			err = a.runner.Do(r.Context(), call)
		}
		if err != nil {
			code := statusCode(err)
			ev := a.log.Debug()
			if code >= http.StatusInternalServerError {
				ev = a.log.Warn()
			}
			ev.Err(err).Str("command", name).Int("code", code).Msg("command failed")
			writeJSON(w, code, response{Error: err.Error()})
			return
		}
		a.log.Debug().Str("command", name).Msg("command done")
		writeJSON(w, http.StatusOK, response{OK: true})
	}
}

func simple(fn func() error) func(*http.Request) (func() error, error) {
	return func(*http.Request) (func() error, error) { return fn, nil }
}

func value(set func(float64) error) func(*http.Request) (func() error, error) {
	return func(r *http.Request) (func() error, error) {
		var req valueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, fmt.Errorf("%w: invalid JSON", tween.ErrInvalidParameter)
		}
		if req.Value == nil || math.IsNaN(*req.Value) || *req.Value < 0 || *req.Value > 1 {
			return nil, fmt.Errorf("%w: value must be within 0..1", tween.ErrInvalidParameter)
		}
		v := *req.Value
		return func() error { return set(v) }, nil
	}
}

func enabled(set func(bool) error) func(*http.Request) (func() error, error) {
	return func(r *http.Request) (func() error, error) {
		var req enabledRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
			return nil, fmt.Errorf("%w: expected {\"enabled\": bool}", tween.ErrInvalidParameter)
		}
		v := *req.Enabled
		return func() error { return set(v) }, nil
	}
}

func addSound(add func(string, int) error) func(*http.Request) (func() error, error) {
	return func(r *http.Request) (func() error, error) {
		var req addSoundRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, fmt.Errorf("%w: invalid JSON", tween.ErrInvalidParameter)
		}
		if req.Name == "" {
			return nil, fmt.Errorf("%w: sound needs a name", tween.ErrInvalidParameter)
		}
		index := -1
		if req.Index != nil {
			if *req.Index < 0 {
				return nil, fmt.Errorf("%w: negative index", tween.ErrInvalidParameter)
			}
			index = *req.Index
		}
		return func() error { return add(req.Name, index) }, nil
	}
}

func moveSound(move func(int, int) error) func(*http.Request) (func() error, error) {
	return func(r *http.Request) (func() error, error) {
		var req moveSoundRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.From == nil || req.To == nil {
			return nil, fmt.Errorf("%w: expected {\"from\": n, \"to\": n}", tween.ErrInvalidParameter)
		}
		from, to := *req.From, *req.To
		return func() error { return move(from, to) }, nil
	}
}

func (a *Api) sounds(w http.ResponseWriter, r *http.Request) {
	var names []string
	err := a.runner.Do(r.Context(), func() error {
		names = a.controls.Sounds()
		return nil
	})
	if err != nil {
		writeJSON(w, statusCode(err), response{Error: err.Error()})
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, response{OK: true, Sounds: names})
}

func (a *Api) status(w http.ResponseWriter, r *http.Request) {
	var st Status
	err := a.runner.Do(r.Context(), func() error {
		st = a.controls.Status()
		return nil
	})
	if err != nil {
		writeJSON(w, statusCode(err), response{Error: err.Error()})
		return
	}
	st.Locked = a.Locked()
	writeJSON(w, http.StatusOK, response{OK: true, Status: &st})
}

// Handler returns the API and static file routes.
func (a *Api) Handler() http.Handler {
	c := a.controls
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", a.status)
	mux.HandleFunc("GET /api/sounds", a.sounds)

	mux.Handle("POST /api/fade/in", a.effect("fade-in", simple(c.FadeIn)))
	mux.Handle("POST /api/blink", a.effect("blink", simple(c.Blink)))
	mux.Handle("POST /api/sound/{name}", a.effect("sound", func(r *http.Request) (func() error, error) {
		name := r.PathValue("name")
		return func() error { return c.PlaySound(name) }, nil
	}))
	mux.Handle("POST /api/sound/index/{n}", a.effect("sound-index", func(r *http.Request) (func() error, error) {
		n, err := strconv.Atoi(r.PathValue("n"))
		if err != nil {
			return nil, fmt.Errorf("%w: sound index %q", tween.ErrInvalidParameter, r.PathValue("n"))
		}
		return func() error { return c.PlaySoundAt(n) }, nil
	}))
	mux.Handle("POST /api/cycle", a.effect("cycle", simple(c.Cycle)))
	mux.Handle("POST /api/switch", a.effect("switch", simple(c.Switch)))

	mux.Handle("POST /api/fade/out", a.command("fade-out", simple(c.FadeOut)))
	mux.Handle("POST /api/blink/auto", a.command("blink-auto", enabled(c.SetAutoBlink)))
	mux.Handle("POST /api/sleepy", a.command("sleepy", value(c.SetSleepy)))
	mux.Handle("POST /api/volume", a.command("volume", value(c.SetVolume)))
	mux.Handle("POST /api/record/start", a.command("record-start", simple(c.StartRecording)))
	mux.Handle("POST /api/record/stop", a.command("record-stop", simple(c.StopRecording)))
	mux.Handle("POST /api/sounds", a.command("sound-add", addSound(c.AddSound)))
	mux.Handle("POST /api/sounds/move", a.command("sound-move", moveSound(c.MoveSound)))
	mux.Handle("DELETE /api/sounds/{name}", a.command("sound-remove", func(r *http.Request) (func() error, error) {
		name := r.PathValue("name")
		return func() error { return c.RemoveSound(name) }, nil
	}))

	if a.cfg.StaticDir != "" {
		if _, err := os.Stat(a.cfg.StaticDir); err == nil {
			mux.Handle("/", http.FileServer(http.Dir(a.cfg.StaticDir)))
		} else {
			a.log.Warn().Str("dir", a.cfg.StaticDir).Msg("static client not found")
		}
	}
	return mux
}

// Serve listens until ctx is done, then shuts the server down gracefully.
func (a *Api) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Listen,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		a.log.Info().Str("listen", a.cfg.Listen).Msg("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("api: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api: shutdown: %w", err)
	}
	return nil
}
