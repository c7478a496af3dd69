package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gopxl/beep/speaker"
	"github.com/matt-g-everett/ledfade/api"
	"github.com/matt-g-everett/ledfade/blink"
	"github.com/matt-g-everett/ledfade/config"
	"github.com/matt-g-everett/ledfade/fade"
	"github.com/matt-g-everett/ledfade/logging"
	"github.com/matt-g-everett/ledfade/recorder"
	"github.com/matt-g-everett/ledfade/sound"
	"github.com/matt-g-everett/ledfade/stream"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Longest the quit fade may take before the loop is stopped regardless.
const quitTimeout = 5 * time.Second

type speakerLock struct{}

func (speakerLock) Lock()   { speaker.Lock() }
func (speakerLock) Unlock() { speaker.Unlock() }

type app struct {
	Config     config.Config
	Log        zerolog.Logger
	Client     mqtt.Client
	Loop       *stream.Loop
	Controller *stream.Controller
	Eyes       *stream.Eyes
	Fader      *fade.Controller
	Blinker    *blink.Blinker
	Player     *sound.Player
	Recorder   *recorder.Recorder
	Api        *api.Api
	Cron       *cron.Cron
}

func newApp(cfg config.Config, log zerolog.Logger) (*app, error) {
	a := new(app)
	a.Config = cfg
	a.Log = log
	rng := rand.New(rand.NewSource(time.Now().UTC().UnixNano()))

	a.Client = stream.NewMQTTClient(cfg.Mqtt, log)

	var err error
	if a.Controller, err = stream.NewController(cfg.Stream.Playlist(rng), log); err != nil {
		return nil, err
	}
	if a.Eyes, err = stream.NewEyes(a.Controller, cfg.Stream.Eyes); err != nil {
		return nil, err
	}
	pub := stream.NewMQTTPublisher(a.Client, cfg.Mqtt.Topics.Stream)
	if a.Loop, err = stream.NewLoop(cfg.Stream.FrameRate, a.Eyes, pub, log); err != nil {
		return nil, err
	}

	if a.Fader, err = fade.NewController(cfg.Fade, a.Loop, log); err != nil {
		return nil, err
	}
	a.Loop.SetOverlayColour(a.Fader.Color())
	a.Fader.Register(a.Loop)
	a.Controller.SetFader(a.Fader)

	if a.Blinker, err = blink.New(cfg.Blink, a.Eyes, log, blink.WithRand(rng)); err != nil {
		return nil, err
	}
	a.Blinker.Register(a.Loop)

	lib := new(sound.Library)
	if cfg.Sound.Library != "" {
		if lib, err = sound.LoadLibrary(cfg.Sound.Library); err != nil {
			return nil, err
		}
	}
	opts := []sound.Option{sound.WithRand(rng)}
	if cfg.Sound.Device {
		opts = append(opts, sound.WithLocker(speakerLock{}))
	}
	if a.Player, err = sound.NewPlayer(cfg.Sound, lib, log, opts...); err != nil {
		return nil, err
	}
	a.Player.Register(a.Loop)
	if cfg.Sound.Device {
		sr := a.Player.SampleRate()
		if err := speaker.Init(sr, sr.N(time.Second/10)); err != nil {
			return nil, fmt.Errorf("audio device: %w", err)
		}
		speaker.Play(a.Player.Streamer())
	}

	if a.Recorder, err = recorder.New(cfg.Recorder, log); err != nil {
		return nil, err
	}
	a.Recorder.Register(a.Loop)
	a.Loop.SetRecorder(a.Recorder)

	if a.Api, err = api.NewApi(cfg.API, a, a.Loop, log); err != nil {
		return nil, err
	}
	a.Fader.AddInterlock(a.Api)
	a.wireCues()

	a.Cron = cron.New()
	if _, err := a.Controller.ScheduleCycle(a.Cron, cfg.Stream.Cycle, a.Loop.Post); err != nil {
		return nil, err
	}
	return a, nil
}

// quitWithFade covers the strip before the loop stops, retrying while
// another fade holds the controller.
func (a *app) quitWithFade(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, quitTimeout)
	defer cancel()

	poll := time.NewTicker(50 * time.Millisecond)
	defer poll.Stop()
	for {
		covered := false
		err := a.Loop.Do(ctx, func() error {
			if a.Fader.Alpha() >= 1 && !a.Fader.IsFading() {
				covered = true
				return nil
			}
			if !a.Fader.IsFading() {
				return a.Fader.FadeIn(-1)
			}
			return nil
		})
		if covered {
			return
		}
		if err != nil {
			a.Log.Debug().Err(err).Msg("quit fade")
		}
		select {
		case <-ctx.Done():
			a.Log.Warn().Msg("quit fade timed out")
			return
		case <-poll.C:
		}
	}
}

func (a *app) run(ctx context.Context) error {
	if token := a.Client.Connect(); !token.WaitTimeout(10*time.Second) || token.Error() != nil {
		a.Log.Warn().Err(token.Error()).Msg("mqtt not connected yet, retrying in the background")
	}
	defer a.Client.Disconnect(250)

	if err := a.Fader.Start(); err != nil {
		a.Log.Warn().Err(err).Msg("start fade")
	}
	if a.Config.Recorder.AutoStart {
		if err := a.Recorder.Start(); err != nil {
			return err
		}
	}

	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := a.Loop.Run(loopCtx)
		if ctx.Err() == nil {
			return errors.New("frame loop stopped")
		}
		return err
	})
	g.Go(func() error { return a.Api.Serve(gctx) })
	if path := a.Config.Sound.Library; path != "" {
		g.Go(func() error {
			return sound.Watch(gctx, path, func(lib *sound.Library) {
				a.Loop.Post(func() { a.Player.SetLibrary(lib) })
			}, a.Log)
		})
	}
	g.Go(func() error {
		a.Cron.Start()
		<-gctx.Done()
		<-a.Cron.Stop().Done()

		daemon.SdNotify(false, daemon.SdNotifyStopping)
		a.quitWithFade(loopCtx)
		stopLoop()
		return nil
	})

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.Log.Warn().Err(err).Msg("systemd notify")
	} else if ok {
		a.Log.Debug().Msg("systemd notified")
	}

	err := g.Wait()
	a.shutdown()
	return err
}

func (a *app) shutdown() {
	a.Blinker.Shutdown()
	a.Player.Shutdown()
	if err := a.Recorder.Close(); err != nil {
		a.Log.Error().Err(err).Msg("close recording")
	}
	a.Fader.Shutdown()
	if a.Config.Sound.Device {
		speaker.Close()
	}
}

func main() {
	// Parse command line parameters
	configPath := flag.String("config", "config.yaml", "YAML config file.")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Console)
	mqtt.ERROR = logging.NewBridge(log.With().Str("component", "paho").Logger(), zerolog.ErrorLevel)
	log.Info().Str("config", *configPath).Str("broker", cfg.Mqtt.URL).Float64("frame_rate", cfg.Stream.FrameRate).Msg("config loaded")
	if eyes := cfg.UnmappedEyes(); len(eyes) > 0 {
		log.Warn().Strs("eyes", eyes).Msg("blink eyes without a stream.eyes segment will not show")
	}

	a, err := newApp(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("startup failed")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := a.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("stopped")
		os.Exit(1)
	}
	log.Info().Msg("bye")
}
