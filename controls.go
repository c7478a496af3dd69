package main

import (
	"fmt"

	"github.com/matt-g-everett/ledfade/api"
	"github.com/matt-g-everett/ledfade/fade"
	"github.com/matt-g-everett/ledfade/sound"
	"github.com/matt-g-everett/ledfade/stream"
	"github.com/matt-g-everett/ledfade/tween"
)

// The app methods below implement api.Controls. They run on the loop
// goroutine.

func (a *app) FadeIn() error { return a.Fader.FadeIn(-1) }

func (a *app) FadeOut() error { return a.Fader.FadeOut(-1) }

func (a *app) Blink() error { return a.Blinker.Trigger() }

func (a *app) SetSleepy(amount float64) error {
	a.Blinker.SetSleepy(amount)
	return nil
}

// SetAutoBlink turns random blinking on or off and pushes the eye state so
// the strip shows the resting level straight away.
func (a *app) SetAutoBlink(enabled bool) error {
	a.Blinker.SetEnabled(enabled)
	a.Blinker.ForceApply()
	return nil
}

func (a *app) PlaySound(name string) error { return a.Player.Play(name) }

func (a *app) PlaySoundAt(displayIndex int) error { return a.Player.PlayDisplayIndex(displayIndex) }

func (a *app) SetVolume(linear float64) error {
	a.Player.SetGlobalVolume(linear)
	return nil
}

func (a *app) StartRecording() error { return a.Recorder.Start() }

func (a *app) StopRecording() error { return a.Recorder.Stop() }

func (a *app) Cycle() error { return a.Controller.Cycle() }

// Switch covers the strip and moves to the next animation, leaving the
// overlay up until the next fade out.
func (a *app) Switch() error {
	return a.Fader.FadeInAndSwitch(a.Controller.Next, -1)
}

func (a *app) Sounds() []string {
	lib := a.Player.Library()
	names := make([]string, 0, lib.Len())
	for _, s := range lib.Sounds {
		names = append(names, s.Name)
	}
	return names
}

// AddSound appends a default sound, or inserts it at index when index is not
// negative.
func (a *app) AddSound(name string, index int) error {
	lib := a.Player.Library()
	if index < 0 {
		lib.Add(name)
	} else {
		lib.Insert(index, sound.NewSound(name))
	}
	return a.saveLibrary()
}

func (a *app) RemoveSound(name string) error {
	if !a.Player.Library().RemoveByName(name) {
		return fmt.Errorf("sound %q: %w", name, tween.ErrNotFound)
	}
	return a.saveLibrary()
}

func (a *app) MoveSound(from, to int) error {
	if !a.Player.Library().Move(from, to) {
		return fmt.Errorf("move sound %d to %d: %w", from, to, tween.ErrInvalidParameter)
	}
	return a.saveLibrary()
}

// saveLibrary writes library edits back to the configured file, which the
// watcher then reloads.
func (a *app) saveLibrary() error {
	path := a.Config.Sound.Library
	if path == "" {
		return nil
	}
	if err := a.Player.Library().Save(path); err != nil {
		return fmt.Errorf("save sound library: %w", err)
	}
	a.Log.Info().Str("path", path).Msg("sound library saved")
	return nil
}

func (a *app) Status() api.Status {
	return api.Status{
		Animation: stream.AnimationName(a.Controller.Current()),
		Alpha:     a.Fader.Alpha(),
		Fading:    a.Fader.IsFading(),
		Blinking:  a.Blinker.Blinking(),
		Sleepy:    a.Blinker.Sleepy(),
		Recorder:  a.Recorder.Status(),
		Voices:    a.Player.ActiveVoices(),
		Volume:    a.Player.GlobalVolume(),
		RuntimeMs: a.Loop.RuntimeMs(),
	}
}

// wireCues plays the configured sound cues on blinks and fades.
func (a *app) wireCues() {
	a.Blinker.OnBlink = func() { a.cue(sound.CueBlink) }
	a.Fader.SetEvents(fade.Events{
		OnFadeInBegin:     func() { a.cue(sound.CueFadeIn) },
		OnFadeInComplete:  func() { a.Log.Debug().Msg("strip covered") },
		OnFadeOutBegin:    func() { a.cue(sound.CueFadeOut) },
		OnFadeOutComplete: func() { a.Log.Debug().Msg("strip revealed") },
	})
}

func (a *app) cue(name string) {
	if err := a.Player.PlayCue(name); err != nil {
		a.Log.Debug().Err(err).Str("cue", name).Msg("cue not played")
	}
}
