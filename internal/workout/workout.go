// Package workout ties the live settings, the session controller, and the
// background music together.
package workout

import (
	"errors"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/verte-zerg/tuibeat/internal/config"
	"github.com/verte-zerg/tuibeat/internal/model"
	"github.com/verte-zerg/tuibeat/internal/music"
	"github.com/verte-zerg/tuibeat/internal/player"
	"github.com/verte-zerg/tuibeat/internal/settings"
)

// Music is the background playlist.
type Music interface {
	Play() error
	Stop()
	SetVolume(v float64)
	Playing() bool
	Close() error
}

// Tones is the tone source owned by the workout.
type Tones interface {
	player.ToneSource
	Close() error
}

// Deps are the components a Workout drives.
type Deps struct {
	Settings *settings.Live
	Tones    Tones
	Speech   player.SpeechCue
	// Music may be nil when no playlist is configured.
	Music Music
	Logs  player.LogSink
}

// Workout is the process-level coordinator.
type Workout struct {
	live   *settings.Live
	tones  Tones
	speech player.SpeechCue
	music  Music
	ctrl   *player.Controller
	logger *log.Logger

	mu       sync.Mutex
	notify   func()
	closed   bool
	finished chan struct{}
}

// New builds a Workout. opts.OnComplete is called after the workout has
// stopped itself on timer expiry. Music starts right away when enabled.
func New(deps Deps, opts player.Options) *Workout {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	w := &Workout{
		live:     deps.Settings,
		tones:    deps.Tones,
		speech:   deps.Speech,
		music:    deps.Music,
		logger:   logger.WithPrefix("workout"),
		notify:   opts.OnComplete,
		finished: make(chan struct{}, 1),
	}
	opts.OnComplete = w.complete
	w.ctrl = player.New(deps.Settings, deps.Tones, deps.Speech, deps.Logs, opts)
	w.live.Subscribe(w.settingsChanged)

	s := w.live.Get()
	if w.music != nil {
		w.music.SetVolume(s.BackgroundMusicVolume)
		if s.BackgroundMusicEnabled {
			w.playMusic()
		}
	}
	return w
}

// Settings returns the current settings.
func (w *Workout) Settings() model.Settings {
	return w.live.Get()
}

// Snapshot returns the player display state.
func (w *Workout) Snapshot() model.PlayerState {
	return w.ctrl.Snapshot()
}

// MusicPlaying reports whether background music is playing.
func (w *Workout) MusicPlaying() bool {
	return w.music != nil && w.music.Playing()
}

// Finished delivers a value each time a timed session completes.
func (w *Workout) Finished() <-chan struct{} {
	return w.finished
}

// Start starts or resumes the session, and the music when enabled.
func (w *Workout) Start() bool {
	if w.live.Get().BackgroundMusicEnabled {
		w.playMusic()
	}
	return w.ctrl.Start()
}

// Stop stops the session and the music and resets the spoken beat.
func (w *Workout) Stop() {
	w.ctrl.Stop()
	w.stopMusic()
	w.speech.ResetBeat()
}

// TogglePause pauses a running session or resumes a paused one.
func (w *Workout) TogglePause() {
	switch w.ctrl.Snapshot().Status {
	case model.StatusRunning:
		w.ctrl.Pause()
	case model.StatusPaused:
		w.ctrl.Resume()
	}
}

// ToggleRunning starts an idle session and stops any other.
func (w *Workout) ToggleRunning() {
	if w.ctrl.Snapshot().Status == model.StatusIdle {
		w.Start()
		return
	}
	w.Stop()
}

// SetBPM changes the configured tempo; a running session follows at once.
func (w *Workout) SetBPM(bpm int) {
	bpm = model.ClampBPM(bpm)
	_, after := w.live.Update(func(s *model.Settings) { s.BPM = bpm })
	// The subscription only fires on a change; keep the controller in step
	// when the session tempo drifted from the settings.
	if w.ctrl.Snapshot().CurrentBPM != after.BPM {
		w.ctrl.UpdateTempo(after.BPM)
	}
}

// NudgeBPM moves the tempo by delta from the session's current tempo.
func (w *Workout) NudgeBPM(delta int) {
	w.SetBPM(w.ctrl.Snapshot().CurrentBPM + delta)
}

// ToggleCounting flips spoken counting.
func (w *Workout) ToggleCounting() {
	w.live.Update(func(s *model.Settings) { s.EnableCount = !s.EnableCount })
}

// CycleCountMax moves to the next count range.
func (w *Workout) CycleCountMax() {
	w.live.Update(func(s *model.Settings) {
		next := model.CountOptions[0]
		for i, n := range model.CountOptions {
			if n == s.CountMax && i+1 < len(model.CountOptions) {
				next = model.CountOptions[i+1]
			}
		}
		s.CountMax = next
	})
}

// CycleSound moves to the next beat sound, skipping custom when no custom
// sound is configured.
func (w *Workout) CycleSound() {
	w.live.Update(func(s *model.Settings) {
		s.SoundType = nextSound(s.SoundType, s.CustomSoundData != "")
	})
}

func nextSound(cur model.SoundType, haveCustom bool) model.SoundType {
	idx := 0
	for i, st := range model.SoundTypes {
		if st == cur {
			idx = i
		}
	}
	for {
		idx = (idx + 1) % len(model.SoundTypes)
		next := model.SoundTypes[idx]
		if next != model.SoundCustom || haveCustom {
			return next
		}
	}
}

// ToggleMusic flips background music.
func (w *Workout) ToggleMusic() {
	w.live.Update(func(s *model.Settings) { s.BackgroundMusicEnabled = !s.BackgroundMusicEnabled })
}

// SetMusicVolume sets the background music volume.
func (w *Workout) SetMusicVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	w.live.Update(func(s *model.Settings) { s.BackgroundMusicVolume = v })
}

// ApplyFileConfig applies a reloaded config file. Values whose flag name
// pinned reports true keep their current setting. Invalid files leave the
// settings unchanged.
func (w *Workout) ApplyFileConfig(cfg config.FileConfig, pinned func(name string) bool) error {
	var applyErr error
	w.live.Update(func(s *model.Settings) { applyErr = cfg.Apply(s, pinned) })
	if applyErr != nil {
		w.logger.Warn("config not applied", "err", applyErr)
	}
	return applyErr
}

// SetPreset labels recorded sessions with a preset name.
func (w *Workout) SetPreset(name string) {
	w.ctrl.SetPreset(name)
}

// Close stops everything and releases audio, speech and the event loop.
func (w *Workout) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	w.ctrl.Close()
	w.speech.CancelAll()
	var errs []error
	if w.music != nil {
		if err := w.music.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := w.tones.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (w *Workout) settingsChanged(before, after model.Settings) {
	if before.BPM != after.BPM {
		w.ctrl.UpdateTempo(after.BPM)
	}
	if w.music == nil {
		return
	}
	if before.BackgroundMusicVolume != after.BackgroundMusicVolume {
		w.music.SetVolume(after.BackgroundMusicVolume)
	}
	if before.BackgroundMusicEnabled != after.BackgroundMusicEnabled {
		if after.BackgroundMusicEnabled {
			w.playMusic()
		} else {
			w.stopMusic()
		}
	}
}

func (w *Workout) playMusic() {
	if w.music == nil {
		return
	}
	if err := w.music.Play(); err != nil {
		if errors.Is(err, music.ErrNoTracks) {
			w.logger.Warn("background music enabled but the playlist is empty")
			return
		}
		w.logger.Error("failed to play background music", "err", err)
	}
}

func (w *Workout) stopMusic() {
	if w.music != nil {
		w.music.Stop()
	}
}

func (w *Workout) complete() {
	w.stopMusic()
	w.speech.ResetBeat()
	w.logger.Info("timed session complete")
	select {
	case w.finished <- struct{}{}:
	default:
	}
	if w.notify != nil {
		w.notify()
	}
}
