// Package player runs a workout session: it drives the beat scheduler,
// dispatches sound and speech cues, tracks time, and records the session.
package player

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/verte-zerg/tuibeat/internal/beat"
	"github.com/verte-zerg/tuibeat/internal/model"
	"github.com/verte-zerg/tuibeat/internal/speech"
)

// Options configures a Controller. Zero values select the production
// behaviour: the wall clock, a private event loop and goroutine cues.
type Options struct {
	Clock beat.Clock
	// Post queues a closure on the controller's goroutine; Do runs one and
	// waits. Both must be set together.
	Post func(func())
	Do   func(func())
	// Spawn runs a cue task.
	Spawn func(func())
	// OnComplete is called once when a timed session runs out.
	OnComplete func()
	Logger     *log.Logger
	NewID      func() string
}

// Controller is the session state machine. Every state change happens on
// one goroutine; Snapshot may be called from anywhere.
type Controller struct {
	settings SettingsSource
	tones    ToneSource
	speech   SpeechCue
	logs     LogSink

	clock      beat.Clock
	post       func(func())
	do         func(func())
	spawn      func(func())
	onComplete func()
	logger     *log.Logger
	newID      func() string
	loop       *beat.Loop

	sched *beat.Scheduler

	// owned by the controller goroutine
	status    model.SessionStatus
	bpm       int
	count     int
	elapsed   int
	remaining int
	timed     bool
	startedAt time.Time
	preset    string
	session   context.Context
	cancel    context.CancelFunc
	completed bool

	mu   sync.RWMutex
	snap model.PlayerState
}

// New returns an idle Controller. logs may be nil to skip history.
func New(settings SettingsSource, tones ToneSource, cues SpeechCue, logs LogSink, opts Options) *Controller {
	c := &Controller{
		settings:   settings,
		tones:      tones,
		speech:     cues,
		logs:       logs,
		clock:      opts.Clock,
		post:       opts.Post,
		do:         opts.Do,
		spawn:      opts.Spawn,
		onComplete: opts.OnComplete,
		logger:     opts.Logger,
		newID:      opts.NewID,
		status:     model.StatusIdle,
	}
	if c.clock == nil {
		c.clock = beat.RealClock()
	}
	if c.post == nil || c.do == nil {
		c.loop = beat.NewLoop()
		go c.loop.Run()
		c.post = c.loop.Dispatch
		c.do = func(f func()) { c.loop.Do(f) }
	}
	if c.spawn == nil {
		c.spawn = func(f func()) { go f() }
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	c.logger = c.logger.WithPrefix("player")
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	s := settings.Settings()
	c.bpm = model.ClampBPM(s.BPM)
	c.remaining = timerSeconds(s)
	c.sched = beat.NewScheduler(c.clock, c.post, func() int { return c.bpm }, c.onTick)
	c.publish()
	return c
}

// Start begins a session, or resumes a paused one. It reports whether the
// state changed.
func (c *Controller) Start() bool {
	var ok bool
	c.do(func() { ok = c.start() })
	return ok
}

// Stop ends the session and records it when any time has elapsed.
func (c *Controller) Stop() {
	c.do(c.stop)
}

// Pause suspends a running session.
func (c *Controller) Pause() bool {
	var ok bool
	c.do(func() { ok = c.pause() })
	return ok
}

// Resume continues a paused session.
func (c *Controller) Resume() bool {
	var ok bool
	c.do(func() { ok = c.resume() })
	return ok
}

// UpdateTempo changes the tempo. A running session reschedules its next
// beat immediately.
func (c *Controller) UpdateTempo(bpm int) {
	c.do(func() { c.updateTempo(bpm) })
}

// SetPreset labels the sessions that follow with a preset name.
func (c *Controller) SetPreset(name string) {
	c.do(func() { c.preset = name })
}

// Snapshot returns the current display state.
func (c *Controller) Snapshot() model.PlayerState {
	c.mu.RLock()
	st := c.snap
	c.mu.RUnlock()
	if st.Status == model.StatusIdle {
		s := c.settings.Settings()
		st.TimerMode = s.TimerMode
		st.RemainingSeconds = timerSeconds(s)
	}
	return st
}

// Close stops the session and shuts the event loop down.
func (c *Controller) Close() {
	c.do(c.stop)
	if c.loop != nil {
		c.loop.Close()
	}
}

func (c *Controller) start() bool {
	switch c.status {
	case model.StatusRunning:
		return false
	case model.StatusPaused:
		return c.resume()
	}
	s := c.settings.Settings()
	c.count = 0
	c.elapsed = 0
	c.remaining = timerSeconds(s)
	c.timed = s.TimerMode
	c.completed = false
	c.speech.ResetBeat()
	if err := c.tones.Resume(); err != nil {
		c.logger.Warn("audio output unavailable", "err", err)
	}
	c.session, c.cancel = context.WithCancel(context.Background())
	c.startedAt = c.clock.Now()
	c.status = model.StatusRunning
	c.logger.Info("session started", "bpm", c.bpm, "sound", s.SoundType, "timer", s.TimerMode, "remaining", c.remaining)
	c.sched.Start()
	c.publish()
	return true
}

func (c *Controller) onTick(t beat.Tick) bool {
	s := c.settings.Settings()
	if t.Index == 0 {
		c.playBeat(s)
		return true
	}

	c.elapsed = int(t.Elapsed / time.Second)
	c.count++
	if s.EnableCount && c.count > s.CountMax {
		c.count = 1
	}
	if c.timed {
		c.remaining--
		if c.remaining <= 0 {
			c.logger.Info("timer finished", "elapsed", c.elapsed)
			c.finish()
			return false
		}
	}
	c.logger.Debug("beat", "index", t.Index, "count", c.count, "elapsed", c.elapsed, "remaining", c.remaining)

	c.playBeat(s)
	if s.EnableCount && c.speech.Supported() && c.count <= s.CountMax {
		c.speakCount(s, c.count)
	}
	c.publish()
	return true
}

func (c *Controller) finish() {
	c.stop()
	if c.completed {
		return
	}
	c.completed = true
	if c.onComplete != nil {
		c.spawn(c.onComplete)
	}
}

func (c *Controller) playBeat(s model.Settings) {
	bpm := c.bpm
	switch {
	case s.SoundType == model.SoundVoice:
		c.cue("voice beat", func(ctx context.Context) error {
			return c.speech.SpeakBeat(ctx, s.VoiceLanguage, s.VoiceGender, s.BeatVolume, bpm)
		})
	case s.SoundType == model.SoundCustom && s.CustomSoundData != "":
		c.cue("custom sound", func(ctx context.Context) error {
			return c.tones.PlayCustomSound(ctx, s.CustomSoundData, s.BeatVolume)
		})
	default:
		kind := s.SoundType
		if kind == model.SoundCustom {
			kind = model.SoundBeep
		}
		c.cue("tone", func(ctx context.Context) error {
			return c.tones.PlayTone(ctx, kind, s.BeatVolume)
		})
	}
}

func (c *Controller) speakCount(s model.Settings, n int) {
	rate := speech.SpeechRate(c.bpm)
	c.cue("count", func(ctx context.Context) error {
		return c.speech.Speak(ctx, n, s.VoiceLanguage, s.VoiceGender, s.VoiceVolume, rate)
	})
}

// cue runs fn as a detached task bound to the current session.
func (c *Controller) cue(name string, fn func(context.Context) error) {
	parent := c.session
	if parent == nil {
		parent = context.Background()
	}
	c.spawn(func() {
		ctx, cancel := context.WithCancel(parent)
		defer cancel()
		if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Warn("cue failed", "cue", name, "err", err)
		}
	})
}

func (c *Controller) stop() {
	if c.status == model.StatusIdle {
		return
	}
	c.sched.Stop()
	c.speech.CancelAll()
	if c.cancel != nil {
		c.cancel()
	}

	s := c.settings.Settings()
	if c.elapsed > 0 {
		c.record(s)
	}
	c.logger.Info("session stopped", "elapsed", c.elapsed)

	c.status = model.StatusIdle
	c.timed = false
	c.count = 0
	c.elapsed = 0
	c.remaining = timerSeconds(s)
	c.bpm = model.ClampBPM(s.BPM)
	c.speech.ResetBeat()
	c.publish()
}

func (c *Controller) record(s model.Settings) {
	if c.logs == nil {
		return
	}
	entry := model.ExerciseLog{
		ID:              c.newID(),
		StartedAt:       c.startedAt,
		EndedAt:         c.clock.Now(),
		DurationSeconds: c.elapsed,
		BPM:             c.bpm,
		SoundType:       s.SoundType,
		EnableCount:     s.EnableCount,
		CountMax:        s.CountMax,
		Preset:          c.preset,
	}
	if err := c.logs.AppendExerciseLog(context.Background(), entry); err != nil {
		c.logger.Error("failed to record session", "err", err)
	}
}

func (c *Controller) pause() bool {
	if c.status != model.StatusRunning {
		return false
	}
	c.sched.Pause()
	c.speech.CancelAll()
	if c.cancel != nil {
		c.cancel()
	}
	c.status = model.StatusPaused
	c.logger.Info("session paused", "elapsed", c.elapsed)
	c.publish()
	return true
}

func (c *Controller) resume() bool {
	if c.status != model.StatusPaused {
		return false
	}
	if err := c.tones.Resume(); err != nil {
		c.logger.Warn("audio output unavailable", "err", err)
	}
	c.session, c.cancel = context.WithCancel(context.Background())
	c.status = model.StatusRunning
	c.sched.Resume()
	c.logger.Info("session resumed", "elapsed", c.elapsed)
	c.publish()
	return true
}

func (c *Controller) updateTempo(bpm int) {
	c.bpm = model.ClampBPM(bpm)
	running := c.status == model.StatusRunning
	if running && c.settings.Settings().SoundType == model.SoundVoice {
		c.speech.CancelAll()
	}
	if running {
		c.sched.Reschedule()
	}
	c.logger.Debug("tempo updated", "bpm", c.bpm, "running", running)
	c.publish()
}

func (c *Controller) publish() {
	st := model.PlayerState{
		Status:           c.status,
		IsPlaying:        c.status == model.StatusRunning,
		IsPaused:         c.status == model.StatusPaused,
		CurrentBPM:       c.bpm,
		CurrentCount:     c.count,
		ElapsedSeconds:   c.elapsed,
		TimerMode:        c.timed,
		RemainingSeconds: c.remaining,
	}
	c.mu.Lock()
	c.snap = st
	c.mu.Unlock()
}

func timerSeconds(s model.Settings) int {
	if !s.TimerMode {
		return 0
	}
	return s.TimerDuration * 60
}
