package speech

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/verte-zerg/tuibeat/internal/model"
)

// MaxBeat is where the spoken beat number wraps back to 1.
const MaxBeat = 20

// VoiceRetryInterval is how long a failed or empty voice listing is reused
// before the backend is asked again.
const VoiceRetryInterval = 30 * time.Second

// Utterance is one request to a backend.
type Utterance struct {
	Text   string
	Lang   string
	Voice  string
	Volume float64
	Rate   float64
	Pitch  float64
}

// Backend speaks utterances.
type Backend interface {
	// Speak blocks until the utterance finishes. It returns ErrInterrupted
	// when Cancel cut it off and ErrCanceled when ctx ended first.
	Speak(ctx context.Context, u Utterance) error
	Voices(ctx context.Context) ([]Voice, error)
	// Cancel interrupts every utterance in flight.
	Cancel()
}

// Engine turns counting cues into utterances. It is safe for concurrent use.
type Engine struct {
	backend Backend
	logger  *log.Logger
	now     func() time.Time

	mu         sync.Mutex
	voices     []Voice
	voicesErr  error
	voiceRetry time.Time
	beat       int
	nextID  uint64
	cancels map[uint64]context.CancelFunc
}

// NewEngine returns an Engine speaking through backend. A nil backend
// yields an engine whose cues fail with ErrUnsupported.
func NewEngine(backend Backend, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		backend: backend,
		logger:  logger.WithPrefix("speech"),
		now:     time.Now,
		beat:    1,
		cancels: make(map[uint64]context.CancelFunc),
	}
}

// Supported reports whether a backend is available.
func (e *Engine) Supported() bool {
	return e.backend != nil
}

// Speak says n in lang. Interrupted or canceled speech is not an error.
func (e *Engine) Speak(ctx context.Context, n int, lang model.VoiceLanguage, gender model.VoiceGender, volume, rate float64) error {
	if e.backend == nil {
		return ErrUnsupported
	}
	u := Utterance{
		Text:   NumberText(n, lang),
		Lang:   LangTag(lang),
		Volume: volume,
		Rate:   rate,
		Pitch:  Pitch(gender),
	}
	cueCtx, id := e.track(ctx)
	defer e.untrack(id)

	voices, err := e.Voices(cueCtx)
	if cueCtx.Err() != nil {
		return nil
	}
	if err != nil {
		e.logger.Debug("voice list unavailable, using default voice", "err", err)
	}
	if v, ok := SelectVoice(voices, lang, gender); ok {
		u.Voice = v.ID
	} else {
		e.logger.Debug("no voice for language, using default voice", "lang", lang)
	}

	e.logger.Debug("speaking", "text", u.Text, "voice", u.Voice, "rate", u.Rate)
	err = e.backend.Speak(cueCtx, u)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInterrupted), errors.Is(err, ErrCanceled),
		errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		e.logger.Debug("speech cut short", "text", u.Text, "err", err)
		return nil
	default:
		return fmt.Errorf("failed to speak %q: %w", u.Text, err)
	}
}

// SpeakBeat speaks the engine's rotating beat number at a rate derived
// from bpm, then advances it.
func (e *Engine) SpeakBeat(ctx context.Context, lang model.VoiceLanguage, gender model.VoiceGender, volume float64, bpm int) error {
	return e.Speak(ctx, e.nextBeat(), lang, gender, volume, SpeechRate(bpm))
}

// ResetBeat makes the next SpeakBeat say one.
func (e *Engine) ResetBeat() {
	e.mu.Lock()
	e.beat = 1
	e.mu.Unlock()
}

// Beat returns the number the next SpeakBeat will say.
func (e *Engine) Beat() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.beat
}

func (e *Engine) nextBeat() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := e.beat
	e.beat++
	if e.beat > MaxBeat {
		e.beat = 1
	}
	return n
}

// CancelAll stops every utterance in flight.
func (e *Engine) CancelAll() {
	e.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(e.cancels))
	for id, cancel := range e.cancels {
		cancels = append(cancels, cancel)
		delete(e.cancels, id)
	}
	e.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	if e.backend != nil {
		e.backend.Cancel()
	}
}

// Voices returns the backend's voices, loading them on first use. An
// empty or failed listing is reused for VoiceRetryInterval.
func (e *Engine) Voices(ctx context.Context) ([]Voice, error) {
	e.mu.Lock()
	cached, cachedErr, retry := e.voices, e.voicesErr, e.voiceRetry
	e.mu.Unlock()
	if len(cached) > 0 {
		return cached, nil
	}
	if !retry.IsZero() && e.now().Before(retry) {
		return nil, cachedErr
	}
	return e.RefreshVoices(ctx)
}

// RefreshVoices reloads the voice list from the backend.
func (e *Engine) RefreshVoices(ctx context.Context) ([]Voice, error) {
	if e.backend == nil {
		return nil, ErrUnsupported
	}
	voices, err := e.backend.Voices(ctx)
	if err != nil {
		err = fmt.Errorf("failed to list voices: %w", err)
		// A listing cut off by cancellation says nothing about the backend.
		if ctx.Err() == nil {
			e.backoffVoices(err)
		}
		return nil, err
	}
	e.mu.Lock()
	e.voices = voices
	e.voicesErr = nil
	e.voiceRetry = time.Time{}
	e.mu.Unlock()
	if len(voices) == 0 {
		e.backoffVoices(nil)
	}
	e.logger.Info("voices loaded", "count", len(voices))
	return voices, nil
}

func (e *Engine) backoffVoices(err error) {
	e.mu.Lock()
	e.voicesErr = err
	e.voiceRetry = e.now().Add(VoiceRetryInterval)
	e.mu.Unlock()
}

func (e *Engine) track(ctx context.Context) (context.Context, uint64) {
	cueCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.cancels[id] = cancel
	e.mu.Unlock()
	return cueCtx, id
}

func (e *Engine) untrack(id uint64) {
	e.mu.Lock()
	cancel, ok := e.cancels[id]
	delete(e.cancels, id)
	e.mu.Unlock()
	if ok {
		cancel()
	}
}
