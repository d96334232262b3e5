// Package tone synthesizes the beat sounds and plays custom sound clips.
package tone

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/verte-zerg/tuibeat/internal/audio"
	"github.com/verte-zerg/tuibeat/internal/model"
)

// CompletionWindow is how long PlayTone waits before resolving.
const CompletionWindow = 200 * time.Millisecond

// Options configures a Synth. Zero values select the system defaults.
type Options struct {
	Open   func() (audio.Output, error)
	Client *http.Client
	Window time.Duration
	Logger *log.Logger
}

// Synth plays synthesized tones and custom clips through a shared output.
// The output is opened on first use and reopened after Close.
type Synth struct {
	open   func() (audio.Output, error)
	client *http.Client
	window time.Duration
	logger *log.Logger

	mu  sync.Mutex
	out audio.Output
}

// New returns a Synth.
func New(opts Options) *Synth {
	s := &Synth{
		open:   opts.Open,
		client: opts.Client,
		window: opts.Window,
		logger: opts.Logger,
	}
	if s.open == nil {
		s.open = func() (audio.Output, error) { return audio.Open() }
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: 10 * time.Second}
	}
	if s.window <= 0 {
		s.window = CompletionWindow
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	s.logger = s.logger.WithPrefix("tone")
	return s
}

func (s *Synth) output() (audio.Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.out != nil {
		return s.out, nil
	}
	out, err := s.open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAudioUnsupported, err)
	}
	s.out = out
	s.logger.Info("audio output opened")
	return out, nil
}

// Resume opens the output if needed and wakes it.
func (s *Synth) Resume() error {
	out, err := s.output()
	if err != nil {
		return err
	}
	if err := out.Resume(); err != nil {
		return fmt.Errorf("failed to resume audio output: %w", err)
	}
	return nil
}

// Output returns the shared output, opening it if needed.
func (s *Synth) Output() (audio.Output, error) {
	return s.output()
}

// PlayTone plays kind at volume. It returns when the completion window has
// elapsed, not when the sound physically ends. Cancelling ctx stops the
// sound and returns ctx.Err().
func (s *Synth) PlayTone(ctx context.Context, kind model.SoundType, volume float64) error {
	out, err := s.output()
	if err != nil {
		return err
	}
	pb, err := out.Play(bytes.NewReader(audio.EncodeMono(Render(kind, volume))), 1)
	if err != nil {
		if errors.Is(err, audio.ErrClosed) {
			s.discard(out)
		}
		return fmt.Errorf("failed to play %s: %w", kind, err)
	}
	timer := time.NewTimer(s.window)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		pb.Stop()
		return ctx.Err()
	}
}

// PlayCustomSound validates data, loads it, and plays it at volume. It
// returns when playback ends.
func (s *Synth) PlayCustomSound(ctx context.Context, data string, volume float64) error {
	src, err := parseCustomSound(data)
	if err != nil {
		return err
	}
	raw, err := src.load(ctx, s.client)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCustomSoundPlayback, err)
	}
	clip, err := audio.DecodeBytes(raw)
	if err != nil {
		return fmt.Errorf("%w: failed to decode: %v", ErrCustomSoundPlayback, err)
	}
	defer func() {
		if cerr := clip.Close(); cerr != nil {
			// Best-effort close.
			_ = cerr
		}
	}()

	out, err := s.output()
	if err != nil {
		return err
	}
	pb, err := out.Play(audio.NewStreamReader(clip), volume)
	if err != nil {
		if errors.Is(err, audio.ErrClosed) {
			s.discard(out)
		}
		return fmt.Errorf("%w: %v", ErrCustomSoundPlayback, err)
	}
	select {
	case <-pb.Done():
		return nil
	case <-ctx.Done():
		pb.Stop()
		return ctx.Err()
	}
}

// Close disposes the output. The next sound reopens it.
func (s *Synth) Close() error {
	s.mu.Lock()
	out := s.out
	s.out = nil
	s.mu.Unlock()
	if out == nil {
		return nil
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close audio output: %w", err)
	}
	s.logger.Info("audio output closed")
	return nil
}

func (s *Synth) discard(out audio.Output) {
	s.mu.Lock()
	if s.out == out {
		s.out = nil
	}
	s.mu.Unlock()
}
