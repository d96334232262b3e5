package speech

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/verte-zerg/tuibeat/internal/model"
)

type fakeBackend struct {
	mu         sync.Mutex
	spoken     []Utterance
	voices     []Voice
	voiceCalls int
	err        error
	block      bool
	started    chan struct{}
	cancels    int
	voicesErr  error
	// listing, when set, makes Voices block until ctx ends.
	listing chan struct{}
}

func (b *fakeBackend) Speak(ctx context.Context, u Utterance) error {
	b.mu.Lock()
	b.spoken = append(b.spoken, u)
	err, block, started := b.err, b.block, b.started
	b.mu.Unlock()
	if block {
		if started != nil {
			close(started)
		}
		<-ctx.Done()
		return ErrInterrupted
	}
	return err
}

func (b *fakeBackend) Voices(ctx context.Context) ([]Voice, error) {
	b.mu.Lock()
	b.voiceCalls++
	voices, err, listing := b.voices, b.voicesErr, b.listing
	b.mu.Unlock()
	if listing != nil {
		close(listing)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return voices, err
}

func (b *fakeBackend) Cancel() {
	b.mu.Lock()
	b.cancels++
	b.mu.Unlock()
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestSpeakBuildsUtterance(t *testing.T) {
	b := &fakeBackend{voices: []Voice{{ID: "Ting-Ting", Name: "Ting-Ting", Lang: "zh-CN"}}}
	e := NewEngine(b, quietLogger())

	if err := e.Speak(context.Background(), 3, model.LangZH, model.GenderMale, 0.8, 1.5); err != nil {
		t.Fatalf("speak: %v", err)
	}
	u := b.spoken[0]
	if u.Text != "三" || u.Lang != "zh-CN" || u.Voice != "Ting-Ting" {
		t.Fatalf("unexpected utterance: %+v", u)
	}
	if u.Volume != 0.8 || u.Rate != 1.5 || u.Pitch != 0.8 {
		t.Fatalf("unexpected utterance levels: %+v", u)
	}
}

func TestSpeakResolvesInterruptions(t *testing.T) {
	for _, err := range []error{ErrInterrupted, ErrCanceled, context.Canceled} {
		e := NewEngine(&fakeBackend{err: err}, quietLogger())
		if got := e.Speak(context.Background(), 1, model.LangEN, model.GenderFemale, 1, 1); got != nil {
			t.Fatalf("expected %v to resolve, got %v", err, got)
		}
	}
}

func TestSpeakRejectsOtherErrors(t *testing.T) {
	boom := errors.New("synthesis-failed")
	e := NewEngine(&fakeBackend{err: boom}, quietLogger())
	err := e.Speak(context.Background(), 1, model.LangEN, model.GenderFemale, 1, 1)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped backend error, got %v", err)
	}
}

func TestSpeakUnsupported(t *testing.T) {
	e := NewEngine(nil, quietLogger())
	if e.Supported() {
		t.Fatalf("expected unsupported engine")
	}
	if err := e.Speak(context.Background(), 1, model.LangEN, model.GenderMale, 1, 1); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestSpeakBeatWraps(t *testing.T) {
	b := &fakeBackend{}
	e := NewEngine(b, quietLogger())
	for i := 0; i < MaxBeat+2; i++ {
		if err := e.SpeakBeat(context.Background(), model.LangEN, model.GenderFemale, 1, 120); err != nil {
			t.Fatalf("speak beat: %v", err)
		}
	}
	if b.spoken[0].Text != "One" || b.spoken[MaxBeat-1].Text != "Twenty" || b.spoken[MaxBeat].Text != "One" {
		t.Fatalf("unexpected beat sequence: %q %q %q", b.spoken[0].Text, b.spoken[MaxBeat-1].Text, b.spoken[MaxBeat].Text)
	}
	if b.spoken[0].Rate != 2 {
		t.Fatalf("expected rate 2 at 120 BPM, got %v", b.spoken[0].Rate)
	}
	e.ResetBeat()
	if e.Beat() != 1 {
		t.Fatalf("expected beat reset to 1, got %d", e.Beat())
	}
}

func TestCancelAllInterruptsInFlight(t *testing.T) {
	started := make(chan struct{})
	b := &fakeBackend{block: true, started: started}
	e := NewEngine(b, quietLogger())

	done := make(chan error, 1)
	go func() {
		done <- e.Speak(context.Background(), 1, model.LangEN, model.GenderFemale, 1, 1)
	}()
	<-started
	e.CancelAll()
	if err := <-done; err != nil {
		t.Fatalf("expected interrupted speech to resolve, got %v", err)
	}
	if b.cancels != 1 {
		t.Fatalf("expected backend cancel, got %d", b.cancels)
	}
}

func TestVoicesCached(t *testing.T) {
	b := &fakeBackend{voices: []Voice{{ID: "Alex", Lang: "en-US"}}}
	e := NewEngine(b, quietLogger())
	for i := 0; i < 3; i++ {
		if _, err := e.Voices(context.Background()); err != nil {
			t.Fatalf("voices: %v", err)
		}
	}
	if b.voiceCalls != 1 {
		t.Fatalf("expected one backend call, got %d", b.voiceCalls)
	}
	if _, err := e.RefreshVoices(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if b.voiceCalls != 2 {
		t.Fatalf("expected refresh to reload, got %d calls", b.voiceCalls)
	}
}

func TestEmptyVoiceListRetriedAfterInterval(t *testing.T) {
	b := &fakeBackend{}
	e := NewEngine(b, quietLogger())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		if err := e.Speak(context.Background(), 1, model.LangEN, model.GenderMale, 1, 1); err != nil {
			t.Fatalf("speak: %v", err)
		}
	}
	if b.voiceCalls != 1 {
		t.Fatalf("expected one listing within the retry interval, got %d", b.voiceCalls)
	}

	now = now.Add(VoiceRetryInterval)
	b.mu.Lock()
	b.voices = []Voice{{ID: "Alex", Lang: "en-US"}}
	b.mu.Unlock()
	voices, err := e.Voices(context.Background())
	if err != nil || len(voices) != 1 {
		t.Fatalf("expected reload after the interval, got %v %v", voices, err)
	}
	if b.voiceCalls != 2 {
		t.Fatalf("expected a second listing, got %d", b.voiceCalls)
	}
}

func TestFailedVoiceListingBacksOff(t *testing.T) {
	b := &fakeBackend{voicesErr: errors.New("espeak-ng: exit status 1")}
	e := NewEngine(b, quietLogger())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return now }

	if _, err := e.Voices(context.Background()); err == nil {
		t.Fatalf("expected listing error")
	}
	if _, err := e.Voices(context.Background()); err == nil {
		t.Fatalf("expected the cached listing error")
	}
	if b.voiceCalls != 1 {
		t.Fatalf("expected one backend call, got %d", b.voiceCalls)
	}
	now = now.Add(VoiceRetryInterval + time.Second)
	_, _ = e.Voices(context.Background())
	if b.voiceCalls != 2 {
		t.Fatalf("expected retry after the interval, got %d calls", b.voiceCalls)
	}
}

func TestCancelAllStopsColdVoiceListing(t *testing.T) {
	listing := make(chan struct{})
	b := &fakeBackend{listing: listing}
	e := NewEngine(b, quietLogger())

	done := make(chan error, 1)
	go func() {
		done <- e.Speak(context.Background(), 3, model.LangZH, model.GenderFemale, 1, 1)
	}()
	<-listing
	e.CancelAll()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected canceled cue to resolve, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("voice listing was not canceled")
	}
	b.mu.Lock()
	spoken := len(b.spoken)
	b.mu.Unlock()
	if spoken != 0 {
		t.Fatalf("expected nothing spoken after cancel, got %d", spoken)
	}

	b.mu.Lock()
	b.listing = nil
	b.voices = []Voice{{ID: "Ting-Ting", Lang: "zh-CN"}}
	b.mu.Unlock()
	if _, err := e.Voices(context.Background()); err != nil {
		t.Fatalf("expected a canceled listing not to back off, got %v", err)
	}
}
