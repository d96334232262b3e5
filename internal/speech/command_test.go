package speech

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"
	"time"
)

func TestSayArgs(t *testing.T) {
	b := NewCommandBackend("say", "/usr/bin/say")
	got := b.args(Utterance{Text: "Eight", Voice: "Samantha", Volume: 0.5, Rate: 2})
	want := []string{"-v", "Samantha", "-r", "350", "[[volm 0.50]] Eight"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("args = %q, want %q", got, want)
	}
}

func TestEspeakArgs(t *testing.T) {
	b := NewCommandBackend("espeak-ng", "/usr/bin/espeak-ng")
	got := b.args(Utterance{Text: "One", Lang: "en-US", Volume: 0.8, Rate: 1, Pitch: 1.2})
	want := []string{"-v", "en-us", "-s", "175", "-a", "80", "-p", "60", "One"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("args = %q, want %q", got, want)
	}
}

func TestParseSayVoices(t *testing.T) {
	out := []byte(`Alex                en_US    # Most people recognize me by my voice.
Eddy (English (US)) en_US    # Hello! My name is Eddy.
Ting-Ting           zh_CN    # 你好，我叫婷婷。
not a voice line
`)
	voices := parseSayVoices(out)
	if len(voices) != 3 {
		t.Fatalf("expected 3 voices, got %d: %+v", len(voices), voices)
	}
	if voices[1].Name != "Eddy (English (US))" || voices[1].Lang != "en-US" {
		t.Fatalf("unexpected voice: %+v", voices[1])
	}
	if voices[2].ID != "Ting-Ting" || voices[2].Lang != "zh-CN" {
		t.Fatalf("unexpected voice: %+v", voices[2])
	}
}

func TestParseEspeakVoices(t *testing.T) {
	out := []byte(`Pty Language       Age/Gender VoiceName          File                 Other Languages
 5  af              --/M      Afrikaans          gmw/af
 5  cmn             --/M      Chinese_(Mandarin) sit/cmn              (zh-cmn 5)(zh 5)
 5  en-us           --/F      English_(America)  gmw/en-US            (en 3)
`)
	voices := parseEspeakVoices(out)
	if len(voices) != 3 {
		t.Fatalf("expected 3 voices, got %d", len(voices))
	}
	cmn := voices[1]
	if cmn.ID != "cmn" || cmn.Name != "Chinese (Mandarin)" || cmn.Gender != "male" {
		t.Fatalf("unexpected voice: %+v", cmn)
	}
	if !reflect.DeepEqual(cmn.Aliases, []string{"zh-cmn", "zh"}) {
		t.Fatalf("unexpected aliases: %q", cmn.Aliases)
	}
	if voices[2].Gender != "female" {
		t.Fatalf("expected female voice, got %+v", voices[2])
	}
}

func fakeSpeaker(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts unavailable")
	}
	path := filepath.Join(t.TempDir(), "espeak-ng")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestCommandSpeakSucceeds(t *testing.T) {
	b := NewCommandBackend("espeak-ng", fakeSpeaker(t, "exit 0"))
	if err := b.Speak(context.Background(), Utterance{Text: "One", Lang: "en-US", Volume: 1, Rate: 1}); err != nil {
		t.Fatalf("speak: %v", err)
	}
}

func TestCommandSpeakFailure(t *testing.T) {
	b := NewCommandBackend("espeak-ng", fakeSpeaker(t, "echo broken >&2; exit 3"))
	err := b.Speak(context.Background(), Utterance{Text: "One", Lang: "en-US"})
	if err == nil || errors.Is(err, ErrInterrupted) || errors.Is(err, ErrCanceled) {
		t.Fatalf("expected hard failure, got %v", err)
	}
}

func TestCommandCancelInterrupts(t *testing.T) {
	b := NewCommandBackend("espeak-ng", fakeSpeaker(t, "exec sleep 5"))
	done := make(chan error, 1)
	go func() {
		done <- b.Speak(context.Background(), Utterance{Text: "One", Lang: "en-US"})
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		b.mu.Lock()
		n := len(b.running)
		b.mu.Unlock()
		if n > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	b.Cancel()

	select {
	case err := <-done:
		if !errors.Is(err, ErrInterrupted) {
			t.Fatalf("expected ErrInterrupted, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("speak did not return after cancel")
	}
}

func TestCommandContextCancel(t *testing.T) {
	b := NewCommandBackend("espeak-ng", fakeSpeaker(t, "exec sleep 5"))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := b.Speak(ctx, Utterance{Text: "One", Lang: "en-US"}); !errors.Is(err, ErrCanceled) {
		t.Fatalf("expected ErrCanceled, got %v", err)
	}
}
