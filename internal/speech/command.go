package speech

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

const baseWordsPerMinute = 175

// CommandBackend speaks through the say (macOS) or espeak-ng/espeak command.
type CommandBackend struct {
	name string
	path string

	mu      sync.Mutex
	running map[*exec.Cmd]bool
}

// NewCommandBackend returns a backend running the binary at path. name
// selects the argument dialect: "say", "espeak-ng" or "espeak".
func NewCommandBackend(name, path string) *CommandBackend {
	return &CommandBackend{name: name, path: path, running: make(map[*exec.Cmd]bool)}
}

// DetectBackend finds a speech command on PATH.
func DetectBackend() (*CommandBackend, error) {
	candidates := []string{"espeak-ng", "espeak"}
	if runtime.GOOS == "darwin" {
		candidates = append([]string{"say"}, candidates...)
	}
	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			return NewCommandBackend(name, path), nil
		}
	}
	return nil, ErrUnsupported
}

// Name returns the command dialect.
func (b *CommandBackend) Name() string {
	return b.name
}

// Speak runs the command and waits for it to exit.
func (b *CommandBackend) Speak(ctx context.Context, u Utterance) error {
	cmd := exec.CommandContext(ctx, b.path, b.args(u)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	b.mu.Lock()
	if err := cmd.Start(); err != nil {
		b.mu.Unlock()
		return fmt.Errorf("failed to start %s: %w", b.name, err)
	}
	b.running[cmd] = false
	b.mu.Unlock()

	err := cmd.Wait()

	b.mu.Lock()
	interrupted := b.running[cmd]
	delete(b.running, cmd)
	b.mu.Unlock()

	switch {
	case interrupted:
		return ErrInterrupted
	case ctx.Err() != nil:
		return fmt.Errorf("%w: %v", ErrCanceled, ctx.Err())
	case err != nil:
		return fmt.Errorf("failed to run %s: %w: %s", b.name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Cancel kills every running utterance.
func (b *CommandBackend) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for cmd := range b.running {
		b.running[cmd] = true
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
	}
}

func (b *CommandBackend) args(u Utterance) []string {
	wpm := strconv.Itoa(int(math.Round(baseWordsPerMinute * u.Rate)))
	if b.name == "say" {
		var args []string
		if u.Voice != "" {
			args = append(args, "-v", u.Voice)
		}
		text := fmt.Sprintf("[[volm %.2f]] %s", u.Volume, u.Text)
		return append(args, "-r", wpm, text)
	}

	voice := u.Voice
	if voice == "" {
		voice = strings.ToLower(u.Lang)
	}
	return []string{
		"-v", voice,
		"-s", wpm,
		"-a", strconv.Itoa(int(math.Round(u.Volume * 100))),
		"-p", strconv.Itoa(clampInt(int(math.Round(u.Pitch*50)), 0, 99)),
		u.Text,
	}
}

// Voices lists installed voices.
func (b *CommandBackend) Voices(ctx context.Context) ([]Voice, error) {
	var args []string
	if b.name == "say" {
		args = []string{"-v", "?"}
	} else {
		args = []string{"--voices"}
	}
	out, err := exec.CommandContext(ctx, b.path, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("failed to list %s voices: %w: %s", b.name, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("failed to list %s voices: %w", b.name, err)
	}
	if b.name == "say" {
		return parseSayVoices(out), nil
	}
	return parseEspeakVoices(out), nil
}

var sayVoiceLine = regexp.MustCompile(`^(.+?)\s+([a-z]{2,3}[_-][A-Za-z0-9]+)\s+#`)

// parseSayVoices reads `say -v ?` output:
//
//	Samantha            en_US    # Hello! My name is Samantha.
func parseSayVoices(out []byte) []Voice {
	var voices []Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		m := sayVoiceLine.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		voices = append(voices, Voice{
			ID:   name,
			Name: name,
			Lang: strings.ReplaceAll(m[2], "_", "-"),
		})
	}
	return voices
}

var espeakAlias = regexp.MustCompile(`\(([A-Za-z-]+)\s+\d+\)`)

// parseEspeakVoices reads `espeak-ng --voices` output:
//
//	Pty Language       Age/Gender VoiceName          File          Other Languages
//	 5  cmn             --/M      Chinese_(Mandarin) sit/cmn       (zh-cmn 5)(zh 5)
func parseEspeakVoices(out []byte) []Voice {
	var voices []Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	first := true
	for sc.Scan() {
		line := sc.Text()
		if first {
			first = false
			if strings.HasPrefix(strings.TrimSpace(line), "Pty") {
				continue
			}
		}
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}
		v := Voice{
			ID:   fields[1],
			Name: strings.ReplaceAll(fields[3], "_", " "),
			Lang: fields[1],
		}
		switch {
		case strings.HasSuffix(fields[2], "/M"):
			v.Gender = "male"
		case strings.HasSuffix(fields[2], "/F"):
			v.Gender = "female"
		}
		for _, m := range espeakAlias.FindAllStringSubmatch(strings.Join(fields[5:], " "), -1) {
			v.Aliases = append(v.Aliases, m[1])
		}
		voices = append(voices, v)
	}
	return voices
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
