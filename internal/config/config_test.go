package config

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/verte-zerg/tuibeat/internal/model"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if len(cfg.Fields()) != 0 {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadConfigEmptyPath(t *testing.T) {
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestLoadConfigDecodeError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[workout\nbpm = "), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestApplyRespectsPinnedFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[workout]
bpm = 120
sound = "Clap"
timer = true
timer-minutes = 15

[voice]
count = true
count-max = 10
lang = "en"
gender = "male"

[music]
enabled = true
volume = 0.25
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	s := model.DefaultSettings()
	s.BPM = 90
	pinned := func(name string) bool { return name == "bpm" }
	if err := cfg.Apply(&s, pinned); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if s.BPM != 90 {
		t.Fatalf("pinned bpm was overwritten: %d", s.BPM)
	}
	if s.SoundType != model.SoundClap || !s.TimerMode || s.TimerDuration != 15 {
		t.Fatalf("workout section not applied: %+v", s)
	}
	if !s.EnableCount || s.CountMax != 10 || s.VoiceLanguage != model.LangEN || s.VoiceGender != model.GenderMale {
		t.Fatalf("voice section not applied: %+v", s)
	}
	if !s.BackgroundMusicEnabled || s.BackgroundMusicVolume != 0.25 {
		t.Fatalf("music section not applied: %+v", s)
	}
}

func TestApplyInvalidLeavesSettings(t *testing.T) {
	bpm := 500
	cfg := FileConfig{Workout: WorkoutConfig{BPM: &bpm}}
	s := model.DefaultSettings()
	if err := cfg.Apply(&s, nil); err == nil {
		t.Fatalf("expected validation error")
	}
	if s.BPM != model.DefaultBPM {
		t.Fatalf("settings changed on error: %d", s.BPM)
	}

	sound := "whistle"
	cfg = FileConfig{Workout: WorkoutConfig{Sound: &sound}}
	if err := cfg.Apply(&s, nil); err == nil || !strings.Contains(err.Error(), "sound") {
		t.Fatalf("expected sound error, got %v", err)
	}
}

func TestLogLevel(t *testing.T) {
	var cfg FileConfig
	lvl, err := cfg.LogLevel(log.InfoLevel)
	if err != nil || lvl != log.InfoLevel {
		t.Fatalf("expected fallback, got %v/%v", lvl, err)
	}
	debug := "debug"
	cfg.Log.Level = &debug
	if lvl, err := cfg.LogLevel(log.InfoLevel); err != nil || lvl != log.DebugLevel {
		t.Fatalf("expected debug, got %v/%v", lvl, err)
	}
	bad := "loud"
	cfg.Log.Level = &bad
	if _, err := cfg.LogLevel(log.InfoLevel); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestDefaultTemplateDecodes(t *testing.T) {
	var cfg FileConfig
	if _, err := toml.Decode(DefaultTemplate(), &cfg); err != nil {
		t.Fatalf("template should decode: %v", err)
	}
	if len(cfg.Fields()) != 0 {
		t.Fatalf("template should leave every value commented out")
	}
	for _, section := range []string{"[workout]", "[voice]", "[music]", "[log]"} {
		if !strings.Contains(DefaultTemplate(), section) {
			t.Fatalf("template missing %s", section)
		}
	}
}

func TestDefaultPathsUseXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")
	if got := DefaultConfigPath(); got != filepath.Join("/cfg", "tuibeat", "config.toml") {
		t.Fatalf("unexpected config path %s", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/data", "tuibeat", "tuibeat.db") {
		t.Fatalf("unexpected db path %s", got)
	}
	if got := DefaultLogPath(); got != filepath.Join("/data", "tuibeat", "tuibeat.log") {
		t.Fatalf("unexpected log path %s", got)
	}
	if got := DefaultMusicDir(); got != filepath.Join("/data", "tuibeat", "music") {
		t.Fatalf("unexpected music dir %s", got)
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[workout]\nbpm = 80\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan FileConfig, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, 20*time.Millisecond, log.New(io.Discard), func(cfg FileConfig) {
			changes <- cfg
		})
	}()

	// Give the watcher time to register before writing.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		if err := os.WriteFile(path, []byte("[workout]\nbpm = 140\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		select {
		case cfg := <-changes:
			if cfg.Workout.BPM == nil || *cfg.Workout.BPM != 140 {
				t.Fatalf("unexpected reload: %+v", cfg.Workout)
			}
			cancel()
			if err := <-done; err != nil {
				t.Fatalf("watch returned %v", err)
			}
			return
		case <-tick.C:
		case <-deadline:
			t.Fatalf("timed out waiting for reload")
		}
	}
}
