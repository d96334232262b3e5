package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/tuibeat/internal/config"
	"github.com/verte-zerg/tuibeat/internal/model"
)

func parsedRoot(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	cmd := newRootCmd()
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return cmd
}

func TestResolveSettingsLayersFlagsOverFile(t *testing.T) {
	cmd := parsedRoot(t, "--bpm", "150", "--sound", "CLAP", "--lang", "en")
	bpm := 90
	count := true
	cfg := config.FileConfig{
		Workout: config.WorkoutConfig{BPM: &bpm},
		Voice:   config.VoiceConfig{Count: &count},
	}

	s, err := resolveSettings(cmd, cfg, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if s.BPM != 150 {
		t.Fatalf("expected flag bpm 150, got %d", s.BPM)
	}
	if !s.EnableCount {
		t.Fatalf("expected count from config file")
	}
	if s.SoundType != model.SoundClap || s.VoiceLanguage != model.LangEN {
		t.Fatalf("unexpected sound/lang: %s/%s", s.SoundType, s.VoiceLanguage)
	}
	if s.MusicDir != config.DefaultMusicDir() {
		t.Fatalf("expected default music dir, got %q", s.MusicDir)
	}
}

func TestResolveSettingsPresetThenFlags(t *testing.T) {
	cmd := parsedRoot(t, "--timer")
	ps := model.DefaultSettings()
	ps.BPM = 45
	ps.SoundType = model.SoundBell
	preset := &model.Preset{Name: "warmup", Settings: ps}

	s, err := resolveSettings(cmd, config.FileConfig{}, preset)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if s.BPM != 45 || s.SoundType != model.SoundBell {
		t.Fatalf("expected preset values, got %d %s", s.BPM, s.SoundType)
	}
	if !s.TimerMode {
		t.Fatalf("expected --timer to override the preset")
	}
	if s.MusicDir == "" {
		t.Fatalf("expected music dir to fall back when the preset has none")
	}
}

func TestResolveSettingsRejectsInvalidValues(t *testing.T) {
	cases := [][]string{
		{"--bpm", "10"},
		{"--sound", "gong"},
		{"--gender", "robot"},
		{"--beat-volume", "1.5"},
		{"--sound", "custom"},
		{"--custom-sound", "data:audio/wav,raw"},
	}
	for _, args := range cases {
		cmd := parsedRoot(t, args...)
		if _, err := resolveSettings(cmd, config.FileConfig{}, nil); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}

func TestHistoryFilter(t *testing.T) {
	filter, err := historyFilter("2026-03-01", 7)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if filter.Last != 7 || filter.Since == nil {
		t.Fatalf("unexpected filter: %+v", filter)
	}
	if got := filter.Since.Format("2006-01-02"); got != "2026-03-01" {
		t.Fatalf("unexpected since: %s", got)
	}
	if _, err := historyFilter("03/01/2026", 0); err == nil {
		t.Fatalf("expected error for bad date")
	}
	if _, err := historyFilter("", -1); err == nil {
		t.Fatalf("expected error for negative --last")
	}
}

func TestStatusLine(t *testing.T) {
	line := statusLine(model.PlayerState{
		Status:           model.StatusRunning,
		CurrentBPM:       120,
		CurrentCount:     3,
		ElapsedSeconds:   65,
		TimerMode:        true,
		RemainingSeconds: 235,
	})
	want := "[running] 120 bpm count 3 elapsed 1:05 remaining 3:55"
	if line != want {
		t.Fatalf("expected %q, got %q", want, line)
	}
	idle := statusLine(model.PlayerState{Status: model.StatusIdle, CurrentBPM: 60})
	if strings.Contains(idle, "count") || strings.Contains(idle, "remaining") {
		t.Fatalf("unexpected idle status: %q", idle)
	}
}

func TestWriteHistoryJSON(t *testing.T) {
	started := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	logs := []model.ExerciseLog{{
		ID:              "a",
		StartedAt:       started,
		EndedAt:         started.Add(5 * time.Minute),
		DurationSeconds: 300,
		BPM:             100,
		SoundType:       model.SoundTick,
		EnableCount:     true,
		CountMax:        8,
	}}
	var buf bytes.Buffer
	if err := writeHistoryJSON(&buf, logs); err != nil {
		t.Fatalf("write: %v", err)
	}
	var got []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0]["sound"] != "tick" || got[0]["duration_seconds"] != float64(300) {
		t.Fatalf("unexpected json: %s", buf.String())
	}
	if _, ok := got[0]["preset"]; ok {
		t.Fatalf("expected empty preset to be omitted")
	}
}

func TestPresetRow(t *testing.T) {
	s := model.DefaultSettings()
	s.EnableCount = true
	s.CountMax = 10
	s.VoiceLanguage = model.LangEN
	s.TimerMode = true
	s.TimerDuration = 20
	row := presetRow(model.Preset{Name: "hiit", Settings: s, CreatedAt: time.Now()})
	if row[0] != "hiit" || row[3] != "1-10 en" || row[4] != "20m" {
		t.Fatalf("unexpected row: %v", row)
	}
}
