// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/verte-zerg/tuibeat/internal/model"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Workout WorkoutConfig `toml:"workout"`
	Voice   VoiceConfig   `toml:"voice"`
	Music   MusicConfig   `toml:"music"`
	Log     LogConfig     `toml:"log"`
}

// WorkoutConfig maps beat and timer settings.
type WorkoutConfig struct {
	BPM          *int     `toml:"bpm"`
	Sound        *string  `toml:"sound"`
	CustomSound  *string  `toml:"custom-sound"`
	BeatVolume   *float64 `toml:"beat-volume"`
	Timer        *bool    `toml:"timer"`
	TimerMinutes *int     `toml:"timer-minutes"`
}

// VoiceConfig maps spoken counting settings.
type VoiceConfig struct {
	Count    *bool    `toml:"count"`
	CountMax *int     `toml:"count-max"`
	Lang     *string  `toml:"lang"`
	Gender   *string  `toml:"gender"`
	Volume   *float64 `toml:"volume"`
}

// MusicConfig maps background music settings.
type MusicConfig struct {
	Enabled *bool    `toml:"enabled"`
	Volume  *float64 `toml:"volume"`
	Dir     *string  `toml:"dir"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Fields names the settings a FileConfig sets, keyed by the matching CLI
// flag name.
func (c FileConfig) Fields() map[string]func(*model.Settings) error {
	out := map[string]func(*model.Settings) error{}
	if v := c.Workout.BPM; v != nil {
		out["bpm"] = func(s *model.Settings) error { s.BPM = *v; return nil }
	}
	if v := c.Workout.Sound; v != nil {
		out["sound"] = func(s *model.Settings) error {
			st, err := model.ParseSoundType(strings.ToLower(strings.TrimSpace(*v)))
			if err != nil {
				return err
			}
			s.SoundType = st
			return nil
		}
	}
	if v := c.Workout.CustomSound; v != nil {
		out["custom-sound"] = func(s *model.Settings) error { s.CustomSoundData = *v; return nil }
	}
	if v := c.Workout.BeatVolume; v != nil {
		out["beat-volume"] = func(s *model.Settings) error { s.BeatVolume = *v; return nil }
	}
	if v := c.Workout.Timer; v != nil {
		out["timer"] = func(s *model.Settings) error { s.TimerMode = *v; return nil }
	}
	if v := c.Workout.TimerMinutes; v != nil {
		out["timer-minutes"] = func(s *model.Settings) error { s.TimerDuration = *v; return nil }
	}
	if v := c.Voice.Count; v != nil {
		out["count"] = func(s *model.Settings) error { s.EnableCount = *v; return nil }
	}
	if v := c.Voice.CountMax; v != nil {
		out["count-max"] = func(s *model.Settings) error { s.CountMax = *v; return nil }
	}
	if v := c.Voice.Lang; v != nil {
		out["lang"] = func(s *model.Settings) error {
			lang, err := model.ParseVoiceLanguage(strings.ToLower(strings.TrimSpace(*v)))
			if err != nil {
				return err
			}
			s.VoiceLanguage = lang
			return nil
		}
	}
	if v := c.Voice.Gender; v != nil {
		out["gender"] = func(s *model.Settings) error {
			g, err := model.ParseVoiceGender(strings.ToLower(strings.TrimSpace(*v)))
			if err != nil {
				return err
			}
			s.VoiceGender = g
			return nil
		}
	}
	if v := c.Voice.Volume; v != nil {
		out["voice-volume"] = func(s *model.Settings) error { s.VoiceVolume = *v; return nil }
	}
	if v := c.Music.Enabled; v != nil {
		out["music"] = func(s *model.Settings) error { s.BackgroundMusicEnabled = *v; return nil }
	}
	if v := c.Music.Volume; v != nil {
		out["music-volume"] = func(s *model.Settings) error { s.BackgroundMusicVolume = *v; return nil }
	}
	if v := c.Music.Dir; v != nil {
		out["music-dir"] = func(s *model.Settings) error { s.MusicDir = *v; return nil }
	}
	return out
}

// Apply writes every value set in the file onto s, except those whose
// flag name pinned reports true. The result is validated; s is left
// untouched on error.
func (c FileConfig) Apply(s *model.Settings, pinned func(name string) bool) error {
	next := *s
	for name, set := range c.Fields() {
		if pinned != nil && pinned(name) {
			continue
		}
		if err := set(&next); err != nil {
			return fmt.Errorf("invalid config value for %s: %w", name, err)
		}
	}
	if err := next.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	*s = next
	return nil
}

// LogLevel returns the configured log level, or fallback when unset.
func (c FileConfig) LogLevel(fallback log.Level) (log.Level, error) {
	if c.Log.Level == nil {
		return fallback, nil
	}
	lvl, err := log.ParseLevel(strings.TrimSpace(*c.Log.Level))
	if err != nil {
		return fallback, fmt.Errorf("invalid log level %q: %w", *c.Log.Level, err)
	}
	return lvl, nil
}

// DefaultTemplate returns the commented config written by `tuibeat config`.
func DefaultTemplate() string {
	d := model.DefaultSettings()
	return fmt.Sprintf(`# tuibeat configuration
# Uncomment a value to enable it. CLI flags override config values.
# The file is reloaded while a workout is playing.

[workout]
# bpm = %d                 # Beats per minute (%d-%d)
# sound = %q           # beep, tick, clap, bell, voice or custom
# custom-sound = ""        # File path, http(s) URL or data: URI for "custom"
# beat-volume = %.1f        # Beat volume (0-1)
# timer = false            # Stop after timer-minutes
# timer-minutes = %d       # Timer length (%d-%d)

[voice]
# count = false            # Speak the count on each beat
# count-max = %d            # Count range (8, 10 or 20)
# lang = %q              # zh or en
# gender = %q        # male or female
# volume = %.1f             # Voice volume (0-1)

[music]
# enabled = false          # Play background music
# volume = %.1f             # Music volume (0-1)
# dir = ""                 # Directory of .mp3/.wav tracks

[log]
# level = "info"           # debug, info, warn or error
`,
		d.BPM, model.MinBPM, model.MaxBPM,
		d.SoundType,
		d.BeatVolume,
		d.TimerDuration, model.MinTimerDuration, model.MaxTimerDuration,
		d.CountMax,
		d.VoiceLanguage,
		d.VoiceGender,
		d.VoiceVolume,
		d.BackgroundMusicVolume,
	)
}
