// Package model defines shared data structures.
package model

import (
	"fmt"
	"time"
)

// Tempo bounds and defaults.
const (
	MinBPM     = 30
	MaxBPM     = 200
	DefaultBPM = 60
)

// Timer bounds in minutes.
const (
	MinTimerDuration     = 5
	MaxTimerDuration     = 60
	DefaultTimerDuration = 10
)

// MaxCount is the largest count the spoken counter supports.
const MaxCount = 20

// CountOptions lists the count ranges offered by the player.
var CountOptions = []int{8, 10, 20}

// MaxPresets limits how many presets can be stored.
const MaxPresets = 5

// SoundType selects the beat sound.
type SoundType string

// Supported beat sounds.
const (
	SoundBeep   SoundType = "beep"
	SoundTick   SoundType = "tick"
	SoundClap   SoundType = "clap"
	SoundBell   SoundType = "bell"
	SoundVoice  SoundType = "voice"
	SoundCustom SoundType = "custom"
)

// SoundTypes lists beat sounds in display order.
var SoundTypes = []SoundType{SoundBeep, SoundTick, SoundClap, SoundBell, SoundVoice, SoundCustom}

// ParseSoundType validates a sound type name.
func ParseSoundType(s string) (SoundType, error) {
	for _, st := range SoundTypes {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown sound type %q", s)
}

// VoiceLanguage selects the spoken counting language.
type VoiceLanguage string

// Supported voice languages.
const (
	LangZH VoiceLanguage = "zh"
	LangEN VoiceLanguage = "en"
)

// ParseVoiceLanguage validates a voice language code.
func ParseVoiceLanguage(s string) (VoiceLanguage, error) {
	switch VoiceLanguage(s) {
	case LangZH, LangEN:
		return VoiceLanguage(s), nil
	}
	return "", fmt.Errorf("unknown voice language %q (expected zh or en)", s)
}

// VoiceGender is a voice selection preference.
type VoiceGender string

// Supported voice genders.
const (
	GenderMale   VoiceGender = "male"
	GenderFemale VoiceGender = "female"
)

// ParseVoiceGender validates a voice gender.
func ParseVoiceGender(s string) (VoiceGender, error) {
	switch VoiceGender(s) {
	case GenderMale, GenderFemale:
		return VoiceGender(s), nil
	}
	return "", fmt.Errorf("unknown voice gender %q (expected male or female)", s)
}

// Settings holds the live workout settings.
type Settings struct {
	BPM                    int
	SoundType              SoundType
	CustomSoundData        string
	BackgroundMusicEnabled bool
	BackgroundMusicVolume  float64
	MusicDir               string
	EnableCount            bool
	CountMax               int
	VoiceLanguage          VoiceLanguage
	VoiceGender            VoiceGender
	BeatVolume             float64
	VoiceVolume            float64
	TimerMode              bool
	TimerDuration          int // minutes
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		BPM:                   DefaultBPM,
		SoundType:             SoundBeep,
		BackgroundMusicVolume: 0.5,
		CountMax:              8,
		VoiceLanguage:         LangZH,
		VoiceGender:           GenderFemale,
		BeatVolume:            0.7,
		VoiceVolume:           0.8,
		TimerDuration:         DefaultTimerDuration,
	}
}

// Validate checks that settings are within supported ranges.
func (s Settings) Validate() error {
	if s.BPM < MinBPM || s.BPM > MaxBPM {
		return fmt.Errorf("--bpm must be between %d and %d", MinBPM, MaxBPM)
	}
	if _, err := ParseSoundType(string(s.SoundType)); err != nil {
		return err
	}
	if s.CountMax < 1 || s.CountMax > MaxCount {
		return fmt.Errorf("--count-max must be between 1 and %d", MaxCount)
	}
	if _, err := ParseVoiceLanguage(string(s.VoiceLanguage)); err != nil {
		return err
	}
	if _, err := ParseVoiceGender(string(s.VoiceGender)); err != nil {
		return err
	}
	if !validVolume(s.BeatVolume) {
		return fmt.Errorf("--beat-volume must be between 0 and 1")
	}
	if !validVolume(s.VoiceVolume) {
		return fmt.Errorf("--voice-volume must be between 0 and 1")
	}
	if !validVolume(s.BackgroundMusicVolume) {
		return fmt.Errorf("--music-volume must be between 0 and 1")
	}
	if s.TimerDuration < MinTimerDuration || s.TimerDuration > MaxTimerDuration {
		return fmt.Errorf("--timer-minutes must be between %d and %d", MinTimerDuration, MaxTimerDuration)
	}
	return nil
}

func validVolume(v float64) bool {
	return v >= 0 && v <= 1
}

// ClampBPM bounds a tempo to the supported range.
func ClampBPM(bpm int) int {
	if bpm < MinBPM {
		return MinBPM
	}
	if bpm > MaxBPM {
		return MaxBPM
	}
	return bpm
}

// SessionStatus is the player lifecycle state.
type SessionStatus string

// Player lifecycle states.
const (
	StatusIdle    SessionStatus = "idle"
	StatusRunning SessionStatus = "running"
	StatusPaused  SessionStatus = "paused"
)

// PlayerState is the read-only snapshot exposed to the presentation layer.
type PlayerState struct {
	Status           SessionStatus
	IsPlaying        bool
	IsPaused         bool
	CurrentBPM       int
	CurrentCount     int
	ElapsedSeconds   int
	TimerMode        bool
	RemainingSeconds int
}

// ExerciseLog records a finished workout session.
type ExerciseLog struct {
	ID              string
	StartedAt       time.Time
	EndedAt         time.Time
	DurationSeconds int
	BPM             int
	SoundType       SoundType
	EnableCount     bool
	CountMax        int
	Preset          string
}

// HistoryFilter narrows exercise log queries.
type HistoryFilter struct {
	Since *time.Time
	Last  int
}

// Preset stores a named set of workout settings.
type Preset struct {
	ID        string
	Name      string
	Settings  Settings
	CreatedAt time.Time
}
