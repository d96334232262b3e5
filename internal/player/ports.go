package player

import (
	"context"

	"github.com/verte-zerg/tuibeat/internal/model"
)

// ToneSource plays beat sounds.
type ToneSource interface {
	Resume() error
	PlayTone(ctx context.Context, kind model.SoundType, volume float64) error
	PlayCustomSound(ctx context.Context, data string, volume float64) error
}

// SpeechCue speaks counting cues.
type SpeechCue interface {
	Supported() bool
	Speak(ctx context.Context, n int, lang model.VoiceLanguage, gender model.VoiceGender, volume, rate float64) error
	SpeakBeat(ctx context.Context, lang model.VoiceLanguage, gender model.VoiceGender, volume float64, bpm int) error
	ResetBeat()
	CancelAll()
}

// LogSink records finished sessions.
type LogSink interface {
	AppendExerciseLog(ctx context.Context, entry model.ExerciseLog) error
}

// SettingsSource returns the live settings. It is read on every beat.
type SettingsSource interface {
	Settings() model.Settings
}
