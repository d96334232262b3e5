package tone

import "errors"

var (
	// ErrInvalidCustomSound is returned when custom sound data fails validation.
	ErrInvalidCustomSound = errors.New("invalid custom sound data")
	// ErrCustomSoundPlayback is returned when custom sound data cannot be loaded or played.
	ErrCustomSoundPlayback = errors.New("failed to play custom sound")
	// ErrAudioUnsupported is returned when no audio output can be opened.
	ErrAudioUnsupported = errors.New("audio output not supported")
)
