package speech

import "errors"

var (
	// ErrUnsupported is returned when no speech backend is available.
	ErrUnsupported = errors.New("speech synthesis not supported")
	// ErrInterrupted is returned when an utterance was cut off by CancelAll.
	ErrInterrupted = errors.New("speech interrupted")
	// ErrCanceled is returned when an utterance's context ended before it finished.
	ErrCanceled = errors.New("speech canceled")
)
