package texttospeech

import (
	"context"
	"errors"
)

var (
	// ErrCanceled is reported for an utterance that was cut short by Cancel or
	// by a newer Speak.
	ErrCanceled = errors.New("speech canceled")
	// ErrUnavailable is reported when the speech backend cannot be reached.
	ErrUnavailable = errors.New("speech synthesis unavailable")
)

// SpeechDevice synthesizes and plays one utterance at a time.
//
// Speak returns as soon as the utterance is queued. Exactly one of the ended
// or error callbacks fires for every accepted utterance. Speaking while an
// utterance is playing cancels the old one first.
type SpeechDevice interface {
	Speak(ctx context.Context, text string, opts ...SpeechOption) error
	Cancel() error
	Voices() []Voice
}
