package audio

import "context"

// Input is a microphone that can be switched on and off without being
// reinitialized. Recognition devices own an Input for the lifetime of a
// listening session.
type Input interface {
	EncodingInfo() EncodingInfo
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
}

// Output plays synthesized speech.
//
// Mark registers a callback that fires once all audio sent before the mark
// has been played. ClearBuffer drops queued audio and pending marks without
// firing them.
type Output interface {
	EncodingInfo() EncodingInfo
	SendAudio(audio []byte) error
	Mark(name string, callback func(string)) error
	ClearBuffer()
}

// Device is a paired microphone and speaker.
type Device interface {
	Input
	Output
	Close()
}
