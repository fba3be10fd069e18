package speechtotext

import "github.com/koscakluka/ema-calendar/core/audio"

type TranscriptionOptions struct {
	InterimTranscriptionCallback func(transcript string)
	TranscriptionCallback        func(transcript string)

	// StartedCallback is called once the device is actually capturing and
	// recognizing audio.
	StartedCallback func()
	// EndedCallback is called exactly once per successful Listen, after the
	// session has fully wound down, whether it was stopped or ended on its own.
	EndedCallback func()
	// ErrorCallback receives errors raised while the session is running,
	// usually a [*RecognitionError]. An error may or may not be followed by
	// EndedCallback.
	ErrorCallback func(err error)

	Language     string
	EncodingInfo audio.EncodingInfo
}

type TranscriptionOption func(*TranscriptionOptions)

func WithTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.TranscriptionCallback = callback
	}
}

func WithInterimTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.InterimTranscriptionCallback = callback
	}
}

func WithStartedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.StartedCallback = callback
	}
}

func WithEndedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.EndedCallback = callback
	}
}

func WithErrorCallback(callback func(err error)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.ErrorCallback = callback
	}
}

func WithLanguage(language string) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.Language = language
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.EncodingInfo = encodingInfo
	}
}

// NewTranscriptionOptions applies opts over no-op callbacks so implementations
// never have to nil-check.
func NewTranscriptionOptions(opts ...TranscriptionOption) TranscriptionOptions {
	options := TranscriptionOptions{EncodingInfo: audio.GetDefaultEncodingInfo()}
	for _, opt := range opts {
		opt(&options)
	}

	if options.InterimTranscriptionCallback == nil {
		options.InterimTranscriptionCallback = func(string) {}
	}
	if options.TranscriptionCallback == nil {
		options.TranscriptionCallback = func(string) {}
	}
	if options.StartedCallback == nil {
		options.StartedCallback = func() {}
	}
	if options.EndedCallback == nil {
		options.EndedCallback = func() {}
	}
	if options.ErrorCallback == nil {
		options.ErrorCallback = func(error) {}
	}

	return options
}
