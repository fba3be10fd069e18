package texttospeech

type SpeechOptions struct {
	// StartedCallback is called when the first audio of the utterance reaches
	// the output.
	StartedCallback func()
	// EndedCallback is called once all audio of the utterance has been played.
	EndedCallback func()
	// ErrorCallback is called instead of EndedCallback when the utterance does
	// not finish. Canceled utterances report [ErrCanceled].
	ErrorCallback func(error)

	// Voice is the preferred voice, a zero Voice lets the device decide.
	Voice Voice
}

type SpeechOption func(*SpeechOptions)

func WithStartedCallback(callback func()) SpeechOption {
	return func(o *SpeechOptions) { o.StartedCallback = callback }
}

func WithEndedCallback(callback func()) SpeechOption {
	return func(o *SpeechOptions) { o.EndedCallback = callback }
}

func WithErrorCallback(callback func(error)) SpeechOption {
	return func(o *SpeechOptions) { o.ErrorCallback = callback }
}

func WithVoice(voice Voice) SpeechOption {
	return func(o *SpeechOptions) { o.Voice = voice }
}

func NewSpeechOptions(opts ...SpeechOption) SpeechOptions {
	options := SpeechOptions{}
	for _, opt := range opts {
		opt(&options)
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
