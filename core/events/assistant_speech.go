package events

const (
	KindAssistantSpeechStarted Kind = "assistant_speech.started"
	KindAssistantSpeechEnded   Kind = "assistant_speech.ended"
)

type AssistantSpeechStarted struct {
	Base
	Text string
}

func NewAssistantSpeechStarted(text string) AssistantSpeechStarted {
	return AssistantSpeechStarted{Base: NewBase(KindAssistantSpeechStarted), Text: text}
}

type AssistantSpeechEnded struct {
	Base
	Text     string
	Canceled bool
}

func NewAssistantSpeechEnded(text string, canceled bool) AssistantSpeechEnded {
	return AssistantSpeechEnded{Base: NewBase(KindAssistantSpeechEnded), Text: text, Canceled: canceled}
}
