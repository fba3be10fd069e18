package events

import "testing"

func TestConstructorsEmitExpectedKinds(t *testing.T) {
	testCases := []struct {
		name     string
		event    Event
		expected Kind
	}{
		{name: "session state changed", event: NewSessionStateChanged("listening"), expected: KindSessionStateChanged},
		{name: "session status", event: NewSessionStatus(StatusDegraded, "network"), expected: KindSessionStatus},
		{name: "user interim updated", event: NewUserTranscriptInterimUpdated("text"), expected: KindUserTranscriptInterimUpdated},
		{name: "user transcript final", event: NewUserTranscriptFinal("text"), expected: KindUserTranscriptFinal},
		{name: "voice command", event: NewVoiceCommand("what do I have today"), expected: KindVoiceCommand},
		{name: "command started", event: NewCommandStarted(OriginText, "hi"), expected: KindCommandStarted},
		{name: "command completed", event: NewCommandCompleted(OriginVoice, "hello"), expected: KindCommandCompleted},
		{name: "assistant speech started", event: NewAssistantSpeechStarted("hello"), expected: KindAssistantSpeechStarted},
		{name: "assistant speech ended", event: NewAssistantSpeechEnded("hello", false), expected: KindAssistantSpeechEnded},
		{name: "message", event: NewMessage(SenderUser, "hi", ""), expected: KindMessage},
		{name: "digest delivered", event: NewDigestDelivered("2026-10-17", "nothing"), expected: KindDigestDelivered},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := testCase.event.Kind(); got != testCase.expected {
				t.Fatalf("expected kind %q, got %q", testCase.expected, got)
			}
			if testCase.event.Timestamp().IsZero() {
				t.Fatalf("expected event timestamp to be set")
			}
		})
	}
}

func TestMessagesGetUniqueIDs(t *testing.T) {
	first := NewMessage(SenderAssistant, "one", "")
	second := NewMessage(SenderAssistant, "one", "")

	if first.ID == "" || first.ID == second.ID {
		t.Fatalf("expected distinct message ids, got %q and %q", first.ID, second.ID)
	}
}
