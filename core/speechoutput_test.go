package orchestration

import (
	"errors"
	"testing"
	"time"

	"github.com/koscakluka/ema-calendar/core/events"
	"github.com/koscakluka/ema-calendar/core/texttospeech"
)

type speechFixture struct {
	output   *speechOutput
	clock    *fakeClock
	recorder *eventRecorder
	run      func(func())

	completed []string
}

func newSpeechFixture(device texttospeech.SpeechDevice) *speechFixture {
	f := &speechFixture{clock: newFakeClock(), recorder: &eventRecorder{}}
	d := &inlineDispatcher{}
	f.output = newSpeechOutput(device, f.clock, d.dispatch, DefaultSpeechSettleDelay)
	f.output.emitEvent = f.recorder.record
	f.run = func(fn func()) { d.dispatch(fn) }
	return f
}

func (f *speechFixture) speak(text string) {
	f.run(func() {
		f.output.speak(text, func() { f.completed = append(f.completed, text) })
	})
}

func (f *speechFixture) speechEnded() []events.AssistantSpeechEnded {
	var ended []events.AssistantSpeechEnded
	for _, event := range f.recorder.events {
		if e, ok := event.(events.AssistantSpeechEnded); ok {
			ended = append(ended, e)
		}
	}
	return ended
}

func TestSpeechOutputCompletesOnceWhenSpeechEnds(t *testing.T) {
	device := &fakeSpeechDevice{}
	f := newSpeechFixture(device)

	f.speak("You have two events today.")
	if len(device.spoken) != 1 || !f.output.isSpeaking() {
		t.Fatalf("expected speech to start right away, got %q", device.spoken)
	}

	device.end()
	device.end()

	if len(f.completed) != 1 {
		t.Fatalf("expected exactly one completion, got %d", len(f.completed))
	}
	if f.output.isSpeaking() {
		t.Fatalf("expected output to be idle")
	}
	ended := f.speechEnded()
	if len(ended) != 1 || ended[0].Canceled {
		t.Fatalf("expected one natural speech end event, got %+v", ended)
	}
}

func TestSpeechOutputWithoutDeviceCompletesImmediately(t *testing.T) {
	f := newSpeechFixture(nil)

	f.speak("nobody hears this")

	if len(f.completed) != 1 {
		t.Fatalf("expected immediate completion, got %d", len(f.completed))
	}
	if len(f.recorder.events) != 0 {
		t.Fatalf("expected no speech events without a device, got %v", f.recorder.kinds())
	}
}

func TestSpeechOutputReplacesPlayingSpeechInOrder(t *testing.T) {
	device := &fakeSpeechDevice{reportCancel: true}
	f := newSpeechFixture(device)

	f.speak("first")
	f.speak("second")

	if device.cancels != 1 {
		t.Fatalf("expected first utterance to be canceled, got %d cancels", device.cancels)
	}
	if len(f.completed) != 1 || f.completed[0] != "first" {
		t.Fatalf("expected first request to complete before the second starts, got %q", f.completed)
	}

	f.clock.Advance(DefaultSpeechSettleDelay - time.Millisecond)
	if len(device.spoken) != 1 {
		t.Fatalf("expected second utterance to wait for the settle delay, got %q", device.spoken)
	}
	f.clock.Advance(time.Millisecond)
	if len(device.spoken) != 2 || device.spoken[1] != "second" {
		t.Fatalf("expected second utterance to start, got %q", device.spoken)
	}

	device.end()
	if len(f.completed) != 2 || f.completed[1] != "second" {
		t.Fatalf("expected completions in request order, got %q", f.completed)
	}

	ended := f.speechEnded()
	if len(ended) != 2 || !ended[0].Canceled || ended[1].Canceled {
		t.Fatalf("expected canceled then natural end, got %+v", ended)
	}
}

func TestSpeechOutputSkipsRequestReplacedBeforeStarting(t *testing.T) {
	device := &fakeSpeechDevice{}
	f := newSpeechFixture(device)

	f.speak("first")
	f.speak("second")
	f.speak("third")
	f.clock.Advance(DefaultSpeechSettleDelay)

	if len(device.spoken) != 2 || device.spoken[1] != "third" {
		t.Fatalf("expected only the latest request to be spoken, got %q", device.spoken)
	}
	if len(f.completed) != 2 || f.completed[0] != "first" || f.completed[1] != "second" {
		t.Fatalf("expected replaced requests to complete in order, got %q", f.completed)
	}

	device.end()
	if len(f.completed) != 3 {
		t.Fatalf("expected every request to complete once, got %q", f.completed)
	}
}

func TestSpeechOutputCompletesWhenSpeakFails(t *testing.T) {
	device := &fakeSpeechDevice{speakErr: texttospeech.ErrUnavailable}
	f := newSpeechFixture(device)

	f.speak("hello")

	if len(f.completed) != 1 || f.output.isSpeaking() {
		t.Fatalf("expected failed speech to complete, got %d completions", len(f.completed))
	}
	if len(f.speechEnded()) != 0 {
		t.Fatalf("expected no speech end for speech that never started")
	}
}

func TestSpeechOutputCompletesOnceOnDeviceError(t *testing.T) {
	device := &fakeSpeechDevice{}
	f := newSpeechFixture(device)

	f.speak("hello")
	device.fail(errors.New("connection reset"))
	device.end()

	if len(f.completed) != 1 {
		t.Fatalf("expected exactly one completion, got %d", len(f.completed))
	}
}

func TestSpeechOutputCancel(t *testing.T) {
	device := &fakeSpeechDevice{reportCancel: true}
	f := newSpeechFixture(device)

	f.speak("a long answer")
	f.run(f.output.cancel)
	f.run(f.output.cancel)

	if len(f.completed) != 1 || device.cancels != 1 {
		t.Fatalf("expected one completion and one cancel, got %d and %d", len(f.completed), device.cancels)
	}
	ended := f.speechEnded()
	if len(ended) != 1 || !ended[0].Canceled {
		t.Fatalf("expected canceled speech end, got %+v", ended)
	}
}

func TestSpeechOutputPrefersLocaleAndProvider(t *testing.T) {
	device := &fakeSpeechDevice{voices: []texttospeech.Voice{
		{Name: "aura-2-draco-en", Locale: "en-GB", Provider: "deepgram"},
		{Name: "system-en", Locale: "en-US", Provider: "system", Default: true},
		{Name: "aura-2-thalia-en", Locale: "en-US", Provider: "deepgram"},
	}}
	f := newSpeechFixture(device)
	f.output.locale = "en_US"
	f.output.provider = "deepgram"

	f.speak("hello")

	if got := device.requests[0].Voice.Name; got != "aura-2-thalia-en" {
		t.Fatalf("expected preferred voice, got %q", got)
	}
}
