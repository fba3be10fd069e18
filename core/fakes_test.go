package orchestration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/koscakluka/ema-calendar/core/commands"
	"github.com/koscakluka/ema-calendar/core/events"
	"github.com/koscakluka/ema-calendar/core/speechtotext"
	"github.com/koscakluka/ema-calendar/core/texttospeech"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, time.March, 2, 7, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	timer := &fakeTimer{clock: c, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, timer)
	return timer
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Advance moves time forward and fires every timer that comes due, in order,
// including timers armed by the fired ones.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, timer := range c.timers {
			if timer.stopped || timer.fired || timer.at.After(target) {
				continue
			}
			if next == nil || timer.at.Before(next.at) {
				next = timer
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.fired = true
		if next.at.After(c.now) {
			c.now = next.at
		}
		c.mu.Unlock()

		next.fn()
	}
}

type fakeRecognitionDevice struct {
	listenErrs []error
	listens    int
	stops      int
	stopErr    error
	options    speechtotext.TranscriptionOptions
}

func (d *fakeRecognitionDevice) Listen(_ context.Context, opts ...speechtotext.TranscriptionOption) error {
	d.listens++
	if len(d.listenErrs) > 0 {
		err := d.listenErrs[0]
		d.listenErrs = d.listenErrs[1:]
		if err != nil {
			return err
		}
	}
	d.options = speechtotext.NewTranscriptionOptions(opts...)
	return nil
}

func (d *fakeRecognitionDevice) StopListening() error {
	d.stops++
	return d.stopErr
}

func (d *fakeRecognitionDevice) started()                      { d.options.StartedCallback() }
func (d *fakeRecognitionDevice) ended()                        { d.options.EndedCallback() }
func (d *fakeRecognitionDevice) fail(err error)                { d.options.ErrorCallback(err) }
func (d *fakeRecognitionDevice) transcribe(text string)        { d.options.TranscriptionCallback(text) }
func (d *fakeRecognitionDevice) transcribeInterim(text string) { d.options.InterimTranscriptionCallback(text) }

type fakeSpeechDevice struct {
	voices   []texttospeech.Voice
	speakErr error
	// reportCancel makes Cancel report ErrCanceled for the current utterance
	// the way real devices do.
	reportCancel bool

	spoken   []string
	requests []texttospeech.SpeechOptions
	cancels  int
}

func (d *fakeSpeechDevice) Speak(_ context.Context, text string, opts ...texttospeech.SpeechOption) error {
	if d.speakErr != nil {
		return d.speakErr
	}
	d.spoken = append(d.spoken, text)
	d.requests = append(d.requests, texttospeech.NewSpeechOptions(opts...))
	return nil
}

func (d *fakeSpeechDevice) Cancel() error {
	d.cancels++
	if d.reportCancel && len(d.requests) > 0 {
		d.requests[len(d.requests)-1].ErrorCallback(texttospeech.ErrCanceled)
	}
	return nil
}

func (d *fakeSpeechDevice) Voices() []texttospeech.Voice { return d.voices }

func (d *fakeSpeechDevice) end() {
	d.requests[len(d.requests)-1].EndedCallback()
}

func (d *fakeSpeechDevice) fail(err error) {
	d.requests[len(d.requests)-1].ErrorCallback(err)
}

type fakeExecutor struct {
	mu        sync.Mutex
	responses map[string]commands.Response
	summary   string
	panics    bool

	commands  []string
	summaries []time.Time
}

func (e *fakeExecutor) Execute(_ context.Context, command string) commands.Response {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.commands = append(e.commands, command)
	if e.panics {
		panic("executor exploded")
	}
	if response, ok := e.responses[command]; ok {
		return response
	}
	return commands.Response{Action: commands.ActionGeneralConversation, Text: "ok", Spoken: "ok"}
}

func (e *fakeExecutor) DailySummary(_ context.Context, day time.Time) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.summaries = append(e.summaries, day)
	return e.summary
}

type eventRecorder struct {
	events []events.Event
}

func (r *eventRecorder) record(event events.Event) {
	r.events = append(r.events, event)
}

func (r *eventRecorder) statuses() []events.StatusKind {
	var statuses []events.StatusKind
	for _, event := range r.events {
		if status, ok := event.(events.SessionStatus); ok {
			statuses = append(statuses, status.Status)
		}
	}
	return statuses
}

func (r *eventRecorder) hasStatus(kind events.StatusKind) bool {
	for _, status := range r.statuses() {
		if status == kind {
			return true
		}
	}
	return false
}

func (r *eventRecorder) messages() []events.Message {
	var messages []events.Message
	for _, event := range r.events {
		if message, ok := event.(events.Message); ok {
			messages = append(messages, message)
		}
	}
	return messages
}

func (r *eventRecorder) kinds() []events.Kind {
	kinds := make([]events.Kind, 0, len(r.events))
	for _, event := range r.events {
		kinds = append(kinds, event.Kind())
	}
	return kinds
}

type testHarness struct {
	o          *Orchestrator
	clock      *fakeClock
	recognizer *fakeRecognitionDevice
	speaker    *fakeSpeechDevice
	executor   *fakeExecutor
	recorder   *eventRecorder
}

func newTestHarness(t *testing.T, opts ...OrchestratorOption) *testHarness {
	t.Helper()

	h := &testHarness{
		clock:      newFakeClock(),
		recognizer: &fakeRecognitionDevice{},
		speaker:    &fakeSpeechDevice{},
		executor:   &fakeExecutor{responses: map[string]commands.Response{}},
		recorder:   &eventRecorder{},
	}

	options := []OrchestratorOption{
		WithRecognitionDevice(h.recognizer),
		WithSpeechDevice(h.speaker),
		WithCommandExecutor(h.executor),
		WithClock(h.clock),
		withDispatcher(&inlineDispatcher{}),
		withAsyncRunner(func(fn func()) { fn() }),
	}
	h.o = NewOrchestrator(append(options, opts...)...)
	h.o.Orchestrate(context.Background(), WithEventHandler(h.recorder.record))
	t.Cleanup(h.o.Close)

	return h
}
