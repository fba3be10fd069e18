package orchestration

import (
	"context"
	"errors"
	"time"

	"github.com/koscakluka/ema-calendar/core/events"
	"github.com/koscakluka/ema-calendar/core/texttospeech"
)

type speechRequest struct {
	id         uint64
	text       string
	onComplete func()

	started   bool
	completed bool
}

// speechOutput plays one utterance at a time and completes every request
// exactly once, whether it ends, fails or gets replaced.
type speechOutput struct {
	device      texttospeech.SpeechDevice
	ctx         context.Context
	dispatch    func(func()) bool
	settleDelay time.Duration

	locale        string
	provider      string
	voice         texttospeech.Voice
	voiceSelected bool

	nextID    uint64
	current   *speechRequest
	delayTask *scheduledTask

	emitEvent func(events.Event)
}

func newSpeechOutput(device texttospeech.SpeechDevice, clock Clock, dispatch func(func()) bool, settleDelay time.Duration) *speechOutput {
	return &speechOutput{
		device:      device,
		ctx:         context.Background(),
		dispatch:    dispatch,
		settleDelay: settleDelay,
		delayTask:   newScheduledTask(clock, dispatch),
		emitEvent:   noopEventEmitter,
	}
}

// speak replaces whatever is playing with text. onComplete runs once the new
// utterance is over, including when it could not be played at all.
func (s *speechOutput) speak(text string, onComplete func()) {
	if onComplete == nil {
		onComplete = func() {}
	}
	s.nextID++
	request := &speechRequest{id: s.nextID, text: text, onComplete: onComplete}
	speechRequests.Add(s.ctx, 1)

	if s.device == nil {
		request.completed = true
		request.onComplete()
		return
	}

	previous := s.current
	s.current = request
	if previous == nil || previous.completed {
		s.begin(request)
		return
	}

	logger.Debug("replacing speech in progress", "previous", previous.id, "next", request.id)
	if err := s.device.Cancel(); err != nil {
		logger.Warn("failed to cancel speech", "error", err)
	}
	// Some devices drop an utterance that starts right after a cancel.
	s.delayTask.schedule(s.settleDelay, func() { s.begin(request) })
	s.finish(previous, true)
}

func (s *speechOutput) begin(request *speechRequest) {
	if request.completed || s.current != request {
		return
	}

	opts := []texttospeech.SpeechOption{
		texttospeech.WithEndedCallback(func() {
			s.dispatch(func() { s.finish(request, false) })
		}),
		texttospeech.WithErrorCallback(func(err error) {
			s.dispatch(func() { s.handleError(request, err) })
		}),
	}
	if voice, ok := s.selectVoice(); ok {
		opts = append(opts, texttospeech.WithVoice(voice))
	}

	if err := s.device.Speak(s.ctx, request.text, opts...); err != nil {
		logger.Warn("failed to start speech", "request", request.id, "error", err)
		s.finish(request, false)
		return
	}

	request.started = true
	s.emitEvent(events.NewAssistantSpeechStarted(request.text))
}

func (s *speechOutput) handleError(request *speechRequest, err error) {
	if errors.Is(err, texttospeech.ErrCanceled) {
		s.finish(request, true)
		return
	}
	if !request.completed {
		logger.Warn("speech failed", "request", request.id, "error", err)
	}
	s.finish(request, false)
}

func (s *speechOutput) finish(request *speechRequest, canceled bool) {
	if request.completed {
		return
	}
	request.completed = true
	if s.current == request {
		s.current = nil
	}
	if request.started {
		s.emitEvent(events.NewAssistantSpeechEnded(request.text, canceled))
	}
	request.onComplete()
}

func (s *speechOutput) cancel() {
	request := s.current
	if request == nil || request.completed {
		return
	}

	s.delayTask.cancel()
	if s.device != nil {
		if err := s.device.Cancel(); err != nil {
			logger.Warn("failed to cancel speech", "error", err)
		}
	}
	s.finish(request, true)
}

func (s *speechOutput) isSpeaking() bool {
	return s.current != nil && !s.current.completed
}

func (s *speechOutput) selectVoice() (texttospeech.Voice, bool) {
	if !s.voiceSelected {
		s.voiceSelected = true
		s.voice, _ = texttospeech.SelectVoice(s.device.Voices(), s.locale, s.provider)
		if !s.voice.IsZero() {
			logger.Debug("selected voice", "voice", s.voice.Name, "locale", s.voice.Locale)
		}
	}
	return s.voice, !s.voice.IsZero()
}
