package orchestration

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/koscakluka/ema-calendar/core/events"
	"github.com/koscakluka/ema-calendar/core/speechtotext"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type SessionState int

const (
	SessionStopped SessionState = iota
	SessionStarting
	SessionListening
	SessionAwake
)

func (s SessionState) String() string {
	switch s {
	case SessionStopped:
		return "stopped"
	case SessionStarting:
		return "starting"
	case SessionListening:
		return "listening"
	case SessionAwake:
		return "awake"
	default:
		return "unknown"
	}
}

type errorSeverity int

const (
	severityRecoverable errorSeverity = iota
	severityDegraded
	severityFatal
)

func (s errorSeverity) String() string {
	switch s {
	case severityRecoverable:
		return "recoverable"
	case severityDegraded:
		return "degraded"
	default:
		return "fatal"
	}
}

func classifyRecognitionError(code speechtotext.ErrorCode) errorSeverity {
	switch code {
	case speechtotext.ErrorCodeNoSpeech, speechtotext.ErrorCodeAborted:
		return severityRecoverable
	case speechtotext.ErrorCodeNotAllowed, speechtotext.ErrorCodeServiceNotAllowed:
		return severityFatal
	default:
		return severityDegraded
	}
}

type sessionConfig struct {
	language                string
	invalidStateRetryDelay  time.Duration
	restartDelay            time.Duration
	stopConfirmationTimeout time.Duration
}

// recognitionSession keeps a continuous recognition device running until it
// is explicitly stopped. It must only be used from dispatched work.
type recognitionSession struct {
	device   RecognitionDevice
	ctx      context.Context
	dispatch func(func()) bool
	config   sessionConfig

	state SessionState
	// manualStop is set by stop and by fatal errors; it keeps the session
	// from restarting itself when the device reports the end.
	manualStop bool
	// fatal keeps the denied status on display until the next start.
	fatal bool
	// stopDeferred records a stop requested while the device was starting.
	stopDeferred bool
	// stopping is set between a device stop request and its ended callback.
	stopping bool
	// generation identifies the current device session, callbacks of older
	// sessions are dropped.
	generation uint64

	restartTask *scheduledTask
	retryTask   *scheduledTask
	stopTimeout *scheduledTask

	afterStop []func()

	onTranscript func(transcript string)
	onEnded      func()
	emitEvent    func(events.Event)
}

func newRecognitionSession(device RecognitionDevice, clock Clock, dispatch func(func()) bool, config sessionConfig) *recognitionSession {
	return &recognitionSession{
		device:       device,
		ctx:          context.Background(),
		dispatch:     dispatch,
		config:       config,
		restartTask:  newScheduledTask(clock, dispatch),
		retryTask:    newScheduledTask(clock, dispatch),
		stopTimeout:  newScheduledTask(clock, dispatch),
		onTranscript: func(string) {},
		onEnded:      func() {},
		emitEvent:    noopEventEmitter,
	}
}

func (s *recognitionSession) start() {
	if s.device == nil {
		s.reportStatus(events.StatusUnsupported, "Speech recognition is not available.")
		return
	}

	s.manualStop = false
	s.fatal = false
	s.restartTask.cancel()

	switch s.state {
	case SessionStarting:
		if s.stopDeferred {
			s.stopDeferred = false
			if !s.stopping {
				s.stopTimeout.cancel()
			}
		}
		return
	case SessionListening, SessionAwake:
		// With the manual stop flag cleared, a pending stop turns into a
		// restart once the device reports the end.
		return
	}

	s.listen(1)
}

func (s *recognitionSession) listen(attempt int) {
	s.generation++
	generation := s.generation
	s.setState(SessionStarting)
	s.reportStatus(events.StatusInitializing, "")

	err := s.device.Listen(s.ctx,
		speechtotext.WithStartedCallback(func() {
			s.dispatch(func() { s.handleStarted(generation) })
		}),
		speechtotext.WithEndedCallback(func() {
			s.dispatch(func() { s.handleEnded(generation) })
		}),
		speechtotext.WithErrorCallback(func(err error) {
			s.dispatch(func() { s.handleError(generation, err) })
		}),
		speechtotext.WithTranscriptionCallback(func(transcript string) {
			s.dispatch(func() { s.handleTranscript(generation, transcript) })
		}),
		speechtotext.WithInterimTranscriptionCallback(func(transcript string) {
			s.dispatch(func() { s.handleInterimTranscript(generation, transcript) })
		}),
		speechtotext.WithLanguage(s.config.language),
	)

	switch {
	case err == nil:
	case errors.Is(err, speechtotext.ErrInvalidState) && attempt == 1:
		logger.Info("recognition device is busy, retrying start", "delay", s.config.invalidStateRetryDelay)
		s.retryTask.schedule(s.config.invalidStateRetryDelay, func() { s.listen(attempt + 1) })
	default:
		logger.Warn("failed to start recognition", "attempt", attempt, "error", err)
		s.setState(SessionStopped)
		s.reportStatus(events.StatusStartFailed, "Could not start listening: "+err.Error())
		s.flushAfterStop()
	}
}

func (s *recognitionSession) stop() {
	s.manualStop = true
	s.restartTask.cancel()

	switch s.state {
	case SessionStopped:
		s.flushAfterStop()

	case SessionStarting:
		if s.retryTask.pending() {
			// The device is not running anything yet.
			s.retryTask.cancel()
			s.generation++
			s.setState(SessionStopped)
			s.reportStatus(events.StatusStopped, "")
			s.flushAfterStop()
			return
		}
		if !s.stopping {
			s.stopDeferred = true
			s.armStopTimeout()
		}

	case SessionListening, SessionAwake:
		s.requestDeviceStop()
	}
}

// whenStopped runs fn once the device has confirmed the session end, right
// away if it already has.
func (s *recognitionSession) whenStopped(fn func()) {
	if s.state == SessionStopped {
		fn()
		return
	}
	s.afterStop = append(s.afterStop, fn)
}

// isActive reports whether the session is running or about to be.
func (s *recognitionSession) isActive() bool {
	if s.manualStop {
		return false
	}
	return s.state != SessionStopped || s.restartTask.pending()
}

func (s *recognitionSession) markAwake() {
	if s.state == SessionListening {
		s.setState(SessionAwake)
		s.reportStatus(events.StatusAwake, "")
	}
}

func (s *recognitionSession) markListening() {
	if s.state == SessionAwake {
		s.setState(SessionListening)
		s.reportStatus(events.StatusListening, "")
	}
}

func (s *recognitionSession) close() {
	s.manualStop = true
	s.restartTask.cancel()
	s.retryTask.cancel()
	s.stopTimeout.cancel()
	if s.device != nil && s.state != SessionStopped {
		if err := s.device.StopListening(); err != nil {
			logger.Warn("failed to stop recognition device", "error", err)
		}
	}
}

func (s *recognitionSession) handleStarted(generation uint64) {
	if generation != s.generation {
		// Started after the session was abandoned, nobody is listening.
		if err := s.device.StopListening(); err != nil {
			logger.Warn("failed to stop abandoned recognition session", "error", err)
		}
		return
	}
	if s.state != SessionStarting {
		return
	}

	if s.stopDeferred {
		s.stopDeferred = false
		s.requestDeviceStop()
		return
	}

	s.setState(SessionListening)
	s.reportStatus(events.StatusListening, "")
}

func (s *recognitionSession) handleEnded(generation uint64) {
	if generation != s.generation {
		return
	}
	s.finishSession()
}

func (s *recognitionSession) finishSession() {
	s.stopTimeout.cancel()
	s.stopping = false
	s.stopDeferred = false
	s.setState(SessionStopped)
	s.onEnded()

	switch {
	case s.fatal:
		s.reportStatus(events.StatusFatal, fatalMessage)
	case s.manualStop:
		s.reportStatus(events.StatusStopped, "")
	default:
		logger.Info("recognition session ended on its own, restarting", "delay", s.config.restartDelay)
		sessionRestarts.Add(s.ctx, 1)
		s.reportStatus(events.StatusRestarting, "")
		s.restartTask.schedule(s.config.restartDelay, s.start)
	}

	s.flushAfterStop()
}

func (s *recognitionSession) handleError(generation uint64, err error) {
	if generation != s.generation {
		return
	}

	code := speechtotext.CodeOf(err)
	severity := classifyRecognitionError(code)
	sessionErrors.Add(s.ctx, 1, metric.WithAttributes(attribute.String("severity", severity.String())))

	switch severity {
	case severityRecoverable:
		logger.Debug("recognition ended without result", "code", code)
	case severityDegraded:
		logger.Warn("recognition degraded", "code", code, "error", err)
		s.reportStatus(events.StatusDegraded, degradedMessage(code))
	case severityFatal:
		logger.Error("recognition not permitted, listening disabled", "code", code, "error", err)
		s.manualStop = true
		s.fatal = true
		s.restartTask.cancel()
		s.reportStatus(events.StatusFatal, fatalMessage)
	}
}

func (s *recognitionSession) handleTranscript(generation uint64, transcript string) {
	if generation != s.generation || s.state == SessionStopped {
		return
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return
	}

	s.emitEvent(events.NewUserTranscriptFinal(transcript))
	s.onTranscript(transcript)
}

func (s *recognitionSession) handleInterimTranscript(generation uint64, transcript string) {
	if generation != s.generation || s.state == SessionStopped {
		return
	}
	if transcript = strings.TrimSpace(transcript); transcript != "" {
		s.emitEvent(events.NewUserTranscriptInterimUpdated(transcript))
	}
}

func (s *recognitionSession) requestDeviceStop() {
	if s.stopping {
		return
	}
	s.stopping = true
	s.armStopTimeout()

	if err := s.device.StopListening(); err != nil {
		logger.Warn("failed to stop recognition device", "error", err)
	}
}

func (s *recognitionSession) armStopTimeout() {
	if !s.stopTimeout.pending() {
		s.stopTimeout.schedule(s.config.stopConfirmationTimeout, s.abandonSession)
	}
}

// abandonSession gives up on a device that never confirmed a stop and treats
// the session as ended.
func (s *recognitionSession) abandonSession() {
	logger.Warn("recognition device did not confirm stop, abandoning session",
		"timeout", s.config.stopConfirmationTimeout)
	s.generation++
	if err := s.device.StopListening(); err != nil {
		logger.Warn("failed to stop recognition device", "error", err)
	}
	s.finishSession()
}

func (s *recognitionSession) flushAfterStop() {
	pending := s.afterStop
	s.afterStop = nil
	for _, fn := range pending {
		fn()
	}
}

func (s *recognitionSession) setState(state SessionState) {
	if s.state == state {
		return
	}
	logger.Debug("recognition session state changed", "from", s.state.String(), "to", state.String())
	s.state = state
	s.emitEvent(events.NewSessionStateChanged(state.String()))
}

func (s *recognitionSession) reportStatus(status events.StatusKind, message string) {
	s.emitEvent(events.NewSessionStatus(status, message))
}

const fatalMessage = "Microphone or speech service access was denied. Allow it and start listening again."

func degradedMessage(code speechtotext.ErrorCode) string {
	switch code {
	case speechtotext.ErrorCodeAudioCapture:
		return "The microphone is unavailable, still trying."
	case speechtotext.ErrorCodeNetwork:
		return "Speech recognition lost its connection, still trying."
	default:
		return "Speech recognition hit a problem, still trying."
	}
}
