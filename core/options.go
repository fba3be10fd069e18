package orchestration

import (
	"context"
	"time"

	"github.com/koscakluka/ema-calendar/core/commands"
	"github.com/koscakluka/ema-calendar/core/events"
	"github.com/koscakluka/ema-calendar/core/settings"
	"github.com/koscakluka/ema-calendar/core/speechtotext"
	"github.com/koscakluka/ema-calendar/core/texttospeech"
)

const (
	DefaultAwakeTimeout            = 5 * time.Second
	DefaultInvalidStateRetryDelay  = 250 * time.Millisecond
	DefaultRestartDelay            = 100 * time.Millisecond
	DefaultSpeechSettleDelay       = 50 * time.Millisecond
	DefaultStopConfirmationTimeout = 2 * time.Second
)

type OrchestratorOption func(*Orchestrator)

// RecognitionDevice runs one continuous recognition session at a time.
//
// Listen returns right away, the outcome of the session is reported through
// the callbacks in opts. Listen returns [speechtotext.ErrInvalidState] while
// the previous session is still winding down.
type RecognitionDevice interface {
	Listen(ctx context.Context, opts ...speechtotext.TranscriptionOption) error
	StopListening() error
}

func WithRecognitionDevice(device RecognitionDevice) OrchestratorOption {
	return func(o *Orchestrator) { o.config.recognitionDevice = device }
}

func WithSpeechDevice(device texttospeech.SpeechDevice) OrchestratorOption {
	return func(o *Orchestrator) { o.config.speechDevice = device }
}

// CommandExecutor turns a free text command into a response. It must not
// fail, problems are reported as a conversational response instead.
type CommandExecutor interface {
	Execute(ctx context.Context, command string) commands.Response
	DailySummary(ctx context.Context, day time.Time) string
}

func WithCommandExecutor(executor CommandExecutor) OrchestratorOption {
	return func(o *Orchestrator) { o.config.executor = executor }
}

func WithSettings(s settings.Settings) OrchestratorOption {
	return func(o *Orchestrator) { o.config.settings = s.Normalize() }
}

// WithAwakeTimeout sets how long follow up commands are accepted without
// repeating the wake phrase.
func WithAwakeTimeout(timeout time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.config.awakeTimeout = timeout }
}

func WithInvalidStateRetryDelay(delay time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.config.invalidStateRetryDelay = delay }
}

func WithRestartDelay(delay time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.config.restartDelay = delay }
}

func WithSpeechSettleDelay(delay time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.config.speechSettleDelay = delay }
}

// WithStopConfirmationTimeout sets how long to wait for the recognition device
// to confirm a stop before the session is considered ended anyway.
func WithStopConfirmationTimeout(timeout time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.config.stopConfirmationTimeout = timeout }
}

// WithLocale sets the recognition language and the preferred voice locale,
// e.g. "en-US".
func WithLocale(locale string) OrchestratorOption {
	return func(o *Orchestrator) { o.config.locale = locale }
}

func WithPreferredVoiceProvider(provider string) OrchestratorOption {
	return func(o *Orchestrator) { o.config.preferredVoiceProvider = provider }
}

// WithSpeakTypedResponses makes responses to typed commands audible too.
func WithSpeakTypedResponses(speak bool) OrchestratorOption {
	return func(o *Orchestrator) { o.config.speakTypedResponses = speak }
}

func WithClock(clock Clock) OrchestratorOption {
	return func(o *Orchestrator) {
		if clock != nil {
			o.config.clock = clock
		}
	}
}

func withDispatcher(d dispatcher) OrchestratorOption {
	return func(o *Orchestrator) { o.config.dispatcher = d }
}

func withAsyncRunner(run func(func())) OrchestratorOption {
	return func(o *Orchestrator) { o.config.runAsync = run }
}

type orchestratorConfig struct {
	recognitionDevice RecognitionDevice
	speechDevice      texttospeech.SpeechDevice
	executor          CommandExecutor
	settings          settings.Settings

	awakeTimeout            time.Duration
	invalidStateRetryDelay  time.Duration
	restartDelay            time.Duration
	speechSettleDelay       time.Duration
	stopConfirmationTimeout time.Duration

	locale                 string
	preferredVoiceProvider string
	speakTypedResponses    bool

	clock      Clock
	dispatcher dispatcher
	runAsync   func(func())
}

func defaultOrchestratorConfig() orchestratorConfig {
	return orchestratorConfig{
		settings:                settings.Default(),
		awakeTimeout:            DefaultAwakeTimeout,
		invalidStateRetryDelay:  DefaultInvalidStateRetryDelay,
		restartDelay:            DefaultRestartDelay,
		speechSettleDelay:       DefaultSpeechSettleDelay,
		stopConfirmationTimeout: DefaultStopConfirmationTimeout,
		locale:                  "en-US",
		clock:                   realClock{},
		runAsync:                goAsync,
	}
}

// OrchestrateOptions are the callbacks of a running orchestrator. All of
// them are called from the orchestrator's own goroutine and should not block.
type OrchestrateOptions struct {
	onSessionStateChanged  func(state string)
	onStatus               func(status events.StatusKind, message string)
	onInterimTranscription func(transcript string)
	onTranscription        func(transcript string)
	onVoiceCommand         func(command string)
	onMessage              func(message events.Message)
	onSpeakingStateChanged func(isSpeaking bool)
	onBusyStateChanged     func(isBusy bool)
	onDigest               func(day, summary string)
	onEvent                func(event events.Event)
}

type OrchestrateOption func(*OrchestrateOptions)

func WithSessionStateCallback(callback func(state string)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onSessionStateChanged = callback }
}

// WithStatusCallback registers a callback for user facing status updates of
// the recognition session, e.g. a denied microphone.
func WithStatusCallback(callback func(status events.StatusKind, message string)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onStatus = callback }
}

func WithInterimTranscriptionCallback(callback func(transcript string)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onInterimTranscription = callback }
}

// WithTranscriptionCallback registers a callback for every final transcript,
// whether or not it contained the wake phrase.
func WithTranscriptionCallback(callback func(transcript string)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onTranscription = callback }
}

func WithVoiceCommandCallback(callback func(command string)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onVoiceCommand = callback }
}

func WithMessageCallback(callback func(message events.Message)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onMessage = callback }
}

func WithSpeakingStateChangedCallback(callback func(isSpeaking bool)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onSpeakingStateChanged = callback }
}

// WithBusyStateChangedCallback registers a callback that tells when a
// command is in flight. New text commands are rejected while busy.
func WithBusyStateChangedCallback(callback func(isBusy bool)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onBusyStateChanged = callback }
}

func WithDigestCallback(callback func(day, summary string)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onDigest = callback }
}

// WithEventHandler receives every event, after the specific callbacks.
func WithEventHandler(handler func(event events.Event)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onEvent = handler }
}
