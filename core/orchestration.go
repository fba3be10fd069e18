package orchestration

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/koscakluka/ema-calendar/core/commands"
	"github.com/koscakluka/ema-calendar/core/events"
	"github.com/koscakluka/ema-calendar/core/settings"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrBusy is returned for a command submitted while another one is still
	// being handled.
	ErrBusy         = errors.New("another command is in progress")
	ErrEmptyCommand = errors.New("command is empty")
	ErrClosed       = errors.New("orchestrator is closed")
)

// Orchestrator ties voice input, command execution and speech output
// together. Listening is always stopped before a response is spoken and only
// resumed once the speech is over.
type Orchestrator struct {
	config     orchestratorConfig
	dispatcher dispatcher

	session  *recognitionSession
	gate     *wakeWordGate
	speech   *speechOutput
	executor CommandExecutor

	busy           atomic.Bool
	closed         atomic.Bool
	closeOnce      sync.Once
	commandHandler atomic.Pointer[func(command string)]

	// Owned by the dispatcher goroutine.
	baseContext context.Context
	emitEvent   eventEmitter
	settings    settings.Settings
	// listeningSuppressed is set while the user has turned listening off, so
	// finished responses do not turn it back on.
	listeningSuppressed bool
	// queuedResponse is a spoken response waiting for recognition to stop.
	queuedResponse  *queuedResponse
	lastDigestDay   string
	digestPending   bool
	pendingDigestAt time.Time
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		config:      defaultOrchestratorConfig(),
		baseContext: context.Background(),
		emitEvent:   noopEventEmitter,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.config.dispatcher == nil {
		o.config.dispatcher = newSerialDispatcher()
	}
	if o.config.runAsync == nil {
		o.config.runAsync = goAsync
	}
	o.dispatcher = o.config.dispatcher
	o.executor = o.config.executor
	o.settings = o.config.settings

	clock := o.config.clock
	dispatch := o.dispatcher.dispatch
	emit := func(event events.Event) { o.emitEvent(event) }

	o.session = newRecognitionSession(o.config.recognitionDevice, clock, dispatch, sessionConfig{
		language:                o.config.locale,
		invalidStateRetryDelay:  o.config.invalidStateRetryDelay,
		restartDelay:            o.config.restartDelay,
		stopConfirmationTimeout: o.config.stopConfirmationTimeout,
	})
	o.session.emitEvent = emit

	o.gate = newWakeWordGate(o.settings.WakePhrase, o.config.awakeTimeout, clock, dispatch)
	o.speech = newSpeechOutput(o.config.speechDevice, clock, dispatch, o.config.speechSettleDelay)
	o.speech.emitEvent = emit
	o.speech.locale = o.config.locale
	o.speech.provider = o.config.preferredVoiceProvider

	o.session.onTranscript = o.gate.handleTranscript
	o.session.onEnded = o.gate.reset
	o.gate.onAwake = o.session.markAwake
	o.gate.onAsleep = o.session.markListening
	o.gate.onCommand = func(command string) {
		o.emitEvent(events.NewVoiceCommand(command))
		if handler := o.commandHandler.Load(); handler != nil {
			(*handler)(command)
		}
	}
	o.SetCommandHandler(nil)

	return o
}

// Orchestrate wires the callbacks and starts the daily digest ticker. The
// orchestrator closes itself once ctx is done.
//
// Orchestrate does not start listening, see [Orchestrator.StartListening].
func (o *Orchestrator) Orchestrate(ctx context.Context, opts ...OrchestrateOption) {
	if o.closed.Load() {
		logger.Warn("orchestrator already closed, skipping Orchestrate")
		return
	}

	options := OrchestrateOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	emitter := newCallbackEventEmitter(options)

	o.dispatcher.dispatch(func() {
		o.baseContext = ctx
		o.session.ctx = ctx
		o.speech.ctx = ctx
		o.emitEvent = emitter
	})

	go o.runDigestTicker(ctx)
	go func() {
		<-ctx.Done()
		o.Close()
	}()
}

// Close stops listening and speaking. It must not be called from one of the
// orchestrator's callbacks.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		o.closed.Store(true)
		o.dispatcher.dispatch(func() {
			o.digestPending = false
			o.gate.reset()
			o.session.close()
			o.speech.cancel()
		})
		o.dispatcher.close()
	})
}

// SubmitText handles a typed command. Listening is paused while the command
// runs if it was on.
func (o *Orchestrator) SubmitText(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyCommand
	}
	if o.closed.Load() {
		return ErrClosed
	}
	if !o.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}

	if !o.dispatcher.dispatch(func() { o.handleTextCommand(text) }) {
		o.busy.Store(false)
		return ErrClosed
	}
	return nil
}

// IsBusy reports whether a command is in flight.
func (o *Orchestrator) IsBusy() bool { return o.busy.Load() }

// StartListening turns voice input on. It is the only way back from a denied
// microphone. Speech in progress is cut short and a response still waiting
// to be spoken is dropped, the two never run together.
func (o *Orchestrator) StartListening() {
	o.dispatcher.dispatch(func() {
		o.listeningSuppressed = false
		if queued := o.queuedResponse; queued != nil {
			o.queuedResponse = nil
			queued.finish()
		}
		o.speech.cancel()
		o.session.start()
	})
}

func (o *Orchestrator) StopListening() {
	o.dispatcher.dispatch(func() {
		o.listeningSuppressed = true
		o.session.stop()
	})
}

// CancelSpeech stops the current response. Its turn finishes as if the
// speech had ended.
func (o *Orchestrator) CancelSpeech() {
	o.dispatcher.dispatch(o.speech.cancel)
}

// SetCommandHandler replaces the receiver of commands that passed the wake
// phrase. A nil handler restores the default, which runs them through the
// command executor. The handler runs on the orchestrator's goroutine.
func (o *Orchestrator) SetCommandHandler(handler func(command string)) {
	if handler == nil {
		handler = o.handleVoiceCommand
	}
	o.commandHandler.Store(&handler)
}

// UpdateSettings applies new settings. The wake phrase and digest settings
// take effect right away.
func (o *Orchestrator) UpdateSettings(s settings.Settings) error {
	s = s.Normalize()
	if err := s.Validate(); err != nil {
		return err
	}

	o.dispatcher.dispatch(func() {
		o.settings = s
		o.gate.setWakePhrase(s.WakePhrase)
	})
	return nil
}

func (o *Orchestrator) handleVoiceCommand(command string) {
	if !o.busy.CompareAndSwap(false, true) {
		logger.Info("ignoring voice command while another command is in progress", "command", command)
		return
	}

	o.emitEvent(events.NewMessage(events.SenderUser, command+" (via voice)", ""))
	o.runCommand(events.OriginVoice, command, func(response commands.Response) {
		o.emitResponse(response)
		if response.Spoken == "" {
			o.finishTurn(events.OriginVoice, response.Text)
			return
		}
		o.respondBySpeech(response.Spoken, true, func() {
			o.finishTurn(events.OriginVoice, response.Text)
		})
	})
}

func (o *Orchestrator) handleTextCommand(text string) {
	wasActive := o.session.isActive()
	if wasActive {
		o.session.stop()
	}

	o.emitEvent(events.NewMessage(events.SenderUser, text, ""))
	o.runCommand(events.OriginText, text, func(response commands.Response) {
		o.emitResponse(response)
		if o.config.speakTypedResponses && response.Spoken != "" {
			o.respondBySpeech(response.Spoken, wasActive, func() {
				o.finishTurn(events.OriginText, response.Text)
			})
			return
		}

		o.resumeListening(wasActive)
		o.finishTurn(events.OriginText, response.Text)
	})
}

func (o *Orchestrator) runCommand(origin events.CommandOrigin, command string, onResponse func(commands.Response)) {
	ctx, span := tracer.Start(o.baseContext, "handle command",
		trace.WithAttributes(attribute.String("origin", string(origin))))
	commandCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("origin", string(origin))))
	o.emitEvent(events.NewCommandStarted(origin, command))

	o.config.runAsync(func() {
		defer span.End()
		response := o.execute(ctx, command)
		if !o.dispatcher.dispatch(func() { onResponse(response) }) {
			o.busy.Store(false)
		}
	})
}

func (o *Orchestrator) execute(ctx context.Context, command string) (response commands.Response) {
	if o.executor == nil {
		return commands.ApologyResponse()
	}

	err := panicSafeNamedWorker("command", func(ctx context.Context) error {
		response = o.executor.Execute(ctx, command)
		return nil
	})(ctx)
	if err != nil {
		span := trace.SpanFromContext(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("command execution failed", "error", err)
		return commands.ApologyResponse()
	}
	return response
}

type queuedResponse struct {
	finished bool
	finish   func()
}

// respondBySpeech waits for recognition to stop, speaks text and resumes
// listening afterwards if asked to. A response finished while it waits is
// never spoken.
func (o *Orchestrator) respondBySpeech(text string, resume bool, done func()) {
	queued := &queuedResponse{}
	queued.finish = func() {
		if queued.finished {
			return
		}
		queued.finished = true
		o.resumeListening(resume)
		done()
	}

	o.queuedResponse = queued
	o.session.stop()
	o.session.whenStopped(func() {
		if o.queuedResponse == queued {
			o.queuedResponse = nil
		}
		if queued.finished {
			return
		}
		o.speech.speak(text, queued.finish)
	})
}

func (o *Orchestrator) resumeListening(resume bool) {
	if resume && !o.listeningSuppressed && !o.closed.Load() {
		o.session.start()
	}
}

func (o *Orchestrator) emitResponse(response commands.Response) {
	if response.Text == "" {
		return
	}
	o.emitEvent(events.NewMessage(events.SenderAssistant, response.Text, response.HTML))
}

func (o *Orchestrator) finishTurn(origin events.CommandOrigin, response string) {
	o.busy.Store(false)
	o.emitEvent(events.NewCommandCompleted(origin, response))

	if o.digestPending && !o.closed.Load() {
		o.digestPending = false
		o.deliverDigest(o.pendingDigestAt)
	}
}
