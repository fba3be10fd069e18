package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	orchestration "github.com/koscakluka/ema-calendar/core"
	"github.com/koscakluka/ema-calendar/core/audio"
	"github.com/koscakluka/ema-calendar/core/audio/miniaudio"
	"github.com/koscakluka/ema-calendar/core/audio/portaudio"
	"github.com/koscakluka/ema-calendar/core/calendar"
	"github.com/koscakluka/ema-calendar/core/commands"
	"github.com/koscakluka/ema-calendar/core/commands/gemini"
	"github.com/koscakluka/ema-calendar/core/commands/groq"
	"github.com/koscakluka/ema-calendar/core/events"
	"github.com/koscakluka/ema-calendar/core/settings"
	deepgramstt "github.com/koscakluka/ema-calendar/core/speechtotext/deepgram"
	deepgramtts "github.com/koscakluka/ema-calendar/core/texttospeech/deepgram"
	"github.com/koscakluka/ema-calendar/internal/config"
	"github.com/koscakluka/ema-calendar/internal/telemetry"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ema-calendar:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			log.Printf("Failed to shut down telemetry: %v", err)
		}
	}()

	fs := afero.NewOsFs()
	if err := fs.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	store, err := calendar.NewFileStore(fs, cfg.Storage.CalendarPath())
	if err != nil {
		return err
	}
	settingsStore := settings.NewStore(fs, cfg.Storage.SettingsPath())
	userSettings, err := settingsStore.Load()
	if err != nil {
		return err
	}

	classifier, err := newClassifier(ctx, cfg.Classifier)
	if err != nil {
		return err
	}
	executor := commands.NewExecutor(classifier, store, commands.WithLauncher(commands.NewURLSchemeLauncher()))

	opts := []orchestration.OrchestratorOption{
		orchestration.WithCommandExecutor(executor),
		orchestration.WithSettings(userSettings),
		orchestration.WithLocale(cfg.Voice.Locale),
		orchestration.WithPreferredVoiceProvider(cfg.Voice.PreferredVoiceProvider),
		orchestration.WithSpeakTypedResponses(cfg.Voice.SpeakTypedResponses),
	}

	var startupNotes []string
	canListen := false
	device, err := newAudioDevice(cfg.Audio)
	if err != nil {
		startupNotes = append(startupNotes, fmt.Sprintf("Audio is unavailable, voice is off: %v", err))
	} else {
		defer device.Close()
		voice := newVoice(cfg.Deepgram, device)
		opts = append(opts, voice.opts...)
		startupNotes = append(startupNotes, voice.notes...)
		canListen = voice.canListen
	}

	orchestrator := orchestration.NewOrchestrator(opts...)
	defer orchestrator.Close()

	ui := newModel(orchestrator, settingsStore, store, userSettings)
	ui.notes = startupNotes
	program := tea.NewProgram(ui, tea.WithAltScreen())

	orchestrator.Orchestrate(ctx,
		orchestration.WithSessionStateCallback(func(state string) { program.Send(sessionStateMsg(state)) }),
		orchestration.WithStatusCallback(func(status events.StatusKind, message string) {
			program.Send(statusMsg{kind: status, message: message})
		}),
		orchestration.WithInterimTranscriptionCallback(func(transcript string) { program.Send(interimMsg(transcript)) }),
		orchestration.WithTranscriptionCallback(func(string) { program.Send(interimMsg("")) }),
		orchestration.WithMessageCallback(func(message events.Message) { program.Send(chatMsg(message)) }),
		orchestration.WithSpeakingStateChangedCallback(func(isSpeaking bool) { program.Send(speakingMsg(isSpeaking)) }),
		orchestration.WithBusyStateChangedCallback(func(isBusy bool) { program.Send(busyMsg(isBusy)) }),
	)
	if cfg.Voice.ListenOnStart && canListen {
		orchestrator.StartListening()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stop()
		_, err := program.Run()
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		program.Quit()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

func newClassifier(ctx context.Context, cfg config.ClassifierConfig) (commands.Classifier, error) {
	switch cfg.Provider {
	case config.ClassifierGroq:
		return groq.NewClassifier(groq.WithAPIKey(cfg.GroqAPIKey), groq.WithModel(cfg.GroqModel))
	default:
		return gemini.NewClassifier(ctx, gemini.WithAPIKey(cfg.GeminiAPIKey), gemini.WithModel(cfg.GeminiModel))
	}
}

func newAudioDevice(cfg config.AudioConfig) (audio.Device, error) {
	if cfg.Backend == config.AudioBackendPortaudio {
		client, err := portaudio.NewClient(cfg.BufferSize)
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	client, err := miniaudio.NewClient()
	if err != nil {
		return nil, err
	}
	return client, nil
}

type voiceSetup struct {
	opts      []orchestration.OrchestratorOption
	notes     []string
	canListen bool
}

// newVoice wires Deepgram recognition and speech over device. A missing
// piece only turns that half of voice off.
func newVoice(cfg config.DeepgramConfig, device audio.Device) voiceSetup {
	var setup voiceSetup

	recognizer, err := deepgramstt.NewRecognitionClient(device,
		deepgramstt.WithAPIKey(cfg.APIKey),
		deepgramstt.WithModel(cfg.STTModel),
		deepgramstt.WithLanguage(cfg.Language),
	)
	if err != nil {
		setup.notes = append(setup.notes, fmt.Sprintf("Speech recognition is off: %v", err))
	} else {
		setup.opts = append(setup.opts, orchestration.WithRecognitionDevice(recognizer))
		setup.canListen = true
	}

	speaker, err := deepgramtts.NewSpeechClient(device,
		deepgramtts.WithAPIKey(cfg.APIKey),
		deepgramtts.WithDefaultVoice(cfg.TTSVoice),
	)
	if err != nil {
		setup.notes = append(setup.notes, fmt.Sprintf("Spoken responses are off: %v", err))
	} else {
		setup.opts = append(setup.opts, orchestration.WithSpeechDevice(speaker))
	}

	return setup
}
