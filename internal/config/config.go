package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/koscakluka/ema-calendar/internal/utils"
)

const (
	ClassifierGemini = "gemini"
	ClassifierGroq   = "groq"

	AudioBackendMiniaudio = "miniaudio"
	AudioBackendPortaudio = "portaudio"
)

// Config stores runtime configuration of the assistant.
type Config struct {
	Deepgram   DeepgramConfig
	Classifier ClassifierConfig
	Audio      AudioConfig
	Voice      VoiceConfig
	Storage    StorageConfig
	Telemetry  TelemetryConfig
}

type DeepgramConfig struct {
	APIKey   string
	STTModel string
	Language string
	TTSVoice string
}

type ClassifierConfig struct {
	Provider     string
	GeminiAPIKey string
	GeminiModel  string
	GroqAPIKey   string
	GroqModel    string
}

type AudioConfig struct {
	Backend string
	// BufferSize is the portaudio frames per buffer.
	BufferSize int
}

type VoiceConfig struct {
	Locale                 string
	PreferredVoiceProvider string
	SpeakTypedResponses    bool
	ListenOnStart          bool
}

type StorageConfig struct {
	DataDir string
}

func (s StorageConfig) CalendarPath() string { return filepath.Join(s.DataDir, "events.json") }
func (s StorageConfig) SettingsPath() string { return filepath.Join(s.DataDir, "settings.yaml") }

type TelemetryConfig struct {
	// OTLPEndpoint enables trace export when set.
	OTLPEndpoint string
	ServiceName  string
}

// Load resolves configuration from environment variables and sensible defaults.
func Load() (Config, error) {
	dataDir := strings.TrimSpace(os.Getenv("EMA_DATA_DIR"))
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, errors.New("could not determine home directory, set EMA_DATA_DIR")
		}
		dataDir = filepath.Join(home, ".local", "share", "ema-calendar")
	}

	cfg := Config{
		Deepgram: DeepgramConfig{
			APIKey:   strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")),
			STTModel: envOrDefault("DEEPGRAM_STT_MODEL", "nova-3"),
			Language: envOrDefault("DEEPGRAM_LANGUAGE", "en-US"),
			TTSVoice: strings.TrimSpace(os.Getenv("DEEPGRAM_TTS_VOICE")),
		},
		Classifier: ClassifierConfig{
			Provider:     strings.ToLower(envOrDefault("EMA_CLASSIFIER", ClassifierGemini)),
			GeminiAPIKey: utils.FirstNonEmpty(strings.TrimSpace(os.Getenv("GEMINI_API_KEY")), strings.TrimSpace(os.Getenv("GOOGLE_API_KEY"))),
			GeminiModel:  strings.TrimSpace(os.Getenv("GEMINI_MODEL")),
			GroqAPIKey:   strings.TrimSpace(os.Getenv("GROQ_API_KEY")),
			GroqModel:    strings.TrimSpace(os.Getenv("GROQ_MODEL")),
		},
		Audio: AudioConfig{
			Backend:    strings.ToLower(envOrDefault("EMA_AUDIO_BACKEND", AudioBackendMiniaudio)),
			BufferSize: envOrDefaultInt("EMA_AUDIO_BUFFER_SIZE", 512),
		},
		Voice: VoiceConfig{
			Locale:                 envOrDefault("EMA_LOCALE", "en-US"),
			PreferredVoiceProvider: envOrDefault("EMA_PREFERRED_VOICE_PROVIDER", "deepgram"),
			SpeakTypedResponses:    envOrDefaultBool("EMA_SPEAK_TYPED_RESPONSES", false),
			ListenOnStart:          envOrDefaultBool("EMA_LISTEN_ON_START", true),
		},
		Storage: StorageConfig{DataDir: dataDir},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
			ServiceName:  envOrDefault("OTEL_SERVICE_NAME", "ema-calendar"),
		},
	}

	if cfg.Audio.BufferSize <= 0 {
		cfg.Audio.BufferSize = 512
	}

	switch cfg.Classifier.Provider {
	case ClassifierGemini, ClassifierGroq:
	default:
		return Config{}, fmt.Errorf("unknown classifier %q, expected %s or %s", cfg.Classifier.Provider, ClassifierGemini, ClassifierGroq)
	}

	switch cfg.Audio.Backend {
	case AudioBackendMiniaudio, AudioBackendPortaudio:
	default:
		return Config{}, fmt.Errorf("unknown audio backend %q, expected %s or %s", cfg.Audio.Backend, AudioBackendMiniaudio, AudioBackendPortaudio)
	}

	return cfg, nil
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
