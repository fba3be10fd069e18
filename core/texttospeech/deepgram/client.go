package deepgram

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-calendar/core/audio"
	"github.com/koscakluka/ema-calendar/core/texttospeech"
)

const (
	defaultBaseURL = "wss://api.deepgram.com/v1/speak"
	provider       = "deepgram"
)

// SpeechClient plays Deepgram Aura speech through an audio output. Every
// utterance gets its own speak websocket so a canceled utterance can never
// leak audio into the next one.
type SpeechClient struct {
	apiKey  string
	baseURL string
	voice   string
	dialer  *websocket.Dialer

	output audio.Output

	mu      sync.Mutex
	current *speakRequest
	nextID  int
}

type ClientOption func(*SpeechClient)

func WithAPIKey(apiKey string) ClientOption {
	return func(c *SpeechClient) { c.apiKey = apiKey }
}

// WithDefaultVoice sets the voice used when Speak is called without one.
func WithDefaultVoice(voice string) ClientOption {
	return func(c *SpeechClient) {
		if voice != "" {
			c.voice = voice
		}
	}
}

func WithBaseURL(baseURL string) ClientOption {
	return func(c *SpeechClient) { c.baseURL = baseURL }
}

func NewSpeechClient(output audio.Output, opts ...ClientOption) (*SpeechClient, error) {
	if output == nil {
		return nil, fmt.Errorf("audio output is required")
	}

	client := &SpeechClient{
		apiKey:  strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")),
		baseURL: defaultBaseURL,
		voice:   defaultVoice,
		dialer:  websocket.DefaultDialer,
		output:  output,
	}
	for _, opt := range opts {
		opt(client)
	}

	if client.apiKey == "" {
		return nil, fmt.Errorf("deepgram api key not found")
	}

	return client, nil
}

func (c *SpeechClient) Voices() []texttospeech.Voice {
	voices := make([]texttospeech.Voice, 0, len(auraVoices))
	for _, voice := range auraVoices {
		voices = append(voices, texttospeech.Voice{
			Name:     voice.name,
			Locale:   voice.locale,
			Provider: provider,
			Default:  voice.name == c.voice,
		})
	}
	return voices
}

type auraVoice struct {
	name   string
	locale string
}

const defaultVoice = "aura-2-thalia-en"

var auraVoices = []auraVoice{
	{name: "aura-2-thalia-en", locale: "en-US"},
	{name: "aura-2-andromeda-en", locale: "en-US"},
	{name: "aura-2-helena-en", locale: "en-US"},
	{name: "aura-2-apollo-en", locale: "en-US"},
	{name: "aura-2-draco-en", locale: "en-GB"},
	{name: "aura-2-pandora-en", locale: "en-GB"},
	{name: "aura-2-hyperion-en", locale: "en-AU"},
	{name: "aura-2-celeste-es", locale: "es-CO"},
	{name: "aura-2-estrella-es", locale: "es-MX"},
	{name: "aura-2-nestor-es", locale: "es-ES"},
}
