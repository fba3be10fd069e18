package deepgram

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-calendar/core/audio"
)

const (
	defaultBaseURL  = "wss://api.deepgram.com/v1/listen"
	defaultModel    = "nova-3"
	defaultLanguage = "en-US"

	keepAliveInterval = 5 * time.Second
)

type clientState int

const (
	clientStateIdle clientState = iota
	clientStateConnecting
	clientStateRunning
	clientStateClosing
)

// RecognitionClient is a continuous recognition device over Deepgram's live
// listen websocket. Each Listen opens one websocket session fed by the
// configured microphone; StopListening asks Deepgram to close the stream and
// the session ends once the socket drains.
type RecognitionClient struct {
	apiKey   string
	baseURL  string
	model    string
	language string
	dialer   *websocket.Dialer

	input audio.Input

	mu    sync.Mutex
	state clientState
	conn  *websocket.Conn

	writeMu sync.Mutex
}

type ClientOption func(*RecognitionClient)

func WithAPIKey(apiKey string) ClientOption {
	return func(c *RecognitionClient) { c.apiKey = apiKey }
}

func WithModel(model string) ClientOption {
	return func(c *RecognitionClient) {
		if model != "" {
			c.model = model
		}
	}
}

func WithLanguage(language string) ClientOption {
	return func(c *RecognitionClient) {
		if language != "" {
			c.language = language
		}
	}
}

// WithBaseURL overrides the listen endpoint, mostly useful for tests.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *RecognitionClient) { c.baseURL = baseURL }
}

func NewRecognitionClient(input audio.Input, opts ...ClientOption) (*RecognitionClient, error) {
	if input == nil {
		return nil, fmt.Errorf("audio input is required")
	}

	client := &RecognitionClient{
		apiKey:   strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")),
		baseURL:  defaultBaseURL,
		model:    defaultModel,
		language: defaultLanguage,
		dialer:   websocket.DefaultDialer,
		input:    input,
	}
	for _, opt := range opts {
		opt(client)
	}

	if client.apiKey == "" {
		return nil, fmt.Errorf("deepgram api key not found")
	}

	return client, nil
}

func (c *RecognitionClient) isIdle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == clientStateIdle
}
