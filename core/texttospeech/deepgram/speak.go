package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-calendar/core/audio"
	"github.com/koscakluka/ema-calendar/core/texttospeech"
)

type speakRequest struct {
	id      string
	text    string
	voice   string
	output  audio.Output
	options texttospeech.SpeechOptions

	mu       sync.Mutex
	ws       *websocket.Conn
	started  bool
	finished bool
}

type websocketMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

var (
	flushMsg = websocketMessage{Type: "Flush"}
	clearMsg = websocketMessage{Type: "Clear"}
	closeMsg = websocketMessage{Type: "Close"}
)

// Speak starts a new utterance, canceling the one in progress. The canceled
// utterance reports [texttospeech.ErrCanceled] before Speak returns.
func (c *SpeechClient) Speak(ctx context.Context, text string, opts ...texttospeech.SpeechOption) error {
	options := texttospeech.NewSpeechOptions(opts...)

	voice := c.voice
	if !options.Voice.IsZero() && options.Voice.Provider == provider {
		voice = options.Voice.Name
	}

	c.mu.Lock()
	previous := c.current
	c.nextID++
	req := &speakRequest{
		id:      "utterance-" + strconv.Itoa(c.nextID),
		text:    text,
		voice:   voice,
		output:  c.output,
		options: options,
	}
	c.current = req
	c.mu.Unlock()

	if previous != nil {
		previous.cancel()
	}

	go c.run(ctx, req)
	return nil
}

// Cancel stops the current utterance, if any.
func (c *SpeechClient) Cancel() error {
	c.mu.Lock()
	req := c.current
	c.current = nil
	c.mu.Unlock()

	if req != nil {
		req.cancel()
	}
	return nil
}

func (c *SpeechClient) run(ctx context.Context, req *speakRequest) {
	defer func() {
		c.mu.Lock()
		if c.current == req {
			c.current = nil
		}
		c.mu.Unlock()
	}()

	conn, err := c.connect(ctx, req.voice)
	if err != nil {
		req.finish(fmt.Errorf("%w: %w", texttospeech.ErrUnavailable, err))
		return
	}
	defer conn.Close()

	if !req.attach(conn) {
		return
	}

	if err := req.send(websocketMessage{Type: "Speak", Text: req.text}); err != nil {
		req.finish(fmt.Errorf("%w: failed to send text: %w", texttospeech.ErrUnavailable, err))
		return
	}
	if err := req.send(flushMsg); err != nil {
		req.finish(fmt.Errorf("%w: failed to flush text: %w", texttospeech.ErrUnavailable, err))
		return
	}

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) && !req.isFinished() {
				log.Printf("Websocket read error: %v", err)
			}
			req.finish(fmt.Errorf("%w: stream closed before speech finished: %w", texttospeech.ErrUnavailable, err))
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			req.play(msg)
		case websocket.TextMessage:
			var parsedMsg websocketMessage
			if err := json.Unmarshal(msg, &parsedMsg); err != nil {
				log.Printf("Failed to unmarshal deepgram message: %v", err)
				continue
			}

			switch parsedMsg.Type {
			case "Flushed":
				// Everything has been synthesized, the utterance ends when the
				// output has played it.
				if err := req.output.Mark(req.id, func(string) {
					req.finish(nil)
					_ = req.send(closeMsg)
				}); err != nil {
					req.finish(fmt.Errorf("%w: failed to mark output: %w", texttospeech.ErrUnavailable, err))
					return
				}
			case "Warning":
				log.Printf("Deepgram speak warning: %s", msg)
			}
		}
	}
}

func (c *SpeechClient) connect(ctx context.Context, voice string) (*websocket.Conn, error) {
	speakURL, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid speak url: %w", err)
	}

	encodingInfo := c.output.EncodingInfo()
	queryParams := speakURL.Query()
	queryParams.Set("encoding", encodingName(encodingInfo))
	queryParams.Set("sample_rate", strconv.Itoa(encodingInfo.SampleRate))
	queryParams.Set("model", voice)
	queryParams.Set("container", "none")
	speakURL.RawQuery = queryParams.Encode()

	conn, _, err := c.dialer.DialContext(ctx, speakURL.String(),
		http.Header{"Authorization": {"Token " + c.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}
	return conn, nil
}

func encodingName(encodingInfo audio.EncodingInfo) string {
	switch encodingInfo.Format {
	case audio.EncodingMulaw:
		return "mulaw"
	case audio.EncodingALaw:
		return "alaw"
	default:
		return "linear16"
	}
}

// attach binds the connection to the request, it reports false if the
// request was canceled while connecting.
func (r *speakRequest) attach(conn *websocket.Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return false
	}
	r.ws = conn
	return true
}

func (r *speakRequest) play(chunk []byte) {
	r.mu.Lock()
	if r.finished || len(chunk) == 0 {
		r.mu.Unlock()
		return
	}
	firstChunk := !r.started
	r.started = true
	r.mu.Unlock()

	if firstChunk {
		r.options.StartedCallback()
	}
	if err := r.output.SendAudio(chunk); err != nil {
		log.Printf("Failed to send speech audio to output: %v", err)
	}
}

func (r *speakRequest) cancel() {
	r.mu.Lock()
	if r.finished {
		r.mu.Unlock()
		return
	}
	ws := r.ws
	r.mu.Unlock()

	if ws != nil {
		if err := r.send(clearMsg); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
			log.Printf("Failed to clear deepgram speech: %v", err)
		}
	}
	r.output.ClearBuffer()
	r.finish(texttospeech.ErrCanceled)

	if ws != nil {
		_ = ws.Close()
	}
}

// finish reports the outcome once; later outcomes are dropped.
func (r *speakRequest) finish(err error) {
	r.mu.Lock()
	if r.finished {
		r.mu.Unlock()
		return
	}
	r.finished = true
	r.mu.Unlock()

	if err != nil {
		r.options.ErrorCallback(err)
		return
	}
	r.options.EndedCallback()
}

func (r *speakRequest) isFinished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finished
}

func (r *speakRequest) send(msg websocketMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ws == nil {
		return fmt.Errorf("websocket connection closed")
	}
	return r.ws.WriteJSON(msg)
}
