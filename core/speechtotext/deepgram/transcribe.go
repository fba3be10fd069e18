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
	"strings"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-calendar/core/speechtotext"
)

// Listen opens a new recognition session. It returns immediately; the
// outcome is reported through the started, error and ended callbacks.
//
// Listen returns [speechtotext.ErrInvalidState] while a previous session is
// still connecting or closing.
func (c *RecognitionClient) Listen(ctx context.Context, opts ...speechtotext.TranscriptionOption) error {
	options := speechtotext.NewTranscriptionOptions(opts...)
	if options.EncodingInfo.IsZero() || options.EncodingInfo != c.input.EncodingInfo() {
		options.EncodingInfo = c.input.EncodingInfo()
	}

	encoding, err := convertEncoding(options.EncodingInfo)
	if err != nil {
		return fmt.Errorf("invalid encoding: %w", err)
	}

	c.mu.Lock()
	if c.state != clientStateIdle {
		c.mu.Unlock()
		return speechtotext.ErrInvalidState
	}
	c.state = clientStateConnecting
	c.mu.Unlock()

	language := c.language
	if options.Language != "" {
		language = options.Language
	}

	go c.run(ctx, *encoding, language, options)
	return nil
}

// StopListening requests the end of the current session. The ended callback
// fires once Deepgram has flushed and closed the stream.
func (c *RecognitionClient) StopListening() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case clientStateIdle, clientStateClosing:
		return nil
	case clientStateConnecting:
		c.state = clientStateClosing
		return nil
	}

	c.state = clientStateClosing
	if err := c.writeJSON(struct {
		Type string `json:"type"`
	}{Type: string(api.TypeCloseStreamResponse)}); err != nil {
		_ = c.conn.Close()
		return fmt.Errorf("failed to request deepgram stream close: %w", err)
	}
	return nil
}

func (c *RecognitionClient) run(ctx context.Context, encoding encodingInfo, language string, options speechtotext.TranscriptionOptions) {
	defer func() {
		c.mu.Lock()
		c.state = clientStateIdle
		c.conn = nil
		c.mu.Unlock()
		options.EndedCallback()
	}()

	conn, err := c.connect(ctx, encoding, language)
	if err != nil {
		if !c.isClosing() {
			options.ErrorCallback(err)
		}
		return
	}
	defer conn.Close()

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if c.state == clientStateClosing {
		c.mu.Unlock()
		return
	}
	c.conn = conn
	c.state = clientStateRunning
	c.mu.Unlock()

	if err := c.input.StartCapture(sessionCtx, c.sendAudio); err != nil {
		options.ErrorCallback(speechtotext.NewRecognitionError(speechtotext.ErrorCodeAudioCapture, err))
		return
	}
	defer func() {
		if err := c.input.StopCapture(); err != nil {
			log.Printf("Failed to stop audio capture: %v", err)
		}
	}()

	options.StartedCallback()

	go c.keepAlive(sessionCtx)
	go func() {
		<-sessionCtx.Done()
		_ = conn.Close()
	}()

	transcript := transcriptAccumulator{}
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) && !c.isClosing() && sessionCtx.Err() == nil {
				options.ErrorCallback(speechtotext.NewRecognitionError(speechtotext.ErrorCodeNetwork, err))
			}
			if pending := transcript.Flush(); pending != "" {
				options.TranscriptionCallback(pending)
			}
			return
		}
		if msgType != websocket.BinaryMessage {
			transcript.process(msg, options)
		}
	}
}

func (c *RecognitionClient) connect(ctx context.Context, encoding encodingInfo, language string) (*websocket.Conn, error) {
	listenURL, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, speechtotext.NewRecognitionError(speechtotext.ErrorCodeUnknown, fmt.Errorf("invalid listen url: %w", err))
	}

	queryParams := listenURL.Query()
	queryParams.Set("encoding", encoding.Format.Name())
	queryParams.Set("sample_rate", strconv.Itoa(encoding.SampleRate))
	queryParams.Set("channels", "1")
	queryParams.Set("model", c.model)
	queryParams.Set("language", language)
	queryParams.Set("smart_format", "true")
	queryParams.Set("utterance_end_ms", "1000")
	queryParams.Set("interim_results", "true")
	queryParams.Set("endpointing", "300")
	queryParams.Set("vad_events", "true")
	listenURL.RawQuery = queryParams.Encode()

	conn, resp, err := c.dialer.DialContext(ctx, listenURL.String(),
		http.Header{"Authorization": {"Token " + c.apiKey}})
	if err != nil {
		code := speechtotext.ErrorCodeNetwork
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			code = speechtotext.ErrorCodeNotAllowed
		}
		return nil, speechtotext.NewRecognitionError(code, fmt.Errorf("failed to open socket connection to deepgram: %w", err))
	}

	return conn, nil
}

func (c *RecognitionClient) isClosing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == clientStateClosing
}

func (c *RecognitionClient) sendAudio(audio []byte) {
	c.mu.Lock()
	running := c.state == clientStateRunning
	c.mu.Unlock()
	if !running {
		return
	}

	if err := c.writeMessage(websocket.BinaryMessage, audio); err != nil {
		log.Printf("Failed to write audio to deepgram: %v", err)
	}
}

func (c *RecognitionClient) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			err := c.writeJSON(struct {
				Type string `json:"type"`
			}{Type: "KeepAlive"})
			c.mu.Unlock()
			if err != nil {
				log.Printf("Failed to send deepgram keep alive: %v", err)
			}
		}
	}
}

// writeJSON must be called with c.mu held so conn cannot be swapped out.
func (c *RecognitionClient) writeJSON(msg any) error {
	if c.conn == nil {
		return errors.New("connection closed")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(msg)
}

func (c *RecognitionClient) writeMessage(msgType int, data []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("connection closed")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(msgType, data)
}

// transcriptAccumulator joins final segments until Deepgram signals the end
// of an utterance.
type transcriptAccumulator struct {
	segments       []string
	unendedSegment bool
}

func (t *transcriptAccumulator) Flush() string {
	transcript := strings.TrimSpace(strings.Join(t.segments, " "))
	t.segments = nil
	t.unendedSegment = false
	return transcript
}

func (t *transcriptAccumulator) process(msg []byte, options speechtotext.TranscriptionOptions) {
	var parsedMsg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		log.Printf("Failed to unmarshal deepgram message: %v", err)
		return
	}

	switch api.TypeResponse(parsedMsg.Type) {
	case api.TypeMessageResponse:
		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			log.Println("Failed to unmarshal deepgram message", err)
			return
		}
		if len(msgResp.Channel.Alternatives) == 0 {
			return
		}

		segment := strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript)
		if !msgResp.IsFinal {
			if segment != "" {
				options.InterimTranscriptionCallback(strings.TrimSpace(strings.Join(append(t.segments, segment), " ")))
			}
			return
		}

		if segment != "" {
			t.segments = append(t.segments, segment)
		}
		if msgResp.SpeechFinal {
			if transcript := t.Flush(); transcript != "" {
				options.TranscriptionCallback(transcript)
			}
		}

	case api.TypeUtteranceEndResponse:
		if t.unendedSegment || len(t.segments) > 0 {
			if transcript := t.Flush(); transcript != "" {
				options.TranscriptionCallback(transcript)
			}
		}

	case api.TypeSpeechStartedResponse:
		t.unendedSegment = true
	}
}
