package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/ema-calendar/core/audio"
)

// Client drives separate blocking-mode input and output streams so capture
// reads never contend with playback writes.
type Client struct {
	bufferSize int

	input  *portaudio.Stream
	output *portaudio.Stream
	in     []int16
	out    []int16

	captureMu     sync.Mutex
	captureCancel context.CancelFunc
	captureDone   chan struct{}

	writeMu       sync.Mutex
	leftoverAudio []byte
}

func NewClient(bufferSize int) (*Client, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	c := &Client{
		bufferSize: bufferSize,
		in:         make([]int16, bufferSize),
		out:        make([]int16, bufferSize),
	}

	var err error
	if c.input, err = portaudio.OpenDefaultStream(1, 0, audio.DefaultSampleRate, bufferSize, c.in); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to open portaudio input stream: %w", err)
	}
	if c.output, err = portaudio.OpenDefaultStream(0, 1, audio.DefaultSampleRate, bufferSize, c.out); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to open portaudio output stream: %w", err)
	}
	if err := c.output.Start(); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to start portaudio output stream: %w", err)
	}

	return c, nil
}

func (c *Client) StartCapture(ctx context.Context, onAudio func(audio []byte)) error {
	c.captureMu.Lock()
	defer c.captureMu.Unlock()

	if c.captureCancel != nil {
		return nil
	}
	if err := c.input.Start(); err != nil {
		return fmt.Errorf("failed to start portaudio input stream: %w", err)
	}

	captureCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.captureCancel = cancel
	c.captureDone = done

	go func() {
		defer close(done)
		for {
			select {
			case <-captureCtx.Done():
				return
			default:
			}

			if err := c.input.Read(); err != nil {
				log.Printf("Failed to read from PortAudio stream: %v", err)
				continue
			}

			audioBuffer := bytes.Buffer{}
			_ = binary.Write(&audioBuffer, binary.LittleEndian, c.in)
			onAudio(audioBuffer.Bytes())
		}
	}()

	return nil
}

func (c *Client) StopCapture() error {
	c.captureMu.Lock()
	defer c.captureMu.Unlock()

	if c.captureCancel == nil {
		return nil
	}

	c.captureCancel()
	<-c.captureDone
	c.captureCancel = nil
	c.captureDone = nil

	if err := c.input.Stop(); err != nil {
		return fmt.Errorf("failed to stop portaudio input stream: %w", err)
	}
	return nil
}

func (c *Client) Close() {
	_ = c.StopCapture()

	var errs error
	if c.input != nil {
		errs = errors.Join(errs, c.input.Close())
	}
	if c.output != nil {
		errs = errors.Join(errs, c.output.Close())
	}
	if errs != nil {
		log.Printf("Failed to close PortAudio streams: %v", errs)
	}
	portaudio.Terminate()
}

// SendAudio blocks until every complete buffer has been written to the
// output stream; a partial tail is kept for the next call.
func (c *Client) SendAudio(audio []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	frameBytes := c.bufferSize * 2
	pending := append(c.leftoverAudio, audio...)
	for len(pending) >= frameBytes {
		if err := binary.Read(bytes.NewReader(pending[:frameBytes]), binary.LittleEndian, c.out); err != nil {
			return fmt.Errorf("failed to decode audio frame: %w", err)
		}
		if err := c.output.Write(); err != nil {
			return fmt.Errorf("failed to write to portaudio stream: %w", err)
		}
		pending = pending[frameBytes:]
	}
	c.leftoverAudio = append([]byte(nil), pending...)

	return nil
}

func (c *Client) ClearBuffer() {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.leftoverAudio = nil
}

// Mark flushes the partial tail padded with silence and fires the callback.
// Writes are blocking, so everything sent before the mark has reached the
// device by the time the flush returns.
func (c *Client) Mark(name string, callback func(string)) error {
	c.writeMu.Lock()
	if len(c.leftoverAudio) > 0 {
		frame := make([]byte, c.bufferSize*2)
		copy(frame, c.leftoverAudio)
		c.leftoverAudio = nil
		if err := binary.Read(bytes.NewReader(frame), binary.LittleEndian, c.out); err == nil {
			if err := c.output.Write(); err != nil {
				log.Printf("Failed to flush PortAudio stream: %v", err)
			}
		}
	}
	c.writeMu.Unlock()

	go callback(name)
	return nil
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: audio.DefaultSampleRate,
		Format:     audio.EncodingLinear16,
	}
}
