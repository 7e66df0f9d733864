// Package portaudio provides capture and playback through PortAudio blocking
// streams. It is an alternative to the miniaudio backend for hosts where
// malgo cannot open the default devices.
package portaudio

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/fbicca/ai-heart-failure-predictor/core/audio"
	"github.com/gordonklaus/portaudio"
)

type Client struct {
	bufferSize int

	captureMu     sync.Mutex
	captureStream *portaudio.Stream
	captureCancel context.CancelFunc
	captureDone   chan struct{}
	in            []int16

	playbackStream *portaudio.Stream
	out            []int16
	queue          *playbackQueue
	playbackDone   chan struct{}
}

func NewClient(bufferSize int) (*Client, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, audio.ClassifyDeviceError("failed to initialize PortAudio", err)
	}

	c := &Client{
		bufferSize:   bufferSize,
		out:          make([]int16, bufferSize),
		queue:        newPlaybackQueue(),
		playbackDone: make(chan struct{}),
	}

	stream, err := portaudio.OpenDefaultStream(0, 1, float64(audio.DefaultSampleRate), bufferSize, c.out)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open PortAudio playback stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to start PortAudio playback stream: %w", err)
	}
	c.playbackStream = stream

	go c.writeLoop()
	return c, nil
}

func (c *Client) StartCapture(ctx context.Context, onAudio func(audio []byte)) error {
	c.captureMu.Lock()
	defer c.captureMu.Unlock()
	if c.captureStream != nil {
		return nil
	}

	c.in = make([]int16, c.bufferSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(audio.DefaultSampleRate), c.bufferSize, c.in)
	if err != nil {
		return audio.ClassifyDeviceError("failed to open PortAudio capture stream", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return audio.ClassifyDeviceError("failed to start PortAudio capture stream", err)
	}

	captureCtx, cancel := context.WithCancel(ctx)
	c.captureStream = stream
	c.captureCancel = cancel
	c.captureDone = make(chan struct{})

	go c.readLoop(captureCtx, stream, c.in, onAudio, c.captureDone)
	return nil
}

func (c *Client) readLoop(ctx context.Context, stream *portaudio.Stream, in []int16, onAudio func([]byte), done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := stream.Read(); err != nil {
			log.Printf("Failed to read from PortAudio stream: %v", err)
			continue
		}
		onAudio(audio.SamplesToBytes(in))
	}
}

func (c *Client) StopCapture() error {
	c.captureMu.Lock()
	stream, cancel, done := c.captureStream, c.captureCancel, c.captureDone
	c.captureStream, c.captureCancel, c.captureDone = nil, nil, nil
	c.captureMu.Unlock()

	if stream == nil {
		return nil
	}

	cancel()
	<-done
	stopErr := stream.Stop()
	if err := stream.Close(); err != nil && stopErr == nil {
		stopErr = err
	}
	if stopErr != nil {
		return fmt.Errorf("failed to stop PortAudio capture stream: %w", stopErr)
	}
	return nil
}

func (c *Client) Close() {
	_ = c.StopCapture()
	c.queue.close()
	<-c.playbackDone
	c.playbackStream.Stop()
	c.playbackStream.Close()
	portaudio.Terminate()
}

func (c *Client) SendAudio(audio []byte) error {
	c.queue.push(audio)
	return nil
}

func (c *Client) ClearBuffer() { c.queue.clear() }

func (c *Client) Mark(mark string, callback func(string)) error {
	c.queue.mark(mark, callback)
	return nil
}

func (c *Client) CaptureEncodingInfo() audio.EncodingInfo { return audio.GetDefaultEncodingInfo() }
func (c *Client) EncodingInfo() audio.EncodingInfo        { return audio.GetDefaultEncodingInfo() }

// writeLoop feeds the blocking playback stream one buffer at a time and
// writes silence while the queue is empty.
func (c *Client) writeLoop() {
	defer close(c.playbackDone)

	frame := make([]byte, c.bufferSize*2)
	for {
		n, marks, ok := c.queue.pop(frame)
		if !ok {
			return
		}
		clear(frame[n:])
		copy(c.out, audio.BytesToSamples(frame))
		if err := c.playbackStream.Write(); err != nil {
			log.Printf("Failed to write to PortAudio stream: %v", err)
		}
		for _, m := range marks {
			go m.callback(m.name)
		}
	}
}
