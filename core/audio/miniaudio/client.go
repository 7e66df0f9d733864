// Package miniaudio provides capture and playback on the default system
// devices through malgo.
package miniaudio

import (
	"context"
	"fmt"

	"github.com/fbicca/ai-heart-failure-predictor/core/audio"
	"github.com/gen2brain/malgo"
)

const (
	captureSampleRate  = audio.DefaultSampleRate
	playbackSampleRate = 24000
)

type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext
	playbackClient
	captureClient
}

func NewClient() (*Client, error) {
	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(string) {})
	if err != nil {
		return nil, audio.ClassifyDeviceError("failed to initialize audio context", err)
	}

	client := Client{audioContext: audioCtx}
	client.captureClient.Init(audioCtx, captureSampleRate)

	if err := client.playbackClient.Init(audioCtx, playbackSampleRate); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize playback client: %w", err)
	}

	if err := client.playbackClient.Start(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to start playback device: %w", err)
	}

	return &client, nil
}

func (c *Client) StartCapture(_ context.Context, onAudio func(audio []byte)) error {
	return c.captureClient.Start(onAudio)
}

func (c *Client) StopCapture() error {
	return c.captureClient.Stop()
}

func (c *Client) Close() {
	_ = c.captureClient.Stop()
	_ = c.playbackClient.Uninit()
	_ = c.audioContext.Uninit()
	c.audioContext.Free()
}

func (c *Client) SendAudio(audio []byte) error {
	return c.playbackClient.SendAudio(audio)
}

func (c *Client) ClearBuffer() {
	c.playbackClient.ClearBuffer()
}

func (c *Client) Mark(mark string, callback func(string)) error {
	return c.playbackClient.Mark(mark, callback)
}

// CaptureEncodingInfo describes the audio delivered to StartCapture callbacks.
func (c *Client) CaptureEncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{SampleRate: captureSampleRate, Format: audio.EncodingLinear16}
}

// EncodingInfo describes the audio SendAudio expects.
func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{SampleRate: playbackSampleRate, Format: audio.EncodingLinear16}
}
