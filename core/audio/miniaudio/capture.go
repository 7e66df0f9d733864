package miniaudio

import (
	"fmt"
	"sync"

	"github.com/fbicca/ai-heart-failure-predictor/core/audio"
	"github.com/gen2brain/malgo"
)

// captureClient opens the input device per capture session so the device is
// only held while the user is recording.
type captureClient struct {
	audioContext *malgo.AllocatedContext
	device       *malgo.Device
	sampleRate   uint32

	onAudio    func(audio []byte)
	callbackMu sync.Mutex

	mu sync.Mutex
}

func (c *captureClient) Init(audioContext *malgo.AllocatedContext, sampleRate int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.audioContext = audioContext
	c.sampleRate = uint32(sampleRate)
}

func (c *captureClient) Start(onAudio func(audio []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.audioContext == nil {
		return audio.ClassifyDeviceError("capture context not initialized", audio.ErrDeviceUnavailable)
	} else if c.device != nil && c.device.IsStarted() {
		return nil
	}

	channels := 1
	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.SampleRate = c.sampleRate
	config.Capture.Format = format
	config.Capture.Channels = uint32(channels)
	config.Alsa.NoMMap = 1
	config.PerformanceProfile = malgo.LowLatency
	config.PeriodSizeInFrames = 480
	config.Periods = 3

	c.setOnAudio(onAudio)
	device, err := malgo.InitDevice(c.audioContext.Context, config, malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, frameCount uint32) {
			n := int(frameCount) * bytesPerFrame
			if len(pInput) < n || n == 0 {
				return
			}
			c.deliver(pInput[:n])
		},
	})
	if err != nil {
		c.setOnAudio(nil)
		return audio.ClassifyDeviceError("failed to initialize capture device", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		c.setOnAudio(nil)
		return audio.ClassifyDeviceError("failed to start capture device", err)
	}

	c.device = device
	return nil
}

func (c *captureClient) setOnAudio(onAudio func(audio []byte)) {
	c.callbackMu.Lock()
	defer c.callbackMu.Unlock()
	c.onAudio = onAudio
}

func (c *captureClient) deliver(chunk []byte) {
	c.callbackMu.Lock()
	onAudio := c.onAudio
	c.callbackMu.Unlock()
	if onAudio != nil {
		onAudio(chunk)
	}
}

// Stop stops and releases the input device. Stopping an idle client is a
// no-op.
func (c *captureClient) Stop() error {
	c.mu.Lock()
	device := c.device
	c.device = nil
	c.mu.Unlock()
	c.setOnAudio(nil)

	if device == nil {
		return nil
	}

	var stopErr error
	if device.IsStarted() {
		if err := device.Stop(); err != nil {
			stopErr = fmt.Errorf("failed to stop capture device: %w", err)
		}
	}
	device.Uninit()
	return stopErr
}
