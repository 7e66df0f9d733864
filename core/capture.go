package orchestration

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/fbicca/ai-heart-failure-predictor/core/audio"
	"github.com/google/uuid"
)

// CaptureHandle identifies one capture session.
type CaptureHandle string

// captureController owns the input device for the length of one capture
// session and accumulates its chunks into a single Recording.
type captureController struct {
	input AudioInput

	mu        sync.Mutex
	handle    CaptureHandle
	recording *audio.Recording
}

func newCaptureController(input AudioInput) *captureController {
	return &captureController{input: input}
}

func (c *captureController) encodingInfo() audio.EncodingInfo {
	if withEncoding, ok := c.input.(AudioInputWithEncoding); ok {
		if encoding := withEncoding.CaptureEncodingInfo(); !encoding.IsZero() {
			return encoding
		}
	}
	return audio.GetDefaultEncodingInfo()
}

// Start opens the device and begins accumulating. Errors always wrap
// ErrPermissionDenied or ErrDeviceUnavailable.
func (c *captureController) Start(ctx context.Context) (CaptureHandle, error) {
	if c == nil || c.input == nil {
		return "", fmt.Errorf("no audio input configured: %w", ErrDeviceUnavailable)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.recording != nil {
		c.discardLocked()
	}

	recording := audio.NewRecording(c.encodingInfo())
	// Appends after Finalize are rejected, so late device callbacks are dropped.
	if err := c.input.StartCapture(ctx, func(chunk []byte) { recording.Append(chunk) }); err != nil {
		return "", audio.ClassifyDeviceError("failed to start capture", err)
	}

	c.handle = CaptureHandle(uuid.NewString())
	c.recording = recording
	return c.handle, nil
}

// Stop releases the device and finalizes the recording. Stopping a stale or
// unknown handle returns an empty artifact.
func (c *captureController) Stop(handle CaptureHandle) audio.RecordingArtifact {
	if c == nil {
		return audio.RecordingArtifact{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.recording == nil || handle == "" || handle != c.handle {
		return audio.RecordingArtifact{}
	}

	if err := c.input.StopCapture(); err != nil {
		log.Printf("Failed to stop audio capture: %v", err)
	}
	artifact := c.recording.Finalize()
	c.recording = nil
	c.handle = ""
	return artifact
}

// Discard stops any running capture and drops what was recorded.
func (c *captureController) Discard() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.discardLocked()
}

func (c *captureController) discardLocked() {
	if c.recording == nil {
		return
	}
	if err := c.input.StopCapture(); err != nil {
		log.Printf("Failed to stop audio capture: %v", err)
	}
	c.recording.Finalize()
	c.recording = nil
	c.handle = ""
}

func (c *captureController) isCapturing() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recording != nil
}
