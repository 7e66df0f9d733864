// Package speechtotext defines the transcription contract shared by the
// speech-to-text backends.
package speechtotext

import (
	"context"
	"errors"
	"fmt"

	"github.com/fbicca/ai-heart-failure-predictor/core/audio"
)

// ErrTranscriptionFailed wraps every transport, status or decoding failure
// of a transcription backend.
var ErrTranscriptionFailed = errors.New("transcription failed")

// Transcriber turns a finished recording into trimmed text. An empty result
// with a nil error means nothing was said.
type Transcriber interface {
	Transcribe(ctx context.Context, recording audio.RecordingArtifact) (string, error)
}

// Failed marks err as a transcription failure.
func Failed(format string, args ...any) error {
	return fmt.Errorf("%w: %w", ErrTranscriptionFailed, fmt.Errorf(format, args...))
}

type TranscriptionOptions struct {
	Model    string
	Language string
	// Prompt biases recognition towards expected vocabulary, where supported.
	Prompt string
}

type TranscriptionOption func(*TranscriptionOptions)

func WithModel(model string) TranscriptionOption {
	return func(o *TranscriptionOptions) { o.Model = model }
}

func WithLanguage(language string) TranscriptionOption {
	return func(o *TranscriptionOptions) { o.Language = language }
}

func WithPrompt(prompt string) TranscriptionOption {
	return func(o *TranscriptionOptions) { o.Prompt = prompt }
}

func NewTranscriptionOptions(defaults TranscriptionOptions, opts ...TranscriptionOption) TranscriptionOptions {
	for _, opt := range opts {
		opt(&defaults)
	}
	return defaults
}
