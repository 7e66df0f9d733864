// Package texttospeech defines the synthesis contract shared by the
// text-to-speech backends.
package texttospeech

import (
	"context"
	"errors"
	"fmt"

	"github.com/fbicca/ai-heart-failure-predictor/core/audio"
)

// ErrSynthesisFailed wraps every transport, status or decoding failure of a
// synthesis backend, including an empty audio payload.
var ErrSynthesisFailed = errors.New("synthesis failed")

// Synthesizer turns reply text into one playable artifact. Callers own the
// returned audio and must Release it.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*audio.SynthesizedAudio, error)
}

// Failed marks err as a synthesis failure.
func Failed(format string, args ...any) error {
	return fmt.Errorf("%w: %w", ErrSynthesisFailed, fmt.Errorf(format, args...))
}

type TextToSpeechOptions struct {
	EncodingInfo audio.EncodingInfo
}

type TextToSpeechOption func(*TextToSpeechOptions)

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TextToSpeechOption {
	return func(o *TextToSpeechOptions) {
		if encodingInfo.IsZero() {
			return
		}

		o.EncodingInfo = encodingInfo
	}
}

func NewTextToSpeechOptions(opts ...TextToSpeechOption) TextToSpeechOptions {
	options := TextToSpeechOptions{EncodingInfo: audio.GetDefaultEncodingInfo()}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
