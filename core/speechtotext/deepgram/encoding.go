package deepgram

import (
	"fmt"
	"slices"

	"github.com/fbicca/ai-heart-failure-predictor/core/audio"
)

// captureRates are the rates the capture devices record at.
var captureRates = []int{16000, 24000}

// listenEncoding is how a recording is described in the listen query.
type listenEncoding struct {
	Name       string
	SampleRate int
	// bytesPerSample sizes the websocket chunks.
	bytesPerSample int
}

func listenEncodingFor(encoding audio.EncodingInfo) (listenEncoding, error) {
	if encoding.Format != audio.EncodingLinear16 {
		return listenEncoding{}, fmt.Errorf("recordings must be linear16, got %q", encoding.Format.Name())
	}
	if !slices.Contains(captureRates, encoding.SampleRate) {
		return listenEncoding{}, fmt.Errorf("unsupported sample rate %d, expected one of %v", encoding.SampleRate, captureRates)
	}

	return listenEncoding{
		Name:           encoding.Format.Name(),
		SampleRate:     encoding.SampleRate,
		bytesPerSample: encoding.Format.ByteSize(),
	}, nil
}

// chunkSize is the byte length of chunkDuration of audio.
func (e listenEncoding) chunkSize() int {
	return e.SampleRate * e.bytesPerSample * chunkDuration / 1000
}
