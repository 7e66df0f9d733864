package audio

import (
	"errors"
	"fmt"
	"mime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

var ErrEmptyPayload = errors.New("audio payload is empty")

// SynthesizedAudio is a playable reply. Its PCM buffer is the backing
// resource and is dropped by Release, which runs at most once.
type SynthesizedAudio struct {
	// Handle identifies this artifact in logs and playback marks.
	Handle string
	// Source is where the audio came from, usually the synthesis endpoint.
	Source   string
	Encoding EncodingInfo

	mu        sync.Mutex
	pcm       []byte
	once      sync.Once
	released  atomic.Bool
	onRelease []func()
}

func NewSynthesizedAudio(source string, pcm []byte, encoding EncodingInfo) (*SynthesizedAudio, error) {
	if len(pcm) == 0 {
		return nil, ErrEmptyPayload
	}
	if encoding.IsZero() {
		encoding = GetDefaultEncodingInfo()
	}

	return &SynthesizedAudio{
		Handle:   uuid.NewString(),
		Source:   source,
		Encoding: encoding,
		pcm:      pcm,
	}, nil
}

// DecodeSynthesizedAudio turns a synthesis response body into a playable
// artifact. WAV bodies are recognised by signature; raw bodies need an
// audio/L16 style content type.
func DecodeSynthesizedAudio(source string, payload []byte, contentType string) (*SynthesizedAudio, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}

	if IsWAV(payload) {
		pcm, encoding, err := DecodeWAV(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode wav payload: %w", err)
		}
		return NewSynthesizedAudio(source, pcm, encoding)
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("unsupported audio payload (content type %q)", contentType)
	}

	switch strings.ToLower(mediaType) {
	case "audio/l16", "audio/pcm", "audio/x-linear16":
		encoding := GetDefaultEncodingInfo()
		if rate, err := strconv.Atoi(params["rate"]); err == nil && rate > 0 {
			encoding.SampleRate = rate
		}
		return NewSynthesizedAudio(source, payload, encoding)
	case "audio/wav", "audio/wave", "audio/x-wav":
		return nil, ErrNotWAV
	}

	return nil, fmt.Errorf("unsupported audio payload (content type %q)", contentType)
}

// PCM returns the backing buffer, or nil once released.
func (a *SynthesizedAudio) PCM() []byte {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pcm
}

// OnRelease registers a hook run when the artifact is released.
func (a *SynthesizedAudio) OnRelease(hook func()) {
	if a == nil || hook == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onRelease = append(a.onRelease, hook)
}

// Release drops the backing buffer. It reports whether this call did the
// release; only the first call does.
func (a *SynthesizedAudio) Release() bool {
	if a == nil {
		return false
	}

	released := false
	a.once.Do(func() {
		a.mu.Lock()
		a.pcm = nil
		hooks := a.onRelease
		a.onRelease = nil
		a.mu.Unlock()

		a.released.Store(true)
		released = true
		for _, hook := range hooks {
			hook()
		}
	})
	return released
}

func (a *SynthesizedAudio) IsReleased() bool { return a != nil && a.released.Load() }
