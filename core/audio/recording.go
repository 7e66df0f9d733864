package audio

import (
	"bytes"
	"sync"
)

const MimeTypeWAV = "audio/wav"

// Recording accumulates raw chunks from a single capture session. It is
// safe to append from a device callback while another goroutine finalizes.
type Recording struct {
	encoding EncodingInfo

	mu        sync.Mutex
	chunks    [][]byte
	size      int
	finalized bool
}

func NewRecording(encoding EncodingInfo) *Recording {
	if encoding.IsZero() {
		encoding = GetDefaultEncodingInfo()
	}
	return &Recording{encoding: encoding}
}

// Append copies chunk into the recording. Chunks arriving after Finalize
// are dropped and Append reports false.
func (r *Recording) Append(chunk []byte) bool {
	if r == nil || len(chunk) == 0 {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return false
	}

	r.chunks = append(r.chunks, bytes.Clone(chunk))
	r.size += len(chunk)
	return true
}

func (r *Recording) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Finalize freezes the recording and joins its chunks into one artifact.
// Repeated calls return an empty artifact.
func (r *Recording) Finalize() RecordingArtifact {
	if r == nil {
		return RecordingArtifact{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return RecordingArtifact{Encoding: r.encoding}
	}
	r.finalized = true

	pcm := make([]byte, 0, r.size)
	for _, chunk := range r.chunks {
		pcm = append(pcm, chunk...)
	}
	r.chunks = nil

	return RecordingArtifact{PCM: pcm, Encoding: r.encoding}
}

// RecordingArtifact is the immutable result of a finished capture session.
type RecordingArtifact struct {
	PCM      []byte
	Encoding EncodingInfo
}

func (a RecordingArtifact) IsEmpty() bool { return len(a.PCM) == 0 }

// WAV packages the artifact for upload.
func (a RecordingArtifact) WAV() ([]byte, error) {
	encoding := a.Encoding
	if encoding.IsZero() {
		encoding = GetDefaultEncodingInfo()
	}
	return EncodeWAV(a.PCM, encoding.SampleRate)
}

func (a RecordingArtifact) MimeType() string { return MimeTypeWAV }
