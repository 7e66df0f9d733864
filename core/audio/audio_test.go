package audio

import (
	"bytes"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRecordingFinalizeJoinsChunksInOrder(t *testing.T) {
	rec := NewRecording(EncodingInfo{})

	rec.Append([]byte("hel"))
	rec.Append([]byte("lo"))
	artifact := rec.Finalize()

	if got := string(artifact.PCM); got != "hello" {
		t.Fatalf("expected joined payload %q, got %q", "hello", got)
	}
	if artifact.Encoding != GetDefaultEncodingInfo() {
		t.Fatalf("expected default encoding, got %+v", artifact.Encoding)
	}
}

func TestRecordingCopiesChunks(t *testing.T) {
	rec := NewRecording(GetDefaultEncodingInfo())
	chunk := []byte{1, 2, 3, 4}
	rec.Append(chunk)
	chunk[0] = 9

	if got := rec.Finalize().PCM[0]; got != 1 {
		t.Fatalf("expected chunk to be copied on append, got first byte %d", got)
	}
}

func TestRecordingDropsChunksAfterFinalize(t *testing.T) {
	rec := NewRecording(GetDefaultEncodingInfo())
	rec.Append([]byte{1, 2})
	_ = rec.Finalize()

	if rec.Append([]byte{3, 4}) {
		t.Fatalf("expected append after finalize to be rejected")
	}
	if second := rec.Finalize(); !second.IsEmpty() {
		t.Fatalf("expected second finalize to return empty artifact, got %d bytes", len(second.PCM))
	}
}

func TestRecordingConcurrentAppend(t *testing.T) {
	rec := NewRecording(GetDefaultEncodingInfo())

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				rec.Append([]byte{0, 0})
			}
		}()
	}
	wg.Wait()

	if got, want := len(rec.Finalize().PCM), 8*100*2; got != want {
		t.Fatalf("expected %d bytes, got %d", want, got)
	}
}

func TestWAVRoundTripKeepsPCMAndRate(t *testing.T) {
	pcm := SamplesToBytes([]int16{0, 1000, -1000, 32767})

	wav, err := EncodeWAV(pcm, 24000)
	if err != nil {
		t.Fatalf("expected encode to succeed, got %v", err)
	}
	if len(wav) != wavHeaderSize+len(pcm) {
		t.Fatalf("expected %d bytes, got %d", wavHeaderSize+len(pcm), len(wav))
	}

	decoded, encoding, err := DecodeWAV(wav)
	if err != nil {
		t.Fatalf("expected decode to succeed, got %v", err)
	}
	if !bytes.Equal(decoded, pcm) {
		t.Fatalf("expected pcm to survive round trip")
	}
	if encoding.SampleRate != 24000 || encoding.Format != EncodingLinear16 {
		t.Fatalf("unexpected encoding %+v", encoding)
	}
}

func TestDecodeWAVRejectsNonRIFF(t *testing.T) {
	if _, _, err := DecodeWAV([]byte("ID3 mp3 data here")); !errors.Is(err, ErrNotWAV) {
		t.Fatalf("expected ErrNotWAV, got %v", err)
	}
}

func TestResampleLengths(t *testing.T) {
	samples := make([]int16, 320)
	if got := len(Resample(samples, 16000, 48000)); got != 960 {
		t.Fatalf("expected 960 samples after upsampling, got %d", got)
	}
	if got := len(Resample(samples, 16000, 8000)); got != 160 {
		t.Fatalf("expected 160 samples after downsampling, got %d", got)
	}
	if got := len(Resample(samples, 16000, 16000)); got != 320 {
		t.Fatalf("expected same length for equal rates, got %d", got)
	}
}

func TestEncodingInfoDuration(t *testing.T) {
	if got := GetDefaultEncodingInfo().Duration(32000); got != time.Second {
		t.Fatalf("expected one second, got %v", got)
	}
}

func TestDecodeSynthesizedAudio(t *testing.T) {
	pcm := SamplesToBytes([]int16{1, 2, 3})
	wav, _ := EncodeWAV(pcm, 22050)

	fromWAV, err := DecodeSynthesizedAudio("http://tts", wav, "application/octet-stream")
	if err != nil {
		t.Fatalf("expected wav payload to decode, got %v", err)
	}
	if fromWAV.Encoding.SampleRate != 22050 || !bytes.Equal(fromWAV.PCM(), pcm) {
		t.Fatalf("unexpected wav artifact %+v", fromWAV.Encoding)
	}

	raw, err := DecodeSynthesizedAudio("http://tts", pcm, "audio/L16; rate=8000")
	if err != nil {
		t.Fatalf("expected raw l16 payload to decode, got %v", err)
	}
	if raw.Encoding.SampleRate != 8000 {
		t.Fatalf("expected rate from content type, got %d", raw.Encoding.SampleRate)
	}

	if _, err := DecodeSynthesizedAudio("http://tts", nil, "audio/wav"); !errors.Is(err, ErrEmptyPayload) {
		t.Fatalf("expected empty payload error, got %v", err)
	}
	if _, err := DecodeSynthesizedAudio("http://tts", []byte("mp3"), "audio/mpeg"); err == nil {
		t.Fatalf("expected unsupported content type to fail")
	}
}

func TestSynthesizedAudioReleasesOnce(t *testing.T) {
	a, err := NewSynthesizedAudio("test", []byte{1, 2}, GetDefaultEncodingInfo())
	if err != nil {
		t.Fatalf("expected artifact, got %v", err)
	}

	var hookCalls atomic.Int32
	a.OnRelease(func() { hookCalls.Add(1) })

	var wg sync.WaitGroup
	var releases atomic.Int32
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if a.Release() {
				releases.Add(1)
			}
		}()
	}
	wg.Wait()

	if releases.Load() != 1 || hookCalls.Load() != 1 {
		t.Fatalf("expected exactly one release, got releases=%d hooks=%d", releases.Load(), hookCalls.Load())
	}
	if a.PCM() != nil || !a.IsReleased() {
		t.Fatalf("expected released artifact to drop its buffer")
	}
}
