package orchestration

import (
	"context"
	"testing"
)

func TestCaptureStopUnknownHandleReturnsEmpty(t *testing.T) {
	input := &fakeAudioInput{}
	capture := newCaptureController(input)

	if artifact := capture.Stop("missing"); !artifact.IsEmpty() {
		t.Fatalf("expected empty artifact for unknown handle")
	}

	handle, err := capture.Start(context.Background())
	if err != nil {
		t.Fatalf("expected capture to start, got %v", err)
	}
	input.emit([]byte("he"))
	input.emit([]byte("llo"))

	if artifact := capture.Stop("other"); !artifact.IsEmpty() {
		t.Fatalf("expected empty artifact for a foreign handle")
	}

	artifact := capture.Stop(handle)
	if string(artifact.PCM) != "hello" {
		t.Fatalf("expected chunks in order, got %q", artifact.PCM)
	}
	if again := capture.Stop(handle); !again.IsEmpty() {
		t.Fatalf("expected second stop to be a no-op")
	}
	if input.stops.Load() != 1 {
		t.Fatalf("expected one device stop, got %d", input.stops.Load())
	}
}

func TestCaptureDropsChunksAfterStop(t *testing.T) {
	input := &fakeAudioInput{}
	capture := newCaptureController(input)

	handle, _ := capture.Start(context.Background())
	chunk := []byte("abc")
	input.emit(chunk)
	chunk[0] = 'X'
	artifact := capture.Stop(handle)
	input.emit([]byte("late"))

	if string(artifact.PCM) != "abc" {
		t.Fatalf("expected copied chunk without late audio, got %q", artifact.PCM)
	}
}
