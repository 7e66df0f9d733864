package remote

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fbicca/ai-heart-failure-predictor/core/audio"
	"github.com/fbicca/ai-heart-failure-predictor/core/texttospeech"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *SynthesisClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewSynthesisClient(server.URL, server.Client())
	if err != nil {
		t.Fatalf("expected client, got %v", err)
	}
	return client
}

func TestSynthesizeDecodesWAV(t *testing.T) {
	pcm := []byte{1, 0, 2, 0, 3, 0, 4, 0}
	wav, err := audio.EncodeWAV(pcm, 22050)
	if err != nil {
		t.Fatalf("expected wav, got %v", err)
	}

	var gotPath, gotBody string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write(wav)
	})

	synthesized, err := client.Synthesize(context.Background(), "hi there")
	if err != nil {
		t.Fatalf("expected audio, got %v", err)
	}
	defer synthesized.Release()

	if gotPath != "/tts" || gotBody != `{"text":"hi there"}` {
		t.Fatalf("unexpected request path=%s body=%s", gotPath, gotBody)
	}
	if synthesized.Encoding.SampleRate != 22050 {
		t.Fatalf("expected 22050Hz, got %d", synthesized.Encoding.SampleRate)
	}
	if string(synthesized.PCM()) != string(pcm) {
		t.Fatalf("expected decoded pcm, got %v", synthesized.PCM())
	}
	if synthesized.Handle == "" || synthesized.Source == "" {
		t.Fatalf("expected audio handle and source to be set")
	}
}

func TestSynthesizeRawLinear16(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/L16; rate=24000")
		_, _ = w.Write([]byte{0, 1, 0, 1})
	})

	synthesized, err := client.Synthesize(context.Background(), "hi")
	if err != nil {
		t.Fatalf("expected audio, got %v", err)
	}
	if synthesized.Encoding.SampleRate != 24000 {
		t.Fatalf("expected 24000Hz, got %d", synthesized.Encoding.SampleRate)
	}
}

func TestSynthesizeFailures(t *testing.T) {
	tests := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		},
		"empty payload": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "audio/wav")
		},
		"undecodable payload": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "audio/mpeg")
			_, _ = w.Write([]byte("ID3..."))
		},
	}

	for name, handler := range tests {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, handler)
			if _, err := client.Synthesize(context.Background(), "hi"); !errors.Is(err, texttospeech.ErrSynthesisFailed) {
				t.Fatalf("expected ErrSynthesisFailed, got %v", err)
			}
		})
	}
}
