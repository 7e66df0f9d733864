package httpc_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/fbicca/ai-heart-failure-predictor/core/audio"
	"github.com/fbicca/ai-heart-failure-predictor/core/conversations"
	chatremote "github.com/fbicca/ai-heart-failure-predictor/core/conversations/remote"
	sttremote "github.com/fbicca/ai-heart-failure-predictor/core/speechtotext/remote"
	ttsremote "github.com/fbicca/ai-heart-failure-predictor/core/texttospeech/remote"
	"github.com/fbicca/ai-heart-failure-predictor/internal/httpc"
)

func TestDefaultIsShared(t *testing.T) {
	if httpc.Default() != httpc.Default() {
		t.Fatalf("expected the same default client on every call")
	}
	if httpc.Default().Jar == nil {
		t.Fatalf("expected the default client to keep cookies")
	}
}

func TestSessionCookieReachesEveryEndpoint(t *testing.T) {
	var (
		mu        sync.Mutex
		cookieFor = map[string]string{}
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		if c, err := r.Cookie("session"); err == nil {
			cookieFor[r.URL.Path] = c.Value
		}
		mu.Unlock()

		switch r.URL.Path {
		case "/transcribe":
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
			_ = json.NewEncoder(w).Encode(map[string]string{"text": "oi"})
		case "/chat":
			_ = json.NewEncoder(w).Encode(map[string]string{"msg": "olá"})
		case "/tts":
			payload, _ := audio.EncodeWAV([]byte{1, 0, 2, 0}, 16000)
			w.Header().Set("Content-Type", "audio/wav")
			_, _ = w.Write(payload)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	transcriber, err := sttremote.NewTranscriptionClient(server.URL, nil)
	if err != nil {
		t.Fatalf("expected transcription client, got %v", err)
	}
	chat, err := chatremote.NewChatClient(server.URL, nil)
	if err != nil {
		t.Fatalf("expected chat client, got %v", err)
	}
	synthesizer, err := ttsremote.NewSynthesisClient(server.URL, nil)
	if err != nil {
		t.Fatalf("expected synthesis client, got %v", err)
	}

	ctx := context.Background()
	recording := audio.RecordingArtifact{PCM: []byte{1, 0}, Encoding: audio.GetDefaultEncodingInfo()}
	if _, err := transcriber.Transcribe(ctx, recording); err != nil {
		t.Fatalf("expected transcription, got %v", err)
	}
	if _, _, err := chat.Converse(ctx, "oi", conversations.State{}); err != nil {
		t.Fatalf("expected reply, got %v", err)
	}
	synthesized, err := synthesizer.Synthesize(ctx, "olá")
	if err != nil {
		t.Fatalf("expected audio, got %v", err)
	}
	synthesized.Release()

	mu.Lock()
	defer mu.Unlock()
	for _, path := range []string{"/chat", "/tts"} {
		if cookieFor[path] != "abc" {
			t.Fatalf("expected session cookie on %s, got %q", path, cookieFor[path])
		}
	}
}
