// Package deepgram transcribes finished recordings through the Deepgram
// live listen websocket.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/fbicca/ai-heart-failure-predictor/core/audio"
	"github.com/fbicca/ai-heart-failure-predictor/core/speechtotext"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

const (
	scopeName = "github.com/fbicca/ai-heart-failure-predictor/core/speechtotext/deepgram"

	defaultListenURL = "wss://api.deepgram.com/v1/listen"
	defaultModel     = "nova-3"
	defaultLanguage  = "pt-BR"
	// chunkDuration is how much audio goes into each websocket frame, in
	// milliseconds.
	chunkDuration = 100
)

var tracer = otel.Tracer(scopeName)

var ErrMissingAPIKey = errors.New("deepgram api key not found")

type TranscriptionClient struct {
	apiKey    string
	listenURL string
	options   speechtotext.TranscriptionOptions
	dialer    *websocket.Dialer
}

var _ speechtotext.Transcriber = (*TranscriptionClient)(nil)

func NewTranscriptionClient(apiKey string, opts ...speechtotext.TranscriptionOption) (*TranscriptionClient, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	return &TranscriptionClient{
		apiKey:    apiKey,
		listenURL: defaultListenURL,
		options: speechtotext.NewTranscriptionOptions(speechtotext.TranscriptionOptions{
			Model:    defaultModel,
			Language: defaultLanguage,
		}, opts...),
		dialer: websocket.DefaultDialer,
	}, nil
}

// Transcribe streams the recording, asks Deepgram to flush with CloseStream
// and joins every final segment received before the server closes.
func (c *TranscriptionClient) Transcribe(ctx context.Context, recording audio.RecordingArtifact) (string, error) {
	ctx, span := tracer.Start(ctx, "transcribe recording with deepgram")
	defer span.End()

	text, err := c.transcribe(ctx, recording)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return text, nil
}

func (c *TranscriptionClient) transcribe(ctx context.Context, recording audio.RecordingArtifact) (string, error) {
	if recording.IsEmpty() {
		return "", nil
	}

	encoding, err := listenEncodingFor(recording.Encoding)
	if err != nil {
		return "", speechtotext.Failed("invalid encoding: %w", err)
	}

	conn, err := c.connectWebsocket(ctx, encoding)
	if err != nil {
		return "", speechtotext.Failed("failed to open websocket: %w", err)
	}
	defer conn.Close()

	var (
		segments []string
		mu       sync.Mutex
	)
	readDone := make(chan error, 1)
	go func() {
		readDone <- readMessages(conn, func(transcript string) {
			mu.Lock()
			defer mu.Unlock()
			segments = append(segments, transcript)
		})
	}()

	chunkSize := encoding.chunkSize()
	for start := 0; start < len(recording.PCM); start += chunkSize {
		end := min(start+chunkSize, len(recording.PCM))
		if err := conn.WriteMessage(websocket.BinaryMessage, recording.PCM[start:end]); err != nil {
			return "", speechtotext.Failed("failed to write to deepgram client: %w", err)
		}
	}

	if err := conn.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: string(api.TypeCloseStreamResponse)}); err != nil {
		return "", speechtotext.Failed("failed to close deepgram stream: %w", err)
	}

	select {
	case err := <-readDone:
		if err != nil {
			return "", speechtotext.Failed("failed to read deepgram websocket message: %w", err)
		}
	case <-ctx.Done():
		return "", speechtotext.Failed("transcription interrupted: %w", ctx.Err())
	}

	mu.Lock()
	defer mu.Unlock()
	return strings.TrimSpace(strings.Join(segments, " ")), nil
}

func (c *TranscriptionClient) connectWebsocket(ctx context.Context, encoding listenEncoding) (*websocket.Conn, error) {
	listenURL, err := url.Parse(c.listenURL)
	if err != nil {
		return nil, fmt.Errorf("invalid listen url: %w", err)
	}

	queryParams := listenURL.Query()
	queryParams.Set("encoding", encoding.Name)
	queryParams.Set("sample_rate", strconv.Itoa(encoding.SampleRate))
	queryParams.Set("channels", "1")
	queryParams.Set("model", c.options.Model)
	queryParams.Set("smart_format", "true")
	if c.options.Language != "" {
		queryParams.Set("language", c.options.Language)
	}
	if c.options.Prompt != "" {
		queryParams.Set("keyterm", c.options.Prompt)
	}
	listenURL.RawQuery = queryParams.Encode()

	conn, _, err := c.dialer.DialContext(ctx, listenURL.String(),
		http.Header{"Authorization": {"Token " + c.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	return conn, nil
}

// readMessages forwards final transcripts until the server closes the
// connection. A normal closure ends the transcription successfully.
func readMessages(conn *websocket.Conn, onFinal func(string)) error {
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}
		if msgType == websocket.BinaryMessage {
			continue
		}

		var parsedMsg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &parsedMsg); err != nil {
			log.Println("Failed to unmarshal deepgram message", err)
			continue
		}

		if api.TypeResponse(parsedMsg.Type) != api.TypeMessageResponse {
			continue
		}

		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			log.Println("Failed to unmarshal deepgram message", err)
			continue
		}
		if !msgResp.IsFinal || len(msgResp.Channel.Alternatives) == 0 {
			continue
		}

		if transcript := strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript); transcript != "" {
			onFinal(transcript)
		}
	}
}
