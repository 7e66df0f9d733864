// Package openai transcribes recordings with the OpenAI Whisper API.
package openai

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/fbicca/ai-heart-failure-predictor/core/audio"
	"github.com/fbicca/ai-heart-failure-predictor/core/speechtotext"
	"github.com/fbicca/ai-heart-failure-predictor/internal/httpc"
	goopenai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

const scopeName = "github.com/fbicca/ai-heart-failure-predictor/core/speechtotext/openai"

var tracer = otel.Tracer(scopeName)

var ErrMissingAPIKey = errors.New("openai api key not found")

type TranscriptionClient struct {
	client  *goopenai.Client
	options speechtotext.TranscriptionOptions
}

var _ speechtotext.Transcriber = (*TranscriptionClient)(nil)

type ClientOption func(*goopenai.ClientConfig)

// WithBaseURL points the client at an OpenAI compatible server.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *goopenai.ClientConfig) { c.BaseURL = baseURL }
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *goopenai.ClientConfig) { c.HTTPClient = httpClient }
}

func NewTranscriptionClient(apiKey string, clientOpts []ClientOption, opts ...speechtotext.TranscriptionOption) (*TranscriptionClient, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	config := goopenai.DefaultConfig(apiKey)
	config.HTTPClient = httpc.Default()
	for _, opt := range clientOpts {
		opt(&config)
	}

	return &TranscriptionClient{
		client: goopenai.NewClientWithConfig(config),
		options: speechtotext.NewTranscriptionOptions(speechtotext.TranscriptionOptions{
			Model:    goopenai.Whisper1,
			Language: "pt",
		}, opts...),
	}, nil
}

func (c *TranscriptionClient) Transcribe(ctx context.Context, recording audio.RecordingArtifact) (string, error) {
	ctx, span := tracer.Start(ctx, "transcribe recording with whisper")
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

	payload, err := recording.WAV()
	if err != nil {
		return "", speechtotext.Failed("failed to package recording: %w", err)
	}

	resp, err := c.client.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    c.options.Model,
		FilePath: "voice.wav",
		Reader:   bytes.NewReader(payload),
		Language: c.options.Language,
		Prompt:   c.options.Prompt,
	})
	if err != nil {
		return "", speechtotext.Failed("whisper transcription failed: %w", err)
	}

	return strings.TrimSpace(resp.Text), nil
}
