// Package remote is the HTTP binding of the BotHealth speech synthesis
// endpoint.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/fbicca/ai-heart-failure-predictor/core/audio"
	"github.com/fbicca/ai-heart-failure-predictor/core/texttospeech"
	"github.com/fbicca/ai-heart-failure-predictor/internal/httpc"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	scopeName = "github.com/fbicca/ai-heart-failure-predictor/core/texttospeech/remote"

	// maxAudioSize caps how much synthesized audio is read.
	maxAudioSize = 32 << 20
)

var (
	tracer = otel.Tracer(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

type SynthesisClient struct {
	endpoint   string
	httpClient *http.Client
}

var _ texttospeech.Synthesizer = (*SynthesisClient)(nil)

// NewSynthesisClient posts reply text to {baseURL}/tts. A nil httpClient
// selects the shared httpc.Default client.
func NewSynthesisClient(baseURL string, httpClient *http.Client) (*SynthesisClient, error) {
	endpoint, err := url.JoinPath(baseURL, "tts")
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if httpClient == nil {
		httpClient = httpc.Default()
	}

	return &SynthesisClient{endpoint: endpoint, httpClient: httpClient}, nil
}

func (c *SynthesisClient) Synthesize(ctx context.Context, text string) (*audio.SynthesizedAudio, error) {
	ctx, span := tracer.Start(ctx, "synthesize reply")
	defer span.End()
	span.SetAttributes(attribute.Int("text.length", len(text)))

	synthesized, err := c.synthesize(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("audio.handle", synthesized.Handle))
	return synthesized, nil
}

func (c *SynthesisClient) synthesize(ctx context.Context, text string) (*audio.SynthesizedAudio, error) {
	body, err := json.Marshal(struct {
		Text string `json:"text"`
	}{Text: text})
	if err != nil {
		return nil, texttospeech.Failed("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, texttospeech.Failed("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, texttospeech.Failed("request to %s failed: %w", c.endpoint, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioSize))
	if err != nil {
		return nil, texttospeech.Failed("failed to read audio payload: %w", err)
	}
	contentType := resp.Header.Get("Content-Type")
	logger.DebugContext(ctx, "synthesis response", "status", resp.StatusCode, "bytes", len(payload), "content_type", contentType)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, texttospeech.Failed("non-OK HTTP status: %s", resp.Status)
	}

	synthesized, err := audio.DecodeSynthesizedAudio(c.endpoint, payload, contentType)
	if err != nil {
		return nil, texttospeech.Failed("failed to decode audio payload: %w", err)
	}
	return synthesized, nil
}
