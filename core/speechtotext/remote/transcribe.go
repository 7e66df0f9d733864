// Package remote is the HTTP binding of the BotHealth transcription
// endpoint.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/fbicca/ai-heart-failure-predictor/core/audio"
	"github.com/fbicca/ai-heart-failure-predictor/core/speechtotext"
	"github.com/fbicca/ai-heart-failure-predictor/internal/httpc"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	scopeName = "github.com/fbicca/ai-heart-failure-predictor/core/speechtotext/remote"

	formField = "audio"
	fileName  = "voice.wav"
	// maxResponseSize caps how much of a response body is read.
	maxResponseSize = 1 << 20
)

var (
	tracer = otel.Tracer(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

type TranscriptionClient struct {
	endpoint   string
	httpClient *http.Client
}

var _ speechtotext.Transcriber = (*TranscriptionClient)(nil)

// NewTranscriptionClient posts recordings to {baseURL}/transcribe. A nil
// httpClient selects the shared httpc.Default client.
func NewTranscriptionClient(baseURL string, httpClient *http.Client) (*TranscriptionClient, error) {
	endpoint, err := url.JoinPath(baseURL, "transcribe")
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if httpClient == nil {
		httpClient = httpc.Default()
	}

	return &TranscriptionClient{endpoint: endpoint, httpClient: httpClient}, nil
}

func (c *TranscriptionClient) Transcribe(ctx context.Context, recording audio.RecordingArtifact) (string, error) {
	ctx, span := tracer.Start(ctx, "transcribe recording")
	defer span.End()
	span.SetAttributes(attribute.Int("audio.bytes", len(recording.PCM)))

	text, err := c.transcribe(ctx, recording)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return text, nil
}

func (c *TranscriptionClient) transcribe(ctx context.Context, recording audio.RecordingArtifact) (string, error) {
	payload, err := recording.WAV()
	if err != nil {
		return "", speechtotext.Failed("failed to package recording: %w", err)
	}

	body, contentType, err := multipartBody(payload, recording.MimeType())
	if err != nil {
		return "", speechtotext.Failed("failed to create multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return "", speechtotext.Failed("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", speechtotext.Failed("request to %s failed: %w", c.endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", speechtotext.Failed("failed to read response body: %w", err)
	}
	logger.DebugContext(ctx, "transcription response", "status", resp.StatusCode, "bytes", len(respBody))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", speechtotext.Failed("non-OK HTTP status: %s", resp.Status)
	}

	var parsed struct {
		Text *string `json:"text"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", speechtotext.Failed("malformed response body: %w", err)
	}
	if parsed.Text == nil {
		return "", nil
	}

	return strings.TrimSpace(*parsed.Text), nil
}

func multipartBody(payload []byte, mimeType string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, formField, fileName))
	header.Set("Content-Type", mimeType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(payload); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return body, writer.FormDataContentType(), nil
}
