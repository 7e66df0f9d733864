// Package remote is the HTTP binding of the BotHealth chat endpoint.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/fbicca/ai-heart-failure-predictor/core/conversations"
	"github.com/fbicca/ai-heart-failure-predictor/internal/httpc"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	scopeName = "github.com/fbicca/ai-heart-failure-predictor/core/conversations/remote"

	maxResponseSize = 1 << 20
)

var (
	tracer = otel.Tracer(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

type ChatClient struct {
	endpoint   string
	httpClient *http.Client
}

var _ conversations.Conversation = (*ChatClient)(nil)

type chatRequest struct {
	Message string          `json:"msg"`
	State   json.RawMessage `json:"type_conversation,omitempty"`
}

type chatResponse struct {
	Message *string             `json:"msg"`
	State   conversations.State `json:"type_conversation"`
}

// NewChatClient posts messages to {baseURL}/chat. A nil httpClient selects
// the shared httpc.Default client.
func NewChatClient(baseURL string, httpClient *http.Client) (*ChatClient, error) {
	endpoint, err := url.JoinPath(baseURL, "chat")
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if httpClient == nil {
		httpClient = httpc.Default()
	}

	return &ChatClient{endpoint: endpoint, httpClient: httpClient}, nil
}

func (c *ChatClient) Converse(ctx context.Context, text string, state conversations.State) (string, conversations.State, error) {
	ctx, span := tracer.Start(ctx, "converse")
	defer span.End()
	span.SetAttributes(attribute.Bool("conversation.stateful", !state.IsZero()))

	reply, next, err := c.converse(ctx, text, state)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", state, err
	}
	return reply, next, nil
}

func (c *ChatClient) converse(ctx context.Context, text string, state conversations.State) (string, conversations.State, error) {
	body, err := json.Marshal(chatRequest{Message: text, State: state.Raw()})
	if err != nil {
		return "", state, conversations.Failed("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", state, conversations.Failed("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", state, conversations.Failed("request to %s failed: %w", c.endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", state, conversations.Failed("failed to read response body: %w", err)
	}
	logger.DebugContext(ctx, "chat response", "status", resp.StatusCode, "bytes", len(respBody))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", state, conversations.Failed("non-OK HTTP status: %s", resp.Status)
	}

	return decodeReply(respBody, state)
}

// decodeReply accepts the {msg, type_conversation} object or a bare JSON
// string. A bare string leaves the state untouched; an object without msg is
// an empty reply.
func decodeReply(body []byte, state conversations.State) (string, conversations.State, error) {
	var bare string
	if err := json.Unmarshal(body, &bare); err == nil {
		return bare, state, nil
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", state, conversations.Failed("malformed response body: %w", err)
	}
	if parsed.Message == nil {
		return "", parsed.State, nil
	}

	return *parsed.Message, parsed.State, nil
}
