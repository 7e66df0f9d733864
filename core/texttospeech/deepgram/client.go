// Package deepgram synthesizes replies through the Deepgram speak websocket.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"github.com/fbicca/ai-heart-failure-predictor/core/audio"
	"github.com/fbicca/ai-heart-failure-predictor/core/texttospeech"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	scopeName = "github.com/fbicca/ai-heart-failure-predictor/core/texttospeech/deepgram"

	defaultSpeakURL = "wss://api.deepgram.com/v1/speak"
)

var tracer = otel.Tracer(scopeName)

var (
	ErrMissingAPIKey = errors.New("deepgram api key not found")
	ErrInvalidVoice  = errors.New("invalid voice")
)

type websocketMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

func sendTextMsg(text string) websocketMessage { return websocketMessage{Type: "Speak", Text: text} }

var (
	flushMsg = websocketMessage{Type: "Flush"}
	closeMsg = websocketMessage{Type: "Close"}
)

type TextToSpeechClient struct {
	apiKey   string
	speakURL string
	voice    deepgramVoice
	options  texttospeech.TextToSpeechOptions
	dialer   *websocket.Dialer
}

var _ texttospeech.Synthesizer = (*TextToSpeechClient)(nil)

func NewTextToSpeechClient(apiKey string, voice deepgramVoice, opts ...texttospeech.TextToSpeechOption) (*TextToSpeechClient, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if voice == "" {
		voice = defaultVoice
	}
	if !slices.Contains(GetAvailableVoices(), voice) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidVoice, voice)
	}

	return &TextToSpeechClient{
		apiKey:   apiKey,
		speakURL: defaultSpeakURL,
		voice:    voice,
		options:  texttospeech.NewTextToSpeechOptions(opts...),
		dialer:   websocket.DefaultDialer,
	}, nil
}

func (c *TextToSpeechClient) SetVoice(voice deepgramVoice) {
	c.voice = voice
}

// Synthesize speaks the whole text, flushes, and collects audio frames until
// Deepgram confirms the flush.
func (c *TextToSpeechClient) Synthesize(ctx context.Context, text string) (*audio.SynthesizedAudio, error) {
	ctx, span := tracer.Start(ctx, "synthesize reply with deepgram")
	defer span.End()
	span.SetAttributes(attribute.String("voice", string(c.voice)))

	synthesized, err := c.synthesize(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return synthesized, nil
}

func (c *TextToSpeechClient) synthesize(ctx context.Context, text string) (*audio.SynthesizedAudio, error) {
	conn, source, err := c.connectWebsocket(ctx)
	if err != nil {
		return nil, texttospeech.Failed("failed to open websocket: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := conn.WriteJSON(sendTextMsg(text)); err != nil {
		return nil, texttospeech.Failed("failed to send text to deepgram through websocket: %w", err)
	}
	if err := conn.WriteJSON(flushMsg); err != nil {
		return nil, texttospeech.Failed("failed to flush deepgram buffer: %w", err)
	}

	pcm, err := readUntilFlushed(conn)
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, texttospeech.Failed("failed to read deepgram audio: %w", err)
	}

	if err := conn.WriteJSON(closeMsg); err != nil {
		log.Printf("Failed to close deepgram speak stream: %v", err)
	}

	synthesized, err := audio.NewSynthesizedAudio(source, pcm, c.options.EncodingInfo)
	if err != nil {
		return nil, texttospeech.Failed("%w", err)
	}
	return synthesized, nil
}

func (c *TextToSpeechClient) connectWebsocket(ctx context.Context) (*websocket.Conn, string, error) {
	speakURL, err := url.Parse(c.speakURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid speak url: %w", err)
	}

	urlValues := speakURL.Query()
	urlValues.Set("encoding", c.options.EncodingInfo.Format.Name())
	urlValues.Set("sample_rate", strconv.Itoa(c.options.EncodingInfo.SampleRate))
	urlValues.Set("model", string(c.voice))
	urlValues.Set("container", "none")
	speakURL.RawQuery = urlValues.Encode()

	conn, _, err := c.dialer.DialContext(ctx, speakURL.String(),
		http.Header{"Authorization": {"token " + c.apiKey}})
	if err != nil {
		return nil, "", fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	return conn, speakURL.String(), nil
}

func readUntilFlushed(conn *websocket.Conn) ([]byte, error) {
	var pcm []byte
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			return nil, err
		}

		switch msgType {
		case websocket.BinaryMessage:
			pcm = append(pcm, msg...)
		case websocket.TextMessage:
			var parsedMsg websocketMessage
			if err := json.Unmarshal(msg, &parsedMsg); err != nil {
				continue
			}

			switch parsedMsg.Type {
			case "Flushed":
				return pcm, nil
			case "Warning", "Error":
				log.Printf("Deepgram speak message: %s", msg)
			}
		}
	}
}
