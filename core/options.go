package orchestration

import (
	"context"
	"reflect"

	"github.com/fbicca/ai-heart-failure-predictor/core/audio"
	"github.com/fbicca/ai-heart-failure-predictor/core/conversations"
	"github.com/fbicca/ai-heart-failure-predictor/core/speechtotext"
	"github.com/fbicca/ai-heart-failure-predictor/core/texttospeech"
)

type OrchestratorOption func(*Orchestrator)

type AudioInput interface {
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
}

// AudioInputWithEncoding is implemented by inputs that capture in something
// other than the default encoding.
type AudioInputWithEncoding interface {
	AudioInput
	CaptureEncodingInfo() audio.EncodingInfo
}

func WithAudioInput(client AudioInput) OrchestratorOption {
	return func(o *Orchestrator) {
		if isNil(client) {
			client = nil
		}
		o.capture = newCaptureController(client)
	}
}

// AudioOutput plays PCM and confirms, through Mark, when everything sent
// before the mark has been played.
type AudioOutput interface {
	EncodingInfo() audio.EncodingInfo
	SendAudio(audio []byte) error
	ClearBuffer()
	Mark(mark string, callback func(string)) error
}

func WithAudioOutput(client AudioOutput) OrchestratorOption {
	return func(o *Orchestrator) {
		if isNil(client) {
			client = nil
		}
		o.playback = newPlaybackController(client)
	}
}

type Transcriber = speechtotext.Transcriber

func WithTranscriber(client Transcriber) OrchestratorOption {
	return func(o *Orchestrator) { o.transcriber = client }
}

type Conversation = conversations.Conversation

func WithConversation(client Conversation) OrchestratorOption {
	return func(o *Orchestrator) { o.conversation = client }
}

type Synthesizer = texttospeech.Synthesizer

func WithSynthesizer(client Synthesizer) OrchestratorOption {
	return func(o *Orchestrator) { o.synthesizer = client }
}

// TextDisplay shows a reply in the text chat. It is handed every voice reply,
// empty ones included, before synthesis starts.
type TextDisplay interface {
	DisplayReply(reply string)
}

type TextDisplayFunc func(reply string)

func (f TextDisplayFunc) DisplayReply(reply string) { f(reply) }

func WithTextDisplay(display TextDisplay) OrchestratorOption {
	return func(o *Orchestrator) {
		if isNil(display) {
			display = nil
		}
		o.textDisplay = display
	}
}

// WithStatusCallback registers a callback run on every state transition, in
// transition order. It runs synchronously and must not call back into the
// Orchestrator's capture controls.
func WithStatusCallback(callback func(Status)) OrchestratorOption {
	return func(o *Orchestrator) { o.onStatus = callback }
}

// WithContext sets the base context for device and remote calls. Cancelling
// it has the same effect as Close.
func WithContext(ctx context.Context) OrchestratorOption {
	return func(o *Orchestrator) {
		if ctx != nil {
			o.parentContext = ctx
		}
	}
}

// isNil detects typed-nil interface values so they are treated as unset.
func isNil(client any) bool {
	if client == nil {
		return true
	}

	v := reflect.ValueOf(client)
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}
