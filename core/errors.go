package orchestration

import (
	"errors"

	"github.com/fbicca/ai-heart-failure-predictor/core/audio"
	"github.com/fbicca/ai-heart-failure-predictor/core/conversations"
	"github.com/fbicca/ai-heart-failure-predictor/core/speechtotext"
	"github.com/fbicca/ai-heart-failure-predictor/core/texttospeech"
)

var (
	ErrPermissionDenied    = audio.ErrPermissionDenied
	ErrDeviceUnavailable   = audio.ErrDeviceUnavailable
	ErrTranscriptionFailed = speechtotext.ErrTranscriptionFailed
	ErrConversationFailed  = conversations.ErrConversationFailed
	ErrSynthesisFailed     = texttospeech.ErrSynthesisFailed
	// ErrPlaybackFailed is reported but never fails the turn.
	ErrPlaybackFailed = errors.New("playback failed")
	// ErrPlaybackAbandoned is returned by a playback that a new capture
	// session cut short.
	ErrPlaybackAbandoned = errors.New("playback abandoned")

	// ErrBusy rejects a capture request while a remote call is in flight.
	ErrBusy   = errors.New("orchestrator busy")
	ErrClosed = errors.New("orchestrator closed")
)

// FailureKind is the step a cycle failed at.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailurePermissionDenied
	FailureDeviceUnavailable
	FailureTranscription
	FailureConversation
	FailureSynthesis
	FailurePlayback
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailurePermissionDenied:
		return "permission_denied"
	case FailureDeviceUnavailable:
		return "device_unavailable"
	case FailureTranscription:
		return "transcription"
	case FailureConversation:
		return "conversation"
	case FailureSynthesis:
		return "synthesis"
	case FailurePlayback:
		return "playback"
	}
	return "unknown"
}

// failureKindOf maps an error onto the taxonomy. fallback is used for errors
// that carry no known sentinel.
func failureKindOf(err error, fallback FailureKind) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrPermissionDenied):
		return FailurePermissionDenied
	case errors.Is(err, ErrDeviceUnavailable):
		return FailureDeviceUnavailable
	case errors.Is(err, ErrTranscriptionFailed):
		return FailureTranscription
	case errors.Is(err, ErrConversationFailed):
		return FailureConversation
	case errors.Is(err, ErrSynthesisFailed):
		return FailureSynthesis
	case errors.Is(err, ErrPlaybackFailed):
		return FailurePlayback
	}
	return fallback
}
