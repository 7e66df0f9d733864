package orchestration

// Status is a point-in-time view of the orchestrator for presenters.
type Status struct {
	State State
	// Failure is the last failure of the current cycle, kept on the Idle
	// that follows it so the label survives the Error -> Idle edge.
	Failure FailureKind
	// Session identifies the capture session the status belongs to.
	Session string
}

func (s Status) Message() string { return StatusMessage(s.State, s.Failure) }

// StatusMessage derives the user-visible label. It never includes error
// text.
func StatusMessage(state State, failure FailureKind) string {
	if (state == StateIdle || state == StateError) && failure != FailureNone {
		return failureMessage(failure)
	}

	switch state {
	case StateIdle:
		return "ready"
	case StateRecording:
		return "recording"
	case StateTranscribing:
		return "transcribing"
	case StateConversing:
		return "thinking"
	case StateSynthesizing:
		return "synthesizing"
	case StatePlaying:
		return "speaking"
	case StateError:
		return "something went wrong"
	}
	return ""
}

func failureMessage(failure FailureKind) string {
	switch failure {
	case FailurePermissionDenied:
		return "allow microphone access"
	case FailureDeviceUnavailable:
		return "no microphone found"
	case FailureTranscription:
		return "transcription failed"
	case FailureConversation:
		return "conversation failed"
	case FailureSynthesis:
		return "speech synthesis failed"
	case FailurePlayback:
		return "playback failed"
	}
	return "something went wrong"
}
