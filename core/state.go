package orchestration

// State is the position of the voice cycle.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateTranscribing
	StateConversing
	StateSynthesizing
	StatePlaying
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateTranscribing:
		return "transcribing"
	case StateConversing:
		return "conversing"
	case StateSynthesizing:
		return "synthesizing"
	case StatePlaying:
		return "playing"
	case StateError:
		return "error"
	}
	return "unknown"
}

// awaitsRemote reports whether a remote call is in flight in this state.
func (s State) awaitsRemote() bool {
	return s == StateTranscribing || s == StateConversing || s == StateSynthesizing
}
