package orchestration

import "testing"

func TestStatusMessage(t *testing.T) {
	tests := []struct {
		state   State
		failure FailureKind
		want    string
	}{
		{StateIdle, FailureNone, "ready"},
		{StateRecording, FailureNone, "recording"},
		{StateTranscribing, FailureNone, "transcribing"},
		{StateConversing, FailureNone, "thinking"},
		{StateSynthesizing, FailureNone, "synthesizing"},
		{StatePlaying, FailureNone, "speaking"},
		{StateError, FailureNone, "something went wrong"},
		{StateError, FailurePermissionDenied, "allow microphone access"},
		{StateIdle, FailureTranscription, "transcription failed"},
		{StateIdle, FailurePlayback, "playback failed"},
		// Active states always describe the upcoming operation.
		{StateRecording, FailureTranscription, "recording"},
	}

	for _, tt := range tests {
		if got := StatusMessage(tt.state, tt.failure); got != tt.want {
			t.Errorf("StatusMessage(%s, %s) = %q, want %q", tt.state, tt.failure, got, tt.want)
		}
	}
}
