// Package conversations holds the dialogue contract shared by the
// conversation backends.
package conversations

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrConversationFailed wraps every transport, status or decoding failure of
// a dialogue backend.
var ErrConversationFailed = errors.New("conversation failed")

// Conversation sends one message to the dialogue service. The returned state
// must be echoed on the next call to continue the same dialogue.
type Conversation interface {
	Converse(ctx context.Context, text string, state State) (reply string, next State, err error)
}

// Failed marks err as a conversation failure.
func Failed(format string, args ...any) error {
	return fmt.Errorf("%w: %w", ErrConversationFailed, fmt.Errorf(format, args...))
}

// State is the continuity token issued by the dialogue service. It is kept
// as the raw JSON the server sent and is never interpreted here.
type State struct {
	raw json.RawMessage
}

// NewState copies raw. Empty input and JSON null give the zero State.
func NewState(raw []byte) State {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return State{}
	}
	return State{raw: bytes.Clone(raw)}
}

func (s State) IsZero() bool { return len(s.raw) == 0 }

func (s State) Equal(other State) bool { return bytes.Equal(s.raw, other.raw) }

// Raw returns a copy of the token as received.
func (s State) Raw() json.RawMessage { return bytes.Clone(s.raw) }

func (s State) String() string {
	if s.IsZero() {
		return "<none>"
	}
	return string(s.raw)
}

func (s State) MarshalJSON() ([]byte, error) {
	if s.IsZero() {
		return []byte("null"), nil
	}
	return bytes.Clone(s.raw), nil
}

func (s *State) UnmarshalJSON(data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid conversation state %q", data)
	}
	*s = NewState(data)
	return nil
}
