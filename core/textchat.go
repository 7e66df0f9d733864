package orchestration

import (
	"context"
	"fmt"
	"strings"

	"github.com/fbicca/ai-heart-failure-predictor/core/conversations"
)

// SendText is the typed entry point into the dialogue service. Unlike the
// voice path it carries the conversation state token from one call to the
// next. It runs independently of the voice cycle; typed messages are
// serialized among themselves.
func (o *Orchestrator) SendText(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	if o.conversation == nil {
		return "", fmt.Errorf("%w: no conversation configured", ErrConversationFailed)
	}

	ctx, span := tracer.Start(ctx, "send text")
	defer span.End()

	o.textMu.Lock()
	defer o.textMu.Unlock()

	reply, next, err := o.conversation.Converse(ctx, text, o.textState)
	if err != nil {
		recordStepError(span, err)
		o.reportFailure(ctx, "text", failureKindOf(err, FailureConversation), err)
		return "", err
	}

	o.textState = next
	return reply, nil
}

// ConversationState returns the token the next typed message will carry.
func (o *Orchestrator) ConversationState() conversations.State {
	o.textMu.Lock()
	defer o.textMu.Unlock()
	return o.textState
}

// ResetConversation drops the text path token so the next typed message
// starts a new dialogue.
func (o *Orchestrator) ResetConversation() {
	o.textMu.Lock()
	defer o.textMu.Unlock()
	o.textState = conversations.State{}
}
