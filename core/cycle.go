package orchestration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fbicca/ai-heart-failure-predictor/core/audio"
	"github.com/fbicca/ai-heart-failure-predictor/core/conversations"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// runCycle is the tail of one capture session: transcribe, converse,
// synthesize and play, each awaited before the next. Every exit leaves the
// session in Idle unless a newer session has taken over.
func (o *Orchestrator) runCycle(ctx context.Context, session string, recording audio.RecordingArtifact) {
	ctx, span := tracer.Start(ctx, "voice cycle", trace.WithAttributes(
		attribute.String("session", session),
		attribute.Int("audio.bytes", len(recording.PCM)),
	))
	defer span.End()

	if recording.IsEmpty() {
		logger.InfoContext(ctx, "nothing recorded", "session", session)
		o.transition(session, StateIdle)
		return
	}

	text, err := o.transcribe(ctx, recording)
	if err != nil {
		o.failStep(ctx, span, session, "transcribe", FailureTranscription, err)
		return
	}
	if text == "" {
		logger.InfoContext(ctx, "nothing said", "session", session)
		o.transition(session, StateIdle)
		return
	}
	if !o.transition(session, StateConversing) {
		return
	}

	// The voice path is stateless: every utterance is a fresh single turn.
	reply, err := o.converse(ctx, text)
	if err != nil {
		o.failStep(ctx, span, session, "converse", FailureConversation, err)
		return
	}
	if !o.displayReply(ctx, session, reply) {
		return
	}
	if strings.TrimSpace(reply) == "" {
		o.transition(session, StateIdle)
		return
	}
	if !o.transition(session, StateSynthesizing) {
		return
	}

	synthesized, err := o.synthesize(ctx, reply)
	if err != nil {
		o.failStep(ctx, span, session, "synthesize", FailureSynthesis, err)
		return
	}

	playback, ok := o.beginPlayback(session, synthesized)
	if !ok {
		synthesized.Release()
		return
	}

	err = o.playback.Wait(ctx, playback)
	switch {
	case errors.Is(err, ErrPlaybackAbandoned):
		logger.InfoContext(ctx, "playback abandoned", "session", session, "audio", synthesized.Handle)
	case err != nil:
		span.RecordError(err)
		o.reportFailure(ctx, "play", FailurePlayback, err)
		o.finishWithFailure(session, FailurePlayback)
	default:
		logger.InfoContext(ctx, "playback completed", "session", session, "audio", synthesized.Handle)
		o.transition(session, StateIdle)
	}
}

func (o *Orchestrator) transcribe(ctx context.Context, recording audio.RecordingArtifact) (string, error) {
	ctx, span := tracer.Start(ctx, "transcribe")
	defer span.End()

	if o.transcriber == nil {
		return "", fmt.Errorf("%w: no transcriber configured", ErrTranscriptionFailed)
	}
	text, err := o.transcriber.Transcribe(ctx, recording)
	if err != nil {
		recordStepError(span, err)
		return "", err
	}
	text = strings.TrimSpace(text)
	logger.DebugContext(ctx, "transcribed", "text", text)
	return text, nil
}

func (o *Orchestrator) converse(ctx context.Context, text string) (string, error) {
	ctx, span := tracer.Start(ctx, "converse")
	defer span.End()

	if o.conversation == nil {
		return "", fmt.Errorf("%w: no conversation configured", ErrConversationFailed)
	}
	reply, _, err := o.conversation.Converse(ctx, text, conversations.State{})
	if err != nil {
		recordStepError(span, err)
		return "", err
	}
	span.SetAttributes(attribute.Int("reply.length", len(reply)))
	return reply, nil
}

func (o *Orchestrator) synthesize(ctx context.Context, reply string) (*audio.SynthesizedAudio, error) {
	ctx, span := tracer.Start(ctx, "synthesize")
	defer span.End()

	if o.synthesizer == nil {
		return nil, fmt.Errorf("%w: no synthesizer configured", ErrSynthesisFailed)
	}
	synthesized, err := o.synthesizer.Synthesize(ctx, reply)
	if err == nil && (synthesized == nil || len(synthesized.PCM()) == 0) {
		synthesized.Release()
		err = fmt.Errorf("%w: %w", ErrSynthesisFailed, audio.ErrEmptyPayload)
	}
	if err != nil {
		recordStepError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("audio.handle", synthesized.Handle))
	return synthesized, nil
}

func recordStepError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// displayReply hands the reply to the text chat. It reports false when the
// session was abandoned while conversing.
func (o *Orchestrator) displayReply(ctx context.Context, session string, reply string) bool {
	o.mu.Lock()
	current := !o.closed && o.session == session
	o.mu.Unlock()
	if !current {
		return false
	}

	if o.textDisplay != nil {
		o.textDisplay.DisplayReply(reply)
	} else {
		logger.DebugContext(ctx, "no text display configured", "session", session)
	}
	return true
}

// beginPlayback enters Playing and queues the audio in one step so a new
// capture session always finds the playback it has to abandon.
func (o *Orchestrator) beginPlayback(session string, synthesized *audio.SynthesizedAudio) (*activePlayback, bool) {
	o.mu.Lock()
	if o.closed || o.session != session {
		o.mu.Unlock()
		return nil, false
	}

	o.setLocked(StatePlaying, FailureNone)
	playback := o.playback.Begin(synthesized)
	o.unlockAndNotify(o.statusLocked())
	return playback, true
}

func (o *Orchestrator) failStep(ctx context.Context, span trace.Span, session, step string, fallback FailureKind, err error) {
	kind := failureKindOf(err, fallback)
	span.RecordError(err)
	span.SetStatus(codes.Error, fmt.Sprintf("%s failed", step))
	o.reportFailure(ctx, step, kind, err)
	o.fail(session, kind)
}

// finishWithFailure returns to Idle keeping failure for the presenter,
// without passing through Error.
func (o *Orchestrator) finishWithFailure(session string, failure FailureKind) {
	o.mu.Lock()
	if o.closed || o.session != session {
		o.mu.Unlock()
		return
	}

	o.setLocked(StateIdle, failure)
	o.unlockAndNotify(o.statusLocked())
}
