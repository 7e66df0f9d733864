package orchestration

import (
	"context"
	"sync"

	"github.com/fbicca/ai-heart-failure-predictor/core/conversations"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Orchestrator runs capture, transcription, conversation, synthesis and
// playback as a single-flight cycle. At most one capture session is live at
// a time and its pipeline awaits each step before issuing the next.
type Orchestrator struct {
	capture      *captureController
	playback     *playbackController
	transcriber  Transcriber
	conversation Conversation
	synthesizer  Synthesizer
	textDisplay  TextDisplay
	onStatus     func(Status)

	mu      sync.Mutex
	state   State
	failure FailureKind
	session string
	handle  CaptureHandle
	closed  bool

	// statusMu is taken before mu is released so status callbacks run in
	// transition order.
	statusMu sync.Mutex

	textMu    sync.Mutex
	textState conversations.State

	parentContext context.Context
	baseContext   context.Context
	cancel        context.CancelFunc
	cycles        sync.WaitGroup
	closeOnce     sync.Once
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		capture:       newCaptureController(nil),
		playback:      newPlaybackController(nil),
		state:         StateIdle,
		parentContext: context.Background(),
	}

	for _, opt := range opts {
		opt(o)
	}

	o.baseContext, o.cancel = context.WithCancel(o.parentContext)
	context.AfterFunc(o.baseContext, func() { go o.Close() })
	return o
}

// Close stops any capture, abandons playback and waits for the running cycle
// to unwind. Repeated calls are ignored.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		o.mu.Lock()
		o.closed = true
		o.session = ""
		o.capture.Discard()
		o.playback.Abandon()
		o.mu.Unlock()

		o.cancel()
		o.cycles.Wait()
	})
}

// State returns the current state of the voice cycle.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Status returns a snapshot for presenters.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.statusLocked()
}

func (o *Orchestrator) statusLocked() Status {
	return Status{State: o.state, Failure: o.failure, Session: o.session}
}

// Toggle starts capture from Idle or Error and stops it from Recording. In
// every other state it does nothing.
func (o *Orchestrator) Toggle() error {
	o.mu.Lock()
	switch o.state {
	case StateIdle, StateError:
		return o.startCaptureLocked()
	case StateRecording:
		return o.stopCaptureLocked()
	}
	o.mu.Unlock()
	return nil
}

// StartCapture opens a new capture session. It fails with ErrBusy while a
// remote call is in flight. A running playback is abandoned, and its audio
// released, before recording starts.
func (o *Orchestrator) StartCapture() error {
	o.mu.Lock()
	return o.startCaptureLocked()
}

// StopCapture ends the capture session and hands the recording to a new
// cycle. Without a live capture it is a no-op.
func (o *Orchestrator) StopCapture() error {
	o.mu.Lock()
	return o.stopCaptureLocked()
}

// startCaptureLocked must be called with mu held and releases it.
func (o *Orchestrator) startCaptureLocked() error {
	switch {
	case o.closed:
		o.mu.Unlock()
		return ErrClosed
	case o.state.awaitsRemote():
		o.mu.Unlock()
		return ErrBusy
	case o.state == StateRecording:
		o.mu.Unlock()
		return nil
	}

	if o.state == StatePlaying && o.playback.Abandon() {
		abandonCounter.Add(o.baseContext, 1)
		logger.InfoContext(o.baseContext, "playback abandoned by new capture", "session", o.session)
	}

	o.session = uuid.NewString()
	handle, err := o.capture.Start(o.baseContext)
	if err != nil {
		kind := failureKindOf(err, FailureDeviceUnavailable)
		o.reportFailure(o.baseContext, "capture", kind, err)
		o.handle = ""
		o.setLocked(StateError, kind)
		errStatus := o.statusLocked()
		o.setLocked(StateIdle, kind)
		o.unlockAndNotify(errStatus, o.statusLocked())
		return err
	}

	o.handle = handle
	o.setLocked(StateRecording, FailureNone)
	o.unlockAndNotify(o.statusLocked())
	return nil
}

// stopCaptureLocked must be called with mu held and releases it.
func (o *Orchestrator) stopCaptureLocked() error {
	if o.closed || o.state != StateRecording {
		o.mu.Unlock()
		return nil
	}

	recording := o.capture.Stop(o.handle)
	o.handle = ""
	session := o.session
	o.setLocked(StateTranscribing, FailureNone)

	cycleCounter.Add(o.baseContext, 1)
	o.cycles.Add(1)
	go func() {
		defer o.cycles.Done()
		o.runCycle(o.baseContext, session, recording)
	}()

	o.unlockAndNotify(o.statusLocked())
	return nil
}

func (o *Orchestrator) setLocked(state State, failure FailureKind) {
	o.state = state
	o.failure = failure
}

// unlockAndNotify releases mu and delivers statuses in order.
func (o *Orchestrator) unlockAndNotify(statuses ...Status) {
	o.statusMu.Lock()
	o.mu.Unlock()
	defer o.statusMu.Unlock()

	if o.onStatus == nil {
		return
	}
	for _, status := range statuses {
		o.onStatus(status)
	}
}

// transition moves session to state. It reports false, changing nothing,
// when session is no longer current.
func (o *Orchestrator) transition(session string, state State) bool {
	o.mu.Lock()
	if o.closed || o.session != session {
		o.mu.Unlock()
		return false
	}

	o.setLocked(state, FailureNone)
	o.unlockAndNotify(o.statusLocked())
	return true
}

// fail moves session through Error to Idle.
func (o *Orchestrator) fail(session string, kind FailureKind) bool {
	o.mu.Lock()
	if o.closed || o.session != session {
		o.mu.Unlock()
		return false
	}

	o.setLocked(StateError, kind)
	errStatus := o.statusLocked()
	o.setLocked(StateIdle, kind)
	o.unlockAndNotify(errStatus, o.statusLocked())
	return true
}

func (o *Orchestrator) reportFailure(ctx context.Context, step string, kind FailureKind, err error) {
	failureCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("step", step),
		attribute.String("failure", kind.String()),
	))
	logger.ErrorContext(ctx, "voice step failed", "step", step, "failure", kind.String(), "error", err)
}
