package orchestration

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fbicca/ai-heart-failure-predictor/core/audio"
	"github.com/fbicca/ai-heart-failure-predictor/core/conversations"
)

type fakeAudioInput struct {
	mu       sync.Mutex
	onAudio  func([]byte)
	startErr error

	starts atomic.Int32
	stops  atomic.Int32
}

func (f *fakeAudioInput) StartCapture(_ context.Context, onAudio func([]byte)) error {
	f.starts.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.onAudio = onAudio
	return nil
}

func (f *fakeAudioInput) StopCapture() error {
	f.stops.Add(1)
	return nil
}

func (f *fakeAudioInput) emit(chunk []byte) {
	f.mu.Lock()
	onAudio := f.onAudio
	f.mu.Unlock()
	if onAudio != nil {
		onAudio(chunk)
	}
}

// fakeAudioOutput completes every mark immediately unless holdMarks is set.
type fakeAudioOutput struct {
	encoding  audio.EncodingInfo
	holdMarks bool
	sendErr   error

	mu      sync.Mutex
	sent    [][]byte
	pending []func(string)

	clears      atomic.Int32
	completions atomic.Int32
}

func (f *fakeAudioOutput) EncodingInfo() audio.EncodingInfo {
	if f.encoding.IsZero() {
		return audio.GetDefaultEncodingInfo()
	}
	return f.encoding
}

func (f *fakeAudioOutput) SendAudio(pcm []byte) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, pcm)
	return nil
}

func (f *fakeAudioOutput) ClearBuffer() {
	f.clears.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = nil
}

func (f *fakeAudioOutput) Mark(mark string, callback func(string)) error {
	if !f.holdMarks {
		f.completions.Add(1)
		go callback(mark)
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, func(m string) {
		f.completions.Add(1)
		callback(m)
	})
	return nil
}

// completeMarks plays out everything queued so far.
func (f *fakeAudioOutput) completeMarks() {
	f.mu.Lock()
	pending := f.pending
	f.pending = nil
	f.mu.Unlock()
	for _, callback := range pending {
		callback("")
	}
}

func (f *fakeAudioOutput) pendingMarks() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

func (f *fakeAudioOutput) sentBytes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, chunk := range f.sent {
		total += len(chunk)
	}
	return total
}

// remoteTracker counts remote calls in flight across all fakes.
type remoteTracker struct {
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (r *remoteTracker) enter() func() {
	if r == nil {
		return func() {}
	}
	storeMax(&r.maxInFlight, r.inFlight.Add(1))
	return func() { r.inFlight.Add(-1) }
}

func storeMax(target *atomic.Int32, n int32) {
	for {
		current := target.Load()
		if n <= current || target.CompareAndSwap(current, n) {
			return
		}
	}
}

// gate lets a test hold a fake remote call until released.
type gate struct {
	entered chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}, 16), release: make(chan struct{})}
}

func (g *gate) wait(ctx context.Context) error {
	if g == nil {
		return nil
	}
	g.entered <- struct{}{}
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *gate) awaitEntered(t *testing.T) {
	t.Helper()
	select {
	case <-g.entered:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for remote call")
	}
}

type fakeTranscriber struct {
	text    string
	err     error
	gate    *gate
	tracker *remoteTracker

	calls atomic.Int32
	mu    sync.Mutex
	got   []audio.RecordingArtifact
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, recording audio.RecordingArtifact) (string, error) {
	defer f.tracker.enter()()
	f.calls.Add(1)
	f.mu.Lock()
	f.got = append(f.got, recording)
	f.mu.Unlock()
	if err := f.gate.wait(ctx); err != nil {
		return "", err
	}
	return f.text, f.err
}

type fakeConversation struct {
	reply   string
	next    conversations.State
	err     error
	gate    *gate
	tracker *remoteTracker

	calls atomic.Int32
	mu    sync.Mutex
	texts []string
	seen  []conversations.State
}

func (f *fakeConversation) Converse(ctx context.Context, text string, state conversations.State) (string, conversations.State, error) {
	defer f.tracker.enter()()
	f.calls.Add(1)
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.seen = append(f.seen, state)
	f.mu.Unlock()
	if err := f.gate.wait(ctx); err != nil {
		return "", state, err
	}
	if f.err != nil {
		return "", state, f.err
	}
	return f.reply, f.next, nil
}

func (f *fakeConversation) states() []conversations.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]conversations.State(nil), f.seen...)
}

// fakeSynthesizer tracks how many artifacts it handed out are still live.
type fakeSynthesizer struct {
	pcm     []byte
	err     error
	gate    *gate
	tracker *remoteTracker

	calls    atomic.Int32
	live     atomic.Int32
	maxLive  atomic.Int32
	releases atomic.Int32

	mu       sync.Mutex
	produced []*audio.SynthesizedAudio
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, text string) (*audio.SynthesizedAudio, error) {
	defer f.tracker.enter()()
	f.calls.Add(1)
	if err := f.gate.wait(ctx); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}

	synthesized, err := audio.NewSynthesizedAudio("fake://tts", f.pcm, audio.GetDefaultEncodingInfo())
	if err != nil {
		return nil, err
	}
	storeMax(&f.maxLive, f.live.Add(1))
	synthesized.OnRelease(func() {
		f.live.Add(-1)
		f.releases.Add(1)
	})

	f.mu.Lock()
	f.produced = append(f.produced, synthesized)
	f.mu.Unlock()
	return synthesized, nil
}

func (f *fakeSynthesizer) last() *audio.SynthesizedAudio {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.produced) == 0 {
		return nil
	}
	return f.produced[len(f.produced)-1]
}

type fakeTextDisplay struct {
	mu      sync.Mutex
	replies []string
}

func (f *fakeTextDisplay) DisplayReply(reply string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, reply)
}

func (f *fakeTextDisplay) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.replies...)
}

type statusRecorder struct {
	mu       sync.Mutex
	statuses []Status
	changed  chan struct{}
}

func newStatusRecorder() *statusRecorder {
	return &statusRecorder{changed: make(chan struct{}, 1)}
}

func (r *statusRecorder) record(status Status) {
	r.mu.Lock()
	r.statuses = append(r.statuses, status)
	r.mu.Unlock()
	select {
	case r.changed <- struct{}{}:
	default:
	}
}

func (r *statusRecorder) states() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	states := make([]State, 0, len(r.statuses))
	for _, status := range r.statuses {
		states = append(states, status.State)
	}
	return states
}

func (r *statusRecorder) last() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statuses) == 0 {
		return Status{}
	}
	return r.statuses[len(r.statuses)-1]
}

// waitFor blocks until the recorded statuses satisfy done.
func (r *statusRecorder) waitFor(t *testing.T, what string, done func([]Status) bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		r.mu.Lock()
		ok := done(append([]Status(nil), r.statuses...))
		r.mu.Unlock()
		if ok {
			return
		}
		select {
		case <-r.changed:
		case <-deadline:
			t.Fatalf("timed out waiting for %s, got %v", what, r.states())
		}
	}
}

// waitForState waits until the n-th occurrence of state has been recorded.
func (r *statusRecorder) waitForState(t *testing.T, state State, n int) {
	t.Helper()
	r.waitFor(t, state.String(), func(statuses []Status) bool {
		seen := 0
		for _, status := range statuses {
			if status.State == state {
				seen++
			}
		}
		return seen >= n
	})
}

type harness struct {
	input        *fakeAudioInput
	output       *fakeAudioOutput
	transcriber  *fakeTranscriber
	conversation *fakeConversation
	synthesizer  *fakeSynthesizer
	display      *fakeTextDisplay
	tracker      *remoteTracker
	statuses     *statusRecorder
	orchestrator *Orchestrator
}

func newHarness(t *testing.T, configure func(h *harness)) *harness {
	t.Helper()
	tracker := &remoteTracker{}
	h := &harness{
		input:        &fakeAudioInput{},
		output:       &fakeAudioOutput{},
		transcriber:  &fakeTranscriber{text: "hello", tracker: tracker},
		conversation: &fakeConversation{reply: "hi there", tracker: tracker},
		synthesizer:  &fakeSynthesizer{pcm: []byte{1, 0, 2, 0}, tracker: tracker},
		display:      &fakeTextDisplay{},
		tracker:      tracker,
		statuses:     newStatusRecorder(),
	}
	if configure != nil {
		configure(h)
	}

	h.orchestrator = NewOrchestrator(
		WithAudioInput(h.input),
		WithAudioOutput(h.output),
		WithTranscriber(h.transcriber),
		WithConversation(h.conversation),
		WithSynthesizer(h.synthesizer),
		WithTextDisplay(h.display),
		WithStatusCallback(h.statuses.record),
	)
	t.Cleanup(h.orchestrator.Close)
	return h
}

// record runs one capture session that hears chunk.
func (h *harness) record(t *testing.T, chunk []byte) {
	t.Helper()
	if err := h.orchestrator.StartCapture(); err != nil {
		t.Fatalf("expected capture to start, got %v", err)
	}
	h.input.emit(chunk)
	if err := h.orchestrator.StopCapture(); err != nil {
		t.Fatalf("expected capture to stop, got %v", err)
	}
}
