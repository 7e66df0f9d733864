package portaudio

import "sync"

type queuedMark struct {
	name     string
	position int
	callback func(string)
}

// playbackQueue buffers outgoing audio and the marks placed between chunks.
type playbackQueue struct {
	mu     sync.Mutex
	audio  []byte
	marks  []queuedMark
	closed bool
}

func newPlaybackQueue() *playbackQueue { return &playbackQueue{} }

func (q *playbackQueue) push(audio []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.audio = append(q.audio, audio...)
}

func (q *playbackQueue) mark(name string, callback func(string)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.marks = append(q.marks, queuedMark{name: name, position: len(q.audio), callback: callback})
}

func (q *playbackQueue) clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.audio = nil
	q.marks = nil
}

func (q *playbackQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

// pop copies up to len(frame) bytes into frame and returns the marks that
// the copied audio reaches. ok is false once the queue is closed.
func (q *playbackQueue) pop(frame []byte) (n int, passed []queuedMark, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return 0, nil, false
	}

	n = copy(frame, q.audio)
	q.audio = q.audio[n:]

	kept := q.marks[:0]
	for _, m := range q.marks {
		if m.position > len(frame) {
			m.position -= len(frame)
			kept = append(kept, m)
		} else {
			passed = append(passed, m)
		}
	}
	q.marks = kept
	return n, passed, true
}
