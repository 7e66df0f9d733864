package portaudio

import "testing"

func TestPlaybackQueueFiresMarkAfterPrecedingAudio(t *testing.T) {
	q := newPlaybackQueue()
	q.push(make([]byte, 10))
	q.mark("end", func(string) {})

	frame := make([]byte, 4)
	for i := range 2 {
		if _, marks, _ := q.pop(frame); len(marks) != 0 {
			t.Fatalf("expected no mark after pop %d", i)
		}
	}

	n, marks, ok := q.pop(frame)
	if !ok || n != 2 {
		t.Fatalf("expected final partial pop of 2 bytes, got n=%d ok=%t", n, ok)
	}
	if len(marks) != 1 || marks[0].name != "end" {
		t.Fatalf("expected end mark, got %+v", marks)
	}
}

func TestPlaybackQueueClearDropsMarks(t *testing.T) {
	q := newPlaybackQueue()
	q.push(make([]byte, 10))
	q.mark("end", func(string) {})
	q.clear()

	if n, marks, _ := q.pop(make([]byte, 4)); n != 0 || len(marks) != 0 {
		t.Fatalf("expected empty queue after clear, got n=%d marks=%d", n, len(marks))
	}
}

func TestPlaybackQueueStopsAfterClose(t *testing.T) {
	q := newPlaybackQueue()
	q.close()
	if _, _, ok := q.pop(make([]byte, 4)); ok {
		t.Fatalf("expected closed queue to stop the writer")
	}
}
