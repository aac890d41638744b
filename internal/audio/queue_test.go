package audio_test

import (
	"testing"
	"time"

	"voicepi/internal/audio"
	"voicepi/internal/domain"
)

func seqFrame(seq uint64) domain.Frame {
	return domain.Frame{Samples: make([]float32, 16), Seq: seq}
}

func TestQueuePushAndPop(t *testing.T) {
	q := audio.NewQueue(4, audio.DropOldest)

	for i := 0; i < 3; i++ {
		if res := q.Push(seqFrame(uint64(i))); res != audio.PushAccepted {
			t.Fatalf("Push %d: got %v, want PushAccepted", i, res)
		}
	}
	if q.Len() != 3 {
		t.Errorf("Len: got %d, want 3", q.Len())
	}

	for i := 0; i < 3; i++ {
		f, ok := q.PopWait(10 * time.Millisecond)
		if !ok {
			t.Fatalf("PopWait %d: got no frame", i)
		}
		if f.Seq != uint64(i) {
			t.Errorf("PopWait %d: got seq %d, want %d", i, f.Seq, i)
		}
	}
}

func TestQueuePopWaitTimesOut(t *testing.T) {
	q := audio.NewQueue(4, audio.DropOldest)

	start := time.Now()
	_, ok := q.PopWait(20 * time.Millisecond)
	if ok {
		t.Fatal("PopWait on empty queue: got frame, want timeout")
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("PopWait returned after %v, want at least 20ms", elapsed)
	}
}

func TestQueueDropOldestEvictsAndCounts(t *testing.T) {
	q := audio.NewQueue(2, audio.DropOldest)

	q.Push(seqFrame(0))
	q.Push(seqFrame(1))
	if res := q.Push(seqFrame(2)); res != audio.PushDroppedOldest {
		t.Fatalf("Push on full queue: got %v, want PushDroppedOldest", res)
	}

	f, ok := q.PopWait(10 * time.Millisecond)
	if !ok || f.Seq != 1 {
		t.Errorf("first pop after overflow: got seq %d ok=%v, want seq 1", f.Seq, ok)
	}
	f, ok = q.PopWait(10 * time.Millisecond)
	if !ok || f.Seq != 2 {
		t.Errorf("second pop after overflow: got seq %d ok=%v, want seq 2", f.Seq, ok)
	}

	stats := q.Stats()
	if stats.Dropped != 1 {
		t.Errorf("Dropped: got %d, want 1", stats.Dropped)
	}
	if stats.Accepted != 3 {
		t.Errorf("Accepted: got %d, want 3", stats.Accepted)
	}
}

func TestQueueDropNewestRejectsIncoming(t *testing.T) {
	q := audio.NewQueue(2, audio.DropNewest)

	q.Push(seqFrame(0))
	q.Push(seqFrame(1))
	if res := q.Push(seqFrame(2)); res != audio.PushDroppedNewest {
		t.Fatalf("Push on full queue: got %v, want PushDroppedNewest", res)
	}

	f, ok := q.PopWait(10 * time.Millisecond)
	if !ok || f.Seq != 0 {
		t.Errorf("first pop: got seq %d ok=%v, want seq 0", f.Seq, ok)
	}

	stats := q.Stats()
	if stats.Dropped != 1 {
		t.Errorf("Dropped: got %d, want 1", stats.Dropped)
	}
}

func TestQueueNeverExceedsCapacity(t *testing.T) {
	q := audio.NewQueue(8, audio.DropOldest)

	for i := 0; i < 100; i++ {
		q.Push(seqFrame(uint64(i)))
		if q.Len() > q.Cap() {
			t.Fatalf("queue depth %d exceeds capacity %d", q.Len(), q.Cap())
		}
	}

	stats := q.Stats()
	if stats.Dropped != 92 {
		t.Errorf("Dropped after 100 pushes into capacity 8: got %d, want 92", stats.Dropped)
	}
	if got := stats.Accepted - stats.Dropped; got != 8 {
		t.Errorf("retained frames: got %d, want 8", got)
	}
}

func TestQueueDrain(t *testing.T) {
	q := audio.NewQueue(8, audio.DropOldest)
	for i := 0; i < 5; i++ {
		q.Push(seqFrame(uint64(i)))
	}

	if n := q.Drain(); n != 5 {
		t.Errorf("Drain: got %d, want 5", n)
	}
	if q.Len() != 0 {
		t.Errorf("Len after drain: got %d, want 0", q.Len())
	}
}
