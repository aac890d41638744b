package audio

import (
	"sync/atomic"
	"time"

	"voicepi/internal/domain"
)

// OverflowPolicy controls what a full Queue does with an incoming frame.
type OverflowPolicy int

const (
	// DropOldest evicts the oldest unread frame to make room.
	DropOldest OverflowPolicy = iota
	// DropNewest discards the incoming frame.
	DropNewest
)

// PushResult reports the outcome of a non-blocking push. Dropping frames
// under overflow is a backpressure policy, not an error, so it is surfaced
// as a value instead of being swallowed.
type PushResult int

const (
	PushAccepted PushResult = iota
	PushDroppedNewest
	PushDroppedOldest
)

// QueueStats is a snapshot of the queue counters.
type QueueStats struct {
	Accepted uint64
	Dropped  uint64
	Depth    int
	Capacity int
}

// Queue is the bounded single-producer/single-consumer hand-off between the
// capture goroutine and the session loop. Push never blocks; the capture
// side must not stall on downstream processing.
type Queue struct {
	ch       chan domain.Frame
	policy   OverflowPolicy
	accepted atomic.Uint64
	dropped  atomic.Uint64
}

func NewQueue(capacity int, policy OverflowPolicy) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		ch:     make(chan domain.Frame, capacity),
		policy: policy,
	}
}

// Push offers a frame without blocking. On overflow it applies the
// configured policy and increments the drop counter once per lost frame.
func (q *Queue) Push(f domain.Frame) PushResult {
	select {
	case q.ch <- f:
		q.accepted.Add(1)
		return PushAccepted
	default:
	}

	if q.policy == DropNewest {
		q.dropped.Add(1)
		return PushDroppedNewest
	}

	// Evict the oldest unread frame, then retry once. The consumer may have
	// raced us and made room already; either way exactly one frame is lost.
	select {
	case <-q.ch:
	default:
	}
	select {
	case q.ch <- f:
		q.accepted.Add(1)
		q.dropped.Add(1)
		return PushDroppedOldest
	default:
		q.dropped.Add(1)
		return PushDroppedNewest
	}
}

// PopWait blocks up to timeout for the next frame. The false return lets the
// session loop run periodic housekeeping even when no audio arrives.
func (q *Queue) PopWait(timeout time.Duration) (domain.Frame, bool) {
	select {
	case f := <-q.ch:
		return f, true
	default:
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case f := <-q.ch:
		return f, true
	case <-timer.C:
		return domain.Frame{}, false
	}
}

// Drain discards all buffered frames and returns how many were removed.
func (q *Queue) Drain() int {
	n := 0
	for {
		select {
		case <-q.ch:
			n++
		default:
			return n
		}
	}
}

func (q *Queue) Len() int { return len(q.ch) }

func (q *Queue) Cap() int { return cap(q.ch) }

func (q *Queue) Stats() QueueStats {
	return QueueStats{
		Accepted: q.accepted.Load(),
		Dropped:  q.dropped.Load(),
		Depth:    len(q.ch),
		Capacity: cap(q.ch),
	}
}
