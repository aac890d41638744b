package audio

import "voicepi/internal/domain"

// PreRoll keeps the most recent frames seen while listening so speech that
// starts just before wake-word confirmation is not cut off. It is owned by
// the session loop and is not safe for concurrent use.
type PreRoll struct {
	frames []domain.Frame
	head   int
	n      int
}

func NewPreRoll(capacity int) *PreRoll {
	if capacity < 1 {
		capacity = 1
	}
	return &PreRoll{frames: make([]domain.Frame, capacity)}
}

// Push appends a frame, evicting the oldest when at capacity.
func (p *PreRoll) Push(f domain.Frame) {
	p.frames[p.head] = f
	p.head = (p.head + 1) % len(p.frames)
	if p.n < len(p.frames) {
		p.n++
	}
}

// Frames returns a copy of the current contents oldest-first. The buffer is
// left untouched; callers that need it emptied use Clear.
func (p *PreRoll) Frames() []domain.Frame {
	out := make([]domain.Frame, p.n)
	start := (p.head - p.n + len(p.frames)) % len(p.frames)
	for i := 0; i < p.n; i++ {
		out[i] = p.frames[(start+i)%len(p.frames)]
	}
	return out
}

func (p *PreRoll) Clear() {
	for i := range p.frames {
		p.frames[i] = domain.Frame{}
	}
	p.head = 0
	p.n = 0
}

func (p *PreRoll) Len() int { return p.n }

func (p *PreRoll) Cap() int { return len(p.frames) }
