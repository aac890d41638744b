package application

import (
	"sync"
	"time"

	"voicepi/internal/domain"
)

// History keeps the running conversation so follow-up questions have
// context. A session that sits idle past the timeout starts over fresh.
type History struct {
	mu          sync.Mutex
	turns       []domain.Turn
	maxTurns    int
	idleTimeout time.Duration
	lastAdded   time.Time
	now         func() time.Time
}

func NewHistory(maxTurns int, idleTimeout time.Duration) *History {
	return &History{
		maxTurns:    maxTurns,
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

func (h *History) Add(role domain.Role, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.expireLocked()
	h.turns = append(h.turns, domain.Turn{Role: role, Content: content})
	if len(h.turns) > h.maxTurns {
		h.turns = h.turns[len(h.turns)-h.maxTurns:]
	}
	h.lastAdded = h.now()
}

// Turns returns a copy of the live conversation, oldest first.
func (h *History) Turns() []domain.Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.expireLocked()
	out := make([]domain.Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = nil
}

func (h *History) expireLocked() {
	if len(h.turns) == 0 || h.lastAdded.IsZero() {
		return
	}
	if h.now().Sub(h.lastAdded) >= h.idleTimeout {
		h.turns = nil
	}
}
