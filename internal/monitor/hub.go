package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event is one entry on the live feed.
type Event struct {
	Kind     string  `json:"kind"`
	State    string  `json:"state"`
	Seq      uint64  `json:"seq,omitempty"`
	RMS      float64 `json:"rms,omitempty"`
	Score    float64 `json:"score,omitempty"`
	Reason   string  `json:"reason,omitempty"`
	Duration float64 `json:"duration_seconds,omitempty"`
	At       int64   `json:"at_unix_ms"`
}

// Hub fans session events out to connected WebSocket clients. Publish never
// blocks: a client that cannot keep up with the level stream is dropped.
type Hub struct {
	mu      sync.Mutex
	clients map[chan Event]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[chan Event]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- ev:
		default:
			// Slow client; close its feed rather than stalling the session.
			delete(h.clients, ch)
			close(ch)
		}
	}
}

// Serve streams events to one connection until it goes away.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	ch := make(chan Event, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		if _, ok := h.clients[ch]; ok {
			delete(h.clients, ch)
			close(ch)
		}
		h.mu.Unlock()
	}()

	// Reader goroutine only to observe the close handshake.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-closed:
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
