package connectivity

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Monitor polls a well-known URL and reports transitions between online and
// offline. The assistant keeps running while offline, recordings simply fail
// at the transcription step, but the device signals the condition.
type Monitor struct {
	url      string
	interval time.Duration
	client   *http.Client
	onChange func(online bool)
	logger   *slog.Logger
}

func NewMonitor(url string, interval time.Duration, onChange func(online bool), logger *slog.Logger) *Monitor {
	return &Monitor{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: 3 * time.Second},
		onChange: onChange,
		logger:   logger,
	}
}

// Run polls until the context is cancelled. The first check establishes the
// baseline without firing the callback unless the device starts offline.
func (m *Monitor) Run(ctx context.Context) error {
	var known, online bool

	check := func() {
		current := m.checkOnce(ctx)
		if known && current == online {
			return
		}
		if current {
			m.logger.Info("internet connection ok")
		} else {
			m.logger.Warn("internet connection lost")
		}
		// Coming up online at boot is the expected case, not a transition
		// worth announcing.
		if m.onChange != nil && (known || !current) {
			m.onChange(current)
		}
		known = true
		online = current
	}

	check()
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			check()
		}
	}
}

func (m *Monitor) checkOnce(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.url, nil)
	if err != nil {
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}
