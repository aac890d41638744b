package monitor

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status is the JSON snapshot served at /status.
type Status struct {
	State          string  `json:"state"`
	Recordings     uint64  `json:"recordings"`
	Discarded      uint64  `json:"frames_discarded"`
	QueueDepth     int     `json:"queue_depth"`
	QueueCapacity  int     `json:"queue_capacity"`
	FramesAccepted uint64  `json:"frames_accepted"`
	FramesDropped  uint64  `json:"frames_dropped"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
}

// StatusFunc supplies the current snapshot.
type StatusFunc func() Status

// Server is the local observability surface: Prometheus metrics, a status
// snapshot, and a WebSocket feed of live session events.
type Server struct {
	addr     string
	statusFn StatusFunc
	gatherer prometheus.Gatherer
	hub      *Hub
	logger   *slog.Logger
}

func NewServer(addr string, statusFn StatusFunc, gatherer prometheus.Gatherer, hub *Hub, logger *slog.Logger) *Server {
	return &Server{
		addr:     addr,
		statusFn: statusFn,
		gatherer: gatherer,
		hub:      hub,
		logger:   logger,
	}
}

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /ws", s.handleWS)

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("monitor server listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.statusFn()); err != nil {
		s.logger.Warn("encoding status", "error", err)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := UpgradeConnection(w, r)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	s.hub.Serve(r.Context(), conn)
}
