package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"voicepi/internal/audio"
	"voicepi/internal/domain"
)

type countingSource struct {
	startCalls atomic.Int32
	errCh      chan error
}

func (s *countingSource) Start(_ context.Context) error {
	s.startCalls.Add(1)
	return nil
}
func (s *countingSource) Stop() error       { return nil }
func (s *countingSource) Err() <-chan error { return s.errCh }
func (s *countingSource) Name() string      { return "counting" }

type silentScorer struct{}

func (silentScorer) Score(_ domain.Frame) (float64, error) { return 0, nil }

type discardHandler struct{}

func (discardHandler) HandleClip(_ context.Context, _ domain.Clip) error { return nil }

func TestRunResetsBudgetAfterHealthyRun(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	source := &countingSource{errCh: make(chan error, 1)}

	gate := audio.NewGate(silentScorer{}, 0.5, time.Second, 0, logger)
	recorder := audio.NewRecorder(16000, 10*time.Second, time.Second, 0.007)
	session := audio.NewSession(audio.SessionConfig{
		SampleRate:  16000,
		MaxDuration: 10 * time.Second,
		PopTimeout:  5 * time.Millisecond,
	}, audio.NewQueue(8, audio.DropOldest), gate, audio.NewPreRoll(4), recorder,
		discardHandler{}, source.errCh, logger)

	// One allowed restart, but every failure arrives after a "healthy" run,
	// so the budget must start over each time.
	a := &Assistant{
		source:          source,
		session:         session,
		indicator:       NoopIndicator{},
		restartAttempts: 1,
		restartDelay:    time.Millisecond,
		healthyRun:      10 * time.Millisecond,
		logger:          logger,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	// Three device failures spaced beyond the healthy-run window. Without
	// the reset, the second failure would already exhaust the budget.
	for i := 0; i < 3; i++ {
		want := int32(i + 1)
		deadline := time.Now().Add(2 * time.Second)
		for source.startCalls.Load() < want {
			if time.Now().After(deadline) {
				t.Fatalf("source start %d never happened", want)
			}
			time.Sleep(time.Millisecond)
		}
		time.Sleep(30 * time.Millisecond)
		source.errCh <- errors.New("stream read failed")
	}

	deadline := time.Now().Add(2 * time.Second)
	for source.startCalls.Load() < 4 {
		if time.Now().After(deadline) {
			t.Fatalf("assistant gave up instead of resetting the budget, starts: %d",
				source.startCalls.Load())
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run after cancel: got %v, want context.Canceled", err)
	}
}
