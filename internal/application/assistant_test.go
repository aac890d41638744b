package application_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"voicepi/internal/application"
	"voicepi/internal/audio"
	"voicepi/internal/domain"
)

type mockSource struct {
	startErr   error
	startCalls int
	errCh      chan error
}

func newMockSource(startErr error) *mockSource {
	return &mockSource{startErr: startErr, errCh: make(chan error, 1)}
}

func (m *mockSource) Start(_ context.Context) error {
	m.startCalls++
	return m.startErr
}
func (m *mockSource) Stop() error       { return nil }
func (m *mockSource) Err() <-chan error { return m.errCh }
func (m *mockSource) Name() string      { return "mock" }

type nopHandler struct{}

func (nopHandler) HandleClip(_ context.Context, _ domain.Clip) error { return nil }

func testSession(devErr <-chan error) *audio.Session {
	gate := audio.NewGate(&zeroScorer{}, 0.5, time.Second, 0, discardLogger())
	recorder := audio.NewRecorder(16000, 10*time.Second, time.Second, 0.007)
	return audio.NewSession(audio.SessionConfig{
		SampleRate:  16000,
		MaxDuration: 10 * time.Second,
		PopTimeout:  5 * time.Millisecond,
	}, audio.NewQueue(8, audio.DropOldest), gate, audio.NewPreRoll(4), recorder, nopHandler{}, devErr, discardLogger())
}

type zeroScorer struct{}

func (zeroScorer) Score(_ domain.Frame) (float64, error) { return 0, nil }

func TestAssistantGivesUpAfterRestartBudget(t *testing.T) {
	source := newMockSource(errors.New("no such device"))
	a := application.NewAssistant(source, nil, application.NoopIndicator{}, 2, time.Millisecond, discardLogger())

	err := a.Run(context.Background())
	if err == nil {
		t.Fatal("Run: got nil, want error after exhausting restarts")
	}
	if !strings.Contains(err.Error(), "giving up") {
		t.Errorf("error: got %q, want restart exhaustion", err)
	}
	if source.startCalls != 3 {
		t.Errorf("Start calls: got %d, want 3 (initial plus two restarts)", source.startCalls)
	}
}

func TestAssistantStopsOnContextCancel(t *testing.T) {
	source := newMockSource(nil)
	session := testSession(source.Err())
	a := application.NewAssistant(source, session, application.NoopIndicator{}, 2, time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run after cancel: got %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if source.startCalls != 1 {
		t.Errorf("Start calls: got %d, want 1", source.startCalls)
	}
}

func TestAssistantRestartsAfterDeviceError(t *testing.T) {
	source := newMockSource(nil)
	session := testSession(source.Err())
	a := application.NewAssistant(source, session, application.NoopIndicator{}, 3, time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	source.errCh <- errors.New("stream read failed")

	// The session returns the device error, the assistant restarts the
	// source and keeps running.
	deadline := time.Now().Add(2 * time.Second)
	for source.startCalls < 2 {
		if time.Now().After(deadline) {
			t.Fatal("assistant never restarted the source")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run after cancel: got %v, want context.Canceled", err)
	}
}
