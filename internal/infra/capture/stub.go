//go:build !portaudio
// +build !portaudio

package capture

import (
	"context"
	"fmt"
	"log/slog"

	"voicepi/internal/audio"
)

// Source stub when portaudio is not available.
type Source struct {
	errCh chan error
}

func New(_ Config, _ *audio.Queue, _ *slog.Logger) *Source {
	return &Source{errCh: make(chan error, 1)}
}

func (s *Source) Name() string { return "portaudio" }

func (s *Source) Start(_ context.Context) error {
	return fmt.Errorf("microphone capture not available: rebuild with -tags portaudio")
}

func (s *Source) Stop() error { return nil }

func (s *Source) Err() <-chan error { return s.errCh }
