//go:build portaudio
// +build portaudio

package capture

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"voicepi/internal/audio"
	"voicepi/internal/domain"
)

// Source reads fixed-size blocks from a PortAudio input stream on a
// dedicated goroutine, extracts the configured channel, and pushes frames
// onto the queue without ever blocking on the consumer.
type Source struct {
	cfg    Config
	queue  *audio.Queue
	logger *slog.Logger

	mu      sync.Mutex
	stream  *portaudio.Stream
	buf     []float32
	done    chan struct{}
	stopped chan struct{}
	errCh   chan error
	seq     uint64
}

func New(cfg Config, queue *audio.Queue, logger *slog.Logger) *Source {
	return &Source{
		cfg:    cfg,
		queue:  queue,
		logger: logger,
		errCh:  make(chan error, 1),
	}
}

func (s *Source) Name() string { return "portaudio" }

// Err yields at most one fatal device error per Start.
func (s *Source) Err() <-chan error { return s.errCh }

func (s *Source) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}

	dev, err := pickDevice(s.cfg.DeviceMatch)
	if err != nil {
		portaudio.Terminate()
		return err
	}

	params := portaudio.LowLatencyParameters(dev, nil)
	params.Input.Channels = s.cfg.Channels
	params.SampleRate = float64(s.cfg.SampleRate)
	params.FramesPerBuffer = s.cfg.ChunkSize

	s.buf = make([]float32, s.cfg.ChunkSize*s.cfg.Channels)
	stream, err := portaudio.OpenStream(params, s.buf)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("opening stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("starting stream: %w", err)
	}

	s.stream = stream
	s.done = make(chan struct{})
	s.stopped = make(chan struct{})

	s.logger.Info("microphone started",
		"device", dev.Name,
		"sample_rate", s.cfg.SampleRate,
		"chunk_size", s.cfg.ChunkSize,
		"channels", s.cfg.Channels,
		"mic_channel", s.cfg.ChannelIndex,
	)

	go s.loop(s.done, s.stopped)
	return nil
}

// loop is the capture context. It must never block on downstream work: the
// queue push is non-blocking and drops are counted there.
func (s *Source) loop(done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	for {
		select {
		case <-done:
			return
		default:
		}

		if err := s.stream.Read(); err != nil {
			select {
			case <-done:
				// Read fails when the stream is torn down during shutdown.
			default:
				s.fail(fmt.Errorf("reading from stream: %w", err))
			}
			return
		}

		mono := make([]float32, s.cfg.ChunkSize)
		for i := 0; i < s.cfg.ChunkSize; i++ {
			mono[i] = s.buf[i*s.cfg.Channels+s.cfg.ChannelIndex]
		}

		s.seq++
		s.queue.Push(domain.Frame{
			Samples:  mono,
			Seq:      s.seq,
			Captured: time.Now(),
		})
	}
}

func (s *Source) fail(err error) {
	select {
	case s.errCh <- err:
	default:
	}
}

// Stop tears the stream down deterministically so the hardware handle is
// released even on an unclean exit path.
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return nil
	}

	close(s.done)
	if err := s.stream.Stop(); err != nil {
		s.logger.Warn("stopping stream", "error", err)
	}
	<-s.stopped
	if err := s.stream.Close(); err != nil {
		s.logger.Warn("closing stream", "error", err)
	}
	s.stream = nil

	return portaudio.Terminate()
}

// pickDevice finds an input device whose name contains match
// (case-insensitive), falling back to the default input device when no
// match string is configured.
func pickDevice(match string) (*portaudio.DeviceInfo, error) {
	if match == "" {
		dev, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("default input device: %w", err)
		}
		return dev, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	needle := strings.ToLower(match)
	for _, dev := range devices {
		if dev.MaxInputChannels > 0 && strings.Contains(strings.ToLower(dev.Name), needle) {
			return dev, nil
		}
	}
	return nil, fmt.Errorf("no input device matching %q", match)
}
