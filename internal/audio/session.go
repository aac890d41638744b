package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"voicepi/internal/domain"
)

// State is the session's position in the LISTEN → RECORD → PROCESSING cycle.
type State int32

const (
	StateListen State = iota
	StateRecord
	StateProcessing
)

func (s State) String() string {
	switch s {
	case StateListen:
		return "listen"
	case StateRecord:
		return "record"
	case StateProcessing:
		return "processing"
	default:
		return "unknown"
	}
}

// Handler consumes a finished recording. It may block for as long as the
// remote pipeline takes; the session keeps draining capture frames while it
// runs so the producer never backs up.
type Handler interface {
	HandleClip(ctx context.Context, clip domain.Clip) error
}

// EventKind tags session events published to observers.
type EventKind int

const (
	EventState EventKind = iota
	EventLevel
	EventWake
	EventEndpoint
	EventAborted
	EventSuppressed
	EventDiscarded
	EventPipelineDone
)

// Event is a session observation for metrics and the live monitor feed.
type Event struct {
	Kind     EventKind
	State    State
	Seq      uint64
	RMS      float64
	Score    float64
	Reason   string
	Duration time.Duration
	At       time.Time
}

// Listener receives session events. It is called on the session goroutine
// and must not block.
type Listener func(Event)

// SessionConfig carries the timing knobs the state machine needs beyond
// what its parts already hold.
type SessionConfig struct {
	SampleRate  int
	MaxDuration time.Duration
	PopTimeout  time.Duration
}

// Session sequences the wake-word gate, the recorder, and the pre-roll
// buffer over frames arriving on the queue. It owns all of that state
// exclusively; the queue is the only structure shared with the capture
// goroutine.
type Session struct {
	cfg      SessionConfig
	queue    *Queue
	gate     *Gate
	preRoll  *PreRoll
	recorder *Recorder
	handler  Handler
	devErr   <-chan error
	listener Listener
	logger   *slog.Logger

	state      atomic.Int32
	recordings atomic.Uint64
	discarded  atomic.Uint64

	// Set once at construction; Stats reads it from other goroutines.
	startedAt time.Time
}

func NewSession(
	cfg SessionConfig,
	queue *Queue,
	gate *Gate,
	preRoll *PreRoll,
	recorder *Recorder,
	handler Handler,
	devErr <-chan error,
	logger *slog.Logger,
) *Session {
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = 100 * time.Millisecond
	}
	return &Session{
		cfg:       cfg,
		queue:     queue,
		gate:      gate,
		preRoll:   preRoll,
		recorder:  recorder,
		handler:   handler,
		devErr:    devErr,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// SetListener installs the event observer. Must be called before Run.
func (s *Session) SetListener(l Listener) { s.listener = l }

func (s *Session) State() State { return State(s.state.Load()) }

// Snapshot of session-level counters for the status endpoint.
type SessionStats struct {
	State      State
	Recordings uint64
	Discarded  uint64
	Queue      QueueStats
	Uptime     time.Duration
}

// Stats is safe to call from other goroutines: every field it touches is
// either atomic or immutable after construction.
func (s *Session) Stats() SessionStats {
	return SessionStats{
		State:      s.State(),
		Recordings: s.recordings.Load(),
		Discarded:  s.discarded.Load(),
		Queue:      s.queue.Stats(),
		Uptime:     time.Since(s.startedAt),
	}
}

// Run drives the state machine until the context is cancelled or the
// capture device fails. Device errors are fatal to the loop and returned to
// the owner, which decides the restart policy.
func (s *Session) Run(ctx context.Context) error {
	s.setState(StateListen)
	s.logger.Info("session listening for wake word")

	// Result channel of the in-flight pipeline goroutine, nil outside
	// PROCESSING.
	var pipelineDone chan error
	var pipelineStart time.Time

	for {
		select {
		case <-ctx.Done():
			if s.recorder.Active() {
				s.recorder.Abort()
			}
			return ctx.Err()
		case err := <-s.devErr:
			if err != nil {
				return s.failDevice(err)
			}
		default:
		}

		frame, ok := s.queue.PopWait(s.cfg.PopTimeout)
		now := time.Now()

		switch s.State() {
		case StateListen:
			if !ok {
				continue
			}
			s.preRoll.Push(frame)
			s.emit(Event{Kind: EventLevel, State: StateListen, Seq: frame.Seq, RMS: frame.RMS(), At: now})

			det, suppressed := s.gate.Feed(frame, now)
			switch suppressed {
			case SuppressNone:
				s.startRecording(det, now)
			case SuppressCooldown, SuppressFlush:
				s.emit(Event{Kind: EventSuppressed, State: StateListen, Seq: frame.Seq, Reason: suppressName(suppressed), At: now})
			}

		case StateRecord:
			if !ok {
				// Frame supply stalled; the duration cap still applies.
				if s.recorder.Elapsed(now) >= s.cfg.MaxDuration {
					pipelineDone, pipelineStart = s.finishRecording(ctx, StopMaxDuration, now)
				}
				continue
			}
			s.emit(Event{Kind: EventLevel, State: StateRecord, Seq: frame.Seq, RMS: frame.RMS(), At: now})
			if reason := s.recorder.Feed(frame); reason != StopNone {
				pipelineDone, pipelineStart = s.finishRecording(ctx, reason, now)
			}

		case StateProcessing:
			if ok {
				// Keep the producer from overflowing, but the audio is
				// neither scored nor recorded.
				s.discarded.Add(1)
				s.emit(Event{Kind: EventDiscarded, State: StateProcessing, Seq: frame.Seq, At: now})
			}
			select {
			case err := <-pipelineDone:
				if err != nil {
					s.logger.Error("processing pipeline failed", "error", err)
				}
				s.emit(Event{Kind: EventPipelineDone, State: StateProcessing, Duration: now.Sub(pipelineStart), Reason: pipelineOutcome(err), At: now})
				pipelineDone = nil
				s.resumeListening()
			default:
			}
		}
	}
}

func (s *Session) startRecording(det Detection, now time.Time) {
	seed := s.preRoll.Frames()
	s.preRoll.Clear()
	s.recorder.Begin(seed, now)
	s.gate.StartFlush()
	s.setState(StateRecord)
	s.logger.Info("wake word detected, recording",
		"score", det.Score,
		"pre_roll_frames", len(seed),
		"queue_depth", s.queue.Len(),
	)
	s.emit(Event{Kind: EventWake, State: StateRecord, Score: det.Score, At: now})
}

func (s *Session) finishRecording(ctx context.Context, reason StopReason, now time.Time) (chan error, time.Time) {
	clip := s.recorder.Take()
	s.recordings.Add(1)
	s.setState(StateProcessing)
	s.logger.Info("recording complete",
		"reason", reason.String(),
		"duration", clip.Duration(),
		"frames", len(clip.Frames),
	)
	s.emit(Event{Kind: EventEndpoint, State: StateProcessing, Reason: reason.String(), Duration: clip.Duration(), At: now})

	// The hand-off happens before any network latency is incurred: the clip
	// is owned by the pipeline goroutine from here on and the session loop
	// goes back to draining the queue.
	done := make(chan error, 1)
	go func() {
		done <- s.handler.HandleClip(ctx, clip)
	}()
	return done, now
}

func (s *Session) resumeListening() {
	drained := s.queue.Drain()
	s.preRoll.Clear()
	s.gate.StartFlush()
	s.setState(StateListen)
	s.logger.Info("resuming wake word detection",
		"drained_frames", drained,
		"flush_frames", s.gate.FlushRemaining(),
	)
}

func (s *Session) failDevice(err error) error {
	aborted := s.recorder.Active()
	if aborted {
		s.recorder.Abort()
		s.logger.Warn("device error mid-recording, partial clip discarded", "error", err)
		s.emit(Event{Kind: EventAborted, State: s.State(), Reason: "device_error", At: time.Now()})
	}
	s.preRoll.Clear()
	s.gate.Reset()
	s.gate.StartFlush()
	s.setState(StateListen)
	if aborted {
		return fmt.Errorf("capture device failed: %w: %w", ErrRecordingAborted, err)
	}
	return fmt.Errorf("capture device failed: %w", err)
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
	s.emit(Event{Kind: EventState, State: st, At: time.Now()})
}

func (s *Session) emit(ev Event) {
	if s.listener != nil {
		s.listener(ev)
	}
}

func suppressName(r SuppressReason) string {
	switch r {
	case SuppressCooldown:
		return "cooldown"
	case SuppressFlush:
		return "flush"
	case SuppressScorerError:
		return "scorer_error"
	default:
		return "threshold"
	}
}

func pipelineOutcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
