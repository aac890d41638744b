package audio

import (
	"errors"
	"time"

	"voicepi/internal/domain"
)

// ErrRecordingAborted marks a recording discarded because the capture
// device failed mid-session. No partial clip is ever handed downstream.
var ErrRecordingAborted = errors.New("recording aborted")

// StopReason is the endpoint decision for a recording.
type StopReason int

const (
	StopNone StopReason = iota
	StopSilence
	StopMaxDuration
)

func (r StopReason) String() string {
	switch r {
	case StopSilence:
		return "silence"
	case StopMaxDuration:
		return "max_duration"
	default:
		return "none"
	}
}

// SilenceTracker counts consecutive silent audio time, but only once at
// least one non-silent frame has been heard: a recording must not end just
// because the user has not started speaking yet.
type SilenceTracker struct {
	threshold   float64
	heardSpeech bool
	silence     time.Duration
}

func NewSilenceTracker(threshold float64) *SilenceTracker {
	return &SilenceTracker{threshold: threshold}
}

func (t *SilenceTracker) Observe(rms float64, d time.Duration) {
	if rms >= t.threshold {
		t.heardSpeech = true
		t.silence = 0
		return
	}
	if t.heardSpeech {
		t.silence += d
	}
}

func (t *SilenceTracker) ConsecutiveSilence() time.Duration { return t.silence }

func (t *SilenceTracker) HeardSpeech() bool { return t.heardSpeech }

func (t *SilenceTracker) Reset() {
	t.heardSpeech = false
	t.silence = 0
}

// Recorder accumulates command audio from wake detection until an endpoint
// decision. Durations are measured in audio time from the captured frames,
// which keeps endpointing deterministic; the session applies a wall-clock
// guard separately in case the device stalls.
type Recorder struct {
	sampleRate  int
	maxDuration time.Duration
	silenceHold time.Duration
	tracker     *SilenceTracker

	frames    []domain.Frame
	captured  time.Duration
	startedAt time.Time
	active    bool
}

func NewRecorder(sampleRate int, maxDuration, silenceHold time.Duration, silenceRMSThreshold float64) *Recorder {
	return &Recorder{
		sampleRate:  sampleRate,
		maxDuration: maxDuration,
		silenceHold: silenceHold,
		tracker:     NewSilenceTracker(silenceRMSThreshold),
	}
}

// Begin seeds a new recording with the pre-roll frames. Seed audio does not
// count toward the duration cap or the silence clock.
func (r *Recorder) Begin(seed []domain.Frame, now time.Time) {
	r.frames = append(make([]domain.Frame, 0, len(seed)+64), seed...)
	r.captured = 0
	r.startedAt = now
	r.active = true
	r.tracker.Reset()
}

// Feed appends one frame and returns the endpoint decision, StopNone while
// the recording should continue.
func (r *Recorder) Feed(f domain.Frame) StopReason {
	if !r.active {
		return StopNone
	}
	r.frames = append(r.frames, f)
	d := f.Duration(r.sampleRate)
	r.captured += d
	r.tracker.Observe(f.RMS(), d)

	if r.captured >= r.maxDuration {
		return StopMaxDuration
	}
	if r.tracker.HeardSpeech() && r.tracker.ConsecutiveSilence() >= r.silenceHold {
		return StopSilence
	}
	return StopNone
}

// Elapsed is the wall-clock time since Begin, used by the session to cap a
// recording whose frame supply has stalled.
func (r *Recorder) Elapsed(now time.Time) time.Duration {
	if !r.active {
		return 0
	}
	return now.Sub(r.startedAt)
}

// Captured is the audio time recorded so far, excluding the pre-roll seed.
func (r *Recorder) Captured() time.Duration { return r.captured }

func (r *Recorder) Active() bool { return r.active }

// Take moves the finished clip out of the recorder. The internal buffer is
// released and not reused until the next Begin.
func (r *Recorder) Take() domain.Clip {
	clip := domain.Clip{Frames: r.frames, SampleRate: r.sampleRate}
	r.frames = nil
	r.captured = 0
	r.active = false
	return clip
}

// Abort discards the partial recording without handing anything off.
func (r *Recorder) Abort() {
	r.frames = nil
	r.captured = 0
	r.active = false
	r.tracker.Reset()
}
