package audio

import (
	"log/slog"
	"time"

	"voicepi/internal/domain"
)

// Scorer rates a single frame for wake-word presence. Implementations are
// expected to carry temporal state across calls, which is why the gate
// keeps feeding frames during the flush window even though it ignores the
// scores.
type Scorer interface {
	Score(f domain.Frame) (float64, error)
}

// Detection is an accepted wake-word trigger.
type Detection struct {
	Score float64
	At    time.Time
}

// SuppressReason says why a frame's score did not produce a detection.
type SuppressReason int

const (
	SuppressNone SuppressReason = iota
	SuppressBelowThreshold
	SuppressCooldown
	SuppressFlush
	SuppressScorerError
)

// Gate feeds frames to the scoring model and decides when a wake event
// fires. It owns all detection state: the last trigger time for cooldown
// and the flush countdown that discards scores while the model's internal
// buffers refill after a recording or processing interval.
type Gate struct {
	scorer      Scorer
	threshold   float64
	cooldown    time.Duration
	flushFrames int

	lastDetection  time.Time
	flushRemaining int
	logger         *slog.Logger
}

func NewGate(scorer Scorer, threshold float64, cooldown time.Duration, flushFrames int, logger *slog.Logger) *Gate {
	return &Gate{
		scorer:      scorer,
		threshold:   threshold,
		cooldown:    cooldown,
		flushFrames: flushFrames,
		logger:      logger,
	}
}

// Feed scores one frame and reports whether it triggered a wake event.
// A scorer failure downgrades that frame to "no detection"; the loop keeps
// running.
func (g *Gate) Feed(f domain.Frame, now time.Time) (Detection, SuppressReason) {
	if g.flushRemaining > 0 {
		g.flushRemaining--
		// Warm the model's sliding window with fresh audio, ignore the score.
		if _, err := g.scorer.Score(f); err != nil {
			g.logger.Debug("scorer failed during flush", "seq", f.Seq, "error", err)
		}
		return Detection{}, SuppressFlush
	}

	score, err := g.scorer.Score(f)
	if err != nil {
		g.logger.Debug("scorer failed, skipping frame", "seq", f.Seq, "error", err)
		return Detection{}, SuppressScorerError
	}
	if score < g.threshold {
		return Detection{}, SuppressBelowThreshold
	}
	if !g.lastDetection.IsZero() && now.Sub(g.lastDetection) < g.cooldown {
		return Detection{}, SuppressCooldown
	}

	g.lastDetection = now
	return Detection{Score: score, At: now}, SuppressNone
}

// StartFlush arms the post-interruption flush window. Called whenever the
// session leaves LISTEN; the countdown only ticks on frames fed while
// listening.
func (g *Gate) StartFlush() {
	g.flushRemaining = g.flushFrames
}

func (g *Gate) FlushRemaining() int { return g.flushRemaining }

// Reset clears detection state for a fresh listening session.
func (g *Gate) Reset() {
	g.lastDetection = time.Time{}
	g.flushRemaining = 0
}
