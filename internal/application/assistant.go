package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"voicepi/internal/audio"
)

// Assistant owns the capture source and the session state machine and
// applies the restart policy when the device fails: the audio core reports
// a device error once and stops; deciding whether to try again is ours.
// A source that stayed up at least this long before failing was healthy;
// its failure starts a fresh restart budget.
const healthyRunReset = time.Minute

type Assistant struct {
	source          FrameSource
	session         *audio.Session
	indicator       Indicator
	restartAttempts int
	restartDelay    time.Duration
	healthyRun      time.Duration
	logger          *slog.Logger
}

func NewAssistant(
	source FrameSource,
	session *audio.Session,
	indicator Indicator,
	restartAttempts int,
	restartDelay time.Duration,
	logger *slog.Logger,
) *Assistant {
	return &Assistant{
		source:          source,
		session:         session,
		indicator:       indicator,
		restartAttempts: restartAttempts,
		restartDelay:    restartDelay,
		healthyRun:      healthyRunReset,
		logger:          logger,
	}
}

func (a *Assistant) Session() *audio.Session { return a.session }

// Run starts capture and drives the session until the context is cancelled.
// Device failures restart the source up to the configured attempt budget;
// a run that stays up past healthyRunReset before failing starts the budget
// over, so the budget bounds crash loops rather than process lifetime.
func (a *Assistant) Run(ctx context.Context) error {
	attempts := 0
	for {
		started := time.Now()
		err := a.runOnce(ctx)
		if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if time.Since(started) >= a.healthyRun {
			attempts = 0
		}

		attempts++
		if attempts > a.restartAttempts {
			return fmt.Errorf("giving up after %d device restarts: %w", a.restartAttempts, err)
		}

		a.logger.Warn("audio device failed, restarting",
			"error", err,
			"attempt", attempts,
			"max_attempts", a.restartAttempts,
		)
		a.indicator.Indicate(IndicateOffline)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(a.restartDelay):
		}
	}
}

func (a *Assistant) runOnce(ctx context.Context) error {
	a.logger.Info("starting audio capture", "source", a.source.Name())
	if err := a.source.Start(ctx); err != nil {
		return fmt.Errorf("starting audio source: %w", err)
	}
	defer func() {
		if err := a.source.Stop(); err != nil {
			a.logger.Warn("stopping audio source", "error", err)
		}
	}()

	a.indicator.Indicate(IndicateListen)
	defer a.indicator.Indicate(IndicateOff)

	return a.session.Run(ctx)
}
