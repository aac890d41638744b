package led

import (
	"context"
	"log/slog"
	"os/exec"
	"time"

	"voicepi/internal/application"
)

// Script drives the LED ring by invoking an external command with the
// state name as its argument (the reference hardware ships a small pixel
// script for this). Invocations run asynchronously; the audio path never
// waits on GPIO.
type Script struct {
	command string
	logger  *slog.Logger
}

func NewScript(command string, logger *slog.Logger) *Script {
	return &Script{command: command, logger: logger}
}

func (s *Script) Indicate(state application.IndicatorState) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		cmd := exec.CommandContext(ctx, s.command, string(state))
		if out, err := cmd.CombinedOutput(); err != nil {
			s.logger.Warn("led command failed", "state", state, "error", err, "output", string(out))
		}
	}()
}
