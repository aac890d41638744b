package player

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
)

// Exec plays synthesized audio by shelling out to an external player
// (mpg123 on the reference hardware). The audio bytes are staged in a
// temporary file because common players want a path, not a pipe.
type Exec struct {
	command string
	args    []string
	logger  *slog.Logger
}

func NewExec(command string, args []string, logger *slog.Logger) *Exec {
	return &Exec{command: command, args: args, logger: logger}
}

func (p *Exec) Play(ctx context.Context, audio []byte) error {
	if len(audio) == 0 {
		return nil
	}

	f, err := os.CreateTemp("", "voicepi-reply-*.mp3")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(audio); err != nil {
		f.Close()
		return fmt.Errorf("writing audio: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	args := append(append([]string{}, p.args...), path)
	cmd := exec.CommandContext(ctx, p.command, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		p.logger.Error("player command failed", "command", p.command, "output", string(out))
		return fmt.Errorf("running %s: %w", p.command, err)
	}
	return nil
}
