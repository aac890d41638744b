package player_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"voicepi/internal/infra/player"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExecRunsPlayerWithAudioPath(t *testing.T) {
	// Stand-in player that copies its input file so the test can verify
	// what was handed to it.
	dir := t.TempDir()
	captured := filepath.Join(dir, "captured")
	script := filepath.Join(dir, "player.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\ncp \"$1\" "+captured+"\n"), 0o755); err != nil {
		t.Fatalf("writing script: %v", err)
	}

	p := player.NewExec(script, nil, discardLogger())
	if err := p.Play(context.Background(), []byte("mp3 payload")); err != nil {
		t.Fatalf("Play: %v", err)
	}

	got, err := os.ReadFile(captured)
	if err != nil {
		t.Fatalf("player never received the file: %v", err)
	}
	if string(got) != "mp3 payload" {
		t.Errorf("played bytes: got %q", got)
	}
}

func TestExecSkipsEmptyAudio(t *testing.T) {
	p := player.NewExec("/nonexistent/player", nil, discardLogger())
	if err := p.Play(context.Background(), nil); err != nil {
		t.Errorf("Play with no audio: got %v, want nil", err)
	}
}

func TestExecReportsCommandFailure(t *testing.T) {
	p := player.NewExec("false", nil, discardLogger())
	err := p.Play(context.Background(), []byte("audio"))
	if err == nil {
		t.Fatal("Play with failing command: got nil, want error")
	}
	if !strings.Contains(err.Error(), "false") {
		t.Errorf("error: got %q, want command name included", err)
	}
}
