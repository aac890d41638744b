package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"voicepi/internal/domain"
)

type Transcriber interface {
	Transcribe(ctx context.Context, clip domain.Clip) (string, error)
}

type Responder interface {
	Reply(ctx context.Context, turns []domain.Turn) (string, error)
}

// Speaker synthesizes a spoken reply; the returned bytes are whatever
// encoded audio the player understands.
type Speaker interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type Player interface {
	Play(ctx context.Context, audio []byte) error
}

type NoopSpeaker struct{}

func (NoopSpeaker) Synthesize(_ context.Context, _ string) ([]byte, error) { return nil, nil }

type NoopPlayer struct{}

func (NoopPlayer) Play(_ context.Context, _ []byte) error { return nil }

// Pipeline runs a finished recording through transcribe → respond → speak.
// It implements audio.Handler; the session loop drains capture frames while
// HandleClip blocks on the remote services.
type Pipeline struct {
	transcriber Transcriber
	responder   Responder
	speaker     Speaker
	player      Player
	indicator   Indicator
	history     *History
	logger      *slog.Logger
}

func NewPipeline(
	transcriber Transcriber,
	responder Responder,
	speaker Speaker,
	player Player,
	indicator Indicator,
	history *History,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		transcriber: transcriber,
		responder:   responder,
		speaker:     speaker,
		player:      player,
		indicator:   indicator,
		history:     history,
		logger:      logger,
	}
}

func (p *Pipeline) HandleClip(ctx context.Context, clip domain.Clip) error {
	if clip.Empty() {
		return nil
	}
	p.indicator.Indicate(IndicateThink)
	defer p.indicator.Indicate(IndicateListen)

	start := time.Now()

	text, err := p.transcriber.Transcribe(ctx, clip)
	if err != nil {
		return fmt.Errorf("transcribing: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		p.logger.Info("empty transcription, skipping", "clip_duration", clip.Duration())
		return nil
	}
	p.logger.Info("transcribed", "text", text, "clip_duration", clip.Duration())

	p.history.Add(domain.RoleUser, text)

	reply, err := p.responder.Reply(ctx, p.history.Turns())
	if err != nil {
		return fmt.Errorf("generating reply: %w", err)
	}
	p.history.Add(domain.RoleAssistant, reply)

	p.logger.Info("interaction complete",
		"transcript", text,
		"reply", reply,
		"latency", time.Since(start),
	)

	// Speech failures are not fatal: the interaction already happened, the
	// device just stays quiet about it.
	if err := p.speak(ctx, reply); err != nil {
		p.logger.Error("speaking reply", "error", err)
	}

	return nil
}

func (p *Pipeline) speak(ctx context.Context, text string) error {
	speech, err := p.speaker.Synthesize(ctx, text)
	if err != nil {
		return fmt.Errorf("synthesizing: %w", err)
	}
	if len(speech) == 0 {
		return nil
	}
	p.indicator.Indicate(IndicateSpeak)
	if err := p.player.Play(ctx, speech); err != nil {
		return fmt.Errorf("playing: %w", err)
	}
	return nil
}
