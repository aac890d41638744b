package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"voicepi/config"
	"voicepi/internal/application"
	"voicepi/internal/audio"
	"voicepi/internal/connectivity"
	"voicepi/internal/infra/capture"
	"voicepi/internal/infra/led"
	"voicepi/internal/infra/openai"
	"voicepi/internal/infra/player"
	"voicepi/internal/infra/wakeword"
	"voicepi/internal/metrics"
	"voicepi/internal/monitor"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	// Audio core.
	queue := audio.NewQueue(cfg.Queue.Capacity, overflowPolicy(cfg.Queue.OverflowPolicy))
	scorer := createScorer(cfg, logger)
	gate := audio.NewGate(scorer, cfg.WakeWord.Threshold, cfg.Cooldown(), cfg.WakeWord.FlushFrames, logger)
	preRoll := audio.NewPreRoll(cfg.PreRollFrames())
	recorder := audio.NewRecorder(cfg.Audio.SampleRate, cfg.MaxDuration(), cfg.SilenceHold(), cfg.Recording.SilenceRMSThreshold)

	source := capture.New(capture.Config{
		SampleRate:   cfg.Audio.SampleRate,
		ChunkSize:    cfg.Audio.ChunkSize,
		Channels:     cfg.Audio.Channels,
		ChannelIndex: cfg.Audio.MicChannelIndex,
		DeviceMatch:  cfg.Audio.DeviceMatch,
	}, queue, logger)

	// Collaborators.
	indicator := createIndicator(cfg.LED, logger)
	history := application.NewHistory(cfg.History.MaxTurns, cfg.IdleTimeout())
	transcriber := openai.NewTranscriber(cfg.OpenAI.APIKey, cfg.OpenAI.WhisperModel, cfg.OpenAI.Language)
	responder, err := openai.NewResponder(
		cfg.OpenAI.APIKey,
		cfg.OpenAI.ChatModel,
		cfg.OpenAI.SystemPrompt,
		cfg.OpenAI.MaxTokens,
		cfg.OpenAI.Temperature,
	)
	if err != nil {
		logger.Error("creating responder", "error", err)
		os.Exit(1)
	}

	var speaker application.Speaker = application.NoopSpeaker{}
	var audioOut application.Player = application.NoopPlayer{}
	if cfg.Playback.Enabled {
		speaker = openai.NewSpeaker(cfg.OpenAI.APIKey, cfg.OpenAI.TTSModel, cfg.OpenAI.TTSVoice)
		audioOut = player.NewExec(cfg.Playback.Command, cfg.Playback.Args, logger)
	}

	pipeline := application.NewPipeline(transcriber, responder, speaker, audioOut, indicator, history, logger)

	session := audio.NewSession(audio.SessionConfig{
		SampleRate:  cfg.Audio.SampleRate,
		MaxDuration: cfg.MaxDuration(),
	}, queue, gate, preRoll, recorder, pipeline, source.Err(), logger)

	// Observability.
	registry := prometheus.NewRegistry()
	m := metrics.New(registry, queue)
	hub := monitor.NewHub(logger)
	session.SetListener(func(ev audio.Event) {
		m.ObserveSession(ev)
		hub.Publish(toMonitorEvent(ev))
	})

	assistant := application.NewAssistant(
		source,
		session,
		indicator,
		cfg.Audio.RestartAttempts,
		cfg.RestartDelayDuration(),
		logger,
	)

	logger.Info("starting voice assistant",
		"sample_rate", cfg.Audio.SampleRate,
		"chunk_size", cfg.Audio.ChunkSize,
		"wake_threshold", cfg.WakeWord.Threshold,
		"silence_rms_threshold", cfg.Recording.SilenceRMSThreshold,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return assistant.Run(gctx)
	})
	if cfg.Monitor.Enabled {
		server := monitor.NewServer(cfg.Monitor.Addr, statusFunc(session), registry, hub, logger)
		g.Go(func() error {
			return server.Run(gctx)
		})
	}
	if cfg.Connectivity.Enabled {
		onChange := func(online bool) {
			if online {
				indicator.Indicate(application.IndicateListen)
			} else {
				indicator.Indicate(application.IndicateOffline)
			}
		}
		conn := connectivity.NewMonitor(cfg.Connectivity.CheckURL, cfg.CheckInterval(), onChange, logger)
		g.Go(func() error {
			return conn.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("assistant error", "error", err)
		os.Exit(1)
	}
}

func createScorer(cfg *config.Config, logger *slog.Logger) audio.Scorer {
	if cfg.WakeWord.ScorerURL != "" {
		return wakeword.NewHTTPScorer(cfg.WakeWord.ScorerURL, cfg.Audio.SampleRate)
	}
	logger.Warn("no wake-word scorer configured, falling back to energy detection")
	return wakeword.NewEnergyScorer(0.1)
}

func createIndicator(cfg config.LEDConfig, logger *slog.Logger) application.Indicator {
	if cfg.Enabled && cfg.Command != "" {
		return led.NewScript(cfg.Command, logger)
	}
	return application.NoopIndicator{}
}

func statusFunc(session *audio.Session) monitor.StatusFunc {
	return func() monitor.Status {
		stats := session.Stats()
		return monitor.Status{
			State:          stats.State.String(),
			Recordings:     stats.Recordings,
			Discarded:      stats.Discarded,
			QueueDepth:     stats.Queue.Depth,
			QueueCapacity:  stats.Queue.Capacity,
			FramesAccepted: stats.Queue.Accepted,
			FramesDropped:  stats.Queue.Dropped,
			UptimeSeconds:  stats.Uptime.Seconds(),
		}
	}
}

func toMonitorEvent(ev audio.Event) monitor.Event {
	return monitor.Event{
		Kind:     eventKindName(ev.Kind),
		State:    ev.State.String(),
		Seq:      ev.Seq,
		RMS:      ev.RMS,
		Score:    ev.Score,
		Reason:   ev.Reason,
		Duration: ev.Duration.Seconds(),
		At:       ev.At.UnixMilli(),
	}
}

func eventKindName(kind audio.EventKind) string {
	switch kind {
	case audio.EventState:
		return "state"
	case audio.EventLevel:
		return "level"
	case audio.EventWake:
		return "wake"
	case audio.EventEndpoint:
		return "endpoint"
	case audio.EventAborted:
		return "aborted"
	case audio.EventSuppressed:
		return "suppressed"
	case audio.EventDiscarded:
		return "discarded"
	case audio.EventPipelineDone:
		return "pipeline_done"
	default:
		return "unknown"
	}
}

func overflowPolicy(name string) audio.OverflowPolicy {
	if name == "drop_newest" {
		return audio.DropNewest
	}
	return audio.DropOldest
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
