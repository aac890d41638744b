package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Audio        AudioConfig        `yaml:"audio"`
	Queue        QueueConfig        `yaml:"queue"`
	WakeWord     WakeWordConfig     `yaml:"wakeword"`
	Recording    RecordingConfig    `yaml:"recording"`
	OpenAI       OpenAIConfig       `yaml:"openai"`
	Playback     PlaybackConfig     `yaml:"playback"`
	LED          LEDConfig          `yaml:"led"`
	Monitor      MonitorConfig      `yaml:"monitor"`
	Connectivity ConnectivityConfig `yaml:"connectivity"`
	History      HistoryConfig      `yaml:"history"`
	Log          LogConfig          `yaml:"log"`
}

type AudioConfig struct {
	SampleRate      int    `yaml:"sample_rate" validate:"gt=0"`
	ChunkSize       int    `yaml:"chunk_size" validate:"gt=0"`
	Channels        int    `yaml:"channels" validate:"gte=1,lte=16"`
	MicChannelIndex int    `yaml:"mic_channel_index" validate:"gte=0"`
	DeviceMatch     string `yaml:"device_match"`
	RestartAttempts int    `yaml:"restart_attempts" validate:"gte=0"`
	RestartDelay    string `yaml:"restart_delay"`
}

type QueueConfig struct {
	Capacity       int    `yaml:"capacity" validate:"gte=1"`
	OverflowPolicy string `yaml:"overflow_policy" validate:"oneof=drop_oldest drop_newest"`
}

type WakeWordConfig struct {
	Threshold       float64 `yaml:"threshold" validate:"gte=0,lte=1"`
	CooldownSeconds float64 `yaml:"cooldown_seconds" validate:"gt=0"`
	FlushFrames     int     `yaml:"flush_frames" validate:"gte=0"`
	ScorerURL       string  `yaml:"scorer_url" validate:"omitempty,url"`
}

type RecordingConfig struct {
	MaxDurationSeconds  float64 `yaml:"max_duration_seconds" validate:"gt=0"`
	SilenceHoldSeconds  float64 `yaml:"silence_hold_seconds" validate:"gt=0"`
	SilenceRMSThreshold float64 `yaml:"silence_rms_threshold" validate:"gt=0,lte=1"`
	PreRollSeconds      float64 `yaml:"pre_roll_seconds" validate:"gte=0"`
}

type OpenAIConfig struct {
	APIKey       string  `yaml:"api_key" validate:"required"`
	WhisperModel string  `yaml:"whisper_model"`
	ChatModel    string  `yaml:"chat_model"`
	TTSModel     string  `yaml:"tts_model"`
	TTSVoice     string  `yaml:"tts_voice"`
	Language     string  `yaml:"language"`
	SystemPrompt string  `yaml:"system_prompt"`
	MaxTokens    int     `yaml:"max_tokens" validate:"gt=0"`
	Temperature  float64 `yaml:"temperature" validate:"gte=0,lte=2"`
}

type PlaybackConfig struct {
	Enabled bool     `yaml:"enabled"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

type LEDConfig struct {
	Enabled bool   `yaml:"enabled"`
	Command string `yaml:"command"`
}

type MonitorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type ConnectivityConfig struct {
	Enabled         bool   `yaml:"enabled"`
	CheckURL        string `yaml:"check_url" validate:"omitempty,url"`
	IntervalSeconds int    `yaml:"interval_seconds" validate:"gt=0"`
}

type HistoryConfig struct {
	IdleTimeoutSeconds int `yaml:"idle_timeout_seconds" validate:"gt=0"`
	MaxTurns           int `yaml:"max_turns" validate:"gt=0"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Audio.ChunkSize == 0 {
		c.Audio.ChunkSize = 1280
	}
	if c.Audio.Channels == 0 {
		c.Audio.Channels = 1
	}
	if c.Audio.RestartDelay == "" {
		c.Audio.RestartDelay = "2s"
	}
	if c.Queue.Capacity == 0 {
		c.Queue.Capacity = 64
	}
	if c.Queue.OverflowPolicy == "" {
		c.Queue.OverflowPolicy = "drop_oldest"
	}
	if c.WakeWord.Threshold == 0 {
		c.WakeWord.Threshold = 0.5
	}
	if c.WakeWord.CooldownSeconds == 0 {
		c.WakeWord.CooldownSeconds = 1.0
	}
	if c.WakeWord.FlushFrames == 0 {
		c.WakeWord.FlushFrames = 30
	}
	if c.Recording.MaxDurationSeconds == 0 {
		c.Recording.MaxDurationSeconds = 10.0
	}
	if c.Recording.SilenceHoldSeconds == 0 {
		c.Recording.SilenceHoldSeconds = 0.8
	}
	if c.Recording.SilenceRMSThreshold == 0 {
		c.Recording.SilenceRMSThreshold = 0.007
	}
	if c.Recording.PreRollSeconds == 0 {
		c.Recording.PreRollSeconds = 0.4
	}
	if c.OpenAI.WhisperModel == "" {
		c.OpenAI.WhisperModel = "whisper-1"
	}
	if c.OpenAI.ChatModel == "" {
		c.OpenAI.ChatModel = "gpt-4o-mini"
	}
	if c.OpenAI.TTSModel == "" {
		c.OpenAI.TTSModel = "tts-1"
	}
	if c.OpenAI.TTSVoice == "" {
		c.OpenAI.TTSVoice = "alloy"
	}
	if c.OpenAI.SystemPrompt == "" {
		c.OpenAI.SystemPrompt = "You are a helpful voice assistant. Keep answers short and speakable."
	}
	if c.OpenAI.MaxTokens == 0 {
		c.OpenAI.MaxTokens = 500
	}
	if c.OpenAI.Temperature == 0 {
		c.OpenAI.Temperature = 0.7
	}
	if c.Playback.Command == "" {
		c.Playback.Command = "mpg123"
	}
	if c.Monitor.Addr == "" {
		c.Monitor.Addr = "127.0.0.1:8090"
	}
	if c.Connectivity.CheckURL == "" {
		c.Connectivity.CheckURL = "https://www.google.com/generate_204"
	}
	if c.Connectivity.IntervalSeconds == 0 {
		c.Connectivity.IntervalSeconds = 10
	}
	if c.History.IdleTimeoutSeconds == 0 {
		c.History.IdleTimeoutSeconds = 300
	}
	if c.History.MaxTurns == 0 {
		c.History.MaxTurns = 20
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate applies the struct tags plus the cross-field checks the tags
// cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	if c.Audio.MicChannelIndex >= c.Audio.Channels {
		return fmt.Errorf("validating config: mic_channel_index %d out of range for %d channels",
			c.Audio.MicChannelIndex, c.Audio.Channels)
	}
	if _, err := time.ParseDuration(c.Audio.RestartDelay); err != nil {
		return fmt.Errorf("validating config: restart_delay: %w", err)
	}
	if c.Recording.SilenceHoldSeconds >= c.Recording.MaxDurationSeconds {
		return fmt.Errorf("validating config: silence_hold_seconds must be below max_duration_seconds")
	}
	return nil
}

// Duration helpers: the YAML surface uses float seconds to match the knobs
// as operators know them; the rest of the program works in time.Duration.

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

func (c *Config) Cooldown() time.Duration { return seconds(c.WakeWord.CooldownSeconds) }

func (c *Config) MaxDuration() time.Duration { return seconds(c.Recording.MaxDurationSeconds) }

func (c *Config) SilenceHold() time.Duration { return seconds(c.Recording.SilenceHoldSeconds) }

func (c *Config) PreRoll() time.Duration { return seconds(c.Recording.PreRollSeconds) }

func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.Connectivity.IntervalSeconds) * time.Second
}
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.History.IdleTimeoutSeconds) * time.Second
}

// RestartDelayDuration is always valid after Validate.
func (c *Config) RestartDelayDuration() time.Duration {
	d, _ := time.ParseDuration(c.Audio.RestartDelay)
	return d
}

// PreRollFrames converts the pre-roll window to whole capture frames,
// rounding up so the window is never shorter than configured.
func (c *Config) PreRollFrames() int {
	if c.Audio.ChunkSize <= 0 {
		return 1
	}
	samples := c.Recording.PreRollSeconds * float64(c.Audio.SampleRate)
	frames := int((samples + float64(c.Audio.ChunkSize) - 1) / float64(c.Audio.ChunkSize))
	if frames < 1 {
		frames = 1
	}
	return frames
}
