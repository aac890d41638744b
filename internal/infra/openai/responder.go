package openai

import (
	"context"
	"fmt"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"voicepi/internal/domain"
)

// Responder turns the conversation so far into a spoken-style reply using
// the chat completions API.
type Responder struct {
	client       oai.Client
	model        string
	systemPrompt string
	maxTokens    int
	temperature  float64
}

// ResponderOption is a functional option for Responder.
type ResponderOption func(*responderConfig)

type responderConfig struct {
	baseURL string
	timeout time.Duration
}

// WithBaseURL overrides the API base URL, mainly for tests.
func WithBaseURL(url string) ResponderOption {
	return func(c *responderConfig) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request timeout.
func WithTimeout(d time.Duration) ResponderOption {
	return func(c *responderConfig) {
		c.timeout = d
	}
}

func NewResponder(apiKey, model, systemPrompt string, maxTokens int, temperature float64, opts ...ResponderOption) (*Responder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
	}

	cfg := &responderConfig{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(cfg.timeout))
	}

	return &Responder{
		client:       oai.NewClient(reqOpts...),
		model:        model,
		systemPrompt: systemPrompt,
		maxTokens:    maxTokens,
		temperature:  temperature,
	}, nil
}

func (r *Responder) Reply(ctx context.Context, turns []domain.Turn) (string, error) {
	messages := make([]oai.ChatCompletionMessageParamUnion, 0, len(turns)+1)
	if r.systemPrompt != "" {
		messages = append(messages, oai.SystemMessage(r.systemPrompt))
	}
	for _, t := range turns {
		switch t.Role {
		case domain.RoleAssistant:
			messages = append(messages, oai.AssistantMessage(t.Content))
		default:
			messages = append(messages, oai.UserMessage(t.Content))
		}
	}

	params := oai.ChatCompletionNewParams{
		Model:    shared.ChatModel(r.model),
		Messages: messages,
	}
	if r.temperature != 0 {
		params.Temperature = param.NewOpt(r.temperature)
	}
	if r.maxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(r.maxTokens))
	}

	resp, err := r.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}
