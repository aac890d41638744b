package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"voicepi/internal/infra"
)

// Speaker synthesizes reply text to MP3 via the speech endpoint.
type Speaker struct {
	apiKey     string
	model      string
	voice      string
	baseURL    string
	httpClient *http.Client
}

func NewSpeaker(apiKey, model, voice string) *Speaker {
	return NewSpeakerWithURL(apiKey, model, voice, "https://api.openai.com/v1")
}

func NewSpeakerWithURL(apiKey, model, voice, baseURL string) *Speaker {
	return &Speaker{
		apiKey:     apiKey,
		model:      model,
		voice:      voice,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

func (s *Speaker) Synthesize(ctx context.Context, text string) ([]byte, error) {
	payload, err := json.Marshal(speechRequest{
		Model:          s.model,
		Input:          text,
		Voice:          s.voice,
		ResponseFormat: "mp3",
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	var out []byte
	retryErr := infra.WithRetry(ctx, infra.DefaultRetryConfig(), func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/audio/speech", bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			apiErr := fmt.Errorf("speech API error %d: %s", resp.StatusCode, string(respBody))
			if !infra.IsRetryableHTTPStatus(resp.StatusCode) {
				return infra.Permanent(apiErr)
			}
			return apiErr
		}

		out, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading audio: %w", err)
		}
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}

	return out, nil
}
