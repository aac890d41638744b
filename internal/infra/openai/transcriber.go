package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"voicepi/internal/audio"
	"voicepi/internal/domain"
	"voicepi/internal/infra"
)

// Transcriber sends finished clips to the Whisper transcription endpoint.
type Transcriber struct {
	apiKey     string
	model      string
	language   string
	baseURL    string
	httpClient *http.Client
}

func NewTranscriber(apiKey, model, language string) *Transcriber {
	return NewTranscriberWithURL(apiKey, model, language, "https://api.openai.com/v1")
}

func NewTranscriberWithURL(apiKey, model, language, baseURL string) *Transcriber {
	return &Transcriber{
		apiKey:     apiKey,
		model:      model,
		language:   language,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

func (t *Transcriber) Transcribe(ctx context.Context, clip domain.Clip) (string, error) {
	wav := audio.EncodeWAV(clip.Samples(), clip.SampleRate)

	var result transcriptionResponse
	retryErr := infra.WithRetry(ctx, infra.DefaultRetryConfig(), func() error {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)

		part, err := writer.CreateFormFile("file", "command.wav")
		if err != nil {
			return fmt.Errorf("creating form file: %w", err)
		}
		if _, err = part.Write(wav); err != nil {
			return fmt.Errorf("writing audio: %w", err)
		}
		if err = writer.WriteField("model", t.model); err != nil {
			return fmt.Errorf("writing model field: %w", err)
		}
		if t.language != "" {
			if err = writer.WriteField("language", t.language); err != nil {
				return fmt.Errorf("writing language field: %w", err)
			}
		}
		if err = writer.Close(); err != nil {
			return fmt.Errorf("closing writer: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/audio/transcriptions", body)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
		req.Header.Set("Content-Type", writer.FormDataContentType())

		resp, err := t.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			apiErr := fmt.Errorf("transcription API error %d: %s", resp.StatusCode, string(respBody))
			if !infra.IsRetryableHTTPStatus(resp.StatusCode) {
				return infra.Permanent(apiErr)
			}
			return apiErr
		}

		if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		return nil
	})
	if retryErr != nil {
		return "", retryErr
	}

	return result.Text, nil
}
