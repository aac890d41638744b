package wakeword

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"voicepi/internal/domain"
)

// HTTPScorer consults a wake-word model served by a local sidecar (an
// openwakeword process, typically). One POST per frame carries raw 16-bit
// PCM; the sidecar keeps the model's temporal state between calls.
//
// Scoring sits on the real-time path, so the client timeout is short and a
// failure is returned to the gate, which treats the frame as no-detection.
type HTTPScorer struct {
	url        string
	sampleRate int
	httpClient *http.Client
}

func NewHTTPScorer(url string, sampleRate int) *HTTPScorer {
	return &HTTPScorer{
		url:        url,
		sampleRate: sampleRate,
		httpClient: &http.Client{Timeout: 500 * time.Millisecond},
	}
}

type scoreResponse struct {
	Score float64 `json:"score"`
}

func (s *HTTPScorer) Score(f domain.Frame) (float64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.httpClient.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(encodePCM16(f.Samples)))
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Sample-Rate", strconv.Itoa(s.sampleRate))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("scoring frame: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("scorer error %d: %s", resp.StatusCode, string(body))
	}

	var out scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decoding score: %w", err)
	}
	if out.Score < 0 || out.Score > 1 {
		return 0, fmt.Errorf("score %f out of range", out.Score)
	}
	return out.Score, nil
}

func encodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		clipped := math.Max(-1, math.Min(1, float64(s)))
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(clipped*32767)))
	}
	return out
}
