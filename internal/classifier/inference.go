package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lazypower/retention/internal/emotion"
)

// Inference calls a text-classification HTTP endpoint, such as a hosted
// emotion model, that answers with a list of {label, score} objects.
type Inference struct {
	url    string
	apiKey string
	client *http.Client
}

// NewInference creates a new inference endpoint client.
func NewInference(url, apiKey string, timeout time.Duration) *Inference {
	return &Inference{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
	}
}

type labelScore struct {
	Label string   `json:"label"`
	Score *float64 `json:"score"`
}

// Classify posts the text and parses every returned label score.
func (c *Inference) Classify(ctx context.Context, text string) (emotion.Scores, error) {
	body, err := json.Marshal(map[string]any{
		"inputs":     text,
		"parameters": map[string]any{"top_k": nil},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference api status %d: %s", resp.StatusCode, respBody)
	}

	return parseLabelScores(respBody)
}

// parseLabelScores accepts either [{label, score}] or the batched
// [[{label, score}]] shape. Items missing a label or score are skipped.
func parseLabelScores(data []byte) (emotion.Scores, error) {
	var nested [][]labelScore
	if err := json.Unmarshal(data, &nested); err == nil {
		if len(nested) == 0 {
			return emotion.Scores{}, nil
		}
		return collect(nested[0]), nil
	}

	var flat []labelScore
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return collect(flat), nil
}

func collect(items []labelScore) emotion.Scores {
	raw := make(map[string]float64, len(items))
	for _, it := range items {
		if it.Label == "" || it.Score == nil {
			continue
		}
		raw[it.Label] = *it.Score
	}
	return normalize(raw)
}
