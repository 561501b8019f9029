// Package client talks to a running retention server.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/lazypower/retention/internal/emotion"
	"github.com/lazypower/retention/internal/memory"
	"github.com/lazypower/retention/internal/recommend"
)

const (
	defaultServerURL = "http://127.0.0.1:37780"
	httpTimeout      = 60 * time.Second
)

// Client talks to the retention server.
type Client struct {
	http      *http.Client
	serverURL string
}

// NewClient creates a client for serverURL.
// An empty serverURL uses RETENTION_URL, then http://127.0.0.1:37780.
func NewClient(serverURL string) *Client {
	if serverURL == "" {
		serverURL = os.Getenv("RETENTION_URL")
	}
	if serverURL == "" {
		serverURL = defaultServerURL
	}
	return &Client{
		http:      &http.Client{Timeout: httpTimeout},
		serverURL: serverURL,
	}
}

// AnalyzeResult is the server's reply to an analyze request.
type AnalyzeResult struct {
	SessionID      string                   `json:"session_id"`
	Input          string                   `json:"input"`
	EmotionScores  emotion.Scores           `json:"emotion_scores"`
	ChurnRisk      float64                  `json:"churn_risk"`
	Recommendation recommend.Recommendation `json:"recommendation"`
	History        []memory.Message         `json:"history"`
	Dominant       string                   `json:"dominant"`
	Summary        string                   `json:"summary"`
}

// Analyze runs text through the server's pipeline for a session.
func (c *Client) Analyze(sessionID, text string) (*AnalyzeResult, error) {
	body, err := json.Marshal(map[string]string{
		"session_id": sessionID,
		"text":       text,
	})
	if err != nil {
		return nil, err
	}

	data, err := c.Post("/api/analyze", body)
	if err != nil {
		return nil, err
	}

	var res AnalyzeResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode analyze response: %w", err)
	}
	return &res, nil
}

// Memory fetches up to limit of a session's most recent entries, oldest first.
func (c *Client) Memory(sessionID string, limit int) ([]memory.Entry, error) {
	data, err := c.Get(fmt.Sprintf("/api/sessions/%s/memory?limit=%d", url.PathEscape(sessionID), limit))
	if err != nil {
		return nil, err
	}

	var res struct {
		Entries []memory.Entry `json:"entries"`
	}
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode memory response: %w", err)
	}
	return res.Entries, nil
}

// Post sends a POST request with JSON body. Returns response body.
func (c *Client) Post(path string, body []byte) ([]byte, error) {
	resp, err := c.http.Post(c.serverURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w", path, err)
	}
	if resp.StatusCode >= 400 {
		return data, fmt.Errorf("POST %s: status %d: %s", path, resp.StatusCode, errorMessage(data))
	}
	return data, nil
}

// Get sends a GET request. Returns response body.
func (c *Client) Get(path string) ([]byte, error) {
	resp, err := c.http.Get(c.serverURL + path)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w", path, err)
	}
	if resp.StatusCode >= 400 {
		return data, fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, errorMessage(data))
	}
	return data, nil
}

// Healthy checks if the server is reachable.
func (c *Client) Healthy() bool {
	resp, err := c.http.Get(c.serverURL + "/api/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// errorMessage pulls the "error" field out of a JSON error body, falling
// back to the raw body.
func errorMessage(data []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &e) == nil && e.Error != "" {
		return e.Error
	}
	return string(bytes.TrimSpace(data))
}
