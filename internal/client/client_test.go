package client

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lazypower/retention/internal/classifier"
	"github.com/lazypower/retention/internal/emotion"
	"github.com/lazypower/retention/internal/recommend"
	"github.com/lazypower/retention/internal/server"
	"github.com/lazypower/retention/internal/store"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	mock := &classifier.MockClassifier{Scores: emotion.Scores{emotion.Fear: 0.9, emotion.Neutral: 0.1}}
	ts := httptest.NewServer(server.New(db, "test", server.Analyzer{Classifier: mock}))
	t.Cleanup(ts.Close)
	return NewClient(ts.URL)
}

func TestAnalyze(t *testing.T) {
	c := testClient(t)

	res, err := c.Analyze("sess-001", "I'm worried I'll lose my files")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.ChurnRisk != 0.425 {
		t.Errorf("ChurnRisk = %v, want 0.425", res.ChurnRisk)
	}
	if res.Recommendation.Code != recommend.CheckIn {
		t.Errorf("Code = %s, want CHECKIN", res.Recommendation.Code)
	}
	if res.Dominant != emotion.Fear {
		t.Errorf("Dominant = %q, want fear", res.Dominant)
	}
	if len(res.History) != 2 {
		t.Errorf("History has %d messages, want 2", len(res.History))
	}
}

func TestAnalyzeBlankReportsServerError(t *testing.T) {
	c := testClient(t)

	_, err := c.Analyze("sess-001", " ")
	if err == nil {
		t.Fatal("expected error for blank text")
	}
	if !strings.Contains(err.Error(), "status 400") || !strings.Contains(err.Error(), "invalid input") {
		t.Errorf("err = %v", err)
	}
}

func TestMemory(t *testing.T) {
	c := testClient(t)
	for _, text := range []string{"first", "second", "third"} {
		if _, err := c.Analyze("sess-002", text); err != nil {
			t.Fatalf("Analyze: %v", err)
		}
	}

	entries, err := c.Memory("sess-002", 2)
	if err != nil {
		t.Fatalf("Memory: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].UserInput != "second" || entries[1].UserInput != "third" {
		t.Errorf("entries = %q, %q; want second, third", entries[0].UserInput, entries[1].UserInput)
	}
	if entries[1].EmotionScores[emotion.Fear] != 0.9 {
		t.Errorf("scores = %v", entries[1].EmotionScores)
	}
}

func TestHealthy(t *testing.T) {
	if !testClient(t).Healthy() {
		t.Error("Healthy = false for running server")
	}
	if NewClient("http://127.0.0.1:1").Healthy() {
		t.Error("Healthy = true for unreachable server")
	}
}

func TestNewClientFromEnv(t *testing.T) {
	t.Setenv("RETENTION_URL", "http://example.test:9000")
	if c := NewClient(""); c.serverURL != "http://example.test:9000" {
		t.Errorf("serverURL = %q", c.serverURL)
	}
	t.Setenv("RETENTION_URL", "")
	if c := NewClient(""); c.serverURL != defaultServerURL {
		t.Errorf("serverURL = %q, want default", c.serverURL)
	}
}
