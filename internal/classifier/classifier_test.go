package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lazypower/retention/internal/config"
	"github.com/lazypower/retention/internal/emotion"
)

func unwrap(t *testing.T, c Classifier) Classifier {
	t.Helper()
	p, ok := c.(*prepared)
	if !ok {
		t.Fatalf("expected *prepared, got %T", c)
	}
	return p.next
}

func TestNewClassifierInference(t *testing.T) {
	c, err := NewClassifier(config.ClassifierConfig{Provider: "inference", URL: "http://x"})
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	if _, ok := unwrap(t, c).(*Inference); !ok {
		t.Errorf("expected *Inference, got %T", unwrap(t, c))
	}
}

func TestNewClassifierInferenceMissingURL(t *testing.T) {
	if _, err := NewClassifier(config.ClassifierConfig{Provider: "inference"}); err == nil {
		t.Error("expected error for missing url")
	}
}

func TestNewClassifierLLMProviders(t *testing.T) {
	for _, cfg := range []config.ClassifierConfig{
		{Provider: "ollama"},
		{Provider: "anthropic", APIKey: "test-key"},
	} {
		c, err := NewClassifier(cfg)
		if err != nil {
			t.Fatalf("NewClassifier(%s): %v", cfg.Provider, err)
		}
		if _, ok := unwrap(t, c).(*LLM); !ok {
			t.Errorf("%s: expected *LLM, got %T", cfg.Provider, unwrap(t, c))
		}
	}
}

func TestNewClassifierAnthropicMissingKey(t *testing.T) {
	if _, err := NewClassifier(config.ClassifierConfig{Provider: "anthropic"}); err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestNewClassifierLexiconDefault(t *testing.T) {
	c, err := NewClassifier(config.ClassifierConfig{})
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	if _, ok := unwrap(t, c).(*Lexicon); !ok {
		t.Errorf("expected *Lexicon, got %T", unwrap(t, c))
	}
}

func TestNewClassifierUnknown(t *testing.T) {
	if _, err := NewClassifier(config.ClassifierConfig{Provider: "gpt"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestPrepare(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"  hello  ", 512, "hello"},
		{"line one\nline two\r\nthree", 512, "line one line two three"},
		{strings.Repeat("a", 600), 512, strings.Repeat("a", 512)},
		{"héllo wörld", 4, "héll"},
	}
	for _, tt := range tests {
		if got := Prepare(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("Prepare(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}

func TestPreparedAppliesPrepare(t *testing.T) {
	mock := &MockClassifier{Scores: emotion.Scores{emotion.Joy: 1}}
	c := &prepared{next: mock, maxLen: 5}
	if _, err := c.Classify(context.Background(), "  abc\ndefgh "); err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if mock.Calls[0] != "abc d" {
		t.Errorf("sent %q, want %q", mock.Calls[0], "abc d")
	}
}

func TestInferenceNested(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		if req["inputs"] != "I am furious" {
			t.Errorf("inputs = %v", req["inputs"])
		}
		w.Write([]byte(`[[{"label":"anger","score":0.91},{"label":"Neutral","score":0.09},{"label":"joy"}]]`))
	}))
	defer ts.Close()

	scores, err := NewInference(ts.URL, "secret", 5*time.Second).Classify(context.Background(), "I am furious")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if scores[emotion.Anger] != 0.91 || scores[emotion.Neutral] != 0.09 {
		t.Errorf("scores = %v", scores)
	}
	if _, ok := scores[emotion.Joy]; ok {
		t.Error("label without score should be skipped")
	}
}

func TestInferenceFlatAndClamped(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"label":"joy","score":1.3},{"label":"fear","score":-0.2}]`))
	}))
	defer ts.Close()

	scores, err := NewInference(ts.URL, "", time.Second).Classify(context.Background(), "x")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if scores[emotion.Joy] != 1 || scores[emotion.Fear] != 0 {
		t.Errorf("scores = %v, want clamped", scores)
	}
}

func TestInferenceHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	if _, err := NewInference(ts.URL, "", time.Second).Classify(context.Background(), "x"); err == nil {
		t.Error("expected error for 503")
	}
}

func TestOllamaClassify(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"response": `{"anger": 0.2, "joy": 0.8}`,
		})
	}))
	defer ts.Close()

	c := NewLLM(NewOllama(ts.URL, "llama3.2", time.Second))
	scores, err := c.Classify(context.Background(), "great stuff")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if scores[emotion.Joy] != 0.8 || scores[emotion.Anger] != 0.2 {
		t.Errorf("scores = %v", scores)
	}
}

func TestAnthropicClassify(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "k" {
			t.Errorf("x-api-key = %q", r.Header.Get("x-api-key"))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"text": "Here you go:\n```json\n{\"sadness\": 0.6}\n```"}},
		})
	}))
	defer ts.Close()

	a := NewAnthropic("k", "model", time.Second)
	a.endpoint = ts.URL
	scores, err := NewLLM(a).Classify(context.Background(), "I miss the old version")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if scores[emotion.Sadness] != 0.6 {
		t.Errorf("scores = %v", scores)
	}
}

func TestParseScoreObjectNoJSON(t *testing.T) {
	if _, err := parseScoreObject("I cannot help with that"); err == nil {
		t.Error("expected error for reply without JSON")
	}
}

func TestEmotionPromptListsVocabulary(t *testing.T) {
	p := EmotionPrompt("hello")
	for _, label := range emotion.Vocabulary {
		if !strings.Contains(p, label) {
			t.Errorf("prompt missing label %q", label)
		}
	}
}

func TestLexicon(t *testing.T) {
	l := NewLexicon()
	ctx := context.Background()

	scores, _ := l.Classify(ctx, "The order arrived on Tuesday.")
	if len(scores) != 1 || scores[emotion.Neutral] != 1 {
		t.Errorf("no cues: scores = %v, want neutral", scores)
	}

	scores, _ = l.Classify(ctx, "This is ridiculous, I'm furious and worried")
	if scores.Dominant() != emotion.Anger {
		t.Errorf("dominant = %q, want anger (scores %v)", scores.Dominant(), scores)
	}
	if err := scores.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLexiconCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewLexicon().Classify(ctx, "happy"); err == nil {
		t.Error("expected context error")
	}
}

func TestMockClassifier(t *testing.T) {
	mock := &MockClassifier{Err: errors.New("boom")}
	if _, err := mock.Classify(context.Background(), "x"); err == nil {
		t.Error("expected configured error")
	}
	if len(mock.Calls) != 1 || mock.Calls[0] != "x" {
		t.Errorf("Calls = %v", mock.Calls)
	}
}
