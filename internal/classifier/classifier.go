package classifier

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/lazypower/retention/internal/config"
	"github.com/lazypower/retention/internal/emotion"
)

// MaxInputLen is the default number of characters sent to a classifier.
const MaxInputLen = 512

// Classifier scores the emotional content of a piece of text.
// Implementations return an error rather than a fallback; callers decide
// what to substitute.
type Classifier interface {
	Classify(ctx context.Context, text string) (emotion.Scores, error)
}

// NewClassifier creates a classifier based on the config provider setting.
func NewClassifier(cfg config.ClassifierConfig) (Classifier, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxLen := cfg.MaxInputLen
	if maxLen <= 0 {
		maxLen = MaxInputLen
	}

	var c Classifier
	switch cfg.Provider {
	case "inference":
		if cfg.URL == "" {
			return nil, fmt.Errorf("inference provider requires a url")
		}
		c = NewInference(cfg.URL, cfg.APIKey, timeout)
	case "ollama":
		url := cfg.URL
		if url == "" {
			url = "http://localhost:11434"
		}
		model := cfg.Model
		if model == "" || strings.Contains(model, "/") {
			model = "llama3.2"
		}
		c = NewLLM(NewOllama(url, model, timeout))
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider requires ANTHROPIC_API_KEY or config")
		}
		model := cfg.Model
		if model == "" || strings.Contains(model, "/") {
			model = "claude-haiku-4-5-20251001"
		}
		c = NewLLM(NewAnthropic(cfg.APIKey, model, timeout))
	case "lexicon", "":
		c = NewLexicon()
	default:
		return nil, fmt.Errorf("unknown classifier provider: %q", cfg.Provider)
	}
	return &prepared{next: c, maxLen: maxLen}, nil
}

// Prepare normalises text before classification: trims surrounding space,
// collapses newlines to spaces and truncates to maxLen characters.
func Prepare(text string, maxLen int) string {
	text = strings.TrimSpace(text)
	text = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(text)
	if r := []rune(text); maxLen > 0 && len(r) > maxLen {
		text = string(r[:maxLen])
	}
	return text
}

// prepared applies Prepare before delegating.
type prepared struct {
	next   Classifier
	maxLen int
}

func (p *prepared) Classify(ctx context.Context, text string) (emotion.Scores, error) {
	return p.next.Classify(ctx, Prepare(text, p.maxLen))
}

// normalize lower-cases labels, clamps confidences to [0,1] and drops
// blank labels. Duplicate labels keep the highest score.
func normalize(raw map[string]float64) emotion.Scores {
	out := make(emotion.Scores, len(raw))
	for label, score := range raw {
		label = strings.ToLower(strings.TrimSpace(label))
		if label == "" || math.IsNaN(score) {
			continue
		}
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		if prev, ok := out[label]; !ok || score > prev {
			out[label] = score
		}
	}
	return out
}
