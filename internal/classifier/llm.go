package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lazypower/retention/internal/emotion"
)

// Completer is a text-completion backend (Ollama, Anthropic).
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// LLM classifies by prompting a general-purpose model for a JSON object of
// emotion scores.
type LLM struct {
	completer Completer
}

// NewLLM wraps a Completer as a Classifier.
func NewLLM(c Completer) *LLM {
	return &LLM{completer: c}
}

// Classify sends the emotion prompt and parses the first JSON object in the reply.
func (l *LLM) Classify(ctx context.Context, text string) (emotion.Scores, error) {
	out, err := l.completer.Complete(ctx, EmotionPrompt(text))
	if err != nil {
		return nil, err
	}
	return parseScoreObject(out)
}

// EmotionPrompt asks for a confidence per label in the fixed vocabulary.
func EmotionPrompt(text string) string {
	return fmt.Sprintf(`You are an emotion classifier. Rate how strongly the message below expresses each emotion.

MESSAGE:
%s

Labels: %s

Rules:
- Every value is a confidence between 0.0 and 1.0
- Values do not need to sum to 1
- Include every label
- Return ONLY a JSON object, no other text

Example:
{"anger": 0.1, "disgust": 0.0, "fear": 0.0, "joy": 0.7, "neutral": 0.2, "sadness": 0.0, "surprise": 0.1}`,
		text, strings.Join(emotion.Vocabulary, ", "))
}

// parseScoreObject extracts the outermost {...} from a model reply, which
// may be wrapped in prose or a code fence.
func parseScoreObject(reply string) (emotion.Scores, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in reply: %q", truncate(reply, 80))
	}

	var raw map[string]float64
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("decode scores: %w", err)
	}
	return normalize(raw), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
