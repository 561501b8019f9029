package classifier

import (
	"context"

	"github.com/lazypower/retention/internal/emotion"
)

// MockClassifier is a test double for the Classifier interface.
type MockClassifier struct {
	Scores emotion.Scores
	Err    error
	Calls  []string // records texts sent
}

// Classify records the call and returns the configured scores.
func (m *MockClassifier) Classify(ctx context.Context, text string) (emotion.Scores, error) {
	m.Calls = append(m.Calls, text)
	return m.Scores.Clone(), m.Err
}
