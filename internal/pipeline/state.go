package pipeline

import (
	"fmt"

	"github.com/lazypower/retention/internal/emotion"
	"github.com/lazypower/retention/internal/memory"
	"github.com/lazypower/retention/internal/recommend"
	"github.com/lazypower/retention/internal/results"
)

// State accumulates as it moves through the stages. Each field stays unset
// until the stage that produces it has run. Stages never modify a State in
// place; the With* methods return updated copies.
type State struct {
	Input          string                    `json:"input"`
	EmotionScores  emotion.Scores            `json:"emotion_scores,omitempty"`
	ChurnRisk      *float64                  `json:"churn_risk,omitempty"`
	Recommendation *recommend.Recommendation `json:"recommendation,omitempty"`
	History        []memory.Message          `json:"history,omitempty"`
}

func (s State) withScores(scores emotion.Scores) State {
	s.EmotionScores = scores.Clone()
	return s
}

func (s State) withChurnRisk(risk float64) State {
	s.ChurnRisk = &risk
	return s
}

func (s State) withRecommendation(rec recommend.Recommendation) State {
	s.Recommendation = &rec
	return s
}

func (s State) withHistory(history []memory.Message) State {
	if history == nil {
		history = []memory.Message{}
	}
	s.History = append([]memory.Message(nil), history...)
	return s
}

// Summary renders a one-line explanation of the decision.
func (s State) Summary() string {
	top := s.EmotionScores.Dominant()
	if top == "" {
		top = emotion.Neutral
	}
	risk := 0.0
	if s.ChurnRisk != nil {
		risk = *s.ChurnRisk
	}
	message := "No recommendation available."
	if s.Recommendation != nil {
		message = s.Recommendation.Message
	}
	return fmt.Sprintf("Based on your emotional state (mostly %s) and a churn risk of %.2f, we recommend: %s",
		top, risk, message)
}

// Record converts a completed run into a result-log record. History is
// left out; it is already held by the memory store.
func (s State) Record() results.Record {
	r := results.Record{
		Input:         s.Input,
		EmotionScores: s.EmotionScores.Clone(),
	}
	if s.ChurnRisk != nil {
		r.ChurnRisk = *s.ChurnRisk
	}
	if s.Recommendation != nil {
		r.Recommendation = *s.Recommendation
	}
	return r
}
