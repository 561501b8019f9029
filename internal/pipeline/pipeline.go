package pipeline

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/lazypower/retention/internal/churn"
	"github.com/lazypower/retention/internal/classifier"
	"github.com/lazypower/retention/internal/emotion"
	"github.com/lazypower/retention/internal/memory"
	"github.com/lazypower/retention/internal/recommend"
)

// Stage names, in execution order.
const (
	StageClassify  = "classify"
	StageScore     = "score_churn"
	StageRecommend = "recommend"
	StagePersist   = "persist_to_memory"
)

type stage struct {
	name string
	run  func(ctx context.Context, s State) (State, error)
}

// Pipeline turns one message into a retention decision:
// classify → score_churn → recommend → persist_to_memory.
// A Pipeline owns its memory store and must not run concurrently with itself.
type Pipeline struct {
	classifier  classifier.Classifier
	memory      memory.Store
	recommender *recommend.Engine
	stages      []stage
}

// New creates a Pipeline. A nil recommender uses the default thresholds.
func New(c classifier.Classifier, m memory.Store, r *recommend.Engine) *Pipeline {
	if r == nil {
		r = recommend.Default()
	}
	p := &Pipeline{
		classifier:  c,
		memory:      m,
		recommender: r,
	}
	p.stages = []stage{
		{StageClassify, p.classify},
		{StageScore, p.scoreChurn},
		{StageRecommend, p.recommend},
		{StagePersist, p.persist},
	}
	return p
}

// Stages returns the stage names in execution order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, st := range p.stages {
		names[i] = st.name
	}
	return names
}

// Run executes every stage in order. Invalid input or state aborts the run
// with a *StageError and no partial state; classifier and memory failures are
// absorbed by the stages themselves.
func (p *Pipeline) Run(ctx context.Context, input string) (State, error) {
	state := State{Input: input}
	for _, st := range p.stages {
		next, err := st.run(ctx, state)
		if err != nil {
			log.Printf("pipeline: %s failed: %v", st.name, err)
			return State{}, &StageError{Stage: st.name, Err: err}
		}
		state = next
	}
	return state, nil
}

func (p *Pipeline) classify(ctx context.Context, s State) (State, error) {
	if strings.TrimSpace(s.Input) == "" {
		return s, fmt.Errorf("%w: input is blank", ErrInvalidInput)
	}

	res := p.classifyText(ctx, s.Input)
	if res.fallback != nil {
		log.Printf("classify: %v; using neutral", res.fallback)
	}
	return s.withScores(res.scores), nil
}

// classification is the classifier outcome at the pipeline boundary:
// either usable scores, or the neutral default plus the reason for it.
type classification struct {
	scores   emotion.Scores
	fallback error
}

func (p *Pipeline) classifyText(ctx context.Context, text string) classification {
	scores, err := p.classifier.Classify(ctx, text)
	switch {
	case err != nil:
		return classification{emotion.NeutralScores(), fmt.Errorf("classifier: %w", err)}
	case len(scores) == 0:
		return classification{emotion.NeutralScores(), fmt.Errorf("classifier returned no scores")}
	}
	if err := scores.Validate(); err != nil {
		return classification{emotion.NeutralScores(), fmt.Errorf("classifier: %w", err)}
	}
	return classification{scores: scores}
}

func (p *Pipeline) scoreChurn(ctx context.Context, s State) (State, error) {
	if err := requireScores(s); err != nil {
		return s, err
	}

	// History is advisory: a read failure scores the current message alone.
	entries, err := p.memory.Entries(memory.Window)
	if err != nil {
		log.Printf("score_churn: read history: %v; scoring without history", err)
		entries = nil
	}

	risk := churn.Score(s.EmotionScores, memory.ScoresOf(entries))
	return s.withChurnRisk(risk), nil
}

func (p *Pipeline) recommend(ctx context.Context, s State) (State, error) {
	if s.ChurnRisk == nil {
		return s, fmt.Errorf("%w: churn_risk missing", ErrInvalidState)
	}
	if r := *s.ChurnRisk; math.IsNaN(r) || r < 0 || r > 1 {
		return s, fmt.Errorf("%w: churn_risk %v outside [0,1]", ErrInvalidState, r)
	}
	if err := requireScores(s); err != nil {
		return s, err
	}

	rec := p.recommender.Recommend(*s.ChurnRisk, s.EmotionScores)
	return s.withRecommendation(rec), nil
}

func (p *Pipeline) persist(ctx context.Context, s State) (State, error) {
	input := strings.TrimSpace(s.Input)
	response := ""
	if s.Recommendation != nil {
		response = strings.TrimSpace(s.Recommendation.Message)
	}

	switch {
	case input == "":
		log.Printf("persist_to_memory: no input text to save")
	case response == "":
		log.Printf("persist_to_memory: empty response; skipping save")
	default:
		if err := p.memory.Add(input, response, s.EmotionScores); err != nil {
			log.Printf("persist_to_memory: save: %v", err)
			return s.withHistory(nil), nil
		}
	}

	history, err := p.history()
	if err != nil {
		log.Printf("persist_to_memory: load history: %v", err)
		return s.withHistory(nil), nil
	}
	return s.withHistory(history), nil
}

// history returns the windowed conversation, skipping blank messages.
func (p *Pipeline) history() ([]memory.Message, error) {
	msgs, err := p.memory.Context(memory.Window)
	if err != nil {
		return nil, err
	}
	out := make([]memory.Message, 0, len(msgs))
	for _, m := range msgs {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func requireScores(s State) error {
	if s.EmotionScores == nil {
		return fmt.Errorf("%w: emotion_scores missing", ErrInvalidState)
	}
	if err := s.EmotionScores.Validate(); err != nil {
		return fmt.Errorf("%w: emotion_scores: %v", ErrInvalidState, err)
	}
	return nil
}
