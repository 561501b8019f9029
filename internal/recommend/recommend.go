package recommend

import (
	"fmt"

	"github.com/lazypower/retention/internal/emotion"
)

// Code is a discrete retention action.
type Code string

const (
	Escalate Code = "ESCALATE"
	Defuse   Code = "DEFUSE"
	Support  Code = "SUPPORT"
	CheckIn  Code = "CHECKIN"
	Engage   Code = "ENGAGE"
	Observe  Code = "OBSERVE"
)

// Recommendation is the action chosen for one interaction.
type Recommendation struct {
	Message string `json:"message"`
	Code    Code   `json:"code"`
}

var (
	insufficientData = Recommendation{"Insufficient data", Observe}
	escalate         = Recommendation{"Escalate to human support", Escalate}
	defuse           = Recommendation{"De-escalate with empathy", Defuse}
	support          = Recommendation{"Offer emotional reassurance", Support}
	checkIn          = Recommendation{"Proactively check in and offer help", CheckIn}
	engage           = Recommendation{"Reinforce positive interaction", Engage}
	observe          = Recommendation{"Monitor sentiment passively", Observe}
)

// Thresholds are the churn-risk cutoffs for each tier.
// They are configured as a group; DefaultThresholds is the only source of defaults.
type Thresholds struct {
	Escalate float64 `yaml:"escalate" json:"escalate"`
	Defuse   float64 `yaml:"defuse" json:"defuse"`
	CheckIn  float64 `yaml:"checkin" json:"checkin"`
}

// DefaultThresholds returns the standard 0.75 / 0.60 / 0.40 cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Escalate: 0.75,
		Defuse:   0.60,
		CheckIn:  0.40,
	}
}

// Validate requires every cutoff in [0,1] and Escalate ≥ Defuse ≥ CheckIn.
func (t Thresholds) Validate() error {
	for _, c := range []struct {
		name string
		v    float64
	}{{"escalate", t.Escalate}, {"defuse", t.Defuse}, {"checkin", t.CheckIn}} {
		if c.v < 0 || c.v > 1 {
			return fmt.Errorf("%s threshold %v outside [0,1]", c.name, c.v)
		}
	}
	if t.Escalate < t.Defuse || t.Defuse < t.CheckIn {
		return fmt.Errorf("thresholds must descend: escalate %v, defuse %v, checkin %v",
			t.Escalate, t.Defuse, t.CheckIn)
	}
	return nil
}

// Engine evaluates the recommendation table.
type Engine struct {
	thresholds Thresholds
}

// New creates an Engine with the given thresholds.
func New(t Thresholds) (*Engine, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Engine{thresholds: t}, nil
}

// Default creates an Engine with DefaultThresholds.
func Default() *Engine {
	return &Engine{thresholds: DefaultThresholds()}
}

// Thresholds returns the engine's cutoffs.
func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// Recommend picks exactly one action. Rules are evaluated top to bottom and
// the first match wins.
func (e *Engine) Recommend(churnRisk float64, scores emotion.Scores) Recommendation {
	if len(scores) == 0 {
		return insufficientData
	}
	dominant := scores.Dominant()

	if churnRisk >= e.thresholds.Escalate {
		return escalate
	}

	if churnRisk >= e.thresholds.Defuse {
		switch dominant {
		case emotion.Anger, emotion.Disgust:
			return defuse
		case emotion.Fear, emotion.Sadness:
			return support
		}
	}

	if churnRisk >= e.thresholds.CheckIn {
		return checkIn
	}

	if dominant == emotion.Joy {
		return engage
	}
	return observe
}
