package emotion

import (
	"fmt"
	"math"
	"sort"
)

// Labels produced by the emotion classifier.
const (
	Anger    = "anger"
	Disgust  = "disgust"
	Fear     = "fear"
	Joy      = "joy"
	Sadness  = "sadness"
	Surprise = "surprise"
	Neutral  = "neutral"
)

// Vocabulary is the fixed label set, in alphabetical order.
var Vocabulary = []string{Anger, Disgust, Fear, Joy, Neutral, Sadness, Surprise}

// Negative and Positive partition the vocabulary for churn scoring.
// Neutral is treated as weakly positive.
var (
	Negative = []string{Anger, Sadness, Fear, Disgust}
	Positive = []string{Joy, Surprise, Neutral}
)

// Scores maps an emotion label to a confidence in [0,1].
// Values are not required to sum to 1.
type Scores map[string]float64

// NeutralScores returns the default used when nothing usable was classified.
func NeutralScores() Scores {
	return Scores{Neutral: 1.0}
}

// Clone returns an independent copy. A nil receiver clones to nil.
func (s Scores) Clone() Scores {
	if s == nil {
		return nil
	}
	out := make(Scores, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// OrNeutral returns s, or NeutralScores when s is empty.
func (s Scores) OrNeutral() Scores {
	if len(s) == 0 {
		return NeutralScores()
	}
	return s
}

// Sum adds the confidences of the given labels. Missing labels count as 0.
func (s Scores) Sum(labels []string) float64 {
	var total float64
	for _, l := range labels {
		total += s[l]
	}
	return total
}

// Validate reports the first label whose confidence is not a finite value in [0,1].
func (s Scores) Validate() error {
	for _, label := range s.sortedLabels() {
		v := s[label]
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 1 {
			return fmt.Errorf("score for %q out of range: %v", label, v)
		}
	}
	return nil
}

// Dominant returns the label with the highest confidence.
// Ties resolve to the alphabetically first label so the result does not
// depend on map iteration order. Returns "" for empty scores.
func (s Scores) Dominant() string {
	best := ""
	bestScore := math.Inf(-1)
	for _, label := range s.sortedLabels() {
		if v := s[label]; v > bestScore {
			best, bestScore = label, v
		}
	}
	return best
}

func (s Scores) sortedLabels() []string {
	labels := make([]string, 0, len(s))
	for k := range s {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	return labels
}
