// Package churn estimates how likely a user is to disengage from the
// emotional signal of their latest message plus a recency-weighted view of
// recent messages.
//
// Algorithm:
//   - base = Σ negative − 0.5 × Σ positive for the current scores (unclamped)
//   - history penalty = decay-weighted mean of the negative sum over the last
//     6 entries, newest weighted 1.0, then 0.9, 0.81, ...
//   - risk = clamp(0.5 × base + 0.5 × penalty, 0, 1), rounded to 4 places
package churn

import (
	"math"
	"strconv"

	"github.com/lazypower/retention/internal/emotion"
)

const (
	// HistoryWindow is how many of the most recent history entries contribute.
	HistoryWindow = 6
	// DecayFactor is the per-step weight multiplier going back in time.
	DecayFactor = 0.9

	positiveWeight = 0.5
	currentWeight  = 0.5
	historyWeight  = 0.5
)

// BaseRisk is the unclamped signal of the current message alone.
func BaseRisk(current emotion.Scores) float64 {
	return current.Sum(emotion.Negative) - positiveWeight*current.Sum(emotion.Positive)
}

// HistoryPenalty is the decay-weighted mean negative signal of history.
// history is ordered oldest first, newest last.
func HistoryPenalty(history []emotion.Scores) float64 {
	if len(history) > HistoryWindow {
		history = history[len(history)-HistoryWindow:]
	}

	var weighted, total float64
	weight := 1.0
	for i := len(history) - 1; i >= 0; i-- {
		weighted += weight * history[i].Sum(emotion.Negative)
		total += weight
		weight *= DecayFactor
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

// Score returns the churn risk in [0,1], rounded to 4 decimal places.
// history is ordered oldest first, newest last; reordering it changes the result.
// Empty current scores count as neutral.
func Score(current emotion.Scores, history []emotion.Scores) float64 {
	current = current.OrNeutral()
	risk := currentWeight*BaseRisk(current) + historyWeight*HistoryPenalty(history)
	risk = math.Max(0, math.Min(1, risk))
	return round4(risk)
}

// round4 rounds the exact stored value to 4 decimal places, half to even.
// 0.59995 is stored just below the midpoint and must round to 0.5999.
func round4(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 4, 64), 64)
	if err != nil {
		return v
	}
	return r
}
