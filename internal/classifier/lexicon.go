package classifier

import (
	"context"
	"strings"
	"unicode"

	"github.com/lazypower/retention/internal/emotion"
)

// lexicon maps cue words to the emotion they signal.
var lexicon = map[string][]string{
	emotion.Anger: {
		"angry", "furious", "annoyed", "annoying", "mad", "hate", "ridiculous",
		"unacceptable", "outraged", "irritated", "fed", "worst", "useless",
	},
	emotion.Disgust: {
		"disgusting", "gross", "awful", "terrible", "horrible", "nasty", "sick",
		"pathetic", "garbage", "trash",
	},
	emotion.Fear: {
		"afraid", "scared", "worried", "worry", "anxious", "nervous", "panic",
		"terrified", "concerned", "risk", "lose",
	},
	emotion.Joy: {
		"happy", "great", "love", "awesome", "thanks", "thank", "excellent",
		"glad", "amazing", "perfect", "wonderful", "enjoy", "pleased",
	},
	emotion.Sadness: {
		"sad", "disappointed", "disappointing", "unhappy", "sorry", "miss",
		"lonely", "depressed", "regret", "upset", "cancel", "leaving",
	},
	emotion.Surprise: {
		"surprised", "unexpected", "wow", "shocked", "suddenly", "whoa",
		"unbelievable", "astonished",
	},
}

// Lexicon is an offline keyword classifier. It needs no network and is the
// default when no model endpoint is configured.
type Lexicon struct {
	cues map[string]string // word → label
}

// NewLexicon builds the keyword index.
func NewLexicon() *Lexicon {
	cues := make(map[string]string)
	for label, words := range lexicon {
		for _, w := range words {
			cues[w] = label
		}
	}
	return &Lexicon{cues: cues}
}

// Classify scores each label by its share of matched cue words.
// Text with no cues is neutral.
func (l *Lexicon) Classify(ctx context.Context, text string) (emotion.Scores, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})

	hits := make(map[string]int)
	total := 0
	for _, w := range words {
		if label, ok := l.cues[w]; ok {
			hits[label]++
			total++
		}
	}
	if total == 0 {
		return emotion.NeutralScores(), nil
	}

	scores := make(emotion.Scores, len(hits))
	for label, n := range hits {
		scores[label] = float64(n) / float64(total)
	}
	return scores, nil
}
