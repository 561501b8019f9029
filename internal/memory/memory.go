package memory

import (
	"time"

	"github.com/google/uuid"
	"github.com/lazypower/retention/internal/emotion"
)

// Window is the maximum number of entries any read returns.
const Window = 20

// Message roles produced by Context.
const (
	RoleUser = "user"
	RoleAI   = "ai"
)

// Entry is one stored interaction. Entries are never mutated after creation.
type Entry struct {
	ID            string         `json:"id"`
	Timestamp     time.Time      `json:"timestamp"`
	UserInput     string         `json:"input"`
	AIResponse    string         `json:"response"`
	EmotionScores emotion.Scores `json:"emotion_scores"`
}

// Message is a role-tagged line of conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Store is a conversational memory: append-only, read through a window of
// the most recent entries, oldest first.
type Store interface {
	Add(userInput, response string, scores emotion.Scores) error
	Context(limit int) ([]Message, error)
	Entries(limit int) ([]Entry, error)
}

// NewEntry builds an entry with a fresh id and the current UTC time.
// nil scores become an empty mapping.
func NewEntry(userInput, response string, scores emotion.Scores) Entry {
	if scores == nil {
		scores = emotion.Scores{}
	}
	return Entry{
		ID:            uuid.NewString(),
		Timestamp:     time.Now().UTC(),
		UserInput:     userInput,
		AIResponse:    response,
		EmotionScores: scores.Clone(),
	}
}

// ClampLimit maps a requested limit onto (0, Window].
func ClampLimit(limit int) int {
	if limit <= 0 || limit > Window {
		return Window
	}
	return limit
}

// Flatten turns entries into alternating user/ai messages, preserving order.
func Flatten(entries []Entry) []Message {
	msgs := make([]Message, 0, 2*len(entries))
	for _, e := range entries {
		msgs = append(msgs,
			Message{Role: RoleUser, Content: e.UserInput},
			Message{Role: RoleAI, Content: e.AIResponse},
		)
	}
	return msgs
}

// ScoresOf extracts emotion scores from entries, preserving order.
func ScoresOf(entries []Entry) []emotion.Scores {
	out := make([]emotion.Scores, len(entries))
	for i, e := range entries {
		out[i] = e.EmotionScores
	}
	return out
}
