package memory

import (
	"github.com/lazypower/retention/internal/emotion"
)

// Buffer is an in-process Store that physically keeps at most Capacity
// entries, dropping the oldest on overflow. It is owned by a single session
// and is not safe for concurrent use.
type Buffer struct {
	entries  []Entry
	capacity int
}

// NewBuffer creates a Buffer. Capacities below Window are raised to Window
// so reads always see a full window.
func NewBuffer(capacity int) *Buffer {
	if capacity < Window {
		capacity = Window
	}
	return &Buffer{capacity: capacity}
}

// Add appends a new entry.
func (b *Buffer) Add(userInput, response string, scores emotion.Scores) error {
	b.entries = append(b.entries, NewEntry(userInput, response, scores))
	if over := len(b.entries) - b.capacity; over > 0 {
		// Copy into a fresh slice so the dropped entries can be collected.
		b.entries = append([]Entry(nil), b.entries[over:]...)
	}
	return nil
}

// Entries returns up to limit most recent entries, oldest first.
func (b *Buffer) Entries(limit int) ([]Entry, error) {
	return b.window(limit), nil
}

// Context returns the windowed entries flattened into user/ai messages.
func (b *Buffer) Context(limit int) ([]Message, error) {
	return Flatten(b.window(limit)), nil
}

// Len reports how many entries are physically held.
func (b *Buffer) Len() int {
	return len(b.entries)
}

func (b *Buffer) window(limit int) []Entry {
	limit = ClampLimit(limit)
	start := len(b.entries) - limit
	if start < 0 {
		start = 0
	}
	out := make([]Entry, len(b.entries)-start)
	copy(out, b.entries[start:])
	for i := range out {
		out[i].EmotionScores = out[i].EmotionScores.Clone()
	}
	return out
}
