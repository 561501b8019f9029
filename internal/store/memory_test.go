package store

import (
	"fmt"
	"testing"

	"github.com/lazypower/retention/internal/emotion"
	"github.com/lazypower/retention/internal/memory"
)

func TestMemoryAdd(t *testing.T) {
	db := testDB(t)
	m := db.Memory("sess-001")

	scores := emotion.Scores{emotion.Anger: 0.9, emotion.Neutral: 0.1}
	if err := m.Add("this is broken again", "Proactively check in and offer help", scores); err != nil {
		t.Fatalf("Add: %v", err)
	}

	entries, err := m.Entries(0)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.ID == "" {
		t.Error("ID is empty")
	}
	if e.UserInput != "this is broken again" {
		t.Errorf("UserInput = %q", e.UserInput)
	}
	if e.EmotionScores[emotion.Anger] != 0.9 {
		t.Errorf("EmotionScores = %v", e.EmotionScores)
	}
	if e.Timestamp.IsZero() {
		t.Error("Timestamp is zero")
	}

	s, _ := db.GetSession("sess-001")
	if s == nil {
		t.Fatal("session not created by Add")
	}
	if s.RunCount != 1 {
		t.Errorf("RunCount = %d, want 1", s.RunCount)
	}
}

func TestMemoryNilScores(t *testing.T) {
	db := testDB(t)
	m := db.Memory("sess-001")
	if err := m.Add("hi", "ok", nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	entries, _ := m.Entries(0)
	if entries[0].EmotionScores == nil || len(entries[0].EmotionScores) != 0 {
		t.Errorf("EmotionScores = %v, want empty mapping", entries[0].EmotionScores)
	}
}

func TestMemoryWindowAfter25(t *testing.T) {
	db := testDB(t)
	m := db.Memory("sess-001")
	for i := 0; i < 25; i++ {
		if err := m.Add(fmt.Sprintf("input-%d", i), fmt.Sprintf("response-%d", i), nil); err != nil {
			t.Fatalf("Add %d: %v", i, err)
		}
	}

	entries, err := m.Entries(0)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != memory.Window {
		t.Fatalf("got %d entries, want %d", len(entries), memory.Window)
	}
	if entries[0].UserInput != "input-5" || entries[19].UserInput != "input-24" {
		t.Errorf("window = %q .. %q, want input-5 .. input-24", entries[0].UserInput, entries[19].UserInput)
	}

	msgs, err := m.Context(0)
	if err != nil {
		t.Fatalf("Context: %v", err)
	}
	if len(msgs) != 40 {
		t.Fatalf("got %d messages, want 40", len(msgs))
	}
	if last := msgs[len(msgs)-1]; last.Role != memory.RoleAI || last.Content != "response-24" {
		t.Errorf("last message = %+v", last)
	}

	// Storage is not truncated by reads
	if n, _ := m.Count(); n != 25 {
		t.Errorf("Count = %d, want 25", n)
	}
}

func TestMemorySessionsIsolated(t *testing.T) {
	db := testDB(t)
	a := db.Memory("a")
	b := db.Memory("b")
	a.Add("from a", "ok", nil)
	b.Add("from b", "ok", nil)
	b.Add("from b again", "ok", nil)

	ea, _ := a.Entries(0)
	eb, _ := b.Entries(0)
	if len(ea) != 1 || ea[0].UserInput != "from a" {
		t.Errorf("session a entries = %+v", ea)
	}
	if len(eb) != 2 {
		t.Errorf("session b has %d entries, want 2", len(eb))
	}
}

func TestMemoryPrune(t *testing.T) {
	db := testDB(t)
	m := db.Memory("sess-001")
	for i := 0; i < 10; i++ {
		m.Add(fmt.Sprintf("input-%d", i), "ok", nil)
	}

	removed, err := m.Prune(3)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 7 {
		t.Errorf("removed = %d, want 7", removed)
	}

	entries, _ := m.Entries(0)
	if len(entries) != 3 || entries[0].UserInput != "input-7" {
		t.Errorf("entries after prune = %+v", entries)
	}
}
