package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lazypower/retention/internal/emotion"
	"github.com/lazypower/retention/internal/memory"
)

// Memory is a durable, session-scoped memory.Store. Rows are append-only;
// reads are windowed to the most recent memory.Window entries.
type Memory struct {
	db        *DB
	sessionID string
}

var _ memory.Store = (*Memory)(nil)

// Memory returns the memory view for one session.
func (db *DB) Memory(sessionID string) *Memory {
	return &Memory{db: db, sessionID: sessionID}
}

// SessionID returns the session this view is scoped to.
func (m *Memory) SessionID() string {
	return m.sessionID
}

// Add appends an entry and records the run on the session, in one transaction.
func (m *Memory) Add(userInput, response string, scores emotion.Scores) error {
	e := memory.NewEntry(userInput, response, scores)
	scoresJSON, err := json.Marshal(e.EmotionScores)
	if err != nil {
		return fmt.Errorf("marshal scores: %w", err)
	}
	now := e.Timestamp.UnixMilli()

	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("begin add memory: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO sessions (session_id, started_at, last_run_at, status, run_count)
		VALUES (?, ?, ?, 'active', 1)
		ON CONFLICT(session_id) DO UPDATE SET last_run_at = excluded.last_run_at, run_count = run_count + 1
	`, m.sessionID, now, now); err != nil {
		tx.Rollback()
		return fmt.Errorf("record session run: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO memory_entries (entry_id, session_id, user_input, ai_response, emotion_scores, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, m.sessionID, e.UserInput, e.AIResponse, string(scoresJSON), now); err != nil {
		tx.Rollback()
		return fmt.Errorf("insert memory entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit memory entry: %w", err)
	}
	return nil
}

// Entries returns up to limit most recent entries, oldest first.
func (m *Memory) Entries(limit int) ([]memory.Entry, error) {
	rows, err := m.db.Query(`
		SELECT entry_id, user_input, ai_response, emotion_scores, created_at
		FROM memory_entries WHERE session_id = ?
		ORDER BY id DESC LIMIT ?
	`, m.sessionID, memory.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("get memory entries: %w", err)
	}
	defer rows.Close()

	var entries []memory.Entry
	for rows.Next() {
		var (
			e          memory.Entry
			scoresJSON string
			createdAt  int64
		)
		if err := rows.Scan(&e.ID, &e.UserInput, &e.AIResponse, &scoresJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan memory entry: %w", err)
		}
		e.EmotionScores = emotion.Scores{}
		if err := json.Unmarshal([]byte(scoresJSON), &e.EmotionScores); err != nil {
			return nil, fmt.Errorf("decode scores for %s: %w", e.ID, err)
		}
		e.Timestamp = time.UnixMilli(createdAt).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Newest-first from the query; callers expect oldest-first.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// Context returns the windowed entries flattened into user/ai messages.
func (m *Memory) Context(limit int) ([]memory.Message, error) {
	entries, err := m.Entries(limit)
	if err != nil {
		return nil, err
	}
	return memory.Flatten(entries), nil
}

// Count returns how many entries are physically stored for the session.
func (m *Memory) Count() (int, error) {
	var count int
	err := m.db.QueryRow(`SELECT COUNT(*) FROM memory_entries WHERE session_id = ?`, m.sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count memory entries: %w", err)
	}
	return count, nil
}

// Prune physically deletes all but the keep most recent entries.
// Returns the number of rows removed.
func (m *Memory) Prune(keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	result, err := m.db.Exec(`
		DELETE FROM memory_entries
		WHERE session_id = ? AND id NOT IN (
			SELECT id FROM memory_entries WHERE session_id = ? ORDER BY id DESC LIMIT ?
		)
	`, m.sessionID, m.sessionID, keep)
	if err != nil {
		return 0, fmt.Errorf("prune memory: %w", err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}
