package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Session is one conversational memory owner.
type Session struct {
	ID        int64  `json:"-"`
	SessionID string `json:"session_id"`
	StartedAt int64  `json:"started_at"`
	LastRunAt *int64 `json:"last_run_at,omitempty"`
	EndedAt   *int64 `json:"ended_at,omitempty"`
	Status    string `json:"status"`
	RunCount  int    `json:"run_count"`
}

const sessionColumns = `id, session_id, started_at, last_run_at, ended_at, status, run_count`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var s Session
	if err := row.Scan(&s.ID, &s.SessionID, &s.StartedAt, &s.LastRunAt, &s.EndedAt, &s.Status, &s.RunCount); err != nil {
		return nil, err
	}
	return &s, nil
}

// InitSession creates a session or reactivates an existing one.
func (db *DB) InitSession(sessionID string) (*Session, error) {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO sessions (session_id, started_at, status)
		VALUES (?, ?, 'active')
		ON CONFLICT(session_id) DO UPDATE SET status = 'active', ended_at = NULL
	`, sessionID, now)
	if err != nil {
		return nil, fmt.Errorf("init session: %w", err)
	}
	s, err := db.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("init session: %s not found after insert", sessionID)
	}
	return s, nil
}

// GetSession returns a session by its session_id, or nil if it does not exist.
func (db *DB) GetSession(sessionID string) (*Session, error) {
	s, err := scanSession(db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE session_id = ?`, sessionID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

// EndSession marks a session completed. Ending a completed or unknown
// session is a no-op.
func (db *DB) EndSession(sessionID string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		UPDATE sessions SET status = 'completed', ended_at = COALESCE(ended_at, ?)
		WHERE session_id = ? AND status = 'active'
	`, now, sessionID)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// GetRecentSessions returns the most recent sessions, ordered by started_at DESC.
func (db *DB) GetRecentSessions(limit int) ([]Session, error) {
	rows, err := db.Query(`
		SELECT `+sessionColumns+`
		FROM sessions ORDER BY started_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// ListSessionIDs returns every session id.
func (db *DB) ListSessionIDs() ([]string, error) {
	rows, err := db.Query(`SELECT session_id FROM sessions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
