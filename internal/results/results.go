// Package results keeps a log of completed decisions outside the core
// pipeline: a JSON file on disk and, optionally, a message broker.
package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/lazypower/retention/internal/emotion"
	"github.com/lazypower/retention/internal/recommend"
)

// Record is one completed decision. It never carries conversation history.
type Record struct {
	SessionID      string                   `json:"session_id,omitempty"`
	Input          string                   `json:"input"`
	EmotionScores  emotion.Scores           `json:"emotion_scores"`
	ChurnRisk      float64                  `json:"churn_risk"`
	Recommendation recommend.Recommendation `json:"recommendation"`
}

// Sink receives completed decisions.
type Sink interface {
	Save(ctx context.Context, r Record) error
}

// FileLog is an append-only JSON array on disk. Each Save reads the whole
// file, appends, and writes it back.
type FileLog struct {
	path string
	mu   sync.Mutex
}

// NewFileLog creates a FileLog at path. The file is created on first Save.
func NewFileLog(path string) *FileLog {
	return &FileLog{path: path}
}

// Path returns the file location.
func (f *FileLog) Path() string {
	return f.path
}

// Save appends r to the log.
func (f *FileLog) Save(ctx context.Context, r Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.load()
	if err != nil {
		log.Printf("results: %v; starting a new log", err)
		records = nil
	}
	records = append(records, r)

	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("create results dir: %w", err)
	}
	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	// Write to a temp file and rename so a failed write leaves the old log intact.
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace results: %w", err)
	}
	return nil
}

// Load returns every record in the log. A missing file is an empty log.
func (f *FileLog) Load() ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load()
}

func (f *FileLog) load() ([]Record, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode results %s: %w", f.path, err)
	}
	return records, nil
}

// Multi fans a record out to several sinks. Every sink is attempted; the
// joined error reports each failure.
type Multi []Sink

// Save calls Save on every sink.
func (m Multi) Save(ctx context.Context, r Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Save(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
