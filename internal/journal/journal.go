// Package journal keeps the append-only record of every model interaction.
// Each agent call — analysis, fix, judge — lands in the journal with its
// full prompt and response, so a run can be audited after the fact.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Action identifies which agent produced a record.
type Action string

const (
	ActionAnalysis Action = "ANALYSIS"
	ActionFix      Action = "FIX"
	ActionJudge    Action = "JUDGE"
)

// Record is one model interaction. Prompt is mandatory; Response may be
// empty only for a failed exchange, in which case Details carries the
// error. A record with neither is rejected at append time.
type Record struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Agent     string    `json:"agent"`
	Action    Action    `json:"action"`
	Iteration int       `json:"iteration"`
	Model     string    `json:"model"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	Details   string    `json:"details,omitempty"`
}

// Journal is a file-backed append-only log. Appends are serialized; the
// file is rewritten whole on each append so a crash never leaves it
// half-written beyond the previous state.
type Journal struct {
	mu      sync.Mutex
	path    string
	records []Record
}

type journalFile struct {
	Records []Record `json:"records"`
}

// Open loads the journal at path, creating its directory if needed.
// A missing file starts an empty journal; a corrupt file is an error.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	j := &Journal{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return j, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	var file journalFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse journal: %w", err)
	}
	j.records = file.Records
	return j, nil
}

// Append validates and persists one record. The ID and timestamp are
// assigned here; callers supply everything else.
func (j *Journal) Append(rec Record) error {
	if rec.Prompt == "" {
		return fmt.Errorf("journal record missing prompt")
	}
	if rec.Response == "" && rec.Details == "" {
		return fmt.Errorf("journal record missing response")
	}

	rec.ID = uuid.NewString()
	rec.Timestamp = time.Now().UTC()

	j.mu.Lock()
	defer j.mu.Unlock()

	j.records = append(j.records, rec)
	if err := j.flush(); err != nil {
		j.records = j.records[:len(j.records)-1]
		return err
	}
	return nil
}

// Records returns a copy of all records in append order.
func (j *Journal) Records() []Record {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]Record, len(j.records))
	copy(out, j.records)
	return out
}

// Len returns the number of records.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.records)
}

func (j *Journal) flush() error {
	data, err := json.MarshalIndent(journalFile{Records: j.records}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal journal: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(j.path), ".journal-*")
	if err != nil {
		return fmt.Errorf("failed to stage journal: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write journal: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close journal: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set journal permissions: %w", err)
	}
	if err := os.Rename(tmpName, j.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace journal: %w", err)
	}
	return nil
}
