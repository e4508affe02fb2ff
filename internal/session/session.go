package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Session accumulates the state of one repair run. It is owned by the
// orchestrator goroutine; no internal locking.
type Session struct {
	TargetDir string
	Model     string
	StartedAt time.Time
	Iteration int
	Report    *AuditReport
	Attempts  []FixAttempt
	Verdicts  []Verdict

	outcome    string
	finishedAt time.Time
	events     []Event
}

// New starts a session for the given target tree.
func New(targetDir, model string) *Session {
	return &Session{
		TargetDir: targetDir,
		Model:     model,
		StartedAt: time.Now().UTC(),
	}
}

// RecordEvent appends one entry to the session history.
func (s *Session) RecordEvent(kind, detail string) {
	s.events = append(s.events, Event{
		Timestamp: time.Now().UTC(),
		Kind:      kind,
		Detail:    detail,
	})
}

// Events returns a copy of the event history in append order.
func (s *Session) Events() []Event {
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Finish marks the session complete with a terminal outcome.
func (s *Session) Finish(outcome string) {
	s.outcome = outcome
	s.finishedAt = time.Now().UTC()
}

// Outcome returns the terminal outcome, empty while the run is live.
func (s *Session) Outcome() string {
	return s.outcome
}

// Save writes the session snapshot to path atomically.
func (s *Session) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	snap := Snapshot{
		TargetDir:  s.TargetDir,
		Model:      s.Model,
		StartedAt:  s.StartedAt,
		FinishedAt: s.finishedAt,
		Iteration:  s.Iteration,
		Outcome:    s.outcome,
		Report:     s.Report,
		Attempts:   s.Attempts,
		Verdicts:   s.Verdicts,
		Events:     s.events,
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".session-*")
	if err != nil {
		return fmt.Errorf("failed to stage session: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close session: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set session permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace session: %w", err)
	}
	return nil
}

// Load reads a session snapshot from path.
func Load(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read session: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to parse session: %w", err)
	}
	return snap, nil
}
