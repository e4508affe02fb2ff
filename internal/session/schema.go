// Package session defines the data model threaded through a repair run —
// audit reports, fix attempts, verdicts, and the event log — plus JSON
// snapshot persistence so an interrupted run leaves an inspectable trace.
package session

import "time"

// Issue is one problem the auditor identified in a source file.
type Issue struct {
	File        string `json:"file"`
	Line        int    `json:"line,omitempty"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion,omitempty"`
}

// AuditReport is the auditor's findings for the whole target tree.
// Unparsed marks a report assembled from static analysis alone because
// the model's output could not be decoded.
type AuditReport struct {
	Issues   []Issue `json:"issues"`
	Summary  string  `json:"summary,omitempty"`
	Unparsed bool    `json:"unparsed,omitempty"`
}

// IssueCount returns the number of issues in the report.
func (r AuditReport) IssueCount() int {
	return len(r.Issues)
}

// FixAttempt records one iteration's rewrite. Applied maps file path to
// the new content that was written; Failed maps file path to the reason
// a candidate was rejected before writing.
type FixAttempt struct {
	Iteration int               `json:"iteration"`
	Applied   map[string]string `json:"applied,omitempty"`
	Failed    map[string]string `json:"failed,omitempty"`
}

// Valid reports whether the attempt changed at least one file.
func (a FixAttempt) Valid() bool {
	return len(a.Applied) > 0
}

// Decision is the judge's ruling on an iteration.
type Decision string

const (
	DecisionSuccess Decision = "SUCCESS"
	DecisionRetry   Decision = "RETRY"
)

// Verdict is the judge's full assessment of one iteration. Fallback marks
// a verdict whose rationale came from the deterministic policy alone
// because the model's output could not be decoded.
type Verdict struct {
	Decision    Decision `json:"decision"`
	TestsPassed int      `json:"tests_passed"`
	TestsFailed int      `json:"tests_failed"`
	BeforeScore float64  `json:"before_score"`
	AfterScore  float64  `json:"after_score"`
	Rationale   string   `json:"rationale"`
	Fallback    bool     `json:"fallback,omitempty"`
}

// Event is one entry in the session's append-only history.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	Detail    string    `json:"detail"`
}

// Snapshot is the persisted form of a session.
type Snapshot struct {
	TargetDir  string       `json:"target_dir"`
	Model      string       `json:"model"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at,omitempty"`
	Iteration  int          `json:"iteration"`
	Outcome    string       `json:"outcome,omitempty"`
	Report     *AuditReport `json:"report,omitempty"`
	Attempts   []FixAttempt `json:"attempts,omitempty"`
	Verdicts   []Verdict    `json:"verdicts,omitempty"`
	Events     []Event      `json:"events"`
}
