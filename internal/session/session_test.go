package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditReportIssueCount(t *testing.T) {
	assert.Equal(t, 0, AuditReport{}.IssueCount())

	report := AuditReport{Issues: []Issue{
		{File: "a.py", Category: "bug", Description: "off by one"},
		{File: "b.py", Category: "style", Description: "long line"},
	}}
	assert.Equal(t, 2, report.IssueCount())
}

func TestFixAttemptValid(t *testing.T) {
	assert.False(t, FixAttempt{}.Valid())
	assert.False(t, FixAttempt{Failed: map[string]string{"a.py": "syntax"}}.Valid())
	assert.True(t, FixAttempt{Applied: map[string]string{"a.py": "x = 1\n"}}.Valid())
}

func TestRecordEventAppendsInOrder(t *testing.T) {
	s := New("/tmp/target", "gpt-4o-mini")

	s.RecordEvent("audit", "found 2 issues")
	s.RecordEvent("fix", "iteration 1")

	events := s.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "audit", events[0].Kind)
	assert.Equal(t, "fix", events[1].Kind)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestEventsReturnsCopy(t *testing.T) {
	s := New("/tmp/target", "gpt-4o-mini")
	s.RecordEvent("audit", "found 2 issues")

	events := s.Events()
	events[0].Kind = "mutated"

	assert.Equal(t, "audit", s.Events()[0].Kind)
}

func TestFinishSetsOutcome(t *testing.T) {
	s := New("/tmp/target", "gpt-4o-mini")
	assert.Empty(t, s.Outcome())

	s.Finish("success")

	assert.Equal(t, "success", s.Outcome())
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "session.json")

	s := New("/tmp/target", "gpt-4o-mini")
	s.Iteration = 2
	s.Report = &AuditReport{Issues: []Issue{{File: "a.py", Category: "bug", Description: "crash"}}}
	s.Attempts = []FixAttempt{{Iteration: 1, Applied: map[string]string{"a.py": "x = 1\n"}}}
	s.Verdicts = []Verdict{{Decision: DecisionRetry, TestsFailed: 1, Rationale: "tests still failing"}}
	s.RecordEvent("judge", "retry")
	s.Finish("max_iterations")

	require.NoError(t, s.Save(path))

	snap, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/target", snap.TargetDir)
	assert.Equal(t, 2, snap.Iteration)
	assert.Equal(t, "max_iterations", snap.Outcome)
	require.NotNil(t, snap.Report)
	assert.Equal(t, 1, snap.Report.IssueCount())
	require.Len(t, snap.Verdicts, 1)
	assert.Equal(t, DecisionRetry, snap.Verdicts[0].Decision)
	require.Len(t, snap.Events, 1)
	assert.Equal(t, "judge", snap.Events[0].Kind)
	assert.False(t, snap.FinishedAt.IsZero())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))

	assert.ErrorContains(t, err, "failed to read session")
}

func TestSaveLeavesNoStagingFiles(t *testing.T) {
	dir := t.TempDir()
	s := New("/tmp/target", "gpt-4o-mini")

	require.NoError(t, s.Save(filepath.Join(dir, "session.json")))

	entries, err := filepath.Glob(filepath.Join(dir, ".session-*"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}
