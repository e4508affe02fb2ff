// Package tools wraps the external quality tooling the judge and auditor
// rely on: static analysis, test execution, and syntax validation. Every
// wrapper is bounded by a timeout and fails soft — a timeout or missing
// binary produces a zero result tagged with an error string instead of an
// error return, so tool trouble flows into the verdict policy rather than
// aborting the run.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"time"
)

// Binary names, overridable in tests.
var (
	analysisBin = "pylint"
	testBin     = "pytest"
	pythonBin   = "python3"
)

// AnalysisIssue is one finding reported by the static analyzer.
type AnalysisIssue struct {
	Path      string `json:"path"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	Symbol    string `json:"symbol"`
	MessageID string `json:"message-id"`
	Message   string `json:"message"`
}

// AnalysisResult is the outcome of one static-analysis run.
// Score is on the analyzer's 0..10 scale. A non-empty Err means the run
// failed soft (timeout, missing binary) and Score/Issues are zero values.
type AnalysisResult struct {
	Score  float64
	Issues []AnalysisIssue
	Err    string
}

// scorePattern matches the analyzer's summary line, e.g.
// "Your code has been rated at 7.50/10".
var scorePattern = regexp.MustCompile(`rated at (-?[\d.]+)/10`)

// RunStaticAnalysis analyzes one file and returns its score and issues.
// The run is bounded by timeout; on timeout or execution failure the result
// carries a zero score, no issues, and an Err tag.
func RunStaticAnalysis(ctx context.Context, path string, timeout time.Duration) AnalysisResult {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, analysisBin, path, "--output-format=json", "--score=y")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return AnalysisResult{Err: fmt.Sprintf("static analysis timed out after %s", timeout)}
	}

	var result AnalysisResult

	// The analyzer exits non-zero whenever it finds issues, so the exit
	// status alone is not a failure signal. A run with no parseable output
	// at all is.
	if stdout.Len() > 0 {
		var issues []AnalysisIssue
		if err := json.Unmarshal(stdout.Bytes(), &issues); err == nil {
			result.Issues = issues
		}
	}

	if score, ok := extractScore(stdout.String() + stderr.String()); ok {
		result.Score = score
	} else if runErr != nil && result.Issues == nil {
		return AnalysisResult{Err: fmt.Sprintf("static analysis failed: %v", runErr)}
	}

	return result
}

// extractScore pulls the 0..10 score out of analyzer output.
func extractScore(output string) (float64, bool) {
	m := scorePattern.FindStringSubmatch(output)
	if m == nil {
		return 0, false
	}
	score, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return score, true
}

// HasSyntaxIssue reports whether any issue is a syntax or fatal finding
// (analyzer message IDs starting with E0 or F).
func (r AnalysisResult) HasSyntaxIssue() bool {
	for _, issue := range r.Issues {
		if issue.MessageID == "" {
			continue
		}
		if issue.MessageID[0] == 'F' || (len(issue.MessageID) >= 2 && issue.MessageID[:2] == "E0") {
			return true
		}
	}
	return false
}
