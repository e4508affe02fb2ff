package agent

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/CodexForgeBR/refactor-loop/internal/journal"
	"github.com/CodexForgeBR/refactor-loop/internal/logging"
	"github.com/CodexForgeBR/refactor-loop/internal/parser"
	"github.com/CodexForgeBR/refactor-loop/internal/prompt"
	"github.com/CodexForgeBR/refactor-loop/internal/sandbox"
	"github.com/CodexForgeBR/refactor-loop/internal/session"
	"github.com/CodexForgeBR/refactor-loop/internal/tools"
)

// Judge rules on each iteration. The decision is deterministic — measured
// test results and quality scores, not model opinion, decide the verdict.
// The model only supplies the rationale that feeds back into the next fix.
type Judge struct {
	caller
	root            string
	tolerance       float64
	analysisTimeout time.Duration
	testTimeout     time.Duration

	runTests    func(ctx context.Context, dir string, timeout time.Duration) tools.TestResult
	runAnalysis func(ctx context.Context, path string, timeout time.Duration) tools.AnalysisResult
}

// NewJudge builds a judge over the target tree at cfg.Root. tolerance is
// the quality-score drop accepted before an iteration is rejected.
func NewJudge(cfg Config, tolerance float64, analysisTimeout, testTimeout time.Duration) *Judge {
	return &Judge{
		caller:          newCaller(cfg),
		root:            cfg.Root,
		tolerance:       tolerance,
		analysisTimeout: analysisTimeout,
		testTimeout:     testTimeout,
		runTests:        tools.RunTests,
		runAnalysis:     tools.RunStaticAnalysis,
	}
}

// MeasureQuality returns the mean static-analysis score across all source
// files, 0 when there are none or every run failed soft.
func (j *Judge) MeasureQuality(ctx context.Context) float64 {
	paths, err := sandbox.ListSourceFiles(j.root, ".py")
	if err != nil || len(paths) == 0 {
		return 0
	}

	var total float64
	var counted int
	for _, p := range paths {
		result := j.runAnalysis(ctx, p, j.analysisTimeout)
		if result.Err != "" {
			logging.Warn(fmt.Sprintf("Static analysis of %s failed: %s", p, result.Err))
			continue
		}
		total += result.Score
		counted++
	}
	if counted == 0 {
		return 0
	}
	return total / float64(counted)
}

// Evaluate runs the evidence gathering and delivers the verdict for one
// iteration. before is the quality score measured before the fix was
// applied. The decision order is fixed: a test suite that could not run or
// has failures, then a quality regression beyond tolerance, then syntax
// findings in changed files, each forces RETRY; otherwise the iteration is
// a SUCCESS.
func (j *Judge) Evaluate(ctx context.Context, attempt session.FixAttempt, before float64) (session.Verdict, error) {
	testResult := j.runTests(ctx, j.root, j.testTimeout)
	after := j.MeasureQuality(ctx)

	changed := changedFiles(attempt)
	syntaxBroken := ""
	for _, file := range changed {
		resolved, err := sandbox.Resolve(file, j.root)
		if err != nil {
			continue
		}
		if j.runAnalysis(ctx, resolved, j.analysisTimeout).HasSyntaxIssue() {
			syntaxBroken = file
			break
		}
	}

	verdict := session.Verdict{
		TestsPassed: testResult.Passed,
		TestsFailed: testResult.Failed + testResult.Errors,
		BeforeScore: before,
		AfterScore:  after,
	}

	switch {
	case testResult.Err != "":
		// A suite that could not run provides no evidence; treat it the
		// same as failing tests.
		logging.Warn(fmt.Sprintf("Test suite did not run: %s", testResult.Err))
		verdict.Decision = session.DecisionRetry
		verdict.Rationale = fmt.Sprintf("test suite did not run: %s", testResult.Err)
	case verdict.TestsFailed > 0:
		verdict.Decision = session.DecisionRetry
		verdict.Rationale = fmt.Sprintf("%d test(s) failing after the rewrite", verdict.TestsFailed)
	case before-after > j.tolerance:
		verdict.Decision = session.DecisionRetry
		verdict.Rationale = fmt.Sprintf("quality regressed from %.2f to %.2f, beyond the %.2f tolerance", before, after, j.tolerance)
	case syntaxBroken != "":
		verdict.Decision = session.DecisionRetry
		verdict.Rationale = fmt.Sprintf("syntax findings remain in %s", syntaxBroken)
	default:
		verdict.Decision = session.DecisionSuccess
		verdict.Rationale = "tests pass and quality held"
	}

	body := prompt.BuildJudgeRequest(changed, verdict.TestsPassed, verdict.TestsFailed, before, after)
	response, err := j.invoke(ctx, "judge", journal.ActionJudge, attempt.Iteration, prompt.JudgeSystem, body)
	if err != nil {
		return session.Verdict{}, err
	}

	// The model may sharpen the rationale but never overrides the
	// measured decision.
	result := parser.ParseObject(response)
	if !result.OK() {
		verdict.Fallback = true
		return verdict, nil
	}
	if rationale, ok := result.Object["rationale"].(string); ok && rationale != "" {
		verdict.Rationale = rationale
	} else {
		verdict.Fallback = true
	}
	return verdict, nil
}

func changedFiles(attempt session.FixAttempt) []string {
	files := make([]string, 0, len(attempt.Applied))
	for file := range attempt.Applied {
		files = append(files, file)
	}
	sort.Strings(files)
	return files
}
