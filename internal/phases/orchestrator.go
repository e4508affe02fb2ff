// Package phases runs the repair state machine: audit the tree, then loop
// fix and judge until the judge accepts, the iteration budget runs out, or
// a fatal error stops the run.
package phases

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/CodexForgeBR/refactor-loop/internal/banner"
	"github.com/CodexForgeBR/refactor-loop/internal/config"
	"github.com/CodexForgeBR/refactor-loop/internal/exitcode"
	"github.com/CodexForgeBR/refactor-loop/internal/governor"
	"github.com/CodexForgeBR/refactor-loop/internal/logging"
	"github.com/CodexForgeBR/refactor-loop/internal/sandbox"
	"github.com/CodexForgeBR/refactor-loop/internal/session"
)

// Auditor produces the issue report that seeds the repair loop.
type Auditor interface {
	Audit(ctx context.Context) (session.AuditReport, error)
}

// Fixer applies one iteration of rewrites.
type Fixer interface {
	Fix(ctx context.Context, report session.AuditReport, iteration int, feedback string) (session.FixAttempt, error)
}

// Judge measures the tree and rules on an iteration.
type Judge interface {
	MeasureQuality(ctx context.Context) float64
	Evaluate(ctx context.Context, attempt session.FixAttempt, before float64) (session.Verdict, error)
}

// Orchestrator drives one repair run end to end.
type Orchestrator struct {
	Config  *config.Config
	Auditor Auditor
	Fixer   Fixer
	Judge   Judge

	session   *session.Session
	startTime time.Time
}

// NewOrchestrator creates an orchestrator with the given config and agents.
func NewOrchestrator(cfg *config.Config, auditor Auditor, fixer Fixer, judge Judge) *Orchestrator {
	return &Orchestrator{
		Config:  cfg,
		Auditor: auditor,
		Fixer:   fixer,
		Judge:   judge,
	}
}

// Run executes the repair loop and returns an exit code. The session
// snapshot is saved on every terminal path, including fatal errors.
func (o *Orchestrator) Run(ctx context.Context) int {
	o.startTime = time.Now()
	o.session = session.New(o.Config.TargetDir, o.Config.Model)
	defer o.saveSession()

	banner.PrintStartupBanner(o.Config.TargetDir, o.Config.Model, o.Config.MaxIterations)

	logging.Phase("Auditing target tree")
	report, err := o.Auditor.Audit(ctx)
	if err != nil {
		return o.fatalExit("audit", err)
	}
	o.session.Report = &report
	o.session.RecordEvent("audit", fmt.Sprintf("%d issue(s) found", report.IssueCount()))

	if report.IssueCount() == 0 {
		logging.Success("No issues found, nothing to repair")
		o.session.Finish("success")
		banner.PrintSuccessBanner(0, o.elapsedSecs())
		return exitcode.Success
	}
	logging.Info(fmt.Sprintf("Audit found %d issue(s)", report.IssueCount()))

	return o.iterationLoop(ctx, report)
}

func (o *Orchestrator) iterationLoop(ctx context.Context, report session.AuditReport) int {
	feedback := ""

	for o.session.Iteration < o.Config.MaxIterations {
		if ctx.Err() != nil {
			return o.interrupted()
		}

		o.session.Iteration++
		logging.Phase(fmt.Sprintf("Iteration %d/%d", o.session.Iteration, o.Config.MaxIterations))

		before := o.Judge.MeasureQuality(ctx)

		attempt, err := o.Fixer.Fix(ctx, report, o.session.Iteration, feedback)
		o.session.Attempts = append(o.session.Attempts, attempt)
		if err != nil {
			return o.fatalExit("fix", err)
		}

		if !attempt.Valid() {
			// No file survived validation. The iteration is consumed,
			// but there is nothing for the judge to rule on.
			logging.Warn("No valid rewrite this iteration, retrying")
			feedback = failureFeedback(attempt)
			o.session.RecordEvent("fix", "no valid rewrite")
			o.saveSession()
			continue
		}
		o.session.RecordEvent("fix", fmt.Sprintf("%d file(s) rewritten", len(attempt.Applied)))

		verdict, err := o.Judge.Evaluate(ctx, attempt, before)
		if err != nil {
			return o.fatalExit("judge", err)
		}
		o.session.Verdicts = append(o.session.Verdicts, verdict)
		o.session.RecordEvent("judge", fmt.Sprintf("%s: %s", verdict.Decision, verdict.Rationale))
		o.saveSession()

		if verdict.Decision == session.DecisionSuccess {
			logging.Success(fmt.Sprintf("Judge accepted iteration %d", o.session.Iteration))
			o.session.Finish("success")
			banner.PrintSuccessBanner(o.session.Iteration, o.elapsedSecs())
			return exitcode.Success
		}

		logging.Info(fmt.Sprintf("Judge rejected iteration %d: %s", o.session.Iteration, verdict.Rationale))
		feedback = verdict.Rationale
	}

	logging.Error(fmt.Sprintf("Maximum iterations (%d) reached without acceptance", o.Config.MaxIterations))
	o.session.Finish("max_iterations")
	banner.PrintFailureBanner("maximum iterations reached", o.session.Iteration)
	return exitcode.MaxIterations
}

// fatalExit logs the failure and maps the error to its exit code.
func (o *Orchestrator) fatalExit(phase string, err error) int {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return o.interrupted()
	}

	logging.Error(fmt.Sprintf("Fatal error during %s: %v", phase, err))

	var secErr *sandbox.SecurityError
	var quotaErr *governor.QuotaExceededError
	var limitErr *governor.TransientLimitError
	switch {
	case errors.As(err, &secErr):
		o.session.Finish("security")
		banner.PrintFailureBanner("path containment violation", o.session.Iteration)
		return exitcode.Security
	case errors.As(err, &quotaErr):
		o.session.Finish("quota")
		banner.PrintFailureBanner("API quota exhausted", o.session.Iteration)
		return exitcode.Quota
	case errors.As(err, &limitErr):
		o.session.Finish("error")
		banner.PrintFailureBanner("rate limit retries exhausted", o.session.Iteration)
		return exitcode.Error
	default:
		o.session.Finish("error")
		banner.PrintFailureBanner(err.Error(), o.session.Iteration)
		return exitcode.Error
	}
}

func (o *Orchestrator) interrupted() int {
	logging.Warn("Run interrupted")
	o.session.Finish("interrupted")
	banner.PrintInterruptBanner(o.session.Iteration)
	return exitcode.Interrupted
}

// saveSession persists the snapshot; failure to save is logged, not fatal.
func (o *Orchestrator) saveSession() {
	if o.Config.StateDir == "" {
		return
	}
	path := filepath.Join(o.Config.StateDir, "session.json")
	if err := o.session.Save(path); err != nil {
		logging.Warn(fmt.Sprintf("Failed to save session state: %v", err))
	}
}

func (o *Orchestrator) elapsedSecs() int {
	return int(time.Since(o.startTime).Seconds())
}

// failureFeedback folds the attempt's rejection reasons into feedback for
// the next iteration.
func failureFeedback(attempt session.FixAttempt) string {
	if len(attempt.Failed) == 0 {
		return "the previous attempt produced no usable rewrite"
	}
	var parts []string
	for file, reason := range attempt.Failed {
		parts = append(parts, fmt.Sprintf("%s: %s", file, reason))
	}
	return "the previous attempt was rejected before review: " + strings.Join(parts, "; ")
}
