package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/CodexForgeBR/refactor-loop/internal/journal"
	"github.com/CodexForgeBR/refactor-loop/internal/logging"
	"github.com/CodexForgeBR/refactor-loop/internal/parser"
	"github.com/CodexForgeBR/refactor-loop/internal/prompt"
	"github.com/CodexForgeBR/refactor-loop/internal/sandbox"
	"github.com/CodexForgeBR/refactor-loop/internal/session"
	"github.com/CodexForgeBR/refactor-loop/internal/tools"
)

// Fixer rewrites files to resolve audited issues. Every candidate rewrite
// passes a syntax gate before it touches the tree, and the original is
// kept as a .orig backup when backups are enabled.
type Fixer struct {
	caller
	root          string
	backups       bool
	syntaxTimeout time.Duration

	checkSyntax func(ctx context.Context, code string, timeout time.Duration) error
}

// NewFixer builds a fixer over the target tree at cfg.Root.
func NewFixer(cfg Config, backups bool, syntaxTimeout time.Duration) *Fixer {
	return &Fixer{
		caller:        newCaller(cfg),
		root:          cfg.Root,
		backups:       backups,
		syntaxTimeout: syntaxTimeout,
		checkSyntax:   tools.CheckSyntax,
	}
}

// Fix asks the model to rewrite every file named in the report and applies
// the rewrites that survive validation. Candidates that fail extraction or
// the syntax gate land in Failed without touching the tree. Feedback from
// a prior rejected iteration is threaded into each request.
func (f *Fixer) Fix(ctx context.Context, report session.AuditReport, iteration int, feedback string) (session.FixAttempt, error) {
	attempt := session.FixAttempt{
		Iteration: iteration,
		Applied:   map[string]string{},
		Failed:    map[string]string{},
	}

	for _, file := range filesInOrder(report.Issues) {
		source, err := sandbox.ReadFile(file, f.root)
		if err != nil {
			if secErr, ok := err.(*sandbox.SecurityError); ok {
				return attempt, secErr
			}
			attempt.Failed[file] = fmt.Sprintf("unreadable: %v", err)
			continue
		}

		body := prompt.BuildFixRequest(file, source, issuesFor(report.Issues, file), feedback)
		response, err := f.invoke(ctx, "fixer", journal.ActionFix, iteration, prompt.FixerSystem, body)
		if err != nil {
			return attempt, err
		}

		code := parser.ExtractCode(response, "python")
		if code == "" {
			attempt.Failed[file] = "no code block in response"
			continue
		}

		if err := f.checkSyntax(ctx, code, f.syntaxTimeout); err != nil {
			logging.Warn(fmt.Sprintf("Rejecting rewrite of %s: %v", file, err))
			attempt.Failed[file] = err.Error()
			continue
		}

		if f.backups {
			// The backup captures the content before the first rewrite;
			// later iterations must not clobber it.
			if _, err := sandbox.ReadFile(file+".orig", f.root); err != nil {
				if err := sandbox.WriteFile(file+".orig", source, f.root); err != nil {
					return attempt, fmt.Errorf("backup %s: %w", file, err)
				}
			}
		}
		if err := sandbox.WriteFile(file, code, f.root); err != nil {
			return attempt, err
		}
		attempt.Applied[file] = code
	}

	return attempt, nil
}

// filesInOrder returns the distinct files in first-appearance order.
func filesInOrder(issues []session.Issue) []string {
	seen := map[string]bool{}
	var files []string
	for _, issue := range issues {
		if !seen[issue.File] {
			seen[issue.File] = true
			files = append(files, issue.File)
		}
	}
	return files
}

func issuesFor(issues []session.Issue, file string) []session.Issue {
	var out []session.Issue
	for _, issue := range issues {
		if issue.File == file {
			out = append(out, issue)
		}
	}
	return out
}
