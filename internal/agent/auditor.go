package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/CodexForgeBR/refactor-loop/internal/journal"
	"github.com/CodexForgeBR/refactor-loop/internal/logging"
	"github.com/CodexForgeBR/refactor-loop/internal/parser"
	"github.com/CodexForgeBR/refactor-loop/internal/prompt"
	"github.com/CodexForgeBR/refactor-loop/internal/sandbox"
	"github.com/CodexForgeBR/refactor-loop/internal/session"
	"github.com/CodexForgeBR/refactor-loop/internal/tools"
)

// Auditor surveys the target tree and produces the issue report that
// drives the repair loop.
type Auditor struct {
	caller
	root            string
	analysisTimeout time.Duration

	analyze func(ctx context.Context, path string, timeout time.Duration) tools.AnalysisResult
}

// NewAuditor builds an auditor over the target tree at cfg.Root.
func NewAuditor(cfg Config, analysisTimeout time.Duration) *Auditor {
	return &Auditor{
		caller:          newCaller(cfg),
		root:            cfg.Root,
		analysisTimeout: analysisTimeout,
		analyze:         tools.RunStaticAnalysis,
	}
}

// Audit reads every source file under the root and asks the model for an
// issue report. An empty tree yields an empty report without a model
// call. When the model's answer cannot be decoded, the report is
// assembled from static analysis instead and marked Unparsed.
func (a *Auditor) Audit(ctx context.Context) (session.AuditReport, error) {
	paths, err := sandbox.ListSourceFiles(a.root, ".py")
	if err != nil {
		return session.AuditReport{}, err
	}
	if len(paths) == 0 {
		logging.Info("No source files found, nothing to audit")
		return session.AuditReport{}, nil
	}

	canon, err := sandbox.Resolve(".", a.root)
	if err != nil {
		return session.AuditReport{}, err
	}

	files := make([]prompt.SourceFile, 0, len(paths))
	for _, p := range paths {
		content, err := sandbox.ReadFile(p, a.root)
		if err != nil {
			return session.AuditReport{}, err
		}
		rel, err := filepath.Rel(canon, p)
		if err != nil {
			rel = p
		}
		files = append(files, prompt.SourceFile{Path: rel, Content: content})
	}

	response, err := a.invoke(ctx, "auditor", journal.ActionAnalysis, 0,
		prompt.AuditorSystem, prompt.BuildAuditRequest(files))
	if err != nil {
		return session.AuditReport{}, err
	}

	result := parser.ParseObject(response)
	if !result.OK() {
		logging.Warn("Auditor response was not valid JSON, falling back to static analysis")
		return a.fallbackReport(ctx, files), nil
	}

	report, err := decodeReport(result.Object)
	if err != nil {
		logging.Warn(fmt.Sprintf("Auditor report malformed (%v), falling back to static analysis", err))
		return a.fallbackReport(ctx, files), nil
	}

	report.Issues = a.validIssues(report.Issues)
	return report, nil
}

// decodeReport converts the parsed JSON object into a typed report.
func decodeReport(obj map[string]interface{}) (session.AuditReport, error) {
	data, err := json.Marshal(obj)
	if err != nil {
		return session.AuditReport{}, err
	}
	var report session.AuditReport
	if err := json.Unmarshal(data, &report); err != nil {
		return session.AuditReport{}, err
	}
	return report, nil
}

// validIssues drops issues whose file path escapes the root or names a
// file that does not exist. The model occasionally invents paths.
func (a *Auditor) validIssues(issues []session.Issue) []session.Issue {
	kept := issues[:0]
	for _, issue := range issues {
		if issue.File == "" {
			continue
		}
		if _, err := sandbox.ReadFile(issue.File, a.root); err != nil {
			logging.Warn(fmt.Sprintf("Dropping issue against invalid path %q: %v", issue.File, err))
			continue
		}
		kept = append(kept, issue)
	}
	return kept
}

// fallbackReport builds a report from static analysis alone.
func (a *Auditor) fallbackReport(ctx context.Context, files []prompt.SourceFile) session.AuditReport {
	report := session.AuditReport{
		Summary:  "Assembled from static analysis; model output could not be decoded.",
		Unparsed: true,
	}
	for _, f := range files {
		resolved, err := sandbox.Resolve(f.Path, a.root)
		if err != nil {
			continue
		}
		result := a.analyze(ctx, resolved, a.analysisTimeout)
		if result.Err != "" {
			logging.Warn(fmt.Sprintf("Static analysis of %s failed: %s", f.Path, result.Err))
			continue
		}
		for _, finding := range result.Issues {
			report.Issues = append(report.Issues, session.Issue{
				File:        f.Path,
				Line:        finding.Line,
				Category:    finding.Symbol,
				Description: finding.Message,
			})
		}
	}
	return report
}
