// Package prompt assembles the requests sent to the model. Templates live
// in templates/ and are filled by simple token replacement.
package prompt

import (
	"fmt"
	"strings"

	"github.com/CodexForgeBR/refactor-loop/internal/session"
)

// SourceFile pairs a relative path with its content for the audit request.
type SourceFile struct {
	Path    string
	Content string
}

// BuildAuditRequest constructs the auditor prompt covering every file in
// the target tree.
func BuildAuditRequest(files []SourceFile) string {
	var sb strings.Builder
	for _, f := range files {
		fmt.Fprintf(&sb, "File: %s\n\n```python\n%s\n```\n\n", f.Path, f.Content)
	}
	return strings.ReplaceAll(AuditTemplate, "{{FILES}}", strings.TrimRight(sb.String(), "\n"))
}

// BuildFixRequest constructs the fixer prompt for one file. Feedback from
// a prior rejected attempt is included when non-empty.
func BuildFixRequest(path, source string, issues []session.Issue, feedback string) string {
	var sb strings.Builder
	for _, issue := range issues {
		if issue.Line > 0 {
			fmt.Fprintf(&sb, "- [%s] line %d: %s", issue.Category, issue.Line, issue.Description)
		} else {
			fmt.Fprintf(&sb, "- [%s] %s", issue.Category, issue.Description)
		}
		if issue.Suggestion != "" {
			fmt.Fprintf(&sb, " (suggestion: %s)", issue.Suggestion)
		}
		sb.WriteString("\n")
	}

	p := FixTemplate
	p = strings.ReplaceAll(p, "{{FILE}}", path)
	p = strings.ReplaceAll(p, "{{SOURCE}}", source)
	p = strings.ReplaceAll(p, "{{ISSUES}}", strings.TrimRight(sb.String(), "\n"))

	if feedback != "" {
		section := strings.ReplaceAll(FeedbackSection, "{{FEEDBACK}}", feedback)
		p = strings.ReplaceAll(p, "{{FEEDBACK_SECTION}}", section)
	} else {
		p = strings.ReplaceAll(p, "{{FEEDBACK_SECTION}}", "")
	}
	return p
}

// BuildJudgeRequest constructs the judge prompt from the iteration's
// changed files and measured evidence.
func BuildJudgeRequest(changed []string, tests, failed int, before, after float64) string {
	var sb strings.Builder
	for _, path := range changed {
		fmt.Fprintf(&sb, "- %s\n", path)
	}
	if sb.Len() == 0 {
		sb.WriteString("- (none)\n")
	}

	p := JudgeTemplate
	p = strings.ReplaceAll(p, "{{CHANGES}}", strings.TrimRight(sb.String(), "\n"))
	p = strings.ReplaceAll(p, "{{TESTS_PASSED}}", fmt.Sprintf("%d", tests))
	p = strings.ReplaceAll(p, "{{TESTS_FAILED}}", fmt.Sprintf("%d", failed))
	p = strings.ReplaceAll(p, "{{BEFORE_SCORE}}", fmt.Sprintf("%.2f", before))
	p = strings.ReplaceAll(p, "{{AFTER_SCORE}}", fmt.Sprintf("%.2f", after))
	return p
}
