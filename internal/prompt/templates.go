package prompt

import _ "embed"

// Template files embedded at compile time
var (
	//go:embed templates/audit.txt
	AuditTemplate string

	//go:embed templates/fix.txt
	FixTemplate string

	//go:embed templates/feedback-section.txt
	FeedbackSection string

	//go:embed templates/judge.txt
	JudgeTemplate string
)

// System prompts sent alongside each request.
const (
	AuditorSystem = "You are a meticulous code auditor. You read Python code and report concrete, actionable problems. You respond only with the requested JSON."

	FixerSystem = "You are a careful refactoring engineer. You rewrite Python files to fix reported issues without changing public behavior. You respond only with the requested code block."

	JudgeSystem = "You are a strict code reviewer. You weigh test results and quality scores and deliver a clear verdict. You respond only with the requested JSON."
)
