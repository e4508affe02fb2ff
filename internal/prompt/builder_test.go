package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CodexForgeBR/refactor-loop/internal/session"
)

func TestBuildAuditRequest_IncludesEveryFile(t *testing.T) {
	result := BuildAuditRequest([]SourceFile{
		{Path: "main.py", Content: "x = 1\n"},
		{Path: "util/helpers.py", Content: "def f():\n    pass\n"},
	})

	assert.Contains(t, result, "File: main.py")
	assert.Contains(t, result, "File: util/helpers.py")
	assert.Contains(t, result, "x = 1")
	assert.Contains(t, result, "def f():")
	assert.NotContains(t, result, "{{FILES}}", "all tokens should be replaced")
}

func TestBuildAuditRequest_RequestsJSONShape(t *testing.T) {
	result := BuildAuditRequest([]SourceFile{{Path: "main.py", Content: "x = 1\n"}})

	assert.Contains(t, result, `"issues"`)
	assert.Contains(t, result, `"summary"`)
	assert.Contains(t, result, "single JSON object")
}

func TestBuildFixRequest_IncludesSourceAndIssues(t *testing.T) {
	issues := []session.Issue{
		{File: "main.py", Line: 3, Category: "bug", Description: "off-by-one in range", Suggestion: "use len(items)"},
		{File: "main.py", Category: "style", Description: "missing docstring"},
	}

	result := BuildFixRequest("main.py", "for i in range(len(items)-1):\n", issues, "")

	assert.Contains(t, result, "File: main.py")
	assert.Contains(t, result, "for i in range(len(items)-1):")
	assert.Contains(t, result, "[bug] line 3: off-by-one in range")
	assert.Contains(t, result, "suggestion: use len(items)")
	assert.Contains(t, result, "[style] missing docstring")
	assert.NotContains(t, result, "{{")
}

func TestBuildFixRequest_FeedbackSection(t *testing.T) {
	issues := []session.Issue{{File: "main.py", Category: "bug", Description: "crash"}}

	withFeedback := BuildFixRequest("main.py", "x = 1\n", issues, "tests still fail on empty input")
	without := BuildFixRequest("main.py", "x = 1\n", issues, "")

	assert.Contains(t, withFeedback, "previous attempt")
	assert.Contains(t, withFeedback, "tests still fail on empty input")
	assert.NotContains(t, without, "previous attempt")
	assert.NotContains(t, without, "{{FEEDBACK")
}

func TestBuildJudgeRequest_IncludesEvidence(t *testing.T) {
	result := BuildJudgeRequest([]string{"main.py", "util.py"}, 7, 1, 6.5, 8.25)

	assert.Contains(t, result, "- main.py")
	assert.Contains(t, result, "- util.py")
	assert.Contains(t, result, "7 passed, 1 failed")
	assert.Contains(t, result, "6.50/10")
	assert.Contains(t, result, "8.25/10")
	assert.Contains(t, result, `"decision"`)
	assert.NotContains(t, result, "{{")
}

func TestBuildJudgeRequest_NoChangedFiles(t *testing.T) {
	result := BuildJudgeRequest(nil, 0, 0, 5.0, 5.0)

	assert.Contains(t, result, "- (none)")
}

func TestSystemPromptsAreSingleLine(t *testing.T) {
	for _, sys := range []string{AuditorSystem, FixerSystem, JudgeSystem} {
		assert.NotEmpty(t, sys)
		assert.False(t, strings.Contains(sys, "\n"))
	}
}
