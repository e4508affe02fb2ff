package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObjectFromFencedBlock(t *testing.T) {
	text := "Here is my analysis:\n```json\n{\"decision\": \"RETRY\", \"rationale\": \"tests fail\"}\n```\nDone."

	result := ParseObject(text)
	require.True(t, result.OK())
	assert.Equal(t, "RETRY", result.Object["decision"])
	assert.Equal(t, "tests fail", result.Object["rationale"])
}

func TestParseObjectFromBareFence(t *testing.T) {
	text := "```\n{\"score\": 7.5}\n```"

	result := ParseObject(text)
	require.True(t, result.OK())
	assert.Equal(t, 7.5, result.Object["score"])
}

func TestParseObjectFromProse(t *testing.T) {
	text := `After reviewing the file I concluded the following: {"issues": [{"line": 3, "severity": "major"}], "plan": ["remove dead code"]} which covers everything.`

	result := ParseObject(text)
	require.True(t, result.OK())

	issues, ok := result.Object["issues"].([]interface{})
	require.True(t, ok)
	assert.Len(t, issues, 1)
}

func TestParseObjectHandlesNestedBracesAndStrings(t *testing.T) {
	text := `{"plan": ["fix {placeholder} usage", "escape \"quotes\""], "nested": {"depth": {"more": 2}}}`

	result := ParseObject(text)
	require.True(t, result.OK())
	assert.Contains(t, result.Object, "nested")
}

func TestParseObjectUnparsed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"whitespace only", "   \n\t"},
		{"no json at all", "I could not complete the analysis, sorry."},
		{"unterminated object", `{"decision": "RETRY"`},
		{"fence with broken json", "```json\n{\"decision\": \n```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseObject(tt.text)
			assert.False(t, result.OK())
			assert.Equal(t, tt.text, result.Raw)
		})
	}
}

func TestParseObjectPrefersJSONFence(t *testing.T) {
	text := "```python\nprint('hello')\n```\n```json\n{\"decision\": \"SUCCESS\"}\n```"

	result := ParseObject(text)
	require.True(t, result.OK())
	assert.Equal(t, "SUCCESS", result.Object["decision"])
}

func TestParseObjectKeepsRawOnSuccess(t *testing.T) {
	text := `{"a": 1}`
	result := ParseObject(text)
	require.True(t, result.OK())
	assert.Equal(t, text, result.Raw)
}

func TestExtractCode(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{
			name:     "tagged fence",
			text:     "Here is the file:\n```python\ndef main():\n    pass\n```\n",
			expected: "def main():\n    pass",
		},
		{
			name:     "bare fence",
			text:     "```\nx = 1\n```",
			expected: "x = 1",
		},
		{
			name:     "no fence returns trimmed text",
			text:     "\nx = 1\n",
			expected: "x = 1",
		},
		{
			name:     "ignores trailing prose after fence",
			text:     "```python\nx = 1\n```\nLet me know if this helps!",
			expected: "x = 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractCode(tt.text, "python"))
		})
	}
}

func TestMatchBraces(t *testing.T) {
	t.Run("simple object", func(t *testing.T) {
		end, ok := matchBraces(`{"a": 1}`)
		require.True(t, ok)
		assert.Equal(t, 7, end)
	})

	t.Run("brace inside string ignored", func(t *testing.T) {
		s := `{"a": "}"}`
		end, ok := matchBraces(s)
		require.True(t, ok)
		assert.Equal(t, len(s)-1, end)
	})

	t.Run("unmatched", func(t *testing.T) {
		_, ok := matchBraces(`{"a": 1`)
		assert.False(t, ok)
	})

	t.Run("not an object", func(t *testing.T) {
		_, ok := matchBraces(`[1, 2]`)
		assert.False(t, ok)
	})
}
