// Package parser turns raw model responses into structured values.
//
// Model output arrives wrapped in incidental formatting noise: markdown
// fences, prose before and after the payload, stray language tags. The
// functions here strip that noise before structural parsing and report the
// outcome as a tagged Result so callers branch on Parsed vs. Unparsed
// instead of catching errors.
package parser

import (
	"encoding/json"
	"strings"
)

// Result is the tagged outcome of parsing a model response.
// When Object is non-nil the response parsed structurally; otherwise Raw
// carries the original text for the caller's degraded path.
type Result struct {
	Object map[string]interface{}
	Raw    string
}

// OK reports whether the response parsed structurally.
func (r Result) OK() bool { return r.Object != nil }

// ParseObject extracts a JSON object from free-form model output.
//
// Strategy:
//  1. Look inside ```json (or bare ```) fenced blocks and parse the first
//     block containing an object.
//  2. Fall back to bracket matching: find the first '{' in the text, walk
//     forward counting nesting depth while respecting string literals
//     (including escaped quotes), and parse the isolated substring.
//
// The result is always tagged: a response with no parseable object yields
// an Unparsed result carrying the raw text, never an error.
func ParseObject(text string) Result {
	unparsed := Result{Raw: text}
	if strings.TrimSpace(text) == "" {
		return unparsed
	}

	for _, candidate := range fencedBlocks(text) {
		if obj := tryObject(candidate); obj != nil {
			return Result{Object: obj, Raw: text}
		}
	}

	start := strings.Index(text, "{")
	if start == -1 {
		return unparsed
	}
	raw := text[start:]
	end, ok := matchBraces(raw)
	if !ok {
		return unparsed
	}
	if obj := tryObject(raw[:end+1]); obj != nil {
		return Result{Object: obj, Raw: text}
	}
	return unparsed
}

// ExtractCode strips markdown fences from a model response that is expected
// to be a complete source file. It prefers a fence tagged with lang, then
// any fence, then returns the trimmed text unchanged.
func ExtractCode(text, lang string) string {
	const fence = "```"

	for _, tag := range []string{fence + lang, fence} {
		idx := strings.Index(text, tag)
		if idx == -1 {
			continue
		}
		body := text[idx+len(tag):]
		// Skip the rest of the fence line (e.g. a language tag on a bare fence).
		if nl := strings.Index(body, "\n"); nl >= 0 {
			body = body[nl+1:]
		}
		if closing := strings.Index(body, fence); closing >= 0 {
			return strings.TrimSpace(body[:closing])
		}
	}

	return strings.TrimSpace(text)
}

// fencedBlocks returns the contents of every ``` fenced block in text,
// ```json blocks first.
func fencedBlocks(text string) []string {
	var tagged, plain []string
	const fence = "```"

	rest := text
	for {
		open := strings.Index(rest, fence)
		if open == -1 {
			break
		}
		body := rest[open+len(fence):]
		isJSON := strings.HasPrefix(body, "json")
		if nl := strings.Index(body, "\n"); nl >= 0 {
			body = body[nl+1:]
		}
		closing := strings.Index(body, fence)
		if closing == -1 {
			break
		}
		block := body[:closing]
		if isJSON {
			tagged = append(tagged, block)
		} else {
			plain = append(plain, block)
		}
		rest = body[closing+len(fence):]
	}

	return append(tagged, plain...)
}

// tryObject parses s as a JSON object, returning nil on failure.
// If s does not itself start with '{', the first complete object inside it
// is tried instead.
func tryObject(s string) map[string]interface{} {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(s), &obj); err == nil {
		return obj
	}

	start := strings.Index(s, "{")
	if start == -1 {
		return nil
	}
	raw := s[start:]
	end, ok := matchBraces(raw)
	if !ok {
		return nil
	}
	if err := json.Unmarshal([]byte(raw[:end+1]), &obj); err != nil {
		return nil
	}
	return obj
}

// matchBraces returns the index of the closing '}' matching the opening '{'
// at position 0, correctly handling string literals (including escaped
// quotes), nested objects, and arrays. Curly-brace depth and square-bracket
// depth are tracked independently so arrays inside objects do not interfere
// with brace matching. Returns (index, true) on success or (0, false) if
// unmatched.
func matchBraces(s string) (int, bool) {
	if len(s) == 0 || s[0] != '{' {
		return 0, false
	}

	braceDepth := 0
	bracketDepth := 0
	inString := false

	for i := 0; i < len(s); {
		ch := s[i]

		if inString {
			if ch == '\\' {
				i += 2
				continue
			}
			if ch == '"' {
				inString = false
			}
			i++
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			braceDepth++
		case '}':
			braceDepth--
			if braceDepth == 0 && bracketDepth == 0 {
				return i, true
			}
		case '[':
			bracketDepth++
		case ']':
			bracketDepth--
		}
		i++
	}

	return 0, false
}
