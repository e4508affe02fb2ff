package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"time"
)

// TestResult is the outcome of one test-suite run. A non-empty Err means
// the suite could not be executed at all; a suite that ran but had no
// tests leaves Passed and Failed at zero with an empty Err.
type TestResult struct {
	Passed int
	Failed int
	Errors int
	Err    string
}

// OK reports whether the suite ran and every test passed.
func (r TestResult) OK() bool {
	return r.Err == "" && r.Failed == 0 && r.Errors == 0
}

// summaryPattern matches counts in the test runner's summary line, e.g.
// "3 passed, 1 failed in 0.12s".
var summaryPattern = regexp.MustCompile(`(\d+) (passed|failed|error)`)

// RunTests runs the test suite rooted at dir and parses the summary line.
// The run is bounded by timeout; on timeout or a missing runner the result
// fails soft with an Err tag.
func RunTests(ctx context.Context, dir string, timeout time.Duration) TestResult {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, testBin, dir, "--tb=no", "-q")
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	runErr := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return TestResult{Err: fmt.Sprintf("test run timed out after %s", timeout)}
	}

	result := parseTestSummary(output.String())
	if runErr != nil && result.Passed == 0 && result.Failed == 0 && result.Errors == 0 {
		// Exit code 5 means "no tests collected", which is not a failure
		// of the run itself.
		if exitErr, ok := runErr.(*exec.ExitError); ok && exitErr.ExitCode() == 5 {
			return result
		}
		return TestResult{Err: fmt.Sprintf("test run failed: %v", runErr)}
	}
	return result
}

func parseTestSummary(output string) TestResult {
	var result TestResult
	for _, m := range summaryPattern.FindAllStringSubmatch(output, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		switch m[2] {
		case "passed":
			result.Passed = n
		case "failed":
			result.Failed = n
		case "error":
			result.Errors = n
		}
	}
	return result
}
