package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/CodexForgeBR/refactor-loop/internal/logging"
)

// syntaxCheckScript parses stdin as Python source and exits non-zero with
// the parse error on stderr when the source is invalid.
const syntaxCheckScript = `import ast, sys
try:
    ast.parse(sys.stdin.read())
except SyntaxError as e:
    print(e, file=sys.stderr)
    sys.exit(1)
`

// CheckSyntax validates code as parseable Python source. It returns nil
// for valid code and an error describing the parse failure otherwise.
// When the interpreter is unavailable or the check times out, the code is
// treated as valid: syntax gating is an optimization, not a guarantee.
func CheckSyntax(ctx context.Context, code string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, pythonBin, "-c", syntaxCheckScript)
	cmd.Stdin = strings.NewReader(code)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if ctx.Err() == context.DeadlineExceeded {
		logging.Debug(fmt.Sprintf("Syntax gate skipped: check timed out after %s", timeout))
		return nil
	}
	if _, ok := err.(*exec.ExitError); !ok {
		// Interpreter missing; skip the gate.
		logging.Debug(fmt.Sprintf("Syntax gate skipped: %v", err))
		return nil
	}
	msg := strings.TrimSpace(stderr.String())
	if msg == "" {
		msg = "invalid syntax"
	}
	return fmt.Errorf("syntax check: %s", msg)
}
