// Package exitcode defines named exit codes for the refactor-loop CLI.
//
// Each code maps a specific termination condition to a numeric value
// recognized by shell scripts and CI pipelines.
package exitcode

// Exit code constants matching the refactor-loop data model.
const (
	Success       = 0   // Judge approved the fixed code (or nothing to fix)
	Error         = 1   // Invalid args, misconfiguration, exhausted model retries
	MaxIterations = 2   // Iteration budget spent without an approving verdict
	Security      = 3   // A file operation escaped the working root
	Quota         = 4   // Daily API quota exhausted
	Interrupted   = 130 // SIGINT/SIGTERM received
)

// Name returns the human-readable name for the given exit code.
// Unknown codes return "unknown".
func Name(code int) string {
	switch code {
	case Success:
		return "Success"
	case Error:
		return "Error"
	case MaxIterations:
		return "MaxIterations"
	case Security:
		return "Security"
	case Quota:
		return "Quota"
	case Interrupted:
		return "Interrupted"
	default:
		return "unknown"
	}
}
