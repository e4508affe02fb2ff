// Package cli provides flag binding and validation for the refactor-loop CLI.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/CodexForgeBR/refactor-loop/internal/config"
)

// BindFlags registers all CLI flags on the given cobra command.
// The flags directly modify fields in the provided config pointer.
// Call ValidateFlags after parsing to check flag values.
func BindFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	// Model selection
	flags.StringVar(&cfg.Model, "model", cfg.Model, "Model used for audit, fix, and judge calls")

	// Iteration and call limits
	flags.IntVar(&cfg.MaxIterations, "max-iterations", cfg.MaxIterations, "Maximum repair iterations")
	flags.IntVar(&cfg.MaxCallAttempts, "max-call-attempts", cfg.MaxCallAttempts, "Attempts per model call before giving up")

	// Rate limiting
	flags.IntVar(&cfg.RequestsPerMinute, "requests-per-minute", cfg.RequestsPerMinute, "Maximum model calls per minute")

	// Verdict policy
	flags.Float64Var(&cfg.QualityTolerance, "quality-tolerance", cfg.QualityTolerance, "Accepted quality-score drop before an iteration is rejected")

	// Tool timeouts
	flags.IntVar(&cfg.AnalysisTimeout, "analysis-timeout", cfg.AnalysisTimeout, "Static analysis timeout in seconds")
	flags.IntVar(&cfg.TestTimeout, "test-timeout", cfg.TestTimeout, "Test run timeout in seconds")

	// State and artifacts
	flags.StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "Directory for session state and the interaction journal")
	flags.StringVar(&cfg.ConfigFile, "config", "", "Path to additional config file")

	// Feature toggles
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Enable debug output")

	// Negation flag, handled via Changed detection in BuildCLIOverrides.
	flags.Bool("no-backups", false, "Skip .orig backups before rewriting files")
}

// BuildCLIOverrides creates a map of CLI flag overrides from the config.
// Uses cmd.Flags().Changed() to only include flags explicitly set by the
// user, ensuring config file values are not accidentally overridden by
// default values.
func BuildCLIOverrides(cmd *cobra.Command, cfg *config.Config) map[string]string {
	overrides := make(map[string]string)

	stringFlags := map[string]struct {
		key string
		val string
	}{
		"model":     {"MODEL", cfg.Model},
		"state-dir": {"STATE_DIR", cfg.StateDir},
	}
	for flag, mapping := range stringFlags {
		if cmd.Flags().Changed(flag) {
			overrides[mapping.key] = mapping.val
		}
	}

	intFlags := map[string]struct {
		key string
		val int
	}{
		"max-iterations":      {"MAX_ITERATIONS", cfg.MaxIterations},
		"max-call-attempts":   {"MAX_CALL_ATTEMPTS", cfg.MaxCallAttempts},
		"requests-per-minute": {"REQUESTS_PER_MINUTE", cfg.RequestsPerMinute},
		"analysis-timeout":    {"ANALYSIS_TIMEOUT", cfg.AnalysisTimeout},
		"test-timeout":        {"TEST_TIMEOUT", cfg.TestTimeout},
	}
	for flag, mapping := range intFlags {
		if cmd.Flags().Changed(flag) {
			overrides[mapping.key] = fmt.Sprintf("%d", mapping.val)
		}
	}

	if cmd.Flags().Changed("quality-tolerance") {
		overrides["QUALITY_TOLERANCE"] = fmt.Sprintf("%g", cfg.QualityTolerance)
	}
	if cmd.Flags().Changed("verbose") {
		if cfg.Verbose {
			overrides["VERBOSE"] = "true"
		} else {
			overrides["VERBOSE"] = "false"
		}
	}
	if cmd.Flags().Changed("no-backups") {
		overrides["ENABLE_BACKUPS"] = "false"
	}

	return overrides
}

// ValidateTarget checks that the positional target argument names an
// existing directory.
func ValidateTarget(target string) error {
	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("target directory %q: %w", target, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("target %q is not a directory", target)
	}
	return nil
}
