// Package config defines the refactor-loop configuration model and default
// values.
//
// Configuration is assembled from multiple sources with a strict precedence
// chain: built-in defaults < global config file < project config file <
// explicit config file < CLI flag overrides.
package config

import "time"

// WhitelistedVars lists every configuration variable name that may appear
// in config files. Variables not in this list are silently ignored during
// loading.
var WhitelistedVars = [10]string{
	"MODEL",
	"MAX_ITERATIONS",
	"MAX_CALL_ATTEMPTS",
	"REQUESTS_PER_MINUTE",
	"QUALITY_TOLERANCE",
	"ANALYSIS_TIMEOUT",
	"TEST_TIMEOUT",
	"STATE_DIR",
	"ENABLE_BACKUPS",
	"VERBOSE",
}

// Config holds every configuration field for the refactor-loop CLI.
type Config struct {
	// Model selection.
	Model string

	// Iteration and call limits.
	MaxIterations   int
	MaxCallAttempts int

	// Rate limiting.
	RequestsPerMinute int

	// Verdict policy.
	QualityTolerance float64

	// Tool timeouts, in seconds.
	AnalysisTimeout int
	TestTimeout     int

	// State and artifacts.
	StateDir      string
	EnableBackups bool

	// Runtime flags.
	Verbose bool

	// CLI-only flags (not loaded from config files).
	ConfigFile string
	TargetDir  string
}

// NewDefaultConfig returns a Config populated with all built-in default
// values.
func NewDefaultConfig() *Config {
	return &Config{
		Model:             "gpt-4o-mini",
		MaxIterations:     10,
		MaxCallAttempts:   3,
		RequestsPerMinute: 30,
		QualityTolerance:  1.0,
		AnalysisTimeout:   30,
		TestTimeout:       120,
		StateDir:          ".refactor-loop",
		EnableBackups:     true,
	}
}

// Interval returns the minimum spacing between model calls implied by
// RequestsPerMinute.
func (c *Config) Interval() time.Duration {
	if c.RequestsPerMinute <= 0 {
		return time.Second
	}
	return time.Minute / time.Duration(c.RequestsPerMinute)
}

// AnalysisTimeoutDuration returns the static-analysis timeout as a Duration.
func (c *Config) AnalysisTimeoutDuration() time.Duration {
	return time.Duration(c.AnalysisTimeout) * time.Second
}

// TestTimeoutDuration returns the test-run timeout as a Duration.
func (c *Config) TestTimeoutDuration() time.Duration {
	return time.Duration(c.TestTimeout) * time.Second
}
