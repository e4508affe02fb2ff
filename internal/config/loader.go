package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// whitelistSet is a precomputed lookup table for fast whitelist membership checks.
var whitelistSet map[string]bool

func init() {
	whitelistSet = make(map[string]bool, len(WhitelistedVars))
	for _, v := range WhitelistedVars {
		whitelistSet[v] = true
	}
}

// LoadFile parses a KEY=VALUE config file at the given path.
//
// Lines are processed according to these rules:
//   - Empty lines and lines starting with # are skipped.
//   - Lines without an = sign are skipped.
//   - Leading and trailing whitespace is trimmed from both key and value.
//   - Keys not present in WhitelistedVars are silently ignored.
//
// Returns a map of whitelisted key-value pairs, or an error if the file
// cannot be opened.
func LoadFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	result := make(map[string]string)
	scanner := bufio.NewScanner(f)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Split on first '=' only.
		idx := strings.Index(line, "=")
		if idx < 0 {
			continue
		}

		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])

		// Enforce whitelist.
		if !whitelistSet[key] {
			continue
		}

		result[key] = value
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	return result, nil
}

// LoadWithPrecedence assembles a Config by merging sources in order of
// increasing priority:
//
//  1. Built-in defaults
//  2. Global config file (globalPath)
//  3. Project config file (projectPath)
//  4. Explicit config file (explicitPath)
//  5. CLI overrides (cliOverrides map)
//
// Any path that is empty is silently skipped. A missing global or project
// file is not an error; a missing explicit file is.
func LoadWithPrecedence(globalPath, projectPath, explicitPath string, cliOverrides map[string]string) (*Config, error) {
	cfg := NewDefaultConfig()

	// Layer 2: global config file.
	if globalPath != "" {
		m, err := LoadFile(globalPath)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("global config: %w", err)
			}
		} else {
			ApplyMapToConfig(cfg, m)
		}
	}

	// Layer 3: project config file.
	if projectPath != "" {
		m, err := LoadFile(projectPath)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("project config: %w", err)
			}
		} else {
			ApplyMapToConfig(cfg, m)
		}
	}

	// Layer 4: explicit config file (must exist if specified).
	if explicitPath != "" {
		m, err := LoadFile(explicitPath)
		if err != nil {
			return nil, fmt.Errorf("explicit config: %w", err)
		}
		ApplyMapToConfig(cfg, m)
	}

	// Layer 5: CLI overrides (highest priority).
	if len(cliOverrides) > 0 {
		ApplyMapToConfig(cfg, cliOverrides)
	}

	return cfg, nil
}

// ApplyMapToConfig sets fields on cfg from the key-value pairs in m.
// Keys must use the WhitelistedVars naming convention (e.g., "MODEL").
// Unknown keys are silently ignored. Numeric fields that fail to parse
// are silently ignored (the previous value is preserved).
func ApplyMapToConfig(cfg *Config, m map[string]string) {
	for key, value := range m {
		switch key {
		case "MODEL":
			cfg.Model = value
		case "MAX_ITERATIONS":
			if v, err := strconv.Atoi(value); err == nil {
				cfg.MaxIterations = v
			}
		case "MAX_CALL_ATTEMPTS":
			if v, err := strconv.Atoi(value); err == nil {
				cfg.MaxCallAttempts = v
			}
		case "REQUESTS_PER_MINUTE":
			if v, err := strconv.Atoi(value); err == nil {
				cfg.RequestsPerMinute = v
			}
		case "QUALITY_TOLERANCE":
			if v, err := strconv.ParseFloat(value, 64); err == nil {
				cfg.QualityTolerance = v
			}
		case "ANALYSIS_TIMEOUT":
			if v, err := strconv.Atoi(value); err == nil {
				cfg.AnalysisTimeout = v
			}
		case "TEST_TIMEOUT":
			if v, err := strconv.Atoi(value); err == nil {
				cfg.TestTimeout = v
			}
		case "STATE_DIR":
			cfg.StateDir = value
		case "ENABLE_BACKUPS":
			cfg.EnableBackups = parseBool(value)
		case "VERBOSE":
			cfg.Verbose = parseBool(value)
		}
	}
}

// parseBool interprets common boolean representations.
// "true", "1", "yes" (case-insensitive) return true; everything else
// returns false.
func parseBool(value string) bool {
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// Validate checks that cfg is internally consistent.
func Validate(cfg *Config) error {
	if cfg.Model == "" {
		return fmt.Errorf("MODEL must not be empty")
	}
	if cfg.MaxIterations < 1 {
		return fmt.Errorf("MAX_ITERATIONS must be at least 1, got %d", cfg.MaxIterations)
	}
	if cfg.MaxCallAttempts < 1 {
		return fmt.Errorf("MAX_CALL_ATTEMPTS must be at least 1, got %d", cfg.MaxCallAttempts)
	}
	if cfg.RequestsPerMinute < 1 {
		return fmt.Errorf("REQUESTS_PER_MINUTE must be at least 1, got %d", cfg.RequestsPerMinute)
	}
	if cfg.QualityTolerance < 0 {
		return fmt.Errorf("QUALITY_TOLERANCE must not be negative, got %g", cfg.QualityTolerance)
	}
	if cfg.AnalysisTimeout < 1 || cfg.TestTimeout < 1 {
		return fmt.Errorf("timeouts must be at least 1 second")
	}
	return nil
}
