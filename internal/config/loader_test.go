package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFileParsesWhitelistedKeys(t *testing.T) {
	path := writeConfig(t, `
# comment line
MODEL = gpt-4o
MAX_ITERATIONS=5

NOT_A_REAL_KEY=ignored
malformed line without equals
QUALITY_TOLERANCE=0.5
`)

	m, err := LoadFile(path)

	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", m["MODEL"])
	assert.Equal(t, "5", m["MAX_ITERATIONS"])
	assert.Equal(t, "0.5", m["QUALITY_TOLERANCE"])
	assert.NotContains(t, m, "NOT_A_REAL_KEY")
	assert.Len(t, m, 3)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent"))

	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, 10, cfg.MaxIterations)
	assert.Equal(t, 3, cfg.MaxCallAttempts)
	assert.Equal(t, 30, cfg.RequestsPerMinute)
	assert.InDelta(t, 1.0, cfg.QualityTolerance, 0.001)
	assert.Equal(t, 30, cfg.AnalysisTimeout)
	assert.Equal(t, 120, cfg.TestTimeout)
	assert.Equal(t, ".refactor-loop", cfg.StateDir)
	assert.True(t, cfg.EnableBackups)
	assert.False(t, cfg.Verbose)
}

func TestInterval(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.Equal(t, 2*time.Second, cfg.Interval())

	cfg.RequestsPerMinute = 60
	assert.Equal(t, time.Second, cfg.Interval())

	cfg.RequestsPerMinute = 0
	assert.Equal(t, time.Second, cfg.Interval(), "non-positive rate falls back to one second")
}

func TestApplyMapToConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	ApplyMapToConfig(cfg, map[string]string{
		"MODEL":             "gpt-4o",
		"MAX_ITERATIONS":    "7",
		"QUALITY_TOLERANCE": "0.25",
		"ENABLE_BACKUPS":    "no",
		"VERBOSE":           "yes",
		"ANALYSIS_TIMEOUT":  "not-a-number",
	})

	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, 7, cfg.MaxIterations)
	assert.InDelta(t, 0.25, cfg.QualityTolerance, 0.001)
	assert.False(t, cfg.EnableBackups)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, 30, cfg.AnalysisTimeout, "unparseable value preserves previous")
}

func TestLoadWithPrecedence(t *testing.T) {
	global := writeConfig(t, "MODEL=global-model\nMAX_ITERATIONS=3\n")
	project := writeConfig(t, "MODEL=project-model\n")

	cfg, err := LoadWithPrecedence(global, project, "", map[string]string{
		"MAX_ITERATIONS": "8",
	})

	require.NoError(t, err)
	assert.Equal(t, "project-model", cfg.Model, "project file overrides global")
	assert.Equal(t, 8, cfg.MaxIterations, "CLI override wins over files")
	assert.Equal(t, ".refactor-loop", cfg.StateDir, "untouched fields keep defaults")
}

func TestLoadWithPrecedenceMissingFiles(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent")

	cfg, err := LoadWithPrecedence(missing, missing, "", nil)
	require.NoError(t, err, "missing global/project configs are skipped")
	assert.Equal(t, "gpt-4o-mini", cfg.Model)

	_, err = LoadWithPrecedence("", "", missing, nil)
	assert.Error(t, err, "missing explicit config is fatal")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"empty model", func(c *Config) { c.Model = "" }, "MODEL"},
		{"zero iterations", func(c *Config) { c.MaxIterations = 0 }, "MAX_ITERATIONS"},
		{"zero attempts", func(c *Config) { c.MaxCallAttempts = 0 }, "MAX_CALL_ATTEMPTS"},
		{"zero rate", func(c *Config) { c.RequestsPerMinute = 0 }, "REQUESTS_PER_MINUTE"},
		{"negative tolerance", func(c *Config) { c.QualityTolerance = -0.5 }, "QUALITY_TOLERANCE"},
		{"zero timeout", func(c *Config) { c.TestTimeout = 0 }, "timeouts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
