package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/CodexForgeBR/refactor-loop/internal/agent"
	"github.com/CodexForgeBR/refactor-loop/internal/cli"
	"github.com/CodexForgeBR/refactor-loop/internal/config"
	"github.com/CodexForgeBR/refactor-loop/internal/exitcode"
	"github.com/CodexForgeBR/refactor-loop/internal/governor"
	"github.com/CodexForgeBR/refactor-loop/internal/journal"
	"github.com/CodexForgeBR/refactor-loop/internal/llm"
	"github.com/CodexForgeBR/refactor-loop/internal/logging"
	"github.com/CodexForgeBR/refactor-loop/internal/phases"
	sighandler "github.com/CodexForgeBR/refactor-loop/internal/signal"
)

// version vars injected via ldflags at build time
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	rootCmd, code := newRootCommand()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitcode.Error)
	}
	os.Exit(*code)
}

// newRootCommand builds the CLI root command. The returned int receives the
// orchestrator's exit code after a successful Execute.
func newRootCommand() (*cobra.Command, *int) {
	cfg := config.NewDefaultConfig()
	code := new(int)

	rootCmd := &cobra.Command{
		Use:     "refactor-loop <target-dir>",
		Short:   "Automated analyze-fix-judge repair loop for Python codebases",
		Long:    "Refactor Loop audits a Python codebase with a language model, rewrites the flagged files, and keeps iterating until tests pass and quality holds.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			*code, err = run(cmd, cfg, args[0])
			return err
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cli.BindFlags(rootCmd, cfg)
	return rootCmd, code
}

func run(cmd *cobra.Command, cfg *config.Config, target string) (int, error) {
	if err := cli.ValidateTarget(target); err != nil {
		return exitcode.Error, err
	}

	// Assemble config from the precedence chain, using Changed() so only
	// flags the user actually set override file values.
	cliOverrides := cli.BuildCLIOverrides(cmd, cfg)
	finalCfg, err := config.LoadWithPrecedence(globalConfigPath(), ".refactor-loop.conf", cfg.ConfigFile, cliOverrides)
	if err != nil {
		return exitcode.Error, fmt.Errorf("load config: %w", err)
	}
	finalCfg.ConfigFile = cfg.ConfigFile
	finalCfg.TargetDir = target
	cfg = finalCfg

	if err := config.Validate(cfg); err != nil {
		return exitcode.Error, fmt.Errorf("invalid config: %w", err)
	}

	logging.SetVerbose(cfg.Verbose)

	apiKey := os.Getenv("OPENAI_API_KEY")
	client, err := llm.NewClient(apiKey, cfg.Model)
	if err != nil {
		return exitcode.Error, err
	}

	j, err := journal.Open(filepath.Join(cfg.StateDir, "journal.json"))
	if err != nil {
		return exitcode.Error, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sighandler.SetupSignalHandler(ctx, cancel, func() {
		logging.Warn("Received interrupt signal, finishing current step...")
	})

	agentCfg := agent.Config{
		Governor:  governor.New(cfg.Interval(), cfg.MaxCallAttempts),
		Transport: client,
		Journal:   j,
		Model:     cfg.Model,
		Root:      target,
	}

	orch := phases.NewOrchestrator(cfg,
		agent.NewAuditor(agentCfg, cfg.AnalysisTimeoutDuration()),
		agent.NewFixer(agentCfg, cfg.EnableBackups, cfg.AnalysisTimeoutDuration()),
		agent.NewJudge(agentCfg, cfg.QualityTolerance, cfg.AnalysisTimeoutDuration(), cfg.TestTimeoutDuration()),
	)

	return orch.Run(ctx), nil
}

// globalConfigPath returns the user-level config file location, empty when
// the home directory cannot be resolved.
func globalConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "refactor-loop", "config")
}
