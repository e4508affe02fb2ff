// Package banner provides colored banner display functions for the
// refactor-loop CLI.
//
// All banner functions write formatted output to stdout with color-coded
// headers and separators. These mark the major state transitions of a
// repair run: startup, success, failure, and interruption.
package banner

import (
	"fmt"

	"github.com/CodexForgeBR/refactor-loop/internal/logging"
	"github.com/fatih/color"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold).SprintFunc()
	successColor = color.New(color.FgGreen, color.Bold).SprintFunc()
	errorColor   = color.New(color.FgRed, color.Bold).SprintFunc()
	warnColor    = color.New(color.FgYellow, color.Bold).SprintFunc()
)

const separator = "═══════════════════════════════════════════════════"

// PrintStartupBanner displays the startup banner with run info.
//
// Example output:
//
//	═══════════════════════════════════════════════════
//	  refactor-loop - Automated Code Repair
//	═══════════════════════════════════════════════════
//	  Target:     ./legacy-project
//	  Model:      gpt-4o-mini
//	  Max iters:  10
//	═══════════════════════════════════════════════════
func PrintStartupBanner(targetDir, model string, maxIterations int) {
	sep := headerColor(separator)
	fmt.Println(sep)
	fmt.Println(headerColor("  refactor-loop - Automated Code Repair"))
	fmt.Println(sep)
	fmt.Printf("  Target:     %s\n", targetDir)
	fmt.Printf("  Model:      %s\n", model)
	fmt.Printf("  Max iters:  %d\n", maxIterations)
	fmt.Println(sep)
}

// PrintSuccessBanner displays the completion banner with run stats.
func PrintSuccessBanner(iterations int, durationSecs int) {
	sep := successColor(separator)
	fmt.Println(sep)
	fmt.Println(successColor("  ✓ Repair complete"))
	fmt.Println(sep)
	fmt.Printf("  Iterations: %d\n", iterations)
	fmt.Printf("  Duration:   %s\n", logging.FormatDuration(durationSecs))
	fmt.Println(sep)
}

// PrintFailureBanner displays the failure banner with the reason.
func PrintFailureBanner(reason string, iterations int) {
	sep := errorColor(separator)
	fmt.Println(sep)
	fmt.Println(errorColor("  ✗ Repair failed"))
	fmt.Println(sep)
	fmt.Printf("  Reason:     %s\n", reason)
	fmt.Printf("  Iterations: %d\n", iterations)
	fmt.Println(sep)
}

// PrintInterruptBanner displays the interruption banner.
func PrintInterruptBanner(iterations int) {
	sep := warnColor(separator)
	fmt.Println(sep)
	fmt.Println(warnColor("  ⚠ Run interrupted"))
	fmt.Println(sep)
	fmt.Printf("  Iterations: %d\n", iterations)
	fmt.Println(sep)
}
