package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vocallocal/robust-chunker/internal/audio"
	"github.com/vocallocal/robust-chunker/internal/cli"
	"github.com/vocallocal/robust-chunker/internal/compat"
	"github.com/vocallocal/robust-chunker/internal/ffmpeg"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes.
const (
	ExitOK         = 0
	ExitGeneral    = 1
	ExitUsage      = 2
	ExitSetup      = 3
	ExitValidation = 4
	ExitInterrupt  = 130
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// Context with signal cancellation.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	env := cli.DefaultEnv()

	rootCmd := &cobra.Command{
		Use:     "chunker",
		Short:   "Chunk long audio and transcribe it with per-chunk retries",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.AddCommand(cli.RunCmd(env))
	rootCmd.AddCommand(cli.ProbeCmd(env))
	rootCmd.AddCommand(cli.HistoryCmd(env))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps errors to exit codes so scripts can distinguish a failed
// run from a misconfigured one.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	// Interrupt.
	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	// Usage errors: Cobra flag/arg parsing.
	if isCobraUsageError(err) {
		return ExitUsage
	}

	// Setup errors: missing tooling or credentials.
	if errors.Is(err, ffmpeg.ErrNotFound) || errors.Is(err, cli.ErrAPIKeyMissing) ||
		errors.Is(err, cli.ErrUnsupportedProvider) {
		return ExitSetup
	}

	// Validation errors: bad input or configuration.
	if errors.Is(err, cli.ErrInvalidConfiguration) || errors.Is(err, cli.ErrFileNotFound) ||
		errors.Is(err, audio.ErrFileNotFound) || errors.Is(err, audio.ErrUnsupportedFormat) ||
		errors.Is(err, audio.ErrInvalidConfig) || errors.Is(err, compat.ErrIncompatibleSignature) ||
		errors.Is(err, compat.ErrUnknownImplementation) {
		return ExitValidation
	}

	// Pipeline failures, including ErrRunFailed, fall through to the
	// general code.
	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate
// Cobra usage errors. Cobra doesn't expose typed errors, so string matching
// is the only reliable approach.
var cobraUsageErrorPatterns = []string{
	"required flag",
	"unknown flag",
	"unknown shorthand",
	"unknown command",
	"flag needs an argument",
	"invalid argument",
	"accepts ",
	"requires at least",
	"requires at most",
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
