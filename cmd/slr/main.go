// Package main provides the slr CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/matsen/slr/internal/config"
	"github.com/matsen/slr/internal/logging"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	logLevel    string
	verbose     bool
	reviewFlag  string

	logger = logging.Nop()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "slr",
	Short: "Agent-first systematic literature review manager",
	Long: `slr is an agent-first CLI for running systematic literature reviews.

Studies, questions and protocols live in git-versionable JSONL files under
.slr/, with an ephemeral SQLite cache for search. All commands output JSON
by default for easy integration with AI agents and other tools.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Shorthand for --log-level debug")
	rootCmd.PersistentFlags().StringVar(&reviewFlag, "review", "", "Systematic study id (defaults to default_review)")
	rootCmd.Version = Version
}

// setup loads .env and builds the stderr logger before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	level := logLevel
	if verbose {
		level = "debug"
	}
	log, err := logging.New(os.Stderr, logging.ResolveLevel(level, config.GetLogLevel()))
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	logger = log.With("command", cmd.CommandPath())
	logger.Debug("starting")
	return nil
}
