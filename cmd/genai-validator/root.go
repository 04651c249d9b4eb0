package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

// newLogger returns the stderr logger for a run.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "genai-validator",
		Short: "Validate a GenAI model against a challenger",
		Long: `genai-validator synthesizes test data from development examples, scores the
original model and a benchmark-backed challenger on it, and reports the
per-metric comparison.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	verbose := cmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")
	cmd.PersistentFlags().String("config", "", "YAML configuration file; flags override its values")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		slog.SetDefault(newLogger(cmd.ErrOrStderr(), *verbose))
	}

	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newChallengerCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	rootCmd.SetErr(os.Stderr)
	return rootCmd.Execute()
}
