package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/datar-psa/genaivalidator/challenger"
	"github.com/datar-psa/genaivalidator/internal/config"
)

func newChallengerCommand() *cobra.Command {
	var (
		taskType string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "challenger",
		Short: "Show the challenger model and benchmark for a task type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("task-type") || cfg.TaskType == "" {
				cfg.TaskType = taskType
			}

			info, err := newSelector(cfg).GetBenchmarkInfo()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			fmt.Fprintf(out, "Task: %s\n", cfg.TaskType)
			fmt.Fprintf(out, "Challenger: %s (%s)\n", info.Model, info.Provider)
			fmt.Fprintf(out, "Benchmark: %s\n", info.BenchmarkName)
			fmt.Fprintf(out, "Score: %s\n", info.BenchmarkScore)
			return nil
		},
	}

	cmd.Flags().StringVar(&taskType, "task-type", "", "Task type: qa, summarization or reasoning")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the benchmark info as JSON")

	return cmd
}

// newSelector builds the challenger selector, honoring a challenger table from the config.
func newSelector(cfg *config.Config, opts ...func(*challenger.Options)) *challenger.Selector {
	if len(cfg.Challengers) > 0 {
		opts = append(opts, challenger.WithModels(cfg.Challengers))
	}
	return challenger.NewSelector(cfg.TaskType, opts...)
}
