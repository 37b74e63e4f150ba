package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/retail-cli/internal/config"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run transform, marts and report in sequence",
	Long:  "Builds the fact tables, materializes the marts and writes the report artifacts, stopping at the first failure.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("run"); err != nil {
			return err
		}
		return runAll(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// runAll chains the offline steps, handing the in-memory fact tables forward.
func runAll(ctx context.Context, c *config.Config) error {
	start := time.Now()

	ft, err := runTransform(ctx, c)
	if err != nil {
		return err
	}
	if _, err := runMarts(ctx, c, ft); err != nil {
		return err
	}
	if err := runReport(c, ft); err != nil {
		return err
	}

	zap.L().Info("run complete", zap.Duration("elapsed", time.Since(start)))
	return nil
}
