package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/retail-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "retail-cli",
	Short: "US retail sales analytics pipeline",
	Long: "Downloads the Census monthly retail trade (MRTS) and state retail sales (MSRS) surveys, " +
		"normalizes them into two fact tables, materializes summary marts, and writes a validation report, " +
		"a metrics snapshot, and charts.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		zap.L().Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}
