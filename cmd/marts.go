package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/retail-cli/internal/config"
	"github.com/sells-group/retail-cli/internal/marts"
	"github.com/sells-group/retail-cli/internal/store"
)

var martsCmd = &cobra.Command{
	Use:   "marts",
	Short: "Materialize the summary marts",
	Long:  "Loads both processed fact tables into an in-memory SQLite database and runs the embedded mart queries.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("marts"); err != nil {
			return err
		}
		_, err := runMarts(cmd.Context(), cfg, nil)
		return err
	},
}

func init() {
	rootCmd.AddCommand(martsCmd)
}

// runMarts builds and persists the marts. When ft is nil the fact tables are
// read from disk.
func runMarts(ctx context.Context, c *config.Config, ft *factTables) (*marts.Result, error) {
	layout := store.Layout{DataDir: c.Paths.DataDir}

	if ft == nil {
		var err error
		if ft, err = loadFacts(layout); err != nil {
			return nil, eris.Wrap(err, "marts")
		}
	}

	res, err := marts.Build(ctx, ft.National, ft.State)
	if err != nil {
		return nil, err
	}

	if err := store.WriteMart(layout, marts.MarketTrendsTable, res.MarketTrends); err != nil {
		return nil, eris.Wrap(err, "marts")
	}
	if err := store.WriteMart(layout, marts.GrowthContributionTable, res.GrowthContribution); err != nil {
		return nil, eris.Wrap(err, "marts")
	}

	zap.L().Info("marts built",
		zap.Int(marts.MarketTrendsTable, len(res.MarketTrends)),
		zap.Int(marts.GrowthContributionTable, len(res.GrowthContribution)),
	)
	return res, nil
}

// loadMarts reads both materialized marts.
func loadMarts(layout store.Layout) (*marts.Result, error) {
	trends, err := store.ReadMart[marts.MarketTrend](layout, marts.MarketTrendsTable)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s (run marts first)", marts.MarketTrendsTable)
	}
	growth, err := store.ReadMart[marts.GrowthContribution](layout, marts.GrowthContributionTable)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s (run marts first)", marts.GrowthContributionTable)
	}
	return &marts.Result{MarketTrends: trends, GrowthContribution: growth}, nil
}
