package main

import (
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/retail-cli/internal/charts"
	"github.com/sells-group/retail-cli/internal/config"
	"github.com/sells-group/retail-cli/internal/metrics"
	"github.com/sells-group/retail-cli/internal/store"
	"github.com/sells-group/retail-cli/internal/validate"
)

// Report artifact names under the docs directory.
const (
	validationReportFile = "data_validation.md"
	snapshotFile         = "metrics_snapshot.csv"
	figuresDir           = "figures"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write the validation report, metrics snapshot and charts",
	Long:  "Validates both fact tables, then writes docs/data_validation.md, docs/metrics_snapshot.csv and docs/figures/*.png.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("report"); err != nil {
			return err
		}
		return runReport(cfg, nil)
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

// runReport writes every docs artifact. When ft is nil the fact tables are
// read from disk.
func runReport(c *config.Config, ft *factTables) error {
	if ft == nil {
		var err error
		if ft, err = loadFacts(store.Layout{DataDir: c.Paths.DataDir}); err != nil {
			return eris.Wrap(err, "report")
		}
	}

	window, err := c.MonthWindow()
	if err != nil {
		return err
	}

	res := validate.Run(ft.National, ft.State, validate.Options{
		Window: window,
		YoYMin: c.Quality.YoYMin,
		YoYMax: c.Quality.YoYMax,
	})
	if err := res.WriteFile(filepath.Join(c.Paths.DocsDir, validationReportFile)); err != nil {
		return err
	}

	headline := metrics.NewHeadline(ft.National, ft.State)
	snapshot, err := headline.Snapshot()
	if err != nil {
		return eris.Wrap(err, "report")
	}
	if err := metrics.WriteSnapshot(filepath.Join(c.Paths.DocsDir, snapshotFile), snapshot); err != nil {
		return err
	}

	if _, err := charts.Render(filepath.Join(c.Paths.DocsDir, figuresDir), headline); err != nil {
		return eris.Wrap(err, "report")
	}
	return nil
}
