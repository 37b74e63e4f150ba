package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/retail-cli/internal/config"
	"github.com/sells-group/retail-cli/internal/facts"
	"github.com/sells-group/retail-cli/internal/reference"
	"github.com/sells-group/retail-cli/internal/store"
)

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Build the national and state fact tables",
	Long: "Parses the raw MRTS and MSRS files, maps NAICS codes to industry categories and states to regions, " +
		"and writes both fact tables to data/processed (parquet) and data/published (CSV).",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("transform"); err != nil {
			return err
		}
		_, err := runTransform(cmd.Context(), cfg)
		return err
	},
}

func init() {
	rootCmd.AddCommand(transformCmd)
}

// factTables is the output of the transform step.
type factTables struct {
	National []facts.NationalRow
	State    []facts.StateRow
}

// runTransform builds and persists both fact tables.
func runTransform(_ context.Context, c *config.Config) (*factTables, error) {
	log := zap.L().With(zap.String("component", "transform"))
	layout := store.Layout{DataDir: c.Paths.DataDir}

	window, err := c.MonthWindow()
	if err != nil {
		return nil, err
	}

	mapper, err := reference.Load(layout.ReferenceDir())
	if err != nil {
		return nil, eris.Wrap(err, "transform")
	}

	national, err := (&facts.NationalBuilder{
		Mapper:     mapper,
		Window:     window,
		SheetYears: c.National.SheetYears,
		CSV:        c.CSVOptions(),
	}).Build(layout.RawDir(config.DatasetNational))
	if err != nil {
		return nil, eris.Wrap(err, "transform: national")
	}

	state, err := (&facts.StateBuilder{
		Mapper: mapper,
		Window: window,
		CSV:    c.CSVOptions(),
	}).Build(layout.RawDir(config.DatasetState))
	if err != nil {
		return nil, eris.Wrap(err, "transform: state")
	}

	if err := store.WriteFact(layout, facts.NationalTable, national); err != nil {
		return nil, eris.Wrap(err, "transform")
	}
	if err := store.WriteFact(layout, facts.StateTable, state); err != nil {
		return nil, eris.Wrap(err, "transform")
	}

	log.Info("fact tables built",
		zap.Int("national_rows", len(national)),
		zap.Int("state_rows", len(state)),
	)
	return &factTables{National: national, State: state}, nil
}

// loadFacts reads both processed fact tables.
func loadFacts(layout store.Layout) (*factTables, error) {
	national, err := store.ReadFact[facts.NationalRow](layout, facts.NationalTable)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s (run transform first)", facts.NationalTable)
	}
	state, err := store.ReadFact[facts.StateRow](layout, facts.StateTable)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s (run transform first)", facts.StateTable)
	}
	return &factTables{National: national, State: state}, nil
}
