package db

import (
	"context"

	"github.com/rotisserie/eris"
)

// ReplaceConfig names the table being replaced and the columns being loaded.
type ReplaceConfig struct {
	Table   string   // target table (e.g., "retail.fact_national_retail_sales")
	Columns []string // columns in the order of each row
}

// Replace swaps the full contents of a table in one transaction:
//  1. TRUNCATE the target
//  2. COPY rows into it
//  3. Commit
//
// An empty rows slice leaves the table empty.
func Replace(ctx context.Context, pool Pool, cfg ReplaceConfig, rows [][]any) (int64, error) {
	if cfg.Table == "" {
		return 0, eris.New("db: replace: no table specified")
	}
	if len(cfg.Columns) == 0 {
		return 0, eris.New("db: replace: no columns specified")
	}
	for i, r := range rows {
		if len(r) != len(cfg.Columns) {
			return 0, eris.Errorf("db: replace: row %d has %d values, want %d", i, len(r), len(cfg.Columns))
		}
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: replace: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "TRUNCATE TABLE "+Identifier(cfg.Table).Sanitize()); err != nil {
		return 0, eris.Wrapf(err, "db: replace: truncate %s", cfg.Table)
	}

	n, err := CopyFrom(ctx, tx, cfg.Table, cfg.Columns, rows)
	if err != nil {
		return 0, eris.Wrapf(err, "db: replace: %s", cfg.Table)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: replace: commit tx")
	}
	return n, nil
}
