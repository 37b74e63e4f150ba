package warehouse

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/retail-cli/internal/db"
	"github.com/sells-group/retail-cli/internal/facts"
	"github.com/sells-group/retail-cli/internal/marts"
)

// Table is a full table image ready to be copied into the warehouse.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// PublishEntry is one row of the publish log.
type PublishEntry struct {
	ID          uuid.UUID
	TableName   string
	Rows        int64
	PublishedAt time.Time
}

// Publish replaces each table in turn and records it in the publish log.
// It stops at the first failure; tables already replaced stay replaced.
func (w *Warehouse) Publish(ctx context.Context, tables ...Table) ([]PublishEntry, error) {
	log := zap.L().With(zap.String("component", "warehouse.publish"), zap.String("schema", w.schema))

	entries := make([]PublishEntry, 0, len(tables))
	for _, t := range tables {
		n, err := db.Replace(ctx, w.pool, db.ReplaceConfig{
			Table:   w.qualify(t.Name),
			Columns: t.Columns,
		}, t.Rows)
		if err != nil {
			return entries, eris.Wrapf(err, "warehouse: publish %s", t.Name)
		}

		entry := PublishEntry{ID: uuid.New(), TableName: t.Name, Rows: n}
		if err := w.pool.QueryRow(ctx,
			w.render(`INSERT INTO {schema}.publish_log (id, table_name, rows, published_at)
			 VALUES ($1, $2, $3, now()) RETURNING published_at`),
			entry.ID, entry.TableName, entry.Rows,
		).Scan(&entry.PublishedAt); err != nil {
			return entries, eris.Wrapf(err, "warehouse: record publish of %s", t.Name)
		}

		log.Info("published", zap.String("table", t.Name), zap.Int64("rows", n))
		entries = append(entries, entry)
	}
	return entries, nil
}

// History returns the publish log, most recent first, limited to limit rows
// (all rows when limit <= 0).
func (w *Warehouse) History(ctx context.Context, limit int) ([]PublishEntry, error) {
	sql := w.render(`SELECT id, table_name, rows, published_at FROM {schema}.publish_log
		ORDER BY published_at DESC, table_name`)
	args := []any{}
	if limit > 0 {
		sql += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := w.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: query publish log")
	}
	defer rows.Close()

	var out []PublishEntry
	for rows.Next() {
		var e PublishEntry
		if err := rows.Scan(&e.ID, &e.TableName, &e.Rows, &e.PublishedAt); err != nil {
			return nil, eris.Wrap(err, "warehouse: scan publish log row")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "warehouse: iterate publish log")
}

// NationalTable converts national fact rows into a publishable table.
func NationalTable(rows []facts.NationalRow) Table {
	t := Table{Name: facts.NationalTable, Columns: []string{"date", "industry", "sales_amount"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.Date, r.Industry, r.SalesAmount})
	}
	return t
}

// StateTable converts state fact rows into a publishable table.
func StateTable(rows []facts.StateRow) Table {
	t := Table{Name: facts.StateTable, Columns: []string{"date", "state", "region", "industry", "yoy_pct"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.Date, r.State, r.Region, r.Industry, r.YoYPct})
	}
	return t
}

// MarketTrendsTable converts the market trends mart into a publishable table.
func MarketTrendsTable(rows []marts.MarketTrend) Table {
	t := Table{
		Name:    marts.MarketTrendsTable,
		Columns: []string{"date", "industry", "sales_amount", "share_pct", "mom_pct", "yoy_pct"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.Date, r.Industry, r.SalesAmount, r.SharePct, r.MoMPct, r.YoYPct})
	}
	return t
}

// GrowthContributionTable converts the growth contribution mart into a
// publishable table.
func GrowthContributionTable(rows []marts.GrowthContribution) Table {
	t := Table{
		Name:    marts.GrowthContributionTable,
		Columns: []string{"date", "region", "states", "growing_states", "avg_yoy_pct", "positive_growth_share_pct"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.Date, r.Region, r.States, r.GrowingStates, r.AvgYoYPct, r.PositiveGrowthSharePct})
	}
	return t
}
