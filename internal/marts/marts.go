// Package marts materializes the derived summary tables by running embedded
// SQL over the fact tables in an in-memory SQLite database.
package marts

import (
	"context"
	"database/sql"
	"embed"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/retail-cli/internal/facts"
)

//go:embed sql/*.sql
var queries embed.FS

// Mart names, shared by the SQL file, the parquet file, and the CSV mirror.
const (
	MarketTrendsTable       = "marts_market_trends"
	GrowthContributionTable = "marts_growth_contribution"
)

// MarketTrend is one month of one industry's sales with its share of the
// month's total and its growth rates. Rates are nil when the base is missing
// or zero.
type MarketTrend struct {
	Date        string   `parquet:"date" csv:"date"`
	Industry    string   `parquet:"industry" csv:"industry"`
	SalesAmount float64  `parquet:"sales_amount" csv:"sales_amount"`
	SharePct    *float64 `parquet:"share_pct,optional" csv:"share_pct"`
	MoMPct      *float64 `parquet:"mom_pct,optional" csv:"mom_pct"`
	YoYPct      *float64 `parquet:"yoy_pct,optional" csv:"yoy_pct"`
}

// GrowthContribution is one month of one region's growth breadth. States
// counts only states with a reported growth value that month.
type GrowthContribution struct {
	Date                   string   `parquet:"date" csv:"date"`
	Region                 string   `parquet:"region" csv:"region"`
	States                 int64    `parquet:"states" csv:"states"`
	GrowingStates          int64    `parquet:"growing_states" csv:"growing_states"`
	AvgYoYPct              *float64 `parquet:"avg_yoy_pct,optional" csv:"avg_yoy_pct"`
	PositiveGrowthSharePct *float64 `parquet:"positive_growth_share_pct,optional" csv:"positive_growth_share_pct"`
}

// Result holds both marts.
type Result struct {
	MarketTrends       []MarketTrend
	GrowthContribution []GrowthContribution
}

// Engine is an in-memory SQLite database holding the fact tables.
type Engine struct {
	db *sql.DB
}

// Open creates an empty in-memory database with the fact table schema.
func Open(ctx context.Context) (*Engine, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, eris.Wrap(err, "marts: open sqlite")
	}
	// Each connection to :memory: is its own database.
	db.SetMaxOpenConns(1)

	schema, err := queries.ReadFile("sql/schema.sql")
	if err != nil {
		db.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "marts: read schema")
	}
	if _, err := db.ExecContext(ctx, string(schema)); err != nil {
		db.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "marts: create schema")
	}
	return &Engine{db: db}, nil
}

// Close releases the database.
func (e *Engine) Close() error {
	return e.db.Close()
}

// Build loads both fact tables and runs every mart query.
func Build(ctx context.Context, national []facts.NationalRow, state []facts.StateRow) (*Result, error) {
	e, err := Open(ctx)
	if err != nil {
		return nil, err
	}
	defer e.Close() //nolint:errcheck

	if err := e.LoadNational(ctx, national); err != nil {
		return nil, err
	}
	if err := e.LoadState(ctx, state); err != nil {
		return nil, err
	}

	trends, err := e.MarketTrends(ctx)
	if err != nil {
		return nil, err
	}
	contribution, err := e.GrowthContribution(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{MarketTrends: trends, GrowthContribution: contribution}, nil
}

// LoadNational inserts the national fact rows.
func (e *Engine) LoadNational(ctx context.Context, rows []facts.NationalRow) error {
	return e.insert(ctx,
		`INSERT INTO fact_national_retail_sales (date, industry, sales_amount) VALUES (?, ?, ?)`,
		len(rows), func(i int) []any {
			r := rows[i]
			return []any{r.Date, r.Industry, r.SalesAmount}
		})
}

// LoadState inserts the state fact rows.
func (e *Engine) LoadState(ctx context.Context, rows []facts.StateRow) error {
	return e.insert(ctx,
		`INSERT INTO fact_state_retail_growth (date, state, region, industry, yoy_pct) VALUES (?, ?, ?, ?, ?)`,
		len(rows), func(i int) []any {
			r := rows[i]
			return []any{r.Date, r.State, r.Region, r.Industry, r.YoYPct}
		})
}

func (e *Engine) insert(ctx context.Context, query string, n int, args func(i int) []any) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "marts: begin load")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return eris.Wrap(err, "marts: prepare load")
	}
	defer stmt.Close() //nolint:errcheck

	for i := range n {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return eris.Wrapf(err, "marts: insert row %d", i)
		}
	}
	return eris.Wrap(tx.Commit(), "marts: commit load")
}

// MarketTrends runs the market trends query.
func (e *Engine) MarketTrends(ctx context.Context) ([]MarketTrend, error) {
	rows, err := e.query(ctx, MarketTrendsTable)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var out []MarketTrend
	for rows.Next() {
		var m MarketTrend
		var share, mom, yoy sql.NullFloat64
		if err := rows.Scan(&m.Date, &m.Industry, &m.SalesAmount, &share, &mom, &yoy); err != nil {
			return nil, eris.Wrap(err, "marts: scan market trend")
		}
		m.SharePct, m.MoMPct, m.YoYPct = nullable(share), nullable(mom), nullable(yoy)
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "marts: market trends iterate")
}

// GrowthContribution runs the growth contribution query.
func (e *Engine) GrowthContribution(ctx context.Context) ([]GrowthContribution, error) {
	rows, err := e.query(ctx, GrowthContributionTable)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var out []GrowthContribution
	for rows.Next() {
		var g GrowthContribution
		var avg, share sql.NullFloat64
		if err := rows.Scan(&g.Date, &g.Region, &g.States, &g.GrowingStates, &avg, &share); err != nil {
			return nil, eris.Wrap(err, "marts: scan growth contribution")
		}
		g.AvgYoYPct, g.PositiveGrowthSharePct = nullable(avg), nullable(share)
		out = append(out, g)
	}
	return out, eris.Wrap(rows.Err(), "marts: growth contribution iterate")
}

func (e *Engine) query(ctx context.Context, name string) (*sql.Rows, error) {
	text, err := queries.ReadFile("sql/" + name + ".sql")
	if err != nil {
		return nil, eris.Wrapf(err, "marts: missing SQL for %s", name)
	}
	rows, err := e.db.QueryContext(ctx, string(text))
	if err != nil {
		return nil, eris.Wrapf(err, "marts: query %s", name)
	}
	return rows, nil
}

func nullable(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
