// Package warehouse publishes the fact and mart tables to Postgres.
package warehouse

import (
	"context"
	"embed"
	"io/fs"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/retail-cli/internal/db"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// DefaultSchema is the schema used when none is configured.
const DefaultSchema = "retail"

// migrationLockID keys the advisory lock held while migrating.
const migrationLockID = 7472011

// Warehouse publishes tables into one Postgres schema.
type Warehouse struct {
	pool   db.Pool
	schema string
}

// New returns a Warehouse writing into schema (DefaultSchema when empty).
func New(pool db.Pool, schema string) *Warehouse {
	if schema == "" {
		schema = DefaultSchema
	}
	return &Warehouse{pool: pool, schema: schema}
}

// Schema returns the target schema name.
func (w *Warehouse) Schema() string { return w.schema }

// qualify returns the schema-qualified name of table.
func (w *Warehouse) qualify(table string) string {
	return w.schema + "." + table
}

// render substitutes the quoted schema into a migration or statement.
func (w *Warehouse) render(sql string) string {
	return strings.ReplaceAll(sql, "{schema}", db.Identifier(w.schema).Sanitize())
}

// Migrate applies all pending SQL migrations in lexicographic order. It
// creates the schema and its schema_migrations tracking table if needed.
func (w *Warehouse) Migrate(ctx context.Context) error {
	log := zap.L().With(zap.String("component", "warehouse.migrate"))

	if _, err := w.pool.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return eris.Wrap(err, "warehouse: acquire migration advisory lock")
	}
	defer func() {
		if _, err := w.pool.Exec(ctx, "SELECT pg_advisory_unlock($1)", migrationLockID); err != nil {
			log.Warn("warehouse: failed to release migration advisory lock", zap.Error(err))
		}
	}()

	if err := w.ensureMigrationTable(ctx); err != nil {
		return err
	}

	names, err := migrationNames()
	if err != nil {
		return err
	}

	applied, err := w.appliedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, name := range names {
		if applied[name] {
			continue
		}

		data, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return eris.Wrapf(err, "warehouse: read migration %s", name)
		}

		log.Info("applying migration", zap.String("file", name))

		if _, err := w.pool.Exec(ctx, w.render(string(data))); err != nil {
			return eris.Wrapf(err, "warehouse: apply migration %s", name)
		}

		if _, err := w.pool.Exec(ctx,
			w.render("INSERT INTO {schema}.schema_migrations (filename, applied_at) VALUES ($1, now())"),
			name,
		); err != nil {
			return eris.Wrapf(err, "warehouse: record migration %s", name)
		}
	}
	return nil
}

func migrationNames() ([]string, error) {
	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: read migration dir")
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (w *Warehouse) ensureMigrationTable(ctx context.Context) error {
	sql := w.render(`
		CREATE SCHEMA IF NOT EXISTS {schema};
		CREATE TABLE IF NOT EXISTS {schema}.schema_migrations (
			id         SERIAL PRIMARY KEY,
			filename   TEXT NOT NULL UNIQUE,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	if _, err := w.pool.Exec(ctx, sql); err != nil {
		return eris.Wrap(err, "warehouse: ensure migration table")
	}
	return nil
}

func (w *Warehouse) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := w.pool.Query(ctx, w.render("SELECT filename FROM {schema}.schema_migrations"))
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: query applied migrations")
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "warehouse: scan migration row")
		}
		applied[name] = true
	}
	return applied, eris.Wrap(rows.Err(), "warehouse: iterate migrations")
}
