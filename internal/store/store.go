// Package store persists fact and mart tables as parquet files with CSV
// mirrors for sharing.
package store

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrMissingTable is returned when a table has not been materialized yet.
var ErrMissingTable = eris.New("store: table not found")

// Layout locates every table artifact under the data directory.
type Layout struct {
	DataDir string
}

// ProcessedPath is the parquet file of a fact table.
func (l Layout) ProcessedPath(name string) string {
	return filepath.Join(l.DataDir, "processed", name+".parquet")
}

// MartPath is the parquet file of a mart.
func (l Layout) MartPath(name string) string {
	return filepath.Join(l.DataDir, "marts", name+".parquet")
}

// PublishedPath is the CSV mirror of any table.
func (l Layout) PublishedPath(name string) string {
	return filepath.Join(l.DataDir, "published", name+".csv")
}

// RawDir is the download directory of a source dataset.
func (l Layout) RawDir(dataset string) string {
	return filepath.Join(l.DataDir, "raw", dataset)
}

// ReferenceDir holds the crosswalk and state-region lookup files.
func (l Layout) ReferenceDir() string {
	return filepath.Join(l.DataDir, "reference")
}

// WriteFact writes a fact table to its parquet file and CSV mirror.
func WriteFact[T any](l Layout, name string, rows []T) error {
	return writeBoth(l.ProcessedPath(name), l.PublishedPath(name), rows)
}

// ReadFact loads a fact table from its parquet file.
func ReadFact[T any](l Layout, name string) ([]T, error) {
	return ReadParquet[T](l.ProcessedPath(name))
}

// WriteMart writes a mart to its parquet file and CSV mirror.
func WriteMart[T any](l Layout, name string, rows []T) error {
	return writeBoth(l.MartPath(name), l.PublishedPath(name), rows)
}

// ReadMart loads a mart from its parquet file.
func ReadMart[T any](l Layout, name string) ([]T, error) {
	return ReadParquet[T](l.MartPath(name))
}

func writeBoth[T any](parquetPath, csvPath string, rows []T) error {
	if err := WriteParquet(parquetPath, rows); err != nil {
		return err
	}
	if err := WriteCSVFile(csvPath, rows); err != nil {
		return err
	}
	zap.L().Info("wrote", zap.String("path", parquetPath), zap.Int("rows", len(rows)))
	zap.L().Info("wrote", zap.String("path", csvPath), zap.Int("rows", len(rows)))
	return nil
}

// WriteParquet replaces the file at path with rows.
func WriteParquet[T any](path string, rows []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "store: mkdir for %s", path)
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		return eris.Wrapf(err, "store: write parquet %s", path)
	}
	return nil
}

// ReadParquet reads every row of the parquet file at path after checking that
// the file carries each column of T.
func ReadParquet[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, eris.Wrapf(ErrMissingTable, "store: %s", path)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "store: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	info, err := f.Stat()
	if err != nil {
		return nil, eris.Wrapf(err, "store: stat %s", path)
	}
	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, eris.Wrapf(err, "store: open parquet %s", path)
	}
	if err := validateSchema(pf.Schema(), parquet.SchemaOf(new(T))); err != nil {
		return nil, eris.Wrapf(err, "store: %s", path)
	}

	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, eris.Wrapf(err, "store: read parquet %s", path)
	}
	return rows, nil
}

// validateSchema reports the columns of want that got lacks.
func validateSchema(got, want *parquet.Schema) error {
	have := make(map[string]bool)
	for _, field := range got.Fields() {
		have[strings.ToLower(field.Name())] = true
	}
	var missing []string
	for _, field := range want.Fields() {
		if !have[strings.ToLower(field.Name())] {
			missing = append(missing, field.Name())
		}
	}
	if len(missing) > 0 {
		return eris.Errorf("store: missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}
