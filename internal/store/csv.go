package store

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
)

// formatFloat keeps amounts in plain decimal notation.
func formatFloat(f float64) ([]byte, error) {
	return strconv.AppendFloat(nil, f, 'f', -1, 64), nil
}

// WriteCSV encodes rows with a header line. Nil pointer fields are empty cells.
func WriteCSV[T any](w io.Writer, rows []T) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	enc.Register(formatFloat)

	var err error
	if len(rows) == 0 {
		var zero T
		err = enc.EncodeHeader(zero)
	} else {
		err = enc.Encode(rows)
	}
	if err != nil {
		return eris.Wrap(err, "store: encode csv")
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "store: flush csv")
}

// WriteCSVFile replaces the file at path with the CSV encoding of rows.
func WriteCSVFile[T any](path string, rows []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "store: mkdir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "store: create %s", path)
	}
	if err := WriteCSV(f, rows); err != nil {
		f.Close() //nolint:errcheck
		return eris.Wrapf(err, "store: %s", path)
	}
	return eris.Wrapf(f.Close(), "store: close %s", path)
}

// ReadCSV decodes every record of r into T by header name.
func ReadCSV[T any](r io.Reader) ([]T, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: read csv header")
	}

	var rows []T
	if err := dec.Decode(&rows); err != nil && !errors.Is(err, io.EOF) {
		return nil, eris.Wrap(err, "store: decode csv")
	}
	return rows, nil
}

// ReadCSVFile decodes the CSV file at path.
func ReadCSVFile[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, eris.Wrapf(ErrMissingTable, "store: %s", path)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "store: open %s", path)
	}
	defer f.Close() //nolint:errcheck
	return ReadCSV[T](f)
}
