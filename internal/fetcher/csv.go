// Package fetcher downloads survey files over HTTP and reads the CSV, XLSX,
// and ZIP formats they are published in.
package fetcher

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CSVOptions configures the CSV reader.
type CSVOptions struct {
	LazyQuotes bool   // tolerate stray quotes inside unquoted fields
	TrimSpace  bool
	Encoding   string // "", "utf-8", "windows-1252", "latin1"
}

// CSVReader reads records with optional field trimming. It satisfies the
// record-reader interface csvutil decoders accept.
type CSVReader struct {
	r    *csv.Reader
	trim bool
}

// NewCSVReader wraps r, decoding the configured text encoding and dropping a
// leading byte-order mark. Rows may have a variable number of fields.
func NewCSVReader(r io.Reader, opts CSVOptions) *CSVReader {
	reader := csv.NewReader(transform.NewReader(r, decoderFor(opts.Encoding)))
	reader.LazyQuotes = opts.LazyQuotes
	reader.FieldsPerRecord = -1
	return &CSVReader{r: reader, trim: opts.TrimSpace}
}

// Read returns the next record, or io.EOF.
func (c *CSVReader) Read() ([]string, error) {
	record, err := c.r.Read()
	if err != nil {
		return nil, err
	}
	if c.trim {
		for i, field := range record {
			record[i] = strings.TrimSpace(field)
		}
	}
	return record, nil
}

// ReadCSV reads every record from r.
func ReadCSV(r io.Reader, opts CSVOptions) ([][]string, error) {
	reader := NewCSVReader(r, opts)
	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		rows = append(rows, record)
	}
}

// ReadCSVFile reads every record from the file at path.
func ReadCSVFile(path string, opts CSVOptions) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "csv: open file")
	}
	defer f.Close() //nolint:errcheck
	return ReadCSV(f, opts)
}

// decoderFor returns a BOM-stripping decoder for the named encoding. Unknown
// names fall back to UTF-8.
func decoderFor(name string) transform.Transformer {
	var enc encoding.Encoding = unicode.UTF8
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "windows-1252", "cp1252":
		enc = charmap.Windows1252
	case "latin1", "iso-8859-1":
		enc = charmap.ISO8859_1
	}
	return unicode.BOMOverride(enc.NewDecoder())
}
