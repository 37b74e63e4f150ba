// Package reshape turns the wide, spreadsheet-shaped survey tables into long
// (keys, month, value) rows.
package reshape

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Table is a header plus string rows. Rows may be shorter than the header;
// missing cells read as empty.
type Table struct {
	Columns []string
	Rows    [][]string
}

// NewTable treats the first record as the header. Column names are trimmed.
func NewTable(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, eris.New("reshape: table has no header row")
	}
	cols := make([]string, len(records[0]))
	for i, c := range records[0] {
		cols[i] = strings.TrimSpace(c)
	}
	return &Table{Columns: cols, Rows: records[1:]}, nil
}

// Index returns the position of the first column named name, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// FindColumn returns the first column whose lowercased name is one of names.
func (t *Table) FindColumn(names ...string) (string, bool) {
	for _, c := range t.Columns {
		lc := strings.ToLower(c)
		for _, n := range names {
			if lc == n {
				return c, true
			}
		}
	}
	return "", false
}

// FindColumnContaining returns the first column whose lowercased name
// contains any of subs.
func (t *Table) FindColumnContaining(subs ...string) (string, bool) {
	for _, c := range t.Columns {
		lc := strings.ToLower(c)
		for _, s := range subs {
			if strings.Contains(lc, s) {
				return c, true
			}
		}
	}
	return "", false
}

// Cell returns row[idx], or "" when the row is short or idx is negative.
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// Concat stacks tables, aligning columns by name. The result has the union of
// columns in first-seen order; cells a table lacks are empty.
func Concat(tables ...*Table) *Table {
	out := &Table{}
	pos := make(map[string]int)
	for _, t := range tables {
		for _, c := range t.Columns {
			if _, ok := pos[c]; !ok {
				pos[c] = len(out.Columns)
				out.Columns = append(out.Columns, c)
			}
		}
	}
	for _, t := range tables {
		for _, row := range t.Rows {
			merged := make([]string, len(out.Columns))
			for i, c := range t.Columns {
				if i < len(row) {
					merged[pos[c]] = row[i]
				}
			}
			out.Rows = append(out.Rows, merged)
		}
	}
	return out
}

// ParseNumber coerces a cell to a float. Thousands separators are ignored;
// anything else that does not parse (blank, "(S)", "NA", "NaN") is null.
func ParseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
