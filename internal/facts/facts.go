// Package facts builds the national sales and state growth fact tables from
// raw survey files.
package facts

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/retail-cli/internal/period"
)

// Table names, used for every output artifact of the fact tables.
const (
	NationalTable = "fact_national_retail_sales"
	StateTable    = "fact_state_retail_growth"
)

var (
	// ErrNoInputFiles is returned when a raw source directory is empty or absent.
	ErrNoInputFiles = eris.New("facts: no input files")
	// ErrNoStateColumn is returned when the state files have no recognizable state column.
	ErrNoStateColumn = eris.New("facts: state files missing state column")
)

// Mapper resolves raw industry codes and state identifiers.
type Mapper interface {
	Industry(code string) (string, bool)
	Region(state string) (string, bool)
}

// NationalRow is one month of sales for one industry category.
type NationalRow struct {
	Date        string  `parquet:"date" csv:"date"`
	Industry    string  `parquet:"industry" csv:"industry"`
	SalesAmount float64 `parquet:"sales_amount" csv:"sales_amount"`
}

// Month returns the row's partition month.
func (r NationalRow) Month() period.Month { return monthOf(r.Date) }

// StateRow is one month of year-over-year growth for a state and industry.
// YoYPct is nil when the source value was not numeric.
type StateRow struct {
	Date     string   `parquet:"date" csv:"date"`
	State    string   `parquet:"state" csv:"state"`
	Region   string   `parquet:"region" csv:"region"`
	Industry string   `parquet:"industry" csv:"industry"`
	YoYPct   *float64 `parquet:"yoy_pct,optional" csv:"yoy_pct"`
}

// Month returns the row's partition month.
func (r StateRow) Month() period.Month { return monthOf(r.Date) }

func monthOf(date string) period.Month {
	m, err := period.Parse(date)
	if err != nil {
		return period.Month{}
	}
	return m
}

// SortNational orders rows by (date, industry).
func SortNational(rows []NationalRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date < rows[j].Date
		}
		return rows[i].Industry < rows[j].Industry
	})
}

// SortState orders rows by (date, state, region, industry).
func SortState(rows []StateRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		switch {
		case a.Date != b.Date:
			return a.Date < b.Date
		case a.State != b.State:
			return a.State < b.State
		case a.Region != b.Region:
			return a.Region < b.Region
		default:
			return a.Industry < b.Industry
		}
	})
}

// listFiles returns the regular, non-hidden files in dir in name order. A
// missing directory yields ErrNoInputFiles.
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		return nil, eris.Wrapf(err, "facts: read dir %s", dir)
	}

	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	if len(files) == 0 {
		return nil, eris.Wrapf(ErrNoInputFiles, "facts: %s", dir)
	}
	sort.Strings(files)
	return files, nil
}

func isWorkbook(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xls":
		return true
	}
	return false
}

// accumulator groups float values by key, remembering first-seen key order.
// A group with only null inputs stays null.
type accumulator[K comparable] struct {
	keys []K
	sum  map[K]float64
	n    map[K]int
}

func newAccumulator[K comparable]() *accumulator[K] {
	return &accumulator[K]{sum: make(map[K]float64), n: make(map[K]int)}
}

func (a *accumulator[K]) add(k K, v float64, ok bool) {
	if _, seen := a.n[k]; !seen {
		a.keys = append(a.keys, k)
		a.n[k] = 0
	}
	if ok {
		a.sum[k] += v
		a.n[k]++
	}
}

func (a *accumulator[K]) total(k K) (float64, bool) {
	return a.sum[k], a.n[k] > 0
}

func (a *accumulator[K]) mean(k K) (float64, bool) {
	if a.n[k] == 0 {
		return 0, false
	}
	return a.sum[k] / float64(a.n[k]), true
}
