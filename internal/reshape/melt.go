package reshape

import (
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/retail-cli/internal/period"
)

// ErrNoValueColumns is returned when a wide table has no month-coded columns.
var ErrNoValueColumns = eris.New("reshape: no YYYYMM columns found for wide format")

// monthMarker prefixes YYYYMM codes in some state survey exports ("yy202201").
const monthMarker = "yy"

var (
	plainMonthCode  = regexp.MustCompile(`^\d{6}$`)
	markedMonthCode = regexp.MustCompile(`(?i)^` + monthMarker + `\d{6}$`)
)

// LongRow is one melted cell: the id-column values, the month parsed from the
// column header, and the raw cell value.
type LongRow struct {
	Keys  []string
	Month period.Month
	Value string
}

// ValueColumns returns the indexes of month-coded columns. Plain "YYYYMM"
// headers are preferred; marked "yyYYYYMM" headers are used only when no
// plain header exists.
func ValueColumns(cols []string) ([]int, error) {
	for _, re := range []*regexp.Regexp{plainMonthCode, markedMonthCode} {
		var idx []int
		for i, c := range cols {
			if re.MatchString(c) {
				idx = append(idx, i)
			}
		}
		if len(idx) > 0 {
			return idx, nil
		}
	}
	return nil, ErrNoValueColumns
}

// MeltWide reshapes t to one row per (id values, value column). Rows come out
// grouped by value column, then in table order. Month codes that do not form
// a real month (e.g. "202213") yield the null month; those rows are kept.
func MeltWide(t *Table, idColumns []string) ([]LongRow, error) {
	idIdx := make([]int, len(idColumns))
	for i, name := range idColumns {
		idIdx[i] = t.Index(name)
		if idIdx[i] < 0 {
			return nil, eris.Errorf("reshape: id column %q not in table", name)
		}
	}

	valueIdx, err := ValueColumns(t.Columns)
	if err != nil {
		return nil, err
	}

	out := make([]LongRow, 0, len(valueIdx)*len(t.Rows))
	for _, vi := range valueIdx {
		month := ParseMonthCode(t.Columns[vi])
		for _, row := range t.Rows {
			keys := make([]string, len(idIdx))
			for k, ii := range idIdx {
				keys[k] = Cell(row, ii)
			}
			out = append(out, LongRow{Keys: keys, Month: month, Value: Cell(row, vi)})
		}
	}
	return out, nil
}

// ParseMonthCode parses "YYYYMM" or "yyYYYYMM". Anything else is the null month.
func ParseMonthCode(code string) period.Month {
	code = strings.TrimSpace(code)
	if len(code) == len(monthMarker)+6 && strings.EqualFold(code[:len(monthMarker)], monthMarker) {
		code = code[len(monthMarker):]
	}
	if !plainMonthCode.MatchString(code) {
		return period.Month{}
	}
	t, err := time.Parse("200601", code)
	if err != nil {
		return period.Month{}
	}
	return period.FromTime(t)
}

// ParseMonthLabel parses spreadsheet month headers such as "Jan. 2022" or
// "Jan 2022". Periods are stripped first. Anything else is the null month.
func ParseMonthLabel(label string) period.Month {
	label = strings.TrimSpace(strings.ReplaceAll(label, ".", ""))
	t, err := time.Parse("Jan 2006", label)
	if err != nil {
		return period.Month{}
	}
	return period.FromTime(t)
}

// dateLayouts are the free-form date spellings seen in flat survey exports.
var dateLayouts = []string{
	"2006-01",
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01",
	"2006/01/02",
	"01/2006",
	"1/2/2006",
	"01/02/2006",
	"Jan 2006",
	"January 2006",
	"Jan-06",
	"200601",
}

// ParseDate parses a flat-file date cell and truncates it to its month.
// Anything unrecognized is the null month.
func ParseDate(s string) period.Month {
	s = strings.TrimSpace(strings.ReplaceAll(s, ".", ""))
	if s == "" {
		return period.Month{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return period.FromTime(t)
		}
	}
	return period.Month{}
}
