// Package validate runs read-only quality checks over the fact tables and
// renders them as a markdown report. Checks never fail the build; they only
// describe what they found.
package validate

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/sells-group/retail-cli/internal/facts"
	"github.com/sells-group/retail-cli/internal/period"
	"github.com/sells-group/retail-cli/internal/reference"
)

// Dataset labels used in the report.
const (
	NationalLabel = "MRTS"
	StateLabel    = "MSRS"
)

// sampleSize caps the out-of-range rows listed individually.
const sampleSize = 5

// Options configures the checks.
type Options struct {
	Window   period.Window
	YoYMin   float64
	YoYMax   float64
	Expected []string // expected industry categories; defaults to reference.ExpectedIndustries
}

// Coverage counts the window months present in, and missing from, a table.
type Coverage struct {
	Present int
	Missing []period.Month
}

// Categories compares a table's distinct industries against the expected set.
type Categories struct {
	Present    []string
	Missing    []string
	Unexpected []string
}

// Result holds the outcome of every check.
type Result struct {
	ExpectedMonths int

	NationalCoverage Coverage
	StateCoverage    Coverage

	NationalDuplicates int
	StateDuplicates    int

	// MissingYoYRate is the percentage of state rows with a null growth value,
	// nil when the state table is empty.
	MissingYoYRate *float64

	YoYMin, YoYMax  *float64
	OutOfRangeCount int
	OutOfRange      []facts.StateRow // the lowest sampleSize offenders, ascending

	NationalCategories Categories
	StateCategories    Categories

	StatesPresent     int
	MissingRegionRows int
}

// Run computes every check. The checks are independent of each other.
func Run(national []facts.NationalRow, state []facts.StateRow, opts Options) *Result {
	expected := opts.Expected
	if len(expected) == 0 {
		expected = reference.ExpectedIndustries
	}
	months := opts.Window.Months()

	r := &Result{ExpectedMonths: len(months)}

	r.NationalCoverage = coverage(months, national, func(n facts.NationalRow) string { return n.Date })
	r.StateCoverage = coverage(months, state, func(s facts.StateRow) string { return s.Date })

	r.NationalDuplicates = duplicates(national, func(n facts.NationalRow) string {
		return n.Date + "\x00" + n.Industry
	})
	r.StateDuplicates = duplicates(state, func(s facts.StateRow) string {
		return s.Date + "\x00" + s.State + "\x00" + s.Industry
	})

	r.checkYoY(state, opts)

	r.NationalCategories = categories(expected, national, func(n facts.NationalRow) string { return n.Industry })
	r.StateCategories = categories(expected, state, func(s facts.StateRow) string { return s.Industry })

	states := make(map[string]struct{})
	for _, s := range state {
		states[s.State] = struct{}{}
		if s.Region == "" {
			r.MissingRegionRows++
		}
	}
	r.StatesPresent = len(states)

	zap.L().Debug("validation complete",
		zap.Int("national_duplicates", r.NationalDuplicates),
		zap.Int("state_duplicates", r.StateDuplicates),
		zap.Int("out_of_range", r.OutOfRangeCount),
	)
	return r
}

func (r *Result) checkYoY(state []facts.StateRow, opts Options) {
	var values []float64
	var offenders []facts.StateRow
	nulls := 0
	for _, s := range state {
		if s.YoYPct == nil {
			nulls++
			continue
		}
		v := *s.YoYPct
		values = append(values, v)
		if v < opts.YoYMin || v > opts.YoYMax {
			offenders = append(offenders, s)
		}
	}

	if len(state) > 0 {
		rate := float64(nulls) / float64(len(state)) * 100
		r.MissingYoYRate = &rate
	}
	if len(values) > 0 {
		lo, hi := floats.Min(values), floats.Max(values)
		r.YoYMin, r.YoYMax = &lo, &hi
	}

	r.OutOfRangeCount = len(offenders)
	sort.SliceStable(offenders, func(i, j int) bool { return *offenders[i].YoYPct < *offenders[j].YoYPct })
	if len(offenders) > sampleSize {
		offenders = offenders[:sampleSize]
	}
	r.OutOfRange = offenders
}

func coverage[T any](months []period.Month, rows []T, date func(T) string) Coverage {
	seen := make(map[string]struct{})
	for _, row := range rows {
		seen[date(row)] = struct{}{}
	}
	c := Coverage{Present: len(seen)}
	for _, m := range months {
		if _, ok := seen[m.String()]; !ok {
			c.Missing = append(c.Missing, m)
		}
	}
	return c
}

func duplicates[T any](rows []T, key func(T) string) int {
	seen := make(map[string]struct{}, len(rows))
	n := 0
	for _, row := range rows {
		k := key(row)
		if _, ok := seen[k]; ok {
			n++
			continue
		}
		seen[k] = struct{}{}
	}
	return n
}

func categories[T any](expected []string, rows []T, industry func(T) string) Categories {
	present := make(map[string]struct{})
	for _, row := range rows {
		present[industry(row)] = struct{}{}
	}
	want := make(map[string]struct{}, len(expected))
	for _, e := range expected {
		want[e] = struct{}{}
	}

	var c Categories
	for p := range present {
		c.Present = append(c.Present, p)
		if _, ok := want[p]; !ok {
			c.Unexpected = append(c.Unexpected, p)
		}
	}
	for e := range want {
		if _, ok := present[e]; !ok {
			c.Missing = append(c.Missing, e)
		}
	}
	slices.Sort(c.Present)
	slices.Sort(c.Missing)
	slices.Sort(c.Unexpected)
	return c
}

// Markdown renders the report. Section titles are stable so the document can
// be diffed across runs.
func (r *Result) Markdown() string {
	lines := []string{"# Data Validation"}
	section := func(title, conclusion string, t Table) {
		lines = append(lines, "", "## "+title, "Conclusion: "+conclusion, t.Markdown())
	}

	section(fmt.Sprintf("1) Coverage (%d months, no gaps)", r.ExpectedMonths),
		fmt.Sprintf("%s missing months = %d, %s missing months = %d.",
			NationalLabel, len(r.NationalCoverage.Missing), StateLabel, len(r.StateCoverage.Missing)),
		Table{
			Header:  []string{"dataset", "months_present", "missing_months"},
			Numeric: []bool{false, true, true},
			Rows: [][]string{
				{NationalLabel + " (national)", itoa(r.NationalCoverage.Present), itoa(len(r.NationalCoverage.Missing))},
				{StateLabel + " (state)", itoa(r.StateCoverage.Present), itoa(len(r.StateCoverage.Missing))},
			},
		})

	section("2) Uniqueness (primary keys)",
		fmt.Sprintf("duplicate rows = %s %d, %s %d.", NationalLabel, r.NationalDuplicates, StateLabel, r.StateDuplicates),
		Table{
			Header:  []string{"dataset", "key", "duplicate_rows"},
			Numeric: []bool{false, false, true},
			Rows: [][]string{
				{NationalLabel, "date+industry", itoa(r.NationalDuplicates)},
				{StateLabel, "date+state+industry", itoa(r.StateDuplicates)},
			},
		})

	section("3) Missing YoY %",
		fmt.Sprintf("%s yoy_pct missing rate = %s.", StateLabel, pct(r.MissingYoYRate)),
		Table{
			Header: []string{"dataset", "yoy_pct_missing_rate"},
			Rows:   [][]string{{StateLabel, pct(r.MissingYoYRate)}},
		})

	section("4) Value Range (YoY %)",
		fmt.Sprintf("min=%s, max=%s, out-of-range rows=%d.", pct(r.YoYMin), pct(r.YoYMax), r.OutOfRangeCount),
		Table{
			Header:  []string{"dataset", "yoy_min", "yoy_max", "out_of_range_rows"},
			Numeric: []bool{false, true, true, true},
			Rows:    [][]string{{StateLabel, num(r.YoYMin), num(r.YoYMax), itoa(r.OutOfRangeCount)}},
		})
	if len(r.OutOfRange) > 0 {
		sample := Table{
			Header:  []string{"date", "state", "industry", "yoy_pct"},
			Numeric: []bool{false, false, false, true},
		}
		for _, s := range r.OutOfRange {
			sample.Rows = append(sample.Rows, []string{s.Date, s.State, s.Industry, num(s.YoYPct)})
		}
		lines = append(lines, "", "Out-of-range sample:", sample.Markdown())
	}

	section("5) Industry Consistency",
		fmt.Sprintf("%s missing vs target = %d, %s missing vs target = %d; %s lacks %s (expected).",
			NationalLabel, len(r.NationalCategories.Missing), StateLabel, len(r.StateCategories.Missing),
			StateLabel, reference.NonstoreRetail),
		Table{
			Header:  []string{"dataset", "industry_count", "missing_vs_target", "unexpected"},
			Numeric: []bool{false, true, false, false},
			Rows: [][]string{
				categoryRow(NationalLabel, r.NationalCategories),
				categoryRow(StateLabel, r.StateCategories),
			},
		})

	section("6) State Mapping Coverage",
		fmt.Sprintf("states present=%d, missing region rows=%d.", r.StatesPresent, r.MissingRegionRows),
		Table{
			Header:  []string{"dataset", "states_present", "missing_region_rows"},
			Numeric: []bool{false, true, true},
			Rows:    [][]string{{StateLabel, itoa(r.StatesPresent), itoa(r.MissingRegionRows)}},
		})

	return strings.Join(lines, "\n") + "\n"
}

// WriteFile writes the markdown report to path.
func (r *Result) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "validate: mkdir for %s", path)
	}
	if err := os.WriteFile(path, []byte(r.Markdown()), 0o644); err != nil {
		return eris.Wrapf(err, "validate: write %s", path)
	}
	zap.L().Info("wrote", zap.String("path", path))
	return nil
}

func categoryRow(label string, c Categories) []string {
	return []string{label, itoa(len(c.Present)), joinOrNone(c.Missing), joinOrNone(c.Unexpected)}
}

func joinOrNone(s []string) string {
	if len(s) == 0 {
		return "None"
	}
	return strings.Join(s, "; ")
}

func itoa(n int) string { return strconv.Itoa(n) }

func num(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func pct(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return num(v) + "%"
}
