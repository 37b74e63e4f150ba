// Package period provides a calendar-month value type used as the partition
// key of every fact table.
package period

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Month is a calendar month. The zero value means "no month" (an unparsable
// label), which callers treat as null.
type Month struct {
	Year  int
	Month time.Month
}

// New returns the month for the given year and month number.
func New(year int, month time.Month) Month {
	return Month{Year: year, Month: month}
}

// FromTime returns the month containing t.
func FromTime(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// Parse parses a "YYYY-MM" string.
func Parse(s string) (Month, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Month{}, eris.Wrapf(err, "period: parse month %q", s)
	}
	return FromTime(t), nil
}

// MustParse is Parse for package-level constants; it panics on bad input.
func MustParse(s string) Month {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// IsZero reports whether m is the null month.
func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

// String formats m as "YYYY-MM". The null month formats as "".
func (m Month) String() string {
	if m.IsZero() {
		return ""
	}
	return m.Time().Format("2006-01")
}

// Time returns midnight UTC on the first day of m.
func (m Month) Time() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// AddMonths returns m shifted by n months (n may be negative).
func (m Month) AddMonths(n int) Month {
	return FromTime(m.Time().AddDate(0, n, 0))
}

// Index returns a monotonically increasing month ordinal.
func (m Month) Index() int {
	return m.Year*12 + int(m.Month) - 1
}

// Before reports whether m is strictly earlier than o.
func (m Month) Before(o Month) bool {
	return m.Index() < o.Index()
}

// After reports whether m is strictly later than o.
func (m Month) After(o Month) bool {
	return m.Index() > o.Index()
}

// Window is an inclusive month range.
type Window struct {
	Start Month
	End   Month
}

// NewWindow parses an inclusive "YYYY-MM".."YYYY-MM" range.
func NewWindow(start, end string) (Window, error) {
	s, err := Parse(start)
	if err != nil {
		return Window{}, err
	}
	e, err := Parse(end)
	if err != nil {
		return Window{}, err
	}
	if e.Before(s) {
		return Window{}, eris.Errorf("period: window end %s before start %s", e, s)
	}
	return Window{Start: s, End: e}, nil
}

// Contains reports whether m lies inside the window. The null month never does.
func (w Window) Contains(m Month) bool {
	if m.IsZero() {
		return false
	}
	return !m.Before(w.Start) && !m.After(w.End)
}

// Months returns every month in the window in ascending order.
func (w Window) Months() []Month {
	return Range(w.Start, w.End)
}

// Range returns the inclusive month sequence from start to end.
func Range(start, end Month) []Month {
	if end.Before(start) {
		return nil
	}
	out := make([]Month, 0, end.Index()-start.Index()+1)
	for m := start; !m.After(end); m = m.AddMonths(1) {
		out = append(out, m)
	}
	return out
}
