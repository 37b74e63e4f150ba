// Package metrics derives the headline time series from the fact tables:
// national total sales with its growth rates, and the concentration of
// state-level growth.
package metrics

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/retail-cli/internal/facts"
	"github.com/sells-group/retail-cli/internal/period"
)

// Point is one month of a series. A nil Value is undefined for that month.
type Point struct {
	Month period.Month
	Value *float64
}

// Series is a month-ordered sequence of points with distinct months.
type Series []Point

// At returns the value for m, or nil when m is absent or undefined.
func (s Series) At(m period.Month) *float64 {
	i := sort.Search(len(s), func(i int) bool { return !s[i].Month.Before(m) })
	if i < len(s) && s[i].Month == m {
		return s[i].Value
	}
	return nil
}

// Latest returns the last point, or the zero point for an empty series.
func (s Series) Latest() Point {
	if len(s) == 0 {
		return Point{}
	}
	return s[len(s)-1]
}

// TrailingMean averages the defined values for months in (end-n, end].
// It is nil when no such value exists.
func (s Series) TrailingMean(end period.Month, n int) *float64 {
	start := end.AddMonths(-n)
	var vals []float64
	for _, p := range s {
		if p.Value != nil && p.Month.After(start) && !p.Month.After(end) {
			vals = append(vals, *p.Value)
		}
	}
	if len(vals) == 0 {
		return nil
	}
	m := stat.Mean(vals, nil)
	return &m
}

// TotalSales sums national sales across industries for each month.
func TotalSales(rows []facts.NationalRow) Series {
	totals := make(map[period.Month]float64)
	for _, r := range rows {
		m := r.Month()
		if m.IsZero() {
			continue
		}
		totals[m] += r.SalesAmount
	}

	s := make(Series, 0, len(totals))
	for m, v := range totals {
		s = append(s, Point{Month: m, Value: ptr(v)})
	}
	sort.Slice(s, func(i, j int) bool { return s[i].Month.Before(s[j].Month) })
	return s
}

// PctChange returns the percentage change of each point against the point lag
// months earlier. It is nil when the earlier month is missing or zero.
func PctChange(s Series, lag int) Series {
	out := make(Series, len(s))
	for i, p := range s {
		out[i] = Point{Month: p.Month}
		prev := s.At(p.Month.AddMonths(-lag))
		if p.Value == nil || prev == nil || *prev == 0 {
			continue
		}
		out[i].Value = ptr((*p.Value - *prev) / *prev * 100)
	}
	return out
}

// TopShare returns, per month, the share (%) of positive state growth held by
// the n fastest-growing states. Each state's growth is first averaged across
// industries and negative growth counts as zero. A month with no positive
// growth is nil.
func TopShare(rows []facts.StateRow, n int) Series {
	type key struct {
		Month period.Month
		State string
	}
	sums := make(map[key][]float64)
	for _, r := range rows {
		m := r.Month()
		if m.IsZero() || r.YoYPct == nil {
			continue
		}
		k := key{m, r.State}
		sums[k] = append(sums[k], *r.YoYPct)
	}

	byMonth := make(map[period.Month][]float64)
	for _, r := range rows {
		m := r.Month()
		if _, ok := byMonth[m]; !ok && !m.IsZero() {
			byMonth[m] = nil
		}
	}
	for k, vals := range sums {
		byMonth[k.Month] = append(byMonth[k.Month], max(stat.Mean(vals, nil), 0))
	}

	s := make(Series, 0, len(byMonth))
	for m, growth := range byMonth {
		p := Point{Month: m}
		sort.Sort(sort.Reverse(sort.Float64Slice(growth)))
		if total := floats.Sum(growth); total > 0 {
			p.Value = ptr(floats.Sum(growth[:min(n, len(growth))]) / total * 100)
		}
		s = append(s, p)
	}
	sort.Slice(s, func(i, j int) bool { return s[i].Month.Before(s[j].Month) })
	return s
}

func ptr(v float64) *float64 { return &v }
