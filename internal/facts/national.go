package facts

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/retail-cli/internal/fetcher"
	"github.com/sells-group/retail-cli/internal/period"
	"github.com/sells-group/retail-cli/internal/reference"
	"github.com/sells-group/retail-cli/internal/reshape"
)

type nationalKey struct {
	Month    period.Month
	Industry string
}

// nationalFragment is one parsed (month, industry, amount) observation before
// window filtering.
type nationalFragment struct {
	nationalKey
	Amount float64
	Valid  bool
}

// NationalBuilder parses the national survey sources into the national fact table.
type NationalBuilder struct {
	Mapper     Mapper
	Window     period.Window
	SheetYears []int
	CSV        fetcher.CSVOptions
}

// Build reads every file in dir. Workbooks contribute one sheet per configured
// year; any other file is read as a flat CSV export.
func (b *NationalBuilder) Build(dir string) ([]NationalRow, error) {
	log := zap.L().With(zap.String("component", "national"))

	files, err := listFiles(dir)
	if err != nil {
		return nil, err
	}

	var frags []nationalFragment
	parsed := 0
	for _, path := range files {
		var part []nationalFragment
		var ok bool
		if isWorkbook(path) {
			part, ok, err = b.parseWorkbook(path)
		} else {
			part, ok, err = b.parseFlatFile(path)
		}
		if err != nil {
			return nil, err
		}
		if ok {
			parsed++
		}
		log.Debug("parsed source", zap.String("path", path), zap.Int("rows", len(part)))
		frags = append(frags, part...)
	}
	if parsed == 0 {
		return nil, eris.Errorf("national: no parsable sources in %s", dir)
	}

	var rows []NationalRow
	dropped := 0
	for _, f := range frags {
		if !f.Valid || !b.Window.Contains(f.Month) {
			dropped++
			continue
		}
		rows = append(rows, NationalRow{Date: f.Month.String(), Industry: f.Industry, SalesAmount: f.Amount})
	}
	rows = AggregateNational(rows)

	log.Debug("national rows built", zap.Int("rows", len(rows)), zap.Int("dropped", dropped))
	return rows, nil
}

func (b *NationalBuilder) parseWorkbook(path string) ([]nationalFragment, bool, error) {
	wb, err := fetcher.OpenXLSX(path)
	if err != nil {
		return nil, false, eris.Wrapf(err, "national: %s", path)
	}

	var out []nationalFragment
	found := false
	for _, year := range b.SheetYears {
		name := strconv.Itoa(year)
		if !wb.HasSheet(name) {
			zap.L().Debug("sheet absent, skipping", zap.String("path", path), zap.String("sheet", name))
			continue
		}
		rows, err := wb.Rows(fetcher.XLSXOptions{SheetName: name})
		if err != nil {
			return nil, false, eris.Wrapf(err, "national: %s", path)
		}
		part, err := b.parseSheet(rows, year)
		if err != nil {
			return nil, false, eris.Wrapf(err, "national: %s", path)
		}
		out = append(out, part...)
		found = true
	}
	if !found {
		zap.L().Warn("workbook has no expected year sheet",
			zap.String("path", path),
			zap.Ints("years", b.SheetYears),
			zap.Strings("sheets", wb.SheetNames()),
		)
	}
	return out, found, nil
}

// parseSheet turns one yearly survey sheet into per-(month, industry) sums.
// Rows with no numeric month or no code are notes and subtotals; rows whose
// code does not map are dropped.
func (b *NationalBuilder) parseSheet(rows [][]string, year int) ([]nationalFragment, error) {
	h, err := reshape.ParseSheetHeader(rows, year)
	if err != nil {
		return nil, err
	}

	months := make([]period.Month, len(h.MonthColumns))
	for j, ci := range h.MonthColumns {
		months[j] = reshape.ParseMonthLabel(h.Columns[ci])
	}

	acc := newAccumulator[nationalKey]()
	values := make([]float64, len(h.MonthColumns))
	valid := make([]bool, len(h.MonthColumns))
	for _, row := range h.DataRows(rows) {
		numeric := false
		for j, ci := range h.MonthColumns {
			values[j], valid[j] = reshape.ParseNumber(reshape.Cell(row, ci))
			numeric = numeric || valid[j]
		}
		if !numeric {
			continue
		}
		code := strings.TrimSpace(reshape.Cell(row, 0))
		if code == "" {
			continue
		}
		industry, ok := b.Mapper.Industry(code)
		if !ok {
			continue
		}
		for j, m := range months {
			if m.IsZero() {
				continue
			}
			acc.add(nationalKey{Month: m, Industry: industry}, values[j], valid[j])
		}
	}

	out := make([]nationalFragment, 0, len(acc.keys))
	for _, k := range acc.keys {
		v, ok := acc.total(k)
		out = append(out, nationalFragment{nationalKey: k, Amount: v, Valid: ok})
	}
	return out, nil
}

// parseFlatFile reads a long-format CSV export. The date column is an exact
// "date"/"month" header, else the first header containing either word. Files
// lacking a date or value column are skipped.
func (b *NationalBuilder) parseFlatFile(path string) ([]nationalFragment, bool, error) {
	records, err := fetcher.ReadCSVFile(path, b.CSV)
	if err != nil {
		return nil, false, eris.Wrapf(err, "national: %s", path)
	}
	tbl, err := reshape.NewTable(records)
	if err != nil {
		return nil, false, eris.Wrapf(err, "national: %s", path)
	}

	dateCol, ok := tbl.FindColumn("date", "month")
	if !ok {
		dateCol, ok = tbl.FindColumnContaining("date", "month")
	}
	valueCol, hasValue := tbl.FindColumnContaining("sales", "value")
	if !ok || !hasValue {
		zap.L().Warn("skipping file without date and value columns", zap.String("path", path))
		return nil, false, nil
	}
	naicsCol, hasNAICS := tbl.FindColumnContaining("naics")

	di, vi, ni := tbl.Index(dateCol), tbl.Index(valueCol), tbl.Index(naicsCol)
	out := make([]nationalFragment, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		industry := reference.TotalRetail
		if hasNAICS {
			mapped, found := b.Mapper.Industry(reshape.Cell(row, ni))
			if !found {
				continue
			}
			industry = mapped
		}
		v, valid := reshape.ParseNumber(reshape.Cell(row, vi))
		out = append(out, nationalFragment{
			nationalKey: nationalKey{Month: reshape.ParseDate(reshape.Cell(row, di)), Industry: industry},
			Amount:      v,
			Valid:       valid,
		})
	}
	return out, true, nil
}

// AggregateNational sums sales within each (date, industry) and returns the
// rows sorted by that key.
func AggregateNational(rows []NationalRow) []NationalRow {
	type key struct{ Date, Industry string }
	acc := newAccumulator[key]()
	for _, r := range rows {
		acc.add(key{r.Date, r.Industry}, r.SalesAmount, true)
	}

	out := make([]NationalRow, 0, len(acc.keys))
	for _, k := range acc.keys {
		v, _ := acc.total(k)
		out = append(out, NationalRow{Date: k.Date, Industry: k.Industry, SalesAmount: v})
	}
	SortNational(out)
	return out
}
