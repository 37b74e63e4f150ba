package facts

import (
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/retail-cli/internal/fetcher"
	"github.com/sells-group/retail-cli/internal/period"
	"github.com/sells-group/retail-cli/internal/reference"
	"github.com/sells-group/retail-cli/internal/reshape"
)

// stateColumns are the accepted spellings of the state header, compared lowercased.
var stateColumns = []string{"state", "state_abbr", "stateabbr", "state_name"}

// StateBuilder parses the state survey exports into the state fact table.
type StateBuilder struct {
	Mapper Mapper
	Window period.Window
	CSV    fetcher.CSVOptions
}

// Build concatenates every file in dir (CSV, or the first sheet of a
// workbook), melts the YYYYMM columns, and averages duplicates within the
// (date, state, region, industry) grain. Rows whose industry or region does
// not map are dropped; a non-numeric growth value is kept as null.
func (b *StateBuilder) Build(dir string) ([]StateRow, error) {
	log := zap.L().With(zap.String("component", "state"))

	files, err := listFiles(dir)
	if err != nil {
		return nil, err
	}

	tables := make([]*reshape.Table, 0, len(files))
	for _, path := range files {
		tbl, err := b.readTable(path)
		if err != nil {
			return nil, err
		}
		tables = append(tables, tbl)
	}
	raw := reshape.Concat(tables...)

	stateCol, ok := raw.FindColumn(stateColumns...)
	if !ok {
		return nil, eris.Wrapf(ErrNoStateColumn, "state: columns %v", raw.Columns)
	}
	ids := []string{stateCol}
	naicsCol, hasNAICS := raw.FindColumnContaining("naics")
	if hasNAICS {
		ids = append(ids, naicsCol)
	}

	long, err := reshape.MeltWide(raw, ids)
	if err != nil {
		return nil, eris.Wrap(err, "state: melt")
	}

	rows := make([]StateRow, 0, len(long))
	for _, lr := range long {
		if !b.Window.Contains(lr.Month) {
			continue
		}
		state := strings.TrimSpace(lr.Keys[0])
		if state == "" {
			continue
		}
		industry := reference.TotalRetail
		if hasNAICS {
			mapped, found := b.Mapper.Industry(lr.Keys[1])
			if !found {
				continue
			}
			industry = mapped
		}
		region, found := b.Mapper.Region(state)
		if !found {
			continue
		}

		row := StateRow{Date: lr.Month.String(), State: state, Region: region, Industry: industry}
		if v, ok := reshape.ParseNumber(lr.Value); ok {
			row.YoYPct = &v
		}
		rows = append(rows, row)
	}

	out := AggregateState(rows)
	log.Debug("state rows built",
		zap.Int("melted", len(long)),
		zap.Int("kept", len(rows)),
		zap.Int("rows", len(out)),
	)
	return out, nil
}

func (b *StateBuilder) readTable(path string) (*reshape.Table, error) {
	var records [][]string
	var err error
	if isWorkbook(path) {
		records, err = fetcher.ReadXLSX(path, fetcher.XLSXOptions{})
	} else {
		records, err = fetcher.ReadCSVFile(path, b.CSV)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "state: %s", path)
	}
	tbl, err := reshape.NewTable(records)
	if err != nil {
		return nil, eris.Wrapf(err, "state: %s", path)
	}
	return tbl, nil
}

// AggregateState averages growth within each (date, state, region, industry),
// ignoring nulls, and returns the rows sorted by that key. A group with only
// null values stays null. Aggregating already-aggregated rows is a no-op.
func AggregateState(rows []StateRow) []StateRow {
	type key struct{ Date, State, Region, Industry string }
	acc := newAccumulator[key]()
	for _, r := range rows {
		k := key{r.Date, r.State, r.Region, r.Industry}
		if r.YoYPct == nil {
			acc.add(k, 0, false)
			continue
		}
		acc.add(k, *r.YoYPct, true)
	}

	out := make([]StateRow, 0, len(acc.keys))
	for _, k := range acc.keys {
		row := StateRow{Date: k.Date, State: k.State, Region: k.Region, Industry: k.Industry}
		if v, ok := acc.mean(k); ok {
			row.YoYPct = &v
		}
		out = append(out, row)
	}
	SortState(out)
	return out
}
