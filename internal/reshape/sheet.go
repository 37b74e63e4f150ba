package reshape

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrNoHeaderRow is returned when no row of a sheet mentions January.
var ErrNoHeaderRow = eris.New("reshape: unable to locate month header row")

// Fixed names for the first two columns of a survey sheet.
const (
	CodeColumn  = "naics"
	LabelColumn = "kind_of_business"
)

// SheetHeader describes the layout of one yearly survey sheet.
type SheetHeader struct {
	Row          int      // index of the header row in the raw sheet
	Columns      []string // CodeColumn, LabelColumn, then literal header text
	MonthColumns []int    // indexes of columns whose header mentions the year
}

// FindHeaderRow returns the index of the first row with a cell containing
// "jan" (case-insensitive).
func FindHeaderRow(rows [][]string) (int, error) {
	for i, row := range rows {
		for _, cell := range row {
			if strings.Contains(strings.ToLower(cell), "jan") {
				return i, nil
			}
		}
	}
	return -1, ErrNoHeaderRow
}

// ParseSheetHeader locates the month header row of a raw sheet and names its
// columns. Columns other than the first two keep their header text and are
// month columns when that text contains year.
func ParseSheetHeader(rows [][]string, year int) (*SheetHeader, error) {
	hdr, err := FindHeaderRow(rows)
	if err != nil {
		return nil, eris.Wrapf(err, "sheet %d", year)
	}

	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}

	h := &SheetHeader{Row: hdr, Columns: make([]string, width)}
	yearText := strconv.Itoa(year)
	for i := range width {
		switch i {
		case 0:
			h.Columns[i] = CodeColumn
		case 1:
			h.Columns[i] = LabelColumn
		default:
			h.Columns[i] = strings.TrimSpace(Cell(rows[hdr], i))
			if strings.Contains(h.Columns[i], yearText) {
				h.MonthColumns = append(h.MonthColumns, i)
			}
		}
	}
	if len(h.MonthColumns) == 0 {
		return nil, eris.Errorf("reshape: no month columns detected for %d", year)
	}
	return h, nil
}

// DataRows returns the rows below the header, skipping the units row that
// directly follows it.
func (h *SheetHeader) DataRows(rows [][]string) [][]string {
	start := h.Row + 2
	if start >= len(rows) {
		return nil
	}
	return rows[start:]
}
