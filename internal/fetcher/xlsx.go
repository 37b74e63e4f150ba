package fetcher

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// XLSXOptions configures the XLSX reader.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

// Workbook is an opened XLSX file.
type Workbook struct {
	f *xlsx.File
}

// OpenXLSX opens the workbook at path.
func OpenXLSX(path string) (*Workbook, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	return &Workbook{f: f}, nil
}

// SheetNames returns the sheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	names := make([]string, len(w.f.Sheets))
	for i, s := range w.f.Sheets {
		names[i] = s.Name
	}
	return names
}

// HasSheet reports whether the workbook contains a sheet with the given name.
func (w *Workbook) HasSheet(name string) bool {
	_, ok := w.f.Sheet[name]
	return ok
}

// Rows returns the selected sheet as cell strings. Numbers come back at full
// stored precision; dates and text keep their displayed form.
func (w *Workbook) Rows(opts XLSXOptions) ([][]string, error) {
	sheet, err := getSheet(w.f, opts)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		rows = append(rows, rowToStrings(row))
	}
	return rows, nil
}

// ReadXLSX reads one sheet of the XLSX file at path.
func ReadXLSX(path string, opts XLSXOptions) ([][]string, error) {
	wb, err := OpenXLSX(path)
	if err != nil {
		return nil, err
	}
	return wb.Rows(opts)
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	if row == nil {
		return nil
	}
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cellText(cell)
	}
	return cells
}

// cellText ignores the display format of numeric cells, which may round
// (e.g. "#,##0"). Date-formatted cells are rendered as shown.
func cellText(cell *xlsx.Cell) string {
	if cell == nil {
		return ""
	}
	if cell.Type() == xlsx.CellTypeNumeric && !cell.IsTime() {
		if f, err := cell.Float(); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
	}
	return cell.String()
}
