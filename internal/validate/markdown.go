package validate

import (
	"strings"
	"unicode/utf8"
)

// Table is a small pipe table. Columns flagged in Numeric are right-aligned.
type Table struct {
	Header  []string
	Numeric []bool
	Rows    [][]string
}

// Markdown renders t as a padded pipe table.
func (t Table) Markdown() string {
	widths := make([]int, len(t.Header))
	for i, h := range t.Header {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range t.Rows {
		for i := range widths {
			if i < len(row) {
				widths[i] = max(widths[i], utf8.RuneCountInString(row[i]))
			}
		}
	}

	var b strings.Builder
	t.writeRow(&b, t.Header, widths)
	b.WriteString("|")
	for i, w := range widths {
		if t.numeric(i) {
			b.WriteString(strings.Repeat("-", w+1) + ":|")
		} else {
			b.WriteString(":" + strings.Repeat("-", w+1) + "|")
		}
	}
	b.WriteString("\n")
	for _, row := range t.Rows {
		t.writeRow(&b, row, widths)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (t Table) writeRow(b *strings.Builder, cells []string, widths []int) {
	b.WriteString("|")
	for i, w := range widths {
		var cell string
		if i < len(cells) {
			cell = cells[i]
		}
		pad := strings.Repeat(" ", w-utf8.RuneCountInString(cell))
		if t.numeric(i) {
			b.WriteString(" " + pad + cell + " |")
		} else {
			b.WriteString(" " + cell + pad + " |")
		}
	}
	b.WriteString("\n")
}

func (t Table) numeric(i int) bool {
	return i < len(t.Numeric) && t.Numeric[i]
}
