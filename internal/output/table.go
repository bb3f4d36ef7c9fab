package output

import (
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

const (
	columnGap = "  "
	ellipsis  = "..."
)

// cellWidth measures in terminal cells. Ambiguous-width runes count as one
// regardless of the locale so output is stable across machines.
var cellWidth = &runewidth.Condition{StrictEmojiNeutral: true}

// Table lays out rows in aligned columns for text output.
type Table struct {
	headers []string
	right   map[int]bool
	whole   map[int]bool
	rows    [][]string
	limit   int
}

// NewTable creates a table with the given column headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers, right: map[int]bool{}, whole: map[int]bool{}}
}

// AddRow appends a row. Rows may be shorter or longer than the header.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// AlignRight right-aligns column col, for numeric amounts.
func (t *Table) AlignRight(col int) {
	t.right[col] = true
}

// SetMaxCellWidth shortens cells wider than n cells, ending them with "...".
// Zero disables the limit.
func (t *Table) SetMaxCellWidth(n int) {
	t.limit = n
}

// KeepWhole exempts column col from SetMaxCellWidth. Links and other
// values that are useless once cut go in such columns.
func (t *Table) KeepWhole(col int) {
	t.whole[col] = true
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the header, a dashed rule and every row.
func (t *Table) Render(w io.Writer) error {
	lines := make([][]string, 0, len(t.rows)+1)
	if len(t.headers) > 0 {
		lines = append(lines, t.headers)
	}
	for _, r := range t.rows {
		lines = append(lines, r)
	}
	if len(lines) == 0 {
		return nil
	}

	cells := make([][]string, len(lines))
	var widths []int
	for i, line := range lines {
		cells[i] = make([]string, len(line))
		for j, c := range line {
			if !t.whole[j] {
				c = t.fit(c)
			}
			cells[i][j] = c
			if j >= len(widths) {
				widths = append(widths, 0)
			}
			widths[j] = max(widths[j], cellWidth.StringWidth(c))
		}
	}

	var b strings.Builder
	for i, line := range cells {
		t.writeLine(&b, line, widths)
		if i == 0 && len(t.headers) > 0 {
			rule := make([]string, len(widths))
			for j, n := range widths {
				rule[j] = strings.Repeat("-", n)
			}
			b.WriteString(strings.Join(rule, columnGap))
			b.WriteByte('\n')
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// String returns the rendered table.
func (t *Table) String() string {
	var sb strings.Builder
	_ = t.Render(&sb)
	return sb.String()
}

func (t *Table) fit(s string) string {
	if t.limit <= 0 || cellWidth.StringWidth(s) <= t.limit {
		return s
	}
	if t.limit <= len(ellipsis) {
		return cellWidth.Truncate(s, t.limit, "")
	}
	return cellWidth.Truncate(s, t.limit, ellipsis)
}

func (t *Table) writeLine(b *strings.Builder, line []string, widths []int) {
	padded := make([]string, len(widths))
	for j, n := range widths {
		var c string
		if j < len(line) {
			c = line[j]
		}
		if t.right[j] {
			padded[j] = cellWidth.FillLeft(c, n)
		} else {
			padded[j] = cellWidth.FillRight(c, n)
		}
	}
	b.WriteString(strings.TrimRight(strings.Join(padded, columnGap), " "))
	b.WriteByte('\n')
}
