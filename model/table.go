package model

import "strings"

// Table represents a table as read from structural markup or detected by
// heuristics. Each row lists the cells that start in that row, left to right.
type Table struct {
	Rows [][]Cell
}

// Cell represents a table cell
type Cell struct {
	Text     string
	ColSpan  int
	RowSpan  int
	IsHeader bool
}

// NewCell returns a 1x1 cell.
func NewCell(text string) Cell {
	return Cell{Text: text, ColSpan: 1, RowSpan: 1}
}

// Span limits, as browsers apply them to colspan and rowspan.
const (
	MaxColSpan = 1000
	MaxRowSpan = 65534
)

// Spans returns the cell's column and row span, treating values below one
// as one and clamping to MaxColSpan and MaxRowSpan.
func (c Cell) Spans() (cols, rows int) {
	return min(max(c.ColSpan, 1), MaxColSpan), min(max(c.RowSpan, 1), MaxRowSpan)
}

// NewTableFromStrings builds a table of 1x1 cells. When header is true the
// first row is flagged as a header row.
func NewTableFromStrings(rows [][]string, header bool) *Table {
	t := &Table{Rows: make([][]Cell, 0, len(rows))}
	for i, r := range rows {
		row := make([]Cell, len(r))
		for j, s := range r {
			row[j] = NewCell(s)
			row[j].IsHeader = header && i == 0
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// AddRow appends a row of cells.
func (t *Table) AddRow(cells ...Cell) {
	t.Rows = append(t.Rows, cells)
}

// RowCount returns the number of rows
func (t *Table) RowCount() int {
	return len(t.Rows)
}

// IsEmpty reports whether no cell carries any text.
func (t *Table) IsEmpty() bool {
	for _, row := range t.Rows {
		for _, c := range row {
			if strings.TrimSpace(c.Text) != "" {
				return false
			}
		}
	}
	return true
}
