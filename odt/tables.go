package odt

import (
	"strings"

	"github.com/tsawler/docparse/model"
)

// toModelTable converts a parsed table. ODF states spans on the starting
// cell and writes covered cells for the rest, so spans carry over directly.
func toModelTable(t *table) *model.Table {
	out := &model.Table{Rows: make([][]model.Cell, 0, len(t.Rows))}
	for _, row := range t.Rows {
		cells := make([]model.Cell, 0, len(row.Cells))
		for _, c := range row.Cells {
			cell := model.NewCell(strings.TrimSpace(c.Text))
			cell.ColSpan, cell.RowSpan = c.ColSpan, c.RowSpan
			cell.IsHeader = row.Header
			cells = append(cells, cell)
		}
		out.AddRow(cells...)
	}
	return out
}
