package docx

import (
	"strings"

	"github.com/tsawler/docparse/model"
	"github.com/tsawler/docparse/tables"
)

// toModelTable converts a parsed table into a model table. Horizontal
// merges become colspans, vMerge continuation cells are folded into the
// rowspan of the cell that starts the merge, and rows marked as repeating
// headers produce header cells.
func toModelTable(t *table) *model.Table {
	rows := make([][]tables.MergeCell, 0, len(t.Rows))
	for _, row := range t.Rows {
		cells := make([]tables.MergeCell, 0, len(row.Cells))
		for _, c := range row.Cells {
			mc := tables.MergeCell{
				Cell:     model.NewCell(strings.TrimSpace(c.Text)),
				Continue: c.VMerge == "continue",
			}
			mc.ColSpan = c.GridSpan
			mc.IsHeader = row.Header
			cells = append(cells, mc)
		}
		rows = append(rows, cells)
	}
	return tables.CollapseVerticalMerges(rows)
}
