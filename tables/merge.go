package tables

import "github.com/tsawler/docparse/model"

// MergeCell is a cell as read from formats that mark vertical merges on the
// continuing cells (DOCX vMerge, RTF clvmrg) instead of with a rowspan.
type MergeCell struct {
	model.Cell
	// Continue marks a cell that continues the merge started above it.
	Continue bool
}

// CollapseVerticalMerges drops continuation cells and adds their rows to the
// rowspan of the cell that starts the merge in the same column. A
// continuation with nothing above it is kept as an ordinary cell.
func CollapseVerticalMerges(rows [][]MergeCell) *model.Table {
	type ref struct{ row, idx int }

	t := &model.Table{Rows: make([][]model.Cell, 0, len(rows))}
	owner := make(map[int]ref)

	for _, row := range rows {
		out := make([]model.Cell, 0, len(row))
		col := 0
		for _, mc := range row {
			cs, _ := mc.Spans()
			if mc.Continue {
				if r, ok := owner[col]; ok {
					t.Rows[r.row][r.idx].RowSpan++
					col += cs
					continue
				}
			}
			cell := mc.Cell
			cell.ColSpan, cell.RowSpan = cs, 1
			out = append(out, cell)
			owner[col] = ref{row: len(t.Rows), idx: len(out) - 1}
			col += cs
		}
		t.Rows = append(t.Rows, out)
	}
	return t
}
