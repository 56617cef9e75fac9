// Package xlsx extracts worksheets from XLSX workbooks as tables.
package xlsx

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/tsawler/docparse/model"
	"github.com/tsawler/docparse/tables"
)

// Sheet is a worksheet rendered as a table. The first row is treated as the
// header row.
type Sheet struct {
	Name  string
	Table *model.Table
}

// Reader provides access to XLSX workbook content.
type Reader struct {
	file *excelize.File
}

// Open opens an XLSX file for reading.
func Open(filename string) (*Reader, error) {
	f, err := excelize.OpenFile(filename)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	return &Reader{file: f}, nil
}

// Close releases resources associated with the Reader.
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// Sheets returns the non-empty worksheets in workbook order. Sheets that
// cannot be read are skipped.
func (r *Reader) Sheets() []Sheet {
	var out []Sheet
	for _, name := range r.file.GetSheetList() {
		rows, err := r.file.GetRows(name)
		if err != nil {
			continue
		}
		merges, _ := r.file.GetMergeCells(name)
		t := buildTable(rows, mergeRegions(merges))
		if t.IsEmpty() {
			continue
		}
		out = append(out, Sheet{Name: name, Table: t})
	}
	return out
}

// Extract returns one body page per non-empty sheet. Each page holds the
// table's plain text with its HTML inline, the way delimited files are
// returned.
func (r *Reader) Extract() *model.Extraction {
	ext := model.NewExtraction()
	sheets := r.Sheets()
	for _, s := range sheets {
		ext.AddPage(tables.PlainText(s.Table), model.TableHTML(tables.HTML(s.Table)))
	}
	ext.SetMetric("xlsx_sheets", len(sheets))
	return ext
}

// region is a merged range in zero-based coordinates, inclusive.
type region struct {
	top, left, bottom, right int
}

func mergeRegions(merges []excelize.MergeCell) []region {
	out := make([]region, 0, len(merges))
	for _, m := range merges {
		c1, r1, err := excelize.CellNameToCoordinates(m.GetStartAxis())
		if err != nil {
			continue
		}
		c2, r2, err := excelize.CellNameToCoordinates(m.GetEndAxis())
		if err != nil {
			continue
		}
		out = append(out, region{
			top: min(r1, r2) - 1, left: min(c1, c2) - 1,
			bottom: max(r1, r2) - 1, right: max(c1, c2) - 1,
		})
	}
	return out
}

// buildTable turns a ragged grid of cell values into a table. The top-left
// cell of a merged region carries the spans; the cells it covers are
// omitted. Leading and trailing empty rows and trailing empty cells are
// dropped; the first remaining row is the header.
func buildTable(rows [][]string, merges []region) *model.Table {
	height := len(rows)
	for height > 0 && blank(rows[height-1]) && !mergeStartsIn(merges, height-1) {
		height--
	}
	start := 0
	for start < height && blank(rows[start]) && !mergeStartsIn(merges, start) {
		start++
	}

	// Merged ranges may reach far past the data, as in A1:XFD1048576;
	// only the part inside the used area is expanded.
	maxWidth := 0
	for i := start; i < height; i++ {
		maxWidth = max(maxWidth, len(rows[i]))
	}
	roots := make(map[[2]int]region, len(merges))
	covered := make(map[[2]int]bool)
	for _, m := range merges {
		if m.top < start || m.top >= height {
			continue
		}
		m.bottom = min(m.bottom, height-1, m.top+model.MaxRowSpan-1)
		m.right = min(m.right, max(maxWidth-1, m.left), m.left+model.MaxColSpan-1)
		roots[[2]int{m.top, m.left}] = m
		for r := m.top; r <= m.bottom; r++ {
			for c := m.left; c <= m.right; c++ {
				if r != m.top || c != m.left {
					covered[[2]int{r, c}] = true
				}
			}
		}
	}

	t := &model.Table{Rows: make([][]model.Cell, 0, height-start)}
	for i := start; i < height; i++ {
		width := len(rows[i])
		for _, m := range merges {
			if m.top == i && m.left >= width {
				width = m.left + 1
			}
		}

		var cells []model.Cell
		for j := 0; j < width; j++ {
			if covered[[2]int{i, j}] {
				continue
			}
			text := ""
			if j < len(rows[i]) {
				text = strings.TrimSpace(rows[i][j])
			}
			cell := model.NewCell(text)
			if m, ok := roots[[2]int{i, j}]; ok {
				cell.ColSpan = m.right - m.left + 1
				cell.RowSpan = m.bottom - m.top + 1
			}
			cell.IsHeader = i == start
			cells = append(cells, cell)
		}
		for len(cells) > 0 && cells[len(cells)-1].Text == "" && cells[len(cells)-1].ColSpan == 1 && cells[len(cells)-1].RowSpan == 1 {
			cells = cells[:len(cells)-1]
		}
		t.AddRow(cells...)
	}
	return t
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func mergeStartsIn(merges []region, row int) bool {
	for _, m := range merges {
		if m.top == row {
			return true
		}
	}
	return false
}
