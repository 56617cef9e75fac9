package docx

import (
	"testing"

	"github.com/tsawler/docparse/model"
	"github.com/tsawler/docparse/tables"
)

func cellXML(text, props string) string {
	return `<w:tc><w:tcPr>` + props + `</w:tcPr>` + para(text) + `</w:tc>`
}

func readTables(t *testing.T, body string) []*model.Table {
	t.Helper()
	r, err := Open(createTestDOCX(t, body, nil))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()
	return r.Tables()
}

func TestTables_GridSpan(t *testing.T) {
	body := `<w:tbl><w:tblPr/><w:tblGrid><w:gridCol/><w:gridCol/></w:tblGrid>
<w:tr>` + cellXML("Wide", `<w:gridSpan w:val="2"/>`) + `</w:tr>
<w:tr>` + cellXML("a", "") + cellXML("b", "") + `</w:tr>
</w:tbl>`

	tables := readTables(t, body)
	if len(tables) != 1 {
		t.Fatalf("got %d tables, want 1", len(tables))
	}
	rows := tables[0].Rows
	if len(rows) != 2 || len(rows[0]) != 1 || len(rows[1]) != 2 {
		t.Fatalf("unexpected shape: %+v", rows)
	}
	if rows[0][0].Text != "Wide" || rows[0][0].ColSpan != 2 || rows[0][0].RowSpan != 1 {
		t.Errorf("spanning cell = %+v", rows[0][0])
	}
}

func TestTables_GridSpanClamped(t *testing.T) {
	body := `<w:tbl>
<w:tr>` + cellXML("Huge", `<w:gridSpan w:val="2147483647"/>`) + `</w:tr>
<w:tr>` + cellXML("a", "") + `</w:tr>
</w:tbl>`

	tbl := readTables(t, body)[0]
	if got := tbl.Rows[0][0].ColSpan; got != model.MaxColSpan {
		t.Fatalf("ColSpan = %d, want %d", got, model.MaxColSpan)
	}
	grid := tables.Flatten(tbl)
	if len(grid) != 2 {
		t.Fatalf("Flatten() rows = %d, want 2", len(grid))
	}
	if len(grid[0]) != model.MaxColSpan {
		t.Errorf("Flatten() width = %d, want %d", len(grid[0]), model.MaxColSpan)
	}
}

func TestTables_VerticalMerge(t *testing.T) {
	body := `<w:tbl>
<w:tr>` + cellXML("Group", `<w:vMerge w:val="restart"/>`) + cellXML("x", "") + `</w:tr>
<w:tr>` + cellXML("", `<w:vMerge/>`) + cellXML("y", "") + `</w:tr>
<w:tr>` + cellXML("", `<w:vMerge w:val="continue"/>`) + cellXML("z", "") + `</w:tr>
</w:tbl>`

	rows := readTables(t, body)[0].Rows
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0][0].Text != "Group" || rows[0][0].RowSpan != 3 {
		t.Errorf("merge start = %+v, want rowspan 3", rows[0][0])
	}
	for i := 1; i < 3; i++ {
		if len(rows[i]) != 1 {
			t.Errorf("row %d has %d cells, want 1", i, len(rows[i]))
		}
	}
	if rows[2][0].Text != "z" {
		t.Errorf("rows[2][0] = %q, want z", rows[2][0].Text)
	}
}

func TestTables_HeaderRow(t *testing.T) {
	body := `<w:tbl>
<w:tr><w:trPr><w:tblHeader/></w:trPr>` + cellXML("Name", "") + cellXML("Qty", "") + `</w:tr>
<w:tr><w:trPr><w:tblHeader w:val="0"/></w:trPr>` + cellXML("bolt", "") + cellXML("4", "") + `</w:tr>
</w:tbl>`

	rows := readTables(t, body)[0].Rows
	if !rows[0][0].IsHeader || !rows[0][1].IsHeader {
		t.Errorf("first row should be header: %+v", rows[0])
	}
	if rows[1][0].IsHeader {
		t.Errorf("second row should not be header")
	}
}

func TestTables_MultiParagraphAndNestedCell(t *testing.T) {
	body := `<w:tbl><w:tr><w:tc>` + para("line one") + para("line two") + `</w:tc>
<w:tc><w:tbl><w:tr><w:tc>` + para("in") + `</w:tc><w:tc>` + para("ner") + `</w:tc></w:tr></w:tbl></w:tc></w:tr></w:tbl>`

	tables := readTables(t, body)
	if len(tables) != 1 {
		t.Fatalf("nested tables should fold into the outer cell, got %d tables", len(tables))
	}
	row := tables[0].Rows[0]
	if row[0].Text != "line one\nline two" {
		t.Errorf("cell 0 = %q", row[0].Text)
	}
	if row[1].Text != "in\tner" {
		t.Errorf("cell 1 = %q", row[1].Text)
	}
}

func TestTables_EmptyTableDropped(t *testing.T) {
	body := `<w:tbl><w:tr>` + cellXML("", "") + cellXML("  ", "") + `</w:tr></w:tbl>`
	if got := readTables(t, body); len(got) != 0 {
		t.Errorf("got %d tables, want 0", len(got))
	}
}
