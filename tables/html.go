package tables

import (
	"html"
	"strconv"
	"strings"

	"github.com/tsawler/docparse/model"
)

// HTML renders t as a bordered HTML table. Leading rows whose cells are all
// flagged as headers go into a thead with th cells.
func HTML(t *model.Table) string {
	if t == nil || len(t.Rows) == 0 {
		return ""
	}

	headerRows := 0
	for _, row := range t.Rows {
		if !isHeaderRow(row) {
			break
		}
		headerRows++
	}

	var sb strings.Builder
	sb.WriteString(`<table border="1">`)
	if headerRows > 0 {
		sb.WriteString("<thead>")
		for _, row := range t.Rows[:headerRows] {
			writeRow(&sb, row, "th")
		}
		sb.WriteString("</thead>")
	}
	if headerRows < len(t.Rows) {
		sb.WriteString("<tbody>")
		for _, row := range t.Rows[headerRows:] {
			writeRow(&sb, row, "td")
		}
		sb.WriteString("</tbody>")
	}
	sb.WriteString("</table>")
	return sb.String()
}

func isHeaderRow(row []model.Cell) bool {
	if len(row) == 0 {
		return false
	}
	for _, c := range row {
		if !c.IsHeader {
			return false
		}
	}
	return true
}

func writeRow(sb *strings.Builder, row []model.Cell, tag string) {
	sb.WriteString("<tr>")
	for _, c := range row {
		sb.WriteString("<")
		sb.WriteString(tag)
		cs, rs := c.Spans()
		if cs > 1 {
			sb.WriteString(` colspan="` + strconv.Itoa(cs) + `"`)
		}
		if rs > 1 {
			sb.WriteString(` rowspan="` + strconv.Itoa(rs) + `"`)
		}
		sb.WriteString(">")
		sb.WriteString(strings.ReplaceAll(html.EscapeString(c.Text), "\n", "<br>"))
		sb.WriteString("</" + tag + ">")
	}
	sb.WriteString("</tr>")
}
