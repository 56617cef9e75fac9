package odt

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/tsawler/docparse/model"
)

// Text-namespace containers whose paragraphs are read as body content.
var transparent = map[string]bool{
	"list":               true,
	"list-item":          true,
	"list-header":        true,
	"section":            true,
	"index-body":         true,
	"table-of-content":   true,
	"illustration-index": true,
	"alphabetical-index": true,
	"bibliography":       true,
}

// Elements dropped together with their content.
var skipped = map[string]bool{
	"tracked-changes":         true,
	"sequence-decls":          true,
	"variable-decls":          true,
	"index-title-template":    true,
	"table-of-content-source": true,
	"note-citation":           true,
	"annotation":              true,
	"annotation-end":          true,
	"desc":                    true,
}

// parseBody streams content.xml and returns the office:text blocks in order.
func parseBody(r io.Reader) ([]block, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false

	var blocks []block
	inBody := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return blocks, nil
		}
		if err != nil {
			return blocks, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space == nsOffice && t.Name.Local == "text" {
				inBody = true
				continue
			}
			if !inBody {
				continue
			}
			switch {
			case t.Name.Space == nsText && (t.Name.Local == "p" || t.Name.Local == "h"):
				p, err := parseParagraph(dec)
				if err != nil {
					return blocks, err
				}
				blocks = append(blocks, block{paragraph: p})
			case t.Name.Space == nsTable && t.Name.Local == "table":
				tbl, err := parseTable(dec)
				if err != nil {
					return blocks, err
				}
				blocks = append(blocks, block{table: tbl})
			case t.Name.Space == nsText && transparent[t.Name.Local]:
			default:
				if err := dec.Skip(); err != nil {
					return blocks, err
				}
			}
		case xml.EndElement:
			if t.Name.Space == nsOffice && t.Name.Local == "text" {
				inBody = false
			}
		}
	}
}

// parseParagraph reads a paragraph or heading whose start element was just
// consumed. text:s, text:tab and text:line-break become whitespace; frames
// contribute their image paths and any caption text.
func parseParagraph(dec *xml.Decoder) (*paragraph, error) {
	p := &paragraph{}
	var sb strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return p, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch {
			case skipped[t.Name.Local]:
				if err := dec.Skip(); err != nil {
					return p, err
				}
				depth--
			case t.Name.Space == nsText && t.Name.Local == "s":
				n := 1
				if v, err := strconv.Atoi(attr(t, nsText, "c")); err == nil && v > 0 {
					n = v
				}
				sb.WriteString(strings.Repeat(" ", n))
			case t.Name.Space == nsText && t.Name.Local == "tab":
				sb.WriteByte('\t')
			case t.Name.Space == nsText && t.Name.Local == "line-break":
				sb.WriteByte('\n')
			case t.Name.Space == nsDraw && t.Name.Local == "image":
				if href := attr(t, nsXLink, "href"); href != "" {
					p.Images = append(p.Images, href)
				}
			case t.Name.Space == nsText && (t.Name.Local == "p" || t.Name.Local == "h"):
				// Paragraphs nested in text boxes or captions.
				if sb.Len() > 0 {
					sb.WriteByte('\n')
				}
			}
		case xml.EndElement:
			depth--
		case xml.CharData:
			if strings.TrimSpace(string(t)) == "" {
				if len(t) > 0 && sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				continue
			}
			sb.WriteString(leading(t))
			sb.WriteString(collapseSpace(t))
		}
	}
	p.Text = strings.TrimSpace(sb.String())
	return p, nil
}

// collapseSpace folds runs of source whitespace into one space, as ODF
// consumers do. Explicit spacing comes from text:s and text:tab.
func collapseSpace(b []byte) string {
	return strings.Join(strings.Fields(string(b)), " ") + trailing(b)
}

func trailing(b []byte) string {
	if len(b) > 0 && strings.TrimSpace(string(b)) != "" && isSpace(b[len(b)-1]) {
		return " "
	}
	return ""
}

func leading(b []byte) string {
	if len(b) > 0 && isSpace(b[0]) {
		return " "
	}
	return ""
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// parseTable reads a table whose start element was just consumed. Nested
// tables are folded into the text of the enclosing cell.
func parseTable(dec *xml.Decoder) (*table, error) {
	tbl := &table{}
	header := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return tbl, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != nsTable {
				if err := dec.Skip(); err != nil {
					return tbl, err
				}
				continue
			}
			switch t.Name.Local {
			case "table-header-rows":
				header++
			case "table-rows", "table-row-group":
			case "table-row":
				row, err := parseRow(dec, header > 0)
				if err != nil {
					return tbl, err
				}
				if len(row.Cells) == 0 {
					continue
				}
				repeat := atoiDefault(attr(t, nsTable, "number-rows-repeated"), 1)
				if rowEmpty(row) || repeat > maxRepeat {
					repeat = 1
				}
				for i := 0; i < repeat; i++ {
					tbl.Rows = append(tbl.Rows, row)
				}
			default:
				if err := dec.Skip(); err != nil {
					return tbl, err
				}
			}
		case xml.EndElement:
			if t.Name.Space != nsTable {
				continue
			}
			switch t.Name.Local {
			case "table-header-rows":
				header--
			case "table":
				return tbl, nil
			}
		}
	}
}

func parseRow(dec *xml.Decoder, header bool) (tableRow, error) {
	row := tableRow{Header: header}
	for {
		tok, err := dec.Token()
		if err != nil {
			return row, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != nsTable || t.Name.Local != "table-cell" {
				// covered-table-cell and anything else.
				if err := dec.Skip(); err != nil {
					return row, err
				}
				continue
			}
			cell, err := parseCell(dec, t)
			if err != nil {
				return row, err
			}
			repeat := atoiDefault(attr(t, nsTable, "number-columns-repeated"), 1)
			if strings.TrimSpace(cell.Text) == "" || repeat > maxRepeat {
				repeat = 1
			}
			for i := 0; i < repeat; i++ {
				row.Cells = append(row.Cells, cell)
			}
		case xml.EndElement:
			if t.Name.Space == nsTable && t.Name.Local == "table-row" {
				trimTrailingEmpty(&row)
				return row, nil
			}
		}
	}
}

func parseCell(dec *xml.Decoder, start xml.StartElement) (tableCell, error) {
	cell := tableCell{
		ColSpan: min(atoiDefault(attr(start, nsTable, "number-columns-spanned"), 1), model.MaxColSpan),
		RowSpan: min(atoiDefault(attr(start, nsTable, "number-rows-spanned"), 1), model.MaxRowSpan),
	}
	var parts []string
	for {
		tok, err := dec.Token()
		if err != nil {
			return cell, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Space == nsText && (t.Name.Local == "p" || t.Name.Local == "h"):
				p, err := parseParagraph(dec)
				if err != nil {
					return cell, err
				}
				if p.Text != "" {
					parts = append(parts, p.Text)
				}
				cell.Images = append(cell.Images, p.Images...)
			case t.Name.Space == nsTable && t.Name.Local == "table":
				nested, err := parseTable(dec)
				if err != nil {
					return cell, err
				}
				if text := nested.text(); text != "" {
					parts = append(parts, text)
				}
			case t.Name.Space == nsText && transparent[t.Name.Local]:
			default:
				if err := dec.Skip(); err != nil {
					return cell, err
				}
			}
		case xml.EndElement:
			if t.Name.Space == nsTable && t.Name.Local == "table-cell" {
				cell.Text = strings.Join(parts, "\n")
				return cell, nil
			}
		}
	}
}

// text renders a table as tab-separated lines.
func (t *table) text() string {
	lines := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		cells := make([]string, 0, len(row.Cells))
		for _, c := range row.Cells {
			cells = append(cells, strings.ReplaceAll(c.Text, "\n", " "))
		}
		lines = append(lines, strings.Join(cells, "\t"))
	}
	return strings.Join(lines, "\n")
}

func rowEmpty(row tableRow) bool {
	for _, c := range row.Cells {
		if strings.TrimSpace(c.Text) != "" {
			return false
		}
	}
	return true
}

// trimTrailingEmpty drops empty unspanned cells at the end of a row, which
// spreadsheet-style tables pad out to the sheet width.
func trimTrailingEmpty(row *tableRow) {
	n := len(row.Cells)
	for n > 1 {
		c := row.Cells[n-1]
		if strings.TrimSpace(c.Text) != "" || c.ColSpan > 1 || c.RowSpan > 1 || len(c.Images) > 0 {
			break
		}
		n--
	}
	row.Cells = row.Cells[:n]
}

func attr(t xml.StartElement, space, local string) string {
	for _, a := range t.Attr {
		if a.Name.Space == space && a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}
