package docx

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/tsawler/docparse/model"
)

// Containers whose children are read as if they were direct body content.
var transparent = map[string]bool{
	"sdt":        true,
	"sdtContent": true,
	"customXml":  true,
	"smartTag":   true,
	"ins":        true,
}

// parseBody walks word/document.xml and returns the body blocks in order.
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
			switch {
			case t.Name.Local == "body":
				inBody = true
			case !inBody, transparent[t.Name.Local]:
			case t.Name.Local == "p":
				p, err := parseParagraph(dec)
				if err != nil {
					return blocks, err
				}
				blocks = append(blocks, block{paragraph: p})
			case t.Name.Local == "tbl":
				tbl, err := parseTable(dec)
				if err != nil {
					return blocks, err
				}
				blocks = append(blocks, block{table: tbl})
			default:
				if err := dec.Skip(); err != nil {
					return blocks, err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "body" {
				inBody = false
			}
		}
	}
}

// parseParagraph reads a paragraph whose start element was just consumed.
// Field instructions and deleted text are dropped.
func parseParagraph(dec *xml.Decoder) (*paragraph, error) {
	p := &paragraph{}
	var sb strings.Builder
	depth := 1
	inText := false
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return p, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab", "ptab":
				sb.WriteByte('\t')
			case "br", "cr":
				sb.WriteByte('\n')
			case "noBreakHyphen":
				sb.WriteByte('-')
			case "blip", "imagedata":
				if id := relID(t); id != "" {
					p.Images = append(p.Images, id)
				}
			case "instrText", "delText", "pPr", "rPr", "Fallback":
				if err := dec.Skip(); err != nil {
					return p, err
				}
				depth--
			}
		case xml.EndElement:
			depth--
			if t.Name.Local == "t" {
				inText = false
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	p.Text = sb.String()
	return p, nil
}

func relID(t xml.StartElement) string {
	for _, a := range t.Attr {
		if a.Name.Local == "embed" || (t.Name.Local == "imagedata" && a.Name.Local == "id") {
			return a.Value
		}
	}
	return ""
}

// parseTable reads a table whose start element was just consumed. Nested
// tables are folded into the text of their enclosing cell.
func parseTable(dec *xml.Decoder) (*table, error) {
	tbl := &table{}
	for {
		tok, err := dec.Token()
		if err != nil {
			return tbl, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if transparent[t.Name.Local] {
				continue
			}
			if t.Name.Local != "tr" {
				if err := dec.Skip(); err != nil {
					return tbl, err
				}
				continue
			}
			row, err := parseRow(dec)
			if err != nil {
				return tbl, err
			}
			tbl.Rows = append(tbl.Rows, row)
		case xml.EndElement:
			if t.Name.Local == "tbl" {
				return tbl, nil
			}
		}
	}
}

func parseRow(dec *xml.Decoder) (tableRow, error) {
	var row tableRow
	for {
		tok, err := dec.Token()
		if err != nil {
			return row, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tblHeader":
				row.Header = onOff(t)
				if err := dec.Skip(); err != nil {
					return row, err
				}
			case "trPr", "sdt", "sdtContent", "customXml":
			case "tc":
				cell, err := parseCell(dec)
				if err != nil {
					return row, err
				}
				row.Cells = append(row.Cells, cell)
			default:
				if err := dec.Skip(); err != nil {
					return row, err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "tr" {
				return row, nil
			}
		}
	}
}

func parseCell(dec *xml.Decoder) (tableCell, error) {
	cell := tableCell{GridSpan: 1}
	var parts []string
	for {
		tok, err := dec.Token()
		if err != nil {
			return cell, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tcPr", "sdt", "sdtContent", "customXml":
			case "gridSpan":
				if n, err := strconv.Atoi(attr(t, "val")); err == nil && n > 0 {
					cell.GridSpan = min(n, model.MaxColSpan)
				}
				if err := dec.Skip(); err != nil {
					return cell, err
				}
			case "vMerge":
				cell.VMerge = "continue"
				if attr(t, "val") == "restart" {
					cell.VMerge = "restart"
				}
				if err := dec.Skip(); err != nil {
					return cell, err
				}
			case "p":
				p, err := parseParagraph(dec)
				if err != nil {
					return cell, err
				}
				if p.Text != "" {
					parts = append(parts, p.Text)
				}
				cell.Images = append(cell.Images, p.Images...)
			case "tbl":
				nested, err := parseTable(dec)
				if err != nil {
					return cell, err
				}
				if text := nested.text(); text != "" {
					parts = append(parts, text)
				}
			default:
				if err := dec.Skip(); err != nil {
					return cell, err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "tc" {
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

func attr(t xml.StartElement, local string) string {
	for _, a := range t.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func onOff(t xml.StartElement) bool {
	switch attr(t, "val") {
	case "", "1", "true", "on":
		return true
	}
	return false
}
