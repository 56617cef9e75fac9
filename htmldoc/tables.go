package htmldoc

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/tsawler/docparse/model"
)

// table reads a <table> element. Cells in <thead> and <th> cells are
// headers; spans are kept as written.
func (w *walker) table(n *html.Node) *model.Table {
	t := &model.Table{}
	var rows func(n *html.Node, header bool)
	rows = func(n *html.Node, header bool) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode || w.check.exclude(c) {
				continue
			}
			switch c.Data {
			case "thead":
				rows(c, true)
			case "tbody", "tfoot":
				rows(c, header)
			case "tr":
				if row := w.row(c, header); len(row) > 0 {
					t.AddRow(row...)
				}
			}
		}
	}
	rows(n, false)
	return t
}

func (w *walker) row(tr *html.Node, header bool) []model.Cell {
	var cells []model.Cell
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || (c.Data != "td" && c.Data != "th") {
			continue
		}
		cell := model.NewCell(w.cellText(c))
		cell.ColSpan = spanAttr(c, "colspan", model.MaxColSpan)
		cell.RowSpan = spanAttr(c, "rowspan", model.MaxRowSpan)
		cell.IsHeader = header || c.Data == "th"
		cells = append(cells, cell)
	}
	return cells
}

// cellText renders a cell's content with a nested walker so that block
// structure and nested tables become lines of the cell text.
func (w *walker) cellText(n *html.Node) string {
	sub := &walker{check: w.check, maxImages: w.maxImages, nested: true, images: w.images}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sub.walk(c)
	}
	w.images = sub.images
	return strings.TrimSpace(trimLines(sub.text.String()))
}

// spanAttr parses a span attribute; missing, invalid or zero values mean 1.
func spanAttr(n *html.Node, key string, limit int) int {
	v, err := strconv.Atoi(strings.TrimSpace(getAttr(n, key)))
	if err != nil || v < 1 {
		return 1
	}
	return min(v, limit)
}
