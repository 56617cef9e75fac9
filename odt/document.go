package odt

// ODF XML namespaces
const (
	nsOffice = "urn:oasis:names:tc:opendocument:xmlns:office:1.0"
	nsText   = "urn:oasis:names:tc:opendocument:xmlns:text:1.0"
	nsTable  = "urn:oasis:names:tc:opendocument:xmlns:table:1.0"
	nsDraw   = "urn:oasis:names:tc:opendocument:xmlns:drawing:1.0"
	nsXLink  = "http://www.w3.org/1999/xlink"
)

// maxRepeat caps number-columns-repeated for cells that carry text.
const maxRepeat = 64

// block is a top-level body element in document order.
type block struct {
	paragraph *paragraph
	table     *table
}

// paragraph is a text:p or text:h with the images anchored in it.
type paragraph struct {
	Text   string
	Images []string // package paths such as Pictures/x.png
}

type table struct {
	Rows []tableRow
}

type tableRow struct {
	Header bool
	Cells  []tableCell
}

// tableCell is a table:table-cell. Covered cells are not recorded.
type tableCell struct {
	Text    string
	ColSpan int
	RowSpan int
	Images  []string
}
