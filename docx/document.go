package docx

// relationshipsXML represents word/_rels/document.xml.rels.
type relationshipsXML struct {
	Relationships []relationshipXML `xml:"Relationship"`
}

// relationshipXML maps a relationship ID to a package part.
type relationshipXML struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

// block is a top-level body element in document order.
type block struct {
	paragraph *paragraph
	table     *table
}

// paragraph holds the text of a <w:p> and the images it references.
type paragraph struct {
	Text   string
	Images []string // relationship IDs
}

// table is a parsed <w:tbl>.
type table struct {
	Rows []tableRow
}

type tableRow struct {
	Header bool
	Cells  []tableCell
}

// tableCell is a <w:tc>. A cell continuing a vertical merge carries no
// text of its own.
type tableCell struct {
	Text     string
	GridSpan int
	VMerge   string // "", "restart" or "continue"
	Images   []string
}
