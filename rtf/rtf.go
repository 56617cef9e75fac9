// Package rtf extracts text, tables and pictures from RTF documents.
//
// The reader walks the token stream once. Destinations that hold no body
// text (font and color tables, document info, field instructions, headers
// and footers, and any unknown \* destination) are skipped. Table rows are
// collected from \trowd ... \cell ... \row with horizontal (\clmgf, \clmrg)
// and vertical (\clvmgf, \clvmrg) merges, and PNG or JPEG pictures are
// decoded from \pict groups.
package rtf

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"image"
	"os"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/encoding/charmap"

	"github.com/tsawler/docparse/model"
	"github.com/tsawler/docparse/ocr"
	"github.com/tsawler/docparse/tables"
)

// Document is the content of an RTF file.
type Document struct {
	Text   string
	Tables []*model.Table
	Images []image.Image
}

// Read parses the RTF file at path, decoding at most maxImages pictures.
func Read(path string, maxImages int) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return Parse(data, maxImages)
}

// Parse parses RTF data. Input without the {\rtf header is rejected.
func Parse(data []byte, maxImages int) (*Document, error) {
	head := bytes.TrimLeft(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")), " \t\r\n")
	if !bytes.HasPrefix(head, []byte(`{\rtf`)) {
		return nil, fmt.Errorf("missing {\\rtf header")
	}

	p := newParser(maxImages)
	p.run(head)
	return &Document{
		Text:   strings.TrimSpace(p.body.String()),
		Tables: p.tables,
		Images: p.images,
	}, nil
}

// Extract reads the file at path as a single body page with its tables and
// pictures.
func Extract(path string, maxImages int) (*model.Extraction, error) {
	ext := model.NewExtraction()
	doc, err := Read(path, maxImages)
	if err != nil {
		return ext, err
	}
	if doc.Text != "" {
		ext.AddPage(doc.Text)
	}
	ext.Tables = doc.Tables
	ext.Images = doc.Images
	return ext, nil
}

// skipDestinations hold no body text.
var skipDestinations = map[string]bool{
	"fonttbl": true, "colortbl": true, "stylesheet": true, "info": true,
	"listtable": true, "listoverridetable": true, "revtbl": true,
	"rsidtbl": true, "generator": true, "xmlnstbl": true, "mmathPr": true,
	"themedata": true, "colorschememapping": true, "datastore": true,
	"latentstyles": true, "pgdsctbl": true, "fldinst": true,
	"header": true, "headerl": true, "headerr": true, "headerf": true,
	"footer": true, "footerl": true, "footerr": true, "footerf": true,
	"footnote": true, "annotation": true, "atnid": true, "atnauthor": true,
	"bkmkstart": true, "bkmkend": true, "objdata": true, "nonshppict": true,
	"shpinst": true, "pntext": true, "pntxta": true, "pntxtb": true,
	"xe": true, "tc": true, "template": true, "userprops": true,
	"docvar": true, "filetbl": true, "ftnsep": true, "ftnsepc": true,
	"aftnsep": true, "aftnsepc": true,
}

// starredKnown are \* destinations whose content is read.
var starredKnown = map[string]bool{
	"shppict": true,
}

var specialChars = map[string]string{
	"emdash": "—", "endash": "–", "bullet": "•",
	"lquote": "‘", "rquote": "’",
	"ldblquote": "“", "rdblquote": "”",
	"emspace": " ", "enspace": " ", "qmspace": " ",
	"tab": "\t", "line": "\n", "page": "\n", "sect": "\n",
}

var codepages = map[int]*charmap.Charmap{
	437:   charmap.CodePage437,
	850:   charmap.CodePage850,
	1250:  charmap.Windows1250,
	1251:  charmap.Windows1251,
	1252:  charmap.Windows1252,
	1253:  charmap.Windows1253,
	1254:  charmap.Windows1254,
	1255:  charmap.Windows1255,
	1256:  charmap.Windows1256,
	1257:  charmap.Windows1257,
	1258:  charmap.Windows1258,
	10000: charmap.Macintosh,
}

type pictKind int

const (
	pictOther pictKind = iota
	pictPNG
	pictJPEG
)

type picture struct {
	kind   pictKind
	hex    bytes.Buffer
	binary []byte
}

type group struct {
	skip bool
	uc   int
	pict *picture
	// owner marks the group that opened pict.
	owner bool
}

type cellDef struct {
	hMerge, hFirst bool
	vMerge, vFirst bool
}

type parser struct {
	maxImages int
	cm        *charmap.Charmap

	stack []group
	cur   group

	destPending bool
	starred     bool
	ucSkip      int
	highSurr    rune

	body strings.Builder

	inTable   bool // \intbl
	inRow     bool // between \trowd and \row
	rowHeader bool
	defs      []cellDef
	pending   cellDef
	cell      strings.Builder
	rowCells  []string
	rows      [][]tables.MergeCell

	tables []*model.Table
	images []image.Image
}

func newParser(maxImages int) *parser {
	return &parser{
		maxImages: maxImages,
		cm:        charmap.Windows1252,
		cur:       group{uc: 1},
	}
}

func (p *parser) run(src []byte) {
	lx := &lexer{src: src}
	for {
		tok := lx.next()
		if tok.kind == tokEOF {
			break
		}
		p.handle(tok)
	}
	p.endRow()
	p.flushTable()
}

func (p *parser) handle(tok token) {
	switch tok.kind {
	case tokGroupStart:
		p.stack = append(p.stack, p.cur)
		child := group{skip: p.cur.skip, uc: p.cur.uc}
		if p.cur.pict != nil {
			child.skip = true
		}
		p.cur = child
		p.destPending, p.starred = true, false
		return
	case tokGroupEnd:
		if p.cur.owner {
			p.finishPicture(p.cur.pict)
		}
		if n := len(p.stack); n > 0 {
			p.cur = p.stack[n-1]
			p.stack = p.stack[:n-1]
		}
		p.destPending, p.starred = false, false
		return
	}

	if tok.kind == tokSymbol && tok.word == "*" && p.destPending {
		p.starred = true
		return
	}
	if tok.kind == tokControl && p.destPending {
		p.destPending = false
		if skipDestinations[tok.word] || (p.starred && !starredKnown[tok.word]) {
			p.cur.skip = true
			return
		}
		if tok.word == "pict" && !p.cur.skip {
			p.cur.pict, p.cur.owner = &picture{}, true
			return
		}
	}
	p.destPending = false

	if p.cur.skip {
		return
	}
	if p.cur.pict != nil {
		p.pictToken(tok)
		return
	}

	switch tok.kind {
	case tokControl:
		p.control(tok)
	case tokSymbol:
		p.symbol(tok.word)
	case tokHex:
		if p.ucSkip > 0 {
			p.ucSkip--
			return
		}
		p.write(string(p.cm.DecodeByte(tok.data[0])))
	case tokText:
		p.text(tok.data)
	}
}

func (p *parser) text(data []byte) {
	if p.ucSkip > 0 {
		n := min(p.ucSkip, len(data))
		p.ucSkip -= n
		data = data[n:]
	}
	if len(data) == 0 {
		return
	}
	var sb strings.Builder
	for _, b := range data {
		if b < 0x80 {
			sb.WriteByte(b)
		} else {
			sb.WriteRune(p.cm.DecodeByte(b))
		}
	}
	p.write(sb.String())
}

func (p *parser) symbol(s string) {
	switch s {
	case "~":
		p.write("\u00a0")
	case "_":
		p.write("-")
	case "\\", "{", "}":
		p.write(s)
	}
}

func (p *parser) control(tok token) {
	if s, ok := specialChars[tok.word]; ok {
		p.write(s)
		return
	}

	switch tok.word {
	case "par":
		p.write("\n")
	case "ansicpg":
		if cm, ok := codepages[tok.param]; ok {
			p.cm = cm
		}
	case "uc":
		if tok.hasParam && tok.param >= 0 {
			p.cur.uc = tok.param
		}
	case "u":
		p.unicode(tok.param)
	case "pard":
		p.inTable = false
	case "intbl":
		p.inTable = true
	case "trowd":
		p.inRow = true
		p.defs = p.defs[:0]
		p.pending = cellDef{}
		p.rowHeader = false
	case "trhdr":
		p.rowHeader = true
	case "clmgf":
		p.pending.hFirst = true
	case "clmrg":
		p.pending.hMerge = true
	case "clvmgf":
		p.pending.vFirst = true
	case "clvmrg":
		p.pending.vMerge = true
	case "cellx":
		p.defs = append(p.defs, p.pending)
		p.pending = cellDef{}
	case "cell":
		p.rowCells = append(p.rowCells, p.cell.String())
		p.cell.Reset()
	case "nestcell":
		p.write("\t")
	case "nestrow":
		p.write("\n")
	case "row":
		p.endRow()
	}
}

func (p *parser) unicode(v int) {
	if v < 0 {
		v += 65536
	}
	p.ucSkip = p.cur.uc
	r := rune(v)
	switch {
	case utf16.IsSurrogate(r) && r < 0xdc00:
		p.highSurr = r
		return
	case utf16.IsSurrogate(r) && p.highSurr != 0:
		r = utf16.DecodeRune(p.highSurr, r)
	}
	p.highSurr = 0
	p.write(string(r))
}

// write sends text to the current table cell or the body. Non-blank body
// text after table rows closes the table.
func (p *parser) write(s string) {
	if p.inTable || p.inRow {
		p.cell.WriteString(s)
		return
	}
	if len(p.rows) > 0 && strings.TrimSpace(s) != "" {
		p.flushTable()
	}
	p.body.WriteString(s)
}

func (p *parser) endRow() {
	if rest := strings.TrimSpace(p.cell.String()); rest != "" {
		p.rowCells = append(p.rowCells, rest)
	}
	p.cell.Reset()
	if len(p.rowCells) > 0 {
		p.rows = append(p.rows, p.buildRow())
	}
	p.rowCells = nil
	p.inRow = false
}

func (p *parser) buildRow() []tables.MergeCell {
	row := make([]tables.MergeCell, 0, len(p.rowCells))
	for i, text := range p.rowCells {
		var def cellDef
		if i < len(p.defs) {
			def = p.defs[i]
		}
		text = strings.TrimSpace(text)
		if def.hMerge && !def.hFirst && len(row) > 0 {
			last := &row[len(row)-1]
			last.ColSpan++
			if text != "" {
				last.Text = strings.TrimSpace(last.Text + " " + text)
			}
			continue
		}
		mc := tables.MergeCell{
			Cell:     model.NewCell(text),
			Continue: def.vMerge && !def.vFirst,
		}
		mc.IsHeader = p.rowHeader
		row = append(row, mc)
	}
	return row
}

func (p *parser) flushTable() {
	if len(p.rows) == 0 {
		return
	}
	if t := tables.CollapseVerticalMerges(p.rows); !t.IsEmpty() {
		p.tables = append(p.tables, t)
	}
	p.rows = nil
}

func (p *parser) pictToken(tok token) {
	pict := p.cur.pict
	switch tok.kind {
	case tokControl:
		switch tok.word {
		case "pngblip":
			pict.kind = pictPNG
		case "jpegblip":
			pict.kind = pictJPEG
		}
	case tokText:
		pict.hex.Write(tok.data)
	case tokBinary:
		pict.binary = append(pict.binary, tok.data...)
	}
}

func (p *parser) finishPicture(pict *picture) {
	if pict == nil || pict.kind == pictOther || len(p.images) >= p.maxImages {
		return
	}
	data := pict.binary
	if len(data) == 0 {
		clean := bytes.Map(func(r rune) rune {
			if r == ' ' || r == '\t' || r == '\r' || r == '\n' {
				return -1
			}
			return r
		}, pict.hex.Bytes())
		var err error
		if data, err = hex.DecodeString(string(clean)); err != nil {
			return
		}
	}
	if img, err := ocr.DecodeImage(bytes.NewReader(data)); err == nil {
		p.images = append(p.images, img)
	}
}
