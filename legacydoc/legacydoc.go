// Package legacydoc extracts text and tables from Word 97-2003 binary
// documents (.doc).
//
// The file is an OLE2 compound file. Text is located through the piece
// table in the table stream (0Table or 1Table, as selected by the FIB).
// When the piece table cannot be used, printable runs are scanned directly
// from the WordDocument stream. Field instructions are removed, and cell
// marks (0x07) are turned into table rows.
package legacydoc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"slices"
	"strings"
	"unicode/utf16"

	"github.com/richardlehane/mscfb"
	"golang.org/x/text/encoding/charmap"

	"github.com/tsawler/docparse/model"
	"github.com/tsawler/docparse/ocr"
)

var (
	// ErrNotWord is returned when the file has no WordDocument stream or
	// its FIB is not a Word 97+ FIB.
	ErrNotWord = errors.New("legacydoc: not a Word binary document")

	// ErrEncrypted is returned for password protected documents.
	ErrEncrypted = errors.New("legacydoc: document is encrypted")
)

// FIB offsets.
const (
	fibIdent    = 0x0000
	fibFlags    = 0x000A
	fibCcpText  = 0x004C
	fibFcClx    = 0x01A2
	fibLcbClx   = 0x01A6
	wordIdent   = 0xA5EC
	flagWhichTb = 0x0200
	flagCrypt   = 0x0100
)

// maxPieceChars bounds a single piece.
const maxPieceChars = 1 << 24

// Document is the content of a .doc file.
type Document struct {
	Text   string
	Tables []*model.Table
	Images []image.Image
	// PieceTable reports whether text came from the piece table rather
	// than the direct scan.
	PieceTable bool
}

// Read parses the .doc file at path, decoding at most maxImages pictures
// found in its Data stream.
func Read(path string, maxImages int) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	cf, err := mscfb.New(f)
	if err != nil {
		return nil, fmt.Errorf("reading compound file: %w", err)
	}

	streams := make(map[string][]byte)
	for entry, err := cf.Next(); err == nil; entry, err = cf.Next() {
		switch entry.Name {
		case "WordDocument", "0Table", "1Table", "Data":
			if _, seen := streams[entry.Name]; seen {
				continue
			}
			data, rerr := io.ReadAll(entry)
			if rerr != nil {
				return nil, fmt.Errorf("reading %s stream: %w", entry.Name, rerr)
			}
			streams[entry.Name] = data
		}
	}

	word := streams["WordDocument"]
	if len(word) < fibLcbClx+4 || binary.LittleEndian.Uint16(word[fibIdent:]) != wordIdent {
		return nil, ErrNotWord
	}
	flags := binary.LittleEndian.Uint16(word[fibFlags:])
	if flags&flagCrypt != 0 {
		return nil, ErrEncrypted
	}
	tableName := "0Table"
	if flags&flagWhichTb != 0 {
		tableName = "1Table"
	}

	doc := &Document{}
	chars, ok := pieceText(word, streams[tableName])
	if ok {
		doc.PieceTable = true
		if ccp := int(binary.LittleEndian.Uint32(word[fibCcpText:])); ccp > 0 && ccp < len(chars) {
			chars = chars[:ccp]
		}
		doc.Text, doc.Tables = layout(chars)
	} else {
		doc.Text = filterFieldCodes(directText(word))
	}
	doc.Images = scanImages(streams["Data"], maxImages)
	return doc, nil
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
	ext.SetMetric("doc_piece_table", doc.PieceTable)
	return ext, nil
}

// pieceText decodes the document text through the piece table. It
// reports false when the CLX is missing or inconsistent.
func pieceText(word, table []byte) ([]rune, bool) {
	fc := int(binary.LittleEndian.Uint32(word[fibFcClx:]))
	lcb := int(binary.LittleEndian.Uint32(word[fibLcbClx:]))
	if lcb == 0 || fc < 0 || lcb < 0 || fc+lcb > len(table) {
		return nil, false
	}
	clx := table[fc : fc+lcb]

	// Skip Prc entries to reach the Pcdt.
	pos := 0
	for pos < len(clx) && clx[pos] == 0x01 {
		if pos+3 > len(clx) {
			return nil, false
		}
		pos += 3 + int(binary.LittleEndian.Uint16(clx[pos+1:]))
	}
	if pos+5 > len(clx) || clx[pos] != 0x02 {
		return nil, false
	}
	size := int(binary.LittleEndian.Uint32(clx[pos+1:]))
	pos += 5
	if size < 16 || pos+size > len(clx) || (size-4)%12 != 0 {
		return nil, false
	}
	plc := clx[pos : pos+size]
	n := (size - 4) / 12

	var out []rune
	for i := 0; i < n; i++ {
		cpStart := binary.LittleEndian.Uint32(plc[i*4:])
		cpEnd := binary.LittleEndian.Uint32(plc[(i+1)*4:])
		if cpEnd <= cpStart || cpEnd-cpStart > maxPieceChars {
			continue
		}
		count := int(cpEnd - cpStart)

		pcd := plc[(n+1)*4+i*8:]
		raw := binary.LittleEndian.Uint32(pcd[2:])
		offset := int(raw & 0x3FFFFFFF)

		if raw&0x40000000 != 0 {
			// 8-bit Windows-1252 text at fc/2.
			offset /= 2
			if offset+count > len(word) {
				continue
			}
			for _, b := range word[offset : offset+count] {
				out = append(out, charmap.Windows1252.DecodeByte(b))
			}
			continue
		}

		if offset+2*count > len(word) {
			continue
		}
		units := make([]uint16, count)
		for j := range units {
			units[j] = binary.LittleEndian.Uint16(word[offset+2*j:])
		}
		out = append(out, utf16.Decode(units)...)
	}
	return out, len(out) > 0
}

// Special characters in the text stream.
const (
	chCell       = 0x07
	chPara       = 0x0D
	chLineBreak  = 0x0B
	chPageBreak  = 0x0C
	chFieldBegin = 0x13
	chFieldSep   = 0x14
	chFieldEnd   = 0x15
	chNBHyphen   = 0x1E
	chSoftHyphen = 0x1F
)

// layout turns the text stream into body text and tables. Field
// instructions (between a field begin and its separator) are dropped and
// field results kept. A cell mark ends a cell and a second cell mark right
// after one ends the row. Paragraph marks inside a row separate lines of a
// cell; a paragraph after a completed row ends the table.
func layout(chars []rune) (string, []*model.Table) {
	var (
		body   strings.Builder
		para   strings.Builder
		cell   []string
		row    []string
		rows   [][]string
		tabs   []*model.Table
		fields []bool // per open field: true while in its instructions
		prev   rune
	)

	flushTable := func() {
		if len(rows) == 0 {
			return
		}
		if t := model.NewTableFromStrings(rows, false); !t.IsEmpty() {
			tabs = append(tabs, t)
		}
		rows = nil
	}

	for _, r := range chars {
		if r == chFieldBegin {
			fields = append(fields, true)
			prev = r
			continue
		}
		if len(fields) > 0 {
			switch r {
			case chFieldSep:
				fields[len(fields)-1] = false
				prev = r
				continue
			case chFieldEnd:
				fields = fields[:len(fields)-1]
				prev = r
				continue
			}
			if slices.Contains(fields, true) {
				continue
			}
		}

		switch r {
		case chCell:
			if prev == chCell && para.Len() == 0 && len(cell) == 0 {
				if len(row) > 0 {
					rows = append(rows, row)
				}
				row = nil
			} else {
				cell = append(cell, para.String())
				row = append(row, strings.TrimSpace(strings.Join(cell, "\n")))
				cell = nil
				para.Reset()
			}
		case chPara:
			if len(row) > 0 {
				cell = append(cell, para.String())
			} else {
				flushTable()
				body.WriteString(para.String())
				body.WriteByte('\n')
			}
			para.Reset()
		case chLineBreak, chPageBreak:
			para.WriteByte('\n')
		case chNBHyphen:
			para.WriteByte('-')
		case '\t':
			para.WriteByte('\t')
		default:
			if r >= 0x20 && r != chSoftHyphen && r != 0xFFFD {
				para.WriteRune(r)
			}
		}
		prev = r
	}

	if len(row) > 0 {
		rows = append(rows, row)
	}
	flushTable()
	body.WriteString(para.String())
	return strings.TrimSpace(body.String()), tabs
}

// directText scans the WordDocument stream for printable runs of at least
// four bytes, one run per line.
func directText(word []byte) string {
	var sb strings.Builder
	start := -1
	flush := func(end int) {
		if start >= 0 && end-start >= 4 {
			sb.Write(word[start:end])
			sb.WriteByte('\n')
		}
		start = -1
	}
	for i, b := range word {
		printable := b >= 0x20 && b < 0x7F || b == '\t'
		switch {
		case printable && start < 0:
			start = i
		case !printable:
			flush(i)
		}
	}
	flush(len(word))
	return strings.TrimSpace(sb.String())
}

// fieldCodeMarkers identify lines of leaked field instructions.
var fieldCodeMarkers = []string{
	"HYPERLINK", "PAGEREF", "MERGEFORMAT", "TOC \\o", "TOC \\h", "\\l \"", " \\h",
}

// filterFieldCodes drops lines containing field instructions.
func filterFieldCodes(text string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		keep := true
		for _, m := range fieldCodeMarkers {
			if strings.Contains(line, m) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

var (
	pngMagic  = []byte("\x89PNG\r\n\x1a\n")
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
)

// scanImages decodes PNG and JPEG pictures embedded in the Data stream.
func scanImages(data []byte, limit int) []image.Image {
	var images []image.Image
	for pos := 0; pos < len(data) && len(images) < limit; {
		i := nextMagic(data[pos:])
		if i < 0 {
			break
		}
		start := pos + i
		if img, err := ocr.DecodeImage(bytes.NewReader(data[start:])); err == nil {
			images = append(images, img)
		}
		pos = start + 1
	}
	return images
}

func nextMagic(data []byte) int {
	p := bytes.Index(data, pngMagic)
	j := bytes.Index(data, jpegMagic)
	switch {
	case p < 0:
		return j
	case j < 0:
		return p
	}
	return min(p, j)
}
