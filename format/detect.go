// Package format provides byte-signature file format detection.
//
// Detection never looks at the file name. [Detect] reads the first 4KB of a
// file and classifies it; anything unrecognized, and any read failure, is
// reported as [TXT]. ZIP archives are ambiguous containers and can be
// resolved further with [DetectContainer].
package format

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// HeadSize is the number of leading bytes inspected by Detect.
const HeadSize = 4096

// Format represents a detected document format.
type Format int

const (
	// TXT is plain text and the fallback for anything unrecognized.
	TXT Format = iota
	PDF
	PNG
	JPG
	// ZIP is an archive whose contents have not been inspected.
	ZIP
	RTF
	HTML
	CSV
	// DOC is an OLE2 compound file, usually a Word 97-2003 document.
	DOC
	TIFF
	BMP
	GIF
	WEBP

	// Container formats, only returned by DetectContainer.
	DOCX
	ODT
	XLSX
)

// String returns the string representation of the format.
func (f Format) String() string {
	switch f {
	case PDF:
		return "pdf"
	case PNG:
		return "png"
	case JPG:
		return "jpg"
	case ZIP:
		return "zip"
	case RTF:
		return "rtf"
	case HTML:
		return "html"
	case CSV:
		return "csv"
	case DOC:
		return "doc"
	case TIFF:
		return "tiff"
	case BMP:
		return "bmp"
	case GIF:
		return "gif"
	case WEBP:
		return "webp"
	case DOCX:
		return "docx"
	case ODT:
		return "odt"
	case XLSX:
		return "xlsx"
	default:
		return "txt"
	}
}

// IsImage reports whether the format is a raster image.
func (f Format) IsImage() bool {
	switch f {
	case PNG, JPG, TIFF, BMP, GIF, WEBP:
		return true
	}
	return false
}

// Detect classifies the file at path from its first HeadSize bytes.
// It returns TXT when the file cannot be read.
func Detect(path string) Format {
	f, err := os.Open(path)
	if err != nil {
		return TXT
	}
	defer f.Close()

	head := make([]byte, HeadSize)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return TXT
	}
	return DetectFromMagic(head[:n])
}

// DetectFile is Detect followed by DetectContainer for ZIP archives.
func DetectFile(path string) Format {
	f := Detect(path)
	if f != ZIP {
		return f
	}
	file, err := os.Open(path)
	if err != nil {
		return ZIP
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return ZIP
	}
	resolved, err := DetectContainer(file, info.Size())
	if err != nil {
		return ZIP
	}
	return resolved
}

// DetectFromMagic classifies leading file bytes. Only the first HeadSize
// bytes are considered.
func DetectFromMagic(data []byte) Format {
	if len(data) > HeadSize {
		data = data[:HeadSize]
	}

	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return PNG
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return JPG
	case bytes.HasPrefix(data, []byte("PK\x03\x04")):
		return ZIP
	case bytes.HasPrefix(data, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}):
		return DOC
	case bytes.HasPrefix(data, []byte("GIF87a")), bytes.HasPrefix(data, []byte("GIF89a")):
		return GIF
	case bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")):
		return TIFF
	case len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) && string(data[8:12]) == "WEBP":
		return WEBP
	case isBMP(data):
		return BMP
	}

	// Some producers put junk before the PDF header.
	if bytes.Contains(data[:min(len(data), 1024)], []byte("%PDF-")) {
		return PDF
	}

	text := bytes.TrimPrefix(data, []byte("\xEF\xBB\xBF"))
	text = bytes.TrimLeft(text, " \t\r\n")

	if bytes.HasPrefix(text, []byte(`{\rtf`)) {
		return RTF
	}
	if detectHTMLMagic(text) {
		return HTML
	}
	if detectCSV(text, len(data) == HeadSize) {
		return CSV
	}
	return TXT
}

func isBMP(data []byte) bool {
	if len(data) < 18 || data[0] != 'B' || data[1] != 'M' {
		return false
	}
	// DIB header size distinguishes real bitmaps from text starting with "BM".
	switch uint32(data[14]) | uint32(data[15])<<8 | uint32(data[16])<<16 | uint32(data[17])<<24 {
	case 12, 40, 52, 56, 64, 108, 124:
		return true
	}
	return false
}

// htmlTags are tag names accepted as the first element of an HTML fragment.
var htmlTags = []string{
	"<!doctype html", "<html", "<head", "<body", "<table", "<div", "<p>", "<p ",
	"<meta", "<title", "<!--", "<h1", "<h2", "<ul", "<section", "<article",
}

// detectHTMLMagic checks if the data looks like HTML content.
func detectHTMLMagic(data []byte) bool {
	if len(data) == 0 || data[0] != '<' {
		return false
	}
	lower := strings.ToLower(string(data[:min(len(data), 512)]))

	// XML declaration followed by html-like content could be XHTML
	if strings.HasPrefix(lower, "<?xml") {
		return strings.Contains(lower, "<html")
	}
	for _, tag := range htmlTags {
		if strings.HasPrefix(lower, tag) {
			if tag == "<!--" {
				return strings.Contains(lower, "<html") || strings.Contains(lower, "<body")
			}
			return true
		}
	}
	return false
}

// csvDelimiters are tried in order when sniffing delimited text.
var csvDelimiters = []rune{',', ';', '\t', '|'}

// detectCSV reports whether at least two leading lines parse to the same
// number (>= 2) of fields for one of the candidate delimiters.
func detectCSV(data []byte, truncated bool) bool {
	if len(data) == 0 || !utf8.Valid(trimPartialRune(data)) || bytes.IndexByte(data, 0) >= 0 {
		return false
	}
	if truncated {
		// Drop the last, probably partial, line.
		if i := bytes.LastIndexByte(data, '\n'); i > 0 {
			data = data[:i]
		}
	}
	_, ok := SniffDelimiter(data)
	return ok
}

// SniffDelimiter returns the delimiter under which up to the first 10
// records of data all have the same field count of at least two. Samples
// that read as prose are rejected: half or more of the records carrying a
// sentence, or a two-record, two-field sample with a field of four or more
// words. Pipe-framed lines ("| a | b |") are left to the text table
// detector.
func SniffDelimiter(data []byte) (rune, bool) {
	for _, d := range csvDelimiters {
		if bytes.IndexRune(data, d) < 0 {
			continue
		}
		if recs, ok := sniffRecords(data, d); ok && !prose(recs) && !(d == '|' && framed(recs)) {
			return d, true
		}
	}
	return 0, false
}

// sniffRecords reads up to 10 records and reports whether they share a
// field count of at least two.
func sniffRecords(data []byte, d rune) ([][]string, bool) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = d
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	var recs [][]string
	for len(recs) < 10 {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false
		}
		if len(recs) > 0 && len(rec) != len(recs[0]) {
			return nil, false
		}
		recs = append(recs, rec)
	}
	return recs, len(recs) >= 2 && len(recs[0]) >= 2
}

func prose(recs [][]string) bool {
	sentences, wordy := 0, false
	for _, rec := range recs {
		hasSentence := false
		for _, f := range rec {
			if len(strings.Fields(f)) < 4 {
				continue
			}
			wordy = true
			if f = strings.TrimSpace(f); strings.ContainsAny(f[len(f)-1:], ".!?") {
				hasSentence = true
			}
		}
		if hasSentence {
			sentences++
		}
	}
	if sentences*2 >= len(recs) {
		return true
	}
	return wordy && len(recs) == 2 && len(recs[0]) == 2
}

// framed reports whether every record starts and ends with the delimiter.
func framed(recs [][]string) bool {
	for _, rec := range recs {
		if strings.TrimSpace(rec[0]) != "" || strings.TrimSpace(rec[len(rec)-1]) != "" {
			return false
		}
	}
	return true
}

// trimPartialRune removes a trailing incomplete UTF-8 sequence left by
// cutting the head at a byte boundary.
func trimPartialRune(data []byte) []byte {
	for i := 0; i < utf8.UTFMax && i < len(data); i++ {
		if utf8.Valid(data[:len(data)-i]) {
			return data[:len(data)-i]
		}
	}
	return data
}

// DetectContainer inspects a ZIP archive to determine if it's DOCX, XLSX or
// ODT. Other archives are reported as ZIP.
func DetectContainer(r io.ReaderAt, size int64) (Format, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return ZIP, err
	}

	// OpenDocument stores its mimetype in a dedicated entry.
	for _, f := range zr.File {
		if f.Name == "mimetype" {
			rc, err := f.Open()
			if err == nil {
				data := make([]byte, 256)
				n, _ := io.ReadFull(rc, data)
				rc.Close()
				if strings.Contains(string(data[:n]), "application/vnd.oasis.opendocument.text") {
					return ODT, nil
				}
			}
		}
	}

	for _, f := range zr.File {
		switch {
		case strings.HasPrefix(f.Name, "word/"):
			return DOCX, nil
		case strings.HasPrefix(f.Name, "xl/"):
			return XLSX, nil
		}
	}

	return ZIP, nil
}
