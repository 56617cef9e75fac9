// Package htmldoc extracts text, tables and inline images from HTML.
//
// Markup is first sanitized with bluemonday, which removes scripts, styles
// and page chrome together with their content. The sanitized tree is then
// walked to produce block-aware text, where block elements start new lines,
// and tables with their colspan and rowspan attributes.
package htmldoc

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"os"
	"strings"

	"golang.org/x/net/html"

	"github.com/tsawler/docparse/model"
	"github.com/tsawler/docparse/normalize"
	"github.com/tsawler/docparse/ocr"
	"github.com/tsawler/docparse/tables"
)

// Reader holds a parsed HTML document.
type Reader struct {
	mode      NavigationExclusionMode
	maxImages int

	text   string
	tables []*model.Table
	images []image.Image
}

// Open reads and parses an HTML file. The character set is taken from a
// byte order mark or meta declaration, defaulting to UTF-8 or
// Windows-1252.
func Open(filename string, opts ...Option) (*Reader, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	return Parse(data, opts...)
}

// Parse parses raw HTML bytes.
func Parse(data []byte, opts ...Option) (*Reader, error) {
	r := &Reader{mode: NavigationExclusionStandard}
	for _, opt := range opts {
		opt(r)
	}

	clean := newSanitizer().Sanitize(normalize.Decode(data, "text/html"))
	doc, err := html.Parse(strings.NewReader(clean))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	w := &walker{check: exclusionChecker{mode: r.mode}, maxImages: r.maxImages}
	w.walk(doc)
	r.text = normalize.DedupShortLines(trimLines(w.text.String()))
	r.tables = w.tables
	r.images = w.images
	return r, nil
}

// Close is a no-op; the document is fully read by Open.
func (r *Reader) Close() error {
	return nil
}

// Text returns the block-aware body text, tables excluded.
func (r *Reader) Text() string {
	return strings.TrimSpace(r.text)
}

// Tables returns the non-empty tables in document order.
func (r *Reader) Tables() []*model.Table {
	return r.tables
}

// Images returns the decoded data: images.
func (r *Reader) Images() []image.Image {
	return r.images
}

// Extract returns the document as a single body page with its tables and
// images.
func (r *Reader) Extract() *model.Extraction {
	ext := model.NewExtraction()
	if text := r.Text(); text != "" {
		ext.AddPage(text)
	}
	ext.Tables = r.tables
	ext.Images = r.images
	return ext
}

// blockElements start and end on their own line.
var blockElements = map[string]bool{
	"p": true, "div": true, "main": true, "article": true, "section": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "ul": true, "ol": true, "li": true,
	"dl": true, "dt": true, "dd": true, "figure": true, "figcaption": true,
	"address": true, "hr": true, "details": true, "summary": true,
	"table": true, "caption": true, "tr": true,
}

type walker struct {
	check     exclusionChecker
	maxImages int
	// nested walkers render tables as text instead of collecting them.
	nested bool

	text   strings.Builder
	tables []*model.Table
	images []image.Image
}

func (w *walker) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		writeInline(&w.text, n.Data)
		return
	case html.ElementNode:
		if w.check.exclude(n) {
			return
		}
		switch n.Data {
		case "table":
			t := w.table(n)
			switch {
			case t.IsEmpty():
			case w.nested:
				newline(&w.text)
				w.text.WriteString(tables.PlainText(t))
				newline(&w.text)
			default:
				w.tables = append(w.tables, t)
			}
			return
		case "img":
			w.image(n)
			return
		case "br":
			w.text.WriteByte('\n')
			return
		case "pre":
			newline(&w.text)
			w.text.WriteString(rawText(n))
			newline(&w.text)
			return
		}
	}

	block := n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		newline(&w.text)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
	if block {
		newline(&w.text)
	}
}

func (w *walker) image(n *html.Node) {
	if len(w.images) >= w.maxImages {
		return
	}
	if img := decodeDataURI(getAttr(n, "src")); img != nil {
		w.images = append(w.images, img)
	}
}

// decodeDataURI decodes a base64 data: URI holding an image. Other sources
// are not fetched.
func decodeDataURI(src string) image.Image {
	rest, ok := strings.CutPrefix(strings.TrimSpace(src), "data:")
	if !ok {
		return nil
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(payload), ""))
	if err != nil {
		return nil
	}
	img, err := ocr.DecodeImage(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	return img
}

// writeInline appends text with whitespace runs folded to single spaces.
func writeInline(sb *strings.Builder, s string) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s != "" && !atLineStart(sb) {
			writeSpace(sb)
		}
		return
	}
	if isSpaceByte(s[0]) && !atLineStart(sb) {
		writeSpace(sb)
	}
	sb.WriteString(strings.Join(fields, " "))
	if isSpaceByte(s[len(s)-1]) {
		sb.WriteByte(' ')
	}
}

func writeSpace(sb *strings.Builder) {
	if s := sb.String(); !strings.HasSuffix(s, " ") {
		sb.WriteByte(' ')
	}
}

func atLineStart(sb *strings.Builder) bool {
	s := sb.String()
	return s == "" || strings.HasSuffix(s, "\n")
}

// newline ends the current line unless it is already ended.
func newline(sb *strings.Builder) {
	if !atLineStart(sb) {
		sb.WriteByte('\n')
	}
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func trimLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return strings.Join(lines, "\n")
}

// rawText returns the text below n unchanged.
func rawText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			sb.WriteString(n.Data)
		case n.Type == html.ElementNode && n.Data == "br":
			sb.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Trim(sb.String(), "\n")
}
