// Package docx extracts text, tables and embedded images from DOCX (Office
// Open XML) documents.
package docx

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"image"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/tsawler/docparse/model"
	"github.com/tsawler/docparse/ocr"
)

const documentPart = "word/document.xml"

// Reader provides access to DOCX document content.
type Reader struct {
	zipReader *zip.ReadCloser
	files     map[string]*zip.File
	rels      map[string]relationshipXML
	blocks    []block
}

// Open opens a DOCX file for reading.
func Open(filename string) (*Reader, error) {
	zr, err := zip.OpenReader(filename)
	if err != nil {
		return nil, fmt.Errorf("opening ZIP archive: %w", err)
	}

	r := &Reader{
		zipReader: zr,
		files:     make(map[string]*zip.File, len(zr.File)),
		rels:      make(map[string]relationshipXML),
	}
	for _, f := range zr.File {
		r.files[f.Name] = f
	}

	if r.files[documentPart] == nil {
		zr.Close()
		return nil, fmt.Errorf("missing required file: %s", documentPart)
	}

	// Relationships are only needed for images.
	_ = r.parseRelationships()

	if err := r.parseDocument(); err != nil {
		zr.Close()
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	return r, nil
}

// Close releases resources associated with the Reader.
func (r *Reader) Close() error {
	if r.zipReader != nil {
		err := r.zipReader.Close()
		r.zipReader = nil
		return err
	}
	return nil
}

// Text returns the body paragraphs joined by newlines. Table text is not
// included.
func (r *Reader) Text() string {
	var lines []string
	for _, b := range r.blocks {
		if b.paragraph != nil {
			lines = append(lines, b.paragraph.Text)
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Tables returns the body tables in document order.
func (r *Reader) Tables() []*model.Table {
	var out []*model.Table
	for _, b := range r.blocks {
		if b.table == nil {
			continue
		}
		if t := toModelTable(b.table); !t.IsEmpty() {
			out = append(out, t)
		}
	}
	return out
}

// Images decodes up to limit embedded images, in the order the body
// references them. Media that is not referenced from the body is used when
// no reference resolves. Parts that fail to decode are skipped.
func (r *Reader) Images(limit int) []image.Image {
	if limit <= 0 {
		return nil
	}

	var images []image.Image
	seen := make(map[string]bool)
	for _, name := range r.referencedMedia() {
		if len(images) >= limit {
			return images
		}
		seen[name] = true
		if img := r.decode(name); img != nil {
			images = append(images, img)
		}
	}
	if len(seen) > 0 {
		return images
	}

	var media []string
	for name := range r.files {
		if strings.HasPrefix(name, "word/media/") {
			media = append(media, name)
		}
	}
	sort.Strings(media)
	for _, name := range media {
		if len(images) >= limit {
			break
		}
		if img := r.decode(name); img != nil {
			images = append(images, img)
		}
	}
	return images
}

// Extract returns the document as a single body page with its tables and
// embedded images.
func (r *Reader) Extract(maxImages int) *model.Extraction {
	ext := model.NewExtraction()
	if text := r.Text(); text != "" {
		ext.AddPage(text)
	}
	ext.Tables = r.Tables()
	ext.Images = r.Images(maxImages)
	ext.SetMetric("docx_paragraphs", r.paragraphCount())
	return ext
}

func (r *Reader) paragraphCount() int {
	n := 0
	for _, b := range r.blocks {
		if b.paragraph != nil {
			n++
		}
	}
	return n
}

// referencedMedia resolves image relationship IDs from paragraphs and
// table cells to part names, without duplicates.
func (r *Reader) referencedMedia() []string {
	var ids []string
	for _, b := range r.blocks {
		switch {
		case b.paragraph != nil:
			ids = append(ids, b.paragraph.Images...)
		case b.table != nil:
			for _, row := range b.table.Rows {
				for _, c := range row.Cells {
					ids = append(ids, c.Images...)
				}
			}
		}
	}

	var names []string
	seen := make(map[string]bool)
	for _, id := range ids {
		rel, ok := r.rels[id]
		if !ok || strings.EqualFold(rel.TargetMode, "External") {
			continue
		}
		name := resolveTarget(rel.Target)
		if seen[name] || r.files[name] == nil {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// resolveTarget turns a relationship target, relative to word/, into a
// part name.
func resolveTarget(target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Clean(path.Join("word", target))
}

func (r *Reader) decode(name string) image.Image {
	f := r.files[name]
	if f == nil {
		return nil
	}
	rc, err := f.Open()
	if err != nil {
		return nil
	}
	defer rc.Close()
	img, err := ocr.DecodeImage(rc)
	if err != nil {
		return nil
	}
	return img
}

func (r *Reader) open(name string) (io.ReadCloser, error) {
	f := r.files[name]
	if f == nil {
		return nil, fmt.Errorf("file not found: %s", name)
	}
	return f.Open()
}

func (r *Reader) parseRelationships() error {
	rc, err := r.open("word/_rels/document.xml.rels")
	if err != nil {
		return err
	}
	defer rc.Close()

	var rels relationshipsXML
	if err := xml.NewDecoder(rc).Decode(&rels); err != nil {
		return err
	}
	for _, rel := range rels.Relationships {
		r.rels[rel.ID] = rel
	}
	return nil
}

func (r *Reader) parseDocument() error {
	rc, err := r.open(documentPart)
	if err != nil {
		return err
	}
	defer rc.Close()

	blocks, err := parseBody(rc)
	r.blocks = blocks
	if err != nil && len(blocks) == 0 {
		return err
	}
	return nil
}
