// Package odt extracts text, tables and embedded images from ODT
// (OpenDocument Text) documents.
package odt

import (
	"archive/zip"
	"fmt"
	"image"
	"sort"
	"strings"

	"github.com/tsawler/docparse/model"
	"github.com/tsawler/docparse/ocr"
)

const contentPart = "content.xml"

// Reader provides access to ODT document content.
type Reader struct {
	zipReader *zip.ReadCloser
	files     map[string]*zip.File
	blocks    []block
}

// Open opens an ODT file for reading.
func Open(filename string) (*Reader, error) {
	zr, err := zip.OpenReader(filename)
	if err != nil {
		return nil, fmt.Errorf("opening ZIP archive: %w", err)
	}

	r := &Reader{
		zipReader: zr,
		files:     make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		r.files[f.Name] = f
	}

	if err := r.parseContent(); err != nil {
		zr.Close()
		return nil, err
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

// Text returns paragraphs and headings joined by newlines, without table
// text.
func (r *Reader) Text() string {
	var lines []string
	for _, b := range r.blocks {
		if b.paragraph != nil && b.paragraph.Text != "" {
			lines = append(lines, b.paragraph.Text)
		}
	}
	return strings.Join(lines, "\n")
}

// Tables returns the non-empty tables in document order.
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

// Images decodes up to limit images: those the body references first, then
// any other picture stored under Pictures/.
func (r *Reader) Images(limit int) []image.Image {
	if limit <= 0 {
		return nil
	}

	names := r.referencedImages()
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	var rest []string
	for name := range r.files {
		if strings.HasPrefix(name, "Pictures/") && !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	names = append(names, rest...)

	var images []image.Image
	for _, name := range names {
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
	return ext
}

func (r *Reader) referencedImages() []string {
	var refs []string
	for _, b := range r.blocks {
		switch {
		case b.paragraph != nil:
			refs = append(refs, b.paragraph.Images...)
		case b.table != nil:
			for _, row := range b.table.Rows {
				for _, c := range row.Cells {
					refs = append(refs, c.Images...)
				}
			}
		}
	}

	var names []string
	seen := make(map[string]bool)
	for _, ref := range refs {
		name := strings.TrimPrefix(ref, "./")
		if seen[name] || r.files[name] == nil {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

func (r *Reader) decode(name string) image.Image {
	rc, err := r.files[name].Open()
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

func (r *Reader) parseContent() error {
	f := r.files[contentPart]
	if f == nil {
		return fmt.Errorf("missing required file: %s", contentPart)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening %s: %w", contentPart, err)
	}
	defer rc.Close()

	blocks, err := parseBody(rc)
	r.blocks = blocks
	if err != nil && len(blocks) == 0 {
		return fmt.Errorf("parsing content: %w", err)
	}
	return nil
}
