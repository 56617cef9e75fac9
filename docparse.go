// Package docparse turns document files into normalized text plus
// structured page elements for retrieval and indexing.
//
// Basic usage:
//
//	doc := docparse.Parse("report.pdf", config.Default())
//	fmt.Println(doc.FullText)
//
// Parse never fails: unreadable, truncated or unsupported input yields an
// empty document. The input format is sniffed from content, never from the
// file name. Supported inputs are PDF, DOCX, DOC, ODT, RTF, HTML, CSV, XLSX,
// plain text and raster images.
//
// Pages are appended in a fixed order: the body text page(s), then the
// embedded-image OCR page, the caption page, the tables page and the fields
// page. Pages without content are left out.
//
// For repeated calls, or to inject an OCR recognizer, a PDF rasterizer or a
// caption backend, build a [Parser] with [New]:
//
//	p := docparse.New(cfg, docparse.WithCaptioner(myBackend))
//	defer p.Close()
//	doc := p.Parse(ctx, "scan.png")
package docparse

import (
	"context"

	"github.com/tsawler/docparse/caption"
	"github.com/tsawler/docparse/config"
	"github.com/tsawler/docparse/model"
	"github.com/tsawler/docparse/ocr"
	"github.com/tsawler/docparse/pdfdoc"
)

// Parse parses the file at path with cfg. It never returns nil.
//
// Example:
//
//	doc := docparse.Parse("invoice.docx", config.Default())
func Parse(path string, cfg config.Config) *model.Document {
	p := New(cfg)
	defer p.Close()
	return p.Parse(context.Background(), path)
}

// Option configures a Parser.
type Option func(*Parser)

// WithRecognizer sets the OCR recognizer. A nil recognizer disables OCR.
// Without this option New starts Tesseract for cfg.OCRLanguage when the
// binary was built with OCR support.
func WithRecognizer(rec ocr.Recognizer) Option {
	return func(p *Parser) {
		p.rec = rec
		p.recSet = true
	}
}

// WithRasterizer sets the PDF page renderer used for page OCR. The default
// runs pdftoppm.
func WithRasterizer(r pdfdoc.Rasterizer) Option {
	return func(p *Parser) {
		p.raster = r
	}
}

// WithCaptioner sets the caption backend, overriding cfg.CaptionBackend.
// Captioning still only runs when cfg.CaptioningEnabled is set.
func WithCaptioner(c caption.Captioner) Option {
	return func(p *Parser) {
		p.captioner = c
	}
}
