package docparse

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/tsawler/docparse/caption"
	"github.com/tsawler/docparse/config"
	"github.com/tsawler/docparse/csvdoc"
	"github.com/tsawler/docparse/docx"
	"github.com/tsawler/docparse/fields"
	"github.com/tsawler/docparse/format"
	"github.com/tsawler/docparse/htmldoc"
	"github.com/tsawler/docparse/legacydoc"
	"github.com/tsawler/docparse/model"
	"github.com/tsawler/docparse/normalize"
	"github.com/tsawler/docparse/ocr"
	"github.com/tsawler/docparse/odt"
	"github.com/tsawler/docparse/pdfdoc"
	"github.com/tsawler/docparse/rtf"
	"github.com/tsawler/docparse/tables"
	"github.com/tsawler/docparse/xlsx"
)

// Parser runs the extraction pipeline. A Parser is safe for sequential
// reuse; calls on one Parser should not overlap.
type Parser struct {
	cfg    config.Config
	logger *slog.Logger

	rec    ocr.Recognizer
	recSet bool
	closer io.Closer
	engine *ocr.Engine

	raster    pdfdoc.Rasterizer
	captioner caption.Captioner
	captions  *caption.Service
}

// New builds a Parser for cfg. Options override the recognizer, the PDF
// rasterizer and the caption backend. Invalid values in cfg are logged and
// replaced by their defaults.
func New(cfg config.Config, opts ...Option) *Parser {
	if err := cfg.Validate(); err != nil {
		cfg.Log().Warn("invalid configuration, using defaults for rejected values", "error", err)
		cfg = cfg.Sanitize()
	}
	p := &Parser{
		cfg:    cfg,
		logger: cfg.Log(),
		raster: pdfdoc.Pdftoppm{},
	}
	for _, opt := range opts {
		opt(p)
	}

	if !p.recSet {
		client, err := ocr.New(cfg.OCRLanguage)
		if err != nil {
			p.logger.Debug("OCR unavailable", "error", err)
		} else {
			p.rec = client
			p.closer = client
		}
	}

	engineOpts := []ocr.EngineOption{
		ocr.WithConfigs(ocr.DefaultConfigs(ocr.PageSegMode(cfg.OCRPageSegMode))),
		ocr.WithLogger(p.logger),
	}
	if cfg.OCRDebug && cfg.OCRDebugDir != "" {
		engineOpts = append(engineOpts, ocr.WithDebugDir(cfg.OCRDebugDir))
	}
	p.engine = ocr.NewEngine(p.rec, engineOpts...)

	if cfg.CaptioningEnabled {
		if p.captioner == nil {
			backend, err := caption.New(cfg)
			if err != nil {
				p.logger.Warn("caption backend unavailable, using stub", "error", err)
				backend = caption.Stub{}
			}
			p.captioner = backend
		}
		p.captions = caption.NewService(p.captioner, caption.Options{
			BatchSize:      cfg.BatchSize(),
			MinImageDim:    cfg.CaptionMinImageDim,
			MaxAspectRatio: cfg.CaptionMaxAspectRatio,
			MinEntropy:     cfg.CaptionMinEntropy,
			CacheDir:       cfg.CacheDir(),
			Logger:         p.logger,
		})
	}
	return p
}

// Close releases the OCR client started by New. It is safe to call Close
// multiple times.
func (p *Parser) Close() error {
	if p.closer == nil {
		return nil
	}
	err := p.closer.Close()
	p.closer = nil
	return err
}

// stage timing keys
const (
	stageDetect    = "detect"
	stageExtract   = "extract"
	stageImageOCR  = "image_ocr"
	stageCaptions  = "captions"
	stageFields    = "fields"
	stageNormalize = "normalize"
	stageTotal     = "total"
)

func since(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}

// Parse parses the file at path. It never panics and never returns nil;
// every failure degrades to missing content.
func (p *Parser) Parse(ctx context.Context, path string) (doc *model.Document) {
	start := time.Now()
	doc = model.NewDocument()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("parse panicked, returning empty document", "path", path, "panic", r)
			doc = model.NewDocument()
		}
		doc.TimingsMS[stageTotal] = since(start)
	}()

	t := time.Now()
	f := format.DetectFile(path)
	doc.TimingsMS[stageDetect] = since(t)
	doc.Metrics["format"] = f.String()
	p.logger.Debug("detected format", "path", path, "format", f.String())

	t = time.Now()
	ext, err := p.extract(ctx, path, f)
	doc.TimingsMS[stageExtract] = since(t)
	if err != nil {
		if errors.Is(err, pdfdoc.ErrSanity) || errors.Is(err, pdfdoc.ErrNotPDF) {
			p.logger.Debug("PDF failed sanity check", "path", path, "error", err)
			return doc
		}
		p.logger.Warn("extraction failed", "path", path, "format", f.String(), "error", err)
	}
	for k, v := range ext.Metrics {
		doc.Metrics[k] = v
	}

	t = time.Now()
	imageTexts := p.imageOCR(ext)
	doc.TimingsMS[stageImageOCR] = since(t)

	var full []string
	for _, page := range ext.Pages {
		doc.AddPage(page.Text, page.Elements...)
		full = appendText(full, page.Text)
	}
	doc.Metrics["body_pages"] = len(ext.Pages)

	var ocrElems []model.Element
	var ocrTexts []string
	for _, text := range imageTexts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		ocrElems = append(ocrElems, model.ImageOCR(text))
		ocrTexts = append(ocrTexts, text)
		full = appendText(full, text)
	}
	if len(ocrElems) > 0 {
		doc.AddPage(strings.Join(ocrTexts, "\n\n"), ocrElems...)
	}
	doc.Metrics["images"] = len(ext.Images) + len(ext.CaptionOnly)
	if _, ok := doc.Metrics["ocr_pages"]; !ok {
		doc.Metrics["ocr_pages"] = 0
	}

	t = time.Now()
	p.caption(ctx, ext, doc)
	doc.TimingsMS[stageCaptions] = since(t)

	var tableElems []model.Element
	var tableTexts []string
	for _, tbl := range ext.Tables {
		if tbl == nil || tbl.IsEmpty() {
			continue
		}
		text := tables.PlainText(tbl)
		tableElems = append(tableElems, model.TableHTML(tables.HTML(tbl)))
		tableTexts = append(tableTexts, text)
		full = appendText(full, text)
	}
	if len(tableElems) > 0 {
		doc.AddPage(strings.Join(tableTexts, "\n\n"), tableElems...)
	}
	doc.Metrics["tables"] = len(tableElems) + len(inlineTables(ext))

	doc.FullText = strings.Join(full, "\n\n")

	t = time.Now()
	doc.Metrics["fields"] = 0
	if p.cfg.FieldExtraction {
		found := fields.Extract(doc.FullText)
		if len(found) > 0 {
			doc.AddPage(fields.Lines(found), model.Fields(fields.JSON(found)))
			doc.Metrics["fields"] = len(found)
		}
	}
	doc.TimingsMS[stageFields] = since(t)

	t = time.Now()
	opts := normalize.Options{DropNoise: p.cfg.NoiseFilter}
	doc.FullText = normalize.Text(doc.FullText, opts)
	for _, page := range doc.Pages {
		page.Text = normalize.Text(page.Text, opts)
	}
	doc.TimingsMS[stageNormalize] = since(t)

	p.logger.Debug("parsed document", "path", path, "format", f.String(), "pages", len(doc.Pages), "chars", len(doc.FullText))
	return doc
}

func appendText(full []string, text string) []string {
	if strings.TrimSpace(text) == "" {
		return full
	}
	return append(full, text)
}

// inlineTables returns the table elements carried on body pages.
func inlineTables(ext *model.Extraction) []model.Element {
	var out []model.Element
	for _, page := range ext.Pages {
		for _, e := range page.Elements {
			if e.Type == model.ElementTableHTML {
				out = append(out, e)
			}
		}
	}
	return out
}

// extract runs the extractor for f. A panicking extractor yields an empty
// extraction and an error.
func (p *Parser) extract(ctx context.Context, path string, f format.Format) (ext *model.Extraction, err error) {
	defer func() {
		if r := recover(); r != nil {
			ext, err = model.NewExtraction(), fmt.Errorf("%s extractor panic: %v", f, r)
		}
		if ext == nil {
			ext = model.NewExtraction()
		}
	}()

	maxImages := p.cfg.MaxEmbeddedImages

	switch f {
	case format.PDF:
		return pdfdoc.New(p.cfg, p.engine, p.raster).Extract(ctx, path)

	case format.DOCX:
		r, err := docx.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening DOCX: %w", err)
		}
		defer r.Close()
		return r.Extract(maxImages), nil

	case format.ODT:
		r, err := odt.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening ODT: %w", err)
		}
		defer r.Close()
		return r.Extract(maxImages), nil

	case format.XLSX:
		r, err := xlsx.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening XLSX: %w", err)
		}
		defer r.Close()
		return r.Extract(), nil

	case format.DOC:
		return legacydoc.Extract(path, maxImages)

	case format.RTF:
		return rtf.Extract(path, maxImages)

	case format.HTML:
		r, err := htmldoc.Open(path, htmldoc.WithMaxImages(maxImages))
		if err != nil {
			return nil, fmt.Errorf("opening HTML: %w", err)
		}
		defer r.Close()
		return r.Extract(), nil

	case format.CSV:
		return csvdoc.Extract(path)

	case format.PNG, format.JPG, format.TIFF, format.BMP, format.GIF, format.WEBP:
		return p.extractImage(path)

	case format.TXT:
		return extractText(path)
	}

	// Unknown archives have no extractor.
	return model.NewExtraction(), nil
}

// extractImage recognizes a raster image file as the body page. The image
// itself is a caption candidate.
func (p *Parser) extractImage(path string) (*model.Extraction, error) {
	ext := model.NewExtraction()
	ext.ImagesOCRed = true

	f, err := os.Open(path)
	if err != nil {
		return ext, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	img, err := ocr.DecodeImage(f)
	if err != nil {
		return ext, fmt.Errorf("decoding image: %w", err)
	}
	ext.CaptionOnly = []image.Image{img}

	if p.engine.Enabled() {
		ext.SetMetric("ocr_pages", 1)
	}
	if text := p.engine.Recognize(img); text != "" {
		ext.AddPage(text)
	}
	return ext, nil
}

// extractText decodes a plain text file. Tables found by the heuristics go
// to the tables page.
func extractText(path string) (*model.Extraction, error) {
	ext := model.NewExtraction()
	data, err := os.ReadFile(path)
	if err != nil {
		return ext, fmt.Errorf("reading text: %w", err)
	}
	text := normalize.Decode(data, "text/plain")
	if strings.TrimSpace(text) == "" {
		return ext, nil
	}
	ext.AddPage(text)
	ext.Tables = tables.Detect(text)
	return ext, nil
}

// imageOCR returns the OCR text of each embedded image. Extractors that ran
// OCR themselves supply their results.
func (p *Parser) imageOCR(ext *model.Extraction) []string {
	if ext.ImagesOCRed {
		return ext.ImageTexts
	}
	if !p.engine.Enabled() {
		return nil
	}
	images := ext.Images
	if len(images) > p.cfg.MaxEmbeddedImages {
		images = images[:p.cfg.MaxEmbeddedImages]
	}
	texts := make([]string, len(images))
	for i, img := range images {
		texts[i] = p.engine.Recognize(img)
	}
	return texts
}

// caption adds the caption page when captioning is enabled and at least one
// image passes the filters.
func (p *Parser) caption(ctx context.Context, ext *model.Extraction, doc *model.Document) {
	doc.Metrics["captions"] = 0
	doc.Metrics["caption_cache_hits"] = 0
	if p.captions == nil {
		return
	}

	candidates := make([]image.Image, 0, len(ext.Images)+len(ext.CaptionOnly))
	candidates = append(candidates, ext.Images...)
	candidates = append(candidates, ext.CaptionOnly...)
	candidates = p.captions.Filter(candidates)
	if len(candidates) == 0 {
		return
	}

	caps, stats := p.captions.Caption(ctx, candidates)
	elems := make([]model.Element, 0, len(caps))
	texts := make([]string, 0, len(caps))
	for _, c := range caps {
		elems = append(elems, model.ImageCaption(c.Text, c.Model))
		texts = append(texts, c.Text)
	}
	doc.AddPage(strings.Join(texts, "\n"), elems...)
	doc.Metrics["captions"] = len(caps)
	doc.Metrics["caption_cache_hits"] = stats.Hits
}
