package pdfdoc

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/tsawler/docparse/config"
	"github.com/tsawler/docparse/model"
	"github.com/tsawler/docparse/ocr"
	"github.com/tsawler/docparse/tables"
)

// Extraction paths reported in the pdf_path metric.
const (
	PathTextLayer = "text_layer"
	PathImageOnly = "image_only"
)

// Extractor runs the PDF state machine.
type Extractor struct {
	cfg    config.Config
	engine *ocr.Engine
	raster Rasterizer
	logger *slog.Logger
}

// New returns an extractor. A nil engine or rasterizer disables page OCR.
func New(cfg config.Config, engine *ocr.Engine, raster Rasterizer) *Extractor {
	return &Extractor{
		cfg:    cfg,
		engine: engine,
		raster: raster,
		logger: cfg.Log(),
	}
}

func errPanic(p any) error {
	return fmt.Errorf("pdf library panic: %v", p)
}

// Extract reads path. On a sanity failure it returns an empty extraction
// together with the error; every later failure only degrades the result.
func (e *Extractor) Extract(ctx context.Context, path string) (*model.Extraction, error) {
	ext := model.NewExtraction()

	n, err := SanityCheck(path)
	if err != nil {
		return ext, err
	}
	ext.SetMetric("pdf_pages", n)

	rd, err := openReader(path)
	if err != nil {
		e.logger.Debug("layout reader unavailable", "error", err)
	}
	defer rd.Close()

	var texts []string
	ocrPages := 0
	if strings.TrimSpace(rd.PlainText()) != "" {
		ext.SetMetric("pdf_path", PathTextLayer)
		texts, ocrPages = e.textLayer(ctx, path, rd, n, ext)
	} else {
		ext.SetMetric("pdf_path", PathImageOnly)
		texts, ocrPages = e.imageOnly(ctx, path, n, ext)
	}
	ext.SetMetric("ocr_pages", ocrPages)
	for _, t := range texts {
		ext.AddPage(t)
	}

	ext.Tables = e.tables(rd, texts)

	pctx, err := openContext(path)
	if err != nil {
		e.logger.Debug("pdfcpu could not read file, skipping embedded images", "error", err)
	}
	ext.Images = embeddedImages(pctx, e.cfg.MaxEmbeddedImages)
	ext.ImageTexts = make([]string, len(ext.Images))
	for i, img := range ext.Images {
		ext.ImageTexts[i] = e.engine.Recognize(img)
	}
	ext.ImagesOCRed = true

	return ext, nil
}

// textLayer reads each page's text. Blank pages within the OCR page limit
// are rendered and recognized; later blank pages stay blank. When the
// whole result is blank the content-stream and row fallbacks run in turn.
func (e *Extractor) textLayer(ctx context.Context, path string, rd *reader, n int, ext *model.Extraction) ([]string, int) {
	texts := make([]string, n)
	ocrPages, skipped := 0, 0
	for i := 1; i <= n; i++ {
		t := rd.PageText(i)
		if strings.TrimSpace(t) == "" {
			if i <= e.cfg.PDFOCRPageLimit {
				var ran bool
				if t, ran = e.ocrPage(ctx, path, i); ran {
					ocrPages++
				}
			} else {
				skipped++
			}
		}
		texts[i-1] = t
	}
	if skipped > 0 {
		ext.SetMetric("pdf_ocr_skipped_pages", skipped)
	}
	if !allBlank(texts) {
		return texts, ocrPages
	}

	pctx, err := openContext(path)
	if err == nil {
		if cs := contentStreamPages(pctx); !allBlank(cs) {
			ext.SetMetric("pdf_fallback", "content_stream")
			return cs, ocrPages
		}
	}

	rows := make([]string, n)
	for i := 1; i <= n; i++ {
		rows[i-1] = strings.Join(layoutRows(rd.Rows(i)), "\n")
	}
	if !allBlank(rows) {
		ext.SetMetric("pdf_fallback", "rows")
		return rows, ocrPages
	}

	ext.SetMetric("pdf_fallback", "none")
	return texts, ocrPages
}

// imageOnly renders and recognizes every page unless the file is larger
// than the image OCR guards allow.
func (e *Extractor) imageOnly(ctx context.Context, path string, n int, ext *model.Extraction) ([]string, int) {
	texts := make([]string, n)

	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}
	maxBytes := int64(e.cfg.ImageOCRMaxFileMB) << 20
	if size > maxBytes || n > e.cfg.ImageOCRMaxPages {
		e.logger.Info("image-only PDF exceeds OCR guard, skipping OCR",
			"pages", n, "bytes", size,
			"max_pages", e.cfg.ImageOCRMaxPages, "max_mb", e.cfg.ImageOCRMaxFileMB)
		ext.SetMetric("pdf_guard_skipped", true)
		return texts, 0
	}
	ext.SetMetric("pdf_guard_skipped", false)

	ocrPages := 0
	for i := 1; i <= n; i++ {
		var ran bool
		if texts[i-1], ran = e.ocrPage(ctx, path, i); ran {
			ocrPages++
		}
	}
	return texts, ocrPages
}

// ocrPage renders and recognizes one page. It reports whether OCR ran.
func (e *Extractor) ocrPage(ctx context.Context, path string, page int) (string, bool) {
	if !e.engine.Enabled() || e.raster == nil {
		return "", false
	}
	img, err := e.raster.Render(ctx, path, page, e.cfg.RenderDPI)
	if err != nil {
		e.logger.Debug("page render failed", "page", page, "error", err)
		return "", false
	}
	return e.engine.Recognize(img), true
}

// tables lays out each page's positioned text rows and runs the text
// heuristics over the result. Pages without a layout, such as OCR'd
// pages, are scanned as plain text.
func (e *Extractor) tables(rd *reader, texts []string) []*model.Table {
	var found []*model.Table
	for i, text := range texts {
		lines := layoutRows(rd.Rows(i + 1))
		if len(lines) > 0 {
			text = strings.Join(lines, "\n")
		}
		found = append(found, tables.Detect(text)...)
	}
	return found
}

func allBlank(texts []string) bool {
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			return false
		}
	}
	return true
}
