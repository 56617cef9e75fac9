package model

import "image"

// Extraction is the output of a per-format extractor.
type Extraction struct {
	// Pages are body pages in reading order.
	Pages []BodyPage

	// Tables go to the tables page and their plain text into the full text.
	Tables []*Table

	// Images are embedded raster images. They are OCR'd unless
	// ImagesOCRed is set and they are caption candidates.
	Images []image.Image

	// ImageTexts holds embedded-image OCR results when the extractor ran
	// OCR itself.
	ImageTexts  []string
	ImagesOCRed bool

	// CaptionOnly images are caption candidates that are not OCR'd again,
	// such as the source image of an image file.
	CaptionOnly []image.Image

	// Metrics are merged into the document metrics.
	Metrics map[string]any
}

// NewExtraction returns an empty extraction.
func NewExtraction() *Extraction {
	return &Extraction{Metrics: make(map[string]any)}
}

// AddPage appends a body page.
func (e *Extraction) AddPage(text string, elements ...Element) {
	e.Pages = append(e.Pages, BodyPage{Text: text, Elements: elements})
}

// SetMetric records an extractor metric.
func (e *Extraction) SetMetric(key string, value any) {
	if e.Metrics == nil {
		e.Metrics = make(map[string]any)
	}
	e.Metrics[key] = value
}

// HasText reports whether any body page carries non-blank text.
func (e *Extraction) HasText() bool {
	for _, p := range e.Pages {
		for _, r := range p.Text {
			if r != ' ' && r != '\n' && r != '\t' && r != '\r' {
				return true
			}
		}
	}
	return false
}
