// Package config holds the immutable configuration snapshot passed into the
// parsing pipeline.
//
// A Config is a plain value. The pipeline receives it by value and never
// consults environment variables or other process state; loading from the
// environment, flags and files happens only in [Load], at the edge of the
// program.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"
)

// Caption backends.
const (
	CaptionBackendStub   = "stub"
	CaptionBackendOpenAI = "openai"
)

// Default values
const (
	DefaultOCRLanguage           = "eng"
	DefaultOCRPageSegMode        = 6
	DefaultPDFOCRPageLimit       = 20
	DefaultImageOCRMaxFileMB     = 50
	DefaultImageOCRMaxPages      = 50
	DefaultMaxEmbeddedImages     = 30
	DefaultRenderDPI             = 300
	DefaultCaptionModel          = "gpt-4o-mini"
	DefaultCaptionTimeout        = 60 * time.Second
	DefaultCaptionBatchSize      = 8
	DefaultCaptionMinImageDim    = 64
	DefaultCaptionMaxAspectRatio = 8.0
	DefaultCaptionMinEntropy     = 3.0
	DefaultDataDir               = "./data"
)

// Config is the configuration snapshot for one or more parse calls.
type Config struct {
	// OCR
	OCRLanguage    string
	OCRPageSegMode int
	OCRDebug       bool
	OCRDebugDir    string

	// Guard rails
	PDFOCRPageLimit   int // pages after this 1-based number are never rendered
	ImageOCRMaxFileMB int
	ImageOCRMaxPages  int
	MaxEmbeddedImages int
	RenderDPI         int

	// Captioning
	CaptioningEnabled     bool
	CaptionBackend        string
	CaptionModel          string
	CaptionBaseURL        string
	CaptionAPIKey         string
	CaptionTimeout        time.Duration
	CaptionBatchSize      int
	CaptionMinImageDim    int
	CaptionMaxAspectRatio float64
	CaptionMinEntropy     float64
	CaptionCacheDir       string

	DataDir         string
	NoiseFilter     bool
	FieldExtraction bool

	// Logger receives debug and warning events. Nil discards them.
	Logger *slog.Logger
}

// Default returns a configuration with the documented defaults.
func Default() Config {
	return Config{
		OCRLanguage:           DefaultOCRLanguage,
		OCRPageSegMode:        DefaultOCRPageSegMode,
		PDFOCRPageLimit:       DefaultPDFOCRPageLimit,
		ImageOCRMaxFileMB:     DefaultImageOCRMaxFileMB,
		ImageOCRMaxPages:      DefaultImageOCRMaxPages,
		MaxEmbeddedImages:     DefaultMaxEmbeddedImages,
		RenderDPI:             DefaultRenderDPI,
		CaptionBackend:        CaptionBackendStub,
		CaptionModel:          DefaultCaptionModel,
		CaptionTimeout:        DefaultCaptionTimeout,
		CaptionBatchSize:      DefaultCaptionBatchSize,
		CaptionMinImageDim:    DefaultCaptionMinImageDim,
		CaptionMaxAspectRatio: DefaultCaptionMaxAspectRatio,
		CaptionMinEntropy:     DefaultCaptionMinEntropy,
		DataDir:               DefaultDataDir,
		NoiseFilter:           true,
		FieldExtraction:       true,
	}
}

// Validate checks if the configuration is valid
func (c Config) Validate() error {
	var errs []error
	if c.PDFOCRPageLimit < 0 {
		errs = append(errs, errors.New("pdf_ocr_page_limit must not be negative"))
	}
	if c.ImageOCRMaxFileMB < 0 || c.ImageOCRMaxPages < 0 {
		errs = append(errs, errors.New("image OCR guard limits must not be negative"))
	}
	if c.MaxEmbeddedImages < 0 {
		errs = append(errs, errors.New("max_embedded_images must not be negative"))
	}
	if c.RenderDPI < 0 {
		errs = append(errs, errors.New("render_dpi must not be negative"))
	}
	switch c.CaptionBackend {
	case "", CaptionBackendStub, CaptionBackendOpenAI:
	default:
		errs = append(errs, fmt.Errorf("unknown caption_backend %q", c.CaptionBackend))
	}
	if c.CaptionBatchSize < 0 {
		errs = append(errs, errors.New("caption_batch_size must not be negative"))
	}
	if c.CaptionMaxAspectRatio < 0 || c.CaptionMinEntropy < 0 {
		errs = append(errs, errors.New("caption thresholds must not be negative"))
	}
	return errors.Join(errs...)
}

// Sanitize returns c with every value Validate rejects replaced by its
// default.
func (c Config) Sanitize() Config {
	d := Default()
	if c.PDFOCRPageLimit < 0 {
		c.PDFOCRPageLimit = d.PDFOCRPageLimit
	}
	if c.ImageOCRMaxFileMB < 0 {
		c.ImageOCRMaxFileMB = d.ImageOCRMaxFileMB
	}
	if c.ImageOCRMaxPages < 0 {
		c.ImageOCRMaxPages = d.ImageOCRMaxPages
	}
	if c.MaxEmbeddedImages < 0 {
		c.MaxEmbeddedImages = d.MaxEmbeddedImages
	}
	if c.RenderDPI < 0 {
		c.RenderDPI = d.RenderDPI
	}
	switch c.CaptionBackend {
	case "", CaptionBackendStub, CaptionBackendOpenAI:
	default:
		c.CaptionBackend = d.CaptionBackend
	}
	if c.CaptionBatchSize < 0 {
		c.CaptionBatchSize = d.CaptionBatchSize
	}
	if c.CaptionMaxAspectRatio < 0 {
		c.CaptionMaxAspectRatio = d.CaptionMaxAspectRatio
	}
	if c.CaptionMinEntropy < 0 {
		c.CaptionMinEntropy = d.CaptionMinEntropy
	}
	return c
}

// Log returns the configured logger or a logger that discards everything.
func (c Config) Log() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// CacheDir returns the caption cache directory, derived from DataDir when
// not set explicitly. An empty result disables the cache.
func (c Config) CacheDir() string {
	if c.CaptionCacheDir != "" {
		return c.CaptionCacheDir
	}
	if c.DataDir != "" {
		return filepath.Join(c.DataDir, "caption-cache")
	}
	return ""
}

// BatchSize returns the caption batch size, at least one.
func (c Config) BatchSize() int {
	if c.CaptionBatchSize < 1 {
		return 1
	}
	return c.CaptionBatchSize
}
