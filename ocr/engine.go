package ocr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
)

// Engine searches preprocessing variants and recognition configurations
// for the first one that yields text.
type Engine struct {
	rec      Recognizer
	configs  []RecognitionConfig
	debugDir string
	logger   *slog.Logger

	mu  sync.Mutex
	seq atomic.Int64
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithConfigs replaces the recognition configurations tried per variant.
func WithConfigs(configs []RecognitionConfig) EngineOption {
	return func(e *Engine) {
		e.configs = configs
	}
}

// WithDebugDir makes the engine write every variant it builds to dir as PNG.
func WithDebugDir(dir string) EngineOption {
	return func(e *Engine) {
		e.debugDir = dir
	}
}

// WithLogger sets the logger for recognition failures.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// NewEngine returns an engine that recognizes with rec. A nil recognizer
// yields an engine that always returns empty text.
func NewEngine(rec Recognizer, opts ...EngineOption) *Engine {
	e := &Engine{
		rec:     rec,
		configs: DefaultConfigs(PSM_SINGLE_BLOCK),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enabled reports whether the engine has a recognizer.
func (e *Engine) Enabled() bool {
	return e != nil && e.rec != nil
}

// Recognize returns the text of img, or "" when no variant and
// configuration pair produced any. Recognition errors are logged and the
// search continues. It is safe for concurrent use; calls are serialized.
func (e *Engine) Recognize(img image.Image) string {
	if !e.Enabled() || img == nil {
		return ""
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return ""
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	g := Prepare(img)

	// Variants are built lazily unless they are all saved for debugging.
	var built []Variant
	if e.debugDir != "" {
		built = Variants(g)
		e.saveVariants(built)
	}

	for i, step := range variantSteps {
		var v image.Image
		if built != nil {
			v = built[i].Image
		} else {
			v = step.build(g)
		}
		data, err := encodePNG(v)
		if err != nil {
			e.logger.Debug("encoding OCR variant", "variant", step.name, "error", err)
			continue
		}
		for _, cfg := range e.configs {
			text, err := e.rec.Recognize(data, cfg)
			if errors.Is(err, ErrOCRNotEnabled) {
				return ""
			}
			if err != nil {
				e.logger.Debug("OCR attempt failed", "variant", step.name, "psm", int(cfg.PageSegMode), "error", err)
				continue
			}
			if text = strings.TrimSpace(text); text != "" {
				e.logger.Debug("OCR succeeded", "variant", step.name, "psm", int(cfg.PageSegMode), "oem", int(cfg.EngineMode))
				return text
			}
		}
	}
	return ""
}

// RecognizeBytes decodes an encoded image and recognizes it.
func (e *Engine) RecognizeBytes(data []byte) string {
	if !e.Enabled() {
		return ""
	}
	img, err := DecodeImage(bytes.NewReader(data))
	if err != nil {
		e.logger.Debug("decoding image for OCR", "error", err)
		return ""
	}
	return e.Recognize(img)
}

func (e *Engine) saveVariants(vs []Variant) {
	if err := os.MkdirAll(e.debugDir, 0o755); err != nil {
		e.logger.Warn("creating OCR debug directory", "dir", e.debugDir, "error", err)
		return
	}
	n := e.seq.Add(1)
	for i, v := range vs {
		data, err := encodePNG(v.Image)
		if err != nil {
			continue
		}
		name := filepath.Join(e.debugDir, fmt.Sprintf("ocr-%04d-%02d-%s.png", n, i, v.Name))
		if err := os.WriteFile(name, data, 0o644); err != nil {
			e.logger.Warn("writing OCR debug image", "path", name, "error", err)
		}
	}
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
