//go:build ocr

// Package ocr provides OCR (Optical Character Recognition) capabilities
// for extracting text from images and scanned pages.
//
// This package wraps the Tesseract OCR engine via gosseract. It requires
// Tesseract to be installed on the system. On macOS, install via:
//
//	brew install tesseract
//
// On Ubuntu/Debian:
//
//	apt-get install tesseract-ocr
package ocr

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Client wraps Tesseract for OCR operations. Tesseract fixes the engine
// mode at initialization, so one gosseract client is kept per engine mode.
type Client struct {
	language string
	clients  map[EngineMode]*gosseract.Client
	tmpDir   string
}

// New creates a new OCR client for the given language(s), e.g. "eng" or
// "eng+deu". The client should be closed when no longer needed to release
// resources.
func New(language string) (*Client, error) {
	if language == "" {
		language = "eng"
	}
	c := &Client{
		language: language,
		clients:  make(map[EngineMode]*gosseract.Client),
	}
	// Fail early when Tesseract cannot start at all.
	if _, err := c.client(OEM_DEFAULT); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// Close releases OCR resources.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	var firstErr error
	for mode, cl := range c.clients {
		if err := cl.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(c.clients, mode)
	}
	if c.tmpDir != "" {
		os.RemoveAll(c.tmpDir)
		c.tmpDir = ""
	}
	return firstErr
}

// Recognize performs OCR on image data (PNG, TIFF, JPEG, etc.) with the
// given configuration. Returns the recognized text with leading/trailing
// whitespace trimmed.
func (c *Client) Recognize(image []byte, cfg RecognitionConfig) (string, error) {
	client, err := c.client(cfg.EngineMode)
	if err != nil {
		return "", err
	}

	if err := client.SetPageSegMode(gosseract.PageSegMode(cfg.PageSegMode)); err != nil {
		return "", fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	preserve := "0"
	if cfg.PreserveInterwordSpaces {
		preserve = "1"
	}
	if err := client.SetVariable("preserve_interword_spaces", preserve); err != nil {
		return "", fmt.Errorf("failed to set interword spacing: %w", err)
	}
	if err := client.SetBlacklist(cfg.Blacklist); err != nil {
		return "", fmt.Errorf("failed to set blacklist: %w", err)
	}

	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}

	return strings.TrimSpace(text), nil
}

// client returns the gosseract client for an engine mode, creating it on
// first use. Non-default modes are selected through a generated config
// file, the only way to set an init-only Tesseract variable.
func (c *Client) client(mode EngineMode) (*gosseract.Client, error) {
	if cl, ok := c.clients[mode]; ok {
		return cl, nil
	}

	cl := gosseract.NewClient()
	if err := cl.SetLanguage(c.language); err != nil {
		cl.Close()
		return nil, fmt.Errorf("failed to set language %q: %w", c.language, err)
	}
	if mode != OEM_DEFAULT {
		path, err := c.engineModeConfig(mode)
		if err != nil {
			cl.Close()
			return nil, err
		}
		if err := cl.SetConfigFile(path); err != nil {
			cl.Close()
			return nil, fmt.Errorf("failed to set engine mode %d: %w", mode, err)
		}
	}
	c.clients[mode] = cl
	return cl, nil
}

func (c *Client) engineModeConfig(mode EngineMode) (string, error) {
	if c.tmpDir == "" {
		dir, err := os.MkdirTemp("", "docparse-ocr-")
		if err != nil {
			return "", fmt.Errorf("creating OCR config directory: %w", err)
		}
		c.tmpDir = dir
	}
	path := filepath.Join(c.tmpDir, fmt.Sprintf("oem%d", mode))
	content := fmt.Sprintf("tessedit_ocr_engine_mode %d\n", mode)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("writing OCR config: %w", err)
	}
	return path, nil
}
