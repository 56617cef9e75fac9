package pdfdoc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os/exec"
	"strconv"

	"github.com/tsawler/docparse/ocr"
)

// ErrNoRasterizer is returned when no page renderer is available.
var ErrNoRasterizer = errors.New("no PDF rasterizer available")

// Rasterizer renders a single PDF page to an image.
type Rasterizer interface {
	Render(ctx context.Context, path string, page, dpi int) (image.Image, error)
}

// Pdftoppm renders pages with poppler's pdftoppm command.
type Pdftoppm struct {
	// Binary is the command to run. Empty means "pdftoppm" on PATH.
	Binary string
}

// Render implements Rasterizer.
func (p Pdftoppm) Render(ctx context.Context, path string, page, dpi int) (image.Image, error) {
	bin := p.Binary
	if bin == "" {
		bin = "pdftoppm"
	}
	bin, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoRasterizer, err)
	}
	if dpi <= 0 {
		dpi = 300
	}

	n := strconv.Itoa(page)
	cmd := exec.CommandContext(ctx, bin,
		"-png", "-r", strconv.Itoa(dpi), "-f", n, "-l", n, "-singlefile", path)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftoppm page %d: %w: %s", page, err, bytes.TrimSpace(stderr.Bytes()))
	}

	img, err := ocr.DecodeImage(&stdout)
	if err != nil {
		return nil, fmt.Errorf("decoding page %d render: %w", page, err)
	}
	return img, nil
}
