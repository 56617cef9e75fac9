package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var (
	// ErrNotPDF is returned when the file does not carry a PDF header.
	ErrNotPDF = errors.New("not a PDF file")

	// ErrSanity is returned when a PDF is truncated or has no readable page.
	ErrSanity = errors.New("PDF failed sanity check")
)

const (
	headWindow = 1024
	tailWindow = 2048
)

// SanityCheck verifies that path looks like a complete PDF: a header in
// the first 1KB, an %%EOF marker in the last 2KB and at least one page.
// It returns the page count.
func SanityCheck(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat PDF: %w", err)
	}

	head := make([]byte, min(info.Size(), headWindow))
	if _, err := io.ReadFull(f, head); err != nil {
		return 0, fmt.Errorf("reading PDF header: %w", err)
	}
	if !bytes.Contains(head, []byte("%PDF-")) {
		return 0, ErrNotPDF
	}

	tailSize := min(info.Size(), tailWindow)
	tail := make([]byte, tailSize)
	if _, err := f.ReadAt(tail, info.Size()-tailSize); err != nil && err != io.EOF {
		return 0, fmt.Errorf("reading PDF trailer: %w", err)
	}
	if !bytes.Contains(tail, []byte("%%EOF")) {
		return 0, fmt.Errorf("%w: missing %%%%EOF marker", ErrSanity)
	}

	n := numPages(path)
	if n < 1 {
		// Second opinion from a more lenient parser.
		n = pdfcpuPageCount(f)
	}
	if n < 1 {
		return 0, fmt.Errorf("%w: no readable pages", ErrSanity)
	}
	return n, nil
}

func pdfcpuPageCount(rs io.ReadSeeker) (n int) {
	defer func() {
		if recover() != nil {
			n = 0
		}
	}()
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return 0
	}
	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed
	ctx, err := api.ReadContext(rs, conf)
	if err != nil {
		return 0
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return 0
	}
	return ctx.PageCount
}
