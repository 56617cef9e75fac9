package pdfdoc

import (
	"bytes"
	"context"
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/docparse/config"
	"github.com/tsawler/docparse/ocr"
)

type fakeRasterizer struct {
	pages []int
}

func (f *fakeRasterizer) Render(_ context.Context, _ string, page, _ int) (image.Image, error) {
	f.pages = append(f.pages, page)
	g := image.NewGray(image.Rect(0, 0, 40, 20))
	for i := range g.Pix {
		g.Pix[i] = 0xff
	}
	return g, nil
}

type constRecognizer string

func (c constRecognizer) Recognize([]byte, ocr.RecognitionConfig) (string, error) {
	return string(c), nil
}

func newExtractor(cfg config.Config, raster Rasterizer) *Extractor {
	return New(cfg, ocr.NewEngine(constRecognizer("scanned words")), raster)
}

func TestSanityCheckMissingEOF(t *testing.T) {
	data := buildPDF(textOp(72, 720, "Hello"))
	data = bytes.Replace(data, []byte("%%EOF"), []byte("%%END"), 1)
	path := writeFile(t, "truncated.pdf", data)

	_, err := SanityCheck(path)
	assert.ErrorIs(t, err, ErrSanity)

	ext, err := newExtractor(config.Default(), &fakeRasterizer{}).Extract(context.Background(), path)
	assert.ErrorIs(t, err, ErrSanity)
	assert.Empty(t, ext.Pages)
	assert.Empty(t, ext.Tables)
}

func TestSanityCheckNotPDF(t *testing.T) {
	path := writeFile(t, "x.pdf", []byte("just text\n%%EOF\n"))
	_, err := SanityCheck(path)
	assert.ErrorIs(t, err, ErrNotPDF)
}

func TestSanityCheckPageCount(t *testing.T) {
	path := writeFile(t, "two.pdf", buildPDF(textOp(72, 720, "One"), textOp(72, 720, "Two")))
	n, err := SanityCheck(path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestExtractTextLayer(t *testing.T) {
	path := writeFile(t, "text.pdf", buildPDF(textOp(72, 720, "Hello PDF world")))
	raster := &fakeRasterizer{}

	ext, err := newExtractor(config.Default(), raster).Extract(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, ext.Pages, 1)
	assert.Contains(t, ext.Pages[0].Text, "Hello PDF world")
	assert.Equal(t, PathTextLayer, ext.Metrics["pdf_path"])
	assert.Empty(t, raster.pages)
	assert.True(t, ext.ImagesOCRed)
}

func TestExtractBlankPagesRespectOCRLimit(t *testing.T) {
	path := writeFile(t, "mixed.pdf", buildPDF(
		textOp(72, 720, "Cover page"),
		"q Q",
		"q Q",
	))

	cfg := config.Default()
	cfg.PDFOCRPageLimit = 2
	raster := &fakeRasterizer{}
	ext, err := newExtractor(cfg, raster).Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []int{2}, raster.pages, "only blank pages within the limit are rendered")
	require.Len(t, ext.Pages, 3)
	assert.Equal(t, "scanned words", ext.Pages[1].Text)
	assert.Equal(t, "", ext.Pages[2].Text)
	assert.Equal(t, 1, ext.Metrics["ocr_pages"])
	assert.Equal(t, 1, ext.Metrics["pdf_ocr_skipped_pages"])
}

func TestExtractImageOnlyGuard(t *testing.T) {
	path := writeFile(t, "scan.pdf", buildPDF("q Q", "q Q"))

	cfg := config.Default()
	cfg.ImageOCRMaxPages = 1
	raster := &fakeRasterizer{}
	ext, err := newExtractor(cfg, raster).Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, PathImageOnly, ext.Metrics["pdf_path"])
	assert.Equal(t, true, ext.Metrics["pdf_guard_skipped"])
	assert.Empty(t, raster.pages)

	cfg.ImageOCRMaxPages = 5
	raster = &fakeRasterizer{}
	ext, err = newExtractor(cfg, raster).Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, raster.pages)
	assert.Equal(t, "scanned words", ext.Pages[0].Text)
}

func TestExtractWithoutOCR(t *testing.T) {
	path := writeFile(t, "scan.pdf", buildPDF("q Q"))
	ext, err := New(config.Default(), nil, nil).Extract(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, ext.Pages, 1)
	assert.Equal(t, "", ext.Pages[0].Text)
	assert.Equal(t, 0, ext.Metrics["ocr_pages"])
}

func TestStreamText(t *testing.T) {
	stream := `BT /F1 12 Tf 72 720 Td (Hello \(world\)) Tj 0 -14 Td [(Ker) -20 (ned) -400 (words)] TJ
T* <48692E> Tj ET
% comment (ignored) Tj
BT (caf\351) Tj ET`
	got := streamText([]byte(stream))
	assert.Equal(t, "Hello (world)\nKerned words\nHi.\ncafé", got)
}

func TestLayoutRows(t *testing.T) {
	rows := pdf.Rows{
		{Position: 700, Content: pdf.TextHorizontal{
			{S: "Item", X: 72, W: 24, FontSize: 12},
			{S: "Qty", X: 200, W: 18, FontSize: 12},
		}},
		{Position: 686, Content: pdf.TextHorizontal{
			{S: "Apple", X: 72, W: 30, FontSize: 12},
			{S: "3", X: 200, W: 6, FontSize: 12},
		}},
		{Position: 672, Content: pdf.TextHorizontal{
			{S: "two", X: 72, W: 18, FontSize: 12},
			{S: "words", X: 92, W: 30, FontSize: 12},
		}},
	}
	lines := layoutRows(rows)
	require.Len(t, lines, 3)
	assert.Equal(t, "Item   Qty", lines[0])
	assert.Equal(t, "Apple   3", lines[1])
	assert.Equal(t, "two words", lines[2])
}

func TestRasterizerMissingBinary(t *testing.T) {
	_, err := Pdftoppm{Binary: "definitely-not-a-real-binary"}.Render(context.Background(), "x.pdf", 1, 72)
	assert.True(t, errors.Is(err, ErrNoRasterizer))
}

func TestExtractRecoversFromGarbage(t *testing.T) {
	data := []byte("%PDF-1.7\n" + strings.Repeat("\x00garbage", 100) + "\n%%EOF\n")
	path := writeFile(t, "garbage.pdf", data)
	ext, err := newExtractor(config.Default(), &fakeRasterizer{}).Extract(context.Background(), path)
	assert.ErrorIs(t, err, ErrSanity)
	assert.NotNil(t, ext)
}
