package ocr

import (
	"image"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"
)

// Adaptive threshold parameters.
const (
	adaptiveBlock = 31
	adaptiveC     = 10
)

// ScaleFactor returns the upscale factor applied before recognition.
// Small images are enlarged so that glyphs reach a size Tesseract reads well.
func ScaleFactor(width, height int) int {
	side := max(width, height)
	switch {
	case side < 800:
		return 3
	case side < 1200:
		return 2
	default:
		return 1
	}
}

// Prepare upscales img, converts it to grayscale and straightens it.
func Prepare(img image.Image) *image.Gray {
	b := img.Bounds()
	if f := ScaleFactor(b.Dx(), b.Dy()); f > 1 {
		img = imaging.Resize(img, b.Dx()*f, b.Dy()*f, imaging.Lanczos)
	}
	g, _, _ := Deskew(toGray(img))
	return g
}

// Variant is one preprocessed rendition of an image.
type Variant struct {
	Name  string
	Image image.Image
}

type variantStep struct {
	name  string
	build func(*image.Gray) image.Image
}

// variantSteps lists the renditions in the order they are tried.
var variantSteps = []variantStep{
	{"grayscale", func(g *image.Gray) image.Image { return g }},
	{"autocontrast", func(g *image.Gray) image.Image { return AutoContrast(g, 0.01) }},
	{"contrast", func(g *image.Gray) image.Image { return imaging.AdjustContrast(g, 50) }},
	{"inverted", func(g *image.Gray) image.Image { return imaging.Invert(g) }},
	{"unsharp", func(g *image.Gray) image.Image { return imaging.Sharpen(g, 1.5) }},
	{"otsu", func(g *image.Gray) image.Image { return otsu(g) }},
	{"adaptive_mean", func(g *image.Gray) image.Image { return AdaptiveMean(g, adaptiveBlock, adaptiveC) }},
	{"adaptive_gaussian", func(g *image.Gray) image.Image { return AdaptiveGaussian(g, adaptiveBlock, adaptiveC) }},
	{"opened", func(g *image.Gray) image.Image { return Open3(otsu(g)) }},
}

// VariantNames returns the variant names in search order.
func VariantNames() []string {
	names := make([]string, len(variantSteps))
	for i, s := range variantSteps {
		names[i] = s.name
	}
	return names
}

// Variants builds every rendition of a prepared image.
func Variants(g *image.Gray) []Variant {
	out := make([]Variant, len(variantSteps))
	for i, s := range variantSteps {
		out[i] = Variant{Name: s.name, Image: s.build(g)}
	}
	return out
}

func otsu(g *image.Gray) *image.Gray {
	d := Median3(g)
	return Binarize(d, OtsuLevel(d))
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Bounds().Min == (image.Point{}) {
		return g
	}
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	// Transparent regions read as white paper.
	for i := range g.Pix {
		g.Pix[i] = 0xff
	}
	xdraw.Draw(g, g.Bounds(), img, b.Min, xdraw.Over)
	return g
}
