package caption

import (
	"context"
	"fmt"
	"image"
)

// StubModel is the model name reported by the stub backend.
const StubModel = "stub"

// Stub describes an image by its dimensions and color mode. It never fails
// and needs no network.
type Stub struct{}

// Caption implements Captioner.
func (Stub) Caption(_ context.Context, images []image.Image) ([]Caption, error) {
	out := make([]Caption, len(images))
	for i, img := range images {
		out[i] = StubCaption(img)
	}
	return out, nil
}

// Model implements Captioner.
func (Stub) Model() string { return StubModel }

// StubCaption returns the stub caption for one image, e.g.
// "Image 640x480, mode=RGB".
func StubCaption(img image.Image) Caption {
	b := img.Bounds()
	return Caption{
		Text:  fmt.Sprintf("Image %dx%d, mode=%s", b.Dx(), b.Dy(), Mode(img)),
		Model: StubModel,
	}
}

// Mode names the color mode of img the way imaging tools commonly do:
// L, I;16, P, CMYK, RGB or RGBA.
func Mode(img image.Image) string {
	switch img.(type) {
	case *image.Gray:
		return "L"
	case *image.Gray16:
		return "I;16"
	case *image.Paletted:
		return "P"
	case *image.CMYK:
		return "CMYK"
	case *image.YCbCr:
		return "RGB"
	}
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return "RGB"
	}
	return "RGBA"
}
