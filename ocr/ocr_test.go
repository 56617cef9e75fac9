//go:build ocr

package ocr

import (
	"image"
	"image/color"
	"image/draw"
	"strings"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// textImage renders s in black on white with the built-in 7x13 face.
func textImage(s string) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 12+7*len(s), 30))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(6, 20),
	}
	d.DrawString(s)
	return img
}

func newClient(t *testing.T) *Client {
	t.Helper()
	client, err := New("eng")
	if err != nil {
		t.Skipf("Tesseract not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestClientRecognizesRenderedText(t *testing.T) {
	client := newClient(t)

	e := NewEngine(client)
	got := e.Recognize(textImage("INVOICE 2024"))
	if !strings.Contains(strings.ToUpper(got), "INVOICE") {
		t.Errorf("Recognize() = %q, want it to contain INVOICE", got)
	}
}

func TestClientEngineModes(t *testing.T) {
	client := newClient(t)
	data, err := encodePNG(Prepare(textImage("HELLO")))
	if err != nil {
		t.Fatal(err)
	}

	for _, cfg := range DefaultConfigs(PSM_SINGLE_LINE) {
		if _, err := client.Recognize(data, cfg); err != nil {
			t.Errorf("Recognize(%+v) failed: %v", cfg, err)
		}
	}
}

func TestClientCloseTwice(t *testing.T) {
	client, err := New("eng")
	if err != nil {
		t.Skipf("Tesseract not available: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}
