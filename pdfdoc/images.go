package pdfdoc

import (
	"image"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/tsawler/docparse/ocr"
)

// embeddedImages decodes up to limit raster images placed on the pages, in
// page order. Formats the decoders do not support (JPEG 2000, CCITT) are
// skipped.
func embeddedImages(ctx *pdfmodel.Context, limit int) []image.Image {
	if ctx == nil || limit <= 0 {
		return nil
	}
	var out []image.Image
	for pageNr := 1; pageNr <= ctx.PageCount && len(out) < limit; pageNr++ {
		for _, img := range pageImages(ctx, pageNr) {
			if len(out) == limit {
				break
			}
			out = append(out, img)
		}
	}
	return out
}

func pageImages(ctx *pdfmodel.Context, pageNr int) (imgs []image.Image) {
	defer func() {
		if recover() != nil {
			imgs = nil
		}
	}()
	found, err := pdfcpu.ExtractPageImages(ctx, pageNr, false)
	if err != nil {
		return nil
	}
	objNrs := make([]int, 0, len(found))
	for nr := range found {
		objNrs = append(objNrs, nr)
	}
	sort.Ints(objNrs)

	for _, nr := range objNrs {
		decoded, err := ocr.DecodeImage(found[nr])
		if err != nil {
			continue
		}
		imgs = append(imgs, decoded)
	}
	return imgs
}
