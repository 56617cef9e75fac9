package ocr

import (
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"
)

// Deskew search parameters. Angles are the Hough normal angle in degrees,
// 90 being a horizontal text line.
const (
	houghMinAngle   = 75.0
	houghMaxAngle   = 105.0
	houghAngleStep  = 0.2
	houghMaxSide    = 1000
	houghPeakRatio  = 0.5
	houghMinVotes   = 20
	deskewThreshold = 0.5
)

// EstimateSkew estimates the rotation of the text lines in degrees.
// A page whose lines were rotated counter-clockwise yields a negative
// value. Rotating the page counter-clockwise by the result straightens it.
// Pages without enough dark pixels report zero.
func EstimateSkew(g *image.Gray) float64 {
	small := downscale(g, houghMaxSide)
	level := OtsuLevel(small)

	b := small.Bounds()
	w, h := b.Dx(), b.Dy()
	var xs, ys []int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if small.Pix[y*small.Stride+x] < level {
				xs = append(xs, x)
				ys = append(ys, y)
			}
		}
	}
	if len(xs) < houghMinVotes {
		return 0
	}

	nAngles := int(math.Round((houghMaxAngle-houghMinAngle)/houghAngleStep)) + 1
	diag := int(math.Ceil(math.Hypot(float64(w), float64(h))))
	nRho := 2*diag + 1

	acc := make([]int32, nAngles*nRho)
	var peak int32
	for a := 0; a < nAngles; a++ {
		theta := (houghMinAngle + float64(a)*houghAngleStep) * math.Pi / 180
		cos, sin := math.Cos(theta), math.Sin(theta)
		row := acc[a*nRho : (a+1)*nRho]
		for i := range xs {
			rho := int(math.Round(float64(xs[i])*cos+float64(ys[i])*sin)) + diag
			row[rho]++
			if row[rho] > peak {
				peak = row[rho]
			}
		}
	}

	cut := max(int32(float64(peak)*houghPeakRatio), houghMinVotes)
	var skews []float64
	for a := 0; a < nAngles; a++ {
		angle := houghMinAngle + float64(a)*houghAngleStep
		for _, v := range acc[a*nRho : (a+1)*nRho] {
			if v >= cut {
				skews = append(skews, angle-90)
			}
		}
	}
	if len(skews) == 0 {
		return 0
	}
	sort.Float64s(skews)
	mid := len(skews) / 2
	if len(skews)%2 == 0 {
		return (skews[mid-1] + skews[mid]) / 2
	}
	return skews[mid]
}

// Deskew rotates g to level its text lines when the estimated skew exceeds
// half a degree. The returned flag reports whether a rotation was applied.
func Deskew(g *image.Gray) (*image.Gray, float64, bool) {
	skew := EstimateSkew(g)
	if math.Abs(skew) <= deskewThreshold {
		return g, skew, false
	}
	return toGray(imaging.Rotate(g, skew, color.White)), skew, true
}

func downscale(g *image.Gray, maxSide int) *image.Gray {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxSide && h <= maxSide {
		return g
	}
	scale := float64(maxSide) / float64(max(w, h))
	dst := image.NewGray(image.Rect(0, 0, max(int(float64(w)*scale), 1), max(int(float64(h)*scale), 1)))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), g, b, xdraw.Src, nil)
	return dst
}
