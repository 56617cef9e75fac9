package ocr

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// OtsuLevel returns the threshold that maximizes the between-class variance
// of the gray histogram. Pixels below the level are foreground.
func OtsuLevel(g *image.Gray) uint8 {
	var hist [256]int
	b := g.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := g.Pix[(y-b.Min.Y)*g.Stride:]
		for x := 0; x < b.Dx(); x++ {
			hist[row[x]]++
		}
	}

	total := b.Dx() * b.Dy()
	if total == 0 {
		return 128
	}
	var sum float64
	for i, n := range hist {
		sum += float64(i * n)
	}

	var (
		sumB, best float64
		wB         int
		level      int
	)
	for t := 0; t < 256; t++ {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t * hist[t])
		mB := sumB / float64(wB)
		mF := (sum - sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			level = t
		}
	}
	// Pixels at or below the class boundary belong to the dark class.
	return uint8(min(level+1, 255))
}

// Binarize maps pixels below level to black and the rest to white.
func Binarize(g *image.Gray, level uint8) *image.Gray {
	out := image.NewGray(g.Bounds())
	for i, v := range g.Pix {
		if v >= level {
			out.Pix[i] = 255
		}
	}
	return out
}

// AutoContrast stretches the histogram so that the darkest and lightest
// cutoff fraction of pixels map to 0 and 255.
func AutoContrast(g *image.Gray, cutoff float64) *image.Gray {
	var hist [256]int
	for _, v := range g.Pix {
		hist[v]++
	}
	n := len(g.Pix)
	skip := int(float64(n) * cutoff)

	lo, acc := 0, 0
	for ; lo < 255; lo++ {
		acc += hist[lo]
		if acc > skip {
			break
		}
	}
	hi := 255
	acc = 0
	for ; hi > 0; hi-- {
		acc += hist[hi]
		if acc > skip {
			break
		}
	}

	out := image.NewGray(g.Bounds())
	if hi <= lo {
		copy(out.Pix, g.Pix)
		return out
	}
	scale := 255.0 / float64(hi-lo)
	var lut [256]uint8
	for i := range lut {
		v := (float64(i) - float64(lo)) * scale
		lut[i] = uint8(math.Round(min(max(v, 0), 255)))
	}
	for i, v := range g.Pix {
		out.Pix[i] = lut[v]
	}
	return out
}

// AdaptiveMean thresholds each pixel against the mean of its block x block
// neighbourhood minus c. The window is clipped at the image border.
func AdaptiveMean(g *image.Gray, block int, c float64) *image.Gray {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(b)
	if w == 0 || h == 0 {
		return out
	}

	// integral[y+1][x+1] holds the sum of the rectangle up to (x, y).
	integral := make([]int64, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		var rowSum int64
		for x := 0; x < w; x++ {
			rowSum += int64(g.Pix[y*g.Stride+x])
			integral[(y+1)*(w+1)+x+1] = integral[y*(w+1)+x+1] + rowSum
		}
	}

	r := block / 2
	for y := 0; y < h; y++ {
		y0, y1 := max(y-r, 0), min(y+r+1, h)
		for x := 0; x < w; x++ {
			x0, x1 := max(x-r, 0), min(x+r+1, w)
			sum := integral[y1*(w+1)+x1] - integral[y0*(w+1)+x1] -
				integral[y1*(w+1)+x0] + integral[y0*(w+1)+x0]
			mean := float64(sum) / float64((x1-x0)*(y1-y0))
			if float64(g.Pix[y*g.Stride+x]) > mean-c {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

// AdaptiveGaussian is AdaptiveMean with a Gaussian-weighted neighbourhood.
func AdaptiveGaussian(g *image.Gray, block int, c float64) *image.Gray {
	sigma := 0.3*(float64(block-1)*0.5-1) + 0.8
	blurred := imaging.Blur(g, sigma)

	b := g.Bounds()
	out := image.NewGray(b)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			local := float64(blurred.Pix[y*blurred.Stride+x*4])
			if float64(g.Pix[y*g.Stride+x]) > local-c {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

// Median3 applies a 3x3 median filter.
func Median3(g *image.Gray) *image.Gray {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(b)
	var win [9]uint8
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			n := 0
			for dy := -1; dy <= 1; dy++ {
				yy := min(max(y+dy, 0), h-1)
				for dx := -1; dx <= 1; dx++ {
					xx := min(max(x+dx, 0), w-1)
					win[n] = g.Pix[yy*g.Stride+xx]
					n++
				}
			}
			for i := 1; i < len(win); i++ {
				for j := i; j > 0 && win[j] < win[j-1]; j-- {
					win[j], win[j-1] = win[j-1], win[j]
				}
			}
			out.Pix[y*out.Stride+x] = win[4]
		}
	}
	return out
}

// Open3 removes dark specks smaller than 3x3: the dark foreground is eroded
// (a max filter) and then dilated back (a min filter).
func Open3(g *image.Gray) *image.Gray {
	return rankFilter3(rankFilter3(g, true), false)
}

func rankFilter3(g *image.Gray, takeMax bool) *image.Gray {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(b)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := g.Pix[y*g.Stride+x]
			for dy := -1; dy <= 1; dy++ {
				yy := y + dy
				if yy < 0 || yy >= h {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					xx := x + dx
					if xx < 0 || xx >= w {
						continue
					}
					p := g.Pix[yy*g.Stride+xx]
					if takeMax && p > v || !takeMax && p < v {
						v = p
					}
				}
			}
			out.Pix[y*out.Stride+x] = v
		}
	}
	return out
}
