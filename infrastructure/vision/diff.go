package vision

import (
	"image"
	"math"
)

// MeanAbsDiff returns the mean absolute grayscale difference of two images.
// Images of different sizes are maximally different.
func MeanAbsDiff(a, b image.Image) float64 {
	if a == nil || b == nil {
		return math.MaxFloat64
	}
	if a.Bounds().Dx() != b.Bounds().Dx() || a.Bounds().Dy() != b.Bounds().Dy() {
		return math.MaxFloat64
	}

	ga, gb := Gray(a), Gray(b)
	w, h := ga.Rect.Dx(), ga.Rect.Dy()
	if w == 0 || h == 0 {
		return 0
	}

	var total int64
	for y := 0; y < h; y++ {
		ra := ga.Pix[y*ga.Stride : y*ga.Stride+w]
		rb := gb.Pix[y*gb.Stride : y*gb.Stride+w]
		for x := range ra {
			d := int64(ra[x]) - int64(rb[x])
			if d < 0 {
				d = -d
			}
			total += d
		}
	}
	return float64(total) / float64(w*h)
}

// Differs reports whether the mean difference of a and b exceeds threshold.
func Differs(a, b image.Image, threshold float64) bool {
	return MeanAbsDiff(a, b) > threshold
}
