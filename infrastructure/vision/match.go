package vision

import (
	"image"
	"math"
)

// coarseMinSide is the smallest template side that still matches reliably
// after downscaling.
const coarseMinSide = 24

// Match is the best template position found in a haystack.
type Match struct {
	// TopLeft is the template origin in haystack coordinates
	TopLeft image.Point
	Size    image.Point
	Score   float64
}

// Center returns the centre of the matched area.
func (m Match) Center() image.Point {
	return image.Point{X: m.TopLeft.X + m.Size.X/2, Y: m.TopLeft.Y + m.Size.Y/2}
}

// MatchTemplate finds the position where needle best matches haystack using
// normalized cross-correlation. Scores are in [-1, 1]. Large templates are
// searched on downscaled copies first, one per block phase, and each coarse
// peak is refined at full resolution.
func MatchTemplate(haystack, needle *image.Gray) (Match, bool) {
	hw, hh := haystack.Rect.Dx(), haystack.Rect.Dy()
	nw, nh := needle.Rect.Dx(), needle.Rect.Dy()
	if nw == 0 || nh == 0 || nw > hw || nh > hh {
		return Match{}, false
	}

	factor := 1
	for f := 4; f > 1; f /= 2 {
		if nw/f >= coarseMinSide && nh/f >= coarseMinSide {
			factor = f
			break
		}
	}

	if factor == 1 {
		p, score := nccSearch(haystack, needle, image.Rect(0, 0, hw-nw+1, hh-nh+1))
		return Match{TopLeft: p, Size: image.Pt(nw, nh), Score: score}, true
	}

	// block averages only line up when the haystack is cut at the same phase
	// as the template origin, so every phase gets its own coarse search
	smallNeedle := downscale(needle, factor)
	valid := image.Rect(0, 0, hw-nw+1, hh-nh+1)
	best := Match{Size: image.Pt(nw, nh), Score: math.Inf(-1)}
	for py := 0; py < factor; py++ {
		for px := 0; px < factor; px++ {
			small := downscale(crop(haystack, image.Rect(px, py, hw, hh)), factor)
			sw, sh := small.Rect.Dx()-smallNeedle.Rect.Dx()+1, small.Rect.Dy()-smallNeedle.Rect.Dy()+1
			if sw <= 0 || sh <= 0 {
				continue
			}
			coarse, _ := nccSearch(small, smallNeedle, image.Rect(0, 0, sw, sh))

			// refine around the coarse hit, clipped to valid origins
			origin := image.Pt(coarse.X*factor+px, coarse.Y*factor+py)
			window := image.Rect(origin.X-factor, origin.Y-factor, origin.X+factor+1, origin.Y+factor+1).Intersect(valid)
			if window.Empty() {
				continue
			}
			p, score := nccSearch(haystack, needle, window)
			if score > best.Score {
				best.TopLeft, best.Score = p, score
			}
		}
	}
	if math.IsInf(best.Score, -1) {
		p, score := nccSearch(haystack, needle, valid)
		best.TopLeft, best.Score = p, score
	}
	return best, true
}

// nccSearch scores every origin inside origins and returns the best one.
func nccSearch(haystack, needle *image.Gray, origins image.Rectangle) (image.Point, float64) {
	nw, nh := needle.Rect.Dx(), needle.Rect.Dy()
	n := float64(nw * nh)

	var tSum float64
	for y := 0; y < nh; y++ {
		for _, v := range needle.Pix[y*needle.Stride : y*needle.Stride+nw] {
			tSum += float64(v)
		}
	}
	tMean := tSum / n

	centered := make([]float64, nw*nh)
	var tVar float64
	for y := 0; y < nh; y++ {
		for x := 0; x < nw; x++ {
			d := float64(needle.Pix[y*needle.Stride+x]) - tMean
			centered[y*nw+x] = d
			tVar += d * d
		}
	}

	table := newIntegral(haystack)
	best, bestScore := origins.Min, math.Inf(-1)
	for oy := origins.Min.Y; oy < origins.Max.Y; oy++ {
		for ox := origins.Min.X; ox < origins.Max.X; ox++ {
			sum, sumSq := table.rect(ox, oy, nw, nh)
			iVar := sumSq - sum*sum/n

			var score float64
			switch {
			case tVar == 0 && iVar < 1e-6:
				score = 1 - math.Abs(sum/n-tMean)/255
			case tVar == 0 || iVar < 1e-6:
				score = 0
			default:
				var cross float64
				for y := 0; y < nh; y++ {
					row := haystack.Pix[(oy+y)*haystack.Stride+ox:]
					t := centered[y*nw : y*nw+nw]
					for x, c := range t {
						cross += float64(row[x]) * c
					}
				}
				score = cross / math.Sqrt(tVar*iVar)
			}

			if score > bestScore {
				best, bestScore = image.Pt(ox, oy), score
			}
		}
	}
	return best, bestScore
}
