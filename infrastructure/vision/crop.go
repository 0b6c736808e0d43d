package vision

import (
	"image"
	"sort"

	"desktop_automation/domain/entities"
)

// Text region detection tunables.
const (
	localBlock     = 11
	inkContrast    = 8
	smearGapX      = 8
	smearGapY      = 3
	minTextSide    = 20
	maxAspectRatio = 10.0
	minAspectRatio = 0.1
	cropPadding    = 10
	maxCropRegions = 5
)

// TextRegions proposes up to five padded rectangles likely to contain text,
// ordered by hint: top, bottom, left and right sort by edge, anything else
// sorts largest first.
func TextRegions(g *image.Gray, hint entities.TextHint) []entities.Region {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	mask := inkMask(g)
	smear(mask, w, h)
	boxes := components(mask, w, h)

	regions := make([]entities.Region, 0, len(boxes))
	for _, b := range boxes {
		bw, bh := b.Dx(), b.Dy()
		if bw < minTextSide || bh < minTextSide {
			continue
		}
		aspect := float64(bw) / float64(bh)
		if aspect < minAspectRatio || aspect > maxAspectRatio {
			continue
		}
		regions = append(regions, entities.Region{X: b.Min.X, Y: b.Min.Y, W: bw, H: bh})
	}

	switch hint {
	case entities.HintTop:
		sort.SliceStable(regions, func(i, j int) bool { return regions[i].Y < regions[j].Y })
	case entities.HintBottom:
		sort.SliceStable(regions, func(i, j int) bool { return regions[i].Y > regions[j].Y })
	case entities.HintLeft:
		sort.SliceStable(regions, func(i, j int) bool { return regions[i].X < regions[j].X })
	case entities.HintRight:
		sort.SliceStable(regions, func(i, j int) bool { return regions[i].X > regions[j].X })
	default:
		sort.SliceStable(regions, func(i, j int) bool {
			return regions[i].W*regions[i].H > regions[j].W*regions[j].H
		})
	}

	if len(regions) > maxCropRegions {
		regions = regions[:maxCropRegions]
	}
	for i, r := range regions {
		regions[i] = pad(r, cropPadding, w, h)
	}
	return regions
}

// inkMask marks pixels that stand out from their local neighbourhood mean.
func inkMask(g *image.Gray) []bool {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	table := newIntegral(g)
	half := localBlock / 2
	mask := make([]bool, w*h)

	for y := 0; y < h; y++ {
		y0, y1 := max(0, y-half), min(h, y+half+1)
		for x := 0; x < w; x++ {
			x0, x1 := max(0, x-half), min(w, x+half+1)
			sum, _ := table.rect(x0, y0, x1-x0, y1-y0)
			mean := sum / float64((x1-x0)*(y1-y0))
			d := float64(g.Pix[y*g.Stride+x]) - mean
			mask[y*w+x] = d > inkContrast || d < -inkContrast
		}
	}
	return mask
}

// smear closes short horizontal and vertical gaps so glyphs merge into words.
func smear(mask []bool, w, h int) {
	for y := 0; y < h; y++ {
		last := -1
		for x := 0; x < w; x++ {
			if !mask[y*w+x] {
				continue
			}
			if last >= 0 && x-last-1 <= smearGapX {
				for k := last + 1; k < x; k++ {
					mask[y*w+k] = true
				}
			}
			last = x
		}
	}
	for x := 0; x < w; x++ {
		last := -1
		for y := 0; y < h; y++ {
			if !mask[y*w+x] {
				continue
			}
			if last >= 0 && y-last-1 <= smearGapY {
				for k := last + 1; k < y; k++ {
					mask[k*w+x] = true
				}
			}
			last = y
		}
	}
}

// components returns bounding boxes of 8-connected regions of mask.
func components(mask []bool, w, h int) []image.Rectangle {
	seen := make([]bool, len(mask))
	var boxes []image.Rectangle
	stack := make([]int, 0, 1024)

	for start := range mask {
		if !mask[start] || seen[start] {
			continue
		}
		box := image.Rect(start%w, start/w, start%w+1, start/w+1)
		seen[start] = true
		stack = append(stack[:0], start)

		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := i%w, i/w
			box = box.Union(image.Rect(x, y, x+1, y+1))

			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					j := ny*w + nx
					if mask[j] && !seen[j] {
						seen[j] = true
						stack = append(stack, j)
					}
				}
			}
		}
		boxes = append(boxes, box)
	}
	return boxes
}

func pad(r entities.Region, p, w, h int) entities.Region {
	x0, y0 := max(0, r.X-p), max(0, r.Y-p)
	x1, y1 := min(w, r.X+r.W+p), min(h, r.Y+r.H+p)
	return entities.Region{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}
