// Package geometry pads sketches up to one of the provider's supported aspect
// ratios and crops generated panels back to the original dimensions.
package geometry

import (
	"image"
	"image/color"
	"image/draw"
	"math"
)

// The provider accepts exactly these aspect ratios. Enumeration order matters:
// PickBestRatio keeps the first candidate with minimal padding overhead.
var supportedRatios = [...][2]int{{1, 1}, {2, 3}, {3, 2}}

func paddedDims(w, h, a, b int) (int, int) {
	scale := math.Max(float64(w)/float64(a), float64(h)/float64(b))
	return int(math.Ceil(float64(a) * scale)), int(math.Ceil(float64(b) * scale))
}

func paddingOverhead(w, h, a, b int) int64 {
	newW, newH := paddedDims(w, h, a, b)
	return int64(newW)*int64(newH) - int64(w)*int64(h)
}

// PickBestRatio chooses the supported ratio that minimizes padding area for an
// image of the given size. Ties resolve to the earliest candidate, so the
// choice is deterministic for identical inputs.
func PickBestRatio(w, h int) (int, int) {
	best := supportedRatios[0]
	bestOverhead := paddingOverhead(w, h, best[0], best[1])
	for _, c := range supportedRatios[1:] {
		if overhead := paddingOverhead(w, h, c[0], c[1]); overhead < bestOverhead {
			best, bestOverhead = c, overhead
		}
	}
	return best[0], best[1]
}

// PadToAspect centers img on a transparent canvas sized to the best supported
// ratio. It returns the padded canvas, an RGBA mask whose alpha is fully
// opaque exactly over the pasted region, and the paste offset needed to crop
// the generated result back.
func PadToAspect(img image.Image) (padded, mask *image.NRGBA, offset image.Point) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	a, b := PickBestRatio(w, h)
	newW, newH := paddedDims(w, h, a, b)
	offset = image.Pt((newW-w)/2, (newH-h)/2)

	content := image.Rect(offset.X, offset.Y, offset.X+w, offset.Y+h)

	padded = image.NewNRGBA(image.Rect(0, 0, newW, newH))
	draw.Draw(padded, content, img, bounds.Min, draw.Src)

	mask = image.NewNRGBA(image.Rect(0, 0, newW, newH))
	opaque := image.NewUniform(color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	draw.Draw(mask, content, opaque, image.Point{}, draw.Src)

	return padded, mask, offset
}

// CropBack extracts the original content region from a generated panel. It is
// the exact inverse of the paste performed by PadToAspect.
func CropBack(img image.Image, offset image.Point, origW, origH int) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, origW, origH))
	src := img.Bounds().Min.Add(offset)
	draw.Draw(out, out.Bounds(), img, src, draw.Src)
	return out
}
