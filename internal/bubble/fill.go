package bubble

import (
	"image"

	"gocv.io/x/gocv"
)

// FillScore measures how dark the inside of a bubble is, in [0, 1].
//
// A square patch of half-size max(MinPatchHalf, int(R*InnerRatio)) around the
// center is clipped to the image. Inside it, the pixels within a disk of
// radius MaskRatio*min(patch height, patch width) centered on the patch are
// averaged. The score is (255 - mean) / 255. A patch clipped to nothing
// scores 0.
func FillScore(gray gocv.Mat, c Circle, params Params) float64 {
	rr := int(float64(c.R) * params.InnerRatio)
	if rr < params.MinPatchHalf {
		rr = params.MinPatchHalf
	}

	x1, y1 := max(0, c.X-rr), max(0, c.Y-rr)
	x2, y2 := min(gray.Cols(), c.X+rr), min(gray.Rows(), c.Y+rr)
	if x2 <= x1 || y2 <= y1 {
		return 0
	}

	hh, ww := y2-y1, x2-x1
	cy, cx := float64(hh)/2, float64(ww)/2
	mr := float64(min(hh, ww)) * params.MaskRatio
	mr2 := mr * mr

	var sum float64
	var n int
	for yy := 0; yy < hh; yy++ {
		dy := float64(yy) - cy
		for xx := 0; xx < ww; xx++ {
			dx := float64(xx) - cx
			if dx*dx+dy*dy > mr2 {
				continue
			}
			sum += float64(gray.GetUCharAt(y1+yy, x1+xx))
			n++
		}
	}
	if n == 0 {
		return 0
	}

	mean := sum / float64(n)
	return clamp01((255 - mean) / 255)
}

// CellDensity returns the fraction of set pixels of a binary image inside
// rect. An empty rect scores 0.
func CellDensity(binary gocv.Mat, rect image.Rectangle) float64 {
	rect = rect.Intersect(image.Rect(0, 0, binary.Cols(), binary.Rows()))
	if rect.Empty() {
		return 0
	}
	cell := binary.Region(rect)
	defer cell.Close()
	return float64(gocv.CountNonZero(cell)) / float64(rect.Dx()*rect.Dy())
}

// DensityCells splits roi into questions x choices cells using truncated
// even subdivision. Cells are returned row-major.
func DensityCells(roi image.Rectangle, questions, choices int) []image.Rectangle {
	rowH := float64(roi.Dy()) / float64(questions)
	colW := float64(roi.Dx()) / float64(choices)

	cells := make([]image.Rectangle, 0, questions*choices)
	for q := 0; q < questions; q++ {
		y1 := roi.Min.Y + int(float64(q)*rowH)
		y2 := roi.Min.Y + int(float64(q+1)*rowH)
		for c := 0; c < choices; c++ {
			x1 := roi.Min.X + int(float64(c)*colW)
			x2 := roi.Min.X + int(float64(c+1)*colW)
			cells = append(cells, image.Rect(x1, y1, x2, y2))
		}
	}
	return cells
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
