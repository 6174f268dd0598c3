package document

import (
	"fmt"
	"image"
	"math"

	"omr-reader/pkg/geometry"

	"gocv.io/x/gocv"
)

// WarpResult holds a flattened sheet and the quad it was cut from.
type WarpResult struct {
	Image  gocv.Mat      // Flattened image, owned by the caller
	Quad   geometry.Quad // Source quad in canonical order
	Warped bool          // False when the quad was too small and the input was passed through
	Width  int
	Height int
}

// TargetSize returns the flattened size for a quad: the longer of each pair of
// opposite edges, rounded down.
func TargetSize(q geometry.Quad) (width, height int) {
	top, bottom, left, right := q.EdgeLengths()
	width = int(math.Floor(math.Max(top, bottom)))
	height = int(math.Floor(math.Max(left, right)))
	return width, height
}

// FourPointTransform warps the region bounded by pts into an upright rectangle.
//
// The points are ordered first, so any permutation is accepted. When either
// target dimension is below params.MinWarpSize the quad is not treated as a
// document: a copy of the input is returned with Warped=false. This is not an
// error.
func FourPointTransform(img gocv.Mat, pts [4]geometry.Point2D, params Params) (WarpResult, error) {
	quad := geometry.OrderPoints(pts)
	width, height := TargetSize(quad)

	if width < params.MinWarpSize || height < params.MinWarpSize {
		return WarpResult{
			Image:  img.Clone(),
			Quad:   quad,
			Width:  img.Cols(),
			Height: img.Rows(),
		}, nil
	}

	dst := geometry.RectQuad(0, 0, float64(width-1), float64(height-1))
	h, err := geometry.SolveHomography(quad, dst)
	if err != nil {
		return WarpResult{}, fmt.Errorf("solving homography: %w", err)
	}

	m := homographyToMat(h)
	defer m.Close()

	warped := gocv.NewMat()
	gocv.WarpPerspective(img, &warped, m, image.Point{X: width, Y: height})

	return WarpResult{
		Image:  warped,
		Quad:   quad,
		Warped: true,
		Width:  width,
		Height: height,
	}, nil
}

// homographyToMat copies a homography into a 3x3 CV_64F Mat.
func homographyToMat(h geometry.Homography) gocv.Mat {
	m := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	for r, row := range h.Rows() {
		for c, v := range row {
			m.SetDoubleAt(r, c, v)
		}
	}
	return m
}
