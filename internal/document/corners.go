// Package document locates an answer sheet inside a photo and flattens it
// into an upright rectangle.
package document

import (
	"image"
	"sort"

	"omr-reader/pkg/geometry"

	"gocv.io/x/gocv"
)

// Method names the strategy that produced a set of corners.
type Method string

const (
	// MethodEdgesQuad is a 4-vertex polygon approximated from Canny contours.
	MethodEdgesQuad Method = "edges-quad"
	// MethodThresholdROI is the bounding box of the largest thresholded region.
	MethodThresholdROI Method = "threshold-roi"
	// MethodFullImage is the image's own border. It always succeeds.
	MethodFullImage Method = "full-image"
)

// CornerDetectionResult holds detected sheet corners.
type CornerDetectionResult struct {
	Corners geometry.Quad // Ordered: TL, TR, BR, BL
	Method  Method
}

// DetectCorners finds the four corners of the answer sheet.
//
// Strategies run in order and the first success wins: edges-quad,
// threshold-roi, full-image. The last one cannot fail, so a result is
// always returned for a non-empty image.
func DetectCorners(img gocv.Mat, params Params) CornerDetectionResult {
	gray := toGray(img)
	defer gray.Close()

	if quad, ok := findQuadFromEdges(gray, params); ok {
		return CornerDetectionResult{Corners: geometry.OrderPoints(quad), Method: MethodEdgesQuad}
	}

	if quad, ok := findROIByThreshold(gray, params); ok {
		return CornerDetectionResult{Corners: geometry.OrderPoints(quad), Method: MethodThresholdROI}
	}

	w, h := float64(img.Cols()), float64(img.Rows())
	return CornerDetectionResult{
		Corners: geometry.RectQuad(0, 0, w-1, h-1),
		Method:  MethodFullImage,
	}
}

// findQuadFromEdges looks for the page outline as a 4-vertex polygon among
// the largest external contours of the edge map.
func findQuadFromEdges(gray gocv.Mat, params Params) ([4]geometry.Point2D, bool) {
	blurred := gocv.NewMat()
	defer blurred.Close()
	k := params.BlurKernel
	gocv.GaussianBlur(gray, &blurred, image.Point{k, k}, 0, 0, gocv.BorderDefault)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(blurred, &edges, params.CannyLow, params.CannyHigh)

	contours := gocv.FindContours(edges, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	if contours.Size() == 0 {
		return [4]geometry.Point2D{}, false
	}

	for _, idx := range contoursByArea(contours, params.MaxCandidates) {
		contour := contours.At(idx)

		epsilon := params.ApproxEpsilon * gocv.ArcLength(contour, true)
		approx := gocv.ApproxPolyDP(contour, epsilon, true)

		if approx.Size() != 4 {
			approx.Close()
			continue
		}
		var quad [4]geometry.Point2D
		for j := 0; j < 4; j++ {
			pt := approx.At(j)
			quad[j] = geometry.Point2D{X: float64(pt.X), Y: float64(pt.Y)}
		}
		approx.Close()

		if geometry.PolygonArea(quad[:]) <= params.MinQuadArea {
			continue
		}
		if !params.RequireConvex || geometry.IsConvex(quad[:]) {
			return quad, true
		}
	}

	return [4]geometry.Point2D{}, false
}

// findROIByThreshold recovers a darker content region when the page edges
// are too noisy for findQuadFromEdges.
func findROIByThreshold(gray gocv.Mat, params Params) ([4]geometry.Point2D, bool) {
	thr := gocv.NewMat()
	defer thr.Close()
	gocv.AdaptiveThreshold(gray, &thr, 255, gocv.AdaptiveThresholdGaussian,
		gocv.ThresholdBinaryInv, params.ThresholdBlock, params.ThresholdC)

	// Open removes specks, dilate reconnects broken strokes
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{params.MorphKernel, params.MorphKernel})
	defer kernel.Close()
	gocv.MorphologyEx(thr, &thr, gocv.MorphOpen, kernel)
	gocv.Dilate(thr, &thr, kernel)

	contours := gocv.FindContours(thr, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	largest := contoursByArea(contours, 1)
	if len(largest) == 0 {
		return [4]geometry.Point2D{}, false
	}

	contour := contours.At(largest[0])
	if gocv.ContourArea(contour) < params.MinROIArea {
		return [4]geometry.Point2D{}, false
	}

	rect := gocv.BoundingRect(contour)
	if rect.Dx() < params.MinROISide || rect.Dy() < params.MinROISide {
		return [4]geometry.Point2D{}, false
	}

	q := geometry.RectQuad(float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Max.X), float64(rect.Max.Y))
	return [4]geometry.Point2D(q), true
}

// contoursByArea returns the indices of the n largest contours, largest first.
func contoursByArea(contours gocv.PointsVector, n int) []int {
	type scored struct {
		idx  int
		area float64
	}

	all := make([]scored, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		all[i] = scored{idx: i, area: gocv.ContourArea(contours.At(i))}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].area > all[j].area
	})

	if n > len(all) {
		n = len(all)
	}
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = all[i].idx
	}
	return out
}

// toGray returns a single-channel copy of img. The caller closes it.
func toGray(img gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	switch img.Channels() {
	case 1:
		img.CopyTo(&gray)
	case 4:
		gocv.CvtColor(img, &gray, gocv.ColorBGRAToGray)
	default:
		gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	}
	return gray
}
