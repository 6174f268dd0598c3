package bubble

import (
	"math"
	"sort"

	"gocv.io/x/gocv"
)

// Detector finds candidate circles in a grayscale region of interest.
// Returned circles are in the region's own coordinates.
type Detector func(gray gocv.Mat, params Params) []Circle

// DetectHoughCircles runs the Hough gradient transform on a median-blurred
// copy of gray.
func DetectHoughCircles(gray gocv.Mat, params Params) []Circle {
	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.MedianBlur(gray, &blurred, params.MedianKernel)

	circles := gocv.NewMat()
	defer circles.Close()
	gocv.HoughCirclesWithParams(blurred, &circles, gocv.HoughGradient,
		params.HoughDP, params.HoughMinDist,
		params.HoughParam1, params.HoughParam2,
		params.MinRadius, params.MaxRadius)

	if circles.Empty() || circles.Cols() == 0 {
		return nil
	}

	out := make([]Circle, circles.Cols())
	for i := 0; i < circles.Cols(); i++ {
		out[i] = Circle{
			X: int(math.Round(float64(circles.GetFloatAt(0, i*3)))),
			Y: int(math.Round(float64(circles.GetFloatAt(0, i*3+1)))),
			R: int(math.Round(float64(circles.GetFloatAt(0, i*3+2)))),
		}
	}
	return out
}

// FilterByRadius keeps circles whose radius lies within
// [low*median, high*median] of the whole set. It also returns the median.
func FilterByRadius(circles []Circle, low, high float64) ([]Circle, float64) {
	if len(circles) == 0 {
		return nil, 0
	}

	med := MedianRadius(circles)

	lo, hi := low*med, high*med
	kept := make([]Circle, 0, len(circles))
	for _, c := range circles {
		r := float64(c.R)
		if r >= lo && r <= hi {
			kept = append(kept, c)
		}
	}
	return kept, med
}

// MedianRadius returns the median radius of circles, 0 when there are none.
func MedianRadius(circles []Circle) float64 {
	radii := make([]float64, len(circles))
	for i, c := range circles {
		radii[i] = float64(c.R)
	}
	return median(radii)
}

// median returns the middle value, averaging the two middle values of an
// even-length input. values is not modified.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
