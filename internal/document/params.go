package document

// Params holds the tunable thresholds of corner detection and flattening.
type Params struct {
	// edges-quad strategy
	BlurKernel    int     // Gaussian kernel size before Canny
	CannyLow      float32 // Canny hysteresis low threshold
	CannyHigh     float32 // Canny hysteresis high threshold
	MaxCandidates int     // How many of the largest contours to approximate
	ApproxEpsilon float64 // approxPolyDP epsilon as a fraction of perimeter
	MinQuadArea   float64 // Minimum area of an accepted 4-vertex polygon (px²)
	RequireConvex bool    // Also reject concave or self-crossing 4-vertex polygons

	// threshold-roi strategy
	ThresholdBlock int     // Adaptive threshold neighbourhood (odd)
	ThresholdC     float32 // Constant subtracted from the neighbourhood mean
	MorphKernel    int     // Square kernel for the open + dilate pass
	MinROIArea     float64 // Minimum area of the largest contour (px²)
	MinROISide     int     // Minimum width and height of its bounding box

	// Flattening
	MinWarpSize int // Below this target width or height the warp is skipped
}

// DefaultParams returns the thresholds tuned for phone photos of A4 answer sheets.
func DefaultParams() Params {
	return Params{
		BlurKernel:    5,
		CannyLow:      50,
		CannyHigh:     150,
		MaxCandidates: 12,
		ApproxEpsilon: 0.02,
		MinQuadArea:   1000,
		RequireConvex: false,

		ThresholdBlock: 31,
		ThresholdC:     7,
		MorphKernel:    3,
		MinROIArea:     1500,
		MinROISide:     50,

		MinWarpSize: 50,
	}
}
