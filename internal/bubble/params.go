package bubble

import "image"

// Params holds the sheet layout and every threshold of bubble location and
// fill scoring.
type Params struct {
	// Layout
	Questions   int
	Choices     int
	SheetWidth  int             // Normalized sheet width
	SheetHeight int             // Normalized sheet height
	ROI         image.Rectangle // Answer area in normalized coordinates

	// Preprocessing
	BlurKernel     int     // Gaussian kernel before thresholding
	ThresholdBlock int     // Adaptive threshold neighbourhood (odd)
	ThresholdC     float32 // Constant subtracted from the neighbourhood mean
	OpenKernel     int     // Square kernel of the morphological open

	// Circle detection
	MedianKernel int     // Median blur before the Hough transform
	HoughDP      float64 // Inverse accumulator resolution
	HoughMinDist float64 // Minimum distance between circle centers
	HoughParam1  float64 // Canny high threshold
	HoughParam2  float64 // Accumulator threshold
	MinRadius    int
	MaxRadius    int

	// Strategy gate and radius filter
	MinDetectionRatio float64 // Fraction of questions*choices that must be detected
	RadiusLow         float64 // Kept radii are within [RadiusLow, RadiusHigh] x median
	RadiusHigh        float64

	// Clustering and assignment
	KMeansIterations int
	KMeansTolerance  float64 // Stop when no center moves more than this
	QuantileLow      float64 // Initial centers span [QuantileLow, QuantileHigh]
	QuantileHigh     float64
	Assignment       Assignment

	// Fill scoring
	InnerRatio   float64 // Half-size of the scored patch as a fraction of radius
	MinPatchHalf int     // Lower bound on the patch half-size
	MaskRatio    float64 // Inscribed mask radius as a fraction of the patch's short side
}

// DefaultParams returns the layout of the stock 10-question, 5-choice sheet
// normalized to 900x1200.
func DefaultParams() Params {
	return Params{
		Questions:   10,
		Choices:     5,
		SheetWidth:  900,
		SheetHeight: 1200,
		ROI:         image.Rect(95, 40, 890, 1160),

		BlurKernel:     3,
		ThresholdBlock: 25,
		ThresholdC:     8,
		OpenKernel:     2,

		MedianKernel: 5,
		HoughDP:      1.2,
		HoughMinDist: 52,
		HoughParam1:  120,
		HoughParam2:  30,
		MinRadius:    18,
		MaxRadius:    40,

		MinDetectionRatio: 0.7,
		RadiusLow:         0.75,
		RadiusHigh:        1.30,

		KMeansIterations: 25,
		KMeansTolerance:  0.5,
		QuantileLow:      0.1,
		QuantileHigh:     0.9,
		Assignment:       AssignGreedy,

		InnerRatio:   0.62,
		MinPatchHalf: 4,
		MaskRatio:    0.45,
	}
}

// WithLayout returns a copy of params for a sheet with the given grid size.
func (p Params) WithLayout(questions, choices int) Params {
	p.Questions = questions
	p.Choices = choices
	return p
}

// WithROI returns a copy of params with a different answer area.
func (p Params) WithROI(roi image.Rectangle) Params {
	p.ROI = roi.Canon()
	return p
}

// WithAssignment returns a copy of params using the given cell assignment.
func (p Params) WithAssignment(a Assignment) Params {
	p.Assignment = a
	return p
}

// MinDetections is the number of circles required before the circle-grid
// path is trusted.
func (p Params) MinDetections() int {
	return int(float64(p.Questions*p.Choices) * p.MinDetectionRatio)
}
