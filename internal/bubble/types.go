// Package bubble finds the answer-bubble grid on a flattened sheet and scores
// how dark each bubble is.
package bubble

import (
	"image"

	"gocv.io/x/gocv"
)

// Strategy names the scoring path a sheet went through.
type Strategy string

const (
	// StrategyCircleGrid scores bubbles found by circle detection and
	// clustered into rows and columns.
	StrategyCircleGrid Strategy = "circle-grid"
	// StrategyGridDensity scores an even subdivision of the region of
	// interest. It is used when circle detection is not trustworthy.
	StrategyGridDensity Strategy = "grid-density"
)

// ROI methods reported alongside the scores.
const (
	ROIMethodFixed    = "fixed-roi-no-question-numbers"
	ROIMethodTemplate = "template-fallback"
)

// Assignment selects how detected circles are matched to grid cells.
type Assignment string

const (
	// AssignGreedy walks cells row-major and takes the nearest unused circle.
	AssignGreedy Assignment = "greedy"
	// AssignOptimal minimises the total squared distance over all cells.
	AssignOptimal Assignment = "optimal"
)

// Circle is a detected bubble in sheet coordinates.
type Circle struct {
	X int `json:"x"`
	Y int `json:"y"`
	R int `json:"r"`
}

// Offset returns c translated by (dx, dy).
func (c Circle) Offset(dx, dy int) Circle {
	return Circle{X: c.X + dx, Y: c.Y + dy, R: c.R}
}

// LocateResult holds the per-cell fill scores of one sheet together with the
// intermediate images used to produce them.
type LocateResult struct {
	Strategy     Strategy
	ROI          image.Rectangle // In normalized sheet coordinates
	ROIMethod    string
	Questions    int
	Choices      int
	Scores       [][]float64 // Scores[q][c] in [0, 1], higher is darker
	CircleCount  int         // Raw detections before radius filtering
	MedianRadius int         // Median radius of Circles, truncated
	Circles      []Circle    // Circles kept by the radius filter, in sheet coordinates
	Grid         *Grid       // Nil on the density path

	// Intermediates, owned by the result. Release them with Close.
	Sheet     gocv.Mat // Normalized BGR sheet
	Threshold gocv.Mat // Binary inverted threshold of Sheet
}

// Close releases the intermediate images.
func (r *LocateResult) Close() {
	if r == nil {
		return
	}
	r.Sheet.Close()
	r.Threshold.Close()
}
