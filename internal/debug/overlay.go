package debug

import (
	"image"

	"omr-reader/internal/bubble"
	"omr-reader/pkg/colorutil"

	"gocv.io/x/gocv"
)

// Artifact names, in the order a run writes them.
const (
	ArtifactSheet     = "warped_resized.jpg"
	ArtifactThreshold = "debug_thresh.jpg"
	ArtifactCircles   = "debug_circles.jpg"
	ArtifactGrid      = "debug_grid.jpg"
)

// Overlay draws what the locator saw on a copy of its normalized sheet and
// returns the artifact name together with the image. The caller closes it.
//
// On the circle-grid path every kept circle is outlined in a per-column
// colour and each assigned bubble gets an inner ring coloured by its fill
// score. On the density path the cell lattice is drawn, each cell tinted by
// its score.
func Overlay(res *bubble.LocateResult) (string, gocv.Mat) {
	vis := res.Sheet.Clone()

	if res.Strategy == bubble.StrategyCircleGrid && res.Grid != nil {
		gocv.Rectangle(&vis, res.ROI, colorutil.Green, 2)
		for _, c := range res.Circles {
			gocv.Circle(&vis, image.Point{X: c.X, Y: c.Y}, c.R, colorutil.Yellow, 1)
		}
		palette := colorutil.Palette(res.Grid.Cols())
		for q := 0; q < res.Grid.Rows(); q++ {
			for ch := 0; ch < res.Grid.Cols(); ch++ {
				c, ok := res.Grid.Cell(q, ch)
				if !ok {
					continue
				}
				center := image.Point{X: c.X, Y: c.Y}
				gocv.Circle(&vis, center, c.R+2, palette[ch], 1)
				gocv.Circle(&vis, center, int(float64(c.R)*0.55), colorutil.Ramp(res.Scores[q][ch]), 2)
			}
		}
		return ArtifactCircles, vis
	}

	for i, cell := range bubble.DensityCells(res.ROI, res.Questions, res.Choices) {
		q, ch := i/res.Choices, i%res.Choices
		gocv.Rectangle(&vis, cell, colorutil.Ramp(res.Scores[q][ch]), 1)
	}
	gocv.Rectangle(&vis, res.ROI, colorutil.Green, 3)
	return ArtifactGrid, vis
}
