package bubble

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Locator scores every bubble of a flattened sheet.
type Locator struct {
	Params   Params
	Detector Detector // Nil uses DetectHoughCircles
}

// NewLocator returns a Locator using Hough circle detection.
func NewLocator(params Params) *Locator {
	return &Locator{Params: params}
}

// Locate normalizes sheet to the configured size and produces a fill score
// for every (question, choice) cell.
//
// When at least MinDetections circles are found both before and after radius
// filtering, the circles are clustered into a grid and each cell is scored by
// FillScore. Otherwise every cell is scored by CellDensity over an even
// subdivision of the region of interest. The caller closes the result.
func (l *Locator) Locate(sheet gocv.Mat) (*LocateResult, error) {
	p := l.Params
	if sheet.Empty() {
		return nil, fmt.Errorf("empty sheet image")
	}
	if p.Questions <= 0 || p.Choices <= 0 {
		return nil, fmt.Errorf("invalid layout %dx%d", p.Questions, p.Choices)
	}

	bounds := image.Rect(0, 0, p.SheetWidth, p.SheetHeight)
	roi := p.ROI.Intersect(bounds)
	if roi.Empty() {
		return nil, fmt.Errorf("region of interest %v lies outside the %dx%d sheet", p.ROI, p.SheetWidth, p.SheetHeight)
	}

	res := &LocateResult{
		ROI:       roi,
		ROIMethod: ROIMethodFixed,
		Questions: p.Questions,
		Choices:   p.Choices,
		Sheet:     normalize(sheet, p.SheetWidth, p.SheetHeight),
	}

	gray := toGray(res.Sheet)
	defer gray.Close()
	k := p.BlurKernel
	gocv.GaussianBlur(gray, &gray, image.Point{k, k}, 0, 0, gocv.BorderDefault)

	res.Threshold = threshold(gray, p)

	detect := l.Detector
	if detect == nil {
		detect = DetectHoughCircles
	}
	grayROI := gray.Region(roi)
	raw := detect(grayROI, p)
	grayROI.Close()

	res.CircleCount = len(raw)
	need := p.MinDetections()

	if len(raw) >= need {
		kept, _ := FilterByRadius(raw, p.RadiusLow, p.RadiusHigh)
		if len(kept) >= need && len(kept) > 0 {
			circles := make([]Circle, len(kept))
			for i, c := range kept {
				circles[i] = c.Offset(roi.Min.X, roi.Min.Y)
			}
			grid, err := BuildGrid(circles, p.Questions, p.Choices, p)
			if err != nil {
				res.Close()
				return nil, fmt.Errorf("building grid: %w", err)
			}

			res.Strategy = StrategyCircleGrid
			res.Circles = circles
			res.Grid = grid
			res.MedianRadius = int(MedianRadius(circles))
			res.Scores = scoreGrid(gray, grid, p)
			return res, nil
		}
	}

	res.Strategy = StrategyGridDensity
	res.ROIMethod = ROIMethodTemplate
	res.Scores = scoreDensity(res.Threshold, roi, p.Questions, p.Choices)
	return res, nil
}

func scoreGrid(gray gocv.Mat, g *Grid, p Params) [][]float64 {
	scores := make([][]float64, g.Rows())
	for q := range scores {
		scores[q] = make([]float64, g.Cols())
		for c := range scores[q] {
			if circle, ok := g.Cell(q, c); ok {
				scores[q][c] = FillScore(gray, circle, p)
			}
		}
	}
	return scores
}

func scoreDensity(binary gocv.Mat, roi image.Rectangle, questions, choices int) [][]float64 {
	cells := DensityCells(roi, questions, choices)
	scores := make([][]float64, questions)
	for q := range scores {
		scores[q] = make([]float64, choices)
		for c := range scores[q] {
			scores[q][c] = CellDensity(binary, cells[q*choices+c])
		}
	}
	return scores
}

// normalize resizes sheet to w x h and converts it to BGR.
func normalize(sheet gocv.Mat, w, h int) gocv.Mat {
	bgr := gocv.NewMat()
	switch sheet.Channels() {
	case 1:
		gocv.CvtColor(sheet, &bgr, gocv.ColorGrayToBGR)
	case 4:
		gocv.CvtColor(sheet, &bgr, gocv.ColorBGRAToBGR)
	default:
		sheet.CopyTo(&bgr)
	}
	if bgr.Cols() == w && bgr.Rows() == h {
		return bgr
	}
	resized := gocv.NewMat()
	gocv.Resize(bgr, &resized, image.Point{X: w, Y: h}, 0, 0, gocv.InterpolationArea)
	bgr.Close()
	return resized
}

// threshold produces the binary inverted map used by the density path and
// debug output.
func threshold(gray gocv.Mat, p Params) gocv.Mat {
	thr := gocv.NewMat()
	gocv.AdaptiveThreshold(gray, &thr, 255, gocv.AdaptiveThresholdGaussian,
		gocv.ThresholdBinaryInv, p.ThresholdBlock, p.ThresholdC)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{p.OpenKernel, p.OpenKernel})
	defer kernel.Close()
	gocv.MorphologyEx(thr, &thr, gocv.MorphOpen, kernel)
	return thr
}

func toGray(img gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	return gray
}
