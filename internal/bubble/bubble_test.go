package bubble

import (
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

var ink = color.RGBA{R: 20, G: 20, B: 20, A: 255}

// sheetLayout returns bubble centers for the default 10x5 layout, one per
// cell, row-major.
func sheetLayout(p Params) []Circle {
	rowH := p.ROI.Dy() / p.Questions
	colW := p.ROI.Dx() / p.Choices
	var out []Circle
	for q := 0; q < p.Questions; q++ {
		for c := 0; c < p.Choices; c++ {
			out = append(out, Circle{
				X: p.ROI.Min.X + colW/2 + c*colW,
				Y: p.ROI.Min.Y + rowH/2 + q*rowH,
				R: 24,
			})
		}
	}
	return out
}

// drawSheet renders a white sheet with outlined bubbles. marks[q] is the
// filled choice of question q, or -1.
func drawSheet(p Params, circles []Circle, marks []int) gocv.Mat {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), p.SheetHeight, p.SheetWidth, gocv.MatTypeCV8UC3)
	for i, c := range circles {
		q, ch := i/p.Choices, i%p.Choices
		pt := image.Point{X: c.X, Y: c.Y}
		if marks[q] == ch {
			gocv.Circle(&img, pt, c.R, ink, -1)
		} else {
			gocv.Circle(&img, pt, c.R, ink, 2)
		}
	}
	return img
}

// fixedDetector reports exactly the given sheet circles, shifted into ROI
// coordinates.
func fixedDetector(circles []Circle) Detector {
	return func(_ gocv.Mat, p Params) []Circle {
		out := make([]Circle, len(circles))
		for i, c := range circles {
			out[i] = c.Offset(-p.ROI.Min.X, -p.ROI.Min.Y)
		}
		return out
	}
}

func TestKMeans1D(t *testing.T) {
	values := []float64{302, 98, 200, 100, 298, 202, 102, 198, 300}

	centers := KMeans1D(values, 3, 25, 0.5, 0.1, 0.9)

	require.Len(t, centers, 3)
	assert.InDelta(t, 100, centers[0], 1e-9)
	assert.InDelta(t, 200, centers[1], 1e-9)
	assert.InDelta(t, 300, centers[2], 1e-9)
}

func TestKMeans1D_StartingCenters(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	centers := KMeans1D(values, 3, 0, 0.5, 0.1, 0.9)

	require.Len(t, centers, 3)
	assert.InDelta(t, 1.9, centers[0], 1e-9)
	assert.InDelta(t, 5.5, centers[1], 1e-9)
	assert.InDelta(t, 9.1, centers[2], 1e-9)
}

func TestKMeans1D_UnevenClusters(t *testing.T) {
	values := []float64{10, 11, 12, 50, 51, 90, 91, 92, 93, 94, 130}

	centers := KMeans1D(values, 3, 25, 0.5, 0.1, 0.9)

	require.Len(t, centers, 3)
	assert.InDelta(t, 26.8, centers[0], 1e-9)
	assert.InDelta(t, 92, centers[1], 1e-9)
	assert.InDelta(t, 130, centers[2], 1e-9)
}

func TestQuantile(t *testing.T) {
	sorted := []float64{10, 20, 30, 40}
	assert.Equal(t, 10.0, quantile(sorted, 0))
	assert.Equal(t, 40.0, quantile(sorted, 1))
	assert.InDelta(t, 25, quantile(sorted, 0.5), 1e-9)
	assert.InDelta(t, 13, quantile(sorted, 0.1), 1e-9)
	assert.Equal(t, 7.0, quantile([]float64{7}, 0.9))
}

func TestKMeans1D_Degenerate(t *testing.T) {
	assert.Nil(t, KMeans1D(nil, 3, 25, 0.5, 0.1, 0.9))
	assert.Nil(t, KMeans1D([]float64{1, 2}, 0, 25, 0.5, 0.1, 0.9))

	// More centers than distinct values: empty clusters keep their position.
	centers := KMeans1D([]float64{5, 5, 5}, 3, 25, 0.5, 0.1, 0.9)
	assert.Equal(t, []float64{5, 5, 5}, centers)
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 3.0, median([]float64{5, 1, 3}))
	assert.Equal(t, 2.5, median([]float64{4, 1, 3, 2}))
	assert.Zero(t, median(nil))
}

func TestFilterByRadius(t *testing.T) {
	circles := []Circle{{R: 20}, {R: 22}, {R: 24}, {R: 21}, {R: 60}, {R: 10}}

	kept, med := FilterByRadius(circles, 0.75, 1.30)

	assert.Equal(t, 21.5, med)
	assert.Equal(t, []Circle{{R: 20}, {R: 22}, {R: 24}, {R: 21}}, kept)
}

func TestMinCostAssignment(t *testing.T) {
	cost := [][]float64{
		{4, 1, 3},
		{2, 0, 5},
		{3, 2, 2},
	}
	assert.Equal(t, []int{1, 0, 2}, minCostAssignment(cost))

	rect := [][]float64{
		{1, 5, 3},
		{2, 9, 1},
	}
	assert.Equal(t, []int{0, 2}, minCostAssignment(rect))
}

func TestBuildGrid_Greedy(t *testing.T) {
	p := DefaultParams()
	circles := sheetLayout(p)

	g, err := BuildGrid(circles, p.Questions, p.Choices, p)
	require.NoError(t, err)

	assert.Equal(t, p.Questions*p.Choices, g.Filled())
	for i, want := range circles {
		got, ok := g.Cell(i/p.Choices, i%p.Choices)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
}

func TestBuildGrid_GreedyTieFirstWins(t *testing.T) {
	circles := []Circle{{X: 10, Y: 0, R: 5}, {X: -10, Y: 0, R: 5}}

	g, err := BuildGrid(circles, 1, 1, DefaultParams())
	require.NoError(t, err)

	got, ok := g.Cell(0, 0)
	require.True(t, ok)
	assert.Equal(t, circles[0], got)
}

func TestBuildGrid_NoCircleReused(t *testing.T) {
	p := DefaultParams()
	all := sheetLayout(p)
	// Drop three bubbles so some cells must stay empty.
	circles := append(append(append([]Circle(nil), all[:7]...), all[8:20]...), all[22:]...)

	for _, mode := range []Assignment{AssignGreedy, AssignOptimal} {
		t.Run(string(mode), func(t *testing.T) {
			g, err := BuildGrid(circles, p.Questions, p.Choices, p.WithAssignment(mode))
			require.NoError(t, err)

			assert.Equal(t, len(circles), g.Filled())
			seen := map[Circle]bool{}
			for q := 0; q < g.Rows(); q++ {
				for c := 0; c < g.Cols(); c++ {
					circle, ok := g.Cell(q, c)
					if !ok {
						continue
					}
					assert.False(t, seen[circle], "circle %v assigned twice", circle)
					seen[circle] = true
				}
			}
		})
	}
}

func TestBuildGrid_OptimalLeavesMissingCellsEmpty(t *testing.T) {
	p := DefaultParams().WithAssignment(AssignOptimal)
	all := sheetLayout(p)
	circles := append(append([]Circle(nil), all[:7]...), all[8:]...)

	g, err := BuildGrid(circles, p.Questions, p.Choices, p)
	require.NoError(t, err)

	_, ok := g.Cell(1, 2)
	assert.False(t, ok)
	for i, want := range all {
		if i == 7 {
			continue
		}
		got, ok := g.Cell(i/p.Choices, i%p.Choices)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
}

func TestBuildGrid_OptimalOrderIndependent(t *testing.T) {
	p := DefaultParams().WithAssignment(AssignOptimal)
	circles := sheetLayout(p)
	for i := range circles {
		circles[i].X += (i % 3) - 1
		circles[i].Y += (i % 5) - 2
	}

	want, err := BuildGrid(circles, p.Questions, p.Choices, p)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 5; trial++ {
		shuffled := append([]Circle(nil), circles...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		got, err := BuildGrid(shuffled, p.Questions, p.Choices, p)
		require.NoError(t, err)
		for q := 0; q < p.Questions; q++ {
			for c := 0; c < p.Choices; c++ {
				a, _ := want.Cell(q, c)
				b, _ := got.Cell(q, c)
				assert.Equal(t, a, b)
			}
		}
	}
}

func TestBuildGrid_Errors(t *testing.T) {
	_, err := BuildGrid(nil, 10, 5, DefaultParams())
	assert.Error(t, err)
	_, err = BuildGrid([]Circle{{X: 1}}, 0, 5, DefaultParams())
	assert.Error(t, err)
	_, err = BuildGrid([]Circle{{X: 1}}, 1, 1, DefaultParams().WithAssignment("random"))
	assert.Error(t, err)
}

func TestFillScore(t *testing.T) {
	p := DefaultParams()
	gray := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), 200, 200, gocv.MatTypeCV8U)
	defer gray.Close()
	gocv.Circle(&gray, image.Point{X: 50, Y: 50}, 24, color.RGBA{A: 255}, -1)
	gocv.Circle(&gray, image.Point{X: 150, Y: 50}, 24, color.RGBA{A: 255}, 2)

	assert.InDelta(t, 1.0, FillScore(gray, Circle{X: 50, Y: 50, R: 24}, p), 1e-9)
	assert.InDelta(t, 0.0, FillScore(gray, Circle{X: 150, Y: 50, R: 24}, p), 1e-9)
	assert.Zero(t, FillScore(gray, Circle{X: -100, Y: -100, R: 24}, p))
}

func TestFillScore_ClippedPatchStaysInRange(t *testing.T) {
	p := DefaultParams()
	gray := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 40, 40, gocv.MatTypeCV8U)
	defer gray.Close()

	s := FillScore(gray, Circle{X: 0, Y: 0, R: 30}, p)
	assert.InDelta(t, 1.0, s, 1e-9)
}

func TestDensityCells(t *testing.T) {
	cells := DensityCells(image.Rect(10, 20, 20, 27), 2, 3)

	require.Len(t, cells, 6)
	assert.Equal(t, image.Rect(10, 20, 13, 23), cells[0])
	assert.Equal(t, image.Rect(13, 20, 16, 23), cells[1])
	assert.Equal(t, image.Rect(16, 20, 20, 23), cells[2])
	assert.Equal(t, image.Rect(10, 23, 13, 27), cells[3])
}

func TestCellDensity(t *testing.T) {
	bin := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 10, 10, gocv.MatTypeCV8U)
	defer bin.Close()
	gocv.Rectangle(&bin, image.Rect(0, 0, 5, 10), color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)

	assert.InDelta(t, 1.0, CellDensity(bin, image.Rect(0, 0, 5, 10)), 1e-9)
	assert.InDelta(t, 0.5, CellDensity(bin, image.Rect(0, 0, 10, 10)), 1e-9)
	assert.Zero(t, CellDensity(bin, image.Rect(20, 20, 30, 30)))
}

func TestLocate_CircleGrid(t *testing.T) {
	p := DefaultParams()
	circles := sheetLayout(p)
	marks := []int{0, 1, 2, -1, 4, 0, 1, 2, 3, 4}
	sheet := drawSheet(p, circles, marks)
	defer sheet.Close()

	loc := &Locator{Params: p, Detector: fixedDetector(circles)}
	res, err := loc.Locate(sheet)
	require.NoError(t, err)
	defer res.Close()

	assert.Equal(t, StrategyCircleGrid, res.Strategy)
	assert.Equal(t, ROIMethodFixed, res.ROIMethod)
	assert.Equal(t, 50, res.CircleCount)
	assert.Equal(t, 24, res.MedianRadius)
	require.Len(t, res.Scores, p.Questions)
	for q, row := range res.Scores {
		require.Len(t, row, p.Choices)
		for c, s := range row {
			if marks[q] == c {
				assert.Greater(t, s, 0.9, "q%d c%d", q, c)
			} else {
				assert.Less(t, s, 0.1, "q%d c%d", q, c)
			}
		}
	}
}

func TestLocate_TooFewCirclesFallsBack(t *testing.T) {
	p := DefaultParams()
	circles := sheetLayout(p)
	marks := []int{0, 1, 2, -1, 4, 0, 1, 2, 3, 4}
	sheet := drawSheet(p, circles, marks)
	defer sheet.Close()

	// 34 is one short of 70% of 50.
	loc := &Locator{Params: p, Detector: fixedDetector(circles[:34])}
	res, err := loc.Locate(sheet)
	require.NoError(t, err)
	defer res.Close()

	assert.Equal(t, StrategyGridDensity, res.Strategy)
	assert.Equal(t, ROIMethodTemplate, res.ROIMethod)
	assert.Equal(t, 34, res.CircleCount)
	assert.Nil(t, res.Grid)
	require.Len(t, res.Scores, p.Questions)
	for _, row := range res.Scores {
		require.Len(t, row, p.Choices)
		for _, s := range row {
			assert.GreaterOrEqual(t, s, 0.0)
			assert.LessOrEqual(t, s, 1.0)
		}
	}
}

func TestLocate_RadiusOutliersFailGate(t *testing.T) {
	p := DefaultParams()
	circles := sheetLayout(p)
	// Half the detections have wildly different radii, leaving fewer than
	// 35 within the band around the median.
	for i := range circles {
		if i%2 == 0 {
			circles[i].R = 60
		} else {
			circles[i].R = 10
		}
	}
	sheet := drawSheet(p, sheetLayout(p), make([]int, p.Questions))
	defer sheet.Close()

	loc := &Locator{Params: p, Detector: fixedDetector(circles)}
	res, err := loc.Locate(sheet)
	require.NoError(t, err)
	defer res.Close()

	assert.Equal(t, StrategyGridDensity, res.Strategy)
}

func TestLocate_DensityDistinguishesInk(t *testing.T) {
	p := DefaultParams().WithLayout(2, 2).WithROI(image.Rect(100, 100, 500, 500))
	sheet := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), p.SheetHeight, p.SheetWidth, gocv.MatTypeCV8UC3)
	defer sheet.Close()
	gocv.Rectangle(&sheet, image.Rect(150, 150, 250, 250), ink, -1)

	loc := &Locator{Params: p, Detector: fixedDetector(nil)}
	res, err := loc.Locate(sheet)
	require.NoError(t, err)
	defer res.Close()

	require.Equal(t, StrategyGridDensity, res.Strategy)
	assert.Greater(t, res.Scores[0][0], 0.0)
	assert.Zero(t, res.Scores[0][1])
	assert.Zero(t, res.Scores[1][0])
	assert.Zero(t, res.Scores[1][1])
}

func TestLocate_ResizesInput(t *testing.T) {
	p := DefaultParams()
	small := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), 600, 450, gocv.MatTypeCV8UC3)
	defer small.Close()

	res, err := (&Locator{Params: p, Detector: fixedDetector(nil)}).Locate(small)
	require.NoError(t, err)
	defer res.Close()

	assert.Equal(t, p.SheetWidth, res.Sheet.Cols())
	assert.Equal(t, p.SheetHeight, res.Sheet.Rows())
	assert.Equal(t, p.SheetWidth, res.Threshold.Cols())
}

func TestLocate_HoughOnCleanSheet(t *testing.T) {
	p := DefaultParams()
	marks := []int{2, 2, 0, 1, 4, 3, -1, 0, 1, 2}
	sheet := drawSheet(p, sheetLayout(p), marks)
	defer sheet.Close()

	res, err := NewLocator(p).Locate(sheet)
	require.NoError(t, err)
	defer res.Close()

	require.Equal(t, StrategyCircleGrid, res.Strategy)
	for q, row := range res.Scores {
		for c, s := range row {
			if marks[q] == c {
				assert.Greater(t, s, 0.5, "q%d c%d", q, c)
			} else {
				assert.Less(t, s, 0.3, "q%d c%d", q, c)
			}
		}
	}
}

func TestLocate_Errors(t *testing.T) {
	empty := gocv.NewMat()
	defer empty.Close()
	_, err := NewLocator(DefaultParams()).Locate(empty)
	assert.Error(t, err)

	sheet := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), 100, 100, gocv.MatTypeCV8UC3)
	defer sheet.Close()
	_, err = NewLocator(DefaultParams().WithROI(image.Rect(2000, 2000, 2100, 2100))).Locate(sheet)
	assert.Error(t, err)
	_, err = NewLocator(DefaultParams().WithLayout(0, 5)).Locate(sheet)
	assert.Error(t, err)
}
