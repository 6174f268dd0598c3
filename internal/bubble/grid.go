package bubble

import (
	"fmt"
	"math"
	"sort"
)

// Grid maps (question, choice) cells to detected circles. A cell may be empty
// and no circle occupies more than one cell. A Grid is not modified after
// BuildGrid returns it.
type Grid struct {
	rows, cols int
	rowCenters []float64
	colCenters []float64
	cells      []*Circle // Row-major
}

// Rows returns the number of questions.
func (g *Grid) Rows() int { return g.rows }

// Cols returns the number of choices.
func (g *Grid) Cols() int { return g.cols }

// RowCenters returns the clustered y coordinate of every question row.
func (g *Grid) RowCenters() []float64 { return append([]float64(nil), g.rowCenters...) }

// ColCenters returns the clustered x coordinate of every choice column.
func (g *Grid) ColCenters() []float64 { return append([]float64(nil), g.colCenters...) }

// Cell returns the circle assigned to (q, c), if any.
func (g *Grid) Cell(q, c int) (Circle, bool) {
	if q < 0 || q >= g.rows || c < 0 || c >= g.cols {
		return Circle{}, false
	}
	p := g.cells[q*g.cols+c]
	if p == nil {
		return Circle{}, false
	}
	return *p, true
}

// Filled returns how many cells hold a circle.
func (g *Grid) Filled() int {
	n := 0
	for _, c := range g.cells {
		if c != nil {
			n++
		}
	}
	return n
}

// BuildGrid clusters circle centers into rows x cols lines and assigns one
// circle to each cell where possible.
func BuildGrid(circles []Circle, rows, cols int, params Params) (*Grid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid grid size %dx%d", rows, cols)
	}
	if len(circles) == 0 {
		return nil, fmt.Errorf("no circles to build a grid from")
	}

	xs := make([]float64, len(circles))
	ys := make([]float64, len(circles))
	for i, c := range circles {
		xs[i] = float64(c.X)
		ys[i] = float64(c.Y)
	}

	g := &Grid{
		rows: rows,
		cols: cols,
		rowCenters: KMeans1D(ys, rows, params.KMeansIterations, params.KMeansTolerance,
			params.QuantileLow, params.QuantileHigh),
		colCenters: KMeans1D(xs, cols, params.KMeansIterations, params.KMeansTolerance,
			params.QuantileLow, params.QuantileHigh),
		cells: make([]*Circle, rows*cols),
	}

	switch params.Assignment {
	case AssignOptimal:
		g.assignOptimal(circles)
	case AssignGreedy, "":
		g.assignGreedy(circles)
	default:
		return nil, fmt.Errorf("unknown assignment %q", params.Assignment)
	}
	return g, nil
}

// assignGreedy visits cells row-major and takes the nearest unused circle
// by squared distance. The first circle wins a tie.
func (g *Grid) assignGreedy(circles []Circle) {
	owned := append([]Circle(nil), circles...)
	used := make([]bool, len(owned))

	for q, ry := range g.rowCenters {
		for c, cx := range g.colCenters {
			best, bestDist := -1, math.Inf(1)
			for i, circle := range owned {
				if used[i] {
					continue
				}
				if d := squaredDistance(circle, cx, ry); d < bestDist {
					best, bestDist = i, d
				}
			}
			if best < 0 {
				return
			}
			used[best] = true
			g.cells[q*g.cols+c] = &owned[best]
		}
	}
}

// assignOptimal minimises the summed squared distance between cell centers
// and their circles. Circles are sorted first so the result does not depend
// on detection order.
func (g *Grid) assignOptimal(circles []Circle) {
	owned := append([]Circle(nil), circles...)
	sort.Slice(owned, func(i, j int) bool {
		a, b := owned[i], owned[j]
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		if a.X != b.X {
			return a.X < b.X
		}
		return a.R < b.R
	})

	nCells := g.rows * g.cols
	cost := make([][]float64, nCells)
	for cell := range cost {
		cx, ry := g.colCenters[cell%g.cols], g.rowCenters[cell/g.cols]
		cost[cell] = make([]float64, len(owned))
		for i, circle := range owned {
			cost[cell][i] = squaredDistance(circle, cx, ry)
		}
	}

	if nCells <= len(owned) {
		for cell, i := range minCostAssignment(cost) {
			g.cells[cell] = &owned[i]
		}
		return
	}

	// More cells than circles: solve with circles as rows so every circle
	// gets a cell and the surplus cells stay empty.
	for i, cell := range minCostAssignment(transpose(cost)) {
		g.cells[cell] = &owned[i]
	}
}

func squaredDistance(c Circle, x, y float64) float64 {
	dx := float64(c.X) - x
	dy := float64(c.Y) - y
	return dx*dx + dy*dy
}

func transpose(m [][]float64) [][]float64 {
	if len(m) == 0 {
		return nil
	}
	out := make([][]float64, len(m[0]))
	for j := range out {
		out[j] = make([]float64, len(m))
		for i := range m {
			out[j][i] = m[i][j]
		}
	}
	return out
}
