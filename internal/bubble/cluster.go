package bubble

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// KMeans1D clusters values into k centers and returns them in ascending order.
//
// Centers start at evenly spaced quantiles between lowQ and highQ, linearly
// interpolated between order statistics (numpy's default method). Each pass
// assigns every value to its nearest center (ties go to the lower index) and
// moves each center to the mean of its members. A center with no members
// stays put. Iteration stops after maxIter passes or once no center moves by
// more than tol.
func KMeans1D(values []float64, k, maxIter int, tol, lowQ, highQ float64) []float64 {
	if k <= 0 || len(values) == 0 {
		return nil
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	centers := make([]float64, k)
	for i := range centers {
		q := lowQ
		if k > 1 {
			q = lowQ + (highQ-lowQ)*float64(i)/float64(k-1)
		}
		centers[i] = quantile(sorted, q)
	}

	members := make([][]float64, k)
	for iter := 0; iter < maxIter; iter++ {
		for i := range members {
			members[i] = members[i][:0]
		}
		for _, v := range values {
			idx := nearest(centers, v)
			members[idx] = append(members[idx], v)
		}

		moved := 0.0
		for i := range centers {
			if len(members[i]) == 0 {
				continue
			}
			next := stat.Mean(members[i], nil)
			moved = math.Max(moved, math.Abs(next-centers[i]))
			centers[i] = next
		}
		if moved < tol {
			break
		}
	}

	sort.Float64s(centers)
	return centers
}

// quantile returns the p-quantile of sorted, interpolating linearly between
// the order statistics at floor(p*(n-1)) and the one after it.
func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	h := p * float64(n-1)
	lo := int(h)
	if lo < 0 {
		return sorted[0]
	}
	if lo >= n-1 {
		return sorted[n-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}

// nearest returns the index of the center closest to v.
func nearest(centers []float64, v float64) int {
	best, bestDist := 0, math.Inf(1)
	for i, c := range centers {
		if d := math.Abs(v - c); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
