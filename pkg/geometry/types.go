// Package geometry provides basic geometric types used throughout the application.
package geometry

import (
	"math"
)

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Pair returns the point as an [x, y] pair, the form used in JSON output.
func (p Point2D) Pair() [2]float64 {
	return [2]float64{p.X, p.Y}
}

// Quad is a quadrilateral in canonical order: top-left, top-right,
// bottom-right, bottom-left.
type Quad [4]Point2D

// Corner indices into a Quad.
const (
	TopLeft = iota
	TopRight
	BottomRight
	BottomLeft
)

// OrderPoints arranges four points into canonical quad order.
//
// Top-left minimizes x+y, bottom-right maximizes x+y, top-right minimizes
// y-x and bottom-left maximizes y-x. Ties on a key are broken by X then Y,
// so any permutation of the same four points yields the same Quad.
func OrderPoints(pts [4]Point2D) Quad {
	sum := func(p Point2D) float64 { return p.X + p.Y }
	diff := func(p Point2D) float64 { return p.Y - p.X }

	var q Quad
	q[TopLeft] = extreme(pts, sum, false)
	q[BottomRight] = extreme(pts, sum, true)
	q[TopRight] = extreme(pts, diff, false)
	q[BottomLeft] = extreme(pts, diff, true)
	return q
}

// extreme returns the point with the smallest (or largest) key.
func extreme(pts [4]Point2D, key func(Point2D) float64, largest bool) Point2D {
	best := pts[0]
	for _, p := range pts[1:] {
		kp, kb := key(p), key(best)
		if largest {
			kp, kb = -kp, -kb
		}
		if kp < kb || (kp == kb && lessXY(p, best)) {
			best = p
		}
	}
	return best
}

func lessXY(a, b Point2D) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	return a.Y < b.Y
}

// RectQuad returns the quad of an axis-aligned rectangle given two opposite corners.
func RectQuad(x1, y1, x2, y2 float64) Quad {
	return Quad{
		{X: x1, Y: y1},
		{X: x2, Y: y1},
		{X: x2, Y: y2},
		{X: x1, Y: y2},
	}
}

// EdgeLengths returns the lengths of the top, bottom, left and right edges.
func (q Quad) EdgeLengths() (top, bottom, left, right float64) {
	top = q[TopRight].Distance(q[TopLeft])
	bottom = q[BottomRight].Distance(q[BottomLeft])
	left = q[BottomLeft].Distance(q[TopLeft])
	right = q[BottomRight].Distance(q[TopRight])
	return
}

// Points returns the corners as a slice in canonical order.
func (q Quad) Points() []Point2D {
	return []Point2D{q[0], q[1], q[2], q[3]}
}

// Pairs returns the corners as [x, y] pairs in canonical order.
func (q Quad) Pairs() [][2]float64 {
	out := make([][2]float64, 4)
	for i, p := range q {
		out[i] = p.Pair()
	}
	return out
}

// Rect represents a rectangle with floating-point coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// BoundingBox computes the axis-aligned bounding box of a set of points.
func BoundingBox(points []Point2D) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
