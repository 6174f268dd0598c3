package geometry

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Homography is a 3x3 planar projective transform in row-major order.
//
//	[h0 h1 h2]
//	[h3 h4 h5]
//	[h6 h7 h8]
type Homography [9]float64

// Apply maps a point through the homography.
func (h Homography) Apply(p Point2D) Point2D {
	w := h[6]*p.X + h[7]*p.Y + h[8]
	if w == 0 {
		return Point2D{}
	}
	return Point2D{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / w,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / w,
	}
}

// Rows returns the matrix as three rows, convenient for copying into a Mat.
func (h Homography) Rows() [3][3]float64 {
	return [3][3]float64{
		{h[0], h[1], h[2]},
		{h[3], h[4], h[5]},
		{h[6], h[7], h[8]},
	}
}

// SolveHomography computes the homography mapping the four src points onto
// the four dst points, with h8 fixed to 1.
//
// Each correspondence (x,y) -> (u,v) contributes two rows:
//
//	[x y 1 0 0 0 -ux -uy] h = u
//	[0 0 0 x y 1 -vx -vy] h = v
func SolveHomography(src, dst [4]Point2D) (Homography, error) {
	A := mat.NewDense(8, 8, nil)
	B := mat.NewVecDense(8, nil)

	for i := 0; i < 4; i++ {
		x, y := src[i].X, src[i].Y
		u, v := dst[i].X, dst[i].Y

		A.SetRow(2*i, []float64{x, y, 1, 0, 0, 0, -u * x, -u * y})
		B.SetVec(2*i, u)

		A.SetRow(2*i+1, []float64{0, 0, 0, x, y, 1, -v * x, -v * y})
		B.SetVec(2*i+1, v)
	}

	var params mat.VecDense
	if err := params.SolveVec(A, B); err != nil {
		return Homography{}, fmt.Errorf("degenerate correspondence: %w", err)
	}

	var h Homography
	for i := 0; i < 8; i++ {
		h[i] = params.AtVec(i)
	}
	h[8] = 1
	return h, nil
}
