package transformer

import (
	"math"

	"github.com/airbusgeo/georef/internal/georef"
	"gonum.org/v1/gonum/mat"
)

const (
	// Above this condition number, the normal equations are considered ill-conditioned and SVD is used instead
	choleskyMaxCond = 1e10
	// Relative threshold on the singular values to estimate the rank
	svdRCond = 1e-12
	// Above this condition number, square systems are considered singular
	luMaxCond = 1e14
	// Relative tolerance under which a value is considered null
	epsilon = 1e-12
)

// solveLeastSquares returns x minimizing ||a.x - b|| (b may have several columns).
// The normal equations are solved by Cholesky factorization when well conditioned, by SVD otherwise.
// It fails with DegenerateGeometry if a is rank deficient.
func solveLeastSquares(a, b mat.Matrix) (*mat.Dense, error) {
	_, nc := a.Dims()

	var ata mat.SymDense
	ata.SymOuterK(1, a.T())
	var chol mat.Cholesky
	if chol.Factorize(&ata) && chol.Cond() < choleskyMaxCond {
		var atb, x mat.Dense
		atb.Mul(a.T(), b)
		if err := chol.SolveTo(&x, &atb); err == nil {
			return &x, nil
		}
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return nil, georef.NewDegenerateGeometry("singular value decomposition failed")
	}
	if rank := svd.Rank(svdRCond); rank < nc {
		return nil, georef.NewDegenerateGeometry("control points are not independent enough (rank %d < %d)", rank, nc)
	}
	var x mat.Dense
	svd.SolveTo(&x, b, nc)
	return &x, nil
}

// solveSquare solves a.x = b, failing with DegenerateGeometry if a is (nearly) singular
func solveSquare(a, b mat.Matrix) (*mat.Dense, error) {
	var lu mat.LU
	lu.Factorize(a)
	if c := lu.Cond(); math.IsInf(c, 1) || math.IsNaN(c) || c > luMaxCond {
		return nil, georef.NewDegenerateGeometry("system is singular (condition number: %g)", c)
	}
	var x mat.Dense
	if err := lu.SolveTo(&x, false, b); err != nil {
		return nil, georef.NewDegenerateGeometry("%v", err)
	}
	return &x, nil
}

// normalization maps coordinates to a unit-sized frame centered on the centroid of the control points
type normalization struct {
	center georef.Point
	scale  float64
}

func newNormalization(pts []georef.Point) (normalization, error) {
	ext := georef.Extent(pts)
	c := georef.Centroid(pts)
	if ext <= epsilon*math.Max(math.Abs(c.X), math.Abs(c.Y)) || ext == 0 {
		return normalization{}, georef.NewDegenerateGeometry("control points are coincident")
	}
	return normalization{center: c, scale: ext / 2}, nil
}

func (n normalization) apply(p georef.Point) georef.Point {
	return georef.Point{X: (p.X - n.center.X) / n.scale, Y: (p.Y - n.center.Y) / n.scale}
}

func (n normalization) revert(p georef.Point) georef.Point {
	return georef.Point{X: p.X*n.scale + n.center.X, Y: p.Y*n.scale + n.center.Y}
}

// nearZero returns true if v is negligible compared to ref
func nearZero(v, ref float64) bool {
	return math.Abs(v) <= epsilon*math.Abs(ref)
}
