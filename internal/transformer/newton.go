package transformer

import (
	"math"

	"github.com/airbusgeo/georef/internal/georef"
)

const (
	newtonMaxIterations = 50
	// Convergence threshold, relative to the extent of the control points
	newtonTolerance = 1e-9
)

// jacobian is a row-major 2x2 matrix [dX/dx, dX/dy, dY/dx, dY/dy]
type jacobian [4]float64

func (j jacobian) det() float64 {
	return j[0]*j[3] - j[1]*j[2]
}

// newtonInverse finds p such that forward(p) = target, starting from seed.
// tolerance is the step size (in source units) under which the iteration has converged.
func newtonInverse(forward func(georef.Point) georef.Point, jac func(georef.Point) jacobian,
	target, seed georef.Point, tolerance float64) (georef.Point, error) {
	p := seed
	for i := 0; i < newtonMaxIterations; i++ {
		f := forward(p).Sub(target)
		j := jac(p)
		det := j.det()
		if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
			return georef.Point{}, georef.NewApproximationFailed("singular jacobian at (%g, %g) after %d iterations", p.X, p.Y, i)
		}
		step := georef.Point{
			X: (j[3]*f.X - j[1]*f.Y) / det,
			Y: (-j[2]*f.X + j[0]*f.Y) / det,
		}
		p = p.Sub(step)
		if !p.IsFinite() {
			return georef.Point{}, georef.NewApproximationFailed("inverse of (%g, %g) diverged", target.X, target.Y)
		}
		if math.Hypot(step.X, step.Y) <= tolerance {
			return p, nil
		}
	}
	return georef.Point{}, georef.NewApproximationFailed("inverse of (%g, %g) did not converge after %d iterations", target.X, target.Y, newtonMaxIterations)
}

// numericalJacobian estimates the jacobian of f at p by central differences with step h
func numericalJacobian(f func(georef.Point) georef.Point, p georef.Point, h float64) jacobian {
	fxp := f(georef.Point{X: p.X + h, Y: p.Y})
	fxm := f(georef.Point{X: p.X - h, Y: p.Y})
	fyp := f(georef.Point{X: p.X, Y: p.Y + h})
	fym := f(georef.Point{X: p.X, Y: p.Y - h})
	return jacobian{
		(fxp.X - fxm.X) / (2 * h), (fyp.X - fym.X) / (2 * h),
		(fxp.Y - fxm.Y) / (2 * h), (fyp.Y - fym.Y) / (2 * h),
	}
}
