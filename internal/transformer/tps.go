package transformer

import (
	"math"

	"github.com/airbusgeo/georef/internal/georef"
	"gonum.org/v1/gonum/mat"
)

// TPSTransform is a thin plate spline interpolating the control points.
// Its inverse is estimated by a reverse spline (world to raster) refined by Newton iterations.
type TPSTransform struct {
	// Smoothing relaxes the interpolation constraint (0: exact interpolation)
	Smoothing float64
	params    *tpsParams
}

type tpsParams struct {
	forward     *spline
	reverse     *spline // nil if the destination points do not allow a reverse spline
	tolerance   float64
	step        float64 // finite difference step of the numerical jacobian
	invertYAxis bool
}

// spline is a 2D thin plate spline: f(p) = a0 + a1.u + a2.v + sum_i w_i.U(|p-c_i|) on normalized coordinates
type spline struct {
	norm    normalization
	centers []georef.Point // normalized
	wx, wy  []float64      // kernel weights followed by the 3 affine coefficients
}

// tpsKernel is the radial basis function U(r) = r².log(r²), with U(0) = 0
func tpsKernel(r2 float64) float64 {
	if r2 == 0 {
		return 0
	}
	return r2 * math.Log(r2)
}

func fitSpline(src, dst []georef.Point, smoothing float64) (*spline, error) {
	norm, err := newNormalization(src)
	if err != nil {
		return nil, err
	}
	n := len(src)
	centers := make([]georef.Point, n)
	for i := range src {
		centers[i] = norm.apply(src[i])
	}
	l := mat.NewDense(n+3, n+3, nil)
	b := mat.NewDense(n+3, 2, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := centers[i].Sub(centers[j])
			k := tpsKernel(d.X*d.X + d.Y*d.Y)
			l.Set(i, j, k)
			l.Set(j, i, k)
		}
		l.Set(i, i, smoothing)
		l.Set(i, n, 1)
		l.Set(i, n+1, centers[i].X)
		l.Set(i, n+2, centers[i].Y)
		l.Set(n, i, 1)
		l.Set(n+1, i, centers[i].X)
		l.Set(n+2, i, centers[i].Y)
		b.Set(i, 0, dst[i].X)
		b.Set(i, 1, dst[i].Y)
	}
	w, err := solveSquare(l, b)
	if err != nil {
		return nil, georef.NewDegenerateGeometry("thin plate spline needs distinct, non collinear control points")
	}
	return &spline{norm: norm, centers: centers, wx: mat.Col(nil, 0, w), wy: mat.Col(nil, 1, w)}, nil
}

func (s *spline) eval(p georef.Point) georef.Point {
	q := s.norm.apply(p)
	n := len(s.centers)
	res := georef.Point{
		X: s.wx[n] + s.wx[n+1]*q.X + s.wx[n+2]*q.Y,
		Y: s.wy[n] + s.wy[n+1]*q.X + s.wy[n+2]*q.Y,
	}
	for i, c := range s.centers {
		d := q.Sub(c)
		k := tpsKernel(d.X*d.X + d.Y*d.Y)
		res.X += s.wx[i] * k
		res.Y += s.wy[i] * k
	}
	return res
}

func (s *spline) clone() *spline {
	if s == nil {
		return nil
	}
	return &spline{
		norm:    s.norm,
		centers: append([]georef.Point(nil), s.centers...),
		wx:      append([]float64(nil), s.wx...),
		wy:      append([]float64(nil), s.wy...),
	}
}

// UpdateParametersFromGCPs implements GCPTransformer
func (t *TPSTransform) UpdateParametersFromGCPs(sources, destinations []georef.Point, invertYAxis bool) error {
	src, err := checkGCPs(georef.ThinPlateSpline, sources, destinations, invertYAxis)
	if err != nil {
		return err
	}
	if t.Smoothing < 0 {
		return georef.NewDegenerateGeometry("thin plate spline smoothing must be positive, got %g", t.Smoothing)
	}
	forward, err := fitSpline(src, destinations, t.Smoothing)
	if err != nil {
		return err
	}
	// The reverse spline is optional: without it, the inverse transformation is unavailable
	reverse, _ := fitSpline(destinations, src, t.Smoothing)
	ext := georef.Extent(src)
	t.params = &tpsParams{
		forward:     forward,
		reverse:     reverse,
		tolerance:   newtonTolerance * ext,
		step:        1e-6 * ext,
		invertYAxis: invertYAxis,
	}
	return nil
}

// MinimumGCPCount implements GCPTransformer
func (t *TPSTransform) MinimumGCPCount() int {
	return georef.ThinPlateSpline.MinimumGCPCount()
}

// Method implements GCPTransformer
func (t *TPSTransform) Method() georef.TransformMethod {
	return georef.ThinPlateSpline
}

// Forward implements GCPTransformer
func (t *TPSTransform) Forward(p georef.Point) (georef.Point, error) {
	if t.params == nil {
		return georef.Point{}, notInitialized(georef.ThinPlateSpline)
	}
	return t.params.forward.eval(flipY(p, t.params.invertYAxis)), nil
}

// Inverse implements GCPTransformer
func (t *TPSTransform) Inverse(p georef.Point) (georef.Point, error) {
	if t.params == nil {
		return georef.Point{}, notInitialized(georef.ThinPlateSpline)
	}
	params := t.params
	if params.reverse == nil {
		return georef.Point{}, georef.NewApproximationFailed("thin plate spline cannot be inverted: destination points are degenerate")
	}
	res, err := newtonInverse(
		params.forward.eval,
		func(q georef.Point) jacobian { return numericalJacobian(params.forward.eval, q, params.step) },
		p, params.reverse.eval(p), params.tolerance)
	if err != nil {
		return georef.Point{}, err
	}
	return flipY(res, params.invertYAxis), nil
}

// ProvidesAccurateInverse implements GCPTransformer
func (t *TPSTransform) ProvidesAccurateInverse() bool {
	return false
}

// Clone implements GCPTransformer
func (t *TPSTransform) Clone() GCPTransformer {
	c := &TPSTransform{Smoothing: t.Smoothing}
	if t.params != nil {
		p := *t.params
		p.forward = t.params.forward.clone()
		p.reverse = t.params.reverse.clone()
		c.params = &p
	}
	return c
}
