package transformer

import (
	"math"

	"github.com/airbusgeo/georef/internal/georef"
	"github.com/airbusgeo/georef/internal/utils/affine"
	"gonum.org/v1/gonum/mat"
)

// PolynomialTransform is a polynomial of order 1 to 3 fitted by least squares.
// The first order is an affine transform and is inverted in closed form.
// Higher orders are inverted iteratively.
type PolynomialTransform struct {
	order  int
	params *polynomialParams
}

type polynomialParams struct {
	norm        normalization
	cx, cy      []float64      // coefficients of the monomials (see monomials) on normalized source coordinates
	forward     *affine.Affine // order 1 only
	inverse     *affine.Affine // order 1: exact inverse, else: seed of the iterative inverse (may be nil)
	tolerance   float64        // convergence threshold of the iterative inverse, in source units
	// control points, used to seed the iterative inverse when the affine seed is missing or fails
	sources, destinations []georef.Point
	invertYAxis bool
}

// monomialCount returns the number of terms of a polynomial of the given order
func monomialCount(order int) int {
	return (order + 1) * (order + 2) / 2
}

// monomials evaluates the terms x^i.y^j (i+j <= order), by increasing total degree
func monomials(order int, u, v float64, dst []float64) {
	k := 0
	for d := 0; d <= order; d++ {
		for j := 0; j <= d; j++ {
			dst[k] = math.Pow(u, float64(d-j)) * math.Pow(v, float64(j))
			k++
		}
	}
}

// monomialsDerivatives evaluates the partial derivatives of the terms along u and v
func monomialsDerivatives(order int, u, v float64, du, dv []float64) {
	k := 0
	for d := 0; d <= order; d++ {
		for j := 0; j <= d; j++ {
			i := d - j
			du[k], dv[k] = 0, 0
			if i > 0 {
				du[k] = float64(i) * math.Pow(u, float64(i-1)) * math.Pow(v, float64(j))
			}
			if j > 0 {
				dv[k] = float64(j) * math.Pow(u, float64(i)) * math.Pow(v, float64(j-1))
			}
			k++
		}
	}
}

func (t *PolynomialTransform) method() georef.TransformMethod {
	switch t.order {
	case 1:
		return georef.Polynomial1
	case 2:
		return georef.Polynomial2
	case 3:
		return georef.Polynomial3
	}
	return georef.InvalidTransform
}

// fitPolynomial fits the coefficients of a polynomial mapping src to dst
func fitPolynomial(order int, src, dst []georef.Point) (norm normalization, cx, cy []float64, err error) {
	if norm, err = newNormalization(src); err != nil {
		return
	}
	nterms := monomialCount(order)
	a := mat.NewDense(len(src), nterms, nil)
	b := mat.NewDense(len(src), 2, nil)
	row := make([]float64, nterms)
	for i := range src {
		p := norm.apply(src[i])
		monomials(order, p.X, p.Y, row)
		a.SetRow(i, row)
		b.Set(i, 0, dst[i].X)
		b.Set(i, 1, dst[i].Y)
	}
	x, err := solveLeastSquares(a, b)
	if err != nil {
		return
	}
	return norm, mat.Col(nil, 0, x), mat.Col(nil, 1, x), nil
}

// toAffine converts first order coefficients on normalized coordinates to an affine transform
func toAffine(norm normalization, cx, cy []float64) *affine.Affine {
	s, c := norm.scale, norm.center
	return affine.NewAffine(
		cx[0]-(cx[1]*c.X+cx[2]*c.Y)/s, cx[1]/s, cx[2]/s,
		cy[0]-(cy[1]*c.X+cy[2]*c.Y)/s, cy[1]/s, cy[2]/s)
}

// fitAffine returns the least squares affine transform mapping src to dst
func fitAffine(src, dst []georef.Point) (*affine.Affine, error) {
	norm, cx, cy, err := fitPolynomial(1, src, dst)
	if err != nil {
		return nil, err
	}
	a := toAffine(norm, cx, cy)
	if !a.IsWellConditioned() {
		return nil, georef.NewDegenerateGeometry("affine transform is not invertible")
	}
	return a, nil
}

// UpdateParametersFromGCPs implements GCPTransformer
func (t *PolynomialTransform) UpdateParametersFromGCPs(sources, destinations []georef.Point, invertYAxis bool) error {
	method := t.method()
	if method == georef.InvalidTransform {
		return georef.NewInvalidMethod("unsupported polynomial order %d", t.order)
	}
	src, err := checkGCPs(method, sources, destinations, invertYAxis)
	if err != nil {
		return err
	}
	norm, cx, cy, err := fitPolynomial(t.order, src, destinations)
	if err != nil {
		return err
	}
	params := polynomialParams{norm: norm, cx: cx, cy: cy, invertYAxis: invertYAxis}
	if t.order == 1 {
		params.forward = toAffine(norm, cx, cy)
		if !params.forward.IsWellConditioned() {
			return georef.NewDegenerateGeometry("first order polynomial is not invertible")
		}
		params.inverse = params.forward.Inverse()
	} else {
		// The affine approximation of the inverse seeds the iterative inverse.
		// It may not exist (e.g. folded polynomial): the nearest control point is used instead.
		params.inverse, _ = fitAffine(destinations, src)
		params.sources = src
		params.destinations = append([]georef.Point(nil), destinations...)
		params.tolerance = newtonTolerance * georef.Extent(src)
	}
	t.params = &params
	return nil
}

// MinimumGCPCount implements GCPTransformer
func (t *PolynomialTransform) MinimumGCPCount() int {
	return t.method().MinimumGCPCount()
}

// Method implements GCPTransformer
func (t *PolynomialTransform) Method() georef.TransformMethod {
	return t.method()
}

func (p *polynomialParams) eval(order int, src georef.Point) georef.Point {
	n := p.norm.apply(src)
	terms := make([]float64, len(p.cx))
	monomials(order, n.X, n.Y, terms)
	var res georef.Point
	for k, m := range terms {
		res.X += p.cx[k] * m
		res.Y += p.cy[k] * m
	}
	return res
}

func (p *polynomialParams) jacobian(order int, src georef.Point) jacobian {
	n := p.norm.apply(src)
	du, dv := make([]float64, len(p.cx)), make([]float64, len(p.cx))
	monomialsDerivatives(order, n.X, n.Y, du, dv)
	var j jacobian
	for k := range du {
		j[0] += p.cx[k] * du[k]
		j[1] += p.cx[k] * dv[k]
		j[2] += p.cy[k] * du[k]
		j[3] += p.cy[k] * dv[k]
	}
	for k := range j {
		j[k] /= p.norm.scale
	}
	return j
}

// Forward implements GCPTransformer
func (t *PolynomialTransform) Forward(p georef.Point) (georef.Point, error) {
	if t.params == nil {
		return georef.Point{}, notInitialized(t.method())
	}
	p = flipY(p, t.params.invertYAxis)
	if t.params.forward != nil {
		x, y := t.params.forward.Transform(p.X, p.Y)
		return georef.Point{X: x, Y: y}, nil
	}
	return t.params.eval(t.order, p), nil
}

// Inverse implements GCPTransformer
func (t *PolynomialTransform) Inverse(p georef.Point) (georef.Point, error) {
	if t.params == nil {
		return georef.Point{}, notInitialized(t.method())
	}
	params := t.params
	if params.forward != nil {
		x, y := params.inverse.Transform(p.X, p.Y)
		return flipY(georef.Point{X: x, Y: y}, params.invertYAxis), nil
	}
	var (
		res georef.Point
		err error
	)
	for _, seed := range params.seeds(p) {
		res, err = newtonInverse(
			func(q georef.Point) georef.Point { return params.eval(t.order, q) },
			func(q georef.Point) jacobian { return params.jacobian(t.order, q) },
			p, seed, params.tolerance)
		if err == nil {
			return flipY(res, params.invertYAxis), nil
		}
	}
	return georef.Point{}, err
}

// seeds returns the starting points of the iterative inverse of dst:
// the affine approximation if any, then the source of the nearest control point
func (p *polynomialParams) seeds(dst georef.Point) []georef.Point {
	var seeds []georef.Point
	if p.inverse != nil {
		x, y := p.inverse.Transform(dst.X, dst.Y)
		seeds = append(seeds, georef.Point{X: x, Y: y})
	}
	best, dmin := 0, math.Inf(1)
	for i, d := range p.destinations {
		if dist := d.Dist(dst); dist < dmin {
			best, dmin = i, dist
		}
	}
	return append(seeds, p.sources[best])
}

// ProvidesAccurateInverse implements GCPTransformer
func (t *PolynomialTransform) ProvidesAccurateInverse() bool {
	return t.order == 1
}

// Clone implements GCPTransformer
func (t *PolynomialTransform) Clone() GCPTransformer {
	c := &PolynomialTransform{order: t.order}
	if t.params != nil {
		p := *t.params
		p.cx = append([]float64(nil), t.params.cx...)
		p.cy = append([]float64(nil), t.params.cy...)
		if t.params.forward != nil {
			f := *t.params.forward
			p.forward = &f
		}
		if t.params.inverse != nil {
			inv := *t.params.inverse
			p.inverse = &inv
		}
		p.sources = append([]georef.Point(nil), t.params.sources...)
		p.destinations = append([]georef.Point(nil), t.params.destinations...)
		c.params = &p
	}
	return c
}

// Coefficients returns the coefficients of the X and Y polynomials, expressed on source coordinates
// normalized by the returned center and scale: u = (x-center.X)/scale, v = (y-center.Y)/scale.
// Terms are ordered by increasing total degree: 1, u, v, u², uv, v², u³...
func (t *PolynomialTransform) Coefficients() (center georef.Point, scale float64, cx, cy []float64, ok bool) {
	if t.params == nil {
		return georef.Point{}, 0, nil, nil, false
	}
	return t.params.norm.center, t.params.norm.scale,
		append([]float64(nil), t.params.cx...), append([]float64(nil), t.params.cy...), true
}
