package transformer

import (
	"math"

	"github.com/airbusgeo/georef/internal/georef"
	"gonum.org/v1/gonum/mat"
)

// ProjectiveTransform is a 8-parameter homography estimated by least squares on normalized coordinates
type ProjectiveTransform struct {
	params *projectiveParams
}

type projectiveParams struct {
	h, hinv     [9]float64 // row-major, h[8] = 1
	invertYAxis bool
}

// hartley returns the similarity moving the centroid of pts to the origin with a mean distance of sqrt(2)
func hartley(pts []georef.Point) (*mat.Dense, error) {
	c := georef.Centroid(pts)
	var d float64
	for _, p := range pts {
		d += p.Dist(c)
	}
	d /= float64(len(pts))
	if d == 0 || nearZero(d, math.Max(math.Abs(c.X), math.Abs(c.Y))) {
		return nil, georef.NewDegenerateGeometry("control points are coincident")
	}
	s := math.Sqrt2 / d
	return mat.NewDense(3, 3, []float64{
		s, 0, -s * c.X,
		0, s, -s * c.Y,
		0, 0, 1,
	}), nil
}

func applyHomography(h *[9]float64, p georef.Point) (georef.Point, error) {
	w := h[6]*p.X + h[7]*p.Y + h[8]
	x := h[0]*p.X + h[1]*p.Y + h[2]
	y := h[3]*p.X + h[4]*p.Y + h[5]
	if w == 0 || nearZero(w, math.Hypot(x, y)) {
		return georef.Point{}, georef.NewApproximationFailed("(%g, %g) is mapped to infinity", p.X, p.Y)
	}
	return georef.Point{X: x / w, Y: y / w}, nil
}

// normalizedHomography converts m to a row-major array with m[2][2] = 1
func normalizedHomography(m mat.Matrix) ([9]float64, error) {
	var h [9]float64
	h22 := m.At(2, 2)
	if h22 == 0 {
		return h, georef.NewDegenerateGeometry("homography is degenerate")
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			h[3*i+j] = m.At(i, j) / h22
		}
	}
	return h, nil
}

// UpdateParametersFromGCPs implements GCPTransformer
func (t *ProjectiveTransform) UpdateParametersFromGCPs(sources, destinations []georef.Point, invertYAxis bool) error {
	src, err := checkGCPs(georef.Projective, sources, destinations, invertYAxis)
	if err != nil {
		return err
	}
	tsrc, err := hartley(src)
	if err != nil {
		return err
	}
	tdst, err := hartley(destinations)
	if err != nil {
		return err
	}

	// x' = (h0.x + h1.y + h2) / (h6.x + h7.y + 1)
	// y' = (h3.x + h4.y + h5) / (h6.x + h7.y + 1)
	n := len(src)
	a := mat.NewDense(2*n, 8, nil)
	b := mat.NewVecDense(2*n, nil)
	for i := range src {
		x, y := tsrc.At(0, 0)*src[i].X+tsrc.At(0, 2), tsrc.At(1, 1)*src[i].Y+tsrc.At(1, 2)
		X, Y := tdst.At(0, 0)*destinations[i].X+tdst.At(0, 2), tdst.At(1, 1)*destinations[i].Y+tdst.At(1, 2)
		a.SetRow(2*i, []float64{x, y, 1, 0, 0, 0, -X * x, -X * y})
		a.SetRow(2*i+1, []float64{0, 0, 0, x, y, 1, -Y * x, -Y * y})
		b.SetVec(2*i, X)
		b.SetVec(2*i+1, Y)
	}
	sol, err := solveLeastSquares(a, b)
	if err != nil {
		return err
	}
	hn := mat.NewDense(3, 3, []float64{
		sol.At(0, 0), sol.At(1, 0), sol.At(2, 0),
		sol.At(3, 0), sol.At(4, 0), sol.At(5, 0),
		sol.At(6, 0), sol.At(7, 0), 1,
	})
	if d := mat.Det(hn); nearZero(d, mat.Norm(hn, 2)*mat.Norm(hn, 2)*mat.Norm(hn, 2)) {
		return georef.NewDegenerateGeometry("homography is singular, check that control points are not collinear")
	}

	// H = Tdst^-1 . Hn . Tsrc
	var tdstInv, m, hm mat.Dense
	if err := tdstInv.Inverse(tdst); err != nil {
		return georef.NewDegenerateGeometry("%v", err)
	}
	m.Mul(&tdstInv, hn)
	hm.Mul(&m, tsrc)
	var hinv mat.Dense
	if err := hinv.Inverse(&hm); err != nil {
		return georef.NewDegenerateGeometry("homography is not invertible: %v", err)
	}

	params := projectiveParams{invertYAxis: invertYAxis}
	if params.h, err = normalizedHomography(&hm); err != nil {
		return err
	}
	if params.hinv, err = normalizedHomography(&hinv); err != nil {
		// The inverse maps the destination origin to infinity: keep it unnormalized
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				params.hinv[3*i+j] = hinv.At(i, j)
			}
		}
	}
	t.params = &params
	return nil
}

// MinimumGCPCount implements GCPTransformer
func (t *ProjectiveTransform) MinimumGCPCount() int {
	return georef.Projective.MinimumGCPCount()
}

// Method implements GCPTransformer
func (t *ProjectiveTransform) Method() georef.TransformMethod {
	return georef.Projective
}

// Forward implements GCPTransformer
func (t *ProjectiveTransform) Forward(p georef.Point) (georef.Point, error) {
	if t.params == nil {
		return georef.Point{}, notInitialized(georef.Projective)
	}
	return applyHomography(&t.params.h, flipY(p, t.params.invertYAxis))
}

// Inverse implements GCPTransformer
func (t *ProjectiveTransform) Inverse(p georef.Point) (georef.Point, error) {
	if t.params == nil {
		return georef.Point{}, notInitialized(georef.Projective)
	}
	res, err := applyHomography(&t.params.hinv, p)
	if err != nil {
		return georef.Point{}, err
	}
	return flipY(res, t.params.invertYAxis), nil
}

// ProvidesAccurateInverse implements GCPTransformer
func (t *ProjectiveTransform) ProvidesAccurateInverse() bool {
	return false
}

// Clone implements GCPTransformer
func (t *ProjectiveTransform) Clone() GCPTransformer {
	c := &ProjectiveTransform{}
	if t.params != nil {
		p := *t.params
		c.params = &p
	}
	return c
}

// Homography returns the fitted 3x3 matrix (row-major, normalized so that h[8] = 1)
func (t *ProjectiveTransform) Homography() ([9]float64, bool) {
	if t.params == nil {
		return [9]float64{}, false
	}
	return t.params.h, true
}
