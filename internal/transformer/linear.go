package transformer

import (
	"math"

	"github.com/airbusgeo/georef/internal/georef"
	"github.com/airbusgeo/georef/internal/utils/affine"
)

// LinearTransform scales each axis independently and translates:
//
//	x' = ox + sx.x
//	y' = oy + sy.y
type LinearTransform struct {
	params *linearParams
}

type linearParams struct {
	forward, inverse affine.Affine
	invertYAxis      bool
}

// UpdateParametersFromGCPs implements GCPTransformer
func (t *LinearTransform) UpdateParametersFromGCPs(sources, destinations []georef.Point, invertYAxis bool) error {
	src, err := checkGCPs(georef.Linear, sources, destinations, invertYAxis)
	if err != nil {
		return err
	}
	sc, dc := georef.Centroid(src), georef.Centroid(destinations)
	var sxx, syy, sxX, syY float64
	for i := range src {
		dx, dy := src[i].X-sc.X, src[i].Y-sc.Y
		sxx += dx * dx
		syy += dy * dy
		sxX += dx * (destinations[i].X - dc.X)
		syY += dy * (destinations[i].Y - dc.Y)
	}
	ref := georef.Extent(src)
	if nearZero(math.Sqrt(sxx), ref) || nearZero(math.Sqrt(syy), ref) {
		return georef.NewDegenerateGeometry("linear transform needs control points spread along both axes")
	}
	scaleX, scaleY := sxX/sxx, syY/syy
	dref := georef.Extent(destinations) / ref
	if nearZero(scaleX, dref) || nearZero(scaleY, dref) || scaleX == 0 || scaleY == 0 {
		return georef.NewDegenerateGeometry("linear transform has a null scale (%g, %g)", scaleX, scaleY)
	}
	fwd := affine.NewAffine(dc.X-scaleX*sc.X, scaleX, 0, dc.Y-scaleY*sc.Y, 0, scaleY)
	t.params = &linearParams{forward: *fwd, inverse: *fwd.Inverse(), invertYAxis: invertYAxis}
	return nil
}

// MinimumGCPCount implements GCPTransformer
func (t *LinearTransform) MinimumGCPCount() int {
	return georef.Linear.MinimumGCPCount()
}

// Method implements GCPTransformer
func (t *LinearTransform) Method() georef.TransformMethod {
	return georef.Linear
}

// Forward implements GCPTransformer
func (t *LinearTransform) Forward(p georef.Point) (georef.Point, error) {
	if t.params == nil {
		return georef.Point{}, notInitialized(georef.Linear)
	}
	p = flipY(p, t.params.invertYAxis)
	x, y := t.params.forward.Transform(p.X, p.Y)
	return georef.Point{X: x, Y: y}, nil
}

// Inverse implements GCPTransformer
func (t *LinearTransform) Inverse(p georef.Point) (georef.Point, error) {
	if t.params == nil {
		return georef.Point{}, notInitialized(georef.Linear)
	}
	x, y := t.params.inverse.Transform(p.X, p.Y)
	return flipY(georef.Point{X: x, Y: y}, t.params.invertYAxis), nil
}

// ProvidesAccurateInverse implements GCPTransformer
func (t *LinearTransform) ProvidesAccurateInverse() bool {
	return true
}

// Clone implements GCPTransformer
func (t *LinearTransform) Clone() GCPTransformer {
	c := &LinearTransform{}
	if t.params != nil {
		p := *t.params
		c.params = &p
	}
	return c
}

// OriginScale returns the world coordinates of the raster origin and the scale along each axis
func (t *LinearTransform) OriginScale() (origin georef.Point, scaleX, scaleY float64, ok bool) {
	if t.params == nil {
		return georef.Point{}, 0, 0, false
	}
	f := t.params.forward
	ox, oy := f.Origin()
	return georef.Point{X: ox, Y: oy}, f.Rx(), f.Ry(), true
}

// Affine returns the fitted transform in GDAL convention
func (t *LinearTransform) Affine() (*affine.Affine, bool) {
	if t.params == nil {
		return nil, false
	}
	a := t.params.forward
	return &a, true
}
