package transformer

import (
	"math"

	"github.com/airbusgeo/georef/internal/georef"
	"github.com/airbusgeo/georef/internal/utils/affine"
)

// HelmertTransform is a similarity: uniform scale, rotation and translation.
// It is fitted in closed form by least squares around the centroids of the control points.
type HelmertTransform struct {
	params *helmertParams
}

type helmertParams struct {
	forward, inverse affine.Affine
	invertYAxis      bool
}

// UpdateParametersFromGCPs implements GCPTransformer
func (t *HelmertTransform) UpdateParametersFromGCPs(sources, destinations []georef.Point, invertYAxis bool) error {
	src, err := checkGCPs(georef.Helmert, sources, destinations, invertYAxis)
	if err != nil {
		return err
	}
	sc, dc := georef.Centroid(src), georef.Centroid(destinations)
	var den, sa, sb float64
	for i := range src {
		sx, sy := src[i].X-sc.X, src[i].Y-sc.Y
		dx, dy := destinations[i].X-dc.X, destinations[i].Y-dc.Y
		den += sx*sx + sy*sy
		sa += sx*dx + sy*dy
		sb += sx*dy - sy*dx
	}
	if nearZero(math.Sqrt(den), georef.Extent(src)) || den == 0 {
		return georef.NewDegenerateGeometry("helmert transform needs at least two distinct source points")
	}
	a, b := sa/den, sb/den
	scale, rotation := math.Hypot(a, b), math.Atan2(b, a)
	if scale == 0 || nearZero(scale, georef.Extent(destinations)/georef.Extent(src)) {
		return georef.NewDegenerateGeometry("helmert transform has a null scale")
	}
	tx := dc.X - a*sc.X + b*sc.Y
	ty := dc.Y - b*sc.X - a*sc.Y
	fwd := affine.Similarity(tx, ty, scale, rotation)
	t.params = &helmertParams{
		forward:     *fwd,
		inverse:     *fwd.Inverse(),
		invertYAxis: invertYAxis,
	}
	return nil
}

// MinimumGCPCount implements GCPTransformer
func (t *HelmertTransform) MinimumGCPCount() int {
	return georef.Helmert.MinimumGCPCount()
}

// Method implements GCPTransformer
func (t *HelmertTransform) Method() georef.TransformMethod {
	return georef.Helmert
}

// Forward implements GCPTransformer
func (t *HelmertTransform) Forward(p georef.Point) (georef.Point, error) {
	if t.params == nil {
		return georef.Point{}, notInitialized(georef.Helmert)
	}
	p = flipY(p, t.params.invertYAxis)
	x, y := t.params.forward.Transform(p.X, p.Y)
	return georef.Point{X: x, Y: y}, nil
}

// Inverse implements GCPTransformer
func (t *HelmertTransform) Inverse(p georef.Point) (georef.Point, error) {
	if t.params == nil {
		return georef.Point{}, notInitialized(georef.Helmert)
	}
	x, y := t.params.inverse.Transform(p.X, p.Y)
	return flipY(georef.Point{X: x, Y: y}, t.params.invertYAxis), nil
}

// ProvidesAccurateInverse implements GCPTransformer
func (t *HelmertTransform) ProvidesAccurateInverse() bool {
	return true
}

// Clone implements GCPTransformer
func (t *HelmertTransform) Clone() GCPTransformer {
	c := &HelmertTransform{}
	if t.params != nil {
		p := *t.params
		c.params = &p
	}
	return c
}

// OriginScaleRotation returns the world coordinates of the raster origin, the scale
// and the counter-clockwise rotation in radians
func (t *HelmertTransform) OriginScaleRotation() (origin georef.Point, scale, rotation float64, ok bool) {
	if t.params == nil {
		return georef.Point{}, 0, 0, false
	}
	ox, oy := t.params.forward.Origin()
	scale, rotation = t.params.forward.ScaleRotation()
	return georef.Point{X: ox, Y: oy}, scale, rotation, true
}

// Affine returns the fitted transform in GDAL convention
func (t *HelmertTransform) Affine() (*affine.Affine, bool) {
	if t.params == nil {
		return nil, false
	}
	a := t.params.forward
	return &a, true
}
