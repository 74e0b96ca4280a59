// Package transformer fits GCP-based transformation models and maps coordinates between
// raster and world space.
package transformer

import (
	"github.com/airbusgeo/georef/internal/georef"
)

// GCPTransformer is a transformation model fitted from control points
type GCPTransformer interface {
	// UpdateParametersFromGCPs fits the model. On failure, previously fitted parameters are kept.
	// If invertYAxis, the Y coordinate of the source points (and of every later raster-side query) is negated.
	UpdateParametersFromGCPs(sources, destinations []georef.Point, invertYAxis bool) error
	// MinimumGCPCount returns the number of control points needed to fit the model
	MinimumGCPCount() int
	// Method returns the model family
	Method() georef.TransformMethod
	// Forward maps a source (raster) point to a destination (world) point
	Forward(p georef.Point) (georef.Point, error)
	// Inverse maps a destination (world) point to a source (raster) point
	Inverse(p georef.Point) (georef.Point, error)
	// ProvidesAccurateInverse is true if Inverse is exact
	ProvidesAccurateInverse() bool
	// Clone returns a deep copy
	Clone() GCPTransformer
}

// NewGCPTransformer creates an unfitted transformer for the method
func NewGCPTransformer(method georef.TransformMethod) GCPTransformer {
	switch method {
	case georef.Linear:
		return &LinearTransform{}
	case georef.Helmert:
		return &HelmertTransform{}
	case georef.Polynomial1, georef.Polynomial2, georef.Polynomial3:
		return &PolynomialTransform{order: method.PolynomialOrder()}
	case georef.ThinPlateSpline:
		return &TPSTransform{}
	case georef.Projective:
		return &ProjectiveTransform{}
	}
	return invalidTransform{}
}

// checkGCPs validates the control points and returns the sources with the Y axis inverted if requested
func checkGCPs(method georef.TransformMethod, sources, destinations []georef.Point, invertYAxis bool) ([]georef.Point, error) {
	if len(sources) != len(destinations) {
		return nil, georef.NewMismatchedLengths(len(sources), len(destinations))
	}
	if min := method.MinimumGCPCount(); len(sources) < min {
		return nil, georef.NewInsufficientPoints(method, len(sources), min)
	}
	src := make([]georef.Point, len(sources))
	for i := range sources {
		if !sources[i].IsFinite() || !destinations[i].IsFinite() {
			return nil, georef.NewDegenerateGeometry("control point #%d has non finite coordinates", i)
		}
		src[i] = flipY(sources[i], invertYAxis)
	}
	return src, nil
}

func flipY(p georef.Point, invertYAxis bool) georef.Point {
	if invertYAxis {
		return p.FlipY()
	}
	return p
}

func notInitialized(method georef.TransformMethod) error {
	return georef.NewNotInitialized("%s parameters have not been initialized", method)
}

// invalidTransform is the transformer of georef.InvalidTransform: it cannot be fitted
type invalidTransform struct{}

func (invalidTransform) UpdateParametersFromGCPs(sources, destinations []georef.Point, invertYAxis bool) error {
	return georef.NewInvalidMethod("no transform method selected")
}
func (invalidTransform) MinimumGCPCount() int            { return 0 }
func (invalidTransform) Method() georef.TransformMethod { return georef.InvalidTransform }
func (invalidTransform) Forward(p georef.Point) (georef.Point, error) {
	return georef.Point{}, notInitialized(georef.InvalidTransform)
}
func (invalidTransform) Inverse(p georef.Point) (georef.Point, error) {
	return georef.Point{}, notInitialized(georef.InvalidTransform)
}
func (invalidTransform) ProvidesAccurateInverse() bool { return false }
func (invalidTransform) Clone() GCPTransformer         { return invalidTransform{} }
