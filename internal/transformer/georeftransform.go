package transformer

import (
	"context"
	"fmt"

	"github.com/airbusgeo/georef/internal/georef"
	"github.com/airbusgeo/georef/internal/rastercoords"
	"github.com/twpayne/go-geom"
)

// GeorefTransform maps coordinates between a raster and the world whatever the model used.
// Raster-side coordinates are expressed in the space of the GCP sources: pixel/line if the raster
// has no CRS, its own map coordinates otherwise.
//
// The zero value has no selected method and no raster (InvalidTransform).
// A GeorefTransform is not safe for concurrent use: use Clone to share it.
type GeorefTransform struct {
	method      georef.TransformMethod
	impl        GCPTransformer
	initialized bool

	sources, destinations []georef.Point
	invertYAxis           bool

	coords *rastercoords.RasterChangeCoords
}

// NewGeorefTransform creates an uninitialized transform for the method
func NewGeorefTransform(method georef.TransformMethod) *GeorefTransform {
	gt := &GeorefTransform{coords: rastercoords.Identity()}
	gt.SelectTransformParametrisation(method)
	return gt
}

func (gt *GeorefTransform) fitter() GCPTransformer {
	if gt.impl == nil {
		return invalidTransform{}
	}
	return gt.impl
}

func (gt *GeorefTransform) remapper() *rastercoords.RasterChangeCoords {
	if gt.coords == nil {
		return rastercoords.Identity()
	}
	return gt.coords
}

// SelectTransformParametrisation switches to a fresh model of the given method.
// The control points are kept but the parameters must be fitted again.
func (gt *GeorefTransform) SelectTransformParametrisation(method georef.TransformMethod) {
	gt.method = method
	gt.impl = NewGCPTransformer(method)
	gt.initialized = false
}

// SetRasterChangeCoords reads the georeferencing of the raster located at path
func (gt *GeorefTransform) SetRasterChangeCoords(ctx context.Context, path string) error {
	rc, err := rastercoords.Open(ctx, path)
	if err != nil {
		return fmt.Errorf("SetRasterChangeCoords.%w", err)
	}
	gt.SetRasterCoords(rc)
	return nil
}

// SetRasterCoords sets the pixel/line converter of the raster. The parameters must be fitted again.
func (gt *GeorefTransform) SetRasterCoords(rc *rastercoords.RasterChangeCoords) {
	if rc == nil {
		rc = rastercoords.Identity()
	}
	gt.coords = rc
	gt.initialized = false
}

// HasCRS returns true if the raster has its own coordinate reference system
func (gt *GeorefTransform) HasCRS() bool {
	return gt.remapper().HasCRS()
}

// ToColumnLine converts raster map coordinates to pixel/line coordinates
func (gt *GeorefTransform) ToColumnLine(p georef.Point) georef.Point {
	return gt.remapper().ToColumnLine(p)
}

// BoundingBox converts the bounds to pixel/line (toPixel) or to the raster map coordinates
func (gt *GeorefTransform) BoundingBox(b *geom.Bounds, toPixel bool) *geom.Bounds {
	return gt.remapper().BoundingBox(b, toPixel)
}

// RasterCoords returns the pixel/line converter
func (gt *GeorefTransform) RasterCoords() *rastercoords.RasterChangeCoords {
	return gt.remapper()
}

// TransformParametrisation returns the selected method
func (gt *GeorefTransform) TransformParametrisation() georef.TransformMethod {
	return gt.method
}

// ProvidesAccurateInverseTransformation is true if the world to raster transform is exact
func (gt *GeorefTransform) ProvidesAccurateInverseTransformation() bool {
	return gt.fitter().ProvidesAccurateInverse()
}

// ParametersInitialized returns true if the parameters have been successfully fitted
// since the last change of method or control points
func (gt *GeorefTransform) ParametersInitialized() bool {
	return gt.initialized
}

// ResetParameters marks the parameters as outdated
func (gt *GeorefTransform) ResetParameters() {
	gt.initialized = false
}

// MinimumGCPCount returns the number of control points needed by the selected method
func (gt *GeorefTransform) MinimumGCPCount() int {
	return gt.fitter().MinimumGCPCount()
}

// InvertYAxis returns the flag used by the last fit
func (gt *GeorefTransform) InvertYAxis() bool {
	return gt.invertYAxis
}

// UpdateParametersFromGCPs fits the selected model on the control points.
// Sources are raster-side coordinates, destinations are world coordinates.
// If the lengths differ, nothing is changed. Otherwise, on failure the transform is left uninitialized
// and the control points of the last successful fit are kept.
func (gt *GeorefTransform) UpdateParametersFromGCPs(sources, destinations []georef.Point, invertYAxis bool) error {
	if len(sources) != len(destinations) {
		return georef.NewMismatchedLengths(len(sources), len(destinations))
	}
	gt.initialized = false

	srcs := append([]georef.Point(nil), sources...)
	dsts := append([]georef.Point(nil), destinations...)
	pixels := make([]georef.Point, len(srcs))
	for i, p := range srcs {
		pixels[i] = gt.remapper().ToColumnLine(p)
	}
	if gt.impl == nil {
		gt.impl = NewGCPTransformer(gt.method)
	}
	if err := gt.impl.UpdateParametersFromGCPs(pixels, dsts, invertYAxis); err != nil {
		return err
	}
	gt.sources, gt.destinations = srcs, dsts
	gt.invertYAxis = invertYAxis
	gt.initialized = true
	return nil
}

// GCPs returns a copy of the control points of the last fit
func (gt *GeorefTransform) GCPs() (sources, destinations []georef.Point) {
	return append([]georef.Point(nil), gt.sources...), append([]georef.Point(nil), gt.destinations...)
}

func (gt *GeorefTransform) checkInitialized() error {
	if !gt.initialized {
		return georef.NewNotInitialized("%s parameters have not been initialized", gt.method)
	}
	return nil
}

// TransformRasterToWorld maps a raster-side point to the world
func (gt *GeorefTransform) TransformRasterToWorld(p georef.Point) (georef.Point, error) {
	if err := gt.checkInitialized(); err != nil {
		return georef.Point{}, err
	}
	return finite(gt.fitter().Forward(gt.remapper().ToColumnLine(p)))
}

// TransformWorldToRaster maps a world point to the raster side
func (gt *GeorefTransform) TransformWorldToRaster(p georef.Point) (georef.Point, error) {
	if err := gt.checkInitialized(); err != nil {
		return georef.Point{}, err
	}
	pix, err := gt.fitter().Inverse(p)
	if err != nil {
		return georef.Point{}, err
	}
	return finite(gt.remapper().ToXY(pix), nil)
}

func finite(p georef.Point, err error) (georef.Point, error) {
	if err == nil && !p.IsFinite() {
		return georef.Point{}, georef.NewApproximationFailed("point is mapped to infinity")
	}
	return p, err
}

// Transform maps p from raster to world if rasterToWorld, from world to raster otherwise
func (gt *GeorefTransform) Transform(p georef.Point, rasterToWorld bool) (georef.Point, error) {
	if rasterToWorld {
		return gt.TransformRasterToWorld(p)
	}
	return gt.TransformWorldToRaster(p)
}

// LinearOriginScale returns the origin and the scale of a fitted Linear transform
func (gt *GeorefTransform) LinearOriginScale() (origin georef.Point, scaleX, scaleY float64, ok bool) {
	lt, isLinear := gt.fitter().(*LinearTransform)
	if !gt.initialized || !isLinear {
		return georef.Point{}, 0, 0, false
	}
	return lt.OriginScale()
}

// OriginScaleRotation returns the origin, the scales along X and Y and the rotation (radians)
// of a fitted Linear or Helmert transform. A Helmert transform has the same scale on both axes,
// a Linear transform has no rotation.
func (gt *GeorefTransform) OriginScaleRotation() (origin georef.Point, scaleX, scaleY, rotation float64, ok bool) {
	if !gt.initialized {
		return georef.Point{}, 0, 0, 0, false
	}
	switch t := gt.fitter().(type) {
	case *HelmertTransform:
		o, scale, rotation, ok := t.OriginScaleRotation()
		return o, scale, scale, rotation, ok
	case *LinearTransform:
		o, sx, sy, ok := t.OriginScale()
		return o, sx, sy, 0, ok
	}
	return georef.Point{}, 0, 0, 0, false
}

// Clone returns a deep copy
func (gt *GeorefTransform) Clone() *GeorefTransform {
	return &GeorefTransform{
		method:       gt.method,
		impl:         gt.fitter().Clone(),
		initialized:  gt.initialized,
		sources:      append([]georef.Point(nil), gt.sources...),
		destinations: append([]georef.Point(nil), gt.destinations...),
		invertYAxis:  gt.invertYAxis,
		coords:       gt.remapper().Clone(),
	}
}

// Residuals computes, for each control point, the difference between its expected position and
// the one predicted by the transform. When the inverse is accurate, residuals are computed in
// pixels (raster-side), otherwise in world units.
func (gt *GeorefTransform) Residuals(gcps []georef.ControlPoint) (georef.Residuals, error) {
	if err := gt.checkInitialized(); err != nil {
		return georef.Residuals{}, err
	}
	res := georef.Residuals{Unit: georef.ResidualMapUnits, Points: make([]georef.Residual, 0, len(gcps))}
	if gt.ProvidesAccurateInverseTransformation() {
		res.Unit = georef.ResidualPixels
	}
	for _, gcp := range gcps {
		var r georef.Residual
		if res.Unit == georef.ResidualPixels {
			pix, err := gt.fitter().Inverse(gcp.Destination)
			if err != nil {
				return georef.Residuals{}, fmt.Errorf("residual of %s: %w", gcp.ID, err)
			}
			r = georef.NewResidual(gcp.ID, gt.remapper().ToColumnLine(gcp.Source), pix)
		} else {
			world, err := gt.TransformRasterToWorld(gcp.Source)
			if err != nil {
				return georef.Residuals{}, fmt.Errorf("residual of %s: %w", gcp.ID, err)
			}
			r = georef.NewResidual(gcp.ID, gcp.Destination, world)
		}
		res.Points = append(res.Points, r)
	}
	return res, nil
}
