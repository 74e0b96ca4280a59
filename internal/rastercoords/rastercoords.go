// Package rastercoords converts between the pixel/line coordinates of a raster and its own map coordinates
package rastercoords

import (
	"context"
	"fmt"

	"github.com/airbusgeo/georef/internal/georef"
	"github.com/airbusgeo/georef/internal/log"
	"github.com/airbusgeo/georef/internal/utils/affine"
	"github.com/airbusgeo/georef/internal/utils/proj"
	"github.com/airbusgeo/godal"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// ErrLogger ignores GDAL warnings and turns failures into errors
var ErrLogger = godal.ErrLogger(func(ec godal.ErrorCategory, code int, msg string) error {
	if ec <= godal.CE_Warning {
		return nil
	}
	return fmt.Errorf("GDAL %d: %s", code, msg)
})

// Metadata describes the georeferencing already carried by a raster
type Metadata struct {
	GeoTransform  affine.Affine // pixel to map, GDAL convention
	HasCRS        bool
	CRS           string // any format supported by proj.CRSFromUserInput (optional)
	Width, Height int
}

// NorthUpMetadata creates the metadata of a raster whose upper left corner is at (originX, originY),
// with square-or-not cells and rows growing southward
func NorthUpMetadata(originX, originY, cellSizeX, cellSizeY float64, hasCRS bool) Metadata {
	return Metadata{
		GeoTransform: *affine.Translation(originX, originY).Multiply(affine.Scale(cellSizeX, -cellSizeY)),
		HasCRS:       hasCRS,
	}
}

// RasterChangeCoords converts between the raster pixel/line coordinates and the coordinates used by the GCPs.
// When the raster has no CRS, GCPs are expressed in pixel/line and the conversion is the identity.
type RasterChangeCoords struct {
	md       Metadata
	mapToPix affine.Affine
}

// Identity returns a converter for a raster without CRS
func Identity() *RasterChangeCoords {
	return &RasterChangeCoords{}
}

// New creates a converter from the raster metadata
func New(md Metadata) (*RasterChangeCoords, error) {
	rc := RasterChangeCoords{md: md}
	if !md.HasCRS {
		return &rc, nil
	}
	if !md.GeoTransform.IsWellConditioned() {
		return nil, georef.NewDegenerateGeometry("geotransform %v is not invertible", md.GeoTransform)
	}
	rc.mapToPix = *md.GeoTransform.Inverse()
	return &rc, nil
}

// Open reads the metadata of the raster through GDAL
func Open(ctx context.Context, path string) (*RasterChangeCoords, error) {
	ds, err := godal.Open(path, ErrLogger)
	if err != nil {
		return nil, fmt.Errorf("rastercoords.Open[%s]: %w", path, err)
	}
	defer ds.Close()

	structure := ds.Structure()
	md := Metadata{Width: structure.SizeX, Height: structure.SizeY, CRS: ds.Projection()}
	gt, err := ds.GeoTransform()
	switch {
	case err != nil:
		log.Logger(ctx).Debug("raster has no geotransform", zap.String("raster", path), zap.Error(err))
	case md.CRS == "":
		log.Logger(ctx).Debug("raster has a geotransform but no projection", zap.String("raster", path))
	default:
		md.GeoTransform = affine.Affine(gt)
		md.HasCRS = true
	}
	rc, err := New(md)
	if err != nil {
		return nil, fmt.Errorf("rastercoords.Open[%s].%w", path, err)
	}
	return rc, nil
}

// HasCRS returns true if the raster has its own coordinate reference system
func (rc *RasterChangeCoords) HasCRS() bool {
	return rc.md.HasCRS
}

// Metadata returns the metadata the converter was created with
func (rc *RasterChangeCoords) Metadata() Metadata {
	return rc.md
}

// Size returns the size of the raster in pixels (0, 0 if unknown)
func (rc *RasterChangeCoords) Size() (int, int) {
	return rc.md.Width, rc.md.Height
}

// ToColumnLine converts map coordinates to pixel/line coordinates
func (rc *RasterChangeCoords) ToColumnLine(p georef.Point) georef.Point {
	if !rc.md.HasCRS {
		return p
	}
	x, y := rc.mapToPix.Transform(p.X, p.Y)
	return georef.Point{X: x, Y: y}
}

// ToXY converts pixel/line coordinates to map coordinates
func (rc *RasterChangeCoords) ToXY(p georef.Point) georef.Point {
	if !rc.md.HasCRS {
		return p
	}
	x, y := rc.md.GeoTransform.Transform(p.X, p.Y)
	return georef.Point{X: x, Y: y}
}

// BoundingBox transforms the corners of b to pixel/line (toPixel) or to map coordinates
// and returns their envelope
func (rc *RasterChangeCoords) BoundingBox(b *geom.Bounds, toPixel bool) *geom.Bounds {
	corners := proj.BoundsCorners(b)
	for i, c := range corners {
		if toPixel {
			corners[i] = rc.ToColumnLine(c)
		} else {
			corners[i] = rc.ToXY(c)
		}
	}
	return proj.NewBounds(corners)
}

// Footprint returns the polygon covered by the raster, in map coordinates.
// It fails if the size of the raster is unknown.
func (rc *RasterChangeCoords) Footprint() (*geom.Polygon, error) {
	if rc.md.Width <= 0 || rc.md.Height <= 0 {
		return nil, fmt.Errorf("Footprint: unknown raster size")
	}
	w, h := float64(rc.md.Width), float64(rc.md.Height)
	corners := []georef.Point{{X: 0, Y: 0}, {X: 0, Y: h}, {X: w, Y: h}, {X: w, Y: 0}}
	for i, c := range corners {
		corners[i] = rc.ToXY(c)
	}
	srid := 0
	if crs, s, err := rc.CRS(); err == nil && crs != nil {
		crs.Close()
		srid = s
	}
	return proj.NewPolygon(srid, corners), nil
}

// CRS parses the coordinate reference system of the raster.
// It returns nil if the raster has no (or an unknown) CRS.
func (rc *RasterChangeCoords) CRS() (*godal.SpatialRef, int, error) {
	if !rc.md.HasCRS || rc.md.CRS == "" {
		return nil, 0, nil
	}
	crs, srid, err := proj.CRSFromUserInput(rc.md.CRS)
	if err != nil {
		return nil, 0, fmt.Errorf("RasterChangeCoords.CRS.%w", err)
	}
	return crs, srid, nil
}

// Clone returns a deep copy
func (rc *RasterChangeCoords) Clone() *RasterChangeCoords {
	c := *rc
	return &c
}
