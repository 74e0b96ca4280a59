package proj

import (
	"fmt"
	"math"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/airbusgeo/georef/internal/georef"
	"github.com/airbusgeo/godal"
	"github.com/twpayne/go-geom"
)

// RadToDeg converts radians to degrees
const RadToDeg = 180 / math.Pi

// CRSFromUserInput initializes a crs from epsg ("4326", "EPSG:4326"), proj4 or Wkt format
// Returns the SRID if known
func CRSFromUserInput(input string) (*godal.SpatialRef, int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, 0, fmt.Errorf("CRSFromUserInput: empty crs")
	}
	if epsg, err := strconv.Atoi(input); err == nil {
		crs, err := godal.NewSpatialRefFromEPSG(epsg)
		return crs, epsg, err
	}
	if strings.HasPrefix(strings.ToLower(input), "epsg:") {
		epsg, err := strconv.Atoi(input[5:])
		if err != nil {
			return nil, 0, fmt.Errorf("CRSFromUserInput[%s]: %w", input, err)
		}
		crs, err := godal.NewSpatialRefFromEPSG(epsg)
		return crs, epsg, err
	}
	if strings.HasPrefix(input, "+") {
		crs, err := godal.NewSpatialRefFromProj4(input)
		if err != nil {
			return nil, 0, fmt.Errorf("CRSFromUserInput: %w", err)
		}
		return crs, Srid(crs), nil
	}
	crs, err := godal.NewSpatialRefFromWKT(input)
	if err != nil {
		return nil, 0, fmt.Errorf("CRSFromUserInput: %w", err)
	}
	return crs, Srid(crs), nil
}

var crsEPSG = map[int]*godal.SpatialRef{}
var crsEPSGLock sync.Mutex

// CRSFromEPSG initializes a crs from epsg (only once per epsg)
// DO NOT release the crs (it is kept for further uses)
func CRSFromEPSG(epsg int) (*godal.SpatialRef, error) {
	crsEPSGLock.Lock()
	defer crsEPSGLock.Unlock()

	if crs, ok := crsEPSG[epsg]; ok {
		return crs, nil
	}

	crs, err := godal.NewSpatialRefFromEPSG(epsg)
	if err != nil {
		return nil, fmt.Errorf("CRSFromEPSG: %w", err)
	}
	runtime.SetFinalizer(crs, func(crs *godal.SpatialRef) { crs.Close() })
	crsEPSG[epsg] = crs
	return crs, nil
}

// Srid returns the SRID from the crs or 0 if not found
// Warning : this function is not reliable...
func Srid(crs *godal.SpatialRef) int {
	if crs == nil {
		return 0
	}
	for i, entity := range []string{"PROJCS", "PROJCS", "LOCAL_CS", "GEOGCS"} {
		if crs.AuthorityName(entity) == "EPSG" {
			if res, err := strconv.Atoi(crs.AuthorityCode(entity)); err == nil {
				return res
			}
		}
		if i == 0 {
			crs.AutoIdentifyEPSG()
		}
	}
	return 0
}

// ToLonLat projects the points from crs to geographic lon/lat coordinates (EPSG:4326)
func ToLonLat(crs *godal.SpatialRef, pts []georef.Point) ([]georef.Point, error) {
	lonlat, err := CRSFromEPSG(4326)
	if err != nil {
		return nil, fmt.Errorf("ToLonLat.%w", err)
	}
	tr, err := godal.NewTransform(crs, lonlat)
	if err != nil {
		return nil, fmt.Errorf("ToLonLat: %w", err)
	}
	defer tr.Close()

	x, y := make([]float64, len(pts)), make([]float64, len(pts))
	for i, p := range pts {
		x[i], y[i] = p.X, p.Y
	}
	if err := tr.TransformEx(x, y, make([]float64, len(pts)), nil); err != nil {
		return nil, fmt.Errorf("ToLonLat: %w", err)
	}
	res := make([]georef.Point, len(pts))
	for i := range res {
		res[i] = georef.Point{X: x[i], Y: y[i]}
	}
	return res, nil
}

// FlatCoords interleaves the coordinates of the points
func FlatCoords(pts []georef.Point) []float64 {
	flat := make([]float64, 0, 2*len(pts))
	for _, p := range pts {
		flat = append(flat, p.X, p.Y)
	}
	return flat
}

// NewBounds returns the axis-aligned envelope of the points
func NewBounds(pts []georef.Point) *geom.Bounds {
	b := geom.NewBounds(geom.XY)
	if len(pts) == 0 {
		return b
	}
	xmin, ymin, xmax, ymax := pts[0].X, pts[0].Y, pts[0].X, pts[0].Y
	for _, p := range pts[1:] {
		xmin, xmax = math.Min(xmin, p.X), math.Max(xmax, p.X)
		ymin, ymax = math.Min(ymin, p.Y), math.Max(ymax, p.Y)
	}
	b.SetCoords([]float64{xmin, ymin}, []float64{xmax, ymax})
	return b
}

// BoundsCorners returns the four corners of the bounds, counter-clockwise from (xmin, ymin)
func BoundsCorners(b *geom.Bounds) []georef.Point {
	return []georef.Point{
		{X: b.Min(0), Y: b.Min(1)},
		{X: b.Max(0), Y: b.Min(1)},
		{X: b.Max(0), Y: b.Max(1)},
		{X: b.Min(0), Y: b.Max(1)},
	}
}

// NewPolygon returns the polygon whose exterior ring goes through the points (the ring is closed if needed)
func NewPolygon(srid int, pts []georef.Point) *geom.Polygon {
	flat := FlatCoords(pts)
	if len(pts) > 0 && pts[0] != pts[len(pts)-1] {
		flat = append(flat, pts[0].X, pts[0].Y)
	}
	p := geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
	p.SetSRID(srid)
	return p
}
