// Package export writes georeferenced points to exchange formats
package export

import (
	"fmt"

	"github.com/airbusgeo/georef/internal/georef"
	"github.com/airbusgeo/georef/internal/utils/proj"
	"github.com/airbusgeo/godal"
	"github.com/tkrajina/gpxgo/gpx"
)

// GPX converts the world points (expressed in crs) to a GPX document of waypoints.
// names is optional. If provided, it must have the same length as pts.
func GPX(crs *godal.SpatialRef, names []string, pts []georef.Point) ([]byte, error) {
	if names != nil && len(names) != len(pts) {
		return nil, georef.NewMismatchedLengths(len(pts), len(names))
	}
	lonlat, err := proj.ToLonLat(crs, pts)
	if err != nil {
		return nil, fmt.Errorf("export.GPX.%w", err)
	}
	doc := gpx.GPX{Creator: "georef"}
	for i, p := range lonlat {
		wpt := gpx.GPXPoint{Point: gpx.Point{Latitude: p.Y, Longitude: p.X}}
		if names != nil {
			wpt.Name = names[i]
		}
		doc.Waypoints = append(doc.Waypoints, wpt)
	}
	b, err := doc.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
	if err != nil {
		return nil, fmt.Errorf("export.GPX: %w", err)
	}
	return b, nil
}
