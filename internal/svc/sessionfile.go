package svc

import (
	"context"
	"fmt"
	"io"

	"github.com/airbusgeo/georef/internal/georef"
	"github.com/airbusgeo/georef/internal/rastercoords"
	"github.com/airbusgeo/georef/internal/utils/affine"
	"gopkg.in/yaml.v3"
)

// SessionFile is the YAML description of a session
//
//	method: Polynomial1
//	invert_y_axis: true
//	raster: gs://bucket/scan.tif
//	destination_crs: epsg:32631
//	gcps:
//	  - source: [12.5, 40]
//	    destination: [453120, 5338560]
type SessionFile struct {
	Method         georef.TransformMethod `yaml:"method"`
	InvertYAxis    bool                   `yaml:"invert_y_axis,omitempty"`
	AutoFit        bool                   `yaml:"auto_fit,omitempty"`
	Raster         string                 `yaml:"raster,omitempty"`
	RasterMetadata *RasterMetadataFile    `yaml:"raster_metadata,omitempty"`
	DestinationCRS string                 `yaml:"destination_crs,omitempty"` // CRS of the world coordinates (optional)
	GCPs           []GCPFile              `yaml:"gcps"`
}

// RasterMetadataFile describes the georeferencing of the raster when it is not read from Raster
type RasterMetadataFile struct {
	GeoTransform [6]float64 `yaml:"geotransform"`
	CRS          string     `yaml:"crs,omitempty"`
	Width        int        `yaml:"width,omitempty"`
	Height       int        `yaml:"height,omitempty"`
}

// GCPFile is a control point. Enabled defaults to true.
type GCPFile struct {
	ID          string     `yaml:"id,omitempty"`
	Source      [2]float64 `yaml:"source"`
	Destination [2]float64 `yaml:"destination"`
	Enabled     *bool      `yaml:"enabled,omitempty"`
}

// ReadSessionFile decodes a session file
func ReadSessionFile(r io.Reader) (*SessionFile, error) {
	var sf SessionFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sf); err != nil {
		return nil, fmt.Errorf("ReadSessionFile: %w", err)
	}
	if !sf.Method.IsATransformMethod() {
		return nil, georef.NewInvalidMethod("unknown method %d", int(sf.Method))
	}
	if sf.Raster != "" && sf.RasterMetadata != nil {
		return nil, fmt.Errorf("ReadSessionFile: raster and raster_metadata are mutually exclusive")
	}
	return &sf, nil
}

// rasterCoords opens the raster or parses the metadata (nil if the file defines none)
func (sf *SessionFile) rasterCoords(ctx context.Context) (*rastercoords.RasterChangeCoords, error) {
	switch {
	case sf.Raster != "":
		return rastercoords.Open(ctx, sf.Raster)
	case sf.RasterMetadata != nil:
		md := sf.RasterMetadata
		return rastercoords.New(rastercoords.Metadata{
			GeoTransform: affine.Affine(md.GeoTransform),
			HasCRS:       true,
			CRS:          md.CRS,
			Width:        md.Width,
			Height:       md.Height,
		})
	}
	return nil, nil
}

// NewSession creates the session described by the file.
// The transform is fitted if auto_fit is set.
func (sf *SessionFile) NewSession(ctx context.Context) (*Session, error) {
	rc, err := sf.rasterCoords(ctx)
	if err != nil {
		return nil, fmt.Errorf("SessionFile.NewSession.%w", err)
	}
	// Control points are loaded before enabling the auto-fit to fit only once
	s := NewSession(ctx, sf.Method, WithInvertYAxis(sf.InvertYAxis), WithRasterCoords(rc))
	for i, g := range sf.GCPs {
		cp := georef.ControlPoint{
			ID:          g.ID,
			Source:      georef.Point{X: g.Source[0], Y: g.Source[1]},
			Destination: georef.Point{X: g.Destination[0], Y: g.Destination[1]},
			Enabled:     g.Enabled == nil || *g.Enabled,
		}
		if _, err := s.InsertGCP(ctx, cp); err != nil {
			return nil, fmt.Errorf("SessionFile.NewSession: gcp #%d: %w", i, err)
		}
	}
	s.autoFit = sf.AutoFit
	s.destinationCRS = sf.DestinationCRS
	s.autoRefit(ctx)
	return s, nil
}

// File describes the session. The raster is described by its metadata.
func (s *Session) File() *SessionFile {
	sf := &SessionFile{
		Method:         s.Method(),
		InvertYAxis:    s.invertYAxis,
		AutoFit:        s.autoFit,
		DestinationCRS: s.destinationCRS,
		GCPs:           []GCPFile{},
	}
	if rc := s.transform.RasterCoords(); rc.HasCRS() {
		md := rc.Metadata()
		sf.RasterMetadata = &RasterMetadataFile{
			GeoTransform: [6]float64(md.GeoTransform),
			CRS:          md.CRS,
			Width:        md.Width,
			Height:       md.Height,
		}
	}
	for _, cp := range s.gcps.All() {
		g := GCPFile{
			ID:          cp.ID,
			Source:      [2]float64{cp.Source.X, cp.Source.Y},
			Destination: [2]float64{cp.Destination.X, cp.Destination.Y},
		}
		if !cp.Enabled {
			disabled := false
			g.Enabled = &disabled
		}
		sf.GCPs = append(sf.GCPs, g)
	}
	return sf
}

// Write encodes the session file
func (sf *SessionFile) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(sf); err != nil {
		return fmt.Errorf("SessionFile.Write: %w", err)
	}
	return enc.Close()
}
