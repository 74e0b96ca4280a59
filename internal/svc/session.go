package svc

import (
	"context"
	"fmt"

	"github.com/airbusgeo/georef/internal/georef"
	"github.com/airbusgeo/georef/internal/log"
	"github.com/airbusgeo/georef/internal/rastercoords"
	"github.com/airbusgeo/georef/internal/transformer"
	"github.com/airbusgeo/georef/internal/utils/proj"
	"github.com/airbusgeo/godal"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Session is a georeferencing session: the control points of a raster and the transform fitted on them.
// A Session is not safe for concurrent use. Concurrent readers must work on a Snapshot.
type Session struct {
	id          string
	gcps        *georef.GCPList
	transform   *transformer.GeorefTransform
	autoFit     bool
	invertYAxis bool

	destinationCRS string
}

// Option configures a Session
type Option func(*Session)

// WithAutoFit refits the transform each time the control points or the method change,
// as soon as there are enough enabled control points
func WithAutoFit(autoFit bool) Option {
	return func(s *Session) {
		s.autoFit = autoFit
	}
}

// WithInvertYAxis negates the raster Y axis (rows growing downward) before fitting
func WithInvertYAxis(invert bool) Option {
	return func(s *Session) {
		s.invertYAxis = invert
	}
}

// WithRasterCoords sets the georeferencing already carried by the raster
func WithRasterCoords(rc *rastercoords.RasterChangeCoords) Option {
	return func(s *Session) {
		s.transform.SetRasterCoords(rc)
	}
}

// WithDestinationCRS sets the CRS of the world coordinates
func WithDestinationCRS(crs string) Option {
	return func(s *Session) {
		s.destinationCRS = crs
	}
}

// NewSession creates an empty session
func NewSession(ctx context.Context, method georef.TransformMethod, opts ...Option) *Session {
	s := &Session{
		id:        uuid.New().String(),
		gcps:      &georef.GCPList{},
		transform: transformer.NewGeorefTransform(method),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger(ctx).Debug("new session",
		zap.Stringer("method", method),
		zap.Bool("autofit", s.autoFit),
		zap.Bool("has_crs", s.transform.HasCRS()))
	return s
}

// ID returns the identifier of the session
func (s *Session) ID() string {
	return s.id
}

// Context returns ctx with the session id as logging field
func (s *Session) Context(ctx context.Context) context.Context {
	return log.With(ctx, "session", s.id)
}

func (s *Session) logger(ctx context.Context) *zap.Logger {
	return log.Logger(s.Context(ctx))
}

// Method returns the selected transform method
func (s *Session) Method() georef.TransformMethod {
	return s.transform.TransformParametrisation()
}

// DestinationCRS parses the CRS of the world coordinates. It returns nil if it is not defined.
// The caller must close the returned SpatialRef.
func (s *Session) DestinationCRS() (*godal.SpatialRef, error) {
	if s.destinationCRS == "" {
		return nil, nil
	}
	crs, _, err := proj.CRSFromUserInput(s.destinationCRS)
	if err != nil {
		return nil, fmt.Errorf("DestinationCRS.%w", err)
	}
	return crs, nil
}

// GCPs returns a copy of the control points
func (s *Session) GCPs() []georef.ControlPoint {
	return s.gcps.All()
}

// Ready returns true if the transform is fitted on the current control points
func (s *Session) Ready() bool {
	return s.transform.ParametersInitialized()
}

// AddGCP appends a control point
func (s *Session) AddGCP(ctx context.Context, source, destination georef.Point) (georef.ControlPoint, error) {
	cp, err := s.gcps.Add(source, destination)
	if err != nil {
		return cp, fmt.Errorf("AddGCP: %w", err)
	}
	s.gcpsChanged(ctx)
	return cp, nil
}

// InsertGCP appends an existing control point, keeping its ID and its enabled state
func (s *Session) InsertGCP(ctx context.Context, cp georef.ControlPoint) (georef.ControlPoint, error) {
	cp, err := s.gcps.Insert(cp)
	if err != nil {
		return cp, fmt.Errorf("InsertGCP: %w", err)
	}
	s.gcpsChanged(ctx)
	return cp, nil
}

// UpdateGCP moves a control point
func (s *Session) UpdateGCP(ctx context.Context, id string, source, destination georef.Point) (georef.ControlPoint, error) {
	cp, err := s.gcps.Update(id, source, destination)
	if err != nil {
		return cp, fmt.Errorf("UpdateGCP: %w", err)
	}
	s.gcpsChanged(ctx)
	return cp, nil
}

// EnableGCP includes or excludes a control point from the fit
func (s *Session) EnableGCP(ctx context.Context, id string, enabled bool) error {
	if err := s.gcps.SetEnabled(id, enabled); err != nil {
		return fmt.Errorf("EnableGCP: %w", err)
	}
	s.gcpsChanged(ctx)
	return nil
}

// RemoveGCP deletes a control point
func (s *Session) RemoveGCP(ctx context.Context, id string) error {
	if err := s.gcps.Remove(id); err != nil {
		return fmt.Errorf("RemoveGCP: %w", err)
	}
	s.gcpsChanged(ctx)
	return nil
}

// ClearGCPs deletes all the control points
func (s *Session) ClearGCPs(ctx context.Context) {
	s.gcps.Clear()
	s.gcpsChanged(ctx)
}

// SelectMethod switches the transform method
func (s *Session) SelectMethod(ctx context.Context, method georef.TransformMethod) {
	s.transform.SelectTransformParametrisation(method)
	s.logger(ctx).Debug("method selected", zap.Stringer("method", method))
	s.autoRefit(ctx)
}

// SetRasterCoords changes the georeferencing carried by the raster
func (s *Session) SetRasterCoords(ctx context.Context, rc *rastercoords.RasterChangeCoords) {
	s.transform.SetRasterCoords(rc)
	s.autoRefit(ctx)
}

func (s *Session) gcpsChanged(ctx context.Context) {
	s.transform.ResetParameters()
	s.autoRefit(ctx)
}

// autoRefit fits the transform if auto-fit is enabled and there are enough points.
// Failures are logged: the transform stays uninitialized.
func (s *Session) autoRefit(ctx context.Context) {
	if !s.autoFit || s.Method() == georef.InvalidTransform {
		return
	}
	if s.gcps.CountEnabled() < s.transform.MinimumGCPCount() {
		return
	}
	_ = s.Fit(ctx)
}

// Fit fits the transform on the enabled control points
func (s *Session) Fit(ctx context.Context) error {
	sources, destinations := s.gcps.EnabledPairs()
	logger := s.logger(ctx).With(zap.Stringer("method", s.Method()), zap.Int("gcps", len(sources)))
	if err := s.transform.UpdateParametersFromGCPs(sources, destinations, s.invertYAxis); err != nil {
		logger.Warn("fit failed", zap.Error(err))
		return fmt.Errorf("Fit: %w", err)
	}
	if res, err := s.transform.Residuals(s.gcps.Enabled()); err != nil {
		logger.Debug("fitted, residuals are not available", zap.Error(err))
	} else {
		logger.Debug("fitted", zap.Float64("rms", res.RMSError()), zap.Stringer("unit", res.Unit))
	}
	return nil
}

// Residuals returns the residuals of the enabled control points
func (s *Session) Residuals() (georef.Residuals, error) {
	return s.transform.Residuals(s.gcps.Enabled())
}

// Snapshot returns an independent copy of the transform
func (s *Session) Snapshot() *transformer.GeorefTransform {
	return s.transform.Clone()
}

// TransformBatch transforms the points from raster to world (rasterToWorld) or from world to raster
// using up to workers goroutines. The first error cancels the remaining work.
func (s *Session) TransformBatch(ctx context.Context, points []georef.Point, rasterToWorld bool, workers int) ([]georef.Point, error) {
	if !s.Ready() {
		return nil, georef.NewNotInitialized("%s parameters have not been initialized", s.Method())
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > len(points) {
		workers = len(points)
	}
	res := make([]georef.Point, len(points))
	chunk := (len(points) + workers - 1) / max(workers, 1)

	g, gCtx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		start, end := w*chunk, min((w+1)*chunk, len(points))
		gt := s.transform.Clone()
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gCtx.Err(); err != nil {
					return err
				}
				p, err := gt.Transform(points[i], rasterToWorld)
				if err != nil {
					return fmt.Errorf("point #%d (%g, %g): %w", i, points[i].X, points[i].Y, err)
				}
				res[i] = p
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger(ctx).Debug("batch transform failed", zap.Int("points", len(points)), zap.Error(err))
		return nil, fmt.Errorf("TransformBatch: %w", err)
	}
	return res, nil
}
