package georef

import (
	"github.com/google/uuid"
)

// ControlPoint is a correspondence between a raster location and a world coordinate.
// ControlPoint is a value: editing a point creates a new ControlPoint with the same ID.
type ControlPoint struct {
	ID          string
	Source      Point // raster (pixel/line or raster map coordinates)
	Destination Point // world
	Enabled     bool
}

// NewControlPoint creates an enabled control point with a new ID
func NewControlPoint(source, destination Point) ControlPoint {
	return ControlPoint{
		ID:          uuid.New().String(),
		Source:      source,
		Destination: destination,
		Enabled:     true,
	}
}

func (cp ControlPoint) validate() error {
	if !cp.Source.IsFinite() || !cp.Destination.IsFinite() {
		return NewInvalidControlPoint("control point %s has non finite coordinates", cp.ID)
	}
	return nil
}

// GCPList is the ordered collection of control points of a georeferencing session.
// It is not safe for concurrent use.
type GCPList struct {
	points []ControlPoint
}

// NewGCPList creates a list from source/destination pairs.
func NewGCPList(sources, destinations []Point) (*GCPList, error) {
	if len(sources) != len(destinations) {
		return nil, NewMismatchedLengths(len(sources), len(destinations))
	}
	l := &GCPList{}
	for i := range sources {
		if _, err := l.Add(sources[i], destinations[i]); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Add appends a new enabled control point
func (l *GCPList) Add(source, destination Point) (ControlPoint, error) {
	cp := NewControlPoint(source, destination)
	if err := cp.validate(); err != nil {
		return ControlPoint{}, err
	}
	l.points = append(l.points, cp)
	return cp, nil
}

// Insert appends an existing control point, keeping its ID and its state.
// A new ID is generated if cp.ID is empty.
func (l *GCPList) Insert(cp ControlPoint) (ControlPoint, error) {
	if cp.ID == "" {
		cp.ID = uuid.New().String()
	} else if l.index(cp.ID) >= 0 {
		return ControlPoint{}, NewInvalidControlPoint("duplicate control point %s", cp.ID)
	}
	if err := cp.validate(); err != nil {
		return ControlPoint{}, err
	}
	l.points = append(l.points, cp)
	return cp, nil
}

func (l *GCPList) index(id string) int {
	for i, cp := range l.points {
		if cp.ID == id {
			return i
		}
	}
	return -1
}

// Get returns the control point with the given id
func (l *GCPList) Get(id string) (ControlPoint, bool) {
	if i := l.index(id); i >= 0 {
		return l.points[i], true
	}
	return ControlPoint{}, false
}

// Update replaces the coordinates of the control point
func (l *GCPList) Update(id string, source, destination Point) (ControlPoint, error) {
	i := l.index(id)
	if i < 0 {
		return ControlPoint{}, NewInvalidControlPoint("unknown control point %s", id)
	}
	cp := ControlPoint{ID: id, Source: source, Destination: destination, Enabled: l.points[i].Enabled}
	if err := cp.validate(); err != nil {
		return ControlPoint{}, err
	}
	l.points[i] = cp
	return cp, nil
}

// SetEnabled enables or disables a control point. Disabled points are kept but not used for fitting.
func (l *GCPList) SetEnabled(id string, enabled bool) error {
	i := l.index(id)
	if i < 0 {
		return NewInvalidControlPoint("unknown control point %s", id)
	}
	l.points[i].Enabled = enabled
	return nil
}

// Remove deletes the control point, preserving the order of the others
func (l *GCPList) Remove(id string) error {
	i := l.index(id)
	if i < 0 {
		return NewInvalidControlPoint("unknown control point %s", id)
	}
	l.points = append(l.points[:i], l.points[i+1:]...)
	return nil
}

// Clear removes all the control points
func (l *GCPList) Clear() {
	l.points = nil
}

// Len returns the number of control points (enabled or not)
func (l *GCPList) Len() int {
	return len(l.points)
}

// CountEnabled returns the number of enabled control points
func (l *GCPList) CountEnabled() int {
	n := 0
	for _, cp := range l.points {
		if cp.Enabled {
			n++
		}
	}
	return n
}

// All returns a copy of the control points
func (l *GCPList) All() []ControlPoint {
	return append([]ControlPoint(nil), l.points...)
}

// Enabled returns a copy of the enabled control points
func (l *GCPList) Enabled() []ControlPoint {
	var res []ControlPoint
	for _, cp := range l.points {
		if cp.Enabled {
			res = append(res, cp)
		}
	}
	return res
}

// EnabledPairs returns the source and destination coordinates of the enabled control points, index-wise
func (l *GCPList) EnabledPairs() (sources, destinations []Point) {
	for _, cp := range l.points {
		if cp.Enabled {
			sources = append(sources, cp.Source)
			destinations = append(destinations, cp.Destination)
		}
	}
	return sources, destinations
}

// Clone returns a deep copy of the list
func (l *GCPList) Clone() *GCPList {
	return &GCPList{points: l.All()}
}
