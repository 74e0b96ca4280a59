package georef

import "math"

// ResidualUnit tells in which space the residuals are expressed
type ResidualUnit int

const (
	ResidualPixels ResidualUnit = iota
	ResidualMapUnits
)

func (u ResidualUnit) String() string {
	if u == ResidualPixels {
		return "pixels"
	}
	return "map units"
}

// Residual is the difference between where the fitted model puts a control point and where it was registered
type Residual struct {
	ID        string
	DX, DY    float64
	Magnitude float64
}

// Residuals is the set of residuals of a fit
type Residuals struct {
	Unit   ResidualUnit
	Points []Residual
}

// NewResidual computes the residual between the expected and the transformed point
func NewResidual(id string, expected, got Point) Residual {
	dx, dy := got.X-expected.X, got.Y-expected.Y
	return Residual{ID: id, DX: dx, DY: dy, Magnitude: math.Hypot(dx, dy)}
}

// RMSError returns the root mean square of the residual magnitudes (0 if empty)
func (r Residuals) RMSError() float64 {
	if len(r.Points) == 0 {
		return 0
	}
	var s float64
	for _, p := range r.Points {
		s += p.Magnitude * p.Magnitude
	}
	return math.Sqrt(s / float64(len(r.Points)))
}

// Max returns the residual with the largest magnitude
func (r Residuals) Max() (Residual, bool) {
	if len(r.Points) == 0 {
		return Residual{}, false
	}
	m := r.Points[0]
	for _, p := range r.Points[1:] {
		if p.Magnitude > m.Magnitude {
			m = p
		}
	}
	return m, true
}
