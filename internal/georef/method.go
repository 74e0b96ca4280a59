package georef

//go:generate enumer -json -text -type TransformMethod

// TransformMethod identifies the model family used to fit the control points
type TransformMethod int

const (
	InvalidTransform TransformMethod = iota
	Linear
	Helmert
	Polynomial1
	Polynomial2
	Polynomial3
	ThinPlateSpline
	Projective
)

// MinimumGCPCount returns the number of control points needed to fit the method
func (m TransformMethod) MinimumGCPCount() int {
	switch m {
	case Linear, Helmert:
		return 2
	case Polynomial1, ThinPlateSpline:
		return 3
	case Projective:
		return 4
	case Polynomial2:
		return 6
	case Polynomial3:
		return 10
	}
	return 0
}

// ProvidesAccurateInverse is true for linear, Helmert and first order polynomial
func (m TransformMethod) ProvidesAccurateInverse() bool {
	switch m {
	case Linear, Helmert, Polynomial1:
		return true
	}
	return false
}

// PolynomialOrder returns the order of the polynomial methods, 0 otherwise
func (m TransformMethod) PolynomialOrder() int {
	switch m {
	case Polynomial1:
		return 1
	case Polynomial2:
		return 2
	case Polynomial3:
		return 3
	}
	return 0
}
