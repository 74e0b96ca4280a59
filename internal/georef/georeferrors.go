package georef

import (
	"errors"
	"fmt"
)

type ErrorCode int

const (
	InsufficientPoints ErrorCode = iota
	DegenerateGeometry
	MismatchedLengths
	NotInitialized
	ApproximationFailed
	InvalidMethod
	InvalidControlPoint
)

// GeorefError is a recoverable error returned by the fitters, the transform and the GCP store
type GeorefError struct {
	code ErrorCode
	desc string
}

// NewInsufficientPoints creates an error stating that the number of GCPs is lower than required by the method
func NewInsufficientPoints(method TransformMethod, got, want int) error {
	return GeorefError{code: InsufficientPoints, desc: fmt.Sprintf("%s requires at least %d control points, got %d", method, want, got)}
}

// NewDegenerateGeometry creates an error stating that the system cannot be solved with the current control points
func NewDegenerateGeometry(desc string, a ...interface{}) error {
	return GeorefError{code: DegenerateGeometry, desc: fmt.Sprintf(desc, a...)}
}

// NewMismatchedLengths creates an error stating that source and destination sequences differ in length
func NewMismatchedLengths(nsrc, ndst int) error {
	return GeorefError{code: MismatchedLengths, desc: fmt.Sprintf("%d source coordinates for %d destination coordinates", nsrc, ndst)}
}

// NewNotInitialized creates an error stating that the parameters have not been fitted yet
func NewNotInitialized(desc string, a ...interface{}) error {
	return GeorefError{code: NotInitialized, desc: fmt.Sprintf(desc, a...)}
}

// NewApproximationFailed creates an error stating that an approximate (inverse) transformation did not converge
func NewApproximationFailed(desc string, a ...interface{}) error {
	return GeorefError{code: ApproximationFailed, desc: fmt.Sprintf(desc, a...)}
}

// NewInvalidMethod creates an error stating that the transform method is not supported
func NewInvalidMethod(desc string, a ...interface{}) error {
	return GeorefError{code: InvalidMethod, desc: fmt.Sprintf(desc, a...)}
}

// NewInvalidControlPoint creates an error stating that a control point does not exist or is malformed
func NewInvalidControlPoint(desc string, a ...interface{}) error {
	return GeorefError{code: InvalidControlPoint, desc: fmt.Sprintf(desc, a...)}
}

func (c ErrorCode) String() string {
	switch c {
	case InsufficientPoints:
		return "InsufficientPoints"
	case DegenerateGeometry:
		return "DegenerateGeometry"
	case MismatchedLengths:
		return "MismatchedLengths"
	case NotInitialized:
		return "NotInitialized"
	case ApproximationFailed:
		return "ApproximationFailed"
	case InvalidMethod:
		return "InvalidMethod"
	case InvalidControlPoint:
		return "InvalidControlPoint"
	}
	return fmt.Sprintf("ErrorCode(%d)", int(c))
}

// Error implements error
func (e GeorefError) Error() string {
	return e.code.String() + ": " + e.desc
}

// Desc returns a description of the error
func (e GeorefError) Desc() string {
	return e.desc
}

// Code returns the code of the error
func (e GeorefError) Code() ErrorCode {
	return e.code
}

// IsError tests whether error is a GeorefError with the given code
func IsError(err error, code ErrorCode) bool {
	var gerr GeorefError
	return errors.As(err, &gerr) && gerr.Code() == code
}

// AsError tests whether error is a GeorefError with the given code and returns it
func AsError(err error, code ErrorCode) (GeorefError, bool) {
	var gerr GeorefError
	if errors.As(err, &gerr) && gerr.Code() == code {
		return gerr, true
	}
	return gerr, false
}

// Code returns the code of the error if it is a GeorefError
func Code(err error) (ErrorCode, bool) {
	var gerr GeorefError
	if errors.As(err, &gerr) {
		return gerr.Code(), true
	}
	return 0, false
}
