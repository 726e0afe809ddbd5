package govarcore

import "errors"

var (
	// ErrInvalidBounds is returned when the lower coefficient bound is not
	// strictly less than the upper one.
	ErrInvalidBounds = errors.New("govarcore: invalid coefficient bounds")

	// ErrFittingFailure is returned when a linear or nonlinear solve does not
	// produce a valid parameter set (singular system, non-convergence, NaN/Inf).
	ErrFittingFailure = errors.New("govarcore: fitting failure")

	// ErrMalformedInput is returned for mismatched array lengths, empty
	// frequency lists and similar boundary violations.
	ErrMalformedInput = errors.New("govarcore: malformed input")
)
