package image

import "errors"

var (
	// ErrBadShape is returned when a tensor shape is not strictly positive or
	// does not match its buffer.
	ErrBadShape = errors.New("image: invalid shape")

	// ErrBadAffine is returned when an affine is not a 4x4 matrix.
	ErrBadAffine = errors.New("image: affine must be 4x4")

	// ErrNoData is returned when an unloaded image has no loader to read from.
	ErrNoData = errors.New("image: no data available")

	// ErrOutOfBounds is returned when a spatial range falls outside the volume.
	ErrOutOfBounds = errors.New("image: range out of bounds")

	// ErrUnknownAttribute is returned for attribute names images do not expose.
	ErrUnknownAttribute = errors.New("image: unknown attribute")

	// ErrUnknownInterpolation is returned by ParseInterpolation.
	ErrUnknownInterpolation = errors.New("image: unknown interpolation")
)
