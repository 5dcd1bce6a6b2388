package nn

import (
	"github.com/pkg/errors"
)

// Configuration and shape errors are programming errors: they surface
// synchronously to the caller and are never retried.
var (
	// ErrDimensionMismatch reports input, batch or timestep dimensions that
	// disagree with the configured layer shape.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrCacheMismatch reports a backward pass invoked with a forward cache
	// that does not correspond to the supplied delta tensor.
	ErrCacheMismatch = errors.New("forward cache mismatch")

	// ErrInvalidActivationName reports an unrecognized activation name during
	// configuration or deserialization.
	ErrInvalidActivationName = errors.New("invalid activation function name")
)

func dimensionMismatch(format string, args ...interface{}) error {
	return errors.Wrapf(ErrDimensionMismatch, format, args...)
}

func cacheMismatch(format string, args ...interface{}) error {
	return errors.Wrapf(ErrCacheMismatch, format, args...)
}

func invalidActivationName(name string) error {
	return errors.Wrapf(ErrInvalidActivationName, "%q", name)
}
