package analytics

import "errors"

var (
	ErrMissingInput = errors.New("missing required input")

	ErrInvalidTimestamp = errors.New("invalid timestamp")

	ErrInvalidProfile = errors.New("invalid profile")

	ErrUnknownProfile = errors.New("unknown profile")
)
