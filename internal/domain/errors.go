package domain

import "errors"

// Error classes. Callers wrap these with fmt.Errorf and test with errors.Is.
var (
	// ErrNotFound marks a catalog lookup miss or a missing input file.
	ErrNotFound = errors.New("not found")

	// ErrMalformedInput marks an unparseable file, row or batch.
	ErrMalformedInput = errors.New("malformed input")

	// ErrUpstreamService marks a failed call to the forecast service.
	ErrUpstreamService = errors.New("upstream service error")

	// ErrConfiguration marks invalid settings detected at startup.
	ErrConfiguration = errors.New("invalid configuration")
)
