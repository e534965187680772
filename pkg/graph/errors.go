package graph

import "errors"

// Sentinel errors for the store and query layer. Callers match with
// errors.Is and map them to transport-level responses.
var (
	// ErrNotFound means a referenced entity does not exist in the graph.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput means the caller passed input that must be rejected
	// before any store round-trip.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable means the graph store could not be reached.
	ErrUnavailable = errors.New("graph store unavailable")
)
