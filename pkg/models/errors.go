package models

import "errors"

// Error taxonomy shared across services. The api package maps these to HTTP
// status codes with errors.Is.
var (
	// ErrUnknownDimension is returned when a dimension name is not one of
	// the fixed recognized feature dimensions.
	ErrUnknownDimension = errors.New("unknown dimension")

	// ErrInvalidDimension is returned when a dimension pair is rejected,
	// e.g. dimx == dimy.
	ErrInvalidDimension = errors.New("invalid dimension pair")

	// ErrUnknownEntityType is returned for a type string that is not
	// genre, artist or track.
	ErrUnknownEntityType = errors.New("unknown entity type")

	// ErrNotFound is returned when requested node IDs resolve to zero
	// documents.
	ErrNotFound = errors.New("not found")

	// ErrNoViewport is returned when a select is issued before any graph
	// query has recorded a visible node set for the session.
	ErrNoViewport = errors.New("no viewport state recorded")

	// ErrSnapshotMissing is returned when no precomputed snapshot exists
	// for the requested key.
	ErrSnapshotMissing = errors.New("snapshot not computed")
)
