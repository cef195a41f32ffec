package graph

import "errors"

var (
	// ErrEntityRepositoryRequired is returned when an entity repository is not provided.
	ErrEntityRepositoryRequired = errors.New("entity repository required")

	// ErrGraphRepositoryRequired is returned when a graph repository is not provided.
	ErrGraphRepositoryRequired = errors.New("graph repository required")

	// ErrInvalidMaxDepth is returned for a non-positive path bound.
	ErrInvalidMaxDepth = errors.New("max depth must be positive")
)
