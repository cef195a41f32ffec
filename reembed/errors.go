package reembed

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrEntityRepositoryRequired is returned when no entity repository is given
	ErrEntityRepositoryRequired = errors.New("entity repository is required")

	// ErrEmbedderRequired is returned when no embedder is given
	ErrEmbedderRequired = errors.New("embedder is required")
)
