package ingestion

import "errors"

var (
	// ErrEntityRepositoryRequired is returned when an entity repository is not provided.
	ErrEntityRepositoryRequired = errors.New("entity repository required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrOwnerRequired is returned when Ingest is called without an owner.
	ErrOwnerRequired = errors.New("owner id required")

	// ErrIngestionInProgress is returned when a pipeline is asked to run twice at once.
	ErrIngestionInProgress = errors.New("ingestion already in progress")

	// ErrMissingColumns is returned when a connections export lacks required headers.
	ErrMissingColumns = errors.New("missing required columns")

	// ErrNoRows is returned when a connections export has a header but no data.
	ErrNoRows = errors.New("no data rows")
)
