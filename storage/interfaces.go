package storage

import (
	"context"

	"github.com/poiesic/sprintly/core"
)

// EntityFilter narrows entity queries. Zero values disable a criterion.
// Sector, Stage and Location match case-insensitively as substrings
// (Sector and Stage against the comma-joined focus lists).
type EntityFilter struct {
	Role     core.Role
	Sector   string
	Stage    string
	Location string

	// MinCheckSize keeps entities whose CheckSizeMin is unset or <= MinCheckSize.
	MinCheckSize int64
	// MaxCheckSize keeps entities whose CheckSizeMax is unset or >= MaxCheckSize.
	MaxCheckSize int64
}

// SimilarEntity is a vector search hit.
type SimilarEntity struct {
	Entity *core.Entity
	// Similarity is 1 - cosine distance.
	Similarity float64
}

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes fn within a single write transaction.
	// Repository calls made with the ctx passed to fn join that transaction
	// and observe each other's writes (including generated IDs).
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// EntityRepository stores entities and the connections created at import time.
type EntityRepository interface {
	Repository

	// AddEntities validates and stores new entities.
	// Generates IDs from a sequence and sets InsertedAt/UpdatedAt.
	// Returns ErrDuplicateKey if an email or profile URL is already taken.
	AddEntities(ctx context.Context, entities ...*core.Entity) ([]*core.Entity, error)

	// UpdateEntities replaces existing entities, keeping identity indices in sync.
	// Returns ErrNotFound if any entity doesn't exist.
	UpdateEntities(ctx context.Context, entities ...*core.Entity) ([]*core.Entity, error)

	// GetEntity retrieves a single entity by ID.
	// Returns ErrNotFound if the entity doesn't exist.
	GetEntity(ctx context.Context, id core.ID) (*core.Entity, error)

	// GetEntities retrieves multiple entities by ID.
	// Returns only the entities that exist, in request order.
	GetEntities(ctx context.Context, ids ...core.ID) ([]*core.Entity, error)

	// FindByEmail finds an entity by exact (case-insensitive) email.
	// Returns ErrNotFound if no entity matches.
	FindByEmail(ctx context.Context, email string) (*core.Entity, error)

	// FindByLinkedInURL finds an entity by exact (case-insensitive) profile URL.
	// Returns ErrNotFound if no entity matches.
	FindByLinkedInURL(ctx context.Context, url string) (*core.Entity, error)

	// FindEntities returns entities matching filter ordered by ID, up to limit
	// (0 means no limit).
	FindEntities(ctx context.Context, filter EntityFilter, limit int) ([]*core.Entity, error)

	// FindSimilar returns the entities with embeddings closest to vector
	// that match filter, ordered by similarity (highest first).
	FindSimilar(ctx context.Context, vector []float32, filter EntityFilter, limit int) ([]*SimilarEntity, error)

	// ListEntities pages through all entities in ID order, starting after afterID.
	ListEntities(ctx context.Context, afterID core.ID, limit int) ([]*core.Entity, error)

	// CountByRole returns entity counts keyed by role.
	CountByRole(ctx context.Context) (map[core.Role]int, error)

	// AddConnections stores connections. Connections are keyed by
	// (source, target); re-adding an existing pair overwrites it.
	AddConnections(ctx context.Context, conns ...*core.Connection) error

	// GetConnections returns connections touching id in either direction.
	GetConnections(ctx context.Context, id core.ID) ([]*core.Connection, error)

	// CountConnections returns the number of stored connections.
	CountConnections(ctx context.Context) (int, error)

	// DeleteAll removes every entity and connection.
	DeleteAll(ctx context.Context) error
}

// GraphRepository is the relationship store. It only holds entity IDs and
// edge metadata; attributes are joined from an EntityRepository by callers.
type GraphRepository interface {
	// UpsertNode creates the node for id if missing.
	UpsertNode(ctx context.Context, id core.ID) error

	// UpsertEdge creates or updates the edge (source, target, type),
	// creating missing endpoint nodes.
	UpsertEdge(ctx context.Context, conn *core.Connection) error

	// ShortestPath returns the node IDs of a shortest path between source and
	// target, traversing edges in either direction, at most maxDepth hops long.
	// Returns nil when no such path exists. source == target yields [source].
	ShortestPath(ctx context.Context, source, target core.ID, maxDepth int) ([]core.ID, error)

	// MutualNeighbors returns nodes adjacent to both a and b, excluding a and b,
	// in ascending ID order, up to limit.
	MutualNeighbors(ctx context.Context, a, b core.ID, limit int) ([]core.ID, error)

	// Neighbors returns nodes adjacent to id in ascending ID order.
	Neighbors(ctx context.Context, id core.ID) ([]core.ID, error)

	// Wipe removes all nodes and edges.
	Wipe(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// CheckpointRepository persists progress markers for resumable batch jobs.
type CheckpointRepository interface {
	// SaveCheckpoint persists a checkpoint, replacing any previous one for
	// the same processor type.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint retrieves the checkpoint for a processor type.
	// Returns nil, nil if no checkpoint exists.
	LoadCheckpoint(ctx context.Context, processorType string) (*core.Checkpoint, error)

	// ClearCheckpoint removes the checkpoint for a processor type.
	ClearCheckpoint(ctx context.Context, processorType string) error
}
