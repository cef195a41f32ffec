package ai

import (
	"context"
	"fmt"

	"github.com/poiesic/sprintly/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Classifier infers network attributes for a contact from the little we know
// about them at import time.
// Implementations must be thread-safe for concurrent use.
type Classifier interface {
	// Classify returns the inferred role and investment profile.
	// Returns an error if the classification service fails; callers decide
	// whether to fall back to UnknownClassification.
	Classify(ctx context.Context, name, company, position string) (Classification, error)
}

// Classification is the enrichment attached to an entity.
type Classification struct {
	Role             core.Role
	SectorFocus      []string
	StageFocus       []string
	CheckSizeMin     *int64
	CheckSizeMax     *int64
	InvestmentThesis string
	Location         string
	Tags             []string

	// Confidence is the classifier's self-reported certainty in [0,1].
	Confidence float64
}

// UnknownClassification is the neutral result used when classification is
// skipped or fails.
func UnknownClassification() Classification {
	return Classification{
		Role:        core.RoleOther,
		SectorFocus: []string{},
		StageFocus:  []string{},
		Tags:        []string{},
	}
}

// Apply copies the classification onto entity.
func (c Classification) Apply(entity *core.Entity) {
	entity.Role = c.Role
	entity.SectorFocus = c.SectorFocus
	entity.StageFocus = c.StageFocus
	entity.CheckSizeMin = c.CheckSizeMin
	entity.CheckSizeMax = c.CheckSizeMax
	entity.InvestmentThesis = c.InvestmentThesis
	entity.Location = c.Location
	entity.Tags = c.Tags
	entity.Confidence = c.Confidence
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder and Classifier instances,
// ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Classifier returns the contact classification service.
	// The returned Classifier is safe for concurrent use.
	Classifier() Classifier

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}

// CheckDimensions verifies that vec has exactly dim components.
func CheckDimensions(vec []float32, dim int) error {
	if len(vec) != dim {
		return fmt.Errorf("%w: expected %d, got %d", core.ErrInvalidEmbedding, dim, len(vec))
	}
	return nil
}
