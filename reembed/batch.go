package reembed

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/sprintly/ai"
	"github.com/poiesic/sprintly/core"
	"github.com/poiesic/sprintly/storage"
)

// BatchProcessor regenerates embeddings for batches of entities.
type BatchProcessor struct {
	repo           storage.EntityRepository
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
	dimensions     int
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of attempts for each embedding call
// retryBaseDelay: base delay for exponential backoff
// dimensions: required embedding length, 0 accepts any
func NewBatchProcessor(repo storage.EntityRepository, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration, dimensions int) *BatchProcessor {
	return &BatchProcessor{
		repo:           repo,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
		dimensions:     dimensions,
	}
}

// Process embeds the entities' descriptive text and stores the normalized
// vectors. The batch is written in one update.
func (bp *BatchProcessor) Process(ctx context.Context, entities []*core.Entity) error {
	if len(entities) == 0 {
		return nil
	}

	texts := make([]string, len(entities))
	for i, e := range entities {
		texts[i] = e.EmbeddingText()
	}

	embeddings, err := RetryWithBackoff(ctx, func() ([][]float32, error) {
		return bp.embedder.EmbedTexts(ctx, texts)
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.maxRetries, err)
	}

	if len(embeddings) != len(entities) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(entities), len(embeddings))
	}

	for i, e := range entities {
		if bp.dimensions > 0 {
			if err := ai.CheckDimensions(embeddings[i], bp.dimensions); err != nil {
				return fmt.Errorf("entity %d: %w", e.Id, err)
			}
		}
		e.Embedding = NormalizeVector(embeddings[i])
	}

	if _, err := bp.repo.UpdateEntities(ctx, entities...); err != nil {
		return fmt.Errorf("failed to update entities: %w", err)
	}
	return nil
}
