package ingestion

import (
	"context"
	"errors"
	"fmt"

	"github.com/poiesic/sprintly/ai"
	"github.com/poiesic/sprintly/core"
)

var errEmptyEmbedding = errors.New("empty embedding")

// embed generates embeddings for entities in batches. When a batch call
// fails, every text in the batch is retried on its own; texts that still fail
// leave the entity without an embedding and record a soft error.
func (p *Pipeline) embed(ctx context.Context, entities []*core.Entity) error {
	for start := 0; start < len(entities); start += p.embeddingBatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := min(start+p.embeddingBatchSize, len(entities))
		batch := entities[start:end]
		texts := make([]string, len(batch))
		for i, e := range batch {
			texts[i] = e.EmbeddingText()
		}

		vectors, err := p.embedder.EmbedTexts(ctx, texts)
		if err == nil {
			err = p.checkBatch(vectors, len(texts))
		}
		if err == nil {
			for i, e := range batch {
				e.Embedding = vectors[i]
			}
			p.progress.AddEmbedded(len(batch))
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		p.logger.Warn("batch embedding failed, embedding individually",
			"from", start+1, "to", end, "err", err)
		for i, e := range batch {
			if err := ctx.Err(); err != nil {
				return err
			}
			vec, err := p.embedder.EmbedText(ctx, texts[i])
			if err == nil {
				err = p.checkVector(vec)
			}
			if err != nil {
				e.Embedding = nil
				p.softError(fmt.Sprintf("Failed embedding for text: %s...", truncate(texts[i], 50)))
				continue
			}
			e.Embedding = vec
			p.progress.AddEmbedded(1)
		}
	}
	return nil
}

func (p *Pipeline) checkBatch(vectors [][]float32, want int) error {
	if len(vectors) != want {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", want, len(vectors))
	}
	for _, vec := range vectors {
		if err := p.checkVector(vec); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) checkVector(vec []float32) error {
	if len(vec) == 0 {
		return errEmptyEmbedding
	}
	if p.dimensions > 0 {
		return ai.CheckDimensions(vec, p.dimensions)
	}
	return nil
}
