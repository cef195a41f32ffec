// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package reembed

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/poiesic/sprintly/ai"
	"github.com/poiesic/sprintly/core"
	"github.com/poiesic/sprintly/storage"
)

// CheckpointType identifies re-embedding checkpoints.
const CheckpointType = "entity-reembed"

// Config holds configuration for the re-embedding operation.
type Config struct {
	// BatchSize is the number of entities to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of entities)
	ReportInterval int

	// MaxRetries is the maximum number of attempts for each embedding call
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// All re-embeds every entity instead of only those without an embedding
	All bool

	// Dimensions rejects embeddings of any other length when > 0
	Dimensions int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Reembedder orchestrates the re-embedding of stored entities.
type Reembedder struct {
	repo        storage.EntityRepository
	checkpoints storage.CheckpointRepository
	embedder    ai.Embedder
	config      *Config
	progress    io.Writer
	processor   *BatchProcessor
}

// NewReembedder creates a new reembedder.
// checkpoints: optional; when set, interrupted runs resume where they stopped
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(repo storage.EntityRepository, checkpoints storage.CheckpointRepository, embedder ai.Embedder, config *Config, progress io.Writer) (*Reembedder, error) {
	if repo == nil {
		return nil, ErrEntityRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reembedder{
		repo:        repo,
		checkpoints: checkpoints,
		embedder:    embedder,
		config:      config,
		progress:    progress,
		processor:   NewBatchProcessor(repo, embedder, config.MaxRetries, config.RetryDelay, config.Dimensions),
	}, nil
}

// Run re-embeds every entity selected by the configuration and returns how
// many were updated. Progress is reported to the configured writer.
func (r *Reembedder) Run(ctx context.Context) (int, error) {
	afterID, err := r.resumePoint(ctx)
	if err != nil {
		return 0, err
	}

	iterator := NewEntityIterator(r.repo, r.config.BatchSize).StartAfter(afterID)
	if !r.config.All {
		iterator.MissingEmbeddingsOnly()
	}

	total, err := iterator.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count entities: %w", err)
	}
	if total == 0 {
		fmt.Fprintf(r.progress, "No entities need embeddings (0 entities)\n")
		return 0, r.clearCheckpoint(ctx)
	}

	fmt.Fprintf(r.progress, "Starting re-embedding of %d entities (batch size: %d)\n",
		total, iterator.batchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	processed := 0
	err = iterator.ForEach(ctx, func(entities []*core.Entity) error {
		if err := r.processor.Process(ctx, entities); err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}

		processed += len(entities)
		tracker.Update(processed)
		return r.saveCheckpoint(ctx, entities[len(entities)-1].Id)
	})
	if err != nil {
		return processed, err
	}

	tracker.Finish()
	if err := r.clearCheckpoint(ctx); err != nil {
		return processed, err
	}

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Re-embedding complete. Processed %d entities in %v (%.1f entities/sec)\n",
		processed, elapsed.Round(time.Second), float64(processed)/elapsed.Seconds())

	return processed, nil
}

func (r *Reembedder) resumePoint(ctx context.Context) (core.ID, error) {
	if r.checkpoints == nil {
		return 0, nil
	}
	checkpoint, err := r.checkpoints.LoadCheckpoint(ctx, CheckpointType)
	if err != nil {
		return 0, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if checkpoint == nil {
		return 0, nil
	}
	fmt.Fprintf(r.progress, "Resuming after entity %d (checkpoint from %s)\n",
		checkpoint.LastID, checkpoint.UpdatedAt.Format(time.RFC3339))
	return checkpoint.LastID, nil
}

func (r *Reembedder) saveCheckpoint(ctx context.Context, lastID core.ID) error {
	if r.checkpoints == nil {
		return nil
	}
	err := r.checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{ProcessorType: CheckpointType, LastID: lastID})
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

func (r *Reembedder) clearCheckpoint(ctx context.Context) error {
	if r.checkpoints == nil {
		return nil
	}
	if err := r.checkpoints.ClearCheckpoint(ctx, CheckpointType); err != nil {
		return fmt.Errorf("failed to clear checkpoint: %w", err)
	}
	return nil
}
