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

	"github.com/poiesic/sprintly/core"
	"github.com/poiesic/sprintly/storage"
)

const (
	// DefaultBatchSize is the default number of entities to fetch in each batch
	DefaultBatchSize = 100
)

// EntityIterator pages through stored entities in ID order.
type EntityIterator struct {
	repo        storage.EntityRepository
	batchSize   int
	afterID     core.ID
	missingOnly bool
}

// NewEntityIterator creates a new entity iterator.
// batchSize: number of entities to fetch in each batch (DefaultBatchSize if <= 0)
func NewEntityIterator(repo storage.EntityRepository, batchSize int) *EntityIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &EntityIterator{
		repo:      repo,
		batchSize: batchSize,
	}
}

// StartAfter skips entities with IDs up to and including id.
func (it *EntityIterator) StartAfter(id core.ID) *EntityIterator {
	it.afterID = id
	return it
}

// MissingEmbeddingsOnly restricts iteration to entities without an embedding.
func (it *EntityIterator) MissingEmbeddingsOnly() *EntityIterator {
	it.missingOnly = true
	return it
}

// ForEach calls fn with each page of matching entities.
// Iteration stops on first error from fn or when all entities are visited.
// Context cancellation is checked between pages.
func (it *EntityIterator) ForEach(ctx context.Context, fn func([]*core.Entity) error) error {
	after := it.afterID
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := it.repo.ListEntities(ctx, after, it.batchSize)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}
		after = page[len(page)-1].Id

		batch := page
		if it.missingOnly {
			batch = make([]*core.Entity, 0, len(page))
			for _, e := range page {
				if !e.HasEmbedding() {
					batch = append(batch, e)
				}
			}
		}
		if len(batch) > 0 {
			if err := fn(batch); err != nil {
				return err
			}
		}

		if len(page) < it.batchSize {
			return nil
		}
	}
}

// Count returns the number of entities ForEach would visit.
func (it *EntityIterator) Count(ctx context.Context) (int, error) {
	total := 0
	err := it.ForEach(ctx, func(batch []*core.Entity) error {
		total += len(batch)
		return nil
	})
	return total, err
}
