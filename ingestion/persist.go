package ingestion

import (
	"context"
	"fmt"

	"github.com/poiesic/sprintly/core"
)

// persist stores entities in batches, one transaction per batch. Each
// transaction also creates the owner's CONNECTED_TO connection to every new
// entity. Committed batches are then mirrored into the graph store.
func (p *Pipeline) persist(ctx context.Context, entities []*core.Entity, owner core.ID, result *Result) error {
	mirror := p.graphRepository != nil

	for start := 0; start < len(entities); start += p.persistBatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := min(start+p.persistBatchSize, len(entities))
		batch := entities[start:end]
		conns := make([]*core.Connection, len(batch))

		err := p.entityRepository.WithTransaction(ctx, func(ctx context.Context) error {
			if _, err := p.entityRepository.AddEntities(ctx, batch...); err != nil {
				return err
			}
			for i, e := range batch {
				conns[i] = &core.Connection{
					Source:   owner,
					Target:   e.Id,
					Type:     core.RelConnectedTo,
					Strength: 1.0,
				}
			}
			return p.entityRepository.AddConnections(ctx, conns...)
		})
		if err != nil {
			// IDs handed out inside the rolled back transaction are void
			for _, e := range batch {
				e.Id = 0
			}
			return fmt.Errorf("failed to persist records %d-%d: %w", start+1, end, err)
		}

		result.Created += len(batch)
		p.progress.AddProcessed(len(batch))
		p.logger.Debug("batch committed", "from", start+1, "to", end)

		if mirror {
			mirror = p.mirror(ctx, owner, conns)
		}
	}
	return nil
}

// mirror copies committed connections into the graph store. It reports
// whether mirroring should continue; after the first failure the rest of the
// run skips the graph.
func (p *Pipeline) mirror(ctx context.Context, owner core.ID, conns []*core.Connection) bool {
	fail := func(err error) bool {
		p.softError(fmt.Sprintf("graph error: %v", err))
		p.logger.Warn("graph mirroring disabled for the rest of this run")
		return false
	}

	if err := p.graphRepository.UpsertNode(ctx, owner); err != nil {
		return fail(err)
	}
	for _, conn := range conns {
		if err := p.graphRepository.UpsertNode(ctx, conn.Target); err != nil {
			return fail(err)
		}
		if err := p.graphRepository.UpsertEdge(ctx, conn); err != nil {
			return fail(err)
		}
	}
	return true
}
