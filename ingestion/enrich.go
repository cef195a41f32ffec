package ingestion

import (
	"context"
	"fmt"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/sprintly/ai"
	"github.com/poiesic/sprintly/core"
)

// enrichResult carries a classification back to the collector together with
// the index of the record it belongs to.
type enrichResult struct {
	index          int
	classification ai.Classification
	err            error
}

// enrich classifies records on pool. The returned slice is index
// aligned with records. Records whose classification fails get
// UnknownClassification and a soft error.
func (p *Pipeline) enrich(ctx context.Context, pool *ants.Pool, records []Record) ([]ai.Classification, error) {
	classifications := make([]ai.Classification, len(records))
	results := make(chan enrichResult, len(records))

	submitted := 0
	var submitErr error
	for i, rec := range records {
		submitErr = pool.Submit(func() {
			c, err := p.classify(ctx, rec)
			results <- enrichResult{index: i, classification: c, err: err}
		})
		if submitErr != nil {
			break
		}
		submitted++
	}

	for range submitted {
		r := <-results
		if r.err != nil {
			if ctx.Err() == nil {
				p.softError(fmt.Sprintf("Failed enrichment for %s: %s", displayName(records[r.index]), truncate(r.err.Error(), 100)))
			}
			r.classification = ai.UnknownClassification()
		}
		classifications[r.index] = r.classification
		p.progress.AddEnriched(1)
	}

	if submitErr != nil {
		return nil, fmt.Errorf("failed to submit classification task: %w", submitErr)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.logger.Debug("classification complete", "count", len(records))
	return classifications, nil
}

// classify runs the classifier for one record and rejects results that
// would not pass entity validation.
func (p *Pipeline) classify(ctx context.Context, rec Record) (ai.Classification, error) {
	if err := ctx.Err(); err != nil {
		return ai.Classification{}, err
	}

	c, err := p.classifier.Classify(ctx, rec.Name(), rec.Company, rec.Position)
	if err != nil {
		return ai.Classification{}, err
	}

	if err := core.ValidateRole(c.Role); err != nil {
		return ai.Classification{}, err
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return ai.Classification{}, core.ErrInvalidConfidence
	}
	if c.CheckSizeMin != nil && c.CheckSizeMax != nil && *c.CheckSizeMin > *c.CheckSizeMax {
		return ai.Classification{}, core.ErrInvalidCheckSize
	}
	return c, nil
}

// displayName names a record in error messages.
func displayName(rec Record) string {
	if name := rec.Name(); name != "" {
		return name
	}
	if rec.Email != "" {
		return rec.Email
	}
	return rec.LinkedInURL
}
