package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/sprintly/ai"
	"github.com/poiesic/sprintly/core"
	"github.com/poiesic/sprintly/storage"
)

const (
	// DefaultPoolSize is the number of concurrent classification calls.
	DefaultPoolSize = 10

	// MaxPoolSize caps the classification pool regardless of what callers ask for.
	MaxPoolSize = 20

	// DefaultEmbeddingBatchSize is the number of texts sent per embedding call.
	DefaultEmbeddingBatchSize = 2000

	// DefaultPersistBatchSize is the number of entities committed per transaction.
	DefaultPersistBatchSize = 100
)

// Pipeline orchestrates the import of contacts into the entity store and
// the relationship graph.
type Pipeline struct {
	entityRepository   storage.EntityRepository
	graphRepository    storage.GraphRepository
	embedder           ai.Embedder
	classifier         ai.Classifier
	pool               *ants.Pool
	poolSize           int
	embeddingBatchSize int
	persistBatchSize   int
	dimensions         int
	progress           *ProgressTracker
	running            sync.Mutex
	logger             *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent classification.
// Values are clamped to [1, MaxPoolSize]. Default is DefaultPoolSize.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		size = clampPoolSize(size)

		// Release old pool
		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		p.poolSize = size
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithGraphRepository mirrors imported connections into graph.
// Without it the relationship graph is not updated.
func WithGraphRepository(graph storage.GraphRepository) Option {
	return func(p *Pipeline) error {
		p.graphRepository = graph
		return nil
	}
}

// WithEmbeddingBatchSize sets how many texts go into one embedding call.
// Default is DefaultEmbeddingBatchSize.
func WithEmbeddingBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("embedding batch size must be positive, got %d", size)
		}
		p.embeddingBatchSize = size
		return nil
	}
}

// WithPersistBatchSize sets how many entities are committed per transaction.
// Default is DefaultPersistBatchSize.
func WithPersistBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("persist batch size must be positive, got %d", size)
		}
		p.persistBatchSize = size
		return nil
	}
}

// WithDimensions rejects embeddings that are not exactly dim long.
// Default is 0, which accepts any non-empty vector.
func WithDimensions(dim int) Option {
	return func(p *Pipeline) error {
		if dim < 0 {
			return fmt.Errorf("dimensions must not be negative, got %d", dim)
		}
		p.dimensions = dim
		return nil
	}
}

// WithProgressTracker sets the tracker updated during runs, so callers can
// poll it from elsewhere. Default is a private tracker exposed by Progress.
func WithProgressTracker(tracker *ProgressTracker) Option {
	return func(p *Pipeline) error {
		if tracker == nil {
			tracker = NewProgressTracker()
		}
		p.progress = tracker
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(entityRepository storage.EntityRepository, provider ai.AIProvider, opts ...Option) (*Pipeline, error) {
	if entityRepository == nil {
		return nil, ErrEntityRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	pool, err := ants.NewPool(DefaultPoolSize)
	if err != nil {
		return nil, err
	}

	// Create pipeline with defaults
	p := &Pipeline{
		entityRepository:   entityRepository,
		embedder:           provider.Embedder(),
		classifier:         provider.Classifier(),
		pool:               pool,
		poolSize:           DefaultPoolSize,
		embeddingBatchSize: DefaultEmbeddingBatchSize,
		persistBatchSize:   DefaultPersistBatchSize,
		progress:           NewProgressTracker(),
		logger:             slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "ingestion")

	return p, nil
}

// IngestOptions holds optional parameters for ingestion.
type IngestOptions struct {
	// SkipEnrichment stores contacts without classification or embeddings.
	SkipEnrichment bool

	// Concurrency overrides the pool size for this run, capped at MaxPoolSize.
	Concurrency int
}

// Result summarizes an ingestion run.
type Result struct {
	Total   int
	Created int
	Skipped int
	// Errors lists soft, per-item failures. Entities affected by them were
	// still created with neutral attributes or without an embedding.
	Errors []string
}

// Ingest imports records as connections of owner.
//
// Records whose email or profile URL is already stored (or repeated earlier
// in the same input) are skipped. Classification, embedding and graph
// failures for single items are recorded in Result.Errors. Store failures
// abort the run; batches committed before the failure stay committed.
func (p *Pipeline) Ingest(ctx context.Context, records []Record, owner core.ID, opts IngestOptions) (*Result, error) {
	if owner == 0 {
		return nil, ErrOwnerRequired
	}
	if !p.running.TryLock() {
		return nil, ErrIngestionInProgress
	}
	defer p.running.Unlock()

	pool := p.pool
	if opts.Concurrency > 0 {
		runPool, err := ants.NewPool(clampPoolSize(opts.Concurrency))
		if err != nil {
			return nil, err
		}
		defer runPool.Release()
		pool = runPool
	}

	result := &Result{Total: len(records)}
	p.progress.Reset(len(records))
	start := time.Now()

	err := p.run(ctx, pool, records, owner, opts, result)
	result.Errors = p.progress.Errors()
	if err != nil {
		p.progress.SetStatus(StatusError)
		p.logger.Error("ingestion failed", "created", result.Created, "skipped", result.Skipped, "err", err)
		return result, err
	}

	p.progress.SetStatus(StatusCompleted)
	p.logger.Info("ingestion complete",
		"total", result.Total,
		"created", result.Created,
		"skipped", result.Skipped,
		"errors", len(result.Errors),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, pool *ants.Pool, records []Record, owner core.ID, opts IngestOptions, result *Result) error {
	// 1. Drop contacts we already know
	pending, err := p.dedup(ctx, records, result)
	if err != nil {
		return err
	}
	p.logger.Info("deduplication complete", "new", len(pending), "skipped", result.Skipped)
	if len(pending) == 0 {
		return nil
	}

	entities := make([]*core.Entity, len(pending))
	for i, rec := range pending {
		entities[i] = rec.entity()
	}

	if opts.SkipEnrichment {
		p.logger.Info("skipping classification and embeddings")
		for _, e := range entities {
			ai.UnknownClassification().Apply(e)
		}
	} else {
		// 2. Classify concurrently
		if err := ctx.Err(); err != nil {
			return err
		}
		classifications, err := p.enrich(ctx, pool, pending)
		if err != nil {
			return err
		}
		enrichedAt := time.Now().UTC()
		for i, e := range entities {
			classifications[i].Apply(e)
			e.EnrichedAt = enrichedAt
		}

		// 3. Embed in batches
		if err := p.embed(ctx, entities); err != nil {
			return err
		}
	}

	// 4 and 5. Persist in batches and mirror each committed batch
	return p.persist(ctx, entities, owner, result)
}

// dedup returns the records that are neither stored already nor repeated
// earlier in records. Rows without any identity are skipped with a soft error.
func (p *Pipeline) dedup(ctx context.Context, records []Record, result *Result) ([]Record, error) {
	pending := make([]Record, 0, len(records))
	seenEmails := make(map[core.ID]struct{})
	seenURLs := make(map[core.ID]struct{})

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		email := strings.TrimSpace(rec.Email)
		url := strings.TrimSpace(rec.LinkedInURL)
		if rec.Name() == "" && email == "" && url == "" {
			p.softError(fmt.Sprintf("Skipped row %d: no name, email or profile URL", i+1))
			result.Skipped++
			p.progress.AddProcessed(1)
			continue
		}

		dup, err := p.exists(ctx, email, url)
		if err != nil {
			return nil, fmt.Errorf("checking for existing contact: %w", err)
		}

		emailKey, urlKey := core.IdentityKey(email), core.IdentityKey(url)
		if _, ok := seenEmails[emailKey]; ok && emailKey != 0 {
			dup = true
		}
		if _, ok := seenURLs[urlKey]; ok && urlKey != 0 {
			dup = true
		}
		if dup {
			result.Skipped++
			p.progress.AddProcessed(1)
			continue
		}

		if emailKey != 0 {
			seenEmails[emailKey] = struct{}{}
		}
		if urlKey != 0 {
			seenURLs[urlKey] = struct{}{}
		}
		pending = append(pending, rec)
	}
	return pending, nil
}

// exists looks up a stored entity by email first, then by profile URL.
func (p *Pipeline) exists(ctx context.Context, email, url string) (bool, error) {
	if email != "" {
		_, err := p.entityRepository.FindByEmail(ctx, email)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return false, err
		}
	}
	if url != "" {
		_, err := p.entityRepository.FindByLinkedInURL(ctx, url)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return false, err
		}
	}
	return false, nil
}

// Progress returns a snapshot of the current or last run.
func (p *Pipeline) Progress() Progress {
	return p.progress.Snapshot()
}

// softError records a per-item failure.
func (p *Pipeline) softError(msg string) {
	p.logger.Warn(msg)
	p.progress.AddError(msg)
}

// Release releases resources including worker pools.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

func clampPoolSize(size int) int {
	return max(1, min(size, MaxPoolSize))
}

// truncate returns at most n runes of s.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
