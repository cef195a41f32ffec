package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/sprintly/ai"
	"github.com/poiesic/sprintly/core"
	"github.com/poiesic/sprintly/match"
	"github.com/poiesic/sprintly/storage"
)

const (
	// DefaultLimit is the number of results returned by Search when no limit is given.
	DefaultLimit = 10

	// DefaultInvestorLimit is the number of results returned by FindInvestors when no limit is given.
	DefaultInvestorLimit = 20

	// candidateFactor is how many more vector hits are fetched than returned.
	candidateFactor = 2

	// filterAll disables a categorical filter.
	filterAll = "all"
)

// Searcher provides hybrid semantic and rule-based search over entities.
type Searcher struct {
	entityRepository storage.EntityRepository
	embedder         ai.Embedder
	logger           *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(entityRepository storage.EntityRepository, provider ai.AIProvider, opts ...Option) (*Searcher, error) {
	if entityRepository == nil {
		return nil, ErrEntityRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		entityRepository: entityRepository,
		embedder:         provider.Embedder(),
		logger:           slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "search")

	return s, nil
}

// Filters narrow a Search. Empty values and "all" disable a filter.
type Filters struct {
	Role     string
	Sector   string
	Stage    string
	Location string
}

// entityFilter converts user-facing filters to a storage filter.
func (f Filters) entityFilter() (storage.EntityFilter, error) {
	var filter storage.EntityFilter
	if role := normalizeFilter(f.Role); role != "" {
		r := core.Role(role)
		if err := core.ValidateRole(r); err != nil {
			return filter, err
		}
		filter.Role = r
	}
	filter.Sector = normalizeFilter(f.Sector)
	filter.Stage = normalizeFilter(f.Stage)
	filter.Location = normalizeFilter(f.Location)
	return filter, nil
}

func normalizeFilter(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, filterAll) {
		return ""
	}
	return strings.ToLower(v)
}

// Search finds entities matching query. Results are ranked by blended match
// score and truncated to limit (DefaultLimit when limit <= 0).
func (s *Searcher) Search(ctx context.Context, query string, filters Filters, limit int) ([]match.Match, error) {
	return s.SearchWithMonitor(ctx, query, filters, limit, nil)
}

// SearchWithMonitor searches for entities matching query with monitoring.
// The monitor receives callbacks at each stage of the search process.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query string, filters Filters, limit int, monitor SearchMonitor) ([]match.Match, error) {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	filter, err := filters.entityFilter()
	if err != nil {
		return nil, err
	}
	monitor.Start(query, filter)

	// 1. Embed the query
	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	monitor.AfterQueryEmbedding(len(embedding))

	// 2. Over-fetch nearest neighbours so ranking can reorder them
	hits, err := s.entityRepository.FindSimilar(ctx, embedding, filter, limit*candidateFactor)
	if err != nil {
		s.logger.Error("error querying for similar entities", "err", err)
		return nil, err
	}
	monitor.AfterSimilaritySearch(hits)

	// 3. Explain each hit
	candidates := make([]match.Candidate, 0, len(hits))
	for _, hit := range hits {
		c := match.Candidate{
			Entity:     hit.Entity,
			Similarity: hit.Similarity,
			Reasons:    match.Reasons(hit.Entity, query),
		}
		monitor.Candidate(c)
		candidates = append(candidates, c)
	}

	// 4. Rank and truncate
	results := match.Rank(candidates, query)
	if len(results) > limit {
		results = results[:limit]
	}
	monitor.Finish(results)

	s.logger.Debug("search complete", "query", query, "candidates", len(hits), "results", len(results))
	return results, nil
}

// InvestorCriteria selects investors by attribute. Zero values are ignored.
type InvestorCriteria struct {
	Sector   string
	Stage    string
	Location string
	// MinCheckSize keeps investors whose minimum check is at most this amount.
	MinCheckSize int64
	// MaxCheckSize keeps investors whose maximum check is at least this amount.
	MaxCheckSize int64
	Limit        int
}

// FindInvestors returns investors matching criteria in ID order.
func (s *Searcher) FindInvestors(ctx context.Context, criteria InvestorCriteria) ([]*core.Entity, error) {
	limit := criteria.Limit
	if limit <= 0 {
		limit = DefaultInvestorLimit
	}

	filter := storage.EntityFilter{
		Role:         core.RoleInvestor,
		Sector:       strings.TrimSpace(criteria.Sector),
		Stage:        strings.TrimSpace(criteria.Stage),
		Location:     strings.TrimSpace(criteria.Location),
		MinCheckSize: criteria.MinCheckSize,
		MaxCheckSize: criteria.MaxCheckSize,
	}

	investors, err := s.entityRepository.FindEntities(ctx, filter, limit)
	if err != nil {
		s.logger.Error("error finding investors", "err", err)
		return nil, err
	}
	if investors == nil {
		investors = []*core.Entity{}
	}
	return investors, nil
}
