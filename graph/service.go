package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/sprintly/core"
	"github.com/poiesic/sprintly/storage"
)

const (
	// DefaultMaxDepth bounds introduction paths when the caller passes 0.
	DefaultMaxDepth = 3

	// MaxMutualConnections caps MutualConnections results.
	MaxMutualConnections = 10
)

// Service computes relationship views over a GraphRepository, joining entity
// attributes from an EntityRepository.
type Service struct {
	entities storage.EntityRepository
	graph    storage.GraphRepository
	maxDepth int
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMaxDepth sets the path bound used by ConnectionStrength and by
// IntroPath when called with maxDepth 0.
// Default is DefaultMaxDepth.
func WithMaxDepth(depth int) Option {
	return func(s *Service) error {
		if depth <= 0 {
			return ErrInvalidMaxDepth
		}
		s.maxDepth = depth
		return nil
	}
}

// NewService creates a new relationship service.
func NewService(entities storage.EntityRepository, graph storage.GraphRepository, opts ...Option) (*Service, error) {
	if entities == nil {
		return nil, ErrEntityRepositoryRequired
	}
	if graph == nil {
		return nil, ErrGraphRepositoryRequired
	}

	s := &Service{
		entities: entities,
		graph:    graph,
		maxDepth: DefaultMaxDepth,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "graph")
	return s, nil
}

// IntroPath returns the shortest chain of people linking source to target,
// both included, at most maxDepth hops long. A maxDepth of 0 uses the
// configured default. Returns an empty slice when no such path exists.
func (s *Service) IntroPath(ctx context.Context, source, target core.ID, maxDepth int) ([]core.NodeSummary, error) {
	if maxDepth < 0 {
		return nil, ErrInvalidMaxDepth
	}
	if maxDepth == 0 {
		maxDepth = s.maxDepth
	}

	path, err := s.graph.ShortestPath(ctx, source, target, maxDepth)
	if err != nil {
		s.logger.Error("error finding intro path", "source", source, "target", target, "err", err)
		return nil, fmt.Errorf("finding path: %w", err)
	}
	return s.summaries(ctx, path)
}

// MutualConnections returns up to MaxMutualConnections people adjacent to
// both a and b, in ascending ID order.
func (s *Service) MutualConnections(ctx context.Context, a, b core.ID) ([]core.NodeSummary, error) {
	ids, err := s.graph.MutualNeighbors(ctx, a, b, MaxMutualConnections)
	if err != nil {
		s.logger.Error("error finding mutual connections", "a", a, "b", b, "err", err)
		return nil, fmt.Errorf("finding mutual connections: %w", err)
	}

	filtered := ids[:0:0]
	for _, id := range ids {
		if id != a && id != b {
			filtered = append(filtered, id)
		}
	}
	if len(filtered) > MaxMutualConnections {
		filtered = filtered[:MaxMutualConnections]
	}
	return s.summaries(ctx, filtered)
}

// ConnectionStrength scores how close source and target are, from 1.0 for
// direct connections down to 0.0 when no path exists within the configured
// max depth.
func (s *Service) ConnectionStrength(ctx context.Context, source, target core.ID) (float64, error) {
	path, err := s.graph.ShortestPath(ctx, source, target, s.maxDepth)
	if err != nil {
		return 0, fmt.Errorf("finding path: %w", err)
	}
	return StrengthForHops(len(path) - 1), nil
}

// ConnectedInvestors returns investors directly connected to owner, in
// ascending ID order, up to limit (0 means no limit).
func (s *Service) ConnectedInvestors(ctx context.Context, owner core.ID, limit int) ([]*core.Entity, error) {
	ids, err := s.graph.Neighbors(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("listing neighbors: %w", err)
	}
	if len(ids) == 0 {
		return []*core.Entity{}, nil
	}

	entities, err := s.entities.GetEntities(ctx, ids...)
	if err != nil {
		return nil, fmt.Errorf("loading entities: %w", err)
	}

	investors := make([]*core.Entity, 0, len(entities))
	for _, e := range entities {
		if e.Role != core.RoleInvestor {
			continue
		}
		investors = append(investors, e)
		if limit > 0 && len(investors) == limit {
			break
		}
	}
	return investors, nil
}

// NetworkStats summarizes the network by role.
type NetworkStats struct {
	TotalEntities    int
	Investors        int
	Founders         int
	Enablers         int
	Others           int
	TotalConnections int
}

// NetworkStats counts entities per role and stored connections.
func (s *Service) NetworkStats(ctx context.Context) (*NetworkStats, error) {
	counts, err := s.entities.CountByRole(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting entities: %w", err)
	}
	conns, err := s.entities.CountConnections(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting connections: %w", err)
	}

	stats := &NetworkStats{
		Investors:        counts[core.RoleInvestor],
		Founders:         counts[core.RoleFounder],
		Enablers:         counts[core.RoleEnabler],
		TotalConnections: conns,
	}
	for _, n := range counts {
		stats.TotalEntities += n
	}
	stats.Others = stats.TotalEntities - stats.Investors - stats.Founders - stats.Enablers
	return stats, nil
}

// summaries joins entity attributes onto ids, keeping order. IDs with no
// stored entity yield a summary carrying only the ID so path lengths stay
// intact.
func (s *Service) summaries(ctx context.Context, ids []core.ID) ([]core.NodeSummary, error) {
	result := make([]core.NodeSummary, 0, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	entities, err := s.entities.GetEntities(ctx, ids...)
	if err != nil {
		return nil, fmt.Errorf("loading entities: %w", err)
	}
	byID := make(map[core.ID]*core.Entity, len(entities))
	for _, e := range entities {
		byID[e.Id] = e
	}

	for _, id := range ids {
		e, ok := byID[id]
		if !ok {
			s.logger.Warn("graph node has no entity", "id", id)
			result = append(result, core.NodeSummary{Id: id})
			continue
		}
		result = append(result, e.Summary())
	}
	return result, nil
}
