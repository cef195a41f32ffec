package search

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/poiesic/sprintly/ai/mock"
	"github.com/poiesic/sprintly/core"
	"github.com/poiesic/sprintly/match"
	"github.com/poiesic/sprintly/storage"
	"github.com/poiesic/sprintly/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

type fixture struct {
	repo     storage.EntityRepository
	embedder *mock.MockEmbedder
	searcher *Searcher
	ids      map[string]core.ID
}

// newFixture stores a small network with hand-made 3-dimensional embeddings.
// Queries embed to [1,0,0] unless the test overrides the embedder.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	entityRepo, graphRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		graphRepo.Close()
		entityRepo.Close()
		backend.Close()
	})

	entities := []*core.Entity{
		{
			Name: "Amira", Company: "Oasis Ventures", Role: core.RoleInvestor,
			SectorFocus: []string{"Fintech"}, StageFocus: []string{"Seed"}, Location: "Dubai",
			CheckSizeMin: int64Ptr(50000), CheckSizeMax: int64Ptr(200000),
			Embedding: []float32{1, 0, 0},
		},
		{
			Name: "Bruno", Company: "Tilework", Role: core.RoleFounder,
			Embedding: []float32{0.6, 0.8, 0},
		},
		{
			Name: "Clara", Role: core.RoleInvestor,
			SectorFocus: []string{"Healthcare"}, StageFocus: []string{"Series A"}, Location: "Berlin",
			Embedding: []float32{0, 1, 0},
		},
		{
			Name: "Dev", Role: core.RoleInvestor, Location: "Abu Dhabi",
			CheckSizeMin: int64Ptr(1000000),
		},
	}
	_, err = entityRepo.AddEntities(context.Background(), entities...)
	require.NoError(t, err)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(context.Context, string) ([]float32, error) {
		return []float32{1, 0, 0}, nil
	}
	searcher, err := NewSearcher(entityRepo, mock.NewMockProviderWithServices(embedder, mock.NewMockClassifier()))
	require.NoError(t, err)

	f := &fixture{repo: entityRepo, embedder: embedder, searcher: searcher, ids: map[string]core.ID{}}
	for _, e := range entities {
		f.ids[e.Name] = e.Id
	}
	return f
}

func namesOf(matches []match.Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Entity.Name
	}
	return out
}

func TestNewSearcher(t *testing.T) {
	entityRepo, graphRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer func() {
		graphRepo.Close()
		entityRepo.Close()
		backend.Close()
	}()

	provider := mock.NewMockProvider()

	t.Run("valid configuration", func(t *testing.T) {
		searcher, err := NewSearcher(entityRepo, provider)
		require.NoError(t, err)
		assert.NotNil(t, searcher)
	})

	t.Run("with custom logger", func(t *testing.T) {
		searcher, err := NewSearcher(entityRepo, provider, WithLogger(slog.Default()))
		require.NoError(t, err)
		assert.NotNil(t, searcher)
	})

	t.Run("logger is tagged with the component", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		searcher, err := NewSearcher(entityRepo, provider, WithLogger(logger))
		require.NoError(t, err)

		searcher.logger.Info("ready")
		assert.Contains(t, buf.String(), "component=search")
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		searcher, err := NewSearcher(entityRepo, provider, WithLogger(nil))
		require.NoError(t, err)
		assert.NotNil(t, searcher)
	})

	t.Run("nil entity repository", func(t *testing.T) {
		_, err := NewSearcher(nil, provider)
		assert.Equal(t, ErrEntityRepositoryRequired, err)
	})

	t.Run("nil provider", func(t *testing.T) {
		_, err := NewSearcher(entityRepo, nil)
		assert.Equal(t, ErrAIProviderRequired, err)
	})
}

func TestSearch_RanksByBlendedScore(t *testing.T) {
	f := newFixture(t)

	results, err := f.searcher.Search(context.Background(), "fintech seed dubai", Filters{}, 10)
	require.NoError(t, err)

	// Dev has no embedding and cannot surface through vector search
	assert.Equal(t, []string{"Amira", "Bruno", "Clara"}, namesOf(results))
	assert.Equal(t, 95.2, results[0].Score)
	assert.Equal(t, 60.0, results[1].Score)
	assert.Equal(t, 39.3, results[2].Score)

	assert.Equal(t, 1.0, results[0].Similarity)
	assert.Equal(t, 0.6, results[1].Similarity)
	assert.Equal(t, []string{
		"Sector focus: Fintech",
		"Stage: Seed",
		"Location: Dubai",
		"Company: Oasis Ventures",
	}, results[0].Reasons)
	assert.Equal(t, []string{"Company: Tilework"}, results[1].Reasons)
}

func TestSearch_Limit(t *testing.T) {
	f := newFixture(t)

	results, err := f.searcher.Search(context.Background(), "fintech seed dubai", Filters{}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Amira"}, namesOf(results))
}

func TestSearch_Filters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		filters Filters
		want    []string
	}{
		{"no filters", Filters{}, []string{"Amira", "Bruno", "Clara"}},
		{"all means unfiltered", Filters{Role: "all", Sector: "ALL"}, []string{"Amira", "Bruno", "Clara"}},
		{"role", Filters{Role: "Investor"}, []string{"Amira", "Clara"}},
		{"sector", Filters{Sector: "health"}, []string{"Clara"}},
		{"stage", Filters{Stage: "seed"}, []string{"Amira"}},
		{"location", Filters{Location: "berlin"}, []string{"Clara"}},
		{"no hits", Filters{Role: "enabler"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := f.searcher.Search(ctx, "fintech seed dubai", tt.filters, 10)
			require.NoError(t, err)
			assert.Equal(t, tt.want, namesOf(results))
		})
	}
}

func TestSearch_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.searcher.Search(ctx, "   ", Filters{}, 10)
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = f.searcher.Search(ctx, "fintech", Filters{Role: "robot"}, 10)
	assert.ErrorIs(t, err, core.ErrInvalidRole)

	boom := errors.New("embedding service down")
	f.embedder.EmbedTextFunc = func(context.Context, string) ([]float32, error) {
		return nil, boom
	}
	_, err = f.searcher.Search(ctx, "fintech", Filters{}, 10)
	assert.ErrorIs(t, err, boom)
}

type testMonitor struct {
	query      string
	filter     storage.EntityFilter
	dimensions int
	hits       int
	candidates int
	finished   []match.Match
}

func (m *testMonitor) Start(query string, filter storage.EntityFilter) {
	m.query = query
	m.filter = filter
}

func (m *testMonitor) AfterQueryEmbedding(dimensions int) { m.dimensions = dimensions }

func (m *testMonitor) AfterSimilaritySearch(hits []*storage.SimilarEntity) { m.hits = len(hits) }

func (m *testMonitor) Candidate(match.Candidate) { m.candidates++ }

func (m *testMonitor) Finish(results []match.Match) { m.finished = results }

func TestSearchWithMonitor(t *testing.T) {
	f := newFixture(t)
	monitor := &testMonitor{}

	results, err := f.searcher.SearchWithMonitor(context.Background(), "fintech", Filters{Role: "investor"}, 1, monitor)
	require.NoError(t, err)

	assert.Equal(t, "fintech", monitor.query)
	assert.Equal(t, core.RoleInvestor, monitor.filter.Role)
	assert.Equal(t, 3, monitor.dimensions)
	assert.Equal(t, 2, monitor.hits)
	assert.Equal(t, 2, monitor.candidates)
	assert.Equal(t, results, monitor.finished)
	assert.Len(t, results, 1)
}

func TestFindInvestors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		criteria InvestorCriteria
		want     []string
	}{
		{"all investors", InvestorCriteria{}, []string{"Amira", "Clara", "Dev"}},
		{"sector", InvestorCriteria{Sector: "fintech"}, []string{"Amira"}},
		{"stage", InvestorCriteria{Stage: "Series"}, []string{"Clara"}},
		{"location", InvestorCriteria{Location: "dhabi"}, []string{"Dev"}},
		{"min check size", InvestorCriteria{MinCheckSize: 100000}, []string{"Amira", "Clara"}},
		{"max check size", InvestorCriteria{MaxCheckSize: 500000}, []string{"Clara", "Dev"}},
		{"limit", InvestorCriteria{Limit: 1}, []string{"Amira"}},
		{"no match", InvestorCriteria{Sector: "robotics"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			investors, err := f.searcher.FindInvestors(ctx, tt.criteria)
			require.NoError(t, err)
			got := make([]string, len(investors))
			for i, e := range investors {
				got[i] = e.Name
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
