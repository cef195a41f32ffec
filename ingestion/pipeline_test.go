package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/sprintly/ai"
	"github.com/poiesic/sprintly/ai/mock"
	"github.com/poiesic/sprintly/core"
	"github.com/poiesic/sprintly/storage"
	"github.com/poiesic/sprintly/storage/badger"
)

type testStores struct {
	entities storage.EntityRepository
	graph    storage.GraphRepository
	owner    core.ID
}

func setupTestStores(t *testing.T) *testStores {
	t.Helper()
	entityRepo, graphRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		graphRepo.Close()
		entityRepo.Close()
		backend.Close()
	})

	owner, err := entityRepo.AddEntities(context.Background(), &core.Entity{Name: "Network Owner", Role: core.RoleOther})
	require.NoError(t, err)

	return &testStores{entities: entityRepo, graph: graphRepo, owner: owner[0].Id}
}

func setupTestPipeline(t *testing.T, stores *testStores, provider ai.AIProvider, opts ...Option) *Pipeline {
	t.Helper()
	opts = append([]Option{WithGraphRepository(stores.graph)}, opts...)
	p, err := NewPipeline(stores.entities, provider, opts...)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

func testRecords(n int) []Record {
	records := make([]Record, n)
	for i := range records {
		records[i] = Record{
			FirstName:   "Person",
			LastName:    fmt.Sprint(i),
			Email:       fmt.Sprintf("person%d@example.com", i),
			LinkedInURL: fmt.Sprintf("https://www.linkedin.com/in/person%d", i),
			Company:     "Acme",
			Position:    "Engineer",
		}
	}
	return records
}

func TestNewPipeline(t *testing.T) {
	stores := setupTestStores(t)

	t.Run("requires entity repository", func(t *testing.T) {
		_, err := NewPipeline(nil, mock.NewMockProvider())
		assert.ErrorIs(t, err, ErrEntityRepositoryRequired)
	})

	t.Run("requires provider", func(t *testing.T) {
		_, err := NewPipeline(stores.entities, nil)
		assert.ErrorIs(t, err, ErrAIProviderRequired)
	})

	t.Run("clamps pool size", func(t *testing.T) {
		p, err := NewPipeline(stores.entities, mock.NewMockProvider(), WithPoolSize(100))
		require.NoError(t, err)
		defer p.Release()
		assert.Equal(t, MaxPoolSize, p.poolSize)
		assert.Equal(t, MaxPoolSize, p.pool.Cap())
	})

	t.Run("rejects bad batch sizes", func(t *testing.T) {
		_, err := NewPipeline(stores.entities, mock.NewMockProvider(), WithEmbeddingBatchSize(0))
		assert.Error(t, err)
		_, err = NewPipeline(stores.entities, mock.NewMockProvider(), WithPersistBatchSize(-1))
		assert.Error(t, err)
	})
}

func TestPipeline_Ingest(t *testing.T) {
	stores := setupTestStores(t)
	provider := mock.NewMockProvider().(*mock.MockProvider)
	p := setupTestPipeline(t, stores, provider)
	ctx := context.Background()

	records := []Record{
		{FirstName: "Ada", LastName: "Obi", Email: "ada@savanna.vc", Company: "Savanna Ventures", Position: "General Partner"},
		{FirstName: "Ben", LastName: "Kaur", Email: "ben@ledgerly.io", Company: "Ledgerly", Position: "Founder & CEO"},
		{FirstName: "Cleo", LastName: "Marsh", LinkedInURL: "https://www.linkedin.com/in/cleomarsh", Company: "Marsh LLP", Position: "Startup Lawyer"},
	}

	result, err := p.Ingest(ctx, records, stores.owner, IngestOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 3, result.Created)
	assert.Equal(t, 0, result.Skipped)
	assert.Empty(t, result.Errors)

	ada, err := stores.entities.FindByEmail(ctx, "ada@savanna.vc")
	require.NoError(t, err)
	assert.Equal(t, "Ada Obi", ada.Name)
	assert.Equal(t, core.RoleInvestor, ada.Role)
	assert.Len(t, ada.Embedding, mock.DefaultDimensions)
	assert.False(t, ada.EnrichedAt.IsZero())

	ben, err := stores.entities.FindByEmail(ctx, "ben@ledgerly.io")
	require.NoError(t, err)
	assert.Equal(t, core.RoleFounder, ben.Role)

	cleo, err := stores.entities.FindByLinkedInURL(ctx, "https://www.linkedin.com/in/cleomarsh")
	require.NoError(t, err)
	assert.Equal(t, core.RoleEnabler, cleo.Role)

	// Every new entity is connected to the owner in both stores
	conns, err := stores.entities.GetConnections(ctx, stores.owner)
	require.NoError(t, err)
	assert.Len(t, conns, 3)
	for _, c := range conns {
		assert.Equal(t, stores.owner, c.Source)
		assert.Equal(t, core.RelConnectedTo, c.Type)
		assert.Equal(t, 1.0, c.Strength)
	}

	neighbors, err := stores.graph.Neighbors(ctx, stores.owner)
	require.NoError(t, err)
	assert.ElementsMatch(t, []core.ID{ada.Id, ben.Id, cleo.Id}, neighbors)

	progress := p.Progress()
	assert.Equal(t, StatusCompleted, progress.Status)
	assert.Equal(t, 3, progress.Total)
	assert.Equal(t, 3, progress.Processed)
	assert.Equal(t, 3, progress.Enriched)
	assert.Equal(t, 3, progress.Embedded)
	assert.Equal(t, 3, provider.GetMockClassifier().CallCount())
	assert.Equal(t, 1, provider.GetMockEmbedder().BatchCalls())
}

func TestPipeline_Ingest_RequiresOwner(t *testing.T) {
	stores := setupTestStores(t)
	p := setupTestPipeline(t, stores, mock.NewMockProvider())

	_, err := p.Ingest(context.Background(), testRecords(1), 0, IngestOptions{})
	assert.ErrorIs(t, err, ErrOwnerRequired)
}

func TestPipeline_Ingest_Deduplication(t *testing.T) {
	stores := setupTestStores(t)
	p := setupTestPipeline(t, stores, mock.NewMockProvider())
	ctx := context.Background()

	_, err := stores.entities.AddEntities(ctx,
		&core.Entity{Name: "Known Email", Email: "known@example.com", Role: core.RoleOther},
		&core.Entity{Name: "Known URL", LinkedInURL: "https://www.linkedin.com/in/known", Role: core.RoleOther},
	)
	require.NoError(t, err)

	records := []Record{
		{FirstName: "Known", LastName: "Again", Email: "KNOWN@example.com"},
		{FirstName: "Url", LastName: "Again", LinkedInURL: "https://www.linkedin.com/in/known"},
		{FirstName: "Fresh", LastName: "Face", Email: "fresh@example.com"},
		{FirstName: "Fresh", LastName: "Twin", Email: "fresh@example.com"},
		{FirstName: "Other", LastName: "Face", LinkedInURL: "https://www.linkedin.com/in/other"},
	}

	result, err := p.Ingest(ctx, records, stores.owner, IngestOptions{})
	require.NoError(t, err)
	assert.Equal(t, 5, result.Total)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 3, result.Skipped)
	assert.Equal(t, result.Total, result.Created+result.Skipped)

	fresh, err := stores.entities.FindByEmail(ctx, "fresh@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Fresh Face", fresh.Name)

	assert.Equal(t, 5, p.Progress().Processed)
}

func TestPipeline_Ingest_AllDuplicates(t *testing.T) {
	stores := setupTestStores(t)
	provider := mock.NewMockProvider().(*mock.MockProvider)
	p := setupTestPipeline(t, stores, provider)
	ctx := context.Background()

	records := testRecords(3)
	_, err := p.Ingest(ctx, records, stores.owner, IngestOptions{})
	require.NoError(t, err)
	provider.GetMockClassifier().Reset()

	entitiesBefore := countEntities(t, stores.entities)
	connsBefore, err := stores.entities.CountConnections(ctx)
	require.NoError(t, err)
	neighborsBefore, err := stores.graph.Neighbors(ctx, stores.owner)
	require.NoError(t, err)
	require.Len(t, neighborsBefore, 3)

	result, err := p.Ingest(ctx, records, stores.owner, IngestOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 3, result.Skipped)
	assert.Equal(t, 0, provider.GetMockClassifier().CallCount())
	assert.Equal(t, StatusCompleted, p.Progress().Status)

	// A repeated import leaves entities, connections and graph edges untouched
	assert.Equal(t, entitiesBefore, countEntities(t, stores.entities))
	connsAfter, err := stores.entities.CountConnections(ctx)
	require.NoError(t, err)
	assert.Equal(t, connsBefore, connsAfter)
	neighborsAfter, err := stores.graph.Neighbors(ctx, stores.owner)
	require.NoError(t, err)
	assert.Equal(t, neighborsBefore, neighborsAfter)
}

func countEntities(t *testing.T, repo storage.EntityRepository) int {
	t.Helper()
	counts, err := repo.CountByRole(context.Background())
	require.NoError(t, err)
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}

func TestPipeline_Ingest_SkipsRowsWithoutIdentity(t *testing.T) {
	stores := setupTestStores(t)
	p := setupTestPipeline(t, stores, mock.NewMockProvider())

	records := []Record{
		{Company: "Ghost Corp"},
		{FirstName: "Real", LastName: "Person"},
	}

	result, err := p.Ingest(context.Background(), records, stores.owner, IngestOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Skipped row 1: no name, email or profile URL", result.Errors[0])
}

func TestPipeline_Ingest_SkipEnrichment(t *testing.T) {
	stores := setupTestStores(t)
	provider := mock.NewMockProvider().(*mock.MockProvider)
	p := setupTestPipeline(t, stores, provider)
	ctx := context.Background()

	result, err := p.Ingest(ctx, testRecords(4), stores.owner, IngestOptions{SkipEnrichment: true})
	require.NoError(t, err)
	assert.Equal(t, 4, result.Created)

	assert.Equal(t, 0, provider.GetMockClassifier().CallCount())
	assert.Equal(t, 0, provider.GetMockEmbedder().CallCount())

	e, err := stores.entities.FindByEmail(ctx, "person2@example.com")
	require.NoError(t, err)
	assert.Equal(t, core.RoleOther, e.Role)
	assert.Nil(t, e.Embedding)
	assert.True(t, e.EnrichedAt.IsZero())

	progress := p.Progress()
	assert.Equal(t, 0, progress.Enriched)
	assert.Equal(t, 0, progress.Embedded)
	assert.Equal(t, 4, progress.Processed)
}

func TestPipeline_Ingest_ClassificationFailure(t *testing.T) {
	stores := setupTestStores(t)
	classifier := mock.NewMockClassifier()
	classifier.ClassifyFunc = func(ctx context.Context, name, company, position string) (ai.Classification, error) {
		if name == "Person 1" {
			return ai.Classification{}, errors.New("model overloaded")
		}
		if name == "Person 2" {
			return ai.Classification{Role: "astronaut"}, nil
		}
		return ai.Classification{Role: core.RoleFounder, Confidence: 0.9}, nil
	}
	p := setupTestPipeline(t, stores, mock.NewMockProviderWithServices(mock.NewMockEmbedder(), classifier))
	ctx := context.Background()

	result, err := p.Ingest(ctx, testRecords(3), stores.owner, IngestOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Created)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors, "Failed enrichment for Person 1: model overloaded")

	failed, err := stores.entities.FindByEmail(ctx, "person1@example.com")
	require.NoError(t, err)
	assert.Equal(t, core.RoleOther, failed.Role)
	assert.Equal(t, 0.0, failed.Confidence)
	assert.NotNil(t, failed.Embedding)

	invalid, err := stores.entities.FindByEmail(ctx, "person2@example.com")
	require.NoError(t, err)
	assert.Equal(t, core.RoleOther, invalid.Role)

	ok, err := stores.entities.FindByEmail(ctx, "person0@example.com")
	require.NoError(t, err)
	assert.Equal(t, core.RoleFounder, ok.Role)

	assert.Equal(t, 3, p.Progress().Enriched)
}

func TestPipeline_Ingest_TruncatesLongEnrichmentErrors(t *testing.T) {
	stores := setupTestStores(t)
	classifier := mock.NewMockClassifier()
	classifier.ClassifyFunc = func(ctx context.Context, name, company, position string) (ai.Classification, error) {
		return ai.Classification{}, errors.New(strings.Repeat("x", 300))
	}
	p := setupTestPipeline(t, stores, mock.NewMockProviderWithServices(mock.NewMockEmbedder(), classifier))

	result, err := p.Ingest(context.Background(), testRecords(1), stores.owner, IngestOptions{})
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Failed enrichment for Person 0: "+strings.Repeat("x", 100), result.Errors[0])
}

func TestPipeline_Ingest_EmbeddingFallback(t *testing.T) {
	stores := setupTestStores(t)
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("batch too large")
	}
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		if strings.Contains(text, "Person 1") {
			return nil, errors.New("bad input")
		}
		return mock.GenerateDeterministicVector(text, 8), nil
	}
	p := setupTestPipeline(t, stores, mock.NewMockProviderWithServices(embedder, mock.NewMockClassifier()))
	ctx := context.Background()

	result, err := p.Ingest(ctx, testRecords(3), stores.owner, IngestOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Created)
	require.Len(t, result.Errors, 1)
	assert.True(t, strings.HasPrefix(result.Errors[0], "Failed embedding for text: Name: Person 1"))
	assert.True(t, strings.HasSuffix(result.Errors[0], "..."))

	assert.Equal(t, 1, embedder.BatchCalls())
	assert.Equal(t, 3, embedder.SingleCalls())

	failed, err := stores.entities.FindByEmail(ctx, "person1@example.com")
	require.NoError(t, err)
	assert.Nil(t, failed.Embedding)

	ok, err := stores.entities.FindByEmail(ctx, "person2@example.com")
	require.NoError(t, err)
	assert.Len(t, ok.Embedding, 8)

	assert.Equal(t, 2, p.Progress().Embedded)
}

func TestPipeline_Ingest_EmbeddingBatches(t *testing.T) {
	stores := setupTestStores(t)
	embedder := mock.NewMockEmbedder()
	p := setupTestPipeline(t, stores, mock.NewMockProviderWithServices(embedder, mock.NewMockClassifier()),
		WithEmbeddingBatchSize(2))

	result, err := p.Ingest(context.Background(), testRecords(5), stores.owner, IngestOptions{})
	require.NoError(t, err)
	assert.Equal(t, 5, result.Created)
	assert.Equal(t, 3, embedder.BatchCalls())
	assert.Equal(t, 0, embedder.SingleCalls())
}

func TestPipeline_Ingest_DimensionMismatch(t *testing.T) {
	stores := setupTestStores(t)
	embedder := mock.NewMockEmbedder()
	embedder.Dimensions = 4
	p := setupTestPipeline(t, stores, mock.NewMockProviderWithServices(embedder, mock.NewMockClassifier()),
		WithDimensions(8))
	ctx := context.Background()

	result, err := p.Ingest(ctx, testRecords(2), stores.owner, IngestOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.Len(t, result.Errors, 2)

	e, err := stores.entities.FindByEmail(ctx, "person0@example.com")
	require.NoError(t, err)
	assert.Nil(t, e.Embedding)
}

func TestPipeline_Ingest_PersistBatches(t *testing.T) {
	stores := setupTestStores(t)
	p := setupTestPipeline(t, stores, mock.NewMockProvider(), WithPersistBatchSize(2))
	ctx := context.Background()

	result, err := p.Ingest(ctx, testRecords(5), stores.owner, IngestOptions{})
	require.NoError(t, err)
	assert.Equal(t, 5, result.Created)

	count, err := stores.entities.CountConnections(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

// failingEntityRepository fails AddEntities after a number of successful calls.
type failingEntityRepository struct {
	storage.EntityRepository
	okCalls int
	calls   int
}

func (r *failingEntityRepository) AddEntities(ctx context.Context, entities ...*core.Entity) ([]*core.Entity, error) {
	r.calls++
	if r.calls > r.okCalls {
		return nil, errors.New("disk full")
	}
	return r.EntityRepository.AddEntities(ctx, entities...)
}

func TestPipeline_Ingest_StoreFailureKeepsCommittedBatches(t *testing.T) {
	stores := setupTestStores(t)
	repo := &failingEntityRepository{EntityRepository: stores.entities, okCalls: 1}
	p, err := NewPipeline(repo, mock.NewMockProvider(), WithPersistBatchSize(2), WithGraphRepository(stores.graph))
	require.NoError(t, err)
	defer p.Release()
	ctx := context.Background()

	result, err := p.Ingest(ctx, testRecords(4), stores.owner, IngestOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	require.NotNil(t, result)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, StatusError, p.Progress().Status)

	_, err = stores.entities.FindByEmail(ctx, "person1@example.com")
	assert.NoError(t, err)
	_, err = stores.entities.FindByEmail(ctx, "person2@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	count, err := stores.entities.CountConnections(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

// failingConnectionsRepository writes entities but fails every AddConnections.
type failingConnectionsRepository struct {
	storage.EntityRepository
}

func (r *failingConnectionsRepository) AddConnections(ctx context.Context, conns ...*core.Connection) error {
	return errors.New("connection index corrupted")
}

func TestPipeline_Ingest_BatchRollsBackOnConnectionFailure(t *testing.T) {
	stores := setupTestStores(t)
	repo := &failingConnectionsRepository{EntityRepository: stores.entities}
	p, err := NewPipeline(repo, mock.NewMockProvider(), WithPersistBatchSize(2), WithGraphRepository(stores.graph))
	require.NoError(t, err)
	defer p.Release()
	ctx := context.Background()

	result, err := p.Ingest(ctx, testRecords(2), stores.owner, IngestOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection index corrupted")
	require.NotNil(t, result)
	assert.Equal(t, 0, result.Created)

	// Entities written earlier in the same batch are gone
	for _, email := range []string{"person0@example.com", "person1@example.com"} {
		_, err := stores.entities.FindByEmail(ctx, email)
		assert.ErrorIs(t, err, storage.ErrNotFound, email)
	}
	assert.Equal(t, 1, countEntities(t, stores.entities))

	count, err := stores.entities.CountConnections(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	neighbors, err := stores.graph.Neighbors(ctx, stores.owner)
	require.NoError(t, err)
	assert.Empty(t, neighbors)
}

// failingGraph fails every node upsert.
type failingGraph struct {
	storage.GraphRepository
	calls atomic.Int32
}

func (g *failingGraph) UpsertNode(ctx context.Context, id core.ID) error {
	g.calls.Add(1)
	return errors.New("graph unavailable")
}

func TestPipeline_Ingest_GraphFailureIsSoft(t *testing.T) {
	stores := setupTestStores(t)
	graph := &failingGraph{GraphRepository: stores.graph}
	p := setupTestPipeline(t, stores, mock.NewMockProvider(), WithGraphRepository(graph), WithPersistBatchSize(1))

	result, err := p.Ingest(context.Background(), testRecords(3), stores.owner, IngestOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Created)
	assert.Equal(t, []string{"graph error: graph unavailable"}, result.Errors)
	assert.Equal(t, int32(1), graph.calls.Load())
}

func TestPipeline_Ingest_WithoutGraph(t *testing.T) {
	stores := setupTestStores(t)
	p, err := NewPipeline(stores.entities, mock.NewMockProvider())
	require.NoError(t, err)
	defer p.Release()
	ctx := context.Background()

	result, err := p.Ingest(ctx, testRecords(2), stores.owner, IngestOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)

	neighbors, err := stores.graph.Neighbors(ctx, stores.owner)
	require.NoError(t, err)
	assert.Empty(t, neighbors)
}

func TestPipeline_Ingest_RejectsConcurrentRuns(t *testing.T) {
	stores := setupTestStores(t)
	started := make(chan struct{})
	release := make(chan struct{})
	var once atomic.Bool

	classifier := mock.NewMockClassifier()
	classifier.ClassifyFunc = func(ctx context.Context, name, company, position string) (ai.Classification, error) {
		if once.CompareAndSwap(false, true) {
			close(started)
		}
		<-release
		return ai.UnknownClassification(), nil
	}
	p := setupTestPipeline(t, stores, mock.NewMockProviderWithServices(mock.NewMockEmbedder(), classifier))
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := p.Ingest(ctx, testRecords(2), stores.owner, IngestOptions{})
		done <- err
	}()

	<-started
	_, err := p.Ingest(ctx, testRecords(1), stores.owner, IngestOptions{})
	assert.ErrorIs(t, err, ErrIngestionInProgress)
	assert.Equal(t, StatusProcessing, p.Progress().Status)

	close(release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("first run did not finish")
	}
	assert.Equal(t, StatusCompleted, p.Progress().Status)
}

func TestPipeline_Ingest_Concurrency(t *testing.T) {
	stores := setupTestStores(t)
	var inFlight, peak atomic.Int32

	classifier := mock.NewMockClassifier()
	classifier.ClassifyFunc = func(ctx context.Context, name, company, position string) (ai.Classification, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return ai.UnknownClassification(), nil
	}
	p := setupTestPipeline(t, stores, mock.NewMockProviderWithServices(mock.NewMockEmbedder(), classifier))

	result, err := p.Ingest(context.Background(), testRecords(12), stores.owner, IngestOptions{Concurrency: 2})
	require.NoError(t, err)
	assert.Equal(t, 12, result.Created)
	assert.LessOrEqual(t, peak.Load(), int32(2))

	// The shared pool is untouched by per-run concurrency
	assert.Equal(t, DefaultPoolSize, p.pool.Cap())
}

func TestPipeline_Ingest_ContextCancelled(t *testing.T) {
	stores := setupTestStores(t)
	p := setupTestPipeline(t, stores, mock.NewMockProvider())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := p.Ingest(ctx, testRecords(3), stores.owner, IngestOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, StatusError, p.Progress().Status)

	_, err = stores.entities.FindByEmail(context.Background(), "person0@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPipeline_Ingest_PreservesRawColumns(t *testing.T) {
	stores := setupTestStores(t)
	p := setupTestPipeline(t, stores, mock.NewMockProvider())
	ctx := context.Background()

	connected := time.Date(2023, 3, 14, 0, 0, 0, 0, time.UTC)
	records := []Record{{
		FirstName:   " Dee ",
		LastName:    "Lane ",
		Email:       " dee@example.com ",
		Company:     "Lane & Co",
		ConnectedOn: connected,
		Raw:         map[string]string{ColumnFirstName: " Dee ", "Notes": "met at demo day"},
	}}

	_, err := p.Ingest(ctx, records, stores.owner, IngestOptions{SkipEnrichment: true})
	require.NoError(t, err)

	e, err := stores.entities.FindByEmail(ctx, "dee@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Dee Lane", e.Name)
	assert.Equal(t, "dee@example.com", e.Email)
	assert.True(t, connected.Equal(e.ConnectedOn))
	assert.Equal(t, "met at demo day", e.Metadata["Notes"])
}
