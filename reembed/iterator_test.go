package reembed

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/sprintly/core"
	"github.com/poiesic/sprintly/storage"
	"github.com/poiesic/sprintly/storage/badger"
)

type testDB struct {
	entities    storage.EntityRepository
	checkpoints storage.CheckpointRepository
}

func setupTestDB(t *testing.T) *testDB {
	t.Helper()
	entityRepo, graphRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		graphRepo.Close()
		entityRepo.Close()
		backend.Close()
	})
	return &testDB{entities: entityRepo, checkpoints: badger.NewCheckpointRepository(backend)}
}

// seedEntities stores n entities; those with an index in embedded get a vector.
func seedEntities(t *testing.T, repo storage.EntityRepository, n int, embedded ...int) []*core.Entity {
	t.Helper()
	has := make(map[int]bool)
	for _, i := range embedded {
		has[i] = true
	}

	entities := make([]*core.Entity, n)
	for i := range entities {
		entities[i] = &core.Entity{
			Name:    fmt.Sprintf("Contact %d", i),
			Company: "Acme",
			Role:    core.RoleOther,
		}
		if has[i] {
			entities[i].Embedding = []float32{1, 0, 0}
		}
	}
	added, err := repo.AddEntities(context.Background(), entities...)
	require.NoError(t, err)
	require.Len(t, added, n)
	return added
}

func collectIDs(t *testing.T, it *EntityIterator) ([]core.ID, []int) {
	t.Helper()
	var ids []core.ID
	var sizes []int
	err := it.ForEach(context.Background(), func(batch []*core.Entity) error {
		sizes = append(sizes, len(batch))
		for _, e := range batch {
			ids = append(ids, e.Id)
		}
		return nil
	})
	require.NoError(t, err)
	return ids, sizes
}

func TestEntityIterator_BatchSizes(t *testing.T) {
	tests := []struct {
		name      string
		count     int
		batchSize int
		wantSizes []int
	}{
		{"exact multiple", 6, 3, []int{3, 3}},
		{"remainder", 7, 3, []int{3, 3, 1}},
		{"single batch", 2, 10, []int{2}},
		{"default batch size", 5, 0, []int{5}},
		{"empty", 0, 3, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDB(t)
			seedEntities(t, db.entities, tt.count)

			ids, sizes := collectIDs(t, NewEntityIterator(db.entities, tt.batchSize))
			assert.Equal(t, tt.wantSizes, sizes)
			assert.Len(t, ids, tt.count)
			assert.IsIncreasing(t, ids)
		})
	}
}

func TestEntityIterator_StartAfter(t *testing.T) {
	db := setupTestDB(t)
	added := seedEntities(t, db.entities, 5)

	ids, _ := collectIDs(t, NewEntityIterator(db.entities, 2).StartAfter(added[2].Id))
	assert.Equal(t, []core.ID{added[3].Id, added[4].Id}, ids)
}

func TestEntityIterator_MissingEmbeddingsOnly(t *testing.T) {
	db := setupTestDB(t)
	added := seedEntities(t, db.entities, 5, 0, 2, 3)

	it := NewEntityIterator(db.entities, 2).MissingEmbeddingsOnly()
	ids, _ := collectIDs(t, it)
	assert.Equal(t, []core.ID{added[1].Id, added[4].Id}, ids)

	count, err := it.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestEntityIterator_StopsOnError(t *testing.T) {
	db := setupTestDB(t)
	seedEntities(t, db.entities, 6)

	boom := errors.New("boom")
	calls := 0
	err := NewEntityIterator(db.entities, 2).ForEach(context.Background(), func([]*core.Entity) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestEntityIterator_ContextCancellation(t *testing.T) {
	db := setupTestDB(t)
	seedEntities(t, db.entities, 6)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := NewEntityIterator(db.entities, 2).ForEach(ctx, func([]*core.Entity) error {
		calls++
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
