package badger

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/sprintly/core"
	"github.com/poiesic/sprintly/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	tmpDir := t.TempDir()
	backend, err := OpenBackend(tmpDir, false)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)

	assert.False(t, backend.IsClosed())

	err = backend.Close()
	require.NoError(t, err)

	assert.True(t, backend.IsClosed())

	err = backend.WithTransaction(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestWithTransaction_CommitsTogether(t *testing.T) {
	entityRepo, graphRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer func() {
		graphRepo.Close()
		entityRepo.Close()
		backend.Close()
	}()

	ctx := context.Background()
	var ownerID, contactID core.ID

	err = entityRepo.WithTransaction(ctx, func(ctx context.Context) error {
		added, err := entityRepo.AddEntities(ctx,
			&core.Entity{Name: "Owner", Email: "owner@example.com", Role: core.RoleOther},
			&core.Entity{Name: "Contact", Email: "contact@example.com", Role: core.RoleInvestor},
		)
		if err != nil {
			return err
		}
		ownerID, contactID = added[0].Id, added[1].Id

		// IDs are visible inside the transaction before commit
		contact, err := entityRepo.GetEntity(ctx, contactID)
		if err != nil {
			return err
		}
		return entityRepo.AddConnections(ctx, &core.Connection{
			Source:   ownerID,
			Target:   contact.Id,
			Type:     core.RelConnectedTo,
			Strength: 1.0,
		})
	})
	require.NoError(t, err)

	conns, err := entityRepo.GetConnections(ctx, contactID)
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, ownerID, conns[0].Source)
}

func TestWithTransaction_RollsBack(t *testing.T) {
	entityRepo, graphRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer func() {
		graphRepo.Close()
		entityRepo.Close()
		backend.Close()
	}()

	ctx := context.Background()
	boom := errors.New("boom")

	err = entityRepo.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := entityRepo.AddEntities(ctx, &core.Entity{Name: "Ghost", Email: "ghost@example.com", Role: core.RoleOther}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = entityRepo.FindByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	counts, err := entityRepo.CountByRole(ctx)
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"scale invariant", []float32{1, 1}, []float32{5, 5}, 1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}
