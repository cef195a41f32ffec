package badger

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/sprintly/core"
	"github.com/poiesic/sprintly/storage"
)

// EntityRepository implements storage.EntityRepository for BadgerDB.
type EntityRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.EntityRepository = (*EntityRepository)(nil)

// NewEntityRepository creates a new EntityRepository.
func NewEntityRepository(backend *Backend) (*EntityRepository, error) {
	idSeq, err := backend.GetSequence(entityIDSeq)
	if err != nil {
		return nil, err
	}

	return &EntityRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *EntityRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *EntityRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddEntities adds one or more entities to storage.
func (r *EntityRepository) AddEntities(ctx context.Context, entities ...*core.Entity) ([]*core.Entity, error) {
	err := r.backend.WithTx(ctx, func(tx *badger.Txn) error {
		for _, entity := range entities {
			if err := core.ValidateEntity(entity); err != nil {
				return err
			}
			if err := r.checkIdentityFree(tx, entity, 0); err != nil {
				return err
			}

			id, err := r.nextID()
			if err != nil {
				return err
			}
			entity.Id = id
			entity.InsertedAt = time.Now().UTC()
			entity.UpdatedAt = entity.InsertedAt

			if err := tx.Set(makeEntityKey(entity.Id), storage.MarshalEntity(entity)); err != nil {
				return err
			}
			if err := r.setIdentityIndex(tx, entity); err != nil {
				return err
			}
		}
		return nil
	}, true)
	if err != nil {
		return nil, err
	}
	return entities, nil
}

// UpdateEntities updates existing entities.
func (r *EntityRepository) UpdateEntities(ctx context.Context, entities ...*core.Entity) ([]*core.Entity, error) {
	err := r.backend.WithTx(ctx, func(tx *badger.Txn) error {
		for _, entity := range entities {
			if err := core.ValidateEntity(entity); err != nil {
				return err
			}
			key := makeEntityKey(entity.Id)

			old, err := readEntity(tx, key)
			if err != nil {
				return err
			}
			if old == nil {
				return fmt.Errorf("%w: entity %d", storage.ErrNotFound, entity.Id)
			}
			if err := r.checkIdentityFree(tx, entity, entity.Id); err != nil {
				return err
			}
			if err := r.deleteIdentityIndex(tx, old); err != nil {
				return err
			}

			entity.InsertedAt = old.InsertedAt
			entity.UpdatedAt = time.Now().UTC()

			if err := tx.Set(key, storage.MarshalEntity(entity)); err != nil {
				return err
			}
			if err := r.setIdentityIndex(tx, entity); err != nil {
				return err
			}
		}
		return nil
	}, true)
	if err != nil {
		return nil, err
	}
	return entities, nil
}

// GetEntity retrieves a single entity by ID.
func (r *EntityRepository) GetEntity(ctx context.Context, id core.ID) (*core.Entity, error) {
	var result *core.Entity
	err := r.backend.WithTx(ctx, func(tx *badger.Txn) error {
		var err error
		result, err = readEntity(tx, makeEntityKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetEntities retrieves multiple entities by their IDs.
func (r *EntityRepository) GetEntities(ctx context.Context, ids ...core.ID) ([]*core.Entity, error) {
	var result []*core.Entity
	err := r.backend.WithTx(ctx, func(tx *badger.Txn) error {
		for _, id := range ids {
			entity, err := readEntity(tx, makeEntityKey(id))
			if err != nil {
				return err
			}
			if entity != nil {
				result = append(result, entity)
			}
		}
		return nil
	}, false)
	return result, err
}

// FindByEmail finds an entity by email, ignoring case.
func (r *EntityRepository) FindByEmail(ctx context.Context, email string) (*core.Entity, error) {
	if core.IdentityKey(email) == 0 {
		return nil, storage.ErrNotFound
	}
	return r.findByIndex(ctx, makeEmailKey(email))
}

// FindByLinkedInURL finds an entity by profile URL, ignoring case.
func (r *EntityRepository) FindByLinkedInURL(ctx context.Context, url string) (*core.Entity, error) {
	if core.IdentityKey(url) == 0 {
		return nil, storage.ErrNotFound
	}
	return r.findByIndex(ctx, makeURLKey(url))
}

// FindEntities returns entities matching filter in ID order.
func (r *EntityRepository) FindEntities(ctx context.Context, filter storage.EntityFilter, limit int) ([]*core.Entity, error) {
	var results []*core.Entity
	err := r.backend.WithTx(ctx, func(tx *badger.Txn) error {
		return scanEntities(tx, func(entity *core.Entity) bool {
			if filter.Matches(entity) {
				results = append(results, entity)
			}
			return limit <= 0 || len(results) < limit
		})
	}, false)
	return results, err
}

// FindSimilar scores every embedded entity that passes filter by cosine
// similarity against vector.
func (r *EntityRepository) FindSimilar(ctx context.Context, vector []float32, filter storage.EntityFilter, limit int) ([]*storage.SimilarEntity, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", storage.ErrInvalidQuery)
	}

	var results []*storage.SimilarEntity
	err := r.backend.WithTx(ctx, func(tx *badger.Txn) error {
		return scanEntities(tx, func(entity *core.Entity) bool {
			if !entity.HasEmbedding() || !filter.Matches(entity) {
				return true
			}
			results = append(results, &storage.SimilarEntity{
				Entity:     entity,
				Similarity: cosineSimilarity(vector, entity.Embedding),
			})
			return true
		})
	}, false)
	if err != nil {
		return nil, err
	}

	// Stable sort keeps ID order among equal scores
	slices.SortStableFunc(results, func(a, b *storage.SimilarEntity) int {
		return cmp.Compare(b.Similarity, a.Similarity)
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// ListEntities returns up to limit entities with IDs greater than afterID.
func (r *EntityRepository) ListEntities(ctx context.Context, afterID core.ID, limit int) ([]*core.Entity, error) {
	var results []*core.Entity
	err := r.backend.WithTx(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entityPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(makeEntityKey(afterID + 1)); iter.Valid(); iter.Next() {
			if limit > 0 && len(results) >= limit {
				break
			}
			entity, err := decodeEntityItem(iter.Item())
			if err != nil {
				return err
			}
			results = append(results, entity)
		}
		return nil
	}, false)
	return results, err
}

// CountByRole returns the number of entities per role.
func (r *EntityRepository) CountByRole(ctx context.Context) (map[core.Role]int, error) {
	counts := make(map[core.Role]int)
	err := r.backend.WithTx(ctx, func(tx *badger.Txn) error {
		return scanEntities(tx, func(entity *core.Entity) bool {
			counts[entity.Role]++
			return true
		})
	}, false)
	return counts, err
}

// AddConnections stores connections and indexes them under both endpoints.
func (r *EntityRepository) AddConnections(ctx context.Context, conns ...*core.Connection) error {
	return r.backend.WithTx(ctx, func(tx *badger.Txn) error {
		for _, conn := range conns {
			if err := core.ValidateConnection(conn); err != nil {
				return err
			}
			if conn.CreatedAt.IsZero() {
				conn.CreatedAt = time.Now().UTC()
			}
			if err := tx.Set(makeConnectionKey(conn.Source, conn.Target), storage.MarshalConnection(conn)); err != nil {
				return err
			}
			for _, endpoint := range []core.ID{conn.Source, conn.Target} {
				if err := tx.Set(makeConnectionIndexKey(endpoint, conn.Source, conn.Target), nil); err != nil {
					return err
				}
			}
		}
		return nil
	}, true)
}

// GetConnections returns connections where id is either endpoint.
func (r *EntityRepository) GetConnections(ctx context.Context, id core.ID) ([]*core.Connection, error) {
	var results []*core.Connection
	err := r.backend.WithTx(ctx, func(tx *badger.Txn) error {
		prefix := string(appendIDs(connectionIndexPrefix, id))
		var keys [][]byte
		err := scanPrefix(tx, []byte(prefix), true, func(item *badger.Item) (bool, error) {
			key := item.Key()
			keys = append(keys, makeConnectionKey(idAt(key, prefix, 0), idAt(key, prefix, 1)))
			return true, nil
		})
		if err != nil {
			return err
		}
		for _, key := range keys {
			conn, err := readConnection(tx, key)
			if err != nil {
				return err
			}
			if conn != nil {
				results = append(results, conn)
			}
		}
		return nil
	}, false)
	return results, err
}

// CountConnections returns the number of stored connections.
func (r *EntityRepository) CountConnections(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(ctx, func(tx *badger.Txn) error {
		return scanPrefix(tx, []byte(connectionPrefix), true, func(*badger.Item) (bool, error) {
			count++
			return true, nil
		})
	}, false)
	return count, err
}

// DeleteAll drops every entity, identity index and connection.
// The ID sequence is kept so IDs are never reused.
func (r *EntityRepository) DeleteAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.backend.DropPrefixes(entityPrefix, entityEmailPrefix, entityURLPrefix, connectionPrefix, connectionIndexPrefix)
}

// Helper methods

func (r *EntityRepository) nextID() (core.ID, error) {
	nextID, err := r.idSeq.Next()
	if err != nil {
		return 0, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if nextID == 0 {
		nextID, err = r.idSeq.Next()
		if err != nil {
			return 0, err
		}
	}
	return core.ID(nextID), nil
}

func (r *EntityRepository) findByIndex(ctx context.Context, indexKey []byte) (*core.Entity, error) {
	var result *core.Entity
	err := r.backend.WithTx(ctx, func(tx *badger.Txn) error {
		id, err := readIndex(tx, indexKey)
		if err != nil {
			return err
		}
		if id == 0 {
			return storage.ErrNotFound
		}
		result, err = readEntity(tx, makeEntityKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// checkIdentityFree returns ErrDuplicateKey if the entity's email or URL is
// indexed to an entity other than self.
func (r *EntityRepository) checkIdentityFree(tx *badger.Txn, entity *core.Entity, self core.ID) error {
	if core.IdentityKey(entity.Email) != 0 {
		owner, err := readIndex(tx, makeEmailKey(entity.Email))
		if err != nil {
			return err
		}
		if owner != 0 && owner != self {
			return fmt.Errorf("%w: email %q", storage.ErrDuplicateKey, entity.Email)
		}
	}
	if core.IdentityKey(entity.LinkedInURL) != 0 {
		owner, err := readIndex(tx, makeURLKey(entity.LinkedInURL))
		if err != nil {
			return err
		}
		if owner != 0 && owner != self {
			return fmt.Errorf("%w: url %q", storage.ErrDuplicateKey, entity.LinkedInURL)
		}
	}
	return nil
}

func (r *EntityRepository) setIdentityIndex(tx *badger.Txn, entity *core.Entity) error {
	value := storage.MarshalID(entity.Id)
	if core.IdentityKey(entity.Email) != 0 {
		if err := tx.Set(makeEmailKey(entity.Email), value); err != nil {
			return err
		}
	}
	if core.IdentityKey(entity.LinkedInURL) != 0 {
		if err := tx.Set(makeURLKey(entity.LinkedInURL), value); err != nil {
			return err
		}
	}
	return nil
}

func (r *EntityRepository) deleteIdentityIndex(tx *badger.Txn, entity *core.Entity) error {
	if core.IdentityKey(entity.Email) != 0 {
		if err := tx.Delete(makeEmailKey(entity.Email)); err != nil {
			return err
		}
	}
	if core.IdentityKey(entity.LinkedInURL) != 0 {
		if err := tx.Delete(makeURLKey(entity.LinkedInURL)); err != nil {
			return err
		}
	}
	return nil
}

// readEntity reads an entity from the transaction.
// Returns nil, nil when the key doesn't exist.
func readEntity(tx *badger.Txn, key []byte) (*core.Entity, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	return decodeEntityItem(item)
}

func decodeEntityItem(item *badger.Item) (*core.Entity, error) {
	var entity *core.Entity
	err := item.Value(func(val []byte) error {
		var unmarshalErr error
		entity, unmarshalErr = storage.UnmarshalEntity(val)
		return unmarshalErr
	})
	return entity, err
}

// readIndex returns the ID stored under an index key, or 0 if absent.
func readIndex(tx *badger.Txn, key []byte) (core.ID, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return 0, nil
		}
		return 0, err
	}
	var id core.ID
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		id, unmarshalErr = storage.UnmarshalID(val)
		return unmarshalErr
	})
	return id, err
}

func readConnection(tx *badger.Txn, key []byte) (*core.Connection, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	var conn *core.Connection
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		conn, unmarshalErr = storage.UnmarshalConnection(val)
		return unmarshalErr
	})
	return conn, err
}

// scanEntities decodes entities in ID order until fn returns false.
func scanEntities(tx *badger.Txn, fn func(entity *core.Entity) bool) error {
	return scanPrefix(tx, []byte(entityPrefix), false, func(item *badger.Item) (bool, error) {
		entity, err := decodeEntityItem(item)
		if err != nil {
			return false, err
		}
		return fn(entity), nil
	})
}

// cosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either vector has zero magnitude. Mismatched lengths compare the common prefix.
func cosineSimilarity(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

