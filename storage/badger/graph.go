package badger

import (
	"container/list"
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/sprintly/core"
	"github.com/poiesic/sprintly/storage"
)

// GraphRepository implements storage.GraphRepository on top of BadgerDB
// adjacency keys. Every edge is written under both endpoints so traversals
// treat the graph as undirected.
type GraphRepository struct {
	backend *Backend
}

var _ storage.GraphRepository = (*GraphRepository)(nil)

// NewGraphRepository creates a new GraphRepository.
func NewGraphRepository(backend *Backend) (*GraphRepository, error) {
	return &GraphRepository{backend: backend}, nil
}

// Close is a no-op; the backend is owned by the caller.
func (g *GraphRepository) Close() error {
	return nil
}

// UpsertNode creates the node for id if missing.
func (g *GraphRepository) UpsertNode(ctx context.Context, id core.ID) error {
	return g.backend.WithTx(ctx, func(tx *badger.Txn) error {
		return tx.Set(makeGraphNodeKey(id), nil)
	}, true)
}

// UpsertEdge stores conn under both endpoints, creating the nodes.
func (g *GraphRepository) UpsertEdge(ctx context.Context, conn *core.Connection) error {
	if err := core.ValidateConnection(conn); err != nil {
		return err
	}
	if conn.CreatedAt.IsZero() {
		conn.CreatedAt = time.Now().UTC()
	}
	value := storage.MarshalConnection(conn)
	return g.backend.WithTx(ctx, func(tx *badger.Txn) error {
		for _, id := range []core.ID{conn.Source, conn.Target} {
			if err := tx.Set(makeGraphNodeKey(id), nil); err != nil {
				return err
			}
		}
		if err := tx.Set(makeGraphAdjKey(conn.Source, conn.Target, conn.Type), value); err != nil {
			return err
		}
		return tx.Set(makeGraphAdjKey(conn.Target, conn.Source, conn.Type), value)
	}, true)
}

// Neighbors returns nodes adjacent to id in ascending ID order.
func (g *GraphRepository) Neighbors(ctx context.Context, id core.ID) ([]core.ID, error) {
	var result []core.ID
	err := g.backend.WithTx(ctx, func(tx *badger.Txn) error {
		var err error
		result, err = neighbors(tx, id)
		return err
	}, false)
	return result, err
}

// ShortestPath runs a breadth-first search from source, expanding neighbours
// in ascending ID order so the returned path is stable for a given graph.
func (g *GraphRepository) ShortestPath(ctx context.Context, source, target core.ID, maxDepth int) ([]core.ID, error) {
	var path []core.ID
	err := g.backend.WithTx(ctx, func(tx *badger.Txn) error {
		exists, err := nodeExists(tx, source)
		if err != nil || !exists {
			return err
		}
		if source == target {
			path = []core.ID{source}
			return nil
		}

		parent := map[core.ID]core.ID{source: 0}
		depth := map[core.ID]int{source: 0}
		queue := list.New()
		queue.PushBack(source)

		for queue.Len() > 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			current := queue.Remove(queue.Front()).(core.ID)
			if depth[current] >= maxDepth {
				continue
			}

			next, err := neighbors(tx, current)
			if err != nil {
				return err
			}
			for _, n := range next {
				if _, seen := parent[n]; seen {
					continue
				}
				parent[n] = current
				depth[n] = depth[current] + 1
				if n == target {
					path = reconstructPath(parent, source, target)
					return nil
				}
				queue.PushBack(n)
			}
		}
		return nil
	}, false)
	return path, err
}

// MutualNeighbors returns the intersection of the neighbourhoods of a and b.
func (g *GraphRepository) MutualNeighbors(ctx context.Context, a, b core.ID, limit int) ([]core.ID, error) {
	var result []core.ID
	err := g.backend.WithTx(ctx, func(tx *badger.Txn) error {
		left, err := neighbors(tx, a)
		if err != nil {
			return err
		}
		right, err := neighbors(tx, b)
		if err != nil {
			return err
		}

		// Both lists are sorted; merge-walk them.
		i, j := 0, 0
		for i < len(left) && j < len(right) {
			switch {
			case left[i] < right[j]:
				i++
			case left[i] > right[j]:
				j++
			default:
				if left[i] != a && left[i] != b {
					result = append(result, left[i])
					if limit > 0 && len(result) >= limit {
						return nil
					}
				}
				i++
				j++
			}
		}
		return nil
	}, false)
	return result, err
}

// Wipe removes all nodes and edges.
func (g *GraphRepository) Wipe(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return g.backend.DropPrefixes(graphNodePrefix, graphAdjPrefix)
}

func nodeExists(tx *badger.Txn, id core.ID) (bool, error) {
	_, err := tx.Get(makeGraphNodeKey(id))
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	return err == nil, err
}

func neighbors(tx *badger.Txn, id core.ID) ([]core.ID, error) {
	prefix := string(appendIDs(graphAdjPrefix, id))
	var result []core.ID
	err := scanPrefix(tx, []byte(prefix), true, func(item *badger.Item) (bool, error) {
		// Typed edges to the same neighbour are adjacent in key order
		n := idAt(item.Key(), prefix, 0)
		if len(result) == 0 || result[len(result)-1] != n {
			result = append(result, n)
		}
		return true, nil
	})
	return result, err
}

func reconstructPath(parent map[core.ID]core.ID, source, target core.ID) []core.ID {
	var path []core.ID
	for current := target; current != source; current = parent[current] {
		path = append(path, current)
	}
	path = append(path, source)
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
