package neo4j

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	driver "github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/poiesic/sprintly/core"
	"github.com/poiesic/sprintly/storage"
)

const (
	defaultUser        = "neo4j"
	defaultPoolSize    = 50
	defaultDialTimeout = 10 * time.Second
)

// relTypePattern limits relationship types to identifiers that are safe to
// splice into Cypher, which cannot parameterize them.
var relTypePattern = regexp.MustCompile(`^[A-Z_][A-Z0-9_]*$`)

// Config holds Neo4j connection settings.
type Config struct {
	URI      string
	User     string
	Password string
	// Database selects a named database; empty uses the server default.
	Database    string
	MaxPoolSize int
	DialTimeout time.Duration
}

// Graph implements storage.GraphRepository on Neo4j. Nodes carry only the
// entity_id property.
type Graph struct {
	driver   driver.DriverWithContext
	database string
	logger   *slog.Logger
}

var _ storage.GraphRepository = (*Graph)(nil)

// Open connects to Neo4j, verifies connectivity and ensures the uniqueness
// constraint on entity IDs exists.
func Open(ctx context.Context, cfg Config) (*Graph, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("neo4j: uri required")
	}
	if cfg.User == "" {
		cfg.User = defaultUser
	}
	if cfg.MaxPoolSize <= 0 {
		cfg.MaxPoolSize = defaultPoolSize
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}

	d, err := driver.NewDriverWithContext(cfg.URI, driver.BasicAuth(cfg.User, cfg.Password, ""), func(c *driver.Config) {
		c.MaxConnectionPoolSize = cfg.MaxPoolSize
		c.SocketConnectTimeout = cfg.DialTimeout
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j: init driver: %w", err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := d.VerifyConnectivity(verifyCtx); err != nil {
		_ = d.Close(ctx)
		return nil, fmt.Errorf("neo4j: verify connectivity: %w", err)
	}

	g := &Graph{
		driver:   d,
		database: cfg.Database,
		logger:   slog.Default().With("component", "neo4j"),
	}
	err = g.write(ctx,
		`CREATE CONSTRAINT entity_id_unique IF NOT EXISTS FOR (n:Entity) REQUIRE n.entity_id IS UNIQUE`, nil)
	if err != nil {
		_ = d.Close(ctx)
		return nil, fmt.Errorf("neo4j: ensure constraint: %w", err)
	}
	return g, nil
}

// Close closes the driver.
func (g *Graph) Close() error {
	return g.driver.Close(context.Background())
}

// UpsertNode merges the node for id.
func (g *Graph) UpsertNode(ctx context.Context, id core.ID) error {
	return g.write(ctx, `MERGE (:Entity {entity_id: $id})`, map[string]any{"id": int64(id)})
}

// UpsertEdge merges both endpoints and the typed relationship between them.
func (g *Graph) UpsertEdge(ctx context.Context, conn *core.Connection) error {
	if err := core.ValidateConnection(conn); err != nil {
		return err
	}
	if !relTypePattern.MatchString(conn.Type) {
		return fmt.Errorf("%w: relationship type %q", core.ErrInvalidConnection, conn.Type)
	}
	if conn.CreatedAt.IsZero() {
		conn.CreatedAt = time.Now().UTC()
	}

	cypher := fmt.Sprintf(`
MERGE (a:Entity {entity_id: $source})
MERGE (b:Entity {entity_id: $target})
MERGE (a)-[r:%s]->(b)
SET r.strength = $strength, r.created_at = coalesce(r.created_at, $created_at)`, conn.Type)

	return g.write(ctx, cypher, map[string]any{
		"source":     int64(conn.Source),
		"target":     int64(conn.Target),
		"strength":   conn.Strength,
		"created_at": conn.CreatedAt,
	})
}

// shortestPathCypher enumerates every shortest path and keeps the one whose ID
// sequence sorts first, the same path a BFS expanding neighbours in ascending
// ID order finds.
func shortestPathCypher(maxDepth int) string {
	return fmt.Sprintf(`
MATCH (a:Entity {entity_id: $source}), (b:Entity {entity_id: $target})
MATCH p = allShortestPaths((a)-[*1..%d]-(b))
WITH [n IN nodes(p) | n.entity_id] AS ids
RETURN ids
ORDER BY ids
LIMIT 1`, maxDepth)
}

// ShortestPath uses Cypher allShortestPaths over undirected relationships.
func (g *Graph) ShortestPath(ctx context.Context, source, target core.ID, maxDepth int) ([]core.ID, error) {
	if source == target {
		ids, err := g.readIDs(ctx, `MATCH (n:Entity {entity_id: $id}) RETURN n.entity_id AS id`,
			map[string]any{"id": int64(source)})
		if err != nil || len(ids) == 0 {
			return nil, err
		}
		return []core.ID{source}, nil
	}
	if maxDepth < 1 {
		return nil, nil
	}

	result, err := g.read(ctx, shortestPathCypher(maxDepth), map[string]any{"source": int64(source), "target": int64(target)})
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, nil
	}
	raw, ok := result[0].Get("ids")
	if !ok {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("neo4j: unexpected path type %T", raw)
	}
	path := make([]core.ID, 0, len(list))
	for _, v := range list {
		id, err := toID(v)
		if err != nil {
			return nil, err
		}
		path = append(path, id)
	}
	return path, nil
}

// MutualNeighbors returns nodes adjacent to both a and b.
func (g *Graph) MutualNeighbors(ctx context.Context, a, b core.ID, limit int) ([]core.ID, error) {
	cypher := `
MATCH (a:Entity {entity_id: $a})--(m:Entity)--(b:Entity {entity_id: $b})
WHERE m <> a AND m <> b
RETURN DISTINCT m.entity_id AS id
ORDER BY id`
	params := map[string]any{"a": int64(a), "b": int64(b)}
	if limit > 0 {
		cypher += "\nLIMIT $limit"
		params["limit"] = int64(limit)
	}
	return g.readIDs(ctx, cypher, params)
}

// Neighbors returns nodes adjacent to id.
func (g *Graph) Neighbors(ctx context.Context, id core.ID) ([]core.ID, error) {
	return g.readIDs(ctx, `
MATCH (:Entity {entity_id: $id})--(m:Entity)
RETURN DISTINCT m.entity_id AS id
ORDER BY id`, map[string]any{"id": int64(id)})
}

// Wipe detaches and deletes every Entity node.
func (g *Graph) Wipe(ctx context.Context) error {
	g.logger.Warn("wiping graph")
	return g.write(ctx, `MATCH (n:Entity) DETACH DELETE n`, nil)
}

func (g *Graph) write(ctx context.Context, cypher string, params map[string]any) error {
	session := g.driver.NewSession(ctx, driver.SessionConfig{
		AccessMode:   driver.AccessModeWrite,
		DatabaseName: g.database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx driver.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	return err
}

func (g *Graph) read(ctx context.Context, cypher string, params map[string]any) ([]*driver.Record, error) {
	session := g.driver.NewSession(ctx, driver.SessionConfig{
		AccessMode:   driver.AccessModeRead,
		DatabaseName: g.database,
	})
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx driver.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	records, _ := out.([]*driver.Record)
	return records, nil
}

func (g *Graph) readIDs(ctx context.Context, cypher string, params map[string]any) ([]core.ID, error) {
	records, err := g.read(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	ids := make([]core.ID, 0, len(records))
	for _, rec := range records {
		raw, ok := rec.Get("id")
		if !ok {
			continue
		}
		id, err := toID(raw)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func toID(v any) (core.ID, error) {
	switch n := v.(type) {
	case int64:
		return core.ID(n), nil
	case int:
		return core.ID(n), nil
	default:
		return 0, fmt.Errorf("neo4j: unexpected id type %T", v)
	}
}
