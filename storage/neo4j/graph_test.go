package neo4j

import (
	"context"
	"os"
	"testing"

	"github.com/poiesic/sprintly/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelTypePattern(t *testing.T) {
	tests := []struct {
		relType string
		valid   bool
	}{
		{core.RelConnectedTo, true},
		{"KNOWS", true},
		{"_PRIVATE", true},
		{"knows", false},
		{"CONNECTED TO", false},
		{"X]->(n) DETACH DELETE n //", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.relType, func(t *testing.T) {
			assert.Equal(t, tt.valid, relTypePattern.MatchString(tt.relType))
		})
	}
}

func TestToID(t *testing.T) {
	id, err := toID(int64(42))
	require.NoError(t, err)
	assert.Equal(t, core.ID(42), id)

	_, err = toID("42")
	assert.Error(t, err)
}

func TestShortestPathCypher(t *testing.T) {
	cypher := shortestPathCypher(4)
	assert.Contains(t, cypher, "allShortestPaths((a)-[*1..4]-(b))")
	assert.Contains(t, cypher, "ORDER BY ids")
	assert.Contains(t, cypher, "LIMIT 1")
	assert.NotContains(t, cypher, " shortestPath(")
}

// TestGraph_Integration runs against a live server when SPRINTLY_TEST_NEO4J_URI is set.
func TestGraph_Integration(t *testing.T) {
	uri := os.Getenv("SPRINTLY_TEST_NEO4J_URI")
	if uri == "" {
		t.Skip("SPRINTLY_TEST_NEO4J_URI not set")
	}

	ctx := context.Background()
	g, err := Open(ctx, Config{
		URI:      uri,
		User:     os.Getenv("SPRINTLY_TEST_NEO4J_USER"),
		Password: os.Getenv("SPRINTLY_TEST_NEO4J_PASSWORD"),
	})
	require.NoError(t, err)
	defer g.Close()
	require.NoError(t, g.Wipe(ctx))

	// Two equally short routes from 1 to 3; the one through 4 is written first
	for _, e := range [][2]core.ID{{1, 4}, {4, 3}, {1, 2}, {2, 3}} {
		require.NoError(t, g.UpsertEdge(ctx, &core.Connection{
			Source: e[0], Target: e[1], Type: core.RelConnectedTo, Strength: 1,
		}))
	}

	path, err := g.ShortestPath(ctx, 1, 3, 3)
	require.NoError(t, err)
	assert.Equal(t, []core.ID{1, 2, 3}, path)

	back, err := g.ShortestPath(ctx, 3, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []core.ID{3, 2, 1}, back)

	mutual, err := g.MutualNeighbors(ctx, 1, 3, 10)
	require.NoError(t, err)
	assert.Equal(t, []core.ID{2, 4}, mutual)

	same, err := g.ShortestPath(ctx, 2, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []core.ID{2}, same)

	require.NoError(t, g.Wipe(ctx))
}
