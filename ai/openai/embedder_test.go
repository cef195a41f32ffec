package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/poiesic/sprintly/ai"
	"github.com/poiesic/sprintly/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// embeddingServer answers /embeddings with vectors of width dim whose first
// component is the input index.
func embeddingServer(t *testing.T, dim int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			vec := make([]float32, dim)
			vec[0] = float32(i)
			data[i] = map[string]any{"object": "embedding", "index": i, "embedding": vec}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  "text-embedding-3-large",
			"usage":  map[string]any{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEmbedder_EmbedTexts(t *testing.T) {
	srv := embeddingServer(t, 4)

	embedder, err := NewEmbedder(ai.NewConfig(ai.WithHost(srv.URL), ai.WithDimensions(4)))
	require.NoError(t, err)

	vectors, err := embedder.EmbedTexts(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	for i, v := range vectors {
		assert.Len(t, v, 4)
		assert.Equal(t, float32(i), v[0])
	}

	single, err := embedder.EmbedText(context.Background(), "only")
	require.NoError(t, err)
	assert.Len(t, single, 4)
}

func TestEmbedder_RejectsWrongDimension(t *testing.T) {
	srv := embeddingServer(t, 3)

	embedder, err := NewEmbedder(ai.NewConfig(ai.WithHost(srv.URL), ai.WithDimensions(4)))
	require.NoError(t, err)

	_, err = embedder.EmbedText(context.Background(), "x")
	assert.ErrorIs(t, err, core.ErrInvalidEmbedding)
}
