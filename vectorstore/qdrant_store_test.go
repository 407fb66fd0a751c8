package vectorstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQdrantStore(t *testing.T, handler http.Handler) *QdrantStore {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store, err := NewQdrantStore(server.URL, "test_collection", &stubEmbedder{vectors: map[string][]float32{
		"refund policy": {1, 0, 0},
	}})
	require.NoError(t, err)
	return store
}

func TestNewQdrantStore_RequiresEndpoint(t *testing.T) {
	_, err := NewQdrantStore("", "c", &stubEmbedder{})
	assert.Error(t, err)
}

func TestQdrantStore_Add(t *testing.T) {
	var createdCollection map[string]any
	var upserted map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("GET /collections/test_collection", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("PUT /collections/test_collection", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&createdCollection))
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("PUT /collections/test_collection/points", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&upserted))
		w.WriteHeader(http.StatusOK)
	})

	store := newTestQdrantStore(t, mux)

	err := store.Add(context.Background(),
		[]string{"refund policy"},
		[]map[string]string{{"topic": "billing"}},
		[]string{"doc-1"})
	require.NoError(t, err)

	// Collection is created lazily with the embedder's dimension.
	vectors := createdCollection["vectors"].(map[string]any)
	assert.Equal(t, float64(3), vectors["size"])
	assert.Equal(t, "Cosine", vectors["distance"])

	points := upserted["points"].([]any)
	require.Len(t, points, 1)
	point := points[0].(map[string]any)
	payload := point["payload"].(map[string]any)
	assert.Equal(t, "doc-1", payload["_id"])
	assert.Equal(t, "refund policy", payload["_document"])
	assert.Equal(t, "billing", payload["topic"])
	assert.NotZero(t, point["id"])
}

func TestQdrantStore_Add_RetriesEnsureAfterFailure(t *testing.T) {
	healthy := false

	mux := http.NewServeMux()
	mux.HandleFunc("GET /collections/test_collection", func(w http.ResponseWriter, r *http.Request) {
		if healthy {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Error(w, "unavailable", http.StatusInternalServerError)
	})
	mux.HandleFunc("PUT /collections/test_collection", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusInternalServerError)
	})
	mux.HandleFunc("PUT /collections/test_collection/points", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	store := newTestQdrantStore(t, mux)

	// While Qdrant is down the add fails, but the failure must not stick.
	err := store.Add(context.Background(), []string{"refund policy"}, nil, []string{"doc-1"})
	require.Error(t, err)

	healthy = true

	err = store.Add(context.Background(), []string{"refund policy"}, nil, []string{"doc-1"})
	assert.NoError(t, err)
}

func TestQdrantStore_Search(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /collections/test_collection", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /collections/test_collection/points/search", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(3), body["limit"])
		assert.Equal(t, true, body["with_payload"])

		json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{
					"id":    12345,
					"score": 0.92,
					"payload": map[string]string{
						"_id":       "doc-1",
						"_document": "refund policy",
						"topic":     "billing",
					},
				},
				{
					"id":    67890,
					"score": 1.3,
					"payload": map[string]string{
						"_id":       "doc-2",
						"_document": "shipping times",
					},
				},
			},
		})
	})

	store := newTestQdrantStore(t, mux)

	results, err := store.Search(context.Background(), "refund policy", 3, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "doc-1", results[0].ID)
	assert.Equal(t, "refund policy", results[0].Document)
	assert.Equal(t, map[string]string{"topic": "billing"}, results[0].Metadata)
	assert.InDelta(t, 0.92, results[0].Similarity, 1e-9)
	assert.InDelta(t, 0.08, results[0].Distance, 1e-9)

	// Out-of-range scores clamp instead of propagating.
	assert.InDelta(t, 1.0, results[1].Similarity, 1e-9)
	assert.InDelta(t, 0.0, results[1].Distance, 1e-9)
	assert.Empty(t, results[1].Metadata)
}

func TestQdrantStore_Search_Filter(t *testing.T) {
	var body map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("GET /collections/test_collection", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /collections/test_collection/points/search", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		json.NewEncoder(w).Encode(map[string]any{"result": []any{}})
	})

	store := newTestQdrantStore(t, mux)

	results, err := store.Search(context.Background(), "refund policy", 3,
		map[string]string{"topic": "billing"})
	require.NoError(t, err)
	assert.Empty(t, results)

	filter := body["filter"].(map[string]any)
	must := filter["must"].([]any)
	require.Len(t, must, 1)
	condition := must[0].(map[string]any)
	assert.Equal(t, "topic", condition["key"])
	assert.Equal(t, map[string]any{"value": "billing"}, condition["match"])
}

func TestQdrantStore_Search_ServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /collections/test_collection", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /collections/test_collection/points/search", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	})

	store := newTestQdrantStore(t, mux)

	_, err := store.Search(context.Background(), "refund policy", 3, nil)
	require.Error(t, err)
	var searchErr *SearchError
	assert.ErrorAs(t, err, &searchErr)
}

func TestQdrantStore_Delete(t *testing.T) {
	var body map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("GET /collections/test_collection", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /collections/test_collection/points/delete", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusOK)
	})

	store := newTestQdrantStore(t, mux)

	require.NoError(t, store.Delete(context.Background(), []string{"doc-1", "doc-2"}))

	points := body["points"].([]any)
	assert.Len(t, points, 2)
	assert.Equal(t, float64(pointID("doc-1")), points[0])
}

func TestQdrantStore_Stats(t *testing.T) {
	t.Run("reports point count", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /collections/test_collection", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"result": map[string]any{"points_count": 42},
			})
		})

		store := newTestQdrantStore(t, mux)

		stats := store.Stats(context.Background())
		assert.Equal(t, 42, stats.DocumentCount)
		assert.Equal(t, 3, stats.Dimension)
		assert.Equal(t, "stub-embed", stats.ModelName)
		assert.Empty(t, stats.Error)
	})

	t.Run("failure lands in the Error field", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /collections/test_collection", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusInternalServerError)
		})

		store := newTestQdrantStore(t, mux)

		stats := store.Stats(context.Background())
		assert.NotEmpty(t, stats.Error)
		assert.Zero(t, stats.DocumentCount)
	})
}

func TestPointID_Deterministic(t *testing.T) {
	assert.Equal(t, pointID("doc-1"), pointID("doc-1"))
	assert.NotEqual(t, pointID("doc-1"), pointID("doc-2"))
}
