package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/go-collection-boot/async"
	"github.com/pka-ai/knowledge-core/embeddings"
	"go.uber.org/zap"
)

// Reserved payload keys carrying the record itself; everything else in the
// payload is caller metadata.
const (
	payloadID       = "_id"
	payloadDocument = "_document"
)

// QdrantStore implements Store over Qdrant's REST API with cosine distance.
type QdrantStore struct {
	endpoint   string
	collection string
	embedder   embeddings.Embedder
	client     *http.Client

	mu      sync.Mutex
	ensured bool
}

func NewQdrantStore(endpoint, collection string, embedder embeddings.Embedder) (*QdrantStore, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("qdrant endpoint is required")
	}
	if collection == "" {
		collection = "knowledge_base"
	}

	return &QdrantStore{
		endpoint:   endpoint,
		collection: collection,
		embedder:   embedder,
		client:     &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// ensureCollection creates the collection on first use if it doesn't exist.
// Only success latches, so a store built while Qdrant is down recovers on
// the next call.
func (q *QdrantStore) ensureCollection(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ensured {
		return nil
	}

	url := fmt.Sprintf("%s/collections/%s", q.endpoint, q.collection)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := q.client.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		q.ensured = true
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     q.embedder.Dimension(),
			"distance": "Cosine",
		},
	}
	if err := q.do(ctx, http.MethodPut, url, body); err != nil {
		return err
	}
	q.ensured = true
	return nil
}

// pointID produces a deterministic uint64 FNV-1a hash usable as a Qdrant
// point id; the original string id travels in the payload.
func pointID(id string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(id); i++ {
		h ^= uint64(id[i])
		h *= 1099511628211
	}
	return h
}

func (q *QdrantStore) Add(ctx context.Context, documents []string, metadatas []map[string]string, ids []string) error {
	metadatas, ids, err := resolveIDs(documents, metadatas, ids)
	if err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}

	if err := q.ensureCollection(ctx); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	vectors, err := async.Await(q.embedder.Embed(ctx, documents))
	if err != nil {
		return fmt.Errorf("failed to embed documents: %w", err)
	}

	points := make([]map[string]any, len(documents))
	for i := range documents {
		payload := map[string]string{
			payloadID:       ids[i],
			payloadDocument: documents[i],
		}
		for k, v := range metadatas[i] {
			payload[k] = v
		}

		points[i] = map[string]any{
			"id":      pointID(ids[i]),
			"vector":  vectors[i],
			"payload": payload,
		}
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", q.endpoint, q.collection)
	if err := q.do(ctx, http.MethodPut, url, map[string]any{"points": points}); err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}

	logger.Info("Documents added to vector store",
		zap.Int("document_count", len(documents)),
		zap.String("collection", q.collection))
	return nil
}

func (q *QdrantStore) Search(ctx context.Context, query string, limit int, filter map[string]string) ([]SearchResult, error) {
	if err := q.ensureCollection(ctx); err != nil {
		return nil, &SearchError{Query: query, Err: err}
	}

	vectors, err := async.Await(q.embedder.Embed(ctx, []string{query}))
	if err != nil {
		return nil, &SearchError{Query: query, Err: err}
	}

	body := map[string]any{
		"vector":       vectors[0],
		"limit":        limit,
		"with_payload": true,
	}
	if len(filter) > 0 {
		var must []any
		for k, v := range filter {
			must = append(must, map[string]any{
				"key":   k,
				"match": map[string]any{"value": v},
			})
		}
		body["filter"] = map[string]any{"must": must}
	}

	data, _ := json.Marshal(body)
	url := fmt.Sprintf("%s/collections/%s/points/search", q.endpoint, q.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, &SearchError{Query: query, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := q.client.Do(req)
	if err != nil {
		return nil, &SearchError{Query: query, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, &SearchError{Query: query, Err: fmt.Errorf("qdrant search failed: %s %s", resp.Status, string(b))}
	}

	var result struct {
		Result []struct {
			ID      uint64            `json:"id"`
			Score   float64           `json:"score"`
			Payload map[string]string `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &SearchError{Query: query, Err: fmt.Errorf("decode search response: %w", err)}
	}

	results := make([]SearchResult, 0, len(result.Result))
	for _, hit := range result.Result {
		metadata := make(map[string]string)
		for k, v := range hit.Payload {
			if k != payloadID && k != payloadDocument {
				metadata[k] = v
			}
		}

		similarity, distance := clampScore(hit.Score)
		results = append(results, SearchResult{
			ID:         hit.Payload[payloadID],
			Document:   hit.Payload[payloadDocument],
			Metadata:   metadata,
			Similarity: similarity,
			Distance:   distance,
		})
	}

	return results, nil
}

func (q *QdrantStore) Delete(ctx context.Context, ids []string) error {
	if err := q.ensureCollection(ctx); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	points := make([]uint64, len(ids))
	for i, id := range ids {
		points[i] = pointID(id)
	}

	// Qdrant silently skips unknown point ids, matching the store contract.
	url := fmt.Sprintf("%s/collections/%s/points/delete?wait=true", q.endpoint, q.collection)
	if err := q.do(ctx, http.MethodPost, url, map[string]any{"points": points}); err != nil {
		return fmt.Errorf("qdrant delete failed: %w", err)
	}

	logger.Info("Documents deleted from vector store", zap.Int("deleted_count", len(ids)))
	return nil
}

func (q *QdrantStore) Stats(ctx context.Context) Stats {
	stats := Stats{
		Dimension: q.embedder.Dimension(),
		ModelName: q.embedder.ModelName(),
	}

	url := fmt.Sprintf("%s/collections/%s", q.endpoint, q.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		stats.Error = err.Error()
		return stats
	}

	resp, err := q.client.Do(req)
	if err != nil {
		stats.Error = err.Error()
		return stats
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		stats.Error = fmt.Sprintf("qdrant stats failed: %s %s", resp.Status, string(b))
		return stats
	}

	var result struct {
		Result struct {
			PointsCount int `json:"points_count"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		stats.Error = err.Error()
		return stats
	}

	stats.DocumentCount = result.Result.PointsCount
	return stats
}

func (q *QdrantStore) do(ctx context.Context, method, url string, body map[string]any) error {
	data, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := q.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s", resp.Status, string(b))
	}
	return nil
}
