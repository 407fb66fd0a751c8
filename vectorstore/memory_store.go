package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/SaiNageswarS/go-collection-boot/async"
	"github.com/pka-ai/knowledge-core/embeddings"
)

type memoryDoc struct {
	document string
	metadata map[string]string
	vector   []float32
}

// MemoryStore is a brute-force cosine store for tests and small deployments.
type MemoryStore struct {
	embedder embeddings.Embedder

	mu   sync.RWMutex
	docs map[string]memoryDoc
}

func NewMemoryStore(embedder embeddings.Embedder) *MemoryStore {
	return &MemoryStore{
		embedder: embedder,
		docs:     make(map[string]memoryDoc),
	}
}

func (m *MemoryStore) Add(ctx context.Context, documents []string, metadatas []map[string]string, ids []string) error {
	metadatas, ids, err := resolveIDs(documents, metadatas, ids)
	if err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}

	vectors, err := async.Await(m.embedder.Embed(ctx, documents))
	if err != nil {
		return fmt.Errorf("failed to embed documents: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Re-adding an id overwrites in place, so identical content stays idempotent.
	for i := range documents {
		m.docs[ids[i]] = memoryDoc{
			document: documents[i],
			metadata: metadatas[i],
			vector:   vectors[i],
		}
	}
	return nil
}

func (m *MemoryStore) Search(ctx context.Context, query string, limit int, filter map[string]string) ([]SearchResult, error) {
	vectors, err := async.Await(m.embedder.Embed(ctx, []string{query}))
	if err != nil {
		return nil, &SearchError{Query: query, Err: err}
	}
	queryVec := vectors[0]

	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]SearchResult, 0, len(m.docs))
	for id, doc := range m.docs {
		if !matchesFilter(doc.metadata, filter) {
			continue
		}

		similarity, distance := clampScore(cosineSimilarity(queryVec, doc.vector))
		metadata := make(map[string]string, len(doc.metadata))
		for k, v := range doc.metadata {
			metadata[k] = v
		}

		results = append(results, SearchResult{
			ID:         id,
			Document:   doc.document,
			Metadata:   metadata,
			Similarity: similarity,
			Distance:   distance,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ID < results[j].ID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *MemoryStore) Delete(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.docs, id)
	}
	return nil
}

func (m *MemoryStore) Stats(ctx context.Context) Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		DocumentCount: len(m.docs),
		Dimension:     m.embedder.Dimension(),
		ModelName:     m.embedder.ModelName(),
	}
}

func matchesFilter(metadata, filter map[string]string) bool {
	for k, v := range filter {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
