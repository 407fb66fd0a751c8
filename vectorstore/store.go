package vectorstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// SearchResult is a retrieved document ranked by vector similarity.
// Similarity is clamped to [0,1] and Distance to [0,inf); the naive
// similarity = 1 - distance identity only holds for normalized cosine
// distance, so out-of-range scores from other metrics are clamped rather
// than propagated.
type SearchResult struct {
	ID         string            `json:"id"`
	Document   string            `json:"document"`
	Metadata   map[string]string `json:"metadata"`
	Similarity float64           `json:"similarity"`
	Distance   float64           `json:"distance"`
}

// Stats describes the collection for observability. It never errors; the
// Error field carries any internal failure instead.
type Stats struct {
	DocumentCount int    `json:"document_count"`
	Dimension     int    `json:"dimension"`
	ModelName     string `json:"model_name"`
	Error         string `json:"error,omitempty"`
}

// Store persists (text, metadata, vector) triples and supports similarity
// search. Implementations compute embeddings through an Embedder, so callers
// only ever deal in text.
type Store interface {
	// Add stores the documents, generating content-hash ids when ids is nil.
	// Re-adding identical content with identical metadata is idempotent.
	Add(ctx context.Context, documents []string, metadatas []map[string]string, ids []string) error

	// Search returns up to limit results ranked by descending similarity.
	// An empty store or an unmatched filter yields an empty slice, not an
	// error.
	Search(ctx context.Context, query string, limit int, filter map[string]string) ([]SearchResult, error)

	// Delete removes matching records; unknown ids are a silent no-op.
	Delete(ctx context.Context, ids []string) error

	Stats(ctx context.Context) Stats
}

// SearchError is the error kind for the retrieval subsystem. The orchestrator
// treats it as recoverable and continues without context.
type SearchError struct {
	Query string
	Err   error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search failed for query %q: %v", e.Query, e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }

// ContentID derives a deterministic document id from content and metadata,
// so re-adding identical content yields the same id.
func ContentID(document string, metadata map[string]string) string {
	meta, _ := json.Marshal(metadata) // map keys marshal in sorted order
	sum := sha256.Sum256([]byte(document + string(meta)))
	return hex.EncodeToString(sum[:])[:16]
}

// resolveIDs normalizes metadatas to one map per document and fills in
// content-hash ids for any documents without an explicit id.
func resolveIDs(documents []string, metadatas []map[string]string, ids []string) ([]map[string]string, []string, error) {
	if metadatas != nil && len(metadatas) != len(documents) {
		return nil, nil, fmt.Errorf("documents and metadatas length mismatch: %d vs %d", len(documents), len(metadatas))
	}
	if ids != nil && len(ids) != len(documents) {
		return nil, nil, fmt.Errorf("documents and ids length mismatch: %d vs %d", len(documents), len(ids))
	}

	if metadatas == nil {
		metadatas = make([]map[string]string, len(documents))
	}
	if ids == nil {
		ids = make([]string, len(documents))
	} else {
		// Filled-in ids must not leak back into the caller's slice.
		ids = append([]string(nil), ids...)
	}
	for i := range documents {
		if ids[i] == "" {
			ids[i] = ContentID(documents[i], metadatas[i])
		}
	}
	return metadatas, ids, nil
}

// clampScore maps a raw similarity score into the (similarity, distance)
// pair the pipeline exposes.
func clampScore(score float64) (similarity, distance float64) {
	similarity = score
	if similarity < 0 {
		similarity = 0
	}
	if similarity > 1 {
		similarity = 1
	}
	return similarity, 1 - similarity
}
