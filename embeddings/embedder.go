package embeddings

import (
	"context"
	"fmt"

	"github.com/SaiNageswarS/go-collection-boot/async"
)

// Embedder maps texts to fixed-dimension vectors. Embed is offloaded to a
// worker goroutine so model inference never blocks the caller.
type Embedder interface {
	Embed(ctx context.Context, texts []string) <-chan async.Result[[][]float32]
	Dimension() int
	ModelName() string
}

// EmbeddingError is the error kind for the embedding subsystem. Retrieval
// treats it as recoverable and degrades to no-context.
type EmbeddingError struct {
	Model string
	Err   error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed for model %s: %v", e.Model, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }
