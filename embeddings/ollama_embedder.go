package embeddings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/go-collection-boot/async"
	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

// OllamaEmbedder produces embeddings through a local Ollama server. The
// model warm-up happens exactly once process-wide; callers observe either
// "not yet initialized" or "fully initialized", never a partial state.
type OllamaEmbedder struct {
	client    *api.Client
	model     string
	dimension int

	mu          sync.Mutex
	initialized bool
}

func NewOllamaEmbedder(client *api.Client, model string, dimension int) *OllamaEmbedder {
	return &OllamaEmbedder{
		client:    client,
		model:     model,
		dimension: dimension,
	}
}

// Initialize warms the model with a probe embedding and verifies the
// configured dimension. Idempotent; concurrent callers serialize on a lock
// so at most one load runs.
func (e *OllamaEmbedder) Initialize(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		logger.Info("Embedding model already initialized", zap.String("model", e.model))
		return nil
	}

	logger.Info("Loading embedding model", zap.String("model", e.model))

	probe, err := e.embedOnce(ctx, "warmup")
	if err != nil {
		return &EmbeddingError{Model: e.model, Err: err}
	}

	if len(probe) != e.dimension {
		return &EmbeddingError{
			Model: e.model,
			Err:   fmt.Errorf("model produces %d-dimensional vectors, configured dimension is %d", len(probe), e.dimension),
		}
	}

	e.initialized = true
	logger.Info("Embedding model loaded", zap.String("model", e.model), zap.Int("dimension", e.dimension))
	return nil
}

func (e *OllamaEmbedder) Dimension() int { return e.dimension }

func (e *OllamaEmbedder) ModelName() string { return e.model }

// Embed returns one vector per input text, order-preserving.
func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) <-chan async.Result[[][]float32] {
	return async.Go(func() ([][]float32, error) {
		e.mu.Lock()
		ready := e.initialized
		e.mu.Unlock()

		if !ready {
			return nil, &EmbeddingError{Model: e.model, Err: errors.New("embedding model not initialized")}
		}

		vectors := make([][]float32, 0, len(texts))
		for _, text := range texts {
			vector, err := e.embedOnce(ctx, text)
			if err != nil {
				return nil, &EmbeddingError{Model: e.model, Err: err}
			}

			if len(vector) != e.dimension {
				return nil, &EmbeddingError{
					Model: e.model,
					Err:   fmt.Errorf("embedding has dimension %d, expected %d", len(vector), e.dimension),
				}
			}

			vectors = append(vectors, vector)
		}

		return vectors, nil
	})
}

func (e *OllamaEmbedder) embedOnce(ctx context.Context, text string) ([]float32, error) {
	req := &api.EmbeddingRequest{
		Model:     e.model,
		Prompt:    text,
		KeepAlive: &api.Duration{Duration: 60 * time.Minute}, // keep the model loaded between calls
	}

	resp, err := e.client.Embeddings(ctx, req)
	if err != nil {
		return nil, err
	}

	emb32 := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		emb32[i] = float32(v)
	}
	return emb32, nil
}
