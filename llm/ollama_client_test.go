package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOllamaClient(t *testing.T, handler http.HandlerFunc) *OllamaClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	baseURL, err := url.Parse(server.URL)
	require.NoError(t, err)

	return NewOllamaClientWith(api.NewClient(baseURL, server.Client()), "llama3.2")
}

func ollamaChatHandler(t *testing.T, content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)

		var req api.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.2", req.Model)

		json.NewEncoder(w).Encode(api.ChatResponse{
			Model:   req.Model,
			Message: api.Message{Role: "assistant", Content: content},
			Done:    true,
		})
	}
}

func TestOllamaClient_Complete(t *testing.T) {
	client := newTestOllamaClient(t, ollamaChatHandler(t, "  Paris is the capital of France.  "))

	completion, err := client.Complete(context.Background(),
		[]Message{{Role: RoleUser, Content: "What is the capital of France?"}})

	require.NoError(t, err)
	assert.Equal(t, "Paris is the capital of France.", completion.Text)
	assert.Equal(t, "ollama", completion.Provider)
	assert.Equal(t, "llama3.2", completion.Model)
	assert.Nil(t, completion.Usage)
}

func TestOllamaClient_Complete_ServerError(t *testing.T) {
	client := newTestOllamaClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "model not found"})
	})

	_, err := client.Complete(context.Background(),
		[]Message{{Role: RoleUser, Content: "hello"}})

	require.Error(t, err)
	var serviceErr *AIServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, "ollama", serviceErr.Provider)
}

func TestOllamaClient_CompleteStream(t *testing.T) {
	client := newTestOllamaClient(t, ollamaChatHandler(t, "one two three"))

	var chunks []string
	completion, err := client.CompleteStream(context.Background(),
		[]Message{{Role: RoleUser, Content: "count"}},
		func(chunk string) error {
			chunks = append(chunks, chunk)
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, []string{"one ", "two ", "three"}, chunks)
	assert.Equal(t, "one two three", completion.Text)
	assert.Equal(t, completion.Text, strings.Join(chunks, ""))
}

func TestOllamaClient_CompleteStream_CallbackAborts(t *testing.T) {
	client := newTestOllamaClient(t, ollamaChatHandler(t, "one two three four"))

	delivered := 0
	_, err := client.CompleteStream(context.Background(),
		[]Message{{Role: RoleUser, Content: "count"}},
		func(chunk string) error {
			delivered++
			return assert.AnError
		})

	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, delivered)
}

func TestOllamaClient_CompleteStream_CancelledContext(t *testing.T) {
	client := newTestOllamaClient(t, ollamaChatHandler(t, "one two three"))

	ctx, cancel := context.WithCancel(context.Background())

	_, err := client.CompleteStream(ctx,
		[]Message{{Role: RoleUser, Content: "count"}},
		func(chunk string) error {
			cancel()
			return nil
		})

	require.ErrorIs(t, err, context.Canceled)
}
