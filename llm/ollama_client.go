package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ollama/ollama/api"
)

// OllamaClient is the local-server completion variant, backed by an Ollama
// instance reachable through the standard OLLAMA_HOST environment.
type OllamaClient struct {
	client *api.Client
	model  string
}

func NewOllamaClient(model string) (*OllamaClient, error) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("error creating ollama client: %w", err)
	}
	return &OllamaClient{client: client, model: model}, nil
}

// NewOllamaClientWith wraps an existing API client, e.g. one pointed at a
// test server.
func NewOllamaClientWith(client *api.Client, model string) *OllamaClient {
	return &OllamaClient{client: client, model: model}
}

func (c *OllamaClient) Provider() string { return "ollama" }

func (c *OllamaClient) GetModel() string { return c.model }

func (c *OllamaClient) Complete(ctx context.Context, messages []Message, opts ...CompletionOption) (*Completion, error) {
	settings := CompletionSettings{
		model:       c.model,
		temperature: 0.7,
		maxTokens:   500,
	}
	for _, opt := range opts {
		opt(&settings)
	}

	messages = InjectContext(messages, settings.ragContext)

	apiMessages := make([]api.Message, len(messages))
	for i, msg := range messages {
		apiMessages[i] = api.Message{Role: msg.Role, Content: msg.Content}
	}

	stream := false
	request := &api.ChatRequest{
		Model:    settings.model,
		Messages: apiMessages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": settings.temperature,
			"num_predict": settings.maxTokens,
		},
	}

	var full strings.Builder
	err := c.client.Chat(ctx, request, func(resp api.ChatResponse) error {
		full.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return nil, &AIServiceError{Provider: "ollama", Message: "chat request failed", Err: err}
	}

	return &Completion{
		Text:     strings.TrimSpace(full.String()),
		Provider: "ollama",
		Model:    settings.model,
	}, nil
}

// CompleteStream satisfies the streaming contract without native incremental
// streaming: it generates the full text first, then deterministically
// re-segments it into whitespace-delimited chunks. This is a fallback, not a
// true token stream; callers must not assume per-token timing.
func (c *OllamaClient) CompleteStream(ctx context.Context, messages []Message, callback func(chunk string) error, opts ...CompletionOption) (*Completion, error) {
	completion, err := c.Complete(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}

	words := strings.Fields(completion.Text)
	for i, word := range words {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		chunk := word
		if i < len(words)-1 {
			chunk += " "
		}
		if err := callback(chunk); err != nil {
			return nil, err
		}
	}

	return completion, nil
}
