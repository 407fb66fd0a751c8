package llm

import (
	"context"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a single turn of a conversation.
type Message struct {
	Role    string `json:"role" bson:"role"`       // "user", "assistant", "system"
	Content string `json:"content" bson:"content"` // the message content
}

// TokenUsage carries token accounting for a completion. Figures are exact when
// the provider reports them and estimated otherwise.
type TokenUsage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
}

// Completion is the result of a completion call. Provider always names the
// backend that actually served the text, so a degraded fallback answer is
// never mistaken for a model response.
type Completion struct {
	Text     string      `json:"text"`
	Provider string      `json:"provider"`
	Model    string      `json:"model"`
	Fallback bool        `json:"fallback"`
	Usage    *TokenUsage `json:"usage,omitempty"`
}

// CompletionClient is the capability contract shared by the hosted and the
// local completion variants. The variant is selected once at configuration
// time; call sites never branch on it.
type CompletionClient interface {
	Complete(
		ctx context.Context,
		messages []Message,
		opts ...CompletionOption,
	) (*Completion, error)

	// CompleteStream delivers the response incrementally through callback.
	// Returning an error from callback stops the stream and releases the
	// underlying connection.
	CompleteStream(
		ctx context.Context,
		messages []Message,
		callback func(chunk string) error,
		opts ...CompletionOption,
	) (*Completion, error)

	Provider() string

	GetModel() string
}

type CompletionSettings struct {
	model       string  // model name
	temperature float64 // randomness (0.0 to 2.0)
	maxTokens   int     // maximum tokens to generate
	ragContext  string  // retrieved knowledge-base context, woven into the last user turn
}

func (s *CompletionSettings) Model() string        { return s.model }
func (s *CompletionSettings) Temperature() float64 { return s.temperature }
func (s *CompletionSettings) MaxTokens() int       { return s.maxTokens }
func (s *CompletionSettings) RAGContext() string   { return s.ragContext }

type CompletionOption func(*CompletionSettings)

// Common options for all completion providers
func WithTemperature(temp float64) CompletionOption {
	return func(s *CompletionSettings) { s.temperature = temp }
}

func WithMaxTokens(tokens int) CompletionOption {
	return func(s *CompletionSettings) { s.maxTokens = tokens }
}

func WithRAGContext(context string) CompletionOption {
	return func(s *CompletionSettings) { s.ragContext = context }
}
