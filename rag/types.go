package rag

import (
	"fmt"

	"github.com/pka-ai/knowledge-core/llm"
)

// ChatRequest is a single chat turn submitted to the pipeline. On the HTTP
// surface UseRAG defaults to true when the field is omitted.
type ChatRequest struct {
	Message        string  `json:"message"`
	ConversationID string  `json:"conversation_id,omitempty"`
	Language       string  `json:"language,omitempty"`
	UseRAG         bool    `json:"use_rag"`
	Temperature    float64 `json:"temperature,omitempty"`
}

// Source is a retrieved document surfaced alongside the answer. Content is
// truncated for display; the full text stays in the vector store.
type Source struct {
	Content    string            `json:"content"`
	Similarity float64           `json:"similarity"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// ChatResponse is the completed result of a chat turn.
type ChatResponse struct {
	Response         string          `json:"response"`
	ConversationID   string          `json:"conversation_id"`
	DetectedLanguage string          `json:"detected_language"`
	Provider         string          `json:"provider"`
	Fallback         bool            `json:"fallback,omitempty"`
	Sources          []Source        `json:"sources,omitempty"`
	TokenUsage       *llm.TokenUsage `json:"token_usage,omitempty"`
}

// ValidationError reports a rejected request before any model call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
