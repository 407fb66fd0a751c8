package rag

import "github.com/pka-ai/knowledge-core/llm"

// Stream event types, emitted in order: language first, sources when
// retrieval ran, any number of message chunks, then exactly one done or
// error terminal.
const (
	EventLanguage = "language"
	EventSources  = "sources"
	EventMessage  = "message"
	EventDone     = "done"
	EventError    = "error"
)

// StreamEvent is a single progress update during a streamed chat turn.
// Payload marshals directly into the transport frame.
type StreamEvent struct {
	Type    string
	Payload any
}

// StreamReporter receives progress events during streaming execution.
// A Send error aborts the stream.
type StreamReporter interface {
	Send(event *StreamEvent) error
}

// NoOpReporter implements StreamReporter with no-op operations
type NoOpReporter struct{}

func (r *NoOpReporter) Send(event *StreamEvent) error {
	return nil
}

type LanguagePayload struct {
	DetectedLanguage string `json:"detected_language"`
}

type SourcesPayload struct {
	Sources []Source `json:"sources"`
}

type MessagePayload struct {
	Content string `json:"content"`
}

type DonePayload struct {
	ConversationID string          `json:"conversation_id"`
	Provider       string          `json:"provider"`
	Fallback       bool            `json:"fallback,omitempty"`
	TokenUsage     *llm.TokenUsage `json:"token_usage,omitempty"`
}

type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Helper functions for creating stream events
func NewLanguageEvent(detectedLanguage string) *StreamEvent {
	return &StreamEvent{
		Type:    EventLanguage,
		Payload: LanguagePayload{DetectedLanguage: detectedLanguage},
	}
}

func NewSourcesEvent(sources []Source) *StreamEvent {
	return &StreamEvent{
		Type:    EventSources,
		Payload: SourcesPayload{Sources: sources},
	}
}

func NewMessageEvent(content string) *StreamEvent {
	return &StreamEvent{
		Type:    EventMessage,
		Payload: MessagePayload{Content: content},
	}
}

func NewDoneEvent(response *ChatResponse) *StreamEvent {
	return &StreamEvent{
		Type: EventDone,
		Payload: DonePayload{
			ConversationID: response.ConversationID,
			Provider:       response.Provider,
			Fallback:       response.Fallback,
			TokenUsage:     response.TokenUsage,
		},
	}
}

func NewErrorEvent(kind, message string) *StreamEvent {
	return &StreamEvent{
		Type:    EventError,
		Payload: ErrorPayload{Kind: kind, Message: message},
	}
}
