package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/go-collection-boot/linq"
	"github.com/google/uuid"
	"github.com/pka-ai/knowledge-core/language"
	"github.com/pka-ai/knowledge-core/llm"
	"github.com/pka-ai/knowledge-core/memory"
	"github.com/pka-ai/knowledge-core/vectorstore"
	"go.uber.org/zap"
)

const sourcePreviewLength = 200

// PipelineConfig holds the collaborators and limits for the chat pipeline
type PipelineConfig struct {
	Detector         *language.Detector
	Store            vectorstore.Store
	Client           llm.CompletionClient
	Conversations    *memory.ConversationManager
	SystemPrompt     string
	SearchLimit      int
	MaxMessageLength int
}

// Pipeline orchestrates a chat turn: language detection, retrieval,
// prompt assembly, completion and conversation persistence.
type Pipeline struct {
	config PipelineConfig
}

// Answer executes a full chat turn and returns the completed response.
func (p *Pipeline) Answer(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	message, err := p.validate(req)
	if err != nil {
		return nil, err
	}

	lang := p.resolveLanguage(req, message)
	contextText, sources := p.retrieve(ctx, message, req.UseRAG)

	conversationID, conversation, messages := p.assembleMessages(ctx, req, message, lang)

	completion, err := p.config.Client.Complete(ctx, messages, p.completionOpts(req, contextText)...)
	if err != nil {
		return nil, err
	}

	p.saveTurn(ctx, conversation, message, completion.Text)

	return &ChatResponse{
		Response:         completion.Text,
		ConversationID:   conversationID,
		DetectedLanguage: lang,
		Provider:         completion.Provider,
		Fallback:         completion.Fallback,
		Sources:          sources,
		TokenUsage:       completion.Usage,
	}, nil
}

// Stream executes a chat turn while reporting progress events. Events are
// emitted in order: language, sources when retrieval produced any, message
// chunks, then exactly one done or error terminal.
func (p *Pipeline) Stream(ctx context.Context, req *ChatRequest, reporter StreamReporter) (*ChatResponse, error) {
	message, err := p.validate(req)
	if err != nil {
		reporter.Send(NewErrorEvent("validation", err.Error()))
		return nil, err
	}

	lang := p.resolveLanguage(req, message)
	if err := reporter.Send(NewLanguageEvent(lang)); err != nil {
		return nil, fmt.Errorf("stream aborted: %w", err)
	}

	contextText, sources := p.retrieve(ctx, message, req.UseRAG)
	if len(sources) > 0 {
		if err := reporter.Send(NewSourcesEvent(sources)); err != nil {
			return nil, fmt.Errorf("stream aborted: %w", err)
		}
	}

	conversationID, conversation, messages := p.assembleMessages(ctx, req, message, lang)

	completion, err := p.config.Client.CompleteStream(ctx, messages, func(chunk string) error {
		return reporter.Send(NewMessageEvent(chunk))
	}, p.completionOpts(req, contextText)...)
	if err != nil {
		reporter.Send(NewErrorEvent(errorKind(err), err.Error()))
		return nil, err
	}

	p.saveTurn(ctx, conversation, message, completion.Text)

	response := &ChatResponse{
		Response:         completion.Text,
		ConversationID:   conversationID,
		DetectedLanguage: lang,
		Provider:         completion.Provider,
		Fallback:         completion.Fallback,
		Sources:          sources,
		TokenUsage:       completion.Usage,
	}

	if err := reporter.Send(NewDoneEvent(response)); err != nil {
		return nil, fmt.Errorf("stream aborted: %w", err)
	}
	return response, nil
}

// History returns the stored messages for a conversation.
func (p *Pipeline) History(ctx context.Context, conversationID string) []llm.Message {
	if p.config.Conversations == nil {
		return nil
	}
	return p.config.Conversations.LoadSession(ctx, conversationID).Messages
}

// Stats reports the state of the retrieval store.
func (p *Pipeline) Stats(ctx context.Context) vectorstore.Stats {
	if p.config.Store == nil {
		return vectorstore.Stats{}
	}
	return p.config.Store.Stats(ctx)
}

func (p *Pipeline) validate(req *ChatRequest) (string, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return "", &ValidationError{Field: "message", Message: "message cannot be empty"}
	}
	if utf8.RuneCountInString(message) > p.config.MaxMessageLength {
		return "", &ValidationError{
			Field:   "message",
			Message: fmt.Sprintf("message exceeds maximum length of %d characters", p.config.MaxMessageLength),
		}
	}
	if req.Temperature < 0 || req.Temperature > 2 {
		return "", &ValidationError{Field: "temperature", Message: "temperature must be between 0 and 2"}
	}
	return message, nil
}

// resolveLanguage honors an explicit supported language override before
// falling back to detection.
func (p *Pipeline) resolveLanguage(req *ChatRequest, message string) string {
	if req.Language != "" {
		lang := strings.ToLower(req.Language)
		if language.IsKnown(lang) {
			return lang
		}
		logger.Info("Ignoring unsupported language override", zap.String("language", req.Language))
	}
	return p.config.Detector.Detect(message)
}

// retrieve searches the knowledge base and renders the context block.
// Retrieval is best-effort: failures are logged and the turn continues
// without context.
func (p *Pipeline) retrieve(ctx context.Context, message string, useRAG bool) (string, []Source) {
	if !useRAG || p.config.Store == nil {
		return "", nil
	}

	results, err := p.config.Store.Search(ctx, message, p.config.SearchLimit, nil)
	if err != nil {
		logger.Error("Knowledge base search failed, continuing without context", zap.Error(err))
		return "", nil
	}
	if len(results) == 0 {
		return "", nil
	}

	blocks := make([]string, len(results))
	for i, result := range results {
		blocks[i] = fmt.Sprintf("Document %d:\n%s", i+1, result.Document)
	}

	sources, err := linq.Pipe2(
		linq.FromSlice(ctx, results),

		linq.Select(func(result vectorstore.SearchResult) Source {
			return Source{
				Content:    truncateContent(result.Document, sourcePreviewLength),
				Similarity: result.Similarity,
				Metadata:   result.Metadata,
			}
		}),

		linq.ToSlice[Source](),
	)
	if err != nil {
		logger.Error("Failed to build sources, continuing without context", zap.Error(err))
		return "", nil
	}

	return strings.Join(blocks, "\n\n"), sources
}

// assembleMessages loads conversation history, appends the new user turn
// and prepends the language-aware system prompt.
func (p *Pipeline) assembleMessages(ctx context.Context, req *ChatRequest, message, lang string) (string, *memory.Conversation, []llm.Message) {
	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	var conversation *memory.Conversation
	if p.config.Conversations != nil {
		conversation = p.config.Conversations.LoadSession(ctx, conversationID)
	} else {
		conversation = &memory.Conversation{ID: conversationID}
	}

	messages := make([]llm.Message, 0, len(conversation.Messages)+2)
	messages = append(messages, conversation.Messages...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: message})

	messages = p.config.Detector.AddLanguageContext(messages, lang, p.config.SystemPrompt)
	return conversationID, conversation, messages
}

func (p *Pipeline) completionOpts(req *ChatRequest, contextText string) []llm.CompletionOption {
	var opts []llm.CompletionOption
	if contextText != "" {
		opts = append(opts, llm.WithRAGContext(contextText))
	}
	if req.Temperature > 0 {
		opts = append(opts, llm.WithTemperature(req.Temperature))
	}
	return opts
}

func (p *Pipeline) saveTurn(ctx context.Context, conversation *memory.Conversation, userMessage, assistantMessage string) {
	if p.config.Conversations == nil {
		return
	}

	conversation.AddUserMessage(userMessage)
	conversation.AddAssistantMessage(assistantMessage)
	if err := p.config.Conversations.SaveSession(ctx, conversation); err != nil {
		logger.Error("Failed to persist conversation", zap.String("conversation_id", conversation.ID), zap.Error(err))
	}
}

func truncateContent(content string, limit int) string {
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit])
}

func errorKind(err error) string {
	var validationErr *ValidationError
	var serviceErr *llm.AIServiceError
	switch {
	case errors.As(err, &validationErr):
		return "validation"
	case errors.As(err, &serviceErr):
		return "ai_service"
	default:
		return "internal"
	}
}
