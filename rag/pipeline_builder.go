package rag

import (
	"fmt"

	"github.com/pka-ai/knowledge-core/language"
	"github.com/pka-ai/knowledge-core/llm"
	"github.com/pka-ai/knowledge-core/memory"
	"github.com/pka-ai/knowledge-core/vectorstore"
)

const (
	defaultSearchLimit      = 3
	defaultMaxMessageLength = 4000
)

type PipelineBuilder struct {
	config PipelineConfig
}

func NewPipelineBuilder() *PipelineBuilder {
	return &PipelineBuilder{
		config: PipelineConfig{
			SearchLimit:      defaultSearchLimit,
			MaxMessageLength: defaultMaxMessageLength,
		},
	}
}

func (b *PipelineBuilder) WithDetector(detector *language.Detector) *PipelineBuilder {
	b.config.Detector = detector
	return b
}

func (b *PipelineBuilder) WithStore(store vectorstore.Store) *PipelineBuilder {
	b.config.Store = store
	return b
}

func (b *PipelineBuilder) WithCompletionClient(client llm.CompletionClient) *PipelineBuilder {
	b.config.Client = client
	return b
}

func (b *PipelineBuilder) WithConversationManager(manager *memory.ConversationManager) *PipelineBuilder {
	b.config.Conversations = manager
	return b
}

func (b *PipelineBuilder) WithSystemPrompt(prompt string) *PipelineBuilder {
	b.config.SystemPrompt = prompt
	return b
}

func (b *PipelineBuilder) WithSearchLimit(limit int) *PipelineBuilder {
	if limit > 0 {
		b.config.SearchLimit = limit
	}
	return b
}

func (b *PipelineBuilder) WithMaxMessageLength(length int) *PipelineBuilder {
	if length > 0 {
		b.config.MaxMessageLength = length
	}
	return b
}

func (b *PipelineBuilder) Build() (*Pipeline, error) {
	if b.config.Client == nil {
		return nil, fmt.Errorf("completion client is required")
	}
	if b.config.Detector == nil {
		b.config.Detector = language.NewDetector()
	}
	return &Pipeline{config: b.config}, nil
}
