package memory

import (
	"time"

	"github.com/pka-ai/knowledge-core/llm"
)

// Conversation represents a conversation session with messages
type Conversation struct {
	ID        string        `bson:"_id"`
	Messages  []llm.Message `bson:"messages"`
	CreatedAt time.Time     `bson:"createdAt,omitempty"`
	UpdatedAt time.Time     `bson:"updatedAt,omitempty"`
}

func (m Conversation) Id() string {
	return m.ID
}

func (m Conversation) CollectionName() string {
	return "conversations"
}

func (m *Conversation) AddUserMessage(content string) {
	m.Messages = append(m.Messages, llm.Message{Role: llm.RoleUser, Content: content})
}

func (m *Conversation) AddAssistantMessage(content string) {
	m.Messages = append(m.Messages, llm.Message{Role: llm.RoleAssistant, Content: content})
}
