package appconfig

import (
	"github.com/SaiNageswarS/go-api-boot/config"
)

type AppConfig struct {
	config.BootConfig `ini:",extends"`

	HTTPPort string `env:"HTTP-PORT" ini:"http_port"`
	MongoURI string `env:"MONGO-URI" ini:"mongo_uri"`

	LLMProvider       string  `ini:"llm_provider"`
	OpenAIModel       string  `ini:"openai_model"`
	OpenAIMaxTokens   int     `ini:"openai_max_tokens"`
	OpenAITemperature float64 `ini:"openai_temperature"`
	OllamaModel       string  `ini:"ollama_model"`

	EmbeddingModel     string `ini:"embedding_model"`
	EmbeddingDimension int    `ini:"embedding_dimension"`

	QdrantEndpoint   string `env:"QDRANT-ENDPOINT" ini:"qdrant_endpoint"`
	QdrantCollection string `ini:"qdrant_collection"`

	SearchLimit        int `ini:"search_limit"`
	MaxMessageLength   int `ini:"max_message_length"`
	MaxSessionMessages int `ini:"max_session_messages"`

	PublicChatEnabled bool `ini:"public_chat_enabled"`
}
