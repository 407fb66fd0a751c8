package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SaiNageswarS/go-api-boot/config"
	"github.com/SaiNageswarS/go-api-boot/dotenv"
	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/go-api-boot/odm"
	"github.com/ollama/ollama/api"
	"github.com/pka-ai/knowledge-core/appconfig"
	"github.com/pka-ai/knowledge-core/embeddings"
	"github.com/pka-ai/knowledge-core/language"
	"github.com/pka-ai/knowledge-core/llm"
	"github.com/pka-ai/knowledge-core/memory"
	"github.com/pka-ai/knowledge-core/rag"
	"github.com/pka-ai/knowledge-core/services"
	"github.com/pka-ai/knowledge-core/vectorstore"
	"go.uber.org/zap"
)

const tenant = "knowledge_core"

func main() {
	dotenv.LoadEnv()

	// load config file
	ccfgg := &appconfig.AppConfig{}
	err := config.LoadConfig("config.ini", ccfgg)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	ollamaClient, err := api.ClientFromEnvironment()
	if err != nil {
		logger.Fatal("Failed to create Ollama client", zap.Error(err))
	}

	embedder := embeddings.NewOllamaEmbedder(ollamaClient, ccfgg.EmbeddingModel, ccfgg.EmbeddingDimension)
	if err := embedder.Initialize(context.Background()); err != nil {
		logger.Fatal("Failed to initialize embedding model", zap.Error(err))
	}

	store, err := vectorstore.NewQdrantStore(ccfgg.QdrantEndpoint, ccfgg.QdrantCollection, embedder)
	if err != nil {
		logger.Fatal("Failed to create vector store", zap.Error(err))
	}

	client := buildCompletionClient(ccfgg, ollamaClient)

	conversations := buildConversationManager(ccfgg)

	pipeline, err := rag.NewPipelineBuilder().
		WithDetector(language.NewDetector()).
		WithStore(store).
		WithCompletionClient(client).
		WithConversationManager(conversations).
		WithSearchLimit(ccfgg.SearchLimit).
		WithMaxMessageLength(ccfgg.MaxMessageLength).
		Build()
	if err != nil {
		logger.Fatal("Failed to build chat pipeline", zap.Error(err))
	}

	mux := http.NewServeMux()
	services.ProvideChatService(pipeline, ccfgg.PublicChatEnabled).Register(mux)

	port := ccfgg.HTTPPort
	if port == "" {
		port = ":8080"
	}
	srv := &http.Server{Addr: port, Handler: mux}

	// catch SIGINT/SIGTERM -> graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Starting server",
			zap.String("port", port),
			zap.String("provider", client.Provider()),
			zap.String("model", client.GetModel()))

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
}

func buildCompletionClient(ccfgg *appconfig.AppConfig, ollamaClient *api.Client) llm.CompletionClient {
	switch ccfgg.LLMProvider {
	case "openai":
		client, err := llm.NewOpenAIClient(ccfgg.OpenAIModel,
			llm.WithFallbackResponses(true),
			llm.WithDefaultTemperature(ccfgg.OpenAITemperature),
			llm.WithDefaultMaxTokens(ccfgg.OpenAIMaxTokens))
		if err != nil {
			logger.Fatal("Failed to create OpenAI client", zap.Error(err))
		}
		return client
	case "ollama":
		return llm.NewOllamaClientWith(ollamaClient, ccfgg.OllamaModel)
	default:
		logger.Fatal("Unknown llm_provider", zap.String("llm_provider", ccfgg.LLMProvider))
		return nil
	}
}

func buildConversationManager(ccfgg *appconfig.AppConfig) *memory.ConversationManager {
	if ccfgg.MongoURI == "" {
		logger.Info("Mongo not configured, conversation history disabled")
		return memory.NewConversationManager(nil, ccfgg.MaxSessionMessages)
	}

	mongoClient := odm.ProvideMongoClient()
	collection := odm.CollectionOf[memory.Conversation](mongoClient, tenant)
	return memory.NewConversationManager(collection, ccfgg.MaxSessionMessages)
}
