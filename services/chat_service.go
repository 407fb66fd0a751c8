package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/pka-ai/knowledge-core/llm"
	"github.com/pka-ai/knowledge-core/rag"
	"go.uber.org/zap"
)

// ChatService exposes the chat pipeline over HTTP and SSE.
type ChatService struct {
	pipeline          *rag.Pipeline
	publicChatEnabled bool
}

func ProvideChatService(pipeline *rag.Pipeline, publicChatEnabled bool) *ChatService {
	return &ChatService{
		pipeline:          pipeline,
		publicChatEnabled: publicChatEnabled,
	}
}

// Register mounts the service routes on the mux.
func (s *ChatService) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/chat/public", s.HandleChat)
	mux.HandleFunc("POST /api/v1/chat/stream", s.HandleChatStream)
	mux.HandleFunc("GET /api/v1/chat/history", s.HandleHistory)
	mux.HandleFunc("GET /api/v1/stats", s.HandleStats)
	mux.HandleFunc("GET /healthz", s.HandleHealth)
}

func (s *ChatService) HandleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeChatRequest(w, r)
	if !ok {
		return
	}

	response, err := s.pipeline.Answer(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

func (s *ChatService) HandleChatStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeChatRequest(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, fmt.Errorf("streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	reporter := &sseReporter{w: w, flusher: flusher}
	if _, err := s.pipeline.Stream(r.Context(), req, reporter); err != nil {
		// The terminal error event has already been sent on the stream.
		logger.Error("Chat stream failed", zap.Error(err))
	}
}

func (s *ChatService) HandleHistory(w http.ResponseWriter, r *http.Request) {
	conversationID := r.URL.Query().Get("conversation_id")
	if conversationID == "" {
		writeErrorPayload(w, http.StatusBadRequest, "validation", "conversation_id is required")
		return
	}

	messages := s.pipeline.History(r.Context(), conversationID)
	if messages == nil {
		messages = []llm.Message{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"conversation_id": conversationID,
		"messages":        messages,
	})
}

func (s *ChatService) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pipeline.Stats(r.Context()))
}

func (s *ChatService) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *ChatService) decodeChatRequest(w http.ResponseWriter, r *http.Request) (*rag.ChatRequest, bool) {
	if !s.publicChatEnabled {
		writeErrorPayload(w, http.StatusForbidden, "disabled", "public chat is disabled")
		return nil, false
	}

	// use_rag defaults to true on the wire; only an explicit false disables
	// retrieval.
	req := rag.ChatRequest{UseRAG: true}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorPayload(w, http.StatusBadRequest, "validation", "invalid request body")
		return nil, false
	}
	return &req, true
}

func (s *ChatService) writeError(w http.ResponseWriter, err error) {
	var validationErr *rag.ValidationError
	var serviceErr *llm.AIServiceError

	switch {
	case errors.As(err, &validationErr):
		writeErrorPayload(w, http.StatusBadRequest, "validation", validationErr.Error())
	case errors.As(err, &serviceErr):
		logger.Error("AI service error", zap.Error(err))
		writeErrorPayload(w, http.StatusBadGateway, "ai_service", "AI service unavailable")
	default:
		logger.Error("Chat request failed", zap.Error(err))
		writeErrorPayload(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}

func writeErrorPayload(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"kind":    kind,
			"message": message,
		},
	})
}

// sseReporter writes stream events as server-sent event frames.
type sseReporter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (r *sseReporter) Send(event *rag.StreamEvent) error {
	data, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(r.w, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
		return err
	}
	r.flusher.Flush()
	return nil
}
