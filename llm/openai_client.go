package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/weaviate/tiktoken-go"
	"go.uber.org/zap"
)

// Cost per 1K tokens in USD. Unknown models fall back to defaultCostPer1K
// rather than failing.
var modelCostPer1K = map[string]float64{
	"gpt-3.5-turbo":     0.0015,
	"gpt-3.5-turbo-16k": 0.003,
	"gpt-4":             0.03,
	"gpt-4-32k":         0.06,
	"gpt-4-turbo":       0.01,
	"gpt-4o":            0.005,
	"gpt-4o-mini":       0.00015,
}

const defaultCostPer1K = 0.0015

// OpenAIClient is the hosted completion variant. It speaks the OpenAI
// chat-completions wire format and supports true incremental streaming.
type OpenAIClient struct {
	apiKey      string
	httpClient  *http.Client
	url         string
	model       string
	encoder     *tiktoken.Tiktoken
	fallback    bool
	temperature float64
	maxTokens   int
}

type OpenAIOption func(*OpenAIClient)

// WithBaseURL overrides the chat-completions endpoint, e.g. for an
// OpenAI-compatible proxy or a test server.
func WithBaseURL(url string) OpenAIOption {
	return func(c *OpenAIClient) { c.url = strings.TrimRight(url, "/") + "/v1/chat/completions" }
}

// WithFallbackResponses enables the deterministic keyword-overlap fallback
// when the provider is unreachable. Off by default; the fallback is always
// signaled via Completion.Fallback.
func WithFallbackResponses(enabled bool) OpenAIOption {
	return func(c *OpenAIClient) { c.fallback = enabled }
}

// WithDefaultTemperature sets the temperature used when a completion call
// doesn't specify one.
func WithDefaultTemperature(temperature float64) OpenAIOption {
	return func(c *OpenAIClient) {
		if temperature > 0 {
			c.temperature = temperature
		}
	}
}

// WithDefaultMaxTokens sets the token cap used when a completion call
// doesn't specify one.
func WithDefaultMaxTokens(maxTokens int) OpenAIOption {
	return func(c *OpenAIClient) {
		if maxTokens > 0 {
			c.maxTokens = maxTokens
		}
	}
}

func NewOpenAIClient(model string, opts ...OpenAIOption) (*OpenAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
	}

	// Connection attempts are bounded; a timeout translates to the fallback
	// path, never an unbounded hang.
	c := &OpenAIClient{
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		url:         "https://api.openai.com/v1/chat/completions",
		model:       model,
		temperature: 0.7,
		maxTokens:   500,
	}

	// cl100k_base covers the gpt-3.5/gpt-4 family. Without it token counts
	// degrade to a word-count estimate.
	if enc, err := tiktoken.GetEncoding("cl100k_base"); err == nil {
		c.encoder = enc
	} else {
		logger.Error("Failed to load tokenizer, using word-count estimates", zap.Error(err))
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *OpenAIClient) Provider() string { return "openai" }

func (c *OpenAIClient) GetModel() string { return c.model }

func (c *OpenAIClient) Complete(ctx context.Context, messages []Message, opts ...CompletionOption) (*Completion, error) {
	settings := CompletionSettings{
		model:       c.model,
		temperature: c.temperature,
		maxTokens:   c.maxTokens,
	}
	for _, opt := range opts {
		opt(&settings)
	}

	// The fallback overlaps keywords between the raw question and the
	// context, so capture the prompt before injection rewrites it.
	prompt := lastUserContent(messages)
	messages = InjectContext(messages, settings.ragContext)

	request := openAIRequest{
		Model:       settings.model,
		Messages:    messages,
		Temperature: settings.temperature,
		MaxTokens:   settings.maxTokens,
	}

	body, err := c.post(ctx, request)
	if err != nil {
		if c.fallback {
			logger.Error("OpenAI unreachable, serving fallback response", zap.Error(err))
			return c.fallbackCompletion(prompt, settings.ragContext), nil
		}
		return nil, &AIServiceError{Provider: "openai", Message: "completion request failed", Err: err}
	}

	var response openAIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, &AIServiceError{Provider: "openai", Message: "error unmarshaling response", Err: err}
	}

	if len(response.Choices) == 0 {
		return nil, &AIServiceError{Provider: "openai", Message: "no choices in response"}
	}

	usage := &TokenUsage{
		PromptTokens:     response.Usage.PromptTokens,
		CompletionTokens: response.Usage.CompletionTokens,
		TotalTokens:      response.Usage.TotalTokens,
	}
	usage.EstimatedCostUSD = EstimateCost(settings.model, usage.TotalTokens)

	logger.Info("Chat completion successful",
		zap.String("model", settings.model),
		zap.Int("total_tokens", usage.TotalTokens),
		zap.Float64("estimated_cost_usd", usage.EstimatedCostUSD))

	return &Completion{
		Text:     response.Choices[0].Message.Content,
		Provider: "openai",
		Model:    settings.model,
		Usage:    usage,
	}, nil
}

func (c *OpenAIClient) CompleteStream(ctx context.Context, messages []Message, callback func(chunk string) error, opts ...CompletionOption) (*Completion, error) {
	settings := CompletionSettings{
		model:       c.model,
		temperature: c.temperature,
		maxTokens:   c.maxTokens,
	}
	for _, opt := range opts {
		opt(&settings)
	}

	// The fallback overlaps keywords between the raw question and the
	// context, so capture the prompt before injection rewrites it.
	prompt := lastUserContent(messages)
	messages = InjectContext(messages, settings.ragContext)

	request := openAIRequest{
		Model:       settings.model,
		Messages:    messages,
		Temperature: settings.temperature,
		MaxTokens:   settings.maxTokens,
		Stream:      true,
	}

	resp, err := c.send(ctx, request)
	if err != nil {
		if c.fallback {
			logger.Error("OpenAI unreachable, streaming fallback response", zap.Error(err))
			return c.streamFallback(prompt, settings.ragContext, callback)
		}
		return nil, &AIServiceError{Provider: "openai", Message: "streaming request failed", Err: err}
	}
	defer resp.Body.Close()

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}

		var chunk openAIStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return nil, &AIServiceError{Provider: "openai", Message: "error parsing stream chunk", Err: err}
		}

		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}

		full.WriteString(chunk.Choices[0].Delta.Content)
		if err := callback(chunk.Choices[0].Delta.Content); err != nil {
			// Consumer stopped; the deferred body close releases the stream.
			return nil, err
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, &AIServiceError{Provider: "openai", Message: "error reading stream", Err: err}
	}

	// The streaming API omits usage; estimate from the tokenizer.
	usage := &TokenUsage{
		PromptTokens:     c.CountTokens(messages),
		CompletionTokens: c.countText(full.String()),
	}
	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	usage.EstimatedCostUSD = EstimateCost(settings.model, usage.TotalTokens)

	return &Completion{
		Text:     full.String(),
		Provider: "openai",
		Model:    settings.model,
		Usage:    usage,
	}, nil
}

// CountTokens estimates the token footprint of a message list using the
// cl100k_base tokenizer, falling back to round(word_count * 1.3) when the
// tokenizer is unavailable.
func (c *OpenAIClient) CountTokens(messages []Message) int {
	if c.encoder == nil {
		words := 0
		for _, msg := range messages {
			words += len(strings.Fields(msg.Content))
		}
		return int(math.Round(float64(words) * 1.3))
	}

	// Every message follows <|start|>{role}\n{content}<|end|>\n, and every
	// reply is primed with <|start|>assistant.
	tokens := 0
	for _, msg := range messages {
		tokens += 4
		tokens += len(c.encoder.Encode(msg.Role, nil, nil))
		tokens += len(c.encoder.Encode(msg.Content, nil, nil))
	}
	return tokens + 2
}

func (c *OpenAIClient) countText(text string) int {
	if c.encoder == nil {
		return int(math.Round(float64(len(strings.Fields(text))) * 1.3))
	}
	return len(c.encoder.Encode(text, nil, nil))
}

// EstimateCost is a pure function of (model, totalTokens) over a static
// per-model price table.
func EstimateCost(model string, totalTokens int) float64 {
	costPer1K, ok := modelCostPer1K[model]
	if !ok {
		costPer1K = defaultCostPer1K
	}
	return float64(totalTokens) / 1000 * costPer1K
}

func (c *OpenAIClient) fallbackCompletion(prompt, ragContext string) *Completion {
	return &Completion{
		Text:     FallbackResponse(prompt, ragContext),
		Provider: "fallback",
		Model:    c.model,
		Fallback: true,
	}
}

func (c *OpenAIClient) streamFallback(prompt, ragContext string, callback func(chunk string) error) (*Completion, error) {
	completion := c.fallbackCompletion(prompt, ragContext)

	words := strings.Fields(completion.Text)
	for i, word := range words {
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

func (c *OpenAIClient) send(ctx context.Context, request openAIRequest) (*http.Response, error) {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return resp, nil
}

func (c *OpenAIClient) post(ctx context.Context, request openAIRequest) ([]byte, error) {
	resp, err := c.send(ctx, request)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	return body, nil
}

// OpenAI API types
type openAIRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

type openAIResponse struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []openAIChoice `json:"choices"`
	Usage   openAIUsage    `json:"usage"`
}

type openAIChoice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type openAIStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}
