package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ErrEmptyResponse is returned when the model answers with no choices or no content
var ErrEmptyResponse = errors.New("llm: empty response")

// OpenAIClient wraps the OpenAI API client
type OpenAIClient struct {
	client      *openai.Client
	provider    string
	model       string
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

// Config for OpenAI client
type Config struct {
	APIKey      string
	BaseURL     string  // optional, overrides api.openai.com
	Model       string  // default: gpt-4o
	Temperature float32 // default: 0.7
	MaxTokens   int     // default: 4000
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(cfg Config, logger *zap.Logger) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	return newCompatClient("openai", config, cfg.Model, cfg.Temperature, cfg.MaxTokens, logger)
}

func newCompatClient(provider string, config openai.ClientConfig, model string, temperature float32, maxTokens int, logger *zap.Logger) *OpenAIClient {
	if temperature == 0 {
		temperature = 0.7
	}
	if maxTokens == 0 {
		maxTokens = 4000
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(config),
		provider:    provider,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		logger:      logger.With(zap.String("provider", provider), zap.String("model", model)),
	}
}

// Model returns the model name requests are sent to
func (c *OpenAIClient) Model() string {
	return c.model
}

// Chat sends a chat completion request
func (c *OpenAIClient) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	if req.JSONMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	duration := time.Since(start)

	if err != nil {
		c.logger.Warn("chat completion failed", zap.Error(err), zap.Duration("duration", duration))
		return nil, fmt.Errorf("%s chat failed: %w", c.provider, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s chat: %w", c.provider, ErrEmptyResponse)
	}

	c.logger.Debug("chat completion done",
		zap.Int("tokens", resp.Usage.TotalTokens),
		zap.Duration("duration", duration))

	return &ChatResponse{
		Message:      resp.Choices[0].Message.Content,
		TokensUsed:   resp.Usage.TotalTokens,
		FinishReason: string(resp.Choices[0].FinishReason),
	}, nil
}

// Complete sends a simple completion request (helper for single prompts)
func (c *OpenAIClient) Complete(ctx context.Context, prompt string, systemPrompt ...string) (string, error) {
	resp, err := c.Chat(ctx, ChatRequest{Messages: buildMessages(prompt, systemPrompt)})
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

// CompleteJSON sends a completion request in JSON-object mode
func (c *OpenAIClient) CompleteJSON(ctx context.Context, prompt string, systemPrompt ...string) (string, error) {
	resp, err := c.Chat(ctx, ChatRequest{
		Messages: buildMessages(prompt, systemPrompt),
		JSONMode: true,
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Message) == "" {
		return "", fmt.Errorf("%s chat: %w", c.provider, ErrEmptyResponse)
	}
	return resp.Message, nil
}

// OllamaClient talks to a local Ollama server through its OpenAI-compatible API
type OllamaClient struct {
	*OpenAIClient
}

// OllamaConfig for Ollama client
type OllamaConfig struct {
	BaseURL     string  // default: http://localhost:11434/v1
	Model       string  // default: llama3.1
	Temperature float32 // default: 0.7
	MaxTokens   int     // default: 4000
}

// NewOllamaClient creates a new Ollama client
func NewOllamaClient(cfg OllamaConfig, logger *zap.Logger) *OllamaClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3.1"
	}

	config := openai.DefaultConfig("ollama") // API key not needed for Ollama
	config.BaseURL = cfg.BaseURL

	return &OllamaClient{
		OpenAIClient: newCompatClient("ollama", config, cfg.Model, cfg.Temperature, cfg.MaxTokens, logger),
	}
}
