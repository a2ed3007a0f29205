package llm

import (
	"context"
	"fmt"
	"log"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/cavtal/backend/internal/domain"
)

const (
	// DefaultGroqBaseURL points at Groq's OpenAI-compatible endpoint.
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
	// DefaultChatModel is the completion model used for extraction prompts.
	DefaultChatModel = "llama3-70b-8192"
	// DefaultEmbeddingModel is used to embed retrieval queries.
	DefaultEmbeddingModel = "text-embedding-3-small"
)

// Config holds the settings for the language model client.
type Config struct {
	APIKey            string
	BaseURL           string
	ChatModel         string
	EmbeddingModel    string
	RequestsPerSecond float64
	Burst             int
	Temperature       float32
	Debug             bool
}

// Client wraps an OpenAI-compatible chat/embeddings API behind the
// domain.LanguageModel interface. Calls go through a client-side rate limiter
// and a circuit breaker so a misbehaving upstream fails fast instead of
// stalling every batch worker.
type Client struct {
	api            *openai.Client
	chatModel      string
	embeddingModel string
	temperature    float32
	rateLimiter    *rate.Limiter
	breaker        *gobreaker.CircuitBreaker
	debug          bool
}

// NewClient creates a language model client. An empty BaseURL targets Groq.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultGroqBaseURL
	}
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		// Groq free tier allows 30 requests per minute.
		rps = 0.5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 5
	}

	apiConfig := openai.DefaultConfig(cfg.APIKey)
	apiConfig.BaseURL = baseURL

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "llm",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		api:            openai.NewClientWithConfig(apiConfig),
		chatModel:      chatModel,
		embeddingModel: embeddingModel,
		temperature:    cfg.Temperature,
		rateLimiter:    rate.NewLimiter(rate.Limit(rps), burst),
		breaker:        breaker,
		debug:          cfg.Debug,
	}
}

// Complete sends the prompt as a single user message and returns the raw
// completion text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.chatModel,
			Temperature: c.temperature,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("empty choices in completion response")
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		if c.debug {
			log.Printf("[LLM] Completion failed: %v", err)
		}
		return "", fmt.Errorf("%w: %v", domain.ErrLLMFailure, err)
	}

	return result.(string), nil
}

// Embed returns the embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: openai.EmbeddingModel(c.embeddingModel),
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Data) == 0 {
			return nil, fmt.Errorf("empty data in embeddings response")
		}
		return resp.Data[0].Embedding, nil
	})
	if err != nil {
		if c.debug {
			log.Printf("[LLM] Embedding failed: %v", err)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrLLMFailure, err)
	}

	return result.([]float32), nil
}
