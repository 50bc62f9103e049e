package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/spigell/job-board/internal/logger"
)

const (
	Provider = "openai"

	defaultModel          = "gpt-3.5-turbo"
	defaultEmbeddingModel = "text-embedding-3-large"
)

type chatModel interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

type embeddingModel interface {
	CreateEmbedding(ctx context.Context, inputTexts []string) ([][]float32, error)
}

// Config holds the OpenAI connection settings.
type Config struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	BaseURL        string
}

// Client serves both as a Generator and as an Embedder.
type Client struct {
	chat           chatModel
	embeddings     embeddingModel
	model          string
	embeddingModel string
	logger         *zap.Logger
}

func New(cfg Config, log *zap.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	embeddingModel := strings.TrimSpace(cfg.EmbeddingModel)
	if embeddingModel == "" {
		embeddingModel = defaultEmbeddingModel
	}

	opts := []lcopenai.Option{
		lcopenai.WithToken(apiKey),
		lcopenai.WithModel(model),
		lcopenai.WithEmbeddingModel(embeddingModel),
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		opts = append(opts, lcopenai.WithBaseURL(baseURL))
	}

	llm, err := lcopenai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}

	return &Client{
		chat:           llm,
		embeddings:     llm,
		model:          model,
		embeddingModel: embeddingModel,
		logger:         logger.WithCommonFields(log, Provider, model),
	}, nil
}

func (c *Client) GenerateContent(ctx context.Context, system, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.New("message must not be empty")
	}

	messages := make([]llms.MessageContent, 0, 2)
	if system = strings.TrimSpace(system); system != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, system))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, message))

	resp, err := c.chat.GenerateContent(ctx, messages, llms.WithTemperature(0))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", errors.New("openai api returned no choices")
	}

	output := strings.TrimSpace(resp.Choices[0].Content)
	if output == "" {
		return "", errors.New("openai api returned empty response")
	}

	return output, nil
}

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text to embed must not be empty")
	}

	vectors, err := c.embeddings.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}

	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, errors.New("openai api returned no embedding")
	}

	c.logger.Debug("embedded text", zap.Int("dimensions", len(vectors[0])), zap.Int("text_length", len(text)))

	return vectors[0], nil
}

// Model returns the generation model.
func (c *Client) Model() string {
	return c.model
}

// EmbeddingModel returns the embedding model.
func (c *Client) EmbeddingModel() string {
	return c.embeddingModel
}

// Embedder exposes the client as an ai.Embedder reporting the embedding model.
func (c *Client) Embedder() *Embedder {
	return &Embedder{client: c}
}

// Embedder adapts Client to report the embedding model name.
type Embedder struct {
	client *Client
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.client.Embed(ctx, text)
}

func (e *Embedder) Model() string {
	return e.client.embeddingModel
}
