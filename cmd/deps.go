package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/spigell/job-board/internal/ai"
	"github.com/spigell/job-board/internal/ai/gemini"
	"github.com/spigell/job-board/internal/ai/openai"
	"github.com/spigell/job-board/internal/jobs"
	"github.com/spigell/job-board/internal/renderer"
	"github.com/spigell/job-board/internal/secrets"
	"github.com/spigell/job-board/internal/vectorstore"
)

// lock takes the exclusive run lock next to the database.
func lock(database string) (*flock.Flock, error) {
	path := database + ".lock"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	fileLock := flock.New(path)

	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("taking lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("another %s process holds %s", app, path)
	}

	return fileLock, nil
}

// aiProvider bundles a generator and an embedder from one backend.
type aiProvider struct {
	name      string
	generator ai.Generator
	embedder  ai.Embedder
}

func newAIProvider(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (*aiProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: ai section is required", jobs.ErrConfiguration)
	}

	switch provider := strings.TrimSpace(strings.ToLower(cfg.Provider)); provider {
	case "", gemini.Provider:
		return newGeminiProvider(ctx, cfg.Gemini, logger)
	case openai.Provider:
		return newOpenAIProvider(cfg.OpenAI, logger)
	default:
		return nil, fmt.Errorf("%w: unsupported ai provider: %s", jobs.ErrConfiguration, cfg.Provider)
	}
}

func newGeminiProvider(ctx context.Context, cfg *GeminiConfig, logger *zap.Logger) (*aiProvider, error) {
	if cfg == nil {
		cfg = &GeminiConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:           "gemini api key",
		File:           cfg.APIKeyFile,
		KeyringAccount: cfg.KeyringAccount,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w (set ai.gemini.api-key-file, GEMINI_API_KEY_FILE or ai.gemini.keyring-account)", jobs.ErrConfiguration, err)
	}

	client, err := gemini.NewClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	generator, err := gemini.NewGenerator(client, cfg.Model, cfg.MaxRetries, logger.With(zap.Int("ai_retry_attempts", cfg.MaxRetries)))
	if err != nil {
		return nil, err
	}

	embedder, err := gemini.NewEmbedder(client, cfg.EmbeddingModel, logger)
	if err != nil {
		return nil, err
	}

	return &aiProvider{name: gemini.Provider, generator: generator, embedder: embedder}, nil
}

func newOpenAIProvider(cfg *OpenAIConfig, logger *zap.Logger) (*aiProvider, error) {
	if cfg == nil {
		cfg = &OpenAIConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:           "openai api key",
		File:           cfg.APIKeyFile,
		KeyringAccount: cfg.KeyringAccount,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w (set ai.openai.api-key-file, OPENAI_API_KEY_FILE or ai.openai.keyring-account)", jobs.ErrConfiguration, err)
	}

	client, err := openai.New(openai.Config{
		APIKey:         apiKey,
		Model:          cfg.Model,
		EmbeddingModel: cfg.EmbeddingModel,
		BaseURL:        cfg.BaseURL,
	}, logger)
	if err != nil {
		return nil, err
	}

	return &aiProvider{name: openai.Provider, generator: client, embedder: client.Embedder()}, nil
}

// newFetcher builds the static strategy followed by the browser, unless the
// browser is disabled.
func newFetcher(config *Config, noBrowser bool, logger *zap.Logger) *renderer.Chain {
	fetch := config.Fetch
	if fetch == nil {
		fetch = &FetchConfig{}
	}

	fetchers := []renderer.Fetcher{
		renderer.NewStatic(renderer.StaticConfig{
			UserAgent: config.UserAgent,
			Timeout:   fetch.Timeout,
			MaxTries:  fetch.Retries,
			Rate:      fetch.Rate,
		}, logger),
	}

	if fetch.Browser != nil && fetch.Browser.Enabled && !noBrowser {
		fetchers = append(fetchers, renderer.NewBrowser(renderer.BrowserConfig{
			Timeout:  fetch.Browser.Timeout,
			ExecPath: fetch.Browser.ExecPath,
		}, logger))
	}

	return renderer.NewChain(logger, fetchers...)
}

func newVectorStore(ctx context.Context, cfg *VectorConfig) (vectorstore.Store, error) {
	if cfg == nil {
		cfg = &VectorConfig{}
	}

	switch strings.TrimSpace(strings.ToLower(cfg.Backend)) {
	case "", "sqlite":
		path := cfg.Path
		if path == "" {
			path = "data/vectors.db"
		}
		return vectorstore.NewSQLite(path)
	case "pgvector", "postgres":
		if strings.TrimSpace(cfg.DSN) == "" {
			return nil, fmt.Errorf("%w: vector.dsn (or JOB_BOARD_PG_DSN) is required for the pgvector backend", jobs.ErrConfiguration)
		}
		return vectorstore.NewPostgres(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: unsupported vector backend: %s", jobs.ErrConfiguration, cfg.Backend)
	}
}

// readOptionalFile returns the trimmed content of path. An unset or missing
// file yields an empty string.
func readOptionalFile(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(data)), nil
}

func maxLogLength(cfg *AIConfig) int {
	if cfg == nil {
		return 0
	}
	return cfg.MaxLogLength
}
