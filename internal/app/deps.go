package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/openai/openai-go/v3"
	"github.com/spf13/afero"

	"doc-clerk/internal/cache"
	"doc-clerk/internal/config"
	"doc-clerk/internal/llm"
	"doc-clerk/internal/logger"
)

// Deps bundles common runtime dependencies for commands.
type Deps struct {
	Config config.Config
	Log    *slog.Logger
	LLM    llm.Client
	Cache  cache.Cache
	FS     afero.Fs
}

// Close releases resources held by the dependencies.
func (d Deps) Close() error {
	if d.Cache == nil {
		return nil
	}
	return d.Cache.Close()
}

// LoadEnv reads a .env file from the working directory when one exists.
func LoadEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}
	return nil
}

// LoadConfig loads .env and the environment, validates the result and
// builds the logger.
func LoadConfig() (config.Config, *slog.Logger, error) {
	if err := LoadEnv(); err != nil {
		return config.Config{}, nil, err
	}
	cfg := config.Load()
	log := logger.NewWithWriter(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		return cfg, log, err
	}
	return cfg, log, nil
}

// Build loads env, config, and shared components.
func Build(ctx context.Context) (Deps, error) {
	cfg, log, err := LoadConfig()
	if err != nil {
		return Deps{}, err
	}
	return BuildWith(ctx, cfg, log)
}

// BuildWith assembles dependencies from an already loaded configuration.
func BuildWith(ctx context.Context, cfg config.Config, log *slog.Logger) (Deps, error) {
	llmClient, err := NewLLM(ctx, cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	return Deps{
		Config: cfg,
		Log:    log,
		LLM:    llmClient,
		Cache:  NewCache(cfg, log),
		FS:     afero.NewOsFs(),
	}, nil
}

// NewLLM builds the client of the configured provider.
func NewLLM(ctx context.Context, cfg config.Config, log *slog.Logger) (llm.Client, error) {
	key, err := cfg.APIKey()
	if err != nil {
		return nil, err
	}
	switch cfg.LLMProvider {
	case "gemini":
		client, err := llm.NewGeminiClient(ctx, llm.GeminiConfig{
			APIKey:  key,
			Model:   cfg.GeminiModel,
			Timeout: cfg.LLMTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
		}
		log.Info("using Gemini LLM client", "model", client.Model())
		return client, nil
	case "openai":
		client, err := llm.NewOpenAIClient(key, openai.ChatModel(cfg.OpenAIModel), cfg.LLMTimeout)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
		}
		log.Info("using OpenAI LLM client", "model", client.Model())
		return client, nil
	default:
		return nil, fmt.Errorf("invalid LLM_PROVIDER: %s (valid options: gemini, openai)", cfg.LLMProvider)
	}
}

// NewCache builds the summary cache. An unreachable Redis falls back to
// the no-op cache so summarization still works.
func NewCache(cfg config.Config, log *slog.Logger) cache.Cache {
	switch cfg.CacheProvider {
	case "redis":
		c, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Warn("redis unavailable; summaries will not be cached", "addr", cfg.RedisAddr, "err", err)
			return cache.NewNoOpCache()
		}
		log.Info("using Redis summary cache", "addr", cfg.RedisAddr)
		return c
	default:
		return cache.NewNoOpCache()
	}
}
