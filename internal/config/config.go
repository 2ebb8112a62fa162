package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
)

// ErrMissingAPIKey is returned when the selected LLM provider has no key.
var ErrMissingAPIKey = errors.New("missing API key")

// Config holds runtime configuration for every command.
type Config struct {
	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json" validate:"oneof=json text"`

	// LLM
	LLMProvider  string        `env:"LLM_PROVIDER" envDefault:"gemini" validate:"oneof=gemini openai"`
	GeminiAPIKey string        `env:"GEMINI_API_KEY"`
	GeminiModel  string        `env:"GEMINI_MODEL" envDefault:"gemini-1.5-pro"`
	OpenAIKey    string        `env:"OPENAI_API_KEY"`
	OpenAIModel  string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	LLMTimeout   time.Duration `env:"LLM_TIMEOUT" envDefault:"120s" validate:"gte=0"`

	// Document pipeline
	MaxChars           int     `env:"MAX_CHARS" envDefault:"2500" validate:"gt=0"`
	OutputDir          string  `env:"OUTPUT_DIR" envDefault:"output" validate:"required"`
	KeepRefs           bool    `env:"KEEP_REFS" envDefault:"false"`
	ChunkTemperature   float32 `env:"CHUNK_TEMPERATURE" envDefault:"0.25" validate:"gte=0,lte=2"`
	ChunkMaxTokens     int     `env:"CHUNK_MAX_TOKENS" envDefault:"512" validate:"gt=0"`
	FinalTemperature   float32 `env:"FINAL_TEMPERATURE" envDefault:"0.25" validate:"gte=0,lte=2"`
	FinalMaxTokens     int     `env:"FINAL_MAX_TOKENS" envDefault:"768" validate:"gt=0"`
	SummaryConcurrency int     `env:"SUMMARY_CONCURRENCY" envDefault:"1" validate:"gte=1"`
	BriefLanguage      string  `env:"BRIEF_LANGUAGE" envDefault:"English"`

	// Chat
	ChatTemperature       float32       `env:"CHAT_TEMPERATURE" envDefault:"0.7" validate:"gte=0,lte=2"`
	ChatMaxTokens         int           `env:"CHAT_MAX_TOKENS" envDefault:"0" validate:"gte=0"`
	ChatSystemInstruction string        `env:"CHAT_SYSTEM_INSTRUCTION"`
	ChatRateLimitRetries  int           `env:"CHAT_RATE_LIMIT_RETRIES" envDefault:"1" validate:"gte=0"`
	ChatRetryDelay        time.Duration `env:"CHAT_RETRY_DELAY" envDefault:"30s" validate:"gte=0"`
	PromptTemperature     float32       `env:"PROMPT_TEMPERATURE" envDefault:"0.9" validate:"gte=0,lte=2"`

	// Cache
	CacheProvider string        `env:"CACHE_PROVIDER" envDefault:"none" validate:"oneof=none redis"`
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"168h" validate:"gte=0"`

	// Server
	Port           int           `env:"PORT" envDefault:"8080" validate:"gt=0,lte=65535"`
	MaxUploadSize  int64         `env:"MAX_UPLOAD_SIZE" envDefault:"10485760" validate:"gt=0"` // 10MB in bytes
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"5m" validate:"gt=0"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks value ranges. It does not require an API key; commands
// that talk to a model call APIKey for that.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// APIKey returns the key of the selected provider.
func (c Config) APIKey() (string, error) {
	key := c.GeminiAPIKey
	if c.LLMProvider == "openai" {
		key = c.OpenAIKey
	}
	if key == "" {
		return "", fmt.Errorf("%w for provider %q", ErrMissingAPIKey, c.LLMProvider)
	}
	return key, nil
}

// Model returns the configured model of the selected provider.
func (c Config) Model() string {
	if c.LLMProvider == "openai" {
		return c.OpenAIModel
	}
	return c.GeminiModel
}

// SetModel overrides the model of the selected provider.
func (c *Config) SetModel(name string) {
	if c.LLMProvider == "openai" {
		c.OpenAIModel = name
		return
	}
	c.GeminiModel = name
}
