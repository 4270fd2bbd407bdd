package config

import (
	"fmt"
	"log"

	redisx "github.com/dinehq/maitred/pkg/redis"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	Redis redisx.Config

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	// Light model classifies intent; heavy model writes open-ended replies.
	LightModel string `envconfig:"LIGHT_MODEL" default:"gpt-4o-mini"`
	HeavyModel string `envconfig:"HEAVY_MODEL" default:"gpt-4o"`

	// Daily token ceilings per tenant, per model family.
	LightDailyTokenLimit int64 `envconfig:"LIGHT_DAILY_TOKEN_LIMIT" default:"200000"`
	HeavyDailyTokenLimit int64 `envconfig:"HEAVY_DAILY_TOKEN_LIMIT" default:"50000"`

	// Response cache freshness window, seconds.
	CacheTTLSeconds int `envconfig:"CACHE_TTL_SECONDS" default:"3600"`

	// Retrieval defaults.
	RetrievalLimit    int     `envconfig:"RETRIEVAL_LIMIT" default:"5"`
	RetrievalMinScore float64 `envconfig:"RETRIEVAL_MIN_SCORE" default:"0.7"`

	// Conversation window and redis TTL.
	ConversationWindow     int `envconfig:"CONVERSATION_WINDOW" default:"10"`
	ConversationTTLSeconds int `envconfig:"CONVERSATION_TTL_SECONDS" default:"86400"`

	// Upstream call timeout, seconds.
	UpstreamTimeoutSeconds int `envconfig:"UPSTREAM_TIMEOUT_SECONDS" default:"30"`

	SentryDSN string `envconfig:"SENTRY_DSN"`

	// Bootstrap: create an initial tenant and API key on startup
	InitTenantName string  `envconfig:"INIT_TENANT_NAME"`
	InitTaxRate    float64 `envconfig:"INIT_TAX_RATE" default:"0.05"`
	InitAPIKey     string  `envconfig:"INIT_API_KEY"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("MAITRED", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}
