package tagger

import (
	"log/slog"
	"time"

	"newssense/internal/usecase/sentiment"
	"newssense/pkg/config"
)

// Provider names accepted by TAGGER.
const (
	ProviderKeyword = "keyword"
	ProviderOpenAI  = "openai"
	ProviderClaude  = "claude"
)

// DefaultTimeout bounds a single model call including retries.
const DefaultTimeout = 15 * time.Second

// Config selects and configures the sentiment tagger.
type Config struct {
	Provider string
	APIKey   string
	Model    string
	Timeout  time.Duration
	// BaseURL overrides the provider endpoint; empty means the public API.
	BaseURL string
}

// LoadConfig reads TAGGER and the matching API key from the environment.
//
// Environment variables:
//   - TAGGER: keyword (default), openai or claude
//   - OPENAI_API_KEY / ANTHROPIC_API_KEY: key for the chosen provider
//   - TAGGER_MODEL: model override
//   - TAGGER_TIMEOUT: per-article timeout (default 15s)
func LoadConfig() Config {
	cfg := Config{
		Provider: config.GetEnvEnum("TAGGER", ProviderKeyword, ProviderKeyword, ProviderOpenAI, ProviderClaude),
		Model:    config.GetEnvString("TAGGER_MODEL", ""),
		Timeout:  config.GetEnvDuration("TAGGER_TIMEOUT", DefaultTimeout),
	}
	switch cfg.Provider {
	case ProviderOpenAI:
		cfg.APIKey = config.GetEnvString("OPENAI_API_KEY", "")
	case ProviderClaude:
		cfg.APIKey = config.GetEnvString("ANTHROPIC_API_KEY", "")
	}
	return cfg
}

// New builds the tagger described by cfg. A model provider without an API
// key degrades to keyword tagging with a warning.
func New(cfg Config) sentiment.Tagger {
	if cfg.Provider != ProviderKeyword && cfg.APIKey == "" {
		slog.Warn("sentiment tagger API key missing, using keyword tagging",
			slog.String("tagger", cfg.Provider))
		return sentiment.KeywordTagger{}
	}

	var t sentiment.Tagger
	switch cfg.Provider {
	case ProviderOpenAI:
		t = NewOpenAI(cfg)
	case ProviderClaude:
		t = NewClaude(cfg)
	default:
		t = sentiment.KeywordTagger{}
	}

	slog.Info("Initialized sentiment tagger",
		slog.String("tagger", sentiment.NameOf(t)),
		slog.String("model", cfg.Model))
	return t
}
