package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

type Config struct {
	LLM       LLMConfig       `toml:"llm"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Store     StoreConfig     `toml:"store"`
	Chunking  ChunkingConfig  `toml:"chunking"`
	Publish   PublishConfig   `toml:"publish"`
	Observe   ObserveConfig   `toml:"observe"`
}

type LLMConfig struct {
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
	APIKey  string `toml:"api_key"`
}

type EmbeddingConfig struct {
	BaseURL    string `toml:"base_url"`
	Model      string `toml:"model"`
	Dimensions int    `toml:"dimensions"`
	APIKey     string `toml:"api_key"`
}

type StoreConfig struct {
	// Backend is one of "memory", "sqlite", "postgres".
	Backend     string `toml:"backend"`
	Path        string `toml:"path"`
	PostgresURL string `toml:"postgres_url"`
	Collection  string `toml:"collection"`
}

type ChunkingConfig struct {
	// Strategy is "structured" or "semantic".
	Strategy       string `toml:"strategy"`
	TargetTokens   int    `toml:"target_tokens"`
	MaxTokens      int    `toml:"max_tokens"`
	MaxContent     int    `toml:"max_content"`
	DropDirty      bool   `toml:"drop_dirty"`
	CleanupWorkers int    `toml:"cleanup_workers"`
}

type PublishConfig struct {
	EmbedBatchSize int      `toml:"embed_batch_size"`
	ACL            []string `toml:"acl"`
}

type ObserveConfig struct {
	Enabled bool                      `toml:"enabled"`
	Pricing map[string]ObservePricing `toml:"pricing"`
}

type ObservePricing struct {
	Input  float64 `toml:"input"`
	Output float64 `toml:"output"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		LLM:       LLMConfig{BaseURL: "https://api.openai.com/v1", Model: "gpt-4o-mini"},
		Embedding: EmbeddingConfig{BaseURL: "https://api.openai.com/v1", Model: "text-embedding-3-small", Dimensions: 1536},
		Store:     StoreConfig{Backend: "sqlite", Path: "strata.db", Collection: "knowledge"},
		Chunking:  ChunkingConfig{Strategy: "structured", TargetTokens: 400, MaxTokens: 2000, MaxContent: 20000, CleanupWorkers: 4},
		Publish:   PublishConfig{EmbedBatchSize: 64},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins).
func Load(path string) Config {
	cfg := Default()

	if path == "" {
		path = "strata.toml"
	}

	if data, err := os.ReadFile(path); err == nil {
		_ = toml.Unmarshal(data, &cfg)
	}

	// Env overrides
	if v := os.Getenv("STRATA_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("STRATA_EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("STRATA_POSTGRES_URL"); v != "" {
		cfg.Store.PostgresURL = v
	}
	if os.Getenv("STRATA_OBSERVE_ENABLED") == "true" || os.Getenv("STRATA_OBSERVE_ENABLED") == "1" {
		cfg.Observe.Enabled = true
	}

	// Fallbacks
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = cfg.LLM.APIKey
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = cfg.LLM.BaseURL
	}

	return cfg
}
