// Package config loads engine settings from the environment (with optional
// .env file) and an optional YAML tuning file.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all engine settings. Environment variables may carry the
// LOGLENS_ prefix or the bare name (so GEMINI_API_KEY works as-is).
type Config struct {
	RootDirectory string `envconfig:"ROOT_DIRECTORY" default:"./data" yaml:"root_directory"`

	// Chunking: character budgets converted to line windows by the chunker.
	ChunkSize int `envconfig:"CHUNK_SIZE" default:"800" yaml:"chunk_size"`
	Overlap   int `envconfig:"OVERLAP" default:"100" yaml:"overlap"`

	// Retrieval
	TopK int `envconfig:"TOP_K" default:"5" yaml:"top_k"`

	// Embedding
	EmbeddingDefault     string `envconfig:"EMBEDDING_DEFAULT" default:"gemini:text-embedding-004" yaml:"embedding_default"`
	EmbeddingBatchSize   int    `envconfig:"EMBEDDING_BATCH_SIZE" default:"32" yaml:"embedding_batch_size"`
	MaxChunkCacheSize    int    `envconfig:"MAX_CHUNK_CACHE_SIZE" default:"10000" yaml:"max_chunk_cache_size"`
	EnableEmbeddingCache bool   `envconfig:"ENABLE_EMBEDDING_CACHE" default:"true" yaml:"enable_embedding_cache"`

	// Generation
	LLMDefault     string  `envconfig:"LLM_DEFAULT" default:"gemini-1.5-flash" yaml:"llm_default"`
	LLMTemperature float64 `envconfig:"LLM_TEMPERATURE" default:"0.1" yaml:"llm_temperature"`
	LLMMaxTokens   int     `envconfig:"LLM_MAX_TOKENS" default:"2048" yaml:"llm_max_tokens"`
	MaxRetries     int     `envconfig:"MAX_RETRIES" default:"3" yaml:"max_retries"`

	// Log files
	LogExtensions []string `envconfig:"LOG_EXTENSIONS" default:".log,.txt,.jsonl" yaml:"log_extensions"`

	// Credentials
	GeminiAPIKey         string `envconfig:"GEMINI_API_KEY" yaml:"-"`
	OpenRouterAPIKey     string `envconfig:"OPENROUTER_API_KEY" yaml:"-"`
	AzureOpenAIKey       string `envconfig:"AZURE_OPENAI_API_KEY" yaml:"-"`
	AzureOpenAIEndpoint  string `envconfig:"AZURE_OPENAI_ENDPOINT" yaml:"-"`
	AzureOpenAIDeploy    string `envconfig:"AZURE_OPENAI_DEPLOYMENT" yaml:"-"`
	AzureOpenAIVersion   string `envconfig:"AZURE_OPENAI_API_VERSION" default:"2024-02-15-preview" yaml:"-"`
	LocalEmbeddingHost   string `envconfig:"LOCAL_EMBEDDING_HOST" default:"http://localhost:11434/v1" yaml:"local_embedding_host"`
}

// Load reads settings from a .env file (if present), the environment, and an
// optional YAML file pointed to by LOGLENS_CONFIG_FILE (default
// data/config.yaml when that file exists).
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("loglens", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	path := os.Getenv("LOGLENS_CONFIG_FILE")
	if path == "" {
		path = "data/config.yaml"
	}
	if _, err := os.Stat(path); err == nil {
		if err := cfg.applyYAML(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks in-range values for the tunables.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return errors.New("config: chunk_size must be positive")
	}
	if c.Overlap < 0 || c.Overlap >= c.ChunkSize {
		return errors.New("config: overlap must be >= 0 and < chunk_size")
	}
	if c.TopK <= 0 {
		return errors.New("config: top_k must be positive")
	}
	if c.EmbeddingBatchSize <= 0 {
		return errors.New("config: embedding_batch_size must be positive")
	}
	if c.MaxChunkCacheSize <= 0 {
		return errors.New("config: max_chunk_cache_size must be positive")
	}
	if c.MaxRetries <= 0 {
		return errors.New("config: max_retries must be positive")
	}
	return nil
}

// Azure reports whether Azure OpenAI credentials are configured.
func (c *Config) Azure() bool {
	return c.AzureOpenAIKey != "" && c.AzureOpenAIEndpoint != "" && c.AzureOpenAIDeploy != ""
}
