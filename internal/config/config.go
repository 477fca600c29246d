// Package config provides configuration loading and structs for scireview.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Search     SearchConfig     `yaml:"search"`
	Watch      WatchConfig      `yaml:"watch"`

	// Secrets come from the environment only and are never written back to YAML.
	Secrets Secrets `yaml:"-"`
}

// Secrets holds values read from the environment (optionally seeded from a .env file).
type Secrets struct {
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`
	GenerationModel string `env:"SCIREVIEW_GENERATION_MODEL"`
	EmbeddingModel  string `env:"SCIREVIEW_EMBEDDING_MODEL"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the record database and keyword index.
type StorageConfig struct {
	DatabasePath     string `yaml:"database_path"`
	KeywordIndexPath string `yaml:"keyword_index_path"`
}

// EmbeddingConfig selects and configures the embedder.
// Provider is one of "onnx", "gemini" or "hash".
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
}

// GenerationConfig holds settings for the generative model.
type GenerationConfig struct {
	Model             string  `yaml:"model"`
	Temperature       float32 `yaml:"temperature"`
	MaxRetries        int     `yaml:"max_retries"`
	TimeoutSeconds    int     `yaml:"timeout_seconds"`
	RequestsPerMinute int     `yaml:"requests_per_minute"`
	MaxToolRounds     int     `yaml:"max_tool_rounds"`
}

// ChunkingConfig holds sentence window settings.
type ChunkingConfig struct {
	MaxSentences int  `yaml:"max_sentences"`
	Overlap      *int `yaml:"overlap"`
}

// OverlapOrDefault returns the configured overlap; defaults to 1 when unset.
func (c *ChunkingConfig) OverlapOrDefault() int {
	if c.Overlap != nil {
		return *c.Overlap
	}
	return 1
}

// ClassifierConfig holds retrieval settings for classification.
type ClassifierConfig struct {
	TopK         int `yaml:"top_k"`
	ExcerptWords int `yaml:"excerpt_words"`
}

// PipelineConfig holds pipeline execution settings.
type PipelineConfig struct {
	ConcurrentStages bool `yaml:"concurrent_stages"`
}

// SearchConfig holds hybrid search settings.
type SearchConfig struct {
	DefaultLimit   int     `yaml:"default_limit"`
	MaxLimit       int     `yaml:"max_limit"`
	TopKCandidates int     `yaml:"top_k_candidates"`
	KeywordWeight  float64 `yaml:"keyword_weight"`
	SemanticWeight float64 `yaml:"semantic_weight"`
}

// WatchConfig holds corpus watch settings.
type WatchConfig struct {
	Root           string `yaml:"root"`
	DebounceMillis int    `yaml:"debounce_millis"`
}

// Load reads and parses the config file at path, expands paths, applies defaults
// and reads secrets from the environment.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.KeywordIndexPath = expandPath(cfg.Storage.KeywordIndexPath, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}
	if cfg.Watch.Root != "" {
		cfg.Watch.Root = expandPath(cfg.Watch.Root, configDir)
	}

	if err := LoadSecrets(&cfg, filepath.Join(configDir, ".env")); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config with every default applied, for running without a config file.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

// LoadSecrets seeds the environment from dotenvPath when that file exists and
// parses secrets into cfg. Variables already set in the environment win.
// Model overrides from the environment replace the YAML values.
func LoadSecrets(cfg *Config, dotenvPath string) error {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", dotenvPath, err)
		}
	}
	if err := env.Parse(&cfg.Secrets); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	if cfg.Secrets.GenerationModel != "" {
		cfg.Generation.Model = cfg.Secrets.GenerationModel
	}
	if cfg.Secrets.EmbeddingModel != "" {
		cfg.Embedding.Model = cfg.Secrets.EmbeddingModel
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
