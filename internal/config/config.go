// Package config provides configuration loading and structs for tsunagu.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Vault      VaultConfig      `yaml:"vault"`
	Cache      CacheConfig      `yaml:"cache"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Similarity SimilarityConfig `yaml:"similarity"`
}

// VaultConfig locates the note corpus.
type VaultConfig struct {
	Path       string   `yaml:"path"`
	Extensions []string `yaml:"extensions"`
}

// CacheConfig holds the cache root under which the embeddings cache and the
// index artifact pair are colocated.
type CacheConfig struct {
	Dir string `yaml:"dir"`
}

// EmbeddingConfig holds embedding model settings. Model identifies the model
// for cache/index invalidation; ModelPath points at the ONNX file.
type EmbeddingConfig struct {
	Model      string `yaml:"model"`
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
}

// SimilarityConfig holds default thresholds and result counts per operation.
type SimilarityConfig struct {
	SearchMin        float64 `yaml:"search_min"`
	RelatedMin       float64 `yaml:"related_min"`
	ClusterMin       float64 `yaml:"cluster_min"`
	LinkMin          float64 `yaml:"link_min"`
	BidirectionalMin float64 `yaml:"bidirectional_min"`
	TopK             int     `yaml:"top_k"`
	MaxSuggestions   int     `yaml:"max_suggestions"`
}

// Load reads and parses the config file at path, applies defaults, expands
// paths, and validates. Returns an error if the file cannot be read or parsed
// or fails validation.
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
	cfg.Vault.Path = expandPath(cfg.Vault.Path, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = filepath.Join(cfg.Vault.Path, ".tsunagu")
	} else {
		cfg.Cache.Dir = expandPath(cfg.Cache.Dir, configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration with rule-based validation.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Vault),
		validation.Field(&c.Embedding),
		validation.Field(&c.Similarity),
	)
}

// Validate checks vault settings.
func (v VaultConfig) Validate() error {
	return validation.ValidateStruct(&v,
		validation.Field(&v.Path, validation.Required),
	)
}

// Validate checks embedding settings.
func (e EmbeddingConfig) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Model, validation.Required),
		validation.Field(&e.Dimensions, validation.Required, validation.Min(1)),
		validation.Field(&e.MaxTokens, validation.Min(1)),
		validation.Field(&e.CacheSize, validation.Min(1)),
	)
}

// Validate checks similarity thresholds are usable cosine bounds.
func (s SimilarityConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.SearchMin, validation.Min(-1.0), validation.Max(1.0)),
		validation.Field(&s.RelatedMin, validation.Min(-1.0), validation.Max(1.0)),
		validation.Field(&s.ClusterMin, validation.Min(-1.0), validation.Max(1.0)),
		validation.Field(&s.LinkMin, validation.Min(-1.0), validation.Max(1.0)),
		validation.Field(&s.BidirectionalMin, validation.Min(-1.0), validation.Max(1.0)),
		validation.Field(&s.TopK, validation.Min(1)),
		validation.Field(&s.MaxSuggestions, validation.Min(1)),
	)
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths are relative to the home
// directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
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
