// Package config loads and validates project configuration.
//
// Configuration lives at <root>/.recall/config.yaml. A missing file is not
// an error: defaults apply. Zero configuration is the expected case.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/recallkb/recall/internal/errors"
)

// DefaultDataDir is the per-project data directory, relative to root.
const DefaultDataDir = ".recall"

// ConfigFileName is the configuration file name inside the data directory.
const ConfigFileName = "config.yaml"

// ChunkingConfig controls the section chunker.
type ChunkingConfig struct {
	// MaxChunkSize caps each chunk's size in bytes.
	MaxChunkSize int `yaml:"max_chunk_size"`

	// OverlapPercent is the inter-chunk overlap, 0-50.
	OverlapPercent int `yaml:"overlap_percent"`
}

// SearchConfig controls the hybrid search engine defaults.
type SearchConfig struct {
	// MinScore drops vector results scoring below it.
	MinScore float64 `yaml:"min_score"`

	// DefaultLimit is the result count when the caller passes none.
	DefaultLimit int `yaml:"default_limit"`
}

// EmbeddingConfig controls the embedding provider.
type EmbeddingConfig struct {
	// CacheSize is the LRU embedding cache capacity.
	CacheSize int `yaml:"cache_size"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level"`
}

// Config is the full project configuration.
type Config struct {
	// DocsDir is the knowledge file tree, relative to the project root.
	DocsDir string `yaml:"docs_dir"`

	// DataDir is where indexes and the meta record live, relative to root.
	DataDir string `yaml:"data_dir"`

	Chunking  ChunkingConfig  `yaml:"chunking"`
	Search    SearchConfig    `yaml:"search"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// Default returns the zero-configuration defaults.
func Default() *Config {
	return &Config{
		DocsDir: "knowledge",
		DataDir: DefaultDataDir,
		Chunking: ChunkingConfig{
			MaxChunkSize:   2000,
			OverlapPercent: 15,
		},
		Search: SearchConfig{
			MinScore:     0.3,
			DefaultLimit: 5,
		},
		Embedding: EmbeddingConfig{
			CacheSize: 4096,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration for the project rooted at root.
// Missing file yields defaults; a present but invalid file is an error.
func Load(root string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(root, DefaultDataDir, ConfigFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, errors.ConfigError(fmt.Sprintf("read %s", path), err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.ConfigError(fmt.Sprintf("parse %s", path), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configured values against their allowed ranges.
func (c *Config) Validate() error {
	if c.Chunking.MaxChunkSize <= 0 {
		return errors.ConfigError("chunking.max_chunk_size must be positive", nil)
	}
	if c.Chunking.OverlapPercent < 0 || c.Chunking.OverlapPercent > 50 {
		return errors.ConfigError("chunking.overlap_percent must be within [0, 50]", nil)
	}
	if c.Search.MinScore < 0 || c.Search.MinScore > 1 {
		return errors.ConfigError("search.min_score must be within [0, 1]", nil)
	}
	if c.Search.DefaultLimit <= 0 {
		return errors.ConfigError("search.default_limit must be positive", nil)
	}
	if c.DocsDir == "" {
		return errors.ConfigError("docs_dir must not be empty", nil)
	}
	if c.DataDir == "" {
		return errors.ConfigError("data_dir must not be empty", nil)
	}
	return nil
}

// DataPath returns an absolute path inside the project data directory.
func (c *Config) DataPath(root string, elem ...string) string {
	parts := append([]string{root, c.DataDir}, elem...)
	return filepath.Join(parts...)
}

// DocsPath returns the absolute path of the knowledge tree.
func (c *Config) DocsPath(root string) string {
	return filepath.Join(root, c.DocsDir)
}
