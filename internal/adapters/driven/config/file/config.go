// Package file provides the TOML-backed configuration for the Recall CLI.
//
// Configuration lives in ~/.recall/config.toml. A missing file yields the
// defaults; unknown keys are ignored so configs survive upgrades.
package file

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/recall-cli/internal/chunker"
	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// Config is the full CLI configuration.
type Config struct {
	// DataDir is the store directory. Empty means ~/.recall/data.
	DataDir string `toml:"data_dir"`

	Chunking  ChunkingConfig  `toml:"chunking"`
	Search    SearchConfig    `toml:"search"`
	Embedding EmbeddingConfig `toml:"embedding"`
}

// ChunkingConfig controls the chunker.
type ChunkingConfig struct {
	// Size is the maximum chunk size in bytes.
	Size int `toml:"size"`

	// Overlap is the boundary overlap between adjacent chunks in bytes.
	Overlap int `toml:"overlap"`
}

// SearchConfig controls retrieval.
type SearchConfig struct {
	// Metric is "cosine" (default) or "euclidean".
	Metric string `toml:"metric"`

	// DefaultK is the result count when a query does not specify one.
	DefaultK int `toml:"default_k"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is "ollama" (default) or "openai".
	Provider string `toml:"provider"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `toml:"base_url"`

	// Model is the embedding model name.
	Model string `toml:"model"`

	// APIKey authenticates hosted providers. The OPENAI_API_KEY
	// environment variable takes precedence when set.
	APIKey string `toml:"api_key"`

	// Dimensions overrides the model's default vector size.
	Dimensions int `toml:"dimensions"`

	// RequestsPerSecond throttles embed calls during ingestion.
	// Zero disables throttling.
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Chunking: ChunkingConfig{
			Size:    chunker.DefaultChunkSize,
			Overlap: chunker.DefaultOverlap,
		},
		Search: SearchConfig{
			Metric:   string(domain.MetricCosine),
			DefaultK: domain.DefaultK,
		},
		Embedding: EmbeddingConfig{
			Provider: "ollama",
		},
	}
}

// DefaultPath returns ~/.recall/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".recall", "config.toml"), nil
}

// Load reads the config at path, layered over the defaults. If path is
// empty the default location is used. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return cfg, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: parsing %s: %w", domain.ErrInvalidInput, path, err)
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// validate rejects values the core would refuse later anyway, with a
// config-shaped message.
func (c Config) validate() error {
	if _, err := domain.ParseMetric(c.Search.Metric); err != nil {
		return err
	}
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("%w: chunking.size must be positive", domain.ErrInvalidInput)
	}
	if c.Chunking.Overlap < 0 {
		return fmt.Errorf("%w: chunking.overlap must not be negative", domain.ErrInvalidInput)
	}
	if c.Search.DefaultK <= 0 {
		return fmt.Errorf("%w: search.default_k must be positive", domain.ErrInvalidInput)
	}
	switch c.Embedding.Provider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("%w: unknown embedding provider %q",
			domain.ErrInvalidInput, c.Embedding.Provider)
	}
	return nil
}

// Metric returns the parsed search metric.
func (c Config) Metric() domain.Metric {
	metric, err := domain.ParseMetric(c.Search.Metric)
	if err != nil {
		return domain.MetricCosine
	}
	return metric
}
