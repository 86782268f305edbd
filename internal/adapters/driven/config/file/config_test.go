package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Chunking.Size)
	assert.Equal(t, 50, cfg.Chunking.Overlap)
	assert.Equal(t, domain.MetricCosine, cfg.Metric())
	assert.Equal(t, domain.DefaultK, cfg.Search.DefaultK)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
data_dir = "/tmp/recall-data"

[chunking]
size = 1000
overlap = 100

[search]
metric = "euclidean"
default_k = 8

[embedding]
provider = "openai"
model = "text-embedding-3-small"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/recall-data", cfg.DataDir)
	assert.Equal(t, 1000, cfg.Chunking.Size)
	assert.Equal(t, 100, cfg.Chunking.Overlap)
	assert.Equal(t, domain.MetricEuclidean, cfg.Metric())
	assert.Equal(t, 8, cfg.Search.DefaultK)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "bad metric", content: "[search]\nmetric = \"manhattan\"\n"},
		{name: "zero chunk size", content: "[chunking]\nsize = 0\n"},
		{name: "negative overlap", content: "[chunking]\noverlap = -1\n"},
		{name: "unknown provider", content: "[embedding]\nprovider = \"acme\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := Load(path)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}
