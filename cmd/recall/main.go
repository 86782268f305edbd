// Command recall is a local semantic search CLI. It wires the SQLite
// record store, the in-memory vector index, the configured embedding
// provider and the application services into the cobra command tree.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/recall-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/recall-cli/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/recall-cli/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/recall-cli/internal/adapters/driven/index/flat"
	"github.com/custodia-labs/recall-cli/internal/adapters/driven/loader/filesystem"
	"github.com/custodia-labs/recall-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/recall-cli/internal/adapters/driving/cli"
	"github.com/custodia-labs/recall-cli/internal/chunker"
	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/core/services"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// version is overridden at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := file.Load(os.Getenv("RECALL_CONFIG"))
	if err != nil {
		return err
	}

	store, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()
	indexDir := filepath.Dir(store.Path())

	index, err := openIndex(context.Background(), store, indexDir, cfg.Metric())
	if err != nil {
		return err
	}

	embedder, err := newEmbedder(cfg.Embedding)
	if err != nil {
		return err
	}
	defer embedder.Close()

	ch := chunker.New(
		chunker.WithChunkSize(cfg.Chunking.Size),
		chunker.WithOverlap(cfg.Chunking.Overlap),
	)

	ingestor := services.NewIngestOrchestrator(
		store.RecordStore(),
		store.ManifestStore(),
		index,
		embedder,
		filesystem.New(),
		ch,
		services.WithEmbedRateLimit(cfg.Embedding.RequestsPerSecond),
	)
	retriever := services.NewRetriever(store.RecordStore(), index, embedder, cfg.Search.DefaultK)
	watcher := services.NewWatcher(ingestor, 0)

	cli.SetVersion(version)
	cli.SetServices(ingestor, retriever, watcher)

	cmdErr := cli.Execute()

	// Persist the index regardless of the command outcome; a partially
	// failed ingestion still stored sources worth keeping.
	if err := index.Save(indexDir); err != nil {
		logger.Warn("saving index: %v", err)
	}
	return cmdErr
}

// openIndex loads the persisted index when it is consistent with the
// record store, and otherwise rebuilds it from scratch. The store is the
// source of truth; the index file is only a warm-start optimisation.
func openIndex(ctx context.Context, store *sqlite.Store, dir string, metric domain.Metric) (*flat.Index, error) {
	count, err := store.RecordStore().Count(ctx)
	if err != nil {
		return nil, err
	}
	dimension, err := store.RecordStore().Dimension(ctx)
	if err != nil {
		return nil, err
	}

	index, err := flat.Load(dir, metric)
	switch {
	case err == nil:
		if verifyErr := index.Verify(count, dimension); verifyErr == nil {
			return index, nil
		}
		logger.Warn("persisted index out of sync with store, rebuilding")
	case errors.Is(err, domain.ErrNotFound):
		// First run, nothing persisted yet.
	case errors.Is(err, domain.ErrIndexInconsistent):
		logger.Warn("persisted index unreadable, rebuilding: %v", err)
	default:
		return nil, err
	}

	return rebuildIndex(ctx, store, metric)
}

// rebuildIndex reconstructs the index from the record store.
func rebuildIndex(ctx context.Context, store *sqlite.Store, metric domain.Metric) (*flat.Index, error) {
	var entries []driven.IndexEntry
	err := store.RecordStore().Scan(ctx, nil, func(r domain.VectorRecord) error {
		entries = append(entries, driven.IndexEntry{
			ID:       r.ID,
			Vector:   r.Vector,
			Metadata: r.Metadata,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning records: %w", err)
	}

	index := flat.New(metric)
	if err := index.Build(ctx, entries); err != nil {
		return nil, fmt.Errorf("building index: %w", err)
	}
	logger.Info("rebuilt index with %d entries", len(entries))
	return index, nil
}

// newEmbedder constructs the configured embedding provider.
func newEmbedder(cfg file.EmbeddingConfig) (driven.EmbeddingService, error) {
	switch cfg.Provider {
	case "", "ollama":
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		}), nil

	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			apiKey = cfg.APIKey
		}
		return openai.NewEmbeddingService(openai.Config{
			APIKey:     apiKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})

	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q",
			domain.ErrInvalidInput, cfg.Provider)
	}
}
