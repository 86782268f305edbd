package driving

import (
	"context"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// Ingestor drives the ingestion pipeline for a set of source paths.
type Ingestor interface {
	// Ingest hashes, chunks, embeds and stores the given sources, skipping
	// unchanged ones and removing vanished ones. Per-source failures are
	// reported in the returned summary; only store-level failures return a
	// non-nil error. At most one ingestion runs at a time per store
	// instance; a concurrent call returns domain.ErrIngestInProgress.
	//
	// Cancelling ctx stops the run between sources; already-stored sources
	// remain stored.
	Ingest(ctx context.Context, paths []string) (*domain.IngestReport, error)

	// Sources lists the manifests of all ingested sources.
	Sources(ctx context.Context) ([]domain.SourceManifest, error)
}
