package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/recall-cli/internal/chunker"
	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driving"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// Ensure IngestOrchestrator implements the driving port.
var _ driving.Ingestor = (*IngestOrchestrator)(nil)

// recordNamespace seeds deterministic record IDs. A given
// (source, chunk index, content hash) always maps to the same UUID, so
// re-ingesting unchanged content produces identical records.
var recordNamespace = uuid.MustParse("8e2d9f1a-4c6b-4f3e-9a7d-1b5c8e0f2a64")

// IngestOrchestrator coordinates the ingestion pipeline: expand paths to
// sources, detect changes by content hash, chunk and embed what changed,
// store the records and swap the affected index entries atomically.
//
// At most one ingestion runs at a time; a concurrent Ingest call returns
// domain.ErrIngestInProgress instead of queueing.
type IngestOrchestrator struct {
	records   driven.RecordStore
	manifests driven.ManifestStore
	index     driven.VectorIndex
	embedder  driven.EmbeddingService
	loader    driven.DocumentLoader
	chunker   *chunker.Chunker
	limiter   *rate.Limiter

	running atomic.Bool
}

// IngestOption configures the orchestrator.
type IngestOption func(*IngestOrchestrator)

// WithEmbedRateLimit throttles embedding calls to rps requests per
// second. Zero or negative disables throttling.
func WithEmbedRateLimit(rps float64) IngestOption {
	return func(o *IngestOrchestrator) {
		if rps > 0 {
			o.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// NewIngestOrchestrator creates the ingestion coordinator.
func NewIngestOrchestrator(
	records driven.RecordStore,
	manifests driven.ManifestStore,
	index driven.VectorIndex,
	embedder driven.EmbeddingService,
	loader driven.DocumentLoader,
	ch *chunker.Chunker,
	opts ...IngestOption,
) *IngestOrchestrator {
	o := &IngestOrchestrator{
		records:   records,
		manifests: manifests,
		index:     index,
		embedder:  embedder,
		loader:    loader,
		chunker:   ch,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Ingest runs one ingestion pass over paths. Per-source failures (load
// or embed) are recorded in the report and do not abort the run; store
// failures do. Cancellation stops the run between sources, leaving
// already-stored sources in place.
func (o *IngestOrchestrator) Ingest(ctx context.Context, paths []string) (*domain.IngestReport, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, domain.ErrIngestInProgress
	}
	defer o.running.Store(false)

	report := &domain.IngestReport{StartedAt: time.Now()}
	defer func() { report.FinishedAt = time.Now() }()

	sources, err := o.loader.Expand(ctx, paths)
	if err != nil {
		return report, fmt.Errorf("expanding paths: %w", err)
	}
	logger.Info("ingesting %d sources", len(sources))

	known, err := o.manifests.ListManifests(ctx)
	if err != nil {
		return report, fmt.Errorf("listing manifests: %w", err)
	}
	knownBySource := make(map[string]domain.SourceManifest, len(known))
	for _, m := range known {
		knownBySource[m.SourceID] = m
	}

	present := make(map[string]struct{}, len(sources))
	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		present[source] = struct{}{}

		var manifest *domain.SourceManifest
		if m, ok := knownBySource[source]; ok {
			manifest = &m
		}

		result, calls, err := o.ingestSource(ctx, source, manifest)
		if err != nil {
			return report, err
		}
		report.Sources = append(report.Sources, result)
		report.EmbedCalls += calls
	}

	// Sources known from earlier runs but absent from this ingestion set
	// have vanished; drop their records, index entries and manifests.
	for _, m := range known {
		if _, ok := present[m.SourceID]; ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := o.removeSource(ctx, m.SourceID); err != nil {
			return report, err
		}
		report.Sources = append(report.Sources, domain.SourceResult{
			SourceID: m.SourceID,
			State:    domain.SourceRemoved,
		})
	}

	return report, nil
}

// Sources lists the manifests of all ingested sources.
func (o *IngestOrchestrator) Sources(ctx context.Context) ([]domain.SourceManifest, error) {
	return o.manifests.ListManifests(ctx)
}

// ingestSource processes one source end to end. The error return is
// reserved for store-level failures; load and embed failures come back
// as a SourceFailed result with a nil error.
func (o *IngestOrchestrator) ingestSource(
	ctx context.Context,
	source string,
	manifest *domain.SourceManifest,
) (domain.SourceResult, int, error) {
	text, err := o.loader.Load(ctx, source)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return domain.SourceResult{}, 0, err
		}
		logger.Warn("loading %s: %v", source, err)
		return domain.SourceResult{
			SourceID: source,
			State:    domain.SourceFailed,
			Err:      err,
		}, 0, nil
	}

	hash := contentHash(text)
	if manifest != nil && manifest.ContentHash == hash {
		logger.Debug("%s unchanged, skipping", source)
		return domain.SourceResult{
			SourceID: source,
			State:    domain.SourceUnchanged,
			Chunks:   manifest.ChunkCount,
		}, 0, nil
	}

	chunks := o.chunker.Split(text)
	logger.Debug("%s: %d chunks", source, len(chunks))

	records, calls, err := o.embedChunks(ctx, source, hash, chunks)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return domain.SourceResult{}, calls, err
		}
		logger.Warn("embedding %s: %v", source, err)
		return domain.SourceResult{
			SourceID: source,
			State:    domain.SourceFailed,
			Err:      err,
		}, calls, nil
	}

	if err := o.storeSource(ctx, source, hash, records); err != nil {
		return domain.SourceResult{}, calls, err
	}

	return domain.SourceResult{
		SourceID: source,
		State:    domain.SourceStored,
		Chunks:   len(records),
	}, calls, nil
}

// embedChunks turns chunks into vector records, one embedding call per
// chunk so the rate limiter sees every provider request.
func (o *IngestOrchestrator) embedChunks(
	ctx context.Context,
	source, hash string,
	chunks []domain.Chunk,
) ([]domain.VectorRecord, int, error) {
	records := make([]domain.VectorRecord, 0, len(chunks))
	calls := 0

	for _, chunk := range chunks {
		if o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				return nil, calls, err
			}
		}

		vector, err := o.embedder.Embed(ctx, chunk.Text)
		calls++
		if err != nil {
			return nil, calls, err
		}

		records = append(records, domain.VectorRecord{
			ID:         recordID(source, chunk.Index, hash),
			SourceID:   source,
			ChunkIndex: chunk.Index,
			Start:      chunk.Start,
			End:        chunk.End,
			Text:       chunk.Text,
			Vector:     vector,
			Metadata: map[string]any{
				"source": source,
				"ext":    filepath.Ext(source),
			},
		})
	}

	return records, calls, nil
}

// storeSource replaces the source's records and swaps the affected
// index entries in one batch. Ordering matters for concurrent searches:
// the new records land in the store first, then the index swaps, then
// the old records leave. A search on the pre-swap snapshot hydrates the
// old records, one on the post-swap snapshot the new ones; at no point
// does the source look half-deleted. Record IDs are hash-derived, so a
// changed source never collides with its old IDs.
func (o *IngestOrchestrator) storeSource(
	ctx context.Context,
	source, hash string,
	records []domain.VectorRecord,
) error {
	oldIDs, err := o.recordIDs(ctx, source)
	if err != nil {
		return err
	}

	entries := make([]driven.IndexEntry, 0, len(records))
	newIDs := make(map[string]struct{}, len(records))
	for _, record := range records {
		if err := o.records.Put(ctx, record); err != nil {
			return fmt.Errorf("storing record %s: %w", record.ID, err)
		}
		newIDs[record.ID] = struct{}{}
		entries = append(entries, driven.IndexEntry{
			ID:       record.ID,
			Vector:   record.Vector,
			Metadata: record.Metadata,
		})
	}

	err = o.manifests.SaveManifest(ctx, domain.SourceManifest{
		SourceID:       source,
		ContentHash:    hash,
		ChunkCount:     len(records),
		LastIngestedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("saving manifest for %s: %w", source, err)
	}

	if err := o.index.ApplyBatch(ctx, oldIDs, entries); err != nil {
		return fmt.Errorf("updating index for %s: %w", source, err)
	}

	for _, id := range oldIDs {
		if _, ok := newIDs[id]; ok {
			continue
		}
		if err := o.records.Delete(ctx, id); err != nil {
			return fmt.Errorf("deleting stale record %s: %w", id, err)
		}
	}
	return nil
}

// removeSource drops a vanished source. The index entries go first so
// searches on the old snapshot can still hydrate the records; once the
// swap lands no search references them and the store delete is safe.
func (o *IngestOrchestrator) removeSource(ctx context.Context, source string) error {
	oldIDs, err := o.recordIDs(ctx, source)
	if err != nil {
		return err
	}

	if err := o.index.ApplyBatch(ctx, oldIDs, nil); err != nil {
		return fmt.Errorf("updating index for %s: %w", source, err)
	}
	removed, err := o.records.DeleteBySource(ctx, source)
	if err != nil {
		return fmt.Errorf("deleting records of %s: %w", source, err)
	}
	if err := o.manifests.DeleteManifest(ctx, source); err != nil {
		return fmt.Errorf("deleting manifest of %s: %w", source, err)
	}

	logger.Info("removed vanished source %s (%d records)", source, removed)
	return nil
}

// recordIDs returns the IDs of all stored records owned by source.
func (o *IngestOrchestrator) recordIDs(ctx context.Context, source string) ([]string, error) {
	var ids []string
	err := o.records.Scan(ctx, domain.MatchEquals("source", source), func(r domain.VectorRecord) error {
		ids = append(ids, r.ID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning records of %s: %w", source, err)
	}
	return ids, nil
}

// contentHash returns the SHA-256 hex digest of text.
func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// recordID derives the deterministic record UUID for a chunk.
func recordID(source string, chunkIndex int, hash string) string {
	name := fmt.Sprintf("%s|%d|%s", source, chunkIndex, hash)
	return uuid.NewSHA1(recordNamespace, []byte(name)).String()
}
