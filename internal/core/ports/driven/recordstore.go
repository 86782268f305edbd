package driven

import (
	"context"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// RecordStore is durable, keyed storage of vector records. It is the
// source of truth: the vector index can always be reconstructed from it.
//
// All mutations are persisted before the call returns (write-then-
// acknowledge); each record write is atomic as a unit.
type RecordStore interface {
	// Put inserts or overwrites a record by ID. Returns
	// domain.ErrDimensionMismatch when the vector length disagrees with the
	// store dimension; the dimension is fixed by the first Put.
	Put(ctx context.Context, record domain.VectorRecord) error

	// Get retrieves a record by ID, or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.VectorRecord, error)

	// Delete removes one record by ID. Deleting an absent ID is a no-op.
	Delete(ctx context.Context, id string) error

	// DeleteBySource removes all records owned by the source and returns
	// the number removed.
	DeleteBySource(ctx context.Context, sourceID string) (int, error)

	// Scan iterates records matching the optional predicate in storage
	// order, invoking fn for each. Iteration stops on the first error from
	// fn. Records failing their integrity check are skipped and logged,
	// not fatal to the scan.
	Scan(ctx context.Context, p domain.Predicate, fn func(domain.VectorRecord) error) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Dimension returns the fixed vector dimension, or 0 when the store is
	// empty and the dimension is not yet established.
	Dimension(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}

// ManifestStore persists per-source ingestion state for change detection.
type ManifestStore interface {
	// SaveManifest stores or updates a source manifest.
	SaveManifest(ctx context.Context, m domain.SourceManifest) error

	// GetManifest retrieves the manifest for a source, or domain.ErrNotFound.
	GetManifest(ctx context.Context, sourceID string) (*domain.SourceManifest, error)

	// ListManifests returns all manifests in source order.
	ListManifests(ctx context.Context) ([]domain.SourceManifest, error)

	// DeleteManifest removes the manifest for a source.
	DeleteManifest(ctx context.Context, sourceID string) error
}
