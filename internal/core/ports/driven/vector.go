package driven

import (
	"context"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// IndexEntry is the slice of a record the index needs: the ID, the vector
// and the metadata used for filtered traversal. The index never owns
// record text; it holds back-references into the record store.
type IndexEntry struct {
	ID       string
	Vector   []float32
	Metadata map[string]any
}

// VectorIndex maintains a searchable structure over stored vectors.
//
// Consistency: after Insert, Remove or ApplyBatch returns, an immediately
// subsequent Search observes the mutation. Readers are isolated from
// in-flight writers via snapshots, never coarse locking.
type VectorIndex interface {
	// Build constructs the index from scratch, replacing any contents.
	Build(ctx context.Context, entries []IndexEntry) error

	// Insert adds or replaces one entry.
	Insert(ctx context.Context, entry IndexEntry) error

	// Remove deletes an entry by record ID. Removing an absent ID is a no-op.
	Remove(ctx context.Context, id string) error

	// ApplyBatch atomically removes every entry whose ID is in removeIDs and
	// inserts add. Concurrent searches observe either the state before the
	// batch or after it, never an intermediate mix.
	ApplyBatch(ctx context.Context, removeIDs []string, add []IndexEntry) error

	// Search returns the k entries nearest to query under the configured
	// metric, ordered by decreasing score with ties broken by ascending
	// record ID. Only entries satisfying p are eligible; fewer than k
	// results are returned only when fewer eligible entries exist.
	Search(ctx context.Context, query []float32, k int, p domain.Predicate) ([]domain.QueryHit, error)

	// Len returns the number of indexed entries.
	Len() int

	// Close releases resources.
	Close() error
}
