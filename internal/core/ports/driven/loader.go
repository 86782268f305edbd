package driven

import "context"

// DocumentLoader reads raw text for a source path. Missing paths map to
// domain.ErrNotFound; unreadable paths return a wrapped read error. Both
// are per-source recoverable during ingestion.
type DocumentLoader interface {
	// Load returns the text content of the source at path.
	Load(ctx context.Context, path string) (string, error)

	// Expand resolves the given paths to loadable source IDs, descending
	// into directories. The result order is deterministic.
	Expand(ctx context.Context, paths []string) ([]string, error)
}
