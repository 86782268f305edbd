// Package domain defines the core business entities for Recall.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - VectorRecord: A stored chunk with its embedding and metadata
//   - Chunk: A contiguous span of a source document's text
//   - SourceManifest: Per-source ingestion state for change detection
//   - Predicate: A metadata filter applied during retrieval
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
