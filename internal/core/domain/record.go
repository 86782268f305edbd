package domain

import "time"

// Chunk is a contiguous span of a source document's text, produced by the
// chunker. Offsets are byte offsets into the original text; Index is dense
// and zero-based per source.
type Chunk struct {
	// Index is the ordinal position within the source document.
	Index int

	// Start is the byte offset of the first byte of the chunk.
	Start int

	// End is the byte offset one past the last byte of the chunk.
	End int

	// Text is the chunk content, including any boundary overlap.
	Text string
}

// VectorRecord is the stored unit of retrieval: one chunk of one source
// together with its embedding and metadata. Records are owned exclusively
// by the record store; the index holds only ID back-references.
type VectorRecord struct {
	// ID is the unique record identifier. IDs are deterministic for a given
	// (source, chunk index, content hash) so unchanged content re-ingests to
	// identical records.
	ID string

	// SourceID is the path/URI of the owning source document.
	SourceID string

	// ChunkIndex is the ordinal position of the chunk within its source.
	ChunkIndex int

	// Start and End are byte offsets of the chunk within the source text.
	Start int
	End   int

	// Text is the chunk content used for embedding and display.
	Text string

	// Vector is the embedding. All vectors in one store share the same
	// dimensionality.
	Vector []float32

	// Metadata contains scalar key-value attributes used for filtering.
	Metadata map[string]any
}

// SourceManifest records the ingestion state of one source document.
// It is the basis for change detection between ingestion runs.
type SourceManifest struct {
	// SourceID is the stable path/URI of the source.
	SourceID string

	// ContentHash is the SHA-256 hex digest of the source text at the time
	// it was last ingested.
	ContentHash string

	// ChunkCount is the number of records the source produced.
	ChunkCount int

	// LastIngestedAt is when the source was last chunked and embedded.
	LastIngestedAt time.Time
}
