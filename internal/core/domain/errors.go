package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested record, source or path does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDimensionMismatch indicates a vector whose length disagrees with
	// the store dimension. Fatal for that write only; the store is intact.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmbeddingUnavailable indicates the embedding provider failed or is
	// not configured. During ingestion the affected source is marked failed
	// and the batch continues; queries surface it to the caller.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrZeroVector indicates an all-zero embedding, which cannot be scored
	// under cosine similarity. Rejected before search, never silently scored.
	ErrZeroVector = errors.New("zero vector")

	// ErrIndexInconsistent indicates a mismatch between the record store and
	// the serialized index. It triggers an automatic full rebuild rather
	// than surfacing to the caller of a query.
	ErrIndexInconsistent = errors.New("index inconsistent with store")

	// ErrCorruptRecord indicates a persisted record failed its integrity
	// check on read. The record is skipped and logged; the scan continues.
	ErrCorruptRecord = errors.New("corrupt record")

	// ErrIngestInProgress indicates an ingestion run is already active on
	// this store instance. At most one writer runs at a time.
	ErrIngestInProgress = errors.New("ingestion in progress")
)
