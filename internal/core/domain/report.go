package domain

import "time"

// SourceState is the terminal state a source reaches during an ingestion
// run. A source moves Unseen -> Hashed -> {Unchanged | Changed} -> Chunked
// -> Embedded -> Stored; only the outcome is reported.
type SourceState string

const (
	// SourceUnchanged means the content hash matched the manifest and the
	// source was skipped without chunking or embedding.
	SourceUnchanged SourceState = "unchanged"

	// SourceStored means the source was (re-)chunked, embedded and stored.
	SourceStored SourceState = "stored"

	// SourceRemoved means the source vanished from the ingestion set and
	// its records were deleted.
	SourceRemoved SourceState = "removed"

	// SourceFailed means loading or embedding failed; the source was
	// skipped and will be retried on the next run.
	SourceFailed SourceState = "failed"
)

// SourceResult is the per-source line of an ingestion report.
type SourceResult struct {
	// SourceID is the source path/URI.
	SourceID string

	// State is the outcome for this source.
	State SourceState

	// Chunks is the number of records now stored for the source.
	Chunks int

	// Err holds the per-source failure when State is SourceFailed.
	Err error
}

// IngestReport summarises one ingestion run. Per-source errors are
// isolated here rather than aborting the batch.
type IngestReport struct {
	// Sources holds one result per source in the ingestion set, plus one
	// SourceRemoved entry per vanished source.
	Sources []SourceResult

	// EmbedCalls is the number of embedding-provider calls made. A re-run
	// over an unchanged corpus reports zero.
	EmbedCalls int

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time
	FinishedAt time.Time
}

// Failed returns the results of sources that failed during the run.
func (r *IngestReport) Failed() []SourceResult {
	var failed []SourceResult
	for _, s := range r.Sources {
		if s.State == SourceFailed {
			failed = append(failed, s)
		}
	}
	return failed
}

// Counts returns the number of sources per state.
func (r *IngestReport) Counts() map[SourceState]int {
	counts := make(map[SourceState]int)
	for _, s := range r.Sources {
		counts[s.State]++
	}
	return counts
}
