package domain

import "fmt"

// Metric selects the distance metric used for similarity scoring.
type Metric string

const (
	// MetricCosine scores by cosine similarity; scores lie in [-1, 1] and
	// higher is more similar. The default.
	MetricCosine Metric = "cosine"

	// MetricEuclidean scores by negated Euclidean distance so that higher
	// is still more similar and result ordering is metric-independent.
	MetricEuclidean Metric = "euclidean"
)

// ParseMetric validates a metric name from configuration or flags.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricCosine, MetricEuclidean:
		return Metric(s), nil
	case "":
		return MetricCosine, nil
	default:
		return "", fmt.Errorf("%w: unknown metric %q", ErrInvalidInput, s)
	}
}

// DefaultK is the result count used when a query does not specify one.
const DefaultK = 5

// QueryOptions controls a retrieval query. The query itself is transient
// and never persisted.
type QueryOptions struct {
	// K is the maximum number of results to return. Zero means DefaultK.
	K int

	// Filter restricts eligible records by metadata. Nil matches all.
	Filter Predicate
}

// QueryHit is one raw index result: a record ID with its similarity score.
type QueryHit struct {
	// RecordID is the matched record.
	RecordID string

	// Score is the similarity under the configured metric. Higher is more
	// similar for every metric.
	Score float64
}

// RetrievedChunk is a fully hydrated query result with source attribution,
// as consumed by the CLI or a downstream answer generator.
type RetrievedChunk struct {
	// RecordID is the matched record.
	RecordID string

	// SourceID is the owning source document.
	SourceID string

	// ChunkIndex is the chunk position within the source.
	ChunkIndex int

	// Text is the chunk content.
	Text string

	// Score is the similarity score of the match.
	Score float64

	// Metadata carries the record's filter attributes.
	Metadata map[string]any
}
