// Package flat provides an exact nearest-neighbour index over in-memory
// vector snapshots.
//
// Every search is an exhaustive scan, so results are the true top-k by
// distance: the accuracy/latency axis sits at the exact end, which is the
// right trade for the corpus this store targets (thousands to low millions
// of vectors on one machine). An approximate backend with a recall knob
// would slot in behind the same port without changing query semantics.
//
// Writers serialise on a mutex, build a new immutable snapshot and publish
// it atomically; readers search whichever snapshot they loaded and are
// never blocked. A search issued after Insert, Remove or ApplyBatch
// returns observes that mutation.
package flat

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
)

// Ensure Index implements the port.
var _ driven.VectorIndex = (*Index)(nil)

// entry is one indexed vector. Under the cosine metric the vector is
// stored pre-normalised.
type entry struct {
	id       string
	vector   []float32
	metadata map[string]any
}

// snapshot is an immutable published state of the index.
type snapshot struct {
	entries []entry
	byID    map[string]int
}

var emptySnapshot = &snapshot{byID: map[string]int{}}

// Index is the exact, snapshot-published vector index.
type Index struct {
	metric domain.Metric

	mu      sync.Mutex // serialises writers
	current atomic.Pointer[snapshot]
}

// New creates an empty index scoring under the given metric.
func New(metric domain.Metric) *Index {
	idx := &Index{metric: metric}
	idx.current.Store(emptySnapshot)
	return idx
}

// Metric returns the configured distance metric.
func (idx *Index) Metric() domain.Metric {
	return idx.metric
}

// Build constructs the index from scratch, replacing any contents.
func (idx *Index) Build(_ context.Context, entries []driven.IndexEntry) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	next := &snapshot{
		entries: make([]entry, 0, len(entries)),
		byID:    make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if err := next.add(idx.prepare(e)); err != nil {
			return err
		}
	}

	idx.current.Store(next)
	return nil
}

// Insert adds or replaces one entry.
func (idx *Index) Insert(_ context.Context, e driven.IndexEntry) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	next := idx.current.Load().clone()
	if err := next.add(idx.prepare(e)); err != nil {
		return err
	}

	idx.current.Store(next)
	return nil
}

// Remove deletes an entry by record ID. Removing an absent ID is a no-op.
func (idx *Index) Remove(_ context.Context, id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	current := idx.current.Load()
	if _, ok := current.byID[id]; !ok {
		return nil
	}

	next := current.clone()
	next.remove(id)

	idx.current.Store(next)
	return nil
}

// ApplyBatch atomically removes removeIDs and inserts add. Concurrent
// searches observe the state before the batch or after it, never a mix.
func (idx *Index) ApplyBatch(_ context.Context, removeIDs []string, add []driven.IndexEntry) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	next := idx.current.Load().clone()
	for _, id := range removeIDs {
		next.remove(id)
	}
	for _, e := range add {
		if err := next.add(idx.prepare(e)); err != nil {
			return err
		}
	}

	idx.current.Store(next)
	return nil
}

// Search returns the k entries nearest to query, ordered by decreasing
// score with ties broken by ascending record ID. The predicate is applied
// during the scan, never as post-hoc truncation, so fewer than k results
// means fewer than k eligible entries exist.
func (idx *Index) Search(
	ctx context.Context, query []float32, k int, p domain.Predicate,
) ([]domain.QueryHit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive", domain.ErrInvalidInput)
	}
	if len(query) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", domain.ErrInvalidInput)
	}

	q := query
	if idx.metric == domain.MetricCosine {
		norm := vectorNorm(query)
		if norm == 0 {
			return nil, domain.ErrZeroVector
		}
		q = normalized(query, norm)
	}

	current := idx.current.Load()

	hits := make([]domain.QueryHit, 0, len(current.entries))
	for i := range current.entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		e := &current.entries[i]
		if len(e.vector) != len(q) {
			return nil, fmt.Errorf("%w: index dimension %d, query dimension %d",
				domain.ErrDimensionMismatch, len(e.vector), len(q))
		}
		if !p.Matches(e.metadata) {
			continue
		}

		hits = append(hits, domain.QueryHit{
			RecordID: e.id,
			Score:    idx.score(e.vector, q),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].RecordID < hits[j].RecordID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of indexed entries.
func (idx *Index) Len() int {
	return len(idx.current.Load().entries)
}

// Close releases resources.
func (idx *Index) Close() error {
	idx.current.Store(emptySnapshot)
	return nil
}

// Verify checks the index against the authoritative record store. A count
// or dimension mismatch returns domain.ErrIndexInconsistent, signalling
// the caller to rebuild from the store.
func (idx *Index) Verify(storeCount, storeDimension int) error {
	current := idx.current.Load()

	if len(current.entries) != storeCount {
		return fmt.Errorf("%w: index has %d entries, store has %d records",
			domain.ErrIndexInconsistent, len(current.entries), storeCount)
	}
	if storeDimension > 0 && len(current.entries) > 0 &&
		len(current.entries[0].vector) != storeDimension {
		return fmt.Errorf("%w: index dimension %d, store dimension %d",
			domain.ErrIndexInconsistent, len(current.entries[0].vector), storeDimension)
	}
	return nil
}

// prepare converts a port entry into the internal form, normalising the
// vector under the cosine metric so scores are magnitude-independent.
func (idx *Index) prepare(e driven.IndexEntry) entry {
	vector := e.Vector
	if idx.metric == domain.MetricCosine {
		if norm := vectorNorm(e.Vector); norm > 0 {
			vector = normalized(e.Vector, norm)
		}
	}
	return entry{id: e.ID, vector: vector, metadata: e.Metadata}
}

// score computes the similarity of a stored vector against the prepared
// query. Higher is more similar for every metric: cosine scores are dot
// products of unit vectors in [-1, 1]; Euclidean scores are negated
// distances.
func (idx *Index) score(stored, query []float32) float64 {
	if idx.metric == domain.MetricEuclidean {
		var sum float64
		for i := range stored {
			d := float64(stored[i]) - float64(query[i])
			sum += d * d
		}
		return -math.Sqrt(sum)
	}

	var dot float64
	for i := range stored {
		dot += float64(stored[i]) * float64(query[i])
	}
	return dot
}

// clone copies the snapshot for mutation by a writer.
func (s *snapshot) clone() *snapshot {
	next := &snapshot{
		entries: make([]entry, len(s.entries)),
		byID:    make(map[string]int, len(s.byID)),
	}
	copy(next.entries, s.entries)
	for id, i := range s.byID {
		next.byID[id] = i
	}
	return next
}

// add inserts or replaces an entry, enforcing one dimensionality across
// the index.
func (s *snapshot) add(e entry) error {
	if e.id == "" || len(e.vector) == 0 {
		return fmt.Errorf("%w: index entry needs an ID and a vector", domain.ErrInvalidInput)
	}
	if len(s.entries) > 0 && len(e.vector) != len(s.entries[0].vector) {
		return fmt.Errorf("%w: index dimension %d, entry dimension %d",
			domain.ErrDimensionMismatch, len(s.entries[0].vector), len(e.vector))
	}

	if i, ok := s.byID[e.id]; ok {
		s.entries[i] = e
		return nil
	}
	s.byID[e.id] = len(s.entries)
	s.entries = append(s.entries, e)
	return nil
}

// remove deletes an entry by ID, keeping byID dense via swap-remove.
func (s *snapshot) remove(id string) {
	i, ok := s.byID[id]
	if !ok {
		return
	}

	last := len(s.entries) - 1
	if i != last {
		s.entries[i] = s.entries[last]
		s.byID[s.entries[i].id] = i
	}
	s.entries = s.entries[:last]
	delete(s.byID, id)
}

// vectorNorm returns the Euclidean norm.
func vectorNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// normalized returns a unit-length copy of v.
func normalized(v []float32, norm float64) []float32 {
	unit := make([]float32, len(v))
	for i, x := range v {
		unit[i] = float32(float64(x) / norm)
	}
	return unit
}
