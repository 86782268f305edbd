package flat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
)

func entry3(id string, x, y, z float32) driven.IndexEntry {
	return driven.IndexEntry{ID: id, Vector: []float32{x, y, z}}
}

func ids(hits []domain.QueryHit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.RecordID
	}
	return out
}

func TestSearch_CosineRanking(t *testing.T) {
	ctx := context.Background()
	idx := New(domain.MetricCosine)

	// The canonical 3-d scenario: C is more similar to the query than B.
	require.NoError(t, idx.Build(ctx, []driven.IndexEntry{
		entry3("A", 1, 0, 0),
		entry3("B", 0, 1, 0),
		entry3("C", 0.9, 0.1, 0),
	}))

	hits, err := idx.Search(ctx, []float32{1, 0, 0}, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, ids(hits))

	// Scores are non-increasing and inside [-1, 1].
	for i, h := range hits {
		assert.LessOrEqual(t, h.Score, 1.0)
		assert.GreaterOrEqual(t, h.Score, -1.0)
		if i > 0 {
			assert.LessOrEqual(t, h.Score, hits[i-1].Score)
		}
	}
}

func TestSearch_CosineIgnoresMagnitude(t *testing.T) {
	ctx := context.Background()
	idx := New(domain.MetricCosine)

	require.NoError(t, idx.Build(ctx, []driven.IndexEntry{
		entry3("long", 100, 0, 0),
		entry3("short", 0.9, 0.1, 0),
	}))

	hits, err := idx.Search(ctx, []float32{1, 0, 0}, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"long", "short"}, ids(hits))
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
}

func TestSearch_EuclideanMetric(t *testing.T) {
	ctx := context.Background()
	idx := New(domain.MetricEuclidean)

	require.NoError(t, idx.Build(ctx, []driven.IndexEntry{
		entry3("near", 1, 0, 0),
		entry3("far", 10, 0, 0),
	}))

	hits, err := idx.Search(ctx, []float32{0, 0, 0}, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"near", "far"}, ids(hits))
	assert.InDelta(t, -1.0, hits[0].Score, 1e-6)
}

func TestSearch_TiesBreakByAscendingID(t *testing.T) {
	ctx := context.Background()
	idx := New(domain.MetricCosine)

	require.NoError(t, idx.Build(ctx, []driven.IndexEntry{
		entry3("b", 1, 0, 0),
		entry3("a", 1, 0, 0),
		entry3("c", 1, 0, 0),
	}))

	hits, err := idx.Search(ctx, []float32{1, 0, 0}, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(hits))
}

func TestSearch_PredicateIsHardFilter(t *testing.T) {
	ctx := context.Background()
	idx := New(domain.MetricCosine)

	// The best-scoring entries fail the predicate; the filter must still
	// surface k eligible entries, not truncate them away.
	entries := []driven.IndexEntry{
		{ID: "top1", Vector: []float32{1, 0, 0}, Metadata: map[string]any{"lang": "go"}},
		{ID: "top2", Vector: []float32{0.99, 0.01, 0}, Metadata: map[string]any{"lang": "go"}},
		{ID: "mid", Vector: []float32{0.5, 0.5, 0}, Metadata: map[string]any{"lang": "rust"}},
		{ID: "low", Vector: []float32{0, 1, 0}, Metadata: map[string]any{"lang": "rust"}},
	}
	require.NoError(t, idx.Build(ctx, entries))

	hits, err := idx.Search(ctx, []float32{1, 0, 0}, 2, domain.MatchEquals("lang", "rust"))
	require.NoError(t, err)
	require.Len(t, hits, 2, "two eligible entries exist, both must be returned")
	assert.Equal(t, []string{"mid", "low"}, ids(hits))
}

func TestSearch_FewerThanKOnlyWhenFewerEligible(t *testing.T) {
	ctx := context.Background()
	idx := New(domain.MetricCosine)

	require.NoError(t, idx.Build(ctx, []driven.IndexEntry{
		entry3("only", 1, 0, 0),
	}))

	hits, err := idx.Search(ctx, []float32{1, 0, 0}, 5, nil)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestSearch_ZeroQueryVectorRejected(t *testing.T) {
	ctx := context.Background()
	idx := New(domain.MetricCosine)
	require.NoError(t, idx.Insert(ctx, entry3("a", 1, 0, 0)))

	_, err := idx.Search(ctx, []float32{0, 0, 0}, 1, nil)
	assert.ErrorIs(t, err, domain.ErrZeroVector)
}

func TestSearch_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	idx := New(domain.MetricCosine)
	require.NoError(t, idx.Insert(ctx, entry3("a", 1, 0, 0)))

	_, err := idx.Search(ctx, []float32{1, 0}, 1, nil)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestInsertRemove_ReadAfterWrite(t *testing.T) {
	ctx := context.Background()
	idx := New(domain.MetricCosine)

	require.NoError(t, idx.Insert(ctx, entry3("a", 1, 0, 0)))
	hits, err := idx.Search(ctx, []float32{1, 0, 0}, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(hits))

	require.NoError(t, idx.Remove(ctx, "a"))
	hits, err = idx.Search(ctx, []float32{1, 0, 0}, 1, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)

	// Removing an absent ID is a no-op.
	require.NoError(t, idx.Remove(ctx, "a"))
	assert.Equal(t, 0, idx.Len())
}

func TestApplyBatch_AtomicSwap(t *testing.T) {
	ctx := context.Background()
	idx := New(domain.MetricCosine)

	require.NoError(t, idx.Build(ctx, []driven.IndexEntry{
		entry3("old1", 1, 0, 0),
		entry3("old2", 0, 1, 0),
	}))

	err := idx.ApplyBatch(ctx, []string{"old1", "old2"}, []driven.IndexEntry{
		entry3("new1", 0, 0, 1),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, idx.Len())
	hits, err := idx.Search(ctx, []float32{0, 0, 1}, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"new1"}, ids(hits))
}

func TestApplyBatch_ConcurrentReadersSeeOldOrNewSet(t *testing.T) {
	ctx := context.Background()
	idx := New(domain.MetricCosine)

	require.NoError(t, idx.Build(ctx, []driven.IndexEntry{
		entry3("old1", 1, 0, 0),
		entry3("old2", 0.9, 0.1, 0),
	}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			hits, err := idx.Search(ctx, []float32{1, 0, 0}, 10, nil)
			assert.NoError(t, err)
			// Either the complete old set or the complete new set.
			assert.Len(t, hits, 2)
		}
	}()

	for i := 0; i < 50; i++ {
		require.NoError(t, idx.ApplyBatch(ctx,
			[]string{"old1", "old2", "new1", "new2"},
			[]driven.IndexEntry{entry3("old1", 1, 0, 0), entry3("old2", 0.9, 0.1, 0)}))
		require.NoError(t, idx.ApplyBatch(ctx,
			[]string{"old1", "old2"},
			[]driven.IndexEntry{entry3("new1", 0, 1, 0), entry3("new2", 0, 0.9, 0.1)}))
	}
	<-done
}

func TestVerify(t *testing.T) {
	ctx := context.Background()
	idx := New(domain.MetricCosine)
	require.NoError(t, idx.Insert(ctx, entry3("a", 1, 0, 0)))

	assert.NoError(t, idx.Verify(1, 3))
	assert.ErrorIs(t, idx.Verify(2, 3), domain.ErrIndexInconsistent)
	assert.ErrorIs(t, idx.Verify(1, 4), domain.ErrIndexInconsistent)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	idx := New(domain.MetricCosine)
	require.NoError(t, idx.Build(ctx, []driven.IndexEntry{
		{ID: "a", Vector: []float32{1, 0, 0}, Metadata: map[string]any{"lang": "go"}},
		entry3("b", 0, 1, 0),
	}))
	require.NoError(t, idx.Save(dir))

	loaded, err := Load(dir, domain.MetricCosine)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())

	hits, err := loaded.Search(ctx, []float32{1, 0, 0}, 1, domain.MatchEquals("lang", "go"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(hits))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(t.TempDir(), domain.MetricCosine)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLoad_MetricMismatch(t *testing.T) {
	dir := t.TempDir()
	idx := New(domain.MetricCosine)
	require.NoError(t, idx.Insert(context.Background(), entry3("a", 1, 0, 0)))
	require.NoError(t, idx.Save(dir))

	_, err := Load(dir, domain.MetricEuclidean)
	assert.ErrorIs(t, err, domain.ErrIndexInconsistent)
}
