package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driving"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// Ensure Retriever implements the driving port.
var _ driving.QueryService = (*Retriever)(nil)

// Retriever answers free-text queries: embed the text, search the index
// and hydrate the hits from the record store.
type Retriever struct {
	records  driven.RecordStore
	index    driven.VectorIndex
	embedder driven.EmbeddingService
	defaultK int
}

// NewRetriever creates the query service. defaultK is the result count
// used when a query does not specify one; zero means domain.DefaultK.
func NewRetriever(
	records driven.RecordStore,
	index driven.VectorIndex,
	embedder driven.EmbeddingService,
	defaultK int,
) *Retriever {
	if defaultK <= 0 {
		defaultK = domain.DefaultK
	}
	return &Retriever{
		records:  records,
		index:    index,
		embedder: embedder,
		defaultK: defaultK,
	}
}

// Query embeds text and returns the most similar stored chunks, ranked
// by decreasing score. Embedding failures surface to the caller; a query
// that embeds to the zero vector is rejected with domain.ErrZeroVector.
func (r *Retriever) Query(ctx context.Context, text string, opts domain.QueryOptions) ([]domain.RetrievedChunk, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	k := opts.K
	if k <= 0 {
		k = r.defaultK
	}

	vector, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if zeroVector(vector) {
		return nil, fmt.Errorf("%w: query embedded to the zero vector", domain.ErrZeroVector)
	}

	return r.search(ctx, text, vector, k, opts.Filter)
}

// search runs the index query and hydrates the hits. Hits can go stale
// when their records left the store after the snapshot was taken; those
// are skipped, and the search re-runs with a larger k so the caller
// still receives k results whenever k eligible records exist. Fewer than
// k results means the index was exhausted.
func (r *Retriever) search(
	ctx context.Context,
	text string,
	vector []float32,
	k int,
	filter domain.Predicate,
) ([]domain.RetrievedChunk, error) {
	searchK := k
	for {
		hits, err := r.index.Search(ctx, vector, searchK, filter)
		if err != nil {
			return nil, fmt.Errorf("searching index: %w", err)
		}
		logger.Debug("query %q: %d hits", text, len(hits))

		results, err := r.hydrate(ctx, hits)
		if err != nil {
			return nil, err
		}
		if len(results) >= k {
			return results[:k], nil
		}
		if len(hits) < searchK {
			// Every eligible entry was scanned; nothing more to fetch.
			return results, nil
		}

		skipped := len(hits) - len(results)
		searchK = len(hits) + skipped
		logger.Debug("query %q: %d stale hits, refetching with k=%d", text, skipped, searchK)
	}
}

// hydrate resolves index hits into full chunks. Hits whose record has
// vanished or failed its integrity check are skipped, not fatal.
func (r *Retriever) hydrate(ctx context.Context, hits []domain.QueryHit) ([]domain.RetrievedChunk, error) {
	results := make([]domain.RetrievedChunk, 0, len(hits))
	for _, hit := range hits {
		record, err := r.records.Get(ctx, hit.RecordID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrCorruptRecord) {
				logger.Warn("skipping unresolvable hit %s: %v", hit.RecordID, err)
				continue
			}
			return nil, fmt.Errorf("hydrating hit %s: %w", hit.RecordID, err)
		}
		results = append(results, domain.RetrievedChunk{
			RecordID:   record.ID,
			SourceID:   record.SourceID,
			ChunkIndex: record.ChunkIndex,
			Text:       record.Text,
			Score:      hit.Score,
			Metadata:   record.Metadata,
		})
	}
	return results, nil
}

// zeroVector reports whether every component is zero.
func zeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
