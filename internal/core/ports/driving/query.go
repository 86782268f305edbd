package driving

import (
	"context"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// QueryService answers free-text retrieval queries.
type QueryService interface {
	// Query embeds the text and returns the most similar stored chunks,
	// ranked by decreasing score, with source attribution. Embedding
	// failures surface to the caller.
	Query(ctx context.Context, text string, opts domain.QueryOptions) ([]domain.RetrievedChunk, error)
}
