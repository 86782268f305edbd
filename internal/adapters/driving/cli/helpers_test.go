package cli

import (
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// mockIngestor returns a canned report.
type mockIngestor struct {
	report    *domain.IngestReport
	manifests []domain.SourceManifest
	lastPaths []string
}

func (m *mockIngestor) Ingest(_ context.Context, paths []string) (*domain.IngestReport, error) {
	m.lastPaths = paths
	if m.report != nil {
		return m.report, nil
	}
	return &domain.IngestReport{
		Sources: []domain.SourceResult{
			{SourceID: "docs/a.txt", State: domain.SourceStored, Chunks: 3},
			{SourceID: "docs/b.txt", State: domain.SourceUnchanged, Chunks: 2},
		},
		EmbedCalls: 3,
		StartedAt:  time.Now(),
		FinishedAt: time.Now().Add(10 * time.Millisecond),
	}, nil
}

func (m *mockIngestor) Sources(_ context.Context) ([]domain.SourceManifest, error) {
	return m.manifests, nil
}

// mockQueryService returns canned results and records the options it saw.
type mockQueryService struct {
	results  []domain.RetrievedChunk
	lastText string
	lastOpts domain.QueryOptions
}

func (m *mockQueryService) Query(_ context.Context, text string, opts domain.QueryOptions) ([]domain.RetrievedChunk, error) {
	m.lastText = text
	m.lastOpts = opts
	return m.results, nil
}

// mockQueryServiceError always fails.
type mockQueryServiceError struct{}

func (m *mockQueryServiceError) Query(context.Context, string, domain.QueryOptions) ([]domain.RetrievedChunk, error) {
	return nil, errors.New("embedding provider unreachable")
}

// setupTestServices installs mock services and returns a cleanup that
// restores the previous wiring.
func setupTestServices() (ingestor *mockIngestor, querier *mockQueryService, cleanup func()) {
	oldIngest, oldQuery, oldWatch := ingestService, queryService, watchService

	ingestor = &mockIngestor{
		manifests: []domain.SourceManifest{
			{
				SourceID:       "docs/a.txt",
				ContentHash:    "0f343b0931126a20f133d67c2b018a3b1a3b1a3b",
				ChunkCount:     3,
				LastIngestedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
			},
		},
	}
	querier = &mockQueryService{
		results: []domain.RetrievedChunk{
			{
				RecordID:   "rec-1",
				SourceID:   "docs/a.txt",
				ChunkIndex: 0,
				Text:       "semantic retrieval keeps your notes searchable",
				Score:      0.91,
				Metadata:   map[string]any{"source": "docs/a.txt"},
			},
		},
	}

	ingestService = ingestor
	queryService = querier
	watchService = nil

	return ingestor, querier, func() {
		ingestService, queryService, watchService = oldIngest, oldQuery, oldWatch
	}
}
