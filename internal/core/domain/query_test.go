package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetric(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Metric
		wantErr bool
	}{
		{name: "cosine", input: "cosine", want: MetricCosine},
		{name: "euclidean", input: "euclidean", want: MetricEuclidean},
		{name: "empty defaults to cosine", input: "", want: MetricCosine},
		{name: "unknown", input: "manhattan", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMetric(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIngestReport_Counts(t *testing.T) {
	report := IngestReport{
		Sources: []SourceResult{
			{SourceID: "a.txt", State: SourceStored, Chunks: 3},
			{SourceID: "b.txt", State: SourceUnchanged, Chunks: 2},
			{SourceID: "c.txt", State: SourceFailed, Err: ErrEmbeddingUnavailable},
			{SourceID: "d.txt", State: SourceStored, Chunks: 1},
		},
	}

	counts := report.Counts()
	assert.Equal(t, 2, counts[SourceStored])
	assert.Equal(t, 1, counts[SourceUnchanged])
	assert.Equal(t, 1, counts[SourceFailed])

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "c.txt", failed[0].SourceID)
}
