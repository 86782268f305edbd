package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourcesCmd_Use(t *testing.T) {
	assert.Equal(t, "sources", sourcesCmd.Use)
}

func TestSourcesCmd_ListsManifests(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"sources"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "docs/a.txt")
	assert.Contains(t, buf.String(), "3 chunks")
	assert.Contains(t, buf.String(), "0f343b093112")
	assert.Contains(t, buf.String(), "2026-08-01")
}

func TestSourcesCmd_EmptyStore(t *testing.T) {
	ingestor, _, cleanup := setupTestServices()
	defer cleanup()
	ingestor.manifests = nil

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"sources"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No sources ingested yet")
}

func TestSourcesCmd_ServiceNotConfigured(t *testing.T) {
	oldService := ingestService
	ingestService = nil
	defer func() { ingestService = oldService }()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"sources"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ingest service not configured")
}

func TestShortHash(t *testing.T) {
	assert.Equal(t, "abcdef012345", shortHash("abcdef0123456789"))
	assert.Equal(t, "abc", shortHash("abc"))
}
