package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	writeFile(t, path, "hello")

	loader := New()
	text, err := loader.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestLoad_NormalisesMarkup(t *testing.T) {
	dir := t.TempDir()
	md := filepath.Join(dir, "readme.md")
	writeFile(t, md, "# Heading\n\nbody text")

	loader := New()
	text, err := loader.Load(context.Background(), md)
	require.NoError(t, err)
	assert.Equal(t, "Heading\n\nbody text", text)

	page := filepath.Join(dir, "page.html")
	writeFile(t, page, "<p>hello &amp; welcome</p>")
	text, err = loader.Load(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, "hello & welcome", text)
}

func TestLoad_NotFound(t *testing.T) {
	loader := New()
	_, err := loader.Load(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestExpand_FilesAndDirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "docs", "b.txt"), "b")
	writeFile(t, filepath.Join(dir, "docs", "a.txt"), "a")
	writeFile(t, filepath.Join(dir, "docs", "nested", "c.txt"), "c")
	writeFile(t, filepath.Join(dir, "docs", ".hidden"), "x")
	writeFile(t, filepath.Join(dir, "docs", ".git", "config"), "x")
	writeFile(t, filepath.Join(dir, "single.txt"), "s")

	loader := New()
	sources, err := loader.Expand(context.Background(), []string{
		filepath.Join(dir, "docs"),
		filepath.Join(dir, "single.txt"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "docs", "a.txt"),
		filepath.Join(dir, "docs", "b.txt"),
		filepath.Join(dir, "docs", "nested", "c.txt"),
		filepath.Join(dir, "single.txt"),
	}, sources)
}

func TestExpand_MissingPath(t *testing.T) {
	loader := New()
	_, err := loader.Expand(context.Background(), []string{filepath.Join(t.TempDir(), "nope")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestExpand_Deterministic(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"z.txt", "m.txt", "a.txt"} {
		writeFile(t, filepath.Join(dir, name), name)
	}

	loader := New()
	first, err := loader.Expand(context.Background(), []string{dir})
	require.NoError(t, err)
	second, err := loader.Expand(context.Background(), []string{dir})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
