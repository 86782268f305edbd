package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_EmptyText(t *testing.T) {
	c := New()
	assert.Empty(t, c.Split(""))
}

func TestSplit_SingleChunkNoOverlap(t *testing.T) {
	c := New(WithChunkSize(100), WithOverlap(20))

	chunks := c.Split("short text")
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, len("short text"), chunks[0].End)
	assert.Equal(t, "short text", chunks[0].Text)
}

func TestSplit_HardCutsShareExactOverlap(t *testing.T) {
	c := New(WithChunkSize(500), WithOverlap(50))
	text := strings.Repeat("a", 1200)

	chunks := c.Split(text)
	require.Len(t, chunks, 3)

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, text[chunk.Start:chunk.End], chunk.Text)
	}

	// Adjacent chunks share exactly the configured overlap.
	assert.Equal(t, 50, chunks[0].End-chunks[1].Start)
	assert.Equal(t, 50, chunks[1].End-chunks[2].Start)
	assert.Equal(t, len(text), chunks[2].End)
}

func TestSplit_PrefersParagraphBoundary(t *testing.T) {
	c := New(WithChunkSize(100), WithOverlap(0))
	first := strings.Repeat("x", 80)
	second := strings.Repeat("y", 80)
	text := first + "\n\n" + second

	chunks := c.Split(text)
	require.Len(t, chunks, 2)
	assert.Equal(t, first+"\n\n", chunks[0].Text)
	assert.Equal(t, second, chunks[1].Text)
}

func TestSplit_PrefersSentenceBoundary(t *testing.T) {
	c := New(WithChunkSize(100), WithOverlap(0))
	first := strings.Repeat("x", 78) + ". "
	second := strings.Repeat("y", 80)

	chunks := c.Split(first + second)
	require.Len(t, chunks, 2)
	assert.Equal(t, first, chunks[0].Text)
	assert.Equal(t, second, chunks[1].Text)
}

func TestSplit_Deterministic(t *testing.T) {
	c := New(WithChunkSize(64), WithOverlap(16))
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)

	a := c.Split(text)
	b := c.Split(text)
	assert.Equal(t, a, b)
}

func TestSplit_IndexIsDenseAndZeroBased(t *testing.T) {
	c := New(WithChunkSize(50), WithOverlap(10))
	chunks := c.Split(strings.Repeat("z", 400))

	require.NotEmpty(t, chunks)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.NotEmpty(t, chunk.Text)
	}
}

func TestSplit_NeverCutsMidRune(t *testing.T) {
	c := New(WithChunkSize(10), WithOverlap(2))
	text := strings.Repeat("héllo wörld ", 10)

	for _, chunk := range c.Split(text) {
		assert.True(t, len(chunk.Text) > 0)
		assert.Equal(t, text[chunk.Start:chunk.End], chunk.Text)
	}
}

func TestNew_OverlapClampedBelowChunkSize(t *testing.T) {
	c := New(WithChunkSize(100), WithOverlap(200))
	assert.Equal(t, 25, c.overlap)
}
