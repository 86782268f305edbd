// Package chunker splits raw document text into overlapping retrievable
// units with stable byte offsets.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// DefaultChunkSize is the default maximum number of bytes per chunk.
const DefaultChunkSize = 500

// DefaultOverlap is the default number of overlapping bytes between
// adjacent chunks.
const DefaultOverlap = 50

// sentenceBreaks are the separators tried after paragraph breaks, in
// preference order.
var sentenceBreaks = []string{". ", ".\n", "! ", "!\n", "? ", "?\n", "\n"}

// Chunker splits text on paragraph and sentence boundaries where possible,
// falling back to hard cuts when a single unit exceeds the chunk size.
// Splitting is deterministic: identical input and parameters always yield
// identical chunk boundaries.
type Chunker struct {
	maxSize int
	overlap int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the maximum chunk size in bytes.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.maxSize = size
		}
	}
}

// WithOverlap sets the overlap between adjacent chunks in bytes.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		maxSize: DefaultChunkSize,
		overlap: DefaultOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Overlap must leave room for the chunk to advance
	if c.overlap >= c.maxSize {
		c.overlap = c.maxSize / 4
	}

	return c
}

// Split produces the ordered chunk sequence for text. Empty text yields
// zero chunks. A source that fits in a single chunk carries no overlap.
func (c *Chunker) Split(text string) []domain.Chunk {
	if text == "" {
		return nil
	}

	if len(text) <= c.maxSize {
		return []domain.Chunk{{Index: 0, Start: 0, End: len(text), Text: text}}
	}

	estimated := len(text)/(c.maxSize-c.overlap) + 1
	chunks := make([]domain.Chunk, 0, estimated)

	start := 0
	for start < len(text) {
		end := start + c.maxSize
		if end >= len(text) {
			end = len(text)
		} else {
			end = c.breakPoint(text, start, end)
		}

		chunks = append(chunks, domain.Chunk{
			Index: len(chunks),
			Start: start,
			End:   end,
			Text:  text[start:end],
		})

		if end == len(text) {
			break
		}

		// Adjacent chunks share exactly c.overlap bytes of context.
		next := end - c.overlap
		if next <= start {
			next = end
		}
		// Never start a chunk mid-rune.
		for next < len(text) && !utf8.RuneStart(text[next]) {
			next++
		}
		start = next
	}

	return chunks
}

// breakPoint picks the split position within (start, limit], preferring a
// paragraph break, then a sentence break, then a rune-aligned hard cut.
// Breaks in the first half of the window are ignored so chunks do not
// degenerate.
func (c *Chunker) breakPoint(text string, start, limit int) int {
	window := text[start:limit]
	minBreak := c.maxSize / 2

	if i := strings.LastIndex(window, "\n\n"); i >= minBreak {
		return start + i + 2
	}

	best := -1
	for _, sep := range sentenceBreaks {
		if i := strings.LastIndex(window, sep); i >= minBreak && i+len(sep) > best {
			best = i + len(sep)
		}
	}
	if best > 0 {
		return start + best
	}

	cut := limit
	for cut > start && !utf8.RuneStart(text[cut]) {
		cut--
	}
	if cut == start {
		cut = limit
	}
	return cut
}
