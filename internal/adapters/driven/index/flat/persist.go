package flat

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// IndexFileName is the serialized index file inside the store directory.
const IndexFileName = "index.gob"

// persistedEntry is the on-disk form of an index entry.
type persistedEntry struct {
	ID       string
	Vector   []float32
	Metadata map[string]any
}

// persistedIndex is the on-disk form of the whole index.
type persistedIndex struct {
	Metric  domain.Metric
	Entries []persistedEntry
}

// Save serialises the current snapshot into dir. The write goes through a
// temp file and rename so a crash never leaves a truncated index; the
// index is rebuildable from the record store regardless.
func (idx *Index) Save(dir string) error {
	current := idx.current.Load()

	out := persistedIndex{
		Metric:  idx.metric,
		Entries: make([]persistedEntry, 0, len(current.entries)),
	}
	for i := range current.entries {
		e := &current.entries[i]
		out.Entries = append(out.Entries, persistedEntry{
			ID:       e.id,
			Vector:   e.vector,
			Metadata: e.metadata,
		})
	}

	tmp, err := os.CreateTemp(dir, IndexFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating index temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if err := gob.NewEncoder(tmp).Encode(out); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing index temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(dir, IndexFileName)); err != nil {
		return fmt.Errorf("replacing index file: %w", err)
	}
	return nil
}

// Load reads a serialized index from dir. A missing file returns
// domain.ErrNotFound; a file written under a different metric, or one
// that fails to decode, returns domain.ErrIndexInconsistent so the caller
// rebuilds from the record store.
func Load(dir string, metric domain.Metric) (*Index, error) {
	f, err := os.Open(filepath.Join(dir, IndexFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("opening index file: %w", err)
	}
	defer f.Close()

	var in persistedIndex
	if err := gob.NewDecoder(f).Decode(&in); err != nil {
		return nil, fmt.Errorf("%w: decoding index: %v", domain.ErrIndexInconsistent, err)
	}
	if in.Metric != metric {
		return nil, fmt.Errorf("%w: index metric %q, configured metric %q",
			domain.ErrIndexInconsistent, in.Metric, metric)
	}

	idx := New(metric)
	next := &snapshot{
		entries: make([]entry, 0, len(in.Entries)),
		byID:    make(map[string]int, len(in.Entries)),
	}
	for _, e := range in.Entries {
		// Vectors were prepared before saving; add enforces dimensionality.
		if err := next.add(entry{id: e.ID, vector: e.Vector, metadata: e.Metadata}); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrIndexInconsistent, err)
		}
	}
	idx.current.Store(next)

	return idx, nil
}
