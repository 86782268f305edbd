// Package filesystem provides the document loader adapter for local files.
package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/normalise"
)

// Ensure Loader implements the interface.
var _ driven.DocumentLoader = (*Loader)(nil)

// Loader reads source documents from the local filesystem. Source IDs are
// the cleaned file paths, which keeps them stable across ingestion runs.
type Loader struct{}

// New creates a filesystem loader.
func New() *Loader {
	return &Loader{}
}

// Load returns the text content of the file at path, normalised to plain
// text for marked-up formats. Missing files map to domain.ErrNotFound;
// other failures are wrapped read errors. Both are per-source recoverable
// during ingestion.
func (l *Loader) Load(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	return normalise.ForPath(path)(string(data)), nil
}

// Expand resolves paths to loadable source IDs, descending into
// directories. Hidden files and directories are skipped. The result is
// sorted and de-duplicated so ingestion order is deterministic.
func (l *Loader) Expand(ctx context.Context, paths []string) ([]string, error) {
	seen := make(map[string]struct{})
	var sources []string

	add := func(path string) {
		path = filepath.Clean(path)
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		sources = append(sources, path)
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
			}
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}

		if !info.IsDir() {
			add(path)
			continue
		}

		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if hidden(d.Name()) && p != path {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.IsDir() && d.Type().IsRegular() {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", path, err)
		}
	}

	sort.Strings(sources)
	return sources, nil
}

// hidden reports whether a file or directory name is dot-prefixed.
func hidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
