package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driving"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// DefaultDebounce is the quiet period after a filesystem event before a
// re-ingestion is triggered. Editors tend to emit bursts of events per
// save; debouncing collapses each burst into one run.
const DefaultDebounce = 500 * time.Millisecond

// Watcher re-runs ingestion whenever the watched paths change.
type Watcher struct {
	ingestor driving.Ingestor
	debounce time.Duration
}

// NewWatcher creates a watcher that drives ingestor. debounce <= 0 uses
// DefaultDebounce.
func NewWatcher(ingestor driving.Ingestor, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{ingestor: ingestor, debounce: debounce}
}

// Watch ingests paths once, then blocks re-ingesting on every change
// until ctx is cancelled. onReport, when non-nil, receives the report of
// each completed run.
func (w *Watcher) Watch(ctx context.Context, paths []string, onReport func(*domain.IngestReport)) error {
	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer notifier.Close()

	for _, path := range paths {
		if err := addWatchTarget(notifier, path); err != nil {
			return err
		}
	}

	run := func() {
		report, err := w.ingestor.Ingest(ctx, paths)
		if err != nil {
			logger.Warn("watch ingestion failed: %v", err)
			return
		}
		if onReport != nil {
			onReport(report)
		}
	}

	run()

	var timer *time.Timer
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-notifier.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			logger.Debug("change detected: %s", event)
			// Newly created directories are not watched automatically.
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = notifier.Add(event.Name)
				}
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			run()

		case err, ok := <-notifier.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error: %v", err)
		}
	}
}

// addWatchTarget watches path itself when it is a directory (and its
// subdirectories), or its parent when it is a file.
func addWatchTarget(notifier *fsnotify.Watcher, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	if !info.IsDir() {
		return notifier.Add(filepath.Dir(path))
	}

	return filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := notifier.Add(p); err != nil {
				return fmt.Errorf("watching %s: %w", p, err)
			}
		}
		return nil
	})
}

// relevant filters out event types that cannot change ingestible
// content.
func relevant(event fsnotify.Event) bool {
	return event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) ||
		event.Has(fsnotify.Rename)
}
