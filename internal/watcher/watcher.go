// Package watcher polls a repository for file changes and triggers
// re-indexing. Polling keeps the dependency surface flat and works on
// network filesystems; the adaptive interval keeps large trees cheap.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/codegraph-dev/codegraph/internal/discover"
)

const (
	baseInterval = 1 * time.Second
	maxInterval  = 60 * time.Second
)

type fileSnapshot struct {
	modTime time.Time
	size    int64
}

// IndexFunc is called when the watched tree changed.
type IndexFunc func(ctx context.Context) error

// Watcher polls one repository. The first poll captures a baseline
// without triggering an index; later polls compare mtime and size.
type Watcher struct {
	repoPath string
	indexFn  IndexFunc

	snapshot map[string]fileSnapshot
	interval time.Duration
	nextPoll time.Time
}

// New creates a Watcher for a repository root.
func New(repoPath string, indexFn IndexFunc) *Watcher {
	return &Watcher{repoPath: repoPath, indexFn: indexFn, interval: baseInterval}
}

// Run blocks until ctx is cancelled, polling whenever the adaptive
// interval has elapsed.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(baseInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if time.Now().Before(w.nextPoll) {
				continue
			}
			w.poll(ctx)
		}
	}
}

func (w *Watcher) poll(ctx context.Context) {
	if _, err := os.Stat(w.repoPath); err != nil {
		slog.Warn("watcher.root_gone", "path", w.repoPath)
		w.nextPoll = time.Now().Add(maxInterval)
		return
	}

	snap, err := captureSnapshot(ctx, w.repoPath)
	if err != nil {
		slog.Warn("watcher.snapshot", "path", w.repoPath, "err", err)
		w.nextPoll = time.Now().Add(w.interval)
		return
	}
	interval := pollInterval(len(snap))

	if w.snapshot == nil {
		slog.Debug("watcher.baseline", "path", w.repoPath, "files", len(snap))
		w.snapshot = snap
		w.interval = interval
		w.nextPoll = time.Now().Add(interval)
		return
	}

	if snapshotsEqual(w.snapshot, snap) {
		w.interval = interval
		w.nextPoll = time.Now().Add(interval)
		return
	}

	slog.Info("watcher.changed", "path", w.repoPath, "files", len(snap))
	if err := w.indexFn(ctx); err != nil {
		slog.Warn("watcher.index", "path", w.repoPath, "err", err)
		// Keep the old snapshot so the next cycle retries.
		w.nextPoll = time.Now().Add(interval)
		return
	}

	w.snapshot = snap
	w.interval = pollInterval(len(snap))
	w.nextPoll = time.Now().Add(w.interval)
}

// captureSnapshot records mtime and size for every discovered source
// file.
func captureSnapshot(ctx context.Context, rootPath string) (map[string]fileSnapshot, error) {
	files, err := discover.Discover(ctx, rootPath, nil)
	if err != nil {
		return nil, err
	}

	snap := make(map[string]fileSnapshot, len(files))
	for _, f := range files {
		info, statErr := os.Stat(f.Path)
		if statErr != nil {
			continue
		}
		snap[f.RelPath] = fileSnapshot{modTime: info.ModTime(), size: info.Size()}
	}
	return snap, nil
}

func snapshotsEqual(a, b map[string]fileSnapshot) bool {
	if len(a) != len(b) {
		return false
	}
	for path, aSnap := range a {
		bSnap, ok := b[path]
		if !ok {
			return false
		}
		if !aSnap.modTime.Equal(bSnap.modTime) || aSnap.size != bSnap.size {
			return false
		}
	}
	return true
}

// pollInterval computes the adaptive interval from file count.
// 1s base + 1s per 500 files, capped at 60s.
func pollInterval(fileCount int) time.Duration {
	ms := 1000 + (fileCount/500)*1000
	if ms > 60000 {
		ms = 60000
	}
	return time.Duration(ms) * time.Millisecond
}
