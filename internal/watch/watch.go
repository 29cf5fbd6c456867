// Package watch re-runs an action whenever an archive file changes on disk.
package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the file must stay quiet before a run.
const DefaultDebounce = 500 * time.Millisecond

// RunFunc is invoked after each settled change.
type RunFunc func(ctx context.Context) error

// Watcher watches a single file. The parent directory is watched rather than
// the file itself, since build tools usually replace archives instead of
// writing them in place.
type Watcher struct {
	path     string
	debounce time.Duration
	run      RunFunc
	logger   *slog.Logger

	lastHash string
}

// New creates a watcher for path.
func New(path string, debounce time.Duration, run RunFunc, logger *slog.Logger) (*Watcher, error) {
	if run == nil {
		return nil, errors.New("watch: nil run func")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{path: abs, debounce: debounce, run: run, logger: logger}, nil
}

// Run blocks until ctx is done. Errors returned by the run func are logged
// and watching continues.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	dir := filepath.Dir(w.path)
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.lastHash, _ = fileHash(w.path)

	w.logger.Info("watching archive", "path", w.path, "debounce", w.debounce)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("archive change detected", "op", event.Op.String())
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)

		case <-timer.C:
			w.settle(ctx)
		}
	}
}

func (w *Watcher) settle(ctx context.Context) {
	hash, err := fileHash(w.path)
	if err != nil {
		// Removed or half written; the next event retries.
		w.logger.Warn("archive unreadable", "path", w.path, "error", err)
		return
	}
	if hash == w.lastHash {
		w.logger.Debug("archive content unchanged", "path", w.path)
		return
	}
	w.lastHash = hash

	w.logger.Info("archive changed, re-running", "path", w.path)
	if err := w.run(ctx); err != nil {
		w.logger.Error("run failed", "path", w.path, "error", err)
	}
}

func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
