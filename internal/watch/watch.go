// Package watch re-runs checks when documents change on disk.
package watch

import (
	"context"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/sokinpui/mermaidcheck/internal/fs"
	"github.com/sokinpui/mermaidcheck/internal/logging"
)

// DefaultDebounce batches the burst of events an editor save produces.
const DefaultDebounce = 300 * time.Millisecond

// Watcher watches document trees for changes to files with chosen extensions.
type Watcher struct {
	fsw      *fsnotify.Watcher
	exts     []string
	debounce time.Duration
	logger   *zap.Logger
}

// New starts watching roots. Directories are watched recursively; a file
// root watches its parent directory. An empty exts means fs.DefaultExtensions.
func New(roots []string, exts []string, logger *zap.Logger) (*Watcher, error) {
	logger = logging.OrNop(logger)
	if len(exts) == 0 {
		exts = fs.DefaultExtensions
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{fsw: fsw, exts: exts, debounce: DefaultDebounce, logger: logger}
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("cannot access '%s': %w", root, err)
		}
		if !info.IsDir() {
			root = filepath.Dir(root)
		}
		if err := w.addTree(root); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && fs.IsSkippedDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch '%s': %w", path, err)
		}
		w.logger.Debug("watching directory", zap.String("dir", path))
		return nil
	})
}

// Run blocks until ctx is done, calling onChange with the sorted paths that
// changed once events settle for the debounce interval.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, changed []string)) error {
	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending = make(map[string]struct{})
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			pending[event.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))

		case <-fire:
			fire = nil
			changed := make([]string, 0, len(pending))
			for path := range pending {
				changed = append(changed, path)
			}
			sort.Strings(changed)
			pending = make(map[string]struct{})
			onChange(ctx, changed)
		}
	}
}

// relevant filters events down to document changes. New directories are
// added to the watch as a side effect.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	if inSkippedDir(event.Name) {
		return false
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("could not watch new directory", zap.String("dir", event.Name), zap.Error(err))
			}
			return false
		}
	}
	return fs.HasAllowedExtension(event.Name, w.exts)
}

func inSkippedDir(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(filepath.Dir(path)), "/") {
		if fs.IsSkippedDir(part) {
			return true
		}
	}
	return false
}
