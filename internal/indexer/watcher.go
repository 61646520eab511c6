package indexer

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeHandler is called once per debounced batch of changed paths
// (relative, slash-separated, sorted).
type ChangeHandler func(ctx context.Context, changed []string)

// Watcher watches the root directory and reports batches of changes to
// discoverable files.
type Watcher struct {
	rootDir      string
	discovery    *FileDiscovery
	onChange     ChangeHandler
	watcher      *fsnotify.Watcher
	debounceTime time.Duration
	stopCh       chan struct{}
	doneCh       chan struct{}
	stopOnce     sync.Once
	started      atomic.Bool
}

// NewWatcher creates a watcher for every non-ignored directory under rootDir.
func NewWatcher(rootDir string, discovery *FileDiscovery, onChange ChangeHandler) (*Watcher, error) {
	info, err := os.Stat(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", rootDir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		rootDir:      rootDir,
		discovery:    discovery,
		onChange:     onChange,
		watcher:      watcher,
		debounceTime: 500 * time.Millisecond,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}

	if err := w.addDirectoriesRecursively(rootDir); err != nil {
		watcher.Close()
		return nil, err
	}

	return w, nil
}

// Start begins watching for file changes.
func (w *Watcher) Start(ctx context.Context) {
	w.started.Store(true)
	go w.watch(ctx)
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		if w.started.Load() {
			<-w.doneCh
		}
		w.watcher.Close()
	})
}

// watch is the main event loop with debouncing logic.
func (w *Watcher) watch(ctx context.Context) {
	defer close(w.doneCh)

	var debounceTimer *time.Timer
	fireCh := make(chan struct{}, 1)
	changed := make(map[string]bool)

	stopTimer := func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}

	for {
		select {
		case <-ctx.Done():
			stopTimer()
			return

		case <-w.stopCh:
			stopTimer()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// New directories are watched before filtering, since the
			// directory itself never matches a file pattern.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && w.shouldWatchDirectory(event.Name) {
					if err := w.addDirectoriesRecursively(event.Name); err != nil {
						log.Printf("Warning: failed to watch new directory %s: %v", event.Name, err)
					}
				}
			}

			relPath, ok := w.relevantPath(event)
			if !ok {
				continue
			}
			changed[relPath] = true

			if debounceTimer != nil {
				if !debounceTimer.Stop() {
					select {
					case <-debounceTimer.C:
					default:
					}
				}
			}
			debounceTimer = time.AfterFunc(w.debounceTime, func() {
				select {
				case fireCh <- struct{}{}:
				default:
				}
			})

		case <-fireCh:
			w.flush(ctx, changed)
			changed = make(map[string]bool)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("File watcher error: %v", err)
		}
	}
}

func (w *Watcher) flush(ctx context.Context, changed map[string]bool) {
	if len(changed) == 0 {
		return
	}
	paths := make([]string, 0, len(changed))
	for p := range changed {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	w.onChange(ctx, paths)
}

// relevantPath returns the relative path of an event that should trigger
// a re-run.
func (w *Watcher) relevantPath(event fsnotify.Event) (string, bool) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return "", false
	}

	relPath, err := filepath.Rel(w.rootDir, event.Name)
	if err != nil {
		return "", false
	}
	relPath = filepath.ToSlash(relPath)

	if !w.discovery.Matches(relPath) {
		return "", false
	}
	return relPath, true
}

// shouldWatchDirectory checks if a directory should be watched.
func (w *Watcher) shouldWatchDirectory(path string) bool {
	relPath, err := filepath.Rel(w.rootDir, path)
	if err != nil {
		return false
	}
	if relPath == "." {
		return true
	}
	return !w.discovery.Ignored(relPath)
}

// addDirectoriesRecursively adds all directories in the tree to the watcher.
func (w *Watcher) addDirectoriesRecursively(rootPath string) error {
	return filepath.WalkDir(rootPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			log.Printf("Warning: error accessing %s: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if !w.shouldWatchDirectory(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			log.Printf("Warning: failed to watch directory %s: %v", path, err)
		}
		return nil
	})
}
