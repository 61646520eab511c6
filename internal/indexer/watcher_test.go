package indexer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Watcher:
// - NewWatcher fails for a missing root directory
// - Rapid writes to included files are debounced into one batch
// - Ignored directories and non-included files never trigger a batch
// - relevantPath filters by operation and discovery patterns
// - Stop is idempotent

type batchRecorder struct {
	mu      sync.Mutex
	batches [][]string
}

func (r *batchRecorder) handle(_ context.Context, changed []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, changed)
}

func (r *batchRecorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.batches...)
}

func newTestWatcher(t *testing.T, rootDir string, onChange ChangeHandler) *Watcher {
	t.Helper()

	discovery, err := NewFileDiscovery(rootDir, []string{"**/*.py", "**/*.tcss"}, []string{".venv/**"})
	require.NoError(t, err)

	w, err := NewWatcher(rootDir, discovery, onChange)
	require.NoError(t, err)
	w.debounceTime = 50 * time.Millisecond
	t.Cleanup(w.Stop)
	return w
}

func TestNewWatcher_MissingRoot(t *testing.T) {
	t.Parallel()

	rootDir := filepath.Join(t.TempDir(), "missing")
	discovery, err := NewFileDiscovery(rootDir, []string{"**/*.py"}, nil)
	require.NoError(t, err)

	_, err = NewWatcher(rootDir, discovery, func(context.Context, []string) {})
	assert.Error(t, err)
}

func TestWatcher_DebouncesChanges(t *testing.T) {
	t.Parallel()

	rootDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(rootDir, "app"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(rootDir, ".venv"), 0755))

	rec := &batchRecorder{}
	w := newTestWatcher(t, rootDir, rec.handle)
	w.Start(context.Background())

	require.NoError(t, os.WriteFile(filepath.Join(rootDir, "app", "screen.py"), []byte("x = 1\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(rootDir, "app", "styles.tcss"), []byte("#a { }\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(rootDir, "app", "notes.md"), []byte("# notes\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(rootDir, ".venv", "lib.py"), []byte("y = 2\n"), 0644))

	require.Eventually(t, func() bool { return len(rec.snapshot()) > 0 }, 5*time.Second, 20*time.Millisecond)
	time.Sleep(150 * time.Millisecond)

	batches := rec.snapshot()
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"app/screen.py", "app/styles.tcss"}, batches[0])
}

func TestWatcher_RelevantPath(t *testing.T) {
	t.Parallel()

	rootDir := t.TempDir()
	w := newTestWatcher(t, rootDir, func(context.Context, []string) {})

	tests := []struct {
		name string
		path string
		op   fsnotify.Op
		want bool
	}{
		{"write to python file", "app/main.py", fsnotify.Write, true},
		{"removed stylesheet", "styles.tcss", fsnotify.Remove, true},
		{"chmod only", "app/main.py", fsnotify.Chmod, false},
		{"not included", "README.md", fsnotify.Write, false},
		{"ignored dir", ".venv/lib/x.py", fsnotify.Write, false},
		{"state dir", ".shadowui/shadowui.py", fsnotify.Create, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := fsnotify.Event{Name: filepath.Join(rootDir, filepath.FromSlash(tt.path)), Op: tt.op}
			rel, ok := w.relevantPath(event)
			assert.Equal(t, tt.want, ok)
			if tt.want {
				assert.Equal(t, tt.path, rel)
			}
		})
	}
}

func TestWatcher_StopIdempotent(t *testing.T) {
	t.Parallel()

	w := newTestWatcher(t, t.TempDir(), func(context.Context, []string) {})
	w.Start(context.Background())
	w.Stop()
	w.Stop()
}
