package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"sort"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/shadow-ui/internal/config"
	"github.com/mvp-joe/shadow-ui/internal/indexer"
)

// NewTestDB creates a fully configured in-memory SQLite database for testing.
//
// The database includes:
//   - Foreign key constraints enabled (CRITICAL for cascade deletes)
//   - Full schema created
//   - A single connection, so every query sees the same in-memory database
//   - Automatic cleanup registered with t.Cleanup()
//
// Example:
//
//	func TestSomething(t *testing.T) {
//	    db := storage.NewTestDB(t)
//	    // ... test code ...
//	    // No need to close - t.Cleanup() handles it
//	}
func NewTestDB(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)

	err = CreateSchema(db)
	require.NoError(t, err)

	return db
}

// NewTestDBFile opens a file-based store in t.TempDir() through Open and
// returns it with its path. Use this to test persistence and read-only
// access.
func NewTestDBFile(t testing.TB) (*sql.DB, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "shadowui.db")
	db, err := Open(dbPath, false)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db, dbPath
}

// SeedSources extracts the given in-memory sources (path → text) with the
// default configuration and writes the result to db.
func SeedSources(t testing.TB, db *sql.DB, sources map[string]string) *indexer.Result {
	t.Helper()

	paths := make([]string, 0, len(sources))
	for p := range sources {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	cfg := config.Default()
	files := make([]indexer.SourceFile, 0, len(paths))
	for _, p := range paths {
		lang := indexer.LanguagePython
		if cfg.IsStylesheet(p) {
			lang = indexer.LanguageStylesheet
		}
		files = append(files, indexer.SourceFile{
			Path:     p,
			Language: lang,
			Source:   []byte(sources[p]),
			Hash:     "test",
			Size:     int64(len(sources[p])),
		})
	}

	result, err := indexer.Extract(context.Background(), files, indexer.OptionsFromConfig(cfg))
	require.NoError(t, err)

	now := time.Now()
	_, err = NewRunWriter(db).WriteRun(result, RunMeta{RootDir: "test", StartedAt: now, FinishedAt: now})
	require.NoError(t, err)
	return result
}
