package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNoDatabase is returned when a read-only open finds no database.
var ErrNoDatabase = errors.New("database not found")

// ErrLocked is returned when another extraction holds the store lock.
var ErrLocked = errors.New("another extraction is writing to this store")

// Open opens the artifact database at dbPath. In write mode the parent
// directory and schema are created when missing.
func Open(dbPath string, readOnly bool) (*sql.DB, error) {
	if readOnly {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s, run 'shadowui extract' first", ErrNoDatabase, dbPath)
		}
	} else if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Foreign keys are a per-connection setting, so they go in the DSN.
	// mode=ro is only honoured for file: URIs.
	dsn := "file:" + dbPath + "?_foreign_keys=on"
	if readOnly {
		dsn += "&mode=ro"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	version, err := GetSchemaVersion(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to check schema version: %w", err)
	}

	switch {
	case version == "0" && readOnly:
		db.Close()
		return nil, fmt.Errorf("%w at %s, run 'shadowui extract' first", ErrNoDatabase, dbPath)
	case version == "0":
		if err := CreateSchema(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	case version != SchemaVersion:
		db.Close()
		return nil, fmt.Errorf("unsupported schema version %s (expected %s), delete %s and re-run extract", version, SchemaVersion, dbPath)
	}

	return db, nil
}

// RunLock serializes writers of one store across processes.
type RunLock struct {
	lock *flock.Flock
}

// AcquireRunLock takes the lock file next to dbPath without blocking.
// Returns ErrLocked when another process holds it.
func AcquireRunLock(dbPath string) (*RunLock, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	lock := flock.New(dbPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}
	return &RunLock{lock: lock}, nil
}

// Release releases the lock.
func (l *RunLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
