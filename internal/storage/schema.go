package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// SchemaVersion is bumped whenever a table definition changes.
const SchemaVersion = "1"

// CreateSchema creates all tables and indexes for the artifact store.
// Uses transactions for atomicity - all schema creation succeeds or fails together.
//
// Must be called with SQLite PRAGMA foreign_keys = ON.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	// Create all tables in dependency order
	tables := []struct {
		name string
		ddl  string
	}{
		{"runs", createRunsTable},
		{"files", createFilesTable},
		{"nodes", createNodesTable},
		{"edges", createEdgesTable},
		{"roots", createRootsTable},
		{"edge_cases", createEdgeCasesTable},
		{"css_tokens", createCSSTokensTable},
		{"css_uncertainties", createCSSUncertaintiesTable},
		{"file_failures", createFileFailuresTable},
		{"store_metadata", createStoreMetadataTable},
	}

	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range getAllIndexes() {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	bootstrapSQL := `
		INSERT INTO store_metadata (key, value, updated_at) VALUES
			('schema_version', ?, ?),
			('last_run_id', '', ?)
	`
	if _, err := tx.Exec(bootstrapSQL, SchemaVersion, now, now); err != nil {
		return fmt.Errorf("failed to bootstrap store_metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}
	return nil
}

// GetSchemaVersion retrieves the schema version from store_metadata.
// Returns "0" if the table doesn't exist (new database).
func GetSchemaVersion(db *sql.DB) (string, error) {
	var tableExists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='store_metadata'").Scan(&tableExists)
	if err != nil {
		return "", fmt.Errorf("failed to check store_metadata existence: %w", err)
	}
	if tableExists == 0 {
		return "0", nil // New database
	}

	var version string
	err = db.QueryRow("SELECT value FROM store_metadata WHERE key = 'schema_version'").Scan(&version)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("schema_version key not found in store_metadata")
	}
	if err != nil {
		return "", fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}

// Table DDL constants

const createRunsTable = `
CREATE TABLE runs (
    run_id TEXT PRIMARY KEY,                     -- UUID
    root_dir TEXT NOT NULL,
    started_at TEXT NOT NULL,                    -- ISO 8601
    finished_at TEXT NOT NULL,                   -- ISO 8601
    python_files INTEGER NOT NULL DEFAULT 0,
    stylesheet_files INTEGER NOT NULL DEFAULT 0,
    node_count INTEGER NOT NULL DEFAULT 0,
    edge_count INTEGER NOT NULL DEFAULT 0,
    root_count INTEGER NOT NULL DEFAULT 0,
    edge_case_count INTEGER NOT NULL DEFAULT 0,
    token_count INTEGER NOT NULL DEFAULT 0,
    uncertainty_count INTEGER NOT NULL DEFAULT 0,
    failure_count INTEGER NOT NULL DEFAULT 0
)
`

const createFilesTable = `
CREATE TABLE files (
    file_path TEXT PRIMARY KEY,                  -- Natural key: relative path from root
    language TEXT NOT NULL,                      -- python, stylesheet
    file_hash TEXT NOT NULL,                     -- SHA-1 of raw bytes
    size_bytes INTEGER NOT NULL DEFAULT 0,
    line_count INTEGER NOT NULL DEFAULT 0
)
`

const createNodesTable = `
CREATE TABLE nodes (
    file_path TEXT NOT NULL,
    node_id TEXT NOT NULL,                       -- Unique within file
    type TEXT NOT NULL,                          -- Constructor name, e.g. Container
    identity_kind TEXT NOT NULL,                 -- literal, pattern, nonliteral, none
    identity_value TEXT NOT NULL DEFAULT '',
    start_line INTEGER NOT NULL,
    end_line INTEGER NOT NULL,
    snippet TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (file_path, node_id),
    FOREIGN KEY (file_path) REFERENCES files(file_path) ON DELETE CASCADE
)
`

const createEdgesTable = `
CREATE TABLE edges (
    file_path TEXT NOT NULL,
    parent_id TEXT NOT NULL,
    child_id TEXT NOT NULL,
    order_index INTEGER NOT NULL,                -- Position among siblings of the same feature
    feature TEXT NOT NULL,                       -- nesting, scoped-block, attach-call
    PRIMARY KEY (file_path, child_id),           -- A node has at most one parent
    FOREIGN KEY (file_path, parent_id) REFERENCES nodes(file_path, node_id) ON DELETE CASCADE,
    FOREIGN KEY (file_path, child_id) REFERENCES nodes(file_path, node_id) ON DELETE CASCADE
)
`

const createRootsTable = `
CREATE TABLE roots (
    file_path TEXT NOT NULL,
    root_id TEXT NOT NULL,
    node_id TEXT NOT NULL,
    kind TEXT NOT NULL,                          -- yield, with
    container TEXT NOT NULL,                     -- module, function:f, method:C.m, class:C
    structure_hash TEXT NOT NULL,
    shape TEXT NOT NULL,
    node_ids TEXT NOT NULL,                      -- JSON array, pre-order
    PRIMARY KEY (file_path, root_id),
    FOREIGN KEY (file_path, node_id) REFERENCES nodes(file_path, node_id) ON DELETE CASCADE
)
`

const createEdgeCasesTable = `
CREATE TABLE edge_cases (
    edge_case_id INTEGER PRIMARY KEY AUTOINCREMENT,
    file_path TEXT NOT NULL,
    bucket TEXT NOT NULL,
    start_line INTEGER NOT NULL,
    end_line INTEGER NOT NULL,
    snippet TEXT NOT NULL DEFAULT '',
    detail TEXT NOT NULL DEFAULT '',
    FOREIGN KEY (file_path) REFERENCES files(file_path) ON DELETE CASCADE
)
`

const createCSSTokensTable = `
CREATE TABLE css_tokens (
    token_id INTEGER PRIMARY KEY AUTOINCREMENT,
    kind TEXT NOT NULL,                          -- id, class
    value TEXT NOT NULL,
    file_path TEXT NOT NULL,
    start_line INTEGER NOT NULL,                 -- Rule location
    end_line INTEGER NOT NULL,
    snippet TEXT NOT NULL DEFAULT '',
    selector_text TEXT NOT NULL,
    FOREIGN KEY (file_path) REFERENCES files(file_path) ON DELETE CASCADE
)
`

const createCSSUncertaintiesTable = `
CREATE TABLE css_uncertainties (
    uncertainty_id INTEGER PRIMARY KEY AUTOINCREMENT,
    file_path TEXT NOT NULL,
    bucket TEXT NOT NULL,
    start_line INTEGER NOT NULL,
    end_line INTEGER NOT NULL,
    snippet TEXT NOT NULL DEFAULT '',
    detail TEXT NOT NULL DEFAULT '',
    FOREIGN KEY (file_path) REFERENCES files(file_path) ON DELETE CASCADE
)
`

// file_failures has no foreign key: unreadable files never reach the files table.
const createFileFailuresTable = `
CREATE TABLE file_failures (
    file_path TEXT NOT NULL,
    stage TEXT NOT NULL,                         -- read, layout, stylesheet
    reason TEXT NOT NULL
)
`

const createStoreMetadataTable = `
CREATE TABLE store_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
)
`

func getAllIndexes() []string {
	return []string{
		"CREATE INDEX idx_nodes_type ON nodes(type)",
		"CREATE INDEX idx_nodes_identity ON nodes(identity_kind, identity_value)",
		"CREATE INDEX idx_edges_parent ON edges(file_path, parent_id)",
		"CREATE INDEX idx_roots_hash ON roots(structure_hash)",
		"CREATE INDEX idx_edge_cases_bucket ON edge_cases(bucket)",
		"CREATE INDEX idx_edge_cases_file ON edge_cases(file_path)",
		"CREATE INDEX idx_css_tokens_value ON css_tokens(kind, value)",
		"CREATE INDEX idx_css_tokens_file ON css_tokens(file_path)",
		"CREATE INDEX idx_css_uncertainties_bucket ON css_uncertainties(bucket)",
	}
}
