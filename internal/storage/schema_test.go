package storage

// Test Plan for SQLite Schema:
// - CreateSchema creates all 10 tables (runs, files, nodes, edges, roots, edge_cases, css_tokens, css_uncertainties, file_failures, store_metadata)
// - CreateSchema creates every idx_ index
// - Foreign key CASCADE deletes work (deleting a file cascades to nodes, edges and edge cases)
// - Edges reject a second parent for the same child
// - Bootstrap metadata is inserted (schema_version, empty last_run_id)
// - GetSchemaVersion returns "0" for a new database and SchemaVersion after CreateSchema

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSchema(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	require.NoError(t, CreateSchema(db), "CreateSchema should succeed")

	tables := []string{
		"runs",
		"files",
		"nodes",
		"edges",
		"roots",
		"edge_cases",
		"css_tokens",
		"css_uncertainties",
		"file_failures",
		"store_metadata",
	}
	for _, table := range tables {
		assert.True(t, tableExists(t, db, table), "Table %s should exist", table)
	}

	// A second run against the same database fails; tables are not IF NOT EXISTS.
	assert.Error(t, CreateSchema(db))
}

func TestCreateSchema_Indexes(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	require.NoError(t, CreateSchema(db))

	rows, err := db.Query(`
		SELECT name FROM sqlite_master
		WHERE type = 'index' AND name LIKE 'idx_%'
	`)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())

	assert.Len(t, names, len(getAllIndexes()))
	assert.Contains(t, names, "idx_roots_hash")
	assert.Contains(t, names, "idx_css_tokens_value")
}

func TestCreateSchema_ForeignKeys(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	require.NoError(t, CreateSchema(db))

	seedContainment(t, db)

	_, err := db.Exec("DELETE FROM files WHERE file_path = 'app/main.py'")
	require.NoError(t, err)

	for _, table := range []string{"nodes", "edges", "edge_cases"} {
		var count int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&count))
		assert.Equal(t, 0, count, "%s rows should be deleted via CASCADE", table)
	}

	// Nodes must reference a stored file.
	_, err = db.Exec(`
		INSERT INTO nodes (file_path, node_id, type, identity_kind, start_line, end_line)
		VALUES ('missing.py', 'n000001', 'Button', 'none', 1, 1)
	`)
	assert.Error(t, err)
}

func TestCreateSchema_SingleParent(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	require.NoError(t, CreateSchema(db))

	seedContainment(t, db)

	_, err := db.Exec(`
		INSERT INTO nodes (file_path, node_id, type, identity_kind, start_line, end_line)
		VALUES ('app/main.py', 'n000003', 'Vertical', 'none', 5, 5)
	`)
	require.NoError(t, err)

	_, err = db.Exec(`
		INSERT INTO edges (file_path, parent_id, child_id, order_index, feature)
		VALUES ('app/main.py', 'n000003', 'n000002', 0, 'attach-call')
	`)
	assert.Error(t, err, "a child may have only one parent")
}

func TestCreateSchema_BootstrapMetadata(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	require.NoError(t, CreateSchema(db))

	metadata := map[string]string{}
	rows, err := db.Query("SELECT key, value FROM store_metadata")
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var key, value string
		require.NoError(t, rows.Scan(&key, &value))
		metadata[key] = value
	}
	require.NoError(t, rows.Err())

	assert.Equal(t, map[string]string{
		"schema_version": SchemaVersion,
		"last_run_id":    "",
	}, metadata)
}

func TestGetSchemaVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		setup    func(*testing.T, *sql.DB)
		expected string
		wantErr  bool
	}{
		{
			name:     "new database",
			setup:    func(*testing.T, *sql.DB) {},
			expected: "0",
		},
		{
			name: "schema created",
			setup: func(t *testing.T, db *sql.DB) {
				require.NoError(t, CreateSchema(db))
			},
			expected: SchemaVersion,
		},
		{
			name: "metadata without version",
			setup: func(t *testing.T, db *sql.DB) {
				require.NoError(t, CreateSchema(db))
				_, err := db.Exec("DELETE FROM store_metadata WHERE key = 'schema_version'")
				require.NoError(t, err)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			db := openTestDB(t)
			tt.setup(t, db)

			version, err := GetSchemaVersion(db)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, version)
		})
	}
}

// Helper functions

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	// Every pooled connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, tableName string) bool {
	t.Helper()

	var count int
	query := `
		SELECT COUNT(*) FROM sqlite_master
		WHERE type IN ('table', 'view') AND name = ?
	`
	require.NoError(t, db.QueryRow(query, tableName).Scan(&count))
	return count > 0
}

// seedContainment stores one file with a Container holding a Button.
func seedContainment(t *testing.T, db *sql.DB) {
	t.Helper()

	statements := []string{
		`INSERT INTO files (file_path, language, file_hash) VALUES ('app/main.py', 'python', 'abc123')`,
		`INSERT INTO nodes (file_path, node_id, type, identity_kind, identity_value, start_line, end_line)
		 VALUES ('app/main.py', 'n000001', 'Container', 'literal', 'body', 3, 4)`,
		`INSERT INTO nodes (file_path, node_id, type, identity_kind, start_line, end_line)
		 VALUES ('app/main.py', 'n000002', 'Button', 'none', 4, 4)`,
		`INSERT INTO edges (file_path, parent_id, child_id, order_index, feature)
		 VALUES ('app/main.py', 'n000001', 'n000002', 0, 'scoped-block')`,
		`INSERT INTO edge_cases (file_path, bucket, start_line, end_line)
		 VALUES ('app/main.py', 'id_nonliteral', 4, 4)`,
	}
	for _, stmt := range statements {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
}
