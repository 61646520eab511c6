package cli

// Test Plan for the CLI:
// - executeExtract stores a run, prints a summary and exports JSON
// - list renders counts, identities and files; unknown targets fail
// - list --contains filters ids and selectors case-insensitively; --sort keys
//   reorder each target and unknown keys fail
// - count prints one totals line for ids, types and edge cases
// - show cross-references an id with its widgets and resolves hash prefixes
// - tree renders nested children with their edge features
// - --json output is valid JSON
// - The command tree honours the global --root and --db flags on every subcommand

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/shadow-ui/internal/config"
	"github.com/mvp-joe/shadow-ui/internal/query"
	"github.com/mvp-joe/shadow-ui/internal/storage"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// extractFixture runs extract over the indexer fixture project into an
// in-memory store.
func extractFixture(t *testing.T, jsonOut string) (*query.Service, *sql.DB, string) {
	t.Helper()

	rootDir, err := filepath.Abs(filepath.Join("..", "indexer", "testdata", "project"))
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Storage.JSONOut = jsonOut
	p := &project{RootDir: rootDir, Config: cfg, DBPath: filepath.Join(t.TempDir(), "unused.db")}

	db := storage.NewTestDB(t)
	var out bytes.Buffer
	_, err = executeExtract(context.Background(), p, storage.NewRunWriter(db), true, &out)
	require.NoError(t, err)

	return query.NewService(db), db, rootDir
}

func TestExecuteExtract(t *testing.T) {
	t.Parallel()

	rootDir, err := filepath.Abs(filepath.Join("..", "indexer", "testdata", "project"))
	require.NoError(t, err)

	jsonOut := filepath.Join(t.TempDir(), "artifacts")
	cfg := config.Default()
	cfg.Storage.JSONOut = jsonOut
	p := &project{RootDir: rootDir, Config: cfg}

	db := storage.NewTestDB(t)
	var out bytes.Buffer
	result, err := executeExtract(context.Background(), p, storage.NewRunWriter(db), false, &out)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Stats.Nodes)

	assert.Contains(t, out.String(), "Extraction complete")
	assert.Contains(t, out.String(), "Files:          4 Python, 1 stylesheets")
	assert.Contains(t, out.String(), "Nodes:          3")
	assert.Contains(t, out.String(), "Edge cases:     1")
	assert.NotContains(t, out.String(), "Failed files")

	for _, name := range []string{storage.LayoutModelFile, storage.CSSIndexFile} {
		_, err := os.Stat(filepath.Join(jsonOut, name))
		assert.NoError(t, err, name)
	}

	run, err := query.NewService(db).LatestRun()
	require.NoError(t, err)
	assert.Equal(t, rootDir, run.RootDir)
	assert.Equal(t, 5, run.Tokens)
}

func TestRenderList(t *testing.T) {
	t.Parallel()

	svc, _, _ := extractFixture(t, "")

	var out bytes.Buffer
	require.NoError(t, renderList(&out, svc, "types", listOptions{}))
	assert.Equal(t, "     1 Button\n     1 Container\n     1 Vertical\n", out.String())

	out.Reset()
	require.NoError(t, renderList(&out, svc, "ids", listOptions{Kind: "literal"}))
	assert.Contains(t, out.String(), "#main")
	assert.Contains(t, out.String(), "#sidebar")
	assert.Contains(t, out.String(), "app/screen.py:16")
	assert.NotContains(t, out.String(), "Button")

	out.Reset()
	require.NoError(t, renderList(&out, svc, "edge-cases", listOptions{}))
	assert.Equal(t, "     1 parse_error\n", out.String())

	out.Reset()
	require.NoError(t, renderList(&out, svc, "css-classes", listOptions{}))
	assert.Equal(t, "     1 item\n     1 primary\n", out.String())

	out.Reset()
	require.NoError(t, renderList(&out, svc, "files", listOptions{}))
	assert.Contains(t, out.String(), "app/styles.tcss")
	assert.Contains(t, out.String(), "broken.py")

	assert.Error(t, renderList(&out, svc, "widgets", listOptions{}))
}

func TestRenderList_SortAndContains(t *testing.T) {
	t.Parallel()

	svc, _, _ := extractFixture(t, "")

	var out bytes.Buffer
	require.NoError(t, renderList(&out, svc, "ids", listOptions{Contains: "SIDE"}))
	assert.Contains(t, out.String(), "#sidebar")
	assert.NotContains(t, out.String(), "#main")

	out.Reset()
	require.NoError(t, renderList(&out, svc, "ids", listOptions{Type: "Vertical"}))
	assert.Contains(t, out.String(), "#main")
	assert.NotContains(t, out.String(), "#sidebar")

	out.Reset()
	require.NoError(t, renderList(&out, svc, "ids", listOptions{Sort: "count"}))
	assert.Equal(t, "     1 main\n     1 sidebar\n", out.String())

	out.Reset()
	require.NoError(t, renderList(&out, svc, "ids", listOptions{Kind: "literal", Sort: "id", Limit: 1}))
	assert.Contains(t, out.String(), "#main")
	assert.NotContains(t, out.String(), "#sidebar")

	out.Reset()
	require.NoError(t, renderList(&out, svc, "css-ids", listOptions{Sort: "count"}))
	assert.Equal(t, "     2 sidebar\n     1 main\n", out.String())

	out.Reset()
	require.NoError(t, renderList(&out, svc, "css-classes", listOptions{Contains: "PRI"}))
	assert.Equal(t, "     1 primary\n", out.String())

	out.Reset()
	require.NoError(t, renderList(&out, svc, "types", listOptions{Sort: "name", File: "app/screen.py"}))
	assert.Equal(t, "     1 Button\n     1 Container\n     1 Vertical\n", out.String())

	assert.Error(t, renderList(&out, svc, "types", listOptions{Sort: "size"}))
	assert.Error(t, renderList(&out, svc, "css-issues", listOptions{Sort: "name"}))
}

func TestRenderCount(t *testing.T) {
	t.Parallel()

	svc, _, _ := extractFixture(t, "")

	tests := []struct {
		name     string
		target   string
		opts     countOptions
		expected string
	}{
		{name: "ids", target: "ids", expected: "unique_ids=2 occurrences=2\n"},
		{name: "ids containing", target: "ids", opts: countOptions{Contains: "Main"}, expected: "unique_ids=1 occurrences=1\n"},
		{name: "ids of type", target: "ids", opts: countOptions{Type: "Button"}, expected: "unique_ids=0 occurrences=0\n"},
		{name: "types", target: "types", expected: "types=3 total_nodes=3\n"},
		{name: "types in other file", target: "types", opts: countOptions{File: "app/ids.py"}, expected: "types=0 total_nodes=0\n"},
		{name: "edge cases", target: "edge-cases", expected: "total_edge_cases=1\n"},
		{name: "edge cases in bucket", target: "edge-cases", opts: countOptions{Bucket: "id_nonliteral"}, expected: "bucket=id_nonliteral count=0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var out bytes.Buffer
			require.NoError(t, renderCount(&out, svc, tt.target, tt.opts))
			assert.Equal(t, tt.expected, out.String())
		})
	}

	var out bytes.Buffer
	require.NoError(t, renderCount(&out, svc, "types", countOptions{JSON: true}))
	var totals Totals
	require.NoError(t, json.Unmarshal(out.Bytes(), &totals))
	require.NotNil(t, totals.Types)
	assert.Equal(t, 3, *totals.Types)
	assert.Nil(t, totals.UniqueIDs)

	assert.Error(t, renderCount(&out, svc, "hashes", countOptions{}))
}

func TestRenderList_JSON(t *testing.T) {
	t.Parallel()

	svc, _, _ := extractFixture(t, "")

	var out bytes.Buffer
	require.NoError(t, renderList(&out, svc, "css-ids", listOptions{JSON: true}))

	var counts []query.Count
	require.NoError(t, json.Unmarshal(out.Bytes(), &counts))
	assert.Equal(t, []query.Count{{Name: "main", Count: 1}, {Name: "sidebar", Count: 2}}, counts)
}

func TestRenderShow(t *testing.T) {
	t.Parallel()

	svc, _, _ := extractFixture(t, "")

	var out bytes.Buffer
	require.NoError(t, renderShow(&out, svc, "css-id", "#sidebar", false))
	assert.Contains(t, out.String(), "Rules (2)")
	assert.Contains(t, out.String(), "app/styles.tcss:5-7  Button.primary, #sidebar > .item")
	assert.Contains(t, out.String(), "Widgets (1)")
	assert.Contains(t, out.String(), "app/screen.py:16  Container")

	groups, err := svc.Hashes()
	require.NoError(t, err)
	require.Len(t, groups, 1)

	out.Reset()
	require.NoError(t, renderShow(&out, svc, "hash", shortHash(groups[0].Hash), false))
	assert.Contains(t, out.String(), "Shape: Vertical#literal(Container#literal,Button#none)")
	assert.Contains(t, out.String(), "app/screen.py r000001 method:MainScreen.compose")

	out.Reset()
	require.NoError(t, renderShow(&out, svc, "file", "app/screen.py", false))
	assert.Contains(t, out.String(), "app/screen.py (python)")
	assert.Contains(t, out.String(), "Nodes (3)")
	assert.Contains(t, out.String(), "Selector references (1)")

	assert.ErrorIs(t, renderShow(&out, svc, "file", "nope.py", false), query.ErrNotFound)
	assert.ErrorIs(t, renderShow(&out, svc, "hash", "ffffffffffff", false), query.ErrNotFound)
	assert.Error(t, renderShow(&out, svc, "widget", "x", false))
}

func TestRenderTree(t *testing.T) {
	t.Parallel()

	svc, _, _ := extractFixture(t, "")

	var out bytes.Buffer
	require.NoError(t, renderTree(&out, svc, "app/screen.py", "", false))
	assert.Equal(t,
		"Vertical #main line 15\n"+
			"  Container #sidebar [scoped-block] line 16\n"+
			"  Button - [scoped-block] line 17\n",
		out.String())

	assert.ErrorIs(t, renderTree(&out, svc, "app/ids.py", "", false), query.ErrNotFound)
}

// executeCommand runs the cobra command tree with args and returns stdout.
// Flags are package globals, so callers must not run in parallel.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	t.Cleanup(func() {
		rootFlag, dbFlag, jsonFlag = ".", "", false
		treeRootIDFlag, quietFlag = "", false
		countBucketFlag = ""
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestTreeCommand_ProjectRoot(t *testing.T) {
	rootDir, err := filepath.Abs(filepath.Join("..", "indexer", "testdata", "project"))
	require.NoError(t, err)
	dbPath := filepath.Join(t.TempDir(), "artifacts.db")

	_, err = executeCommand(t, "extract", "--root", rootDir, "--db", dbPath, "--quiet")
	require.NoError(t, err)

	out, err := executeCommand(t, "tree", "--root", rootDir, "--db", dbPath, "app/screen.py")
	require.NoError(t, err)
	assert.Equal(t,
		"Vertical #main line 15\n"+
			"  Container #sidebar [scoped-block] line 16\n"+
			"  Button - [scoped-block] line 17\n",
		out)

	out, err = executeCommand(t, "tree", "--root", rootDir, "--db", dbPath, "--root-id", "r000001", "app/screen.py")
	require.NoError(t, err)
	assert.Contains(t, out, "Vertical #main line 15")

	_, err = executeCommand(t, "tree", "--root", rootDir, "--db", dbPath, "--root-id", "r000009", "app/screen.py")
	assert.ErrorIs(t, err, query.ErrNotFound)

	out, err = executeCommand(t, "count", "edge-cases", "--root", rootDir, "--db", dbPath, "--bucket", "parse_error")
	require.NoError(t, err)
	assert.Equal(t, "bucket=parse_error count=1\n", out)
}
