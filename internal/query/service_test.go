package query

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/shadow-ui/internal/indexer/extraction"
	"github.com/mvp-joe/shadow-ui/internal/storage"
)

// Test Plan for the query service:
// - LatestRun reports the persisted run and ErrNotFound on an empty store
// - Files lists per-file record counts in path order
// - Nodes filters by file, type and identity, and by case-insensitive id substring
// - IDCounts and TypesIn aggregate literal ids and types within an optional file
// - Types and EdgeCaseCounts aggregate most frequent first
// - Tree rebuilds containment in edge order
// - Hashes groups structurally identical roots across files
// - SelectorTokens and SelectorValues answer id/class lookups
// - CSSUncertainties and FileSummary expose the remaining record families

const mainScreen = `from textual.containers import Container
from textual.widgets import Static

class Main:
    DEFAULT_CSS = "#title { color: red; }"

    def compose(self):
        with Container(id="body"):
            yield Static(id="title")
            yield Static(id=name)
`

const otherScreen = `from textual.containers import Container
from textual.widgets import Static

class Other:
    def compose(self):
        with Container(id="panel"):
            yield Static(id="label")
            yield Static(id=value)
`

func seededService(t *testing.T) (*Service, *sql.DB) {
	t.Helper()

	db := storage.NewTestDB(t)
	storage.SeedSources(t, db, map[string]string{
		"app/main.py":     mainScreen,
		"app/other.py":    otherScreen,
		"app/styles.tcss": "#body > .row { }\n.row { }\n",
		"app/broken.tcss": "}\n",
	})
	return NewService(db), db
}

func TestLatestRun(t *testing.T) {
	t.Parallel()

	_, err := NewService(storage.NewTestDB(t)).LatestRun()
	assert.ErrorIs(t, err, ErrNotFound)

	svc, _ := seededService(t)
	run, err := svc.LatestRun()
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, 2, run.PythonFiles)
	assert.Equal(t, 2, run.StylesheetFiles)
	assert.Equal(t, 6, run.Nodes)
	assert.Equal(t, 4, run.Edges)
	assert.Equal(t, 2, run.Roots)
	assert.Equal(t, 2, run.EdgeCases)
	assert.Equal(t, 1, run.Uncertainties)
}

func TestFiles(t *testing.T) {
	t.Parallel()

	svc, _ := seededService(t)
	files, err := svc.Files()
	require.NoError(t, err)

	require.Len(t, files, 4)
	assert.Equal(t, FileRow{Path: "app/broken.tcss", Language: "stylesheet", Uncertainties: 1}, files[0])
	assert.Equal(t, FileRow{Path: "app/main.py", Language: "python", Nodes: 3, EdgeCases: 1, Tokens: 1}, files[1])
	assert.Equal(t, FileRow{Path: "app/other.py", Language: "python", Nodes: 3, EdgeCases: 1}, files[2])
	assert.Equal(t, FileRow{Path: "app/styles.tcss", Language: "stylesheet", Tokens: 3}, files[3])
}

func TestNodes(t *testing.T) {
	t.Parallel()

	svc, _ := seededService(t)

	statics, err := svc.Nodes(NodeFilter{Type: "Static"})
	require.NoError(t, err)
	assert.Len(t, statics, 4)

	inMain, err := svc.Nodes(NodeFilter{File: "app/main.py"})
	require.NoError(t, err)
	require.Len(t, inMain, 3)
	assert.Equal(t, "n000001", inMain[0].ID)
	assert.Equal(t, "Container", inMain[0].Type)

	title, err := svc.Nodes(NodeFilter{IdentityKind: extraction.IdentityLiteral, IdentityValue: "title"})
	require.NoError(t, err)
	require.Len(t, title, 1)
	assert.Equal(t, "app/main.py", title[0].Provenance.File)
	assert.Equal(t, 9, title[0].Provenance.StartLine)

	limited, err := svc.Nodes(NodeFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestNodes_Contains(t *testing.T) {
	t.Parallel()

	svc, _ := seededService(t)

	nodes, err := svc.Nodes(NodeFilter{Contains: "A"})
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "panel", nodes[0].Identity.Value)
	assert.Equal(t, "label", nodes[1].Identity.Value)

	ids, err := svc.IDCounts(NodeFilter{})
	require.NoError(t, err)
	assert.Equal(t, []Count{
		{Name: "body", Count: 1},
		{Name: "label", Count: 1},
		{Name: "panel", Count: 1},
		{Name: "title", Count: 1},
	}, ids)

	ids, err = svc.IDCounts(NodeFilter{File: "app/other.py", Type: "Static"})
	require.NoError(t, err)
	assert.Equal(t, []Count{{Name: "label", Count: 1}}, ids)

	types, err := svc.TypesIn("app/main.py")
	require.NoError(t, err)
	assert.Equal(t, []Count{{Name: "Static", Count: 2}, {Name: "Container", Count: 1}}, types)
}

func TestTypesAndEdgeCaseCounts(t *testing.T) {
	t.Parallel()

	svc, _ := seededService(t)

	types, err := svc.Types()
	require.NoError(t, err)
	assert.Equal(t, []Count{{Name: "Static", Count: 4}, {Name: "Container", Count: 2}}, types)

	counts, err := svc.EdgeCaseCounts()
	require.NoError(t, err)
	assert.Equal(t, []Count{{Name: extraction.BucketIDNonLiteral, Count: 2}}, counts)

	cases, err := svc.EdgeCases(extraction.BucketIDNonLiteral, "app/other.py", 0)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, 8, cases[0].Provenance.StartLine)
}

func TestTree(t *testing.T) {
	t.Parallel()

	svc, _ := seededService(t)

	trees, err := svc.Tree("app/main.py", "")
	require.NoError(t, err)
	require.Len(t, trees, 1)

	root := trees[0]
	assert.Equal(t, "Container", root.Type)
	assert.Empty(t, root.Feature)
	require.Len(t, root.Children, 2)
	assert.Equal(t, "title", root.Children[0].Identity.Value)
	assert.Equal(t, extraction.FeatureScopedBlock, root.Children[0].Feature)
	assert.Equal(t, extraction.IdentityNonLiteral, root.Children[1].Identity.Kind)

	nodes, depths := Flatten(root)
	assert.Len(t, nodes, 3)
	assert.Equal(t, []int{0, 1, 1}, depths)

	_, err = svc.Tree("app/main.py", "r000009")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHashes(t *testing.T) {
	t.Parallel()

	svc, _ := seededService(t)

	groups, err := svc.Hashes()
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Container#literal(Static#literal,Static#nonliteral)", groups[0].Shape)
	require.Len(t, groups[0].Roots, 2)
	assert.Equal(t, "app/main.py", groups[0].Roots[0].File)
	assert.Equal(t, "app/other.py", groups[0].Roots[1].File)
	assert.Equal(t, []string{"n000001", "n000002", "n000003"}, groups[0].Roots[0].NodeIDs)

	found, err := svc.FindHash(groups[0].Hash)
	require.NoError(t, err)
	assert.Len(t, found.Roots, 2)

	_, err = svc.FindHash("0000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSelectors(t *testing.T) {
	t.Parallel()

	svc, _ := seededService(t)

	rows, err := svc.SelectorTokens(extraction.SelectorClass, "row")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Location.StartLine)
	assert.Equal(t, "#body > .row", rows[0].SelectorText)
	assert.Equal(t, 2, rows[1].Location.StartLine)

	ids, err := svc.SelectorValues(extraction.SelectorID)
	require.NoError(t, err)
	assert.Equal(t, []Count{{Name: "body", Count: 1}, {Name: "title", Count: 1}}, ids)

	none, err := svc.SelectorTokens(extraction.SelectorID, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCSSUncertaintiesAndFileSummary(t *testing.T) {
	t.Parallel()

	svc, _ := seededService(t)

	issues, err := svc.CSSUncertainties(extraction.BucketCSSParseError)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "app/broken.tcss", issues[0].Provenance.File)

	issues, err = svc.CSSUncertainties(extraction.BucketInlineCSSUnextractable)
	require.NoError(t, err)
	assert.Empty(t, issues)

	detail, err := svc.FileSummary("app/main.py")
	require.NoError(t, err)
	assert.Equal(t, "python", detail.Language)
	assert.Len(t, detail.Nodes, 3)
	assert.Len(t, detail.Edges, 2)
	assert.Len(t, detail.Roots, 1)
	assert.Len(t, detail.EdgeCases, 1)
	require.Len(t, detail.Tokens, 1)
	assert.Equal(t, "title", detail.Tokens[0].Value)
	assert.Empty(t, detail.Failures)

	_, err = svc.FileSummary("app/missing.py")
	assert.ErrorIs(t, err, ErrNotFound)

	failures, err := svc.Failures()
	require.NoError(t, err)
	assert.Empty(t, failures)
}
