package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/shadow-ui/internal/query"
	"github.com/mvp-joe/shadow-ui/internal/storage"
)

// Test Plan for shadowui MCP tools:
// - Every tool registers on one server without panicking
// - shadowui_nodes filters by type and identity
// - shadowui_edge_cases returns counts without filters and records with a bucket
// - shadowui_selectors validates kind, lists values, and cross-references widgets for ids
// - shadowui_file returns the file detail, trees on request, and a tool error for unknown files
// - Malformed arguments produce tool errors rather than system errors

const screenSource = `from textual.containers import Vertical
from textual.widgets import Button

class Main:
    DEFAULT_CSS = "#save { width: 10; }"

    def compose(self):
        with Vertical(classes="panel"):
            yield Button(id="save")
            yield Button(id=f"btn_{i}")
`

func newTestService(t *testing.T) *query.Service {
	t.Helper()

	db := storage.NewTestDB(t)
	storage.SeedSources(t, db, map[string]string{
		"app/main.py":     screenSource,
		"app/styles.tcss": ".panel > #save { }\n#orphan { }\n",
	})
	return query.NewService(db)
}

func callTool(t *testing.T, handler toolHandler, args interface{}) *mcp.CallToolResult {
	t.Helper()

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: args},
	}
	result, err := handler(context.Background(), request)
	require.NoError(t, err, "should not return system error")
	require.NotNil(t, result)
	return result
}

func decodeResult(t *testing.T, result *mcp.CallToolResult, v interface{}) {
	t.Helper()

	require.False(t, result.IsError, "should not be error result")
	textContent, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok, "should be text content")
	require.NoError(t, json.Unmarshal([]byte(textContent.Text), v))
}

func errorText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()

	require.True(t, result.IsError, "should be error result")
	textContent, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok, "should be text content")
	return textContent.Text
}

func TestNewMCPServer_RegistersTools(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	require.NotPanics(t, func() {
		NewMCPServer(svc, "test")
	})

	mcpServer := server.NewMCPServer("test-server", "1.0.0", server.WithToolCapabilities(true))
	require.NotPanics(t, func() {
		AddNodesTool(mcpServer, svc)
		AddEdgeCasesTool(mcpServer, svc)
		AddSelectorsTool(mcpServer, svc)
		AddFileTool(mcpServer, svc)
	})
}

func TestNodesHandler(t *testing.T) {
	t.Parallel()

	handler := createNodesHandler(newTestService(t))

	var all NodesResponse
	decodeResult(t, callTool(t, handler, map[string]interface{}{"type": "Button"}), &all)
	assert.Equal(t, 2, all.Total)

	var literal NodesResponse
	decodeResult(t, callTool(t, handler, map[string]interface{}{
		"identity_kind": "literal",
		"identity":      "save",
	}), &literal)
	require.Len(t, literal.Nodes, 1)
	assert.Equal(t, 9, literal.Nodes[0].Provenance.StartLine)

	var pattern NodesResponse
	decodeResult(t, callTool(t, handler, map[string]interface{}{"identity_kind": "pattern"}), &pattern)
	require.Len(t, pattern.Nodes, 1)
	assert.Equal(t, "btn_{i}", pattern.Nodes[0].Identity.Value)

	var limited NodesResponse
	decodeResult(t, callTool(t, handler, map[string]interface{}{"limit": float64(1)}), &limited)
	assert.Equal(t, 1, limited.Total)

	var coerced NodesResponse
	decodeResult(t, callTool(t, handler, map[string]interface{}{"type": "Button", "limit": "1"}), &coerced)
	assert.Equal(t, 1, coerced.Total)
}

func TestEdgeCasesHandler(t *testing.T) {
	t.Parallel()

	handler := createEdgeCasesHandler(newTestService(t))

	var counts EdgeCasesResponse
	decodeResult(t, callTool(t, handler, map[string]interface{}{}), &counts)
	require.Len(t, counts.Counts, 1)
	assert.Equal(t, "id_pattern", counts.Counts[0].Name)
	assert.Empty(t, counts.EdgeCases)

	var records EdgeCasesResponse
	decodeResult(t, callTool(t, handler, map[string]interface{}{"bucket": "id_pattern"}), &records)
	require.Len(t, records.EdgeCases, 1)
	assert.Equal(t, "app/main.py", records.EdgeCases[0].Provenance.File)
	assert.Equal(t, 10, records.EdgeCases[0].Provenance.StartLine)
}

func TestSelectorsHandler(t *testing.T) {
	t.Parallel()

	handler := createSelectorsHandler(newTestService(t))

	assert.Contains(t, errorText(t, callTool(t, handler, map[string]interface{}{"kind": "tag"})), "kind parameter")

	var ids SelectorsResponse
	decodeResult(t, callTool(t, handler, map[string]interface{}{"kind": "id"}), &ids)
	assert.Equal(t, []query.Count{{Name: "orphan", Count: 1}, {Name: "save", Count: 2}}, ids.Values)

	var save SelectorsResponse
	decodeResult(t, callTool(t, handler, map[string]interface{}{"kind": "id", "value": "save"}), &save)
	require.Len(t, save.Rules, 2)
	assert.Equal(t, "app/main.py", save.Rules[0].Location.File)
	assert.Equal(t, "app/styles.tcss", save.Rules[1].Location.File)
	require.Len(t, save.Widgets, 1)
	assert.Equal(t, "Button", save.Widgets[0].Type)

	var orphan SelectorsResponse
	decodeResult(t, callTool(t, handler, map[string]interface{}{"kind": "id", "value": "orphan"}), &orphan)
	assert.Len(t, orphan.Rules, 1)
	assert.Empty(t, orphan.Widgets)

	var panel SelectorsResponse
	decodeResult(t, callTool(t, handler, map[string]interface{}{"kind": "class", "value": "panel"}), &panel)
	assert.Len(t, panel.Rules, 1)
	assert.Empty(t, panel.Widgets)
}

func TestFileHandler(t *testing.T) {
	t.Parallel()

	handler := createFileHandler(newTestService(t))

	assert.Contains(t, errorText(t, callTool(t, handler, map[string]interface{}{})), "file parameter is required")
	assert.Contains(t, errorText(t, callTool(t, handler, map[string]interface{}{"file": "missing.py"})), "not found")

	var plain struct {
		File  string            `json:"file"`
		Nodes []json.RawMessage `json:"nodes"`
		Trees []json.RawMessage `json:"trees"`
	}
	decodeResult(t, callTool(t, handler, map[string]interface{}{"file": "app/main.py"}), &plain)
	assert.Equal(t, "app/main.py", plain.File)
	assert.Len(t, plain.Nodes, 3)
	assert.Empty(t, plain.Trees)

	var withTrees struct {
		Trees []struct {
			Type     string            `json:"type"`
			Children []json.RawMessage `json:"children"`
		} `json:"trees"`
	}
	decodeResult(t, callTool(t, handler, map[string]interface{}{"file": "app/main.py", "include_trees": true}), &withTrees)
	require.Len(t, withTrees.Trees, 1)
	assert.Equal(t, "Vertical", withTrees.Trees[0].Type)
	assert.Len(t, withTrees.Trees[0].Children, 2)
}

func TestHandlers_InvalidArguments(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	for name, handler := range map[string]toolHandler{
		"nodes":      createNodesHandler(svc),
		"edge_cases": createEdgeCasesHandler(svc),
		"selectors":  createSelectorsHandler(svc),
		"file":       createFileHandler(svc),
	} {
		t.Run(name, func(t *testing.T) {
			result := callTool(t, handler, "invalid string instead of map")
			assert.Contains(t, errorText(t, result), "invalid arguments format")
		})
	}
}
