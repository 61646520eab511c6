package mcp

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/shadow-ui/internal/indexer/extraction"
	"github.com/mvp-joe/shadow-ui/internal/query"
)

type toolHandler = func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// NodesResponse is the shadowui_nodes result.
type NodesResponse struct {
	Nodes []extraction.Node `json:"nodes"`
	Total int               `json:"total"`
}

// EdgeCasesResponse is the shadowui_edge_cases result. Counts is set when
// no bucket or file was given, EdgeCases otherwise.
type EdgeCasesResponse struct {
	Counts    []query.Count         `json:"counts,omitempty"`
	EdgeCases []extraction.EdgeCase `json:"edge_cases,omitempty"`
}

// SelectorsResponse is the shadowui_selectors result. Values is set when no
// value was given; Rules and Widgets describe one value otherwise.
type SelectorsResponse struct {
	Kind    extraction.SelectorKind    `json:"kind"`
	Value   string                     `json:"value,omitempty"`
	Values  []query.Count              `json:"values,omitempty"`
	Rules   []extraction.SelectorToken `json:"rules,omitempty"`
	Widgets []extraction.Node          `json:"widgets,omitempty"`
}

// FileResponse is the shadowui_file result.
type FileResponse struct {
	*query.FileDetail
	Trees []*query.TreeNode `json:"trees,omitempty"`
}

// AddNodesTool registers the shadowui_nodes tool with an MCP server.
func AddNodesTool(s *server.MCPServer, svc *query.Service) {
	tool := mcp.NewTool(
		"shadowui_nodes",
		mcp.WithDescription(`List UI construction calls found by static extraction.

Each node has a constructor type, an identity (literal id, pattern template,
computed, or none) and its source location. Filters combine with AND.

Examples:
- All buttons: {"type": "Button"}
- Widget declaring id "sidebar": {"identity_kind": "literal", "identity": "sidebar"}
- Widgets with computed ids in one file: {"file": "app/main.py", "identity_kind": "nonliteral"}`),
		mcp.WithString("file", mcp.Description("Relative file path")),
		mcp.WithString("type", mcp.Description("Constructor type name, e.g. Button")),
		mcp.WithString("identity_kind",
			mcp.Description("Identity classification"),
			mcp.Enum("literal", "pattern", "nonliteral", "none")),
		mcp.WithString("identity", mcp.Description("Literal id or pattern template")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of nodes (1-500, default: 50)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(tool, createNodesHandler(svc))
}

func createNodesHandler(svc *query.Service) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}
		var args nodesArgs
		if err := bindArguments(argsMap, &args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		nodes, err := svc.Nodes(query.NodeFilter{
			File:          args.File,
			Type:          args.Type,
			IdentityKind:  extraction.IdentityKind(args.IdentityKind),
			IdentityValue: args.Identity,
			Limit:         clampLimit(args.Limit),
		})
		if err != nil {
			return queryError(err)
		}
		return marshalToolResponse(&NodesResponse{Nodes: nodes, Total: len(nodes)})
	}
}

// AddEdgeCasesTool registers the shadowui_edge_cases tool with an MCP server.
func AddEdgeCasesTool(s *server.MCPServer, svc *query.Service) {
	tool := mcp.NewTool(
		"shadowui_edge_cases",
		mcp.WithDescription(`Report constructs the extractor recognized but could not fully model.

Without arguments returns record counts per bucket. With a bucket and/or file
returns the records with their source locations.

Buckets include: parse_error, id_nonliteral, id_pattern, id_kwargs_splat,
child_spread_unresolved, child_unresolved, scoped_child_in_control_flow,
with_multiple_ui_items, attach_parent_unresolved, attach_child_unresolved,
multiple_parents, containment_cycle, yield_from_unmodeled,
dialect_star_import, ui_call_unrecognized_shape.`),
		mcp.WithString("bucket", mcp.Description("Edge-case bucket")),
		mcp.WithString("file", mcp.Description("Relative file path")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of records (1-500, default: 50)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(tool, createEdgeCasesHandler(svc))
}

func createEdgeCasesHandler(svc *query.Service) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}
		var args edgeCasesArgs
		if err := bindArguments(argsMap, &args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if args.Bucket == "" && args.File == "" {
			counts, err := svc.EdgeCaseCounts()
			if err != nil {
				return queryError(err)
			}
			return marshalToolResponse(&EdgeCasesResponse{Counts: counts})
		}

		cases, err := svc.EdgeCases(args.Bucket, args.File, clampLimit(args.Limit))
		if err != nil {
			return queryError(err)
		}
		return marshalToolResponse(&EdgeCasesResponse{EdgeCases: cases})
	}
}

// AddSelectorsTool registers the shadowui_selectors tool with an MCP server.
func AddSelectorsTool(s *server.MCPServer, svc *query.Service) {
	tool := mcp.NewTool(
		"shadowui_selectors",
		mcp.WithDescription(`Look up id and class selectors referenced by stylesheets and inline
DEFAULT_CSS/CSS strings.

Without a value returns every referenced name with its rule count. With a
value returns the rules referencing it; for ids, also the widgets declaring
that literal id, so unstyled widgets and dangling selectors are easy to spot.`),
		mcp.WithString("kind",
			mcp.Required(),
			mcp.Description("Selector kind"),
			mcp.Enum("id", "class")),
		mcp.WithString("value", mcp.Description("Id or class name without # or .")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(tool, createSelectorsHandler(svc))
}

func createSelectorsHandler(svc *query.Service) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}
		var args selectorsArgs
		if err := bindArguments(argsMap, &args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		kind := extraction.SelectorKind(args.Kind)
		if kind != extraction.SelectorID && kind != extraction.SelectorClass {
			return mcp.NewToolResultError("kind parameter must be 'id' or 'class'"), nil
		}

		response := &SelectorsResponse{Kind: kind, Value: strings.TrimLeft(args.Value, "#.")}
		if response.Value == "" {
			values, err := svc.SelectorValues(kind)
			if err != nil {
				return queryError(err)
			}
			response.Values = values
			return marshalToolResponse(response)
		}

		rules, err := svc.SelectorTokens(kind, response.Value)
		if err != nil {
			return queryError(err)
		}
		response.Rules = rules

		if kind == extraction.SelectorID {
			widgets, err := svc.Nodes(query.NodeFilter{IdentityKind: extraction.IdentityLiteral, IdentityValue: response.Value})
			if err != nil {
				return queryError(err)
			}
			response.Widgets = widgets
		}
		return marshalToolResponse(response)
	}
}

// AddFileTool registers the shadowui_file tool with an MCP server.
func AddFileTool(s *server.MCPServer, svc *query.Service) {
	tool := mcp.NewTool(
		"shadowui_file",
		mcp.WithDescription(`Return every record stored for one file: nodes, edges, roots with
structure hashes, edge cases, selector references and stylesheet issues.
Set include_trees to also get each root as a nested tree.`),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("Relative file path")),
		mcp.WithBoolean("include_trees", mcp.Description("Include nested containment trees (default: false)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(tool, createFileHandler(svc))
}

func createFileHandler(svc *query.Service) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}
		var args fileArgs
		if err := bindArguments(argsMap, &args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if args.File == "" {
			return mcp.NewToolResultError("file parameter is required"), nil
		}

		detail, err := svc.FileSummary(args.File)
		if err != nil {
			return queryError(err)
		}
		response := &FileResponse{FileDetail: detail}

		if args.IncludeTrees && len(detail.Roots) > 0 {
			trees, err := svc.Tree(args.File, "")
			if err != nil {
				return queryError(err)
			}
			response.Trees = trees
		}
		return marshalToolResponse(response)
	}
}
