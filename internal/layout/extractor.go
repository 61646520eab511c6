package layout

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mvp-joe/shadow-ui/internal/indexer/extraction"
	"github.com/mvp-joe/shadow-ui/internal/indexer/parsers"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// ErrDuplicateNodeID indicates two call sites were assigned the same node id.
var ErrDuplicateNodeID = errors.New("duplicate node id")

// Options describes the UI dialect recognised by the extractor.
type Options struct {
	Prefixes      []string // import roots, e.g. "textual"
	IgnoreNames   []string // imported names that are never constructors
	IDKeyword     string   // keyword carrying the identity, e.g. "id"
	AttachMethods []string // e.g. "mount", "mount_all"
}

// Extractor turns Python sources into node/edge/root models.
// It is safe for concurrent use.
type Extractor struct {
	parser    *parsers.PythonParser
	opts      Options
	constants *parsers.ConstantTable
}

// NewExtractor creates an extractor. constants may be nil, in which case only
// constants defined in the file itself resolve.
func NewExtractor(parser *parsers.PythonParser, opts Options, constants *parsers.ConstantTable) *Extractor {
	if opts.IDKeyword == "" {
		opts.IDKeyword = "id"
	}
	return &Extractor{
		parser:    parser,
		opts:      opts,
		constants: constants,
	}
}

// ExtractFile extracts the structural model of one file. Malformed input never
// fails: it becomes edge-case records. An error means the file's result was
// discarded because an internal invariant did not hold.
func (e *Extractor) ExtractFile(filePath string, source []byte) (*extraction.FileLayout, error) {
	tree, err := e.parser.Parse(filePath, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	result := &extraction.FileLayout{
		File:      filePath,
		Nodes:     []extraction.Node{},
		Edges:     []extraction.Edge{},
		Roots:     []extraction.Root{},
		EdgeCases: []extraction.EdgeCase{},
	}

	if tree.HasError() {
		errNode := tree.FirstError()
		if errNode == nil {
			errNode = tree.Root()
		}
		result.EdgeCases = append(result.EdgeCases, extraction.EdgeCase{
			Bucket:     extraction.BucketParseError,
			Provenance: provenance(tree, errNode),
			Detail:     "syntax error",
		})
		return result, nil
	}

	fx := &fileExtractor{
		Extractor: e,
		tree:      tree,
		result:    result,
		index:     make(map[spanKey]int),
	}
	if err := fx.run(); err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	return result, nil
}

// spanKey identifies a syntax node by its byte range.
type spanKey struct {
	start, end uint
}

func keyOf(n *sitter.Node) spanKey {
	return spanKey{start: n.StartByte(), end: n.EndByte()}
}

// fileExtractor holds the per-file state of one extraction.
type fileExtractor struct {
	*Extractor

	tree    *parsers.SourceTree
	result  *extraction.FileLayout
	symbols map[string]string

	calls []*sitter.Node  // UI call sites, in node order
	index map[spanKey]int // call span -> node index
	scope *scopeBindings  // local variable bindings to UI calls
	edges *containment    // candidate and accepted edges
}

func (fx *fileExtractor) run() error {
	imports := fx.tree.CollectDialectImports(fx.opts.Prefixes, fx.opts.IgnoreNames)
	fx.symbols = imports.Symbols
	for _, star := range imports.StarImports {
		fx.record(extraction.BucketDialectStarImport, star, "constructor names from wildcard import are unknown")
	}

	fx.collectCallSites()
	if err := fx.assignNodeIDs(); err != nil {
		return err
	}

	fx.classifyIdentities()
	fx.scope = collectBindings(fx.tree, fx.index)
	fx.edges = newContainment(fx.result.Nodes)

	fx.collectNesting()
	fx.collectScopedBlocks()
	fx.collectAttachCalls()
	fx.edges.apply(fx)

	if err := fx.collectRoots(); err != nil {
		return err
	}
	fx.sortEdgeCases()
	return nil
}

// collectCallSites finds every call whose callee is a bare dialect symbol.
func (fx *fileExtractor) collectCallSites() {
	parsers.WalkTree(fx.tree.Root(), func(n *sitter.Node) bool {
		if n.Kind() != "call" {
			return true
		}
		callee := parsers.Callee(n)
		if callee == nil {
			return true
		}
		switch callee.Kind() {
		case "identifier":
			if _, ok := fx.symbols[fx.tree.Text(callee)]; ok {
				fx.calls = append(fx.calls, n)
				return true
			}
		case "attribute":
			object := callee.ChildByFieldName("object")
			if object != nil && object.Kind() == "identifier" {
				if _, ok := fx.symbols[fx.tree.Text(object)]; ok {
					fx.record(extraction.BucketUICallUnrecognizedShape, n, "call through attribute of a UI symbol")
					return true
				}
			}
		}
		if name, ok := fx.partialTarget(n, callee); ok {
			fx.record(extraction.BucketUICallUnrecognizedShape, n, fmt.Sprintf("partial application of UI symbol %q", name))
		}
		return true
	})

	sort.SliceStable(fx.calls, func(i, j int) bool {
		a, b := fx.calls[i].StartPosition(), fx.calls[j].StartPosition()
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		return fx.tree.Text(parsers.Callee(fx.calls[i])) < fx.tree.Text(parsers.Callee(fx.calls[j]))
	})
}

// partialTarget reports whether call is `partial(Sym, ...)` or
// `functools.partial(Sym, ...)` wrapping a dialect symbol.
func (fx *fileExtractor) partialTarget(call, callee *sitter.Node) (string, bool) {
	switch callee.Kind() {
	case "identifier":
		if fx.tree.Text(callee) != "partial" {
			return "", false
		}
	case "attribute":
		object := callee.ChildByFieldName("object")
		if object == nil || fx.tree.Text(object) != "functools" ||
			fx.tree.Text(callee.ChildByFieldName("attribute")) != "partial" {
			return "", false
		}
	default:
		return "", false
	}

	args := parsers.CallArguments(call)
	if len(args) == 0 {
		return "", false
	}
	target := parsers.Unparen(args[0])
	if target == nil || target.Kind() != "identifier" {
		return "", false
	}
	name := fx.tree.Text(target)
	if _, ok := fx.symbols[name]; !ok {
		return "", false
	}
	return name, true
}

// assignNodeIDs numbers call sites in source order and checks uniqueness.
func (fx *fileExtractor) assignNodeIDs() error {
	seen := make(map[string]bool, len(fx.calls))
	for i, call := range fx.calls {
		id := fmt.Sprintf("n%06d", i+1)
		if seen[id] {
			return fmt.Errorf("%w: %s", ErrDuplicateNodeID, id)
		}
		seen[id] = true

		key := keyOf(call)
		if _, dup := fx.index[key]; dup {
			return fmt.Errorf("%w: two nodes at byte %d", ErrDuplicateNodeID, key.start)
		}
		fx.index[key] = i

		fx.result.Nodes = append(fx.result.Nodes, extraction.Node{
			ID:         id,
			Type:       fx.tree.Text(parsers.Callee(call)),
			Identity:   extraction.Identity{Kind: extraction.IdentityNone},
			Provenance: provenance(fx.tree, call),
			Column:     int(call.StartPosition().Column),
		})
	}
	return nil
}

// nodeOf returns the node index of a UI call expression, or -1.
func (fx *fileExtractor) nodeOf(expr *sitter.Node) int {
	expr = parsers.Unparen(expr)
	if expr == nil || expr.Kind() != "call" {
		return -1
	}
	if idx, ok := fx.index[keyOf(expr)]; ok {
		return idx
	}
	return -1
}

// resolveChild returns the node produced by expr: a UI call or a name bound
// to one in the same scope. Returns -1 when expr is neither.
func (fx *fileExtractor) resolveChild(expr *sitter.Node) int {
	expr = parsers.Unparen(expr)
	if expr == nil {
		return -1
	}
	if idx := fx.nodeOf(expr); idx >= 0 {
		return idx
	}
	if expr.Kind() == "identifier" {
		return fx.scope.resolve(fx.tree, expr)
	}
	return -1
}

func (fx *fileExtractor) record(bucket string, at *sitter.Node, detail string) {
	fx.result.EdgeCases = append(fx.result.EdgeCases, extraction.EdgeCase{
		Bucket:     bucket,
		Provenance: provenance(fx.tree, at),
		Detail:     detail,
	})
}

func (fx *fileExtractor) sortEdgeCases() {
	sort.SliceStable(fx.result.EdgeCases, func(i, j int) bool {
		a, b := fx.result.EdgeCases[i], fx.result.EdgeCases[j]
		if a.Provenance.StartLine != b.Provenance.StartLine {
			return a.Provenance.StartLine < b.Provenance.StartLine
		}
		return a.Bucket < b.Bucket
	})
}

func provenance(tree *parsers.SourceTree, n *sitter.Node) extraction.Provenance {
	return extraction.Provenance{
		File:      tree.Path,
		StartLine: tree.StartLine(n),
		EndLine:   tree.EndLine(n),
		Snippet:   tree.Snippet(n),
	}
}
