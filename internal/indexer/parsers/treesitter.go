package parsers

import (
	"fmt"
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// maxSnippetLen bounds provenance snippets.
const maxSnippetLen = 120

// treeSitterParser provides common tree-sitter parsing functionality.
type treeSitterParser struct {
	language *sitter.Language
	lang     string
}

// newTreeSitterParser creates a new tree-sitter parser for the given language.
func newTreeSitterParser(language *sitter.Language, lang string) *treeSitterParser {
	return &treeSitterParser{
		language: language,
		lang:     lang,
	}
}

// parse runs tree-sitter over source. A fresh sitter.Parser is used per call,
// so one treeSitterParser can be shared by concurrent workers.
func (p *treeSitterParser) parse(filePath string, source []byte) (*SourceTree, error) {
	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(p.language); err != nil {
		return nil, fmt.Errorf("failed to set %s language: %w", p.lang, err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse %s file: %s", p.lang, filePath)
	}

	return &SourceTree{
		Path:       filePath,
		Source:     source,
		tree:       tree,
		lineStarts: computeLineStarts(source),
	}, nil
}

// SourceTree is a parsed file together with its source bytes and line table.
type SourceTree struct {
	Path   string
	Source []byte

	tree       *sitter.Tree
	lineStarts []int
}

// Root returns the root node of the syntax tree.
func (t *SourceTree) Root() *sitter.Node {
	return t.tree.RootNode()
}

// Close releases the underlying tree-sitter tree.
func (t *SourceTree) Close() {
	if t.tree != nil {
		t.tree.Close()
		t.tree = nil
	}
}

// HasError reports whether the tree contains syntax errors or missing tokens.
func (t *SourceTree) HasError() bool {
	return t.Root().HasError()
}

// FirstError returns the first ERROR or MISSING node in source order, or nil.
func (t *SourceTree) FirstError() *sitter.Node {
	var found *sitter.Node
	walkTree(t.Root(), func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		if n.IsError() || n.IsMissing() {
			found = n
			return false
		}
		return n.HasError()
	})
	return found
}

// Text returns the source text of a node.
func (t *SourceTree) Text(node *sitter.Node) string {
	return extractNodeText(node, t.Source)
}

// StartLine returns the 1-indexed line where node starts.
func (t *SourceTree) StartLine(node *sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}

// EndLine returns the 1-indexed line of the last character of node.
func (t *SourceTree) EndLine(node *sitter.Node) int {
	start := node.StartPosition()
	end := node.EndPosition()
	if end.Column == 0 && end.Row > start.Row {
		return int(end.Row)
	}
	return int(end.Row) + 1
}

// LineAt returns the 1-indexed line containing byte offset.
func (t *SourceTree) LineAt(offset int) int {
	return sort.Search(len(t.lineStarts), func(i int) bool {
		return t.lineStarts[i] > offset
	})
}

// Snippet returns the first line of node's text, trimmed and bounded.
func (t *SourceTree) Snippet(node *sitter.Node) string {
	return ClipSnippet(t.Text(node))
}

// ClipSnippet returns the first line of text, trimmed and bounded.
func ClipSnippet(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimSpace(text)
	if len(text) > maxSnippetLen {
		text = text[:maxSnippetLen] + "..."
	}
	return text
}

func computeLineStarts(source []byte) []int {
	starts := []int{0}
	for i, b := range source {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// extractNodeText extracts the text content of a tree-sitter node.
func extractNodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// walkTree recursively walks a tree-sitter tree and calls the visitor for each node.
// Returning false from the visitor skips the node's children.
func walkTree(node *sitter.Node, visitor func(*sitter.Node) bool) {
	if node == nil {
		return
	}

	if !visitor(node) {
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		walkTree(child, visitor)
	}
}

// WalkTree exposes walkTree to extractors built on the parsed tree.
func WalkTree(node *sitter.Node, visitor func(*sitter.Node) bool) {
	walkTree(node, visitor)
}

// NamedChildren returns the named children of node in order.
func NamedChildren(node *sitter.Node) []*sitter.Node {
	var results []*sitter.Node
	if node == nil {
		return results
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		results = append(results, node.NamedChild(uint(i)))
	}
	return results
}

// Unparen strips redundant parentheses around an expression.
func Unparen(node *sitter.Node) *sitter.Node {
	for node != nil && node.Kind() == "parenthesized_expression" && node.NamedChildCount() == 1 {
		node = node.NamedChild(0)
	}
	return node
}
