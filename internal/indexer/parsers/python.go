package parsers

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// PythonParser parses Python files.
type PythonParser struct {
	*treeSitterParser
}

// NewPythonParser creates a new Python parser.
func NewPythonParser() *PythonParser {
	lang := sitter.NewLanguage(python.Language())
	return &PythonParser{
		treeSitterParser: newTreeSitterParser(lang, "python"),
	}
}

// Parse parses a Python source file. The caller must Close the returned tree.
// A tree with syntax errors is still returned; callers decide how to treat it.
func (p *PythonParser) Parse(filePath string, source []byte) (*SourceTree, error) {
	return p.parse(filePath, source)
}

// Callee returns the function expression of a call node.
func Callee(call *sitter.Node) *sitter.Node {
	return call.ChildByFieldName("function")
}

// CallArguments returns the argument nodes of a call in order. Generator
// arguments (`f(x for x in y)`) yield a single generator_expression.
func CallArguments(call *sitter.Node) []*sitter.Node {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return nil
	}
	if args.Kind() == "generator_expression" {
		return []*sitter.Node{args}
	}
	var result []*sitter.Node
	for _, child := range NamedChildren(args) {
		if child.Kind() == "comment" {
			continue
		}
		result = append(result, child)
	}
	return result
}

// KeywordArgument returns the value of keyword argument name, or nil.
func (t *SourceTree) KeywordArgument(call *sitter.Node, name string) *sitter.Node {
	for _, arg := range CallArguments(call) {
		if arg.Kind() != "keyword_argument" {
			continue
		}
		if t.Text(arg.ChildByFieldName("name")) == name {
			return arg.ChildByFieldName("value")
		}
	}
	return nil
}

// HasDictionarySplat reports whether a call has a `**mapping` argument.
func HasDictionarySplat(call *sitter.Node) bool {
	for _, arg := range CallArguments(call) {
		if arg.Kind() == "dictionary_splat" {
			return true
		}
	}
	return false
}

// EnclosingScope returns the nearest function_definition or class_definition
// containing node, or nil at module level.
func EnclosingScope(node *sitter.Node) *sitter.Node {
	for p := node.Parent(); p != nil; p = p.Parent() {
		switch p.Kind() {
		case "function_definition", "class_definition":
			return p
		}
	}
	return nil
}

// ScopeName describes the container of node: "method:Class.fn", "function:fn",
// "class:Class" or "module". Nested functions are joined with dots.
func (t *SourceTree) ScopeName(node *sitter.Node) string {
	var parts []string
	kind := "module"
	for p := node.Parent(); p != nil; p = p.Parent() {
		switch p.Kind() {
		case "function_definition", "class_definition":
			parts = append([]string{t.Text(p.ChildByFieldName("name"))}, parts...)
			if kind == "module" {
				if p.Kind() == "class_definition" {
					kind = "class"
				} else {
					kind = "function"
				}
			} else if kind == "function" && p.Kind() == "class_definition" && len(parts) == 2 {
				kind = "method"
			}
		}
	}
	if len(parts) == 0 {
		return kind
	}
	name := parts[0]
	for _, part := range parts[1:] {
		name += "." + part
	}
	return kind + ":" + name
}
