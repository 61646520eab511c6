package layout

import (
	"fmt"

	"github.com/mvp-joe/shadow-ui/internal/indexer/extraction"
	"github.com/mvp-joe/shadow-ui/internal/indexer/parsers"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// inertKinds are expressions that can never evaluate to a UI element.
var inertKinds = map[string]bool{
	"string":              true,
	"concatenated_string": true,
	"integer":             true,
	"float":               true,
	"none":                true,
	"true":                true,
	"false":               true,
	"dictionary":          true,
	"comment":             true,
}

func isInert(expr *sitter.Node) bool {
	expr = parsers.Unparen(expr)
	return expr == nil || inertKinds[expr.Kind()]
}

// collectNesting proposes positional UI arguments as children of the call.
func (fx *fileExtractor) collectNesting() {
	for i, call := range fx.calls {
		for _, arg := range parsers.CallArguments(call) {
			switch arg.Kind() {
			case "keyword_argument", "dictionary_splat":
				continue
			case "list_splat":
				fx.spreadChildren(i, arg, extraction.FeatureNesting, extraction.BucketChildSpreadUnresolved)
			case "generator_expression", "list_comprehension":
				fx.record(extraction.BucketChildSpreadUnresolved, arg, "children produced by a comprehension")
			default:
				if child := fx.resolveChild(arg); child >= 0 {
					fx.edges.add(i, child, extraction.FeatureNesting, arg)
				} else if !isInert(arg) {
					fx.record(extraction.BucketChildUnresolved, arg, "positional argument is not a statically known UI element")
				}
			}
		}
	}
}

// spreadChildren handles `*[A(), B()]` style arguments. Literal sequences
// contribute their elements in order; anything else is recorded under bucket.
func (fx *fileExtractor) spreadChildren(parent int, splat *sitter.Node, feature extraction.EdgeFeature, bucket string) {
	var inner *sitter.Node
	if splat.NamedChildCount() > 0 {
		inner = parsers.Unparen(splat.NamedChild(0))
	}
	if inner == nil || (inner.Kind() != "list" && inner.Kind() != "tuple") {
		fx.record(bucket, splat, "spread children cannot be enumerated")
		return
	}
	fx.sequenceChildren(parent, inner, feature, bucket)
}

// sequenceChildren links the elements of a list or tuple literal.
func (fx *fileExtractor) sequenceChildren(parent int, seq *sitter.Node, feature extraction.EdgeFeature, bucket string) {
	for _, el := range parsers.NamedChildren(seq) {
		if child := fx.resolveChild(el); child >= 0 {
			fx.edges.add(parent, child, feature, el)
			continue
		}
		if !isInert(el) {
			fx.record(bucket, el, "element is not a statically known UI element")
		}
	}
}

// uiWithItems returns the node indices of the UI calls used as context
// managers by a with statement, in item order.
func (fx *fileExtractor) uiWithItems(stmt *sitter.Node) []int {
	var items []int
	for i := 0; i < int(stmt.ChildCount()); i++ {
		clause := stmt.Child(uint(i))
		if clause.Kind() != "with_clause" {
			continue
		}
		for _, item := range parsers.NamedChildren(clause) {
			if item.Kind() != "with_item" {
				continue
			}
			value := parsers.Unparen(item.ChildByFieldName("value"))
			if value != nil && value.Kind() == "as_pattern" && value.NamedChildCount() > 0 {
				value = value.NamedChild(0)
			}
			if idx := fx.nodeOf(value); idx >= 0 {
				items = append(items, idx)
			}
		}
	}
	return items
}

// collectScopedBlocks proposes children for every `with UI(...)` block.
// `with A(), B():` nests B in A and gives the body to B.
func (fx *fileExtractor) collectScopedBlocks() {
	parsers.WalkTree(fx.tree.Root(), func(n *sitter.Node) bool {
		if n.Kind() != "with_statement" {
			return true
		}
		items := fx.uiWithItems(n)
		if len(items) == 0 {
			return true
		}
		if len(items) > 1 {
			fx.record(extraction.BucketWithMultipleUIItems, n,
				fmt.Sprintf("%d UI context managers nested in item order", len(items)))
			for k := 1; k < len(items); k++ {
				fx.edges.add(items[k-1], items[k], extraction.FeatureScopedBlock, n)
			}
		}
		fx.scanScopedBlock(items[len(items)-1], n.ChildByFieldName("body"), false)
		return true
	})
}

func (fx *fileExtractor) scanScopedBlock(parent int, block *sitter.Node, inControl bool) {
	for _, stmt := range parsers.NamedChildren(block) {
		fx.scanScopedStatement(parent, stmt, inControl)
	}
}

func (fx *fileExtractor) scanScopedStatement(parent int, stmt *sitter.Node, inControl bool) {
	switch stmt.Kind() {
	case "expression_statement":
		for _, expr := range parsers.NamedChildren(stmt) {
			if expr.Kind() != "yield" || isYieldFrom(expr) {
				continue
			}
			if child := fx.resolveChild(yieldValue(expr)); child >= 0 {
				fx.scopedChild(parent, child, expr, inControl)
			}
		}
	case "with_statement":
		if items := fx.uiWithItems(stmt); len(items) > 0 {
			// the nested block is visited on its own
			fx.scopedChild(parent, items[0], stmt, inControl)
			return
		}
		fx.scanScopedBlock(parent, stmt.ChildByFieldName("body"), inControl)
	case "function_definition", "class_definition", "decorated_definition":
		return
	default:
		for _, child := range parsers.NamedChildren(stmt) {
			fx.scanControlFlow(parent, child)
		}
	}
}

// scanControlFlow finds blocks nested in compound statements.
func (fx *fileExtractor) scanControlFlow(parent int, n *sitter.Node) {
	switch n.Kind() {
	case "block":
		fx.scanScopedBlock(parent, n, true)
	case "function_definition", "class_definition", "decorated_definition", "lambda":
		return
	default:
		for _, child := range parsers.NamedChildren(n) {
			fx.scanControlFlow(parent, child)
		}
	}
}

func (fx *fileExtractor) scopedChild(parent, child int, site *sitter.Node, inControl bool) {
	fx.edges.add(parent, child, extraction.FeatureScopedBlock, site)
	if inControl {
		fx.record(extraction.BucketScopedChildInControlFlow, site, "child yielded under control flow")
	}
}

// collectAttachCalls proposes children for `recv.mount(...)` style calls.
func (fx *fileExtractor) collectAttachCalls() {
	methods := make(map[string]bool, len(fx.opts.AttachMethods))
	for _, m := range fx.opts.AttachMethods {
		methods[m] = true
	}

	parsers.WalkTree(fx.tree.Root(), func(n *sitter.Node) bool {
		if n.Kind() != "call" {
			return true
		}
		callee := parsers.Callee(n)
		if callee == nil || callee.Kind() != "attribute" {
			return true
		}
		if !methods[fx.tree.Text(callee.ChildByFieldName("attribute"))] {
			return true
		}

		receiver := callee.ChildByFieldName("object")
		parent := fx.resolveChild(receiver)
		if parent < 0 {
			fx.record(extraction.BucketAttachParentUnresolved, n,
				fmt.Sprintf("receiver %q is not a statically known UI element", fx.tree.Text(receiver)))
			return true
		}

		for _, arg := range parsers.CallArguments(n) {
			switch arg.Kind() {
			case "keyword_argument", "dictionary_splat":
				continue
			case "list", "tuple":
				fx.sequenceChildren(parent, arg, extraction.FeatureAttachCall, extraction.BucketAttachChildUnresolved)
			case "list_splat":
				fx.spreadChildren(parent, arg, extraction.FeatureAttachCall, extraction.BucketAttachChildUnresolved)
			default:
				if child := fx.resolveChild(arg); child >= 0 {
					fx.edges.add(parent, child, extraction.FeatureAttachCall, arg)
				} else if !isInert(arg) {
					fx.record(extraction.BucketAttachChildUnresolved, arg, "argument is not a statically known UI element")
				}
			}
		}
		return true
	})
}

func isYieldFrom(yield *sitter.Node) bool {
	for i := 0; i < int(yield.ChildCount()); i++ {
		if yield.Child(uint(i)).Kind() == "from" {
			return true
		}
	}
	return false
}

func yieldValue(yield *sitter.Node) *sitter.Node {
	if yield.NamedChildCount() == 0 {
		return nil
	}
	return yield.NamedChild(0)
}
