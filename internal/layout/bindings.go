package layout

import (
	"github.com/mvp-joe/shadow-ui/internal/indexer/parsers"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// scopeBindings tracks names bound to UI calls per function, class or module scope.
// A name resolves only when the scope binds it exactly once.
type scopeBindings struct {
	counts map[spanKey]map[string]int
	ui     map[spanKey]map[string]int
}

func scopeKey(n *sitter.Node) spanKey {
	if scope := parsers.EnclosingScope(n); scope != nil {
		return keyOf(scope)
	}
	return spanKey{}
}

func collectBindings(tree *parsers.SourceTree, index map[spanKey]int) *scopeBindings {
	b := &scopeBindings{
		counts: make(map[spanKey]map[string]int),
		ui:     make(map[spanKey]map[string]int),
	}

	tree.VisitBindings(func(name string, at *sitter.Node) {
		key := scopeKey(at)
		if b.counts[key] == nil {
			b.counts[key] = make(map[string]int)
		}
		b.counts[key][name]++

		if at.Kind() != "identifier" {
			return
		}
		value := boundValue(at)
		if value == nil {
			return
		}
		value = parsers.Unparen(value)
		if value.Kind() != "call" {
			return
		}
		if idx, ok := index[keyOf(value)]; ok {
			if b.ui[key] == nil {
				b.ui[key] = make(map[string]int)
			}
			b.ui[key][name] = idx
		}
	})
	return b
}

// boundValue returns the expression assigned to identifier ident by a plain
// `name = value` assignment or a `with value as name` item, or nil.
func boundValue(ident *sitter.Node) *sitter.Node {
	parent := ident.Parent()
	if parent == nil {
		return nil
	}
	switch parent.Kind() {
	case "assignment":
		if left := parent.ChildByFieldName("left"); left != nil && keyOf(left) == keyOf(ident) {
			return parent.ChildByFieldName("right")
		}
	case "as_pattern_target":
		pattern := parent.Parent()
		if pattern != nil && pattern.Kind() == "as_pattern" && pattern.NamedChildCount() > 0 {
			return pattern.NamedChild(0)
		}
	case "as_pattern":
		if parent.NamedChildCount() > 0 {
			first := parent.NamedChild(0)
			if keyOf(first) != keyOf(ident) {
				return first
			}
		}
	}
	return nil
}

// resolve returns the node bound to ident in its scope, or -1.
func (b *scopeBindings) resolve(tree *parsers.SourceTree, ident *sitter.Node) int {
	key := scopeKey(ident)
	name := tree.Text(ident)
	if b.counts[key][name] != 1 {
		return -1
	}
	if idx, ok := b.ui[key][name]; ok {
		return idx
	}
	return -1
}
