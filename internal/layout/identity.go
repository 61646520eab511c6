package layout

import (
	"errors"
	"strings"

	"github.com/mvp-joe/shadow-ui/internal/indexer/extraction"
	"github.com/mvp-joe/shadow-ui/internal/indexer/parsers"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// classifyIdentities sets the identity of every node and records the
// identities that could not be read statically.
func (fx *fileExtractor) classifyIdentities() {
	resolver := newConstantResolver(fx.tree, fx.constants)
	for i, call := range fx.calls {
		fx.result.Nodes[i].Identity = fx.classify(call, resolver)
	}
}

func (fx *fileExtractor) classify(call *sitter.Node, resolver *constantResolver) extraction.Identity {
	value := fx.tree.KeywordArgument(call, fx.opts.IDKeyword)
	if value == nil {
		if parsers.HasDictionarySplat(call) {
			fx.record(extraction.BucketIDKwargsSplat, call, "identity may come from a ** mapping")
			return extraction.Identity{Kind: extraction.IdentityNonLiteral}
		}
		return extraction.Identity{Kind: extraction.IdentityNone}
	}

	value = parsers.Unparen(value)
	if value.Kind() == "none" {
		return extraction.Identity{Kind: extraction.IdentityNone}
	}

	str, err := fx.tree.DecodeString(value)
	switch {
	case err == nil:
		if text, _, ok := str.Literal(); ok {
			return extraction.Identity{Kind: extraction.IdentityLiteral, Value: text}
		}
		if template, ok := fx.patternTemplate(str); ok {
			fx.record(extraction.BucketIDPattern, value, template)
			return extraction.Identity{Kind: extraction.IdentityPattern, Value: template}
		}
		fx.record(extraction.BucketIDNonLiteral, value, "formatted string with computed parts")
		return extraction.Identity{Kind: extraction.IdentityNonLiteral}

	case errors.Is(err, parsers.ErrNotString):
		if value.Kind() == "identifier" {
			if text, ok := resolver.resolve(fx.tree.Text(value)); ok {
				return extraction.Identity{Kind: extraction.IdentityLiteral, Value: text}
			}
		}
		fx.record(extraction.BucketIDNonLiteral, value, "identity computed at run time")
		return extraction.Identity{Kind: extraction.IdentityNonLiteral}

	default:
		fx.record(extraction.BucketIDNonLiteral, value, err.Error())
		return extraction.Identity{Kind: extraction.IdentityNonLiteral}
	}
}

// patternTemplate renders an f-string as a template such as `item_{i}`. Only
// f-strings with at least one literal segment whose interpolations are all
// bare names qualify.
func (fx *fileExtractor) patternTemplate(str *parsers.StringValue) (string, bool) {
	var sb strings.Builder
	hasLiteral := false
	for _, part := range str.Parts {
		if part.Interpolation == nil {
			if part.Text != "" {
				hasLiteral = true
			}
			sb.WriteString(part.Text)
			continue
		}
		name, ok := fx.tree.InterpolationName(part.Interpolation)
		if !ok {
			return "", false
		}
		sb.WriteString("{" + name + "}")
	}
	if !hasLiteral {
		return "", false
	}
	return sb.String(), true
}

// constantResolver resolves names to string constants: those defined once in
// the file and those imported from another module of the run.
type constantResolver struct {
	path     string
	local    map[string]string
	imported map[string]parsers.ImportedName
	bindings map[string]int
	table    *parsers.ConstantTable
}

func newConstantResolver(tree *parsers.SourceTree, table *parsers.ConstantTable) *constantResolver {
	r := &constantResolver{
		path:     tree.Path,
		local:    tree.StringConstants(),
		imported: make(map[string]parsers.ImportedName),
		bindings: tree.BindingCounts(),
		table:    table,
	}
	for _, imp := range tree.FromImports() {
		for _, name := range imp.Names {
			r.imported[name.Alias] = name
		}
	}
	return r
}

func (r *constantResolver) resolve(name string) (string, bool) {
	if value, ok := r.local[name]; ok {
		return value, true
	}
	ref, ok := r.imported[name]
	if !ok || r.table == nil || r.bindings[name] != 1 {
		return "", false
	}
	return r.table.Resolve(r.path, ref)
}
