package parsers

import (
	"strings"
	"sync"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// StringConstants returns names bound exactly once in the file, where that
// single binding is a module- or class-level assignment of a plain string literal.
func (t *SourceTree) StringConstants() map[string]string {
	bindings := t.BindingCounts()

	consts := make(map[string]string)
	walkTree(t.Root(), func(n *sitter.Node) bool {
		switch n.Kind() {
		case "function_definition", "lambda":
			return false
		case "assignment":
			left := n.ChildByFieldName("left")
			right := n.ChildByFieldName("right")
			if left == nil || right == nil || left.Kind() != "identifier" || !isDeclarationLevel(n) {
				return true
			}
			name := t.Text(left)
			if bindings[name] != 1 {
				return true
			}
			value, err := t.DecodeString(right)
			if err != nil {
				return true
			}
			if text, _, ok := value.Literal(); ok {
				consts[name] = text
			}
		}
		return true
	})
	return consts
}

// isDeclarationLevel reports whether an assignment sits directly in the module
// or a class body.
func isDeclarationLevel(assign *sitter.Node) bool {
	stmt := assign.Parent()
	if stmt == nil || stmt.Kind() != "expression_statement" {
		return false
	}
	container := stmt.Parent()
	if container == nil {
		return false
	}
	switch container.Kind() {
	case "module":
		return true
	case "block":
		owner := container.Parent()
		return owner != nil && owner.Kind() == "class_definition"
	}
	return false
}

// BindingCounts counts how many times each name is bound anywhere in the file.
func (t *SourceTree) BindingCounts() map[string]int {
	counts := make(map[string]int)
	t.VisitBindings(func(name string, _ *sitter.Node) {
		counts[name]++
	})
	return counts
}

// VisitBindings calls fn for every name binding in the file. at is the
// identifier that binds the name, or the definition node for def and class
// names, so EnclosingScope(at) is the scope receiving the binding.
func (t *SourceTree) VisitBindings(fn func(name string, at *sitter.Node)) {
	var addTarget func(n *sitter.Node)
	addTarget = func(n *sitter.Node) {
		if n == nil {
			return
		}
		switch n.Kind() {
		case "identifier":
			fn(t.Text(n), n)
		case "pattern_list", "tuple_pattern", "list_pattern", "list_splat_pattern",
			"dictionary_splat_pattern", "parenthesized_expression", "tuple", "list",
			"as_pattern_target", "typed_parameter":
			for _, child := range NamedChildren(n) {
				addTarget(child)
			}
		}
	}

	walkTree(t.Root(), func(n *sitter.Node) bool {
		switch n.Kind() {
		case "assignment", "augmented_assignment":
			addTarget(n.ChildByFieldName("left"))
		case "for_statement", "for_in_clause":
			addTarget(n.ChildByFieldName("left"))
		case "named_expression":
			addTarget(n.ChildByFieldName("name"))
		case "as_pattern":
			addTarget(n.ChildByFieldName("alias"))
		case "function_definition", "class_definition":
			if name := n.ChildByFieldName("name"); name != nil {
				fn(t.Text(name), n)
			}
		case "parameters", "lambda_parameters":
			for _, param := range NamedChildren(n) {
				switch param.Kind() {
				case "default_parameter", "typed_default_parameter":
					addTarget(param.ChildByFieldName("name"))
				default:
					addTarget(param)
				}
			}
		case "global_statement", "nonlocal_statement":
			for _, child := range NamedChildren(n) {
				addTarget(child)
			}
		case "import_statement":
			for _, child := range NamedChildren(n) {
				switch child.Kind() {
				case "dotted_name":
					fn(strings.SplitN(t.Text(child), ".", 2)[0], child)
				case "aliased_import":
					addTarget(child.ChildByFieldName("alias"))
				}
			}
		case "import_from_statement":
			for _, imp := range t.parseFromImport(n).Names {
				fn(imp.Alias, imp.Node)
			}
			return false
		}
		return true
	})
}

// ConstantTable maps dotted module paths to their string constants. It is
// built before extraction and is read-only afterwards.
type ConstantTable struct {
	mu      sync.Mutex
	modules map[string]map[string]string
}

// NewConstantTable creates an empty table.
func NewConstantTable() *ConstantTable {
	return &ConstantTable{modules: make(map[string]map[string]string)}
}

// Add records the constants of the module at filePath.
func (c *ConstantTable) Add(filePath string, consts map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modules[ModulePath(filePath)] = consts
}

// Local returns the constants defined by the file itself.
func (c *ConstantTable) Local(filePath string) map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modules[ModulePath(filePath)]
}

// Resolve looks up an imported name from the module it was imported from.
// Absolute imports match any module path ending in the imported module, and
// resolve only when every matching module agrees on a single value.
func (c *ConstantTable) Resolve(fromFile string, ref ImportedName) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ref.Level > 0 {
		target, ok := relativeTarget(fromFile, ref)
		if !ok {
			return "", false
		}
		value, found := c.modules[target][ref.Name]
		return value, found
	}

	var values []string
	for module, consts := range c.modules {
		if module != ref.Module && !strings.HasSuffix(module, "."+ref.Module) {
			continue
		}
		if value, found := consts[ref.Name]; found {
			values = append(values, value)
		}
	}
	if len(values) == 0 {
		return "", false
	}
	for _, v := range values[1:] {
		if v != values[0] {
			return "", false
		}
	}
	return values[0], true
}

func relativeTarget(fromFile string, ref ImportedName) (string, bool) {
	var parts []string
	if module := ModulePath(fromFile); module != "" {
		parts = strings.Split(module, ".")
	}
	if !IsPackageInit(fromFile) {
		if len(parts) == 0 {
			return "", false
		}
		parts = parts[:len(parts)-1]
	}
	up := ref.Level - 1
	if up > len(parts) {
		return "", false
	}
	parts = parts[:len(parts)-up]
	if ref.Module != "" {
		parts = append(parts, strings.Split(ref.Module, ".")...)
	}
	return strings.Join(parts, "."), true
}
