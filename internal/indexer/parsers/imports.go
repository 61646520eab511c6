package parsers

import (
	"path"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// ImportedName is one name bound by a `from module import name [as alias]` statement.
type ImportedName struct {
	Module string // dotted module path without leading dots
	Level  int    // number of leading dots for relative imports
	Name   string // imported name
	Alias  string // local binding
	Node   *sitter.Node
}

// FromImport is one `from ... import ...` statement.
type FromImport struct {
	Module   string
	Level    int
	Names    []ImportedName
	Wildcard bool
	Node     *sitter.Node
}

// FromImports returns every from-import statement in the file, including
// imports nested in functions or conditionals.
func (t *SourceTree) FromImports() []FromImport {
	var imports []FromImport
	walkTree(t.Root(), func(n *sitter.Node) bool {
		if n.Kind() != "import_from_statement" {
			return true
		}
		imports = append(imports, t.parseFromImport(n))
		return false
	})
	return imports
}

func (t *SourceTree) parseFromImport(n *sitter.Node) FromImport {
	imp := FromImport{Node: n}
	seenImport := false
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(uint(i))
		switch child.Kind() {
		case "import":
			seenImport = true
		case "relative_import":
			if !seenImport {
				imp.Level, imp.Module = t.relativeModule(child)
			}
		case "dotted_name":
			if !seenImport {
				imp.Module = t.Text(child)
				continue
			}
			name := t.Text(child)
			imp.Names = append(imp.Names, ImportedName{Name: name, Alias: name, Node: child})
		case "aliased_import":
			name := t.Text(child.ChildByFieldName("name"))
			alias := t.Text(child.ChildByFieldName("alias"))
			imp.Names = append(imp.Names, ImportedName{Name: name, Alias: alias, Node: child})
		case "wildcard_import":
			imp.Wildcard = true
		}
	}
	for i := range imp.Names {
		imp.Names[i].Module = imp.Module
		imp.Names[i].Level = imp.Level
	}
	return imp
}

func (t *SourceTree) relativeModule(n *sitter.Node) (int, string) {
	level := 0
	module := ""
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(uint(i))
		switch child.Kind() {
		case "import_prefix":
			level = strings.Count(t.Text(child), ".")
		case "dotted_name":
			module = t.Text(child)
		}
	}
	return level, module
}

// HasModulePrefix reports whether module equals one of prefixes or is a submodule of one.
func HasModulePrefix(module string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if module == prefix || strings.HasPrefix(module, prefix+".") {
			return true
		}
	}
	return false
}

// DialectImports holds the UI-constructor names a file imports from the dialect.
type DialectImports struct {
	Symbols     map[string]string // local name -> imported name
	StarImports []*sitter.Node    // `from <dialect> import *`
}

// CollectDialectImports finds names imported from any of the dialect prefixes
// that the file reads somewhere. Names listed in ignore are never treated as
// constructors.
func (t *SourceTree) CollectDialectImports(prefixes, ignore []string) DialectImports {
	ignored := make(map[string]bool, len(ignore))
	for _, name := range ignore {
		ignored[name] = true
	}
	loaded := t.LoadedNames()

	result := DialectImports{Symbols: make(map[string]string)}
	for _, imp := range t.FromImports() {
		if imp.Level > 0 || !HasModulePrefix(imp.Module, prefixes) {
			continue
		}
		if imp.Wildcard {
			result.StarImports = append(result.StarImports, imp.Node)
			continue
		}
		for _, name := range imp.Names {
			if ignored[name.Name] || strings.Contains(name.Alias, ".") || !loaded[name.Alias] {
				continue
			}
			result.Symbols[name.Alias] = name.Name
		}
	}
	return result
}

// LoadedNames returns the names the file reads: identifiers other than
// binding targets, import clauses, attribute names and keyword names.
// Augmented assignment targets are reads.
func (t *SourceTree) LoadedNames() map[string]bool {
	stores := make(map[uint]bool)
	t.VisitBindings(func(_ string, at *sitter.Node) {
		if at.Kind() != "identifier" {
			return
		}
		if parent := at.Parent(); parent != nil && parent.Kind() == "augmented_assignment" {
			return
		}
		stores[at.StartByte()] = true
	})

	loaded := make(map[string]bool)
	walkTree(t.Root(), func(n *sitter.Node) bool {
		switch n.Kind() {
		case "import_statement", "import_from_statement", "future_import_statement":
			return false
		case "identifier":
			if !stores[n.StartByte()] && !isNameField(n) {
				loaded[t.Text(n)] = true
			}
		}
		return true
	})
	return loaded
}

// isNameField reports whether ident names an attribute, keyword argument or
// definition rather than referring to a variable.
func isNameField(ident *sitter.Node) bool {
	parent := ident.Parent()
	if parent == nil {
		return false
	}
	var field string
	switch parent.Kind() {
	case "attribute":
		field = "attribute"
	case "keyword_argument", "function_definition", "class_definition":
		field = "name"
	default:
		return false
	}
	named := parent.ChildByFieldName(field)
	return named != nil && named.StartByte() == ident.StartByte()
}

// ModulePath converts a slash-separated relative file path to a dotted module
// path: "app/widgets/ids.py" -> "app.widgets.ids", "app/__init__.py" -> "app".
func ModulePath(filePath string) string {
	p := strings.TrimSuffix(path.Clean(filePath), ".py")
	p = strings.TrimSuffix(p, "/__init__")
	if p == "__init__" {
		return ""
	}
	return strings.ReplaceAll(p, "/", ".")
}

// IsPackageInit reports whether filePath is a package __init__ module.
func IsPackageInit(filePath string) bool {
	return path.Base(filePath) == "__init__.py"
}
