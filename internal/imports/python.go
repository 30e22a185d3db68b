package imports

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codegraph-dev/codegraph/internal/parser"
)

func (r *Resolver) resolvePython(node *tree_sitter.Node, moduleQN string, source []byte, m Map) {
	switch node.Kind() {
	case "import_statement":
		r.pythonImport(node, source, m)
	case "import_from_statement":
		r.pythonImportFrom(node, moduleQN, source, m)
	}
}

// pythonImport handles `import a.b.c` and `import a.b.c as alias`.
// For a plain dotted import the locally visible name is the top segment.
func (r *Resolver) pythonImport(node *tree_sitter.Node, source []byte, m Map) {
	for _, child := range parser.NamedChildren(node) {
		switch child.Kind() {
		case "dotted_name":
			moduleName := parser.NodeText(child, source)
			local := strings.Split(moduleName, ".")[0]
			m[local] = r.pythonQualify(moduleName)
		case "aliased_import":
			nameNode := child.ChildByFieldName("name")
			aliasNode := child.ChildByFieldName("alias")
			if nameNode == nil || aliasNode == nil {
				continue
			}
			moduleName := parser.NodeText(nameNode, source)
			alias := parser.NodeText(aliasNode, source)
			m[alias] = r.pythonQualify(moduleName)
		}
	}
}

// pythonImportFrom handles `from m import a, b as c` and `from m import *`.
func (r *Resolver) pythonImportFrom(node *tree_sitter.Node, moduleQN string, source []byte, m Map) {
	moduleNode := node.ChildByFieldName("module_name")
	if moduleNode == nil {
		return
	}

	var moduleName string
	switch moduleNode.Kind() {
	case "dotted_name":
		moduleName = parser.NodeText(moduleNode, source)
	case "relative_import":
		moduleName = r.pythonRelative(moduleNode, moduleQN, source)
	default:
		return
	}
	if moduleName == "" {
		return
	}

	base := moduleName
	if !strings.HasPrefix(moduleName, r.project+".") && moduleName != r.project {
		base = r.pythonQualify(moduleName)
	}

	type item struct{ local, original string }
	var items []item
	wildcard := false

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if child.Kind() == "wildcard_import" {
			wildcard = true
			break
		}
	}

	for _, nameNode := range parser.NamedChildren(node) {
		if nameNode.Id() == moduleNode.Id() {
			continue
		}
		switch nameNode.Kind() {
		case "dotted_name":
			name := parser.NodeText(nameNode, source)
			items = append(items, item{local: name, original: name})
		case "aliased_import":
			orig := nameNode.ChildByFieldName("name")
			alias := nameNode.ChildByFieldName("alias")
			if orig != nil && alias != nil {
				items = append(items, item{
					local:    parser.NodeText(alias, source),
					original: parser.NodeText(orig, source),
				})
			}
		}
	}

	if wildcard {
		m["*"+base] = base
		return
	}
	for _, it := range items {
		m[it.local] = base + "." + it.original
	}
}

// pythonRelative resolves `.mod` / `..pkg.mod` against the current module.
// Each dot strips one trailing segment from the module path (the first dot
// removes the module's own name, landing in its package).
func (r *Resolver) pythonRelative(relNode *tree_sitter.Node, moduleQN string, source []byte) string {
	moduleParts := strings.Split(moduleQN, ".")[1:] // drop project

	dots := 0
	name := ""
	for i := uint(0); i < relNode.ChildCount(); i++ {
		child := relNode.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "import_prefix":
			dots = len(parser.NodeText(child, source))
		case "dotted_name":
			name = parser.NodeText(child, source)
		}
	}

	target := moduleParts
	if dots > 0 {
		if dots > len(moduleParts) {
			target = nil
		} else {
			target = moduleParts[:len(moduleParts)-dots]
		}
	}
	if name != "" {
		target = append(append([]string{}, target...), strings.Split(name, ".")...)
	}
	return strings.Join(target, ".")
}

// pythonQualify prefixes in-project modules with the project name; stdlib
// and third-party names pass through untouched.
func (r *Resolver) pythonQualify(moduleName string) string {
	topLevel := strings.Split(moduleName, ".")[0]
	if r.isProjectLocal(topLevel, ".py") {
		return r.project + "." + moduleName
	}
	return moduleName
}
