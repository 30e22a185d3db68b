package imports

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codegraph-dev/codegraph/internal/parser"
)

func (r *Resolver) resolveJS(node *tree_sitter.Node, moduleQN string, source []byte, m Map) {
	switch node.Kind() {
	case "import_statement":
		r.jsImportStatement(node, moduleQN, source, m)
	case "lexical_declaration", "variable_declaration":
		r.jsRequire(node, moduleQN, source, m)
	case "export_statement":
		r.jsReexport(node, moduleQN, source, m)
	}
}

// jsImportStatement handles default, named and namespace ES module imports.
// Default imports bind to `<source>.default`; namespace imports bind to the
// source module itself.
func (r *Resolver) jsImportStatement(node *tree_sitter.Node, moduleQN string, source []byte, m Map) {
	sourceModule := r.jsSourceModule(node, moduleQN, source)
	if sourceModule == "" {
		return
	}

	clause := parser.FirstChildOfKind(node, "import_clause")
	if clause == nil {
		return
	}
	for i := uint(0); i < clause.ChildCount(); i++ {
		child := clause.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "identifier":
			m[parser.NodeText(child, source)] = sourceModule + ".default"
		case "named_imports":
			for _, spec := range parser.NamedChildren(child) {
				if spec.Kind() != "import_specifier" {
					continue
				}
				nameNode := spec.ChildByFieldName("name")
				if nameNode == nil {
					continue
				}
				imported := parser.NodeText(nameNode, source)
				local := imported
				if aliasNode := spec.ChildByFieldName("alias"); aliasNode != nil {
					local = parser.NodeText(aliasNode, source)
				}
				m[local] = sourceModule + "." + imported
			}
		case "namespace_import":
			if ident := parser.FirstChildOfKind(child, "identifier"); ident != nil {
				m[parser.NodeText(ident, source)] = sourceModule
			}
		}
	}
}

// jsRequire handles `const x = require('mod')` in lexical and variable
// declarations.
func (r *Resolver) jsRequire(node *tree_sitter.Node, moduleQN string, source []byte, m Map) {
	for _, declarator := range parser.NamedChildren(node) {
		if declarator.Kind() != "variable_declarator" {
			continue
		}
		nameNode := declarator.ChildByFieldName("name")
		valueNode := declarator.ChildByFieldName("value")
		if nameNode == nil || valueNode == nil ||
			nameNode.Kind() != "identifier" || valueNode.Kind() != "call_expression" {
			continue
		}
		fnNode := valueNode.ChildByFieldName("function")
		argsNode := valueNode.ChildByFieldName("arguments")
		if fnNode == nil || argsNode == nil ||
			fnNode.Kind() != "identifier" || parser.NodeText(fnNode, source) != "require" {
			continue
		}
		if str := parser.FirstChildOfKind(argsNode, "string"); str != nil {
			required := stripQuotes(parser.NodeText(str, source))
			m[parser.NodeText(nameNode, source)] = r.jsModulePath(required, moduleQN)
		}
	}
}

// jsReexport handles `export { a, b as c } from './m'` and
// `export * from './m'`.
func (r *Resolver) jsReexport(node *tree_sitter.Node, moduleQN string, source []byte, m Map) {
	sourceModule := r.jsSourceModule(node, moduleQN, source)
	if sourceModule == "" {
		return
	}

	starred := false
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "export_clause":
			for _, spec := range parser.NamedChildren(child) {
				if spec.Kind() != "export_specifier" {
					continue
				}
				nameNode := spec.ChildByFieldName("name")
				if nameNode == nil {
					continue
				}
				original := parser.NodeText(nameNode, source)
				exported := original
				if aliasNode := spec.ChildByFieldName("alias"); aliasNode != nil {
					exported = parser.NodeText(aliasNode, source)
				}
				m[exported] = sourceModule + "." + original
			}
		case "*":
			starred = true
		}
	}
	if starred {
		m["*"+sourceModule] = sourceModule
	}
}

func (r *Resolver) jsSourceModule(node *tree_sitter.Node, moduleQN string, source []byte) string {
	str := parser.FirstChildOfKind(node, "string")
	if str == nil {
		return ""
	}
	return r.jsModulePath(stripQuotes(parser.NodeText(str, source)), moduleQN)
}

// jsModulePath maps an import string onto a qualified name. Bare package
// names pass through with slashes dotted; relative paths walk ./ and ../
// against the importing module's directory.
func (r *Resolver) jsModulePath(importPath, currentModule string) string {
	if !strings.HasPrefix(importPath, ".") {
		return strings.ReplaceAll(importPath, "/", ".")
	}

	parts := strings.Split(currentModule, ".")
	parts = parts[:len(parts)-1] // start from the module's directory
	for _, seg := range strings.Split(importPath, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(parts) > 0 {
				parts = parts[:len(parts)-1]
			}
		default:
			parts = append(parts, seg)
		}
	}
	return strings.Join(parts, ".")
}
