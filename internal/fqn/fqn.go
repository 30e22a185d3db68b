// Package fqn builds fully qualified names for source entities.
//
// A qualified name is the project name, the dotted module path of the file,
// then one segment per enclosing scope, then the entity's own name:
//
//	myproject.services.auth.LoginHandler.validate
//
// Segments never contain "." themselves; overload signatures and the like
// belong in node properties, not in the name.
package fqn

import (
	"fmt"
	"path/filepath"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codegraph-dev/codegraph/internal/lang"
	"github.com/codegraph-dev/codegraph/internal/parser"
)

// ModuleQN returns the qualified name of a source file.
// Index-style basenames (__init__, index, mod) collapse into their
// containing directory so the package and its index file share one name.
func ModuleQN(project, relPath string, spec *lang.LanguageSpec) string {
	relPath = strings.TrimSuffix(relPath, filepath.Ext(relPath))
	parts := strings.Split(filepath.ToSlash(relPath), "/")

	if spec != nil && len(parts) > 1 && spec.IsIndexBasename(parts[len(parts)-1]) {
		parts = parts[:len(parts)-1]
	}

	all := append([]string{project}, parts...)
	return strings.Join(all, ".")
}

// FolderQN returns the qualified name of a directory.
func FolderQN(project, relDir string) string {
	if relDir == "" || relDir == "." {
		return project
	}
	parts := strings.Split(filepath.ToSlash(relDir), "/")
	all := append([]string{project}, parts...)
	return strings.Join(all, ".")
}

// Resolve returns the fully qualified name of a definition node.
// Ancestors whose kind is in the spec's ScopeNodeTypes each contribute one
// segment; ancestors that cannot be named contribute nothing. A definition
// with no resolvable name of its own gets a synthesized name.
func Resolve(node *tree_sitter.Node, moduleQN string, source []byte, spec *lang.LanguageSpec) string {
	name := Name(node, source, spec)
	if name == "" {
		name = SynthName(node)
	}
	scope := ScopePath(node, source, spec)
	if len(scope) > 0 {
		return moduleQN + "." + strings.Join(scope, ".") + "." + name
	}
	return moduleQN + "." + name
}

// ScopePath collects the name segments contributed by a node's enclosing
// scopes, outermost first. Enclosing functions count as scopes alongside
// the spec's ScopeNodeTypes, so nested definitions in different functions
// never share a qualified name. The walk stops at the module root.
func ScopePath(node *tree_sitter.Node, source []byte, spec *lang.LanguageSpec) []string {
	var parts []string
	for current := node.Parent(); current != nil; current = current.Parent() {
		kind := current.Kind()
		if spec.IsModuleNode(kind) {
			break
		}
		if !spec.IsScopeNode(kind) && !spec.IsFunctionNode(kind) {
			continue
		}
		if seg := scopeSegment(current, source, spec); seg != "" {
			parts = append(parts, seg)
		}
	}
	reverse(parts)
	return parts
}

func scopeSegment(node *tree_sitter.Node, source []byte, spec *lang.LanguageSpec) string {
	if node.Kind() == "impl_item" {
		return implTarget(node, source)
	}
	name := Name(node, source, spec)
	if name == "" && spec.IsFunctionNode(node.Kind()) {
		name = SynthName(node)
	}
	return name
}

// implTarget returns the implemented type's name for a rust impl block.
// For `impl Display for Point` the type field is Point; generic arguments
// are stripped so `impl<T> Stack<T>` contributes Stack.
func implTarget(node *tree_sitter.Node, source []byte) string {
	typeNode := node.ChildByFieldName("type")
	if typeNode == nil {
		return ""
	}
	target := parser.NodeText(typeNode, source)
	if i := strings.IndexByte(target, '<'); i >= 0 {
		target = target[:i]
	}
	return strings.TrimSpace(target)
}

// Name extracts a definition's own name. The spec's NameField is tried
// first; language-shaped fallbacks cover arrow functions and class
// expressions bound through variable declarators, and C-style function
// definitions whose identifier hides inside the declarator.
func Name(node *tree_sitter.Node, source []byte, spec *lang.LanguageSpec) string {
	if nameNode := node.ChildByFieldName(spec.NameField); nameNode != nil {
		return parser.NodeText(nameNode, source)
	}

	switch node.Kind() {
	case "arrow_function", "function_expression", "function", "class":
		if name := declaratorName(node, source); name != "" {
			return name
		}
	case "function_definition":
		if name := cDeclaratorName(node, source); name != "" {
			return name
		}
	case "template_declaration":
		for _, child := range parser.NamedChildren(node) {
			if name := Name(child, source, spec); name != "" {
				return name
			}
		}
	}
	return ""
}

// declaratorName walks upward looking for a variable_declarator binding,
// covering `const handler = () => {}` and `const Cls = class {}`.
func declaratorName(node *tree_sitter.Node, source []byte) string {
	for current := node.Parent(); current != nil; current = current.Parent() {
		if current.Kind() == "variable_declarator" {
			for i := uint(0); i < current.ChildCount(); i++ {
				child := current.Child(i)
				if child != nil && child.Kind() == "identifier" {
					return parser.NodeText(child, source)
				}
			}
		}
	}
	return ""
}

// cDeclaratorName digs the identifier out of a C/C++ function_definition.
func cDeclaratorName(node *tree_sitter.Node, source []byte) string {
	decl := node.ChildByFieldName("declarator")
	for decl != nil {
		switch decl.Kind() {
		case "function_declarator":
			decl = decl.ChildByFieldName("declarator")
		case "identifier", "field_identifier", "qualified_identifier", "destructor_name", "operator_name":
			return parser.NodeText(decl, source)
		default:
			decl = decl.ChildByFieldName("declarator")
		}
	}
	return ""
}

// SynthName builds a stable name for an anonymous definition from its
// zero-based position. Immediately-invoked functions are distinguished so
// their bodies group separately from plain anonymous callbacks.
func SynthName(node *tree_sitter.Node) string {
	row, col := parser.Position(node)

	parent := node.Parent()
	if parent != nil && parent.Kind() == "parenthesized_expression" {
		if gp := parent.Parent(); gp != nil && gp.Kind() == "call_expression" {
			if fn := gp.ChildByFieldName("function"); fn != nil && fn.Id() == parent.Id() {
				kind := "func"
				if node.Kind() == "arrow_function" {
					kind = "arrow"
				}
				return fmt.Sprintf("iife_%s_%d_%d", kind, row, col)
			}
		}
	}

	if parent != nil && parent.Kind() == "call_expression" {
		if fn := parent.ChildByFieldName("function"); fn != nil && fn.Id() == node.Id() {
			return fmt.Sprintf("iife_direct_%d_%d", row, col)
		}
	}

	return fmt.Sprintf("anonymous_%d_%d", row, col)
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
