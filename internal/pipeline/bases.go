package pipeline

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codegraph-dev/codegraph/internal/lang"
	"github.com/codegraph-dev/codegraph/internal/parser"
)

// extractBaseClasses returns the declared parent names of a class-like
// node. Names are as written in source; resolution against the registry
// and import maps happens in the inheritance pass.
func extractBaseClasses(node *tree_sitter.Node, source []byte, language lang.Language) []string {
	switch language {
	case lang.Python:
		return pythonBases(node, source)
	case lang.Java:
		return javaBases(node, source)
	case lang.JavaScript, lang.TypeScript, lang.TSX:
		return jsBases(node, source)
	case lang.CPP:
		return cppBases(node, source)
	case lang.CSharp:
		return csharpBases(node, source)
	case lang.PHP:
		return phpBases(node, source)
	case lang.Scala:
		return scalaBases(node, source)
	case lang.Kotlin:
		return kotlinBases(node, source)
	}
	// Go and Rust express reuse through embedding and impl blocks, not a
	// superclass clause; Lua has no class syntax.
	return nil
}

func pythonBases(node *tree_sitter.Node, source []byte) []string {
	superNode := node.ChildByFieldName("superclasses")
	if superNode == nil {
		return nil
	}
	var bases []string
	for _, child := range parser.NamedChildren(superNode) {
		if child.Kind() == "keyword_argument" {
			continue
		}
		if name := cleanTypeName(parser.NodeText(child, source)); name != "" {
			bases = append(bases, name)
		}
	}
	return bases
}

func javaBases(node *tree_sitter.Node, source []byte) []string {
	var bases []string
	if superNode := node.ChildByFieldName("superclass"); superNode != nil {
		// The raw text includes the extends keyword.
		if typeID := parser.FirstChildOfKind(superNode, "type_identifier"); typeID != nil {
			if name := parser.NodeText(typeID, source); name != "" {
				bases = append(bases, name)
			}
		}
	}
	if implNode := node.ChildByFieldName("interfaces"); implNode != nil {
		for _, child := range parser.NamedChildren(implNode) {
			for _, t := range parser.NamedChildren(child) {
				if name := cleanTypeName(parser.NodeText(t, source)); name != "" {
					bases = append(bases, name)
				}
			}
		}
	}
	return bases
}

func jsBases(node *tree_sitter.Node, source []byte) []string {
	var bases []string
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || child.Kind() != "class_heritage" {
			continue
		}
		for j := uint(0); j < child.ChildCount(); j++ {
			h := child.Child(j)
			if h == nil {
				continue
			}
			switch h.Kind() {
			case "extends_clause", "implements_clause":
				for _, t := range parser.NamedChildren(h) {
					if name := cleanTypeName(parser.NodeText(t, source)); name != "" {
						bases = append(bases, name)
					}
				}
			case "identifier", "member_expression":
				// JS class_heritage holds the parent directly.
				if name := parser.NodeText(h, source); name != "" {
					bases = append(bases, name)
				}
			}
		}
	}
	// TS interfaces: interface A extends B, C
	if node.Kind() == "interface_declaration" {
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child == nil || child.Kind() != "extends_type_clause" {
				continue
			}
			for _, t := range parser.NamedChildren(child) {
				if name := cleanTypeName(parser.NodeText(t, source)); name != "" {
					bases = append(bases, name)
				}
			}
		}
	}
	return bases
}

func cppBases(node *tree_sitter.Node, source []byte) []string {
	var bases []string
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || child.Kind() != "base_class_clause" {
			continue
		}
		for _, base := range parser.NamedChildren(child) {
			if base.Kind() == "type_identifier" || base.Kind() == "qualified_identifier" {
				if name := parser.NodeText(base, source); name != "" {
					bases = append(bases, name)
				}
			}
		}
	}
	return bases
}

func csharpBases(node *tree_sitter.Node, source []byte) []string {
	baseList := node.ChildByFieldName("bases")
	if baseList == nil {
		baseList = parser.FirstChildOfKind(node, "base_list")
	}
	if baseList == nil {
		return nil
	}
	var bases []string
	for _, child := range parser.NamedChildren(baseList) {
		if name := cleanTypeName(parser.NodeText(child, source)); name != "" {
			bases = append(bases, name)
		}
	}
	return bases
}

func phpBases(node *tree_sitter.Node, source []byte) []string {
	var bases []string
	for _, kind := range []string{"base_clause", "class_interface_clause"} {
		clause := parser.FirstChildOfKind(node, kind)
		if clause == nil {
			continue
		}
		for _, child := range parser.NamedChildren(clause) {
			if child.Kind() == "name" || child.Kind() == "qualified_name" {
				if name := parser.NodeText(child, source); name != "" {
					bases = append(bases, name)
				}
			}
		}
	}
	return bases
}

func scalaBases(node *tree_sitter.Node, source []byte) []string {
	var bases []string
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || child.Kind() != "extends_clause" {
			continue
		}
		for _, t := range parser.NamedChildren(child) {
			if t.Kind() == "type_identifier" {
				if name := parser.NodeText(t, source); name != "" {
					bases = append(bases, name)
				}
			}
		}
	}
	return bases
}

func kotlinBases(node *tree_sitter.Node, source []byte) []string {
	var bases []string
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if child.Kind() == "delegation_specifier_list" || child.Kind() == "delegation_specifiers" {
			for _, spec := range parser.NamedChildren(child) {
				if name := cleanTypeName(parser.NodeText(spec, source)); name != "" {
					bases = append(bases, name)
				}
			}
		}
	}
	return bases
}

// cleanTypeName strips generic arguments and constructor calls from a
// declared parent: `Base<T>` and `Parent()` both yield the bare name.
func cleanTypeName(name string) string {
	if idx := strings.IndexAny(name, "<(["); idx > 0 {
		name = name[:idx]
	}
	return strings.TrimSpace(name)
}
