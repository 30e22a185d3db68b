package imports

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codegraph-dev/codegraph/internal/parser"
)

func (r *Resolver) resolveRust(node *tree_sitter.Node, moduleQN string, source []byte, m Map) {
	switch node.Kind() {
	case "use_declaration":
		entries := map[string]string{}
		if arg := node.ChildByFieldName("argument"); arg != nil {
			rustUseTree(arg, "", source, entries)
		}
		for name, path := range entries {
			if strings.HasPrefix(name, "*") {
				qualified := r.rustQualify(path, moduleQN)
				m["*"+qualified] = qualified
				continue
			}
			m[name] = r.rustQualify(path, moduleQN)
		}
	case "extern_crate_declaration":
		nameNode := node.ChildByFieldName("name")
		if nameNode == nil {
			return
		}
		crate := parser.NodeText(nameNode, source)
		local := crate
		if aliasNode := node.ChildByFieldName("alias"); aliasNode != nil {
			local = parser.NodeText(aliasNode, source)
		}
		m[local] = crate
	}
}

// rustUseTree walks a use declaration's argument, binding every imported
// name. Paths are accumulated with "::" and converted later.
func rustUseTree(node *tree_sitter.Node, basePath string, source []byte, entries map[string]string) {
	switch node.Kind() {
	case "identifier", "type_identifier":
		name := parser.NodeText(node, source)
		entries[name] = rustJoin(basePath, name)

	case "scoped_identifier", "scoped_type_identifier":
		path := rustPath(node, source)
		if path == "" {
			return
		}
		segments := strings.Split(path, "::")
		entries[segments[len(segments)-1]] = rustJoin(basePath, path)

	case "use_as_clause":
		var pathNode, aliasNode *tree_sitter.Node
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child == nil || child.Kind() == "as" {
				continue
			}
			if pathNode == nil {
				pathNode = child
			} else {
				aliasNode = child
			}
		}
		if pathNode == nil || aliasNode == nil {
			return
		}
		original := basePath
		if pathNode.Kind() != "self" {
			original = rustJoin(basePath, rustPath(pathNode, source))
		} else if original == "" {
			original = "self"
		}
		if alias := parser.NodeText(aliasNode, source); alias != "" && original != "" {
			entries[alias] = original
		}

	case "use_wildcard":
		base := basePath
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child != nil && child.Kind() != "*" && child.Kind() != "::" {
				base = rustJoin(basePath, rustPath(child, source))
				break
			}
		}
		if base != "" {
			entries["*"+base] = base
		}

	case "use_list":
		for _, child := range parser.NamedChildren(node) {
			rustUseTree(child, basePath, source, entries)
		}

	case "scoped_use_list":
		newBase := ""
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child == nil {
				continue
			}
			switch child.Kind() {
			case "identifier", "scoped_identifier", "crate", "super", "self":
				newBase = rustPath(child, source)
			case "use_list":
				rustUseTree(child, rustJoin(basePath, newBase), source, entries)
			}
		}

	case "self":
		base := basePath
		if base == "" {
			base = "self"
		}
		entries["self"] = base

	case "crate", "super":
		name := parser.NodeText(node, source)
		entries[name] = rustJoin(basePath, name)

	default:
		for _, child := range parser.NamedChildren(node) {
			rustUseTree(child, basePath, source, entries)
		}
	}
}

// rustPath flattens identifiers, scoped identifiers and path keywords into
// a "::"-joined path.
func rustPath(node *tree_sitter.Node, source []byte) string {
	switch node.Kind() {
	case "identifier", "type_identifier", "crate", "super", "self":
		return parser.NodeText(node, source)
	case "scoped_identifier", "scoped_type_identifier":
		var parts []string
		var collect func(n *tree_sitter.Node)
		collect = func(n *tree_sitter.Node) {
			switch n.Kind() {
			case "identifier", "type_identifier", "crate", "super", "self":
				parts = append(parts, parser.NodeText(n, source))
			case "scoped_identifier", "scoped_type_identifier":
				for i := uint(0); i < n.ChildCount(); i++ {
					if child := n.Child(i); child != nil && child.Kind() != "::" {
						collect(child)
					}
				}
			}
		}
		collect(node)
		return strings.Join(parts, "::")
	}
	return ""
}

func rustJoin(base, path string) string {
	switch {
	case base == "":
		return path
	case path == "":
		return base
	default:
		return base + "::" + path
	}
}

// rustQualify converts a "::" path to a dotted qualified name, mapping
// crate/self/super onto the project and current module.
func (r *Resolver) rustQualify(path, moduleQN string) string {
	segments := strings.Split(path, "::")
	switch segments[0] {
	case "crate":
		segments[0] = r.project
	case "self":
		segments = append(strings.Split(moduleQN, "."), segments[1:]...)
	case "super":
		moduleParts := strings.Split(moduleQN, ".")
		if len(moduleParts) > 1 {
			moduleParts = moduleParts[:len(moduleParts)-1]
		}
		segments = append(moduleParts, segments[1:]...)
	}
	return strings.Join(segments, ".")
}
