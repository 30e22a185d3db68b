package imports

import (
	"os"
	"path/filepath"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codegraph-dev/codegraph/internal/parser"
)

var luaStdlibModules = map[string]bool{
	"string": true, "math": true, "table": true, "os": true, "io": true,
	"debug": true, "package": true, "coroutine": true, "utf8": true, "bit32": true,
}

func (r *Resolver) resolveLua(node *tree_sitter.Node, moduleQN string, source []byte, m Map) {
	switch {
	case luaIsRequire(node, source):
		modulePath := luaRequireArg(node, source)
		if modulePath == "" {
			return
		}
		local := luaAssignedName(node, source, 0)
		if local == "" {
			segments := strings.Split(modulePath, ".")
			local = segments[len(segments)-1]
		}
		m[local] = r.luaModulePath(modulePath, moduleQN)

	case luaIsPcallRequire(node, source):
		modulePath := luaPcallRequireArg(node, source)
		if modulePath == "" {
			return
		}
		// `local ok, json = pcall(require, 'json')`: the module binds to
		// the second assignment target.
		local := luaAssignedName(node, source, 1)
		if local == "" {
			segments := strings.Split(modulePath, ".")
			local = segments[len(segments)-1]
		}
		m[local] = r.luaModulePath(modulePath, moduleQN)

	case luaStdlibCallee(node, source) != "":
		// Calls like string.upper imply an implicit stdlib import.
		mod := luaStdlibCallee(node, source)
		m[mod] = mod
	}
}

func luaCallee(node *tree_sitter.Node) *tree_sitter.Node {
	if node.ChildCount() == 0 {
		return nil
	}
	return node.Child(0)
}

func luaIsRequire(node *tree_sitter.Node, source []byte) bool {
	callee := luaCallee(node)
	return callee != nil && callee.Kind() == "identifier" && parser.NodeText(callee, source) == "require"
}

func luaIsPcallRequire(node *tree_sitter.Node, source []byte) bool {
	callee := luaCallee(node)
	if callee == nil || callee.Kind() != "identifier" || parser.NodeText(callee, source) != "pcall" {
		return false
	}
	args := node.ChildByFieldName("arguments")
	if args == nil {
		return false
	}
	for _, arg := range parser.NamedChildren(args) {
		return arg.Kind() == "identifier" && parser.NodeText(arg, source) == "require"
	}
	return false
}

func luaRequireArg(node *tree_sitter.Node, source []byte) string {
	scope := node.ChildByFieldName("arguments")
	if scope == nil {
		scope = node
	}
	for _, child := range parser.NamedChildren(scope) {
		if child.Kind() == "string" || child.Kind() == "string_literal" {
			return stripQuotes(parser.NodeText(child, source))
		}
	}
	return ""
}

func luaPcallRequireArg(node *tree_sitter.Node, source []byte) string {
	args := node.ChildByFieldName("arguments")
	if args == nil {
		return ""
	}
	seenRequire := false
	for _, child := range parser.NamedChildren(args) {
		if seenRequire && (child.Kind() == "string" || child.Kind() == "string_literal") {
			return stripQuotes(parser.NodeText(child, source))
		}
		if child.Kind() == "identifier" && parser.NodeText(child, source) == "require" {
			seenRequire = true
		}
	}
	return ""
}

// luaAssignedName finds the nth identifier on the left side of the
// assignment or local declaration enclosing a call.
func luaAssignedName(node *tree_sitter.Node, source []byte, index int) string {
	for current := node.Parent(); current != nil; current = current.Parent() {
		kind := current.Kind()
		if kind != "assignment_statement" && kind != "variable_declaration" && kind != "local_variable_declaration" {
			continue
		}
		var names []string
		parser.Walk(current, func(n *tree_sitter.Node) bool {
			switch n.Kind() {
			case "identifier":
				names = append(names, parser.NodeText(n, source))
				return false
			case "function_call", "expression_list":
				// Stop at the right-hand side.
				return false
			}
			return true
		})
		if index < len(names) {
			return names[index]
		}
		return ""
	}
	return ""
}

func luaStdlibCallee(node *tree_sitter.Node, source []byte) string {
	callee := luaCallee(node)
	if callee == nil || callee.Kind() != "dot_index_expression" {
		return ""
	}
	first := callee.Child(0)
	if first == nil || first.Kind() != "identifier" {
		return ""
	}
	mod := parser.NodeText(first, source)
	if luaStdlibModules[mod] {
		return mod
	}
	return ""
}

// luaModulePath resolves a require path. `./` and `../` walk the current
// module's directory; dotted or bare names are probed against the repo to
// decide whether they are project-local.
func (r *Resolver) luaModulePath(importPath, currentModule string) string {
	if strings.HasPrefix(importPath, "./") || strings.HasPrefix(importPath, "../") {
		parts := strings.Split(currentModule, ".")
		parts = parts[:len(parts)-1]
		for _, seg := range strings.Split(strings.ReplaceAll(importPath, "\\", "/"), "/") {
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

	dotted := strings.ReplaceAll(importPath, "/", ".")
	relFile := filepath.FromSlash(strings.ReplaceAll(dotted, ".", "/")) + ".lua"
	if _, err := os.Stat(filepath.Join(r.repoRoot, relFile)); err == nil {
		return r.project + "." + dotted
	}
	return dotted
}
