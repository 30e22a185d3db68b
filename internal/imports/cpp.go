package imports

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codegraph-dev/codegraph/internal/parser"
)

func (r *Resolver) resolveCpp(node *tree_sitter.Node, source []byte, m Map) {
	switch node.Kind() {
	case "preproc_include":
		r.cppInclude(node, source, m)
	case "template_function":
		r.cppModuleImport(node, source, m)
	case "declaration":
		r.cppModuleDeclaration(node, source, m)
	}
}

// cppInclude maps `#include "a/b.h"` to a project qualified name and
// `#include <vector>` to a std placeholder.
func (r *Resolver) cppInclude(node *tree_sitter.Node, source []byte, m Map) {
	var includePath string
	system := false

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "string_literal":
			includePath = stripQuotes(parser.NodeText(child, source))
		case "system_lib_string":
			includePath = strings.Trim(parser.NodeText(child, source), "<>")
			system = true
		}
	}
	if includePath == "" {
		return
	}

	header := includePath[strings.LastIndexByte(includePath, '/')+1:]
	local := strings.TrimSuffix(strings.TrimSuffix(header, ".hpp"), ".h")

	if system {
		full := includePath
		if !strings.HasPrefix(includePath, "std") {
			full = "std." + includePath
		}
		m[local] = full
		return
	}
	dotted := strings.ReplaceAll(includePath, "/", ".")
	dotted = strings.TrimSuffix(strings.TrimSuffix(dotted, ".hpp"), ".h")
	m[local] = r.project + "." + dotted
}

// cppModuleImport handles C++20 `import <header>;`, which the grammar
// parses as a template_function named "import".
func (r *Resolver) cppModuleImport(node *tree_sitter.Node, source []byte, m Map) {
	ident := parser.FirstChildOfKind(node, "identifier")
	if ident == nil || parser.NodeText(ident, source) != "import" {
		return
	}
	args := parser.FirstChildOfKind(node, "template_argument_list")
	if args == nil {
		return
	}

	var moduleName string
	parser.Walk(args, func(n *tree_sitter.Node) bool {
		if n.Kind() == "type_identifier" {
			moduleName = parser.NodeText(n, source)
			return false
		}
		return true
	})
	if moduleName != "" {
		m[moduleName] = "std." + moduleName
	}
}

// cppModuleDeclaration handles C++20 module syntax held in plain
// declaration nodes: `module m;` (implementation unit),
// `export module m;` (interface unit) and `export import :partition;`.
func (r *Resolver) cppModuleDeclaration(node *tree_sitter.Node, source []byte, m Map) {
	text := strings.TrimSpace(parser.NodeText(node, source))

	switch {
	case strings.HasPrefix(text, "export module "):
		name := strings.TrimSuffix(strings.Fields(text)[2], ";")
		if name != "" {
			m[name] = r.project + "." + name
		}
	case strings.HasPrefix(text, "module ") && !strings.HasPrefix(text, "module ;"):
		fields := strings.Fields(text)
		if len(fields) < 2 {
			return
		}
		name := strings.TrimSuffix(fields[1], ";")
		if name != "" {
			m[name] = r.project + "." + name
		}
	case strings.Contains(text, "import :"):
		colon := strings.IndexByte(text, ':')
		partition := strings.TrimSpace(strings.SplitN(text[colon+1:], ";", 2)[0])
		if partition != "" {
			m["partition_"+partition] = r.project + "." + partition
		}
	}
}
