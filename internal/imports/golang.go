package imports

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codegraph-dev/codegraph/internal/parser"
)

func (r *Resolver) resolveGo(node *tree_sitter.Node, source []byte, m Map) {
	for _, child := range parser.NamedChildren(node) {
		switch child.Kind() {
		case "import_spec":
			r.goImportSpec(child, source, m)
		case "import_spec_list":
			for _, spec := range parser.NamedChildren(child) {
				if spec.Kind() == "import_spec" {
					r.goImportSpec(spec, source, m)
				}
			}
		}
	}
}

func (r *Resolver) goImportSpec(spec *tree_sitter.Node, source []byte, m Map) {
	var alias, importPath string
	for i := uint(0); i < spec.ChildCount(); i++ {
		child := spec.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "blank_identifier", "dot":
			// Side-effect and dot imports bind no local name.
			return
		case "package_identifier":
			alias = parser.NodeText(child, source)
		case "interpreted_string_literal", "raw_string_literal":
			importPath = stripQuotes(parser.NodeText(child, source))
		}
	}
	if importPath == "" {
		return
	}

	pathSegments := strings.Split(importPath, "/")
	local := alias
	if local == "" {
		local = pathSegments[len(pathSegments)-1]
	}
	m[local] = r.goQualify(pathSegments)
}

// goQualify collapses project-internal import paths at the project-name
// segment: `github.com/org/proj/internal/x` becomes `proj.internal.x`.
// External paths keep their full dotted form.
func (r *Resolver) goQualify(segments []string) string {
	for i, seg := range segments {
		if seg == r.project {
			return strings.Join(segments[i:], ".")
		}
	}
	return strings.Join(segments, ".")
}
