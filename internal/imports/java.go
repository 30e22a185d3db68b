package imports

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codegraph-dev/codegraph/internal/parser"
)

// resolveJava handles `import a.b.C;`, `import static a.b.C.m;` and
// wildcard `import a.b.*;`. Static and plain imports both bind the final
// segment; wildcards are stored under the "*<package>" key.
func (r *Resolver) resolveJava(node *tree_sitter.Node, source []byte, m Map) {
	var importedPath string
	wildcard := false

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "scoped_identifier":
			importedPath = parser.NodeText(child, source)
		case "identifier":
			if importedPath == "" {
				importedPath = parser.NodeText(child, source)
			}
		case "asterisk":
			wildcard = true
		}
	}
	if importedPath == "" {
		return
	}

	if wildcard {
		m["*"+importedPath] = importedPath
		return
	}
	segments := strings.Split(importedPath, ".")
	m[segments[len(segments)-1]] = importedPath
}
