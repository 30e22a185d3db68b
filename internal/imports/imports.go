// Package imports builds per-module import maps: what each locally visible
// name resolves to as a qualified name. Targets may be in-project symbols,
// external packages, or standard-library placeholders; the map does not
// distinguish, it just records the best-known qualified name.
//
// Wildcard imports are stored under the key "*<target>" so later lookups
// can scan them without colliding with real local names.
package imports

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codegraph-dev/codegraph/internal/lang"
	"github.com/codegraph-dev/codegraph/internal/parser"
)

// Map is one module's import map: local name -> target qualified name.
type Map map[string]string

// Resolver dispatches import parsing by language and accumulates one Map
// per module. Writes are serialized by the pipeline's merge step.
type Resolver struct {
	project  string
	repoRoot string
	maps     map[string]Map
}

func NewResolver(project, repoRoot string) *Resolver {
	return &Resolver{project: project, repoRoot: repoRoot, maps: map[string]Map{}}
}

// ModuleMap returns the import map for a module, creating it if needed.
// Secondary idiom detectors amend the same map after the import pass.
func (r *Resolver) ModuleMap(moduleQN string) Map {
	m, ok := r.maps[moduleQN]
	if !ok {
		m = Map{}
		r.maps[moduleQN] = m
	}
	return m
}

// Modules returns the qualified names of all modules with import maps.
func (r *Resolver) Modules() []string {
	out := make([]string, 0, len(r.maps))
	for qn := range r.maps {
		out = append(out, qn)
	}
	return out
}

// Resolve parses every import construct in a module and fills its map.
// Unparseable constructs are skipped; resolution never fails a file.
func (r *Resolver) Resolve(root *tree_sitter.Node, moduleQN string, source []byte, spec *lang.LanguageSpec) {
	m := r.ModuleMap(moduleQN)

	parser.Walk(root, func(n *tree_sitter.Node) bool {
		if !spec.IsImportNode(n.Kind()) {
			return true
		}
		switch spec.Language {
		case lang.Python:
			r.resolvePython(n, moduleQN, source, m)
		case lang.JavaScript, lang.TypeScript, lang.TSX:
			r.resolveJS(n, moduleQN, source, m)
		case lang.Go:
			r.resolveGo(n, source, m)
		case lang.Rust:
			r.resolveRust(n, moduleQN, source, m)
		case lang.Java:
			r.resolveJava(n, source, m)
		case lang.CPP:
			r.resolveCpp(n, source, m)
		case lang.Lua:
			r.resolveLua(n, moduleQN, source, m)
		default:
			r.resolveGeneric(n, source, m)
		}
		// Import constructs do not nest inside each other; skipping
		// children keeps lexical_declaration handling from re-visiting.
		return spec.Language == lang.CPP || spec.Language == lang.Lua
	})

	slog.Debug("imports.resolved", "module", moduleQN, "entries", len(m))
}

// resolveGeneric is the fallback for languages without a dedicated
// strategy (PHP, C#, Scala, Kotlin): take the first dotted path in the
// import construct and bind its last segment.
func (r *Resolver) resolveGeneric(node *tree_sitter.Node, source []byte, m Map) {
	var path string
	parser.Walk(node, func(n *tree_sitter.Node) bool {
		if path != "" {
			return false
		}
		switch n.Kind() {
		case "scoped_identifier", "qualified_name", "dotted_name", "namespace_name", "identifier", "stable_identifier":
			path = parser.NodeText(n, source)
			return false
		}
		return true
	})
	if path == "" {
		return
	}
	path = strings.ReplaceAll(path, "::", ".")
	path = strings.ReplaceAll(path, "\\", ".")
	segments := strings.Split(path, ".")
	m[segments[len(segments)-1]] = path
}

// isProjectLocal reports whether a module path's top-level segment exists
// in the repository as a directory or a source file with the extension.
func (r *Resolver) isProjectLocal(topLevel, ext string) bool {
	if topLevel == "" {
		return false
	}
	if info, err := os.Stat(filepath.Join(r.repoRoot, topLevel)); err == nil && info.IsDir() {
		return true
	}
	if _, err := os.Stat(filepath.Join(r.repoRoot, topLevel+ext)); err == nil {
		return true
	}
	return false
}

func stripQuotes(s string) string {
	return strings.Trim(s, "'\"`")
}
