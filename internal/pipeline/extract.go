package pipeline

import (
	"fmt"
	"math"
	"os"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codegraph-dev/codegraph/internal/discover"
	"github.com/codegraph-dev/codegraph/internal/fqn"
	"github.com/codegraph-dev/codegraph/internal/graph"
	"github.com/codegraph-dev/codegraph/internal/imports"
	"github.com/codegraph-dev/codegraph/internal/lang"
	"github.com/codegraph-dev/codegraph/internal/parser"
)

// fileState tracks how far a file made it through extraction, for error
// reporting.
type fileState int

const (
	stateParsed fileState = iota
	stateModuleRegistered
	stateImportsResolved
	stateDefinitionsExtracted
	stateIdiomsExtracted
	stateDone
)

func (s fileState) String() string {
	switch s {
	case stateParsed:
		return "parsed"
	case stateModuleRegistered:
		return "module_registered"
	case stateImportsResolved:
		return "imports_resolved"
	case stateDefinitionsExtracted:
		return "definitions_extracted"
	case stateIdiomsExtracted:
		return "idioms_extracted"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

type nodeWrite struct {
	Label string
	Props map[string]any
}

type relWrite struct {
	From  graph.NodeRef
	Type  string
	To    graph.NodeRef
	Props map[string]any
}

type symbolEntry struct {
	QualifiedName string
	Kind          string
}

// Extraction is one file's contribution to the graph, produced without
// touching shared state so extraction can run in parallel.
type Extraction struct {
	File     discover.FileInfo
	ModuleQN string
	State    fileState
	Err      error

	Nodes     []nodeWrite
	Rels      []relWrite
	Symbols   []symbolEntry
	ImportMap imports.Map
	// Inherits maps a class QN to its declared (unresolved) parent names.
	Inherits map[string][]string
}

func (ex *Extraction) addNode(label string, props map[string]any) {
	ex.Nodes = append(ex.Nodes, nodeWrite{Label: label, Props: props})
}

func (ex *Extraction) addRel(from graph.NodeRef, relType string, to graph.NodeRef, props map[string]any) {
	ex.Rels = append(ex.Rels, relWrite{From: from, Type: relType, To: to, Props: props})
}

func (ex *Extraction) addSymbol(qn, kind string) {
	ex.Symbols = append(ex.Symbols, symbolEntry{QualifiedName: qn, Kind: kind})
}

// extractFile parses one source file and extracts its module, imports,
// definitions and language idioms. Errors are recorded on the Extraction
// rather than returned; a failed file never fails the run.
func extractFile(project, repoPath string, f discover.FileInfo) *Extraction {
	ex := &Extraction{File: f, Inherits: map[string][]string{}}

	spec := lang.ForLanguage(f.Language)
	if spec == nil {
		ex.Err = fmt.Errorf("no language spec for %q", f.Language)
		return ex
	}

	source, err := os.ReadFile(f.Path)
	if err != nil {
		ex.Err = err
		return ex
	}
	source = stripBOM(source)

	tree, err := parser.Parse(f.Language, source)
	if err != nil {
		ex.Err = fmt.Errorf("parse: %w", err)
		return ex
	}
	defer tree.Close()
	root := tree.RootNode()
	ex.State = stateParsed

	ex.ModuleQN = fqn.ModuleQN(project, f.RelPath, spec)
	ex.addNode(graph.LabelModule, map[string]any{
		"qualified_name": ex.ModuleQN,
		"name":           moduleName(ex.ModuleQN),
		"path":           f.RelPath,
	})
	ex.addSymbol(ex.ModuleQN, graph.LabelModule)
	ex.State = stateModuleRegistered

	resolver := imports.NewResolver(project, repoPath)
	resolver.Resolve(root, ex.ModuleQN, source, spec)
	ex.ImportMap = resolver.ModuleMap(ex.ModuleQN)
	ex.State = stateImportsResolved

	extractDefinitions(ex, root, source, spec)
	ex.State = stateDefinitionsExtracted

	if f.Language == lang.CPP {
		extractCppModuleDecls(ex, source)
	}
	switch f.Language {
	case lang.JavaScript, lang.TypeScript, lang.TSX:
		extractJSIdioms(ex, root, source)
	}
	ex.State = stateIdiomsExtracted

	ex.State = stateDone
	return ex
}

// extractDefinitions walks the tree once, emitting a node for every
// function and class-like construct.
func extractDefinitions(ex *Extraction, root *tree_sitter.Node, source []byte, spec *lang.LanguageSpec) {
	moduleRef := graph.Ref(graph.LabelModule, ex.ModuleQN)

	parser.Walk(root, func(node *tree_sitter.Node) bool {
		kind := node.Kind()
		switch {
		case spec.IsFunctionNode(kind):
			// Template wrappers are skipped; the wrapped definition is
			// visited on its own.
			if kind == "template_declaration" {
				return true
			}
			// Functions bound through assignments or object literals are
			// claimed by the idiom pass, which derives their real names.
			if jsFamily(spec.Language) && idiomOwnedFunction(node) {
				return true
			}
			extractFunction(ex, node, source, spec, moduleRef)
		case spec.IsClassNode(kind):
			extractClass(ex, node, source, spec, moduleRef)
		}
		return true
	})
}

func extractFunction(ex *Extraction, node *tree_sitter.Node, source []byte, spec *lang.LanguageSpec, moduleRef graph.NodeRef) {
	qn := fqn.Resolve(node, ex.ModuleQN, source, spec)
	name := fqn.Name(node, source, spec)
	if name == "" {
		name = fqn.SynthName(node)
	}

	label := graph.LabelFunction
	relType := graph.RelDefines
	from := moduleRef
	if owner := enclosingClass(node, spec); owner != nil {
		label = graph.LabelMethod
		relType = graph.RelDefinesMethod
		from = graph.Ref(classLabel(owner), qualifiedNamePrefix(qn))
	}

	props := map[string]any{
		"qualified_name": qn,
		"name":           name,
		"start_line":     safeRowToLine(node.StartPosition().Row),
		"end_line":       safeRowToLine(node.EndPosition().Row),
	}
	if sig := functionSignature(node, name, source); sig != "" {
		props["signature"] = sig
	}
	if doc := extractDocstring(node, source, spec.Language); doc != "" {
		props["docstring"] = doc
	}
	if decs := extractDecorators(node, source, spec); len(decs) > 0 {
		props["decorators"] = decs
	}

	ex.addNode(label, props)
	ex.addSymbol(qn, label)
	ex.addRel(from, relType, graph.Ref(label, qn), nil)
}

func extractClass(ex *Extraction, node *tree_sitter.Node, source []byte, spec *lang.LanguageSpec, moduleRef graph.NodeRef) {
	kind := node.Kind()
	// Impl blocks and TS namespaces contribute scope segments only; the
	// type they extend is declared elsewhere.
	if kind == "impl_item" || kind == "internal_module" {
		return
	}
	name := fqn.Name(node, source, spec)
	if name == "" {
		return
	}
	qn := fqn.Resolve(node, ex.ModuleQN, source, spec)
	label := classLabel(node)

	props := map[string]any{
		"qualified_name": qn,
		"name":           name,
		"start_line":     safeRowToLine(node.StartPosition().Row),
		"end_line":       safeRowToLine(node.EndPosition().Row),
	}
	if doc := extractDocstring(node, source, spec.Language); doc != "" {
		props["docstring"] = doc
	}
	if decs := extractDecorators(node, source, spec); len(decs) > 0 {
		props["decorators"] = decs
	}
	if bases := extractBaseClasses(node, source, spec.Language); len(bases) > 0 {
		props["base_classes"] = bases
		ex.Inherits[qn] = append(ex.Inherits[qn], bases...)
	}

	ex.addNode(label, props)
	ex.addSymbol(qn, label)
	ex.addRel(moduleRef, graph.RelDefines, graph.Ref(label, qn), nil)
}

// classLabel maps a class-like node kind to its graph label.
func classLabel(node *tree_sitter.Node) string {
	switch node.Kind() {
	case "interface_declaration", "trait_item", "trait_definition":
		return graph.LabelInterface
	case "enum_declaration", "enum_specifier", "enum_item":
		return graph.LabelEnum
	case "type_alias_declaration", "type_item", "type_alias":
		return graph.LabelType
	case "union_specifier", "union_item":
		return graph.LabelUnion
	case "type_spec":
		// Go names types through type_spec; the underlying type decides
		// the label.
		if t := node.ChildByFieldName("type"); t != nil {
			switch t.Kind() {
			case "interface_type":
				return graph.LabelInterface
			case "struct_type":
				return graph.LabelClass
			}
		}
		return graph.LabelType
	default:
		return graph.LabelClass
	}
}

// enclosingClass returns the nearest class-like ancestor, or nil when a
// function ancestor intervenes (a nested function belongs to its module).
func enclosingClass(node *tree_sitter.Node, spec *lang.LanguageSpec) *tree_sitter.Node {
	for anc := node.Parent(); anc != nil; anc = anc.Parent() {
		kind := anc.Kind()
		if spec.IsClassNode(kind) || kind == "impl_item" {
			return anc
		}
		if spec.IsFunctionNode(kind) {
			return nil
		}
	}
	return nil
}

func functionSignature(node *tree_sitter.Node, name string, source []byte) string {
	params := node.ChildByFieldName("parameters")
	if params == nil {
		// C-family places parameters under the declarator.
		if decl := node.ChildByFieldName("declarator"); decl != nil {
			params = decl.ChildByFieldName("parameters")
		}
	}
	if params == nil {
		return ""
	}
	return name + parser.NodeText(params, source)
}

// extractDecorators collects decorator/annotation names on a definition.
func extractDecorators(node *tree_sitter.Node, source []byte, spec *lang.LanguageSpec) []string {
	if len(spec.DecoratorNodeTypes) == 0 {
		return nil
	}
	var out []string
	appendDecorator := func(dec *tree_sitter.Node) {
		text := strings.TrimSpace(parser.NodeText(dec, source))
		text = strings.TrimPrefix(text, "@")
		if idx := strings.IndexRune(text, '('); idx > 0 {
			text = text[:idx]
		}
		if text != "" {
			out = append(out, text)
		}
	}

	isDecorator := func(kind string) bool {
		for _, d := range spec.DecoratorNodeTypes {
			if d == kind {
				return true
			}
		}
		return false
	}

	// Python wraps the definition; Java and C# attach annotations as
	// leading children; TypeScript does both depending on target.
	if parent := node.Parent(); parent != nil && parent.Kind() == "decorated_definition" {
		for _, child := range parser.NamedChildren(parent) {
			if isDecorator(child.Kind()) {
				appendDecorator(child)
			}
		}
	}
	for _, child := range parser.NamedChildren(node) {
		if isDecorator(child.Kind()) {
			appendDecorator(child)
			continue
		}
		if child.Kind() == "modifiers" {
			for _, mod := range parser.NamedChildren(child) {
				if mod.Kind() == "marker_annotation" || mod.Kind() == "annotation" {
					appendDecorator(mod)
				}
			}
		}
	}
	return out
}

// extractCppModuleDecls surfaces C++20 module declarations. The grammar
// does not model them reliably, so the declaration lines are matched as
// text.
func extractCppModuleDecls(ex *Extraction, source []byte) {
	moduleRef := graph.Ref(graph.LabelModule, ex.ModuleQN)
	for _, line := range strings.Split(string(source), "\n") {
		line = strings.TrimSpace(line)
		exported := strings.HasPrefix(line, "export module ")
		implemented := !exported && strings.HasPrefix(line, "module ")
		if !exported && !implemented {
			continue
		}
		rest := strings.TrimPrefix(strings.TrimPrefix(line, "export "), "module ")
		name := strings.TrimSpace(strings.TrimSuffix(strings.SplitN(rest, "//", 2)[0], ";"))
		if name == "" || name == ";" {
			// "module;" opens the global module fragment.
			continue
		}

		label := graph.LabelModuleImplementation
		relType := graph.RelImplementsModule
		if exported {
			label = graph.LabelModuleInterface
			relType = graph.RelExportsModule
		}
		ex.addNode(label, map[string]any{
			"qualified_name": name,
			"name":           name,
		})
		ex.addSymbol(name, label)
		ex.addRel(moduleRef, relType, graph.Ref(label, name), nil)
	}
}

func moduleName(moduleQN string) string {
	if idx := strings.LastIndexByte(moduleQN, '.'); idx >= 0 {
		return moduleQN[idx+1:]
	}
	return moduleQN
}

// qualifiedNamePrefix strips the last segment from a qualified name.
func qualifiedNamePrefix(qn string) string {
	if idx := strings.LastIndexByte(qn, '.'); idx >= 0 {
		return qn[:idx]
	}
	return qn
}

func safeRowToLine(row uint) int {
	if row >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int(row) + 1
}
