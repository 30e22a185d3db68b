package pipeline

import (
	"log/slog"
	"strings"

	"github.com/codegraph-dev/codegraph/internal/graph"
	"github.com/codegraph-dev/codegraph/internal/imports"
)

var classLikeLabels = []string{
	graph.LabelClass, graph.LabelInterface, graph.LabelEnum,
	graph.LabelType, graph.LabelUnion,
}

func isClassLikeLabel(label string) bool {
	for _, l := range classLikeLabels {
		if l == label {
			return true
		}
	}
	return false
}

// passInherits resolves declared base-class names to qualified names and
// emits INHERITS edges. Bases come from persisted base_classes
// properties plus prototype chains collected this run. Names that do not
// resolve to a project symbol are skipped; edges from earlier runs
// persist regardless.
func (p *Pipeline) passInherits() error {
	resolved := map[string][]string{}

	for _, label := range classLikeLabels {
		nodes, err := p.sink.NodesByLabel(label)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			bases, ok := n.Properties["base_classes"].([]any)
			if !ok {
				continue
			}
			for _, b := range bases {
				name, ok := b.(string)
				if !ok {
					continue
				}
				p.resolveAndLink(n.RefValue, label, name, resolved)
			}
		}
	}

	// Prototype inheritance attaches to constructor functions, which
	// carry no base_classes property.
	for child, parents := range p.hierarchy {
		childLabel, ok := p.registry.Get(child)
		if !ok {
			continue
		}
		for _, name := range parents {
			p.resolveAndLink(child, childLabel, name, resolved)
		}
	}

	p.hierarchy = resolved
	slog.Info("pass.inherits", "classes", len(resolved))
	return nil
}

func (p *Pipeline) resolveAndLink(childQN, childLabel, baseName string, resolved map[string][]string) {
	moduleQN := p.enclosingModule(childQN)
	parentQN := p.resolveClassName(baseName, moduleQN)
	if parentQN == "" || parentQN == childQN {
		return
	}
	for _, existing := range resolved[childQN] {
		if existing == parentQN {
			return
		}
	}
	resolved[childQN] = append(resolved[childQN], parentQN)

	parentLabel, _ := p.registry.Get(parentQN)
	p.sink.EnsureRelationshipBatch(
		graph.Ref(childLabel, childQN), graph.RelInherits, graph.Ref(parentLabel, parentQN), nil)
}

// enclosingModule finds the longest prefix of a qualified name that is a
// registered module. Nested classes make the direct prefix a class, not
// a module.
func (p *Pipeline) enclosingModule(qn string) string {
	prefix := qn
	for {
		idx := strings.LastIndexByte(prefix, '.')
		if idx < 0 {
			return ""
		}
		prefix = prefix[:idx]
		if kind, ok := p.registry.Get(prefix); ok && kind == graph.LabelModule {
			return prefix
		}
	}
}

// resolveClassName maps a declared base name to a class-like qualified
// name using the module's import map, then same-module and absolute
// lookups.
func (p *Pipeline) resolveClassName(name, moduleQN string) string {
	name = cleanTypeName(name)
	if name == "" {
		return ""
	}

	var importMap imports.Map
	if moduleQN != "" {
		importMap = p.resolver.ModuleMap(moduleQN)
	}

	var candidates []string
	if target, ok := importMap[name]; ok {
		candidates = append(candidates, target)
	}
	if first, rest, found := strings.Cut(name, "."); found {
		if target, ok := importMap[first]; ok {
			candidates = append(candidates, target+"."+rest)
		}
	}
	if moduleQN != "" {
		candidates = append(candidates, moduleQN+"."+name)
	}
	candidates = append(candidates, name)

	for _, qn := range candidates {
		if kind, ok := p.registry.Get(qn); ok && isClassLikeLabel(kind) {
			return qn
		}
	}
	// Prototype chains hang off constructor functions.
	for _, qn := range candidates {
		if kind, ok := p.registry.Get(qn); ok && kind == graph.LabelFunction {
			return qn
		}
	}

	// Re-exported bases leave no import map entry. A suffix match is
	// trusted only when the project has exactly one class by that name.
	if !strings.Contains(name, ".") {
		var match string
		for _, entry := range p.registry.FindEndingWith(name) {
			if !isClassLikeLabel(entry.Kind) {
				continue
			}
			if match != "" {
				return ""
			}
			match = entry.QualifiedName
		}
		return match
	}
	return ""
}

// passOverrides emits one OVERRIDES edge per method toward the nearest
// ancestor class declaring a method of the same name. Breadth-first over
// the resolved hierarchy; a visited set terminates on cycles.
func (p *Pipeline) passOverrides() {
	count := 0
	for _, entry := range p.registry.Entries() {
		if entry.Kind != graph.LabelMethod {
			continue
		}
		classQN := qualifiedNamePrefix(entry.QualifiedName)
		if classQN == entry.QualifiedName {
			continue
		}
		methodName := entry.QualifiedName[len(classQN)+1:]

		if target := p.nearestOverridden(classQN, methodName); target != "" {
			p.sink.EnsureRelationshipBatch(
				graph.Ref(graph.LabelMethod, entry.QualifiedName),
				graph.RelOverrides,
				graph.Ref(graph.LabelMethod, target), nil)
			count++
		}
	}
	slog.Info("pass.overrides", "edges", count)
}

func (p *Pipeline) nearestOverridden(classQN, methodName string) string {
	visited := map[string]bool{classQN: true}
	queue := append([]string(nil), p.hierarchy[classQN]...)

	for len(queue) > 0 {
		next := queue
		queue = nil
		for _, ancestor := range next {
			if visited[ancestor] {
				continue
			}
			visited[ancestor] = true
			candidate := ancestor + "." + methodName
			if kind, ok := p.registry.Get(candidate); ok && kind == graph.LabelMethod {
				return candidate
			}
			queue = append(queue, p.hierarchy[ancestor]...)
		}
	}
	return ""
}
