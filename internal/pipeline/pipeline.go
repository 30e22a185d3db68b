// Package pipeline turns a source tree into graph writes: structure,
// definitions, dependency manifests, inheritance and overrides, in that
// order. Parsing is parallel; all registry and sink writes happen on the
// merging goroutine.
package pipeline

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/codegraph-dev/codegraph/internal/deps"
	"github.com/codegraph-dev/codegraph/internal/discover"
	"github.com/codegraph-dev/codegraph/internal/fqn"
	"github.com/codegraph-dev/codegraph/internal/graph"
	"github.com/codegraph-dev/codegraph/internal/imports"
	"github.com/codegraph-dev/codegraph/internal/lang"
	"github.com/codegraph-dev/codegraph/internal/registry"
	"github.com/codegraph-dev/codegraph/internal/stdlib"
)

// Pipeline orchestrates indexing a repository into a graph sink.
type Pipeline struct {
	ctx      context.Context
	sink     *graph.SQLiteSink
	repoPath string
	project  string

	registry *registry.Registry
	resolver *imports.Resolver
	// hierarchy maps class QN -> declared parent names (unresolved).
	hierarchy map[string][]string
	// pendingImports holds IMPORTS edges until the registry can trim
	// their targets to module boundaries.
	pendingImports []pendingImport
	importEdges    map[string]bool
	// dirLabels records whether a directory became a Package or a Folder
	// during the structure pass.
	dirLabels map[string]string
}

// New creates a Pipeline writing to the given sink.
func New(ctx context.Context, sink *graph.SQLiteSink, repoPath string) *Pipeline {
	return &Pipeline{
		ctx:         ctx,
		sink:        sink,
		repoPath:    repoPath,
		project:     ProjectNameFromPath(repoPath),
		registry:    registry.New(),
		resolver:    imports.NewResolver(ProjectNameFromPath(repoPath), repoPath),
		hierarchy:   map[string][]string{},
		importEdges: map[string]bool{},
		dirLabels:   map[string]string{},
	}
}

// ProjectNameFromPath derives a project name from an absolute path by
// replacing separators with dashes.
func ProjectNameFromPath(absPath string) string {
	cleaned := filepath.ToSlash(filepath.Clean(absPath))
	name := strings.TrimLeft(strings.ReplaceAll(cleaned, "/", "-"), "-")
	if name == "" {
		return "root"
	}
	return name
}

// Run executes the full pipeline. Per-file failures are logged and
// skipped; only sink errors fail the run.
func (p *Pipeline) Run() error {
	slog.Info("pipeline.start", "project", p.project, "path", p.repoPath)

	if err := p.ctx.Err(); err != nil {
		return err
	}
	if err := p.sink.UpsertProject(p.repoPath); err != nil {
		return err
	}

	files, err := discover.Discover(p.ctx, p.repoPath, nil)
	if err != nil {
		return fmt.Errorf("discover: %w", err)
	}
	slog.Info("pipeline.discovered", "files", len(files))

	changed, unchanged := p.classifyFiles(files)
	slog.Info("pipeline.classify", "changed", len(changed), "unchanged", len(unchanged))

	if err := p.passStructure(files); err != nil {
		return fmt.Errorf("pass structure: %w", err)
	}
	if err := p.ctx.Err(); err != nil {
		return err
	}

	if err := p.passDefinitions(changed); err != nil {
		return fmt.Errorf("pass definitions: %w", err)
	}
	if err := p.ctx.Err(); err != nil {
		return err
	}

	if err := p.passManifests(); err != nil {
		return fmt.Errorf("pass manifests: %w", err)
	}

	// Inheritance and overrides run over the full registry, which is
	// rebuilt from the sink so symbols from unchanged files participate.
	if err := p.sink.FlushAll(); err != nil {
		return fmt.Errorf("flush before overrides: %w", err)
	}
	if err := p.loadRegistry(); err != nil {
		return fmt.Errorf("load registry: %w", err)
	}
	p.passImports()
	if err := p.passInherits(); err != nil {
		return fmt.Errorf("pass inherits: %w", err)
	}
	p.passOverrides()
	if err := p.ctx.Err(); err != nil {
		return err
	}

	p.updateFileHashes(files)

	if err := p.sink.FlushAll(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	nc, _ := p.sink.CountNodes()
	ec, _ := p.sink.CountEdges()
	slog.Info("pipeline.done", "nodes", nc, "edges", ec)
	return nil
}

// classifyFiles splits files into changed and unchanged using stored
// content hashes. Hashing runs across CPU cores.
func (p *Pipeline) classifyFiles(files []discover.FileInfo) (changed, unchanged []discover.FileInfo) {
	stored, err := p.sink.FileHashes()
	if err != nil || len(stored) == 0 {
		return files, nil
	}

	hashes := make([]string, len(files))
	g := new(errgroup.Group)
	g.SetLimit(min(runtime.NumCPU(), len(files)))
	for i, f := range files {
		g.Go(func() error {
			hashes[i], _ = fileHash(f.Path)
			return nil
		})
	}
	_ = g.Wait()

	for i, f := range files {
		if hashes[i] != "" && stored[f.RelPath] == hashes[i] {
			unchanged = append(unchanged, f)
		} else {
			changed = append(changed, f)
		}
	}
	return changed, unchanged
}

func (p *Pipeline) updateFileHashes(files []discover.FileInfo) {
	hashes := make([]string, len(files))
	g := new(errgroup.Group)
	g.SetLimit(min(runtime.NumCPU(), len(files)))
	for i, f := range files {
		g.Go(func() error {
			hashes[i], _ = fileHash(f.Path)
			return nil
		})
	}
	_ = g.Wait()

	for i, f := range files {
		if hashes[i] == "" {
			continue
		}
		if err := p.sink.SetFileHash(f.RelPath, hashes[i]); err != nil {
			slog.Warn("pipeline.filehash.err", "path", f.RelPath, "err", err)
		}
	}
}

// passStructure creates Project, Package, Folder and File nodes with
// containment relationships. Always runs on all files; upserts are
// idempotent.
func (p *Pipeline) passStructure(files []discover.FileInfo) error {
	slog.Info("pass.structure", "files", len(files))

	p.sink.EnsureNodeBatch(graph.LabelProject, map[string]any{
		"name": p.project,
		"path": p.repoPath,
	})

	dirs := p.classifyDirectories(files)
	// Parent labels must be known before emitting containment edges.
	for dir, label := range dirs {
		p.dirLabels[dir] = label
	}
	for dir, label := range dirs {
		p.sink.EnsureNodeBatch(label, map[string]any{
			"path":           dir,
			"name":           filepath.Base(dir),
			"qualified_name": fqn.FolderQN(p.project, dir),
		})

		relType := graph.RelContainsFolder
		if label == graph.LabelPackage {
			relType = graph.RelContainsPackage
		}
		p.sink.EnsureRelationshipBatch(p.dirRef(filepath.Dir(dir)), relType, graph.Ref(label, dir), nil)
	}

	for _, f := range files {
		p.sink.EnsureNodeBatch(graph.LabelFile, map[string]any{
			"path":      f.RelPath,
			"name":      filepath.Base(f.RelPath),
			"extension": filepath.Ext(f.RelPath),
			"language":  string(f.Language),
		})
		p.sink.EnsureRelationshipBatch(
			p.dirRef(filepath.Dir(f.RelPath)), graph.RelContainsFile, graph.Ref(graph.LabelFile, f.RelPath), nil)
	}
	return nil
}

// classifyDirectories collects every ancestor directory and labels it
// Package when it holds a package indicator file (__init__.py, go.mod,
// package.json, ...).
func (p *Pipeline) classifyDirectories(files []discover.FileInfo) map[string]string {
	indicators := map[string]bool{}
	for _, l := range lang.AllLanguages() {
		if spec := lang.ForLanguage(l); spec != nil {
			for _, pi := range spec.PackageIndicators {
				indicators[pi] = true
			}
		}
	}

	dirs := map[string]string{}
	for _, f := range files {
		for dir := filepath.Dir(f.RelPath); dir != "." && dir != ""; dir = filepath.Dir(dir) {
			if _, seen := dirs[dir]; seen {
				break
			}
			label := graph.LabelFolder
			for indicator := range indicators {
				if hasIndicator(filepath.Join(p.repoPath, dir), indicator) {
					label = graph.LabelPackage
					break
				}
			}
			dirs[dir] = label
		}
	}
	return dirs
}

func hasIndicator(dir, indicator string) bool {
	if strings.ContainsRune(indicator, '*') {
		matches, _ := filepath.Glob(filepath.Join(dir, indicator))
		return len(matches) > 0
	}
	_, err := os.Stat(filepath.Join(dir, indicator))
	return err == nil
}

// dirRef returns the containment parent ref for a relative directory.
func (p *Pipeline) dirRef(relDir string) graph.NodeRef {
	if relDir == "." || relDir == "" {
		return graph.Ref(graph.LabelProject, p.project)
	}
	label := p.dirLabels[relDir]
	if label == "" {
		label = graph.LabelFolder
	}
	return graph.Ref(label, relDir)
}

// passDefinitions parses files in parallel and merges each extraction
// into the registry, import maps and sink on this goroutine.
func (p *Pipeline) passDefinitions(files []discover.FileInfo) error {
	slog.Info("pass.definitions", "files", len(files))
	if len(files) == 0 {
		return nil
	}

	results := make([]*Extraction, len(files))
	g, gctx := errgroup.WithContext(p.ctx)
	g.SetLimit(min(runtime.NumCPU(), len(files)))
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = extractFile(p.project, p.repoPath, f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, ex := range results {
		if ex == nil {
			continue
		}
		if ex.Err != nil {
			slog.Warn("pass.definitions.file.err", "path", ex.File.RelPath, "state", ex.State.String(), "err", ex.Err)
			continue
		}
		p.merge(ex)
	}
	return nil
}

// merge applies one file's extraction to the shared state. Single
// writer; no locking needed beyond the registry's own.
func (p *Pipeline) merge(ex *Extraction) {
	for _, sym := range ex.Symbols {
		p.registry.Set(sym.QualifiedName, sym.Kind)
	}

	shared := p.resolver.ModuleMap(ex.ModuleQN)
	for local, target := range ex.ImportMap {
		shared[local] = target
	}

	for _, n := range ex.Nodes {
		p.sink.EnsureNodeBatch(n.Label, n.Props)
	}
	for _, r := range ex.Rels {
		p.sink.EnsureRelationshipBatch(r.From, r.Type, r.To, r.Props)
	}

	// Module containment and IMPORTS edges need pipeline state (dir
	// labels, dedup set), so they are emitted here rather than in the
	// parallel stage.
	moduleRef := graph.Ref(graph.LabelModule, ex.ModuleQN)
	p.sink.EnsureRelationshipBatch(p.dirRef(filepath.Dir(ex.File.RelPath)), graph.RelContainsModule, moduleRef, nil)

	for local, target := range ex.ImportMap {
		key := ex.ModuleQN + "\x00" + target
		if p.importEdges[key] {
			continue
		}
		p.importEdges[key] = true
		alias := local
		if strings.HasPrefix(local, "*") {
			alias = ""
		}
		p.pendingImports = append(p.pendingImports, pendingImport{
			moduleQN: ex.ModuleQN,
			target:   target,
			alias:    alias,
			language: ex.File.Language,
		})
	}

	for class, parents := range ex.Inherits {
		p.hierarchy[class] = append(p.hierarchy[class], parents...)
	}
}

type pendingImport struct {
	moduleQN string
	target   string
	alias    string
	language lang.Language
}

// passImports emits IMPORTS edges. Targets are trimmed to the defining
// module when they name a symbol; names outside the project resolve
// against the stdlib tables, and anything left is an external package.
func (p *Pipeline) passImports() {
	slog.Info("pass.imports", "imports", len(p.pendingImports))
	for _, pi := range p.pendingImports {
		from := graph.Ref(graph.LabelModule, pi.moduleQN)
		props := map[string]any{}
		if pi.alias != "" && pi.alias != pi.target {
			props["alias"] = pi.alias
		}

		if mod := p.moduleForTarget(pi.target); mod != "" {
			p.sink.EnsureRelationshipBatch(from, graph.RelImports, graph.Ref(graph.LabelModule, mod), props)
			continue
		}
		if mod, ok := stdlib.ModulePath(pi.language, pi.target); ok {
			props["source"] = "stdlib"
			p.sink.EnsureRelationshipBatch(from, graph.RelImports, graph.Ref(graph.LabelModule, mod), props)
			continue
		}
		pkg, _, _ := strings.Cut(pi.target, ".")
		props["source"] = "external"
		p.sink.EnsureRelationshipBatch(from, graph.RelImports, graph.Ref(graph.LabelExternalPackage, pkg), props)
	}
	p.pendingImports = nil
}

// moduleForTarget returns the longest prefix of target registered as a
// module, or "" when the target lives outside the project.
func (p *Pipeline) moduleForTarget(target string) string {
	for prefix := target; prefix != ""; {
		if kind, ok := p.registry.Get(prefix); ok && kind == graph.LabelModule {
			return prefix
		}
		idx := strings.LastIndexByte(prefix, '.')
		if idx < 0 {
			return ""
		}
		prefix = prefix[:idx]
	}
	return ""
}

// passManifests emits ExternalPackage nodes and DEPENDS_ON_EXTERNAL
// edges from dependency manifests.
func (p *Pipeline) passManifests() error {
	manifests, err := discover.DiscoverManifests(p.ctx, p.repoPath, nil)
	if err != nil {
		return err
	}
	slog.Info("pass.manifests", "manifests", len(manifests))

	projectRef := graph.Ref(graph.LabelProject, p.project)
	for _, path := range manifests {
		parsed, err := deps.ParseFile(path)
		if err != nil {
			slog.Warn("pass.manifests.err", "path", path, "err", err)
			continue
		}
		for _, d := range parsed {
			props := map[string]any{"name": d.Name, "package_name": d.Name}
			p.sink.EnsureNodeBatch(graph.LabelExternalPackage, props)
			relProps := map[string]any{"version_spec": d.Spec}
			for k, v := range d.Properties {
				relProps[k] = v
			}
			p.sink.EnsureRelationshipBatch(
				projectRef, graph.RelDependsOnExternal, graph.Ref(graph.LabelExternalPackage, d.Name), relProps)
		}
	}
	return nil
}

// loadRegistry rebuilds the symbol registry from persisted nodes so the
// global passes see symbols from files skipped this run.
func (p *Pipeline) loadRegistry() error {
	labels := []string{
		graph.LabelModule, graph.LabelClass, graph.LabelInterface,
		graph.LabelEnum, graph.LabelType, graph.LabelUnion,
		graph.LabelFunction, graph.LabelMethod,
		graph.LabelModuleInterface, graph.LabelModuleImplementation,
	}
	for _, label := range labels {
		nodes, err := p.sink.NodesByLabel(label)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			p.registry.Set(n.RefValue, label)
		}
	}
	slog.Info("pipeline.registry", "symbols", p.registry.Len())
	return nil
}

func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxh3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func stripBOM(source []byte) []byte {
	if len(source) >= 3 && source[0] == 0xEF && source[1] == 0xBB && source[2] == 0xBF {
		return source[3:]
	}
	return source
}
