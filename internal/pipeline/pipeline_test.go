package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/codegraph-dev/codegraph/internal/graph"
)

func writeRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func runIndex(t *testing.T, dir string) *graph.SQLiteSink {
	t.Helper()
	sink, err := graph.OpenMemory(ProjectNameFromPath(dir))
	if err != nil {
		t.Fatalf("open sink: %v", err)
	}
	t.Cleanup(func() { sink.Close() })

	p := New(context.Background(), sink, dir)
	if err := p.Run(); err != nil {
		t.Fatalf("pipeline run: %v", err)
	}
	return sink
}

func mustNode(t *testing.T, sink *graph.SQLiteSink, label, value string) *graph.Node {
	t.Helper()
	n, err := sink.FindNode(graph.Ref(label, value))
	if err != nil {
		t.Fatalf("find %s %q: %v", label, value, err)
	}
	if n == nil {
		t.Fatalf("node %s %q not found", label, value)
	}
	return n
}

func mustRel(t *testing.T, sink *graph.SQLiteSink, from graph.NodeRef, relType string, to graph.NodeRef) {
	t.Helper()
	ok, err := sink.HasRelationship(from, relType, to)
	if err != nil {
		t.Fatalf("has relationship: %v", err)
	}
	if !ok {
		t.Fatalf("missing %s edge %q -> %q", relType, from.Value, to.Value)
	}
}

func TestRunPythonClasses(t *testing.T) {
	dir := writeRepo(t, map[string]string{
		"app/models.py": `class Base:
    """Base model."""

    def save(self):
        pass


class User(Base):
    def save(self):
        pass
`,
	})
	project := ProjectNameFromPath(dir)
	sink := runIndex(t, dir)

	mustNode(t, sink, graph.LabelModule, project+".app.models")

	base := mustNode(t, sink, graph.LabelClass, project+".app.models.Base")
	if base.Label != graph.LabelClass {
		t.Errorf("Base label: got %s", base.Label)
	}
	if doc, _ := base.Properties["docstring"].(string); doc != "Base model." {
		t.Errorf("Base docstring: got %q", doc)
	}

	user := mustNode(t, sink, graph.LabelClass, project+".app.models.User")
	bases, _ := user.Properties["base_classes"].([]any)
	if len(bases) != 1 || bases[0] != "Base" {
		t.Errorf("User base_classes: got %v", bases)
	}

	classRef := graph.Ref(graph.LabelClass, project+".app.models.User")
	methodRef := graph.Ref(graph.LabelMethod, project+".app.models.User.save")
	mustRel(t, sink, classRef, graph.RelDefinesMethod, methodRef)
	mustRel(t, sink, classRef, graph.RelInherits, graph.Ref(graph.LabelClass, project+".app.models.Base"))
	mustRel(t, sink, methodRef, graph.RelOverrides, graph.Ref(graph.LabelMethod, project+".app.models.Base.save"))
}

func TestRunStructure(t *testing.T) {
	dir := writeRepo(t, map[string]string{
		"pkg/__init__.py": "",
		"pkg/core.py":     "def run():\n    pass\n",
		"docs/util.py":    "def helper():\n    pass\n",
	})
	project := ProjectNameFromPath(dir)
	sink := runIndex(t, dir)

	pkg := mustNode(t, sink, graph.LabelPackage, "pkg")
	if pkg.Label != graph.LabelPackage {
		t.Errorf("pkg label: got %s, want Package", pkg.Label)
	}
	docs := mustNode(t, sink, graph.LabelFolder, "docs")
	if docs.Label != graph.LabelFolder {
		t.Errorf("docs label: got %s, want Folder", docs.Label)
	}

	projectRef := graph.Ref(graph.LabelProject, project)
	mustRel(t, sink, projectRef, graph.RelContainsPackage, graph.Ref(graph.LabelPackage, "pkg"))
	mustRel(t, sink, projectRef, graph.RelContainsFolder, graph.Ref(graph.LabelFolder, "docs"))
	mustRel(t, sink, graph.Ref(graph.LabelPackage, "pkg"), graph.RelContainsFile, graph.Ref(graph.LabelFile, "pkg/core.py"))
	mustRel(t, sink, graph.Ref(graph.LabelPackage, "pkg"), graph.RelContainsModule, graph.Ref(graph.LabelModule, project+".pkg.core"))
}

func TestRunImportsInternal(t *testing.T) {
	dir := writeRepo(t, map[string]string{
		"app/a.py": "from app.b import helper\n",
		"app/b.py": "def helper():\n    pass\n",
	})
	project := ProjectNameFromPath(dir)
	sink := runIndex(t, dir)

	mustRel(t, sink,
		graph.Ref(graph.LabelModule, project+".app.a"),
		graph.RelImports,
		graph.Ref(graph.LabelModule, project+".app.b"))
}

func TestRunImportsStdlibAndExternal(t *testing.T) {
	dir := writeRepo(t, map[string]string{
		"app/main.py": "import os\nimport numpy as np\n",
	})
	project := ProjectNameFromPath(dir)
	sink := runIndex(t, dir)

	from := graph.Ref(graph.LabelModule, project+".app.main")
	mustRel(t, sink, from, graph.RelImports, graph.Ref(graph.LabelModule, "os"))
	mustRel(t, sink, from, graph.RelImports, graph.Ref(graph.LabelExternalPackage, "numpy"))
}

func TestRunManifests(t *testing.T) {
	dir := writeRepo(t, map[string]string{
		"requirements.txt": "requests==2.31.0\n",
		"app/main.py":      "import requests\n",
	})
	project := ProjectNameFromPath(dir)
	sink := runIndex(t, dir)

	mustNode(t, sink, graph.LabelExternalPackage, "requests")
	mustRel(t, sink,
		graph.Ref(graph.LabelProject, project),
		graph.RelDependsOnExternal,
		graph.Ref(graph.LabelExternalPackage, "requests"))
}

func TestRunGoLabels(t *testing.T) {
	dir := writeRepo(t, map[string]string{
		"go.mod":  "module example.com/demo\n\ngo 1.22\n",
		"main.go": "package main\n\ntype Reader interface {\n\tRead() string\n}\n\ntype FileReader struct {\n\tpath string\n}\n\nfunc open(path string) *FileReader {\n\treturn &FileReader{path: path}\n}\n",
	})
	project := ProjectNameFromPath(dir)
	sink := runIndex(t, dir)

	reader := mustNode(t, sink, graph.LabelInterface, project+".main.Reader")
	if reader.Label != graph.LabelInterface {
		t.Errorf("Reader label: got %s, want Interface", reader.Label)
	}
	fileReader := mustNode(t, sink, graph.LabelClass, project+".main.FileReader")
	if fileReader.Label != graph.LabelClass {
		t.Errorf("FileReader label: got %s, want Class", fileReader.Label)
	}
	mustNode(t, sink, graph.LabelFunction, project+".main.open")
}

func TestRunJSPrototypes(t *testing.T) {
	dir := writeRepo(t, map[string]string{
		"src/animals.js": `function Animal(name) {
  this.name = name;
}

Animal.prototype.speak = function () {
  return this.name;
};

function Dog(name) {
  Animal.call(this, name);
}

Dog.prototype = Object.create(Animal.prototype);

Dog.prototype.speak = function () {
  return "woof";
};

module.exports = { Animal, Dog };
`,
	})
	project := ProjectNameFromPath(dir)
	sink := runIndex(t, dir)

	mod := project + ".src.animals"
	mustNode(t, sink, graph.LabelMethod, mod+".Animal.speak")
	dogSpeak := graph.Ref(graph.LabelMethod, mod+".Dog.speak")
	mustNode(t, sink, graph.LabelMethod, dogSpeak.Value)

	mustRel(t, sink,
		graph.Ref(graph.LabelFunction, mod+".Dog"),
		graph.RelInherits,
		graph.Ref(graph.LabelFunction, mod+".Animal"))
	mustRel(t, sink, dogSpeak, graph.RelOverrides, graph.Ref(graph.LabelMethod, mod+".Animal.speak"))
	mustRel(t, sink,
		graph.Ref(graph.LabelModule, mod),
		graph.RelExports,
		graph.Ref(graph.LabelFunction, mod+".Dog"))
}

func TestRunIncrementalRerun(t *testing.T) {
	dir := writeRepo(t, map[string]string{
		"app/models.py": "class Base:\n    pass\n",
	})
	sink := runIndex(t, dir)

	nodes1, _ := sink.CountNodes()
	edges1, _ := sink.CountEdges()

	p := New(context.Background(), sink, dir)
	if err := p.Run(); err != nil {
		t.Fatalf("second run: %v", err)
	}

	nodes2, _ := sink.CountNodes()
	edges2, _ := sink.CountEdges()
	if nodes1 != nodes2 || edges1 != edges2 {
		t.Errorf("rerun changed counts: nodes %d -> %d, edges %d -> %d", nodes1, nodes2, edges1, edges2)
	}

	hashes, err := sink.FileHashes()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := hashes["app/models.py"]; !ok {
		t.Error("file hash not recorded for app/models.py")
	}
}

func TestRunCancelled(t *testing.T) {
	dir := writeRepo(t, map[string]string{
		"app/main.py": "def run():\n    pass\n",
	})
	sink, err := graph.OpenMemory(ProjectNameFromPath(dir))
	if err != nil {
		t.Fatal(err)
	}
	defer sink.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := New(ctx, sink, dir)
	if err := p.Run(); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestProjectNameFromPath(t *testing.T) {
	cases := map[string]string{
		"/home/user/myrepo": "home-user-myrepo",
		"/":                 "root",
	}
	for in, want := range cases {
		if got := ProjectNameFromPath(in); got != want {
			t.Errorf("ProjectNameFromPath(%q): got %q, want %q", in, got, want)
		}
	}
}
