package graph

import (
	"fmt"
	"testing"
)

func openTestSink(t *testing.T) *SQLiteSink {
	t.Helper()
	s, err := OpenMemory("proj")
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { s.db.Close() })
	return s
}

func TestEnsureNodeAndFlush(t *testing.T) {
	s := openTestSink(t)
	s.EnsureNodeBatch(LabelFunction, map[string]any{
		"qualified_name": "proj.mod.fn",
		"name":           "fn",
		"start_line":     3,
	})
	if err := s.FlushAll(); err != nil {
		t.Fatalf("FlushAll: %v", err)
	}

	n, err := s.FindNode(Ref(LabelFunction, "proj.mod.fn"))
	if err != nil {
		t.Fatalf("FindNode: %v", err)
	}
	if n == nil {
		t.Fatal("node not found after flush")
	}
	if n.Label != LabelFunction {
		t.Errorf("label = %q, want Function", n.Label)
	}
	if n.Properties["name"] != "fn" {
		t.Errorf("name prop = %v, want fn", n.Properties["name"])
	}
}

func TestIdempotentReingest(t *testing.T) {
	s := openTestSink(t)
	ingest := func() {
		s.EnsureNodeBatch(LabelClass, map[string]any{"qualified_name": "proj.m.C", "name": "C"})
		s.EnsureNodeBatch(LabelMethod, map[string]any{"qualified_name": "proj.m.C.run", "name": "run"})
		s.EnsureRelationshipBatch(
			Ref(LabelClass, "proj.m.C"), RelDefinesMethod, Ref(LabelMethod, "proj.m.C.run"), nil)
	}
	ingest()
	if err := s.FlushAll(); err != nil {
		t.Fatalf("FlushAll: %v", err)
	}
	ingest()
	ingest()
	if err := s.FlushAll(); err != nil {
		t.Fatalf("FlushAll: %v", err)
	}

	nodes, err := s.CountNodes()
	if err != nil {
		t.Fatal(err)
	}
	if nodes != 2 {
		t.Errorf("nodes = %d, want 2", nodes)
	}
	edges, err := s.CountEdges()
	if err != nil {
		t.Fatal(err)
	}
	if edges != 1 {
		t.Errorf("edges = %d, want 1", edges)
	}
}

func TestLazyEndpointPlaceholder(t *testing.T) {
	s := openTestSink(t)
	// Edge submitted before either endpoint node exists.
	s.EnsureRelationshipBatch(
		Ref(LabelClass, "proj.m.Child"), RelInherits, Ref(LabelClass, "proj.m.Parent"), nil)
	if err := s.FlushAll(); err != nil {
		t.Fatalf("FlushAll: %v", err)
	}

	ok, err := s.HasRelationship(Ref(LabelClass, "proj.m.Child"), RelInherits, Ref(LabelClass, "proj.m.Parent"))
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("INHERITS edge missing")
	}

	// Real node submitted later upgrades the placeholder in place.
	s.EnsureNodeBatch(LabelClass, map[string]any{"qualified_name": "proj.m.Parent", "name": "Parent", "start_line": 10})
	if err := s.FlushAll(); err != nil {
		t.Fatalf("FlushAll: %v", err)
	}
	n, err := s.FindNode(Ref(LabelClass, "proj.m.Parent"))
	if err != nil {
		t.Fatal(err)
	}
	if n.Properties["name"] != "Parent" {
		t.Errorf("placeholder not upgraded: %v", n.Properties)
	}
	nodes, _ := s.CountNodes()
	if nodes != 2 {
		t.Errorf("nodes = %d, want 2 (no duplicate for upgraded placeholder)", nodes)
	}
}

func TestNodePropertyMerge(t *testing.T) {
	s := openTestSink(t)
	s.EnsureNodeBatch(LabelFunction, map[string]any{"qualified_name": "proj.m.f", "docstring": "original"})
	if err := s.FlushAll(); err != nil {
		t.Fatal(err)
	}
	s.EnsureNodeBatch(LabelFunction, map[string]any{"qualified_name": "proj.m.f", "start_line": 7})
	if err := s.FlushAll(); err != nil {
		t.Fatal(err)
	}

	n, err := s.FindNode(Ref(LabelFunction, "proj.m.f"))
	if err != nil {
		t.Fatal(err)
	}
	if n.Properties["docstring"] != "original" {
		t.Errorf("earlier property lost on merge: %v", n.Properties)
	}
	if n.Properties["start_line"] == nil {
		t.Errorf("later property missing: %v", n.Properties)
	}
}

func TestMissingKeyDropped(t *testing.T) {
	s := openTestSink(t)
	s.EnsureNodeBatch(LabelFunction, map[string]any{"name": "no_qn"})
	if err := s.FlushAll(); err != nil {
		t.Fatal(err)
	}
	nodes, _ := s.CountNodes()
	if nodes != 0 {
		t.Errorf("nodes = %d, want 0", nodes)
	}
}

func TestBatchOverBindLimit(t *testing.T) {
	s := openTestSink(t)
	for i := 0; i < 500; i++ {
		qn := fmt.Sprintf("proj.big.fn%d", i)
		s.EnsureNodeBatch(LabelFunction, map[string]any{"qualified_name": qn, "name": fmt.Sprintf("fn%d", i)})
		s.EnsureRelationshipBatch(Ref(LabelModule, "proj.big"), RelDefines, Ref(LabelFunction, qn), nil)
	}
	if err := s.FlushAll(); err != nil {
		t.Fatalf("FlushAll: %v", err)
	}
	nodes, _ := s.CountNodes()
	if nodes != 501 { // 500 functions + module placeholder
		t.Errorf("nodes = %d, want 501", nodes)
	}
	edges, _ := s.CountEdges()
	if edges != 500 {
		t.Errorf("edges = %d, want 500", edges)
	}
}

func TestProjectAndPackageShareName(t *testing.T) {
	s := openTestSink(t)
	s.EnsureNodeBatch(LabelProject, map[string]any{"name": "proj"})
	s.EnsureNodeBatch(LabelExternalPackage, map[string]any{"name": "proj", "package_name": "proj"})
	s.EnsureRelationshipBatch(
		Ref(LabelProject, "proj"), RelDependsOnExternal, Ref(LabelExternalPackage, "proj"), nil)
	if err := s.FlushAll(); err != nil {
		t.Fatalf("FlushAll: %v", err)
	}

	project, err := s.FindNode(Ref(LabelProject, "proj"))
	if err != nil || project == nil {
		t.Fatalf("project node: %v, %v", project, err)
	}
	if project.Label != LabelProject {
		t.Errorf("project label = %q", project.Label)
	}
	pkg, err := s.FindNode(Ref(LabelExternalPackage, "proj"))
	if err != nil || pkg == nil {
		t.Fatalf("package node: %v, %v", pkg, err)
	}
	if pkg.Label != LabelExternalPackage {
		t.Errorf("package label = %q", pkg.Label)
	}
	if project.ID == pkg.ID {
		t.Error("project and package collapsed into one node")
	}
}

func TestKeyForLabel(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{LabelProject, "name"},
		{LabelExternalPackage, "package_name"},
		{LabelFile, "path"},
		{LabelFolder, "path"},
		{LabelModule, "qualified_name"},
		{LabelMethod, "qualified_name"},
	}
	for _, tt := range tests {
		if got := KeyForLabel(tt.label); got != tt.want {
			t.Errorf("KeyForLabel(%s) = %q, want %q", tt.label, got, tt.want)
		}
	}
}

func TestFileHashes(t *testing.T) {
	s := openTestSink(t)
	if err := s.UpsertProject("/tmp/proj"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetFileHash("a.py", "h1"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetFileHash("a.py", "h2"); err != nil {
		t.Fatal(err)
	}
	hashes, err := s.FileHashes()
	if err != nil {
		t.Fatal(err)
	}
	if hashes["a.py"] != "h2" {
		t.Errorf("hash = %q, want h2", hashes["a.py"])
	}
}

func TestCountsByLabelAndType(t *testing.T) {
	s := openTestSink(t)
	s.EnsureNodeBatch(LabelClass, map[string]any{"qualified_name": "proj.m.A"})
	s.EnsureNodeBatch(LabelClass, map[string]any{"qualified_name": "proj.m.B"})
	s.EnsureNodeBatch(LabelFunction, map[string]any{"qualified_name": "proj.m.f"})
	s.EnsureRelationshipBatch(Ref(LabelClass, "proj.m.B"), RelInherits, Ref(LabelClass, "proj.m.A"), nil)
	if err := s.FlushAll(); err != nil {
		t.Fatal(err)
	}

	labels, err := s.NodeCountsByLabel()
	if err != nil {
		t.Fatal(err)
	}
	if labels[LabelClass] != 2 || labels[LabelFunction] != 1 {
		t.Errorf("label counts = %v", labels)
	}
	types, err := s.EdgeCountsByType()
	if err != nil {
		t.Fatal(err)
	}
	if types[RelInherits] != 1 {
		t.Errorf("type counts = %v", types)
	}
}
