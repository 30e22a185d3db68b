package fqn

import (
	"testing"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codegraph-dev/codegraph/internal/lang"
	"github.com/codegraph-dev/codegraph/internal/parser"
)

func TestModuleQN(t *testing.T) {
	tests := []struct {
		lang    lang.Language
		relPath string
		want    string
	}{
		{lang.Python, "pkg/mod.py", "proj.pkg.mod"},
		{lang.Python, "pkg/__init__.py", "proj.pkg"},
		{lang.Python, "__init__.py", "proj.__init__"},
		{lang.JavaScript, "src/utils/index.js", "proj.src.utils"},
		{lang.TypeScript, "src/index.ts", "proj.src"},
		{lang.Rust, "src/auth/mod.rs", "proj.src.auth"},
		{lang.Go, "internal/server/server.go", "proj.internal.server.server"},
		{lang.Lua, "widgets/init.lua", "proj.widgets"},
	}
	for _, tt := range tests {
		spec := lang.ForLanguage(tt.lang)
		if got := ModuleQN("proj", tt.relPath, spec); got != tt.want {
			t.Errorf("ModuleQN(proj, %q, %s) = %q, want %q", tt.relPath, tt.lang, got, tt.want)
		}
	}
}

func TestFolderQN(t *testing.T) {
	if got := FolderQN("proj", "a/b"); got != "proj.a.b" {
		t.Errorf("FolderQN = %q, want proj.a.b", got)
	}
	if got := FolderQN("proj", "."); got != "proj" {
		t.Errorf("FolderQN(.) = %q, want proj", got)
	}
}

func parse(t *testing.T, l lang.Language, source string) *tree_sitter.Tree {
	t.Helper()
	tree, err := parser.Parse(l, []byte(source))
	if err != nil {
		t.Fatalf("parse %s: %v", l, err)
	}
	t.Cleanup(tree.Close)
	return tree
}

func findNode(root *tree_sitter.Node, kind, name string, source []byte) *tree_sitter.Node {
	var found *tree_sitter.Node
	parser.Walk(root, func(n *tree_sitter.Node) bool {
		if found != nil {
			return false
		}
		if n.Kind() == kind {
			if name == "" || parser.FieldText(n, "name", source) == name {
				found = n
				return false
			}
		}
		return true
	})
	return found
}

func TestResolvePythonNested(t *testing.T) {
	source := `class Outer:
    class Inner:
        def method(self):
            pass
`
	tree := parse(t, lang.Python, source)
	spec := lang.ForLanguage(lang.Python)
	src := []byte(source)

	method := findNode(tree.RootNode(), "function_definition", "method", src)
	if method == nil {
		t.Fatal("method not found")
	}
	got := Resolve(method, "proj.mod", src, spec)
	want := "proj.mod.Outer.Inner.method"
	if got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}
}

func TestResolveNestedFunctionsStayDistinct(t *testing.T) {
	source := `def outer_a():
    def inner():
        pass

def outer_b():
    def inner():
        pass
`
	tree := parse(t, lang.Python, source)
	spec := lang.ForLanguage(lang.Python)
	src := []byte(source)

	var got []string
	parser.Walk(tree.RootNode(), func(n *tree_sitter.Node) bool {
		if n.Kind() == "function_definition" && parser.FieldText(n, "name", src) == "inner" {
			got = append(got, Resolve(n, "proj.mod", src, spec))
		}
		return true
	})
	want := []string{"proj.mod.outer_a.inner", "proj.mod.outer_b.inner"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Resolve = %v, want %v", got, want)
	}
}

func TestResolveGoClosure(t *testing.T) {
	source := `package main

func handler() {
	cleanup := func() {}
	_ = cleanup
}
`
	tree := parse(t, lang.Go, source)
	spec := lang.ForLanguage(lang.Go)
	src := []byte(source)

	fn := findNode(tree.RootNode(), "func_literal", "", src)
	if fn == nil {
		t.Fatal("func_literal not found")
	}
	got := ScopePath(fn, src, spec)
	if len(got) != 1 || got[0] != "handler" {
		t.Errorf("ScopePath = %v, want [handler]", got)
	}
}

func TestResolveRustImpl(t *testing.T) {
	source := `mod geometry {
    struct Point;

    impl Point {
        fn magnitude(&self) -> f64 { 0.0 }
    }
}
`
	tree := parse(t, lang.Rust, source)
	spec := lang.ForLanguage(lang.Rust)
	src := []byte(source)

	fn := findNode(tree.RootNode(), "function_item", "magnitude", src)
	if fn == nil {
		t.Fatal("function not found")
	}
	got := Resolve(fn, "proj.lib", src, spec)
	want := "proj.lib.geometry.Point.magnitude"
	if got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}
}

func TestResolveRustImplGenerics(t *testing.T) {
	source := `struct Stack<T>(Vec<T>);

impl<T> Stack<T> {
    fn push(&mut self, v: T) {}
}
`
	tree := parse(t, lang.Rust, source)
	spec := lang.ForLanguage(lang.Rust)
	src := []byte(source)

	fn := findNode(tree.RootNode(), "function_item", "push", src)
	if fn == nil {
		t.Fatal("function not found")
	}
	got := Resolve(fn, "proj.lib", src, spec)
	want := "proj.lib.Stack.push"
	if got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}
}

func TestResolveTypeScriptNamespace(t *testing.T) {
	source := `namespace Validation {
    export class EmailValidator {
        isValid(s: string): boolean { return true; }
    }
}
`
	tree := parse(t, lang.TypeScript, source)
	spec := lang.ForLanguage(lang.TypeScript)
	src := []byte(source)

	m := findNode(tree.RootNode(), "method_definition", "isValid", src)
	if m == nil {
		t.Fatal("method not found")
	}
	got := Resolve(m, "proj.src.validation", src, spec)
	want := "proj.src.validation.Validation.EmailValidator.isValid"
	if got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}
}

func TestArrowFunctionDeclaratorName(t *testing.T) {
	source := `const handler = (req) => { return req; };`
	tree := parse(t, lang.JavaScript, source)
	spec := lang.ForLanguage(lang.JavaScript)
	src := []byte(source)

	arrow := findNode(tree.RootNode(), "arrow_function", "", src)
	if arrow == nil {
		t.Fatal("arrow function not found")
	}
	if got := Name(arrow, src, spec); got != "handler" {
		t.Errorf("Name = %q, want handler", got)
	}
}

func TestSynthNameIIFE(t *testing.T) {
	source := `(function() { var x = 1; })();
(() => { var y = 2; })();
`
	tree := parse(t, lang.JavaScript, source)
	src := []byte(source)

	fn := findNode(tree.RootNode(), "function_expression", "", src)
	if fn == nil {
		t.Fatal("function expression not found")
	}
	if got := SynthName(fn); got != "iife_func_0_1" {
		t.Errorf("SynthName = %q, want iife_func_0_1", got)
	}

	arrow := findNode(tree.RootNode(), "arrow_function", "", src)
	if arrow == nil {
		t.Fatal("arrow function not found")
	}
	if got := SynthName(arrow); got != "iife_arrow_1_1" {
		t.Errorf("SynthName = %q, want iife_arrow_1_1", got)
	}
}

func TestSynthNameAnonymousCallback(t *testing.T) {
	source := `items.forEach(function(item) { use(item); });`
	tree := parse(t, lang.JavaScript, source)
	src := []byte(source)

	fn := findNode(tree.RootNode(), "function_expression", "", src)
	if fn == nil {
		t.Fatal("function expression not found")
	}
	got := SynthName(fn)
	if got != "anonymous_0_14" {
		t.Errorf("SynthName = %q, want anonymous_0_14", got)
	}
}

func TestResolveCppFunction(t *testing.T) {
	source := `namespace net {
class Socket {
 public:
  int bind();
};

int connect() { return 0; }
}
`
	tree := parse(t, lang.CPP, source)
	spec := lang.ForLanguage(lang.CPP)
	src := []byte(source)

	fn := findNode(tree.RootNode(), "function_definition", "", src)
	if fn == nil {
		t.Fatal("function definition not found")
	}
	got := Resolve(fn, "proj.net", src, spec)
	want := "proj.net.net.connect"
	if got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}
}
