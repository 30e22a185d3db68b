package registry

import (
	"fmt"
	"sort"
	"testing"
)

func qns(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.QualifiedName
	}
	sort.Strings(out)
	return out
}

func TestSetGet(t *testing.T) {
	r := New()
	r.Set("proj.mod.Foo", "Class")
	r.Set("proj.mod.Foo.bar", "Method")

	kind, ok := r.Get("proj.mod.Foo")
	if !ok || kind != "Class" {
		t.Errorf("Get(proj.mod.Foo) = %q, %v", kind, ok)
	}
	if _, ok := r.Get("proj.mod"); ok {
		t.Error("proj.mod is an intermediate node, not an entry")
	}
	if !r.Contains("proj.mod.Foo.bar") {
		t.Error("Contains(proj.mod.Foo.bar) = false")
	}
	if r.Len() != 2 {
		t.Errorf("Len = %d, want 2", r.Len())
	}
}

func TestSetOverwrites(t *testing.T) {
	r := New()
	r.Set("proj.x", "Function")
	r.Set("proj.x", "Method")
	kind, _ := r.Get("proj.x")
	if kind != "Method" {
		t.Errorf("kind = %q, want Method (last write wins)", kind)
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

func TestFindWithPrefix(t *testing.T) {
	r := New()
	r.Set("proj.mod.Widget", "Class")
	r.Set("proj.mod.Widget.draw", "Method")
	r.Set("proj.mod.Widget.draw.helper", "Function")
	r.Set("proj.mod.WidgetFactory", "Class")
	r.Set("proj.mod.WidgetFactory.create", "Method")

	got := qns(r.FindWithPrefix("proj.mod.Widget"))
	want := []string{"proj.mod.Widget", "proj.mod.Widget.draw", "proj.mod.Widget.draw.helper"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("FindWithPrefix = %v, want %v", got, want)
	}
}

func TestFindWithPrefixColonBoundary(t *testing.T) {
	r := New()
	r.Set("proj.ui.Widget:init", "Method")
	r.Set("proj.ui.Widget:draw", "Method")
	r.Set("proj.ui.Widget", "Class")
	r.Set("proj.ui.WidgetFactory", "Class")

	got := qns(r.FindWithPrefix("proj.ui.Widget"))
	want := []string{"proj.ui.Widget", "proj.ui.Widget:draw", "proj.ui.Widget:init"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("FindWithPrefix = %v, want %v", got, want)
	}
}

func TestFindWithPrefixMissing(t *testing.T) {
	r := New()
	r.Set("proj.a.b", "Function")
	if got := r.FindWithPrefix("proj.z"); len(got) != 0 {
		t.Errorf("FindWithPrefix(proj.z) = %v, want empty", got)
	}
}

func TestFindEndingWith(t *testing.T) {
	r := New()
	r.Set("proj.a.setup", "Function")
	r.Set("proj.b.c.setup", "Method")
	r.Set("proj.b.setup_all", "Function")

	got := qns(r.FindEndingWith("setup"))
	want := []string{"proj.a.setup", "proj.b.c.setup"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("FindEndingWith = %v, want %v", got, want)
	}
}

func TestEntries(t *testing.T) {
	r := New()
	names := []string{"proj.a", "proj.a.b", "proj.c"}
	for _, n := range names {
		r.Set(n, "Function")
	}
	got := qns(r.Entries())
	if fmt.Sprint(got) != fmt.Sprint(names) {
		t.Errorf("Entries = %v, want %v", got, names)
	}
}

func TestConcurrentReads(t *testing.T) {
	r := New()
	for i := 0; i < 100; i++ {
		r.Set(fmt.Sprintf("proj.mod.fn%d", i), "Function")
	}
	done := make(chan struct{})
	for w := 0; w < 8; w++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 100; i++ {
				r.Contains(fmt.Sprintf("proj.mod.fn%d", i))
				r.FindWithPrefix("proj.mod")
			}
		}()
	}
	for w := 0; w < 8; w++ {
		<-done
	}
	if r.Len() != 100 {
		t.Errorf("Len = %d, want 100", r.Len())
	}
}
