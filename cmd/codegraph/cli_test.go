package main

import (
	"path/filepath"
	"testing"
)

func TestResolveDBPathDefault(t *testing.T) {
	flagDB = ""
	got := resolveDBPath("/repo")
	want := filepath.Join("/repo", ".codegraph", "index.db")
	if got != want {
		t.Errorf("resolveDBPath: got %q, want %q", got, want)
	}
}

func TestResolveDBPathFlag(t *testing.T) {
	flagDB = "/tmp/custom.db"
	defer func() { flagDB = "" }()
	if got := resolveDBPath("/repo"); got != "/tmp/custom.db" {
		t.Errorf("resolveDBPath with --db: got %q", got)
	}
}

func TestResolveRepoPath(t *testing.T) {
	dir := t.TempDir()
	got, err := resolveRepoPath([]string{dir})
	if err != nil {
		t.Fatalf("resolveRepoPath: %v", err)
	}
	if got != dir {
		t.Errorf("got %q, want %q", got, dir)
	}
}

func TestResolveRepoPathNotDir(t *testing.T) {
	if _, err := resolveRepoPath([]string{"/no/such/dir"}); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
