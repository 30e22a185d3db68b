package discover

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/codegraph-dev/codegraph/internal/deps"
	"github.com/codegraph-dev/codegraph/internal/lang"
)

// skipDirs are directory names never descended into.
var skipDirs = map[string]bool{
	".cache": true, ".claude": true, ".eclipse": true, ".eggs": true,
	".env": true, ".git": true, ".gradle": true, ".hg": true,
	".idea": true, ".maven": true, ".mypy_cache": true, ".nox": true,
	".npm": true, ".nyc_output": true, ".pnpm-store": true,
	".pytest_cache": true, ".qdrant_code_embeddings": true,
	".ruff_cache": true, ".svn": true, ".tmp": true, ".tox": true,
	".venv": true, ".vs": true, ".vscode": true, ".yarn": true,
	"__pycache__": true, "bin": true, "bower_components": true,
	"build": true, "coverage": true, "dist": true, "env": true,
	"htmlcov": true, "node_modules": true, "obj": true, "out": true,
	"Pods": true, "site-packages": true, "target": true, "temp": true,
	"tmp": true, "vendor": true, "venv": true,
}

// skipSuffixes are file suffixes for build artifacts and editor leftovers.
var skipSuffixes = []string{
	".tmp", "~", ".pyc", ".pyo", ".o", ".a", ".so", ".dll", ".class",
}

// FileInfo represents a discovered source file.
type FileInfo struct {
	Path     string        // absolute path
	RelPath  string        // relative to repo root, slash-separated
	Language lang.Language // detected language
}

// Options configures file discovery.
type Options struct {
	IgnoreFile string // path to .cgrignore file (optional)
}

// Discover walks a repository and returns every source file in a
// supported language.
func Discover(ctx context.Context, repoPath string, opts *Options) ([]FileInfo, error) {
	var files []FileInfo
	err := walkRepo(ctx, repoPath, opts, func(path, rel, name string) {
		for _, suffix := range skipSuffixes {
			if strings.HasSuffix(name, suffix) {
				return
			}
		}
		if l, ok := lang.LanguageForExtension(filepath.Ext(name)); ok {
			files = append(files, FileInfo{Path: path, RelPath: rel, Language: l})
		}
	})
	return files, err
}

// DiscoverManifests walks a repository and returns dependency manifest
// files (go.mod, package.json, pyproject.toml, ...), honoring the same
// ignore rules as Discover.
func DiscoverManifests(ctx context.Context, repoPath string, opts *Options) ([]string, error) {
	var manifests []string
	err := walkRepo(ctx, repoPath, opts, func(path, rel, name string) {
		if deps.IsManifest(name) {
			manifests = append(manifests, path)
		}
	})
	return manifests, err
}

// walkRepo traverses repoPath applying the skip-dir and .cgrignore rules
// and calls visit for each surviving regular file. Unreadable directories
// are skipped rather than failing the walk.
func walkRepo(ctx context.Context, repoPath string, opts *Options, visit func(path, rel, name string)) error {
	repoPath, err := filepath.Abs(repoPath)
	if err != nil {
		return err
	}

	ignoreFile := filepath.Join(repoPath, ".cgrignore")
	if opts != nil && opts.IgnoreFile != "" {
		ignoreFile = opts.IgnoreFile
	}
	extraIgnore, _ := loadIgnorePatterns(ignoreFile)

	return filepath.Walk(repoPath, func(path string, info os.FileInfo, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			return filepath.SkipDir
		}
		rel, _ := filepath.Rel(repoPath, path)
		if info.IsDir() {
			if ignoredDir(info.Name(), rel, extraIgnore) {
				return filepath.SkipDir
			}
			return nil
		}
		visit(path, filepath.ToSlash(rel), info.Name())
		return nil
	})
}

// ignoredDir reports whether a directory is excluded by the builtin
// skip list or a .cgrignore pattern. Patterns match either the bare
// directory name or its repo-relative path.
func ignoredDir(name, rel string, extraIgnore []string) bool {
	if skipDirs[name] {
		return true
	}
	for _, pattern := range extraIgnore {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

// loadIgnorePatterns reads one pattern per line, skipping blanks and
// comments.
func loadIgnorePatterns(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns, scanner.Err()
}
