// Package stdlib classifies import targets against embedded standard
// library symbol tables. The tables are versioned YAML data compiled into
// the binary, so classification needs no interpreter or toolchain on the
// host machine.
package stdlib

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/codegraph-dev/codegraph/internal/lang"
)

//go:embed data/*.yaml
var dataFS embed.FS

// Symbol is one known standard library member.
type Symbol struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
}

type table struct {
	Language string              `yaml:"language"`
	Modules  map[string][]Symbol `yaml:"modules"`
}

var (
	loadOnce sync.Once
	tables   map[lang.Language]*table
	loadErr  error
)

func load() error {
	loadOnce.Do(func() {
		tables = map[lang.Language]*table{}
		entries, err := dataFS.ReadDir("data")
		if err != nil {
			loadErr = err
			return
		}
		for _, entry := range entries {
			data, err := dataFS.ReadFile("data/" + entry.Name())
			if err != nil {
				loadErr = err
				return
			}
			var t table
			if err := yaml.Unmarshal(data, &t); err != nil {
				loadErr = fmt.Errorf("stdlib table %s: %w", entry.Name(), err)
				return
			}
			tables[lang.Language(t.Language)] = &t
		}
	})
	return loadErr
}

// tableFor maps a language to its table. TypeScript shares the node
// builtin set with JavaScript.
func tableFor(l lang.Language) *table {
	switch l {
	case lang.TypeScript, lang.TSX:
		l = lang.JavaScript
	}
	return tables[l]
}

// IsModule reports whether a dotted module path is a known standard
// library module for the language.
func IsModule(l lang.Language, module string) bool {
	if load() != nil {
		return false
	}
	t := tableFor(l)
	if t == nil {
		return false
	}
	_, ok := t.Modules[module]
	return ok
}

// ModulePath returns the longest known stdlib module prefix of a dotted
// qualified name. `os.path.join` yields `os.path` for python.
func ModulePath(l lang.Language, qualifiedName string) (string, bool) {
	if load() != nil {
		return "", false
	}
	t := tableFor(l)
	if t == nil {
		return "", false
	}
	parts := strings.Split(qualifiedName, ".")
	for i := len(parts); i > 0; i-- {
		candidate := strings.Join(parts[:i], ".")
		if _, ok := t.Modules[candidate]; ok {
			return candidate, true
		}
	}
	return "", false
}

// SymbolKind looks up the kind of a fully qualified stdlib symbol, e.g.
// `json.loads` -> function.
func SymbolKind(l lang.Language, qualifiedName string) (string, bool) {
	module, ok := ModulePath(l, qualifiedName)
	if !ok || module == qualifiedName {
		return "", false
	}
	name := strings.TrimPrefix(qualifiedName, module+".")
	for _, sym := range tableFor(l).Modules[module] {
		if sym.Name == name {
			return sym.Kind, true
		}
	}
	return "", false
}

// Languages returns the languages with embedded tables.
func Languages() []lang.Language {
	if load() != nil {
		return nil
	}
	out := make([]lang.Language, 0, len(tables))
	for l := range tables {
		out = append(out, l)
	}
	return out
}
