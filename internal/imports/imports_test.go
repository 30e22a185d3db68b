package imports

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/codegraph-dev/codegraph/internal/lang"
	"github.com/codegraph-dev/codegraph/internal/parser"
)

func writeFixture(t *testing.T, root string, paths ...string) {
	t.Helper()
	for _, p := range paths {
		full := filepath.Join(root, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func resolve(t *testing.T, r *Resolver, l lang.Language, moduleQN, src string) Map {
	t.Helper()
	spec := lang.ForLanguage(l)
	if spec == nil {
		t.Fatalf("no language spec for %s", l)
	}
	tree, err := parser.Parse(l, []byte(src))
	if err != nil {
		t.Fatalf("parse %s: %v", l, err)
	}
	defer tree.Close()
	r.Resolve(tree.RootNode(), moduleQN, []byte(src), spec)
	return r.ModuleMap(moduleQN)
}

func wantEntries(t *testing.T, m Map, want map[string]string) {
	t.Helper()
	for local, target := range want {
		got, ok := m[local]
		if !ok {
			t.Errorf("missing entry %q (want %q); map: %v", local, target, m)
			continue
		}
		if got != target {
			t.Errorf("entry %q = %q, want %q", local, got, target)
		}
	}
}

func TestPythonImports(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "utils.py", "a/pkg/x.py")
	r := NewResolver("proj", root)

	src := `import os
import numpy as np
import utils
from collections import OrderedDict as OD
from utils import helper
`
	m := resolve(t, r, lang.Python, "proj.main", src)

	wantEntries(t, m, map[string]string{
		"os":     "os",
		"np":     "numpy",
		"utils":  "proj.utils",
		"OD":     "collections.OrderedDict",
		"helper": "proj.utils.helper",
	})
}

func TestPythonRelativeImport(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "a/pkg/x.py", "a/b/c.py")
	r := NewResolver("proj", root)

	m := resolve(t, r, lang.Python, "proj.a.b.c", "from ..pkg import x\n")

	wantEntries(t, m, map[string]string{"x": "proj.a.pkg.x"})
}

func TestPythonWildcardImport(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "utils.py")
	r := NewResolver("proj", root)

	m := resolve(t, r, lang.Python, "proj.main", "from utils import *\n")

	wantEntries(t, m, map[string]string{"*proj.utils": "proj.utils"})
}

func TestJavaScriptImports(t *testing.T) {
	r := NewResolver("proj", t.TempDir())

	src := `import React from 'react';
import { useState as us, useEffect } from 'react';
import * as fsp from 'fs/promises';
const lodash = require('lodash');
import { helper } from './util';
`
	m := resolve(t, r, lang.JavaScript, "proj.src.app", src)

	wantEntries(t, m, map[string]string{
		"React":     "react.default",
		"us":        "react.useState",
		"useEffect": "react.useEffect",
		"fsp":       "fs.promises",
		"lodash":    "lodash",
		"helper":    "proj.src.util.helper",
	})
}

func TestJavaScriptReexports(t *testing.T) {
	r := NewResolver("proj", t.TempDir())

	src := `export { a, b as c } from './m';
export * from './base';
`
	m := resolve(t, r, lang.JavaScript, "proj.src.index", src)

	wantEntries(t, m, map[string]string{
		"a":              "proj.src.m.a",
		"c":              "proj.src.m.b",
		"*proj.src.base": "proj.src.base",
	})
}

func TestGoImports(t *testing.T) {
	r := NewResolver("codegraph", t.TempDir())

	src := `package main

import (
	"fmt"
	_ "embed"
	. "strings"
	sq "database/sql"
	"github.com/acme/codegraph/internal/x"
)
`
	m := resolve(t, r, lang.Go, "codegraph.main", src)

	wantEntries(t, m, map[string]string{
		"fmt": "fmt",
		"sq":  "database.sql",
		"x":   "codegraph.internal.x",
	})
	if _, ok := m["_"]; ok {
		t.Error("blank import must not be recorded")
	}
	if _, ok := m["embed"]; ok {
		t.Error("blank import must not bind its package name")
	}
	if _, ok := m["strings"]; ok {
		t.Error("dot import must not bind its package name")
	}
}

func TestRustImports(t *testing.T) {
	r := NewResolver("proj", t.TempDir())

	src := `use std::collections::{HashMap, HashSet};
use crate::util::helpers as h;
use super::shared::*;
use serde::Serialize;
extern crate regex as re;
`
	m := resolve(t, r, lang.Rust, "proj.app", src)

	wantEntries(t, m, map[string]string{
		"HashMap":      "std.collections.HashMap",
		"HashSet":      "std.collections.HashSet",
		"h":            "proj.util.helpers",
		"*proj.shared": "proj.shared",
		"Serialize":    "serde.Serialize",
		"re":           "regex",
	})
}

func TestRustSelfInUseList(t *testing.T) {
	r := NewResolver("proj", t.TempDir())

	src := "use crate::net::{self, socket};\n"
	m := resolve(t, r, lang.Rust, "proj.app", src)

	wantEntries(t, m, map[string]string{
		"self":   "proj.net",
		"socket": "proj.net.socket",
	})
}

func TestJavaImports(t *testing.T) {
	r := NewResolver("proj", t.TempDir())

	src := `import java.util.List;
import java.io.*;
import static java.lang.Math.max;
`
	m := resolve(t, r, lang.Java, "proj.App", src)

	wantEntries(t, m, map[string]string{
		"List":     "java.util.List",
		"*java.io": "java.io",
		"max":      "java.lang.Math.max",
	})
}

func TestCppIncludes(t *testing.T) {
	r := NewResolver("proj", t.TempDir())

	src := `#include "core/engine.h"
#include <vector>
`
	m := resolve(t, r, lang.CPP, "proj.main", src)

	wantEntries(t, m, map[string]string{
		"engine": "proj.core.engine",
		"vector": "std.vector",
	})
}

func TestLuaRequires(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "utils.lua")
	r := NewResolver("proj", root)

	src := `local json = require('json')
local u = require('utils')
local ok, lfs = pcall(require, 'lfs')
local s = string.upper("x")
`
	m := resolve(t, r, lang.Lua, "proj.main", src)

	wantEntries(t, m, map[string]string{
		"json":   "json",
		"u":      "proj.utils",
		"lfs":    "lfs",
		"string": "string",
	})
}

func TestLuaRelativeRequire(t *testing.T) {
	r := NewResolver("proj", t.TempDir())

	m := resolve(t, r, lang.Lua, "proj.src.app", "local h = require('./helpers')\n")

	wantEntries(t, m, map[string]string{"h": "proj.src.helpers"})
}

func TestGenericFallbackCSharp(t *testing.T) {
	r := NewResolver("proj", t.TempDir())

	m := resolve(t, r, lang.CSharp, "proj.Program", "using System.Text;\n")

	wantEntries(t, m, map[string]string{"Text": "System.Text"})
}

func TestModuleMapIsStable(t *testing.T) {
	r := NewResolver("proj", t.TempDir())
	m := r.ModuleMap("proj.a")
	m["x"] = "proj.x"
	if got := r.ModuleMap("proj.a")["x"]; got != "proj.x" {
		t.Fatalf("module map not shared: got %q", got)
	}
	if len(r.Modules()) != 1 {
		t.Fatalf("want 1 module, got %d", len(r.Modules()))
	}
}
