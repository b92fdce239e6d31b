// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package facts

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"
)

func extract(t *testing.T, e Extractor, source, path string) *Stream {
	t.Helper()
	stream, err := e.Extract(context.Background(), []byte(source), path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	return stream
}

func edgeTargets(stream *Stream) []string {
	targets := make([]string, 0, len(stream.Edges))
	for _, e := range stream.Edges {
		targets = append(targets, e.Target)
	}
	sort.Strings(targets)
	return targets
}

func TestGoExtractor(t *testing.T) {
	source := `package auth

import (
	"context"
	my "example.com/pkg/token"
)

const MaxRetries = 3

type Validator struct{}

func New(ctx context.Context) *Validator { return nil }

func (v *Validator) Check(tok my.Token) error {
	if tok.Expired() {
		return errExpired
	}
	return nil
}

var errExpired = errors.New("expired")
`
	stream := extract(t, NewGoExtractor(), source, "auth/validator.go")

	if len(stream.Nodes) != 1 {
		t.Fatalf("nodes = %d, want 1", len(stream.Nodes))
	}
	node := stream.Nodes[0]
	if node.Path != "auth/validator.go" {
		t.Errorf("Path = %q", node.Path)
	}

	wantExports := []string{"MaxRetries", "Validator", "New", "Check"}
	if !reflect.DeepEqual(node.Exports, wantExports) {
		t.Errorf("Exports = %v, want %v", node.Exports, wantExports)
	}
	if node.TestCoverage != CoverageUnknown {
		t.Errorf("TestCoverage = %v, want unknown", node.TestCoverage)
	}
	if node.Complexity < 2 {
		t.Errorf("Complexity = %v, want >= 2 (one if)", node.Complexity)
	}

	want := []string{"context", "example.com/pkg/token"}
	if got := edgeTargets(stream); !reflect.DeepEqual(got, want) {
		t.Errorf("targets = %v, want %v", got, want)
	}
	// Go imports are whole-package.
	for _, e := range stream.Edges {
		if len(e.Symbols) != 0 {
			t.Errorf("edge %s carries symbols %v, want none", e.Target, e.Symbols)
		}
	}
}

func TestJavaScriptExtractor(t *testing.T) {
	source := `import React from "react";
import { useState, useEffect } from "react";
import * as utils from "./utils";
export { format } from "./format";

export function App() {
	return null;
}

export const VERSION = "1.0";

async function lazy() {
	const mod = await import("./heavy");
	const plugin = await import(pluginName);
}
`
	stream := extract(t, NewJavaScriptExtractor(), source, "src/app.jsx")

	node := stream.Nodes[0]
	wantExports := []string{"App", "VERSION"}
	if !reflect.DeepEqual(node.Exports, wantExports) {
		t.Errorf("Exports = %v, want %v", node.Exports, wantExports)
	}

	byTarget := map[string][]EdgeFact{}
	for _, e := range stream.Edges {
		byTarget[e.Target] = append(byTarget[e.Target], e)
	}

	if got := len(byTarget["react"]); got != 2 {
		t.Fatalf("react edges = %d, want 2", got)
	}
	named := byTarget["react"][1]
	if !reflect.DeepEqual(named.Symbols, []string{"useState", "useEffect"}) {
		t.Errorf("named import symbols = %v", named.Symbols)
	}

	// Namespace import carries no symbol scoping.
	if es := byTarget["./utils"]; len(es) != 1 || len(es[0].Symbols) != 0 {
		t.Errorf("namespace import = %+v", es)
	}

	// Re-export produces an import edge with the forwarded symbol.
	if es := byTarget["./format"]; len(es) != 1 || !reflect.DeepEqual(es[0].Symbols, []string{"format"}) {
		t.Errorf("re-export edge = %+v", es)
	}

	// Literal dynamic import keeps its target; computed one does not.
	if es := byTarget["./heavy"]; len(es) != 1 || !es[0].Dynamic {
		t.Errorf("dynamic literal import = %+v", es)
	}
	if es := byTarget[""]; len(es) != 1 || !es[0].Dynamic || es[0].Kind != EdgeKindDynamic {
		t.Errorf("computed dynamic import = %+v", es)
	}
}

func TestTypeScriptExtractor(t *testing.T) {
	source := `import { Token } from "./token";

export interface Session {
	token: Token;
}

export type SessionID = string;

export class Manager {}
`
	stream := extract(t, NewTypeScriptExtractor(), source, "src/session.ts")

	node := stream.Nodes[0]
	wantExports := []string{"Session", "SessionID", "Manager"}
	if !reflect.DeepEqual(node.Exports, wantExports) {
		t.Errorf("Exports = %v, want %v", node.Exports, wantExports)
	}
	if len(stream.Edges) != 1 || stream.Edges[0].Target != "./token" {
		t.Errorf("edges = %+v", stream.Edges)
	}
}

func TestPythonExtractor(t *testing.T) {
	source := `import os.path
import importlib

from .models import User, Role
from ..db import connect
from helpers import *

def handler(request):
    if request.method == "POST":
        return create(request)
    return None

def _private():
    pass

class View:
    pass

plugin = importlib.import_module("plugins.audit")
`
	stream := extract(t, NewPythonExtractor(), source, "api/views.py")

	node := stream.Nodes[0]
	wantExports := []string{"handler", "View"}
	if !reflect.DeepEqual(node.Exports, wantExports) {
		t.Errorf("Exports = %v, want %v", node.Exports, wantExports)
	}

	byTarget := map[string]EdgeFact{}
	for _, e := range stream.Edges {
		byTarget[e.Target] = e
	}

	if _, ok := byTarget["os/path"]; !ok {
		t.Errorf("missing os/path edge; have %v", edgeTargets(stream))
	}
	if e, ok := byTarget["./models"]; !ok || !reflect.DeepEqual(e.Symbols, []string{"User", "Role"}) {
		t.Errorf("relative import = %+v", e)
	}
	if _, ok := byTarget["../db"]; !ok {
		t.Errorf("missing ../db edge; have %v", edgeTargets(stream))
	}
	// Wildcard import collapses to a namespace dependency.
	if e := byTarget["helpers"]; len(e.Symbols) != 0 {
		t.Errorf("wildcard import symbols = %v, want none", e.Symbols)
	}
	if e, ok := byTarget["plugins/audit"]; !ok || !e.Dynamic {
		t.Errorf("importlib edge = %+v", e)
	}
}

func TestModuleToPath(t *testing.T) {
	tests := []struct {
		module string
		want   string
	}{
		{"os", "os"},
		{"os.path", "os/path"},
		{".models", "./models"},
		{".", "./"},
		{"..db", "../db"},
		{"...pkg.mod", "../../pkg/mod"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := moduleToPath(tt.module); got != tt.want {
			t.Errorf("moduleToPath(%q) = %q, want %q", tt.module, got, tt.want)
		}
	}
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()

	for ext, lang := range map[string]string{
		".go":  "go",
		".py":  "python",
		".ts":  "typescript",
		".jsx": "javascript",
	} {
		e, err := r.ForFile("some/file" + ext)
		if err != nil {
			t.Fatalf("ForFile(%s) error = %v", ext, err)
		}
		if e.Language() != lang {
			t.Errorf("ForFile(%s).Language() = %s, want %s", ext, e.Language(), lang)
		}
	}

	if _, err := r.ForFile("README.md"); !errors.Is(err, ErrUnsupportedLanguage) {
		t.Errorf("ForFile(.md) error = %v, want ErrUnsupportedLanguage", err)
	}
}

func TestParseFile_Limits(t *testing.T) {
	e := NewGoExtractor()
	ctx := context.Background()

	huge := make([]byte, DefaultMaxFileSize+1)
	if _, err := e.Extract(ctx, huge, "huge.go"); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("oversized file error = %v, want ErrFileTooLarge", err)
	}

	if _, err := e.Extract(ctx, []byte{0xff, 0xfe, 0x00}, "bad.go"); !errors.Is(err, ErrParseFailed) {
		t.Errorf("invalid UTF-8 error = %v, want ErrParseFailed", err)
	}
}
