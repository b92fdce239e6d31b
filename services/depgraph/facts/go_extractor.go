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

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// GoExtractor extracts import edges and exported symbols from Go source.
//
// Go imports are whole-package, so every import edge is emitted with an
// empty symbol list (namespace dependency). There are no dynamic imports
// in Go; nothing is routed to the DYNAMIC sentinel from this extractor.
type GoExtractor struct{}

// NewGoExtractor creates a Go extractor.
func NewGoExtractor() *GoExtractor {
	return &GoExtractor{}
}

// Language returns "go".
func (e *GoExtractor) Language() string { return "go" }

// Extensions returns the extensions handled by this extractor.
func (e *GoExtractor) Extensions() []string { return []string{".go"} }

// Extract produces one node fact and one import edge fact per import spec.
func (e *GoExtractor) Extract(ctx context.Context, content []byte, path string) (*Stream, error) {
	tree, err := parseFile(ctx, golang.GetLanguage(), content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	stream := NewStream()

	node := NodeFact{
		Path:         path,
		Size:         countLines(content),
		Complexity:   float64(1 + countBranches(root)),
		TestCoverage: CoverageUnknown,
	}

	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		switch child.Type() {
		case "import_declaration":
			e.processImportDecl(child, content, path, stream)
		case "function_declaration", "method_declaration":
			if name := nodeText(child.ChildByFieldName("name"), content); isExportedName(name) {
				node.Exports = append(node.Exports, name)
			}
		case "type_declaration":
			e.collectSpecNames(child, "type_spec", content, &node)
		case "var_declaration":
			e.collectSpecNames(child, "var_spec", content, &node)
		case "const_declaration":
			e.collectSpecNames(child, "const_spec", content, &node)
		}
	}

	stream.AddNode(node)
	return stream, nil
}

// processImportDecl handles both single and grouped import declarations.
func (e *GoExtractor) processImportDecl(n *sitter.Node, content []byte, path string, stream *Stream) {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "import_spec":
			e.processImportSpec(child, content, path, stream)
		case "import_spec_list":
			for j := 0; j < int(child.ChildCount()); j++ {
				if spec := child.Child(j); spec.Type() == "import_spec" {
					e.processImportSpec(spec, content, path, stream)
				}
			}
		}
	}
}

func (e *GoExtractor) processImportSpec(n *sitter.Node, content []byte, path string, stream *Stream) {
	var target string
	for i := 0; i < int(n.ChildCount()); i++ {
		if child := n.Child(i); child.Type() == "interpreted_string_literal" {
			target = stringLiteral(child, content)
		}
	}
	if target == "" {
		return
	}
	stream.AddEdge(EdgeFact{
		From:   path,
		Target: target,
		Kind:   EdgeKindImport,
	})
}

// collectSpecNames collects exported names from type/var/const specs.
func (e *GoExtractor) collectSpecNames(n *sitter.Node, specType string, content []byte, node *NodeFact) {
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == specType {
			if name := nodeText(n.ChildByFieldName("name"), content); isExportedName(name) {
				node.Exports = append(node.Exports, name)
			}
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(n)
}
