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
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// JavaScriptExtractor extracts import edges and exported symbols from
// JavaScript/JSX source.
//
// Static `import` statements become import edge facts with the imported
// symbol names; namespace imports (`import * as x`) produce an empty symbol
// list. Dynamic `import(...)` calls are emitted as dynamic edge facts: when
// the argument is a string literal the target is preserved, otherwise the
// target is left empty and the builder routes the edge to the DYNAMIC
// sentinel.
type JavaScriptExtractor struct {
	lang *sitter.Language
	name string
	exts []string
}

// NewJavaScriptExtractor creates a JavaScript extractor.
func NewJavaScriptExtractor() *JavaScriptExtractor {
	return &JavaScriptExtractor{
		lang: javascript.GetLanguage(),
		name: "javascript",
		exts: []string{".js", ".jsx", ".mjs", ".cjs"},
	}
}

// NewTypeScriptExtractor creates a TypeScript extractor. The TypeScript
// grammar shares node types with JavaScript, so the extraction logic is
// identical.
func NewTypeScriptExtractor() *JavaScriptExtractor {
	return &JavaScriptExtractor{
		lang: typescript.GetLanguage(),
		name: "typescript",
		exts: []string{".ts", ".tsx"},
	}
}

// Language returns the language name.
func (e *JavaScriptExtractor) Language() string { return e.name }

// Extensions returns the extensions handled by this extractor.
func (e *JavaScriptExtractor) Extensions() []string { return e.exts }

// Extract produces a node fact plus import, re-export and dynamic edge facts.
func (e *JavaScriptExtractor) Extract(ctx context.Context, content []byte, path string) (*Stream, error) {
	tree, err := parseFile(ctx, e.lang, content)
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
		case "import_statement":
			e.processImport(child, content, path, stream)
		case "export_statement":
			e.processExport(child, content, path, stream, &node)
		}
	}

	// Dynamic import() calls can appear anywhere in the tree.
	e.collectDynamicImports(root, content, path, stream)

	stream.AddNode(node)
	return stream, nil
}

// processImport handles a static import statement.
func (e *JavaScriptExtractor) processImport(n *sitter.Node, content []byte, path string, stream *Stream) {
	source := n.ChildByFieldName("source")
	if source == nil {
		return
	}

	edge := EdgeFact{
		From:   path,
		Target: stringLiteral(source, content),
		Kind:   EdgeKindImport,
	}

	// import defaultName, { a, b } from "mod" / import * as ns from "mod"
	namespace := false
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() != "import_clause" {
			continue
		}
		for j := 0; j < int(child.ChildCount()); j++ {
			clause := child.Child(j)
			switch clause.Type() {
			case "identifier":
				edge.Symbols = append(edge.Symbols, "default")
			case "namespace_import":
				namespace = true
			case "named_imports":
				edge.Symbols = append(edge.Symbols, e.namedImportSymbols(clause, content)...)
			}
		}
	}
	if namespace {
		// Whole-namespace dependency: symbol scoping would under-report.
		edge.Symbols = nil
	}

	stream.AddEdge(edge)
}

// processExport records exported names, and emits a re-export edge for
// `export { a } from "mod"` forms.
func (e *JavaScriptExtractor) processExport(n *sitter.Node, content []byte, path string, stream *Stream, node *NodeFact) {
	if source := n.ChildByFieldName("source"); source != nil {
		edge := EdgeFact{
			From:   path,
			Target: stringLiteral(source, content),
			Kind:   EdgeKindImport,
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if clause := n.Child(i); clause.Type() == "export_clause" {
				edge.Symbols = append(edge.Symbols, e.namedImportSymbols(clause, content)...)
			}
		}
		stream.AddEdge(edge)
		// Re-exported names belong to the source module, not this file.
		return
	}

	if decl := n.ChildByFieldName("declaration"); decl != nil {
		switch decl.Type() {
		case "function_declaration", "generator_function_declaration",
			"class_declaration", "abstract_class_declaration",
			"interface_declaration", "type_alias_declaration", "enum_declaration":
			if name := nodeText(decl.ChildByFieldName("name"), content); name != "" {
				node.Exports = append(node.Exports, name)
			}
		case "lexical_declaration", "variable_declaration":
			for i := 0; i < int(decl.ChildCount()); i++ {
				if d := decl.Child(i); d.Type() == "variable_declarator" {
					if name := nodeText(d.ChildByFieldName("name"), content); name != "" {
						node.Exports = append(node.Exports, name)
					}
				}
			}
		}
		return
	}

	// export { a, b }
	for i := 0; i < int(n.ChildCount()); i++ {
		if clause := n.Child(i); clause.Type() == "export_clause" {
			node.Exports = append(node.Exports, e.namedImportSymbols(clause, content)...)
		}
	}
}

// namedImportSymbols collects the original (not aliased) names from a
// named_imports or export_clause node.
func (e *JavaScriptExtractor) namedImportSymbols(n *sitter.Node, content []byte) []string {
	var symbols []string
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() != "import_specifier" && child.Type() != "export_specifier" {
			continue
		}
		if name := nodeText(child.ChildByFieldName("name"), content); name != "" {
			symbols = append(symbols, name)
		}
	}
	return symbols
}

// collectDynamicImports walks the tree for import(...) call expressions.
func (e *JavaScriptExtractor) collectDynamicImports(n *sitter.Node, content []byte, path string, stream *Stream) {
	if n.Type() == "call_expression" {
		fn := n.ChildByFieldName("function")
		if fn != nil && fn.Type() == "import" {
			edge := EdgeFact{
				From:    path,
				Kind:    EdgeKindDynamic,
				Dynamic: true,
			}
			if args := n.ChildByFieldName("arguments"); args != nil {
				for i := 0; i < int(args.ChildCount()); i++ {
					if arg := args.Child(i); arg.Type() == "string" {
						// Literal target: still dynamic, but resolvable.
						edge.Target = stringLiteral(arg, content)
						break
					}
				}
			}
			stream.AddEdge(edge)
		}
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		e.collectDynamicImports(n.Child(i), content, path, stream)
	}
}
