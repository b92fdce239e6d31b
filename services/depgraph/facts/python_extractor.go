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
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// PythonExtractor extracts import edges and module-level symbols from
// Python source.
//
// Module paths are normalized to slash form so the builder's resolution
// rules stay language-agnostic: `import pkg.sub` yields target "pkg/sub",
// `from . import x` yields "./", and `from ..mod import y` yields "../mod".
// Calls to __import__ or importlib are emitted as dynamic edges.
type PythonExtractor struct{}

// NewPythonExtractor creates a Python extractor.
func NewPythonExtractor() *PythonExtractor {
	return &PythonExtractor{}
}

// Language returns "python".
func (e *PythonExtractor) Language() string { return "python" }

// Extensions returns the extensions handled by this extractor.
func (e *PythonExtractor) Extensions() []string { return []string{".py"} }

// Extract produces a node fact plus import edge facts.
func (e *PythonExtractor) Extract(ctx context.Context, content []byte, path string) (*Stream, error) {
	tree, err := parseFile(ctx, python.GetLanguage(), content)
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
		case "import_from_statement":
			e.processImportFrom(child, content, path, stream)
		case "function_definition", "class_definition":
			name := nodeText(child.ChildByFieldName("name"), content)
			if name != "" && !strings.HasPrefix(name, "_") {
				node.Exports = append(node.Exports, name)
			}
		case "decorated_definition":
			if def := child.ChildByFieldName("definition"); def != nil {
				name := nodeText(def.ChildByFieldName("name"), content)
				if name != "" && !strings.HasPrefix(name, "_") {
					node.Exports = append(node.Exports, name)
				}
			}
		}
	}

	e.collectDynamicImports(root, content, path, stream)

	stream.AddNode(node)
	return stream, nil
}

// processImport handles `import a.b, c`.
func (e *PythonExtractor) processImport(n *sitter.Node, content []byte, path string, stream *Stream) {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "dotted_name":
			stream.AddEdge(EdgeFact{
				From:   path,
				Target: moduleToPath(nodeText(child, content)),
				Kind:   EdgeKindImport,
			})
		case "aliased_import":
			if name := child.ChildByFieldName("name"); name != nil {
				stream.AddEdge(EdgeFact{
					From:   path,
					Target: moduleToPath(nodeText(name, content)),
					Kind:   EdgeKindImport,
				})
			}
		}
	}
}

// processImportFrom handles `from a.b import x, y` and relative forms.
func (e *PythonExtractor) processImportFrom(n *sitter.Node, content []byte, path string, stream *Stream) {
	module := n.ChildByFieldName("module_name")
	if module == nil {
		return
	}

	edge := EdgeFact{
		From:   path,
		Target: moduleToPath(nodeText(module, content)),
		Kind:   EdgeKindImport,
	}

	wildcard := false
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "wildcard_import":
			wildcard = true
		case "dotted_name":
			if child != module {
				edge.Symbols = append(edge.Symbols, nodeText(child, content))
			}
		case "aliased_import":
			if name := child.ChildByFieldName("name"); name != nil {
				edge.Symbols = append(edge.Symbols, nodeText(name, content))
			}
		}
	}
	if wildcard {
		edge.Symbols = nil
	}

	stream.AddEdge(edge)
}

// collectDynamicImports finds __import__ and importlib.import_module calls.
func (e *PythonExtractor) collectDynamicImports(n *sitter.Node, content []byte, path string, stream *Stream) {
	if n.Type() == "call" {
		fn := n.ChildByFieldName("function")
		fnText := nodeText(fn, content)
		if fnText == "__import__" || fnText == "importlib.import_module" {
			edge := EdgeFact{
				From:    path,
				Kind:    EdgeKindDynamic,
				Dynamic: true,
			}
			if args := n.ChildByFieldName("arguments"); args != nil {
				for i := 0; i < int(args.ChildCount()); i++ {
					if arg := args.Child(i); arg.Type() == "string" {
						edge.Target = moduleToPath(stringLiteral(arg, content))
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

// moduleToPath converts a dotted Python module path to the slash form used
// by the resolver. Leading dots become relative path prefixes.
func moduleToPath(module string) string {
	if module == "" {
		return ""
	}

	dots := 0
	for dots < len(module) && module[dots] == '.' {
		dots++
	}
	rest := strings.ReplaceAll(module[dots:], ".", "/")

	switch dots {
	case 0:
		return rest
	case 1:
		if rest == "" {
			return "./"
		}
		return "./" + rest
	default:
		prefix := strings.Repeat("../", dots-1)
		if rest == "" {
			return prefix
		}
		return prefix + rest
	}
}
