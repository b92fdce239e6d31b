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
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
)

// DefaultMaxFileSize is the maximum file size an extractor will accept (10MB).
const DefaultMaxFileSize = 10 * 1024 * 1024

// Extractor converts one source file into facts.
//
// Description:
//
//	Each extractor owns only the syntax-specific logic for its language.
//	All extractors emit the same uniform fact shapes; nothing downstream
//	depends on which extractor produced a fact.
//
// Thread Safety:
//
//	Extractors are safe for concurrent use. Each Extract call creates its
//	own tree-sitter parser instance internally.
type Extractor interface {
	// Language returns the language name ("go", "javascript", ...).
	Language() string

	// Extensions returns the file extensions this extractor handles,
	// including the leading dot.
	Extensions() []string

	// Extract produces facts for a single file. path must be the
	// project-relative path used as the node id.
	Extract(ctx context.Context, content []byte, path string) (*Stream, error)
}

// Registry maps file extensions to extractors.
//
// The set of adapters is closed at construction; there is no runtime plugin
// loading. DefaultRegistry covers the bundled tree-sitter extractors.
type Registry struct {
	byExt map[string]Extractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]Extractor)}
}

// Register adds an extractor for all of its extensions.
// Later registrations win on extension conflicts.
func (r *Registry) Register(e Extractor) {
	for _, ext := range e.Extensions() {
		r.byExt[strings.ToLower(ext)] = e
	}
}

// ForFile returns the extractor responsible for the given path.
func (r *Registry) ForFile(path string) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(path))
	e, ok := r.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, ext)
	}
	return e, nil
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	return exts
}

// DefaultRegistry returns a registry with the bundled extractors:
// Go, JavaScript, TypeScript, and Python.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewGoExtractor())
	r.Register(NewJavaScriptExtractor())
	r.Register(NewTypeScriptExtractor())
	r.Register(NewPythonExtractor())
	return r
}

// parseFile runs tree-sitter over content with the given language.
func parseFile(ctx context.Context, lang *sitter.Language, content []byte) (*sitter.Tree, error) {
	if int64(len(content)) > DefaultMaxFileSize {
		return nil, ErrFileTooLarge
	}
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: content is not valid UTF-8", ErrParseFailed)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}
	if tree == nil || tree.RootNode() == nil {
		return nil, ErrParseFailed
	}
	return tree, nil
}

// nodeText returns the source text of a tree-sitter node.
func nodeText(n *sitter.Node, content []byte) string {
	if n == nil {
		return ""
	}
	return string(content[n.StartByte():n.EndByte()])
}

// stringLiteral strips the surrounding quotes from a string literal node.
func stringLiteral(n *sitter.Node, content []byte) string {
	return strings.Trim(nodeText(n, content), "\"'`")
}

// isExportedName reports whether name follows the Go exported-identifier
// convention (leading uppercase rune).
func isExportedName(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}

// countLines returns the number of lines in content.
func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := bytes.Count(content, []byte{'\n'})
	if content[len(content)-1] != '\n' {
		n++
	}
	return n
}

// branchNodeTypes are the tree-sitter node types counted toward the
// cyclomatic-complexity proxy shared by all bundled extractors.
var branchNodeTypes = map[string]bool{
	"if_statement":                true,
	"for_statement":               true,
	"while_statement":             true,
	"switch_statement":            true,
	"expression_switch_statement": true,
	"type_switch_statement":       true,
	"select_statement":            true,
	"case_clause":                 true,
	"match_statement":             true,
	"conditional_expression":      true,
	"try_statement":               true,
	"except_clause":               true,
	"catch_clause":                true,
}

// countBranches walks the tree counting branch constructs.
func countBranches(n *sitter.Node) int {
	if n == nil {
		return 0
	}
	count := 0
	if branchNodeTypes[n.Type()] {
		count++
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		count += countBranches(n.Child(i))
	}
	return count
}
