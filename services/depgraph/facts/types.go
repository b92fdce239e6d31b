// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package facts defines the uniform fact stream consumed by the graph builder.
//
// A fact is either a node declaration (one source file or module, with its
// exported symbols and numeric attributes) or an edge declaration (a raw
// dependency from one file to a textual target specifier). Facts arrive from
// language extractors or from an external parser via NDJSON; the builder
// depends only on the shapes in this package, never on extractor internals.
//
// # Ordering
//
// Producers may emit facts in any order. File-system traversal order is not
// guaranteed, and extractors run files in parallel, so nothing downstream may
// assume a particular arrival sequence.
package facts

import (
	"context"
	"fmt"
)

// FactKind discriminates the two record shapes in a fact stream.
type FactKind string

const (
	// FactKindNode is a node declaration record.
	FactKindNode FactKind = "node"

	// FactKindEdge is an edge declaration record.
	FactKindEdge FactKind = "edge"
)

// EdgeKind is the type of relationship an edge fact declares.
type EdgeKind string

const (
	// EdgeKindImport is a module/file import.
	EdgeKindImport EdgeKind = "import"

	// EdgeKindTypeReference is a reference to a type defined elsewhere.
	// Derived from an optional type-checker channel; its absence degrades
	// accuracy but never fails a build.
	EdgeKindTypeReference EdgeKind = "type-reference"

	// EdgeKindInheritance is a subclass/implements relationship.
	EdgeKindInheritance EdgeKind = "inheritance"

	// EdgeKindCall is a cross-file call relationship.
	EdgeKindCall EdgeKind = "call"

	// EdgeKindDynamic is a runtime-computed dependency that cannot be
	// statically resolved.
	EdgeKindDynamic EdgeKind = "dynamic"
)

// Valid reports whether k is one of the recognized edge kinds.
func (k EdgeKind) Valid() bool {
	switch k {
	case EdgeKindImport, EdgeKindTypeReference, EdgeKindInheritance,
		EdgeKindCall, EdgeKindDynamic:
		return true
	}
	return false
}

// CoverageUnknown marks a node whose test coverage was not reported.
// Nodes with unknown coverage are excluded from coverage averaging
// instead of being counted as 0%.
const CoverageUnknown = -1.0

// NodeFact declares one source file or module.
type NodeFact struct {
	// Path is the project-relative path (or package identifier) of the node.
	Path string `json:"path"`

	// Exports is the set of symbol names the node makes available.
	Exports []string `json:"exports,omitempty"`

	// Size is the file size in lines.
	Size int `json:"size,omitempty"`

	// Complexity is an opaque complexity score copied through for risk
	// scoring. Never interpreted by the graph itself.
	Complexity float64 `json:"complexity,omitempty"`

	// TestCoverage is the percentage (0-100) of the file covered by tests,
	// or CoverageUnknown when the producer has no coverage data.
	TestCoverage float64 `json:"test_coverage,omitempty"`
}

// EdgeFact declares one raw dependency edge.
//
// Target is a textual specifier exactly as written in source ("./util",
// "@app/models", "lodash", "pkg/sub"). Resolution to a canonical node id is
// the builder's job, not the extractor's.
type EdgeFact struct {
	// From is the project-relative path of the depending file.
	From string `json:"from"`

	// Target is the raw import/reference specifier.
	Target string `json:"target"`

	// Kind is the relationship type.
	Kind EdgeKind `json:"kind"`

	// Symbols is the ordered set of symbol names crossing the edge.
	// Empty means a whole-namespace dependency, which downstream impact
	// analysis must treat conservatively.
	Symbols []string `json:"symbols,omitempty"`

	// Dynamic is set when the producer can prove the target is computed at
	// runtime. Dynamic edges are never silently dropped; the builder routes
	// them to the DYNAMIC sentinel node.
	Dynamic bool `json:"dynamic,omitempty"`
}

// Fact is one record in a fact stream.
type Fact struct {
	Kind FactKind  `json:"kind"`
	Node *NodeFact `json:"node,omitempty"`
	Edge *EdgeFact `json:"edge,omitempty"`
}

// Validate checks structural consistency of the record shape.
//
// Path syntax is deliberately NOT checked here; the builder owns path
// validation so that all malformed-fact diagnostics are produced in one
// place.
func (f Fact) Validate() error {
	switch f.Kind {
	case FactKindNode:
		if f.Node == nil {
			return fmt.Errorf("%w: node record without node body", ErrMalformedFact)
		}
	case FactKindEdge:
		if f.Edge == nil {
			return fmt.Errorf("%w: edge record without edge body", ErrMalformedFact)
		}
		if f.Edge.Kind != "" && !f.Edge.Kind.Valid() {
			return fmt.Errorf("%w: unknown edge kind %q", ErrMalformedFact, f.Edge.Kind)
		}
	default:
		return fmt.Errorf("%w: unknown fact kind %q", ErrMalformedFact, f.Kind)
	}
	return nil
}

// Stream is a buffered fact stream: the complete set of facts for one build.
//
// The builder requires the whole stream up front because edge resolution
// (pass 2) needs the full node set from pass 1.
type Stream struct {
	// Nodes are the node declarations, in arrival order.
	Nodes []NodeFact

	// Edges are the edge declarations, in arrival order.
	Edges []EdgeFact
}

// NewStream returns an empty stream.
func NewStream() *Stream {
	return &Stream{}
}

// Add appends a fact to the stream after shape validation.
func (s *Stream) Add(f Fact) error {
	if err := f.Validate(); err != nil {
		return err
	}
	switch f.Kind {
	case FactKindNode:
		s.Nodes = append(s.Nodes, *f.Node)
	case FactKindEdge:
		s.Edges = append(s.Edges, *f.Edge)
	}
	return nil
}

// AddNode appends a node declaration.
func (s *Stream) AddNode(n NodeFact) {
	s.Nodes = append(s.Nodes, n)
}

// AddEdge appends an edge declaration.
func (s *Stream) AddEdge(e EdgeFact) {
	s.Edges = append(s.Edges, e)
}

// Merge appends all facts from other. Used to combine per-file extractor
// output into one build input.
func (s *Stream) Merge(other *Stream) {
	if other == nil {
		return
	}
	s.Nodes = append(s.Nodes, other.Nodes...)
	s.Edges = append(s.Edges, other.Edges...)
}

// Len returns the total number of facts in the stream.
func (s *Stream) Len() int {
	return len(s.Nodes) + len(s.Edges)
}

// Source produces a complete fact stream for one build invocation.
//
// Implementations: NDJSON readers over external parser output, and the
// tree-sitter reference extractors in this package. Sources perform all
// their I/O inside Extract; the graph builder itself never touches the
// file system.
type Source interface {
	Extract(ctx context.Context) (*Stream, error)
}
