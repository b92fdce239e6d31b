// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"fmt"
	"time"

	"github.com/AleutianAI/AleutianGraph/services/depgraph/facts"
)

// Default configuration values.
const (
	// DefaultMaxNodes is the default maximum number of nodes a graph can hold.
	DefaultMaxNodes = 1_000_000

	// DefaultMaxEdges is the default maximum number of edges a graph can hold.
	DefaultMaxEdges = 10_000_000
)

// DynamicNodeID is the reserved id of the sentinel node that receives all
// edges whose target cannot be statically resolved. Materialized lazily by
// the builder on the first dynamic edge.
const DynamicNodeID = "DYNAMIC"

// NodeIndex is a stable arena index for a node within one graph snapshot.
type NodeIndex = int32

// GraphState represents the lifecycle state of the graph.
type GraphState int

const (
	// GraphStateBuilding indicates the graph is accepting AddNode/AddEdge calls.
	GraphStateBuilding GraphState = iota

	// GraphStateReadOnly indicates the graph is frozen and read-only.
	GraphStateReadOnly
)

// String returns the string representation of the GraphState.
func (s GraphState) String() string {
	switch s {
	case GraphStateBuilding:
		return "building"
	case GraphStateReadOnly:
		return "readonly"
	default:
		return "unknown"
	}
}

// NodeKind classifies graph nodes.
type NodeKind int

const (
	// NodeKindSourceFile is a file in the analyzed project.
	NodeKindSourceFile NodeKind = iota

	// NodeKindExternalPackage is a synthetic node for a dependency outside
	// the project (package manager, standard library).
	NodeKindExternalPackage

	// NodeKindDynamicTarget is the DYNAMIC sentinel.
	NodeKindDynamicTarget
)

// String returns the string representation of the NodeKind.
func (k NodeKind) String() string {
	switch k {
	case NodeKindSourceFile:
		return "source-file"
	case NodeKindExternalPackage:
		return "external-package"
	case NodeKindDynamicTarget:
		return "synthetic-dynamic-target"
	default:
		return "unknown"
	}
}

// Node is one graph vertex: a source file, external package, or the
// DYNAMIC sentinel.
//
// The numeric attributes are copied from the fact stream during ingestion
// and used only for risk scoring; they are never mutated after the build
// phase completes.
type Node struct {
	// ID is the canonical project-relative path or package identifier.
	// Unique within a graph snapshot.
	ID string

	// Kind classifies the node.
	Kind NodeKind

	// Exports is the set of symbol names the node makes available.
	Exports []string

	// Size is the file size in lines.
	Size int

	// Complexity is an opaque complexity score from the fact stream.
	Complexity float64

	// TestCoverage is the coverage percentage (0-100), or
	// facts.CoverageUnknown when the producer had no coverage data.
	TestCoverage float64
}

// HasExport reports whether the node exports the given symbol.
func (n *Node) HasExport(symbol string) bool {
	for _, s := range n.Exports {
		if s == symbol {
			return true
		}
	}
	return false
}

// Edge is a directed, typed relationship between two nodes, identified by
// arena index.
type Edge struct {
	// From is the source node index.
	From NodeIndex

	// To is the target node index. Points at the DYNAMIC sentinel when the
	// target could not be statically resolved.
	To NodeIndex

	// Type is the relationship type.
	Type facts.EdgeKind

	// Symbols is the ordered set of symbol names crossing the edge. Empty
	// means a whole-namespace dependency: any exported-symbol change on
	// the target affects this edge.
	Symbols []string

	// IsDynamic marks edges excluded from exact impact guarantees. They
	// are reported separately, never silently dropped.
	IsDynamic bool

	// Weight is a derived strength in (0, 1], used only for visualization
	// emphasis and tie-breaking, never for correctness decisions.
	Weight float64
}

// GraphOptions configures Graph capacity limits.
type GraphOptions struct {
	// MaxNodes is the maximum number of nodes the graph can hold.
	// Default: 1,000,000
	MaxNodes int

	// MaxEdges is the maximum number of edges the graph can hold.
	// Default: 10,000,000
	MaxEdges int
}

// DefaultGraphOptions returns sensible defaults for graph configuration.
func DefaultGraphOptions() GraphOptions {
	return GraphOptions{
		MaxNodes: DefaultMaxNodes,
		MaxEdges: DefaultMaxEdges,
	}
}

// GraphOption is a functional option for configuring Graph.
type GraphOption func(*GraphOptions)

// WithMaxNodes sets the maximum number of nodes the graph can hold.
func WithMaxNodes(n int) GraphOption {
	return func(o *GraphOptions) {
		o.MaxNodes = n
	}
}

// WithMaxEdges sets the maximum number of edges the graph can hold.
func WithMaxEdges(n int) GraphOption {
	return func(o *GraphOptions) {
		o.MaxEdges = n
	}
}

// Graph is one immutable-once-built dependency graph snapshot.
//
// Storage is flat arrays indexed by NodeIndex, with precomputed adjacency
// in both directions for O(1) neighbor queries. See the package comment for
// the lifecycle and thread-safety contract.
type Graph struct {
	// nodes is the node arena; index is stable for the snapshot lifetime.
	nodes []Node

	// index maps node id to arena index.
	index map[string]NodeIndex

	// edges is the edge arena.
	edges []Edge

	// outgoing maps node index to indices of edges whose From is that node.
	outgoing [][]int32

	// incoming maps node index to indices of edges whose To is that node.
	incoming [][]int32

	// dynamicIdx is the arena index of the DYNAMIC sentinel, or -1.
	dynamicIdx NodeIndex

	// state is the current lifecycle state.
	state GraphState

	// options contains capacity configuration.
	options GraphOptions

	// BuiltAtMilli is the Unix timestamp in milliseconds when Freeze() was
	// called. Zero if the graph has not been frozen.
	BuiltAtMilli int64
}

// NewGraph creates a new empty graph in the Building state.
//
// Example:
//
//	// Default limits
//	g := NewGraph()
//
//	// Custom limits
//	g := NewGraph(WithMaxNodes(100_000), WithMaxEdges(1_000_000))
func NewGraph(opts ...GraphOption) *Graph {
	options := DefaultGraphOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &Graph{
		index:      make(map[string]NodeIndex),
		dynamicIdx: -1,
		state:      GraphStateBuilding,
		options:    options,
	}
}

// State returns the current lifecycle state of the graph.
func (g *Graph) State() GraphState {
	return g.state
}

// IsFrozen returns true if the graph is in read-only mode.
func (g *Graph) IsFrozen() bool {
	return g.state == GraphStateReadOnly
}

// Freeze transitions the graph to read-only mode.
//
// Description:
//
//	After Freeze(), AddNode and AddEdge return ErrGraphFrozen and the
//	graph may be read concurrently. This operation is irreversible.
func (g *Graph) Freeze() {
	g.state = GraphStateReadOnly
	g.BuiltAtMilli = time.Now().UnixMilli()
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// AddNode adds a node to the arena.
//
// Outputs:
//
//	NodeIndex - The stable arena index of the new node.
//	error - ErrGraphFrozen, ErrDuplicateNode, or ErrMaxNodesExceeded.
func (g *Graph) AddNode(n Node) (NodeIndex, error) {
	if g.state == GraphStateReadOnly {
		return -1, ErrGraphFrozen
	}
	if n.ID == "" {
		return -1, fmt.Errorf("%w: empty node id", ErrUnknownNode)
	}
	if len(g.nodes) >= g.options.MaxNodes {
		return -1, ErrMaxNodesExceeded
	}
	if _, exists := g.index[n.ID]; exists {
		return -1, fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
	}

	idx := NodeIndex(len(g.nodes))
	g.nodes = append(g.nodes, n)
	g.index[n.ID] = idx
	g.outgoing = append(g.outgoing, nil)
	g.incoming = append(g.incoming, nil)

	if n.Kind == NodeKindDynamicTarget {
		g.dynamicIdx = idx
	}

	return idx, nil
}

// AddEdge appends an edge and updates both adjacency indexes.
//
// Errors:
//
//	ErrGraphFrozen - Graph has been frozen
//	ErrInvalidEdge - From/To index outside the arena
//	ErrMaxEdgesExceeded - Graph is at edge capacity
func (g *Graph) AddEdge(e Edge) error {
	if g.state == GraphStateReadOnly {
		return ErrGraphFrozen
	}
	if len(g.edges) >= g.options.MaxEdges {
		return ErrMaxEdgesExceeded
	}
	if e.From < 0 || int(e.From) >= len(g.nodes) {
		return fmt.Errorf("%w: from index %d", ErrInvalidEdge, e.From)
	}
	if e.To < 0 || int(e.To) >= len(g.nodes) {
		return fmt.Errorf("%w: to index %d", ErrInvalidEdge, e.To)
	}

	edgeIdx := int32(len(g.edges))
	g.edges = append(g.edges, e)
	g.outgoing[e.From] = append(g.outgoing[e.From], edgeIdx)
	g.incoming[e.To] = append(g.incoming[e.To], edgeIdx)
	return nil
}

// Lookup returns the arena index for a node id.
func (g *Graph) Lookup(id string) (NodeIndex, bool) {
	idx, ok := g.index[id]
	return idx, ok
}

// NodeAt returns the node at the given arena index.
//
// The returned pointer references arena storage; it MUST NOT be mutated
// after the graph is frozen.
func (g *Graph) NodeAt(idx NodeIndex) *Node {
	return &g.nodes[idx]
}

// NodeByID returns the node with the given id.
func (g *Graph) NodeByID(id string) (*Node, bool) {
	idx, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return &g.nodes[idx], true
}

// EdgeAt returns the edge at the given arena index.
func (g *Graph) EdgeAt(idx int32) *Edge {
	return &g.edges[idx]
}

// Outgoing returns the edge indices whose source is the given node.
// Callers must not modify the returned slice.
func (g *Graph) Outgoing(idx NodeIndex) []int32 {
	return g.outgoing[idx]
}

// Incoming returns the edge indices whose target is the given node.
// Callers must not modify the returned slice.
func (g *Graph) Incoming(idx NodeIndex) []int32 {
	return g.incoming[idx]
}

// FanIn returns the number of incoming edges of the node: its dependent
// count, used for critical-path classification.
func (g *Graph) FanIn(idx NodeIndex) int {
	return len(g.incoming[idx])
}

// DynamicIndex returns the arena index of the DYNAMIC sentinel, or -1 when
// the snapshot has no dynamic edges.
func (g *Graph) DynamicIndex() NodeIndex {
	return g.dynamicIdx
}

// Nodes returns an iterator over all nodes in arena order.
//
// Example:
//
//	for idx, node := range g.Nodes() {
//	    fmt.Printf("%d: %s\n", idx, node.ID)
//	}
func (g *Graph) Nodes() func(yield func(NodeIndex, *Node) bool) {
	return func(yield func(NodeIndex, *Node) bool) {
		for i := range g.nodes {
			if !yield(NodeIndex(i), &g.nodes[i]) {
				return
			}
		}
	}
}

// Edges returns an iterator over all edges in arena order.
func (g *Graph) Edges() func(yield func(int32, *Edge) bool) {
	return func(yield func(int32, *Edge) bool) {
		for i := range g.edges {
			if !yield(int32(i), &g.edges[i]) {
				return
			}
		}
	}
}

// GraphStats contains statistics about a graph snapshot.
//
// Thread Safety: GraphStats is a value type with no internal state. Safe
// for concurrent use as long as the source Graph is frozen.
type GraphStats struct {
	// NodeCount is the total number of nodes.
	NodeCount int

	// EdgeCount is the total number of edges.
	EdgeCount int

	// ExternalNodes is the number of synthetic external-package nodes.
	ExternalNodes int

	// DynamicEdges is the number of edges flagged IsDynamic.
	DynamicEdges int

	// EdgesByType maps each edge kind to the count of edges of that kind.
	EdgesByType map[facts.EdgeKind]int

	// State is the current graph state.
	State GraphState

	// BuiltAtMilli is when Freeze() was called (0 if not frozen).
	BuiltAtMilli int64
}

// Stats returns statistics about the graph.
func (g *Graph) Stats() GraphStats {
	stats := GraphStats{
		NodeCount:    len(g.nodes),
		EdgeCount:    len(g.edges),
		EdgesByType:  make(map[facts.EdgeKind]int),
		State:        g.state,
		BuiltAtMilli: g.BuiltAtMilli,
	}
	for i := range g.nodes {
		if g.nodes[i].Kind == NodeKindExternalPackage {
			stats.ExternalNodes++
		}
	}
	for i := range g.edges {
		stats.EdgesByType[g.edges[i].Type]++
		if g.edges[i].IsDynamic {
			stats.DynamicEdges++
		}
	}
	return stats
}
