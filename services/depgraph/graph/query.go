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
	"container/heap"
	"context"
	"fmt"
	"sort"
)

// TraversalOptions configures transitive traversals.
type TraversalOptions struct {
	// MaxDepth bounds the traversal. Zero or negative means unbounded.
	MaxDepth int

	// Reverse walks incoming edges (dependents) instead of outgoing
	// edges (dependencies).
	Reverse bool
}

// TraversalOption is a functional option for traversal queries.
type TraversalOption func(*TraversalOptions)

// WithMaxDepth bounds the traversal depth. Depth 1 is the direct
// neighbors of the start node.
func WithMaxDepth(depth int) TraversalOption {
	return func(o *TraversalOptions) {
		o.MaxDepth = depth
	}
}

// WithReverse walks edges against their direction, yielding dependents
// rather than dependencies.
func WithReverse() TraversalOption {
	return func(o *TraversalOptions) {
		o.Reverse = true
	}
}

// TraversalResult holds the outcome of a transitive traversal.
type TraversalResult struct {
	// Nodes are the reached node ids in deterministic (BFS layer, then
	// lexicographic) order. The start node is not included.
	Nodes []string `json:"nodes"`

	// Depths maps each reached id to the shortest hop distance from the
	// start node.
	Depths map[string]int `json:"depths"`

	// Truncated reports whether MaxDepth cut the traversal short, i.e.
	// at least one frontier node still had unvisited neighbors.
	Truncated bool `json:"truncated"`
}

// DependenciesOf returns the ids of the direct dependencies of the given
// node, sorted lexicographically.
//
// Errors:
//
//	ErrGraphBuilding - The graph is not frozen yet.
//	ErrUnknownNode - No node has the given id.
func (g *Graph) DependenciesOf(id string) ([]string, error) {
	return g.neighbors(id, false)
}

// DependentsOf returns the ids of the direct dependents of the given
// node, sorted lexicographically.
//
// Errors:
//
//	ErrGraphBuilding - The graph is not frozen yet.
//	ErrUnknownNode - No node has the given id.
func (g *Graph) DependentsOf(id string) ([]string, error) {
	return g.neighbors(id, true)
}

func (g *Graph) neighbors(id string, reverse bool) ([]string, error) {
	if !g.IsFrozen() {
		return nil, ErrGraphBuilding
	}
	idx, ok := g.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNode, id)
	}

	edgeIdxs := g.Outgoing(idx)
	if reverse {
		edgeIdxs = g.Incoming(idx)
	}

	seen := make(map[NodeIndex]bool, len(edgeIdxs))
	out := make([]string, 0, len(edgeIdxs))
	for _, ei := range edgeIdxs {
		e := g.EdgeAt(ei)
		other := e.To
		if reverse {
			other = e.From
		}
		if seen[other] {
			continue
		}
		seen[other] = true
		out = append(out, g.NodeAt(other).ID)
	}
	sort.Strings(out)
	return out, nil
}

// TransitiveClosure walks the graph from the given node and returns every
// reachable node within the depth bound.
//
// Description:
//
//	Breadth-first so that Depths holds shortest hop distances. Within
//	each BFS layer nodes are visited in lexicographic id order, making
//	the output order reproducible for identical input. Cycles are safe:
//	a visited set guarantees each node is reported once.
//
// Inputs:
//
//	ctx - Context for cancellation, checked once per BFS layer.
//	id - The start node id.
//	opts - WithMaxDepth, WithReverse.
//
// Errors:
//
//	ErrGraphBuilding - The graph is not frozen yet.
//	ErrUnknownNode - No node has the given id.
func (g *Graph) TransitiveClosure(ctx context.Context, id string, opts ...TraversalOption) (*TraversalResult, error) {
	if !g.IsFrozen() {
		return nil, ErrGraphBuilding
	}
	start, ok := g.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNode, id)
	}

	var options TraversalOptions
	for _, opt := range opts {
		opt(&options)
	}

	result := &TraversalResult{Depths: make(map[string]int)}
	visited := make(map[NodeIndex]bool)
	visited[start] = true

	frontier := []NodeIndex{start}
	depth := 0

	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if options.MaxDepth > 0 && depth >= options.MaxDepth {
			// Anything still reachable beyond the bound?
			for _, idx := range frontier {
				for _, other := range g.step(idx, options.Reverse) {
					if !visited[other] {
						result.Truncated = true
						break
					}
				}
				if result.Truncated {
					break
				}
			}
			break
		}
		depth++

		var next []NodeIndex
		layerSeen := make(map[NodeIndex]bool)
		for _, idx := range frontier {
			for _, other := range g.step(idx, options.Reverse) {
				if visited[other] || layerSeen[other] {
					continue
				}
				layerSeen[other] = true
				next = append(next, other)
			}
		}

		sort.Slice(next, func(i, j int) bool {
			return g.NodeAt(next[i]).ID < g.NodeAt(next[j]).ID
		})
		for _, idx := range next {
			visited[idx] = true
			nodeID := g.NodeAt(idx).ID
			result.Nodes = append(result.Nodes, nodeID)
			result.Depths[nodeID] = depth
		}
		frontier = next
	}

	return result, nil
}

// step returns the deduplicated neighbor indexes of a node in the chosen
// direction, ordered by edge insertion.
func (g *Graph) step(idx NodeIndex, reverse bool) []NodeIndex {
	edgeIdxs := g.Outgoing(idx)
	if reverse {
		edgeIdxs = g.Incoming(idx)
	}
	out := make([]NodeIndex, 0, len(edgeIdxs))
	seen := make(map[NodeIndex]bool, len(edgeIdxs))
	for _, ei := range edgeIdxs {
		e := g.EdgeAt(ei)
		other := e.To
		if reverse {
			other = e.From
		}
		if !seen[other] {
			seen[other] = true
			out = append(out, other)
		}
	}
	return out
}

// idHeap is a min-heap of node indexes ordered by node id, used to make
// topological ordering deterministic among interchangeable nodes.
type idHeap struct {
	g    *Graph
	idxs []NodeIndex
}

func (h *idHeap) Len() int { return len(h.idxs) }
func (h *idHeap) Less(i, j int) bool {
	return h.g.NodeAt(h.idxs[i]).ID < h.g.NodeAt(h.idxs[j]).ID
}
func (h *idHeap) Swap(i, j int) { h.idxs[i], h.idxs[j] = h.idxs[j], h.idxs[i] }
func (h *idHeap) Push(x any)    { h.idxs = append(h.idxs, x.(NodeIndex)) }
func (h *idHeap) Pop() any {
	old := h.idxs
	n := len(old)
	x := old[n-1]
	h.idxs = old[:n-1]
	return x
}

// TopologicalOrder returns every node id ordered so that each edge's
// source appears before its target: a file always precedes the files it
// depends on.
//
// Description:
//
//	Kahn's algorithm over incoming-edge counts, draining a min-heap
//	keyed on node id so that nodes with no ordering constraint between
//	them always appear in lexicographic order. Self-edges count as
//	cycles.
//
// Errors:
//
//	ErrGraphBuilding - The graph is not frozen yet.
//	ErrCyclicGraph - At least one cycle prevents a total order.
func (g *Graph) TopologicalOrder() ([]string, error) {
	if !g.IsFrozen() {
		return nil, ErrGraphBuilding
	}

	n := g.NodeCount()
	// remaining[i] counts the unemitted nodes that depend on node i.
	remaining := make([]int, n)
	for _, e := range g.Edges() {
		remaining[e.To]++
	}

	h := &idHeap{g: g}
	for i := 0; i < n; i++ {
		if remaining[i] == 0 {
			h.idxs = append(h.idxs, NodeIndex(i))
		}
	}
	heap.Init(h)

	order := make([]string, 0, n)
	for h.Len() > 0 {
		idx := heap.Pop(h).(NodeIndex)
		order = append(order, g.NodeAt(idx).ID)
		for _, ei := range g.Outgoing(idx) {
			e := g.EdgeAt(ei)
			remaining[e.To]--
			if remaining[e.To] == 0 {
				heap.Push(h, e.To)
			}
		}
	}

	if len(order) != n {
		return nil, fmt.Errorf("%w: %d of %d nodes are on cycles",
			ErrCyclicGraph, n-len(order), n)
	}
	return order, nil
}

// Validate checks internal consistency of a frozen graph: every edge
// endpoint in range, the id index bijective with the node arena, and the
// adjacency lists consistent with the edge list.
func (g *Graph) Validate() error {
	if !g.IsFrozen() {
		return ErrGraphBuilding
	}
	n := NodeIndex(g.NodeCount())
	for ei, e := range g.Edges() {
		if e.From < 0 || e.From >= n || e.To < 0 || e.To >= n {
			return fmt.Errorf("%w: edge %d endpoints (%d -> %d) out of range",
				ErrInvalidEdge, ei, e.From, e.To)
		}
	}
	for idx, node := range g.Nodes() {
		got, ok := g.Lookup(node.ID)
		if !ok || got != idx {
			return fmt.Errorf("%w: index entry for %q points at %d, arena has it at %d",
				ErrSnapshotCorrupt, node.ID, got, idx)
		}
	}
	return nil
}
