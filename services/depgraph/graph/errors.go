// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph provides the dependency graph built from a fact stream.
//
// Nodes are source files, external packages, or the DYNAMIC sentinel; edges
// are directed, typed relationships optionally scoped to specific symbols.
// Storage is arena-indexed: node index is a stable small integer assigned at
// build time, with the id string kept in a side lookup table, so the frozen
// graph is flat arrays with O(1) index-based adjacency lookup.
//
// # Thread Safety
//
// A Graph is NOT safe for concurrent use while building. After Freeze() it
// is read-only and may be queried from any number of goroutines without
// synchronization; this read-only-after-build invariant is the core safety
// property of the whole subsystem. A graph is never patched in place — it is
// discarded and rebuilt wholesale on the next analysis request.
//
// # Lifecycle
//
//  1. Create with NewGraph()
//  2. Populate with AddNode() and AddEdge() (normally via Builder)
//  3. Call Freeze() to finalize
//  4. Query with DependenciesOf(), TransitiveClosure(), etc.
package graph

import "errors"

// Sentinel errors for graph operations.
var (
	// ErrGraphFrozen is returned when attempting to modify a frozen graph.
	// Once Freeze() is called, the graph becomes read-only and no further
	// nodes or edges can be added.
	ErrGraphFrozen = errors.New("graph is frozen and cannot be modified")

	// ErrGraphBuilding is returned when querying a graph that has not been
	// frozen yet. Queries on a mutable graph would race with the builder.
	ErrGraphBuilding = errors.New("graph is still building")

	// ErrUnknownNode is returned when a query or change references a node
	// id not present in the graph snapshot. Fatal only for the single item
	// that referenced it; other items in a batch are still processed.
	ErrUnknownNode = errors.New("unknown node")

	// ErrCyclicGraph is returned by TopologicalOrder when the graph
	// contains at least one cycle. Callers needing cycle tolerance must
	// run cycle detection first and exclude the reported cycles.
	ErrCyclicGraph = errors.New("graph contains a cycle")

	// ErrDuplicateNode is returned when adding a node with an id that
	// already exists in the graph.
	ErrDuplicateNode = errors.New("duplicate node id")

	// ErrInvalidEdge is returned when an edge references a node index
	// outside the arena.
	ErrInvalidEdge = errors.New("edge references node outside graph")

	// ErrMaxNodesExceeded is returned when the graph has reached its
	// configured maximum node capacity.
	ErrMaxNodesExceeded = errors.New("maximum node count exceeded")

	// ErrMaxEdgesExceeded is returned when the graph has reached its
	// configured maximum edge capacity.
	ErrMaxEdgesExceeded = errors.New("maximum edge count exceeded")

	// ErrBuildTimeout is returned when a build exceeds its configured
	// deadline. The partially-built graph is discarded, never returned: a
	// graph that silently omits edges is worse than no graph at all for
	// impact-analysis correctness.
	ErrBuildTimeout = errors.New("graph build timed out")

	// ErrSnapshotCorrupt is returned when a serialized graph cannot be
	// decoded back into a consistent snapshot.
	ErrSnapshotCorrupt = errors.New("graph snapshot is corrupt")
)
