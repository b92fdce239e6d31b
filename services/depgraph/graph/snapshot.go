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

	"github.com/AleutianAI/AleutianGraph/services/depgraph/facts"
)

// SnapshotVersion is bumped on incompatible snapshot layout changes.
const SnapshotVersion = 1

// SnapshotNode is the serialized form of a Node.
type SnapshotNode struct {
	ID           string   `json:"id"`
	Kind         NodeKind `json:"kind"`
	Exports      []string `json:"exports,omitempty"`
	Size         int      `json:"size,omitempty"`
	Complexity   float64  `json:"complexity,omitempty"`
	TestCoverage float64  `json:"test_coverage"`
}

// SnapshotEdge is the serialized form of an Edge. Endpoints are arena
// indexes into the snapshot's node list.
type SnapshotEdge struct {
	From      NodeIndex      `json:"from"`
	To        NodeIndex      `json:"to"`
	Type      facts.EdgeKind `json:"type"`
	Symbols   []string       `json:"symbols,omitempty"`
	IsDynamic bool           `json:"is_dynamic,omitempty"`
	Weight    float64        `json:"weight"`
}

// GraphSnapshot is the portable, JSON-serializable form of a frozen
// graph. Round-tripping through a snapshot reproduces an identical graph:
// same arena order, same adjacency, same statistics.
type GraphSnapshot struct {
	Version      int            `json:"version"`
	BuiltAtMilli int64          `json:"built_at_milli"`
	Nodes        []SnapshotNode `json:"nodes"`
	Edges        []SnapshotEdge `json:"edges"`
}

// Snapshot serializes a frozen graph.
//
// Errors:
//
//	ErrGraphBuilding - The graph is not frozen yet.
func (g *Graph) Snapshot() (*GraphSnapshot, error) {
	if !g.IsFrozen() {
		return nil, ErrGraphBuilding
	}
	snap := &GraphSnapshot{
		Version:      SnapshotVersion,
		BuiltAtMilli: g.BuiltAtMilli,
		Nodes:        make([]SnapshotNode, len(g.nodes)),
		Edges:        make([]SnapshotEdge, len(g.edges)),
	}
	for i := range g.nodes {
		n := &g.nodes[i]
		snap.Nodes[i] = SnapshotNode{
			ID:           n.ID,
			Kind:         n.Kind,
			Exports:      n.Exports,
			Size:         n.Size,
			Complexity:   n.Complexity,
			TestCoverage: n.TestCoverage,
		}
	}
	for i := range g.edges {
		e := &g.edges[i]
		snap.Edges[i] = SnapshotEdge{
			From:      e.From,
			To:        e.To,
			Type:      e.Type,
			Symbols:   e.Symbols,
			IsDynamic: e.IsDynamic,
			Weight:    e.Weight,
		}
	}
	return snap, nil
}

// FromSnapshot reconstructs a frozen graph from a snapshot.
//
// Description:
//
//	Replays the snapshot through the normal AddNode/AddEdge path so that
//	the id index, adjacency lists, and DYNAMIC sentinel position are
//	rebuilt rather than trusted, then freezes the graph and restores the
//	original build timestamp.
//
// Errors:
//
//	ErrSnapshotCorrupt - Version mismatch, duplicate node ids, or edge
//	endpoints out of range.
func FromSnapshot(snap *GraphSnapshot) (*Graph, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: nil snapshot", ErrSnapshotCorrupt)
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: version %d, want %d",
			ErrSnapshotCorrupt, snap.Version, SnapshotVersion)
	}

	g := NewGraph(
		WithMaxNodes(max(len(snap.Nodes), DefaultMaxNodes)),
		WithMaxEdges(max(len(snap.Edges), DefaultMaxEdges)),
	)
	for i := range snap.Nodes {
		sn := &snap.Nodes[i]
		if sn.Kind < NodeKindSourceFile || sn.Kind > NodeKindDynamicTarget {
			return nil, fmt.Errorf("%w: node %q has unknown kind %d",
				ErrSnapshotCorrupt, sn.ID, int(sn.Kind))
		}
		if _, err := g.AddNode(Node{
			ID:           sn.ID,
			Kind:         sn.Kind,
			Exports:      sn.Exports,
			Size:         sn.Size,
			Complexity:   sn.Complexity,
			TestCoverage: sn.TestCoverage,
		}); err != nil {
			return nil, fmt.Errorf("%w: node %d (%q): %v",
				ErrSnapshotCorrupt, i, sn.ID, err)
		}
	}
	for i := range snap.Edges {
		se := &snap.Edges[i]
		if err := g.AddEdge(Edge{
			From:      se.From,
			To:        se.To,
			Type:      se.Type,
			Symbols:   se.Symbols,
			IsDynamic: se.IsDynamic,
			Weight:    se.Weight,
		}); err != nil {
			return nil, fmt.Errorf("%w: edge %d: %v", ErrSnapshotCorrupt, i, err)
		}
	}

	g.Freeze()
	g.BuiltAtMilli = snap.BuiltAtMilli
	return g, nil
}
