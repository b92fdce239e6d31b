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
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/AleutianAI/AleutianGraph/services/depgraph/facts"
)

// chainGraph builds a.go -> b.go -> c.go -> d.go plus x.go -> b.go.
func chainGraph(t *testing.T) *Graph {
	t.Helper()
	s := facts.NewStream()
	for _, p := range []string{"a.go", "b.go", "c.go", "d.go", "x.go"} {
		s.AddNode(facts.NodeFact{Path: p, TestCoverage: facts.CoverageUnknown})
	}
	s.AddEdge(facts.EdgeFact{From: "a.go", Target: "./b.go"})
	s.AddEdge(facts.EdgeFact{From: "b.go", Target: "./c.go"})
	s.AddEdge(facts.EdgeFact{From: "c.go", Target: "./d.go"})
	s.AddEdge(facts.EdgeFact{From: "x.go", Target: "./b.go"})
	return mustBuild(t, s).Graph
}

func TestQuery_UnfrozenGraph(t *testing.T) {
	g := NewGraph()
	if _, err := g.DependenciesOf("a.go"); !errors.Is(err, ErrGraphBuilding) {
		t.Errorf("DependenciesOf on building graph: %v, want ErrGraphBuilding", err)
	}
	if _, err := g.TopologicalOrder(); !errors.Is(err, ErrGraphBuilding) {
		t.Errorf("TopologicalOrder on building graph: %v, want ErrGraphBuilding", err)
	}
}

func TestQuery_UnknownNode(t *testing.T) {
	g := chainGraph(t)
	_, err := g.DependentsOf("missing.go")
	if !errors.Is(err, ErrUnknownNode) {
		t.Errorf("error = %v, want ErrUnknownNode", err)
	}
}

func TestQuery_DirectNeighbors(t *testing.T) {
	g := chainGraph(t)

	deps, err := g.DependenciesOf("b.go")
	if err != nil {
		t.Fatalf("DependenciesOf: %v", err)
	}
	if !reflect.DeepEqual(deps, []string{"c.go"}) {
		t.Errorf("dependencies of b.go = %v", deps)
	}

	dependents, err := g.DependentsOf("b.go")
	if err != nil {
		t.Fatalf("DependentsOf: %v", err)
	}
	if !reflect.DeepEqual(dependents, []string{"a.go", "x.go"}) {
		t.Errorf("dependents of b.go = %v", dependents)
	}
}

func TestTransitiveClosure(t *testing.T) {
	g := chainGraph(t)

	t.Run("unbounded forward", func(t *testing.T) {
		res, err := g.TransitiveClosure(context.Background(), "a.go")
		if err != nil {
			t.Fatalf("TransitiveClosure: %v", err)
		}
		if !reflect.DeepEqual(res.Nodes, []string{"b.go", "c.go", "d.go"}) {
			t.Errorf("nodes = %v", res.Nodes)
		}
		if res.Depths["d.go"] != 3 {
			t.Errorf("depth of d.go = %d, want 3", res.Depths["d.go"])
		}
		if res.Truncated {
			t.Error("unbounded traversal reported truncated")
		}
	})

	t.Run("depth bounded", func(t *testing.T) {
		res, err := g.TransitiveClosure(context.Background(), "a.go", WithMaxDepth(2))
		if err != nil {
			t.Fatalf("TransitiveClosure: %v", err)
		}
		if !reflect.DeepEqual(res.Nodes, []string{"b.go", "c.go"}) {
			t.Errorf("nodes = %v", res.Nodes)
		}
		if !res.Truncated {
			t.Error("bounded traversal with remaining nodes should report truncated")
		}
	})

	t.Run("reverse", func(t *testing.T) {
		res, err := g.TransitiveClosure(context.Background(), "d.go", WithReverse())
		if err != nil {
			t.Fatalf("TransitiveClosure: %v", err)
		}
		if !reflect.DeepEqual(res.Nodes, []string{"c.go", "b.go", "a.go", "x.go"}) {
			t.Errorf("reverse nodes = %v", res.Nodes)
		}
	})

	t.Run("cycle terminates", func(t *testing.T) {
		s := facts.NewStream()
		s.AddNode(facts.NodeFact{Path: "p.go", TestCoverage: facts.CoverageUnknown})
		s.AddNode(facts.NodeFact{Path: "q.go", TestCoverage: facts.CoverageUnknown})
		s.AddEdge(facts.EdgeFact{From: "p.go", Target: "./q.go"})
		s.AddEdge(facts.EdgeFact{From: "q.go", Target: "./p.go"})
		cg := mustBuild(t, s).Graph

		res, err := cg.TransitiveClosure(context.Background(), "p.go")
		if err != nil {
			t.Fatalf("TransitiveClosure: %v", err)
		}
		// q once, and never back around to the start node.
		if !reflect.DeepEqual(res.Nodes, []string{"q.go"}) {
			t.Errorf("nodes = %v", res.Nodes)
		}
	})
}

func TestTopologicalOrder(t *testing.T) {
	t.Run("edge source precedes target", func(t *testing.T) {
		g := chainGraph(t)
		order, err := g.TopologicalOrder()
		if err != nil {
			t.Fatalf("TopologicalOrder: %v", err)
		}
		pos := make(map[string]int, len(order))
		for i, id := range order {
			pos[id] = i
		}
		for _, e := range g.Edges() {
			from := g.NodeAt(e.From).ID
			to := g.NodeAt(e.To).ID
			if pos[from] > pos[to] {
				t.Errorf("%s must precede %s in %v", from, to, order)
			}
		}
		// Concretely: importers come first, shared dependencies later.
		for _, pair := range [][2]string{{"a.go", "b.go"}, {"x.go", "b.go"}, {"b.go", "c.go"}, {"c.go", "d.go"}} {
			if pos[pair[0]] > pos[pair[1]] {
				t.Errorf("%s must precede %s in %v", pair[0], pair[1], order)
			}
		}
	})

	t.Run("ties break lexicographically", func(t *testing.T) {
		s := facts.NewStream()
		for _, p := range []string{"z.go", "m.go", "a.go"} {
			s.AddNode(facts.NodeFact{Path: p, TestCoverage: facts.CoverageUnknown})
		}
		g := mustBuild(t, s).Graph
		order, err := g.TopologicalOrder()
		if err != nil {
			t.Fatalf("TopologicalOrder: %v", err)
		}
		if !reflect.DeepEqual(order, []string{"a.go", "m.go", "z.go"}) {
			t.Errorf("order = %v", order)
		}
	})

	t.Run("cycle rejected", func(t *testing.T) {
		s := facts.NewStream()
		s.AddNode(facts.NodeFact{Path: "p.go", TestCoverage: facts.CoverageUnknown})
		s.AddNode(facts.NodeFact{Path: "q.go", TestCoverage: facts.CoverageUnknown})
		s.AddEdge(facts.EdgeFact{From: "p.go", Target: "./q.go"})
		s.AddEdge(facts.EdgeFact{From: "q.go", Target: "./p.go"})
		g := mustBuild(t, s).Graph

		_, err := g.TopologicalOrder()
		if !errors.Is(err, ErrCyclicGraph) {
			t.Errorf("error = %v, want ErrCyclicGraph", err)
		}
	})
}

func TestSnapshotRoundTrip(t *testing.T) {
	g := mustBuild(t, sampleStream()).Graph

	snap, err := g.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	restored, err := FromSnapshot(snap)
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}

	if restored.NodeCount() != g.NodeCount() || restored.EdgeCount() != g.EdgeCount() {
		t.Fatalf("restored shape %d/%d, want %d/%d",
			restored.NodeCount(), restored.EdgeCount(), g.NodeCount(), g.EdgeCount())
	}
	if restored.BuiltAtMilli != g.BuiltAtMilli {
		t.Errorf("BuiltAtMilli = %d, want %d", restored.BuiltAtMilli, g.BuiltAtMilli)
	}
	if err := restored.Validate(); err != nil {
		t.Errorf("restored graph failed validation: %v", err)
	}

	gOrder, _ := g.TopologicalOrder()
	rOrder, rErr := restored.TopologicalOrder()
	if rErr != nil {
		t.Fatalf("restored TopologicalOrder: %v", rErr)
	}
	if !reflect.DeepEqual(gOrder, rOrder) {
		t.Errorf("orders diverge: %v vs %v", gOrder, rOrder)
	}
}

func TestFromSnapshot_Corrupt(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		if _, err := FromSnapshot(nil); !errors.Is(err, ErrSnapshotCorrupt) {
			t.Errorf("error = %v, want ErrSnapshotCorrupt", err)
		}
	})

	t.Run("bad version", func(t *testing.T) {
		_, err := FromSnapshot(&GraphSnapshot{Version: 99})
		if !errors.Is(err, ErrSnapshotCorrupt) {
			t.Errorf("error = %v, want ErrSnapshotCorrupt", err)
		}
	})

	t.Run("edge out of range", func(t *testing.T) {
		snap := &GraphSnapshot{
			Version: SnapshotVersion,
			Nodes:   []SnapshotNode{{ID: "a.go", Kind: NodeKindSourceFile}},
			Edges:   []SnapshotEdge{{From: 0, To: 7, Type: facts.EdgeKindImport}},
		}
		if _, err := FromSnapshot(snap); !errors.Is(err, ErrSnapshotCorrupt) {
			t.Errorf("error = %v, want ErrSnapshotCorrupt", err)
		}
	})
}
