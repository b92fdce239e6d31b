// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cycles

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/AleutianAI/AleutianGraph/services/depgraph/facts"
	"github.com/AleutianAI/AleutianGraph/services/depgraph/graph"
)

// buildGraph turns "a>b" edge specs into a frozen graph. Node ids get a
// ".go" suffix so they read like real paths.
func buildGraph(t *testing.T, edges ...string) *graph.Graph {
	t.Helper()
	s := facts.NewStream()
	seen := map[string]bool{}
	addNode := func(name string) {
		if !seen[name] {
			seen[name] = true
			s.AddNode(facts.NodeFact{Path: name + ".go", TestCoverage: facts.CoverageUnknown})
		}
	}
	for _, spec := range edges {
		var from, to string
		if _, err := fmt.Sscanf(spec, "%1s>%1s", &from, &to); err != nil {
			t.Fatalf("bad edge spec %q: %v", spec, err)
		}
		addNode(from)
		addNode(to)
		s.AddEdge(facts.EdgeFact{From: from + ".go", Target: "./" + to + ".go", Symbols: []string{"Sym"}})
	}
	result, err := graph.NewBuilder().Build(context.Background(), s)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return result.Graph
}

func mustDetect(t *testing.T, g *graph.Graph, opts ...DetectorOption) *Report {
	t.Helper()
	d, err := NewDetector(opts...)
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}
	report, err := d.Detect(context.Background(), g)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	return report
}

func TestDetect_NoCycles(t *testing.T) {
	g := buildGraph(t, "a>b", "b>c", "a>c")
	report := mustDetect(t, g)
	if len(report.Cycles) != 0 {
		t.Errorf("cycles = %v, want none", report.Cycles)
	}
	if report.NodesScanned != 3 {
		t.Errorf("NodesScanned = %d, want 3", report.NodesScanned)
	}
}

func TestDetect_SimpleCycle(t *testing.T) {
	g := buildGraph(t, "a>b", "b>a")
	report := mustDetect(t, g)

	if len(report.Cycles) != 1 {
		t.Fatalf("cycles = %d, want 1", len(report.Cycles))
	}
	c := report.Cycles[0]
	if !reflect.DeepEqual(c.Nodes, []string{"a.go", "b.go"}) {
		t.Errorf("nodes = %v", c.Nodes)
	}
	if c.Severity != SeverityLow {
		t.Errorf("severity = %s, want low", c.Severity)
	}
}

func TestDetect_RotationDeduped(t *testing.T) {
	// Same 3-cycle is discoverable from each of its nodes; the report
	// must carry it once, smallest id first.
	g := buildGraph(t, "b>c", "c>a", "a>b")
	report := mustDetect(t, g)

	if len(report.Cycles) != 1 {
		t.Fatalf("cycles = %d, want 1", len(report.Cycles))
	}
	if !reflect.DeepEqual(report.Cycles[0].Nodes, []string{"a.go", "b.go", "c.go"}) {
		t.Errorf("nodes = %v", report.Cycles[0].Nodes)
	}
}

func TestDetect_SeverityLadder(t *testing.T) {
	t.Run("medium above three", func(t *testing.T) {
		g := buildGraph(t, "a>b", "b>c", "c>d", "d>a")
		report := mustDetect(t, g)
		if len(report.Cycles) != 1 || report.Cycles[0].Severity != SeverityMedium {
			t.Errorf("report = %+v, want one medium cycle", report.Cycles)
		}
	})

	t.Run("high above five", func(t *testing.T) {
		g := buildGraph(t, "a>b", "b>c", "c>d", "d>e", "e>f", "f>a")
		report := mustDetect(t, g)
		if len(report.Cycles) != 1 || report.Cycles[0].Severity != SeverityHigh {
			t.Errorf("report = %+v, want one high cycle", report.Cycles)
		}
	})

	t.Run("core path forces high", func(t *testing.T) {
		g := buildGraph(t, "a>b", "b>a")
		report := mustDetect(t, g, WithCorePathPatterns([]string{`^a\.go$`}))
		if len(report.Cycles) != 1 || report.Cycles[0].Severity != SeverityHigh {
			t.Errorf("report = %+v, want one high cycle", report.Cycles)
		}
	})
}

func TestDetect_BreakSuggestion(t *testing.T) {
	s := facts.NewStream()
	for _, p := range []string{"a.go", "b.go"} {
		s.AddNode(facts.NodeFact{Path: p, TestCoverage: facts.CoverageUnknown})
	}
	// a>b carries one symbol (weight 0.4); b>a is a namespace import
	// (weight 0.9). The suggestion must target a>b.
	s.AddEdge(facts.EdgeFact{From: "a.go", Target: "./b.go", Symbols: []string{"Thing"}})
	s.AddEdge(facts.EdgeFact{From: "b.go", Target: "./a.go"})
	result, err := graph.NewBuilder().Build(context.Background(), s)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	report := mustDetect(t, result.Graph)
	if len(report.Cycles) != 1 {
		t.Fatalf("cycles = %d, want 1", len(report.Cycles))
	}
	br := report.Cycles[0].Break
	if br.From != "a.go" || br.To != "b.go" {
		t.Errorf("break edge = %s -> %s, want a.go -> b.go", br.From, br.To)
	}
	if br.Strategy != StrategyDependencyInjection {
		t.Errorf("strategy = %s, want dependency-injection", br.Strategy)
	}
}

func TestDetect_StrategyShapes(t *testing.T) {
	cases := []struct {
		name    string
		kind    facts.EdgeKind
		symbols []string
		want    string
	}{
		{"type reference", facts.EdgeKindTypeReference, []string{"A", "B", "C"}, StrategyExtractSharedTypes},
		{"few symbols", facts.EdgeKindImport, []string{"A", "B"}, StrategyDependencyInjection},
		{"namespace", facts.EdgeKindImport, nil, StrategyExtractSharedModule},
		{"many symbols", facts.EdgeKindImport, []string{"A", "B", "C", "D"}, StrategyExtractSharedModule},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := &graph.Edge{Type: tc.kind, Symbols: tc.symbols}
			if got := strategyFor(e); got != tc.want {
				t.Errorf("strategyFor = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestDetect_MaxCycles(t *testing.T) {
	// Three independent 2-cycles, limit 2.
	g := buildGraph(t, "a>b", "b>a", "c>d", "d>c", "e>f", "f>e")
	report := mustDetect(t, g, WithMaxCycles(2))
	if len(report.Cycles) != 2 {
		t.Errorf("cycles = %d, want 2", len(report.Cycles))
	}
	if !report.Truncated {
		t.Error("report should be marked truncated")
	}
}

func TestDetect_Errors(t *testing.T) {
	t.Run("building graph", func(t *testing.T) {
		d, _ := NewDetector()
		_, err := d.Detect(context.Background(), graph.NewGraph())
		if !errors.Is(err, ErrGraphNotReady) {
			t.Errorf("error = %v, want ErrGraphNotReady", err)
		}
	})

	t.Run("bad pattern", func(t *testing.T) {
		_, err := NewDetector(WithCorePathPatterns([]string{"("}))
		if !errors.Is(err, ErrInvalidPattern) {
			t.Errorf("error = %v, want ErrInvalidPattern", err)
		}
	})
}

func TestDetect_Deterministic(t *testing.T) {
	first := mustDetect(t, buildGraph(t, "a>b", "b>a", "b>c", "c>b", "c>a", "a>c"))
	for i := 0; i < 5; i++ {
		again := mustDetect(t, buildGraph(t, "a>b", "b>a", "b>c", "c>b", "c>a", "a>c"))
		if !reflect.DeepEqual(first.Cycles, again.Cycles) {
			t.Fatalf("run %d diverged:\n%v\nvs\n%v", i, first.Cycles, again.Cycles)
		}
	}
}
