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
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/AleutianAI/AleutianGraph/services/depgraph/facts"
)

func sampleStream() *facts.Stream {
	s := facts.NewStream()
	s.AddNode(facts.NodeFact{Path: "src/app/main.ts", Exports: []string{"main"}, Size: 120, TestCoverage: 80})
	s.AddNode(facts.NodeFact{Path: "src/app/util.ts", Exports: []string{"clamp", "lerp"}, Size: 40, TestCoverage: 95})
	s.AddNode(facts.NodeFact{Path: "src/core/engine.ts", Exports: []string{"Engine"}, Size: 300, TestCoverage: 60})
	s.AddEdge(facts.EdgeFact{From: "src/app/main.ts", Target: "./util", Kind: facts.EdgeKindImport, Symbols: []string{"clamp"}})
	s.AddEdge(facts.EdgeFact{From: "src/app/main.ts", Target: "../core/engine", Kind: facts.EdgeKindImport, Symbols: []string{"Engine"}})
	s.AddEdge(facts.EdgeFact{From: "src/core/engine.ts", Target: "lodash", Kind: facts.EdgeKindImport})
	return s
}

func mustBuild(t *testing.T, s *facts.Stream, opts ...BuilderOption) *BuildResult {
	t.Helper()
	result, err := NewBuilder(opts...).Build(context.Background(), s)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	return result
}

func TestBuilder_Build(t *testing.T) {
	result := mustBuild(t, sampleStream())
	g := result.Graph

	if !g.IsFrozen() {
		t.Fatal("graph should be frozen after build")
	}
	// 3 declared files + 1 external package for lodash.
	if got := g.NodeCount(); got != 4 {
		t.Errorf("NodeCount = %d, want 4", got)
	}
	if got := g.EdgeCount(); got != 3 {
		t.Errorf("EdgeCount = %d, want 3", got)
	}

	lodash, ok := g.NodeByID("lodash")
	if !ok {
		t.Fatal("external node lodash not materialized")
	}
	if lodash.Kind != NodeKindExternalPackage {
		t.Errorf("lodash kind = %v, want external-package", lodash.Kind)
	}
	if result.Stats.ExternalNodes != 1 {
		t.Errorf("ExternalNodes = %d, want 1", result.Stats.ExternalNodes)
	}
}

func TestBuilder_RelativeResolution(t *testing.T) {
	g := mustBuild(t, sampleStream()).Graph

	deps, err := g.DependenciesOf("src/app/main.ts")
	if err != nil {
		t.Fatalf("DependenciesOf: %v", err)
	}
	want := []string{"src/app/util.ts", "src/core/engine.ts"}
	if len(deps) != len(want) {
		t.Fatalf("deps = %v, want %v", deps, want)
	}
	for i := range want {
		if deps[i] != want[i] {
			t.Errorf("deps[%d] = %q, want %q", i, deps[i], want[i])
		}
	}
}

func TestBuilder_AliasTable(t *testing.T) {
	s := facts.NewStream()
	s.AddNode(facts.NodeFact{Path: "src/app/page.ts", TestCoverage: facts.CoverageUnknown})
	s.AddNode(facts.NodeFact{Path: "src/shared/api.ts", TestCoverage: facts.CoverageUnknown})
	s.AddEdge(facts.EdgeFact{From: "src/app/page.ts", Target: "@shared/api"})

	result := mustBuild(t, s, WithAliasTable(map[string]string{"@shared": "src/shared"}))
	g := result.Graph

	deps, err := g.DependenciesOf("src/app/page.ts")
	if err != nil {
		t.Fatalf("DependenciesOf: %v", err)
	}
	if len(deps) != 1 || deps[0] != "src/shared/api.ts" {
		t.Errorf("alias resolution produced %v, want [src/shared/api.ts]", deps)
	}
	if result.Stats.ExternalNodes != 0 {
		t.Errorf("alias target treated as external: %+v", result.Stats)
	}
}

func TestBuilder_DynamicSentinel(t *testing.T) {
	s := facts.NewStream()
	s.AddNode(facts.NodeFact{Path: "src/loader.js", TestCoverage: facts.CoverageUnknown})
	s.AddEdge(facts.EdgeFact{From: "src/loader.js", Target: "", Dynamic: true})
	s.AddEdge(facts.EdgeFact{From: "src/loader.js", Target: "", Dynamic: true})

	result := mustBuild(t, s)
	g := result.Graph

	idx := g.DynamicIndex()
	if idx < 0 {
		t.Fatal("DYNAMIC sentinel not materialized")
	}
	if got := g.NodeAt(idx).ID; got != DynamicNodeID {
		t.Errorf("sentinel id = %q, want %q", got, DynamicNodeID)
	}
	// Both edges share the one sentinel.
	if got := g.FanIn(idx); got != 2 {
		t.Errorf("sentinel fan-in = %d, want 2", got)
	}
	if result.Stats.DynamicEdges != 2 {
		t.Errorf("DynamicEdges = %d, want 2", result.Stats.DynamicEdges)
	}
}

func TestBuilder_MalformedFactsSkipped(t *testing.T) {
	s := facts.NewStream()
	s.AddNode(facts.NodeFact{Path: "ok.go", TestCoverage: facts.CoverageUnknown})
	s.AddNode(facts.NodeFact{Path: "../escape.go", TestCoverage: facts.CoverageUnknown})
	s.AddEdge(facts.EdgeFact{From: "ok.go", Target: "fmt"})
	s.AddEdge(facts.EdgeFact{From: "", Target: "fmt"})

	result := mustBuild(t, s)

	if result.Stats.SkippedFacts != 2 {
		t.Errorf("SkippedFacts = %d, want 2", result.Stats.SkippedFacts)
	}
	var errDiags int
	for _, d := range result.Diagnostics {
		if d.Severity == DiagError && d.Code == DiagCodeMalformedFact {
			errDiags++
		}
	}
	if errDiags != 2 {
		t.Errorf("malformed-fact diagnostics = %d, want 2", errDiags)
	}
	// The valid facts still made it in.
	if got := result.Graph.EdgeCount(); got != 1 {
		t.Errorf("EdgeCount = %d, want 1", got)
	}
}

func TestBuilder_DuplicateNodeMerged(t *testing.T) {
	s := facts.NewStream()
	s.AddNode(facts.NodeFact{Path: "a.py", Exports: []string{"f"}, Size: 10, TestCoverage: 50})
	s.AddNode(facts.NodeFact{Path: "a.py", Exports: []string{"f", "g"}, Size: 99, TestCoverage: 10})

	result := mustBuild(t, s)
	g := result.Graph

	if got := g.NodeCount(); got != 1 {
		t.Fatalf("NodeCount = %d, want 1", got)
	}
	node, _ := g.NodeByID("a.py")
	if !node.HasExport("f") || !node.HasExport("g") {
		t.Errorf("exports not unioned: %v", node.Exports)
	}
	// First occurrence wins for attributes.
	if node.Size != 10 {
		t.Errorf("Size = %d, want first occurrence's 10", node.Size)
	}
}

func TestBuilder_ImplicitNodeForUndeclaredSource(t *testing.T) {
	s := facts.NewStream()
	s.AddEdge(facts.EdgeFact{From: "ghost.ts", Target: "react"})

	result := mustBuild(t, s)
	g := result.Graph

	ghost, ok := g.NodeByID("ghost.ts")
	if !ok {
		t.Fatal("undeclared edge source was dropped, want implicit node")
	}
	if ghost.Kind != NodeKindSourceFile {
		t.Errorf("implicit node kind = %v, want source-file", ghost.Kind)
	}
	if ghost.TestCoverage != facts.CoverageUnknown {
		t.Errorf("implicit node coverage = %v, want unknown sentinel", ghost.TestCoverage)
	}
	var found bool
	for _, d := range result.Diagnostics {
		if d.Code == DiagCodeImplicitNode {
			found = true
		}
	}
	if !found {
		t.Error("missing implicit-node diagnostic")
	}
}

func TestBuilder_CaseInsensitiveAmbiguity(t *testing.T) {
	s := facts.NewStream()
	s.AddNode(facts.NodeFact{Path: "lib/Utils.ts", TestCoverage: facts.CoverageUnknown})
	s.AddNode(facts.NodeFact{Path: "lib/utils.ts", TestCoverage: facts.CoverageUnknown})
	s.AddNode(facts.NodeFact{Path: "lib/caller.ts", TestCoverage: facts.CoverageUnknown})
	s.AddEdge(facts.EdgeFact{From: "lib/caller.ts", Target: "./UTILS"})

	result := mustBuild(t, s)

	if result.Stats.AmbiguousResolutions != 1 {
		t.Fatalf("AmbiguousResolutions = %d, want 1", result.Stats.AmbiguousResolutions)
	}
	deps, err := result.Graph.DependenciesOf("lib/caller.ts")
	if err != nil {
		t.Fatalf("DependenciesOf: %v", err)
	}
	// Lexicographically smallest candidate wins.
	if len(deps) != 1 || deps[0] != "lib/Utils.ts" {
		t.Errorf("ambiguous resolution picked %v, want [lib/Utils.ts]", deps)
	}
}

func TestBuilder_Determinism(t *testing.T) {
	build := func() *GraphSnapshot {
		result := mustBuild(t, sampleStream(), WithBuilderWorkerCount(4))
		snap, err := result.Graph.Snapshot()
		if err != nil {
			t.Fatalf("Snapshot: %v", err)
		}
		snap.BuiltAtMilli = 0
		return snap
	}

	first := build()
	for i := 0; i < 5; i++ {
		again := build()
		if len(again.Nodes) != len(first.Nodes) || len(again.Edges) != len(first.Edges) {
			t.Fatalf("run %d produced different shape", i)
		}
		for j := range first.Nodes {
			if again.Nodes[j].ID != first.Nodes[j].ID {
				t.Fatalf("run %d node order diverged at %d: %q vs %q",
					i, j, again.Nodes[j].ID, first.Nodes[j].ID)
			}
		}
		for j := range first.Edges {
			if again.Edges[j].From != first.Edges[j].From || again.Edges[j].To != first.Edges[j].To {
				t.Fatalf("run %d edge order diverged at %d", i, j)
			}
		}
	}
}

// randomStream generates a fact stream with a mix of resolvable,
// unresolvable, external, and dynamic edge targets.
func randomStream(rng *rand.Rand) *facts.Stream {
	s := facts.NewStream()
	n := 5 + rng.Intn(40)
	paths := make([]string, n)
	for i := range paths {
		paths[i] = fmt.Sprintf("src/pkg%d/file_%02d.ts", rng.Intn(6), i)
		s.AddNode(facts.NodeFact{Path: paths[i], TestCoverage: facts.CoverageUnknown})
	}
	for i := 0; i < 3*n; i++ {
		ef := facts.EdgeFact{From: paths[rng.Intn(n)], Kind: facts.EdgeKindImport}
		switch rng.Intn(5) {
		case 0:
			// Declared file, project-root form.
			ef.Target = paths[rng.Intn(n)]
		case 1:
			// Sibling that may or may not exist.
			ef.Target = fmt.Sprintf("./file_%02d", rng.Intn(2*n))
		case 2:
			// Bare external package.
			ef.Target = fmt.Sprintf("pkg-%d", rng.Intn(4))
		case 3:
			// Unresolvable relative import.
			ef.Target = fmt.Sprintf("../gone/missing_%d", rng.Intn(8))
		case 4:
			// Computed dynamic import with no static target.
			ef.Target = ""
			ef.Dynamic = true
			ef.Kind = facts.EdgeKindDynamic
		}
		s.AddEdge(ef)
	}
	return s
}

func TestBuilder_RandomStreamsResolveEveryEdge(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 25; round++ {
		s := randomStream(rng)
		result := mustBuild(t, s)
		g := result.Graph

		if err := g.Validate(); err != nil {
			t.Fatalf("round %d: Validate: %v", round, err)
		}
		bound := NodeIndex(g.NodeCount())
		for ei, e := range g.Edges() {
			if e.From < 0 || e.From >= bound || e.To < 0 || e.To >= bound {
				t.Fatalf("round %d: edge %d has dangling endpoint (%d -> %d)",
					round, ei, e.From, e.To)
			}
		}
		// Unresolvable targets route to the DYNAMIC sentinel and bare
		// packages materialize external nodes, so no edge vanishes.
		if got := g.EdgeCount(); got != len(s.Edges) {
			t.Fatalf("round %d: EdgeCount = %d, want %d", round, got, len(s.Edges))
		}
	}
}

func TestBuilder_Timeout(t *testing.T) {
	s := facts.NewStream()
	for i := 0; i < 200_000; i++ {
		s.AddNode(facts.NodeFact{Path: fmt.Sprintf("gen/file_%06d.go", i), TestCoverage: facts.CoverageUnknown})
	}

	_, err := NewBuilder(WithBuildTimeout(time.Nanosecond)).Build(context.Background(), s)
	if !errors.Is(err, ErrBuildTimeout) {
		t.Fatalf("error = %v, want ErrBuildTimeout", err)
	}
}

func TestBuilder_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := NewBuilder().Build(ctx, sampleStream())
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if result != nil {
		t.Error("partial result should be discarded on cancellation")
	}
}

func TestEdgeWeight(t *testing.T) {
	cases := []struct {
		name    string
		kind    facts.EdgeKind
		symbols int
		dynamic bool
		want    float64
	}{
		{"namespace import", facts.EdgeKindImport, 0, false, 0.9},
		{"single symbol", facts.EdgeKindImport, 1, false, 0.4},
		{"symbol count capped", facts.EdgeKindImport, 40, false, 0.9},
		{"dynamic", facts.EdgeKindDynamic, 0, true, 0.5},
		{"inheritance floor", facts.EdgeKindInheritance, 1, false, 0.85},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := edgeWeight(tc.kind, tc.symbols, tc.dynamic)
			if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("edgeWeight = %v, want %v", got, tc.want)
			}
		})
	}
}
