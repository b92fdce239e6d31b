// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package impact

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/AleutianAI/AleutianGraph/services/depgraph/facts"
	"github.com/AleutianAI/AleutianGraph/services/depgraph/graph"
)

const (
	// DefaultMaxTransitiveDepth bounds the reverse walk from the directly
	// affected set.
	DefaultMaxTransitiveDepth = 3

	// DefaultCriticalPathFanIn is the dependent count above which a node
	// counts as critical path.
	DefaultCriticalPathFanIn = 20
)

// TestAssociator maps affected node ids to associated test file ids. The
// naming/co-location convention is a caller concern; the analyzer only
// exposes the hook.
type TestAssociator func(g *graph.Graph, affected []string) []string

// AnalyzerOptions configures impact analysis.
type AnalyzerOptions struct {
	// MaxTransitiveDepth bounds the reverse walk.
	// Default: DefaultMaxTransitiveDepth
	MaxTransitiveDepth int

	// CriticalPathFanIn is the fan-in threshold above which a changed
	// node contributes the critical-path risk factor.
	// Default: DefaultCriticalPathFanIn
	CriticalPathFanIn int

	// Associator maps affected nodes to test files.
	// Default: DefaultTestAssociator
	Associator TestAssociator
}

// AnalyzerOption is a functional option for configuring Analyzer.
type AnalyzerOption func(*AnalyzerOptions)

// WithMaxTransitiveDepth bounds the reverse walk depth.
func WithMaxTransitiveDepth(depth int) AnalyzerOption {
	return func(o *AnalyzerOptions) {
		o.MaxTransitiveDepth = depth
	}
}

// WithCriticalPathFanIn sets the critical-path fan-in threshold.
func WithCriticalPathFanIn(threshold int) AnalyzerOption {
	return func(o *AnalyzerOptions) {
		o.CriticalPathFanIn = threshold
	}
}

// WithTestAssociator replaces the test association convention.
func WithTestAssociator(fn TestAssociator) AnalyzerOption {
	return func(o *AnalyzerOptions) {
		o.Associator = fn
	}
}

// Analyzer computes blast radius and risk. Read-only over the graph, safe
// to run concurrently with other consumers of the same snapshot.
type Analyzer struct {
	options AnalyzerOptions
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(opts ...AnalyzerOption) *Analyzer {
	options := AnalyzerOptions{
		MaxTransitiveDepth: DefaultMaxTransitiveDepth,
		CriticalPathFanIn:  DefaultCriticalPathFanIn,
		Associator:         DefaultTestAssociator,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.MaxTransitiveDepth <= 0 {
		options.MaxTransitiveDepth = DefaultMaxTransitiveDepth
	}
	if options.CriticalPathFanIn <= 0 {
		options.CriticalPathFanIn = DefaultCriticalPathFanIn
	}
	if options.Associator == nil {
		options.Associator = DefaultTestAssociator
	}
	return &Analyzer{options: options}
}

// Analyze computes the blast radius and risk of a change batch.
//
// Description:
//
//	Each change file joins the directly affected set together with the
//	source of every affected incoming edge: a whole-namespace edge is
//	always affected, a symbol-scoped one only when its symbols intersect
//	the change's modified exports (an empty modified-export set counts
//	as a whole-namespace change). A bounded reverse breadth-first walk
//	seeded from those affected dependents fills the transitively affected set;
//	the two sets stay disjoint. Risk is an additive, capped ladder with
//	every factor retained verbatim.
//
//	Changes naming unknown files are reported in Skipped and the rest of
//	the batch proceeds.
//
// Errors:
//
//	ErrGraphNotReady - The graph is still building.
func (a *Analyzer) Analyze(ctx context.Context, g *graph.Graph, changes []Change) (*ImpactAnalysis, error) {
	if !g.IsFrozen() {
		return nil, ErrGraphNotReady
	}

	ctx, span := startAnalyzeSpan(ctx, len(changes))
	defer span.End()
	start := time.Now()

	analysis := &ImpactAnalysis{
		DirectlyAffected:     []string{},
		TransitivelyAffected: []string{},
		TestFilesAffected:    []string{},
		Recommendations:      []string{},
		Risk:                 RiskScore{Level: RiskLow, Factors: []string{}},
	}

	valid := make([]Change, 0, len(changes))
	for _, ch := range changes {
		if _, ok := g.Lookup(ch.File); !ok {
			analysis.Skipped = append(analysis.Skipped, ChangeError{
				Change: ch,
				Reason: fmt.Sprintf("%v: %q", ErrUnknownNode, ch.File),
			})
			continue
		}
		valid = append(valid, ch)
	}
	if len(valid) == 0 {
		recordAnalyzeMetrics(ctx, time.Since(start), 0, 0)
		return analysis, nil
	}

	direct, seeds := a.collectDirect(g, valid)
	transitive := a.collectTransitive(ctx, g, direct, seeds)

	analysis.DirectlyAffected = sortedIDs(g, direct)
	analysis.TransitivelyAffected = sortedIDs(g, transitive)
	analysis.TestFilesAffected = a.associateTests(g, analysis.DirectlyAffected, analysis.TransitivelyAffected)
	a.score(g, valid, analysis)

	recordAnalyzeMetrics(ctx, time.Since(start),
		len(analysis.DirectlyAffected)+len(analysis.TransitivelyAffected),
		analysis.Risk.Score)
	return analysis, nil
}

// collectDirect gathers change files plus the sources of affected
// incoming edges. The second set holds only those affected-edge sources:
// they are the legitimate seeds for the transitive walk, since a
// dependent whose edge missed every modified export must not drag its
// own dependents in.
func (a *Analyzer) collectDirect(g *graph.Graph, changes []Change) (direct, seeds map[graph.NodeIndex]bool) {
	direct = make(map[graph.NodeIndex]bool)
	seeds = make(map[graph.NodeIndex]bool)
	for _, ch := range changes {
		idx, _ := g.Lookup(ch.File)
		direct[idx] = true
		for _, ei := range g.Incoming(idx) {
			e := g.EdgeAt(ei)
			if edgeAffected(e, ch.ModifiedExports) {
				direct[e.From] = true
				seeds[e.From] = true
			}
		}
	}
	return direct, seeds
}

// edgeAffected reports whether a dependency edge is hit by the modified
// export set. Whole-namespace edges always are.
func edgeAffected(e *graph.Edge, modified []string) bool {
	if len(e.Symbols) == 0 || len(modified) == 0 {
		return true
	}
	for _, s := range e.Symbols {
		for _, m := range modified {
			if s == m {
				return true
			}
		}
	}
	return false
}

// collectTransitive walks incoming edges from the affected-edge sources
// up to the configured depth, excluding direct members to keep the sets
// disjoint. Change files themselves never seed the walk: their dependents
// only count when the connecting edge intersected the modified exports,
// and those dependents are already in seeds.
func (a *Analyzer) collectTransitive(ctx context.Context, g *graph.Graph, direct, seeds map[graph.NodeIndex]bool) map[graph.NodeIndex]bool {
	transitive := make(map[graph.NodeIndex]bool)
	frontier := make([]graph.NodeIndex, 0, len(seeds))
	for idx := range seeds {
		frontier = append(frontier, idx)
	}

	for depth := 0; depth < a.options.MaxTransitiveDepth && len(frontier) > 0; depth++ {
		if ctx.Err() != nil {
			break
		}
		var next []graph.NodeIndex
		for _, idx := range frontier {
			for _, ei := range g.Incoming(idx) {
				from := g.EdgeAt(ei).From
				if direct[from] || transitive[from] {
					continue
				}
				transitive[from] = true
				next = append(next, from)
			}
		}
		frontier = next
	}
	return transitive
}

// associateTests runs the association hook over the union of affected
// sets and returns a sorted, deduplicated result.
func (a *Analyzer) associateTests(g *graph.Graph, direct, transitive []string) []string {
	affected := make([]string, 0, len(direct)+len(transitive))
	affected = append(affected, direct...)
	affected = append(affected, transitive...)

	tests := a.options.Associator(g, affected)
	seen := make(map[string]bool, len(tests))
	out := make([]string, 0, len(tests))
	for _, t := range tests {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// score applies the additive risk ladder and derives recommendations from
// the factor categories that fired.
func (a *Analyzer) score(g *graph.Graph, changes []Change, analysis *ImpactAnalysis) {
	score := 0
	var blastFired, coverageFired, breakingFired, criticalFired bool

	blast := len(analysis.DirectlyAffected) + len(analysis.TransitivelyAffected)
	switch {
	case blast > 100:
		score += 30
		blastFired = true
		analysis.Risk.Factors = append(analysis.Risk.Factors,
			fmt.Sprintf("blast radius of %d files exceeds 100 (+30)", blast))
	case blast > 50:
		score += 20
		blastFired = true
		analysis.Risk.Factors = append(analysis.Risk.Factors,
			fmt.Sprintf("blast radius of %d files exceeds 50 (+20)", blast))
	case blast > 10:
		score += 10
		blastFired = true
		analysis.Risk.Factors = append(analysis.Risk.Factors,
			fmt.Sprintf("blast radius of %d files exceeds 10 (+10)", blast))
	}

	for _, ch := range changes {
		idx, _ := g.Lookup(ch.File)
		if fanIn := g.FanIn(idx); fanIn > a.options.CriticalPathFanIn {
			score += 25
			criticalFired = true
			analysis.Risk.Factors = append(analysis.Risk.Factors,
				fmt.Sprintf("%s is critical path with %d dependents (+25)", ch.File, fanIn))
		}
	}

	if avg, known := averageCoverage(g, analysis.DirectlyAffected); known {
		switch {
		case avg < 50:
			score += 20
			coverageFired = true
			analysis.Risk.Factors = append(analysis.Risk.Factors,
				fmt.Sprintf("average test coverage %.1f%% of directly affected files is below 50%% (+20)", avg))
		case avg < 80:
			score += 10
			coverageFired = true
			analysis.Risk.Factors = append(analysis.Risk.Factors,
				fmt.Sprintf("average test coverage %.1f%% of directly affected files is below 80%% (+10)", avg))
		}
	}

	for _, ch := range changes {
		if ch.IsBreaking {
			score += 15
			breakingFired = true
			analysis.Risk.Factors = append(analysis.Risk.Factors,
				fmt.Sprintf("%s is marked as a breaking change (+15)", ch.File))
		}
	}

	if score > 100 {
		score = 100
	}
	analysis.Risk.Score = score
	analysis.Risk.Level = levelFor(score)

	if blastFired {
		analysis.Recommendations = append(analysis.Recommendations,
			"split the change into smaller, independently reviewable batches")
	}
	if criticalFired {
		analysis.Recommendations = append(analysis.Recommendations,
			"stage changes to high fan-in modules separately and verify dependents")
	}
	if coverageFired {
		analysis.Recommendations = append(analysis.Recommendations,
			"add tests for the affected files before landing the change")
	}
	if breakingFired {
		analysis.Recommendations = append(analysis.Recommendations,
			"roll out breaking changes behind a feature flag with a migration window")
	}
}

// averageCoverage averages known coverage over the given node ids. Nodes
// carrying the unknown-coverage sentinel are excluded; known reports
// whether any node had data.
func averageCoverage(g *graph.Graph, ids []string) (avg float64, known bool) {
	var sum float64
	var n int
	for _, id := range ids {
		node, ok := g.NodeByID(id)
		if !ok || node.TestCoverage == facts.CoverageUnknown {
			continue
		}
		sum += node.TestCoverage
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// DefaultTestAssociator implements the common naming and dependency
// conventions: a test file is associated when it directly depends on an
// affected file, or when it matches a sibling naming pattern
// (foo.go -> foo_test.go, foo.ts -> foo.test.ts / foo.spec.ts,
// foo.py -> test_foo.py) and exists in the graph.
func DefaultTestAssociator(g *graph.Graph, affected []string) []string {
	var out []string
	for _, id := range affected {
		idx, ok := g.Lookup(id)
		if !ok {
			continue
		}
		for _, ei := range g.Incoming(idx) {
			from := g.NodeAt(g.EdgeAt(ei).From)
			if facts.IsTestFile(from.ID) {
				out = append(out, from.ID)
			}
		}
		for _, candidate := range facts.TestFileCandidates(id) {
			if _, ok := g.Lookup(candidate); ok {
				out = append(out, candidate)
			}
		}
	}
	return out
}

func sortedIDs(g *graph.Graph, set map[graph.NodeIndex]bool) []string {
	out := make([]string, 0, len(set))
	for idx := range set {
		out = append(out, g.NodeAt(idx).ID)
	}
	sort.Strings(out)
	return out
}
