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
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/AleutianAI/AleutianGraph/services/depgraph/facts"
	"github.com/AleutianAI/AleutianGraph/services/depgraph/graph"
)

// DefaultMaxCycles bounds how many distinct cycles one scan reports.
const DefaultMaxCycles = 1000

// DetectorOptions configures cycle detection.
type DetectorOptions struct {
	// CorePathPatterns are regular expressions; a cycle through any
	// matching node id is graded high severity regardless of length.
	CorePathPatterns []string

	// MaxCycles caps the number of reported cycles.
	// Default: DefaultMaxCycles
	MaxCycles int
}

// DetectorOption is a functional option for configuring Detector.
type DetectorOption func(*DetectorOptions)

// WithCorePathPatterns sets the core-path severity patterns.
func WithCorePathPatterns(patterns []string) DetectorOption {
	return func(o *DetectorOptions) {
		o.CorePathPatterns = patterns
	}
}

// WithMaxCycles caps the number of reported cycles.
func WithMaxCycles(n int) DetectorOption {
	return func(o *DetectorOptions) {
		o.MaxCycles = n
	}
}

// Detector finds circular dependencies.
//
// Thread Safety:
//
//	Detector is safe for concurrent use; Detect keeps all scan state on
//	its own stack.
type Detector struct {
	core      []*regexp.Regexp
	maxCycles int
}

// NewDetector creates a Detector.
//
// Errors:
//
//	ErrInvalidPattern - A core-path pattern failed to compile.
func NewDetector(opts ...DetectorOption) (*Detector, error) {
	options := DetectorOptions{MaxCycles: DefaultMaxCycles}
	for _, opt := range opts {
		opt(&options)
	}
	if options.MaxCycles <= 0 {
		options.MaxCycles = DefaultMaxCycles
	}

	d := &Detector{maxCycles: options.MaxCycles}
	for _, p := range options.CorePathPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, p, err)
		}
		d.core = append(d.core, re)
	}
	return d, nil
}

// scanState is the per-Detect working set.
type scanState struct {
	g *graph.Graph

	// color: 0 white, 1 gray (on stack), 2 black.
	color []uint8

	// stack is the current DFS path, as node indexes.
	stack []graph.NodeIndex

	// posOnStack maps a gray node to its position in stack.
	posOnStack map[graph.NodeIndex]int

	// seen dedupes cycles by canonical rotation key.
	seen map[string]bool

	cycles    []Cycle
	truncated bool
}

// Detect scans the graph for circular dependencies.
//
// Description:
//
//	Depth-first search seeded in lexicographic node-id order, visiting
//	neighbors in lexicographic order, so the same graph always yields
//	the same report. Each back edge closes one elementary cycle;
//	rotations of an already-reported cycle are discarded. The DYNAMIC
//	sentinel has no outgoing edges and therefore never appears on a
//	cycle.
//
// Inputs:
//
//	ctx - Context for cancellation, checked per DFS seed.
//	g - A frozen graph.
//
// Errors:
//
//	ErrGraphNotReady - The graph is still building.
func (d *Detector) Detect(ctx context.Context, g *graph.Graph) (*Report, error) {
	if !g.IsFrozen() {
		return nil, ErrGraphNotReady
	}

	ctx, span := startDetectSpan(ctx, g.NodeCount())
	defer span.End()
	start := time.Now()

	n := g.NodeCount()
	seeds := make([]graph.NodeIndex, 0, n)
	for idx := range g.Nodes() {
		seeds = append(seeds, idx)
	}
	sort.Slice(seeds, func(i, j int) bool {
		return g.NodeAt(seeds[i]).ID < g.NodeAt(seeds[j]).ID
	})

	st := &scanState{
		g:          g,
		color:      make([]uint8, n),
		posOnStack: make(map[graph.NodeIndex]int),
		seen:       make(map[string]bool),
	}

	for _, seed := range seeds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if st.color[seed] != 0 {
			continue
		}
		d.visit(st, seed)
		if st.truncated {
			break
		}
	}

	report := &Report{
		Cycles:       st.cycles,
		Truncated:    st.truncated,
		NodesScanned: n,
	}
	sortCycles(report.Cycles)
	recordDetectMetrics(ctx, time.Since(start), len(report.Cycles))
	return report, nil
}

func (d *Detector) visit(st *scanState, idx graph.NodeIndex) {
	st.color[idx] = 1
	st.posOnStack[idx] = len(st.stack)
	st.stack = append(st.stack, idx)

	for _, next := range sortedNeighbors(st.g, idx) {
		if st.truncated {
			break
		}
		switch st.color[next] {
		case 0:
			d.visit(st, next)
		case 1:
			d.record(st, st.stack[st.posOnStack[next]:])
		}
	}

	st.stack = st.stack[:len(st.stack)-1]
	delete(st.posOnStack, idx)
	st.color[idx] = 2
}

// record canonicalizes one cycle and appends it if unseen.
func (d *Detector) record(st *scanState, path []graph.NodeIndex) {
	ids := make([]string, len(path))
	for i, idx := range path {
		ids[i] = st.g.NodeAt(idx).ID
	}
	ids = rotateCanonical(ids)

	key := cycleKey(ids)
	if st.seen[key] {
		return
	}
	st.seen[key] = true

	st.cycles = append(st.cycles, Cycle{
		Nodes:    ids,
		Severity: d.grade(ids),
		Break:    d.suggestBreak(st.g, ids),
	})
	if len(st.cycles) >= d.maxCycles {
		st.truncated = true
	}
}

// grade applies the severity ladder: core-path or length > 5 is high,
// length > 3 is medium, anything else low.
func (d *Detector) grade(ids []string) Severity {
	for _, id := range ids {
		for _, re := range d.core {
			if re.MatchString(id) {
				return SeverityHigh
			}
		}
	}
	switch {
	case len(ids) > 5:
		return SeverityHigh
	case len(ids) > 3:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// suggestBreak picks the minimum-weight edge on the cycle, breaking ties
// lexicographically by (from, to).
func (d *Detector) suggestBreak(g *graph.Graph, ids []string) BreakSuggestion {
	var best *graph.Edge
	var bestFrom, bestTo string

	for i := range ids {
		from := ids[i]
		to := ids[(i+1)%len(ids)]
		e := weakestEdgeBetween(g, from, to)
		if e == nil {
			continue
		}
		if best == nil ||
			e.Weight < best.Weight ||
			(e.Weight == best.Weight && (from < bestFrom || (from == bestFrom && to < bestTo))) {
			best, bestFrom, bestTo = e, from, to
		}
	}

	if best == nil {
		// Cannot happen on a cycle produced by this scan; keep the report
		// well formed anyway.
		return BreakSuggestion{Strategy: StrategyExtractSharedModule}
	}
	return BreakSuggestion{
		From:     bestFrom,
		To:       bestTo,
		Weight:   best.Weight,
		Strategy: strategyFor(best),
	}
}

// strategyFor maps the symbol shape of the edge to a refactoring strategy.
func strategyFor(e *graph.Edge) string {
	switch {
	case e.Type == facts.EdgeKindTypeReference:
		return StrategyExtractSharedTypes
	case len(e.Symbols) >= 1 && len(e.Symbols) <= 2:
		return StrategyDependencyInjection
	default:
		return StrategyExtractSharedModule
	}
}

// weakestEdgeBetween returns the minimum-weight edge from one node id to
// another, or nil when no such edge exists.
func weakestEdgeBetween(g *graph.Graph, from, to string) *graph.Edge {
	fromIdx, ok := g.Lookup(from)
	if !ok {
		return nil
	}
	toIdx, ok := g.Lookup(to)
	if !ok {
		return nil
	}
	var best *graph.Edge
	for _, ei := range g.Outgoing(fromIdx) {
		e := g.EdgeAt(ei)
		if e.To != toIdx {
			continue
		}
		if best == nil || e.Weight < best.Weight {
			best = e
		}
	}
	return best
}

// sortedNeighbors returns deduplicated successor indexes in lexicographic
// id order.
func sortedNeighbors(g *graph.Graph, idx graph.NodeIndex) []graph.NodeIndex {
	edgeIdxs := g.Outgoing(idx)
	seen := make(map[graph.NodeIndex]bool, len(edgeIdxs))
	out := make([]graph.NodeIndex, 0, len(edgeIdxs))
	for _, ei := range edgeIdxs {
		to := g.EdgeAt(ei).To
		if !seen[to] {
			seen[to] = true
			out = append(out, to)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return g.NodeAt(out[i]).ID < g.NodeAt(out[j]).ID
	})
	return out
}

// rotateCanonical rotates the cycle so the lexicographically smallest id
// comes first, preserving edge order.
func rotateCanonical(ids []string) []string {
	if len(ids) == 0 {
		return ids
	}
	smallest := 0
	for i := 1; i < len(ids); i++ {
		if ids[i] < ids[smallest] {
			smallest = i
		}
	}
	if smallest == 0 {
		return ids
	}
	out := make([]string, 0, len(ids))
	out = append(out, ids[smallest:]...)
	out = append(out, ids[:smallest]...)
	return out
}

func cycleKey(ids []string) string {
	key := ""
	for _, id := range ids {
		key += id + "\x00"
	}
	return key
}

func sortCycles(cycles []Cycle) {
	sort.Slice(cycles, func(i, j int) bool {
		a, b := cycles[i].Nodes, cycles[j].Nodes
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return len(a) < len(b)
	})
}
