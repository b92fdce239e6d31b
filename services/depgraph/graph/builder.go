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
	"path"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianGraph/services/depgraph/facts"
)

// How often the build loops check for cancellation.
const cancelCheckInterval = 1024

// BuilderOptions configures Builder behavior.
type BuilderOptions struct {
	// AliasTable maps import-alias prefixes to project-relative
	// directories ("@app" -> "src/app"). Alias resolution always wins
	// over package-manager resolution.
	AliasTable map[string]string

	// WorkerCount is the number of parallel workers for edge resolution.
	// Default: runtime.NumCPU()
	WorkerCount int

	// BuildTimeout bounds the whole build. Zero means no builder-imposed
	// deadline; the caller's context still applies.
	BuildTimeout time.Duration

	// MaxNodes is the maximum number of nodes (passed to Graph).
	MaxNodes int

	// MaxEdges is the maximum number of edges (passed to Graph).
	MaxEdges int
}

// DefaultBuilderOptions returns sensible defaults.
func DefaultBuilderOptions() BuilderOptions {
	return BuilderOptions{
		WorkerCount: runtime.NumCPU(),
		MaxNodes:    DefaultMaxNodes,
		MaxEdges:    DefaultMaxEdges,
	}
}

// BuilderOption is a functional option for configuring Builder.
type BuilderOption func(*BuilderOptions)

// WithAliasTable sets the path-alias table.
func WithAliasTable(aliases map[string]string) BuilderOption {
	return func(o *BuilderOptions) {
		o.AliasTable = aliases
	}
}

// WithBuilderWorkerCount sets the number of parallel resolution workers.
func WithBuilderWorkerCount(n int) BuilderOption {
	return func(o *BuilderOptions) {
		o.WorkerCount = n
	}
}

// WithBuildTimeout sets the builder-imposed build deadline.
func WithBuildTimeout(d time.Duration) BuilderOption {
	return func(o *BuilderOptions) {
		o.BuildTimeout = d
	}
}

// WithBuilderMaxNodes sets the maximum number of nodes.
func WithBuilderMaxNodes(n int) BuilderOption {
	return func(o *BuilderOptions) {
		o.MaxNodes = n
	}
}

// WithBuilderMaxEdges sets the maximum number of edges.
func WithBuilderMaxEdges(n int) BuilderOption {
	return func(o *BuilderOptions) {
		o.MaxEdges = n
	}
}

// Builder constructs dependency graphs from fact streams.
//
// The builder is stateless and can be reused across multiple builds; each
// Build() call creates a new graph with its own internal state, so there is
// no shared mutable state across concurrent build invocations.
//
// Thread Safety:
//
//	Builder is safe for concurrent use.
type Builder struct {
	options BuilderOptions
}

// NewBuilder creates a new Builder with the given options.
//
// Example:
//
//	builder := NewBuilder(
//	    WithAliasTable(map[string]string{"@app": "src/app"}),
//	    WithBuildTimeout(60 * time.Second),
//	)
func NewBuilder(opts ...BuilderOption) *Builder {
	options := DefaultBuilderOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.WorkerCount <= 0 {
		options.WorkerCount = runtime.NumCPU()
	}
	return &Builder{options: options}
}

// edgeDecision is the pass-2 resolution outcome for one edge fact,
// computed in parallel and materialized sequentially so that output order
// is independent of worker scheduling.
type edgeDecision struct {
	skip      bool
	skipDiag  Diagnostic
	from      string
	res       resolution
	kind      facts.EdgeKind
	symbols   []string
	isDynamic bool
}

// Build constructs a frozen graph from the given fact stream.
//
// Description:
//
//	Two passes. Pass 1 creates one node per distinct source-file
//	declaration. Pass 2 resolves every edge fact's textual target to a
//	canonical node id (relative path, alias table, package-manager,
//	external fallback, in that order), materializing synthetic nodes for
//	external packages and routing unresolvable targets to the DYNAMIC
//	sentinel. Malformed facts are skipped and recorded as diagnostics;
//	the build itself only fails on cancellation or timeout, in which
//	case all partial state is discarded.
//
// Inputs:
//
//	ctx - Context for cancellation. Checked periodically in both passes.
//	stream - The complete fact stream, in any order.
//
// Outputs:
//
//	*BuildResult - The frozen graph, diagnostics, and build statistics.
//	error - ErrBuildTimeout or the context error. Never a partial graph.
func (b *Builder) Build(ctx context.Context, stream *facts.Stream) (*BuildResult, error) {
	if stream == nil {
		stream = facts.NewStream()
	}

	ctx, span := startBuildSpan(ctx, stream.Len())
	defer span.End()

	cancel := func() {}
	if b.options.BuildTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, b.options.BuildTimeout)
	}
	defer cancel()

	start := time.Now()
	result := &BuildResult{}
	result.Stats.FactsIngested = stream.Len()

	g := NewGraph(
		WithMaxNodes(b.options.MaxNodes),
		WithMaxEdges(b.options.MaxEdges),
	)

	if err := b.collectNodes(ctx, g, stream, result); err != nil {
		recordBuildMetrics(ctx, time.Since(start), 0, 0, false)
		return nil, b.mapBuildErr(err)
	}

	if err := b.resolveEdges(ctx, g, stream, result); err != nil {
		recordBuildMetrics(ctx, time.Since(start), 0, 0, false)
		return nil, b.mapBuildErr(err)
	}

	g.Freeze()
	result.Graph = g

	stats := g.Stats()
	result.Stats.NodesCreated = stats.NodeCount
	result.Stats.ExternalNodes = stats.ExternalNodes
	result.Stats.EdgesCreated = stats.EdgeCount
	result.Stats.DynamicEdges = stats.DynamicEdges
	result.Stats.DurationMilli = time.Since(start).Milliseconds()

	setBuildSpanResult(span, result.Stats.NodesCreated, result.Stats.EdgesCreated, result.Stats.SkippedFacts)
	recordBuildMetrics(ctx, time.Since(start), result.Stats.NodesCreated, result.Stats.EdgesCreated, true)

	return result, nil
}

// mapBuildErr converts a deadline hit on the builder-imposed timeout into
// the build timeout sentinel.
func (b *Builder) mapBuildErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrBuildTimeout, b.options.BuildTimeout)
	}
	return err
}

// collectNodes is pass 1: one node per distinct declared source file.
func (b *Builder) collectNodes(ctx context.Context, g *Graph, stream *facts.Stream, result *BuildResult) error {
	for i, nf := range stream.Nodes {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		if err := checkNodePath(nf.Path); err != nil {
			result.Diagnostics = append(result.Diagnostics, Diagnostic{
				Severity: DiagError,
				Code:     DiagCodeMalformedFact,
				Path:     nf.Path,
				Message:  fmt.Sprintf("node fact skipped: %v", err),
			})
			result.Stats.SkippedFacts++
			continue
		}

		id := path.Clean(nf.Path)
		if existing, ok := g.NodeByID(id); ok {
			// Repeated declaration: union the exports, keep the first
			// occurrence's numeric attributes.
			for _, sym := range nf.Exports {
				if !existing.HasExport(sym) {
					existing.Exports = append(existing.Exports, sym)
				}
			}
			result.Diagnostics = append(result.Diagnostics, Diagnostic{
				Severity: DiagInfo,
				Code:     DiagCodeDuplicateNode,
				Path:     id,
				Message:  "repeated node declaration merged",
			})
			continue
		}

		if _, err := g.AddNode(Node{
			ID:           id,
			Kind:         NodeKindSourceFile,
			Exports:      nf.Exports,
			Size:         nf.Size,
			Complexity:   nf.Complexity,
			TestCoverage: nf.TestCoverage,
		}); err != nil {
			return err
		}
	}
	return nil
}

// resolveEdges is pass 2: parallel resolution, sequential materialization.
func (b *Builder) resolveEdges(ctx context.Context, g *Graph, stream *facts.Stream, result *BuildResult) error {
	ids := make([]string, 0, g.NodeCount())
	for _, node := range g.Nodes() {
		ids = append(ids, node.ID)
	}
	res := newResolver(ids, b.options.AliasTable)

	decisions := make([]edgeDecision, len(stream.Edges))

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(b.options.WorkerCount)

	chunk := (len(stream.Edges) + b.options.WorkerCount - 1) / b.options.WorkerCount
	if chunk < 1 {
		chunk = 1
	}
	for lo := 0; lo < len(stream.Edges); lo += chunk {
		hi := min(lo+chunk, len(stream.Edges))
		grp.Go(func() error {
			for i := lo; i < hi; i++ {
				if i%cancelCheckInterval == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				decisions[i] = b.decideEdge(res, stream.Edges[i])
			}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return err
	}

	for i := range decisions {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := b.materializeEdge(g, &decisions[i], result); err != nil {
			return err
		}
	}
	return nil
}

// decideEdge resolves one edge fact without touching the graph. Safe to
// run concurrently because the resolver is read-only over the pass-1 table.
func (b *Builder) decideEdge(res *resolver, ef facts.EdgeFact) edgeDecision {
	if err := checkNodePath(ef.From); err != nil {
		return edgeDecision{
			skip: true,
			skipDiag: Diagnostic{
				Severity: DiagError,
				Code:     DiagCodeMalformedFact,
				Path:     ef.From,
				Target:   ef.Target,
				Message:  fmt.Sprintf("edge fact skipped, bad source path: %v", err),
			},
		}
	}

	kind := ef.Kind
	if kind == "" {
		kind = facts.EdgeKindImport
	}
	if ef.Dynamic {
		kind = facts.EdgeKindDynamic
	}

	d := edgeDecision{
		from:      path.Clean(ef.From),
		kind:      kind,
		symbols:   ef.Symbols,
		isDynamic: ef.Dynamic,
	}

	if ef.Target == "" {
		// Producer could not even name the target; sentinel only.
		d.res = resolution{rule: ruleDynamic}
		d.isDynamic = true
		return d
	}

	if err := checkSpecifier(ef.Target); err != nil {
		d.skip = true
		d.skipDiag = Diagnostic{
			Severity: DiagError,
			Code:     DiagCodeMalformedFact,
			Path:     ef.From,
			Target:   ef.Target,
			Message:  fmt.Sprintf("edge fact skipped, bad target specifier: %v", err),
		}
		return d
	}

	d.res = res.resolve(d.from, ef.Target)
	return d
}

// materializeEdge applies one resolution decision to the graph.
func (b *Builder) materializeEdge(g *Graph, d *edgeDecision, result *BuildResult) error {
	if d.skip {
		result.Diagnostics = append(result.Diagnostics, d.skipDiag)
		result.Stats.SkippedFacts++
		return nil
	}

	fromIdx, ok := g.Lookup(d.from)
	if !ok {
		// Edge from a file the stream never declared. Materialize the
		// node rather than dropping the edge.
		var err error
		fromIdx, err = g.AddNode(Node{
			ID:           d.from,
			Kind:         NodeKindSourceFile,
			TestCoverage: facts.CoverageUnknown,
		})
		if err != nil {
			return err
		}
		result.Diagnostics = append(result.Diagnostics, Diagnostic{
			Severity: DiagInfo,
			Code:     DiagCodeImplicitNode,
			Path:     d.from,
			Message:  "node materialized for undeclared edge source",
		})
	}

	var toIdx NodeIndex
	switch {
	case d.res.rule == ruleDynamic:
		var err error
		toIdx, err = b.ensureDynamicNode(g)
		if err != nil {
			return err
		}
		d.isDynamic = true
		result.Diagnostics = append(result.Diagnostics, Diagnostic{
			Severity: DiagWarning,
			Code:     DiagCodeDynamicEdge,
			Path:     d.from,
			Message:  "unresolvable target routed to DYNAMIC sentinel",
		})
	default:
		var ok bool
		toIdx, ok = g.Lookup(d.res.id)
		if !ok {
			var err error
			toIdx, err = g.AddNode(Node{
				ID:           d.res.id,
				Kind:         d.res.kind,
				TestCoverage: facts.CoverageUnknown,
			})
			if err != nil {
				return err
			}
		}
		if d.res.ambiguous {
			result.Diagnostics = append(result.Diagnostics, Diagnostic{
				Severity: DiagWarning,
				Code:     DiagCodeAmbiguousResolution,
				Path:     d.from,
				Target:   d.res.id,
				Message: fmt.Sprintf("case-insensitive resolution matched %d candidates %v; picked %q",
					len(d.res.candidates), d.res.candidates, d.res.id),
			})
			result.Stats.AmbiguousResolutions++
		}
	}

	return g.AddEdge(Edge{
		From:      fromIdx,
		To:        toIdx,
		Type:      d.kind,
		Symbols:   d.symbols,
		IsDynamic: d.isDynamic,
		Weight:    edgeWeight(d.kind, len(d.symbols), d.isDynamic),
	})
}

// ensureDynamicNode materializes the DYNAMIC sentinel on first use.
func (b *Builder) ensureDynamicNode(g *Graph) (NodeIndex, error) {
	if idx := g.DynamicIndex(); idx >= 0 {
		return idx, nil
	}
	return g.AddNode(Node{
		ID:           DynamicNodeID,
		Kind:         NodeKindDynamicTarget,
		TestCoverage: facts.CoverageUnknown,
	})
}

// edgeWeight derives the visualization/tie-break strength of an edge.
//
// The function is deliberately a pure function of import shape so that
// weight is reproducible for identical input: namespace (opaque) imports
// weight 0.9, symbol-scoped imports grow with specifier count, type-only
// references are discounted, inheritance is floored high. Weight never
// feeds correctness decisions.
func edgeWeight(kind facts.EdgeKind, symbolCount int, dynamic bool) float64 {
	if dynamic {
		return 0.5
	}

	var w float64
	if symbolCount == 0 {
		w = 0.9
	} else {
		w = 0.3 + 0.1*float64(min(symbolCount, 6))
	}

	switch kind {
	case facts.EdgeKindTypeReference:
		w *= 0.8
	case facts.EdgeKindInheritance:
		if w < 0.85 {
			w = 0.85
		}
	}

	if w > 1 {
		w = 1
	}
	return w
}
