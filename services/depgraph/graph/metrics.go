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
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "aleutian.ai/depgraph/graph"

var (
	tracer = otel.Tracer(instrumentationName)
	meter  = otel.Meter(instrumentationName)

	metricsOnce sync.Once

	buildDuration metric.Float64Histogram
	buildNodes    metric.Int64Histogram
	buildEdges    metric.Int64Histogram
	buildTotal    metric.Int64Counter
)

func initMetrics() {
	metricsOnce.Do(func() {
		var err error
		buildDuration, err = meter.Float64Histogram(
			"depgraph.build.duration",
			metric.WithDescription("Graph build duration in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			otel.Handle(err)
		}
		buildNodes, err = meter.Int64Histogram(
			"depgraph.build.nodes",
			metric.WithDescription("Nodes per completed build"),
		)
		if err != nil {
			otel.Handle(err)
		}
		buildEdges, err = meter.Int64Histogram(
			"depgraph.build.edges",
			metric.WithDescription("Edges per completed build"),
		)
		if err != nil {
			otel.Handle(err)
		}
		buildTotal, err = meter.Int64Counter(
			"depgraph.build.total",
			metric.WithDescription("Total build attempts by outcome"),
		)
		if err != nil {
			otel.Handle(err)
		}
	})
}

func startBuildSpan(ctx context.Context, factCount int) (context.Context, trace.Span) {
	initMetrics()
	return tracer.Start(ctx, "graph.Build",
		trace.WithAttributes(attribute.Int("facts.count", factCount)),
	)
}

func setBuildSpanResult(span trace.Span, nodes, edges, skipped int) {
	span.SetAttributes(
		attribute.Int("graph.nodes", nodes),
		attribute.Int("graph.edges", edges),
		attribute.Int("facts.skipped", skipped),
	)
}

func recordBuildMetrics(ctx context.Context, elapsed time.Duration, nodes, edges int, ok bool) {
	initMetrics()
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	if buildTotal != nil {
		buildTotal.Add(ctx, 1, attrs)
	}
	if !ok {
		return
	}
	if buildDuration != nil {
		buildDuration.Record(ctx, elapsed.Seconds(), attrs)
	}
	if buildNodes != nil {
		buildNodes.Record(ctx, int64(nodes), attrs)
	}
	if buildEdges != nil {
		buildEdges.Record(ctx, int64(edges), attrs)
	}
}
