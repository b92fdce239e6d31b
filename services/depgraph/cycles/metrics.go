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
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "aleutian.ai/depgraph/cycles"

var (
	tracer = otel.Tracer(instrumentationName)
	meter  = otel.Meter(instrumentationName)

	metricsOnce sync.Once

	detectDuration metric.Float64Histogram
	cyclesFound    metric.Int64Histogram
)

func initMetrics() {
	metricsOnce.Do(func() {
		var err error
		detectDuration, err = meter.Float64Histogram(
			"depgraph.cycles.duration",
			metric.WithDescription("Cycle scan duration in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			otel.Handle(err)
		}
		cyclesFound, err = meter.Int64Histogram(
			"depgraph.cycles.found",
			metric.WithDescription("Cycles found per scan"),
		)
		if err != nil {
			otel.Handle(err)
		}
	})
}

func startDetectSpan(ctx context.Context, nodeCount int) (context.Context, trace.Span) {
	initMetrics()
	return tracer.Start(ctx, "cycles.Detect",
		trace.WithAttributes(attribute.Int("graph.nodes", nodeCount)),
	)
}

func recordDetectMetrics(ctx context.Context, elapsed time.Duration, found int) {
	if detectDuration != nil {
		detectDuration.Record(ctx, elapsed.Seconds())
	}
	if cyclesFound != nil {
		cyclesFound.Record(ctx, int64(found))
	}
}
