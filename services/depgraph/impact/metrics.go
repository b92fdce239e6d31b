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
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "aleutian.ai/depgraph/impact"

var (
	tracer = otel.Tracer(instrumentationName)
	meter  = otel.Meter(instrumentationName)

	metricsOnce sync.Once

	analyzeDuration metric.Float64Histogram
	blastRadius     metric.Int64Histogram
	riskScores      metric.Int64Histogram
)

func initMetrics() {
	metricsOnce.Do(func() {
		var err error
		analyzeDuration, err = meter.Float64Histogram(
			"depgraph.impact.duration",
			metric.WithDescription("Impact analysis duration in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			otel.Handle(err)
		}
		blastRadius, err = meter.Int64Histogram(
			"depgraph.impact.blast_radius",
			metric.WithDescription("Affected files per analysis"),
		)
		if err != nil {
			otel.Handle(err)
		}
		riskScores, err = meter.Int64Histogram(
			"depgraph.impact.risk_score",
			metric.WithDescription("Risk score per analysis"),
		)
		if err != nil {
			otel.Handle(err)
		}
	})
}

func startAnalyzeSpan(ctx context.Context, changeCount int) (context.Context, trace.Span) {
	initMetrics()
	return tracer.Start(ctx, "impact.Analyze",
		trace.WithAttributes(attribute.Int("changes.count", changeCount)),
	)
}

func recordAnalyzeMetrics(ctx context.Context, elapsed time.Duration, blast, score int) {
	if analyzeDuration != nil {
		analyzeDuration.Record(ctx, elapsed.Seconds())
	}
	if blastRadius != nil {
		blastRadius.Record(ctx, int64(blast))
	}
	if riskScores != nil {
		riskScores.Record(ctx, int64(score))
	}
}
