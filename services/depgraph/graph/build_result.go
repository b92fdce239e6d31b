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

import "fmt"

// DiagSeverity classifies build diagnostics.
type DiagSeverity int

const (
	// DiagInfo is an informational note (e.g. an implicitly created node).
	DiagInfo DiagSeverity = iota

	// DiagWarning is a recoverable problem (e.g. ambiguous resolution).
	DiagWarning

	// DiagError is a skipped fact (e.g. a malformed path). The build
	// continues; partial data beats a hard failure for a best-effort tool.
	DiagError
)

// String returns the string representation of the severity.
func (s DiagSeverity) String() string {
	switch s {
	case DiagInfo:
		return "info"
	case DiagWarning:
		return "warning"
	case DiagError:
		return "error"
	default:
		return "unknown"
	}
}

// Diagnostic codes emitted by the builder.
const (
	// DiagCodeMalformedFact marks a fact skipped for a syntactically
	// invalid path.
	DiagCodeMalformedFact = "malformed-fact"

	// DiagCodeAmbiguousResolution marks an import that could resolve to
	// more than one file under case-insensitive filesystems. Warning
	// level, never fatal.
	DiagCodeAmbiguousResolution = "ambiguous-resolution"

	// DiagCodeImplicitNode marks a node materialized for an edge whose
	// source file had no node declaration in the stream.
	DiagCodeImplicitNode = "implicit-node"

	// DiagCodeDynamicEdge marks an edge redirected to the DYNAMIC sentinel.
	DiagCodeDynamicEdge = "dynamic-edge"

	// DiagCodeDuplicateNode marks a repeated node declaration merged into
	// the first occurrence.
	DiagCodeDuplicateNode = "duplicate-node"
)

// Diagnostic is one build-time observation surfaced alongside the graph so
// callers can assess confidence. Diagnostics are never hidden.
type Diagnostic struct {
	// Severity classifies the diagnostic.
	Severity DiagSeverity `json:"severity"`

	// Code is one of the DiagCode constants.
	Code string `json:"code"`

	// Path is the file the diagnostic concerns, if any.
	Path string `json:"path,omitempty"`

	// Target is the raw specifier involved, if any.
	Target string `json:"target,omitempty"`

	// Message is a human-readable explanation.
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Target != "" {
		return fmt.Sprintf("%s %s: %s (target %q)", d.Severity, d.Code, d.Message, d.Target)
	}
	return fmt.Sprintf("%s %s: %s", d.Severity, d.Code, d.Message)
}

// BuildStats summarizes one build invocation.
type BuildStats struct {
	// FactsIngested is the total number of facts read from the stream.
	FactsIngested int `json:"facts_ingested"`

	// NodesCreated is the number of nodes in the snapshot, synthetic
	// nodes included.
	NodesCreated int `json:"nodes_created"`

	// ExternalNodes is the number of synthetic external-package nodes.
	ExternalNodes int `json:"external_nodes"`

	// EdgesCreated is the number of edges in the snapshot.
	EdgesCreated int `json:"edges_created"`

	// DynamicEdges is the number of edges routed to the DYNAMIC sentinel
	// or flagged dynamic by the producer.
	DynamicEdges int `json:"dynamic_edges"`

	// SkippedFacts is the number of facts dropped as malformed.
	SkippedFacts int `json:"skipped_facts"`

	// AmbiguousResolutions is the number of case-insensitive resolution
	// ambiguities encountered.
	AmbiguousResolutions int `json:"ambiguous_resolutions"`

	// DurationMilli is the wall-clock build time in milliseconds.
	DurationMilli int64 `json:"duration_ms"`
}

// BuildResult is the output of one Builder.Build call: the frozen graph
// plus every diagnostic accumulated while building it.
type BuildResult struct {
	// Graph is the frozen snapshot.
	Graph *Graph

	// Diagnostics are the accumulated build observations, in the order
	// they were produced.
	Diagnostics []Diagnostic

	// Stats summarizes the build.
	Stats BuildStats
}

// HasErrors reports whether any error-severity diagnostics were produced.
func (r *BuildResult) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == DiagError {
			return true
		}
	}
	return false
}
