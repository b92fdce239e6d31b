// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package depgraph

import (
	"github.com/AleutianAI/AleutianGraph/services/depgraph/graph"
	"github.com/AleutianAI/AleutianGraph/services/depgraph/impact"
	"github.com/AleutianAI/AleutianGraph/services/depgraph/visualization"
)

// BuildRequest asks for a new graph snapshot. Exactly one input applies:
// a project root scanned by the bundled extractors, or NDJSON facts in
// the request body.
type BuildRequest struct {
	// ProjectRoot is a directory to scan with the reference extractors.
	ProjectRoot string `json:"project_root,omitempty"`
}

// BuildResponse reports the new snapshot and its build outcome.
type BuildResponse struct {
	SnapshotID  string             `json:"snapshot_id"`
	Stats       graph.BuildStats   `json:"stats"`
	Diagnostics []graph.Diagnostic `json:"diagnostics,omitempty"`
}

// NeighborsResponse answers dependencies-of / dependents-of queries.
type NeighborsResponse struct {
	SnapshotID string   `json:"snapshot_id"`
	ID         string   `json:"id"`
	Nodes      []string `json:"nodes"`
}

// ClosureResponse answers transitive-closure queries.
type ClosureResponse struct {
	SnapshotID string                 `json:"snapshot_id"`
	ID         string                 `json:"id"`
	Result     *graph.TraversalResult `json:"result"`
}

// OrderResponse answers topological-order queries.
type OrderResponse struct {
	SnapshotID string   `json:"snapshot_id"`
	Order      []string `json:"order"`
}

// ImpactRequest carries a change batch, or a unified diff to derive one
// from. Changes win when both are present.
type ImpactRequest struct {
	SnapshotID string          `json:"snapshot_id,omitempty"`
	Changes    []impact.Change `json:"changes,omitempty"`
	Diff       string          `json:"diff,omitempty"`
}

// ExportRequest selects and renders a subgraph.
type ExportRequest struct {
	SnapshotID string               `json:"snapshot_id,omitempty"`
	Filter     visualization.Filter `json:"filter"`

	// Format optionally names a textual rendering (mermaid, dot, d3).
	// Empty returns diagram data only.
	Format string `json:"format,omitempty"`
}

// ExportResponse carries the diagram data and optional rendering.
type ExportResponse struct {
	SnapshotID string                     `json:"snapshot_id"`
	Data       *visualization.DiagramData `json:"data"`
	Rendered   string                     `json:"rendered,omitempty"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
