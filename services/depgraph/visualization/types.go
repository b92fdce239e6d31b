// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package visualization renders a filtered subgraph into diagram data and
// textual diagram formats. It performs no layout; that is a rendering
// concern outside this engine.
package visualization

import "errors"

var (
	// ErrGraphNotReady indicates the graph is still building.
	ErrGraphNotReady = errors.New("graph is not frozen")

	// ErrBadFilter indicates the filter's path pattern failed to compile.
	ErrBadFilter = errors.New("invalid visualization filter")

	// ErrUnknownRoot indicates the filter names a root node absent from
	// the graph.
	ErrUnknownRoot = errors.New("filter root is not in the graph")

	// ErrUnknownFormat indicates a format outside the supported set.
	ErrUnknownFormat = errors.New("unknown diagram format")
)

// Filter selects the subgraph to export.
type Filter struct {
	// PathPattern is an optional regular expression; only nodes whose id
	// matches are kept.
	PathPattern string `json:"path_pattern,omitempty"`

	// Root optionally restricts the export to nodes reachable from this
	// node id.
	Root string `json:"root,omitempty"`

	// MaxDepth bounds reachability from Root. Zero or negative means
	// unbounded. Ignored without Root.
	MaxDepth int `json:"max_depth,omitempty"`

	// IncludeExternal keeps external-package nodes and the DYNAMIC
	// sentinel in the export.
	IncludeExternal bool `json:"include_external,omitempty"`
}

// DiagramNode is one exported vertex.
type DiagramNode struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	FanIn int    `json:"fan_in"`
}

// DiagramEdge is one exported relationship. Endpoints are node ids.
type DiagramEdge struct {
	From      string  `json:"from"`
	To        string  `json:"to"`
	Type      string  `json:"type"`
	Weight    float64 `json:"weight"`
	IsDynamic bool    `json:"is_dynamic,omitempty"`
}

// DiagramData is the generic diagram-description shape: a node list and
// an edge list, both deterministically ordered, with no layout
// information.
type DiagramData struct {
	Nodes []DiagramNode `json:"nodes"`
	Edges []DiagramEdge `json:"edges"`
}
