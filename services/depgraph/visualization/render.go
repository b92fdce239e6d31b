// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package visualization

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Format names a supported diagram rendering.
type Format string

const (
	FormatMermaid Format = "mermaid"
	FormatDOT     Format = "dot"
	FormatD3      Format = "d3"
)

// Render serializes diagram data in the requested format.
func Render(data *DiagramData, format Format) (string, error) {
	switch format {
	case FormatMermaid:
		return RenderMermaid(data), nil
	case FormatDOT:
		return RenderDOT(data), nil
	case FormatD3:
		return RenderD3(data)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// RenderMermaid emits a Mermaid flowchart. Node ids are aliased to stable
// short names since Mermaid identifiers cannot carry slashes.
func RenderMermaid(data *DiagramData) string {
	var b strings.Builder
	b.WriteString("graph LR\n")

	alias := make(map[string]string, len(data.Nodes))
	for i, n := range data.Nodes {
		a := fmt.Sprintf("n%d", i)
		alias[n.ID] = a
		fmt.Fprintf(&b, "    %s[\"%s\"]\n", a, escapeMermaid(n.ID))
	}
	for _, e := range data.Edges {
		from, okF := alias[e.From]
		to, okT := alias[e.To]
		if !okF || !okT {
			continue
		}
		arrow := "-->"
		if e.IsDynamic {
			arrow = "-.->"
		}
		fmt.Fprintf(&b, "    %s %s|%s| %s\n", from, arrow, e.Type, to)
	}
	return b.String()
}

// RenderDOT emits a Graphviz digraph.
func RenderDOT(data *DiagramData) string {
	var b strings.Builder
	b.WriteString("digraph dependencies {\n")
	b.WriteString("    rankdir=LR;\n")
	b.WriteString("    node [shape=box];\n")

	for _, n := range data.Nodes {
		attrs := ""
		if n.Kind != "source-file" {
			attrs = " style=dashed"
		}
		fmt.Fprintf(&b, "    %q [label=%q%s];\n", n.ID, n.ID, attrs)
	}
	for _, e := range data.Edges {
		style := ""
		if e.IsDynamic {
			style = " style=dashed"
		}
		fmt.Fprintf(&b, "    %q -> %q [label=%q%s];\n", e.From, e.To, e.Type, style)
	}
	b.WriteString("}\n")
	return b.String()
}

// d3Document mirrors the node/link shape d3-force consumes.
type d3Document struct {
	Nodes []DiagramNode `json:"nodes"`
	Links []d3Link      `json:"links"`
}

type d3Link struct {
	Source    string  `json:"source"`
	Target    string  `json:"target"`
	Type      string  `json:"type"`
	Weight    float64 `json:"weight"`
	IsDynamic bool    `json:"is_dynamic,omitempty"`
}

// RenderD3 emits the node/link JSON document d3-force consumes directly.
func RenderD3(data *DiagramData) (string, error) {
	doc := d3Document{Nodes: data.Nodes, Links: make([]d3Link, 0, len(data.Edges))}
	for _, e := range data.Edges {
		doc.Links = append(doc.Links, d3Link{
			Source:    e.From,
			Target:    e.To,
			Type:      e.Type,
			Weight:    e.Weight,
			IsDynamic: e.IsDynamic,
		})
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func escapeMermaid(s string) string {
	s = strings.ReplaceAll(s, `"`, `#quot;`)
	return strings.ReplaceAll(s, "|", "#124;")
}
