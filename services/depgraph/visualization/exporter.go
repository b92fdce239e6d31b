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
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/AleutianAI/AleutianGraph/services/depgraph/graph"
)

// Export extracts the filtered subgraph as diagram data.
//
// Description:
//
//	Filters compose: a root with max depth first restricts the node set
//	to forward reachability, then the path pattern prunes it, then
//	external nodes and the DYNAMIC sentinel drop out unless included.
//	Edges are kept only when both endpoints survive. Nodes are sorted by
//	id and edges by (from, to, type) so identical input renders
//	identically.
//
// Errors:
//
//	ErrGraphNotReady - The graph is still building.
//	ErrBadFilter - The path pattern failed to compile.
//	ErrUnknownRoot - The filter root is not in the graph.
func Export(ctx context.Context, g *graph.Graph, filter Filter) (*DiagramData, error) {
	if !g.IsFrozen() {
		return nil, ErrGraphNotReady
	}

	var re *regexp.Regexp
	if filter.PathPattern != "" {
		var err error
		re, err = regexp.Compile(filter.PathPattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrBadFilter, filter.PathPattern, err)
		}
	}

	keep, err := selectNodes(ctx, g, filter, re)
	if err != nil {
		return nil, err
	}

	data := &DiagramData{Nodes: []DiagramNode{}, Edges: []DiagramEdge{}}
	for idx := range keep {
		node := g.NodeAt(idx)
		data.Nodes = append(data.Nodes, DiagramNode{
			ID:    node.ID,
			Kind:  node.Kind.String(),
			FanIn: g.FanIn(idx),
		})
	}
	sort.Slice(data.Nodes, func(i, j int) bool {
		return data.Nodes[i].ID < data.Nodes[j].ID
	})

	for _, e := range g.Edges() {
		if !keep[e.From] || !keep[e.To] {
			continue
		}
		data.Edges = append(data.Edges, DiagramEdge{
			From:      g.NodeAt(e.From).ID,
			To:        g.NodeAt(e.To).ID,
			Type:      string(e.Type),
			Weight:    e.Weight,
			IsDynamic: e.IsDynamic,
		})
	}
	sort.Slice(data.Edges, func(i, j int) bool {
		a, b := data.Edges[i], data.Edges[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.To != b.To {
			return a.To < b.To
		}
		return a.Type < b.Type
	})

	return data, nil
}

func selectNodes(ctx context.Context, g *graph.Graph, filter Filter, re *regexp.Regexp) (map[graph.NodeIndex]bool, error) {
	keep := make(map[graph.NodeIndex]bool)

	if filter.Root != "" {
		rootIdx, ok := g.Lookup(filter.Root)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRoot, filter.Root)
		}
		var opts []graph.TraversalOption
		if filter.MaxDepth > 0 {
			opts = append(opts, graph.WithMaxDepth(filter.MaxDepth))
		}
		res, err := g.TransitiveClosure(ctx, filter.Root, opts...)
		if err != nil {
			return nil, err
		}
		keep[rootIdx] = true
		for _, id := range res.Nodes {
			idx, _ := g.Lookup(id)
			keep[idx] = true
		}
	} else {
		for idx := range g.Nodes() {
			keep[idx] = true
		}
	}

	for idx := range keep {
		node := g.NodeAt(idx)
		if re != nil && !re.MatchString(node.ID) {
			delete(keep, idx)
			continue
		}
		if !filter.IncludeExternal && node.Kind != graph.NodeKindSourceFile {
			delete(keep, idx)
		}
	}
	return keep, nil
}
