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

// Severity grades how urgent a cycle is to break.
type Severity string

const (
	// SeverityLow is a short cycle away from core paths.
	SeverityLow Severity = "low"

	// SeverityMedium is a cycle longer than three nodes.
	SeverityMedium Severity = "medium"

	// SeverityHigh is a cycle longer than five nodes, or one that passes
	// through a configured core path.
	SeverityHigh Severity = "high"
)

// Break strategies, chosen from the symbol shape of the weakest edge.
const (
	// StrategyExtractSharedTypes applies when the weakest edge only
	// carries type references.
	StrategyExtractSharedTypes = "extract-shared-types"

	// StrategyDependencyInjection applies when the weakest edge carries
	// at most two symbols.
	StrategyDependencyInjection = "dependency-injection"

	// StrategyExtractSharedModule is the general fallback.
	StrategyExtractSharedModule = "extract-shared-module"
)

// BreakSuggestion names the cheapest edge whose removal opens the cycle.
type BreakSuggestion struct {
	// From is the source node id of the suggested edge.
	From string `json:"from"`

	// To is the target node id of the suggested edge.
	To string `json:"to"`

	// Weight is the edge's derived strength; the suggestion always picks
	// the minimum-weight edge on the cycle.
	Weight float64 `json:"weight"`

	// Strategy is one of the Strategy constants.
	Strategy string `json:"strategy"`
}

// Cycle is one deduplicated circular dependency.
type Cycle struct {
	// Nodes is the cycle in edge order, rotated so the lexicographically
	// smallest id comes first. The closing edge back to Nodes[0] is
	// implied, not repeated.
	Nodes []string `json:"nodes"`

	// Severity grades the cycle.
	Severity Severity `json:"severity"`

	// Break is the suggested edge to remove.
	Break BreakSuggestion `json:"break"`
}

// Len returns the number of nodes on the cycle.
func (c *Cycle) Len() int {
	return len(c.Nodes)
}

// Report is the outcome of a cycle scan.
type Report struct {
	// Cycles is sorted by first node id, then by length, then by second
	// node id, so identical graphs always report identically.
	Cycles []Cycle `json:"cycles"`

	// Truncated reports whether the scan stopped at the cycle limit.
	Truncated bool `json:"truncated,omitempty"`

	// NodesScanned is the number of nodes visited.
	NodesScanned int `json:"nodes_scanned"`
}
