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

// Change is one proposed file-level modification.
type Change struct {
	// File is the node id of the changed file.
	File string `json:"file"`

	// ModifiedExports are the exported symbols whose signature or
	// behavior changed. Empty means the whole namespace is treated as
	// changed.
	ModifiedExports []string `json:"modified_exports,omitempty"`

	// IsBreaking is a caller-supplied hint that the change breaks
	// compatibility.
	IsBreaking bool `json:"is_breaking,omitempty"`
}

// ChangeError reports a change that could not be analyzed. The rest of
// the batch still is.
type ChangeError struct {
	// Change is the rejected input.
	Change Change `json:"change"`

	// Reason is a human-readable explanation.
	Reason string `json:"reason"`
}

// RiskLevel buckets a risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"      // score < 25
	RiskMedium   RiskLevel = "medium"   // 25 <= score < 50
	RiskHigh     RiskLevel = "high"     // 50 <= score < 75
	RiskCritical RiskLevel = "critical" // score >= 75
)

// levelFor buckets a capped score.
func levelFor(score int) RiskLevel {
	switch {
	case score >= 75:
		return RiskCritical
	case score >= 50:
		return RiskHigh
	case score >= 25:
		return RiskMedium
	default:
		return RiskLow
	}
}

// RiskScore is the additive, capped, explainable risk heuristic.
type RiskScore struct {
	// Score is in [0, 100].
	Score int `json:"score"`

	// Level buckets the score.
	Level RiskLevel `json:"level"`

	// Factors lists every contributing factor verbatim, in the order the
	// ladder applied them. Retained for auditability; the score must be
	// explainable to a human reviewer.
	Factors []string `json:"factors"`
}

// ImpactAnalysis is the computed blast radius and risk of one change
// batch. A pure value with no lifecycle of its own.
type ImpactAnalysis struct {
	// DirectlyAffected holds every change file plus the sources of every
	// affected incoming edge, sorted. Always disjoint from
	// TransitivelyAffected.
	DirectlyAffected []string `json:"directly_affected"`

	// TransitivelyAffected holds nodes reached by the bounded reverse
	// walk from the directly affected set, sorted.
	TransitivelyAffected []string `json:"transitively_affected"`

	// TestFilesAffected holds the test files associated with affected
	// nodes, sorted.
	TestFilesAffected []string `json:"test_files_affected"`

	// Risk is the additive risk assessment.
	Risk RiskScore `json:"risk"`

	// Recommendations are advisory strings derived only from which risk
	// factor categories fired, so identical input yields identical text.
	Recommendations []string `json:"recommendations"`

	// Skipped reports changes rejected for referencing unknown nodes.
	Skipped []ChangeError `json:"skipped,omitempty"`
}
