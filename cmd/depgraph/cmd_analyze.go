// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianGraph/services/depgraph/cycles"
	"github.com/AleutianAI/AleutianGraph/services/depgraph/impact"
	"github.com/AleutianAI/AleutianGraph/services/depgraph/visualization"
)

var (
	cyclesFailOnHigh bool

	impactDiffPath  string
	impactFiles     []string
	impactBreaking  bool
	impactThreshold string

	exportFormat   string
	exportRoot     string
	exportPattern  string
	exportDepth    int
	exportExternal bool
)

// riskRank orders risk levels for threshold comparison.
var riskRank = map[impact.RiskLevel]int{
	impact.RiskLow:      0,
	impact.RiskMedium:   1,
	impact.RiskHigh:     2,
	impact.RiskCritical: 3,
}

// runCycles builds a graph and reports its dependency cycles.
func runCycles(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	result, err := buildLocalGraph(cmd.Context(), cfg, args)
	if err != nil {
		return err
	}

	detector, err := cycles.NewDetector(
		cycles.WithCorePathPatterns(cfg.Cycles.CorePathPatterns),
		cycles.WithMaxCycles(cfg.Cycles.MaxCycles),
	)
	if err != nil {
		return err
	}
	report, err := detector.Detect(cmd.Context(), result.Graph)
	if err != nil {
		return err
	}

	if jsonOutput {
		if err := printJSON(report); err != nil {
			return err
		}
	} else {
		printCyclesText(report)
	}

	if cyclesFailOnHigh {
		for _, c := range report.Cycles {
			if c.Severity == cycles.SeverityHigh {
				return fmt.Errorf("high-severity cycle found: %s", strings.Join(c.Nodes, " -> "))
			}
		}
	}
	return nil
}

func printCyclesText(report *cycles.Report) {
	if len(report.Cycles) == 0 {
		fmt.Println("no cycles found")
		return
	}
	for i, c := range report.Cycles {
		fmt.Printf("cycle %d [%s]: %s\n", i+1, c.Severity, strings.Join(c.Nodes, " -> "))
		fmt.Printf("  break: %s -> %s (%s)\n",
			c.Break.From, c.Break.To, c.Break.Strategy)
	}
	if report.Truncated {
		fmt.Println("(cycle list truncated)")
	}
}

// runImpact builds a graph, derives a change set, and scores its blast
// radius.
func runImpact(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	changes, err := resolveChanges()
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		return fmt.Errorf("no changes given; use --diff or --file")
	}

	result, err := buildLocalGraph(cmd.Context(), cfg, args)
	if err != nil {
		return err
	}

	analyzer := impact.NewAnalyzer(
		impact.WithMaxTransitiveDepth(cfg.Impact.MaxTransitiveDepth),
		impact.WithCriticalPathFanIn(cfg.Impact.CriticalPathFanInThreshold),
	)
	analysis, err := analyzer.Analyze(cmd.Context(), result.Graph, changes)
	if err != nil {
		return err
	}

	if jsonOutput {
		if err := printJSON(analysis); err != nil {
			return err
		}
	} else {
		printImpactText(analysis)
	}

	if impactThreshold != "" {
		threshold, ok := riskRank[impact.RiskLevel(impactThreshold)]
		if !ok {
			return fmt.Errorf("unknown threshold %q", impactThreshold)
		}
		if riskRank[analysis.Risk.Level] >= threshold {
			return fmt.Errorf("risk %s (score %d) reaches threshold %s",
				analysis.Risk.Level, analysis.Risk.Score, impactThreshold)
		}
	}
	return nil
}

// resolveChanges turns the impact flags into a change batch. --file
// entries and a --diff are additive; files named both ways stay as two
// entries and the analyzer deduplicates the affected sets.
func resolveChanges() ([]impact.Change, error) {
	var changes []impact.Change

	if impactDiffPath != "" {
		raw, err := readPathOrStdin(impactDiffPath)
		if err != nil {
			return nil, fmt.Errorf("read diff: %w", err)
		}
		changes, err = impact.ChangesFromDiff(raw)
		if err != nil {
			return nil, err
		}
	}
	for _, f := range impactFiles {
		changes = append(changes, impact.Change{File: f})
	}
	if impactBreaking {
		for i := range changes {
			changes[i].IsBreaking = true
		}
	}
	return changes, nil
}

func readPathOrStdin(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func printImpactText(analysis *impact.ImpactAnalysis) {
	fmt.Printf("risk: %s (score %d)\n", analysis.Risk.Level, analysis.Risk.Score)
	for _, f := range analysis.Risk.Factors {
		fmt.Printf("  - %s\n", f)
	}
	fmt.Printf("directly affected (%d):\n", len(analysis.DirectlyAffected))
	for _, id := range analysis.DirectlyAffected {
		fmt.Printf("  %s\n", id)
	}
	fmt.Printf("transitively affected (%d):\n", len(analysis.TransitivelyAffected))
	for _, id := range analysis.TransitivelyAffected {
		fmt.Printf("  %s\n", id)
	}
	if len(analysis.TestFilesAffected) > 0 {
		fmt.Printf("tests to run (%d):\n", len(analysis.TestFilesAffected))
		for _, id := range analysis.TestFilesAffected {
			fmt.Printf("  %s\n", id)
		}
	}
	for _, rec := range analysis.Recommendations {
		fmt.Printf("recommendation: %s\n", rec)
	}
	for _, sk := range analysis.Skipped {
		fmt.Fprintf(os.Stderr, "skipped change: %s: %s\n", sk.Change.File, sk.Reason)
	}
}

// runExport builds a graph and renders a filtered subgraph diagram to
// stdout.
func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	result, err := buildLocalGraph(cmd.Context(), cfg, args)
	if err != nil {
		return err
	}

	filter := visualization.Filter{
		PathPattern:     exportPattern,
		Root:            exportRoot,
		MaxDepth:        exportDepth,
		IncludeExternal: exportExternal,
	}
	data, err := visualization.Export(cmd.Context(), result.Graph, filter)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(data)
	}
	rendered, err := visualization.Render(data, visualization.Format(exportFormat))
	if err != nil {
		return err
	}
	fmt.Println(rendered)
	return nil
}
