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
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configPath string
	factsPath  string
	jsonOutput bool

	rootCmd = &cobra.Command{
		Use:   "depgraph",
		Short: "Dependency graph and impact analysis for polyglot codebases",
		Long: `depgraph builds deterministic file-level dependency graphs from
language-agnostic fact streams, detects dependency cycles, and scores
the blast radius of code changes.`,
		SilenceUsage: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the depgraph HTTP API server",
		RunE:  runServe, // Defined in cmd_serve.go
	}

	buildCmd = &cobra.Command{
		Use:   "build [path]",
		Short: "Build a dependency graph and print its stats",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runBuild, // Defined in cmd_build.go
	}

	cyclesCmd = &cobra.Command{
		Use:   "cycles [path]",
		Short: "Detect dependency cycles and suggest break points",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCycles, // Defined in cmd_analyze.go
	}

	impactCmd = &cobra.Command{
		Use:   "impact [path]",
		Short: "Score the blast radius of a change set",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runImpact, // Defined in cmd_analyze.go
	}

	exportCmd = &cobra.Command{
		Use:   "export [path]",
		Short: "Export a filtered subgraph as mermaid, dot, or d3 JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runExport, // Defined in cmd_analyze.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to a depgraph YAML config file")
	rootCmd.PersistentFlags().StringVar(&factsPath, "facts", "",
		"Read facts from this NDJSON file instead of scanning a source tree (\"-\" for stdin)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Output as JSON for scripting")

	serveCmd.Flags().StringVar(&serveWatch, "watch", "",
		"Watch this source tree and rebuild the latest snapshot on change")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false,
		"Enable gin debug mode and request logging")

	cyclesCmd.Flags().BoolVar(&cyclesFailOnHigh, "fail-on-high", false,
		"Exit 1 when any high-severity cycle is found")

	impactCmd.Flags().StringVar(&impactDiffPath, "diff", "",
		"Derive the change set from this unified diff (\"-\" for stdin)")
	impactCmd.Flags().StringSliceVar(&impactFiles, "file", nil,
		"Changed file path (repeatable); whole namespace counts as changed")
	impactCmd.Flags().BoolVar(&impactBreaking, "breaking", false,
		"Mark every change as breaking (signature or contract change)")
	impactCmd.Flags().StringVar(&impactThreshold, "threshold", "",
		"Exit 1 when risk reaches this level: low, medium, high, critical")

	exportCmd.Flags().StringVar(&exportFormat, "format", "mermaid",
		"Rendering format: mermaid, dot, d3")
	exportCmd.Flags().StringVar(&exportRoot, "root", "",
		"Restrict the diagram to nodes reachable from this node")
	exportCmd.Flags().StringVar(&exportPattern, "pattern", "",
		"Keep only nodes whose id matches this regular expression")
	exportCmd.Flags().IntVar(&exportDepth, "depth", 0,
		"Bound reachability from --root to this many hops (0 = unbounded)")
	exportCmd.Flags().BoolVar(&exportExternal, "external", false,
		"Include external package and dynamic sentinel nodes")

	rootCmd.AddCommand(serveCmd, buildCmd, cyclesCmd, impactCmd, exportCmd)
}
