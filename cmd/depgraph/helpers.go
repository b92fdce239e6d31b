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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/AleutianAI/AleutianGraph/services/depgraph/config"
	"github.com/AleutianAI/AleutianGraph/services/depgraph/facts"
	"github.com/AleutianAI/AleutianGraph/services/depgraph/graph"
)

// loadConfig resolves the effective configuration for this invocation.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = "depgraph.yaml"
	}
	return config.Load(path)
}

// buildLocalGraph runs one in-process build for the one-shot commands.
//
// Description:
//
//	Facts come from --facts (NDJSON file, or stdin for "-") when set,
//	otherwise from scanning the positional source tree argument
//	(defaulting to the working directory) with the reference
//	extractors. Per-line and per-file extraction problems surface as
//	diagnostics on the result, not as a failed build.
func buildLocalGraph(ctx context.Context, cfg *config.Config, args []string) (*graph.BuildResult, error) {
	stream, diags, err := extractFacts(ctx, cfg, args)
	if err != nil {
		return nil, err
	}

	builder := graph.NewBuilder(
		graph.WithAliasTable(cfg.Build.PathAliasTable),
		graph.WithBuilderWorkerCount(cfg.Build.WorkerCount),
		graph.WithBuildTimeout(time.Duration(cfg.Build.TimeoutMs)*time.Millisecond),
		graph.WithBuilderMaxNodes(cfg.Build.MaxNodes),
		graph.WithBuilderMaxEdges(cfg.Build.MaxEdges),
	)
	result, err := builder.Build(ctx, stream)
	if err != nil {
		return nil, err
	}
	result.Diagnostics = append(result.Diagnostics, diags...)
	return result, nil
}

func extractFacts(ctx context.Context, cfg *config.Config, args []string) (*facts.Stream, []graph.Diagnostic, error) {
	if factsPath != "" {
		return extractNDJSON(ctx)
	}

	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	src := facts.NewDirectorySource(root,
		facts.WithWorkerCount(cfg.Build.WorkerCount),
		facts.WithIgnoreDirs(cfg.Build.IgnoreDirs...),
	)
	stream, err := src.Extract(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("scan %s: %w", root, err)
	}

	var diags []graph.Diagnostic
	for _, fe := range src.FileErrors() {
		diags = append(diags, graph.Diagnostic{
			Severity: graph.DiagWarning,
			Code:     graph.DiagCodeMalformedFact,
			Path:     fe.Path,
			Message:  fe.Err.Error(),
		})
	}
	return stream, diags, nil
}

func extractNDJSON(ctx context.Context) (*facts.Stream, []graph.Diagnostic, error) {
	var r io.Reader = os.Stdin
	if factsPath != "-" {
		f, err := os.Open(factsPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open facts: %w", err)
		}
		defer f.Close()
		r = f
	}

	src := facts.NewNDJSONSource(r)
	stream, err := src.Extract(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("read facts: %w", err)
	}

	var diags []graph.Diagnostic
	for _, le := range src.LineErrors() {
		diags = append(diags, graph.Diagnostic{
			Severity: graph.DiagError,
			Code:     graph.DiagCodeMalformedFact,
			Message:  le.Error(),
		})
	}
	return stream, diags, nil
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printDiagnostics lists build diagnostics on stderr in text mode.
func printDiagnostics(diags []graph.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintf(os.Stderr, "%s [%s] %s", d.Severity, d.Code, d.Message)
		if d.Path != "" {
			fmt.Fprintf(os.Stderr, " (%s)", d.Path)
		}
		fmt.Fprintln(os.Stderr)
	}
}
