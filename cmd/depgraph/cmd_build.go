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

	"github.com/spf13/cobra"
)

// runBuild builds a graph once and reports its shape.
func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	result, err := buildLocalGraph(cmd.Context(), cfg, args)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(struct {
			Stats       any `json:"stats"`
			Diagnostics any `json:"diagnostics,omitempty"`
		}{result.Stats, result.Diagnostics})
	}

	printDiagnostics(result.Diagnostics)
	fmt.Printf("nodes:    %d\n", result.Stats.NodesCreated)
	fmt.Printf("edges:    %d\n", result.Stats.EdgesCreated)
	fmt.Printf("skipped:  %d\n", result.Stats.SkippedFacts)
	fmt.Printf("duration: %dms\n", result.Stats.DurationMilli)
	return nil
}
