// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command depgraph is the dependency graph and impact analysis engine.
//
// It runs in two modes:
//
//   - serve: a long-lived HTTP API holding graph snapshots in memory,
//     persisting the latest one to the snapshot store, optionally
//     watching a source tree and rebuilding on change.
//   - one-shot: build, cycles, impact, and export run a single analysis
//     against a source tree or an NDJSON fact stream and print the
//     result.
//
// Usage:
//
//	depgraph serve --config depgraph.yaml
//	depgraph serve --watch ./src
//	depgraph build ./src
//	depgraph build --facts facts.ndjson --json
//	depgraph cycles ./src
//	depgraph impact ./src --diff changes.patch
//	depgraph impact ./src --file pkg/auth/token.go --breaking
//	depgraph export ./src --format mermaid --root cmd/api/main.go
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
