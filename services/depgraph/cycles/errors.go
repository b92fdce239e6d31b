// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cycles finds circular dependencies in a frozen graph, grades
// their severity, and suggests the cheapest edge to break each cycle.
package cycles

import "errors"

var (
	// ErrGraphNotReady indicates the graph is still building and cannot
	// be analyzed.
	ErrGraphNotReady = errors.New("graph is not frozen")

	// ErrInvalidPattern indicates a core-path pattern failed to compile.
	ErrInvalidPattern = errors.New("invalid core path pattern")
)
