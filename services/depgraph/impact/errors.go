// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package impact computes the blast radius and risk of proposed file-level
// changes against a frozen dependency graph.
package impact

import "errors"

var (
	// ErrGraphNotReady indicates the graph is still building.
	ErrGraphNotReady = errors.New("graph is not frozen")

	// ErrUnknownNode indicates a change references a file absent from the
	// graph. The change is skipped, not fatal to the batch.
	ErrUnknownNode = errors.New("change references unknown node")

	// ErrBadDiff indicates a unified diff could not be parsed.
	ErrBadDiff = errors.New("unparseable unified diff")
)
