// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package depgraph is the service layer: it owns built graph snapshots,
// serves queries over them, and exposes the HTTP API.
package depgraph

import "errors"

var (
	// ErrNoSnapshot indicates no graph has been built yet, or the
	// requested snapshot id is unknown.
	ErrNoSnapshot = errors.New("no such graph snapshot")

	// ErrEmptyRequest indicates a request body carried no usable input.
	ErrEmptyRequest = errors.New("empty request")
)
