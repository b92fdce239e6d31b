// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package facts

import "errors"

// Sentinel errors for fact production.
var (
	// ErrMalformedFact is returned for a record that does not match the
	// node/edge shape. A single malformed fact is skipped and recorded as
	// a diagnostic; it never fails a whole stream.
	ErrMalformedFact = errors.New("malformed fact")

	// ErrUnsupportedLanguage is returned when no extractor is registered
	// for a file's extension.
	ErrUnsupportedLanguage = errors.New("no extractor for language")

	// ErrFileTooLarge is returned when input content exceeds the maximum
	// file size an extractor will accept.
	ErrFileTooLarge = errors.New("file exceeds maximum size limit")

	// ErrParseFailed is returned when tree-sitter cannot produce a parse
	// tree for a file.
	ErrParseFailed = errors.New("parse failed")
)
