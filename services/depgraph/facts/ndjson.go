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

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Maximum size of a single NDJSON fact line (1MB). Lines beyond this are
// recorded as malformed rather than growing the scanner buffer unbounded.
const maxLineBytes = 1 << 20

// LineError records one NDJSON line that could not be ingested.
type LineError struct {
	// Line is the 1-based line number in the input.
	Line int

	// Err is the decode or validation error.
	Err error
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// NDJSONSource reads a fact stream from newline-delimited JSON.
//
// Description:
//
//	Each line is one Fact record: {"kind":"node","node":{...}} or
//	{"kind":"edge","edge":{...}}. Undecodable lines are skipped and
//	reported via LineErrors after Extract returns; partial data is
//	preferable to a hard failure for a best-effort analysis tool.
//
// Thread Safety:
//
//	Not safe for concurrent use. Create one NDJSONSource per input.
type NDJSONSource struct {
	r          io.Reader
	lineErrors []LineError
}

// NewNDJSONSource creates a source reading from r.
func NewNDJSONSource(r io.Reader) *NDJSONSource {
	return &NDJSONSource{r: r}
}

// LineErrors returns the per-line errors accumulated by the last Extract.
func (s *NDJSONSource) LineErrors() []LineError {
	return s.lineErrors
}

// Extract decodes the full input into a Stream.
//
// Description:
//
//	Reads to EOF, decoding one Fact per line. Blank lines are ignored.
//	Lines that fail JSON decoding or shape validation are recorded in
//	LineErrors and skipped. The context is checked between lines so very
//	large inputs remain cancellable.
//
// Outputs:
//
//	*Stream - All successfully decoded facts, in input order.
//	error - Context cancellation or an underlying read error. Per-line
//	        problems are NOT returned here.
func (s *NDJSONSource) Extract(ctx context.Context) (*Stream, error) {
	stream := NewStream()
	s.lineErrors = nil

	scanner := bufio.NewScanner(s.r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	line := 0
	for scanner.Scan() {
		line++
		if line%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var f Fact
		if err := json.Unmarshal([]byte(text), &f); err != nil {
			s.lineErrors = append(s.lineErrors, LineError{
				Line: line,
				Err:  fmt.Errorf("%w: %v", ErrMalformedFact, err),
			})
			continue
		}

		if err := stream.Add(f); err != nil {
			s.lineErrors = append(s.lineErrors, LineError{Line: line, Err: err})
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read fact stream: %w", err)
	}

	return stream, nil
}
