// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package impact

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// declPatterns pull an exported-looking symbol name out of a changed
// line. Best effort: a miss leaves the export set empty, which the
// analyzer treats as a whole-namespace change (the conservative reading).
var declPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^func\s+(?:\([^)]*\)\s+)?([A-Z][A-Za-z0-9_]*)`),
	regexp.MustCompile(`^type\s+([A-Z][A-Za-z0-9_]*)`),
	regexp.MustCompile(`^(?:export\s+)(?:default\s+)?(?:async\s+)?(?:function|class|const|let|var|interface|type|enum)\s+([A-Za-z_$][A-Za-z0-9_$]*)`),
	regexp.MustCompile(`^(?:async\s+)?def\s+([A-Za-z_][A-Za-z0-9_]*)`),
	regexp.MustCompile(`^class\s+([A-Za-z_][A-Za-z0-9_]*)`),
}

// ChangesFromDiff derives a change batch from a unified diff.
//
// Description:
//
//	One Change per changed file. Modified exports are recovered from
//	added or removed declaration lines when the language's declaration
//	shape makes that determinable; otherwise the set stays empty and the
//	whole namespace counts as changed. Callers set IsBreaking
//	themselves; a textual diff cannot know.
//
// Errors:
//
//	ErrBadDiff - The input is not a parseable unified diff.
func ChangesFromDiff(raw []byte) ([]Change, error) {
	files, err := diff.ParseMultiFileDiff(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDiff, err)
	}

	changes := make([]Change, 0, len(files))
	for _, fd := range files {
		file := stripDiffPrefix(fd.NewName)
		if file == "" || file == "/dev/null" {
			file = stripDiffPrefix(fd.OrigName)
		}
		if file == "" || file == "/dev/null" {
			continue
		}

		ch := Change{File: file}
		seen := map[string]bool{}
		for _, hunk := range fd.Hunks {
			for _, line := range strings.Split(string(hunk.Body), "\n") {
				if len(line) < 2 || (line[0] != '+' && line[0] != '-') {
					continue
				}
				if sym := declaredSymbol(strings.TrimSpace(line[1:])); sym != "" && !seen[sym] {
					seen[sym] = true
					ch.ModifiedExports = append(ch.ModifiedExports, sym)
				}
			}
		}
		changes = append(changes, ch)
	}
	return changes, nil
}

func declaredSymbol(line string) string {
	for _, re := range declPatterns {
		if m := re.FindStringSubmatch(line); m != nil {
			return m[1]
		}
	}
	return ""
}

func stripDiffPrefix(name string) string {
	name = strings.TrimPrefix(name, "a/")
	return strings.TrimPrefix(name, "b/")
}
