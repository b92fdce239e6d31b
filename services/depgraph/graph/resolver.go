// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"errors"
	"path"
	"sort"
	"strings"

	"golang.org/x/mod/module"
)

// resolutionRule identifies which rule resolved a target specifier.
type resolutionRule int

const (
	ruleNone resolutionRule = iota
	ruleRelativePath
	ruleAliasTable
	rulePackageManager
	ruleExternalFallback
	ruleDynamic
)

// resolution is the outcome of resolving one edge fact's target.
type resolution struct {
	// id is the canonical node id the target resolved to. Empty when the
	// edge must be routed to the DYNAMIC sentinel.
	id string

	// kind is the node kind to materialize if the id is not yet present.
	kind NodeKind

	// rule is the resolution rule that produced the id.
	rule resolutionRule

	// ambiguous is set when the id was chosen among multiple
	// case-insensitive candidates.
	ambiguous bool

	// candidates holds the competing ids of an ambiguous resolution.
	candidates []string
}

// probeExtensions are tried, in order, when a specifier omits its file
// extension. The order is fixed so resolution is deterministic.
var probeExtensions = []string{
	"", ".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs", ".py", ".go",
	"/index.ts", "/index.tsx", "/index.js", "/index.jsx", "/__init__.py",
}

// resolver resolves raw target specifiers against the node table built in
// pass 1. It is read-only over the table and safe for concurrent use, which
// is what allows pass 2 to shard edge facts across workers.
type resolver struct {
	// known maps canonical id to presence (pass-1 source files only).
	known map[string]bool

	// lower maps lowercase id to all matching canonical ids, for
	// case-insensitive filesystems.
	lower map[string][]string

	// aliases is the configured path-alias table, longest prefix wins.
	// Alias resolution always takes precedence over package-manager
	// resolution; the precedence is fixed and documented rather than
	// guessed per input.
	aliases map[string]string

	// aliasKeys is the alias prefixes sorted by descending length.
	aliasKeys []string
}

// newResolver indexes the known source-file ids.
func newResolver(ids []string, aliases map[string]string) *resolver {
	r := &resolver{
		known:   make(map[string]bool, len(ids)),
		lower:   make(map[string][]string, len(ids)),
		aliases: aliases,
	}
	for _, id := range ids {
		r.known[id] = true
		lc := strings.ToLower(id)
		r.lower[lc] = append(r.lower[lc], id)
	}
	for lc := range r.lower {
		sort.Strings(r.lower[lc])
	}
	for prefix := range aliases {
		r.aliasKeys = append(r.aliasKeys, prefix)
	}
	sort.Slice(r.aliasKeys, func(i, j int) bool {
		if len(r.aliasKeys[i]) != len(r.aliasKeys[j]) {
			return len(r.aliasKeys[i]) > len(r.aliasKeys[j])
		}
		return r.aliasKeys[i] < r.aliasKeys[j]
	})
	return r
}

// resolve maps a raw specifier to a canonical node id.
//
// Resolution order is deterministic: exact relative path, then the
// configured alias table, then package-manager style resolution against the
// project root, then the external-package fallback. Targets no rule can
// resolve go to the DYNAMIC sentinel; silently dropping a dependency edge
// would under-report blast radius downstream.
func (r *resolver) resolve(from, target string) resolution {
	if target == "" {
		return resolution{rule: ruleDynamic}
	}

	// Rule 1: exact relative path.
	if strings.HasPrefix(target, "./") || strings.HasPrefix(target, "../") {
		joined := path.Join(path.Dir(from), target)
		if res, ok := r.probe(joined); ok {
			res.rule = ruleRelativePath
			return res
		}
		// A relative specifier that misses every probe is still a
		// project file reference; materialize it so the edge is kept.
		return resolution{
			id:   path.Clean(joined),
			kind: NodeKindSourceFile,
			rule: ruleRelativePath,
		}
	}

	// Rule 2: configured path-alias table.
	for _, prefix := range r.aliasKeys {
		if target == prefix || strings.HasPrefix(target, prefix+"/") {
			replaced := r.aliases[prefix] + strings.TrimPrefix(target, prefix)
			if res, ok := r.probe(replaced); ok {
				res.rule = ruleAliasTable
				return res
			}
			return resolution{
				id:   path.Clean(replaced),
				kind: NodeKindSourceFile,
				rule: ruleAliasTable,
			}
		}
	}

	// Rule 3: package-manager resolution against the project root.
	if res, ok := r.probe(target); ok {
		res.rule = rulePackageManager
		return res
	}

	// Rule 4: external-package fallback.
	return resolution{
		id:   target,
		kind: NodeKindExternalPackage,
		rule: ruleExternalFallback,
	}
}

// probe tries the fixed extension ladder against the known node table,
// including a case-insensitive pass per candidate.
func (r *resolver) probe(base string) (resolution, bool) {
	base = path.Clean(base)
	for _, ext := range probeExtensions {
		candidate := base + ext
		if r.known[candidate] {
			return resolution{id: candidate, kind: NodeKindSourceFile}, true
		}
		matches := r.lower[strings.ToLower(candidate)]
		if len(matches) > 0 {
			// Case-only mismatch. Pick the lexicographically smallest
			// match so the choice is reproducible, and report the
			// ambiguity as a warning-level diagnostic.
			return resolution{
				id:         matches[0],
				kind:       NodeKindSourceFile,
				ambiguous:  len(matches) > 1 || matches[0] != candidate,
				candidates: matches,
			}, true
		}
	}
	return resolution{}, false
}

// checkNodePath validates the syntax of a node/file path from the fact
// stream. Invalid paths make the owning fact malformed.
func checkNodePath(p string) error {
	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return errInvalidPath(p)
	}
	return module.CheckFilePath(cleaned)
}

// checkSpecifier validates the syntax of a raw target specifier. Relative
// prefixes and scoped npm-style specifiers ("@scope/pkg") are allowed;
// control characters and backslashes are not.
func checkSpecifier(s string) error {
	if s == "" {
		return errInvalidPath(s)
	}

	rest := s
	for strings.HasPrefix(rest, "./") || strings.HasPrefix(rest, "../") {
		rest = strings.TrimPrefix(rest, "./")
		rest = strings.TrimPrefix(rest, "../")
	}
	rest = strings.TrimPrefix(rest, "@")
	rest = strings.Trim(rest, "/")
	if rest == "" || rest == "." || rest == ".." {
		// Pure relative references ("./", "..") are valid specifiers.
		if strings.HasPrefix(s, ".") {
			return nil
		}
		return errInvalidPath(s)
	}

	if strings.HasPrefix(s, ".") {
		return module.CheckFilePath(path.Clean(rest))
	}
	return module.CheckImportPath(rest)
}

func errInvalidPath(p string) error {
	return &module.InvalidPathError{Kind: "file", Path: p, Err: errEmptyOrEscaping}
}

var errEmptyOrEscaping = errors.New("path is empty or escapes the project root")
