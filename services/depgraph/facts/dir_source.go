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
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// defaultIgnoreDirs are directory names skipped during traversal.
var defaultIgnoreDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	".idea":        true,
	"dist":         true,
	"build":        true,
}

// DirectorySourceOptions configures a DirectorySource.
type DirectorySourceOptions struct {
	// Registry maps file extensions to extractors.
	// Default: DefaultRegistry().
	Registry *Registry

	// WorkerCount is the number of parallel extraction workers.
	// Default: runtime.NumCPU().
	WorkerCount int

	// IgnoreDirs are directory names to skip in addition to the defaults.
	IgnoreDirs []string
}

// DirectorySourceOption is a functional option for DirectorySource.
type DirectorySourceOption func(*DirectorySourceOptions)

// WithRegistry sets the extractor registry.
func WithRegistry(r *Registry) DirectorySourceOption {
	return func(o *DirectorySourceOptions) {
		o.Registry = r
	}
}

// WithWorkerCount sets the number of parallel extraction workers.
func WithWorkerCount(n int) DirectorySourceOption {
	return func(o *DirectorySourceOptions) {
		o.WorkerCount = n
	}
}

// WithIgnoreDirs adds directory names to skip.
func WithIgnoreDirs(dirs ...string) DirectorySourceOption {
	return func(o *DirectorySourceOptions) {
		o.IgnoreDirs = append(o.IgnoreDirs, dirs...)
	}
}

// DirectorySource walks a project root and extracts facts from every
// supported source file.
//
// Description:
//
//	Files are extracted in parallel; per-file failures are collected as
//	FileErrors rather than failing the whole walk, since partial data is
//	preferable to a hard failure for a best-effort analysis tool. The
//	merged stream is ordered by file path so that identical inputs always
//	produce an identical stream.
//
// Thread Safety:
//
//	Safe for concurrent use; each Extract call has its own state.
type DirectorySource struct {
	root    string
	options DirectorySourceOptions

	mu         sync.Mutex
	fileErrors []FileError
}

// FileError records one file that could not be extracted.
type FileError struct {
	// Path is the project-relative file path.
	Path string

	// Err is the extraction error.
	Err error
}

// NewDirectorySource creates a source rooted at the given directory.
func NewDirectorySource(root string, opts ...DirectorySourceOption) *DirectorySource {
	options := DirectorySourceOptions{
		Registry:    DefaultRegistry(),
		WorkerCount: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.WorkerCount <= 0 {
		options.WorkerCount = runtime.NumCPU()
	}
	return &DirectorySource{root: root, options: options}
}

// FileErrors returns per-file errors from the last Extract call.
func (s *DirectorySource) FileErrors() []FileError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]FileError(nil), s.fileErrors...)
}

// Extract walks the root and merges per-file extractor output.
func (s *DirectorySource) Extract(ctx context.Context) (*Stream, error) {
	s.mu.Lock()
	s.fileErrors = nil
	s.mu.Unlock()

	ignore := make(map[string]bool, len(defaultIgnoreDirs)+len(s.options.IgnoreDirs))
	for d := range defaultIgnoreDirs {
		ignore[d] = true
	}
	for _, d := range s.options.IgnoreDirs {
		ignore[d] = true
	}

	var paths []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if ignore[d.Name()] && path != s.root {
				return filepath.SkipDir
			}
			return nil
		}
		if _, lookupErr := s.options.Registry.ForFile(path); lookupErr == nil {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Stable input order regardless of file-system traversal quirks.
	sort.Strings(paths)

	streams := make([]*Stream, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.options.WorkerCount)

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			rel, relErr := filepath.Rel(s.root, path)
			if relErr != nil {
				rel = path
			}
			rel = filepath.ToSlash(rel)

			content, readErr := os.ReadFile(path)
			if readErr != nil {
				s.recordFileError(rel, readErr)
				return nil
			}

			extractor, lookupErr := s.options.Registry.ForFile(path)
			if lookupErr != nil {
				return nil
			}

			stream, extractErr := extractor.Extract(gctx, content, rel)
			if extractErr != nil {
				s.recordFileError(rel, extractErr)
				return nil
			}
			streams[i] = stream
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := NewStream()
	for _, stream := range streams {
		merged.Merge(stream)
	}
	return merged, nil
}

func (s *DirectorySource) recordFileError(path string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fileErrors = append(s.fileErrors, FileError{Path: path, Err: err})
}

// IsTestFile reports whether a path looks like a test file under the
// default co-location conventions of the bundled languages. Exposed so the
// impact analyzer's default test associator and callers share one rule.
func IsTestFile(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(base, "_test.go"),
		strings.HasPrefix(base, "test_") && strings.HasSuffix(base, ".py"),
		strings.HasSuffix(base, "_test.py"),
		strings.Contains(base, ".test."),
		strings.Contains(base, ".spec."):
		return true
	}
	for _, dir := range strings.Split(filepath.ToSlash(filepath.Dir(path)), "/") {
		if dir == "__tests__" || dir == "tests" || dir == "test" {
			return true
		}
	}
	return false
}

// TestFileCandidates returns the sibling test file names the default
// conventions predict for a source path, whether or not they exist.
func TestFileCandidates(path string) []string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	dir, base := filepath.Split(stem)

	switch ext {
	case ".go":
		return []string{stem + "_test.go"}
	case ".py":
		return []string{dir + "test_" + base + ".py", stem + "_test.py"}
	case ".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs":
		return []string{
			stem + ".test" + ext,
			stem + ".spec" + ext,
			dir + "__tests__/" + base + ".test" + ext,
		}
	default:
		return nil
	}
}
