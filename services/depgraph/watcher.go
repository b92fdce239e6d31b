// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package depgraph

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/AleutianAI/AleutianGraph/pkg/logging"
)

// defaultDebounce coalesces editor save bursts into one rebuild.
const defaultDebounce = 2 * time.Second

var watchIgnoreDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	".idea":        true,
	"dist":         true,
	"build":        true,
}

// Watcher rebuilds the graph snapshot when the watched source tree
// changes.
//
// Description:
//
//	Events are debounced: a burst of writes triggers one rebuild after
//	the quiet period. Newly created directories are added to the watch
//	set. The previous snapshot stays queryable for the whole rebuild;
//	readers switch atomically when the new one lands.
type Watcher struct {
	root     string
	debounce time.Duration
	logger   *logging.Logger
	svc      *Service

	fsw  *fsnotify.Watcher
	done chan struct{}
}

// NewWatcher creates a watcher over a project root. Call Start to begin.
func NewWatcher(root string, svc *Service, logger *logging.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Watcher{
		root:     root,
		debounce: defaultDebounce,
		logger:   logger,
		svc:      svc,
		fsw:      fsw,
		done:     make(chan struct{}),
	}, nil
}

// Start watches the tree and rebuilds on change until the context ends
// or Stop is called. Blocks; run it on its own goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addTree(w.root); err != nil {
		return err
	}
	w.logger.Info("watching project root", "root", w.root)

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.done:
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.addTree(event.Name)
				}
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		case <-fire:
			timer = nil
			fire = nil
			w.logger.Info("source tree changed, rebuilding", "root", w.root)
			if _, _, err := w.svc.BuildFromDirectory(ctx, w.root); err != nil {
				w.logger.Error("rebuild failed", "error", err)
			}
		}
	}
}

// Stop ends the watch loop and releases the OS watches.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if watchIgnoreDirs[d.Name()] && path != root {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// relevant drops events for paths inside ignored directories.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return true
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if watchIgnoreDirs[part] {
			return false
		}
	}
	return true
}
