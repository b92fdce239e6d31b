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
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianGraph/pkg/logging"
	"github.com/AleutianAI/AleutianGraph/services/depgraph/config"
	"github.com/AleutianAI/AleutianGraph/services/depgraph/cycles"
	"github.com/AleutianAI/AleutianGraph/services/depgraph/facts"
	"github.com/AleutianAI/AleutianGraph/services/depgraph/graph"
	"github.com/AleutianAI/AleutianGraph/services/depgraph/impact"
	badgerstore "github.com/AleutianAI/AleutianGraph/services/depgraph/storage/badger"
)

// latestKey is the store key under which the newest snapshot persists.
const latestKey = "latest"

// Service owns immutable graph snapshots and the analysis components.
//
// Lifecycle:
//
//	A build produces a new frozen graph registered under a fresh uuid
//	and becomes the latest snapshot; older snapshots stay queryable
//	until evicted. Queries never observe a partially built graph.
//
// Thread Safety:
//
//	Safe for concurrent use. The snapshot map is guarded by a RWMutex;
//	the graphs themselves are frozen and lock-free to read.
type Service struct {
	cfg      *config.Config
	logger   *logging.Logger
	store    *badgerstore.Store
	builder  *graph.Builder
	analyzer *impact.Analyzer
	detector *cycles.Detector

	mu        sync.RWMutex
	snapshots map[string]*graph.Graph
	latest    string
}

// NewService wires the analysis components from configuration.
//
// The store may be nil; snapshots then live in memory only.
func NewService(cfg *config.Config, logger *logging.Logger, store *badgerstore.Store) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logging.Default()
	}

	detector, err := cycles.NewDetector(
		cycles.WithCorePathPatterns(cfg.Cycles.CorePathPatterns),
		cycles.WithMaxCycles(cfg.Cycles.MaxCycles),
	)
	if err != nil {
		return nil, fmt.Errorf("configure cycle detector: %w", err)
	}

	return &Service{
		cfg:    cfg,
		logger: logger,
		store:  store,
		builder: graph.NewBuilder(
			graph.WithAliasTable(cfg.Build.PathAliasTable),
			graph.WithBuilderWorkerCount(cfg.Build.WorkerCount),
			graph.WithBuildTimeout(time.Duration(cfg.Build.TimeoutMs)*time.Millisecond),
			graph.WithBuilderMaxNodes(cfg.Build.MaxNodes),
			graph.WithBuilderMaxEdges(cfg.Build.MaxEdges),
		),
		analyzer: impact.NewAnalyzer(
			impact.WithMaxTransitiveDepth(cfg.Impact.MaxTransitiveDepth),
			impact.WithCriticalPathFanIn(cfg.Impact.CriticalPathFanInThreshold),
		),
		detector:  detector,
		snapshots: make(map[string]*graph.Graph),
	}, nil
}

// BuildFromStream builds a new snapshot from a complete fact stream and
// makes it the latest.
func (s *Service) BuildFromStream(ctx context.Context, stream *facts.Stream) (string, *graph.BuildResult, error) {
	result, err := s.builder.Build(ctx, stream)
	if err != nil {
		return "", nil, err
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.snapshots[id] = result.Graph
	s.latest = id
	s.mu.Unlock()

	s.persist(ctx, id, result.Graph)

	s.logger.Info("graph snapshot built",
		"snapshot_id", id,
		"nodes", result.Stats.NodesCreated,
		"edges", result.Stats.EdgesCreated,
		"skipped_facts", result.Stats.SkippedFacts,
		"duration_ms", result.Stats.DurationMilli,
	)
	return id, result, nil
}

// BuildFromNDJSON builds a snapshot from an NDJSON fact stream.
func (s *Service) BuildFromNDJSON(ctx context.Context, r io.Reader) (string, *graph.BuildResult, error) {
	src := facts.NewNDJSONSource(r)
	stream, err := src.Extract(ctx)
	if err != nil {
		return "", nil, err
	}
	if stream.Len() == 0 {
		return "", nil, ErrEmptyRequest
	}
	id, result, err := s.BuildFromStream(ctx, stream)
	if err != nil {
		return "", nil, err
	}
	for _, le := range src.LineErrors() {
		result.Diagnostics = append(result.Diagnostics, graph.Diagnostic{
			Severity: graph.DiagError,
			Code:     graph.DiagCodeMalformedFact,
			Message:  fmt.Sprintf("line %d: %v", le.Line, le.Err),
		})
		result.Stats.SkippedFacts++
	}
	return id, result, nil
}

// BuildFromDirectory extracts facts from a source tree with the bundled
// reference extractors and builds a snapshot.
func (s *Service) BuildFromDirectory(ctx context.Context, root string) (string, *graph.BuildResult, error) {
	src := facts.NewDirectorySource(root,
		facts.WithWorkerCount(s.cfg.Build.WorkerCount),
		facts.WithIgnoreDirs(s.cfg.Build.IgnoreDirs...),
	)
	stream, err := src.Extract(ctx)
	if err != nil {
		return "", nil, err
	}
	id, result, err := s.BuildFromStream(ctx, stream)
	if err != nil {
		return "", nil, err
	}
	for _, fe := range src.FileErrors() {
		result.Diagnostics = append(result.Diagnostics, graph.Diagnostic{
			Severity: graph.DiagWarning,
			Code:     graph.DiagCodeMalformedFact,
			Path:     fe.Path,
			Message:  fe.Err.Error(),
		})
	}
	return id, result, nil
}

// Snapshot resolves a snapshot id to its frozen graph. An empty id or
// "latest" resolves to the newest snapshot.
func (s *Service) Snapshot(id string) (*graph.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id == "" || id == latestKey {
		id = s.latest
	}
	g, ok := s.snapshots[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoSnapshot, id)
	}
	return g, nil
}

// LatestID returns the newest snapshot id, or empty when none exists.
func (s *Service) LatestID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Cycles scans a snapshot for circular dependencies.
func (s *Service) Cycles(ctx context.Context, snapshotID string) (*cycles.Report, error) {
	g, err := s.Snapshot(snapshotID)
	if err != nil {
		return nil, err
	}
	return s.detector.Detect(ctx, g)
}

// Impact analyzes a change batch against a snapshot.
func (s *Service) Impact(ctx context.Context, snapshotID string, changes []impact.Change) (*impact.ImpactAnalysis, error) {
	g, err := s.Snapshot(snapshotID)
	if err != nil {
		return nil, err
	}
	return s.analyzer.Analyze(ctx, g, changes)
}

// RestoreLatest loads the persisted latest snapshot, if any, into memory.
// Called at startup so a restart serves the previous graph immediately.
func (s *Service) RestoreLatest(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	snap, err := s.store.LoadSnapshot(ctx, latestKey)
	if err != nil {
		return err
	}
	g, err := graph.FromSnapshot(snap)
	if err != nil {
		return err
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.snapshots[id] = g
	s.latest = id
	s.mu.Unlock()

	s.logger.Info("graph snapshot restored", "snapshot_id", id, "nodes", g.NodeCount())
	return nil
}

// persist writes the snapshot to the store under both its id and the
// latest key. Best effort: persistence failures are logged, never fatal
// to the build.
func (s *Service) persist(ctx context.Context, id string, g *graph.Graph) {
	if s.store == nil {
		return
	}
	snap, err := g.Snapshot()
	if err != nil {
		s.logger.Warn("snapshot serialization failed", "snapshot_id", id, "error", err)
		return
	}
	for _, key := range []string{id, latestKey} {
		if err := s.store.SaveSnapshot(ctx, key, snap); err != nil {
			s.logger.Warn("snapshot persistence failed", "key", key, "error", err)
		}
	}
}
