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
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianGraph/services/depgraph/cycles"
	"github.com/AleutianAI/AleutianGraph/services/depgraph/graph"
	"github.com/AleutianAI/AleutianGraph/services/depgraph/impact"
	"github.com/AleutianAI/AleutianGraph/services/depgraph/visualization"
)

type handlers struct {
	svc *Service
}

// writeError maps domain sentinels onto HTTP statuses with a uniform
// body.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNoSnapshot),
		errors.Is(err, graph.ErrUnknownNode),
		errors.Is(err, visualization.ErrUnknownRoot):
		status = http.StatusNotFound
	case errors.Is(err, graph.ErrGraphBuilding),
		errors.Is(err, graph.ErrCyclicGraph),
		errors.Is(err, cycles.ErrGraphNotReady),
		errors.Is(err, impact.ErrGraphNotReady),
		errors.Is(err, visualization.ErrGraphNotReady):
		status = http.StatusConflict
	case errors.Is(err, ErrEmptyRequest),
		errors.Is(err, impact.ErrBadDiff),
		errors.Is(err, visualization.ErrBadFilter),
		errors.Is(err, visualization.ErrUnknownFormat):
		status = http.StatusBadRequest
	case errors.Is(err, graph.ErrBuildTimeout):
		status = http.StatusGatewayTimeout
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

// handleBuild builds a new snapshot from NDJSON facts or a project root.
func (h *handlers) handleBuild(c *gin.Context) {
	ct := c.ContentType()

	var id string
	var result *graph.BuildResult
	var err error
	if strings.Contains(ct, "ndjson") {
		id, result, err = h.svc.BuildFromNDJSON(c.Request.Context(), c.Request.Body)
	} else {
		var req BuildRequest
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil || req.ProjectRoot == "" {
			writeError(c, ErrEmptyRequest)
			return
		}
		id, result, err = h.svc.BuildFromDirectory(c.Request.Context(), req.ProjectRoot)
	}
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, BuildResponse{
		SnapshotID:  id,
		Stats:       result.Stats,
		Diagnostics: result.Diagnostics,
	})
}

func (h *handlers) handleDependencies(c *gin.Context) {
	h.neighbors(c, false)
}

func (h *handlers) handleDependents(c *gin.Context) {
	h.neighbors(c, true)
}

func (h *handlers) neighbors(c *gin.Context, reverse bool) {
	id := c.Query("id")
	if id == "" {
		writeError(c, ErrEmptyRequest)
		return
	}
	snapshotID := c.Query("snapshot")
	g, err := h.svc.Snapshot(snapshotID)
	if err != nil {
		writeError(c, err)
		return
	}

	var nodes []string
	if reverse {
		nodes, err = g.DependentsOf(id)
	} else {
		nodes, err = g.DependenciesOf(id)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, NeighborsResponse{
		SnapshotID: orLatest(snapshotID, h.svc),
		ID:         id,
		Nodes:      nodes,
	})
}

func (h *handlers) handleClosure(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		writeError(c, ErrEmptyRequest)
		return
	}
	snapshotID := c.Query("snapshot")
	g, err := h.svc.Snapshot(snapshotID)
	if err != nil {
		writeError(c, err)
		return
	}

	var opts []graph.TraversalOption
	if depth, err := strconv.Atoi(c.DefaultQuery("depth", "0")); err == nil && depth > 0 {
		opts = append(opts, graph.WithMaxDepth(depth))
	}
	if c.Query("reverse") == "true" {
		opts = append(opts, graph.WithReverse())
	}

	result, err := g.TransitiveClosure(c.Request.Context(), id, opts...)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ClosureResponse{
		SnapshotID: orLatest(snapshotID, h.svc),
		ID:         id,
		Result:     result,
	})
}

func (h *handlers) handleOrder(c *gin.Context) {
	snapshotID := c.Query("snapshot")
	g, err := h.svc.Snapshot(snapshotID)
	if err != nil {
		writeError(c, err)
		return
	}
	order, err := g.TopologicalOrder()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, OrderResponse{
		SnapshotID: orLatest(snapshotID, h.svc),
		Order:      order,
	})
}

func (h *handlers) handleCycles(c *gin.Context) {
	report, err := h.svc.Cycles(c.Request.Context(), c.Query("snapshot"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *handlers) handleImpact(c *gin.Context) {
	var req ImpactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, ErrEmptyRequest)
		return
	}

	changes := req.Changes
	if len(changes) == 0 && req.Diff != "" {
		var err error
		changes, err = impact.ChangesFromDiff([]byte(req.Diff))
		if err != nil {
			writeError(c, err)
			return
		}
	}

	analysis, err := h.svc.Impact(c.Request.Context(), req.SnapshotID, changes)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (h *handlers) handleExport(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, ErrEmptyRequest)
		return
	}

	g, err := h.svc.Snapshot(req.SnapshotID)
	if err != nil {
		writeError(c, err)
		return
	}
	data, err := visualization.Export(c.Request.Context(), g, req.Filter)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := ExportResponse{
		SnapshotID: orLatest(req.SnapshotID, h.svc),
		Data:       data,
	}
	if req.Format != "" {
		rendered, err := visualization.Render(data, visualization.Format(req.Format))
		if err != nil {
			writeError(c, err)
			return
		}
		resp.Rendered = rendered
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"snapshot": h.svc.LatestID(),
	})
}

func orLatest(snapshotID string, svc *Service) string {
	if snapshotID == "" || snapshotID == latestKey {
		return svc.LatestID()
	}
	return snapshotID
}
