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
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the API on the given engine. The metrics handler
// is optional; pass nil to skip the scrape endpoint.
func RegisterRoutes(r *gin.Engine, svc *Service, metrics http.Handler) {
	h := &handlers{svc: svc}

	v1 := r.Group("/v1/depgraph")
	{
		v1.POST("/build", h.handleBuild)
		v1.GET("/dependencies", h.handleDependencies)
		v1.GET("/dependents", h.handleDependents)
		v1.GET("/closure", h.handleClosure)
		v1.GET("/order", h.handleOrder)
		v1.GET("/cycles", h.handleCycles)
		v1.POST("/impact", h.handleImpact)
		v1.POST("/export", h.handleExport)
		v1.GET("/health", h.handleHealth)
	}

	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}
}
