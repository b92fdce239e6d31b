// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/AleutianGraph/pkg/logging"
	"github.com/AleutianAI/AleutianGraph/services/depgraph"
	badgerstore "github.com/AleutianAI/AleutianGraph/services/depgraph/storage/badger"
	"github.com/AleutianAI/AleutianGraph/services/depgraph/telemetry"
)

const serviceVersion = "0.1.0"

var (
	serveWatch string
	serveDebug bool
)

// runServe starts the HTTP API and blocks until SIGINT or SIGTERM.
func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logLevel := logging.ParseLevel(cfg.Logging.Level)
	logger, err := logging.New(logging.Config{
		Level:   logLevel,
		LogDir:  cfg.Logging.Dir,
		Service: "depgraph",
	})
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Init(ctx, "depgraph", serviceVersion)
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	store, err := badgerstore.NewStore(badgerstore.StoreOptions{
		Dir:      cfg.Storage.Dir,
		InMemory: cfg.Storage.InMemory,
		Logger:   logger.Slog(),
	})
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}
	defer store.Close()

	svc, err := depgraph.NewService(cfg, logger, store)
	if err != nil {
		return err
	}
	if err := svc.RestoreLatest(ctx); err != nil {
		if !errors.Is(err, badgerstore.ErrSnapshotNotFound) {
			logger.Warn("snapshot restore failed", "error", err)
		}
	}

	if serveDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("depgraph"))
	if serveDebug {
		router.Use(gin.Logger())
	}
	depgraph.RegisterRoutes(router, svc, tel.MetricsHandler())

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutMs) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutMs) * time.Millisecond,
	}

	if serveWatch != "" {
		watcher, err := depgraph.NewWatcher(serveWatch, svc, logger)
		if err != nil {
			return fmt.Errorf("watch %s: %w", serveWatch, err)
		}
		if err := watcher.Start(ctx); err != nil {
			return fmt.Errorf("watch %s: %w", serveWatch, err)
		}
		defer watcher.Stop()
		logger.Info("watching source tree", "root", serveWatch)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("depgraph API listening",
			"addr", srv.Addr,
			"version", serviceVersion,
			"snapshot", svc.LatestID(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "forced shutdown: %v\n", err)
	}
	return nil
}
