// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command quill starts the Quill content-buffer version-control server.
//
// Usage:
//
//	go run ./cmd/quill
//	go run ./cmd/quill -port 9090 -data ~/.quill/data
//
// Environment:
//
//	OPENAI_API_KEY       enables the rewrite and embedding collaborators
//	QUALITY_SERVICE_URL  enables quality analysis and AI detection
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8080/v1/quill/health
//
//	# Create a working buffer
//	curl -X POST http://localhost:8080/v1/quill/sessions/demo/buffers \
//	  -H "Content-Type: application/json" \
//	  -d '{"name": "draft", "content": "It was a dark and stormy night."}'
//
//	# Commit after editing
//	curl -X POST http://localhost:8080/v1/quill/sessions/demo/buffers/draft/commit \
//	  -H "Content-Type: application/json" \
//	  -d '{"message": "First draft"}'
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"

	"github.com/AleutianAI/AleutianQuill/pkg/logging"
	quill "github.com/AleutianAI/AleutianQuill/services/quill"
	"github.com/AleutianAI/AleutianQuill/services/quill/buffer"
	"github.com/AleutianAI/AleutianQuill/services/quill/provenance"
	"github.com/AleutianAI/AleutianQuill/services/quill/storage"
	"github.com/AleutianAI/AleutianQuill/services/quill/telemetry"
	"github.com/AleutianAI/AleutianQuill/services/quill/transform"
)

func main() {
	port := flag.Int("port", 8080, "Port to listen on")
	debug := flag.Bool("debug", false, "Enable debug mode")
	dataDir := flag.String("data", os.Getenv("QUILL_DATA_DIR"), "Data directory for persistence (empty: in-memory)")
	flag.Parse()

	level := logging.LevelInfo
	if *debug {
		level = logging.LevelDebug
	}
	logger := logging.New(logging.Config{
		Level:   level,
		Service: "quill",
		LogDir:  os.Getenv("QUILL_LOG_DIR"),
	})
	defer logger.Close()
	slogger := logger.Slog()

	if *debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.DefaultConfig())
	if err != nil {
		logger.Error("Failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Warn("Telemetry shutdown error", "error", err)
		}
	}()

	metrics, err := telemetry.NewMetrics(otel.Meter("quill"))
	if err != nil {
		logger.Error("Failed to create metrics", "error", err)
		os.Exit(1)
	}

	repo := buffer.NewRepository()
	tracker := provenance.NewTracker(slogger)

	// Persistence is optional: without -data everything stays in memory.
	var (
		store    *storage.Store
		archive  *storage.Archive
		works    *storage.Archive
		database *storage.DB
	)
	if *dataDir != "" {
		cfg := storage.DefaultConfig(*dataDir)
		if *debug {
			cfg.Logger = slogger
		}
		database, err = storage.Open(cfg)
		if err != nil {
			logger.Error("Failed to open database", "path", *dataDir, "error", err)
			os.Exit(1)
		}
		defer database.Close()

		store = storage.NewStore(database, slogger)
		archive = storage.NewArchive(database, "archive")
		works = storage.NewArchive(database, "works")

		if err := store.Load(repo, tracker); err != nil {
			logger.Error("Failed to load persisted state", "error", err)
			os.Exit(1)
		}
		logger.Info("Persistence enabled", "path", *dataDir,
			"buffers", repo.Len(), "chains", tracker.Len())
	}

	dispatcherCfg := transform.Config{
		Repo:    repo,
		Tracker: tracker,
		Metrics: metrics,
		Logger:  slogger,
	}
	if archive != nil {
		dispatcherCfg.Archive = archive
		dispatcherCfg.Works = works
	}
	wireCollaborators(&dispatcherCfg, logger)

	dispatcher, err := transform.NewDispatcher(dispatcherCfg)
	if err != nil {
		logger.Error("Failed to create dispatcher", "error", err)
		os.Exit(1)
	}

	svc, err := quill.NewService(quill.Config{
		Repo:       repo,
		Tracker:    tracker,
		Dispatcher: dispatcher,
		Store:      store,
		Metrics:    metrics,
		Logger:     slogger,
	})
	if err != nil {
		logger.Error("Failed to create service", "error", err)
		os.Exit(1)
	}
	handlers := quill.NewHandlers(svc)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(telemetry.GinMetrics(metrics))
	if *debug {
		router.Use(gin.Logger())
	}

	v1 := router.Group("/v1")
	quill.RegisterRoutes(v1, handlers)

	if mh := telemetry.MetricsHandler(); mh != nil {
		router.GET("/metrics", gin.WrapH(mh))
	}

	printBanner(*port)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", *port),
		Handler: router,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("Starting Quill server", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	logger.Info("Shutting down Quill server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
}

// wireCollaborators attaches every external collaborator that is
// configured via environment. Missing collaborators degrade those
// operation types to 503, not the whole service.
func wireCollaborators(cfg *transform.Config, logger *logging.Logger) {
	rewriter, err := transform.NewOpenAIRewriter()
	if err != nil {
		logger.Warn("OpenAI not available; rewrite and embed disabled", "error", err)
	} else {
		cfg.Rewriter = rewriter
		cfg.Embedder = rewriter
		logger.Info("OpenAI collaborator connected")
	}

	if qualityURL := os.Getenv("QUALITY_SERVICE_URL"); qualityURL != "" {
		cfg.Quality = transform.NewHTTPQualityService(qualityURL)
		logger.Info("Quality service connected", "url", qualityURL)
	} else {
		logger.Warn("QUALITY_SERVICE_URL not set; quality analysis disabled")
	}
}

func printBanner(port int) {
	banner := `
╔═══════════════════════════════════════════════════════════════════╗
║                        QUILL SERVER                               ║
╠═══════════════════════════════════════════════════════════════════╣
║                                                                   ║
║  Version control for authored content: immutable buffers,         ║
║  provenance chains, branches, and collaborative transforms.       ║
║                                                                   ║
║  Quick Start:                                                     ║
║  ┌─────────────────────────────────────────────────────────────┐  ║
║  │ # Health check                                              │  ║
║  │ curl http://localhost:%d/v1/quill/health                  │  ║
║  │                                                             │  ║
║  │ # Create a working buffer                                   │  ║
║  │ curl -X POST \                                              │  ║
║  │   http://localhost:%d/v1/quill/sessions/demo/buffers \    │  ║
║  │   -H "Content-Type: application/json" \                     │  ║
║  │   -d '{"name": "draft", "content": "Once upon a time"}'     │  ║
║  └─────────────────────────────────────────────────────────────┘  ║
║                                                                   ║
║  Endpoints:                                                       ║
║  ├── Buffers: list, create, get, content, append                  ║
║  ├── Versions: commit, history, rollback, diff                    ║
║  ├── Branches: create, switch, merge                              ║
║  └── Transforms: rewrite, analyze, detect-ai, embed, split        ║
║                                                                   ║
║  Press Ctrl+C to stop                                             ║
╚═══════════════════════════════════════════════════════════════════╝
`
	fmt.Printf(banner, port, port)
}
