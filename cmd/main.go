// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eventra-labs/eventra/internal/config"
	"github.com/eventra-labs/eventra/internal/database"
	"github.com/eventra-labs/eventra/internal/handler"
	"github.com/eventra-labs/eventra/internal/logging"
	"github.com/eventra-labs/eventra/internal/repository"
	"github.com/eventra-labs/eventra/internal/service"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func main() {
	ctx := context.Background()

	// ── 1. Configuration and logging ──────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	// ── 2. Connect to PostgreSQL and migrate ──────────────────────────────
	pool, err := database.NewPool(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	log.Info("connected to postgres")

	if err := database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	// ── 3. Wire up layers ─────────────────────────────────────────────────
	scheduleRepo := repository.NewScheduleRepository(pool)
	conflictRepo := repository.NewConflictRepository(pool)
	capacityRepo := repository.NewCapacityRepository(pool)

	detection := service.NewConflictService(scheduleRepo, conflictRepo, log)
	resolution := service.NewResolutionEngine(conflictRepo, capacityRepo, log)
	waitlist := service.NewCapacityWaitlistManager(capacityRepo, log)
	analytics := service.NewAnalyticsAggregator(scheduleRepo, conflictRepo)
	h := handler.NewConflictHandler(detection, resolution, waitlist, analytics)

	// ── 4. Build the router ───────────────────────────────────────────────
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(handler.Logger(log))     // structured access log
	r.Use(handler.CORS)            // permissive CORS

	// Health
	r.Get("/health", handler.HealthCheck)

	// API routes
	r.Route("/events/{id}/conflicts", func(r chi.Router) {
		r.Post("/detect", h.DetectConflicts)
		r.Get("/", h.ListConflicts)
		r.Get("/summary", h.ConflictSummary)
		r.Get("/analytics", h.ConflictAnalytics)
	})
	r.Route("/conflicts", func(r chi.Router) {
		r.Post("/auto-resolve", h.AutoResolveConflicts)
		r.Post("/{id}/resolve", h.ResolveConflict)
	})
	r.Post("/sessions/{id}/waitlist/promote", h.PromoteFromWaitlist)
	r.Post("/waitlist/auto-promote", h.AutoPromote)

	// ── 5. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run in background goroutine so we can listen for shutdown signal.
	go func() {
		log.Info("server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
