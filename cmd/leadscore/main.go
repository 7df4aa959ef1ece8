// Leadscore - Lead scoring for CRM pipelines.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opensource-finance/leadscore/internal/activity"
	"github.com/opensource-finance/leadscore/internal/api"
	"github.com/opensource-finance/leadscore/internal/bus"
	"github.com/opensource-finance/leadscore/internal/cache"
	"github.com/opensource-finance/leadscore/internal/contact"
	"github.com/opensource-finance/leadscore/internal/domain"
	"github.com/opensource-finance/leadscore/internal/pipeline"
	"github.com/opensource-finance/leadscore/internal/qualification"
	"github.com/opensource-finance/leadscore/internal/repository"
	"github.com/opensource-finance/leadscore/internal/scoring"
	"github.com/opensource-finance/leadscore/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(1)
	}

	// Initialize structured logger
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: logLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("starting leadscore",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Rule registry, seeded from the rules file or the built-in defaults
	seed, err := seedRules(cfg.Scoring)
	if err != nil {
		slog.Error("failed to load rules file", "path", cfg.Scoring.RulesFile, "error", err)
		os.Exit(1)
	}
	registry := scoring.NewRegistry(repo, seed, cfg.Scoring.MaxWorkers)
	defer registry.Close()
	slog.Info("rule registry initialized", "seed_rules", len(seed))

	activities := activity.NewService(repo, cfg.Scoring.ActivityWindow)
	processor := pipeline.NewProcessor(repo, cacheImpl, registry, activities, cfg.Cache.LeadTTL)

	questions, err := qualification.NewEngine(qualification.DefaultQuestions())
	if err != nil {
		slog.Error("failed to initialize qualification engine", "error", err)
		os.Exit(1)
	}

	// Initialize async Worker (Pro tier)
	var asyncWorker *worker.Worker
	if cfg.Scoring.AsyncWorker {
		tenantIDs := tenantList()
		asyncWorker = worker.NewWorker(busImpl, processor)
		if err := asyncWorker.Start(worker.Config{TenantIDs: tenantIDs}); err != nil {
			slog.Error("failed to start async worker", "error", err)
			asyncWorker = nil
		} else {
			slog.Info("async worker started", "tenant_count", len(tenantIDs))
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, api.Deps{
		Repo:          repo,
		Cache:         cacheImpl,
		Bus:           busImpl,
		Processor:     processor,
		Activities:    activities,
		Qualification: questions,
		Normalizer:    contact.NewNormalizer(cfg.Scoring.PhoneRegion),
		Version:       Version,
	})

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("leadscore is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("leadscore shutdown complete")
}

// seedRules returns the rules written to a tenant's empty rule table.
func seedRules(cfg domain.ScoringConfig) ([]domain.ScoringRule, error) {
	if cfg.RulesFile == "" {
		return scoring.DefaultScoringRules(), nil
	}
	return scoring.LoadRulesFile(cfg.RulesFile)
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  LEADSCORE - lead scoring engine")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /score                      - Score an ad-hoc lead")
	fmt.Println("    POST /leads                      - Create or update a lead")
	fmt.Println("    GET  /leads/{id}/score           - Score a stored lead")
	fmt.Println("    GET  /scores                     - Score every lead")
	fmt.Println("    POST /leads/{id}/activities      - Record an activity")
	fmt.Println("    PUT  /leads/{id}/qualification   - Save BANT answers")
	fmt.Println("    GET  /rules                      - List scoring rules")
	fmt.Println("    POST /rules                      - Create a scoring rule")
	fmt.Println("    POST /rules/reload               - Hot-reload rules from database")
	fmt.Println("    GET  /health                     - Health check")
	fmt.Println()
}
