// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/tomtom215/rookery/internal/api"
	"github.com/tomtom215/rookery/internal/auth"
	"github.com/tomtom215/rookery/internal/cache"
	"github.com/tomtom215/rookery/internal/config"
	"github.com/tomtom215/rookery/internal/database"
	"github.com/tomtom215/rookery/internal/events"
	"github.com/tomtom215/rookery/internal/importer"
	"github.com/tomtom215/rookery/internal/logging"
	"github.com/tomtom215/rookery/internal/metrics"
	"github.com/tomtom215/rookery/internal/provider"
	"github.com/tomtom215/rookery/internal/scheduler"
	"github.com/tomtom215/rookery/internal/stats"
	"github.com/tomtom215/rookery/internal/supervisor"
	"github.com/tomtom215/rookery/internal/supervisor/services"
	"github.com/tomtom215/rookery/internal/training"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	logging.Info().
		Str("version", version).
		Str("db_path", cfg.Database.Path).
		Str("auth_mode", cfg.Security.AuthMode).
		Bool("autosync", cfg.AutoSync.Enabled).
		Msg("Starting rookery")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Checkpoint(context.Background()); err != nil {
			logging.Warn().Err(err).Msg("Final checkpoint failed")
		}
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	// A previous process may have died mid-sync.
	if n, err := db.FailInterruptedSyncs(context.Background()); err != nil {
		logging.Warn().Err(err).Msg("Failed to reset interrupted syncs")
	} else if n > 0 {
		logging.Warn().Int64("accounts", n).Msg("Marked interrupted syncs as failed")
	}

	archives, closeArchives := openArchiveCache(&cfg.ArchiveCache)
	defer closeArchives()

	registry := provider.NewRegistry(
		provider.NewLichessAdapter(cfg.Lichess, provider.NewBreakerClient("lichess", cfg.Lichess.Timeout)),
		provider.NewChessComAdapter(cfg.ChessCom, provider.NewBreakerClient("chesscom", cfg.ChessCom.Timeout), archives),
		provider.NewManualAdapter(),
	)

	wmLogger := logging.NewWatermillLogger()
	bus := events.NewBus(events.DefaultBusConfig(), wmLogger)
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing event bus")
		}
	}()

	routerCfg := events.DefaultRouterConfig()
	eventRouter, err := events.NewRouter(&routerCfg, wmLogger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create event router")
	}

	statsCache := cache.New(events.StatsNamespace, cfg.StatsCache.TTL, cfg.StatsCache.Capacity)
	defer statsCache.Stop()
	events.RegisterHandlers(eventRouter, bus, statsCache)

	orchestrator := importer.New(&cfg.Import, registry, db, db, db, bus)
	statsService := stats.NewService(db, db, statsCache)
	trainingService := training.NewService(db, statsService)
	sched := scheduler.New(cfg.AutoSync, orchestrator, db)

	authMiddleware, err := auth.NewMiddleware(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authentication")
	}

	handler := api.NewHandler(api.Dependencies{
		Importer:     orchestrator,
		Accounts:     db,
		Games:        db,
		Repertoires:  db,
		Stats:        statsService,
		Training:     trainingService,
		DB:           db,
		VariantDepth: cfg.Import.VariantDepth,
	})
	router := api.NewRouter(handler, authMiddleware, api.ChiMiddlewareConfigFromSecurity(&cfg.Security))

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	treeCfg := supervisor.DefaultTreeConfig()
	// The scheduler waits for its in-flight cycle before it returns.
	if cfg.AutoSync.ShutdownTimeout+time.Second > treeCfg.ShutdownTimeout {
		treeCfg.ShutdownTimeout = cfg.AutoSync.ShutdownTimeout + time.Second
	}
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), treeCfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddEventService(services.NewEventRouterService(eventRouter, routerCfg.CloseTimeout))
	tree.AddSyncService(services.NewSchedulerService(sched))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("Services added to supervisor tree")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
		cancel()
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Rookery stopped gracefully")
}

// openArchiveCache opens the Badger archive cache, falling back to memory
// when it is disabled or cannot be opened.
func openArchiveCache(cfg *config.ArchiveCacheConfig) (provider.ArchiveCache, func()) {
	if !cfg.Enabled {
		return provider.NewInMemoryArchiveCache(), func() {}
	}

	c, err := provider.OpenBadgerArchiveCache(cfg.Path)
	if err != nil {
		logging.Warn().Err(err).Str("path", cfg.Path).Msg("Archive cache unavailable, using memory")
		return provider.NewInMemoryArchiveCache(), func() {}
	}
	logging.Info().Str("path", cfg.Path).Msg("Archive cache opened")

	return c, func() {
		if err := c.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing archive cache")
		}
	}
}
