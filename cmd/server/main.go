// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

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

	"github.com/tomtom215/churnscope/internal/analysis"
	"github.com/tomtom215/churnscope/internal/api"
	"github.com/tomtom215/churnscope/internal/cache"
	"github.com/tomtom215/churnscope/internal/config"
	"github.com/tomtom215/churnscope/internal/database"
	"github.com/tomtom215/churnscope/internal/eventprocessor"
	"github.com/tomtom215/churnscope/internal/insights"
	"github.com/tomtom215/churnscope/internal/logging"
	"github.com/tomtom215/churnscope/internal/metrics"
	"github.com/tomtom215/churnscope/internal/middleware"
	"github.com/tomtom215/churnscope/internal/supervisor"
	"github.com/tomtom215/churnscope/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Churnscope stopped")
	}
	logging.Info().Msg("Application stopped gracefully")
}

//nolint:gocyclo // sequential component setup
func run(cfg *config.Config) error {
	logging.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Str("db_path", cfg.Database.Path).
		Str("cache_backend", cfg.Cache.Backend).
		Bool("nats_enabled", cfg.NATS.Enabled).
		Msg("Starting Churnscope")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized successfully")

	store, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		return fmt.Errorf("initialize cache: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing cache")
		}
	}()
	logging.Info().Str("backend", store.Backend()).Msg("Cache initialized")

	generator, err := insights.New(cfg.Insights)
	if err != nil {
		return fmt.Errorf("initialize insights: %w", err)
	}

	msg, err := initMessaging(cfg, db)
	if err != nil {
		return err
	}
	defer msg.close()

	opts := analysis.Options{
		Store:    db,
		Cache:    store,
		Insights: generator,
		Analysis: cfg.Analysis,
		CacheTTL: cfg.Cache,

		ComputeTimeout: cfg.Server.Timeout,
	}
	if msg.publisher != nil {
		opts.Publisher = msg.publisher
	}
	svc, err := analysis.New(opts)
	if err != nil {
		return fmt.Errorf("initialize analysis service: %w", err)
	}

	if cfg.IsProduction() {
		for _, origin := range cfg.Security.CORSOrigins {
			if origin == "*" {
				logging.Warn().Msg("CORS allows any origin (CORS_ORIGINS=*); set explicit origins in production")
				break
			}
		}
	}
	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}

	handlerOpts := api.HandlerOptions{
		Service:          svc,
		DB:               db,
		Transport:        msg.transport,
		InsightsProvider: generator.Name(),
		Version:          version,
		Performance:      middleware.NewPerformanceMonitor(0),
	}
	if msg.router != nil {
		handlerOpts.Messaging = msg.router
	}
	handler := api.NewHandler(handlerOpts)
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(&cfg.Security)), cfg.Server.Timeout)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	if m, ok := store.(cache.Maintainer); ok {
		tree.AddDataService(services.NewCacheMaintenanceService(m, cfg.Cache.MaintenanceInterval))
		logging.Info().Dur("interval", cfg.Cache.MaintenanceInterval).Msg("Cache maintenance added to supervisor tree")
	}
	if msg.router != nil {
		tree.AddMessagingService(services.NewRouterService(msg.router))
		logging.Info().Str("transport", msg.transport).Msg("Analysis run recorder added to supervisor tree")
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	errCh := tree.ServeBackground(ctx)
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, u := range unstopped {
		logging.Warn().Str("service", u.Name).Msg("Service failed to stop within timeout")
	}
	return nil
}

// messaging holds the completion event components. publisher and router are
// nil when nothing consumes analysis.completed events.
type messaging struct {
	bus       *eventprocessor.Bus
	publisher *eventprocessor.Publisher
	router    *eventprocessor.Router
	transport string
}

// initMessaging wires the event bus. Over NATS every analysis is published for
// external consumers; the in-process channel is used only when runs are persisted.
func initMessaging(cfg *config.Config, recorder eventprocessor.RunRecorder) (*messaging, error) {
	if !cfg.NATS.Enabled && !cfg.Analysis.PersistRuns {
		logging.Info().Msg("Analysis events disabled (NATS_ENABLED=false, ANALYSIS_PERSIST_RUNS=false)")
		return &messaging{transport: "disabled"}, nil
	}

	settings := eventprocessor.SettingsFromConfig(&cfg.NATS)
	wmLogger := logging.NewWatermillAdapter(logging.WithComponent("watermill"), false)

	bus, err := eventprocessor.NewBus(settings, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("initialize event bus: %w", err)
	}
	m := &messaging{bus: bus, transport: bus.Transport}

	m.publisher, err = eventprocessor.NewPublisher(bus.Publisher, settings.Topic)
	if err != nil {
		m.close()
		return nil, fmt.Errorf("initialize publisher: %w", err)
	}
	m.publisher.SetCircuitBreaker(eventprocessor.NewCircuitBreaker(eventprocessor.DefaultCircuitBreakerConfig("analysis-publisher")))

	if cfg.Analysis.PersistRuns {
		m.router, err = eventprocessor.NewRouter(&settings.Router, bus.Publisher, wmLogger)
		if err != nil {
			m.close()
			return nil, fmt.Errorf("initialize message router: %w", err)
		}
		eventprocessor.NewRunConsumer(recorder, settings.Topic).Register(m.router, bus.Subscriber)
	}

	logging.Info().Str("transport", bus.Transport).Str("topic", settings.Topic).Msg("Analysis events enabled")
	return m, nil
}

// close releases the bus. The router has already stopped with the supervisor tree.
func (m *messaging) close() {
	if m.bus == nil {
		return
	}
	if err := m.bus.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing event bus")
	}
}
