package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-sla/internal/action"
	httptransport "github.com/spec-kit/helpdesk-sla/internal/api/http"
	"github.com/spec-kit/helpdesk-sla/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-sla/internal/auth"
	"github.com/spec-kit/helpdesk-sla/internal/automation"
	"github.com/spec-kit/helpdesk-sla/internal/catalog"
	"github.com/spec-kit/helpdesk-sla/internal/config"
	"github.com/spec-kit/helpdesk-sla/internal/events"
	"github.com/spec-kit/helpdesk-sla/internal/observability"
	"github.com/spec-kit/helpdesk-sla/internal/persistence"
	"github.com/spec-kit/helpdesk-sla/internal/repository"
	"github.com/spec-kit/helpdesk-sla/internal/repository/memory"
	"github.com/spec-kit/helpdesk-sla/internal/scheduler"
	"github.com/spec-kit/helpdesk-sla/internal/service"
	"github.com/spec-kit/helpdesk-sla/internal/sla"
	"github.com/spec-kit/helpdesk-sla/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing := observability.SetupTracing(ctx, cfg.App.Name, cfg.App.Version, cfg.Telemetry, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	readiness := map[string]handlers.Pinger{}

	var repos *repository.Set
	if cfg.Postgres.DSN == "" {
		logger.Warn("POSTGRES_DSN not set; using in-memory storage")
		repos = memory.New().Set()
	} else {
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()

		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		repos = repository.NewPostgresSet(pg.PoolHandle())
		readiness["postgres"] = pg
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()
	readiness["redis"] = redis

	dispatcher := events.NewInMemoryDispatcher()

	applier := action.NewApplier(&action.Dependencies{
		Tickets:    repos.Tickets,
		Messages:   repos.Messages,
		Activities: repos.Activities,
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
	})

	tracker := sla.NewTracker(&sla.TrackerDependencies{
		Tickets:     repos.Tickets,
		Policies:    repos.Policies,
		Calendars:   repos.Calendars,
		Statuses:    repos.SlaStatuses,
		Logger:      logger,
		Metrics:     metrics,
		AtRiskRatio: cfg.SLA.AtRiskRatio,
	})
	assignment := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo: repos.Tickets,
		TeamRepo:   repos.Teams,
		Applier:    applier,
		Logger:     logger,
	})
	engine := automation.NewEngine(&automation.EngineDependencies{
		Triggers: repos.Triggers,
		Tickets:  repos.Tickets,
		Applier:  applier,
		Logger:   logger,
		Metrics:  metrics,
	})

	// Subscription order is execution order: the SLA clock starts before
	// assignment, and triggers see the assigned ticket.
	tracker.RegisterHandlers(dispatcher)
	assignment.RegisterHandlers(dispatcher)
	engine.RegisterHandlers(dispatcher)
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, cfg.Notification))

	escalator := sla.NewEscalator(applier, engine, dispatcher, logger)
	scanner := sla.NewScanner(&sla.ScannerDependencies{
		Statuses:  repos.SlaStatuses,
		Tickets:   repos.Tickets,
		Policies:  repos.Policies,
		Handler:   escalator,
		Logger:    logger,
		Metrics:   metrics,
		BatchSize: cfg.SLA.ScanBatchSize,
	})

	catalogService := service.NewCatalogService(service.CatalogDependencies{
		CalendarRepo: repos.Calendars,
		PolicyRepo:   repos.Policies,
		TriggerRepo:  repos.Triggers,
		MacroRepo:    repos.Macros,
		TeamRepo:     repos.Teams,
		Logger:       logger,
	})
	hookService := service.NewHookService(service.HookDependencies{
		TicketRepo:  repos.Tickets,
		MessageRepo: repos.Messages,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	macroService := automation.NewMacroService(&automation.MacroDependencies{
		Macros:  repos.Macros,
		Tickets: repos.Tickets,
		Applier: applier,
		Logger:  logger,
	})

	jobs := worker.NewGroup(logger)

	if cfg.Catalog.File != "" {
		if _, err := catalog.LoadAndApply(ctx, cfg.Catalog.File, catalogService, logger); err != nil {
			logger.Warn("catalog loaded with errors", zap.Error(err))
		}
		if cfg.Catalog.Watch {
			watcher := catalog.NewWatcher(cfg.Catalog.File, catalogService, logger)
			jobs.Go(ctx, "catalog-watcher", watcher.Run)
		}
	}

	if cfg.SLA.ScanEnabled {
		breachScheduler := scheduler.New(scanner, scheduler.Options{
			Interval: cfg.SLA.ScanInterval,
			Lease:    redis.ScanLease(cfg.SLA.LeaseKey, cfg.SLA.LeaseTTL),
			Logger:   logger,
			Metrics:  metrics,
		})
		jobs.Go(ctx, "breach-scheduler", func(ctx context.Context) error {
			breachScheduler.Run(ctx)
			return nil
		})
	}

	tokens := auth.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.ClockSkew)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, readiness),
		Hooks:          handlers.NewHooksHandler(hookService),
		Sla:            handlers.NewSlaHandler(tracker, scanner),
		Catalog:        handlers.NewCatalogHandler(catalogService),
		Macros:         handlers.NewMacrosHandler(macroService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		Metrics:        adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.ShutdownWithTimeout(10 * time.Second)
	cancel()
	jobs.Wait()

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer flushCancel()
	if err := shutdownTracing(flushCtx); err != nil {
		logger.Warn("tracer shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
