package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/alonso06/showcase-queueapi/internal/api/http"
	"github.com/alonso06/showcase-queueapi/internal/api/http/handlers"
	"github.com/alonso06/showcase-queueapi/internal/auth"
	"github.com/alonso06/showcase-queueapi/internal/config"
	"github.com/alonso06/showcase-queueapi/internal/events"
	"github.com/alonso06/showcase-queueapi/internal/observability"
	"github.com/alonso06/showcase-queueapi/internal/persistence"
	"github.com/alonso06/showcase-queueapi/internal/repository"
	"github.com/alonso06/showcase-queueapi/internal/service"
	"github.com/alonso06/showcase-queueapi/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations && pg.PoolHandle() != nil {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var (
		priorityRepo repository.PriorityRepository
		queueRepo    repository.QueueRepository
		ticketRepo   repository.TicketRepository
		staffRepo    repository.StaffRepository
	)
	if pool := pg.PoolHandle(); pool != nil {
		priorityRepo = repository.NewPriorityRepository(pool)
		queueRepo = repository.NewQueueRepository(pool)
		ticketRepo = repository.NewTicketRepository(pool)
		staffRepo = repository.NewStaffRepository(pool)
	} else {
		store := repository.NewMemoryStore()
		priorityRepo = store.Priorities()
		queueRepo = store.Queues()
		ticketRepo = store.Tickets()
		staffRepo = store.Staff()
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	positionCache := persistence.NewPositionCache(redis, cfg.Redis.PositionTTL, logger)

	catalog := service.NewPriorityCatalog(priorityRepo)
	tracker := service.NewPositionTracker(ticketRepo, positionCache)
	registry := service.NewQueueRegistry(queueRepo, ticketRepo, tracker, cfg.Engine)
	admissions := service.NewAdmissionService(cfg.Engine, service.AdmissionDependencies{
		Catalog:    catalog,
		Registry:   registry,
		TicketRepo: ticketRepo,
		Dispatcher: dispatcher,
		Cache:      positionCache,
		Metrics:    metrics,
	})
	rebalancer := service.NewRebalanceService(cfg.Engine, registry, dispatcher, metrics, logger)
	authService := service.NewAuthService(cfg.Auth, staffRepo)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), staffRepo)

	board := service.NewBoardPublisher(dispatcher, redis, cfg.Redis.BoardChannel, logger)
	board.RegisterHandlers()

	rebalanceWorker := worker.NewRebalanceWorker(rebalancer, priorityRepo, cfg.Engine.RebalanceInterval(), logger)
	rebalanceWorker.RegisterHandlers(dispatcher)
	go rebalanceWorker.Start(ctx)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:        handlers.NewTicketsHandler(admissions),
		Queues:         handlers.NewQueuesHandler(registry, admissions, rebalancer, metrics),
		Staff:          handlers.NewStaffHandler(authService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
