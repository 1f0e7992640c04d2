package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ouvidoria-service/internal/api/http"
	"github.com/spec-kit/ouvidoria-service/internal/api/http/handlers"
	"github.com/spec-kit/ouvidoria-service/internal/auth"
	"github.com/spec-kit/ouvidoria-service/internal/cache"
	"github.com/spec-kit/ouvidoria-service/internal/config"
	"github.com/spec-kit/ouvidoria-service/internal/events"
	"github.com/spec-kit/ouvidoria-service/internal/observability"
	"github.com/spec-kit/ouvidoria-service/internal/persistence"
	"github.com/spec-kit/ouvidoria-service/internal/repository"
	"github.com/spec-kit/ouvidoria-service/internal/repository/memory"
	"github.com/spec-kit/ouvidoria-service/internal/service"
	"github.com/spec-kit/ouvidoria-service/internal/sla"
	"github.com/spec-kit/ouvidoria-service/internal/worker"
)

const shutdownTimeout = 10 * time.Second

type repositories struct {
	tickets  repository.TicketRepository
	notes    repository.TicketNoteRepository
	history  repository.TicketHistoryRepository
	staff    repository.StaffRepository
	emails   repository.PendingEmailRepository
	contents repository.ContentRepository
}

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

	shutdownTracing := observability.SetupTracing(ctx, cfg.Telemetry, cfg.App, logger)
	metrics := observability.NewMetrics()

	var pg *persistence.Postgres
	var repos repositories
	if cfg.Postgres.DSN != "" {
		pg, err = persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()

		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		pool := pg.PoolHandle()
		repos = repositories{
			tickets:  repository.NewTicketRepository(pool),
			notes:    repository.NewTicketNoteRepository(pool),
			history:  repository.NewTicketHistoryRepository(pool),
			staff:    repository.NewStaffRepository(pool),
			emails:   repository.NewPendingEmailRepository(pool),
			contents: repository.NewContentRepository(pool),
		}
	} else {
		logger.Warn("POSTGRES_DSN not set, using in-memory storage")
		mem := memory.NewRepositories(time.Now)
		repos = repositories{
			tickets:  mem.Tickets,
			notes:    mem.Notes,
			history:  mem.History,
			staff:    mem.Staff,
			emails:   mem.Emails,
			contents: mem.Contents,
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	calc := sla.NewCalculator(cfg.App.Location(), nil)
	dispatcher := events.NewInMemoryDispatcher()
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	mailer := service.NewMailer(cfg.Notification, logger)
	outbox := service.NewEmailOutboxService(repos.emails, mailer, cfg.Notification, metrics, logger)
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, outbox, logger, metrics, cfg.Notification))

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  repos.tickets,
		NoteRepo:    repos.notes,
		HistoryRepo: repos.history,
		StaffRepo:   repos.staff,
		Dispatcher:  dispatcher,
		SLA:         calc,
		Metrics:     metrics,
		Logger:      logger,
	})
	authService := service.NewAuthService(*cfg, repos.staff, tokens)
	staffService := service.NewStaffService(*cfg, repos.staff)
	dashboardService := service.NewDashboardService(repos.tickets, repos.staff, calc)
	contentService := service.NewContentService(repos.contents, cache.NewContentCache(redis.Handle(), cfg.Redis.ContentCacheTTL()), logger)

	var lookupLimiter *cache.RateLimiter
	if redis.Handle() != nil && cfg.Redis.LookupLimitPerMinute > 0 {
		lookupLimiter = cache.NewRateLimiter(redis.Handle(), "lookup", cfg.Redis.LookupLimitPerMinute, time.Minute)
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		StaffTickets:   handlers.NewStaffTicketsHandler(ticketService),
		Auth:           handlers.NewAuthHandler(authService),
		Staff:          handlers.NewStaffHandler(staffService),
		Admin:          handlers.NewAdminHandler(dashboardService, outbox),
		Content:        handlers.NewContentHandler(contentService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, repos.staff),
		LookupLimiter:  lookupLimiter,
		Metrics:        metrics,
		Logger:         logger,
	})

	go worker.NewEmailWorker(outbox, cfg.Notification.WorkerInterval(), logger).Start(ctx)

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("fiber shutdown", zap.Error(err))
	}
	outbox.Wait()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracing shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
