package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-triage/internal/api/http"
	"github.com/spec-kit/ticket-triage/internal/api/http/handlers"
	"github.com/spec-kit/ticket-triage/internal/auth"
	"github.com/spec-kit/ticket-triage/internal/classifier"
	"github.com/spec-kit/ticket-triage/internal/config"
	"github.com/spec-kit/ticket-triage/internal/events"
	"github.com/spec-kit/ticket-triage/internal/observability"
	"github.com/spec-kit/ticket-triage/internal/persistence"
	"github.com/spec-kit/ticket-triage/internal/repository"
	"github.com/spec-kit/ticket-triage/internal/routing"
	"github.com/spec-kit/ticket-triage/internal/service"
	"github.com/spec-kit/ticket-triage/internal/worker"
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

	pool := pg.PoolHandle()
	if pool != nil && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var ledger repository.TicketLedger
	var mappings repository.MappingStore
	if pool != nil {
		ledger = repository.NewTicketLedger(pool)
		mappings = repository.NewMappingStore(pool)
	} else {
		ledger = repository.NewMemoryLedger()
		mappings = repository.NewMemoryMappingStore()
	}

	if err := repository.SeedDefaultMappings(ctx, mappings, logger); err != nil {
		logger.Warn("seeding default mappings failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	notificationService := service.NewNotificationService(dispatcher, metrics, logger)
	worker.StartNotificationWorker(notificationService)

	classifierImpl := buildClassifier(cfg.Classifier, redis, logger)

	dispatchPolicy := routing.Policy{
		MaxAttempts: cfg.Pipeline.DispatchAttempts,
		Base:        cfg.Pipeline.BackoffBase(),
		Cap:         cfg.Pipeline.BackoffCap(),
	}
	router := routing.NewRouter(dispatchPolicy, cfg.Pipeline.DispatchTimeout(), cfg.Pipeline.DispatchDeadline(), logger,
		func(attempt routing.Attempt) {
			payload := events.RoutingAttemptedPayload{
				Target:    attempt.Target,
				System:    attempt.System,
				Attempt:   attempt.Number,
				LatencyMS: attempt.Latency.Milliseconds(),
			}
			if attempt.Err != nil {
				payload.Error = attempt.Err.Error()
			}
			_ = dispatcher.Publish(context.Background(), events.Event{
				Type:     events.EventRoutingAttempted,
				TicketID: attempt.TicketID,
				Payload:  payload,
			})
		})

	triageService := service.NewTriageService(service.TriageDependencies{
		Ledger:            ledger,
		Mappings:          mappings,
		Classifier:        classifierImpl,
		Router:            router,
		Dispatcher:        dispatcher,
		Logger:            logger,
		Pipeline:          cfg.Pipeline,
		ClassifierTimeout: cfg.Classifier.Timeout(),
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Metrics:        handlers.NewMetricsHandler(metrics),
		Tickets:        handlers.NewTicketsHandler(triageService),
		Mappings:       handlers.NewMappingsHandler(mappings),
		Auth:           handlers.NewAuthHandler(tokens, cfg.Auth),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func buildClassifier(cfg config.ClassifierConfig, redis *persistence.Redis, logger *zap.Logger) classifier.Classifier {
	var base classifier.Classifier
	switch strings.ToLower(cfg.Provider) {
	case "keywords":
		base = classifier.NewKeywordClassifier()
	default:
		base = classifier.NewGeminiClassifier(cfg)
	}
	return classifier.NewCachedClassifier(base, redis.Client, logger)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
