package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sai-roshan-dev/practo-cms-backend/internal/builder"
	"github.com/sai-roshan-dev/practo-cms-backend/internal/config"
	"github.com/sai-roshan-dev/practo-cms-backend/internal/handler"
	"github.com/sai-roshan-dev/practo-cms-backend/internal/infra/postgresql"
	"github.com/sai-roshan-dev/practo-cms-backend/internal/infra/postgresql/migrations"
	infraredis "github.com/sai-roshan-dev/practo-cms-backend/internal/infra/redis"
	"github.com/sai-roshan-dev/practo-cms-backend/internal/mailer"
	"github.com/sai-roshan-dev/practo-cms-backend/internal/observability"
	"github.com/sai-roshan-dev/practo-cms-backend/internal/queue"
	"github.com/sai-roshan-dev/practo-cms-backend/internal/repository"
	"github.com/sai-roshan-dev/practo-cms-backend/internal/service"
	"github.com/sai-roshan-dev/practo-cms-backend/internal/transport"
)

const (
	shutdownTimeout      = 10 * time.Second
	dispatchScanInterval = 5 * time.Second
	dispatchScanLimit    = 100
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.RabbitMQURL == "" {
		log.Fatal("RABBITMQ_URL is required for the worker")
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	limiter, err := infraredis.NewRateLimiter(rdb, cfg.EmailRateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	mq, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer mq.Close()

	metrics := observability.NewMetrics()

	notificationRepo := repository.NewGormNotificationRepo(db)
	userRepo := repository.NewGormUserRepo(db)
	jobRepo := repository.NewGormJobRepo(db)

	sender := mailer.New(mailer.Config{
		ResendAPIKey:       cfg.ResendAPIKey,
		FromEmail:          cfg.FromEmail,
		AWSRegion:          cfg.AWSRegion,
		AWSAccessKeyID:     cfg.AWSAccessKeyID,
		AWSSecretAccessKey: cfg.AWSSecretAccessKey,
		SESFromEmail:       cfg.SESFromEmail,
		SESFromName:        cfg.SESFromName,
	}, logger)

	executor, err := service.NewExecutor(notificationRepo, userRepo, sender, limiter, logger)
	if err != nil {
		logger.Fatal("executor initialization failed", zap.Error(err))
	}
	executor.SetMetrics(metrics)

	policy := service.RetryPolicy{
		MaxAttempts:     cfg.JobMaxAttempts,
		BackoffBase:     time.Duration(cfg.JobBackoffBaseMillis) * time.Millisecond,
		BackoffFactor:   cfg.JobBackoffFactor,
		MaxStalledCount: cfg.MaxStalledCount,
	}
	retention := service.Retention{
		KeepCompleted: cfg.KeepCompletedJobs,
		KeepFailed:    cfg.KeepFailedJobs,
	}

	consumer := queue.NewRabbitMQConsumer(mq, cfg.WorkerConcurrency, logger)
	worker, err := service.NewWorkerService(
		jobRepo,
		builder.New(logger),
		executor,
		consumer,
		policy,
		retention,
		cfg.WorkerConcurrency,
		logger,
	)
	if err != nil {
		logger.Fatal("worker initialization failed", zap.Error(err))
	}
	worker.SetMetrics(metrics)

	publisher := queue.NewRabbitMQPublisher(mq)
	dispatchScanner, err := service.NewDispatchScanner(jobRepo, publisher, dispatchScanInterval, dispatchScanLimit, logger)
	if err != nil {
		logger.Fatal("dispatch scanner initialization failed", zap.Error(err))
	}

	stallInterval := time.Duration(cfg.StallIntervalSeconds) * time.Second
	stallScanner, err := service.NewStallScanner(jobRepo, stallInterval, cfg.MaxStalledCount, logger)
	if err != nil {
		logger.Fatal("stall scanner initialization failed", zap.Error(err))
	}
	stallScanner.SetMetrics(metrics)

	// Small ops surface so the worker can be probed and scraped like the API.
	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	handler.RegisterHealthRoutes(app, sqlDB, rdb, mq)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("worker consuming", zap.Int("concurrency", cfg.WorkerConcurrency))
		return worker.Start(ctx)
	})
	g.Go(func() error {
		return dispatchScanner.Start(ctx)
	})
	g.Go(func() error {
		return stallScanner.Start(ctx)
	})
	g.Go(func() error {
		logger.Info("worker ops server listening", zap.Int("port", cfg.WorkerPort))
		return app.Listen(":" + strconv.Itoa(cfg.WorkerPort))
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped with error", zap.Error(err))
	}
	logger.Info("worker shut down")
}
