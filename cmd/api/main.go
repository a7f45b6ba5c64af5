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

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
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

	// Without a broker the API delivers inline; with one it enqueues and the
	// worker process drains the queue.
	var (
		mq        *queue.RabbitMQ
		publisher queue.Publisher
		dispJobs  repository.JobRepository
	)
	if cfg.RabbitMQURL != "" {
		mq, err = queue.NewRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			logger.Fatal("rabbitmq initialization failed", zap.Error(err))
		}
		defer mq.Close()
		publisher = queue.NewRabbitMQPublisher(mq)
		dispJobs = jobRepo
	}

	dispatcher, err := service.NewDispatcher(builder.New(logger), executor, dispJobs, publisher, policy, logger)
	if err != nil {
		logger.Fatal("dispatcher initialization failed", zap.Error(err))
	}

	monitor, err := service.NewQueueMonitor(jobRepo, 0)
	if err != nil {
		logger.Fatal("queue monitor initialization failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(transport.RequestIDMiddleware())
	app.Use(metrics.HTTPMiddleware())

	var broker handler.BrokerHealth
	if mq != nil {
		broker = mq
	}
	handler.RegisterHealthRoutes(app, sqlDB, rdb, broker)
	if err := handler.RegisterEventRoutes(app, dispatcher); err != nil {
		logger.Fatal("event routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterQueueRoutes(app, monitor); err != nil {
		logger.Fatal("queue routes registration failed", zap.Error(err))
	}
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("api listening", zap.Int("port", cfg.APIPort), zap.Bool("queueEnabled", dispatcher.QueueEnabled()))
		if err := app.Listen(":" + strconv.Itoa(cfg.APIPort)); err != nil {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("api stopped with error", zap.Error(err))
	}
	logger.Info("api shut down")
}
