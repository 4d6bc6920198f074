package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/eventpass/eventpass-backend/internal/carts"
	"github.com/eventpass/eventpass-backend/internal/cron"
	"github.com/eventpass/eventpass-backend/internal/events"
	"github.com/eventpass/eventpass-backend/internal/offers"
	"github.com/eventpass/eventpass-backend/pkg/config"
	"github.com/eventpass/eventpass-backend/pkg/db"
	"github.com/eventpass/eventpass-backend/pkg/logger"
	"github.com/eventpass/eventpass-backend/pkg/metrics"
	"github.com/eventpass/eventpass-backend/pkg/migrate"
	"github.com/eventpass/eventpass-backend/pkg/outbox"
	"github.com/eventpass/eventpass-backend/pkg/redis"
)

const lockKeyFormat = "ep:cron-worker:lock:%s"

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})
	fatal := func(msg string, err error) {
		logg.Error(context.Background(), msg, err)
		os.Exit(1)
	}

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		fatal("failed to load config", err)
	}
	cfg.Service.Kind = "cron-worker"
	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		fatal("failed to bootstrap database", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()
	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		fatal("failed to run dev migrations", err)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		fatal("failed to bootstrap redis", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		fatal("failed to create cron lock", err)
	}

	gormDB := dbClient.DB()
	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)

	eventRepo, err := events.NewRepository(gormDB)
	if err != nil {
		fatal("failed to create event repository", err)
	}
	offerRepo, err := offers.NewRepository(gormDB)
	if err != nil {
		fatal("failed to create offer repository", err)
	}
	offerService, err := offers.NewService(offerRepo, eventRepo, dbClient, outboxSvc)
	if err != nil {
		fatal("failed to create offer service", err)
	}
	cartRepo, err := carts.NewRepository(gormDB)
	if err != nil {
		fatal("failed to create cart repository", err)
	}
	cartService, err := carts.NewService(cartRepo, offerRepo, dbClient, outboxSvc, cfg.Carts.IdleTTL)
	if err != nil {
		fatal("failed to create cart service", err)
	}

	expiryJob, err := cron.NewExpirySweepJob(cron.ExpirySweepJobParams{
		Logger: logg,
		Carts:  cartService,
		Offers: offerService,
	})
	if err != nil {
		fatal("failed to create expiry sweep job", err)
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outbox.NewRepository(gormDB),
	})
	if err != nil {
		fatal("failed to create outbox retention job", err)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(expiryJob, retentionJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		fatal("failed to create cron service", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}
