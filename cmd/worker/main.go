package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/eventpass/eventpass-backend/internal/stats"
	"github.com/eventpass/eventpass-backend/pkg/config"
	"github.com/eventpass/eventpass-backend/pkg/db"
	"github.com/eventpass/eventpass-backend/pkg/instance"
	"github.com/eventpass/eventpass-backend/pkg/logger"
	"github.com/eventpass/eventpass-backend/pkg/outbox/idempotency"
	"github.com/eventpass/eventpass-backend/pkg/pubsub"
	"github.com/eventpass/eventpass-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "stats-worker"})
	fatal := func(msg string, err error) {
		logg.Error(context.Background(), msg, err)
		os.Exit(1)
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fatal("load config", err)
	}
	cfg.Service.Kind = "stats-worker"

	logg = logger.New(logger.Options{
		ServiceName: "stats-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx := context.Background()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		fatal("connect database", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "failed to close database client", err)
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		fatal("connect redis", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "failed to close redis client", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		fatal("connect pubsub", err)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "failed to close pubsub client", err)
		}
	}()

	subscription := pubsubClient.StatsSubscription()
	if subscription == nil {
		fatal("stats subscription", errors.New("subscription not configured"))
	}

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		fatal("build idempotency manager", err)
	}

	statsRepo, err := stats.NewRepository(dbClient.DB())
	if err != nil {
		fatal("build stats repository", err)
	}
	statsService, err := stats.NewService(statsRepo, dbClient)
	if err != nil {
		fatal("build stats service", err)
	}
	consumer, err := stats.NewConsumer(statsService, subscription, manager, logg)
	if err != nil {
		fatal("build stats consumer", err)
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	logg.Info(runCtx, "stats worker ready")

	if err := consumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "stats worker failed", err)
		os.Exit(1)
	}
}
