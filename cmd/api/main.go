package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/eventpass/eventpass-backend/api/routes"
	"github.com/eventpass/eventpass-backend/internal/auth"
	"github.com/eventpass/eventpass-backend/internal/carts"
	"github.com/eventpass/eventpass-backend/internal/events"
	"github.com/eventpass/eventpass-backend/internal/offers"
	"github.com/eventpass/eventpass-backend/internal/orders"
	"github.com/eventpass/eventpass-backend/internal/payments"
	"github.com/eventpass/eventpass-backend/internal/stats"
	"github.com/eventpass/eventpass-backend/internal/tickets"
	"github.com/eventpass/eventpass-backend/internal/users"
	"github.com/eventpass/eventpass-backend/pkg/auth/session"
	"github.com/eventpass/eventpass-backend/pkg/config"
	"github.com/eventpass/eventpass-backend/pkg/db"
	"github.com/eventpass/eventpass-backend/pkg/logger"
	"github.com/eventpass/eventpass-backend/pkg/migrate"
	"github.com/eventpass/eventpass-backend/pkg/outbox"
	"github.com/eventpass/eventpass-backend/pkg/pubsub"
	"github.com/eventpass/eventpass-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})
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
	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		fatal("failed to bootstrap pubsub", err)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		fatal("failed to create session manager", err)
	}

	gormDB := dbClient.DB()
	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(gormDB),
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		fatal("failed to create auth service", err)
	}
	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		TxRunner:       dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		fatal("failed to create register service", err)
	}

	eventRepo, err := events.NewRepository(gormDB)
	if err != nil {
		fatal("failed to create event repository", err)
	}
	eventService, err := events.NewService(eventRepo)
	if err != nil {
		fatal("failed to create event service", err)
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

	orderRepo, err := orders.NewRepository(gormDB)
	if err != nil {
		fatal("failed to create order repository", err)
	}
	orderService, err := orders.NewService(orderRepo, dbClient, outboxSvc)
	if err != nil {
		fatal("failed to create order service", err)
	}

	paymentRepo, err := payments.NewRepository(gormDB)
	if err != nil {
		fatal("failed to create payment repository", err)
	}
	paymentService, err := payments.NewService(paymentRepo, dbClient, outboxSvc, cfg.Tickets.QRBaseURL)
	if err != nil {
		fatal("failed to create payment service", err)
	}

	ticketRepo, err := tickets.NewRepository(gormDB)
	if err != nil {
		fatal("failed to create ticket repository", err)
	}
	ticketService, err := tickets.NewService(ticketRepo, dbClient, outboxSvc)
	if err != nil {
		fatal("failed to create ticket service", err)
	}

	statsRepo, err := stats.NewRepository(gormDB)
	if err != nil {
		fatal("failed to create stats repository", err)
	}
	statsService, err := stats.NewService(statsRepo, dbClient)
	if err != nil {
		fatal("failed to create stats service", err)
	}

	port := cfg.App.Port
	if env := os.Getenv("PORT"); env != "" {
		port = env
	}
	addr := ":" + port
	instance := os.Getenv("DYNO")
	if instance == "" {
		instance = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:   cfg,
			Logger:   logg,
			DB:       dbClient,
			Redis:    redisClient,
			PubSub:   pubsubClient,
			Sessions: sessionManager,
			Auth:     authService,
			Register: registerService,
			Events:   eventService,
			Offers:   offerService,
			Carts:    cartService,
			Orders:   orderService,
			Payments: paymentService,
			Tickets:  ticketService,
			Stats:    statsService,
		}),
	}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
