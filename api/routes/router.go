package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eventpass/eventpass-backend/api/controllers"
	"github.com/eventpass/eventpass-backend/api/middleware"
	"github.com/eventpass/eventpass-backend/internal/auth"
	"github.com/eventpass/eventpass-backend/internal/carts"
	"github.com/eventpass/eventpass-backend/internal/events"
	"github.com/eventpass/eventpass-backend/internal/offers"
	"github.com/eventpass/eventpass-backend/internal/orders"
	"github.com/eventpass/eventpass-backend/internal/payments"
	"github.com/eventpass/eventpass-backend/internal/stats"
	"github.com/eventpass/eventpass-backend/internal/tickets"
	"github.com/eventpass/eventpass-backend/pkg/auth/session"
	"github.com/eventpass/eventpass-backend/pkg/config"
	"github.com/eventpass/eventpass-backend/pkg/enums"
	"github.com/eventpass/eventpass-backend/pkg/logger"
	pkgredis "github.com/eventpass/eventpass-backend/pkg/redis"
)

// Pinger mirrors the health probe surface of the backing clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps gathers everything the router wires into handlers. cmd/api fills
// it from the booted clients and services.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger

	DB     Pinger
	Redis  *pkgredis.Client
	PubSub Pinger

	Sessions session.AccessSessionChecker

	Auth     auth.Service
	Register auth.RegisterService
	Events   events.Service
	Offers   offers.Service
	Carts    carts.Service
	Orders   orders.Service
	Payments payments.Service
	Tickets  tickets.Service
	Stats    stats.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	// A nil *redis.Client must become a nil interface so the middleware
	// no-op checks hold.
	var idemStore pkgredis.IdempotencyStore
	var rateStore middleware.RateLimiterStore
	var redisPinger Pinger
	if deps.Redis != nil {
		idemStore = deps.Redis
		rateStore = deps.Redis
		redisPinger = deps.Redis
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, redisPinger, deps.PubSub))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, rateStore, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, rateStore, logg)).Post("/register", controllers.AuthRegister(deps.Register, deps.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(deps.Auth, cfg.JWT, logg))
	})

	// Public catalog: anyone can browse events and their offers.
	r.Route("/api/v1/events", func(r chi.Router) {
		r.Get("/", controllers.EventList(deps.Events, logg))
		r.Get("/{eventId}", controllers.EventDetail(deps.Events, logg))
		r.Get("/{eventId}/offers", controllers.EventOffers(deps.Offers, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
			r.Use(middleware.RequireAnyRole(logg, string(enums.UserRoleOrganizer), string(enums.UserRoleAdmin)))
			r.Use(middleware.Idempotency(idemStore, logg))
			r.Post("/", controllers.EventCreate(deps.Events, logg))
			r.Put("/{eventId}", controllers.EventUpdate(deps.Events, logg))
			r.Delete("/{eventId}", controllers.EventDelete(deps.Events, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(deps.Carts, logg))
			r.Post("/lines", controllers.CartAddLine(deps.Carts, logg))
			r.Delete("/lines/{lineId}", controllers.CartRemoveLine(deps.Carts, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(deps.Orders, logg))
			r.Post("/", controllers.OrderCreate(deps.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(deps.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.OrderCancel(deps.Orders, logg))
			r.Post("/{orderId}/pay", controllers.OrderPay(deps.Payments, logg))
			r.Post("/{orderId}/issue-tickets", controllers.OrderIssueTickets(deps.Payments, logg))
		})

		r.Route("/tickets", func(r chi.Router) {
			r.Get("/", controllers.TicketList(deps.Tickets, logg))
			r.Post("/{ticketId}/cancel", controllers.TicketCancel(deps.Tickets, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAnyRole(logg,
					string(enums.UserRoleScanner),
					string(enums.UserRoleOrganizer),
					string(enums.UserRoleAdmin),
				))
				r.Post("/validate", controllers.TicketValidateByKey(deps.Tickets, logg))
				r.Post("/{ticketId}/validate", controllers.TicketValidate(deps.Tickets, logg))
			})
		})

		r.Route("/offers", func(r chi.Router) {
			r.Use(middleware.RequireAnyRole(logg, string(enums.UserRoleOrganizer), string(enums.UserRoleAdmin)))
			r.Post("/", controllers.OfferCreate(deps.Offers, logg))
			r.Put("/{offerId}", controllers.OfferUpdate(deps.Offers, logg))
			r.Post("/{offerId}/restock", controllers.OfferRestock(deps.Offers, logg))
			r.Delete("/{offerId}", controllers.OfferDelete(deps.Offers, logg))
		})

		r.Route("/stats", func(r chi.Router) {
			r.Use(middleware.RequireAnyRole(logg, string(enums.UserRoleOrganizer), string(enums.UserRoleAdmin)))
			r.Get("/", controllers.StatsList(deps.Stats, logg))
			r.Get("/summary", controllers.StatsSummary(deps.Stats, logg))
			r.Get("/offers/{offerId}", controllers.StatsByOffer(deps.Stats, logg))
		})
	})

	return r
}
