package controllers

import (
	"context"
	"net/http"

	"github.com/eventpass/eventpass-backend/api/responses"
	"github.com/eventpass/eventpass-backend/pkg/config"
	"github.com/eventpass/eventpass-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-EventPass-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every hard dependency and reports per-component status.
// Nil pingers are skipped so partial deployments stay readable.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP, redisP, pubsubP pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-EventPass-Env", cfg.App.Env)

		checks := map[string]pinger{
			"database": dbP,
			"redis":    redisP,
			"pubsub":   pubsubP,
		}

		components := map[string]string{}
		ready := true
		for name, p := range checks {
			if p == nil {
				continue
			}
			if err := p.Ping(r.Context()); err != nil {
				ready = false
				components[name] = "down"
				if logg != nil {
					ctx := logg.WithField(r.Context(), "component", name)
					logg.Error(ctx, "readiness check failed", err)
				}
				continue
			}
			components[name] = "up"
		}

		payload := map[string]any{
			"status":     "ready",
			"components": components,
		}
		if !ready {
			payload["status"] = "degraded"
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, payload)
			return
		}
		responses.WriteSuccess(w, payload)
	}
}
