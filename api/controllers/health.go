package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/edgarsandoval/paybridge-backend/api/responses"
	"github.com/edgarsandoval/paybridge-backend/pkg/config"
)

// Pinger is the reachability check for an optional dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-PayBridge-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports dependency state. A slow or absent Redis degrades the
// payload, not the status code: webhook intake works without it.
func HealthReady(cfg *config.Config, cache Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-PayBridge-Env", cfg.App.Env)

		redisStatus := "disabled"
		if cache != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := cache.Ping(ctx); err != nil {
				redisStatus = "unreachable"
			} else {
				redisStatus = "ok"
			}
		}

		responses.WriteSuccess(w, map[string]any{
			"status": "ready",
			"redis":  redisStatus,
			"providers": map[string]bool{
				"stripe": cfg.Stripe.Configured(),
				"paddle": cfg.Paddle.Configured(),
			},
		})
	}
}
