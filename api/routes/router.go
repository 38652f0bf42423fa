package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/edgarsandoval/paybridge-backend/api/controllers"
	webhookcontrollers "github.com/edgarsandoval/paybridge-backend/api/controllers/webhooks"
	"github.com/edgarsandoval/paybridge-backend/api/middleware"
	checkoutsvc "github.com/edgarsandoval/paybridge-backend/internal/checkout"
	subscriptionsvc "github.com/edgarsandoval/paybridge-backend/internal/subscriptions"
	transactionsvc "github.com/edgarsandoval/paybridge-backend/internal/transactions"
	"github.com/edgarsandoval/paybridge-backend/internal/webhooks"
	"github.com/edgarsandoval/paybridge-backend/pkg/config"
	"github.com/edgarsandoval/paybridge-backend/pkg/logger"
	pkgredis "github.com/edgarsandoval/paybridge-backend/pkg/redis"
)

// Deps carries everything the route table wires together. Provider-specific
// entries are nil when that provider is not configured; their routes then
// answer with a configuration error instead of panicking.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Markers  pkgredis.MarkerStore
	Gatherer prometheus.Gatherer

	Dispatcher     *webhooks.Dispatcher
	StripeProtocol webhooks.Protocol
	PaddleProtocol webhooks.Protocol

	Checkout      *checkoutsvc.Service
	Transactions  *transactionsvc.Service
	Subscriptions *subscriptionsvc.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.Server.FrontendURL),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, pingerOrNil(deps.Markers)))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	// Webhook intake is never behind the idempotency middleware: providers
	// retry on purpose and every delivery must reach the lifecycle.
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.Handle(deps.Dispatcher, deps.StripeProtocol, webhookcontrollers.StripeSignatureHeader, logg))
		r.Post("/paddle", webhookcontrollers.Handle(deps.Dispatcher, deps.PaddleProtocol, webhookcontrollers.PaddleSignatureHeader, logg))
	})

	// Creation endpoints get a fixed-window throttle when redis is around.
	throttle := func(next http.Handler) http.Handler { return next }
	if client, ok := deps.Markers.(*pkgredis.Client); ok && client != nil {
		policy := middleware.NewRateLimitPolicy(
			"checkout",
			cfg.RateLimit.CheckoutWindow,
			cfg.RateLimit.CheckoutIPLimit,
			cfg.RateLimit.CheckoutEmailLimit,
		)
		throttle = middleware.RateLimit(policy, client, logg)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(deps.Markers, logg))

		r.Route("/stripe", func(r chi.Router) {
			r.With(throttle).Post("/checkout-sessions", controllers.CreateCheckoutSession(deps.Checkout, logg))
			r.With(throttle).Get("/checkout", controllers.CheckoutRedirect(deps.Checkout, cfg, logg))
			r.Get("/checkout-sessions/{sessionID}", controllers.GetCheckoutSession(deps.Checkout, logg))
			r.With(throttle).Post("/customers", controllers.CreateStripeCustomer(deps.Checkout, logg))
			r.With(throttle).Post("/setup-intents", controllers.CreateSetupIntent(deps.Checkout, logg))
			r.With(throttle).Post("/subscriptions", controllers.CreateStripeSubscription(deps.Checkout, logg))
		})

		r.Route("/paddle", func(r chi.Router) {
			r.Get("/config", controllers.PaddleClientConfig(deps.Transactions, logg))
			r.With(throttle).Post("/transactions", controllers.CreatePaddleTransaction(deps.Transactions, logg))
			r.Get("/transactions/{transactionID}", controllers.GetPaddleTransaction(deps.Transactions, logg))
			r.With(throttle).Post("/customers", controllers.CreatePaddleCustomer(deps.Transactions, logg))
		})

		r.Route("/subscriptions/{provider}/{subscriptionID}", func(r chi.Router) {
			r.Get("/", controllers.GetSubscription(deps.Subscriptions, logg))
			r.Post("/cancel", controllers.CancelSubscription(deps.Subscriptions, logg))
		})
	})

	return r
}

// pingerOrNil narrows the marker store to the health check's ping interface
// without handing the controller a typed nil.
func pingerOrNil(markers pkgredis.MarkerStore) controllers.Pinger {
	if client, ok := markers.(*pkgredis.Client); ok && client != nil {
		return client
	}
	return nil
}
