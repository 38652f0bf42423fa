package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/edgarsandoval/paybridge-backend/api/routes"
	"github.com/edgarsandoval/paybridge-backend/internal/billing"
	"github.com/edgarsandoval/paybridge-backend/internal/checkout"
	"github.com/edgarsandoval/paybridge-backend/internal/lifecycle"
	"github.com/edgarsandoval/paybridge-backend/internal/subscriptions"
	"github.com/edgarsandoval/paybridge-backend/internal/transactions"
	"github.com/edgarsandoval/paybridge-backend/internal/webhooks"
	paddlewebhook "github.com/edgarsandoval/paybridge-backend/internal/webhooks/paddle"
	stripewebhook "github.com/edgarsandoval/paybridge-backend/internal/webhooks/stripe"
	"github.com/edgarsandoval/paybridge-backend/pkg/config"
	"github.com/edgarsandoval/paybridge-backend/pkg/logger"
	"github.com/edgarsandoval/paybridge-backend/pkg/metrics"
	"github.com/edgarsandoval/paybridge-backend/pkg/paddle"
	pkgredis "github.com/edgarsandoval/paybridge-backend/pkg/redis"
	pkgstripe "github.com/edgarsandoval/paybridge-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "paybridge"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	if err := cfg.ValidateProviders(); err != nil {
		logg.Error(context.Background(), "invalid provider configuration", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "paybridge",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	var markers pkgredis.MarkerStore
	if cfg.Redis.URL != "" || cfg.Redis.Address != "" {
		redisClient, err := pkgredis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		markers = redisClient
	} else {
		logg.Warn(context.Background(), "redis not configured, delivery markers and idempotency replay disabled")
	}

	registry := prometheus.NewRegistry()
	webhookMetrics := metrics.NewWebhookMetrics(registry)

	lifecycleManager := lifecycle.NewManager(lifecycle.ManagerParams{Logger: logg})

	dispatcher, err := webhooks.NewDispatcher(webhooks.DispatcherParams{
		Lifecycle: lifecycleManager,
		Logger:    logg,
		Metrics:   webhookMetrics,
		Markers:   markers,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook dispatcher", err)
		os.Exit(1)
	}

	deps := routes.Deps{
		Config:     cfg,
		Logger:     logg,
		Markers:    markers,
		Gatherer:   registry,
		Dispatcher: dispatcher,
	}

	var gateways []billing.Gateway

	if cfg.Stripe.Configured() {
		stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap stripe", err)
			os.Exit(1)
		}
		checkoutService, err := checkout.NewService(checkout.ServiceParams{
			API:    checkout.NewStripeAPI(),
			Client: stripeClient,
			Logger: logg,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to create checkout service", err)
			os.Exit(1)
		}
		stripeProtocol, err := stripewebhook.NewService(stripewebhook.ServiceParams{
			Client: stripeClient,
			Logger: logg,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to create stripe webhook service", err)
			os.Exit(1)
		}
		deps.Checkout = checkoutService
		deps.StripeProtocol = stripeProtocol
		gateways = append(gateways, checkoutService)
	}

	if cfg.Paddle.Configured() {
		paddleClient, err := paddle.NewClient(context.Background(), cfg.Paddle, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap paddle", err)
			os.Exit(1)
		}
		transactionsService, err := transactions.NewService(transactions.ServiceParams{
			API:    paddleClient,
			Client: paddleClient,
			Logger: logg,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to create transactions service", err)
			os.Exit(1)
		}
		paddleProtocol, err := paddlewebhook.NewService(paddlewebhook.ServiceParams{
			Client: paddleClient,
			Logger: logg,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to create paddle webhook service", err)
			os.Exit(1)
		}
		deps.Transactions = transactionsService
		deps.PaddleProtocol = paddleProtocol
		gateways = append(gateways, transactionsService)
	}

	subscriptionsService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Gateways:  gateways,
		Lifecycle: lifecycleManager,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscriptions service", err)
		os.Exit(1)
	}
	deps.Subscriptions = subscriptionsService

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":    cfg.App.Env,
		"addr":   addr,
		"stripe": cfg.Stripe.Configured(),
		"paddle": cfg.Paddle.Configured(),
	})
	logg.Info(ctx, "starting paybridge api")

	server := &http.Server{
		Addr:         addr,
		Handler:      routes.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-shutdown:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			_ = server.Close()
		}
	}
}
