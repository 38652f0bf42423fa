package config

import (
	"os"
	"testing"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != "production" {
		t.Fatalf("expected App.Env to be production, got %q", cfg.App.Env)
	}
	if cfg.Stripe.TrialPeriodDays != 3 {
		t.Fatalf("expected default trial period 3, got %d", cfg.Stripe.TrialPeriodDays)
	}
	if cfg.Paddle.Environment() != "sandbox" {
		t.Fatalf("expected default paddle env sandbox, got %q", cfg.Paddle.Environment())
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv("PAYBRIDGE_APP_ENV"); err != nil {
		t.Fatalf("failed to unset app env: %v", err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected missing required env to return an error")
	}
}

func TestValidateProviders(t *testing.T) {
	cfg := &Config{}
	if err := cfg.ValidateProviders(); err == nil {
		t.Fatal("expected error when no provider is configured")
	}

	cfg.Stripe = StripeConfig{SecretKey: "sk_test_123", PriceID: "price_1"}
	if err := cfg.ValidateProviders(); err != nil {
		t.Fatalf("stripe-only config should validate, got %v", err)
	}

	cfg.Stripe = StripeConfig{}
	cfg.Paddle = PaddleConfig{APIKey: "pdl_live_apikey", PriceID: "pri_1"}
	if err := cfg.ValidateProviders(); err != nil {
		t.Fatalf("paddle-only config should validate, got %v", err)
	}

	cfg.Paddle.Env = "staging"
	if err := cfg.ValidateProviders(); err == nil {
		t.Fatal("expected error for unknown paddle environment")
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv("PAYBRIDGE_APP_ENV", "production")
	t.Setenv("PAYBRIDGE_APP_PORT", "8000")
	t.Setenv("PAYBRIDGE_STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("PAYBRIDGE_STRIPE_PRICE_ID", "price_123")
}
