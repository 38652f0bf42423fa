package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

const (
	EnvPrefix = "PAYBRIDGE"

	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Stripe    StripeConfig
	Paddle    PaddleConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PAYBRIDGE_APP_ENV" required:"true"`
	Port         string `envconfig:"PAYBRIDGE_APP_PORT" default:"8000"`
	LogLevel     string `envconfig:"PAYBRIDGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PAYBRIDGE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServerConfig struct {
	BaseURL         string        `envconfig:"PAYBRIDGE_BASE_URL" default:"http://localhost:8000"`
	FrontendURL     string        `envconfig:"PAYBRIDGE_FRONTEND_URL" default:"http://localhost:8080"`
	ReadTimeout     time.Duration `envconfig:"PAYBRIDGE_SERVER_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"PAYBRIDGE_SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"PAYBRIDGE_SERVER_SHUTDOWN_TIMEOUT" default:"15s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PAYBRIDGE_REDIS_URL"`
	Address      string        `envconfig:"PAYBRIDGE_REDIS_ADDR"`
	Password     string        `envconfig:"PAYBRIDGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"PAYBRIDGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PAYBRIDGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PAYBRIDGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PAYBRIDGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PAYBRIDGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PAYBRIDGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type RateLimitConfig struct {
	CheckoutWindow     time.Duration `envconfig:"PAYBRIDGE_RATE_LIMIT_CHECKOUT_WINDOW" default:"1m"`
	CheckoutIPLimit    int           `envconfig:"PAYBRIDGE_RATE_LIMIT_CHECKOUT_IP_LIMIT" default:"20"`
	CheckoutEmailLimit int           `envconfig:"PAYBRIDGE_RATE_LIMIT_CHECKOUT_EMAIL_LIMIT" default:"10"`
}

type StripeConfig struct {
	SecretKey       string        `envconfig:"PAYBRIDGE_STRIPE_SECRET_KEY"`
	PublishableKey  string        `envconfig:"PAYBRIDGE_STRIPE_PUBLISHABLE_KEY"`
	WebhookSecret   string        `envconfig:"PAYBRIDGE_STRIPE_WEBHOOK_SECRET"`
	PriceID         string        `envconfig:"PAYBRIDGE_STRIPE_PRICE_ID"`
	Env             string        `envconfig:"PAYBRIDGE_STRIPE_ENV" default:"test"`
	TrialPeriodDays int           `envconfig:"PAYBRIDGE_TRIAL_PERIOD_DAYS" default:"3"`
	CallTimeout     time.Duration `envconfig:"PAYBRIDGE_STRIPE_CALL_TIMEOUT" default:"15s"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// Configured reports whether the Stripe gateway can be wired.
func (s StripeConfig) Configured() bool {
	return strings.TrimSpace(s.SecretKey) != "" && strings.TrimSpace(s.PriceID) != ""
}

type PaddleConfig struct {
	APIKey        string        `envconfig:"PAYBRIDGE_PADDLE_API_KEY"`
	ClientToken   string        `envconfig:"PAYBRIDGE_PADDLE_CLIENT_TOKEN"`
	WebhookSecret string        `envconfig:"PAYBRIDGE_PADDLE_WEBHOOK_SECRET"`
	PriceID       string        `envconfig:"PAYBRIDGE_PADDLE_PRICE_ID"`
	Env           string        `envconfig:"PAYBRIDGE_PADDLE_ENV" default:"sandbox"`
	CallTimeout   time.Duration `envconfig:"PAYBRIDGE_PADDLE_CALL_TIMEOUT" default:"15s"`
}

// Environment returns the normalized Paddle environment (sandbox/production).
func (p PaddleConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(p.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

// Configured reports whether the Paddle gateway can be wired.
func (p PaddleConfig) Configured() bool {
	return strings.TrimSpace(p.APIKey) != "" && strings.TrimSpace(p.PriceID) != ""
}

// ValidateProviders checks the startup precondition that at least one payment
// provider is fully configured, and that whatever is configured is coherent.
func (c *Config) ValidateProviders() error {
	var errs error

	if !c.Stripe.Configured() && !c.Paddle.Configured() {
		errs = multierr.Append(errs, fmt.Errorf("no payment provider configured: set %s_STRIPE_SECRET_KEY/%s_STRIPE_PRICE_ID or %s_PADDLE_API_KEY/%s_PADDLE_PRICE_ID", EnvPrefix, EnvPrefix, EnvPrefix, EnvPrefix))
	}

	switch c.Stripe.Environment() {
	case "test", "live":
	default:
		errs = multierr.Append(errs, fmt.Errorf("stripe environment must be test or live, got %q", c.Stripe.Env))
	}

	switch c.Paddle.Environment() {
	case "sandbox", "production":
	default:
		errs = multierr.Append(errs, fmt.Errorf("paddle environment must be sandbox or production, got %q", c.Paddle.Env))
	}

	return errs
}
