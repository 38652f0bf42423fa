package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/edgarsandoval/paybridge-backend/pkg/config"
	pkgerrors "github.com/edgarsandoval/paybridge-backend/pkg/errors"
	"github.com/edgarsandoval/paybridge-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var (
	errAPIKeyRequired   = errors.New("stripe secret key is required")
	errPriceIDRequired  = errors.New("stripe price id is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// Client carries the env-specific metadata the rest of the service needs;
// outbound calls go through stripe-go's package-level bindings against the
// backend configured here.
type Client struct {
	environment     string
	signingSecret   string
	priceID         string
	trialPeriodDays int
	callTimeout     time.Duration
}

// NewClient initializes Stripe once with the configured secrets and env.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.SecretKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	priceID := strings.TrimSpace(cfg.PriceID)
	if priceID == "" {
		return nil, errPriceIDRequired
	}

	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	signingSecret := strings.TrimSpace(cfg.WebhookSecret)
	if signingSecret == "" && logg != nil {
		logg.Warn(ctx, "stripe webhook secret not configured, signature verification disabled")
	}

	stripe.Key = apiKey
	if cfg.CallTimeout > 0 {
		backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			HTTPClient: &http.Client{Timeout: cfg.CallTimeout},
		})
		stripe.SetBackend(stripe.APIBackend, backend)
	}

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("stripe client initialized (%s)", env))
	}

	return &Client{
		environment:     env,
		signingSecret:   signingSecret,
		priceID:         priceID,
		trialPeriodDays: cfg.TrialPeriodDays,
		callTimeout:     cfg.CallTimeout,
	}, nil
}

// CallTimeout returns the outbound call deadline applied to the API backend.
func (c *Client) CallTimeout() time.Duration {
	if c == nil {
		return 0
	}
	return c.callTimeout
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SigningSecret returns the webhook signing secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

// PriceID returns the default subscription price.
func (c *Client) PriceID() string {
	if c == nil {
		return ""
	}
	return c.priceID
}

// TrialPeriodDays returns the configured trial length for new subscriptions.
func (c *Client) TrialPeriodDays() int {
	if c == nil {
		return 0
	}
	return c.trialPeriodDays
}

// VerifyEvent authenticates a webhook delivery and returns the parsed event.
// Stripe's signing format is proprietary, so verification is delegated to the
// SDK's canonical implementation. An empty signing secret skips verification
// and parses the payload as-is (local/dev opt-out).
func (c *Client) VerifyEvent(payload []byte, sigHeader string) (*stripe.Event, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "stripe client not configured")
	}

	if c.signingSecret == "" {
		var event stripe.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodePayload, err, "parse unsigned event")
		}
		return &event, nil
	}

	event, err := webhook.ConstructEvent(payload, sigHeader, c.signingSecret)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeSignature, err, "verify stripe signature")
	}
	return &event, nil
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, key string) error {
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "sk_test") || strings.HasPrefix(key, "rk_test") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a test secret key (sk_test/rk_test)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "sk_live") || strings.HasPrefix(key, "rk_live") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a live secret key (sk_live/rk_live)", liveEnv)
	default:
		return errInvalidStripeEnv
	}
}
