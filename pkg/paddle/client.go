package paddle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/edgarsandoval/paybridge-backend/pkg/config"
	pkgerrors "github.com/edgarsandoval/paybridge-backend/pkg/errors"
	"github.com/edgarsandoval/paybridge-backend/pkg/logger"
)

const (
	sandboxEnv = "sandbox"
	prodEnv    = "production"

	sandboxBaseURL = "https://sandbox-api.paddle.com"
	prodBaseURL    = "https://api.paddle.com"

	defaultCallTimeout = 15 * time.Second
)

var (
	errAPIKeyRequired    = errors.New("paddle api key is required")
	errPriceIDRequired   = errors.New("paddle price id is required")
	errInvalidPaddleEnv  = fmt.Errorf("paddle environment must be %q or %q", sandboxEnv, prodEnv)
	errSubscriptionIDReq = errors.New("subscription id is required")
)

// Client is a thin Paddle Billing API client with bounded call timeouts.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	environment   string
	signingSecret string
	clientToken   string
	priceID       string
}

// NewClient builds a Paddle client for the configured environment.
func NewClient(ctx context.Context, cfg config.PaddleConfig, logg *logger.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	priceID := strings.TrimSpace(cfg.PriceID)
	if priceID == "" {
		return nil, errPriceIDRequired
	}

	var baseURL string
	switch cfg.Environment() {
	case sandboxEnv:
		baseURL = sandboxBaseURL
	case prodEnv:
		baseURL = prodBaseURL
	default:
		return nil, errInvalidPaddleEnv
	}

	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}

	signingSecret := strings.TrimSpace(cfg.WebhookSecret)
	if signingSecret == "" && logg != nil {
		logg.Warn(ctx, "paddle webhook secret not configured, signature verification disabled")
	}

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("paddle client initialized (%s)", cfg.Environment()))
	}

	return &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       baseURL,
		apiKey:        apiKey,
		environment:   cfg.Environment(),
		signingSecret: signingSecret,
		clientToken:   strings.TrimSpace(cfg.ClientToken),
		priceID:       priceID,
	}, nil
}

// Environment reports the normalized Paddle environment in use.
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

// ClientToken returns the public token handed to Paddle.js.
func (c *Client) ClientToken() string {
	if c == nil {
		return ""
	}
	return c.clientToken
}

// PriceID returns the default subscription price.
func (c *Client) PriceID() string {
	if c == nil {
		return ""
	}
	return c.priceID
}

// Customer is Paddle's customer shape, reduced to the fields the service reads.
type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Transaction is Paddle's transaction shape, reduced likewise.
type Transaction struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	CustomerID     string `json:"customer_id,omitempty"`
	SubscriptionID string `json:"subscription_id,omitempty"`
}

// BillingPeriod carries a subscription's current period bounds.
type BillingPeriod struct {
	StartsAt string `json:"starts_at,omitempty"`
	EndsAt   string `json:"ends_at,omitempty"`
}

// ScheduledChange describes a pending subscription change (e.g. a cancel at
// period end).
type ScheduledChange struct {
	Action      string `json:"action"`
	EffectiveAt string `json:"effective_at,omitempty"`
}

// Subscription is Paddle's subscription shape, reduced to the fields the
// service reads.
type Subscription struct {
	ID                   string           `json:"id"`
	Status               string           `json:"status"`
	CustomerID           string           `json:"customer_id,omitempty"`
	CurrentBillingPeriod *BillingPeriod   `json:"current_billing_period,omitempty"`
	NextBilledAt         string           `json:"next_billed_at,omitempty"`
	ScheduledChange      *ScheduledChange `json:"scheduled_change,omitempty"`
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

type transactionItem struct {
	PriceID  string `json:"price_id"`
	Quantity int    `json:"quantity"`
}

type createCustomerRequest struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type createTransactionRequest struct {
	Items      []transactionItem `json:"items"`
	CustomerID string            `json:"customer_id,omitempty"`
	Customer   *createCustomerRequest `json:"customer,omitempty"`
}

type cancelSubscriptionRequest struct {
	EffectiveFrom string `json:"effective_from"`
}

// CreateCustomer registers a customer with Paddle.
func (c *Client) CreateCustomer(ctx context.Context, email, name string) (*Customer, error) {
	if strings.TrimSpace(email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	var customer Customer
	err := c.do(ctx, http.MethodPost, "/customers", createCustomerRequest{Email: email, Name: name}, &customer)
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// CreateTransactionParams configures an inline-checkout transaction.
type CreateTransactionParams struct {
	PriceID       string
	CustomerID    string
	CustomerEmail string
}

// CreateTransaction opens a transaction for Paddle.js inline checkout. The
// customer is referenced by id when known, otherwise attached by email.
func (c *Client) CreateTransaction(ctx context.Context, params CreateTransactionParams) (*Transaction, error) {
	priceID := strings.TrimSpace(params.PriceID)
	if priceID == "" {
		priceID = c.priceID
	}

	req := createTransactionRequest{
		Items: []transactionItem{{PriceID: priceID, Quantity: 1}},
	}
	switch {
	case strings.TrimSpace(params.CustomerID) != "":
		req.CustomerID = params.CustomerID
	case strings.TrimSpace(params.CustomerEmail) != "":
		req.Customer = &createCustomerRequest{Email: params.CustomerEmail}
	}

	var tx Transaction
	if err := c.do(ctx, http.MethodPost, "/transactions", req, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetTransaction fetches a transaction by id.
func (c *Client) GetTransaction(ctx context.Context, transactionID string) (*Transaction, error) {
	if strings.TrimSpace(transactionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}
	var tx Transaction
	if err := c.do(ctx, http.MethodGet, "/transactions/"+transactionID, nil, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetSubscription fetches a subscription by id.
func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	if strings.TrimSpace(subscriptionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, errSubscriptionIDReq.Error())
	}
	var sub Subscription
	if err := c.do(ctx, http.MethodGet, "/subscriptions/"+subscriptionID, nil, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// CancelSubscription requests cancellation. effectiveFrom is Paddle's wire
// vocabulary: "immediately" or "next_billing_period".
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID, effectiveFrom string) (*Subscription, error) {
	if strings.TrimSpace(subscriptionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, errSubscriptionIDReq.Error())
	}
	var sub Subscription
	err := c.do(ctx, http.MethodPost, "/subscriptions/"+subscriptionID+"/cancel", cancelSubscriptionRequest{EffectiveFrom: effectiveFrom}, &sub)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c == nil || c.httpClient == nil {
		return pkgerrors.New(pkgerrors.CodeConfiguration, "paddle client not configured")
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode paddle request")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build paddle request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeProviderCall, err, fmt.Sprintf("%s %s", method, path))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeProviderCall, err, "read paddle response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return pkgerrors.New(pkgerrors.CodeProviderCall, fmt.Sprintf("paddle responded %d for %s %s", resp.StatusCode, method, path))
	}

	if out == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeProviderCall, err, "decode paddle envelope")
	}
	payload := env.Data
	if len(payload) == 0 {
		payload = raw
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeProviderCall, err, "decode paddle response")
	}
	return nil
}
