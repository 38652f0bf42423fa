package transactions

import (
	"context"
	"time"

	"github.com/edgarsandoval/paybridge-backend/internal/billing"
	"github.com/edgarsandoval/paybridge-backend/internal/events"
	pkgerrors "github.com/edgarsandoval/paybridge-backend/pkg/errors"
	"github.com/edgarsandoval/paybridge-backend/pkg/logger"
	"github.com/edgarsandoval/paybridge-backend/pkg/paddle"
)

// PaddleAPI exposes the subset of Paddle operations the transaction service
// needs, so the service can be tested without network calls.
type PaddleAPI interface {
	CreateCustomer(ctx context.Context, email, name string) (*paddle.Customer, error)
	CreateTransaction(ctx context.Context, params paddle.CreateTransactionParams) (*paddle.Transaction, error)
	GetTransaction(ctx context.Context, transactionID string) (*paddle.Transaction, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*paddle.Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID, effectiveFrom string) (*paddle.Subscription, error)
}

// ServiceParams groups dependencies for the Paddle transaction service.
type ServiceParams struct {
	API    PaddleAPI
	Client *paddle.Client
	Logger *logger.Logger
}

// Service executes outbound Paddle operations: draft transactions that the
// frontend opens with Paddle.js, plus the billing.Gateway surface.
type Service struct {
	api    PaddleAPI
	client *paddle.Client
	logg   *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.API == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "paddle api required")
	}
	if params.Client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "paddle client required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{api: params.API, client: params.Client, logg: params.Logger}, nil
}

func (s *Service) Provider() events.ProviderKind {
	return events.ProviderPaddle
}

// ClientConfig is what a browser needs to initialize Paddle.js.
type ClientConfig struct {
	Environment string `json:"environment"`
	ClientToken string `json:"client_token"`
	PriceID     string `json:"price_id"`
}

// ClientConfig returns the frontend checkout configuration.
func (s *Service) ClientConfig() ClientConfig {
	return ClientConfig{
		Environment: s.client.Environment(),
		ClientToken: s.client.ClientToken(),
		PriceID:     s.client.PriceID(),
	}
}

// CreateTransactionInput identifies who the draft transaction is for. An
// existing customer id wins; otherwise Paddle creates the customer inline
// from the email.
type CreateTransactionInput struct {
	CustomerID    string
	CustomerEmail string
}

// CreateTransaction drafts a transaction on the configured price for
// Paddle.js to open as a checkout.
func (s *Service) CreateTransaction(ctx context.Context, input CreateTransactionInput) (*billing.Transaction, error) {
	if input.CustomerID == "" && input.CustomerEmail == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id or email is required")
	}

	created, err := s.api.CreateTransaction(ctx, paddle.CreateTransactionParams{
		PriceID:       s.client.PriceID(),
		CustomerID:    input.CustomerID,
		CustomerEmail: input.CustomerEmail,
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "transaction_id", created.ID), "paddle transaction drafted")
	return mapTransaction(created), nil
}

// GetTransaction returns the provider's view of a transaction.
func (s *Service) GetTransaction(ctx context.Context, transactionID string) (*billing.Transaction, error) {
	if transactionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}
	found, err := s.api.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	return mapTransaction(found), nil
}

// CreateCustomer registers a customer at Paddle.
func (s *Service) CreateCustomer(ctx context.Context, email, name string) (*billing.Customer, error) {
	created, err := s.api.CreateCustomer(ctx, email, name)
	if err != nil {
		return nil, err
	}
	return &billing.Customer{
		ID:       created.ID,
		Provider: events.ProviderPaddle,
		Email:    created.Email,
		Name:     created.Name,
	}, nil
}

// GetSubscription implements billing.Gateway.
func (s *Service) GetSubscription(ctx context.Context, subscriptionID string) (*billing.Subscription, error) {
	if subscriptionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription id is required")
	}
	found, err := s.api.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	return mapSubscription(found), nil
}

// CancelSubscription implements billing.Gateway. Paddle takes the timing
// directly as effective_from.
func (s *Service) CancelSubscription(ctx context.Context, subscriptionID string, effective billing.EffectiveFrom) (*billing.Subscription, error) {
	if subscriptionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription id is required")
	}

	canceled, err := s.api.CancelSubscription(ctx, subscriptionID, string(effective))
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithSubscriptionID(ctx, subscriptionID)
	s.logg.Info(s.logg.WithField(ctx, "effective_from", string(effective)), "paddle subscription cancellation requested")
	return mapSubscription(canceled), nil
}

func mapTransaction(txn *paddle.Transaction) *billing.Transaction {
	return &billing.Transaction{
		ID:             txn.ID,
		Provider:       events.ProviderPaddle,
		Status:         txn.Status,
		CustomerID:     txn.CustomerID,
		SubscriptionID: txn.SubscriptionID,
	}
}

func mapSubscription(sub *paddle.Subscription) *billing.Subscription {
	mapped := &billing.Subscription{
		ID:         sub.ID,
		Provider:   events.ProviderPaddle,
		Status:     sub.Status,
		CustomerID: sub.CustomerID,
	}
	if sub.CurrentBillingPeriod != nil && sub.CurrentBillingPeriod.EndsAt != "" {
		if end, err := time.Parse(time.RFC3339, sub.CurrentBillingPeriod.EndsAt); err == nil {
			mapped.CurrentPeriodEnd = end.UTC()
		}
	}
	if sub.ScheduledChange != nil && sub.ScheduledChange.Action != "" {
		mapped.ScheduledChange = sub.ScheduledChange.Action
	}
	return mapped
}
