package checkout

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/edgarsandoval/paybridge-backend/internal/billing"
	"github.com/edgarsandoval/paybridge-backend/internal/events"
	pkgerrors "github.com/edgarsandoval/paybridge-backend/pkg/errors"
	"github.com/edgarsandoval/paybridge-backend/pkg/logger"
	pkgstripe "github.com/edgarsandoval/paybridge-backend/pkg/stripe"
	"github.com/stripe/stripe-go/v84"
)

// ServiceParams groups dependencies for the Stripe checkout service.
type ServiceParams struct {
	API    StripeAPI
	Client *pkgstripe.Client
	Logger *logger.Logger
}

// Service executes outbound Stripe operations: hosted checkout, customer and
// payment-method setup, direct subscription creation. It also implements
// billing.Gateway for provider-agnostic reads and cancellation.
type Service struct {
	api    StripeAPI
	client *pkgstripe.Client
	logg   *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.API == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe api required")
	}
	if params.Client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{api: params.API, client: params.Client, logg: params.Logger}, nil
}

func (s *Service) Provider() events.ProviderKind {
	return events.ProviderStripe
}

// CheckoutSessionInput configures a hosted checkout session.
type CheckoutSessionInput struct {
	SuccessURL    string
	CancelURL     string
	CustomerID    string
	CustomerEmail string
}

// CreateCheckoutSession opens a hosted subscription checkout for the
// configured price, with the configured trial period.
func (s *Service) CreateCheckoutSession(ctx context.Context, input CheckoutSessionInput) (*billing.CheckoutSession, error) {
	if input.SuccessURL == "" || input.CancelURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "success and cancel urls are required")
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(input.SuccessURL),
		CancelURL:  stripe.String(input.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(s.client.PriceID()), Quantity: stripe.Int64(1)},
		},
	}
	if days := s.client.TrialPeriodDays(); days > 0 {
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			TrialPeriodDays: stripe.Int64(int64(days)),
		}
	}
	if input.CustomerID != "" {
		params.Customer = stripe.String(input.CustomerID)
	} else if input.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(input.CustomerEmail)
	}

	created, err := s.api.CreateCheckoutSession(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeProviderCall, err, "create checkout session")
	}

	s.logg.Info(s.logg.WithField(ctx, "session_id", created.ID), "checkout session created")
	return mapSession(created), nil
}

// GetCheckoutSession returns the current state of a hosted session.
func (s *Service) GetCheckoutSession(ctx context.Context, sessionID string) (*billing.CheckoutSession, error) {
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	found, err := s.api.GetCheckoutSession(ctx, sessionID, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeProviderCall, err, "fetch checkout session")
	}
	return mapSession(found), nil
}

// CreateCustomer registers a customer at Stripe.
func (s *Service) CreateCustomer(ctx context.Context, email, name string) (*billing.Customer, error) {
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	params := &stripe.CustomerParams{Email: stripe.String(email)}
	if name != "" {
		params.Name = stripe.String(name)
	}
	created, err := s.api.CreateCustomer(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeProviderCall, err, "create customer")
	}
	return &billing.Customer{
		ID:       created.ID,
		Provider: events.ProviderStripe,
		Email:    created.Email,
		Name:     created.Name,
	}, nil
}

// CreateSetupIntent starts card collection for later off-session charges.
func (s *Service) CreateSetupIntent(ctx context.Context, customerID string) (*billing.SetupIntent, error) {
	if customerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	created, err := s.api.CreateSetupIntent(ctx, &stripe.SetupIntentParams{
		Customer:           stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Usage:              stripe.String("off_session"),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeProviderCall, err, "create setup intent")
	}
	return &billing.SetupIntent{
		ID:           created.ID,
		ClientSecret: created.ClientSecret,
		CustomerID:   customerID,
		Status:       string(created.Status),
	}, nil
}

// CreateSubscriptionInput configures direct subscription creation.
type CreateSubscriptionInput struct {
	CustomerID      string
	PaymentMethodID string
}

// CreateSubscription attaches the payment method, makes it the customer's
// default and starts a subscription on the configured price. An already
// attached payment method is not an error.
func (s *Service) CreateSubscription(ctx context.Context, input CreateSubscriptionInput) (*billing.Subscription, error) {
	if input.CustomerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if input.PaymentMethodID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method id is required")
	}

	_, err := s.api.AttachPaymentMethod(ctx, input.PaymentMethodID, &stripe.PaymentMethodAttachParams{
		Customer: stripe.String(input.CustomerID),
	})
	if err != nil && !alreadyAttached(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeProviderCall, err, "attach payment method")
	}

	_, err = s.api.UpdateCustomer(ctx, input.CustomerID, &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(input.PaymentMethodID),
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeProviderCall, err, "set default payment method")
	}

	params := &stripe.SubscriptionParams{
		Customer:             stripe.String(input.CustomerID),
		DefaultPaymentMethod: stripe.String(input.PaymentMethodID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(s.client.PriceID())},
		},
	}
	if days := s.client.TrialPeriodDays(); days > 0 {
		params.TrialPeriodDays = stripe.Int64(int64(days))
	}
	created, err := s.api.CreateSubscription(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeProviderCall, err, "create subscription")
	}

	ctx = s.logg.WithSubscriptionID(ctx, created.ID)
	s.logg.Info(ctx, "stripe subscription created")
	return mapSubscription(created), nil
}

// GetSubscription implements billing.Gateway.
func (s *Service) GetSubscription(ctx context.Context, subscriptionID string) (*billing.Subscription, error) {
	if subscriptionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription id is required")
	}
	found, err := s.api.GetSubscription(ctx, subscriptionID, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeProviderCall, err, "fetch subscription")
	}
	return mapSubscription(found), nil
}

// CancelSubscription implements billing.Gateway. Immediate cancellation uses
// Stripe's cancel call; end-of-period schedules it on the subscription.
func (s *Service) CancelSubscription(ctx context.Context, subscriptionID string, effective billing.EffectiveFrom) (*billing.Subscription, error) {
	if subscriptionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription id is required")
	}

	var canceled *stripe.Subscription
	var err error
	if effective == billing.EffectiveImmediately {
		canceled, err = s.api.CancelSubscription(ctx, subscriptionID, nil)
	} else {
		canceled, err = s.api.UpdateSubscription(ctx, subscriptionID, &stripe.SubscriptionParams{
			CancelAtPeriodEnd: stripe.Bool(true),
		})
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeProviderCall, err, "cancel subscription")
	}

	ctx = s.logg.WithSubscriptionID(ctx, subscriptionID)
	s.logg.Info(s.logg.WithField(ctx, "effective_from", string(effective)), "stripe subscription cancellation requested")
	return mapSubscription(canceled), nil
}

func mapSession(session *stripe.CheckoutSession) *billing.CheckoutSession {
	mapped := &billing.CheckoutSession{
		ID:           session.ID,
		Provider:     events.ProviderStripe,
		URL:          session.URL,
		ClientSecret: session.ClientSecret,
		Status:       string(session.Status),
	}
	if session.Customer != nil {
		mapped.CustomerID = session.Customer.ID
	}
	if session.Subscription != nil {
		mapped.SubscriptionID = session.Subscription.ID
	}
	return mapped
}

func mapSubscription(sub *stripe.Subscription) *billing.Subscription {
	mapped := &billing.Subscription{
		ID:       sub.ID,
		Provider: events.ProviderStripe,
		Status:   string(sub.Status),
	}
	if sub.Customer != nil {
		mapped.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		if end := sub.Items.Data[0].CurrentPeriodEnd; end > 0 {
			mapped.CurrentPeriodEnd = time.Unix(end, 0).UTC()
		}
	}
	if sub.CancelAtPeriodEnd {
		mapped.ScheduledChange = "cancel_at_next_billing_period"
	}
	return mapped
}

// alreadyAttached reports whether Stripe rejected an attach because the
// payment method is already on the customer.
func alreadyAttached(err error) bool {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return strings.Contains(strings.ToLower(stripeErr.Msg), "already been attached")
	}
	return strings.Contains(strings.ToLower(err.Error()), "already been attached")
}
