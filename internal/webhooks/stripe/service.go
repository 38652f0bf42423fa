package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/edgarsandoval/paybridge-backend/internal/events"
	pkgerrors "github.com/edgarsandoval/paybridge-backend/pkg/errors"
	"github.com/edgarsandoval/paybridge-backend/pkg/logger"
	stripeclient "github.com/edgarsandoval/paybridge-backend/pkg/stripe"
	"github.com/stripe/stripe-go/v84"
)

// ServiceParams groups dependencies for the Stripe webhook protocol.
type ServiceParams struct {
	Client *stripeclient.Client
	Logger *logger.Logger
}

// Service translates Stripe deliveries into the shared event taxonomy.
// Signature verification is delegated to the Stripe SDK.
type Service struct {
	client *stripeclient.Client
	logg   *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{client: params.Client, logg: params.Logger}, nil
}

func (s *Service) Provider() events.ProviderKind {
	return events.ProviderStripe
}

// Verify authenticates the delivery. Without a signing secret configured the
// check is skipped with a warning so local setups keep working.
func (s *Service) Verify(ctx context.Context, payload []byte, signatureHeader string) error {
	if s.client.SigningSecret() == "" {
		s.logg.Warn(ctx, "stripe webhook secret not configured, skipping signature verification")
		return nil
	}
	_, err := s.client.VerifyEvent(payload, signatureHeader)
	return err
}

// Normalize maps a verified Stripe payload onto the shared taxonomy. Types
// outside the mapping become KindUnhandled.
func (s *Service) Normalize(ctx context.Context, payload []byte) (*events.WebhookEvent, error) {
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePayload, err, "parse stripe event")
	}

	normalized := &events.WebhookEvent{
		Provider: events.ProviderStripe,
		Kind:     kindForType(event.Type),
		EventID:  event.ID,
		RawType:  string(event.Type),
		Raw:      payload,
	}
	s.extractFields(&event, normalized)

	if normalized.Kind == events.KindUnhandled {
		s.logg.Info(s.logg.WithField(ctx, "raw_type", normalized.RawType), "unhandled stripe event type")
	}
	return normalized, nil
}

func kindForType(eventType stripe.EventType) events.EventKind {
	switch eventType {
	case stripe.EventTypeCheckoutSessionCompleted:
		return events.KindTransactionCompleted
	case stripe.EventTypeSetupIntentSucceeded:
		return events.KindSetupSucceeded
	case stripe.EventTypeCustomerCreated:
		return events.KindCustomerCreated
	case stripe.EventTypeCustomerSubscriptionCreated:
		return events.KindSubscriptionCreated
	case stripe.EventTypeCustomerSubscriptionUpdated:
		return events.KindSubscriptionUpdated
	case stripe.EventTypeCustomerSubscriptionDeleted:
		return events.KindSubscriptionCanceled
	case stripe.EventTypeCustomerSubscriptionPaused:
		return events.KindSubscriptionPaused
	case stripe.EventTypeCustomerSubscriptionResumed:
		return events.KindSubscriptionResumed
	case stripe.EventTypeInvoicePaid:
		return events.KindInvoicePaid
	case stripe.EventTypeInvoicePaymentFailed:
		return events.KindInvoicePaymentFailed
	default:
		return events.KindUnhandled
	}
}

// extractFields pulls entity ids, status and amount out of the event object.
// Everything here is best effort; a field the payload lacks stays zero.
func (s *Service) extractFields(event *stripe.Event, normalized *events.WebhookEvent) {
	switch normalized.Kind {
	case events.KindSubscriptionCreated,
		events.KindSubscriptionUpdated,
		events.KindSubscriptionCanceled,
		events.KindSubscriptionPaused,
		events.KindSubscriptionResumed:
		normalized.SubscriptionID = event.GetObjectValue("id")
		normalized.CustomerID = event.GetObjectValue("customer")
		normalized.Status = event.GetObjectValue("status")
	case events.KindInvoicePaid, events.KindInvoicePaymentFailed:
		normalized.TransactionID = event.GetObjectValue("id")
		normalized.SubscriptionID = event.GetObjectValue("subscription")
		normalized.CustomerID = event.GetObjectValue("customer")
		normalized.Amount = events.ParseAmount(event.GetObjectValue("amount_paid"))
	case events.KindTransactionCompleted:
		normalized.TransactionID = event.GetObjectValue("id")
		normalized.SubscriptionID = event.GetObjectValue("subscription")
		normalized.CustomerID = event.GetObjectValue("customer")
		normalized.Amount = events.ParseAmount(event.GetObjectValue("amount_total"))
	case events.KindSetupSucceeded:
		normalized.TransactionID = event.GetObjectValue("id")
		normalized.CustomerID = event.GetObjectValue("customer")
	case events.KindCustomerCreated:
		normalized.CustomerID = event.GetObjectValue("id")
	}
}
