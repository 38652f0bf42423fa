package paddlewebhook

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/edgarsandoval/paybridge-backend/internal/events"
	pkgerrors "github.com/edgarsandoval/paybridge-backend/pkg/errors"
	"github.com/edgarsandoval/paybridge-backend/pkg/logger"
	"github.com/edgarsandoval/paybridge-backend/pkg/paddle"
)

// ServiceParams groups dependencies for the Paddle webhook protocol.
type ServiceParams struct {
	Client *paddle.Client
	Logger *logger.Logger
}

// Service translates Paddle deliveries into the shared event taxonomy.
// Paddle signs payloads with a documented HMAC scheme, verified locally.
type Service struct {
	client *paddle.Client
	logg   *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "paddle client required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{client: params.Client, logg: params.Logger}, nil
}

func (s *Service) Provider() events.ProviderKind {
	return events.ProviderPaddle
}

func (s *Service) Verify(ctx context.Context, payload []byte, signatureHeader string) error {
	return s.client.VerifyWebhook(ctx, payload, signatureHeader, s.logg)
}

// notification is the envelope Paddle wraps every webhook in.
type notification struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Data      struct {
		ID             string `json:"id"`
		Status         string `json:"status"`
		CustomerID     string `json:"customer_id"`
		SubscriptionID string `json:"subscription_id"`
		Details        struct {
			Totals struct {
				Total string `json:"total"`
			} `json:"totals"`
		} `json:"details"`
	} `json:"data"`
}

var kindsByType = map[string]events.EventKind{
	"transaction.completed":      events.KindTransactionCompleted,
	"transaction.payment_failed": events.KindTransactionPaymentFailed,
	"subscription.created":       events.KindSubscriptionCreated,
	"subscription.activated":     events.KindSubscriptionActivated,
	"subscription.updated":       events.KindSubscriptionUpdated,
	"subscription.canceled":      events.KindSubscriptionCanceled,
	"subscription.paused":        events.KindSubscriptionPaused,
	"subscription.resumed":       events.KindSubscriptionResumed,
	"customer.created":           events.KindCustomerCreated,
}

// Normalize maps a verified Paddle notification onto the shared taxonomy.
// Types outside the mapping become KindUnhandled.
func (s *Service) Normalize(ctx context.Context, payload []byte) (*events.WebhookEvent, error) {
	var note notification
	if err := json.Unmarshal(payload, &note); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePayload, err, "parse paddle notification")
	}

	kind, ok := kindsByType[note.EventType]
	if !ok {
		kind = events.KindUnhandled
	}

	normalized := &events.WebhookEvent{
		Provider: events.ProviderPaddle,
		Kind:     kind,
		EventID:  note.EventID,
		Status:   note.Data.Status,
		RawType:  note.EventType,
		Raw:      payload,
	}

	switch {
	case kind.Subscription():
		normalized.SubscriptionID = note.Data.ID
		normalized.CustomerID = note.Data.CustomerID
	case strings.HasPrefix(note.EventType, "transaction."):
		normalized.TransactionID = note.Data.ID
		normalized.SubscriptionID = note.Data.SubscriptionID
		normalized.CustomerID = note.Data.CustomerID
		normalized.Amount = events.ParseAmount(note.Data.Details.Totals.Total)
	case kind == events.KindCustomerCreated:
		normalized.CustomerID = note.Data.ID
	}

	if kind == events.KindUnhandled {
		s.logg.Info(s.logg.WithField(ctx, "raw_type", note.EventType), "unhandled paddle event type")
	}
	return normalized, nil
}
