package events

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// WebhookEvent is one normalized delivery. It is transient: constructed per
// delivery, applied to the lifecycle, then discarded. Entity fields are
// best-effort extractions; absence is represented by the zero value, never by
// a normalization failure.
type WebhookEvent struct {
	Provider ProviderKind
	Kind     EventKind

	// EventID is the provider's delivery/event identifier when the payload
	// carries one. Used only to observe redeliveries.
	EventID string

	SubscriptionID string
	TransactionID  string
	CustomerID     string

	// Status is the provider's raw status string for the affected entity.
	Status string

	// Amount is the billed amount when the payload carries one.
	Amount decimal.Decimal

	// RawType is the provider's original event type string.
	RawType string

	// Raw is the delivery payload, kept for the observability seam.
	Raw json.RawMessage
}

// EntityID returns the id of the entity the event is about, preferring the
// subscription.
func (e *WebhookEvent) EntityID() string {
	if e == nil {
		return ""
	}
	if e.SubscriptionID != "" {
		return e.SubscriptionID
	}
	if e.TransactionID != "" {
		return e.TransactionID
	}
	return e.CustomerID
}

// ParseAmount converts a provider's textual amount into a decimal, tolerating
// absence and garbage. Providers report minor units as strings ("1099") or
// numbers; anything unparsable degrades to zero.
func ParseAmount(raw string) decimal.Decimal {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero
	}
	return amount
}
