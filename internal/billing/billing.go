package billing

import (
	"context"
	"strings"
	"time"

	"github.com/edgarsandoval/paybridge-backend/internal/events"
	pkgerrors "github.com/edgarsandoval/paybridge-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// Customer is a provider-side customer record.
type Customer struct {
	ID       string              `json:"id"`
	Provider events.ProviderKind `json:"provider"`
	Email    string              `json:"email,omitempty"`
	Name     string              `json:"name,omitempty"`
}

// CheckoutSession is a hosted payment page created at a provider.
type CheckoutSession struct {
	ID             string              `json:"id"`
	Provider       events.ProviderKind `json:"provider"`
	URL            string              `json:"url,omitempty"`
	ClientSecret   string              `json:"client_secret,omitempty"`
	Status         string              `json:"status,omitempty"`
	CustomerID     string              `json:"customer_id,omitempty"`
	SubscriptionID string              `json:"subscription_id,omitempty"`
}

// SetupIntent collects a payment method without charging.
type SetupIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret,omitempty"`
	CustomerID   string `json:"customer_id,omitempty"`
	Status       string `json:"status,omitempty"`
}

// Transaction is a provider-side payment record.
type Transaction struct {
	ID             string              `json:"id"`
	Provider       events.ProviderKind `json:"provider"`
	Status         string              `json:"status,omitempty"`
	CustomerID     string              `json:"customer_id,omitempty"`
	SubscriptionID string              `json:"subscription_id,omitempty"`
	Amount         decimal.Decimal     `json:"amount"`
	Currency       string              `json:"currency,omitempty"`
}

// Subscription is the provider's current view of a subscription, independent
// of locally tracked lifecycle state.
type Subscription struct {
	ID               string              `json:"id"`
	Provider         events.ProviderKind `json:"provider"`
	Status           string              `json:"status"`
	CustomerID       string              `json:"customer_id,omitempty"`
	CurrentPeriodEnd time.Time           `json:"current_period_end,omitzero"`

	// ScheduledChange is advisory: a pending provider-side action such as a
	// cancellation at period end.
	ScheduledChange string `json:"scheduled_change,omitempty"`
}

// EffectiveFrom selects when a cancellation takes effect.
type EffectiveFrom string

const (
	EffectiveImmediately EffectiveFrom = "immediately"
	EffectiveNextPeriod  EffectiveFrom = "next_billing_period"
)

// ParseEffectiveFrom normalizes raw input, defaulting to end of period.
func ParseEffectiveFrom(raw string) (EffectiveFrom, error) {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "", string(EffectiveNextPeriod):
		return EffectiveNextPeriod, nil
	case string(EffectiveImmediately):
		return EffectiveImmediately, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "effective_from must be immediately or next_billing_period")
	}
}

// Gateway is the provider-agnostic surface for outbound subscription
// operations. Each configured provider contributes one implementation.
type Gateway interface {
	Provider() events.ProviderKind
	GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string, effective EffectiveFrom) (*Subscription, error)
}
