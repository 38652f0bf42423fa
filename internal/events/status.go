package events

import (
	"fmt"
	"strings"
)

// SubscriptionStatus is the shared subscription state vocabulary both
// providers are mapped into.
type SubscriptionStatus string

const (
	StatusNone     SubscriptionStatus = "none"
	StatusTrialing SubscriptionStatus = "trialing"
	StatusActive   SubscriptionStatus = "active"
	StatusPastDue  SubscriptionStatus = "past_due"
	StatusPaused   SubscriptionStatus = "paused"
	StatusCanceled SubscriptionStatus = "canceled"
)

var validSubscriptionStatuses = []SubscriptionStatus{
	StatusNone,
	StatusTrialing,
	StatusActive,
	StatusPastDue,
	StatusPaused,
	StatusCanceled,
}

// String implements fmt.Stringer.
func (s SubscriptionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s SubscriptionStatus) IsValid() bool {
	for _, candidate := range validSubscriptionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Terminal reports whether further event-driven transitions are permitted.
// Only canceled is terminal; a new subscription.created revives the id.
func (s SubscriptionStatus) Terminal() bool {
	return s == StatusCanceled
}

// ParseSubscriptionStatus converts raw input into a SubscriptionStatus.
func ParseSubscriptionStatus(value string) (SubscriptionStatus, error) {
	for _, candidate := range validSubscriptionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid subscription status %q", value)
}

// statusAliases maps each provider's status vocabulary into the shared set.
// Unlisted strings degrade to the closest of active/canceled via
// MapProviderStatus; the providers' own vocabularies are authoritative here.
var statusAliases = map[string]SubscriptionStatus{
	// Both providers.
	"trialing": StatusTrialing,
	"active":   StatusActive,
	"past_due": StatusPastDue,
	"paused":   StatusPaused,
	"canceled": StatusCanceled,

	// Stripe.
	"incomplete":         StatusActive,
	"incomplete_expired": StatusCanceled,
	"unpaid":             StatusPastDue,
	"cancelled":          StatusCanceled,

	// Paddle.
	"inactive": StatusCanceled,
}

// MapProviderStatus translates a provider's raw status string through the
// fixed lookup table. The second return is false when the string was unknown
// and the closest default was used; callers log that, never fail on it.
func MapProviderStatus(raw string) (SubscriptionStatus, bool) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	normalized = strings.ReplaceAll(normalized, " ", "_")
	if normalized == "" {
		return StatusActive, false
	}
	if mapped, ok := statusAliases[normalized]; ok {
		return mapped, true
	}
	// Unknown vocabulary: anything that reads like an ending maps to
	// canceled, everything else to active.
	if strings.Contains(normalized, "cancel") || strings.Contains(normalized, "expire") || strings.Contains(normalized, "deactiv") {
		return StatusCanceled, false
	}
	return StatusActive, false
}
