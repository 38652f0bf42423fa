package events

import "fmt"

// ProviderKind identifies which payment provider emitted an event or owns an
// entity.
type ProviderKind string

const (
	ProviderStripe ProviderKind = "stripe"
	ProviderPaddle ProviderKind = "paddle"
)

var validProviders = []ProviderKind{
	ProviderStripe,
	ProviderPaddle,
}

// String implements fmt.Stringer.
func (p ProviderKind) String() string {
	return string(p)
}

// IsValid reports whether the value is known.
func (p ProviderKind) IsValid() bool {
	for _, candidate := range validProviders {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProviderKind converts raw input into a ProviderKind.
func ParseProviderKind(value string) (ProviderKind, error) {
	for _, candidate := range validProviders {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid provider %q", value)
}
