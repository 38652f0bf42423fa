package events

import "testing"

func TestMapProviderStatusKnownVocabulary(t *testing.T) {
	cases := []struct {
		raw  string
		want SubscriptionStatus
	}{
		{"trialing", StatusTrialing},
		{"active", StatusActive},
		{"ACTIVE", StatusActive},
		{"past_due", StatusPastDue},
		{"past-due", StatusPastDue},
		{"paused", StatusPaused},
		{"canceled", StatusCanceled},
		{"cancelled", StatusCanceled},
		{"incomplete", StatusActive},
		{"incomplete_expired", StatusCanceled},
		{"unpaid", StatusPastDue},
		{"inactive", StatusCanceled},
	}
	for _, tc := range cases {
		got, known := MapProviderStatus(tc.raw)
		if got != tc.want {
			t.Fatalf("status %q: expected %s, got %s", tc.raw, tc.want, got)
		}
		if !known {
			t.Fatalf("status %q should be in the lookup table", tc.raw)
		}
	}
}

func TestMapProviderStatusUnknownDegrades(t *testing.T) {
	got, known := MapProviderStatus("super_premium")
	if known {
		t.Fatalf("unexpected table hit for unknown status")
	}
	if got != StatusActive {
		t.Fatalf("unknown status should degrade to active, got %s", got)
	}

	got, known = MapProviderStatus("auto_canceling")
	if known {
		t.Fatalf("unexpected table hit")
	}
	if got != StatusCanceled {
		t.Fatalf("cancel-like status should degrade to canceled, got %s", got)
	}
}

func TestTerminalOnlyCanceled(t *testing.T) {
	for _, status := range validSubscriptionStatuses {
		if status == StatusCanceled {
			if !status.Terminal() {
				t.Fatalf("canceled must be terminal")
			}
			continue
		}
		if status.Terminal() {
			t.Fatalf("status %s must not be terminal", status)
		}
	}
}

func TestParseAmountBestEffort(t *testing.T) {
	if got := ParseAmount("1099"); got.IntPart() != 1099 {
		t.Fatalf("expected 1099, got %s", got)
	}
	if got := ParseAmount(""); !got.IsZero() {
		t.Fatalf("empty amount should be zero, got %s", got)
	}
	if got := ParseAmount("n/a"); !got.IsZero() {
		t.Fatalf("garbage amount should be zero, got %s", got)
	}
}
