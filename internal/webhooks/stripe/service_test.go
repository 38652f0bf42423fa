package stripewebhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/edgarsandoval/paybridge-backend/internal/events"
	"github.com/edgarsandoval/paybridge-backend/pkg/config"
	pkgerrors "github.com/edgarsandoval/paybridge-backend/pkg/errors"
	"github.com/edgarsandoval/paybridge-backend/pkg/logger"
	stripeclient "github.com/edgarsandoval/paybridge-backend/pkg/stripe"
	"github.com/rs/zerolog"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	return logger.New(logger.Options{ServiceName: "paybridge-test", Level: zerolog.Disabled})
}

func newTestService(t *testing.T, webhookSecret string) *Service {
	t.Helper()
	client, err := stripeclient.NewClient(context.Background(), config.StripeConfig{
		SecretKey:     "sk_test_abc",
		WebhookSecret: webhookSecret,
		PriceID:       "price_123",
		Env:           "test",
	}, testLogger(t))
	if err != nil {
		t.Fatalf("new stripe client: %v", err)
	}
	service, err := NewService(ServiceParams{Client: client, Logger: testLogger(t)})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}

func signStripePayload(payload []byte, secret string, ts int64) string {
	signed := fmt.Sprintf("%d.%s", ts, payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signed))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	service := newTestService(t, "whsec_test")
	payload := fmt.Appendf(nil, `{"id":"evt_1","object":"event","api_version":%q,"type":"customer.created"}`, stripe.APIVersion)
	header := signStripePayload(payload, "whsec_test", time.Now().Unix())

	if err := service.Verify(context.Background(), payload, header); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	service := newTestService(t, "whsec_test")
	payload := []byte(`{"id":"evt_1","type":"customer.created"}`)
	header := signStripePayload(payload, "whsec_test", time.Now().Unix())

	err := service.Verify(context.Background(), []byte(`{"id":"evt_2"}`), header)
	if !pkgerrors.HasCode(err, pkgerrors.CodeSignature) {
		t.Fatalf("expected signature mismatch, got %v", err)
	}
}

func TestVerifySkipsWithoutSecret(t *testing.T) {
	service := newTestService(t, "")
	if err := service.Verify(context.Background(), []byte(`{}`), ""); err != nil {
		t.Fatalf("expected skip without secret, got %v", err)
	}
}

func TestNormalizeSubscriptionEvents(t *testing.T) {
	service := newTestService(t, "")

	cases := []struct {
		rawType  string
		wantKind events.EventKind
	}{
		{"customer.subscription.created", events.KindSubscriptionCreated},
		{"customer.subscription.updated", events.KindSubscriptionUpdated},
		{"customer.subscription.deleted", events.KindSubscriptionCanceled},
		{"customer.subscription.paused", events.KindSubscriptionPaused},
		{"customer.subscription.resumed", events.KindSubscriptionResumed},
	}

	for _, tc := range cases {
		payload := []byte(fmt.Sprintf(
			`{"id":"evt_1","type":%q,"data":{"object":{"id":"sub_123","customer":"cus_9","status":"trialing"}}}`,
			tc.rawType,
		))
		event, err := service.Normalize(context.Background(), payload)
		if err != nil {
			t.Fatalf("%s: %v", tc.rawType, err)
		}
		if event.Kind != tc.wantKind {
			t.Fatalf("%s: expected %s, got %s", tc.rawType, tc.wantKind, event.Kind)
		}
		if event.SubscriptionID != "sub_123" || event.CustomerID != "cus_9" {
			t.Fatalf("%s: unexpected ids %+v", tc.rawType, event)
		}
		if event.Status != "trialing" {
			t.Fatalf("%s: expected raw status trialing, got %q", tc.rawType, event.Status)
		}
	}
}

func TestNormalizeInvoicePaid(t *testing.T) {
	service := newTestService(t, "")
	payload := []byte(`{"id":"evt_inv","type":"invoice.paid","data":{"object":{"id":"in_88","subscription":"sub_123","customer":"cus_9","amount_paid":1099}}}`)

	event, err := service.Normalize(context.Background(), payload)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if event.Kind != events.KindInvoicePaid {
		t.Fatalf("expected invoice.paid, got %s", event.Kind)
	}
	if event.TransactionID != "in_88" || event.SubscriptionID != "sub_123" {
		t.Fatalf("unexpected ids %+v", event)
	}
	if event.Amount.String() != "1099" {
		t.Fatalf("expected amount 1099, got %s", event.Amount)
	}
}

func TestNormalizeCheckoutSessionCompleted(t *testing.T) {
	service := newTestService(t, "")
	payload := []byte(`{"id":"evt_cs","type":"checkout.session.completed","data":{"object":{"id":"cs_55","subscription":"sub_123","customer":"cus_9","amount_total":4999}}}`)

	event, err := service.Normalize(context.Background(), payload)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if event.Kind != events.KindTransactionCompleted {
		t.Fatalf("expected transaction.completed, got %s", event.Kind)
	}
	if event.TransactionID != "cs_55" || event.Amount.String() != "4999" {
		t.Fatalf("unexpected extraction %+v", event)
	}
}

func TestNormalizeUnknownTypeIsUnhandled(t *testing.T) {
	service := newTestService(t, "")
	payload := []byte(`{"id":"evt_x","type":"product.updated","data":{"object":{"id":"prod_1"}}}`)

	event, err := service.Normalize(context.Background(), payload)
	if err != nil {
		t.Fatalf("unknown types must not fail: %v", err)
	}
	if event.Kind != events.KindUnhandled {
		t.Fatalf("expected unhandled, got %s", event.Kind)
	}
	if event.RawType != "product.updated" {
		t.Fatalf("raw type must be preserved, got %q", event.RawType)
	}
}

func TestNormalizeGarbageFails(t *testing.T) {
	service := newTestService(t, "")
	_, err := service.Normalize(context.Background(), []byte("not json"))
	if !pkgerrors.HasCode(err, pkgerrors.CodePayload) {
		t.Fatalf("expected malformed payload, got %v", err)
	}
}
