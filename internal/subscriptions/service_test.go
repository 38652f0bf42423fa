package subscriptions

import (
	"context"
	"testing"

	"github.com/edgarsandoval/paybridge-backend/internal/billing"
	"github.com/edgarsandoval/paybridge-backend/internal/events"
	"github.com/edgarsandoval/paybridge-backend/internal/lifecycle"
	pkgerrors "github.com/edgarsandoval/paybridge-backend/pkg/errors"
	"github.com/edgarsandoval/paybridge-backend/pkg/logger"
	"github.com/rs/zerolog"
)

type fakeGateway struct {
	provider events.ProviderKind
	canceled []billing.EffectiveFrom
}

func (f *fakeGateway) Provider() events.ProviderKind { return f.provider }

func (f *fakeGateway) GetSubscription(_ context.Context, id string) (*billing.Subscription, error) {
	return &billing.Subscription{ID: id, Provider: f.provider, Status: "active"}, nil
}

func (f *fakeGateway) CancelSubscription(_ context.Context, id string, effective billing.EffectiveFrom) (*billing.Subscription, error) {
	f.canceled = append(f.canceled, effective)
	return &billing.Subscription{ID: id, Provider: f.provider, Status: "active", ScheduledChange: "cancel"}, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	return logger.New(logger.Options{ServiceName: "paybridge-test", Level: zerolog.Disabled})
}

func newTestService(t *testing.T, gateways ...billing.Gateway) (*Service, *lifecycle.Manager) {
	t.Helper()
	mgr := lifecycle.NewManager(lifecycle.ManagerParams{Logger: testLogger(t)})
	service, err := NewService(ServiceParams{
		Gateways:  gateways,
		Lifecycle: mgr,
		Logger:    testLogger(t),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service, mgr
}

func TestGetMergesLocalStatus(t *testing.T) {
	service, mgr := newTestService(t, &fakeGateway{provider: events.ProviderPaddle})
	ctx := context.Background()

	if _, err := mgr.Apply(ctx, &events.WebhookEvent{
		Provider:       events.ProviderPaddle,
		Kind:           events.KindSubscriptionCreated,
		SubscriptionID: "sub_1",
		Status:         "trialing",
	}); err != nil {
		t.Fatalf("seed lifecycle: %v", err)
	}

	view, err := service.Get(ctx, events.ProviderPaddle, "sub_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if view.Subscription.Status != "active" {
		t.Fatalf("expected provider status passthrough, got %q", view.Subscription.Status)
	}
	if view.LocalStatus != events.StatusTrialing {
		t.Fatalf("expected local trialing, got %s", view.LocalStatus)
	}
}

func TestGetUntrackedHasNoneStatus(t *testing.T) {
	service, _ := newTestService(t, &fakeGateway{provider: events.ProviderStripe})

	view, err := service.Get(context.Background(), events.ProviderStripe, "sub_unknown")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if view.LocalStatus != events.StatusNone {
		t.Fatalf("expected none, got %s", view.LocalStatus)
	}
}

func TestCancelRoutesToGateway(t *testing.T) {
	paddleGw := &fakeGateway{provider: events.ProviderPaddle}
	stripeGw := &fakeGateway{provider: events.ProviderStripe}
	service, _ := newTestService(t, paddleGw, stripeGw)

	view, err := service.Cancel(context.Background(), events.ProviderPaddle, "sub_1", billing.EffectiveImmediately)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if view.Subscription.ScheduledChange != "cancel" {
		t.Fatalf("unexpected view %+v", view)
	}
	if len(paddleGw.canceled) != 1 || paddleGw.canceled[0] != billing.EffectiveImmediately {
		t.Fatalf("expected paddle cancel, got %v", paddleGw.canceled)
	}
	if len(stripeGw.canceled) != 0 {
		t.Fatal("stripe gateway must not be touched")
	}
}

func TestUnconfiguredProviderIsRejected(t *testing.T) {
	service, _ := newTestService(t, &fakeGateway{provider: events.ProviderPaddle})

	_, err := service.Get(context.Background(), events.ProviderStripe, "sub_1")
	if !pkgerrors.HasCode(err, pkgerrors.CodeConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
