package lifecycle

import (
	"context"
	"sync"
	"testing"

	"github.com/edgarsandoval/paybridge-backend/internal/events"
	"github.com/shopspring/decimal"
)

type captureRecorder struct {
	mu          sync.Mutex
	transitions []Subscription
	billing     []BillingEvent
}

func (r *captureRecorder) RecordTransition(_ context.Context, sub Subscription, _ events.SubscriptionStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, sub)
}

func (r *captureRecorder) RecordBillingEvent(_ context.Context, event BillingEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.billing = append(r.billing, event)
}

func newTestManager(rec Recorder) *Manager {
	return NewManager(ManagerParams{Recorder: rec})
}

func subEvent(kind events.EventKind, id, status string) *events.WebhookEvent {
	return &events.WebhookEvent{
		Provider:       events.ProviderPaddle,
		Kind:           kind,
		EventID:        "evt_" + id,
		SubscriptionID: id,
		Status:         status,
	}
}

func TestApplyCreatedMapsPayloadStatus(t *testing.T) {
	mgr := newTestManager(nil)

	transition, err := mgr.Apply(context.Background(), subEvent(events.KindSubscriptionCreated, "sub_1", "trialing"))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !transition.Changed {
		t.Fatal("expected transition to change state")
	}
	if transition.From != events.StatusNone || transition.To != events.StatusTrialing {
		t.Fatalf("unexpected transition %s -> %s", transition.From, transition.To)
	}

	sub, ok := mgr.Get("sub_1")
	if !ok {
		t.Fatal("expected subscription to be tracked")
	}
	if sub.Status != events.StatusTrialing {
		t.Fatalf("expected trialing, got %s", sub.Status)
	}
}

func TestApplyCanceledIsIdempotent(t *testing.T) {
	mgr := newTestManager(nil)
	ctx := context.Background()

	if _, err := mgr.Apply(ctx, subEvent(events.KindSubscriptionActivated, "sub_2", "active")); err != nil {
		t.Fatalf("activate: %v", err)
	}

	first, err := mgr.Apply(ctx, subEvent(events.KindSubscriptionCanceled, "sub_2", "canceled"))
	if err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	if !first.Changed || first.To != events.StatusCanceled {
		t.Fatalf("unexpected first cancel transition: %+v", first)
	}

	second, err := mgr.Apply(ctx, subEvent(events.KindSubscriptionCanceled, "sub_2", "canceled"))
	if err != nil {
		t.Fatalf("second cancel: %v", err)
	}
	if second.Changed {
		t.Fatal("re-applying cancel must be a no-op")
	}

	sub, _ := mgr.Get("sub_2")
	if sub.Status != events.StatusCanceled {
		t.Fatalf("expected canceled, got %s", sub.Status)
	}
}

func TestCanceledIsTerminal(t *testing.T) {
	mgr := newTestManager(nil)
	ctx := context.Background()

	if _, err := mgr.Apply(ctx, subEvent(events.KindSubscriptionCanceled, "sub_3", "canceled")); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	for _, kind := range []events.EventKind{
		events.KindSubscriptionActivated,
		events.KindSubscriptionUpdated,
		events.KindSubscriptionResumed,
		events.KindSubscriptionPaused,
	} {
		transition, err := mgr.Apply(ctx, subEvent(kind, "sub_3", "active"))
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		if transition.Changed {
			t.Fatalf("%s must not revive a canceled subscription", kind)
		}
		if transition.Reason != reasonTerminal {
			t.Fatalf("%s: expected terminal protection, got %q", kind, transition.Reason)
		}
	}

	sub, _ := mgr.Get("sub_3")
	if sub.Status != events.StatusCanceled {
		t.Fatalf("expected canceled, got %s", sub.Status)
	}
}

func TestCreatedAfterCancelStartsNewLifecycle(t *testing.T) {
	mgr := newTestManager(nil)
	ctx := context.Background()

	if _, err := mgr.Apply(ctx, subEvent(events.KindSubscriptionCanceled, "sub_4", "canceled")); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	transition, err := mgr.Apply(ctx, subEvent(events.KindSubscriptionCreated, "sub_4", "active"))
	if err != nil {
		t.Fatalf("recreate: %v", err)
	}
	if !transition.Changed || transition.To != events.StatusActive {
		t.Fatalf("expected recreate to active, got %+v", transition)
	}
}

func TestUpdatedWithoutStatusKeepsCurrent(t *testing.T) {
	mgr := newTestManager(nil)
	ctx := context.Background()

	if _, err := mgr.Apply(ctx, subEvent(events.KindSubscriptionCreated, "sub_5", "past_due")); err != nil {
		t.Fatalf("create: %v", err)
	}

	transition, err := mgr.Apply(ctx, subEvent(events.KindSubscriptionUpdated, "sub_5", ""))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if transition.Changed {
		t.Fatal("update without a status must not change state")
	}

	sub, _ := mgr.Get("sub_5")
	if sub.Status != events.StatusPastDue {
		t.Fatalf("expected past_due, got %s", sub.Status)
	}
}

func TestPauseAndResume(t *testing.T) {
	mgr := newTestManager(nil)
	ctx := context.Background()

	if _, err := mgr.Apply(ctx, subEvent(events.KindSubscriptionActivated, "sub_6", "active")); err != nil {
		t.Fatalf("activate: %v", err)
	}

	paused, err := mgr.Apply(ctx, subEvent(events.KindSubscriptionPaused, "sub_6", "paused"))
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	if paused.To != events.StatusPaused {
		t.Fatalf("expected paused, got %s", paused.To)
	}

	resumed, err := mgr.Apply(ctx, subEvent(events.KindSubscriptionResumed, "sub_6", "active"))
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.To != events.StatusActive {
		t.Fatalf("expected active, got %s", resumed.To)
	}
}

func TestMissingSubscriptionIDIsSkipped(t *testing.T) {
	mgr := newTestManager(nil)

	transition, err := mgr.Apply(context.Background(), subEvent(events.KindSubscriptionUpdated, "", "active"))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if transition.Changed {
		t.Fatal("event without subscription id must not change state")
	}
	if transition.Reason != reasonMissingEntityID {
		t.Fatalf("unexpected reason %q", transition.Reason)
	}
}

func TestBillingEventsAreRecorded(t *testing.T) {
	rec := &captureRecorder{}
	mgr := newTestManager(rec)

	evt := &events.WebhookEvent{
		Provider:       events.ProviderStripe,
		Kind:           events.KindInvoicePaid,
		EventID:        "evt_inv",
		SubscriptionID: "sub_7",
		TransactionID:  "in_123",
		Amount:         decimal.RequireFromString("19.99"),
	}
	transition, err := mgr.Apply(context.Background(), evt)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if transition.Changed {
		t.Fatal("billing events must not drive state transitions")
	}
	if transition.Reason != reasonBillingRecorded {
		t.Fatalf("unexpected reason %q", transition.Reason)
	}

	if len(rec.billing) != 1 {
		t.Fatalf("expected 1 billing record, got %d", len(rec.billing))
	}
	record := rec.billing[0]
	if record.SubscriptionID != "sub_7" || record.TransactionID != "in_123" {
		t.Fatalf("unexpected record %+v", record)
	}
	if !record.Amount.Equal(decimal.RequireFromString("19.99")) {
		t.Fatalf("unexpected amount %s", record.Amount)
	}
	if record.ID == "" {
		t.Fatal("expected a generated record id")
	}
}

func TestRecorderSeesTransitions(t *testing.T) {
	rec := &captureRecorder{}
	mgr := newTestManager(rec)
	ctx := context.Background()

	if _, err := mgr.Apply(ctx, subEvent(events.KindSubscriptionCreated, "sub_8", "trialing")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := mgr.Apply(ctx, subEvent(events.KindSubscriptionActivated, "sub_8", "active")); err != nil {
		t.Fatalf("activate: %v", err)
	}
	// Replay must not reach the recorder a second time.
	if _, err := mgr.Apply(ctx, subEvent(events.KindSubscriptionActivated, "sub_8", "active")); err != nil {
		t.Fatalf("replay: %v", err)
	}

	if len(rec.transitions) != 2 {
		t.Fatalf("expected 2 recorded transitions, got %d", len(rec.transitions))
	}
}

func TestConcurrentSameIDApplies(t *testing.T) {
	mgr := newTestManager(nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := mgr.Apply(ctx, subEvent(events.KindSubscriptionActivated, "sub_9", "active")); err != nil {
				t.Errorf("apply: %v", err)
			}
		}()
	}
	wg.Wait()

	sub, ok := mgr.Get("sub_9")
	if !ok || sub.Status != events.StatusActive {
		t.Fatalf("expected active subscription, got %+v ok=%v", sub, ok)
	}
}

func TestNilEventIsRejected(t *testing.T) {
	mgr := newTestManager(nil)
	if _, err := mgr.Apply(context.Background(), nil); err == nil {
		t.Fatal("expected an error for nil event")
	}
}
