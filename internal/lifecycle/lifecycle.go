package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/edgarsandoval/paybridge-backend/internal/events"
	pkgerrors "github.com/edgarsandoval/paybridge-backend/pkg/errors"
	"github.com/edgarsandoval/paybridge-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Subscription is the tracked state for one provider subscription id.
type Subscription struct {
	ID         string
	Provider   events.ProviderKind
	CustomerID string
	Status     events.SubscriptionStatus
	UpdatedAt  time.Time
}

// BillingEvent is a recorded payment occurrence correlated to a subscription
// when the payload carried one.
type BillingEvent struct {
	ID             string
	Provider       events.ProviderKind
	Kind           events.EventKind
	SubscriptionID string
	TransactionID  string
	CustomerID     string
	Amount         decimal.Decimal
	RecordedAt     time.Time
}

// Transition reports the outcome of applying one event.
type Transition struct {
	SubscriptionID string
	From           events.SubscriptionStatus
	To             events.SubscriptionStatus
	Changed        bool
	Reason         string
}

const (
	reasonApplied           = "applied"
	reasonNoOp              = "no_op"
	reasonTerminal          = "terminal_protected"
	reasonBillingRecorded   = "billing_recorded"
	reasonNotSubscription   = "not_subscription_event"
	reasonMissingEntityID   = "missing_subscription_id"
	reasonStatusKeptCurrent = "status_absent"
)

// Recorder is the seam for persistence/notification collaborators. The core
// ships with logging only; implementations must tolerate repeated delivery of
// the same transition.
type Recorder interface {
	RecordTransition(ctx context.Context, sub Subscription, from events.SubscriptionStatus)
	RecordBillingEvent(ctx context.Context, event BillingEvent)
}

// ManagerParams groups dependencies for the lifecycle manager.
type ManagerParams struct {
	Logger   *logger.Logger
	Recorder Recorder
	Now      func() time.Time
}

// Manager drives subscription state transitions from normalized events.
// Transitions for the same subscription id are serialized; different ids are
// fully independent.
type Manager struct {
	logg     *logger.Logger
	recorder Recorder
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	subs  map[string]*Subscription
}

// NewManager builds a lifecycle manager.
func NewManager(params ManagerParams) *Manager {
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		logg:     params.Logger,
		recorder: params.Recorder,
		now:      now,
		locks:    make(map[string]*sync.Mutex),
		subs:     make(map[string]*Subscription),
	}
}

// Get returns the tracked state for a subscription id.
func (m *Manager) Get(subscriptionID string) (Subscription, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[subscriptionID]
	if !ok {
		return Subscription{}, false
	}
	return *sub, true
}

// Apply processes one normalized event. It is idempotent: re-applying the
// same event yields the same end state and a no-op transition.
func (m *Manager) Apply(ctx context.Context, evt *events.WebhookEvent) (*Transition, error) {
	if evt == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event is required")
	}

	if evt.Kind.Billing() {
		m.recordBilling(ctx, evt)
		return &Transition{SubscriptionID: evt.SubscriptionID, Changed: false, Reason: reasonBillingRecorded}, nil
	}

	if !evt.Kind.Subscription() {
		return &Transition{Changed: false, Reason: reasonNotSubscription}, nil
	}

	if evt.SubscriptionID == "" {
		if m.logg != nil {
			m.logg.Warn(m.logCtx(ctx, evt), "subscription event without subscription id, skipping")
		}
		return &Transition{Changed: false, Reason: reasonMissingEntityID}, nil
	}

	lock := m.lockFor(evt.SubscriptionID)
	lock.Lock()
	defer lock.Unlock()

	current := m.snapshot(evt.SubscriptionID)
	from := current.Status

	// Terminal-state protection: canceled never regresses; only a fresh
	// subscription.created starts a new lifecycle for the id.
	if from.Terminal() && evt.Kind != events.KindSubscriptionCreated {
		if m.logg != nil {
			m.logg.Info(m.logCtx(ctx, evt), fmt.Sprintf("ignoring %s for canceled subscription", evt.Kind))
		}
		return &Transition{SubscriptionID: evt.SubscriptionID, From: from, To: from, Changed: false, Reason: reasonTerminal}, nil
	}

	target, reason := m.targetStatus(ctx, evt, from)

	if target == from {
		return &Transition{SubscriptionID: evt.SubscriptionID, From: from, To: from, Changed: false, Reason: reasonFor(reason, reasonNoOp)}, nil
	}

	updated := Subscription{
		ID:         evt.SubscriptionID,
		Provider:   evt.Provider,
		CustomerID: firstNonEmpty(evt.CustomerID, current.CustomerID),
		Status:     target,
		UpdatedAt:  m.now().UTC(),
	}
	m.store(updated)

	if m.logg != nil {
		ctx := m.logCtx(ctx, evt)
		ctx = m.logg.WithFields(ctx, map[string]any{"from": from.String(), "to": target.String()})
		m.logg.Info(ctx, "subscription transition")
	}
	if m.recorder != nil {
		m.recorder.RecordTransition(ctx, updated, from)
	}

	return &Transition{SubscriptionID: evt.SubscriptionID, From: from, To: target, Changed: true, Reason: reasonFor(reason, reasonApplied)}, nil
}

func (m *Manager) targetStatus(ctx context.Context, evt *events.WebhookEvent, current events.SubscriptionStatus) (events.SubscriptionStatus, string) {
	switch evt.Kind {
	case events.KindSubscriptionCreated:
		return m.mapStatus(ctx, evt), ""
	case events.KindSubscriptionActivated, events.KindSubscriptionResumed:
		return events.StatusActive, ""
	case events.KindSubscriptionUpdated:
		if evt.Status == "" {
			return current, reasonStatusKeptCurrent
		}
		return m.mapStatus(ctx, evt), ""
	case events.KindSubscriptionCanceled:
		return events.StatusCanceled, ""
	case events.KindSubscriptionPaused:
		return events.StatusPaused, ""
	default:
		return current, reasonNoOp
	}
}

func (m *Manager) mapStatus(ctx context.Context, evt *events.WebhookEvent) events.SubscriptionStatus {
	mapped, known := events.MapProviderStatus(evt.Status)
	if !known && evt.Status != "" && m.logg != nil {
		entry := m.logg.WithField(m.logCtx(ctx, evt), "raw_status", evt.Status)
		m.logg.Warn(entry, fmt.Sprintf("unrecognized subscription status, mapped to %s", mapped))
	}
	return mapped
}

func (m *Manager) recordBilling(ctx context.Context, evt *events.WebhookEvent) {
	record := BillingEvent{
		ID:             uuid.NewString(),
		Provider:       evt.Provider,
		Kind:           evt.Kind,
		SubscriptionID: evt.SubscriptionID,
		TransactionID:  evt.TransactionID,
		CustomerID:     evt.CustomerID,
		Amount:         evt.Amount,
		RecordedAt:     m.now().UTC(),
	}
	if m.logg != nil {
		entry := m.logg.WithFields(m.logCtx(ctx, evt), map[string]any{
			"transaction_id": record.TransactionID,
			"amount":         record.Amount.String(),
		})
		m.logg.Info(entry, "billing event recorded")
	}
	if m.recorder != nil {
		m.recorder.RecordBillingEvent(ctx, record)
	}
}

func (m *Manager) logCtx(ctx context.Context, evt *events.WebhookEvent) context.Context {
	if m.logg == nil {
		return ctx
	}
	ctx = m.logg.WithProvider(ctx, evt.Provider.String())
	ctx = m.logg.WithEventKind(ctx, evt.Kind.String())
	if evt.SubscriptionID != "" {
		ctx = m.logg.WithSubscriptionID(ctx, evt.SubscriptionID)
	}
	return ctx
}

func (m *Manager) lockFor(subscriptionID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[subscriptionID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[subscriptionID] = lock
	}
	return lock
}

func (m *Manager) snapshot(subscriptionID string) Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub, ok := m.subs[subscriptionID]; ok {
		return *sub
	}
	return Subscription{ID: subscriptionID, Status: events.StatusNone}
}

func (m *Manager) store(sub Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := sub
	m.subs[sub.ID] = &stored
}

func reasonFor(specific, fallback string) string {
	if specific != "" {
		return specific
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
