package webhooks

import (
	"context"
	"time"

	"github.com/edgarsandoval/paybridge-backend/internal/events"
	"github.com/edgarsandoval/paybridge-backend/internal/lifecycle"
	pkgerrors "github.com/edgarsandoval/paybridge-backend/pkg/errors"
	"github.com/edgarsandoval/paybridge-backend/pkg/logger"
	"github.com/edgarsandoval/paybridge-backend/pkg/metrics"
	"github.com/edgarsandoval/paybridge-backend/pkg/redis"
)

// deliveryMarkerTTL bounds how long redelivery observation markers live.
const deliveryMarkerTTL = 72 * time.Hour

// Protocol is one provider's webhook handling: authenticity first, then
// translation into the shared event taxonomy.
type Protocol interface {
	Provider() events.ProviderKind

	// Verify checks payload authenticity against the signature header.
	// A configured provider without a webhook secret skips verification.
	Verify(ctx context.Context, payload []byte, signatureHeader string) error

	// Normalize translates a verified payload into a WebhookEvent. Unknown
	// event types normalize to KindUnhandled; only an unparsable payload
	// fails.
	Normalize(ctx context.Context, payload []byte) (*events.WebhookEvent, error)
}

// Result is what a webhook controller needs to answer the provider.
type Result struct {
	Event      *events.WebhookEvent
	Transition *lifecycle.Transition
	Duplicate  bool
}

// DispatcherParams groups dependencies for the dispatcher.
type DispatcherParams struct {
	Lifecycle *lifecycle.Manager
	Logger    *logger.Logger
	Metrics   *metrics.WebhookMetrics
	Markers   redis.MarkerStore
}

// Dispatcher runs the shared pipeline: verify, normalize, observe
// redelivery, apply. Redeliveries are observed and counted but still
// applied; the lifecycle is what makes replay safe.
type Dispatcher struct {
	lifecycle *lifecycle.Manager
	logg      *logger.Logger
	metrics   *metrics.WebhookMetrics
	markers   redis.MarkerStore
}

// NewDispatcher builds a dispatcher. Markers and metrics are optional.
func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Lifecycle == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "lifecycle manager required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Dispatcher{
		lifecycle: params.Lifecycle,
		logg:      params.Logger,
		metrics:   params.Metrics,
		markers:   params.Markers,
	}, nil
}

// Handle processes one delivery through the given provider protocol. A nil
// error means the delivery was verified and parsed; the caller acknowledges
// it regardless of what the lifecycle did with it.
func (d *Dispatcher) Handle(ctx context.Context, protocol Protocol, payload []byte, signatureHeader string) (*Result, error) {
	if protocol == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "protocol required")
	}
	provider := protocol.Provider()
	ctx = d.logg.WithProvider(ctx, provider.String())

	if err := protocol.Verify(ctx, payload, signatureHeader); err != nil {
		d.metrics.IncRejected(provider.String(), rejectionReason(err))
		d.logg.Warn(d.logg.WithField(ctx, "reason", rejectionReason(err)), "webhook rejected")
		return nil, err
	}

	event, err := protocol.Normalize(ctx, payload)
	if err != nil {
		d.metrics.IncRejected(provider.String(), rejectionReason(err))
		d.logg.Error(ctx, "webhook payload unparsable", err)
		return nil, err
	}

	ctx = d.logg.WithEventKind(ctx, event.Kind.String())
	if event.EventID != "" {
		ctx = d.logg.WithField(ctx, "event_id", event.EventID)
	}
	d.metrics.IncReceived(provider.String(), event.Kind.String())

	duplicate := d.observeDelivery(ctx, provider, event.EventID)

	transition, err := d.lifecycle.Apply(ctx, event)
	if err != nil {
		return nil, err
	}
	if transition.Changed {
		d.metrics.IncTransition(transition.To.String())
	}

	return &Result{Event: event, Transition: transition, Duplicate: duplicate}, nil
}

// observeDelivery marks the event id and reports whether this delivery was
// seen before. Marker failures degrade to "not a duplicate"; observation is
// telemetry, never a gate.
func (d *Dispatcher) observeDelivery(ctx context.Context, provider events.ProviderKind, eventID string) bool {
	if d.markers == nil || eventID == "" {
		return false
	}
	firstSeen, err := d.markers.SetNX(ctx, d.markers.DeliveryKey(provider.String(), eventID), time.Now().UTC().Format(time.RFC3339), deliveryMarkerTTL)
	if err != nil {
		d.logg.Warn(ctx, "delivery marker unavailable")
		return false
	}
	if firstSeen {
		return false
	}
	d.metrics.IncDuplicate(provider.String())
	d.logg.Info(ctx, "redelivered webhook event, applying anyway")
	return true
}

func rejectionReason(err error) string {
	switch {
	case pkgerrors.HasCode(err, pkgerrors.CodeSignatureFormat):
		return "invalid_signature_format"
	case pkgerrors.HasCode(err, pkgerrors.CodeSignature):
		return "signature_mismatch"
	case pkgerrors.HasCode(err, pkgerrors.CodePayload):
		return "malformed_payload"
	default:
		return "error"
	}
}
