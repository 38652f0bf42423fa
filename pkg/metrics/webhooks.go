package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics records webhook delivery and lifecycle outcomes.
type WebhookMetrics struct {
	received    *prometheus.CounterVec
	rejected    *prometheus.CounterVec
	duplicates  *prometheus.CounterVec
	transitions *prometheus.CounterVec
}

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_received",
		Help: "Webhook deliveries accepted, by provider and normalized kind.",
	}, []string{"provider", "kind"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_rejected",
		Help: "Webhook deliveries rejected before processing, by provider and reason.",
	}, []string{"provider", "reason"})
	duplicates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_duplicate",
		Help: "Webhook redeliveries observed for an already-seen event id.",
	}, []string{"provider"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "subscription_transitions",
		Help: "Subscription status transitions applied, by target status.",
	}, []string{"status"})
	reg.MustRegister(received, rejected, duplicates, transitions)
	return &WebhookMetrics{
		received:    received,
		rejected:    rejected,
		duplicates:  duplicates,
		transitions: transitions,
	}
}

// IncReceived counts an accepted delivery for the given provider and kind.
func (m *WebhookMetrics) IncReceived(provider, kind string) {
	if m == nil || m.received == nil {
		return
	}
	m.received.WithLabelValues(normalizeLabel(provider), normalizeLabel(kind)).Inc()
}

// IncRejected counts a delivery rejected for the given reason.
func (m *WebhookMetrics) IncRejected(provider, reason string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(provider), normalizeLabel(reason)).Inc()
}

// IncDuplicate counts a redelivery of an already-observed event.
func (m *WebhookMetrics) IncDuplicate(provider string) {
	if m == nil || m.duplicates == nil {
		return
	}
	m.duplicates.WithLabelValues(normalizeLabel(provider)).Inc()
}

// IncTransition counts an applied subscription status transition.
func (m *WebhookMetrics) IncTransition(status string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(status)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
