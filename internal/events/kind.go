package events

// EventKind is the shared taxonomy every provider's raw event types are
// normalized into. Raw types with no mapping become KindUnhandled; that is
// forward compatibility, not an error.
type EventKind string

const (
	KindTransactionCompleted     EventKind = "transaction.completed"
	KindTransactionPaymentFailed EventKind = "transaction.payment_failed"
	KindSubscriptionCreated      EventKind = "subscription.created"
	KindSubscriptionActivated    EventKind = "subscription.activated"
	KindSubscriptionUpdated      EventKind = "subscription.updated"
	KindSubscriptionCanceled     EventKind = "subscription.canceled"
	KindSubscriptionPaused       EventKind = "subscription.paused"
	KindSubscriptionResumed      EventKind = "subscription.resumed"
	KindCustomerCreated          EventKind = "customer.created"
	KindSetupSucceeded           EventKind = "setup.succeeded"
	KindInvoicePaid              EventKind = "invoice.paid"
	KindInvoicePaymentFailed     EventKind = "invoice.payment_failed"
	KindUnhandled                EventKind = "unhandled"
)

// String implements fmt.Stringer.
func (k EventKind) String() string {
	return string(k)
}

// Subscription reports whether the kind drives the subscription lifecycle.
func (k EventKind) Subscription() bool {
	switch k {
	case KindSubscriptionCreated,
		KindSubscriptionActivated,
		KindSubscriptionUpdated,
		KindSubscriptionCanceled,
		KindSubscriptionPaused,
		KindSubscriptionResumed:
		return true
	}
	return false
}

// Billing reports whether the kind is recorded as a billing event correlated
// to a subscription rather than a status transition.
func (k EventKind) Billing() bool {
	switch k {
	case KindTransactionCompleted, KindInvoicePaid:
		return true
	}
	return false
}
