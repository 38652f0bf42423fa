package controllers

import (
	"net/http"

	"github.com/edgarsandoval/paybridge-backend/api/responses"
	"github.com/edgarsandoval/paybridge-backend/api/validators"
	"github.com/edgarsandoval/paybridge-backend/internal/billing"
	"github.com/edgarsandoval/paybridge-backend/internal/subscriptions"
	pkgerrors "github.com/edgarsandoval/paybridge-backend/pkg/errors"
	"github.com/edgarsandoval/paybridge-backend/pkg/logger"
)

// GetSubscription returns a subscription from the provider it belongs to.
func GetSubscription(svc *subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		provider, err := validators.ProviderParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		subscriptionID, err := validators.RequiredParam(r, "subscriptionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Get(r.Context(), provider, subscriptionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

type cancelSubscriptionRequest struct {
	EffectiveFrom string `json:"effective_from,omitempty" validate:"omitempty,oneof=immediately next_billing_period"`
}

// CancelSubscription requests cancellation at the owning provider. The
// tracked lifecycle state only changes when the provider's webhook confirms.
func CancelSubscription(svc *subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		provider, err := validators.ProviderParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		subscriptionID, err := validators.RequiredParam(r, "subscriptionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cancelSubscriptionRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		effective, err := billing.ParseEffectiveFrom(payload.EffectiveFrom)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Cancel(r.Context(), provider, subscriptionID, effective)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
