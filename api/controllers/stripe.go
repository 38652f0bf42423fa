package controllers

import (
	"net/http"
	"strings"

	"github.com/edgarsandoval/paybridge-backend/api/responses"
	"github.com/edgarsandoval/paybridge-backend/api/validators"
	"github.com/edgarsandoval/paybridge-backend/internal/checkout"
	"github.com/edgarsandoval/paybridge-backend/pkg/config"
	pkgerrors "github.com/edgarsandoval/paybridge-backend/pkg/errors"
	"github.com/edgarsandoval/paybridge-backend/pkg/logger"
)

type createCheckoutSessionRequest struct {
	SuccessURL    string `json:"success_url" validate:"required,url"`
	CancelURL     string `json:"cancel_url" validate:"required,url"`
	CustomerID    string `json:"customer_id,omitempty" validate:"omitempty,max=256"`
	CustomerEmail string `json:"customer_email,omitempty" validate:"omitempty,email"`
}

// CreateCheckoutSession opens a hosted Stripe checkout.
func CreateCheckoutSession(svc *checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConfiguration, "stripe is not configured"))
			return
		}

		var payload createCheckoutSessionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.CreateCheckoutSession(r.Context(), checkout.CheckoutSessionInput{
			SuccessURL:    payload.SuccessURL,
			CancelURL:     payload.CancelURL,
			CustomerID:    payload.CustomerID,
			CustomerEmail: payload.CustomerEmail,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

// CheckoutRedirect creates a hosted session and immediately sends the browser
// to Stripe. Success and cancel URLs come from the configured frontend origin.
func CheckoutRedirect(svc *checkout.Service, cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConfiguration, "stripe is not configured"))
			return
		}

		email := strings.TrimSpace(r.URL.Query().Get("email"))
		frontend := strings.TrimRight(cfg.Server.FrontendURL, "/")

		session, err := svc.CreateCheckoutSession(r.Context(), checkout.CheckoutSessionInput{
			SuccessURL:    frontend + "/welcome.html?session_id={CHECKOUT_SESSION_ID}",
			CancelURL:     frontend + "/payment.html?status=canceled",
			CustomerEmail: email,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		http.Redirect(w, r, session.URL, http.StatusSeeOther)
	}
}

// GetCheckoutSession returns the state of a hosted session.
func GetCheckoutSession(svc *checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConfiguration, "stripe is not configured"))
			return
		}

		sessionID, err := validators.RequiredParam(r, "sessionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.GetCheckoutSession(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

type createCustomerRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name,omitempty" validate:"omitempty,max=256"`
}

// CreateStripeCustomer registers a Stripe customer.
func CreateStripeCustomer(svc *checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConfiguration, "stripe is not configured"))
			return
		}

		var payload createCustomerRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customer, err := svc.CreateCustomer(r.Context(), payload.Email, validators.SanitizeString(payload.Name, 256))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, customer)
	}
}

type createSetupIntentRequest struct {
	CustomerID string `json:"customer_id,omitempty" validate:"omitempty,max=256"`
	Email      string `json:"email,omitempty" validate:"omitempty,email"`
}

// CreateSetupIntent starts card collection for a customer. A new customer is
// registered first when only an email is supplied.
func CreateSetupIntent(svc *checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConfiguration, "stripe is not configured"))
			return
		}

		var payload createSetupIntentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.CustomerID == "" && payload.Email == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "customer_id or email is required"))
			return
		}

		customerID := payload.CustomerID
		if customerID == "" {
			customer, err := svc.CreateCustomer(r.Context(), payload.Email, "")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			customerID = customer.ID
		}

		intent, err := svc.CreateSetupIntent(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, intent)
	}
}

type createSubscriptionRequest struct {
	CustomerID      string `json:"customer_id" validate:"required,max=256"`
	PaymentMethodID string `json:"payment_method_id" validate:"required,max=256"`
}

// CreateStripeSubscription starts a subscription on the configured price.
func CreateStripeSubscription(svc *checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConfiguration, "stripe is not configured"))
			return
		}

		var payload createSubscriptionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		subscription, err := svc.CreateSubscription(r.Context(), checkout.CreateSubscriptionInput{
			CustomerID:      payload.CustomerID,
			PaymentMethodID: payload.PaymentMethodID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, subscription)
	}
}
