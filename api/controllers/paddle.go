package controllers

import (
	"net/http"

	"github.com/edgarsandoval/paybridge-backend/api/responses"
	"github.com/edgarsandoval/paybridge-backend/api/validators"
	"github.com/edgarsandoval/paybridge-backend/internal/transactions"
	pkgerrors "github.com/edgarsandoval/paybridge-backend/pkg/errors"
	"github.com/edgarsandoval/paybridge-backend/pkg/logger"
)

// PaddleClientConfig returns what the frontend needs to open Paddle.js.
func PaddleClientConfig(svc *transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConfiguration, "paddle is not configured"))
			return
		}
		responses.WriteSuccess(w, svc.ClientConfig())
	}
}

type createTransactionRequest struct {
	CustomerID    string `json:"customer_id,omitempty" validate:"omitempty,max=256"`
	CustomerEmail string `json:"customer_email,omitempty" validate:"omitempty,email"`
}

// CreatePaddleTransaction drafts a checkout transaction.
func CreatePaddleTransaction(svc *transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConfiguration, "paddle is not configured"))
			return
		}

		var payload createTransactionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txn, err := svc.CreateTransaction(r.Context(), transactions.CreateTransactionInput{
			CustomerID:    payload.CustomerID,
			CustomerEmail: payload.CustomerEmail,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, txn)
	}
}

// GetPaddleTransaction returns the provider's view of a transaction.
func GetPaddleTransaction(svc *transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConfiguration, "paddle is not configured"))
			return
		}

		transactionID, err := validators.RequiredParam(r, "transactionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txn, err := svc.GetTransaction(r.Context(), transactionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, txn)
	}
}

// CreatePaddleCustomer registers a Paddle customer.
func CreatePaddleCustomer(svc *transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConfiguration, "paddle is not configured"))
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
