package webhooks

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/edgarsandoval/paybridge-backend/api/responses"
	"github.com/edgarsandoval/paybridge-backend/internal/webhooks"
	pkgerrors "github.com/edgarsandoval/paybridge-backend/pkg/errors"
	"github.com/edgarsandoval/paybridge-backend/pkg/logger"
)

// Signature header names per provider.
const (
	StripeSignatureHeader = "Stripe-Signature"
	PaddleSignatureHeader = "Paddle-Signature"
)

// maxPayloadBytes bounds webhook bodies; providers stay well under this.
const maxPayloadBytes = 1 << 20

// Handle builds the intake endpoint for one provider protocol. A verified,
// parseable delivery is always acknowledged with {"received": true}; what
// the lifecycle did with it is the service's business, not the provider's.
func Handle(dispatcher *webhooks.Dispatcher, protocol webhooks.Protocol, signatureHeader string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if dispatcher == nil || protocol == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConfiguration, "webhook intake unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		if _, err := dispatcher.Handle(ctx, protocol, payload, r.Header.Get(signatureHeader)); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		writeReceived(w)
	}
}

func writeReceived(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]bool{"received": true})
}
