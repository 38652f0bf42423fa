package validators

import (
	"net/http"

	"github.com/edgarsandoval/paybridge-backend/internal/events"
	pkgerrors "github.com/edgarsandoval/paybridge-backend/pkg/errors"
	"github.com/go-chi/chi/v5"
)

// ProviderParam parses the {provider} path parameter.
func ProviderParam(r *http.Request) (events.ProviderKind, error) {
	raw := chi.URLParam(r, "provider")
	provider, err := events.ParseProviderKind(raw)
	if err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "provider must be stripe or paddle").
			WithDetails(map[string]any{"provider": raw})
	}
	return provider, nil
}

// RequiredParam returns a non-empty path parameter or a validation error.
func RequiredParam(r *http.Request, name string) (string, error) {
	value := SanitizeString(chi.URLParam(r, name), 256)
	if value == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, name+" is required").
			WithDetails(map[string]any{"field": name})
	}
	return value, nil
}
