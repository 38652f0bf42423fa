package subscriptions

import (
	"context"
	"fmt"

	"github.com/edgarsandoval/paybridge-backend/internal/billing"
	"github.com/edgarsandoval/paybridge-backend/internal/events"
	"github.com/edgarsandoval/paybridge-backend/internal/lifecycle"
	pkgerrors "github.com/edgarsandoval/paybridge-backend/pkg/errors"
	"github.com/edgarsandoval/paybridge-backend/pkg/logger"
)

// ServiceParams groups dependencies for the subscription service.
type ServiceParams struct {
	Gateways  []billing.Gateway
	Lifecycle *lifecycle.Manager
	Logger    *logger.Logger
}

// Service routes provider-agnostic subscription operations to the configured
// gateway and folds in locally tracked lifecycle state.
type Service struct {
	gateways  map[events.ProviderKind]billing.Gateway
	lifecycle *lifecycle.Manager
	logg      *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if len(params.Gateways) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "at least one gateway required")
	}
	if params.Lifecycle == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "lifecycle manager required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}

	gateways := make(map[events.ProviderKind]billing.Gateway, len(params.Gateways))
	for _, gateway := range params.Gateways {
		if gateway == nil {
			continue
		}
		gateways[gateway.Provider()] = gateway
	}
	return &Service{
		gateways:  gateways,
		lifecycle: params.Lifecycle,
		logg:      params.Logger,
	}, nil
}

// View joins the provider's answer with the locally tracked state.
type View struct {
	Provider     events.ProviderKind       `json:"provider"`
	Subscription *billing.Subscription     `json:"subscription"`
	LocalStatus  events.SubscriptionStatus `json:"local_status"`
}

// Get returns a subscription as the provider sees it, annotated with the
// lifecycle status built from webhooks.
func (s *Service) Get(ctx context.Context, provider events.ProviderKind, subscriptionID string) (*View, error) {
	gateway, err := s.gatewayFor(provider)
	if err != nil {
		return nil, err
	}

	sub, err := gateway.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	return s.view(provider, sub), nil
}

// Cancel requests cancellation at the provider. The tracked state does not
// change here; the provider confirms through a webhook.
func (s *Service) Cancel(ctx context.Context, provider events.ProviderKind, subscriptionID string, effective billing.EffectiveFrom) (*View, error) {
	gateway, err := s.gatewayFor(provider)
	if err != nil {
		return nil, err
	}

	sub, err := gateway.CancelSubscription(ctx, subscriptionID, effective)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithProvider(ctx, provider.String())
	ctx = s.logg.WithSubscriptionID(ctx, subscriptionID)
	s.logg.Info(s.logg.WithField(ctx, "effective_from", string(effective)), "cancellation requested")
	return s.view(provider, sub), nil
}

func (s *Service) view(provider events.ProviderKind, sub *billing.Subscription) *View {
	local := events.StatusNone
	if tracked, ok := s.lifecycle.Get(sub.ID); ok {
		local = tracked.Status
	}
	return &View{Provider: provider, Subscription: sub, LocalStatus: local}
}

func (s *Service) gatewayFor(provider events.ProviderKind) (billing.Gateway, error) {
	gateway, ok := s.gateways[provider]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, fmt.Sprintf("provider %s is not configured", provider))
	}
	return gateway, nil
}
