package providers

import (
	"context"
	"strings"

	domainErrors "github.com/mcosta/payflow/internal/domain/errors"
)

// StripeProvider is the Stripe rail. A tokenized source is preferred; raw
// card details are accepted as a fallback and validated with the card rules.
type StripeProvider struct {
	gateway Gateway
	card    *CardProvider
}

// NewStripeProvider creates a StripeProvider backed by the given gateway.
// Card-fallback validation uses cfg.
func NewStripeProvider(gateway Gateway, cfg CardConfig) *StripeProvider {
	return &StripeProvider{gateway: gateway, card: NewCardProvider(gateway, cfg)}
}

func (p *StripeProvider) Name() string { return "stripe" }

func (p *StripeProvider) Charge(ctx context.Context, req ChargeRequest) (*Result, error) {
	if issues := p.ValidateDetails(ctx, req.Details); len(issues) > 0 {
		return &Result{Status: "failed", ErrorMessage: strings.Join(issues, "; ")},
			domainErrors.ErrProviderRejected
	}
	return p.gateway.Authorize(ctx, req)
}

func (p *StripeProvider) Refund(ctx context.Context, req RefundRequest) (*Result, error) {
	return p.gateway.Reverse(ctx, req)
}

func (p *StripeProvider) ValidateDetails(ctx context.Context, details Details) []string {
	if details.StripeToken != "" {
		return nil
	}
	if details.CardNumber == "" {
		return []string{"stripe token or card details are required"}
	}
	return p.card.ValidateDetails(ctx, details)
}
