package providers

import (
	"context"
	"strings"

	domainErrors "github.com/mcosta/payflow/internal/domain/errors"
)

// PayPalProvider is the PayPal rail. Validation only requires an account
// token; everything else is the gateway's problem.
type PayPalProvider struct {
	gateway Gateway
}

// NewPayPalProvider creates a PayPalProvider backed by the given gateway.
func NewPayPalProvider(gateway Gateway) *PayPalProvider {
	return &PayPalProvider{gateway: gateway}
}

func (p *PayPalProvider) Name() string { return "paypal" }

func (p *PayPalProvider) Charge(ctx context.Context, req ChargeRequest) (*Result, error) {
	if issues := p.ValidateDetails(ctx, req.Details); len(issues) > 0 {
		return &Result{Status: "failed", ErrorMessage: strings.Join(issues, "; ")},
			domainErrors.ErrProviderRejected
	}
	return p.gateway.Authorize(ctx, req)
}

func (p *PayPalProvider) Refund(ctx context.Context, req RefundRequest) (*Result, error) {
	return p.gateway.Reverse(ctx, req)
}

func (p *PayPalProvider) ValidateDetails(_ context.Context, details Details) []string {
	if details.PayPalToken == "" {
		return []string{"paypal account token is required"}
	}
	return nil
}
