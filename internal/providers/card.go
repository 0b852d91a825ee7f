package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	domainErrors "github.com/mcosta/payflow/internal/domain/errors"
)

// CardConfig bounds card number and CVV lengths. Zero values fall back to
// the network defaults (13-19 digit PAN, 3-4 digit CVV).
type CardConfig struct {
	MinCardLength int
	MaxCardLength int
	MinCVVLength  int
	MaxCVVLength  int
}

func (c CardConfig) withDefaults() CardConfig {
	if c.MinCardLength == 0 {
		c.MinCardLength = 13
	}
	if c.MaxCardLength == 0 {
		c.MaxCardLength = 19
	}
	if c.MinCVVLength == 0 {
		c.MinCVVLength = 3
	}
	if c.MaxCVVLength == 0 {
		c.MaxCVVLength = 4
	}
	return c
}

// CardProvider is the credit card rail. Card details are validated locally
// (Luhn, length, CVV, expiry) before the gateway is asked to authorize.
type CardProvider struct {
	gateway Gateway
	cfg     CardConfig
	now     func() time.Time
}

// NewCardProvider creates a CardProvider backed by the given gateway.
func NewCardProvider(gateway Gateway, cfg CardConfig) *CardProvider {
	return &CardProvider{gateway: gateway, cfg: cfg.withDefaults(), now: time.Now}
}

func (p *CardProvider) Name() string { return "credit_card" }

func (p *CardProvider) Charge(ctx context.Context, req ChargeRequest) (*Result, error) {
	if issues := p.ValidateDetails(ctx, req.Details); len(issues) > 0 {
		return &Result{Status: "failed", ErrorMessage: strings.Join(issues, "; ")},
			domainErrors.ErrProviderRejected
	}
	return p.gateway.Authorize(ctx, req)
}

func (p *CardProvider) Refund(ctx context.Context, req RefundRequest) (*Result, error) {
	return p.gateway.Reverse(ctx, req)
}

// ValidateDetails checks number length, Luhn checksum, CVV length and expiry.
func (p *CardProvider) ValidateDetails(_ context.Context, details Details) []string {
	var issues []string

	digits := stripNonDigits(details.CardNumber)
	switch {
	case len(digits) < p.cfg.MinCardLength || len(digits) > p.cfg.MaxCardLength:
		issues = append(issues, fmt.Sprintf("card number must be %d-%d digits",
			p.cfg.MinCardLength, p.cfg.MaxCardLength))
	case !luhnValid(digits):
		issues = append(issues, "card number failed checksum")
	}

	if l := len(details.CVV); l < p.cfg.MinCVVLength || l > p.cfg.MaxCVVLength {
		issues = append(issues, fmt.Sprintf("cvv must be %d-%d digits",
			p.cfg.MinCVVLength, p.cfg.MaxCVVLength))
	}

	if details.ExpiryMonth < 1 || details.ExpiryMonth > 12 {
		issues = append(issues, "expiry month must be between 1 and 12")
	} else {
		now := p.now()
		if details.ExpiryYear < now.Year() ||
			(details.ExpiryYear == now.Year() && time.Month(details.ExpiryMonth) < now.Month()) {
			issues = append(issues, "card is expired")
		}
	}

	return issues
}

func stripNonDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// luhnValid applies the Luhn checksum: double every second digit from the
// rightmost, subtract 9 from doubles above 9, sum everything, valid iff the
// sum is divisible by 10.
func luhnValid(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
