package providers

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	domainErrors "github.com/mcosta/payflow/internal/domain/errors"
)

// Gateway is the outbound leg of a card-network or third-party provider: the
// single place a live integration plugs in.
type Gateway interface {
	Authorize(ctx context.Context, req ChargeRequest) (*Result, error)
	Reverse(ctx context.Context, req RefundRequest) (*Result, error)
}

// StaticGateway authorizes every request with a deterministic reference. It
// stands in where no live network integration is configured.
type StaticGateway struct {
	prefix string
}

// NewStaticGateway creates a StaticGateway tagging references with prefix.
func NewStaticGateway(prefix string) *StaticGateway {
	return &StaticGateway{prefix: prefix}
}

func (g *StaticGateway) Authorize(_ context.Context, _ ChargeRequest) (*Result, error) {
	return &Result{
		Reference: fmt.Sprintf("%s_txn_%s", g.prefix, uuid.New().String()[:8]),
		Status:    "success",
	}, nil
}

func (g *StaticGateway) Reverse(_ context.Context, _ RefundRequest) (*Result, error) {
	return &Result{
		Reference: fmt.Sprintf("%s_refund_%s", g.prefix, uuid.New().String()[:8]),
		Status:    "success",
	}, nil
}

// SimGateway simulates an external gateway with configurable latency and
// failure behavior. Test and demo wiring only.
type SimGateway struct {
	name        string
	failureRate float64 // 0.0 to 1.0
	latency     time.Duration
	timeoutRate float64 // 0.0 to 1.0
}

type SimGatewayOption func(*SimGateway)

func WithFailureRate(rate float64) SimGatewayOption {
	return func(g *SimGateway) { g.failureRate = rate }
}

func WithLatency(d time.Duration) SimGatewayOption {
	return func(g *SimGateway) { g.latency = d }
}

func WithTimeoutRate(rate float64) SimGatewayOption {
	return func(g *SimGateway) { g.timeoutRate = rate }
}

func NewSimGateway(name string, opts ...SimGatewayOption) *SimGateway {
	g := &SimGateway{
		name:        name,
		failureRate: 0.0,
		latency:     100 * time.Millisecond,
		timeoutRate: 0.0,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *SimGateway) Authorize(ctx context.Context, req ChargeRequest) (*Result, error) {
	select {
	case <-time.After(g.latency):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if rand.Float64() < g.timeoutRate {
		return nil, domainErrors.ErrProviderTimeout
	}

	if rand.Float64() < g.failureRate {
		return &Result{
			Status:       "failed",
			ErrorMessage: fmt.Sprintf("%s: declined transaction %s", g.name, req.TransactionID),
		}, domainErrors.ErrProviderRejected
	}

	return &Result{
		Reference: fmt.Sprintf("%s_txn_%s", g.name, uuid.New().String()[:8]),
		Status:    "success",
	}, nil
}

func (g *SimGateway) Reverse(ctx context.Context, _ RefundRequest) (*Result, error) {
	select {
	case <-time.After(g.latency):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if rand.Float64() < g.failureRate {
		return &Result{
			Status:       "failed",
			ErrorMessage: fmt.Sprintf("%s: refund declined", g.name),
		}, domainErrors.ErrProviderRejected
	}

	return &Result{
		Reference: fmt.Sprintf("%s_refund_%s", g.name, uuid.New().String()[:8]),
		Status:    "success",
	}, nil
}
