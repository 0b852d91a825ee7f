package providers

import (
	"fmt"
	"time"

	"github.com/mcosta/payflow/internal/domain/errors"
	"github.com/mcosta/payflow/internal/domain/transaction"
	"github.com/sony/gobreaker/v2"
)

// Factory resolves providers by payment method and shields each one behind
// its own circuit breaker.
type Factory struct {
	providers       map[string]Provider
	circuitBreakers map[string]*gobreaker.CircuitBreaker[*Result]
}

// NewFactory creates a Factory with the given providers registered.
func NewFactory(providersList ...Provider) *Factory {
	f := &Factory{
		providers:       make(map[string]Provider),
		circuitBreakers: make(map[string]*gobreaker.CircuitBreaker[*Result]),
	}
	for _, p := range providersList {
		f.Register(p)
	}
	return f
}

// Register adds a provider and wires its circuit breaker.
func (f *Factory) Register(p Provider) {
	f.providers[p.Name()] = p
	f.circuitBreakers[p.Name()] = gobreaker.NewCircuitBreaker[*Result](gobreaker.Settings{
		Name:        p.Name(),
		MaxRequests: 10,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
	})
}

// Get returns the provider and breaker for a payment method.
func (f *Factory) Get(method transaction.Method) (Provider, *gobreaker.CircuitBreaker[*Result], error) {
	p, ok := f.providers[string(method)]
	if !ok {
		return nil, nil, fmt.Errorf("no provider for method %q: %w", method, errors.ErrProviderNotFound)
	}
	return p, f.circuitBreakers[string(method)], nil
}
