package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	domainErrors "github.com/mcosta/payflow/internal/domain/errors"
	"github.com/mcosta/payflow/internal/domain/transaction"
	"github.com/mcosta/payflow/internal/events"
	"github.com/mcosta/payflow/internal/infrastructure/observability"
	"github.com/mcosta/payflow/internal/providers"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// PaymentService orchestrates charges and refunds across providers.
type PaymentService struct {
	txRepo          transaction.Repository
	providerFactory *providers.Factory
	publisher       events.Publisher
	metrics         *observability.Metrics
	logger          zerolog.Logger
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	txRepo transaction.Repository,
	providerFactory *providers.Factory,
	publisher events.Publisher,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *PaymentService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &PaymentService{
		txRepo:          txRepo,
		providerFactory: providerFactory,
		publisher:       publisher,
		metrics:         metrics,
		logger:          logger,
	}
}

// ProcessRequest holds the input for processing a payment.
type ProcessRequest struct {
	Method      transaction.Method
	OrderID     string
	UserID      string
	AmountCents int64
	Currency    string
	Details     providers.Details
}

// Process runs a charge end to end: create the record in processing status,
// call the provider once, and move the record to exactly one terminal state.
// Unsupported methods and rejected details still leave a failed record behind
// so every attempt is auditable.
func (s *PaymentService) Process(ctx context.Context, req ProcessRequest) (*transaction.Transaction, error) {
	start := time.Now()

	txn, err := transaction.New(req.Method, req.OrderID, req.UserID, transaction.Amount{
		ValueCents: req.AmountCents,
		Currency:   req.Currency,
	})
	if err != nil {
		return nil, err
	}

	if !req.Method.Supported() {
		return s.failTransaction(ctx, txn, fmt.Sprintf("unsupported payment method: %s", req.Method))
	}

	provider, breaker, err := s.providerFactory.Get(req.Method)
	if err != nil {
		return s.failTransaction(ctx, txn, fmt.Sprintf("unsupported payment method: %s", req.Method))
	}

	details := req.Details
	details.AmountCents = req.AmountCents

	if issues := provider.ValidateDetails(ctx, details); len(issues) > 0 {
		return s.failTransaction(ctx, txn, strings.Join(issues, "; "))
	}

	if err := s.txRepo.Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	// Charges are not idempotent at the provider, so the call happens exactly
	// once. Breaker failures and provider rejections both end in failed.
	result, err := breaker.Execute(func() (*providers.Result, error) {
		return provider.Charge(ctx, providers.ChargeRequest{
			TransactionID: txn.ID.String(),
			AmountCents:   req.AmountCents,
			Currency:      req.Currency,
			UserID:        req.UserID,
			Details:       details,
		})
	})

	s.observeBreaker(provider.Name(), breaker.State())

	if err != nil {
		s.observeProvider(provider.Name(), "error")
		return s.settleFailed(ctx, txn, safeProviderError(err), start)
	}
	if result.Status != "success" {
		s.observeProvider(provider.Name(), "rejected")
		reason := result.ErrorMessage
		if reason == "" {
			reason = "payment rejected by provider"
		}
		return s.settleFailed(ctx, txn, reason, start)
	}
	s.observeProvider(provider.Name(), "success")

	if err := txn.MarkCompleted(result.Reference); err != nil {
		return nil, err
	}
	if err := s.txRepo.Update(ctx, txn); err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}

	s.observeTransaction(txn, start)
	s.publish(ctx, events.Event{
		Type:          events.TypePaymentProcessed,
		TransactionID: txn.ID.String(),
		OrderID:       txn.OrderID,
		OccurredAt:    time.Now(),
		Data: map[string]any{
			"method":       string(txn.Method),
			"amount_cents": txn.Amount.ValueCents,
			"currency":     txn.Amount.Currency,
		},
	})

	return txn, nil
}

// failTransaction records an attempt that never reached the provider.
func (s *PaymentService) failTransaction(ctx context.Context, txn *transaction.Transaction, reason string) (*transaction.Transaction, error) {
	if err := s.txRepo.Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	if err := txn.MarkFailed(reason); err != nil {
		return nil, err
	}
	if err := s.txRepo.Update(ctx, txn); err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}

	if s.metrics != nil {
		s.metrics.TransactionsTotal.WithLabelValues(string(txn.Method), string(txn.Status)).Inc()
	}
	s.publish(ctx, events.Event{
		Type:          events.TypePaymentFailed,
		TransactionID: txn.ID.String(),
		OrderID:       txn.OrderID,
		OccurredAt:    time.Now(),
		Data:          map[string]any{"reason": reason},
	})
	return txn, nil
}

// settleFailed moves an already-persisted processing record to failed.
func (s *PaymentService) settleFailed(ctx context.Context, txn *transaction.Transaction, reason string, start time.Time) (*transaction.Transaction, error) {
	if err := txn.MarkFailed(reason); err != nil {
		return nil, err
	}
	if err := s.txRepo.Update(ctx, txn); err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}

	s.observeTransaction(txn, start)
	s.publish(ctx, events.Event{
		Type:          events.TypePaymentFailed,
		TransactionID: txn.ID.String(),
		OrderID:       txn.OrderID,
		OccurredAt:    time.Now(),
		Data:          map[string]any{"reason": reason},
	})
	return txn, nil
}

// RefundRequest holds the input for refunding a completed charge.
type RefundRequest struct {
	TransactionID uuid.UUID
	AmountCents   int64 // 0 means full refund
	Reason        string
}

// Refund reverses a completed charge, fully or partially. The refund is a
// transaction in its own right, linked to the original.
func (s *PaymentService) Refund(ctx context.Context, req RefundRequest) (*transaction.Transaction, error) {
	original, err := s.txRepo.GetByID(ctx, req.TransactionID)
	if err != nil {
		return nil, err
	}

	amount := req.AmountCents
	if amount == 0 {
		amount = original.Amount.ValueCents
	}

	refund, err := transaction.NewRefund(original, amount, req.Reason)
	if err != nil {
		return nil, err
	}
	if err := s.txRepo.Create(ctx, refund); err != nil {
		return nil, fmt.Errorf("create refund: %w", err)
	}

	provider, breaker, err := s.providerFactory.Get(original.Method)
	if err != nil {
		return nil, err
	}

	reference := ""
	if original.ProviderReference != nil {
		reference = *original.ProviderReference
	}

	result, err := breaker.Execute(func() (*providers.Result, error) {
		return provider.Refund(ctx, providers.RefundRequest{
			TransactionID: refund.ID.String(),
			Reference:     reference,
			AmountCents:   amount,
			Currency:      original.Amount.Currency,
			UserID:        original.UserID,
		})
	})
	s.observeBreaker(provider.Name(), breaker.State())

	if err != nil || result.Status != "success" {
		reason := safeProviderError(err)
		if err == nil {
			reason = result.ErrorMessage
		}
		if markErr := refund.MarkFailed(reason); markErr != nil {
			return nil, markErr
		}
		if updErr := s.txRepo.Update(ctx, refund); updErr != nil {
			return nil, fmt.Errorf("update refund: %w", updErr)
		}
		if s.metrics != nil {
			s.metrics.RefundsTotal.WithLabelValues(string(refund.Status)).Inc()
		}
		return refund, nil
	}

	if err := refund.MarkCompleted(result.Reference); err != nil {
		return nil, err
	}
	if err := s.txRepo.Update(ctx, refund); err != nil {
		return nil, fmt.Errorf("update refund: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RefundsTotal.WithLabelValues(string(refund.Status)).Inc()
	}
	s.publish(ctx, events.Event{
		Type:          events.TypePaymentRefunded,
		TransactionID: refund.ID.String(),
		OrderID:       refund.OrderID,
		OccurredAt:    time.Now(),
		Data: map[string]any{
			"original_transaction_id": original.ID.String(),
			"amount_cents":            amount,
		},
	})

	return refund, nil
}

// ValidateDetails checks method-specific payment details without charging.
func (s *PaymentService) ValidateDetails(ctx context.Context, method transaction.Method, details providers.Details) ([]string, error) {
	if !method.Supported() {
		return nil, domainErrors.ErrUnsupportedMethod
	}
	provider, _, err := s.providerFactory.Get(method)
	if err != nil {
		return nil, domainErrors.ErrUnsupportedMethod
	}
	return provider.ValidateDetails(ctx, details), nil
}

// GetTransaction returns a transaction by id.
func (s *PaymentService) GetTransaction(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	return s.txRepo.GetByID(ctx, id)
}

// ListByOrder returns all transactions referencing an order.
func (s *PaymentService) ListByOrder(ctx context.Context, orderID string) ([]*transaction.Transaction, error) {
	return s.txRepo.ListByOrder(ctx, orderID)
}

// ListRange returns transactions created within [from, to].
func (s *PaymentService) ListRange(ctx context.Context, from, to time.Time, limit, offset int) ([]*transaction.Transaction, error) {
	return s.txRepo.List(ctx, transaction.ListFilter{
		From:   &from,
		To:     &to,
		Limit:  limit,
		Offset: offset,
	})
}

func (s *PaymentService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("event_type", event.Type).Msg("failed to publish event")
	}
}

func (s *PaymentService) observeTransaction(txn *transaction.Transaction, start time.Time) {
	if s.metrics == nil {
		return
	}
	method, status := string(txn.Method), string(txn.Status)
	s.metrics.TransactionsTotal.WithLabelValues(method, status).Inc()
	s.metrics.TransactionDuration.WithLabelValues(method, status).Observe(time.Since(start).Seconds())
}

func (s *PaymentService) observeProvider(name, result string) {
	if s.metrics != nil {
		s.metrics.ProviderRequests.WithLabelValues(name, result).Inc()
	}
}

func (s *PaymentService) observeBreaker(name string, state gobreaker.State) {
	if s.metrics != nil {
		s.metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
	}
}

// safeProviderError keeps breaker and gateway internals out of stored
// failure reasons.
func safeProviderError(err error) string {
	if err == nil {
		return "payment rejected by provider"
	}
	switch {
	case strings.Contains(err.Error(), "circuit breaker is open"):
		return "payment provider unavailable"
	case strings.Contains(err.Error(), "context deadline exceeded"):
		return "provider request timeout"
	default:
		return "payment rejected by provider"
	}
}
