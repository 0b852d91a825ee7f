package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mcosta/payflow/internal/client"
	domainErrors "github.com/mcosta/payflow/internal/domain/errors"
	"github.com/mcosta/payflow/internal/domain/verification"
	"github.com/mcosta/payflow/internal/infrastructure/observability"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ProcessorAPI is the verifier's view of the payment processor.
type ProcessorAPI interface {
	GetTransaction(ctx context.Context, transactionID string) (*client.TransactionSnapshot, error)
	ListByOrder(ctx context.Context, orderID string) ([]client.TransactionSnapshot, error)
	ListRange(ctx context.Context, from, to time.Time) ([]client.TransactionSnapshot, error)
}

// VerificationConfig tunes the verification tasks.
type VerificationConfig struct {
	ProcessingTimeout    time.Duration
	AmountToleranceCents int64
	ReconcileWorkers     int
}

func (c VerificationConfig) withDefaults() VerificationConfig {
	if c.ProcessingTimeout <= 0 {
		c.ProcessingTimeout = 60 * time.Second
	}
	if c.AmountToleranceCents < 0 {
		c.AmountToleranceCents = 0
	}
	if c.ReconcileWorkers <= 0 {
		c.ReconcileWorkers = 4
	}
	return c
}

// VerificationService runs asynchronous checks against processed payments.
type VerificationService struct {
	verifRepo verification.Repository
	reconRepo verification.ReconciliationRepository
	processor ProcessorAPI
	cfg       VerificationConfig
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

// NewVerificationService creates a new VerificationService.
func NewVerificationService(
	verifRepo verification.Repository,
	reconRepo verification.ReconciliationRepository,
	processor ProcessorAPI,
	cfg VerificationConfig,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *VerificationService {
	return &VerificationService{
		verifRepo: verifRepo,
		reconRepo: reconRepo,
		processor: processor,
		cfg:       cfg.withDefaults(),
		metrics:   metrics,
		logger:    logger,
	}
}

// VerifyTransaction accepts a verification request and returns the pending
// record immediately. The check itself runs in the background and resolves
// the record exactly once.
func (s *VerificationService) VerifyTransaction(ctx context.Context, transactionID uuid.UUID, orderID string, expectedAmountCents *int64) (*verification.Verification, error) {
	v := verification.New(transactionID, orderID, expectedAmountCents)
	if err := s.verifRepo.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("create verification: %w", err)
	}
	if s.metrics != nil {
		s.metrics.ActiveVerifications.Inc()
	}

	snapshot := v.Clone()
	go s.runVerification(v.ID)
	return snapshot, nil
}

// runVerification performs the actual check. It owns the record until it
// writes the terminal state; any panic resolves the record as errored rather
// than leaving it pending forever.
func (s *VerificationService) runVerification(id uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ProcessingTimeout)
	defer cancel()

	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Str("verification_id", id.String()).Msg("verification task panicked")
			s.resolve(ctx, id, func(v *verification.Verification) error {
				return v.MarkError("internal error during verification")
			})
		}
	}()

	v, err := s.verifRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("verification_id", id.String()).Msg("failed to load verification")
		return
	}

	snapshot, err := s.processor.GetTransaction(ctx, v.TransactionID.String())
	if err != nil {
		// A payment that cannot be confirmed is invalid, whether the record
		// is missing or the processor was unreachable. Errored is reserved
		// for faults inside the check itself.
		issue := "could not fetch transaction from processor"
		if isNotFound(err) {
			issue = "transaction not found"
		} else {
			s.logger.Warn().Err(err).Str("verification_id", id.String()).Msg("could not fetch transaction")
		}
		s.resolve(ctx, id, func(v *verification.Verification) error {
			return v.Complete([]string{issue})
		})
		s.observeVerification(ctx, id, start)
		return
	}

	issues := s.checkSnapshot(v, snapshot)
	s.resolve(ctx, id, func(v *verification.Verification) error {
		return v.Complete(issues)
	})
	s.observeVerification(ctx, id, start)
}

// checkSnapshot returns every discrepancy between the verification's
// expectations and the transaction as the processor reports it. All checks
// run; the result carries the full set of issues, not just the first.
func (s *VerificationService) checkSnapshot(v *verification.Verification, snap *client.TransactionSnapshot) []string {
	var issues []string

	if snap.Status != "completed" {
		issues = append(issues, fmt.Sprintf("transaction status is %s, not completed", snap.Status))
	}

	if v.ExpectedAmount != nil {
		actual := snap.AmountCents()
		diff := actual - *v.ExpectedAmount
		if diff < 0 {
			diff = -diff
		}
		if diff > s.cfg.AmountToleranceCents {
			issues = append(issues, fmt.Sprintf(
				"amount mismatch: expected %d cents, got %d cents", *v.ExpectedAmount, actual))
		}
	}

	if v.OrderID != "" && snap.OrderID != v.OrderID {
		issues = append(issues, fmt.Sprintf(
			"order mismatch: expected %s, got %s", v.OrderID, snap.OrderID))
	}

	return issues
}

func (s *VerificationService) resolve(ctx context.Context, id uuid.UUID, mutate func(*verification.Verification) error) {
	v, err := s.verifRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("verification_id", id.String()).Msg("failed to load verification for resolution")
		return
	}
	if err := mutate(v); err != nil {
		s.logger.Error().Err(err).Str("verification_id", id.String()).Msg("failed to resolve verification")
		return
	}
	if err := s.verifRepo.Update(ctx, v); err != nil {
		s.logger.Error().Err(err).Str("verification_id", id.String()).Msg("failed to persist verification")
	}
}

func (s *VerificationService) observeVerification(ctx context.Context, id uuid.UUID, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.ActiveVerifications.Dec()
	s.metrics.VerificationDuration.Observe(time.Since(start).Seconds())
	if v, err := s.verifRepo.GetByID(ctx, id); err == nil {
		s.metrics.VerificationsTotal.WithLabelValues(string(v.Result)).Inc()
	}
}

// GetVerification returns a verification by id.
func (s *VerificationService) GetVerification(ctx context.Context, id uuid.UUID) (*verification.Verification, error) {
	return s.verifRepo.GetByID(ctx, id)
}

// OrderVerification is the synchronous answer to "has this order been paid".
type OrderVerification struct {
	OrderID       string
	Verified      bool
	TransactionID string
	Reason        string
	Transactions  []client.TransactionSnapshot
}

// VerifyOrderPayment checks synchronously whether an order has a completed
// transaction for the expected amount. An order with no transactions is an
// ordinary negative answer, not an error.
func (s *VerificationService) VerifyOrderPayment(ctx context.Context, orderID string, expectedAmountCents *int64) (*OrderVerification, error) {
	snapshots, err := s.processor.ListByOrder(ctx, orderID)
	if err != nil {
		if isNotFound(err) {
			return &OrderVerification{OrderID: orderID, Verified: false, Reason: "no transactions found for order"}, nil
		}
		return nil, err
	}
	if len(snapshots) == 0 {
		return &OrderVerification{OrderID: orderID, Verified: false, Reason: "no transactions found for order"}, nil
	}

	var reason string
	for _, snap := range snapshots {
		if snap.Status != "completed" {
			reason = fmt.Sprintf("transaction %s status is %s, not completed", snap.TransactionID, snap.Status)
			continue
		}
		if expectedAmountCents != nil {
			diff := snap.AmountCents() - *expectedAmountCents
			if diff < 0 {
				diff = -diff
			}
			if diff > s.cfg.AmountToleranceCents {
				reason = fmt.Sprintf("transaction %s amount does not match expected amount", snap.TransactionID)
				continue
			}
		}
		return &OrderVerification{
			OrderID:       orderID,
			Verified:      true,
			TransactionID: snap.TransactionID,
			Transactions:  snapshots,
		}, nil
	}

	return &OrderVerification{OrderID: orderID, Verified: false, Reason: reason, Transactions: snapshots}, nil
}

// ReconcilePayments starts a batch sweep over [start, end] and returns the
// pending record immediately.
func (s *VerificationService) ReconcilePayments(ctx context.Context, start, end time.Time, orderIDs []string) (*verification.Reconciliation, error) {
	rec, err := verification.NewReconciliation(start, end, orderIDs)
	if err != nil {
		return nil, err
	}
	if err := s.reconRepo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create reconciliation: %w", err)
	}

	snapshot := rec.Clone()
	go s.runReconciliation(rec.ID)
	return snapshot, nil
}

// runReconciliation fetches the range once and fans checking out across a
// bounded worker group.
func (s *VerificationService) runReconciliation(id uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ProcessingTimeout)
	defer cancel()

	rec, err := s.reconRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("reconciliation_id", id.String()).Msg("failed to load reconciliation")
		return
	}

	snapshots, err := s.processor.ListRange(ctx, rec.StartDate, rec.EndDate)
	if err != nil {
		s.logger.Warn().Err(err).Str("reconciliation_id", id.String()).Msg("could not fetch transactions for range")
		s.resolveReconciliation(ctx, id, func(r *verification.Reconciliation) error {
			return r.MarkError()
		})
		return
	}

	if len(rec.OrderIDs) > 0 {
		wanted := make(map[string]struct{}, len(rec.OrderIDs))
		for _, o := range rec.OrderIDs {
			wanted[o] = struct{}{}
		}
		filtered := snapshots[:0]
		for _, snap := range snapshots {
			if _, ok := wanted[snap.OrderID]; ok {
				filtered = append(filtered, snap)
			}
		}
		snapshots = filtered
	}

	var matched atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.ReconcileWorkers)
	for _, snap := range snapshots {
		snap := snap
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			if reconciled(snap) {
				matched.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.resolveReconciliation(ctx, id, func(r *verification.Reconciliation) error {
			return r.MarkError()
		})
		return
	}

	total := len(snapshots)
	m := int(matched.Load())
	s.resolveReconciliation(ctx, id, func(r *verification.Reconciliation) error {
		return r.Complete(total, m, total-m)
	})
}

// reconciled reports whether a record is settled and internally consistent:
// terminal, with a completion timestamp, and a failure reason only on failed
// records.
func reconciled(snap client.TransactionSnapshot) bool {
	switch snap.Status {
	case "completed":
		return snap.CompletedAt != nil && snap.FailureReason == nil
	case "failed":
		return snap.CompletedAt != nil && snap.FailureReason != nil
	default:
		return false
	}
}

func (s *VerificationService) resolveReconciliation(ctx context.Context, id uuid.UUID, mutate func(*verification.Reconciliation) error) {
	rec, err := s.reconRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("reconciliation_id", id.String()).Msg("failed to load reconciliation for resolution")
		return
	}
	if err := mutate(rec); err != nil {
		s.logger.Error().Err(err).Str("reconciliation_id", id.String()).Msg("failed to resolve reconciliation")
		return
	}
	if err := s.reconRepo.Update(ctx, rec); err != nil {
		s.logger.Error().Err(err).Str("reconciliation_id", id.String()).Msg("failed to persist reconciliation")
		return
	}
	if s.metrics != nil {
		s.metrics.ReconciliationsTotal.WithLabelValues(string(rec.Status)).Inc()
	}
}

// GetReconciliation returns a reconciliation by id.
func (s *VerificationService) GetReconciliation(ctx context.Context, id uuid.UUID) (*verification.Reconciliation, error) {
	return s.reconRepo.GetByID(ctx, id)
}

// isNotFound recognizes a definitive 404 from the processor.
func isNotFound(err error) bool {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return errors.Is(err, domainErrors.ErrTransactionNotFound)
}
