package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	domainErrors "github.com/mcosta/payflow/internal/domain/errors"
	"github.com/mcosta/payflow/internal/domain/transaction"
)

// TransactionRepository implements transaction.Repository using PostgreSQL.
// Amounts are stored as BIGINT cents; no floating point touches the database.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const transactionColumns = `id, kind, method, order_id, user_id,
	amount_cents, currency, status, provider_reference, failure_reason,
	original_transaction_id, refund_reason, created_at, completed_at`

// Create inserts a new transaction.
func (r *TransactionRepository) Create(ctx context.Context, t *transaction.Transaction) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO transactions
		 (id, kind, method, order_id, user_id,
		  amount_cents, currency, status, provider_reference, failure_reason,
		  original_transaction_id, refund_reason, created_at, completed_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		t.ID, string(t.Kind), string(t.Method), t.OrderID, t.UserID,
		t.Amount.ValueCents, t.Amount.Currency, string(t.Status), t.ProviderReference, t.FailureReason,
		t.OriginalTransactionID, t.RefundReason, t.CreatedAt, t.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a transaction by its ID.
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	return scanTransaction(r.pool.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
}

// Update updates an existing transaction.
func (r *TransactionRepository) Update(ctx context.Context, t *transaction.Transaction) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE transactions SET
		  status=$1, provider_reference=$2, failure_reason=$3, completed_at=$4
		 WHERE id=$5`,
		string(t.Status), t.ProviderReference, t.FailureReason, t.CompletedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrTransactionNotFound
	}
	return nil
}

// ListByOrder retrieves all transactions referencing an order.
func (r *TransactionRepository) ListByOrder(ctx context.Context, orderID string) ([]*transaction.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE order_id = $1 ORDER BY created_at ASC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list transactions by order: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// List lists transactions with optional filters.
func (r *TransactionRepository) List(ctx context.Context, f transaction.ListFilter) ([]*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE 1=1`
	args := []any{}
	argIdx := 1

	if f.OrderID != "" {
		query += fmt.Sprintf(" AND order_id = $%d", argIdx)
		args = append(args, f.OrderID)
		argIdx++
	}
	if f.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, string(*f.Status))
		argIdx++
	}
	if f.From != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *f.From)
		argIdx++
	}
	if f.To != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *f.To)
		argIdx++
	}

	query += " ORDER BY created_at ASC"

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// --- scanning helpers ---

func collectTransactions(rows pgx.Rows) ([]*transaction.Transaction, error) {
	var txns []*transaction.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func scanTransaction(s scanner) (*transaction.Transaction, error) {
	t := &transaction.Transaction{}
	var kind, method, status string
	err := s.Scan(
		&t.ID, &kind, &method, &t.OrderID, &t.UserID,
		&t.Amount.ValueCents, &t.Amount.Currency, &status, &t.ProviderReference, &t.FailureReason,
		&t.OriginalTransactionID, &t.RefundReason, &t.CreatedAt, &t.CompletedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domainErrors.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}

	t.Kind = transaction.Kind(kind)
	t.Method = transaction.Method(method)
	t.Status = transaction.Status(status)
	return t, nil
}
