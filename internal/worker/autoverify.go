package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mcosta/payflow/internal/events"
	"github.com/mcosta/payflow/internal/infrastructure/observability"
	infraRedis "github.com/mcosta/payflow/internal/infrastructure/redis"
	"github.com/mcosta/payflow/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Consumer is the stream surface the worker reads from.
type Consumer interface {
	CreateGroup(ctx context.Context) error
	Read(ctx context.Context) ([]redis.XStream, error)
	Ack(ctx context.Context, messageID string) error
}

// claim marks a transaction as taken by one verifier instance.
type claim interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// AutoVerifier consumes payment events from the stream and kicks off a
// verification for every processed payment. The per-transaction claim is an
// idempotency marker, not a critical-section lock: once a verification has
// started the claim is kept for its full TTL, so redeliveries and other
// instances are deduplicated for that window even though the check itself
// resolves asynchronously.
type AutoVerifier struct {
	consumer     Consumer
	verification *service.VerificationService
	newClaim     func(transactionID string) claim
	metrics      *observability.Metrics
	logger       zerolog.Logger
}

func NewAutoVerifier(
	redisClient *redis.Client,
	consumer Consumer,
	verification *service.VerificationService,
	claimTTL time.Duration,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *AutoVerifier {
	return &AutoVerifier{
		consumer:     consumer,
		verification: verification,
		newClaim: func(transactionID string) claim {
			return infraRedis.NewDistributedLock(redisClient, "verify:"+transactionID, claimTTL)
		},
		metrics: metrics,
		logger:  logger,
	}
}

// Run consumes the stream until ctx is cancelled.
func (w *AutoVerifier) Run(ctx context.Context) error {
	if err := w.consumer.CreateGroup(ctx); err != nil {
		w.logger.Error().Err(err).Msg("Failed to create consumer group (may already exist)")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		streams, err := w.consumer.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Error().Err(err).Msg("Failed to read from stream")
			time.Sleep(1 * time.Second)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				w.handle(ctx, msg.ID, msg.Values)
			}
		}
	}
}

func (w *AutoVerifier) handle(ctx context.Context, messageID string, values map[string]any) {
	eventType, _ := values["event_type"].(string)
	if eventType != events.TypePaymentProcessed {
		// Failed and refunded payments are not auto-verified.
		w.consumer.Ack(ctx, messageID)
		return
	}

	rawID, _ := values["transaction_id"].(string)
	transactionID, err := uuid.Parse(rawID)
	if err != nil {
		w.logger.Error().Str("raw", rawID).Msg("Invalid transaction ID in stream message")
		w.consumer.Ack(ctx, messageID)
		return
	}
	orderID, _ := values["order_id"].(string)

	c := w.newClaim(transactionID.String())
	acquired, err := c.Acquire(ctx)
	if err != nil {
		// Left unacked; the consumer group redelivers the message.
		w.logger.Warn().Err(err).Str("transaction_id", transactionID.String()).Msg("Claim check failed")
		return
	}
	if !acquired {
		// Another instance already claimed this transaction within the TTL.
		w.consumer.Ack(ctx, messageID)
		return
	}

	if _, err := w.verification.VerifyTransaction(ctx, transactionID, orderID, nil); err != nil {
		// Give the claim back so a redelivery can retry immediately.
		c.Release(ctx)
		w.logger.Error().Err(err).Str("transaction_id", transactionID.String()).Msg("Failed to start verification")
		if w.metrics != nil {
			w.metrics.WorkerMessagesProcessed.WithLabelValues(infraRedis.PaymentStream, "error").Inc()
		}
		return
	}

	if w.metrics != nil {
		w.metrics.WorkerMessagesProcessed.WithLabelValues(infraRedis.PaymentStream, "success").Inc()
	}
	w.consumer.Ack(ctx, messageID)
}
