package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/MarcoAS99/revolut-style-platform/internal/domain"
	"github.com/MarcoAS99/revolut-style-platform/internal/repository"
	"github.com/MarcoAS99/revolut-style-platform/pkg/metrics"
	"github.com/MarcoAS99/revolut-style-platform/pkg/mylogger"
	outboxDomain "github.com/MarcoAS99/revolut-style-platform/pkg/outbox/domain"
	"github.com/MarcoAS99/revolut-style-platform/pkg/outbox/worker"
)

type TransactionService interface {
	// Ingest applies a transaction exactly once per (accountID, idempotencyKey).
	// The bool result is false when an earlier committed transaction was
	// replayed instead of a new one being created.
	Ingest(
		ctx context.Context,
		accountID uuid.UUID,
		idempotencyKey string,
		amount decimal.Decimal,
		currency string,
		country string,
	) (*domain.Transaction, bool, error)

	GetBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
}

type transactionService struct {
	pool            *pgxpool.Pool
	transactionRepo repository.TransactionRepository
	outboxRepo      worker.OutboxRepository
	logger          *zap.Logger
	tracer          trace.Tracer
}

func NewTransactionService(
	pool *pgxpool.Pool,
	transactionRepo repository.TransactionRepository,
	outboxRepo worker.OutboxRepository,
	logger *zap.Logger,
) TransactionService {
	return &transactionService{
		pool:            pool,
		transactionRepo: transactionRepo,
		outboxRepo:      outboxRepo,
		logger:          logger,
		tracer:          otel.Tracer("service/transaction_service"),
	}
}

func (s *transactionService) Ingest(
	ctx context.Context,
	accountID uuid.UUID,
	idempotencyKey string,
	amount decimal.Decimal,
	currency string,
	country string,
) (*domain.Transaction, bool, error) {
	ctx, span := s.tracer.Start(ctx, "TransactionService.Ingest")
	defer span.End()

	span.SetAttributes(
		attribute.String("account_id", accountID.String()),
		attribute.String("idempotency_key", idempotencyKey),
	)

	transaction, err := domain.NewTransaction(accountID, idempotencyKey, amount, currency, country)
	if err != nil {
		mylogger.Warn(
			ctx,
			s.logger,
			"Ingest rejected by validation",
			zap.Error(err),
		)

		return nil, false, err
	}

	// Fast path: a retry for an already committed key is side-effect-free.
	// Correctness does not depend on this read, the unique constraint does
	// the real work.
	existing, err := s.transactionRepo.FindByIdempotencyKey(ctx, accountID, idempotencyKey)
	if err != nil && !errors.Is(err, repository.ErrTransactionNotFound) {
		return nil, false, err
	}
	if existing != nil {
		mylogger.Info(
			ctx,
			s.logger,
			"Replaying transaction for idempotency key",
			zap.String("transaction_id", existing.ID.String()),
		)

		metrics.TransactionsIngested.WithLabelValues("replayed").Inc()

		return existing, false, nil
	}

	created, err := s.createWithOutbox(ctx, transaction)
	if err == nil {
		metrics.TransactionsIngested.WithLabelValues("created").Inc()

		return created, true, nil
	}

	if !errors.Is(err, repository.ErrDuplicateTransaction) {
		return nil, false, err
	}

	// Lost the race against a concurrent request with the same key. The
	// winner committed before our insert was allowed to fail, so the
	// re-lookup should find its row.
	winner, err := s.transactionRepo.FindByIdempotencyKey(ctx, accountID, idempotencyKey)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			metrics.IdempotencyConflicts.Inc()

			mylogger.Error(
				ctx,
				s.logger,
				"Unique violation but no winner row visible",
				zap.String("account_id", accountID.String()),
				zap.String("idempotency_key", idempotencyKey),
			)

			return nil, false, ErrIdempotencyConflict
		}

		return nil, false, err
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Adopted concurrent winner for idempotency key",
		zap.String("transaction_id", winner.ID.String()),
	)

	metrics.TransactionsIngested.WithLabelValues("replayed").Inc()

	return winner, false, nil
}

// createWithOutbox runs the single atomic unit: lazy account provisioning,
// the transaction insert, and the outbox insert. The event payload is built
// only after the insert returned the assigned transaction id, still inside
// the same unit.
func (s *transactionService) createWithOutbox(ctx context.Context, transaction *domain.Transaction) (*domain.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "TransactionService.createWithOutbox")
	defer span.End()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		mylogger.Error(
			ctx,
			s.logger,
			"Error beginning transaction",
			zap.Error(err),
		)

		return nil, fmt.Errorf("error beginning transaction: %w", err)
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)
		err := tx.Rollback(cleanupCtx)

		if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Warn(
				cleanupCtx,
				s.logger,
				"Error rolling back transaction",
				zap.Error(err),
				zap.String("method_name", "createWithOutbox"),
				zap.String("service", "transaction_service"),
			)
		}
	}()

	if err := s.transactionRepo.EnsureAccount(ctx, tx, transaction.AccountID); err != nil {
		return nil, err
	}

	if err := s.transactionRepo.Create(ctx, tx, transaction); err != nil {
		return nil, err
	}

	eventID := uuid.New()
	payload := domain.NewTransactionCreatedEvent(eventID, transaction)

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	outboxEvent := &outboxDomain.OutboxEvent{
		ID:        eventID,
		EventType: domain.EventTypeTransactionCreated,
		Payload:   payloadBytes,
		Topic:     domain.TransactionEventsTopic,
	}

	if err := s.outboxRepo.SaveOutboxEvent(ctx, tx, outboxEvent); err != nil {
		mylogger.Warn(
			ctx,
			s.logger,
			"Failed to save outbox event",
			zap.Error(err),
		)

		return nil, fmt.Errorf("failed to save outbox event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Transaction ingested",
		zap.String("transaction_id", transaction.ID.String()),
		zap.String("account_id", transaction.AccountID.String()),
	)

	return transaction, nil
}

func (s *transactionService) GetBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	ctx, span := s.tracer.Start(ctx, "TransactionService.GetBalance")
	defer span.End()

	span.SetAttributes(
		attribute.String("account_id", accountID.String()),
	)

	return s.transactionRepo.GetBalance(ctx, accountID)
}
