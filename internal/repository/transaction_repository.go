package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/MarcoAS99/revolut-style-platform/internal/domain"
	"github.com/MarcoAS99/revolut-style-platform/pkg/mylogger"
)

const uniqueViolationCode = "23505"

type TransactionRepository interface {
	FindByIdempotencyKey(ctx context.Context, accountID uuid.UUID, key string) (*domain.Transaction, error)
	EnsureAccount(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) error
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	GetBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
}

type transactionRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewTransactionRepository(pool *pgxpool.Pool, logger *zap.Logger) TransactionRepository {
	return &transactionRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("repository/transaction_repo"),
	}
}

func (r *transactionRepo) FindByIdempotencyKey(ctx context.Context, accountID uuid.UUID, key string) (*domain.Transaction, error) {
	ctx, span := r.tracer.Start(ctx, "TransactionRepository.FindByIdempotencyKey")
	defer span.End()

	span.SetAttributes(
		attribute.String("account_id", accountID.String()),
		attribute.String("idempotency_key", key),
	)

	query := `
		SELECT id, account_id, amount, currency, country, idempotency_key, created_at
		FROM transactions
		WHERE account_id = $1 AND idempotency_key = $2;
	`

	var result domain.Transaction
	if err := r.pool.QueryRow(ctx, query, accountID, key).Scan(
		&result.ID,
		&result.AccountID,
		&result.Amount,
		&result.Currency,
		&result.Country,
		&result.IdempotencyKey,
		&result.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to look up transaction by idempotency key",
			zap.String("account_id", accountID.String()),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error finding transaction: %w", err)
	}

	return &result, nil
}

// EnsureAccount lazily provisions the account inside the caller's transaction
// so the account insert commits or aborts together with the transaction row.
func (r *transactionRepo) EnsureAccount(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) error {
	ctx, span := r.tracer.Start(ctx, "TransactionRepository.EnsureAccount")
	defer span.End()

	span.SetAttributes(
		attribute.String("account_id", accountID.String()),
	)

	query := `
		INSERT INTO accounts (id)
		VALUES ($1)
		ON CONFLICT (id) DO NOTHING;
	`

	if _, err := tx.Exec(ctx, query, accountID); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to ensure account",
			zap.String("account_id", accountID.String()),
			zap.Error(err),
		)

		return fmt.Errorf("error ensuring account: %w", err)
	}

	return nil
}

func (r *transactionRepo) Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error {
	ctx, span := r.tracer.Start(ctx, "TransactionRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("account_id", transaction.AccountID.String()),
		attribute.String("currency", transaction.Currency),
	)

	query := `
		INSERT INTO transactions (account_id, amount, currency, country, idempotency_key)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at;
	`

	if err := tx.QueryRow(ctx, query,
		transaction.AccountID,
		transaction.Amount,
		transaction.Currency,
		transaction.Country,
		transaction.IdempotencyKey,
	).Scan(
		&transaction.ID,
		&transaction.CreatedAt,
	); err != nil {
		span.RecordError(err)

		var pgError *pgconn.PgError
		if errors.As(err, &pgError) && pgError.Code == uniqueViolationCode {
			mylogger.Warn(
				ctx,
				r.logger,
				"Transaction already exists for idempotency key",
				zap.String("account_id", transaction.AccountID.String()),
				zap.String("idempotency_key", transaction.IdempotencyKey),
			)

			return ErrDuplicateTransaction
		}

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to create transaction",
			zap.String("account_id", transaction.AccountID.String()),
			zap.Error(err),
		)

		return fmt.Errorf("error creating transaction: %w", err)
	}

	return nil
}

func (r *transactionRepo) GetBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	ctx, span := r.tracer.Start(ctx, "TransactionRepository.GetBalance")
	defer span.End()

	span.SetAttributes(
		attribute.String("account_id", accountID.String()),
	)

	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE account_id = $1;
	`

	var balance decimal.Decimal
	if err := r.pool.QueryRow(ctx, query, accountID).Scan(&balance); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to get balance",
			zap.String("account_id", accountID.String()),
			zap.Error(err),
		)

		return decimal.Zero, fmt.Errorf("error getting balance: %w", err)
	}

	return balance, nil
}
