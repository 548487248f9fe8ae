package service_test

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/MarcoAS99/revolut-style-platform/internal/domain"
	"github.com/MarcoAS99/revolut-style-platform/internal/repository"
	"github.com/MarcoAS99/revolut-style-platform/internal/service"
)

// hiddenWinnerRepo simulates the pathological race: the insert reports a
// duplicate key, yet the winner's row never becomes visible to the re-lookup.
type hiddenWinnerRepo struct {
	repository.TransactionRepository
}

func (r hiddenWinnerRepo) FindByIdempotencyKey(_ context.Context, _ uuid.UUID, _ string) (*domain.Transaction, error) {
	return nil, repository.ErrTransactionNotFound
}

func (r hiddenWinnerRepo) Create(_ context.Context, _ pgx.Tx, _ *domain.Transaction) error {
	return repository.ErrDuplicateTransaction
}

func (s *IntegrationTestSuite) TestIngest_ConflictWhenWinnerRowNotVisible() {
	logger := zap.NewNop()
	realRepo := repository.NewTransactionRepository(s.DbPool, logger)
	svc := service.NewTransactionService(s.DbPool, hiddenWinnerRepo{realRepo}, s.OutboxRepo, logger)

	tx, wasNew, err := svc.Ingest(
		s.Ctx,
		uuid.New(),
		"k1",
		decimal.RequireFromString("10.00"),
		"EUR",
		"PT",
	)
	s.Require().ErrorIs(err, service.ErrIdempotencyConflict)
	s.Require().Nil(tx)
	s.Require().False(wasNew)

	// The aborted unit must leave nothing behind.
	s.Require().Equal(0, s.countRows("transactions"))
	s.Require().Equal(0, s.countRows("outbox"))
}
