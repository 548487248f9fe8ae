package service_test

import (
	"context"
	"testing"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/MarcoAS99/revolut-style-platform/internal/domain"
	"github.com/MarcoAS99/revolut-style-platform/internal/repository"
	"github.com/MarcoAS99/revolut-style-platform/internal/service"
	"github.com/MarcoAS99/revolut-style-platform/pkg/kafka"
	outboxRepository "github.com/MarcoAS99/revolut-style-platform/pkg/outbox/repository"
	"github.com/MarcoAS99/revolut-style-platform/pkg/outbox/worker"
	"github.com/MarcoAS99/revolut-style-platform/pkg/testsuite"
)

type IntegrationTestSuite struct {
	testsuite.BaseSuite

	TransactionService service.TransactionService
	TestProducer       kafka.Producer
	OutboxRepo         worker.OutboxRepository
	OutboxProcessor    *worker.OutboxProcessor
	workerCancel       context.CancelFunc
}

func (s *IntegrationTestSuite) SetupSuite() {
	s.BaseSuite.SetupInfrastructure("../../migrations")
}

func (s *IntegrationTestSuite) TearDownSuite() {
	s.BaseSuite.TearDownInfrastructure()
}

func (s *IntegrationTestSuite) SetupTest() {
	s.BaseSuite.TruncateTables("outbox", "transactions", "accounts")

	logger := zap.NewNop()
	transactionRepo := repository.NewTransactionRepository(s.DbPool, logger)
	outboxRepo := outboxRepository.NewOutboxRepository(s.DbPool, logger)
	s.OutboxRepo = outboxRepo

	var err error
	s.TestProducer, err = kafka.NewProducer(s.KafkaBrokers)
	s.Require().NoError(err, "failed to create kafka producer")

	s.TransactionService = service.NewTransactionService(s.DbPool, transactionRepo, outboxRepo, logger)

	s.OutboxProcessor = worker.NewOutboxProcessor(s.DbPool, outboxRepo, s.TestProducer, logger)

	workerCtx, cancel := context.WithCancel(s.Ctx)
	s.workerCancel = cancel

	go s.OutboxProcessor.Start(workerCtx)
}

func (s *IntegrationTestSuite) TearDownTest() {
	if s.workerCancel != nil {
		s.workerCancel()
	}
	if s.TestProducer != nil {
		_ = s.TestProducer.Close()
	}
}

func (s *IntegrationTestSuite) ingest(accountID uuid.UUID, key string, amount string) (*domain.Transaction, bool) {
	tx, wasNew, err := s.TransactionService.Ingest(
		s.Ctx,
		accountID,
		key,
		decimal.RequireFromString(amount),
		"EUR",
		"PT",
	)
	s.Require().NoError(err)
	s.Require().NotNil(tx)

	return tx, wasNew
}

func (s *IntegrationTestSuite) countRows(table string) int {
	var count int
	err := s.DbPool.QueryRow(s.Ctx, "SELECT COUNT(*) FROM "+table).Scan(&count)
	s.Require().NoError(err)

	return count
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationTestSuite))
}
