package service_test

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MarcoAS99/revolut-style-platform/internal/domain"
)

func (s *IntegrationTestSuite) TestIngest_CreatesTransactionAndOutboxAtomically() {
	accountID := uuid.New()

	tx, wasNew := s.ingest(accountID, "k1", "10.00")
	s.Require().True(wasNew)
	s.Require().NotEqual(uuid.Nil, tx.ID)

	s.Require().Equal(1, s.countRows("transactions"))
	s.Require().Equal(1, s.countRows("outbox"))
	s.Require().Equal(1, s.countRows("accounts"))

	var payloadBytes []byte
	err := s.DbPool.QueryRow(s.Ctx, "SELECT payload FROM outbox").Scan(&payloadBytes)
	s.Require().NoError(err)

	var event domain.TransactionCreatedEvent
	s.Require().NoError(json.Unmarshal(payloadBytes, &event))

	s.Require().Equal(domain.EventTypeTransactionCreated, event.EventType)
	s.Require().Equal(domain.TransactionCreatedVersion, event.EventVersion)
	s.Require().Equal(tx.ID, event.TransactionID)
	s.Require().Equal(accountID, event.AccountID)
	s.Require().Equal("10.00", event.Amount)
	s.Require().Equal("EUR", event.Currency)
	s.Require().Equal("PT", event.Country)
}

func (s *IntegrationTestSuite) TestIngest_SequentialReplaysReturnSameTransaction() {
	accountID := uuid.New()

	first, wasNew := s.ingest(accountID, "k1", "10.00")
	s.Require().True(wasNew)

	for i := 0; i < 3; i++ {
		replay, wasNew := s.ingest(accountID, "k1", "10.00")
		s.Require().False(wasNew)
		s.Require().Equal(first.ID, replay.ID)
	}

	s.Require().Equal(1, s.countRows("transactions"))
	s.Require().Equal(1, s.countRows("outbox"))
}

func (s *IntegrationTestSuite) TestIngest_ConcurrentSameKeyConvergesOnOneWinner() {
	accountID := uuid.New()
	const callers = 8

	ids := make([]uuid.UUID, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			tx, _, err := s.TransactionService.Ingest(
				s.Ctx,
				accountID,
				"race-key",
				decimal.RequireFromString("10.00"),
				"EUR",
				"PT",
			)
			if err != nil {
				errs[i] = err
				return
			}
			ids[i] = tx.ID
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		s.Require().NoError(errs[i])
		s.Require().Equal(ids[0], ids[i])
	}

	s.Require().Equal(1, s.countRows("transactions"))
	s.Require().Equal(1, s.countRows("outbox"))
}

func (s *IntegrationTestSuite) TestIngest_SameKeyDifferentAccountsAreDistinct() {
	first, wasNew := s.ingest(uuid.New(), "shared-key", "10.00")
	s.Require().True(wasNew)

	second, wasNew := s.ingest(uuid.New(), "shared-key", "10.00")
	s.Require().True(wasNew)

	s.Require().NotEqual(first.ID, second.ID)
	s.Require().Equal(2, s.countRows("transactions"))
}

func (s *IntegrationTestSuite) TestIngest_ValidationErrorLeavesNoRows() {
	_, _, err := s.TransactionService.Ingest(
		s.Ctx,
		uuid.New(),
		"k1",
		decimal.RequireFromString("-5.00"),
		"EUR",
		"PT",
	)
	s.Require().Error(err)

	var ve domain.ValidationError
	s.Require().ErrorAs(err, &ve)
	s.Require().Contains(ve.Fields, "amount")

	s.Require().Equal(0, s.countRows("transactions"))
	s.Require().Equal(0, s.countRows("outbox"))
	s.Require().Equal(0, s.countRows("accounts"))
}

func (s *IntegrationTestSuite) TestIngest_LazyAccountProvisioning() {
	accountID := uuid.New()

	var exists bool
	err := s.DbPool.QueryRow(s.Ctx, "SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)", accountID).Scan(&exists)
	s.Require().NoError(err)
	s.Require().False(exists)

	s.ingest(accountID, "k1", "10.00")

	err = s.DbPool.QueryRow(s.Ctx, "SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)", accountID).Scan(&exists)
	s.Require().NoError(err)
	s.Require().True(exists)

	// A second transaction for the same account must not duplicate it.
	s.ingest(accountID, "k2", "10.00")
	s.Require().Equal(1, s.countRows("accounts"))
}
